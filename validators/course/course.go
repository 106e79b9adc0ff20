package courseValidator

import (
	"lms/middleware"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// CourseIDParam validates the course id path parameter and stores it as uint
func CourseIDParam(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		courseIDStr := strings.TrimSpace(c.Params(param))
		if courseIDStr == "" {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Course ID is required!", nil)
		}

		courseID, err := strconv.Atoi(courseIDStr)
		if err != nil || courseID <= 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Course ID!", nil)
		}

		c.Locals("courseID", uint(courseID))
		return c.Next()
	}
}

// LessonIDParam validates the lesson id path parameter
func LessonIDParam(param string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		lessonIDStr := strings.TrimSpace(c.Params(param))
		if lessonIDStr == "" {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Lesson ID is required!", nil)
		}

		lessonID, err := strconv.Atoi(lessonIDStr)
		if err != nil || lessonID <= 0 {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid Lesson ID!", nil)
		}

		c.Locals("lessonID", uint(lessonID))
		return c.Next()
	}
}

// validPrice checks a decimal price string like "0.00" or "49.99"
func validPrice(price string) bool {
	v, err := strconv.ParseFloat(price, 64)
	return err == nil && v >= 0
}

// CreateCourse validator middleware
func CreateCourse() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Title       string `json:"title"`
			Description string `json:"description"`
			Price       string `json:"price"`
			Duration    int64  `json:"duration"`
			Thumbnail   string `json:"thumbnail_url"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if strings.TrimSpace(reqData.Title) == "" {
			errors["title"] = "Title is required!"
		} else if len(strings.TrimSpace(reqData.Title)) < 3 {
			errors["title"] = "Title must be at least 3 characters long!"
		}

		if strings.TrimSpace(reqData.Description) == "" {
			errors["description"] = "Description is required!"
		} else if len(strings.TrimSpace(reqData.Description)) < 5 {
			errors["description"] = "Description must be at least 5 characters long!"
		}

		if reqData.Price == "" {
			reqData.Price = "0.00"
		} else if !validPrice(reqData.Price) {
			errors["price"] = "Price must be a non-negative decimal!"
		}

		if reqData.Duration < 0 {
			errors["duration"] = "Duration cannot be negative!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedCourse", reqData)
		return c.Next()
	}
}

// UpdateCourse validator middleware
func UpdateCourse() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Title       *string `json:"title"`
			Description *string `json:"description"`
			Price       *string `json:"price"`
			Duration    *int64  `json:"duration"`
			Thumbnail   *string `json:"thumbnail_url"`
			Status      *string `json:"status"`
			IsPublished *bool   `json:"is_published"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if reqData.Title != nil && strings.TrimSpace(*reqData.Title) == "" {
			errors["title"] = "Title cannot be empty!"
		}
		if reqData.Price != nil && !validPrice(*reqData.Price) {
			errors["price"] = "Price must be a non-negative decimal!"
		}
		if reqData.Status != nil {
			switch *reqData.Status {
			case "DRAFT", "ACTIVE", "INACTIVE":
			default:
				errors["status"] = "Status must be DRAFT, ACTIVE or INACTIVE!"
			}
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedCourseUpdate", reqData)
		return c.Next()
	}
}

// AddLesson validator middleware
func AddLesson() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Title      string `json:"title"`
			VideoURL   string `json:"video_url"`
			Duration   int64  `json:"duration"`
			OrderIndex int    `json:"order_index"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if strings.TrimSpace(reqData.Title) == "" {
			errors["title"] = "Title is required!"
		}
		if reqData.Duration < 0 {
			errors["duration"] = "Duration cannot be negative!"
		}
		if reqData.OrderIndex < 0 {
			errors["order_index"] = "Order index cannot be negative!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedLesson", reqData)
		return c.Next()
	}
}
