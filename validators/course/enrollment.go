package courseValidator

import (
	"lms/middleware"

	"github.com/gofiber/fiber/v2"
)

// UpdateProgress validator middleware
func UpdateProgress() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Progress *int `json:"progress"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if reqData.Progress == nil {
			errors["progress"] = "Progress is required!"
		} else if *reqData.Progress < 0 || *reqData.Progress > 100 {
			errors["progress"] = "Progress must be between 0 and 100!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedProgress", reqData)
		return c.Next()
	}
}

// SubmitReview validator middleware
func SubmitReview() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Rating  int    `json:"rating"`
			Comment string `json:"comment"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if reqData.Rating < 1 || reqData.Rating > 5 {
			errors["rating"] = "Rating must be between 1 and 5!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedReview", reqData)
		return c.Next()
	}
}
