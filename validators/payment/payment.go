package paymentValidator

import (
	"lms/middleware"
	"strings"

	"github.com/gofiber/fiber/v2"
)

// InitializePayment validator middleware
func InitializePayment() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Amount   float64 `json:"amount"`
			CourseID uint    `json:"courseId"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		if reqData.Amount < 0 {
			errors["amount"] = "Amount cannot be negative!"
		}
		if reqData.CourseID == 0 {
			errors["courseId"] = "Course ID is required!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedInitializePayment", reqData)
		return c.Next()
	}
}

// VerifyPayment validator middleware
func VerifyPayment() fiber.Handler {
	return func(c *fiber.Ctx) error {
		reqData := new(struct {
			Reference string `json:"reference"`
		})

		if err := c.BodyParser(reqData); err != nil {
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request body!", nil)
		}

		errors := make(map[string]string)

		reqData.Reference = strings.TrimSpace(reqData.Reference)
		if reqData.Reference == "" {
			errors["reference"] = "Reference is required!"
		}

		if len(errors) > 0 {
			return middleware.ValidationErrorResponse(c, errors)
		}

		c.Locals("validatedVerifyPayment", reqData)
		return c.Next()
	}
}
