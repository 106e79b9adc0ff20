package paymentRoutes

import (
	paymentController "lms/controllers/payment"
	"lms/middleware"
	paymentValidator "lms/validators/payment"

	"github.com/gofiber/fiber/v2"
)

// SetupPaymentRoutes sets up the payment flow endpoints. The webhook is
// provider-signed, not session-authenticated.
func SetupPaymentRoutes(app *fiber.App) {
	app.Post("/api/initialize-payment", middleware.JWTMiddleware,
		paymentValidator.InitializePayment(), paymentController.InitializePayment)
	app.Post("/api/verify-payment", middleware.JWTMiddleware,
		paymentValidator.VerifyPayment(), paymentController.VerifyPayment)
	app.Post("/api/paystack/webhook", paymentController.PaystackWebhook)
}
