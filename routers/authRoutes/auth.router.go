package authRoutes

import (
	authController "lms/controllers/auth"
	"lms/middleware"
	authValidator "lms/validators/auth"

	"github.com/gofiber/fiber/v2"
)

// SetupAuthRoutes sets up signup/login and the profile endpoint
func SetupAuthRoutes(app *fiber.App) {
	authGroup := app.Group("/api/auth")

	authGroup.Post("/signup", authValidator.Signup(), authController.Signup)
	authGroup.Post("/login", authValidator.Login(), authController.Login)

	app.Get("/api/user/me", middleware.JWTMiddleware, authController.Me)
}
