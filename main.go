package main

import (
	"lms/config"
	paymentController "lms/controllers/payment"
	"lms/database"
	"lms/paystack"
	"lms/routers/authRoutes"
	"lms/routers/courseRoutes"
	"lms/routers/paymentRoutes"
	"lms/utils"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
)

func main() {
	config.LoadConfig()
	database.ConnectDb()

	paymentController.Gateway = paystack.NewClient(
		config.AppConfig.PaystackSecretKey,
		config.AppConfig.PaystackBaseURL,
	)

	app := fiber.New()

	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE",
		AllowHeaders: "Content-Type,Authorization",
	}))

	// Enable the built-in logger middleware to log all requests
	app.Use(logger.New(logger.Config{
		Format: "[${time}] ${ip} ${method} ${path} ${status} ${latency}\n",
	}))

	authRoutes.SetupAuthRoutes(app)
	courseRoutes.SetupCourseRoutes(app)
	paymentRoutes.SetupPaymentRoutes(app)

	utils.InitializePaymentReconciler(paymentController.Gateway)

	log.Printf("Server is running on port %s", config.AppConfig.Port)
	log.Fatal(app.Listen(":" + config.AppConfig.Port))
}
