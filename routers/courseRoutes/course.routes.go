package courseRoutes

import (
	courseController "lms/controllers/course"
	"lms/middleware"
	"lms/models"
	courseValidator "lms/validators/course"

	"github.com/gofiber/fiber/v2"
)

// SetupCourseRoutes sets up catalog, enrollment, progress and review routes
func SetupCourseRoutes(app *fiber.App) {
	courses := app.Group("/api/courses")

	// Catalog
	courses.Get("/", middleware.JWTMiddleware, courseController.GetAllCourses)
	courses.Get("/:id", middleware.JWTMiddleware, courseValidator.CourseIDParam("id"), courseController.GetCourseDetails)

	// Instructor course management
	courses.Post("/", middleware.JWTMiddleware,
		middleware.RequireRole(models.RoleInstructor, models.RoleAdmin),
		courseValidator.CreateCourse(), courseController.CreateCourse)
	courses.Put("/:id", middleware.JWTMiddleware,
		middleware.RequireRole(models.RoleInstructor, models.RoleAdmin),
		courseValidator.CourseIDParam("id"), courseValidator.UpdateCourse(), courseController.UpdateCourse)
	courses.Post("/:id/lessons", middleware.JWTMiddleware,
		middleware.RequireRole(models.RoleInstructor, models.RoleAdmin),
		courseValidator.CourseIDParam("id"), courseValidator.AddLesson(), courseController.AddLesson)
	courses.Get("/:id/enrollments", middleware.JWTMiddleware,
		middleware.RequireRole(models.RoleInstructor, models.RoleAdmin),
		courseValidator.CourseIDParam("id"), courseController.GetCourseEnrollmentsList)

	// Enrollment (free-course path)
	courses.Post("/:courseId/enroll", middleware.JWTMiddleware,
		courseValidator.CourseIDParam("courseId"), courseController.EnrollInCourse)

	// Lesson completion
	courses.Post("/:courseId/lessons/:lessonId/complete", middleware.JWTMiddleware,
		courseValidator.CourseIDParam("courseId"), courseValidator.LessonIDParam("lessonId"),
		courseController.MarkLessonComplete)

	// Reviews
	courses.Post("/:id/reviews", middleware.JWTMiddleware,
		courseValidator.CourseIDParam("id"), courseValidator.SubmitReview(), courseController.SubmitReview)
	courses.Get("/:id/reviews", courseValidator.CourseIDParam("id"), courseController.GetCourseReviews)

	// Progress tracking and the student dashboard
	app.Put("/api/enrollments/:courseId/progress", middleware.JWTMiddleware,
		courseValidator.CourseIDParam("courseId"), courseValidator.UpdateProgress(),
		courseController.UpdateEnrollmentProgress)
	app.Get("/api/user/enrollments", middleware.JWTMiddleware, courseController.GetUserEnrollmentsList)
}
