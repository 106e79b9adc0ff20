package courseController

import (
	"errors"
	"lms/database"
	"lms/middleware"
	"lms/models"
	"lms/services"
	"lms/utils"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
)

// EnrollInCourse is the free-course enrollment path. Paid courses are
// pointed at the payment flow instead.
func EnrollInCourse(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	var user models.User
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", userID, false).First(&user).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "User not found!", nil)
	}

	courseID := c.Locals("courseID").(uint)

	var course models.Course
	if err := database.Database.Db.Where("id = ? AND is_deleted = ? AND status = ? AND is_published = ?",
		courseID, false, "ACTIVE", true).First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found or not active!", nil)
	}

	if price, err := strconv.ParseFloat(course.Price, 64); err != nil || price > 0 {
		return middleware.JsonResponse(c, fiber.StatusPaymentRequired, false,
			"This is a paid course, please use the payment flow!", nil)
	}

	enrollment, created, err := services.EnrollUser(database.Database.Db, userID, courseID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to enroll in course!", nil)
	}

	if !created {
		// Duplicate attempts are a no-op, not an error.
		return middleware.JsonResponse(c, fiber.StatusOK, true, "Already enrolled in this course!", enrollment)
	}

	go utils.SendEnrollmentConfirmation(user.Email, user.Name, course.Title)

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Enrolled in course successfully!", enrollment)
}

// UpdateEnrollmentProgress sets the caller's progress on a course
func UpdateEnrollmentProgress(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	courseID := c.Locals("courseID").(uint)

	reqData, ok := c.Locals("validatedProgress").(*struct {
		Progress *int `json:"progress"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	enrollment, err := services.UpdateProgress(database.Database.Db, userID, courseID, *reqData.Progress)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrInvalidProgress):
			return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Progress must be between 0 and 100!", nil)
		case errors.Is(err, services.ErrNotEnrolled):
			return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Enrollment not found!", nil)
		default:
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update progress!", nil)
		}
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Progress updated successfully!", enrollment)
}

// MarkLessonComplete records a lesson completion and rederives the
// enrollment percentage from completed lessons.
func MarkLessonComplete(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	courseID := c.Locals("courseID").(uint)
	lessonID := c.Locals("lessonID").(uint)

	db := database.Database.Db

	var enrollment models.Enrollment
	if err := db.Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).
		First(&enrollment).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "Please enroll in this course first!", nil)
	}

	var lesson models.Lesson
	if err := db.Where("id = ? AND course_id = ? AND is_deleted = ?", lessonID, courseID, false).
		First(&lesson).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Lesson not found!", nil)
	}

	// Completing the same lesson twice is a no-op.
	var existing models.LessonProgress
	if err := db.Where("user_id = ? AND lesson_id = ? AND is_deleted = ?", userID, lessonID, false).
		First(&existing).Error; err != nil {
		completion := models.LessonProgress{
			UserID:      userID,
			LessonID:    lessonID,
			CourseID:    courseID,
			CompletedAt: time.Now(),
		}
		if err := db.Create(&completion).Error; err != nil {
			return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to mark lesson complete!", nil)
		}
	}

	updated, err := services.RecomputeProgress(db, userID, courseID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update progress!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Lesson marked complete!", updated)
}

// GetUserEnrollmentsList returns the caller's enrollments for the dashboard
func GetUserEnrollmentsList(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	enrollments, err := services.GetUserEnrollments(database.Database.Db, userID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch enrollments!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollments fetched successfully!", fiber.Map{
		"enrollments": enrollments,
	})
}

// GetCourseEnrollmentsList returns a course's roster to its instructor
func GetCourseEnrollmentsList(c *fiber.Ctx) error {
	courseID := c.Locals("courseID").(uint)

	course, err := loadOwnedCourse(c, courseID)
	if course == nil {
		return err
	}

	enrollments, err := services.GetCourseEnrollments(database.Database.Db, courseID)
	if err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch enrollments!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Enrollments fetched successfully!", fiber.Map{
		"course":      course.Title,
		"enrollments": enrollments,
	})
}
