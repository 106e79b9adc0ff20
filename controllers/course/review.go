package courseController

import (
	"lms/database"
	"lms/middleware"
	"lms/models"

	"github.com/gofiber/fiber/v2"
)

// SubmitReview allows an enrolled user to review a course. The course's
// denormalized rating moves in the same transaction as the review insert.
func SubmitReview(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	courseID := c.Locals("courseID").(uint)

	reqData, ok := c.Locals("validatedReview").(*struct {
		Rating  int    `json:"rating"`
		Comment string `json:"comment"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	db := database.Database.Db

	var course models.Course
	if err := db.Where("id = ? AND is_deleted = false", courseID).First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	// Only students of the course may review it
	var enrollment models.Enrollment
	if err := db.Where("user_id = ? AND course_id = ? AND is_deleted = false", userID, courseID).
		First(&enrollment).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusForbidden, false, "You must be enrolled to review this course!", nil)
	}

	var existingReview models.Review
	if err := db.Where("course_id = ? AND user_id = ? AND is_deleted = false", courseID, userID).
		First(&existingReview).Error; err == nil {
		return middleware.JsonResponse(c, fiber.StatusConflict, false, "You have already reviewed this course!", nil)
	}

	review := models.Review{
		UserID:   userID,
		CourseID: courseID,
		Rating:   reqData.Rating,
		Comment:  reqData.Comment,
	}

	newCount := course.RatingCount + 1
	newRating := (course.Rating*float64(course.RatingCount) + float64(reqData.Rating)) / float64(newCount)

	tx := db.Begin()
	if err := tx.Create(&review).Error; err != nil {
		tx.Rollback()
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to submit review!", nil)
	}
	if err := tx.Model(&models.Course{}).Where("id = ?", courseID).
		Updates(map[string]interface{}{"rating": newRating, "rating_count": newCount}).Error; err != nil {
		tx.Rollback()
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update course rating!", nil)
	}
	tx.Commit()

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Review submitted successfully!", review)
}

// GetCourseReviews returns reviews for a course (visible to all)
func GetCourseReviews(c *fiber.Ctx) error {
	courseID := c.Locals("courseID").(uint)

	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit

	db := database.Database.Db

	var course models.Course
	if err := db.Where("id = ? AND is_deleted = false", courseID).First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	query := db.Model(&models.Review{}).Where("course_id = ? AND is_deleted = false", courseID)

	var total int64
	query.Count(&total)

	var reviews []models.Review
	if err := query.Offset(offset).Limit(limit).Order("created_at desc").Find(&reviews).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch reviews!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Reviews fetched successfully!", fiber.Map{
		"rating":  course.Rating,
		"reviews": reviews,
		"pagination": fiber.Map{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	})
}
