package courseController

import (
	"lms/database"
	"lms/middleware"
	"lms/models"

	"github.com/gofiber/fiber/v2"
)

// GetAllCourses lists published active courses for the catalog
func GetAllCourses(c *fiber.Ctx) error {
	page := c.QueryInt("page", 1)
	limit := c.QueryInt("limit", 10)

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 10
	}
	offset := (page - 1) * limit

	db := database.Database.Db.Model(&models.Course{}).
		Where("is_deleted = ? AND status = ? AND is_published = ?", false, "ACTIVE", true)

	var total int64
	db.Count(&total)

	var courses []models.Course
	if err := db.Offset(offset).Limit(limit).Order("created_at desc").Find(&courses).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to fetch courses!", nil)
	}

	response := map[string]interface{}{
		"courses": courses,
		"pagination": map[string]interface{}{
			"total": total,
			"page":  page,
			"limit": limit,
		},
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Courses fetched successfully!", response)
}

// GetCourseDetails returns one course with its lessons and the caller's
// enrollment state
func GetCourseDetails(c *fiber.Ctx) error {
	userID, ok := c.Locals("userId").(uint)
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusUnauthorized, false, "Unauthorized!", nil)
	}

	courseID := c.Locals("courseID").(uint)

	var course models.Course
	if err := database.Database.Db.Where("id = ? AND is_deleted = ? AND is_published = ?", courseID, false, true).
		First(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	var lessons []models.Lesson
	database.Database.Db.Where("course_id = ? AND is_deleted = ?", courseID, false).
		Order("order_index asc").Find(&lessons)

	var enrollment models.Enrollment
	isEnrolled := database.Database.Db.
		Where("user_id = ? AND course_id = ? AND is_deleted = ?", userID, courseID, false).
		First(&enrollment).Error == nil

	resp := fiber.Map{
		"course":      course,
		"lessons":     lessons,
		"is_enrolled": isEnrolled,
	}
	if isEnrolled {
		resp["enrollment"] = enrollment
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course details fetched successfully!", resp)
}

// CreateCourse creates a draft course owned by the calling instructor
func CreateCourse(c *fiber.Ctx) error {
	userID := c.Locals("userId").(uint)

	reqData, ok := c.Locals("validatedCourse").(*struct {
		Title       string `json:"title"`
		Description string `json:"description"`
		Price       string `json:"price"`
		Duration    int64  `json:"duration"`
		Thumbnail   string `json:"thumbnail_url"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	course := models.Course{
		Title:        reqData.Title,
		Description:  reqData.Description,
		InstructorID: userID,
		Price:        reqData.Price,
		Duration:     reqData.Duration,
		ThumbnailURL: reqData.Thumbnail,
		Status:       "DRAFT",
	}

	if err := database.Database.Db.Create(&course).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to create course!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Course created successfully!", course)
}

// loadOwnedCourse fetches a course and checks the caller owns it. Admins
// may touch any course.
func loadOwnedCourse(c *fiber.Ctx, courseID uint) (*models.Course, error) {
	userID := c.Locals("userId").(uint)
	role, _ := c.Locals("userRole").(string)

	var course models.Course
	if err := database.Database.Db.Where("id = ? AND is_deleted = ?", courseID, false).
		First(&course).Error; err != nil {
		return nil, middleware.JsonResponse(c, fiber.StatusNotFound, false, "Course not found!", nil)
	}

	if course.InstructorID != userID && role != models.RoleAdmin {
		return nil, middleware.JsonResponse(c, fiber.StatusForbidden, false, "You do not own this course!", nil)
	}
	return &course, nil
}

// UpdateCourse updates course fields; restricted to the owning instructor
func UpdateCourse(c *fiber.Ctx) error {
	courseID := c.Locals("courseID").(uint)

	course, err := loadOwnedCourse(c, courseID)
	if course == nil {
		return err
	}

	reqData, ok := c.Locals("validatedCourseUpdate").(*struct {
		Title       *string `json:"title"`
		Description *string `json:"description"`
		Price       *string `json:"price"`
		Duration    *int64  `json:"duration"`
		Thumbnail   *string `json:"thumbnail_url"`
		Status      *string `json:"status"`
		IsPublished *bool   `json:"is_published"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	updates := map[string]interface{}{}
	if reqData.Title != nil {
		updates["title"] = *reqData.Title
	}
	if reqData.Description != nil {
		updates["description"] = *reqData.Description
	}
	if reqData.Price != nil {
		updates["price"] = *reqData.Price
	}
	if reqData.Duration != nil {
		updates["duration"] = *reqData.Duration
	}
	if reqData.Thumbnail != nil {
		updates["thumbnail_url"] = *reqData.Thumbnail
	}
	if reqData.Status != nil {
		updates["status"] = *reqData.Status
	}
	if reqData.IsPublished != nil {
		updates["is_published"] = *reqData.IsPublished
	}

	if len(updates) == 0 {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Nothing to update!", nil)
	}

	if err := database.Database.Db.Model(course).Updates(updates).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to update course!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusOK, true, "Course updated successfully!", course)
}

// AddLesson appends a lesson to a course owned by the caller
func AddLesson(c *fiber.Ctx) error {
	courseID := c.Locals("courseID").(uint)

	course, err := loadOwnedCourse(c, courseID)
	if course == nil {
		return err
	}

	reqData, ok := c.Locals("validatedLesson").(*struct {
		Title      string `json:"title"`
		VideoURL   string `json:"video_url"`
		Duration   int64  `json:"duration"`
		OrderIndex int    `json:"order_index"`
	})
	if !ok {
		return middleware.JsonResponse(c, fiber.StatusBadRequest, false, "Invalid request data!", nil)
	}

	lesson := models.Lesson{
		CourseID:   course.ID,
		Title:      reqData.Title,
		VideoURL:   reqData.VideoURL,
		Duration:   reqData.Duration,
		OrderIndex: reqData.OrderIndex,
	}

	if err := database.Database.Db.Create(&lesson).Error; err != nil {
		return middleware.JsonResponse(c, fiber.StatusInternalServerError, false, "Failed to add lesson!", nil)
	}

	return middleware.JsonResponse(c, fiber.StatusCreated, true, "Lesson added successfully!", lesson)
}
