package courseController_test

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"lms/config"
	"lms/database"
	"lms/middleware"
	"lms/models"
	"lms/routers/courseRoutes"
	"lms/services"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupApp(t *testing.T) (*fiber.App, *gorm.DB) {
	t.Helper()

	config.AppConfig = &config.Config{
		JWTKey:            "test-jwt-key",
		SaltRound:         4,
		PaystackSecretKey: "sk_test_secret",
		PaymentCurrency:   "NGN",
	}

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Lesson{},
		&models.Enrollment{},
		&models.LessonProgress{},
		&models.Review{},
	))
	database.Database = database.DbInstance{Db: db}

	app := fiber.New()
	courseRoutes.SetupCourseRoutes(app)

	return app, db
}

func createUser(t *testing.T, db *gorm.DB, name, email, role string) models.User {
	t.Helper()
	user := models.User{Name: name, Email: email, Password: "x", Role: role}
	require.NoError(t, db.Create(&user).Error)
	return user
}

func createCourse(t *testing.T, db *gorm.DB, instructorID uint, price string) models.Course {
	t.Helper()
	course := models.Course{
		Title:        "Test Course",
		Description:  "A course used in tests",
		InstructorID: instructorID,
		Price:        price,
		Status:       "ACTIVE",
		IsPublished:  true,
	}
	require.NoError(t, db.Create(&course).Error)
	return course
}

func doJSON(t *testing.T, app *fiber.App, method, path string, user models.User, payload interface{}) *http.Response {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		require.NoError(t, json.NewEncoder(&body).Encode(payload))
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")

	token, err := middleware.GenerateJWT(user.ID, user.Name, user.Role, user.Email)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func TestCreateCourseRequiresInstructorRole(t *testing.T) {
	app, db := setupApp(t)
	student := createUser(t, db, "Sam", "sam@example.com", models.RoleStudent)

	resp := doJSON(t, app, http.MethodPost, "/api/courses/", student, fiber.Map{
		"title":       "Sneaky Course",
		"description": "Should not be allowed",
	})

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var count int64
	db.Model(&models.Course{}).Count(&count)
	assert.Zero(t, count)
}

func TestCreateAndUpdateCourse(t *testing.T) {
	app, db := setupApp(t)
	instructor := createUser(t, db, "Ines", "ines@example.com", models.RoleInstructor)

	resp := doJSON(t, app, http.MethodPost, "/api/courses/", instructor, fiber.Map{
		"title":       "Go Basics",
		"description": "Learn Go from scratch",
		"price":       "49.99",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var course models.Course
	require.NoError(t, db.Where("title = ?", "Go Basics").First(&course).Error)
	assert.Equal(t, instructor.ID, course.InstructorID)
	assert.Equal(t, "DRAFT", course.Status)

	resp = doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/courses/%d", course.ID), instructor, fiber.Map{
		"status":       "ACTIVE",
		"is_published": true,
	})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, db.First(&course, course.ID).Error)
	assert.Equal(t, "ACTIVE", course.Status)
	assert.True(t, course.IsPublished)
}

func TestUpdateCourseRejectsNonOwner(t *testing.T) {
	app, db := setupApp(t)
	owner := createUser(t, db, "Ines", "ines@example.com", models.RoleInstructor)
	other := createUser(t, db, "Omar", "omar@example.com", models.RoleInstructor)
	course := createCourse(t, db, owner.ID, "0.00")

	resp := doJSON(t, app, http.MethodPut, fmt.Sprintf("/api/courses/%d", course.ID), other, fiber.Map{
		"title": "Hijacked",
	})

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	var stored models.Course
	require.NoError(t, db.First(&stored, course.ID).Error)
	assert.Equal(t, "Test Course", stored.Title)
}

func TestUpdateProgressEndpoint(t *testing.T) {
	app, db := setupApp(t)
	instructor := createUser(t, db, "Ines", "ines@example.com", models.RoleInstructor)
	student := createUser(t, db, "Sam", "sam@example.com", models.RoleStudent)
	course := createCourse(t, db, instructor.ID, "0.00")

	_, _, err := services.EnrollUser(db, student.ID, course.ID)
	require.NoError(t, err)

	resp := doJSON(t, app, http.MethodPut,
		fmt.Sprintf("/api/enrollments/%d/progress", course.ID), student, fiber.Map{"progress": 100})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var enrollment models.Enrollment
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", student.ID, course.ID).First(&enrollment).Error)
	assert.Equal(t, models.EnrollmentCompleted, enrollment.Status)
	assert.NotNil(t, enrollment.CompletedAt)

	// Out of range rejected by validation
	resp = doJSON(t, app, http.MethodPut,
		fmt.Sprintf("/api/enrollments/%d/progress", course.ID), student, fiber.Map{"progress": 120})
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
}

func TestLessonCompletionDrivesProgress(t *testing.T) {
	app, db := setupApp(t)
	instructor := createUser(t, db, "Ines", "ines@example.com", models.RoleInstructor)
	student := createUser(t, db, "Sam", "sam@example.com", models.RoleStudent)
	course := createCourse(t, db, instructor.ID, "0.00")

	lessons := make([]models.Lesson, 2)
	for i := range lessons {
		lessons[i] = models.Lesson{CourseID: course.ID, Title: "Lesson", OrderIndex: i}
		require.NoError(t, db.Create(&lessons[i]).Error)
	}

	_, _, err := services.EnrollUser(db, student.ID, course.ID)
	require.NoError(t, err)

	complete := func(lessonID uint) *http.Response {
		return doJSON(t, app, http.MethodPost,
			fmt.Sprintf("/api/courses/%d/lessons/%d/complete", course.ID, lessonID), student, nil)
	}

	resp := complete(lessons[0].ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var enrollment models.Enrollment
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", student.ID, course.ID).First(&enrollment).Error)
	assert.Equal(t, 50, enrollment.Progress)

	// Completing the same lesson again changes nothing
	resp = complete(lessons[0].ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", student.ID, course.ID).First(&enrollment).Error)
	assert.Equal(t, 50, enrollment.Progress)

	resp = complete(lessons[1].ID)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", student.ID, course.ID).First(&enrollment).Error)
	assert.Equal(t, 100, enrollment.Progress)
	assert.Equal(t, models.EnrollmentCompleted, enrollment.Status)
}

func TestSubmitReviewUpdatesCourseRating(t *testing.T) {
	app, db := setupApp(t)
	instructor := createUser(t, db, "Ines", "ines@example.com", models.RoleInstructor)
	course := createCourse(t, db, instructor.ID, "0.00")

	alice := createUser(t, db, "Alice", "alice@example.com", models.RoleStudent)
	bob := createUser(t, db, "Bob", "bob@example.com", models.RoleStudent)

	for _, u := range []models.User{alice, bob} {
		_, _, err := services.EnrollUser(db, u.ID, course.ID)
		require.NoError(t, err)
	}

	path := fmt.Sprintf("/api/courses/%d/reviews", course.ID)

	resp := doJSON(t, app, http.MethodPost, path, alice, fiber.Map{"rating": 5, "comment": "Great!"})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp = doJSON(t, app, http.MethodPost, path, bob, fiber.Map{"rating": 3})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Second review by the same user is rejected
	resp = doJSON(t, app, http.MethodPost, path, alice, fiber.Map{"rating": 1})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var updated models.Course
	require.NoError(t, db.First(&updated, course.ID).Error)
	assert.Equal(t, uint(2), updated.RatingCount)
	assert.InDelta(t, 4.0, updated.Rating, 0.001)
}

func TestReviewRequiresEnrollment(t *testing.T) {
	app, db := setupApp(t)
	instructor := createUser(t, db, "Ines", "ines@example.com", models.RoleInstructor)
	course := createCourse(t, db, instructor.ID, "0.00")
	outsider := createUser(t, db, "Olu", "olu@example.com", models.RoleStudent)

	resp := doJSON(t, app, http.MethodPost,
		fmt.Sprintf("/api/courses/%d/reviews", course.ID), outsider, fiber.Map{"rating": 4})

	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
}
