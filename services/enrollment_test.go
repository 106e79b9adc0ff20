package services

import (
	"lms/models"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupTestDb(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	// One pooled connection so every session sees the same in-memory database
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&models.User{},
		&models.Course{},
		&models.Lesson{},
		&models.Enrollment{},
		&models.LessonProgress{},
	))

	return db
}

func seedUserAndCourse(t *testing.T, db *gorm.DB) (uint, uint) {
	t.Helper()

	user := models.User{Name: "Asha", Email: "asha@example.com", Password: "x"}
	require.NoError(t, db.Create(&user).Error)

	course := models.Course{
		Title:        "Go Basics",
		InstructorID: user.ID,
		Price:        "49.99",
		Status:       "ACTIVE",
		IsPublished:  true,
	}
	require.NoError(t, db.Create(&course).Error)

	return user.ID, course.ID
}

func studentsCount(t *testing.T, db *gorm.DB, courseID uint) uint {
	t.Helper()
	var course models.Course
	require.NoError(t, db.First(&course, courseID).Error)
	return course.StudentsCount
}

func TestEnrollUserCreatesEnrollment(t *testing.T) {
	db := setupTestDb(t)
	userID, courseID := seedUserAndCourse(t, db)

	enrollment, created, err := EnrollUser(db, userID, courseID)
	require.NoError(t, err)

	assert.True(t, created)
	assert.Equal(t, models.EnrollmentActive, enrollment.Status)
	assert.Equal(t, 0, enrollment.Progress)
	assert.Nil(t, enrollment.CompletedAt)
	assert.Equal(t, uint(1), studentsCount(t, db, courseID))
}

func TestEnrollUserIsIdempotent(t *testing.T) {
	db := setupTestDb(t)
	userID, courseID := seedUserAndCourse(t, db)

	first, created, err := EnrollUser(db, userID, courseID)
	require.NoError(t, err)
	require.True(t, created)

	second, created, err := EnrollUser(db, userID, courseID)
	require.NoError(t, err)

	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	db.Model(&models.Enrollment{}).Where("user_id = ? AND course_id = ?", userID, courseID).Count(&count)
	assert.Equal(t, int64(1), count)

	// Counter moved exactly once
	assert.Equal(t, uint(1), studentsCount(t, db, courseID))
}

func TestEnrollUserConcurrent(t *testing.T) {
	db := setupTestDb(t)
	userID, courseID := seedUserAndCourse(t, db)

	// Webhook and client-side verify racing for the same purchase
	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _, errs[i] = EnrollUser(db, userID, courseID)
		}(i)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])

	var count int64
	db.Model(&models.Enrollment{}).Where("user_id = ? AND course_id = ?", userID, courseID).Count(&count)
	assert.Equal(t, int64(1), count)
	assert.Equal(t, uint(1), studentsCount(t, db, courseID))
}

func TestUpdateProgressDerivesStatus(t *testing.T) {
	tests := []struct {
		name          string
		progress      int
		wantStatus    string
		wantCompleted bool
	}{
		{"zero", 0, models.EnrollmentActive, false},
		{"partial", 45, models.EnrollmentActive, false},
		{"almost done", 99, models.EnrollmentActive, false},
		{"complete", 100, models.EnrollmentCompleted, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			db := setupTestDb(t)
			userID, courseID := seedUserAndCourse(t, db)
			_, _, err := EnrollUser(db, userID, courseID)
			require.NoError(t, err)

			enrollment, err := UpdateProgress(db, userID, courseID, tt.progress)
			require.NoError(t, err)

			assert.Equal(t, tt.progress, enrollment.Progress)
			assert.Equal(t, tt.wantStatus, enrollment.Status)
			if tt.wantCompleted {
				assert.NotNil(t, enrollment.CompletedAt)
			} else {
				assert.Nil(t, enrollment.CompletedAt)
			}

			// Same invariant holds on the stored row
			var stored models.Enrollment
			require.NoError(t, db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&stored).Error)
			assert.Equal(t, tt.wantStatus, stored.Status)
		})
	}
}

func TestUpdateProgressRevertsCompletion(t *testing.T) {
	db := setupTestDb(t)
	userID, courseID := seedUserAndCourse(t, db)
	_, _, err := EnrollUser(db, userID, courseID)
	require.NoError(t, err)

	_, err = UpdateProgress(db, userID, courseID, 100)
	require.NoError(t, err)

	// A later write below 100 reverts to ACTIVE and clears the timestamp
	enrollment, err := UpdateProgress(db, userID, courseID, 60)
	require.NoError(t, err)

	assert.Equal(t, models.EnrollmentActive, enrollment.Status)
	assert.Nil(t, enrollment.CompletedAt)

	var stored models.Enrollment
	require.NoError(t, db.Where("user_id = ? AND course_id = ?", userID, courseID).First(&stored).Error)
	assert.Equal(t, models.EnrollmentActive, stored.Status)
	assert.Nil(t, stored.CompletedAt)
}

func TestUpdateProgressRejectsOutOfRange(t *testing.T) {
	db := setupTestDb(t)
	userID, courseID := seedUserAndCourse(t, db)
	_, _, err := EnrollUser(db, userID, courseID)
	require.NoError(t, err)

	_, err = UpdateProgress(db, userID, courseID, -1)
	assert.ErrorIs(t, err, ErrInvalidProgress)

	_, err = UpdateProgress(db, userID, courseID, 101)
	assert.ErrorIs(t, err, ErrInvalidProgress)
}

func TestUpdateProgressRequiresEnrollment(t *testing.T) {
	db := setupTestDb(t)
	userID, courseID := seedUserAndCourse(t, db)

	_, err := UpdateProgress(db, userID, courseID, 50)
	assert.ErrorIs(t, err, ErrNotEnrolled)
}

func TestRecomputeProgressFromLessons(t *testing.T) {
	db := setupTestDb(t)
	userID, courseID := seedUserAndCourse(t, db)
	_, _, err := EnrollUser(db, userID, courseID)
	require.NoError(t, err)

	lessons := make([]models.Lesson, 3)
	for i := range lessons {
		lessons[i] = models.Lesson{CourseID: courseID, Title: "Lesson", OrderIndex: i}
		require.NoError(t, db.Create(&lessons[i]).Error)
	}

	complete := func(lessonID uint) {
		require.NoError(t, db.Create(&models.LessonProgress{
			UserID:      userID,
			LessonID:    lessonID,
			CourseID:    courseID,
			CompletedAt: time.Now(),
		}).Error)
	}

	complete(lessons[0].ID)
	enrollment, err := RecomputeProgress(db, userID, courseID)
	require.NoError(t, err)
	assert.Equal(t, 33, enrollment.Progress)
	assert.Equal(t, models.EnrollmentActive, enrollment.Status)

	complete(lessons[1].ID)
	complete(lessons[2].ID)
	enrollment, err = RecomputeProgress(db, userID, courseID)
	require.NoError(t, err)
	assert.Equal(t, 100, enrollment.Progress)
	assert.Equal(t, models.EnrollmentCompleted, enrollment.Status)
	assert.NotNil(t, enrollment.CompletedAt)
}

func TestGetUserEnrollments(t *testing.T) {
	db := setupTestDb(t)
	userID, courseID := seedUserAndCourse(t, db)

	other := models.Course{Title: "Other", InstructorID: 1, Price: "0.00", Status: "ACTIVE", IsPublished: true}
	require.NoError(t, db.Create(&other).Error)

	_, _, err := EnrollUser(db, userID, courseID)
	require.NoError(t, err)
	_, _, err = EnrollUser(db, userID, other.ID)
	require.NoError(t, err)

	enrollments, err := GetUserEnrollments(db, userID)
	require.NoError(t, err)

	assert.Len(t, enrollments, 2)
	// Course display fields come preloaded for the dashboard
	titles := []string{enrollments[0].Course.Title, enrollments[1].Course.Title}
	assert.Contains(t, titles, "Go Basics")
	assert.Contains(t, titles, "Other")
}
