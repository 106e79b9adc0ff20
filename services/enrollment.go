package services

import (
	"errors"
	"lms/models"
	"math"
	"time"

	"gorm.io/gorm"
)

var (
	// ErrAlreadyEnrolled is internal only; callers treat it as success.
	ErrAlreadyEnrolled = errors.New("user already enrolled in course")
	ErrInvalidProgress = errors.New("progress must be between 0 and 100")
	ErrNotEnrolled     = errors.New("user is not enrolled in course")
)

// EnrollUser creates an enrollment for (userID, courseID) and bumps the
// course's students count, as one transaction. Calling it twice, or from the
// webhook and verify paths at the same time, yields exactly one row and
// exactly one increment: the composite unique index serializes concurrent
// inserts and the loser gets the existing row back with created=false.
func EnrollUser(db *gorm.DB, userID, courseID uint) (*models.Enrollment, bool, error) {
	var existing models.Enrollment
	if err := db.Where("user_id = ? AND course_id = ? AND is_deleted = false", userID, courseID).
		First(&existing).Error; err == nil {
		return &existing, false, nil
	}

	enrollment := models.Enrollment{
		UserID:   userID,
		CourseID: courseID,
		Status:   models.EnrollmentActive,
		Progress: 0,
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&enrollment).Error; err != nil {
			return err
		}
		// Counter moves only when the insert above created a row, and in
		// the same transaction, so it can never drift from the enrollments.
		return tx.Model(&models.Course{}).
			Where("id = ?", courseID).
			UpdateColumn("students_count", gorm.Expr("students_count + ?", 1)).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Lost the race against the other confirmation path.
			if ferr := db.Where("user_id = ? AND course_id = ?", userID, courseID).
				First(&existing).Error; ferr == nil {
				return &existing, false, nil
			}
			return nil, false, ErrAlreadyEnrolled
		}
		return nil, false, err
	}

	return &enrollment, true, nil
}

// applyProgress derives status and completion time from a progress value.
// The derivation is deterministic on every write: a later write below 100
// reverts the enrollment to ACTIVE and clears CompletedAt, matching how
// progress updates have always behaved here.
func applyProgress(enrollment *models.Enrollment, progress int) {
	enrollment.Progress = progress
	if progress >= 100 {
		if enrollment.Status != models.EnrollmentCompleted {
			now := time.Now()
			enrollment.CompletedAt = &now
		}
		enrollment.Status = models.EnrollmentCompleted
	} else {
		enrollment.Status = models.EnrollmentActive
		enrollment.CompletedAt = nil
	}
}

// UpdateProgress sets the progress percentage for an enrollment.
func UpdateProgress(db *gorm.DB, userID, courseID uint, progress int) (*models.Enrollment, error) {
	if progress < 0 || progress > 100 {
		return nil, ErrInvalidProgress
	}

	var enrollment models.Enrollment
	if err := db.Where("user_id = ? AND course_id = ? AND is_deleted = false", userID, courseID).
		First(&enrollment).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotEnrolled
		}
		return nil, err
	}

	applyProgress(&enrollment, progress)

	if err := db.Model(&enrollment).
		Select("progress", "status", "completed_at").
		Updates(map[string]interface{}{
			"progress":     enrollment.Progress,
			"status":       enrollment.Status,
			"completed_at": enrollment.CompletedAt,
		}).Error; err != nil {
		return nil, err
	}

	return &enrollment, nil
}

// RecomputeProgress rederives the enrollment percentage from completed
// lessons. Courses without lessons keep whatever progress they have.
func RecomputeProgress(db *gorm.DB, userID, courseID uint) (*models.Enrollment, error) {
	var total int64
	if err := db.Model(&models.Lesson{}).
		Where("course_id = ? AND is_deleted = false", courseID).
		Count(&total).Error; err != nil {
		return nil, err
	}
	if total == 0 {
		var enrollment models.Enrollment
		if err := db.Where("user_id = ? AND course_id = ? AND is_deleted = false", userID, courseID).
			First(&enrollment).Error; err != nil {
			return nil, ErrNotEnrolled
		}
		return &enrollment, nil
	}

	var completed int64
	if err := db.Model(&models.LessonProgress{}).
		Where("user_id = ? AND course_id = ? AND is_deleted = false", userID, courseID).
		Count(&completed).Error; err != nil {
		return nil, err
	}

	progress := int(math.Round(float64(completed) / float64(total) * 100))
	if progress > 100 {
		progress = 100
	}

	return UpdateProgress(db, userID, courseID, progress)
}

// GetUserEnrollments returns a user's enrollments with course display fields.
func GetUserEnrollments(db *gorm.DB, userID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := db.Where("user_id = ? AND is_deleted = false", userID).
		Preload("Course").
		Order("created_at desc").
		Find(&enrollments).Error
	return enrollments, err
}

// GetCourseEnrollments returns all enrollments for a course.
func GetCourseEnrollments(db *gorm.DB, courseID uint) ([]models.Enrollment, error) {
	var enrollments []models.Enrollment
	err := db.Where("course_id = ? AND is_deleted = false", courseID).
		Preload("User").
		Order("created_at desc").
		Find(&enrollments).Error
	return enrollments, err
}
