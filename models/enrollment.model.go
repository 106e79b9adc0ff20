package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	EnrollmentActive    = "ACTIVE"
	EnrollmentCompleted = "COMPLETED"
	EnrollmentDropped   = "DROPPED"
)

// Enrollment tracks a user's enrollment in a course with progress.
// The composite unique index is what makes enrollment idempotent: the
// webhook and client-verify paths can both try to insert and exactly
// one of them wins.
type Enrollment struct {
	gorm.Model
	UserID      uint       `json:"user_id" gorm:"not null;uniqueIndex:idx_enrollment_user_course"`
	CourseID    uint       `json:"course_id" gorm:"not null;uniqueIndex:idx_enrollment_user_course"`
	Status      string     `json:"status" gorm:"default:'ACTIVE'"` // ACTIVE, COMPLETED, DROPPED
	Progress    int        `json:"progress" gorm:"default:0"`      // completion percentage (0-100)
	CompletedAt *time.Time `json:"completed_at"`
	IsDeleted   bool       `gorm:"default:false" json:"-"`

	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
}

// LessonProgress marks one lesson as completed by one user.
type LessonProgress struct {
	gorm.Model
	UserID      uint      `json:"user_id" gorm:"not null;uniqueIndex:idx_lesson_progress_user_lesson"`
	LessonID    uint      `json:"lesson_id" gorm:"not null;uniqueIndex:idx_lesson_progress_user_lesson"`
	CourseID    uint      `json:"course_id" gorm:"index;not null"`
	CompletedAt time.Time `json:"completed_at"`
	IsDeleted   bool      `gorm:"default:false" json:"-"`
}
