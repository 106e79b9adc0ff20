package models

import "gorm.io/gorm"

type Review struct {
	gorm.Model
	UserID    uint   `gorm:"not null;uniqueIndex:idx_review_user_course" json:"user_id"`
	CourseID  uint   `gorm:"not null;uniqueIndex:idx_review_user_course" json:"course_id"`
	Rating    int    `gorm:"not null;check:rating >= 1 AND rating <= 5" json:"rating"` // 1 to 5
	Comment   string `gorm:"type:text;default:''" json:"comment"`
	IsDeleted bool   `gorm:"default:false" json:"-"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}
