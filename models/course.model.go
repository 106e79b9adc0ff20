package models

import "gorm.io/gorm"

// Course represents a learning course in the catalog
type Course struct {
	gorm.Model
	Title         string  `json:"title"`
	Description   string  `json:"description" gorm:"type:text"`
	InstructorID  uint    `json:"instructor_id" gorm:"index;not null"`
	Price         string  `json:"price" gorm:"type:varchar(20);default:'0.00'"` // decimal string, "0.00" = free
	Currency      string  `json:"currency" gorm:"type:varchar(10);default:'NGN'"`
	Duration      int64   `json:"duration" gorm:"default:0"`     // duration in hours
	Status        string  `json:"status" gorm:"default:'DRAFT'"` // DRAFT, ACTIVE, INACTIVE
	StudentsCount uint    `json:"students_count" gorm:"default:0"`
	Rating        float64 `json:"rating" gorm:"default:0"` // denormalized average of reviews
	RatingCount   uint    `json:"rating_count" gorm:"default:0"`
	ThumbnailURL  string  `json:"thumbnail_url"`
	IsPublished   bool    `json:"is_published" gorm:"default:false"`
	IsDeleted     bool    `gorm:"default:false" json:"-"`

	Instructor User `gorm:"foreignKey:InstructorID" json:"-"`
}

// Lesson is a single unit of course content; enrollment progress is
// derived from how many of these the student has completed.
type Lesson struct {
	gorm.Model
	CourseID   uint   `json:"course_id" gorm:"index;not null"`
	Title      string `json:"title"`
	VideoURL   string `json:"video_url"`
	Duration   int64  `json:"duration" gorm:"default:0"` // minutes
	OrderIndex int    `json:"order_index" gorm:"default:0"`
	IsDeleted  bool   `gorm:"default:false" json:"-"`
}
