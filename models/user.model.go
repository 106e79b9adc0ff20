package models

import (
	"time"

	"gorm.io/gorm"
)

const (
	RoleStudent    = "STUDENT"
	RoleInstructor = "INSTRUCTOR"
	RoleAdmin      = "ADMIN"
)

type User struct {
	gorm.Model
	ProfileImage    string    `gorm:"default:''" json:"profileImage"`
	Name            string    `gorm:"default:''" json:"name"`
	Email           string    `gorm:"unique;not null" json:"email"`
	Mobile          string    `gorm:"default:''" json:"mobile"`
	Role            string    `gorm:"default:'STUDENT'" json:"role"` // STUDENT, INSTRUCTOR, ADMIN
	Password        string    `gorm:"not null" json:"-"`
	Bio             string    `gorm:"type:text;default:''" json:"bio"`
	IsEmailVerified bool      `gorm:"default:false" json:"isEmailVerified"`
	LastLogin       time.Time `gorm:"default:NULL" json:"lastLogin"`
	IsDeleted       bool      `gorm:"default:false" json:"-"`
}
