package model

import (
	"time"

	"gorm.io/gorm"
)

// User represents a registered user in the system
type User struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	Email        string         `gorm:"uniqueIndex;not null" json:"email"`
	PasswordHash string         `gorm:"not null" json:"-"` // Never expose password in JSON
	Name         string         `gorm:"not null" json:"name"`
	Role         string         `gorm:"type:varchar(20);default:'student'" json:"role"` // student, instructor, admin

	// Relationships
	Enrollments []Enrollment `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
}

// Instructor holds the public teaching profile for a user.
// CoursesCount is denormalized: it counts that instructor's *published*
// courses and is only ever adjusted by +-1 inside the same transaction that
// flips a course's publication status.
type Instructor struct {
	ID           uint           `gorm:"primaryKey" json:"id"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
	UserID       uint           `gorm:"uniqueIndex;not null" json:"user_id"`
	Headline     string         `gorm:"type:varchar(255)" json:"headline"`
	Bio          string         `gorm:"type:text" json:"bio"`
	CoursesCount int            `gorm:"not null;default:0" json:"courses_count"`

	// Relationships
	User    User     `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"user,omitempty"`
	Courses []Course `gorm:"foreignKey:InstructorID;constraint:OnDelete:CASCADE" json:"courses,omitempty"`
}

// TableName specifies the table name for Instructor
func (Instructor) TableName() string {
	return "instructors"
}
