package model

import (
	"time"

	"gorm.io/gorm"
)

// Course publication statuses
const (
	CourseStatusDraft     = "draft"
	CourseStatusPublished = "published"
	CourseStatusArchived  = "archived"
)

// Course represents a sellable course in the catalog.
//
// Price is a decimal string ("0" means free) and is authoritative: every
// payment notification is checked against it before an enrollment is granted.
// EnrollmentCount is denormalized and only incremented inside the same
// transaction that inserts the Enrollment row.
type Course struct {
	ID              uint           `gorm:"primaryKey" json:"id"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
	InstructorID    uint           `gorm:"not null;index" json:"instructor_id"`
	Slug            string         `gorm:"uniqueIndex;not null" json:"slug"`
	Title           string         `gorm:"not null" json:"title"`
	Description     string         `gorm:"type:text" json:"description"`
	Price           string         `gorm:"type:varchar(20);not null;default:'0'" json:"price"`
	Status          string         `gorm:"type:varchar(20);not null;default:'draft'" json:"status"` // draft, published, archived
	EnrollmentCount int            `gorm:"not null;default:0" json:"enrollment_count"`

	// Relationships
	Instructor  Instructor   `gorm:"foreignKey:InstructorID;constraint:OnDelete:CASCADE" json:"instructor,omitempty"`
	Lectures    []Lecture    `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"lectures,omitempty"`
	Enrollments []Enrollment `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"-"`
}

// IsPublished reports whether the course is visible in the catalog
func (c *Course) IsPublished() bool {
	return c.Status == CourseStatusPublished
}

// Lecture represents a single piece of playable content within a course.
// VideoKey is the storage object key of the uploaded video; an empty key
// means no video has been attached yet. FreePreview lectures are playable
// without an enrollment.
type Lecture struct {
	ID          uint           `gorm:"primaryKey" json:"id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`
	CourseID    uint           `gorm:"not null;index" json:"course_id"`
	Title       string         `gorm:"not null" json:"title"`
	Position    int            `gorm:"not null;default:0" json:"position"`
	FreePreview bool           `gorm:"not null;default:false" json:"free_preview"`
	VideoKey    string         `gorm:"type:varchar(512)" json:"-"`

	// Relationships
	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
}
