package model

import (
	"time"
)

// Enrollment grants a user access to a course's paid content.
//
// The composite primary key on (user_id, course_id) is the correctness
// anchor of the commerce subsystem: at most one row per pair can ever
// exist, no matter how many times the payment provider redelivers a
// completion notification. Rows are created only by the enrollment
// ledger, never updated, and never deleted in normal flow.
type Enrollment struct {
	UserID     uint      `gorm:"primaryKey;autoIncrement:false" json:"user_id"`
	CourseID   uint      `gorm:"primaryKey;autoIncrement:false" json:"course_id"`
	AmountPaid string    `gorm:"type:varchar(20);not null;default:'0'" json:"amount_paid"`
	CreatedAt  time.Time `json:"created_at"`

	// Relationships
	User   User   `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE" json:"-"`
	Course Course `gorm:"foreignKey:CourseID;constraint:OnDelete:CASCADE" json:"course,omitempty"`
}

// TableName specifies the table name for Enrollment
func (Enrollment) TableName() string {
	return "enrollments"
}
