package enrollment

import (
	"context"
	"errors"
	"fmt"

	"github.com/sahilchouksey/learnly-api/model"
	"github.com/sahilchouksey/learnly-api/utils/pricing"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrCourseNotFound means the course does not exist (or was deleted)
	ErrCourseNotFound = errors.New("course not found")
	// ErrPriceMismatch means the charged amount disagrees with the catalog
	// price. This is an integrity failure: it indicates a stale checkout
	// session or a tampered request, and must never be retried into success.
	ErrPriceMismatch = errors.New("charged amount does not match course price")
	// ErrNotFree means the free-enrollment path was used for a paid course
	ErrNotFree = errors.New("course is not free")
	// ErrAlreadyEnrolled is raised by purchasability checks; Grant itself
	// treats an existing enrollment as an idempotent success, not an error
	ErrAlreadyEnrolled = errors.New("user is already enrolled in this course")
	// ErrInvalidStatus means an unknown publication status was requested
	ErrInvalidStatus = errors.New("invalid publication status")
)

// Ledger is the single authority over enrollment state. Every purchase path
// (paid checkout fulfillment, free claim) funnels into Grant, and the two
// denormalized counters (course enrollment_count, instructor courses_count)
// are only ever touched inside its transactions.
type Ledger struct {
	db *gorm.DB
}

// NewLedger creates a new enrollment ledger
func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// GrantResult reports what Grant did
type GrantResult struct {
	Enrollment model.Enrollment
	Course     model.Course
	// AlreadyEnrolled is true when the enrollment predates this call and
	// Grant was a no-op. Duplicate webhook deliveries land here.
	AlreadyEnrolled bool
}

// Grant records an enrollment for (userID, courseID) exactly once.
//
// The whole operation runs in one transaction: the course is re-fetched, the
// charged amount is checked against the authoritative price, the enrollment
// row is inserted and enrollment_count incremented atomically. An existing
// row for the pair - whether found up front or hit through the composite-key
// conflict under concurrency - is an idempotent success. Nothing partially
// applies: any failure rolls the transaction back.
func (l *Ledger) Grant(ctx context.Context, userID, courseID uint, amount string) (*GrantResult, error) {
	var res *GrantResult

	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var course model.Course
		if err := tx.First(&course, courseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCourseNotFound
			}
			return fmt.Errorf("failed to load course: %w", err)
		}

		equal, err := pricing.Equal(course.Price, amount)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrPriceMismatch, err)
		}
		if !equal {
			return fmt.Errorf("%w: course %d priced %q, charged %q",
				ErrPriceMismatch, courseID, course.Price, amount)
		}

		var existing model.Enrollment
		err = tx.Where("user_id = ? AND course_id = ?", userID, courseID).
			First(&existing).Error
		if err == nil {
			res = &GrantResult{Enrollment: existing, Course: course, AlreadyEnrolled: true}
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to check existing enrollment: %w", err)
		}

		enr := model.Enrollment{
			UserID:     userID,
			CourseID:   courseID,
			AmountPaid: amount,
		}
		result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&enr)
		if result.Error != nil {
			return fmt.Errorf("failed to insert enrollment: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			// Lost the race to a concurrent grant for the same pair; the
			// winner already bumped the counter.
			if err := tx.Where("user_id = ? AND course_id = ?", userID, courseID).
				First(&existing).Error; err != nil {
				return fmt.Errorf("failed to load concurrent enrollment: %w", err)
			}
			res = &GrantResult{Enrollment: existing, Course: course, AlreadyEnrolled: true}
			return nil
		}

		if err := tx.Model(&model.Course{}).Where("id = ?", courseID).
			UpdateColumn("enrollment_count", gorm.Expr("enrollment_count + 1")).Error; err != nil {
			return fmt.Errorf("failed to increment enrollment count: %w", err)
		}
		course.EnrollmentCount++

		res = &GrantResult{Enrollment: enr, Course: course}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// ClaimFree grants an enrollment for a zero-priced course without any
// payment provider round-trip
func (l *Ledger) ClaimFree(ctx context.Context, userID, courseID uint) (*GrantResult, error) {
	var course model.Course
	if err := l.db.WithContext(ctx).First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to load course: %w", err)
	}

	free, err := pricing.IsFree(course.Price)
	if err != nil {
		return nil, fmt.Errorf("course %d has malformed price %q: %w", courseID, course.Price, err)
	}
	if !free {
		return nil, ErrNotFree
	}

	return l.Grant(ctx, userID, courseID, "0")
}

// IsEnrolled reports whether an enrollment exists for (userID, courseID)
func (l *Ledger) IsEnrolled(ctx context.Context, userID, courseID uint) (bool, error) {
	var count int64
	err := l.db.WithContext(ctx).Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check enrollment: %w", err)
	}
	return count > 0, nil
}

// SetPublicationStatus transitions a course between draft/published/archived
// and keeps the instructor's published-course counter in step.
//
// The counter moves by +-1 in the same transaction as the status flip, never
// by recounting, so it cannot race with concurrent enrollment writes.
func (l *Ledger) SetPublicationStatus(ctx context.Context, courseID uint, status string) (*model.Course, error) {
	switch status {
	case model.CourseStatusDraft, model.CourseStatusPublished, model.CourseStatusArchived:
	default:
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	var course model.Course
	err := l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&course, courseID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrCourseNotFound
			}
			return fmt.Errorf("failed to load course: %w", err)
		}

		if course.Status == status {
			return nil
		}

		delta := 0
		if status == model.CourseStatusPublished {
			delta = 1
		} else if course.Status == model.CourseStatusPublished {
			delta = -1
		}

		if err := tx.Model(&model.Course{}).Where("id = ?", courseID).
			UpdateColumn("status", status).Error; err != nil {
			return fmt.Errorf("failed to update course status: %w", err)
		}
		course.Status = status

		if delta != 0 {
			if err := tx.Model(&model.Instructor{}).Where("id = ?", course.InstructorID).
				UpdateColumn("courses_count", gorm.Expr("courses_count + ?", delta)).Error; err != nil {
				return fmt.Errorf("failed to adjust instructor course count: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &course, nil
}
