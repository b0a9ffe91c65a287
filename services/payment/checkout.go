package payment

import (
	"context"
	"errors"
	"fmt"

	"github.com/sahilchouksey/learnly-api/model"
	"github.com/sahilchouksey/learnly-api/services/enrollment"
	"github.com/sahilchouksey/learnly-api/utils/pricing"
	"gorm.io/gorm"
)

var (
	// ErrCourseFree means checkout was requested for a zero-priced course;
	// the client should use the free-enrollment path instead
	ErrCourseFree = errors.New("course is free, use the free enrollment path")
	// ErrProviderUnavailable wraps provider/network failures; the caller
	// may retry
	ErrProviderUnavailable = errors.New("payment provider unavailable")
)

// CheckoutService validates that a course is purchasable by a user and asks
// the payment provider to mint a checkout session. No local state is
// mutated: the enrollment is only created later, when the provider's
// completion webhook arrives.
type CheckoutService struct {
	db      *gorm.DB
	ledger  *enrollment.Ledger
	gateway Gateway
	baseURL string
}

// NewCheckoutService creates a new checkout service
func NewCheckoutService(db *gorm.DB, ledger *enrollment.Ledger, gateway Gateway, baseURL string) *CheckoutService {
	return &CheckoutService{
		db:      db,
		ledger:  ledger,
		gateway: gateway,
		baseURL: baseURL,
	}
}

// StartCheckout validates purchasability and returns a provider session the
// buyer can be redirected to.
func (s *CheckoutService) StartCheckout(ctx context.Context, userID, courseID uint) (*CheckoutSession, error) {
	var course model.Course
	if err := s.db.WithContext(ctx).First(&course, courseID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, enrollment.ErrCourseNotFound
		}
		return nil, fmt.Errorf("failed to load course: %w", err)
	}

	// Unpublished courses are not purchasable and not acknowledged to exist
	if !course.IsPublished() {
		return nil, enrollment.ErrCourseNotFound
	}

	free, err := pricing.IsFree(course.Price)
	if err != nil {
		return nil, fmt.Errorf("course %d has malformed price %q: %w", courseID, course.Price, err)
	}
	if free {
		return nil, ErrCourseFree
	}

	// Soft idempotency check so a returning buyer is never double-charged.
	// The hard exactly-once guarantee still lives in the ledger.
	enrolled, err := s.ledger.IsEnrolled(ctx, userID, courseID)
	if err != nil {
		return nil, err
	}
	if enrolled {
		return nil, enrollment.ErrAlreadyEnrolled
	}

	amountMinor, err := pricing.ToMinorUnits(course.Price)
	if err != nil {
		return nil, fmt.Errorf("course %d has malformed price %q: %w", courseID, course.Price, err)
	}

	session, err := s.gateway.CreateCheckoutSession(ctx, CheckoutParams{
		UserID:      userID,
		CourseID:    courseID,
		CourseTitle: course.Title,
		AmountMinor: amountMinor,
		SuccessURL:  fmt.Sprintf("%s/courses/%s?checkout=success", s.baseURL, course.Slug),
		CancelURL:   fmt.Sprintf("%s/courses/%s?checkout=cancelled", s.baseURL, course.Slug),
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderUnavailable, err)
	}

	return session, nil
}
