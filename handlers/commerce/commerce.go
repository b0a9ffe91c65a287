package commerce

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnly-api/services/enrollment"
	"github.com/sahilchouksey/learnly-api/services/payment"
	"github.com/sahilchouksey/learnly-api/utils/middleware"
	"github.com/sahilchouksey/learnly-api/utils/response"
)

// CommerceHandler exposes the purchase endpoints: paid checkout, free
// enrollment and the enrollment-status poll. Service errors are translated
// here; buyers never see raw provider or database detail.
type CommerceHandler struct {
	checkout *payment.CheckoutService
	ledger   *enrollment.Ledger
}

// NewCommerceHandler creates a new commerce handler
func NewCommerceHandler(checkout *payment.CheckoutService, ledger *enrollment.Ledger) *CommerceHandler {
	return &CommerceHandler{
		checkout: checkout,
		ledger:   ledger,
	}
}

func parseCourseID(c *fiber.Ctx) (uint, bool) {
	id, err := strconv.ParseUint(c.Params("id"), 10, 32)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// StartCheckout handles POST /api/v1/courses/:id/checkout
func (h *CommerceHandler) StartCheckout(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	courseID, ok := parseCourseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	session, err := h.checkout.StartCheckout(c.Context(), userID, courseID)
	if err != nil {
		switch {
		case errors.Is(err, enrollment.ErrCourseNotFound):
			return response.NotFound(c, "Course not found")
		case errors.Is(err, payment.ErrCourseFree):
			return response.BadRequest(c, "This course is free - enroll directly instead")
		case errors.Is(err, enrollment.ErrAlreadyEnrolled):
			return response.Conflict(c, "You are already enrolled in this course")
		case errors.Is(err, payment.ErrProviderUnavailable):
			log.Printf("checkout: provider failure for user %d course %d: %v", userID, courseID, err)
			return response.ServiceUnavailable(c, "Checkout is temporarily unavailable. Please try again.")
		default:
			log.Printf("checkout: failed for user %d course %d: %v", userID, courseID, err)
			return response.InternalServerError(c, "Failed to start checkout. Please try again.")
		}
	}

	return response.Success(c, session)
}

// ClaimFree handles POST /api/v1/courses/:id/enroll (free courses only)
func (h *CommerceHandler) ClaimFree(c *fiber.Ctx) error {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		return response.Unauthorized(c, "User not authenticated")
	}
	courseID, ok := parseCourseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	res, err := h.ledger.ClaimFree(c.Context(), userID, courseID)
	if err != nil {
		switch {
		case errors.Is(err, enrollment.ErrCourseNotFound):
			return response.NotFound(c, "Course not found")
		case errors.Is(err, enrollment.ErrNotFree):
			return response.BadRequest(c, "This course is paid - use checkout instead")
		default:
			log.Printf("free enroll: failed for user %d course %d: %v", userID, courseID, err)
			return response.InternalServerError(c, "Failed to enroll. Please try again.")
		}
	}

	if res.AlreadyEnrolled {
		return response.SuccessWithMessage(c, "Already enrolled", res.Enrollment)
	}
	return response.Created(c, res.Enrollment)
}

// EnrollmentStatus handles GET /api/v1/courses/:id/enrollment. Anonymous
// callers always get is_enrolled=false with 200 so catalog pages can poll
// it without a session. Enrollment after a checkout redirect is eventually
// consistent: clients poll until the webhook lands.
func (h *CommerceHandler) EnrollmentStatus(c *fiber.Ctx) error {
	courseID, ok := parseCourseID(c)
	if !ok {
		return response.BadRequest(c, "Invalid course ID")
	}

	userID, authenticated := middleware.GetUserID(c)
	if !authenticated {
		return response.Success(c, fiber.Map{"is_enrolled": false})
	}

	enrolled, err := h.ledger.IsEnrolled(c.Context(), userID, courseID)
	if err != nil {
		log.Printf("enrollment status: failed for user %d course %d: %v", userID, courseID, err)
		return response.InternalServerError(c, "Failed to check enrollment")
	}

	return response.Success(c, fiber.Map{"is_enrolled": enrolled})
}
