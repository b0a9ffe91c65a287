package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/sahilchouksey/learnly-api/model"
	"github.com/sahilchouksey/learnly-api/services/enrollment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v83"
	"gorm.io/gorm"
)

const testWebhookSecret = "whsec_test_secret"

// signPayload produces a Stripe-Signature header for the given body,
// matching the scheme ConstructEvent verifies: v1 = HMAC-SHA256 of
// "<timestamp>.<payload>" keyed with the signing secret.
func signPayload(payload []byte, secret string) string {
	ts := time.Now().Unix()
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "%d.%s", ts, payload)
	return fmt.Sprintf("t=%d,v1=%s", ts, hex.EncodeToString(mac.Sum(nil)))
}

func checkoutCompletedPayload(t *testing.T, sessionID string, amountTotal int64, metadata map[string]string) []byte {
	t.Helper()

	event := map[string]any{
		"id":          "evt_" + sessionID,
		"object":      "event",
		"api_version": stripe.APIVersion,
		"type":        "checkout.session.completed",
		"data": map[string]any{
			"object": map[string]any{
				"id":           sessionID,
				"amount_total": amountTotal,
				"metadata":     metadata,
			},
		},
	}
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return payload
}

type fakeInvalidator struct {
	slugs []string
}

func (f *fakeInvalidator) InvalidateCourse(_ context.Context, slug string) error {
	f.slugs = append(f.slugs, slug)
	return nil
}

func sessionMetadata(userID, courseID uint) map[string]string {
	return map[string]string{
		"user_id":   fmt.Sprintf("%d", userID),
		"course_id": fmt.Sprintf("%d", courseID),
	}
}

func enrollmentCount(t *testing.T, db *gorm.DB, userID, courseID uint) int64 {
	t.Helper()
	var count int64
	require.NoError(t, db.Model(&model.Enrollment{}).
		Where("user_id = ? AND course_id = ?", userID, courseID).
		Count(&count).Error)
	return count
}

func TestWebhookHandleEvent(t *testing.T) {
	db := setupTestDB(t)
	ledger := enrollment.NewLedger(db)
	ctx := context.Background()

	course := createTestCourse(t, db, "webhook-course", "20.00", model.CourseStatusPublished)
	student := createTestStudent(t, db, "webhook-buyer@example.com")

	t.Run("rejects forged signature without touching state", func(t *testing.T) {
		processor := NewWebhookProcessor(ledger, testWebhookSecret, nil)
		payload := checkoutCompletedPayload(t, "cs_forged", 2000, sessionMetadata(student.ID, course.ID))

		err := processor.HandleEvent(ctx, payload, signPayload(payload, "whsec_wrong_secret"))
		assert.ErrorIs(t, err, ErrBadSignature)
		assert.EqualValues(t, 0, enrollmentCount(t, db, student.ID, course.ID))
	})

	t.Run("fulfills completed session and invalidates cache", func(t *testing.T) {
		cache := &fakeInvalidator{}
		processor := NewWebhookProcessor(ledger, testWebhookSecret, cache)
		payload := checkoutCompletedPayload(t, "cs_happy", 2000, sessionMetadata(student.ID, course.ID))

		err := processor.HandleEvent(ctx, payload, signPayload(payload, testWebhookSecret))
		require.NoError(t, err)

		assert.EqualValues(t, 1, enrollmentCount(t, db, student.ID, course.ID))

		var reloaded model.Course
		require.NoError(t, db.First(&reloaded, course.ID).Error)
		assert.Equal(t, 1, reloaded.EnrollmentCount)
		assert.Equal(t, []string{course.Slug}, cache.slugs)
	})

	t.Run("duplicate delivery is acknowledged without a second grant", func(t *testing.T) {
		cache := &fakeInvalidator{}
		processor := NewWebhookProcessor(ledger, testWebhookSecret, cache)
		payload := checkoutCompletedPayload(t, "cs_happy", 2000, sessionMetadata(student.ID, course.ID))

		err := processor.HandleEvent(ctx, payload, signPayload(payload, testWebhookSecret))
		require.NoError(t, err)

		assert.EqualValues(t, 1, enrollmentCount(t, db, student.ID, course.ID))

		var reloaded model.Course
		require.NoError(t, db.First(&reloaded, course.ID).Error)
		assert.Equal(t, 1, reloaded.EnrollmentCount, "counter must not move on redelivery")
		assert.Empty(t, cache.slugs, "no cache invalidation on a no-op")
	})

	t.Run("amount mismatch is rejected and leaves no enrollment", func(t *testing.T) {
		other := createTestStudent(t, db, "underpayer@example.com")
		processor := NewWebhookProcessor(ledger, testWebhookSecret, nil)
		payload := checkoutCompletedPayload(t, "cs_short", 1500, sessionMetadata(other.ID, course.ID))

		err := processor.HandleEvent(ctx, payload, signPayload(payload, testWebhookSecret))
		assert.ErrorIs(t, err, enrollment.ErrPriceMismatch)
		assert.EqualValues(t, 0, enrollmentCount(t, db, other.ID, course.ID))
	})

	t.Run("missing metadata", func(t *testing.T) {
		processor := NewWebhookProcessor(ledger, testWebhookSecret, nil)
		payload := checkoutCompletedPayload(t, "cs_bare", 2000, map[string]string{"user_id": fmt.Sprintf("%d", student.ID)})

		err := processor.HandleEvent(ctx, payload, signPayload(payload, testWebhookSecret))
		assert.ErrorIs(t, err, ErrMissingMetadata)
	})

	t.Run("unknown course propagates for provider retry", func(t *testing.T) {
		processor := NewWebhookProcessor(ledger, testWebhookSecret, nil)
		payload := checkoutCompletedPayload(t, "cs_ghost", 2000, sessionMetadata(student.ID, 99999))

		err := processor.HandleEvent(ctx, payload, signPayload(payload, testWebhookSecret))
		assert.ErrorIs(t, err, enrollment.ErrCourseNotFound)
	})
}

func TestWebhookIgnoresUnrelatedEvents(t *testing.T) {
	db := setupTestDB(t)
	ledger := enrollment.NewLedger(db)
	processor := NewWebhookProcessor(ledger, testWebhookSecret, nil)

	event := &stripe.Event{
		ID:   "evt_other",
		Type: "invoice.paid",
	}
	err := processor.Process(context.Background(), event)
	assert.NoError(t, err, "unrelated event types must be acknowledged as no-ops")

	var count int64
	require.NoError(t, db.Model(&model.Enrollment{}).Count(&count).Error)
	assert.EqualValues(t, 0, count)
}
