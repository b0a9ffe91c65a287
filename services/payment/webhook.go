package payment

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strconv"

	"github.com/sahilchouksey/learnly-api/services/enrollment"
	"github.com/sahilchouksey/learnly-api/utils/pricing"
	"github.com/stripe/stripe-go/v83"
)

var (
	// ErrBadSignature means the notification did not verify against the
	// webhook signing secret. It is terminal: nothing is processed and the
	// provider gets a client error.
	ErrBadSignature = errors.New("webhook signature verification failed")
	// ErrMissingMetadata means the completed session lacks user_id or
	// course_id. The session was created incorrectly; retrying cannot fix
	// it, but the error status still propagates so provider alerting fires.
	ErrMissingMetadata = errors.New("checkout session missing purchase metadata")
)

// CacheInvalidator is the revalidation signal for course listing views.
// Satisfied by the redis cache wrapper; may be nil.
type CacheInvalidator interface {
	InvalidateCourse(ctx context.Context, slug string) error
}

// WebhookProcessor turns asynchronous payment-completion notifications into
// enrollments. Delivery is at-least-once and unordered; the processor never
// retries internally - it reports failure upstream and relies on the
// provider's retry schedule, which is safe because the ledger grant is
// idempotent.
type WebhookProcessor struct {
	ledger *enrollment.Ledger
	secret string
	cache  CacheInvalidator
}

// NewWebhookProcessor creates a processor bound to the webhook signing secret
func NewWebhookProcessor(ledger *enrollment.Ledger, secret string, cache CacheInvalidator) *WebhookProcessor {
	return &WebhookProcessor{
		ledger: ledger,
		secret: secret,
		cache:  cache,
	}
}

// HandleEvent verifies the raw notification and processes it
func (p *WebhookProcessor) HandleEvent(ctx context.Context, payload []byte, sigHeader string) error {
	event, err := stripe.ConstructEvent(payload, sigHeader, p.secret)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBadSignature, err)
	}
	return p.Process(ctx, &event)
}

// Process dispatches a verified event. Only checkout completion fulfills;
// every other event type is acknowledged without side effects so unrelated
// provider traffic can never fall through into fulfillment.
func (p *WebhookProcessor) Process(ctx context.Context, event *stripe.Event) error {
	switch event.Type {
	case "checkout.session.completed":
		return p.fulfill(ctx, event)
	default:
		log.Printf("webhook: ignoring event type %s", event.Type)
		return nil
	}
}

func (p *WebhookProcessor) fulfill(ctx context.Context, event *stripe.Event) error {
	var session stripe.CheckoutSession
	if err := json.Unmarshal(event.Data.Raw, &session); err != nil {
		return fmt.Errorf("failed to unmarshal checkout session: %w", err)
	}

	userID, uidErr := parseIDField(session.Metadata, "user_id")
	courseID, cidErr := parseIDField(session.Metadata, "course_id")
	if uidErr != nil || cidErr != nil {
		log.Printf("webhook: INTEGRITY: session %s missing/invalid metadata (user_id err=%v, course_id err=%v)",
			session.ID, uidErr, cidErr)
		return fmt.Errorf("%w: session %s", ErrMissingMetadata, session.ID)
	}

	amount := pricing.FromMinorUnits(session.AmountTotal)

	res, err := p.ledger.Grant(ctx, userID, courseID, amount)
	if err != nil {
		if errors.Is(err, enrollment.ErrPriceMismatch) {
			log.Printf("webhook: INTEGRITY: session %s rejected: %v", session.ID, err)
		}
		return err
	}

	if res.AlreadyEnrolled {
		// Duplicate delivery; the first one already did the work.
		log.Printf("webhook: session %s redelivered for user %d course %d, no-op", session.ID, userID, courseID)
		return nil
	}

	log.Printf("webhook: fulfilled session %s: user %d enrolled in course %d for %s",
		session.ID, userID, courseID, amount)

	if p.cache != nil {
		if err := p.cache.InvalidateCourse(ctx, res.Course.Slug); err != nil {
			// Enrollment is durable; stale cache entries expire on their own.
			log.Printf("webhook: cache invalidation failed for course %s: %v", res.Course.Slug, err)
		}
	}
	return nil
}

func parseIDField(metadata map[string]string, key string) (uint, error) {
	raw, ok := metadata[key]
	if !ok || raw == "" {
		return 0, fmt.Errorf("missing %s", key)
	}
	id, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", key, raw)
	}
	return uint(id), nil
}
