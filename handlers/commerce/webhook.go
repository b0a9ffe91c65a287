package commerce

import (
	"errors"
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/sahilchouksey/learnly-api/services/payment"
)

// WebhookHandler is the public endpoint the payment provider posts signed
// notifications to. Response codes drive the provider's behavior: 200
// acknowledges, 400 rejects a bad request for good, and 5xx asks the
// provider to redeliver later - which is safe because fulfillment is
// idempotent.
type WebhookHandler struct {
	processor *payment.WebhookProcessor
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(processor *payment.WebhookProcessor) *WebhookHandler {
	return &WebhookHandler{processor: processor}
}

// Handle handles POST /api/v1/payments/webhook
func (h *WebhookHandler) Handle(c *fiber.Ctx) error {
	payload := c.Body()
	sigHeader := c.Get("Stripe-Signature")

	err := h.processor.HandleEvent(c.Context(), payload, sigHeader)
	if err == nil {
		return c.SendStatus(fiber.StatusOK)
	}

	switch {
	case errors.Is(err, payment.ErrBadSignature):
		return c.SendStatus(fiber.StatusBadRequest)
	case errors.Is(err, payment.ErrMissingMetadata):
		// Non-retryable logic error; already logged loudly by the
		// processor. Non-2xx so provider alerting fires.
		return c.SendStatus(fiber.StatusBadRequest)
	default:
		// Transient processing failure - 5xx triggers provider redelivery
		log.Printf("webhook: processing failed: %v", err)
		return c.SendStatus(fiber.StatusInternalServerError)
	}
}
