package billing

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Jashneer/HireIQ/internal/config"
	"github.com/Jashneer/HireIQ/internal/logging"
	"github.com/Jashneer/HireIQ/pkg/models"
)

// Provider event types we act on. Anything else is acknowledged and
// ignored so the provider does not retry.
const (
	EventCheckoutCompleted   = "checkout.session.completed"
	EventSubscriptionUpdated = "customer.subscription.updated"
	EventSubscriptionDeleted = "customer.subscription.deleted"
)

// ErrInvalidSignature is returned when the webhook signature does not
// match the payload.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// EventPublisher hands normalized entitlement changes to the queue.
type EventPublisher interface {
	PublishEntitlementChange(ctx context.Context, event *models.EntitlementChangeEvent) error
}

// providerEvent is the raw webhook envelope from the payment provider.
type providerEvent struct {
	Type string `json:"type"`
	Data struct {
		UserID     string `json:"user_id"`
		CustomerID string `json:"customer_id"`
		Email      string `json:"email"`
		PriceID    string `json:"price_id"`
		Status     string `json:"status"`
	} `json:"data"`
}

// Service verifies provider webhooks and turns them into entitlement
// change events on the queue.
type Service struct {
	secret     string
	pricePlans map[string]string
	publisher  EventPublisher
	logger     *logging.Logger
}

// NewService creates a billing webhook service.
func NewService(cfg config.BillingConfig, publisher EventPublisher, logger *logging.Logger) *Service {
	return &Service{
		secret:     cfg.WebhookSecret,
		pricePlans: cfg.PricePlans,
		publisher:  publisher,
		logger:     logger,
	}
}

// VerifySignature checks the HMAC-SHA256 signature of a webhook payload.
// The expected format is "sha256=<hex digest>".
func (s *Service) VerifySignature(payload []byte, signature string) error {
	h := hmac.New(sha256.New, []byte(s.secret))
	h.Write(payload)
	expected := "sha256=" + hex.EncodeToString(h.Sum(nil))

	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return ErrInvalidSignature
	}
	return nil
}

// HandleEvent verifies and normalizes a webhook payload, publishing the
// resulting entitlement change. Unrecognized event types are dropped
// without error.
func (s *Service) HandleEvent(ctx context.Context, payload []byte, signature string) error {
	if err := s.VerifySignature(payload, signature); err != nil {
		return err
	}

	var raw providerEvent
	if err := json.Unmarshal(payload, &raw); err != nil {
		return fmt.Errorf("failed to decode webhook payload: %w", err)
	}

	event := s.normalize(&raw)
	if event == nil {
		s.logger.WithField("event_type", raw.Type).Debug("Ignoring webhook event")
		return nil
	}

	if err := s.publisher.PublishEntitlementChange(ctx, event); err != nil {
		return fmt.Errorf("failed to publish entitlement change: %w", err)
	}

	s.logger.WithField("event_type", raw.Type).WithField("plan", event.Plan).Info("Entitlement change queued")
	return nil
}

// normalize maps a provider event onto an entitlement change, or nil for
// event types we do not act on.
func (s *Service) normalize(raw *providerEvent) *models.EntitlementChangeEvent {
	switch raw.Type {
	case EventCheckoutCompleted, EventSubscriptionUpdated:
		return &models.EntitlementChangeEvent{
			UserID:     raw.Data.UserID,
			CustomerID: raw.Data.CustomerID,
			Email:      raw.Data.Email,
			Plan:       s.planForPrice(raw.Data.PriceID),
			Status:     normalizeStatus(raw.Data.Status),
		}
	case EventSubscriptionDeleted:
		// A deleted subscription always lands back on the free plan.
		return &models.EntitlementChangeEvent{
			UserID:     raw.Data.UserID,
			CustomerID: raw.Data.CustomerID,
			Email:      raw.Data.Email,
			Plan:       models.PlanFree,
			Status:     models.SubscriptionCancelled,
		}
	default:
		return nil
	}
}

// planForPrice resolves a provider price identifier to a plan name,
// falling back to free for anything unknown.
func (s *Service) planForPrice(priceID string) string {
	if plan, ok := s.pricePlans[priceID]; ok {
		return plan
	}
	return models.PlanFree
}

func normalizeStatus(status string) string {
	switch status {
	case "active", "trialing":
		return models.SubscriptionActive
	case "canceled", "cancelled":
		return models.SubscriptionCancelled
	case "":
		return models.SubscriptionActive
	default:
		return models.SubscriptionInactive
	}
}
