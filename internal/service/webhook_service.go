package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/karimjaber/finsync-service/internal/idempotency"
	"github.com/karimjaber/finsync-service/internal/model"
	"github.com/karimjaber/finsync-service/internal/repo"
	"github.com/karimjaber/finsync-service/internal/signature"
	"go.uber.org/zap"
)

// ErrInvalidSignature means the webhook payload failed HMAC verification.
// The HTTP layer must answer with a generic rejection; the concrete reason
// stays in the logs.
var ErrInvalidSignature = errors.New("invalid webhook signature")

// ErrMalformedEvent means the payload verified but is not a usable envelope.
var ErrMalformedEvent = errors.New("malformed webhook event")

// eventEnvelope is the generic shape every provider event shares.
type eventEnvelope struct {
	EventID   string          `json:"event_id"`
	EventType string          `json:"event_type"`
	Data      json.RawMessage `json:"data"`
}

// subscriptionData is the payload of subscription lifecycle events.
type subscriptionData struct {
	UserID           uint64     `json:"user_id"`
	SubscriptionID   string     `json:"subscription_id"`
	Tier             string     `json:"tier"`
	Status           string     `json:"status"`
	CurrentPeriodEnd *time.Time `json:"current_period_end"`
}

// ProcessResult tells the transport layer what happened to a delivery.
type ProcessResult struct {
	EventID   string
	EventType string
	Duplicate bool
}

// WebhookService runs the full inbound webhook protocol: verify the
// signature, short-circuit duplicates, apply the event, mark it processed.
type WebhookService struct {
	secret  string
	alg     signature.Algorithm
	tracker *idempotency.Tracker
	repo    repo.RepositoryInterface
	log     *zap.SugaredLogger
}

// NewWebhookService returns WebhookService.
func NewWebhookService(secret string, alg signature.Algorithm, tracker *idempotency.Tracker, r repo.RepositoryInterface, logger *zap.SugaredLogger) *WebhookService {
	return &WebhookService{secret: secret, alg: alg, tracker: tracker, repo: r, log: logger}
}

// Process handles one delivery. payload must be the raw request body exactly
// as received; re-encoding it would break the signature. A duplicate
// delivery returns Duplicate=true with no handler run, so the provider gets
// its ack and stops retrying. The event is only marked processed after the
// handler succeeds; a handler error leaves it unmarked for the next retry.
func (s *WebhookService) Process(ctx context.Context, payload []byte, sig string) (ProcessResult, error) {
	res := signature.Verify(string(payload), sig, s.secret, s.alg)
	if !res.Verified {
		s.log.Warnf("webhook rejected: %s", res.Reason)
		return ProcessResult{}, ErrInvalidSignature
	}

	var env eventEnvelope
	if err := json.Unmarshal(payload, &env); err != nil {
		return ProcessResult{}, ErrMalformedEvent
	}
	if env.EventID == "" || env.EventType == "" {
		return ProcessResult{}, ErrMalformedEvent
	}

	out := ProcessResult{EventID: env.EventID, EventType: env.EventType}
	if s.tracker.HasBeenProcessed(ctx, env.EventID) {
		out.Duplicate = true
		return out, nil
	}

	if err := s.apply(ctx, env); err != nil {
		return out, err
	}

	s.tracker.MarkProcessed(ctx, env.EventID, env.EventType, map[string]interface{}{
		"bytes": len(payload),
	})
	return out, nil
}

// apply dispatches the event to business logic. Handlers must tolerate a
// second concurrent run for the same event: the tracker narrows the
// duplicate window, the upserts below close it.
func (s *WebhookService) apply(ctx context.Context, env eventEnvelope) error {
	switch env.EventType {
	case "subscription.created", "subscription.updated", "subscription.renewed", "subscription.canceled":
		return s.applySubscription(ctx, env)
	default:
		// Unknown types are acknowledged so the provider does not retry
		// events this service never handles.
		s.log.Infof("ignoring unhandled event type %s (id=%s)", env.EventType, env.EventID)
		return nil
	}
}

func (s *WebhookService) applySubscription(ctx context.Context, env eventEnvelope) error {
	var data subscriptionData
	if err := json.Unmarshal(env.Data, &data); err != nil {
		return ErrMalformedEvent
	}
	if data.UserID == 0 || data.SubscriptionID == "" {
		return ErrMalformedEvent
	}

	status := data.Status
	if env.EventType == "subscription.canceled" && status == "" {
		status = "canceled"
	}
	tier := data.Tier
	if tier == "" {
		tier = "free"
	}

	sub := &model.Subscription{
		UserID:                 data.UserID,
		ProviderSubscriptionID: data.SubscriptionID,
		Tier:                   tier,
		Status:                 status,
		CurrentPeriodEnd:       data.CurrentPeriodEnd,
	}
	return s.repo.UpsertSubscription(ctx, sub)
}
