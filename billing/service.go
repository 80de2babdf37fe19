package billing

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/daybeamapp/golfkit/entitlements"
	"github.com/daybeamapp/golfkit/metrics"
)

// DefaultProvider names the billing provider in the event log.
const DefaultProvider = "revenuecat"

// EventLog deduplicates webhook deliveries by provider event id.
type EventLog interface {
	// MarkProcessed records the event and reports whether this delivery
	// was the first one seen for the id.
	MarkProcessed(ctx context.Context, provider, eventID string, eventType EventType) (bool, error)
}

// InsightsTrigger fires the post-purchase side effect. Implementations must
// detach from the caller: the webhook response never waits on the result.
type InsightsTrigger interface {
	TriggerPurchaseInsights(userID string)
}

// Outcome is what the webhook echoes back on success.
type Outcome struct {
	EventType   EventType
	Environment string
	UserID      string
}

// Service applies billing lifecycle events to the permission store.
// Every handler is an upsert keyed on (profile, permission), so replaying an
// event produces the same final record.
type Service struct {
	store              entitlements.Store
	events             EventLog
	trigger            InsightsTrigger
	provider           string
	premiumEntitlement string
	defaultEntitlement string
	log                logrus.FieldLogger
	now                func() time.Time
}

// ServiceConfig wires a Service. EventLog and Trigger are optional: a nil
// EventLog disables replay deduplication, a nil Trigger disables the
// post-purchase side effect.
type ServiceConfig struct {
	Store              entitlements.Store
	EventLog           EventLog
	Trigger            InsightsTrigger
	Provider           string
	PremiumEntitlement string
	DefaultEntitlement string
	Logger             logrus.FieldLogger
	// Now overrides the clock; nil means time.Now.
	Now func() time.Time
}

func NewService(cfg ServiceConfig) *Service {
	provider := cfg.Provider
	if provider == "" {
		provider = DefaultProvider
	}
	log := cfg.Logger
	if log == nil {
		log = logrus.StandardLogger()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		store:              cfg.Store,
		events:             cfg.EventLog,
		trigger:            cfg.Trigger,
		provider:           provider,
		premiumEntitlement: cfg.PremiumEntitlement,
		defaultEntitlement: cfg.DefaultEntitlement,
		log:                log,
		now:                now,
	}
}

// ProcessEvent classifies and applies one lifecycle event. Unknown event
// types are a successful no-op so the sender does not retry them forever.
func (s *Service) ProcessEvent(ctx context.Context, env Envelope) (Outcome, error) {
	ev := env.Event
	out := Outcome{EventType: ev.Type, Environment: ev.Environment, UserID: ev.UserID()}
	log := s.log.WithFields(logrus.Fields{
		"event_type": string(ev.Type),
		"event_id":   ev.ID,
		"user_id":    out.UserID,
	})
	log.Info("processing billing event")

	if s.events != nil && ev.ID != "" {
		first, err := s.events.MarkProcessed(ctx, s.provider, ev.ID, ev.Type)
		if err != nil {
			// Dedup is an optimization; a failure here must not take the
			// webhook down. The handlers below are idempotent regardless.
			log.WithError(err).Warn("event log unavailable, processing without dedup")
		} else if !first {
			log.Info("duplicate delivery, skipping")
			metrics.WebhookEventsTotal.WithLabelValues(string(ev.Type), "duplicate").Inc()
			return out, nil
		}
	}

	var err error
	switch {
	case ev.IsActivation():
		err = s.activate(ctx, ev)
	case ev.Type == EventCancellation:
		err = s.cancel(ctx, ev)
	case ev.Type == EventExpiration:
		err = s.expire(ctx, ev)
	case ev.Type == EventBillingIssue:
		err = s.flagBillingIssue(ctx, ev)
	default:
		log.Info("unhandled event type, acknowledging without changes")
		metrics.WebhookEventsTotal.WithLabelValues(string(ev.Type), "ignored").Inc()
		return out, nil
	}
	if err != nil {
		metrics.WebhookEventsTotal.WithLabelValues(string(ev.Type), "error").Inc()
		return out, err
	}
	metrics.WebhookEventsTotal.WithLabelValues(string(ev.Type), "processed").Inc()
	return out, nil
}

// activate grants or renews access. The read beforehand only decides whether
// this counts as a new activation for the side-effect trigger; the write is
// the same overwrite either way.
func (s *Service) activate(ctx context.Context, ev Event) error {
	profileID := ev.UserID()
	permissionID := ev.EntitlementID(s.defaultEntitlement)

	existing, found, err := s.store.Get(ctx, profileID, permissionID)
	if err != nil {
		return fmt.Errorf("read permission: %w", err)
	}
	newActivation := !found || !existing.Active

	now := s.now().UTC()
	p := entitlements.Permission{
		ProfileID:        profileID,
		PermissionID:     permissionID,
		Active:           true,
		ExpiresAt:        ev.ExpiresAt(),
		ProductID:        ev.ProductID,
		Platform:         entitlements.Platform(ev.Store),
		RevenueCatUserID: ev.AppUserID,
		Metadata: entitlements.Metadata{
			Status:        entitlements.StatusActive,
			TransactionID: ev.TransactionID,
			Environment:   ev.Environment,
			ActivatedAt:   &now,
		},
	}
	if err := s.store.Upsert(ctx, p); err != nil {
		return fmt.Errorf("upsert permission: %w", err)
	}

	if newActivation && s.trigger != nil && permissionID == s.premiumEntitlement {
		s.log.WithField("user_id", profileID).Info("new premium activation, triggering insights")
		s.trigger.TriggerPurchaseInsights(profileID)
	}
	return nil
}

// cancel records the user's intent to stop renewing. Access continues until
// the stored expiry, so the record stays active.
func (s *Service) cancel(ctx context.Context, ev Event) error {
	profileID := ev.UserID()
	permissionID := ev.EntitlementID(s.defaultEntitlement)

	p, found, err := s.store.Get(ctx, profileID, permissionID)
	if err != nil {
		return fmt.Errorf("read permission: %w", err)
	}
	if !found {
		// Cancellation before activation; proceed with what the event has.
		s.log.WithField("user_id", profileID).Warn("cancellation for unknown permission")
		p = entitlements.Permission{ProfileID: profileID, PermissionID: permissionID}
	}
	now := s.now().UTC()
	p.Active = true
	if exp := ev.ExpiresAt(); exp != nil {
		p.ExpiresAt = exp
	}
	p.Metadata.Status = entitlements.StatusCancelled
	p.Metadata.CancelledAt = &now
	if ev.Environment != "" {
		p.Metadata.Environment = ev.Environment
	}
	if err := s.store.Upsert(ctx, p); err != nil {
		return fmt.Errorf("upsert permission: %w", err)
	}
	return nil
}

// expire revokes access. This is the only handler that clears the active flag.
func (s *Service) expire(ctx context.Context, ev Event) error {
	profileID := ev.UserID()
	permissionID := ev.EntitlementID(s.defaultEntitlement)

	p, found, err := s.store.Get(ctx, profileID, permissionID)
	if err != nil {
		return fmt.Errorf("read permission: %w", err)
	}
	if !found {
		p = entitlements.Permission{ProfileID: profileID, PermissionID: permissionID}
	}
	now := s.now().UTC()
	p.Active = false
	p.Metadata.Status = entitlements.StatusExpired
	p.Metadata.ExpiredAt = &now
	if ev.Environment != "" {
		p.Metadata.Environment = ev.Environment
	}
	if err := s.store.Upsert(ctx, p); err != nil {
		return fmt.Errorf("upsert permission: %w", err)
	}
	return nil
}

// flagBillingIssue marks a grace period. Access is retained while the
// provider retries the charge; without an existing record there is nothing
// to flag.
func (s *Service) flagBillingIssue(ctx context.Context, ev Event) error {
	profileID := ev.UserID()
	permissionID := ev.EntitlementID(s.defaultEntitlement)

	p, found, err := s.store.Get(ctx, profileID, permissionID)
	if err != nil {
		return fmt.Errorf("read permission: %w", err)
	}
	if !found {
		s.log.WithField("user_id", profileID).Warn("billing issue for unknown permission, ignoring")
		return nil
	}
	now := s.now().UTC()
	p.Metadata.BillingIssue = true
	p.Metadata.BillingIssueDetectedAt = &now
	if err := s.store.Upsert(ctx, p); err != nil {
		return fmt.Errorf("upsert permission: %w", err)
	}
	return nil
}
