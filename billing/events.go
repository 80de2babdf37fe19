package billing

import "time"

// EventType is the raw lifecycle event kind sent by the billing provider.
type EventType string

const (
	EventInitialPurchase     EventType = "INITIAL_PURCHASE"
	EventRenewal             EventType = "RENEWAL"
	EventNonRenewingPurchase EventType = "NON_RENEWING_PURCHASE"
	EventProductChange       EventType = "PRODUCT_CHANGE"
	EventCancellation        EventType = "CANCELLATION"
	EventExpiration          EventType = "EXPIRATION"
	EventBillingIssue        EventType = "BILLING_ISSUE"
)

// Event is the provider's lifecycle event. Only the fields the sync logic
// consumes are modeled; the rest of the payload is ignored.
type Event struct {
	Type              EventType `json:"type"`
	ID                string    `json:"id"`
	AppUserID         string    `json:"app_user_id"`
	OriginalAppUserID string    `json:"original_app_user_id"`
	ProductID         string    `json:"product_id"`
	EntitlementIDs    []string  `json:"entitlement_ids"`
	Environment       string    `json:"environment"`
	ExpirationAtMS    *int64    `json:"expiration_at_ms"`
	TransactionID     string    `json:"transaction_id"`
	Store             string    `json:"store"`
}

// Envelope wraps an event as delivered on the webhook.
type Envelope struct {
	APIVersion string `json:"api_version"`
	Event      Event  `json:"event"`
}

// UserID resolves the stable user identifier, preferring the original
// app user id over any aliased one.
func (e Event) UserID() string {
	if e.OriginalAppUserID != "" {
		return e.OriginalAppUserID
	}
	return e.AppUserID
}

// EntitlementID returns the first entitlement on the event, or fallback
// when the event carries none.
func (e Event) EntitlementID(fallback string) string {
	if len(e.EntitlementIDs) > 0 && e.EntitlementIDs[0] != "" {
		return e.EntitlementIDs[0]
	}
	return fallback
}

// ExpiresAt converts the millisecond expiration timestamp, if present.
func (e Event) ExpiresAt() *time.Time {
	if e.ExpirationAtMS == nil {
		return nil
	}
	t := time.UnixMilli(*e.ExpirationAtMS).UTC()
	return &t
}

// IsActivation reports whether the event grants or renews access.
func (e Event) IsActivation() bool {
	switch e.Type {
	case EventInitialPurchase, EventRenewal, EventNonRenewingPurchase, EventProductChange:
		return true
	}
	return false
}
