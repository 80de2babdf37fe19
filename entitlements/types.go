package entitlements

import "time"

// Status tags the most recent lifecycle transition of a permission.
type Status string

const (
	StatusActive    Status = "active"
	StatusCancelled Status = "cancelled"
	StatusExpired   Status = "expired"
)

// Platform identifies the store a purchase originated from.
type Platform string

const (
	PlatformAppStore    Platform = "app_store"
	PlatformMacAppStore Platform = "mac_app_store"
	PlatformPlayStore   Platform = "play_store"
	PlatformAmazon      Platform = "amazon"
	PlatformStripe      Platform = "stripe"
	PlatformPromotional Platform = "promotional"
)

// Metadata carries the billing-state snapshot attached to a permission.
// Fields are fixed rather than an open map so the lifecycle is checkable.
type Metadata struct {
	Status                 Status     `json:"status,omitempty"`
	TransactionID          string     `json:"transaction_id,omitempty"`
	Environment            string     `json:"environment,omitempty"`
	ActivatedAt            *time.Time `json:"activated_at,omitempty"`
	CancelledAt            *time.Time `json:"cancelled_at,omitempty"`
	ExpiredAt              *time.Time `json:"expired_at,omitempty"`
	BillingIssue           bool       `json:"billing_issue,omitempty"`
	BillingIssueDetectedAt *time.Time `json:"billing_issue_detected_at,omitempty"`
}

// Permission is the single persisted record per (profile, permission) pair.
// Writes are upserts on that pair; no history is kept beyond this snapshot.
type Permission struct {
	ProfileID        string     `json:"profile_id"`
	PermissionID     string     `json:"permission_id"`
	Active           bool       `json:"active"`
	ExpiresAt        *time.Time `json:"expires_at,omitempty"`
	ProductID        string     `json:"product_id,omitempty"`
	Platform         Platform   `json:"platform,omitempty"`
	RevenueCatUserID string     `json:"revenuecat_user_id,omitempty"`
	Metadata         Metadata   `json:"metadata"`
}

// ActiveAt reports whether the permission grants access at the given instant:
// the stored flag must be set and any expiry must still be in the future.
func (p Permission) ActiveAt(now time.Time) bool {
	if !p.Active {
		return false
	}
	if p.ExpiresAt != nil && !p.ExpiresAt.After(now) {
		return false
	}
	return true
}
