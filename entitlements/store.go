package entitlements

import (
	"context"
	"time"
)

// Store persists permission records keyed on (profile_id, permission_id).
type Store interface {
	// Get returns the record for the key, reporting whether one exists.
	Get(ctx context.Context, profileID, permissionID string) (Permission, bool, error)
	// Upsert inserts the record or overwrites an existing one for the same key.
	Upsert(ctx context.Context, p Permission) error
	// ListByProfile returns all records for a profile.
	ListByProfile(ctx context.Context, profileID string) ([]Permission, error)
	// ExpireOverdue deactivates records whose expiry has passed and returns
	// how many were flipped.
	ExpireOverdue(ctx context.Context, now time.Time) (int64, error)
}
