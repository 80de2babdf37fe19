package memorystore

import (
	"context"
	"sync"
	"time"

	"github.com/daybeamapp/golfkit/entitlements"
)

// PermissionStore is an in-memory entitlements.Store for tests and local
// development. Not suitable for multi-process deployments.
type PermissionStore struct {
	mu   sync.Mutex
	data map[permKey]entitlements.Permission
}

type permKey struct {
	profileID    string
	permissionID string
}

func NewPermissionStore() *PermissionStore {
	return &PermissionStore{data: make(map[permKey]entitlements.Permission)}
}

func (s *PermissionStore) Get(ctx context.Context, profileID, permissionID string) (entitlements.Permission, bool, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.data[permKey{profileID, permissionID}]
	return p, ok, nil
}

func (s *PermissionStore) Upsert(ctx context.Context, p entitlements.Permission) error {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[permKey{p.ProfileID, p.PermissionID}] = p
	return nil
}

func (s *PermissionStore) ListByProfile(ctx context.Context, profileID string) ([]entitlements.Permission, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []entitlements.Permission
	for k, p := range s.data {
		if k.profileID == profileID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (s *PermissionStore) ExpireOverdue(ctx context.Context, now time.Time) (int64, error) {
	_ = ctx
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	ts := now.UTC()
	for k, p := range s.data {
		if p.Active && p.ExpiresAt != nil && !p.ExpiresAt.After(now) {
			p.Active = false
			p.Metadata.Status = entitlements.StatusExpired
			p.Metadata.ExpiredAt = &ts
			s.data[k] = p
			n++
		}
	}
	return n, nil
}
