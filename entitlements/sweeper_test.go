package entitlements_test

import (
	"context"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/daybeamapp/golfkit/entitlements"
	memorystore "github.com/daybeamapp/golfkit/storage/memory"
)

func TestNewSweeperRejectsBadSpec(t *testing.T) {
	if _, err := entitlements.NewSweeper(memorystore.NewPermissionStore(), "not a cron spec", logrus.New()); err == nil {
		t.Fatal("expected invalid cron spec to fail")
	}
}

func TestSweepDeactivatesOverdue(t *testing.T) {
	store := memorystore.NewPermissionStore()
	past := time.Now().Add(-time.Hour)
	if err := store.Upsert(context.Background(), entitlements.Permission{
		ProfileID:    "u1",
		PermissionID: "product_a",
		Active:       true,
		ExpiresAt:    &past,
	}); err != nil {
		t.Fatal(err)
	}

	s, err := entitlements.NewSweeper(store, "@every 10m", logrus.New())
	if err != nil {
		t.Fatal(err)
	}
	s.Sweep(context.Background())

	p, _, _ := store.Get(context.Background(), "u1", "product_a")
	if p.Active {
		t.Fatal("sweep must deactivate overdue permissions")
	}
	if p.Metadata.Status != entitlements.StatusExpired {
		t.Fatalf("bad status after sweep: %+v", p.Metadata)
	}
}
