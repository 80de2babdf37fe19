package entitlements

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Sweeper periodically deactivates permissions whose expiry has passed.
// It exists to reconcile records when an EXPIRATION webhook never arrived;
// the webhook path remains the primary revocation mechanism.
type Sweeper struct {
	store Store
	cron  *cron.Cron
	log   logrus.FieldLogger
}

// NewSweeper schedules a sweep on the given cron spec (e.g. "@every 10m").
func NewSweeper(store Store, spec string, log logrus.FieldLogger) (*Sweeper, error) {
	s := &Sweeper{store: store, cron: cron.New(), log: log}
	if _, err := s.cron.AddFunc(spec, func() { s.Sweep(context.Background()) }); err != nil {
		return nil, err
	}
	return s, nil
}

// Sweep runs one reconciliation pass.
func (s *Sweeper) Sweep(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	n, err := s.store.ExpireOverdue(ctx, time.Now())
	if err != nil {
		s.log.WithError(err).Error("expiry sweep failed")
		return
	}
	if n > 0 {
		s.log.WithField("expired", n).Info("expiry sweep deactivated overdue permissions")
	}
}

func (s *Sweeper) Start() { s.cron.Start() }

// Stop halts scheduling; a running sweep finishes on its own.
func (s *Sweeper) Stop() { s.cron.Stop() }
