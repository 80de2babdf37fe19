package insights

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/daybeamapp/golfkit/metrics"
)

// Trigger fires insight generation on a detached goroutine. The caller's
// request never waits on it and never observes its failure: errors are
// logged, counted, and dropped. Wait exists for shutdown and tests.
type Trigger struct {
	client  *Client
	log     logrus.FieldLogger
	timeout time.Duration
	wg      sync.WaitGroup
}

func NewTrigger(client *Client, timeout time.Duration, log logrus.FieldLogger) *Trigger {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Trigger{client: client, log: log, timeout: timeout}
}

// TriggerPurchaseInsights launches a generation run for the user and returns
// immediately.
func (t *Trigger) TriggerPurchaseInsights(userID string) {
	t.wg.Add(1)
	go func() {
		defer t.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				t.log.WithField("panic", r).Error("insights trigger panicked")
				metrics.InsightsTriggersTotal.WithLabelValues("error").Inc()
			}
		}()
		ctx, cancel := context.WithTimeout(context.Background(), t.timeout)
		defer cancel()
		if err := t.client.Generate(ctx, userID, TriggerPurchaseWebhook); err != nil {
			t.log.WithError(err).WithField("user_id", userID).Warn("insights trigger failed")
			metrics.InsightsTriggersTotal.WithLabelValues("error").Inc()
			return
		}
		t.log.WithField("user_id", userID).Info("insights trigger completed")
		metrics.InsightsTriggersTotal.WithLabelValues("ok").Inc()
	}()
}

// Wait blocks until all in-flight triggers settle.
func (t *Trigger) Wait() { t.wg.Wait() }
