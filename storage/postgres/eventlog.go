package pgstore

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/daybeamapp/golfkit/billing"
)

// EventLog records processed webhook event ids so replayed deliveries can be
// acknowledged without re-applying their writes. The unique key on
// (provider, event_id) makes the insert the dedup check.
type EventLog struct {
	pg     *pgxpool.Pool
	schema string
}

func NewEventLog(pg *pgxpool.Pool, schema string) *EventLog {
	s := strings.TrimSpace(schema)
	if s == "" {
		s = "public"
	}
	return &EventLog{pg: pg, schema: s}
}

func (l *EventLog) table() string { return l.schema + ".billing_webhook_events" }

func (l *EventLog) MarkProcessed(ctx context.Context, provider, eventID string, eventType billing.EventType) (bool, error) {
	tag, err := l.pg.Exec(ctx,
		`INSERT INTO `+l.table()+` (provider, event_id, event_type, processed_at)
		 VALUES ($1, $2, $3, NOW())
		 ON CONFLICT (provider, event_id) DO NOTHING`,
		provider, eventID, string(eventType),
	)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}
