// Package audit persists lifecycle events consumed from Kafka into lifecycle_events.
package audit

import (
	"context"
	"strconv"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	kafkago "github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"

	kafkax "github.com/ariefcatur/game-topup-api/internal/kafka"
	"github.com/ariefcatur/game-topup-api/internal/lifecycle"
	"github.com/ariefcatur/game-topup-api/internal/postgres"
)

type Recorder struct {
	DB  postgres.DB
	Log log.FieldLogger
}

// HandleMessage is installed as the consumer handler. Malformed messages are
// logged and acknowledged so they do not block the partition; database errors
// are returned so the offset is not committed.
func (s *Recorder) HandleMessage(ctx context.Context, m kafkago.Message) error {
	env, err := kafkax.Decode[lifecycle.Envelope](m.Value)
	if err != nil {
		s.Log.WithError(err).WithField("offset", m.Offset).Warn("skip undecodable event")
		return nil
	}
	if _, err := uuid.Parse(env.EventID); err != nil || env.EventType == "" {
		s.Log.WithField("offset", m.Offset).Warn("skip event without id or type")
		return nil
	}
	aggregateID, err := strconv.ParseInt(env.CorrelationID, 10, 64)
	if err != nil {
		s.Log.WithField("event_id", env.EventID).Warn("skip event with non-numeric correlation id")
		return nil
	}

	var traceID *string
	if env.TraceID != "" {
		traceID = &env.TraceID
	}
	tag, err := s.DB.Exec(ctx, `
		INSERT INTO lifecycle_events (event_id, event_type, aggregate, aggregate_id, producer, trace_id, payload, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (event_id) DO NOTHING`,
		env.EventID, env.EventType, env.Aggregate, aggregateID, env.Producer, traceID, []byte(env.Payload), env.OccurredAt)
	if err != nil {
		return errors.Wrapf(err, "record event %s", env.EventID)
	}

	entry := s.Log.WithFields(log.Fields{"event_id": env.EventID, "event_type": env.EventType, "aggregate_id": aggregateID})
	if tag.RowsAffected() == 0 {
		entry.Debug("duplicate event ignored")
		return nil
	}
	entry.Info("event recorded")
	return nil
}
