package audit

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/pashagolub/pgxmock/v3"
	"github.com/pkg/errors"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ariefcatur/game-topup-api/internal/lifecycle"
)

func message(t *testing.T, env lifecycle.Envelope) kafkago.Message {
	t.Helper()
	b, err := json.Marshal(env)
	require.NoError(t, err)
	return kafkago.Message{Value: b}
}

func envelope() lifecycle.Envelope {
	return lifecycle.Envelope{
		EventID:       "6f1c2a8e-9b1d-4d4e-8f5a-2b3c4d5e6f70",
		EventType:     lifecycle.EventOrderCreated,
		EventVersion:  1,
		OccurredAt:    time.Date(2026, 5, 1, 1, 0, 0, 0, time.UTC),
		Producer:      "topup-api",
		Aggregate:     lifecycle.AggregateOrder,
		CorrelationID: "42",
		Payload:       json.RawMessage(`{"id":42}`),
	}
}

func newRecorder(t *testing.T) (*Recorder, pgxmock.PgxPoolIface, *test.Hook) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	return &Recorder{DB: mock, Log: logger}, mock, hook
}

func TestHandleMessage_Records(t *testing.T) {
	rec, mock, hook := newRecorder(t)
	mock.ExpectExec("INSERT INTO lifecycle_events").
		WithArgs(pgxmock.AnyArg(), lifecycle.EventOrderCreated, lifecycle.AggregateOrder, int64(42), "topup-api",
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))

	require.NoError(t, rec.HandleMessage(context.Background(), message(t, envelope())))
	assert.NoError(t, mock.ExpectationsWereMet())
	assert.Equal(t, "event recorded", hook.LastEntry().Message)
}

func TestHandleMessage_DuplicateIsAcknowledged(t *testing.T) {
	rec, mock, hook := newRecorder(t)
	mock.ExpectExec("INSERT INTO lifecycle_events").
		WithArgs(anyArgs(8)...).
		WillReturnResult(pgxmock.NewResult("INSERT", 0))

	require.NoError(t, rec.HandleMessage(context.Background(), message(t, envelope())))
	assert.Equal(t, "duplicate event ignored", hook.LastEntry().Message)
}

func TestHandleMessage_DatabaseErrorIsRetried(t *testing.T) {
	rec, mock, _ := newRecorder(t)
	mock.ExpectExec("INSERT INTO lifecycle_events").
		WithArgs(anyArgs(8)...).
		WillReturnError(errors.New("connection refused"))

	assert.Error(t, rec.HandleMessage(context.Background(), message(t, envelope())))
}

func TestHandleMessage_SkipsMalformed(t *testing.T) {
	rec, mock, _ := newRecorder(t)

	assert.NoError(t, rec.HandleMessage(context.Background(), kafkago.Message{Value: []byte("not json")}))

	bad := envelope()
	bad.EventID = "nope"
	assert.NoError(t, rec.HandleMessage(context.Background(), message(t, bad)))

	bad = envelope()
	bad.CorrelationID = "abc"
	assert.NoError(t, rec.HandleMessage(context.Background(), message(t, bad)))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func anyArgs(n int) []any {
	args := make([]any, n)
	for i := range args {
		args[i] = pgxmock.AnyArg()
	}
	return args
}
