package lifecycle

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// Publisher is best effort: failures are logged, never returned to the request.
type Publisher interface {
	Publish(ctx context.Context, ev Event)
}

// Sink is the subset of the async kafka producer the publisher needs.
type Sink interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

type KafkaPublisher struct {
	Sink     Sink
	Producer string
	Log      log.FieldLogger
	Now      func() time.Time
}

func (p *KafkaPublisher) Publish(_ context.Context, ev Event) {
	now := time.Now
	if p.Now != nil {
		now = p.Now
	}
	env, err := Wrap(ev, p.Producer, now())
	if err != nil {
		p.Log.WithError(err).WithField("event_type", ev.Type).Warn("drop lifecycle event")
		return
	}
	b, err := json.Marshal(env)
	if err != nil {
		p.Log.WithError(err).WithField("event_type", ev.Type).Warn("drop lifecycle event")
		return
	}
	p.Sink.Publish(PartitionKey(ev.Aggregate, ev.AggregateID), b,
		kafkago.Header{Key: "x-event-type", Value: []byte(env.EventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte(strconv.Itoa(env.EventVersion))},
	)
}

// Nop is used when no brokers are configured.
type Nop struct{}

func (Nop) Publish(context.Context, Event) {}
