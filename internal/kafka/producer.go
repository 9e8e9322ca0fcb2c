package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/segmentio/kafka-go"
	log "github.com/sirupsen/logrus"
)

// Producer queues messages on an inbox and writes them from one goroutine, so
// Publish never waits on the broker.
type Producer struct {
	w       *kafka.Writer
	inbox   chan kafka.Message
	closeCh chan struct{}
	log     log.FieldLogger

	mu     sync.RWMutex
	closed bool
}

func NewProducer(brokers []string, topic string, buf int, logger log.FieldLogger) *Producer {
	return &Producer{
		w: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{},
			RequiredAcks: kafka.RequireAll,
			BatchTimeout: 50 * time.Millisecond,
		},
		inbox:   make(chan kafka.Message, buf),
		closeCh: make(chan struct{}),
		log:     logger.WithField("topic", topic),
	}
}

func (p *Producer) Start(ctx context.Context) {
	go func() {
		defer close(p.closeCh)
		for {
			select {
			case <-ctx.Done():
				p.drain()
				return
			case m, ok := <-p.inbox:
				if !ok {
					p.shutdown()
					return
				}
				p.write(m)
			}
		}
	}()
}

func (p *Producer) write(m kafka.Message) {
	if err := p.w.WriteMessages(context.Background(), m); err != nil {
		p.log.WithError(err).WithField("key", string(m.Key)).Error("kafka write failed")
	}
}

// drain flushes what is already queued after the context is cancelled.
func (p *Producer) drain() {
	for {
		select {
		case m, ok := <-p.inbox:
			if !ok {
				p.shutdown()
				return
			}
			p.write(m)
		default:
			p.shutdown()
			return
		}
	}
}

func (p *Producer) shutdown() {
	if err := p.w.Close(); err != nil {
		p.log.WithError(err).Warn("kafka writer close")
	}
}

// Publish enqueues a message. When the inbox is full, or the producer is
// closed, the message is dropped and logged rather than blocking the caller.
func (p *Producer) Publish(key, value []byte, headers ...kafka.Header) {
	m := kafka.Message{Key: key, Value: value, Time: time.Now(), Headers: headers}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		p.log.WithField("key", string(key)).Warn("producer closed, message dropped")
		return
	}
	select {
	case p.inbox <- m:
	default:
		p.log.WithField("key", string(key)).Warn("producer inbox full, message dropped")
	}
}

// Close stops accepting messages; the writer goroutine flushes the rest and
// exits. Calling it more than once is a no-op.
func (p *Producer) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.closed {
		p.closed = true
		close(p.inbox)
	}
}

// WaitClosed blocks until the writer goroutine has exited.
func (p *Producer) WaitClosed() { <-p.closeCh }
