package sink

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/okian/vitalgen/internal/domain/datapoint"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is the part of *amqp.Channel the AMQPWriter uses.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// AMQPWriter publishes one persistent JSON message per data point to a queue
// on the default exchange.
type AMQPWriter struct {
	queue string
	pub   Publisher

	mu      sync.Mutex
	closers []func() error
	closed  bool
}

// NewAMQPWriter publishes through pub to queue.
func NewAMQPWriter(pub Publisher, queue string) *AMQPWriter {
	return &AMQPWriter{pub: pub, queue: queue}
}

// DialAMQP connects to url, opens a channel and declares a durable queue.
func DialAMQP(_ context.Context, url, queue string) (*AMQPWriter, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("%w: amqp dial: %w", ErrConnect, err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("%w: amqp channel: %w", ErrConnect, err)
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("%w: amqp declare %s: %w", ErrConnect, queue, err)
	}

	w := NewAMQPWriter(ch, queue)
	w.closers = []func() error{ch.Close, conn.Close}
	return w, nil
}

// Message builds the publishing for one data point.
func Message(p datapoint.DataPoint) (amqp.Publishing, error) {
	body, err := Encode(p)
	if err != nil {
		return amqp.Publishing{}, err
	}
	h := p.Header()
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    h.ID,
		Timestamp:    h.CreationDateTime,
		Type:         h.SchemaID.String(),
		Body:         body,
	}, nil
}

// WriteDataPoints publishes the batch in order. Publishing stops at the first
// failure and the count of messages already published is returned.
func (aw *AMQPWriter) WriteDataPoints(ctx context.Context, points []datapoint.DataPoint) (int64, error) {
	msgs := make([]amqp.Publishing, 0, len(points))
	for _, p := range points {
		msg, err := Message(p)
		if err != nil {
			return 0, err
		}
		msgs = append(msgs, msg)
	}

	aw.mu.Lock()
	defer aw.mu.Unlock()
	if aw.closed {
		return 0, ErrClosed
	}

	var n int64
	for _, msg := range msgs {
		if err := aw.pub.PublishWithContext(ctx, "", aw.queue, false, false, msg); err != nil {
			return n, fmt.Errorf("%w: amqp publish %s: %w", ErrWrite, msg.MessageId, err)
		}
		n++
	}
	return n, nil
}

// Close closes the channel and connection if this writer dialed them.
func (aw *AMQPWriter) Close(_ context.Context) error {
	aw.mu.Lock()
	defer aw.mu.Unlock()
	if aw.closed {
		return nil
	}
	aw.closed = true

	var errs []error
	for _, c := range aw.closers {
		if err := c(); err != nil && !errors.Is(err, amqp.ErrClosed) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
