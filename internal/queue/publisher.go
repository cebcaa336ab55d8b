package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/labstack/gommon/log"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher sends booking events to RabbitMQ.  It keeps one connection and
// channel open and redials lazily after the broker drops them.  Errors are
// logged and returned so the caller can choose to ignore them.
type Publisher struct {
	url    string
	logger *log.Logger

	// lock is a one-slot semaphore so waiters give up when their ctx ends.
	lock chan struct{}
	conn *amqp.Connection
	ch   *amqp.Channel
}

// defaultDialTimeout bounds the dial and AMQP handshake when ctx has no deadline.
const defaultDialTimeout = 3 * time.Second

func NewPublisher(url string, logger *log.Logger) *Publisher {
	return &Publisher{url: url, logger: logger, lock: make(chan struct{}, 1)}
}

// Publish marshals ev and sends it to queueName on the default exchange.
func (p *Publisher) Publish(ctx context.Context, queueName string, ev BookingEvent) error {
	body, err := json.Marshal(ev)
	if err != nil {
		p.logger.Errorf("rabbitmq: marshal event failed: %v", err)
		return err
	}

	if err := ctx.Err(); err != nil {
		return err
	}
	select {
	case p.lock <- struct{}{}:
	case <-ctx.Done():
		p.logger.Errorf("rabbitmq: publish to %s abandoned: %v", queueName, ctx.Err())
		return ctx.Err()
	}
	defer func() { <-p.lock }()

	ch, err := p.channelLocked(ctx)
	if err != nil {
		p.logger.Errorf("rabbitmq: %v", err)
		return err
	}
	// Ensure the queue exists (idempotent). Durable so messages survive broker restarts.
	if _, err := ch.QueueDeclare(queueName, true, false, false, false, nil); err != nil {
		p.resetLocked()
		p.logger.Errorf("rabbitmq: queue declare failed: %v", err)
		return err
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent, // store on disk
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", queueName, false, false, pub); err != nil {
		p.resetLocked()
		p.logger.Errorf("rabbitmq: publish failed: %v", err)
		return err
	}
	return nil
}

// Close releases the connection.
func (p *Publisher) Close() error {
	p.lock <- struct{}{}
	defer func() { <-p.lock }()
	if p.conn == nil {
		return nil
	}
	err := p.conn.Close()
	p.conn, p.ch = nil, nil
	return err
}

func (p *Publisher) channelLocked(ctx context.Context) (*amqp.Channel, error) {
	if p.ch != nil && !p.ch.IsClosed() && p.conn != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	p.resetLocked()

	timeout := defaultDialTimeout
	if deadline, ok := ctx.Deadline(); ok {
		timeout = time.Until(deadline)
	}
	if timeout <= 0 {
		return nil, fmt.Errorf("dial skipped: %w", context.DeadlineExceeded)
	}
	// DefaultDial keeps its deadline on the socket until the AMQP handshake completes.
	conn, err := amqp.DialConfig(p.url, amqp.Config{
		Dial:      amqp.DefaultDial(timeout),
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		return nil, fmt.Errorf("dial failed: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("channel open failed: %w", err)
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) resetLocked() {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		_ = p.conn.Close()
	}
	p.conn, p.ch = nil, nil
}
