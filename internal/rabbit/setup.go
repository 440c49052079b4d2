// setup.go
package rabbit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"
)

const (
	// ExchangeOrderPlaced is the fanout exchange the order-status service
	// subscribes to.
	ExchangeOrderPlaced = "order_placed"
	ExchangeMailOutbox  = "mail_outbox"

	RoutingKeyEmail = "email"
)

const publishTimeout = 5 * time.Second

// Channel is the part of *amqp091.Channel the publisher uses.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Envelope wraps every published message.
type Envelope struct {
	CorrelationID string `json:"correlation_id"`
	Exchange      string `json:"exchange"`
	RoutingKey    string `json:"routing_key"`
	Message       any    `json:"message"`
}

type Publisher struct {
	mu   sync.Mutex
	ch   Channel
	conn *amqp091.Connection
}

// Connect dials the broker, opens a channel and declares the exchanges.
func Connect(url string) (*Publisher, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "dial rabbitmq")
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}
	p, err := NewPublisher(ch)
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	p.conn = conn
	return p, nil
}

func NewPublisher(ch Channel) (*Publisher, error) {
	if err := ch.ExchangeDeclare(ExchangeOrderPlaced, amqp091.ExchangeFanout, true, false, false, false, nil); err != nil {
		return nil, errors.Wrapf(err, "declare exchange %s", ExchangeOrderPlaced)
	}
	if err := ch.ExchangeDeclare(ExchangeMailOutbox, amqp091.ExchangeDirect, true, false, false, false, nil); err != nil {
		return nil, errors.Wrapf(err, "declare exchange %s", ExchangeMailOutbox)
	}
	return &Publisher{ch: ch}, nil
}

// Publish sends message as a persistent JSON envelope.
func (p *Publisher) Publish(ctx context.Context, exchange, key string, message any) error {
	env := Envelope{
		CorrelationID: uuid.NewString(),
		Exchange:      exchange,
		RoutingKey:    key,
		Message:       message,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return errors.Wrap(err, "encode message")
	}

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, exchange, key, false, false, amqp091.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp091.Persistent,
		CorrelationId: env.CorrelationID,
		Timestamp:     time.Now().UTC(),
		Body:          body,
	})
	return errors.Wrapf(err, "publish to %s", exchange)
}

func (p *Publisher) Close() error {
	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
