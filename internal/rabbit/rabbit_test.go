package rabbit

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/pkg/errors"
	"github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront-api/internal/logger"
	"storefront-api/internal/model"
)

type published struct {
	exchange, key string
	msg           amqp091.Publishing
}

type fakeChannel struct {
	declared   map[string]string
	published  []published
	publishErr error
	closed     bool
}

func newFakeChannel() *fakeChannel {
	return &fakeChannel{declared: map[string]string{}}
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, _, _, _, _ bool, _ amqp091.Table) error {
	f.declared[name] = kind
	return nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp091.Publishing) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.published = append(f.published, published{exchange, key, msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func decode[T any](t *testing.T, body []byte) (Envelope, T) {
	t.Helper()
	var raw struct {
		Envelope
		Message T `json:"message"`
	}
	require.NoError(t, json.Unmarshal(body, &raw))
	return raw.Envelope, raw.Message
}

func TestNewPublisher_DeclaresExchanges(t *testing.T) {
	ch := newFakeChannel()
	p, err := NewPublisher(ch)
	require.NoError(t, err)

	assert.Equal(t, amqp091.ExchangeFanout, ch.declared[ExchangeOrderPlaced])
	assert.Equal(t, amqp091.ExchangeDirect, ch.declared[ExchangeMailOutbox])

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestOrderEvents_PublishesPlacedOrder(t *testing.T) {
	ch := newFakeChannel()
	p, err := NewPublisher(ch)
	require.NoError(t, err)

	o := &model.Order{
		ID:     primitive.NewObjectID(),
		UserID: primitive.NewObjectID(),
		Items: []model.LineItem{
			{ProductID: primitive.NewObjectID(), Name: "Desk lamp", Quantity: 2, Price: 10},
		},
		ShippingAddress: model.ShippingAddress{Address: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"},
	}
	require.NoError(t, NewOrderEvents(p).OrderPlaced(context.Background(), o))

	require.Len(t, ch.published, 1)
	got := ch.published[0]
	assert.Equal(t, ExchangeOrderPlaced, got.exchange)
	assert.Equal(t, amqp091.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, "application/json", got.msg.ContentType)

	env, msg := decode[PlacedOrder](t, got.msg.Body)
	assert.Equal(t, got.msg.CorrelationId, env.CorrelationID)
	assert.Equal(t, ExchangeOrderPlaced, env.Exchange)
	assert.Equal(t, o.ID.Hex(), msg.OrderID)
	assert.Equal(t, o.UserID.Hex(), msg.UserID)
	require.Len(t, msg.Articles, 1)
	assert.Equal(t, Article{ArticleID: o.Items[0].ProductID.Hex(), Quantity: 2}, msg.Articles[0])
	assert.Equal(t, "1 Main St", msg.Shipping.AddressLine1)
	assert.Equal(t, "Springfield", msg.Shipping.City)
}

func TestMailRelay(t *testing.T) {
	ch := newFakeChannel()
	p, err := NewPublisher(ch)
	require.NoError(t, err)

	require.NoError(t, NewMailRelay(p).Send(context.Background(), "jane@example.com", "Password reset", "<p>hi</p>"))

	require.Len(t, ch.published, 1)
	assert.Equal(t, ExchangeMailOutbox, ch.published[0].exchange)
	assert.Equal(t, RoutingKeyEmail, ch.published[0].key)
	_, mail := decode[Email](t, ch.published[0].msg.Body)
	assert.Equal(t, Email{To: "jane@example.com", Subject: "Password reset", HTML: "<p>hi</p>"}, mail)
}

func TestPublish_WrapsChannelErrors(t *testing.T) {
	ch := newFakeChannel()
	p, err := NewPublisher(ch)
	require.NoError(t, err)
	ch.publishErr = amqp091.ErrClosed

	err = NewMailRelay(p).Send(context.Background(), "a@b.c", "s", "b")
	require.Error(t, err)
	assert.Equal(t, amqp091.ErrClosed, errors.Cause(err))
}

func TestLogFallbacks(t *testing.T) {
	var buf bytes.Buffer
	log, err := logger.NewWithWriter(&buf, "info", false)
	require.NoError(t, err)

	require.NoError(t, NewLogMailer(log).Send(context.Background(), "jane@example.com", "Hello", "<p>hi</p>"))
	require.NoError(t, NewLogEvents(log).OrderPlaced(context.Background(), &model.Order{ID: primitive.NewObjectID()}))

	assert.Contains(t, buf.String(), "jane@example.com")
	assert.Contains(t, buf.String(), "order_placed")
}
