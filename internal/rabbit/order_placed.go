package rabbit

import (
	"context"
	"log/slog"

	"storefront-api/internal/logger"
	"storefront-api/internal/model"
)

// PlacedOrder is the body of an order_placed message.
type PlacedOrder struct {
	OrderID  string    `json:"orderId"`
	UserID   string    `json:"userId"`
	Articles []Article `json:"articles"`
	Shipping Shipping  `json:"shipping"`
}

type Article struct {
	ArticleID string `json:"articleId"`
	Quantity  int    `json:"quantity"`
}

// Shipping uses the address layout the order-status service expects.
type Shipping struct {
	AddressLine1 string `json:"addressLine1"`
	City         string `json:"city"`
	PostalCode   string `json:"postalCode"`
	Province     string `json:"province"`
	Country      string `json:"country"`
	Comments     string `json:"comments"`
}

func NewPlacedOrder(o *model.Order) PlacedOrder {
	msg := PlacedOrder{
		OrderID:  o.ID.Hex(),
		UserID:   o.UserID.Hex(),
		Articles: make([]Article, 0, len(o.Items)),
		Shipping: Shipping{
			AddressLine1: o.ShippingAddress.Address,
			City:         o.ShippingAddress.City,
			PostalCode:   o.ShippingAddress.PostalCode,
			Country:      o.ShippingAddress.Country,
		},
	}
	for _, it := range o.Items {
		msg.Articles = append(msg.Articles, Article{ArticleID: it.ProductID.Hex(), Quantity: it.Quantity})
	}
	return msg
}

// OrderEvents announces new orders on the order_placed exchange.
type OrderEvents struct {
	pub *Publisher
}

func NewOrderEvents(pub *Publisher) *OrderEvents {
	return &OrderEvents{pub: pub}
}

func (e *OrderEvents) OrderPlaced(ctx context.Context, o *model.Order) error {
	return e.pub.Publish(ctx, ExchangeOrderPlaced, "", NewPlacedOrder(o))
}

// LogEvents stands in for OrderEvents when no broker is configured.
type LogEvents struct {
	log *slog.Logger
}

func NewLogEvents(log *slog.Logger) *LogEvents {
	return &LogEvents{log: log}
}

func (e *LogEvents) OrderPlaced(ctx context.Context, o *model.Order) error {
	logger.FromContext(ctx, e.log).Info("order_placed", "order_id", o.ID.Hex(), "items", len(o.Items))
	return nil
}
