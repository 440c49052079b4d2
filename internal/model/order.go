// order.go
package model

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "Pending"
	StatusShipped   OrderStatus = "Shipped"
	StatusDelivered OrderStatus = "Delivered"
	StatusCancelled OrderStatus = "Cancelled"
)

var validStatuses = map[OrderStatus]bool{
	StatusPending:   true,
	StatusShipped:   true,
	StatusDelivered: true,
	StatusCancelled: true,
}

// Legal transitions. Delivered and Cancelled have none.
var statusTransitions = map[OrderStatus][]OrderStatus{
	StatusPending: {StatusShipped, StatusCancelled},
	StatusShipped: {StatusDelivered},
}

func (s OrderStatus) Valid() bool {
	return validStatuses[s]
}

func (s OrderStatus) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type Order struct {
	ID              primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID          primitive.ObjectID `bson:"user_id" json:"userId"`
	Items           []LineItem         `bson:"items" json:"items"`
	ShippingAddress ShippingAddress    `bson:"shipping_address" json:"shippingAddress"`
	PaymentMethod   string             `bson:"payment_method" json:"paymentMethod"`

	ItemsPrice    float64 `bson:"items_price" json:"itemsPrice"`
	TaxPrice      float64 `bson:"tax_price" json:"taxPrice"`
	ShippingPrice float64 `bson:"shipping_price" json:"shippingPrice"`
	TotalPrice    float64 `bson:"total_price" json:"totalPrice"`

	Status      OrderStatus `bson:"status" json:"status"`
	IsPaid      bool        `bson:"is_paid" json:"isPaid"`
	PaidAt      *time.Time  `bson:"paid_at,omitempty" json:"paidAt,omitempty"`
	IsDelivered bool        `bson:"is_delivered" json:"isDelivered"`
	DeliveredAt *time.Time  `bson:"delivered_at,omitempty" json:"deliveredAt,omitempty"`

	Carrier           string          `bson:"carrier,omitempty" json:"carrier,omitempty"`
	TrackingNumber    string          `bson:"tracking_number,omitempty" json:"trackingNumber,omitempty"`
	EstimatedDelivery *time.Time      `bson:"estimated_delivery,omitempty" json:"estimatedDelivery,omitempty"`
	TrackingTimeline  []TrackingEvent `bson:"tracking_timeline" json:"trackingTimeline"`

	Extensions `bson:",inline"`

	CreatedAt time.Time `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time `bson:"updated_at" json:"updatedAt"`
}

func (o *Order) OwnedBy(userID primitive.ObjectID) bool {
	return o.UserID == userID
}

type LineItem struct {
	ProductID primitive.ObjectID `bson:"product" json:"product"`
	Name      string             `bson:"name" json:"name"`
	Quantity  int                `bson:"quantity" json:"quantity"`
	Price     float64            `bson:"price" json:"price"` // unit price when the order was placed
}

type ShippingAddress struct {
	FullName   string `bson:"full_name" json:"fullName"`
	Phone      string `bson:"phone" json:"phone"`
	Address    string `bson:"address" json:"address"`
	City       string `bson:"city" json:"city"`
	PostalCode string `bson:"postal_code" json:"postalCode"`
	Country    string `bson:"country" json:"country"`
}

func (a ShippingAddress) Empty() bool {
	return a == ShippingAddress{}
}

type TrackingEvent struct {
	Status    string    `bson:"status" json:"status"`
	Message   string    `bson:"message" json:"message"`
	Timestamp time.Time `bson:"timestamp" json:"timestamp"`
}
