package repository

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront-api/internal/model"
)

var (
	ErrNotFound          = errors.New("document not found")
	ErrDuplicate         = errors.New("duplicate key")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAlreadyReviewed   = errors.New("product already reviewed by user")
	ErrStatusChanged     = errors.New("order status changed concurrently")
	ErrInvalidExtension  = errors.New("record does not match extension kind")
)

const (
	productsCollection = "products"
	ordersCollection   = "orders"
	usersCollection    = "users"
	advertsCollection  = "advertisements"
	cartsCollection    = "carts"
)

// Page is a 1-based page request.
type Page struct {
	Number int64
	Size   int64
}

func (p Page) skip() int64 {
	if p.Number < 1 {
		return 0
	}
	return (p.Number - 1) * p.Size
}

type ProductFilter struct {
	Category string
	Brand    string
}

// ProductUpdate holds the fields to overwrite; nil fields are left alone.
type ProductUpdate struct {
	Name          *string
	Description   *string
	Category      *string
	Brand         *string
	Price         *float64
	Quantity      *int
	ImageURL      *string
	ImagePublicID *string
}

// ReviewPatch holds the review fields to overwrite; nil fields are left alone.
type ReviewPatch struct {
	Rating    *int
	Comment   *string
	UpdatedAt time.Time
}

type OrderFilter struct {
	Status model.OrderStatus
	UserID primitive.ObjectID
	From   *time.Time
	To     *time.Time
}

type TrackingInfo struct {
	Carrier           string
	TrackingNumber    string
	EstimatedDelivery *time.Time
}

type StatusStat struct {
	Status     model.OrderStatus `bson:"_id" json:"_id"`
	Count      int64             `bson:"count" json:"count"`
	TotalSales float64           `bson:"total_sales" json:"totalSales"`
}

type OrderSummary struct {
	TotalOrders int64   `bson:"total_orders" json:"totalOrders"`
	TotalSales  float64 `bson:"total_sales" json:"totalSales"`
}

type UserFilter struct {
	Active *bool
}

// EnsureIndexes creates the indexes the repositories rely on.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	specs := map[string][]mongo.IndexModel{
		usersCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		productsCollection: {
			{Keys: bson.D{{Key: "reviews.user", Value: 1}}},
		},
		ordersCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		cartsCollection: {
			{Keys: bson.D{{Key: "user_id", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}
	for coll, models := range specs {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			return err
		}
	}
	return nil
}

func decodeAll[T any](ctx context.Context, cur *mongo.Cursor) ([]*T, error) {
	defer cur.Close(ctx)

	out := []*T{}
	for cur.Next(ctx) {
		var v T
		if err := cur.Decode(&v); err != nil {
			return nil, err
		}
		out = append(out, &v)
	}
	return out, cur.Err()
}

func mapFindErr(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func exists(ctx context.Context, col *mongo.Collection, filter any) (bool, error) {
	n, err := col.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	return n > 0, err
}

func afterUpdate() *options.FindOneAndUpdateOptions {
	return options.FindOneAndUpdate().SetReturnDocument(options.After)
}
