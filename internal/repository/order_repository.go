package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront-api/internal/model"
)

type MongoOrderRepository struct {
	col *mongo.Collection
}

func NewMongoOrderRepository(db *mongo.Database) *MongoOrderRepository {
	return &MongoOrderRepository{col: db.Collection(ordersCollection)}
}

func (m *MongoOrderRepository) Create(ctx context.Context, o *model.Order) error {
	now := time.Now().UTC()
	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if o.TrackingTimeline == nil {
		o.TrackingTimeline = []model.TrackingEvent{}
	}
	o.CreatedAt, o.UpdatedAt = now, now
	_, err := m.col.InsertOne(ctx, o)
	return err
}

func (m *MongoOrderRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Order, error) {
	var o model.Order
	if err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&o); err != nil {
		return nil, mapFindErr(err)
	}
	return &o, nil
}

func (m *MongoOrderRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*model.Order, error) {
	cur, err := m.col.Find(ctx, bson.M{"user_id": userID}, newestFirst())
	if err != nil {
		return nil, err
	}
	return decodeAll[model.Order](ctx, cur)
}

// List returns one page of orders matching f plus the total match count.
func (m *MongoOrderRepository) List(ctx context.Context, f OrderFilter, page Page) ([]*model.Order, int64, error) {
	filter := orderFilter(f)

	total, err := m.col.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := newestFirst()
	if page.Size > 0 {
		opts.SetSkip(page.skip()).SetLimit(page.Size)
	}
	cur, err := m.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, err
	}
	orders, err := decodeAll[model.Order](ctx, cur)
	return orders, total, err
}

func (m *MongoOrderRepository) Count(ctx context.Context, f OrderFilter) (int64, error) {
	return m.col.CountDocuments(ctx, orderFilter(f))
}

// UpdateStatus moves the order from expected to next. It fails with
// ErrStatusChanged when another writer moved the order first.
func (m *MongoOrderRepository) UpdateStatus(ctx context.Context, id primitive.ObjectID, expected, next model.OrderStatus) (*model.Order, error) {
	now := time.Now().UTC()
	set := bson.M{"status": next, "updated_at": now}
	if next == model.StatusDelivered {
		set["is_delivered"] = true
		set["delivered_at"] = now
	}
	return m.conditionalUpdate(ctx, id, expected, bson.M{"$set": set})
}

// Cancel marks a pending order cancelled and stores its cancellation record.
func (m *MongoOrderRepository) Cancel(ctx context.Context, id primitive.ObjectID, details model.CancellationDetails) (*model.Order, error) {
	set := bson.M{"status": model.StatusCancelled, "updated_at": time.Now().UTC()}
	set[model.ExtCancellation.Field()] = details
	return m.conditionalUpdate(ctx, id, model.StatusPending, bson.M{"$set": set})
}

func (m *MongoOrderRepository) conditionalUpdate(ctx context.Context, id primitive.ObjectID, expected model.OrderStatus, update bson.M) (*model.Order, error) {
	var o model.Order
	err := m.col.FindOneAndUpdate(ctx, bson.M{"_id": id, "status": expected}, update, afterUpdate()).Decode(&o)
	if err == nil {
		return &o, nil
	}
	if err = mapFindErr(err); err != ErrNotFound {
		return nil, err
	}
	found, err := exists(ctx, m.col, bson.M{"_id": id})
	if err != nil {
		return nil, err
	}
	if found {
		return nil, ErrStatusChanged
	}
	return nil, ErrNotFound
}

func (m *MongoOrderRepository) AppendTracking(ctx context.Context, id primitive.ObjectID, ev model.TrackingEvent) (*model.Order, error) {
	return m.update(ctx, id, bson.M{
		"$push": bson.M{"tracking_timeline": ev},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
}

func (m *MongoOrderRepository) SetTrackingInfo(ctx context.Context, id primitive.ObjectID, info TrackingInfo) (*model.Order, error) {
	set := bson.M{
		"carrier":         info.Carrier,
		"tracking_number": info.TrackingNumber,
		"updated_at":      time.Now().UTC(),
	}
	update := bson.M{"$set": set}
	if info.EstimatedDelivery != nil {
		set["estimated_delivery"] = *info.EstimatedDelivery
	} else {
		update["$unset"] = bson.M{"estimated_delivery": ""}
	}
	return m.update(ctx, id, update)
}

// SetExtension replaces the single record of the given kind.
func (m *MongoOrderRepository) SetExtension(ctx context.Context, id primitive.ObjectID, kind model.ExtensionKind, record any) (*model.Order, error) {
	var probe model.Extensions
	if !probe.Set(kind, record) {
		return nil, ErrInvalidExtension
	}
	set := bson.M{"updated_at": time.Now().UTC()}
	set[kind.Field()] = record
	return m.update(ctx, id, bson.M{"$set": set})
}

func (m *MongoOrderRepository) update(ctx context.Context, id primitive.ObjectID, update bson.M) (*model.Order, error) {
	var o model.Order
	if err := m.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, update, afterUpdate()).Decode(&o); err != nil {
		return nil, mapFindErr(err)
	}
	return &o, nil
}

func (m *MongoOrderRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats groups orders by status with their count and summed total.
func (m *MongoOrderRepository) Stats(ctx context.Context) ([]StatusStat, error) {
	cur, err := m.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$status"},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "total_sales", Value: bson.D{{Key: "$sum", Value: "$total_price"}}},
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "_id", Value: 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	stats := []StatusStat{}
	if err := cur.All(ctx, &stats); err != nil {
		return nil, err
	}
	return stats, nil
}

func (m *MongoOrderRepository) Summary(ctx context.Context) (OrderSummary, error) {
	cur, err := m.col.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: nil},
			{Key: "total_orders", Value: bson.D{{Key: "$sum", Value: 1}}},
			{Key: "total_sales", Value: bson.D{{Key: "$sum", Value: "$total_price"}}},
		}}},
	})
	if err != nil {
		return OrderSummary{}, err
	}
	defer cur.Close(ctx)

	var out OrderSummary
	if cur.Next(ctx) {
		if err := cur.Decode(&out); err != nil {
			return OrderSummary{}, err
		}
	}
	return out, cur.Err()
}

func orderFilter(f OrderFilter) bson.M {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if !f.UserID.IsZero() {
		filter["user_id"] = f.UserID
	}
	if f.From != nil || f.To != nil {
		created := bson.M{}
		if f.From != nil {
			created["$gte"] = *f.From
		}
		if f.To != nil {
			created["$lte"] = *f.To
		}
		filter["created_at"] = created
	}
	return filter
}

func newestFirst() *options.FindOptions {
	return options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
}
