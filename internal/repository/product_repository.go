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

type MongoProductRepository struct {
	col *mongo.Collection
}

func NewMongoProductRepository(db *mongo.Database) *MongoProductRepository {
	return &MongoProductRepository{col: db.Collection(productsCollection)}
}

// ratingsStage recomputes the aggregate rating fields from the reviews
// array inside an update pipeline.
var ratingsStage = bson.D{{Key: "$set", Value: bson.D{
	{Key: "ratings_count", Value: bson.D{{Key: "$size", Value: "$reviews"}}},
	{Key: "ratings_avg", Value: bson.D{{Key: "$ifNull", Value: bson.A{
		bson.D{{Key: "$avg", Value: "$reviews.rating"}}, 0,
	}}}},
}}}

func (m *MongoProductRepository) Create(ctx context.Context, p *model.Product) error {
	now := time.Now().UTC()
	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.Reviews == nil {
		p.Reviews = []model.Review{}
	}
	p.CreatedAt, p.UpdatedAt = now, now
	_, err := m.col.InsertOne(ctx, p)
	return err
}

func (m *MongoProductRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.Product, error) {
	var p model.Product
	if err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, mapFindErr(err)
	}
	return &p, nil
}

func (m *MongoProductRepository) List(ctx context.Context, f ProductFilter) ([]*model.Product, error) {
	filter := bson.M{}
	if f.Category != "" {
		filter["category"] = f.Category
	}
	if f.Brand != "" {
		filter["brand"] = f.Brand
	}
	cur, err := m.col.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	return decodeAll[model.Product](ctx, cur)
}

func (m *MongoProductRepository) Update(ctx context.Context, id primitive.ObjectID, u ProductUpdate) (*model.Product, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if u.Name != nil {
		set["name"] = *u.Name
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Category != nil {
		set["category"] = *u.Category
	}
	if u.Brand != nil {
		set["brand"] = *u.Brand
	}
	if u.Price != nil {
		set["price"] = *u.Price
	}
	if u.Quantity != nil {
		set["quantity"] = *u.Quantity
	}
	if u.ImageURL != nil {
		set["image_url"] = *u.ImageURL
	}
	if u.ImagePublicID != nil {
		set["image_public_id"] = *u.ImagePublicID
	}

	var p model.Product
	err := m.col.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set}, afterUpdate()).Decode(&p)
	if err != nil {
		return nil, mapFindErr(err)
	}
	return &p, nil
}

func (m *MongoProductRepository) Delete(ctx context.Context, id primitive.ObjectID) (*model.Product, error) {
	var p model.Product
	if err := m.col.FindOneAndDelete(ctx, bson.M{"_id": id}).Decode(&p); err != nil {
		return nil, mapFindErr(err)
	}
	return &p, nil
}

func (m *MongoProductRepository) Count(ctx context.Context) (int64, error) {
	return m.col.CountDocuments(ctx, bson.M{})
}

// DecrementStock takes n units in one conditional update, so two orders can
// never both consume the last units.
func (m *MongoProductRepository) DecrementStock(ctx context.Context, id primitive.ObjectID, n int) error {
	res, err := m.col.UpdateOne(ctx,
		bson.M{"_id": id, "quantity": bson.M{"$gte": n}},
		bson.M{
			"$inc": bson.M{"quantity": -n},
			"$set": bson.M{"updated_at": time.Now().UTC()},
		},
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 1 {
		return nil
	}
	found, err := exists(ctx, m.col, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if !found {
		return ErrNotFound
	}
	return ErrInsufficientStock
}

// IncrementStock returns units taken by DecrementStock. Only order
// compensation calls it.
func (m *MongoProductRepository) IncrementStock(ctx context.Context, id primitive.ObjectID, n int) error {
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$inc": bson.M{"quantity": n},
		"$set": bson.M{"updated_at": time.Now().UTC()},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddReview appends r and recomputes the aggregates in a single update. The
// filter refuses a second review by the same user.
func (m *MongoProductRepository) AddReview(ctx context.Context, productID primitive.ObjectID, r model.Review) (*model.Product, error) {
	filter := bson.M{"_id": productID, "reviews.user": bson.M{"$ne": r.UserID}}
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "reviews", Value: bson.D{{Key: "$concatArrays", Value: bson.A{
				bson.D{{Key: "$ifNull", Value: bson.A{"$reviews", bson.A{}}}},
				bson.A{bson.D{{Key: "$literal", Value: r}}},
			}}}},
			{Key: "updated_at", Value: r.CreatedAt},
		}}},
		ratingsStage,
	}

	var p model.Product
	err := m.col.FindOneAndUpdate(ctx, filter, pipeline, afterUpdate()).Decode(&p)
	if err == nil {
		return &p, nil
	}
	if err = mapFindErr(err); err != ErrNotFound {
		return nil, err
	}
	found, err := exists(ctx, m.col, bson.M{"_id": productID})
	if err != nil {
		return nil, err
	}
	if found {
		return nil, ErrAlreadyReviewed
	}
	return nil, ErrNotFound
}

func (m *MongoProductRepository) UpdateReview(ctx context.Context, productID, reviewID primitive.ObjectID, patch ReviewPatch) (*model.Product, error) {
	fields := bson.D{{Key: "updated_at", Value: patch.UpdatedAt}}
	if patch.Rating != nil {
		fields = append(fields, bson.E{Key: "rating", Value: *patch.Rating})
	}
	if patch.Comment != nil {
		fields = append(fields, bson.E{Key: "comment", Value: *patch.Comment})
	}

	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "reviews", Value: bson.D{{Key: "$map", Value: bson.D{
				{Key: "input", Value: "$reviews"},
				{Key: "as", Value: "r"},
				{Key: "in", Value: bson.D{{Key: "$cond", Value: bson.A{
					bson.D{{Key: "$eq", Value: bson.A{"$$r._id", reviewID}}},
					bson.D{{Key: "$mergeObjects", Value: bson.A{"$$r", bson.D{{Key: "$literal", Value: fields}}}}},
					"$$r",
				}}}},
			}}}},
			{Key: "updated_at", Value: patch.UpdatedAt},
		}}},
		ratingsStage,
	}
	return m.updateReviews(ctx, productID, reviewID, pipeline)
}

func (m *MongoProductRepository) RemoveReview(ctx context.Context, productID, reviewID primitive.ObjectID) (*model.Product, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$set", Value: bson.D{
			{Key: "reviews", Value: bson.D{{Key: "$filter", Value: bson.D{
				{Key: "input", Value: "$reviews"},
				{Key: "as", Value: "r"},
				{Key: "cond", Value: bson.D{{Key: "$ne", Value: bson.A{"$$r._id", reviewID}}}},
			}}}},
			{Key: "updated_at", Value: time.Now().UTC()},
		}}},
		ratingsStage,
	}
	return m.updateReviews(ctx, productID, reviewID, pipeline)
}

func (m *MongoProductRepository) updateReviews(ctx context.Context, productID, reviewID primitive.ObjectID, pipeline mongo.Pipeline) (*model.Product, error) {
	var p model.Product
	filter := bson.M{"_id": productID, "reviews._id": reviewID}
	if err := m.col.FindOneAndUpdate(ctx, filter, pipeline, afterUpdate()).Decode(&p); err != nil {
		return nil, mapFindErr(err)
	}
	return &p, nil
}
