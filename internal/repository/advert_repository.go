package repository

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront-api/internal/model"
)

// MongoAdvertRepository keeps the site advertisement as one row under
// model.AdvertisementID.
type MongoAdvertRepository struct {
	col *mongo.Collection
}

func NewMongoAdvertRepository(db *mongo.Database) *MongoAdvertRepository {
	return &MongoAdvertRepository{col: db.Collection(advertsCollection)}
}

func (m *MongoAdvertRepository) Get(ctx context.Context) (*model.Advertisement, error) {
	var a model.Advertisement
	if err := m.col.FindOne(ctx, bson.M{"_id": model.AdvertisementID}).Decode(&a); err != nil {
		return nil, mapFindErr(err)
	}
	return &a, nil
}

func (m *MongoAdvertRepository) Upsert(ctx context.Context, a *model.Advertisement) error {
	now := time.Now().UTC()
	a.ID = model.AdvertisementID
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now
	}
	a.UpdatedAt = now

	_, err := m.col.ReplaceOne(ctx, bson.M{"_id": model.AdvertisementID}, a, options.Replace().SetUpsert(true))
	return err
}
