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

type MongoCartRepository struct {
	col *mongo.Collection
}

func NewMongoCartRepository(db *mongo.Database) *MongoCartRepository {
	return &MongoCartRepository{col: db.Collection(cartsCollection)}
}

// FindByUser returns the user's cart, or an empty unsaved cart when the
// user has none yet.
func (m *MongoCartRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) (*model.Cart, error) {
	var c model.Cart
	err := m.col.FindOne(ctx, bson.M{"user_id": userID}).Decode(&c)
	if err == mongo.ErrNoDocuments {
		return &model.Cart{UserID: userID, Items: []model.CartItem{}}, nil
	}
	if err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *MongoCartRepository) Save(ctx context.Context, c *model.Cart) error {
	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	c.UpdatedAt = time.Now().UTC()

	_, err := m.col.ReplaceOne(ctx, bson.M{"user_id": c.UserID}, c, options.Replace().SetUpsert(true))
	return err
}
