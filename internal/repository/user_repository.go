package repository

import (
	"context"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"storefront-api/internal/model"
)

type MongoUserRepository struct {
	col *mongo.Collection
}

func NewMongoUserRepository(db *mongo.Database) *MongoUserRepository {
	return &MongoUserRepository{col: db.Collection(usersCollection)}
}

func (m *MongoUserRepository) Create(ctx context.Context, u *model.User) error {
	now := time.Now().UTC()
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.ActivityLogs == nil {
		u.ActivityLogs = []model.ActivityLog{}
	}
	u.Email = normalizeEmail(u.Email)
	u.CreatedAt, u.UpdatedAt = now, now

	_, err := m.col.InsertOne(ctx, u)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return err
}

func (m *MongoUserRepository) FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error) {
	return m.findOne(ctx, bson.M{"_id": id})
}

func (m *MongoUserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	return m.findOne(ctx, bson.M{"email": normalizeEmail(email)})
}

func (m *MongoUserRepository) findOne(ctx context.Context, filter bson.M) (*model.User, error) {
	var u model.User
	if err := m.col.FindOne(ctx, filter).Decode(&u); err != nil {
		return nil, mapFindErr(err)
	}
	return &u, nil
}

func (m *MongoUserRepository) List(ctx context.Context, f UserFilter) ([]*model.User, error) {
	cur, err := m.col.Find(ctx, userFilter(f), options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	return decodeAll[model.User](ctx, cur)
}

// Update replaces the stored user with u.
func (m *MongoUserRepository) Update(ctx context.Context, u *model.User) error {
	u.Email = normalizeEmail(u.Email)
	u.UpdatedAt = time.Now().UTC()

	res, err := m.col.ReplaceOne(ctx, bson.M{"_id": u.ID}, u)
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoUserRepository) AppendActivity(ctx context.Context, id primitive.ObjectID, entry model.ActivityLog) error {
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$push": bson.M{"activity_logs": entry}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoUserRepository) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoUserRepository) Count(ctx context.Context, f UserFilter) (int64, error) {
	return m.col.CountDocuments(ctx, userFilter(f))
}

func userFilter(f UserFilter) bson.M {
	filter := bson.M{}
	if f.Active != nil {
		filter["is_active"] = *f.Active
	}
	return filter
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
