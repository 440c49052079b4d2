package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/integration/mtest"

	"storefront-api/internal/model"
)

func newMock(t *testing.T) *mtest.T {
	return mtest.New(t, mtest.NewOptions().ClientType(mtest.Mock))
}

func ns(mt *mtest.T) string {
	return mt.Coll.Database().Name() + "." + mt.Coll.Name()
}

func toDoc(t require.TestingT, v any) bson.D {
	raw, err := bson.Marshal(v)
	require.NoError(t, err)
	var d bson.D
	require.NoError(t, bson.Unmarshal(raw, &d))
	return d
}

func countResponse(mt *mtest.T, n int32) bson.D {
	if n == 0 {
		return mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch)
	}
	return mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, bson.D{{Key: "_id", Value: 1}, {Key: "n", Value: n}})
}

func TestMongoProductRepository_DecrementStock(t *testing.T) {
	mt := newMock(t)
	ctx := context.Background()

	mt.Run("decrements when enough stock", func(mt *mtest.T) {
		repo := &MongoProductRepository{col: mt.Coll}
		mt.AddMockResponses(mtest.CreateSuccessResponse(
			bson.E{Key: "n", Value: 1},
			bson.E{Key: "nModified", Value: 1},
		))

		assert.NoError(t, repo.DecrementStock(ctx, primitive.NewObjectID(), 3))
	})

	mt.Run("insufficient stock when product exists", func(mt *mtest.T) {
		repo := &MongoProductRepository{col: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			countResponse(mt, 1),
		)

		assert.ErrorIs(t, repo.DecrementStock(ctx, primitive.NewObjectID(), 3), ErrInsufficientStock)
	})

	mt.Run("not found when product is missing", func(mt *mtest.T) {
		repo := &MongoProductRepository{col: mt.Coll}
		mt.AddMockResponses(
			mtest.CreateSuccessResponse(bson.E{Key: "n", Value: 0}, bson.E{Key: "nModified", Value: 0}),
			countResponse(mt, 0),
		)

		assert.ErrorIs(t, repo.DecrementStock(ctx, primitive.NewObjectID(), 3), ErrNotFound)
	})
}

func TestMongoProductRepository_FindByID(t *testing.T) {
	mt := newMock(t)
	ctx := context.Background()

	mt.Run("found", func(mt *mtest.T) {
		repo := &MongoProductRepository{col: mt.Coll}
		p := model.Product{ID: primitive.NewObjectID(), Name: "Lamp", Price: 19.5, Quantity: 4, Reviews: []model.Review{}}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch, toDoc(t, p)))

		got, err := repo.FindByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Lamp", got.Name)
		assert.Equal(t, 4, got.Quantity)
	})

	mt.Run("missing maps to ErrNotFound", func(mt *mtest.T) {
		repo := &MongoProductRepository{col: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch))

		_, err := repo.FindByID(ctx, primitive.NewObjectID())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMongoProductRepository_AddReview(t *testing.T) {
	mt := newMock(t)

	mt.Run("returns recomputed product", func(mt *mtest.T) {
		repo := &MongoProductRepository{col: mt.Coll}
		userID := primitive.NewObjectID()
		after := model.Product{
			ID:           primitive.NewObjectID(),
			Name:         "Lamp",
			Reviews:      []model.Review{{ID: primitive.NewObjectID(), UserID: userID, Rating: 4}},
			RatingsAvg:   4,
			RatingsCount: 1,
		}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: toDoc(t, after)}))

		got, err := repo.AddReview(context.Background(), after.ID, model.Review{UserID: userID, Rating: 4, CreatedAt: time.Now()})
		require.NoError(t, err)
		assert.Equal(t, 1, got.RatingsCount)
		assert.InDelta(t, 4.0, got.RatingsAvg, 1e-9)
	})
}

func TestMongoOrderRepository_UpdateStatus(t *testing.T) {
	mt := newMock(t)

	mt.Run("applies when status matches", func(mt *mtest.T) {
		repo := &MongoOrderRepository{col: mt.Coll}
		o := model.Order{ID: primitive.NewObjectID(), Status: model.StatusShipped, TrackingTimeline: []model.TrackingEvent{}}
		mt.AddMockResponses(mtest.CreateSuccessResponse(bson.E{Key: "value", Value: toDoc(t, o)}))

		got, err := repo.UpdateStatus(context.Background(), o.ID, model.StatusPending, model.StatusShipped)
		require.NoError(t, err)
		assert.Equal(t, model.StatusShipped, got.Status)
	})
}

func TestMongoOrderRepository_Stats(t *testing.T) {
	mt := newMock(t)

	mt.Run("decodes grouped rows", func(mt *mtest.T) {
		repo := &MongoOrderRepository{col: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch,
			bson.D{{Key: "_id", Value: "Delivered"}, {Key: "count", Value: int64(2)}, {Key: "total_sales", Value: 80.0}},
			bson.D{{Key: "_id", Value: "Pending"}, {Key: "count", Value: int64(1)}, {Key: "total_sales", Value: 15.5}},
		))

		stats, err := repo.Stats(context.Background())
		require.NoError(t, err)
		require.Len(t, stats, 2)
		assert.Equal(t, model.StatusDelivered, stats[0].Status)
		assert.Equal(t, int64(2), stats[0].Count)
		assert.InDelta(t, 15.5, stats[1].TotalSales, 1e-9)
	})
}

func TestMongoUserRepository_CreateDuplicate(t *testing.T) {
	mt := newMock(t)

	mt.Run("duplicate email", func(mt *mtest.T) {
		repo := &MongoUserRepository{col: mt.Coll}
		mt.AddMockResponses(mtest.CreateWriteErrorsResponse(mtest.WriteError{
			Index:   0,
			Code:    11000,
			Message: "E11000 duplicate key error collection: users index: email_1",
		}))

		err := repo.Create(context.Background(), &model.User{Email: " Jane@Example.com "})
		assert.ErrorIs(t, err, ErrDuplicate)
	})
}

func TestMongoAdvertRepository_GetMissing(t *testing.T) {
	mt := newMock(t)

	mt.Run("no row yet", func(mt *mtest.T) {
		repo := &MongoAdvertRepository{col: mt.Coll}
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch))

		_, err := repo.Get(context.Background())
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestMongoCartRepository_FindByUserEmpty(t *testing.T) {
	mt := newMock(t)

	mt.Run("returns empty cart", func(mt *mtest.T) {
		repo := &MongoCartRepository{col: mt.Coll}
		userID := primitive.NewObjectID()
		mt.AddMockResponses(mtest.CreateCursorResponse(0, ns(mt), mtest.FirstBatch))

		c, err := repo.FindByUser(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, userID, c.UserID)
		assert.Empty(t, c.Items)
		assert.True(t, c.ID.IsZero())
	})
}

func TestPage_Skip(t *testing.T) {
	assert.Equal(t, int64(0), Page{Number: 0, Size: 10}.skip())
	assert.Equal(t, int64(0), Page{Number: 1, Size: 10}.skip())
	assert.Equal(t, int64(20), Page{Number: 3, Size: 10}.skip())
}
