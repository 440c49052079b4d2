package memrepo

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront-api/internal/model"
	"storefront-api/internal/repository"
)

func TestProductRepository_DecrementStockNeverOversells(t *testing.T) {
	ctx := context.Background()
	store := New()
	p := &model.Product{Name: "Mug", Quantity: 10}
	require.NoError(t, store.Products.Create(ctx, p))

	var ok, short atomic.Int32
	var wg sync.WaitGroup
	for range 25 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch err := store.Products.DecrementStock(ctx, p.ID, 1); err {
			case nil:
				ok.Add(1)
			case repository.ErrInsufficientStock:
				short.Add(1)
			default:
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	got, err := store.Products.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.Quantity)
	assert.Equal(t, int32(10), ok.Load())
	assert.Equal(t, int32(15), short.Load())
}

func TestProductRepository_Reviews(t *testing.T) {
	ctx := context.Background()
	store := New()
	p := &model.Product{Name: "Mug", Quantity: 1}
	require.NoError(t, store.Products.Create(ctx, p))

	alice, bob := primitive.NewObjectID(), primitive.NewObjectID()
	r1 := model.Review{ID: primitive.NewObjectID(), UserID: alice, Rating: 5}
	r2 := model.Review{ID: primitive.NewObjectID(), UserID: bob, Rating: 2}

	_, err := store.Products.AddReview(ctx, p.ID, r1)
	require.NoError(t, err)
	got, err := store.Products.AddReview(ctx, p.ID, r2)
	require.NoError(t, err)
	assert.Equal(t, 2, got.RatingsCount)
	assert.InDelta(t, 3.5, got.RatingsAvg, 1e-9)

	_, err = store.Products.AddReview(ctx, p.ID, model.Review{ID: primitive.NewObjectID(), UserID: alice, Rating: 1})
	assert.ErrorIs(t, err, repository.ErrAlreadyReviewed)

	four := 4
	got, err = store.Products.UpdateReview(ctx, p.ID, r2.ID, repository.ReviewPatch{Rating: &four})
	require.NoError(t, err)
	assert.InDelta(t, 4.5, got.RatingsAvg, 1e-9)

	got, err = store.Products.RemoveReview(ctx, p.ID, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.RatingsCount)
	assert.InDelta(t, 4.0, got.RatingsAvg, 1e-9)

	got, err = store.Products.RemoveReview(ctx, p.ID, r2.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, got.RatingsCount)
	assert.Zero(t, got.RatingsAvg)

	_, err = store.Products.RemoveReview(ctx, p.ID, r2.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestProductRepository_DeleteReturnsCopy(t *testing.T) {
	ctx := context.Background()
	store := New()
	p := &model.Product{Name: "Mug", Quantity: 3, Reviews: []model.Review{{Name: "Jane", Rating: 4, Comment: "nice"}}}
	require.NoError(t, store.Products.Create(ctx, p))
	stored := store.Products.items[p.ID]

	deleted, err := store.Products.Delete(ctx, p.ID)
	require.NoError(t, err)
	assert.NotSame(t, stored, deleted)
	assert.Equal(t, "Mug", deleted.Name)

	deleted.Reviews[0].Comment = "changed"
	assert.Equal(t, "nice", stored.Reviews[0].Comment)

	_, err = store.Products.FindByID(ctx, p.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestOrderRepository_CancelIsConditional(t *testing.T) {
	ctx := context.Background()
	store := New()
	o := &model.Order{Status: model.StatusPending}
	require.NoError(t, store.Orders.Create(ctx, o))

	_, err := store.Orders.UpdateStatus(ctx, o.ID, model.StatusPending, model.StatusShipped)
	require.NoError(t, err)

	_, err = store.Orders.Cancel(ctx, o.ID, model.CancellationDetails{Reason: "late"})
	assert.ErrorIs(t, err, repository.ErrStatusChanged)

	_, err = store.Orders.Cancel(ctx, primitive.NewObjectID(), model.CancellationDetails{})
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestOrderRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := New()
	o := &model.Order{Status: model.StatusPending, Items: []model.LineItem{{Name: "Mug", Quantity: 1}}}
	require.NoError(t, store.Orders.Create(ctx, o))

	got, err := store.Orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	got.Items[0].Quantity = 99

	again, err := store.Orders.FindByID(ctx, o.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, again.Items[0].Quantity)
}

func TestOrderRepository_SetExtensionRejectsWrongType(t *testing.T) {
	ctx := context.Background()
	store := New()
	o := &model.Order{Status: model.StatusPending}
	require.NoError(t, store.Orders.Create(ctx, o))

	_, err := store.Orders.SetExtension(ctx, o.ID, model.ExtGift, &model.TaxDetails{GST: 1})
	assert.ErrorIs(t, err, repository.ErrInvalidExtension)

	got, err := store.Orders.SetExtension(ctx, o.ID, model.ExtGift, &model.GiftDetails{IsGift: true, Message: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "hi", got.Gift.Message)
}

func TestUserRepository_UniqueEmail(t *testing.T) {
	ctx := context.Background()
	store := New()
	require.NoError(t, store.Users.Create(ctx, &model.User{Email: "a@example.com"}))

	err := store.Users.Create(ctx, &model.User{Email: " A@Example.com"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	u, err := store.Users.FindByEmail(ctx, "A@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", u.Email)
}
