package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"gocloud.dev/blob/memblob"

	"storefront-api/internal/apperr"
	"storefront-api/internal/logger"
	"storefront-api/internal/model"
	"storefront-api/internal/repository/memrepo"
	"storefront-api/internal/storage"
)

var pngBytes = []byte{0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52}

type mockMailer struct {
	mock.Mock
}

func (m *mockMailer) Send(ctx context.Context, to, subject, html string) error {
	return m.Called(ctx, to, subject, html).Error(0)
}

type mockEvents struct {
	mock.Mock
}

func (m *mockEvents) OrderPlaced(ctx context.Context, o *model.Order) error {
	return m.Called(ctx, o).Error(0)
}

type testEnv struct {
	store   *memrepo.Store
	images  *storage.BucketStore
	mailer  *mockMailer
	events  *mockEvents
	tokens  *TokenService
	orders  *OrderService
	reviews *ReviewService
	catalog *ProductService
	users   *UserService
	adverts *AdvertService
	carts   *CartService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := logger.Discard()
	env := &testEnv{
		store:  memrepo.New(),
		images: storage.NewBucketStore(memblob.OpenBucket(nil), "http://cdn.test"),
		mailer: &mockMailer{},
		events: &mockEvents{},
		tokens: NewTokenService("test-secret", time.Hour),
	}
	t.Cleanup(func() { _ = env.images.Close() })

	s := env.store
	env.orders = NewOrderService(s.Orders, s.Products, s.Users, s.Tx, env.images, env.events, log)
	env.reviews = NewReviewService(s.Products)
	env.catalog = NewProductService(s.Products, env.images, log)
	env.users = NewUserService(s.Users, s.Products, s.Orders, env.tokens, env.mailer, env.images,
		Secrets{Admin: "admin-secret", Seller: "seller-secret"}, "http://shop.test/", log)
	env.adverts = NewAdvertService(s.Adverts, env.images, log)
	env.carts = NewCartService(s.Carts, s.Products)
	return env
}

func (e *testEnv) product(t *testing.T, name string, qty int, price float64) *model.Product {
	t.Helper()
	p := &model.Product{Name: name, Description: "d", Category: "c", Brand: "b", Quantity: qty, Price: price}
	require.NoError(t, e.store.Products.Create(context.Background(), p))
	return p
}

func (e *testEnv) stock(t *testing.T, id primitive.ObjectID) int {
	t.Helper()
	p, err := e.store.Products.FindByID(context.Background(), id)
	require.NoError(t, err)
	return p.Quantity
}

func customer(name string) Actor {
	return Actor{ID: primitive.NewObjectID(), Name: name, Roles: model.Roles{model.RoleUser}}
}

func admin() Actor {
	return Actor{ID: primitive.NewObjectID(), Name: "Admin", Roles: model.Roles{model.RoleAdmin}}
}

// requireKind asserts err is an *apperr.Error of the given kind and code.
func requireKind(t *testing.T, err error, kind apperr.Kind, code string) {
	t.Helper()
	appErr, ok := apperr.As(err)
	require.True(t, ok, "want *apperr.Error, got %v", err)
	require.Equal(t, kind, appErr.Kind, appErr.Error())
	if code != "" {
		require.Equal(t, code, appErr.Code)
	}
}
