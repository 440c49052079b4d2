package service

import (
	"context"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront-api/internal/apperr"
	"storefront-api/internal/logger"
	"storefront-api/internal/model"
	"storefront-api/internal/repository"
	"storefront-api/internal/repository/memrepo"
)

func orderInput(items ...OrderItemInput) CreateOrderInput {
	return CreateOrderInput{
		Items: items,
		ShippingAddress: model.ShippingAddress{
			FullName: "Jane Doe", Phone: "555", Address: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US",
		},
		PaymentMethod: "Cash on delivery",
		ItemsPrice:    30,
		TaxPrice:      3,
		ShippingPrice: 5,
		TotalPrice:    38,
	}
}

func (e *testEnv) placeOrder(t *testing.T, actor Actor, items ...OrderItemInput) *model.Order {
	t.Helper()
	o, err := e.orders.CreateOrder(context.Background(), actor, orderInput(items...))
	require.NoError(t, err)
	return o
}

func TestCreateOrder_DecrementsStockAndCapturesPrice(t *testing.T) {
	env := newTestEnv(t)
	env.events.On("OrderPlaced", mock.Anything, mock.Anything).Return(nil)
	p := env.product(t, "Desk lamp", 5, 12.5)
	jane := customer("Jane")

	o := env.placeOrder(t, jane, OrderItemInput{ProductID: p.ID, Quantity: 3})

	assert.Equal(t, model.StatusPending, o.Status)
	assert.False(t, o.IsPaid)
	assert.False(t, o.IsDelivered)
	assert.Equal(t, jane.ID, o.UserID)
	assert.Equal(t, 38.0, o.TotalPrice)
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Desk lamp", o.Items[0].Name)
	assert.Equal(t, 12.5, o.Items[0].Price)
	assert.Equal(t, 2, env.stock(t, p.ID))
	env.events.AssertCalled(t, "OrderPlaced", mock.Anything, o)
}

func TestCreateOrder_SecondOrderExceedingRemainingStockFails(t *testing.T) {
	env := newTestEnv(t)
	env.events.On("OrderPlaced", mock.Anything, mock.Anything).Return(nil)
	p := env.product(t, "Desk lamp", 5, 10)

	env.placeOrder(t, customer("A"), OrderItemInput{ProductID: p.ID, Quantity: 3})
	_, err := env.orders.CreateOrder(context.Background(), customer("B"), orderInput(OrderItemInput{ProductID: p.ID, Quantity: 3}))

	requireKind(t, err, apperr.KindValidation, "INSUFFICIENT_STOCK")
	assert.Equal(t, 2, env.stock(t, p.ID))
}

func TestCreateOrder_LaterFailureLeavesNoEarlierDecrement(t *testing.T) {
	env := newTestEnv(t)
	lamp := env.product(t, "Desk lamp", 5, 10)
	bulb := env.product(t, "Bulb", 1, 2)
	chair := env.product(t, "Chair", 4, 40)

	_, err := env.orders.CreateOrder(context.Background(), customer("Jane"), orderInput(
		OrderItemInput{ProductID: lamp.ID, Quantity: 2},
		OrderItemInput{ProductID: chair.ID, Quantity: 1},
		OrderItemInput{ProductID: bulb.ID, Quantity: 2},
	))

	requireKind(t, err, apperr.KindValidation, "INSUFFICIENT_STOCK")
	assert.Equal(t, 5, env.stock(t, lamp.ID))
	assert.Equal(t, 4, env.stock(t, chair.ID))
	assert.Equal(t, 1, env.stock(t, bulb.ID))
	env.events.AssertNotCalled(t, "OrderPlaced", mock.Anything, mock.Anything)

	n, err := env.store.Orders.Count(context.Background(), repository.OrderFilter{})
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestCreateOrder_FirstItemShortChangesNothing(t *testing.T) {
	env := newTestEnv(t)
	lamp := env.product(t, "Desk lamp", 1, 10)

	_, err := env.orders.CreateOrder(context.Background(), customer("Jane"), orderInput(OrderItemInput{ProductID: lamp.ID, Quantity: 2}))

	requireKind(t, err, apperr.KindValidation, "INSUFFICIENT_STOCK")
	assert.Equal(t, 1, env.stock(t, lamp.ID))
}

func TestCreateOrder_UnknownProductRestocksEarlierLines(t *testing.T) {
	env := newTestEnv(t)
	lamp := env.product(t, "Desk lamp", 5, 10)

	_, err := env.orders.CreateOrder(context.Background(), customer("Jane"), orderInput(
		OrderItemInput{ProductID: lamp.ID, Quantity: 2},
		OrderItemInput{ProductID: primitive.NewObjectID(), Quantity: 1},
	))

	requireKind(t, err, apperr.KindNotFound, "")
	assert.Equal(t, 5, env.stock(t, lamp.ID))
}

type countingProducts struct {
	*memrepo.ProductRepository
	increments int
}

func (c *countingProducts) IncrementStock(ctx context.Context, id primitive.ObjectID, n int) error {
	c.increments++
	return c.ProductRepository.IncrementStock(ctx, id, n)
}

// rollbackTx restores the stock of the given products when the work fails.
type rollbackTx struct {
	products *memrepo.ProductRepository
	ids      []primitive.ObjectID
}

func (rollbackTx) Transactional() bool { return true }

func (tx rollbackTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	saved := map[primitive.ObjectID]int{}
	for _, id := range tx.ids {
		p, err := tx.products.FindByID(ctx, id)
		if err != nil {
			return err
		}
		saved[id] = p.Quantity
	}
	if err := fn(ctx); err != nil {
		for id, qty := range saved {
			if _, uerr := tx.products.Update(ctx, id, repository.ProductUpdate{Quantity: &qty}); uerr != nil {
				return uerr
			}
		}
		return err
	}
	return nil
}

func TestCreateOrder_RollbackSkipsCompensation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	lamp := env.product(t, "Desk lamp", 5, 10)
	bulb := env.product(t, "Bulb", 1, 2)
	in := orderInput(
		OrderItemInput{ProductID: lamp.ID, Quantity: 2},
		OrderItemInput{ProductID: bulb.ID, Quantity: 2},
	)
	products := &countingProducts{ProductRepository: env.store.Products}

	tx := rollbackTx{products: env.store.Products, ids: []primitive.ObjectID{lamp.ID, bulb.ID}}
	orders := NewOrderService(env.store.Orders, products, env.store.Users, tx, env.images, env.events, logger.Discard())
	_, err := orders.CreateOrder(ctx, customer("Jane"), in)
	requireKind(t, err, apperr.KindValidation, "INSUFFICIENT_STOCK")
	assert.Equal(t, 5, env.stock(t, lamp.ID))
	assert.Equal(t, 1, env.stock(t, bulb.ID))
	assert.Zero(t, products.increments, "rolled back work needs no compensation")

	orders = NewOrderService(env.store.Orders, products, env.store.Users, env.store.Tx, env.images, env.events, logger.Discard())
	_, err = orders.CreateOrder(ctx, customer("Jane"), in)
	requireKind(t, err, apperr.KindValidation, "INSUFFICIENT_STOCK")
	assert.Equal(t, 5, env.stock(t, lamp.ID))
	assert.Equal(t, 1, products.increments)
}

func TestCreateOrder_Validation(t *testing.T) {
	env := newTestEnv(t)
	p := env.product(t, "Desk lamp", 5, 10)
	jane := customer("Jane")
	ctx := context.Background()

	_, err := env.orders.CreateOrder(ctx, jane, orderInput())
	requireKind(t, err, apperr.KindValidation, "NO_ITEMS")

	in := orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1})
	in.PaymentMethod = "  "
	_, err = env.orders.CreateOrder(ctx, jane, in)
	requireKind(t, err, apperr.KindValidation, "INVALID_PAYMENT")

	in = orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1})
	in.ShippingAddress = model.ShippingAddress{}
	_, err = env.orders.CreateOrder(ctx, jane, in)
	requireKind(t, err, apperr.KindValidation, "INVALID_SHIPPING")

	in = orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1})
	in.TaxPrice = -1
	_, err = env.orders.CreateOrder(ctx, jane, in)
	requireKind(t, err, apperr.KindValidation, "INVALID_PRICE")

	_, err = env.orders.CreateOrder(ctx, Actor{}, orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1}))
	requireKind(t, err, apperr.KindAuthentication, "")

	assert.Equal(t, 5, env.stock(t, p.ID))
}

func TestCreateOrder_NotificationFailureKeepsOrder(t *testing.T) {
	env := newTestEnv(t)
	env.events.On("OrderPlaced", mock.Anything, mock.Anything).Return(errors.New("broker down"))
	p := env.product(t, "Desk lamp", 5, 10)

	o, err := env.orders.CreateOrder(context.Background(), customer("Jane"), orderInput(OrderItemInput{ProductID: p.ID, Quantity: 1}))
	require.NoError(t, err)
	assert.False(t, o.ID.IsZero())
	assert.Equal(t, 4, env.stock(t, p.ID))
}

func TestCancelOrder(t *testing.T) {
	env := newTestEnv(t)
	env.events.On("OrderPlaced", mock.Anything, mock.Anything).Return(nil)
	p := env.product(t, "Desk lamp", 5, 10)
	jane := customer("Jane")
	ctx := context.Background()

	t.Run("pending order is cancelled with details", func(t *testing.T) {
		o := env.placeOrder(t, jane, OrderItemInput{ProductID: p.ID, Quantity: 1})

		got, err := env.orders.CancelOrder(ctx, jane, o.ID, "")
		require.NoError(t, err)
		assert.Equal(t, model.StatusCancelled, got.Status)
		require.NotNil(t, got.Cancellation)
		assert.Equal(t, "Cancelled by user", got.Cancellation.Reason)
		assert.Equal(t, jane.ID, got.Cancellation.CancelledBy)
		assert.WithinDuration(t, time.Now(), got.Cancellation.CancelledAt, time.Minute)

		_, err = env.orders.CancelOrder(ctx, jane, o.ID, "again")
		requireKind(t, err, apperr.KindValidation, "ALREADY_CANCELLED")
	})

	t.Run("shipped order cannot be cancelled", func(t *testing.T) {
		o := env.placeOrder(t, jane, OrderItemInput{ProductID: p.ID, Quantity: 1})
		_, err := env.orders.UpdateStatus(ctx, admin(), o.ID, model.StatusShipped, false)
		require.NoError(t, err)

		_, err = env.orders.CancelOrder(ctx, jane, o.ID, "")
		requireKind(t, err, apperr.KindValidation, "NOT_PENDING")
	})

	t.Run("another user is forbidden, admin is allowed", func(t *testing.T) {
		o := env.placeOrder(t, jane, OrderItemInput{ProductID: p.ID, Quantity: 1})

		_, err := env.orders.CancelOrder(ctx, customer("Mallory"), o.ID, "")
		requireKind(t, err, apperr.KindAuthorization, "")

		boss := admin()
		got, err := env.orders.CancelOrder(ctx, boss, o.ID, "Out of stock")
		require.NoError(t, err)
		assert.Equal(t, "Out of stock", got.Cancellation.Reason)
		assert.Equal(t, boss.ID, got.Cancellation.CancelledBy)
	})

	t.Run("missing order and anonymous caller", func(t *testing.T) {
		_, err := env.orders.CancelOrder(ctx, jane, primitive.NewObjectID(), "")
		requireKind(t, err, apperr.KindNotFound, "")

		_, err = env.orders.CancelOrder(ctx, Actor{}, primitive.NewObjectID(), "")
		requireKind(t, err, apperr.KindAuthentication, "")
	})

	t.Run("cancelling does not restock", func(t *testing.T) {
		before := env.stock(t, p.ID)
		o := env.placeOrder(t, jane, OrderItemInput{ProductID: p.ID, Quantity: 1})
		_, err := env.orders.CancelOrder(ctx, jane, o.ID, "")
		require.NoError(t, err)
		assert.Equal(t, before-1, env.stock(t, p.ID))
	})
}

func TestUpdateStatus(t *testing.T) {
	env := newTestEnv(t)
	env.events.On("OrderPlaced", mock.Anything, mock.Anything).Return(nil)
	p := env.product(t, "Desk lamp", 50, 10)
	jane := customer("Jane")
	boss := admin()
	ctx := context.Background()

	t.Run("rejects values outside the allow-list in any state", func(t *testing.T) {
		o := env.placeOrder(t, jane, OrderItemInput{ProductID: p.ID, Quantity: 1})
		for _, bad := range []model.OrderStatus{"Lost", "", "pending", "Returned"} {
			_, err := env.orders.UpdateStatus(ctx, boss, o.ID, bad, false)
			requireKind(t, err, apperr.KindValidation, "INVALID_STATUS")
			_, err = env.orders.UpdateStatus(ctx, boss, o.ID, bad, true)
			requireKind(t, err, apperr.KindValidation, "INVALID_STATUS")
		}
	})

	t.Run("follows the transition table", func(t *testing.T) {
		o := env.placeOrder(t, jane, OrderItemInput{ProductID: p.ID, Quantity: 1})

		_, err := env.orders.UpdateStatus(ctx, boss, o.ID, model.StatusDelivered, false)
		requireKind(t, err, apperr.KindConflict, "ILLEGAL_TRANSITION")

		got, err := env.orders.UpdateStatus(ctx, boss, o.ID, model.StatusShipped, false)
		require.NoError(t, err)
		assert.Equal(t, model.StatusShipped, got.Status)

		got, err = env.orders.UpdateStatus(ctx, boss, o.ID, model.StatusDelivered, false)
		require.NoError(t, err)
		assert.True(t, got.IsDelivered)
		require.NotNil(t, got.DeliveredAt)

		_, err = env.orders.UpdateStatus(ctx, boss, o.ID, model.StatusPending, false)
		requireKind(t, err, apperr.KindConflict, "ILLEGAL_TRANSITION")
	})

	t.Run("force overrides the table", func(t *testing.T) {
		o := env.placeOrder(t, jane, OrderItemInput{ProductID: p.ID, Quantity: 1})
		_, err := env.orders.CancelOrder(ctx, jane, o.ID, "")
		require.NoError(t, err)

		got, err := env.orders.UpdateStatus(ctx, boss, o.ID, model.StatusPending, true)
		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, got.Status)
	})

	t.Run("same status is a no-op", func(t *testing.T) {
		o := env.placeOrder(t, jane, OrderItemInput{ProductID: p.ID, Quantity: 1})
		got, err := env.orders.UpdateStatus(ctx, boss, o.ID, model.StatusPending, false)
		require.NoError(t, err)
		assert.Equal(t, model.StatusPending, got.Status)
		assert.Nil(t, got.DeliveredAt)
	})

	t.Run("admin only and 404", func(t *testing.T) {
		o := env.placeOrder(t, jane, OrderItemInput{ProductID: p.ID, Quantity: 1})
		_, err := env.orders.UpdateStatus(ctx, jane, o.ID, model.StatusShipped, false)
		requireKind(t, err, apperr.KindAuthorization, "")

		_, err = env.orders.UpdateStatus(ctx, boss, primitive.NewObjectID(), model.StatusShipped, false)
		requireKind(t, err, apperr.KindNotFound, "")
	})
}

func TestTracking(t *testing.T) {
	env := newTestEnv(t)
	env.events.On("OrderPlaced", mock.Anything, mock.Anything).Return(nil)
	p := env.product(t, "Desk lamp", 5, 10)
	jane := customer("Jane")
	boss := admin()
	ctx := context.Background()
	o := env.placeOrder(t, jane, OrderItemInput{ProductID: p.ID, Quantity: 1})

	tr, err := env.orders.GetTracking(ctx, jane, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "Not Assigned", tr.Carrier)
	assert.Equal(t, "N/A", tr.TrackingNumber)
	assert.Nil(t, tr.EstimatedDelivery)
	assert.Empty(t, tr.TrackingTimeline)

	_, err = env.orders.AddTrackingUpdate(ctx, boss, o.ID, "In Transit", "Left the warehouse")
	require.NoError(t, err)
	timeline, err := env.orders.AddTrackingUpdate(ctx, boss, o.ID, "Out for Delivery", "On the truck")
	require.NoError(t, err)
	require.Len(t, timeline, 2)
	assert.Equal(t, "In Transit", timeline[0].Status)
	assert.Equal(t, "Out for Delivery", timeline[1].Status)

	eta := time.Now().Add(48 * time.Hour).UTC()
	_, err = env.orders.SetTrackingInfo(ctx, boss, o.ID, repository.TrackingInfo{Carrier: "UPS", TrackingNumber: "1Z999", EstimatedDelivery: &eta})
	require.NoError(t, err)

	tr, err = env.orders.GetTracking(ctx, jane, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "UPS", tr.Carrier)
	assert.Equal(t, "1Z999", tr.TrackingNumber)
	assert.Equal(t, model.StatusPending, tr.Status, "timeline entries do not move the order status")

	_, err = env.orders.AddTrackingUpdate(ctx, boss, primitive.NewObjectID(), "In Transit", "x")
	requireKind(t, err, apperr.KindNotFound, "")

	_, err = env.orders.GetTracking(ctx, customer("Mallory"), o.ID)
	requireKind(t, err, apperr.KindAuthorization, "")
}

func TestProjectionAndExtensions(t *testing.T) {
	env := newTestEnv(t)
	env.events.On("OrderPlaced", mock.Anything, mock.Anything).Return(nil)
	p := env.product(t, "Desk lamp", 5, 10)
	jane := customer("Jane")
	boss := admin()
	ctx := context.Background()
	o := env.placeOrder(t, jane, OrderItemInput{ProductID: p.ID, Quantity: 1})

	total, err := env.orders.Projection(ctx, jane, o.ID, ProjectionTotal)
	require.NoError(t, err)
	assert.Equal(t, TotalView{ItemsPrice: 30, TaxPrice: 3, ShippingPrice: 5, TotalPrice: 38}, total)

	gift, err := env.orders.Projection(ctx, jane, o.ID, string(model.ExtGift))
	require.NoError(t, err)
	assert.Nil(t, gift)

	_, err = env.orders.SetExtension(ctx, boss, o.ID, model.ExtGift, &model.GiftDetails{IsGift: true, Message: "Happy birthday"})
	require.NoError(t, err)
	gift, err = env.orders.Projection(ctx, jane, o.ID, string(model.ExtGift))
	require.NoError(t, err)
	assert.Equal(t, "Happy birthday", gift.(*model.GiftDetails).Message)

	_, err = env.orders.SetExtension(ctx, boss, o.ID, model.ExtCancellation, &model.CancellationDetails{})
	requireKind(t, err, apperr.KindValidation, "")
	_, err = env.orders.SetExtension(ctx, boss, o.ID, model.ExtTax, &model.GiftDetails{})
	requireKind(t, err, apperr.KindValidation, "INVALID_EXTENSION")

	_, err = env.orders.Projection(ctx, jane, primitive.NewObjectID(), ProjectionPayment)
	requireKind(t, err, apperr.KindNotFound, "")
}

func TestAttachReturnImage(t *testing.T) {
	env := newTestEnv(t)
	env.events.On("OrderPlaced", mock.Anything, mock.Anything).Return(nil)
	p := env.product(t, "Desk lamp", 5, 10)
	jane := customer("Jane")
	o := env.placeOrder(t, jane, OrderItemInput{ProductID: p.ID, Quantity: 1})

	got, err := env.orders.AttachReturnImage(context.Background(), jane, o.ID, pngBytes)
	require.NoError(t, err)
	require.NotNil(t, got.Return)
	assert.Contains(t, got.Return.ImageURL, "http://cdn.test/returns/image-")

	_, err = env.orders.AttachReturnImage(context.Background(), jane, o.ID, []byte("plain text"))
	requireKind(t, err, apperr.KindValidation, "INVALID_IMAGE")
}

func TestListingAndStats(t *testing.T) {
	env := newTestEnv(t)
	env.events.On("OrderPlaced", mock.Anything, mock.Anything).Return(nil)
	p := env.product(t, "Desk lamp", 50, 10)
	jane, joe := customer("Jane"), customer("Joe")
	boss := admin()
	ctx := context.Background()

	env.placeOrder(t, jane, OrderItemInput{ProductID: p.ID, Quantity: 1})
	env.placeOrder(t, jane, OrderItemInput{ProductID: p.ID, Quantity: 1})
	last := env.placeOrder(t, joe, OrderItemInput{ProductID: p.ID, Quantity: 1})
	_, err := env.orders.UpdateStatus(ctx, boss, last.ID, model.StatusShipped, false)
	require.NoError(t, err)

	mine, err := env.orders.MyOrders(ctx, jane)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	_, _, err = env.orders.OrdersByUser(ctx, joe, jane.ID, repository.Page{})
	requireKind(t, err, apperr.KindAuthorization, "")

	page, total, err := env.orders.ListOrders(ctx, boss, repository.OrderFilter{}, repository.Page{Number: 1, Size: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.Equal(t, int64(3), total)

	shipped, _, err := env.orders.ListOrders(ctx, boss, repository.OrderFilter{Status: model.StatusShipped}, repository.Page{})
	require.NoError(t, err)
	require.Len(t, shipped, 1)
	assert.Equal(t, last.ID, shipped[0].ID)

	sum, err := env.orders.Summary(ctx, boss)
	require.NoError(t, err)
	assert.Equal(t, int64(3), sum.TotalOrders)
	assert.InDelta(t, 114.0, sum.TotalSales, 1e-9)

	stats, err := env.orders.Stats(ctx, boss)
	require.NoError(t, err)
	require.Len(t, stats, 2)

	require.NoError(t, env.orders.DeleteOrder(ctx, boss, last.ID))
	_, err = env.orders.GetOrder(ctx, boss, last.ID)
	requireKind(t, err, apperr.KindNotFound, "")
}

func TestInvoice(t *testing.T) {
	env := newTestEnv(t)
	env.events.On("OrderPlaced", mock.Anything, mock.Anything).Return(nil)
	p := env.product(t, "Desk lamp", 5, 10)
	jane := customer("Jane")
	o := env.placeOrder(t, jane, OrderItemInput{ProductID: p.ID, Quantity: 2})

	pdf, err := env.orders.Invoice(context.Background(), jane, o.ID)
	require.NoError(t, err)
	assert.Equal(t, "%PDF", string(pdf[:4]))
}
