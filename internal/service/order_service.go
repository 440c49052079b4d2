package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront-api/internal/apperr"
	"storefront-api/internal/logger"
	"storefront-api/internal/model"
	"storefront-api/internal/report"
	"storefront-api/internal/repository"
	"storefront-api/internal/storage"
)

const defaultCancelReason = "Cancelled by user"

type OrderItemInput struct {
	ProductID primitive.ObjectID
	Quantity  int
}

type CreateOrderInput struct {
	Items           []OrderItemInput
	ShippingAddress model.ShippingAddress
	PaymentMethod   string
	ItemsPrice      float64
	TaxPrice        float64
	ShippingPrice   float64
	TotalPrice      float64
}

// Tracking is the shipment view of an order.
type Tracking struct {
	Status            model.OrderStatus     `json:"status"`
	Carrier           string                `json:"carrier"`
	TrackingNumber    string                `json:"trackingNumber"`
	EstimatedDelivery *time.Time            `json:"estimatedDelivery"`
	TrackingTimeline  []model.TrackingEvent `json:"trackingTimeline"`
}

type PaymentView struct {
	PaymentMethod string     `json:"paymentMethod"`
	IsPaid        bool       `json:"isPaid"`
	PaidAt        *time.Time `json:"paidAt"`
}

type TotalView struct {
	ItemsPrice    float64 `json:"itemsPrice"`
	TaxPrice      float64 `json:"taxPrice"`
	ShippingPrice float64 `json:"shippingPrice"`
	TotalPrice    float64 `json:"totalPrice"`
}

// Order projections besides the extension kinds.
const (
	ProjectionPayment  = "payment"
	ProjectionShipping = "shipping"
	ProjectionItems    = "items"
	ProjectionTotal    = "total"
)

type OrderService struct {
	orders   OrderRepository
	products ProductRepository
	users    UserRepository
	tx       TxManager
	images   ImageStore
	events   OrderEvents
	log      *slog.Logger
}

func NewOrderService(orders OrderRepository, products ProductRepository, users UserRepository, tx TxManager, images ImageStore, events OrderEvents, log *slog.Logger) *OrderService {
	return &OrderService{
		orders:   orders,
		products: products,
		users:    users,
		tx:       tx,
		images:   images,
		events:   events,
		log:      log,
	}
}

func (s *OrderService) logger(ctx context.Context) *slog.Logger {
	return logger.FromContext(ctx, s.log)
}

func validateOrderInput(in CreateOrderInput) error {
	if len(in.Items) == 0 {
		return apperr.Validation("NO_ITEMS", "No order items")
	}
	for _, it := range in.Items {
		if it.ProductID.IsZero() {
			return apperr.Validation("INVALID_ID", "Invalid product id")
		}
		if it.Quantity < 1 {
			return apperr.Validation("INVALID_QUANTITY", "Quantity must be at least 1")
		}
	}
	a := in.ShippingAddress
	if strings.TrimSpace(a.Address) == "" || strings.TrimSpace(a.City) == "" ||
		strings.TrimSpace(a.PostalCode) == "" || strings.TrimSpace(a.Country) == "" {
		return apperr.Validation("INVALID_SHIPPING", "Shipping address is required")
	}
	if strings.TrimSpace(in.PaymentMethod) == "" {
		return apperr.Validation("INVALID_PAYMENT", "Payment method is required")
	}
	for _, p := range []float64{in.ItemsPrice, in.TaxPrice, in.ShippingPrice, in.TotalPrice} {
		if p < 0 {
			return apperr.Validation("INVALID_PRICE", "Prices must not be negative")
		}
	}
	return nil
}

// CreateOrder takes stock for every line and stores the order as Pending.
// Either every decrement and the insert take effect or none of them do.
func (s *OrderService) CreateOrder(ctx context.Context, actor Actor, in CreateOrderInput) (*model.Order, error) {
	if !actor.Authenticated() {
		return nil, apperr.Authentication("Not authorized, no token")
	}
	if err := validateOrderInput(in); err != nil {
		return nil, err
	}

	var order *model.Order
	err := s.tx.WithinTransaction(ctx, func(ctx context.Context) error {
		var taken []OrderItemInput
		lines, err := s.takeStock(ctx, in.Items, &taken)
		if err != nil {
			s.restock(ctx, taken)
			return err
		}

		a := in.ShippingAddress
		order = &model.Order{
			UserID: actor.ID,
			Items:  lines,
			ShippingAddress: model.ShippingAddress{
				FullName:   strings.TrimSpace(a.FullName),
				Phone:      strings.TrimSpace(a.Phone),
				Address:    strings.TrimSpace(a.Address),
				City:       strings.TrimSpace(a.City),
				PostalCode: strings.TrimSpace(a.PostalCode),
				Country:    strings.TrimSpace(a.Country),
			},
			PaymentMethod: strings.TrimSpace(in.PaymentMethod),
			ItemsPrice:    in.ItemsPrice,
			TaxPrice:      in.TaxPrice,
			ShippingPrice: in.ShippingPrice,
			TotalPrice:    in.TotalPrice,
			Status:        model.StatusPending,
		}
		if err := s.orders.Create(ctx, order); err != nil {
			s.restock(ctx, taken)
			return storeErr(err, "Order")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger(ctx).Info("order placed", "order_id", order.ID.Hex(), "user_id", actor.ID.Hex(), "items", len(order.Items))
	if err := s.events.OrderPlaced(ctx, order); err != nil {
		s.logger(ctx).Warn("order placed notification failed", "order_id", order.ID.Hex(), "error", err)
	}
	return order, nil
}

// takeStock decrements stock line by line, recording each success in taken.
func (s *OrderService) takeStock(ctx context.Context, items []OrderItemInput, taken *[]OrderItemInput) ([]model.LineItem, error) {
	lines := make([]model.LineItem, 0, len(items))
	for _, it := range items {
		p, err := s.products.FindByID(ctx, it.ProductID)
		if err != nil {
			return nil, storeErr(err, "Product")
		}
		if p.Quantity < it.Quantity {
			return nil, insufficientStock(p.Name)
		}
		if err := s.products.DecrementStock(ctx, p.ID, it.Quantity); err != nil {
			if errors.Is(err, repository.ErrInsufficientStock) {
				return nil, insufficientStock(p.Name)
			}
			return nil, storeErr(err, "Product")
		}
		*taken = append(*taken, it)
		lines = append(lines, model.LineItem{
			ProductID: p.ID,
			Name:      p.Name,
			Quantity:  it.Quantity,
			Price:     p.Price,
		})
	}
	return lines, nil
}

// restock gives back stock taken by a failed order. A transactional tx
// manager already undoes the decrements, so there is nothing to give back.
func (s *OrderService) restock(ctx context.Context, taken []OrderItemInput) {
	if rollsBack(s.tx) {
		s.logger(ctx).Debug("order rolled back, skipping stock compensation", "lines", len(taken))
		return
	}
	for _, it := range taken {
		if err := s.products.IncrementStock(ctx, it.ProductID, it.Quantity); err != nil {
			s.logger(ctx).Error("stock compensation failed",
				"product_id", it.ProductID.Hex(), "quantity", it.Quantity, "error", err)
			continue
		}
		s.logger(ctx).Info("stock compensated", "product_id", it.ProductID.Hex(), "quantity", it.Quantity)
	}
}

func insufficientStock(name string) error {
	return apperr.Validationf("INSUFFICIENT_STOCK", "Insufficient stock for %s", name)
}

// GetOrder returns the order when the actor owns it or is an admin.
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, id primitive.ObjectID) (*model.Order, error) {
	if !actor.Authenticated() {
		return nil, apperr.Authentication("Not authorized, no token")
	}
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "Order")
	}
	if !actor.CanAccess(o.UserID) {
		return nil, apperr.Authorization("Not authorized to access this order")
	}
	return o, nil
}

// UpdateStatus applies an admin status change. Moves outside the
// transition table are refused unless force is set.
func (s *OrderService) UpdateStatus(ctx context.Context, actor Actor, id primitive.ObjectID, next model.OrderStatus, force bool) (*model.Order, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !next.Valid() {
		return nil, apperr.Validation("INVALID_STATUS", "Invalid status value")
	}

	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "Order")
	}
	current := o.Status
	if current == next {
		return o, nil
	}

	log := s.logger(ctx).With("order_id", id.Hex(), "from", string(current), "to", string(next), "admin_id", actor.ID.Hex())
	if !current.CanTransitionTo(next) {
		if !force {
			return nil, apperr.Conflict("ILLEGAL_TRANSITION",
				fmt.Sprintf("Cannot change order status from %s to %s", current, next))
		}
		log.Warn("forced order status transition")
	} else {
		log.Info("order status changed")
	}

	updated, err := s.orders.UpdateStatus(ctx, id, current, next)
	if errors.Is(err, repository.ErrStatusChanged) {
		return nil, apperr.Conflict("STATUS_CHANGED", "Order status was changed by another request")
	}
	if err != nil {
		return nil, storeErr(err, "Order")
	}
	return updated, nil
}

// CancelOrder cancels a pending order. Stock taken by the order is not
// returned.
func (s *OrderService) CancelOrder(ctx context.Context, actor Actor, id primitive.ObjectID, reason string) (*model.Order, error) {
	if !actor.Authenticated() {
		return nil, apperr.Authentication("Not authorized, no token")
	}
	o, err := s.orders.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "Order")
	}
	if !actor.CanAccess(o.UserID) {
		return nil, apperr.Authorization("Not authorized to cancel this order")
	}
	if err := cancellable(o.Status); err != nil {
		return nil, err
	}

	reason = strings.TrimSpace(reason)
	if reason == "" {
		reason = defaultCancelReason
	}
	details := model.CancellationDetails{
		Reason:      reason,
		CancelledBy: actor.ID,
		CancelledAt: time.Now().UTC(),
	}

	updated, err := s.orders.Cancel(ctx, id, details)
	if errors.Is(err, repository.ErrStatusChanged) {
		// Lost a race; report against the state that won.
		if latest, ferr := s.orders.FindByID(ctx, id); ferr == nil {
			if cerr := cancellable(latest.Status); cerr != nil {
				return nil, cerr
			}
		}
		return nil, apperr.Validation("NOT_PENDING", "Only pending orders can be cancelled")
	}
	if err != nil {
		return nil, storeErr(err, "Order")
	}
	s.logger(ctx).Info("order cancelled", "order_id", id.Hex(), "by", actor.ID.Hex())
	return updated, nil
}

func cancellable(status model.OrderStatus) error {
	switch status {
	case model.StatusCancelled:
		return apperr.Validation("ALREADY_CANCELLED", "Order is already cancelled")
	case model.StatusPending:
		return nil
	default:
		return apperr.Validation("NOT_PENDING", "Only pending orders can be cancelled")
	}
}

// AddTrackingUpdate appends a shipment event and returns the timeline.
func (s *OrderService) AddTrackingUpdate(ctx context.Context, actor Actor, id primitive.ObjectID, status, message string) ([]model.TrackingEvent, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	status, message = strings.TrimSpace(status), strings.TrimSpace(message)
	if status == "" || message == "" {
		return nil, apperr.Validation("INVALID_TRACKING", "Status and message are required")
	}
	o, err := s.orders.AppendTracking(ctx, id, model.TrackingEvent{
		Status:    status,
		Message:   message,
		Timestamp: time.Now().UTC(),
	})
	if err != nil {
		return nil, storeErr(err, "Order")
	}
	return o.TrackingTimeline, nil
}

func (s *OrderService) SetTrackingInfo(ctx context.Context, actor Actor, id primitive.ObjectID, info repository.TrackingInfo) (*model.Order, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	info.Carrier = strings.TrimSpace(info.Carrier)
	info.TrackingNumber = strings.TrimSpace(info.TrackingNumber)
	if info.Carrier == "" && info.TrackingNumber == "" {
		return nil, apperr.Validation("INVALID_TRACKING", "Carrier or tracking number is required")
	}
	o, err := s.orders.SetTrackingInfo(ctx, id, info)
	return o, storeErr(err, "Order")
}

func (s *OrderService) GetTracking(ctx context.Context, actor Actor, id primitive.ObjectID) (*Tracking, error) {
	o, err := s.GetOrder(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	t := &Tracking{
		Status:            o.Status,
		Carrier:           o.Carrier,
		TrackingNumber:    o.TrackingNumber,
		EstimatedDelivery: o.EstimatedDelivery,
		TrackingTimeline:  o.TrackingTimeline,
	}
	if t.Carrier == "" {
		t.Carrier = "Not Assigned"
	}
	if t.TrackingNumber == "" {
		t.TrackingNumber = "N/A"
	}
	if t.TrackingTimeline == nil {
		t.TrackingTimeline = []model.TrackingEvent{}
	}
	return t, nil
}

// Projection returns one named part of an order. Extension kinds that were
// never set come back as nil.
func (s *OrderService) Projection(ctx context.Context, actor Actor, id primitive.ObjectID, name string) (any, error) {
	o, err := s.GetOrder(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	switch name {
	case ProjectionPayment:
		return PaymentView{PaymentMethod: o.PaymentMethod, IsPaid: o.IsPaid, PaidAt: o.PaidAt}, nil
	case ProjectionShipping:
		return o.ShippingAddress, nil
	case ProjectionItems:
		return o.Items, nil
	case ProjectionTotal:
		return TotalView{
			ItemsPrice:    o.ItemsPrice,
			TaxPrice:      o.TaxPrice,
			ShippingPrice: o.ShippingPrice,
			TotalPrice:    o.TotalPrice,
		}, nil
	}
	if kind := model.ExtensionKind(name); kind.Valid() {
		return o.Extensions.Get(kind), nil
	}
	return nil, apperr.Validationf("UNKNOWN_PROJECTION", "Unknown order field %q", name)
}

// SetExtension stores one extension record. Cancellation records are only
// written by CancelOrder.
func (s *OrderService) SetExtension(ctx context.Context, actor Actor, id primitive.ObjectID, kind model.ExtensionKind, record any) (*model.Order, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	if !kind.Valid() {
		return nil, apperr.Validationf("UNKNOWN_EXTENSION", "Unknown extension %q", kind)
	}
	if kind == model.ExtCancellation {
		return nil, apperr.Validation("UNKNOWN_EXTENSION", "Cancellation details are set by cancelling the order")
	}
	o, err := s.orders.SetExtension(ctx, id, kind, record)
	if errors.Is(err, repository.ErrInvalidExtension) {
		return nil, apperr.Validation("INVALID_EXTENSION", "Record does not match extension kind")
	}
	return o, storeErr(err, "Order")
}

// AttachReturnImage stores a photo for the order's return request.
func (s *OrderService) AttachReturnImage(ctx context.Context, actor Actor, id primitive.ObjectID, data []byte) (*model.Order, error) {
	o, err := s.GetOrder(ctx, actor, id)
	if err != nil {
		return nil, err
	}

	img, err := s.images.Upload(ctx, storage.FolderReturns, data)
	if err != nil {
		return nil, imageErr(err)
	}

	rd := model.ReturnDetails{RequestedAt: time.Now().UTC()}
	if o.Return != nil {
		rd = *o.Return
	}
	previous := rd.ImageURL
	rd.ImageURL = img.URL

	updated, err := s.orders.SetExtension(ctx, id, model.ExtReturn, &rd)
	if err != nil {
		s.discardImage(ctx, img.PublicID)
		return nil, storeErr(err, "Order")
	}
	if previous != "" {
		s.logger(ctx).Info("return image replaced", "order_id", id.Hex(), "previous", previous)
	}
	return updated, nil
}

func (s *OrderService) discardImage(ctx context.Context, publicID string) {
	if err := s.images.Delete(ctx, publicID); err != nil {
		s.logger(ctx).Warn("orphaned image not deleted", "public_id", publicID, "error", err)
	}
}

func (s *OrderService) ListOrders(ctx context.Context, actor Actor, f repository.OrderFilter, page repository.Page) ([]*model.Order, int64, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, 0, err
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, 0, apperr.Validation("INVALID_STATUS", "Invalid status value")
	}
	orders, total, err := s.orders.List(ctx, f, page)
	if err != nil {
		return nil, 0, storeErr(err, "Order")
	}
	return orders, total, nil
}

func (s *OrderService) MyOrders(ctx context.Context, actor Actor) ([]*model.Order, error) {
	if !actor.Authenticated() {
		return nil, apperr.Authentication("Not authorized, no token")
	}
	orders, err := s.orders.FindByUser(ctx, actor.ID)
	return orders, storeErr(err, "Order")
}

// OrdersByUser pages through one user's orders; the user or an admin may ask.
func (s *OrderService) OrdersByUser(ctx context.Context, actor Actor, userID primitive.ObjectID, page repository.Page) ([]*model.Order, int64, error) {
	if !actor.Authenticated() {
		return nil, 0, apperr.Authentication("Not authorized, no token")
	}
	if !actor.CanAccess(userID) {
		return nil, 0, apperr.Authorization("Not authorized to view these orders")
	}
	orders, total, err := s.orders.List(ctx, repository.OrderFilter{UserID: userID}, page)
	if err != nil {
		return nil, 0, storeErr(err, "Order")
	}
	return orders, total, nil
}

func (s *OrderService) DeleteOrder(ctx context.Context, actor Actor, id primitive.ObjectID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.orders.Delete(ctx, id); err != nil {
		return storeErr(err, "Order")
	}
	s.logger(ctx).Info("order deleted", "order_id", id.Hex(), "admin_id", actor.ID.Hex())
	return nil
}

func (s *OrderService) Summary(ctx context.Context, actor Actor) (repository.OrderSummary, error) {
	if err := requireAdmin(actor); err != nil {
		return repository.OrderSummary{}, err
	}
	sum, err := s.orders.Summary(ctx)
	return sum, storeErr(err, "Order")
}

func (s *OrderService) Stats(ctx context.Context, actor Actor) ([]repository.StatusStat, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	stats, err := s.orders.Stats(ctx)
	return stats, storeErr(err, "Order")
}

// Invoice renders the order as a PDF.
func (s *OrderService) Invoice(ctx context.Context, actor Actor, id primitive.ObjectID) ([]byte, error) {
	o, err := s.GetOrder(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	customer, err := s.users.FindByID(ctx, o.UserID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, storeErr(err, "User")
	}
	pdf, err := report.Invoice(o, customer)
	if err != nil {
		return nil, apperr.Internal(err, "Could not render invoice")
	}
	return pdf, nil
}

// imageErr maps upload failures to client errors where the input is at fault.
func imageErr(err error) error {
	switch {
	case errors.Is(err, storage.ErrUnsupportedType):
		return apperr.Validation("INVALID_IMAGE", "Only jpg, jpeg, png and webp images are allowed")
	case errors.Is(err, storage.ErrEmpty):
		return apperr.Validation("IMAGE_REQUIRED", "Image is required")
	default:
		return apperr.Internal(err, "Image upload failed")
	}
}
