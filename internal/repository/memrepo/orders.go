package memrepo

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront-api/internal/model"
	"storefront-api/internal/repository"
)

type OrderRepository struct {
	mu    sync.RWMutex
	items map[primitive.ObjectID]*model.Order
}

func (r *OrderRepository) Create(_ context.Context, o *model.Order) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if o.ID.IsZero() {
		o.ID = primitive.NewObjectID()
	}
	if o.TrackingTimeline == nil {
		o.TrackingTimeline = []model.TrackingEvent{}
	}
	o.CreatedAt, o.UpdatedAt = now(), now()
	r.items[o.ID] = cloneOrder(o)
	return nil
}

func (r *OrderRepository) FindByID(_ context.Context, id primitive.ObjectID) (*model.Order, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	o, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneOrder(o), nil
}

func (r *OrderRepository) FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*model.Order, error) {
	orders, _, err := r.List(ctx, repository.OrderFilter{UserID: userID}, repository.Page{})
	return orders, err
}

func (r *OrderRepository) List(_ context.Context, f repository.OrderFilter, page repository.Page) ([]*model.Order, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matched := r.match(f)
	total := int64(len(matched))
	if page.Size > 0 {
		start := int64(0)
		if page.Number > 1 {
			start = (page.Number - 1) * page.Size
		}
		if start > total {
			start = total
		}
		end := min(start+page.Size, total)
		matched = matched[start:end]
	}
	return matched, total, nil
}

func (r *OrderRepository) Count(_ context.Context, f repository.OrderFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.match(f))), nil
}

func (r *OrderRepository) match(f repository.OrderFilter) []*model.Order {
	out := []*model.Order{}
	for _, o := range r.items {
		if f.Status != "" && o.Status != f.Status {
			continue
		}
		if !f.UserID.IsZero() && o.UserID != f.UserID {
			continue
		}
		if f.From != nil && o.CreatedAt.Before(*f.From) {
			continue
		}
		if f.To != nil && o.CreatedAt.After(*f.To) {
			continue
		}
		out = append(out, cloneOrder(o))
	}
	newestFirst(out, func(o *model.Order) time.Time { return o.CreatedAt })
	return out
}

func (r *OrderRepository) UpdateStatus(_ context.Context, id primitive.ObjectID, expected, next model.OrderStatus) (*model.Order, error) {
	return r.mutateIf(id, expected, func(o *model.Order) {
		o.Status = next
		if next == model.StatusDelivered {
			t := now()
			o.IsDelivered = true
			o.DeliveredAt = &t
		}
	})
}

func (r *OrderRepository) Cancel(_ context.Context, id primitive.ObjectID, details model.CancellationDetails) (*model.Order, error) {
	return r.mutateIf(id, model.StatusPending, func(o *model.Order) {
		o.Status = model.StatusCancelled
		o.Cancellation = &details
	})
}

func (r *OrderRepository) mutateIf(id primitive.ObjectID, expected model.OrderStatus, fn func(*model.Order)) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if o.Status != expected {
		return nil, repository.ErrStatusChanged
	}
	fn(o)
	o.UpdatedAt = now()
	return cloneOrder(o), nil
}

func (r *OrderRepository) mutate(id primitive.ObjectID, fn func(*model.Order)) (*model.Order, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	o, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	fn(o)
	o.UpdatedAt = now()
	return cloneOrder(o), nil
}

func (r *OrderRepository) AppendTracking(_ context.Context, id primitive.ObjectID, ev model.TrackingEvent) (*model.Order, error) {
	return r.mutate(id, func(o *model.Order) {
		o.TrackingTimeline = append(o.TrackingTimeline, ev)
	})
}

func (r *OrderRepository) SetTrackingInfo(_ context.Context, id primitive.ObjectID, info repository.TrackingInfo) (*model.Order, error) {
	return r.mutate(id, func(o *model.Order) {
		o.Carrier = info.Carrier
		o.TrackingNumber = info.TrackingNumber
		o.EstimatedDelivery = nil
		if info.EstimatedDelivery != nil {
			eta := *info.EstimatedDelivery
			o.EstimatedDelivery = &eta
		}
	})
}

func (r *OrderRepository) SetExtension(_ context.Context, id primitive.ObjectID, kind model.ExtensionKind, record any) (*model.Order, error) {
	var probe model.Extensions
	if !probe.Set(kind, record) {
		return nil, repository.ErrInvalidExtension
	}
	return r.mutate(id, func(o *model.Order) {
		o.Extensions.Set(kind, record)
	})
}

func (r *OrderRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *OrderRepository) Stats(_ context.Context) ([]repository.StatusStat, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	byStatus := map[model.OrderStatus]*repository.StatusStat{}
	for _, o := range r.items {
		s, ok := byStatus[o.Status]
		if !ok {
			s = &repository.StatusStat{Status: o.Status}
			byStatus[o.Status] = s
		}
		s.Count++
		s.TotalSales += o.TotalPrice
	}
	out := make([]repository.StatusStat, 0, len(byStatus))
	for _, s := range byStatus {
		out = append(out, *s)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Status < out[j].Status })
	return out, nil
}

func (r *OrderRepository) Summary(_ context.Context) (repository.OrderSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var s repository.OrderSummary
	for _, o := range r.items {
		s.TotalOrders++
		s.TotalSales += o.TotalPrice
	}
	return s, nil
}

func cloneOrder(o *model.Order) *model.Order {
	cp := *o
	cp.Items = append([]model.LineItem{}, o.Items...)
	cp.TrackingTimeline = append([]model.TrackingEvent{}, o.TrackingTimeline...)
	cp.Extensions = cloneExtensions(o.Extensions)
	return &cp
}

func cloneExtensions(e model.Extensions) model.Extensions {
	return model.Extensions{
		Cancellation: clonePtr(e.Cancellation),
		Refund:       clonePtr(e.Refund),
		Return:       clonePtr(e.Return),
		Exchange:     clonePtr(e.Exchange),
		Gift:         clonePtr(e.Gift),
		Discount:     clonePtr(e.Discount),
		Promotion:    clonePtr(e.Promotion),
		Coupon:       clonePtr(e.Coupon),
		Tax:          clonePtr(e.Tax),
	}
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	cp := *p
	return &cp
}
