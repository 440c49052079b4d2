// Package memrepo keeps every collection in process memory. It backs
// STORE_DRIVER=memory and the service tests. Values are copied on the way
// in and out so callers never share state with the store.
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

// Store groups the in-memory repositories.
type Store struct {
	Products *ProductRepository
	Orders   *OrderRepository
	Users    *UserRepository
	Adverts  *AdvertRepository
	Carts    *CartRepository
	Tx       TxManager
}

func New() *Store {
	return &Store{
		Products: &ProductRepository{items: map[primitive.ObjectID]*model.Product{}},
		Orders:   &OrderRepository{items: map[primitive.ObjectID]*model.Order{}},
		Users:    &UserRepository{items: map[primitive.ObjectID]*model.User{}},
		Adverts:  &AdvertRepository{},
		Carts:    &CartRepository{items: map[primitive.ObjectID]*model.Cart{}},
	}
}

// TxManager runs work directly. The memory store has no rollback, so order
// creation relies on its compensation path here.
type TxManager struct{}

func (TxManager) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func now() time.Time {
	return time.Now().UTC()
}

func newestFirst[T any](items []*T, created func(*T) time.Time) {
	sort.SliceStable(items, func(i, j int) bool {
		return created(items[i]).After(created(items[j]))
	})
}

type ProductRepository struct {
	mu    sync.RWMutex
	items map[primitive.ObjectID]*model.Product
}

func (r *ProductRepository) Create(_ context.Context, p *model.Product) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID.IsZero() {
		p.ID = primitive.NewObjectID()
	}
	if p.Reviews == nil {
		p.Reviews = []model.Review{}
	}
	p.CreatedAt, p.UpdatedAt = now(), now()
	r.items[p.ID] = cloneProduct(p)
	return nil
}

func (r *ProductRepository) FindByID(_ context.Context, id primitive.ObjectID) (*model.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneProduct(p), nil
}

func (r *ProductRepository) List(_ context.Context, f repository.ProductFilter) ([]*model.Product, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*model.Product{}
	for _, p := range r.items {
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.Brand != "" && p.Brand != f.Brand {
			continue
		}
		out = append(out, cloneProduct(p))
	}
	newestFirst(out, func(p *model.Product) time.Time { return p.CreatedAt })
	return out, nil
}

func (r *ProductRepository) Update(_ context.Context, id primitive.ObjectID, u repository.ProductUpdate) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if u.Name != nil {
		p.Name = *u.Name
	}
	if u.Description != nil {
		p.Description = *u.Description
	}
	if u.Category != nil {
		p.Category = *u.Category
	}
	if u.Brand != nil {
		p.Brand = *u.Brand
	}
	if u.Price != nil {
		p.Price = *u.Price
	}
	if u.Quantity != nil {
		p.Quantity = *u.Quantity
	}
	if u.ImageURL != nil {
		p.ImageURL = *u.ImageURL
	}
	if u.ImagePublicID != nil {
		p.ImagePublicID = *u.ImagePublicID
	}
	p.UpdatedAt = now()
	return cloneProduct(p), nil
}

func (r *ProductRepository) Delete(_ context.Context, id primitive.ObjectID) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	delete(r.items, id)
	return cloneProduct(p), nil
}

func (r *ProductRepository) Count(_ context.Context) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.items)), nil
}

func (r *ProductRepository) DecrementStock(_ context.Context, id primitive.ObjectID, n int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	if p.Quantity < n {
		return repository.ErrInsufficientStock
	}
	p.Quantity -= n
	p.UpdatedAt = now()
	return nil
}

func (r *ProductRepository) IncrementStock(_ context.Context, id primitive.ObjectID, n int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	p.Quantity += n
	p.UpdatedAt = now()
	return nil
}

func (r *ProductRepository) AddReview(_ context.Context, productID primitive.ObjectID, review model.Review) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, ok := r.items[productID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if p.ReviewBy(review.UserID) != nil {
		return nil, repository.ErrAlreadyReviewed
	}
	p.Reviews = append(p.Reviews, review)
	p.RecomputeRatings()
	p.UpdatedAt = review.CreatedAt
	return cloneProduct(p), nil
}

func (r *ProductRepository) UpdateReview(_ context.Context, productID, reviewID primitive.ObjectID, patch repository.ReviewPatch) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, idx, err := r.review(productID, reviewID)
	if err != nil {
		return nil, err
	}
	rv := &p.Reviews[idx]
	if patch.Rating != nil {
		rv.Rating = *patch.Rating
	}
	if patch.Comment != nil {
		rv.Comment = *patch.Comment
	}
	rv.UpdatedAt = patch.UpdatedAt
	p.RecomputeRatings()
	p.UpdatedAt = patch.UpdatedAt
	return cloneProduct(p), nil
}

func (r *ProductRepository) RemoveReview(_ context.Context, productID, reviewID primitive.ObjectID) (*model.Product, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p, idx, err := r.review(productID, reviewID)
	if err != nil {
		return nil, err
	}
	p.Reviews = append(p.Reviews[:idx], p.Reviews[idx+1:]...)
	p.RecomputeRatings()
	p.UpdatedAt = now()
	return cloneProduct(p), nil
}

func (r *ProductRepository) review(productID, reviewID primitive.ObjectID) (*model.Product, int, error) {
	p, ok := r.items[productID]
	if !ok {
		return nil, -1, repository.ErrNotFound
	}
	idx := p.ReviewIndex(reviewID)
	if idx < 0 {
		return nil, -1, repository.ErrNotFound
	}
	return p, idx, nil
}

func cloneProduct(p *model.Product) *model.Product {
	cp := *p
	cp.Reviews = append([]model.Review{}, p.Reviews...)
	return &cp
}
