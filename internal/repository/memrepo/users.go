package memrepo

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront-api/internal/model"
	"storefront-api/internal/repository"
)

type UserRepository struct {
	mu    sync.RWMutex
	items map[primitive.ObjectID]*model.User
}

func (r *UserRepository) Create(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u.Email = normalizeEmail(u.Email)
	if r.emailTaken(u.Email, primitive.NilObjectID) {
		return repository.ErrDuplicate
	}
	if u.ID.IsZero() {
		u.ID = primitive.NewObjectID()
	}
	if u.ActivityLogs == nil {
		u.ActivityLogs = []model.ActivityLog{}
	}
	u.CreatedAt, u.UpdatedAt = now(), now()
	r.items[u.ID] = cloneUser(u)
	return nil
}

func (r *UserRepository) FindByID(_ context.Context, id primitive.ObjectID) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	u, ok := r.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) FindByEmail(_ context.Context, email string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	email = normalizeEmail(email)
	for _, u := range r.items {
		if u.Email == email {
			return cloneUser(u), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r *UserRepository) List(_ context.Context, f repository.UserFilter) ([]*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := []*model.User{}
	for _, u := range r.items {
		if f.Active != nil && u.IsActive != *f.Active {
			continue
		}
		out = append(out, cloneUser(u))
	}
	newestFirst(out, func(u *model.User) time.Time { return u.CreatedAt })
	return out, nil
}

func (r *UserRepository) Update(_ context.Context, u *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[u.ID]; !ok {
		return repository.ErrNotFound
	}
	u.Email = normalizeEmail(u.Email)
	if r.emailTaken(u.Email, u.ID) {
		return repository.ErrDuplicate
	}
	u.UpdatedAt = now()
	r.items[u.ID] = cloneUser(u)
	return nil
}

func (r *UserRepository) AppendActivity(_ context.Context, id primitive.ObjectID, entry model.ActivityLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	u.ActivityLogs = append(u.ActivityLogs, entry)
	return nil
}

func (r *UserRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(r.items, id)
	return nil
}

func (r *UserRepository) Count(_ context.Context, f repository.UserFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, u := range r.items {
		if f.Active == nil || u.IsActive == *f.Active {
			n++
		}
	}
	return n, nil
}

func (r *UserRepository) emailTaken(email string, except primitive.ObjectID) bool {
	for id, u := range r.items {
		if id != except && u.Email == email {
			return true
		}
	}
	return false
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func cloneUser(u *model.User) *model.User {
	cp := *u
	cp.Roles = append(model.Roles{}, u.Roles...)
	cp.ActivityLogs = append([]model.ActivityLog{}, u.ActivityLogs...)
	return &cp
}

type AdvertRepository struct {
	mu sync.RWMutex
	ad *model.Advertisement
}

func (r *AdvertRepository) Get(_ context.Context) (*model.Advertisement, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.ad == nil {
		return nil, repository.ErrNotFound
	}
	cp := *r.ad
	return &cp, nil
}

func (r *AdvertRepository) Upsert(_ context.Context, a *model.Advertisement) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	a.ID = model.AdvertisementID
	if a.CreatedAt.IsZero() {
		a.CreatedAt = now()
	}
	a.UpdatedAt = now()
	cp := *a
	r.ad = &cp
	return nil
}

// CartRepository indexes carts by user id.
type CartRepository struct {
	mu    sync.RWMutex
	items map[primitive.ObjectID]*model.Cart
}

func (r *CartRepository) FindByUser(_ context.Context, userID primitive.ObjectID) (*model.Cart, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.items[userID]
	if !ok {
		return &model.Cart{UserID: userID, Items: []model.CartItem{}}, nil
	}
	return cloneCart(c), nil
}

func (r *CartRepository) Save(_ context.Context, c *model.Cart) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID.IsZero() {
		c.ID = primitive.NewObjectID()
	}
	c.UpdatedAt = now()
	r.items[c.UserID] = cloneCart(c)
	return nil
}

func cloneCart(c *model.Cart) *model.Cart {
	cp := *c
	cp.Items = append([]model.CartItem{}, c.Items...)
	return &cp
}
