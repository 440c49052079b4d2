package service

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront-api/internal/apperr"
	"storefront-api/internal/model"
	"storefront-api/internal/repository"
	"storefront-api/internal/storage"
)

// Repository contracts. The Mongo repositories and memrepo both satisfy them.
type ProductRepository interface {
	Create(ctx context.Context, p *model.Product) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Product, error)
	List(ctx context.Context, f repository.ProductFilter) ([]*model.Product, error)
	Update(ctx context.Context, id primitive.ObjectID, u repository.ProductUpdate) (*model.Product, error)
	Delete(ctx context.Context, id primitive.ObjectID) (*model.Product, error)
	Count(ctx context.Context) (int64, error)
	DecrementStock(ctx context.Context, id primitive.ObjectID, n int) error
	IncrementStock(ctx context.Context, id primitive.ObjectID, n int) error
	AddReview(ctx context.Context, productID primitive.ObjectID, r model.Review) (*model.Product, error)
	UpdateReview(ctx context.Context, productID, reviewID primitive.ObjectID, patch repository.ReviewPatch) (*model.Product, error)
	RemoveReview(ctx context.Context, productID, reviewID primitive.ObjectID) (*model.Product, error)
}

type OrderRepository interface {
	Create(ctx context.Context, o *model.Order) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.Order, error)
	FindByUser(ctx context.Context, userID primitive.ObjectID) ([]*model.Order, error)
	List(ctx context.Context, f repository.OrderFilter, page repository.Page) ([]*model.Order, int64, error)
	Count(ctx context.Context, f repository.OrderFilter) (int64, error)
	UpdateStatus(ctx context.Context, id primitive.ObjectID, expected, next model.OrderStatus) (*model.Order, error)
	Cancel(ctx context.Context, id primitive.ObjectID, details model.CancellationDetails) (*model.Order, error)
	AppendTracking(ctx context.Context, id primitive.ObjectID, ev model.TrackingEvent) (*model.Order, error)
	SetTrackingInfo(ctx context.Context, id primitive.ObjectID, info repository.TrackingInfo) (*model.Order, error)
	SetExtension(ctx context.Context, id primitive.ObjectID, kind model.ExtensionKind, record any) (*model.Order, error)
	Delete(ctx context.Context, id primitive.ObjectID) error
	Stats(ctx context.Context) ([]repository.StatusStat, error)
	Summary(ctx context.Context) (repository.OrderSummary, error)
}

type UserRepository interface {
	Create(ctx context.Context, u *model.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	List(ctx context.Context, f repository.UserFilter) ([]*model.User, error)
	Update(ctx context.Context, u *model.User) error
	AppendActivity(ctx context.Context, id primitive.ObjectID, entry model.ActivityLog) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	Count(ctx context.Context, f repository.UserFilter) (int64, error)
}

type AdvertRepository interface {
	Get(ctx context.Context) (*model.Advertisement, error)
	Upsert(ctx context.Context, a *model.Advertisement) error
}

type CartRepository interface {
	FindByUser(ctx context.Context, userID primitive.ObjectID) (*model.Cart, error)
	Save(ctx context.Context, c *model.Cart) error
}

// TxManager runs fn as one unit of work.
type TxManager interface {
	WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// rollbacker is implemented by tx managers that can report whether a failed
// unit of work is rolled back.
type rollbacker interface {
	Transactional() bool
}

func rollsBack(tx TxManager) bool {
	r, ok := tx.(rollbacker)
	return ok && r.Transactional()
}

type ImageStore interface {
	Upload(ctx context.Context, folder storage.Folder, data []byte) (*storage.Image, error)
	Delete(ctx context.Context, publicID string) error
}

type Mailer interface {
	Send(ctx context.Context, to, subject, html string) error
}

// OrderEvents is told about committed orders. Failures never undo the order.
type OrderEvents interface {
	OrderPlaced(ctx context.Context, o *model.Order) error
}

// Actor is the authenticated caller of an operation.
type Actor struct {
	ID    primitive.ObjectID
	Name  string
	Roles model.Roles
}

func (a Actor) Authenticated() bool {
	return !a.ID.IsZero()
}

func (a Actor) IsAdmin() bool {
	return a.Roles.Has(model.RoleAdmin)
}

// CanAccess reports whether the actor may act on a resource owned by owner.
func (a Actor) CanAccess(owner primitive.ObjectID) bool {
	return a.IsAdmin() || a.ID == owner
}

func requireAdmin(a Actor) error {
	if !a.Authenticated() {
		return apperr.Authentication("Not authorized, no token")
	}
	if !a.IsAdmin() {
		return apperr.Authorization("Admin privileges required")
	}
	return nil
}

// storeErr converts a repository failure into the API error taxonomy.
// resource names the entity for not-found messages.
func storeErr(err error, resource string) error {
	if err == nil {
		return nil
	}
	if _, ok := apperr.As(err); ok {
		return err
	}
	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound(resource)
	case errors.Is(err, repository.ErrDuplicate):
		return apperr.Validation("DUPLICATE", resource+" already exists")
	default:
		return apperr.Internal(err, "Server error")
	}
}

// paginate returns the slice window for a 1-based page of the given size.
// A non-positive size returns everything.
func paginate[T any](items []T, page, size int) []T {
	if size <= 0 {
		return items
	}
	if page < 1 {
		page = 1
	}
	start := (page - 1) * size
	if start >= len(items) {
		return []T{}
	}
	return items[start:min(start+size, len(items))]
}
