package service

import (
	"context"
	"log/slog"
	"strings"

	"github.com/tealeg/xlsx"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront-api/internal/apperr"
	"storefront-api/internal/logger"
	"storefront-api/internal/model"
	"storefront-api/internal/report"
	"storefront-api/internal/repository"
	"storefront-api/internal/storage"
)

type ProductInput struct {
	Name        string
	Description string
	Category    string
	Brand       string
	Price       float64
	Quantity    int
}

// ProductPatch holds the fields to change; nil fields are kept.
type ProductPatch struct {
	Name        *string
	Description *string
	Category    *string
	Brand       *string
	Price       *float64
	Quantity    *int
}

type ProductService struct {
	products ProductRepository
	images   ImageStore
	log      *slog.Logger
}

func NewProductService(products ProductRepository, images ImageStore, log *slog.Logger) *ProductService {
	return &ProductService{products: products, images: images, log: log}
}

func (s *ProductService) logger(ctx context.Context) *slog.Logger {
	return logger.FromContext(ctx, s.log)
}

func (s *ProductService) Create(ctx context.Context, actor Actor, in ProductInput, image []byte) (*model.Product, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	p := &model.Product{
		Name:        strings.TrimSpace(in.Name),
		Description: strings.TrimSpace(in.Description),
		Category:    strings.TrimSpace(in.Category),
		Brand:       strings.TrimSpace(in.Brand),
		Price:       in.Price,
		Quantity:    in.Quantity,
	}
	if p.Name == "" || p.Description == "" || p.Category == "" || p.Brand == "" {
		return nil, apperr.Validation("MISSING_FIELDS", "Name, description, category and brand are required")
	}
	if err := validateStock(p.Price, p.Quantity); err != nil {
		return nil, err
	}
	if len(image) == 0 {
		return nil, apperr.Validation("IMAGE_REQUIRED", "Image is required")
	}

	img, err := s.images.Upload(ctx, storage.FolderProducts, image)
	if err != nil {
		return nil, imageErr(err)
	}
	p.ImageURL, p.ImagePublicID = img.URL, img.PublicID

	if err := s.products.Create(ctx, p); err != nil {
		s.discardImage(ctx, img.PublicID)
		return nil, storeErr(err, "Product")
	}
	s.logger(ctx).Info("product created", "product_id", p.ID.Hex(), "admin_id", actor.ID.Hex())
	return p, nil
}

func validateStock(price float64, quantity int) error {
	if price < 0 {
		return apperr.Validation("INVALID_PRICE", "Price must not be negative")
	}
	if quantity < 0 {
		return apperr.Validation("INVALID_QUANTITY", "Quantity must not be negative")
	}
	return nil
}

func (s *ProductService) Get(ctx context.Context, id primitive.ObjectID) (*model.Product, error) {
	p, err := s.products.FindByID(ctx, id)
	return p, storeErr(err, "Product")
}

func (s *ProductService) List(ctx context.Context, f repository.ProductFilter) ([]*model.Product, error) {
	f.Category = strings.TrimSpace(f.Category)
	f.Brand = strings.TrimSpace(f.Brand)
	products, err := s.products.List(ctx, f)
	return products, storeErr(err, "Product")
}

// Update applies patch and, when image is non-empty, swaps the product
// image. The old image is removed only after the product points at the new
// one.
func (s *ProductService) Update(ctx context.Context, actor Actor, id primitive.ObjectID, patch ProductPatch, image []byte) (*model.Product, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	u := repository.ProductUpdate{Price: patch.Price, Quantity: patch.Quantity}
	for _, f := range []struct {
		in  *string
		out **string
	}{
		{patch.Name, &u.Name},
		{patch.Description, &u.Description},
		{patch.Category, &u.Category},
		{patch.Brand, &u.Brand},
	} {
		if f.in == nil {
			continue
		}
		v := strings.TrimSpace(*f.in)
		if v == "" {
			return nil, apperr.Validation("MISSING_FIELDS", "Name, description, category and brand must not be empty")
		}
		*f.out = &v
	}
	if patch.Price != nil && *patch.Price < 0 {
		return nil, apperr.Validation("INVALID_PRICE", "Price must not be negative")
	}
	if patch.Quantity != nil && *patch.Quantity < 0 {
		return nil, apperr.Validation("INVALID_QUANTITY", "Quantity must not be negative")
	}

	current, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, storeErr(err, "Product")
	}

	var img *storage.Image
	if len(image) > 0 {
		if img, err = s.images.Upload(ctx, storage.FolderProducts, image); err != nil {
			return nil, imageErr(err)
		}
		u.ImageURL, u.ImagePublicID = &img.URL, &img.PublicID
	}

	p, err := s.products.Update(ctx, id, u)
	if err != nil {
		if img != nil {
			s.discardImage(ctx, img.PublicID)
		}
		return nil, storeErr(err, "Product")
	}
	if img != nil && current.ImagePublicID != "" {
		s.discardImage(ctx, current.ImagePublicID)
	}
	return p, nil
}

// Delete removes the product together with its reviews and image.
func (s *ProductService) Delete(ctx context.Context, actor Actor, id primitive.ObjectID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	p, err := s.products.Delete(ctx, id)
	if err != nil {
		return storeErr(err, "Product")
	}
	s.discardImage(ctx, p.ImagePublicID)
	s.logger(ctx).Info("product deleted", "product_id", id.Hex(), "reviews", len(p.Reviews), "admin_id", actor.ID.Hex())
	return nil
}

// ExportXLSX builds a workbook of the whole catalog.
func (s *ProductService) ExportXLSX(ctx context.Context, actor Actor) (*xlsx.File, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	products, err := s.products.List(ctx, repository.ProductFilter{})
	if err != nil {
		return nil, storeErr(err, "Product")
	}
	file, err := report.ProductsWorkbook(products)
	if err != nil {
		return nil, apperr.Internal(err, "Failed to build export")
	}
	return file, nil
}

func (s *ProductService) discardImage(ctx context.Context, publicID string) {
	if err := s.images.Delete(ctx, publicID); err != nil {
		s.logger(ctx).Warn("image not deleted", "public_id", publicID, "error", err)
	}
}
