package service

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront-api/internal/apperr"
	"storefront-api/internal/model"
)

type CartService struct {
	carts    CartRepository
	products ProductRepository
}

func NewCartService(carts CartRepository, products ProductRepository) *CartService {
	return &CartService{carts: carts, products: products}
}

func (s *CartService) Items(ctx context.Context, actor Actor) (*model.Cart, error) {
	if !actor.Authenticated() {
		return nil, apperr.Authentication("Not authorized, no token")
	}
	c, err := s.carts.FindByUser(ctx, actor.ID)
	return c, storeErr(err, "Cart")
}

// Add puts quantity units of a product in the cart, merging with an
// existing line for the same product.
func (s *CartService) Add(ctx context.Context, actor Actor, productID primitive.ObjectID, quantity int) (*model.Cart, error) {
	if !actor.Authenticated() {
		return nil, apperr.Authentication("Not authorized, no token")
	}
	if quantity < 1 {
		return nil, apperr.Validation("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	if _, err := s.products.FindByID(ctx, productID); err != nil {
		return nil, storeErr(err, "Product")
	}

	c, err := s.carts.FindByUser(ctx, actor.ID)
	if err != nil {
		return nil, storeErr(err, "Cart")
	}
	if it := c.ItemForProduct(productID); it != nil {
		it.Quantity += quantity
	} else {
		c.Items = append(c.Items, model.CartItem{ID: primitive.NewObjectID(), ProductID: productID, Quantity: quantity})
	}
	return c, storeErr(s.carts.Save(ctx, c), "Cart")
}

// UpdateItem sets the quantity of one line in userID's cart. Only the owner
// or an admin may change it.
func (s *CartService) UpdateItem(ctx context.Context, actor Actor, userID, itemID primitive.ObjectID, quantity int) (*model.Cart, error) {
	if quantity < 1 {
		return nil, apperr.Validation("INVALID_QUANTITY", "Quantity must be at least 1")
	}
	c, err := s.cartFor(ctx, actor, userID)
	if err != nil {
		return nil, err
	}
	it := c.Item(itemID)
	if it == nil {
		return nil, apperr.NotFound("Cart item")
	}
	it.Quantity = quantity
	return c, storeErr(s.carts.Save(ctx, c), "Cart")
}

func (s *CartService) RemoveItem(ctx context.Context, actor Actor, userID, itemID primitive.ObjectID) (*model.Cart, error) {
	c, err := s.cartFor(ctx, actor, userID)
	if err != nil {
		return nil, err
	}
	if !c.Remove(itemID) {
		return nil, apperr.NotFound("Cart item")
	}
	return c, storeErr(s.carts.Save(ctx, c), "Cart")
}

func (s *CartService) cartFor(ctx context.Context, actor Actor, userID primitive.ObjectID) (*model.Cart, error) {
	if !actor.Authenticated() {
		return nil, apperr.Authentication("Not authorized, no token")
	}
	if !actor.CanAccess(userID) {
		return nil, apperr.Authorization("Not authorized to change this cart")
	}
	c, err := s.carts.FindByUser(ctx, userID)
	return c, storeErr(err, "Cart")
}
