package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront-api/internal/apperr"
	"storefront-api/internal/model"
	"storefront-api/internal/repository"
)

// ReviewService keeps each product's review list and rating aggregates in
// step. Every write goes through one repository call that updates both.
type ReviewService struct {
	products ProductRepository
}

func NewReviewService(products ProductRepository) *ReviewService {
	return &ReviewService{products: products}
}

func invalidRating() error {
	return apperr.Validationf("INVALID_RATING", "Rating must be an integer between %d and %d", model.MinRating, model.MaxRating)
}

func (s *ReviewService) AddReview(ctx context.Context, actor Actor, productID primitive.ObjectID, rating int, comment string) (*model.Review, *model.Product, error) {
	if !actor.Authenticated() {
		return nil, nil, apperr.Authentication("Not authorized, no token")
	}
	if !model.ValidRating(rating) {
		return nil, nil, invalidRating()
	}

	now := time.Now().UTC()
	r := model.Review{
		ID:        primitive.NewObjectID(),
		UserID:    actor.ID,
		Name:      actor.Name,
		Rating:    rating,
		Comment:   strings.TrimSpace(comment),
		CreatedAt: now,
		UpdatedAt: now,
	}
	p, err := s.products.AddReview(ctx, productID, r)
	if errors.Is(err, repository.ErrAlreadyReviewed) {
		return nil, nil, apperr.Validation("ALREADY_REVIEWED", "Product already reviewed")
	}
	if err != nil {
		return nil, nil, storeErr(err, "Product")
	}
	return &r, p, nil
}

// EditReview lets the author change rating and comment.
func (s *ReviewService) EditReview(ctx context.Context, actor Actor, productID, reviewID primitive.ObjectID, rating *int, comment *string) (*model.Review, *model.Product, error) {
	if _, err := s.ownReview(ctx, actor, productID, reviewID, "edit"); err != nil {
		return nil, nil, err
	}
	if rating != nil && !model.ValidRating(*rating) {
		return nil, nil, invalidRating()
	}

	patch := repository.ReviewPatch{Rating: rating, UpdatedAt: time.Now().UTC()}
	if comment != nil {
		c := strings.TrimSpace(*comment)
		patch.Comment = &c
	}
	p, err := s.products.UpdateReview(ctx, productID, reviewID, patch)
	if err != nil {
		return nil, nil, storeErr(err, "Review")
	}
	return &p.Reviews[p.ReviewIndex(reviewID)], p, nil
}

func (s *ReviewService) DeleteReview(ctx context.Context, actor Actor, productID, reviewID primitive.ObjectID) (*model.Product, error) {
	if _, err := s.ownReview(ctx, actor, productID, reviewID, "delete"); err != nil {
		return nil, err
	}
	p, err := s.products.RemoveReview(ctx, productID, reviewID)
	return p, storeErr(err, "Review")
}

func (s *ReviewService) ownReview(ctx context.Context, actor Actor, productID, reviewID primitive.ObjectID, verb string) (*model.Review, error) {
	if !actor.Authenticated() {
		return nil, apperr.Authentication("Not authorized, no token")
	}
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, storeErr(err, "Product")
	}
	idx := p.ReviewIndex(reviewID)
	if idx < 0 {
		return nil, apperr.NotFound("Review")
	}
	r := &p.Reviews[idx]
	if r.UserID != actor.ID {
		return nil, apperr.Authorization("You can only " + verb + " your own review")
	}
	return r, nil
}

// ListReviews returns a product's reviews newest first with the total count.
func (s *ReviewService) ListReviews(ctx context.Context, productID primitive.ObjectID, page, limit int) ([]model.Review, int, error) {
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, 0, storeErr(err, "Product")
	}
	reviews := append([]model.Review{}, p.Reviews...)
	sort.SliceStable(reviews, func(i, j int) bool {
		return reviews[i].CreatedAt.After(reviews[j].CreatedAt)
	})
	return paginate(reviews, page, limit), len(reviews), nil
}

func (s *ReviewService) GetReview(ctx context.Context, productID, reviewID primitive.ObjectID) (*model.Review, error) {
	p, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, storeErr(err, "Product")
	}
	idx := p.ReviewIndex(reviewID)
	if idx < 0 {
		return nil, apperr.NotFound("Review")
	}
	return &p.Reviews[idx], nil
}
