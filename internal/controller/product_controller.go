package controller

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"storefront-api/internal/dto"
	"storefront-api/internal/logger"
	"storefront-api/internal/middleware"
	"storefront-api/internal/repository"
	"storefront-api/internal/service"
)

type ProductController struct {
	Products *service.ProductService
	Reviews  *service.ReviewService
	log      *slog.Logger
}

func NewProductController(products *service.ProductService, reviews *service.ReviewService, log *slog.Logger) *ProductController {
	return &ProductController{Products: products, Reviews: reviews, log: log}
}

// GET /products
func (ctl *ProductController) List(c *gin.Context) {
	var q dto.ProductQuery
	if !bindQuery(c, &q) {
		return
	}
	products, err := ctl.Products.List(c.Request.Context(), repository.ProductFilter{Category: q.Category, Brand: q.Brand})
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, products)
}

// GET /products/:id
func (ctl *ProductController) Get(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	p, err := ctl.Products.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// POST /products (multipart, image in "image")
func (ctl *ProductController) Create(c *gin.Context) {
	var req dto.ProductRequest
	if !bind(c, &req) {
		return
	}
	image, err := formImage(c, "image")
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	p, err := ctl.Products.Create(c.Request.Context(), middleware.Actor(c), service.ProductInput{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Brand:       req.Brand,
		Price:       *req.Price,
		Quantity:    *req.Quantity,
	}, image)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// PUT /products/:id
func (ctl *ProductController) Update(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	var req dto.ProductPatchRequest
	if !bind(c, &req) {
		return
	}
	image, err := formImage(c, "image")
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	p, err := ctl.Products.Update(c.Request.Context(), middleware.Actor(c), id, service.ProductPatch{
		Name:        req.Name,
		Description: req.Description,
		Category:    req.Category,
		Brand:       req.Brand,
		Price:       req.Price,
		Quantity:    req.Quantity,
	}, image)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// DELETE /products/:id
func (ctl *ProductController) Delete(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	if err := ctl.Products.Delete(c.Request.Context(), middleware.Actor(c), id); err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Product deleted"})
}

// GET /products/export
func (ctl *ProductController) Export(c *gin.Context) {
	file, err := ctl.Products.ExportXLSX(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	attachment(c, "products.xlsx")
	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Status(http.StatusOK)
	if err := file.Write(c.Writer); err != nil {
		logger.FromContext(c.Request.Context(), ctl.log).Error("write export", "error", err)
	}
}

// POST /products/:id/rate
func (ctl *ProductController) Rate(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	var req dto.ReviewRequest
	if !bind(c, &req) {
		return
	}
	review, p, err := ctl.Reviews.AddReview(c.Request.Context(), middleware.Actor(c), id, *req.Rating, req.Comment)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message":      "Review added",
		"review":       review,
		"ratingsAvg":   p.RatingsAvg,
		"ratingsCount": p.RatingsCount,
	})
}

// GET /products/:id/reviews
func (ctl *ProductController) ListReviews(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	var q dto.PageQuery
	if !bindQuery(c, &q) {
		return
	}
	page, limit := pageOf(q, 10)
	reviews, total, err := ctl.Reviews.ListReviews(c.Request.Context(), id, page, limit)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"reviews": reviews, "page": page, "pages": pages(int64(total), limit), "total": total})
}

// GET /products/:id/reviews/:reviewId
func (ctl *ProductController) Review(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	reviewID, ok := objectID(c, "reviewId")
	if !ok {
		return
	}
	r, err := ctl.Reviews.GetReview(c.Request.Context(), id, reviewID)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// PUT /products/:id/reviews/:reviewId
func (ctl *ProductController) EditReview(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	reviewID, ok := objectID(c, "reviewId")
	if !ok {
		return
	}
	var req dto.ReviewPatchRequest
	if !bind(c, &req) {
		return
	}
	r, _, err := ctl.Reviews.EditReview(c.Request.Context(), middleware.Actor(c), id, reviewID, req.Rating, req.Comment)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, r)
}

// DELETE /products/:id/reviews/:reviewId
func (ctl *ProductController) DeleteReview(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	reviewID, ok := objectID(c, "reviewId")
	if !ok {
		return
	}
	p, err := ctl.Reviews.DeleteReview(c.Request.Context(), middleware.Actor(c), id, reviewID)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":      "Review deleted",
		"ratingsAvg":   p.RatingsAvg,
		"ratingsCount": p.RatingsCount,
	})
}
