package controller

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront-api/internal/dto"
	"storefront-api/internal/middleware"
	"storefront-api/internal/service"
)

type CartController struct {
	Service *service.CartService
	log     *slog.Logger
}

func NewCartController(s *service.CartService, log *slog.Logger) *CartController {
	return &CartController{Service: s, log: log}
}

// GET /cart
func (ctl *CartController) Items(c *gin.Context) {
	cart, err := ctl.Service.Items(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// POST /cart/add/:productId
func (ctl *CartController) Add(c *gin.Context) {
	productID, ok := objectID(c, "productId")
	if !ok {
		return
	}
	var req dto.CartAddRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	cart, err := ctl.Service.Add(c.Request.Context(), middleware.Actor(c), productID, req.Quantity)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// Update serves PUT /cart/:id for the caller's own cart and
// PUT /cart/:id/:itemId for an admin acting on user :id.
func (ctl *CartController) Update(c *gin.Context) {
	userID, itemID, ok := ctl.target(c)
	if !ok {
		return
	}
	var req dto.CartUpdateRequest
	if !bind(c, &req) {
		return
	}
	cart, err := ctl.Service.UpdateItem(c.Request.Context(), middleware.Actor(c), userID, itemID, req.Quantity)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// Remove serves DELETE /cart/:id and DELETE /cart/:id/:itemId.
func (ctl *CartController) Remove(c *gin.Context) {
	userID, itemID, ok := ctl.target(c)
	if !ok {
		return
	}
	cart, err := ctl.Service.RemoveItem(c.Request.Context(), middleware.Actor(c), userID, itemID)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// target resolves whose cart and which line the path names.
func (ctl *CartController) target(c *gin.Context) (userID, itemID primitive.ObjectID, ok bool) {
	if c.Param("itemId") == "" {
		itemID, ok = objectID(c, "id")
		return middleware.Actor(c).ID, itemID, ok
	}
	if userID, ok = objectID(c, "id"); !ok {
		return
	}
	itemID, ok = objectID(c, "itemId")
	return
}
