package controller

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"storefront-api/internal/apperr"
	"storefront-api/internal/dto"
	"storefront-api/internal/middleware"
	"storefront-api/internal/model"
	"storefront-api/internal/repository"
	"storefront-api/internal/service"
)

type OrderController struct {
	Service *service.OrderService
	log     *slog.Logger
}

func NewOrderController(s *service.OrderService, log *slog.Logger) *OrderController {
	return &OrderController{Service: s, log: log}
}

// POST /orders
func (ctl *OrderController) Create(c *gin.Context) {
	var req dto.CreateOrderRequest
	if !bind(c, &req) {
		return
	}

	in := service.CreateOrderInput{
		Items: make([]service.OrderItemInput, 0, len(req.Items)),
		ShippingAddress: model.ShippingAddress{
			FullName:   req.ShippingAddress.FullName,
			Phone:      req.ShippingAddress.Phone,
			Address:    req.ShippingAddress.Address,
			City:       req.ShippingAddress.City,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    req.ShippingAddress.Country,
		},
		PaymentMethod: req.PaymentMethod,
		ItemsPrice:    *req.ItemsPrice,
		TaxPrice:      *req.TaxPrice,
		ShippingPrice: *req.ShippingPrice,
		TotalPrice:    *req.TotalPrice,
	}
	for _, it := range req.Items {
		pid, _ := primitive.ObjectIDFromHex(it.Product)
		in.Items = append(in.Items, service.OrderItemInput{ProductID: pid, Quantity: it.Quantity})
	}

	o, err := ctl.Service.CreateOrder(c.Request.Context(), middleware.Actor(c), in)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// GET /orders/:id
func (ctl *OrderController) Get(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	o, err := ctl.Service.GetOrder(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// GET /orders/my-orders
func (ctl *OrderController) Mine(c *gin.Context) {
	orders, err := ctl.Service.MyOrders(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// ByUser pages through the orders of the user named by param.
func (ctl *OrderController) ByUser(param string) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := objectID(c, param)
		if !ok {
			return
		}
		var q dto.PageQuery
		if !bindQuery(c, &q) {
			return
		}
		page, limit := pageOf(q, 20)
		orders, total, err := ctl.Service.OrdersByUser(c.Request.Context(), middleware.Actor(c), userID,
			repository.Page{Number: int64(page), Size: int64(limit)})
		if err != nil {
			respondError(c, ctl.log, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"orders": orders, "page": page, "pages": pages(total, limit), "total": total})
	}
}

// GET /orders/all
func (ctl *OrderController) List(c *gin.Context) {
	var q dto.OrderListQuery
	if !bindQuery(c, &q) {
		return
	}
	f := repository.OrderFilter{Status: model.OrderStatus(q.Status)}
	if q.User != "" {
		f.UserID, _ = primitive.ObjectIDFromHex(q.User)
	}
	if !q.From.IsZero() {
		f.From = &q.From
	}
	if !q.To.IsZero() {
		to := q.To.AddDate(0, 0, 1)
		f.To = &to
	}

	page, limit := pageOf(q.PageQuery, 20)
	orders, total, err := ctl.Service.ListOrders(c.Request.Context(), middleware.Actor(c), f,
		repository.Page{Number: int64(page), Size: int64(limit)})
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"orders": orders, "page": page, "pages": pages(total, limit), "total": total})
}

// GET /orders/summary
func (ctl *OrderController) Summary(c *gin.Context) {
	sum, err := ctl.Service.Summary(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, sum)
}

// GET /orders/stats
func (ctl *OrderController) Stats(c *gin.Context) {
	stats, err := ctl.Service.Stats(c.Request.Context(), middleware.Actor(c))
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// DELETE /orders/:id
func (ctl *OrderController) Delete(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	if err := ctl.Service.DeleteOrder(c.Request.Context(), middleware.Actor(c), id); err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Order deleted"})
}

// PATCH /orders/:id/status
func (ctl *OrderController) UpdateStatus(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	var req dto.UpdateStatusRequest
	if !bind(c, &req) {
		return
	}
	o, err := ctl.Service.UpdateStatus(c.Request.Context(), middleware.Actor(c), id, model.OrderStatus(req.Status), req.Force)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// POST /orders/:id/cancel
func (ctl *OrderController) Cancel(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	var req dto.CancelRequest
	if c.Request.ContentLength > 0 && !bind(c, &req) {
		return
	}
	o, err := ctl.Service.CancelOrder(c.Request.Context(), middleware.Actor(c), id, req.Reason)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// POST /orders/:id/tracking
func (ctl *OrderController) AddTracking(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	var req dto.TrackingUpdateRequest
	if !bind(c, &req) {
		return
	}
	timeline, err := ctl.Service.AddTrackingUpdate(c.Request.Context(), middleware.Actor(c), id, req.Status, req.Message)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, timeline)
}

// PUT /orders/:id/tracking-info
func (ctl *OrderController) SetTrackingInfo(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	var req dto.TrackingInfoRequest
	if !bind(c, &req) {
		return
	}
	o, err := ctl.Service.SetTrackingInfo(c.Request.Context(), middleware.Actor(c), id, repository.TrackingInfo{
		Carrier:           req.Carrier,
		TrackingNumber:    req.TrackingNumber,
		EstimatedDelivery: req.EstimatedDelivery,
	})
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// GET /orders/:id/tracking
func (ctl *OrderController) Tracking(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	t, err := ctl.Service.GetTracking(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, t)
}

// Projection serves GET /orders/:id/<name>. Extension records that were
// never set come back as null.
func (ctl *OrderController) Projection(name string) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := objectID(c, "id")
		if !ok {
			return
		}
		v, err := ctl.Service.Projection(c.Request.Context(), middleware.Actor(c), id, name)
		if err != nil {
			respondError(c, ctl.log, err)
			return
		}
		c.JSON(http.StatusOK, v)
	}
}

// PUT /orders/:id/extensions/:kind
func (ctl *OrderController) SetExtension(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	kind := model.ExtensionKind(c.Param("kind"))
	record := model.NewExtensionRecord(kind)
	if record == nil {
		respondError(c, ctl.log, apperr.Validationf("UNKNOWN_EXTENSION", "Unknown extension %q", kind))
		return
	}
	if err := c.ShouldBindJSON(record); err != nil {
		respondError(c, ctl.log, dto.BindError(err))
		return
	}
	o, err := ctl.Service.SetExtension(c.Request.Context(), middleware.Actor(c), id, kind, record)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// POST /orders/:id/return/image
func (ctl *OrderController) ReturnImage(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	data, err := formImage(c, "image")
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	o, err := ctl.Service.AttachReturnImage(c.Request.Context(), middleware.Actor(c), id, data)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	c.JSON(http.StatusOK, o.Return)
}

// GET /orders/:id/invoice
func (ctl *OrderController) Invoice(c *gin.Context) {
	id, ok := objectID(c, "id")
	if !ok {
		return
	}
	pdf, err := ctl.Service.Invoice(c.Request.Context(), middleware.Actor(c), id)
	if err != nil {
		respondError(c, ctl.log, err)
		return
	}
	attachment(c, "invoice-"+id.Hex()+".pdf")
	c.Data(http.StatusOK, "application/pdf", pdf)
}
