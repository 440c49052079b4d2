package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"storefront-api/internal/dto"
	"storefront-api/internal/middleware"
	"storefront-api/internal/model"
	"storefront-api/internal/service"
)

type RouterConfig struct {
	Orders   *service.OrderService
	Products *service.ProductService
	Reviews  *service.ReviewService
	Users    *service.UserService
	Carts    *service.CartService
	Adverts  *service.AdvertService

	Images ImageReader
	Log    *slog.Logger

	CORSOrigins []string
	Health      func(ctx context.Context) error
}

var orderProjections = []string{
	service.ProjectionPayment,
	service.ProjectionShipping,
	service.ProjectionItems,
	service.ProjectionTotal,
	string(model.ExtCancellation),
	string(model.ExtRefund),
	string(model.ExtReturn),
	string(model.ExtExchange),
	string(model.ExtGift),
	string(model.ExtDiscount),
	string(model.ExtPromotion),
	string(model.ExtCoupon),
	string(model.ExtTax),
}

// NewRouter builds the HTTP surface: /api for the store, /uploads for
// stored images and /healthz.
func NewRouter(cfg RouterConfig) *gin.Engine {
	dto.RegisterValidators()

	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(cfg.Log), corsMiddleware(cfg.CORSOrigins))

	users := NewUserController(cfg.Users, cfg.Log)
	products := NewProductController(cfg.Products, cfg.Reviews, cfg.Log)
	orders := NewOrderController(cfg.Orders, cfg.Log)
	carts := NewCartController(cfg.Carts, cfg.Log)
	adverts := NewAdvertController(cfg.Adverts, cfg.Log)

	r.GET("/healthz", Health(cfg.Health))
	if cfg.Images != nil {
		r.GET("/uploads/*key", NewUploadController(cfg.Images, cfg.Log).Serve)
	}

	api := r.Group("/api")

	// Public routes
	api.POST("/signup", users.Signup)
	api.POST("/login", users.Login)
	api.POST("/admin/login", users.AdminLogin)
	api.POST("/forgot-password", users.ForgotPassword)
	api.POST("/reset-password", users.ResetPassword)
	api.GET("/products", products.List)
	api.GET("/products/:id", products.Get)
	api.GET("/products/:id/reviews", products.ListReviews)
	api.GET("/products/:id/reviews/:reviewId", products.Review)
	api.GET("/advertisement", adverts.Active)

	// Authenticated routes
	auth := api.Group("")
	auth.Use(middleware.AuthMiddleware(cfg.Users))

	auth.GET("/profile", users.Profile)
	auth.PUT("/profile", users.UpdateProfile)
	auth.DELETE("/profile", users.DeleteAccount)
	auth.PUT("/profile/password", users.ChangePassword)

	auth.POST("/products/:id/rate", products.Rate)
	auth.PUT("/products/:id/reviews/:reviewId", products.EditReview)
	auth.DELETE("/products/:id/reviews/:reviewId", products.DeleteReview)

	auth.GET("/cart", carts.Items)
	auth.POST("/cart/add/:productId", carts.Add)
	auth.PUT("/cart/:id", carts.Update)
	auth.DELETE("/cart/:id", carts.Remove)

	auth.POST("/orders", orders.Create)
	auth.GET("/orders/my-orders", orders.Mine)
	auth.GET("/orders/user/:userId", orders.ByUser("userId"))
	auth.GET("/orders/:id", orders.Get)
	auth.GET("/orders/:id/invoice", orders.Invoice)
	auth.POST("/orders/:id/cancel", orders.Cancel)
	auth.GET("/orders/:id/tracking", orders.Tracking)
	auth.POST("/orders/:id/return/image", orders.ReturnImage)
	for _, name := range orderProjections {
		auth.GET("/orders/:id/"+name, orders.Projection(name))
	}

	// Admin routes
	admin := auth.Group("")
	admin.Use(middleware.RequireRoles(model.RoleAdmin))

	admin.GET("/admin/stats", users.AdminStats)
	admin.GET("/admin/user-stats", users.UserStats)
	admin.GET("/admin/users", users.List)
	admin.GET("/admin/users/:id", users.Get)
	admin.PUT("/admin/users/:id", users.Update)
	admin.DELETE("/admin/users/:id", users.Delete)
	admin.PUT("/admin/users/:id/role", users.SetRole)
	admin.POST("/admin/users/:id/roles", users.GrantRoles)
	admin.GET("/admin/users/:id/roles", users.Roles)
	admin.PUT("/admin/users/:id/reset-password", users.AdminResetPassword)
	admin.PUT("/admin/users/:id/verify-email", users.VerifyEmail)
	admin.PUT("/admin/users/:id/lock", users.SetLocked(true))
	admin.PUT("/admin/users/:id/unlock", users.SetLocked(false))
	admin.GET("/admin/users/:id/orders", orders.ByUser("id"))
	admin.GET("/admin/users/:id/logs", users.ActivityLogs)

	admin.POST("/products", products.Create)
	admin.GET("/products/export", products.Export)
	admin.PUT("/products/:id", products.Update)
	admin.DELETE("/products/:id", products.Delete)

	admin.PUT("/cart/:id/:itemId", carts.Update)
	admin.DELETE("/cart/:id/:itemId", carts.Remove)

	admin.GET("/orders/all", orders.List)
	admin.GET("/orders/summary", orders.Summary)
	admin.GET("/orders/stats", orders.Stats)
	admin.GET("/orders/admin/user/:userId/history", orders.ByUser("userId"))
	admin.DELETE("/orders/:id", orders.Delete)
	admin.PATCH("/orders/:id/status", orders.UpdateStatus)
	admin.POST("/orders/:id/tracking", orders.AddTracking)
	admin.PUT("/orders/:id/tracking-info", orders.SetTrackingInfo)
	admin.PUT("/orders/:id/extensions/:kind", orders.SetExtension)

	admin.PUT("/advertisement", adverts.Upsert)

	return r
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization", middleware.HeaderRequestID},
		ExposeHeaders: []string{middleware.HeaderRequestID, "Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}
