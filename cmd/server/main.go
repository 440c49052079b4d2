package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"storefront-api/internal/config"
	"storefront-api/internal/controller"
	"storefront-api/internal/logger"
	"storefront-api/internal/rabbit"
	"storefront-api/internal/repository"
	"storefront-api/internal/repository/memrepo"
	"storefront-api/internal/service"
	"storefront-api/internal/storage"
)

// stores bundles the repositories chosen by STORE_DRIVER.
type stores struct {
	products service.ProductRepository
	orders   service.OrderRepository
	users    service.UserRepository
	adverts  service.AdvertRepository
	carts    service.CartRepository
	tx       service.TxManager
	health   func(ctx context.Context) error
	close    func(ctx context.Context) error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogPretty)
	if err != nil {
		slog.Error("build logger", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(log)
	gin.SetMode(cfg.GinMode)

	if err := run(cfg, log); err != nil {
		log.Error("server stopped", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, log *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Persistence
	st, err := openStores(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		closeCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := st.close(closeCtx); err != nil {
			log.Warn("close store", "error", err)
		}
	}()

	// Images
	images, err := storage.Open(ctx, cfg.BlobURL, cfg.PublicBaseURL)
	if err != nil {
		return err
	}
	defer images.Close()

	// Notifications
	var (
		mailer service.Mailer      = rabbit.NewLogMailer(log)
		events service.OrderEvents = rabbit.NewLogEvents(log)
	)
	if cfg.RabbitURL != "" {
		pub, err := rabbit.Connect(cfg.RabbitURL)
		if err != nil {
			return err
		}
		defer pub.Close()
		mailer, events = rabbit.NewMailRelay(pub), rabbit.NewOrderEvents(pub)
		log.Info("publishing notifications to rabbitmq")
	} else {
		log.Warn("RABBIT_URL not set, notifications are only logged")
	}

	// Services
	tokens := service.NewTokenService(cfg.JWTSecret, cfg.JWTTTL)
	router := controller.NewRouter(controller.RouterConfig{
		Orders:   service.NewOrderService(st.orders, st.products, st.users, st.tx, images, events, log),
		Products: service.NewProductService(st.products, images, log),
		Reviews:  service.NewReviewService(st.products),
		Users: service.NewUserService(st.users, st.products, st.orders, tokens, mailer, images,
			service.Secrets{Admin: cfg.AdminSecret, Seller: cfg.SellerSecret}, cfg.ClientURL, log),
		Carts:       service.NewCartService(st.carts, st.products),
		Adverts:     service.NewAdvertService(st.adverts, images, log),
		Images:      images,
		Log:         log,
		CORSOrigins: cfg.CORSOrigins,
		Health:      st.health,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("storefront api listening", "port", cfg.Port, "store", cfg.StoreDriver)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

func openStores(ctx context.Context, cfg *config.Config, log *slog.Logger) (*stores, error) {
	if cfg.StoreDriver == config.StoreMemory {
		log.Warn("using in-memory store, data is lost on restart")
		m := memrepo.New()
		return &stores{
			products: m.Products,
			orders:   m.Orders,
			users:    m.Users,
			adverts:  m.Adverts,
			carts:    m.Carts,
			tx:       m.Tx,
			close:    func(context.Context) error { return nil },
		}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	db := client.Database(cfg.MongoDBName)
	if err := repository.EnsureIndexes(connectCtx, db); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, err
	}
	log.Info("connected to mongodb", "db", cfg.MongoDBName, "transactions", cfg.MongoTransactions)

	return &stores{
		products: repository.NewMongoProductRepository(db),
		orders:   repository.NewMongoOrderRepository(db),
		users:    repository.NewMongoUserRepository(db),
		adverts:  repository.NewMongoAdvertRepository(db),
		carts:    repository.NewMongoCartRepository(db),
		tx:       repository.NewMongoTxManager(client, cfg.MongoTransactions),
		health: func(ctx context.Context) error {
			return client.Ping(ctx, readpref.Primary())
		},
		close: client.Disconnect,
	}, nil
}
