package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	orderControllers "github.com/mbilalsh/storefront-api/controllers/order"
	"github.com/mbilalsh/storefront-api/models"
	"github.com/mbilalsh/storefront-api/routes"
	"github.com/mbilalsh/storefront-api/services/gate"
	"github.com/mbilalsh/storefront-api/services/inventory"
	"github.com/mbilalsh/storefront-api/services/notify"
	"github.com/mbilalsh/storefront-api/services/order"
)

func main() {
	logger, err := zap.NewProduction()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	log := logger.Sugar()

	log.Info("✅ Starting application...")

	// Load environment variables
	_ = godotenv.Load()

	// Init DB
	db := initDatabase(log)

	// Auto-migrate all tables
	if err := db.AutoMigrate(
		&models.User{},
		&models.GuestUser{},
		&models.Product{},
		&models.InventoryRecord{},
		&models.Cart{},
		&models.CartItem{},
		&models.Order{},
		&models.OrderItem{},
	); err != nil {
		log.Fatalf("❌ AutoMigrate failed: %v", err)
	}

	// Core services: two independent process-wide gates, one for stock
	// mutations and one for order creation
	notifier := notify.NewLogSender(log)
	inventorySvc := inventory.NewService(gate.New(), notifier, log)
	orderSvc := order.NewService(gate.New(), inventorySvc, order.GormCartStore{}, notifier, log)
	orderSvc.OnOrderChanged = orderControllers.BroadcastOrderUpdate

	// Gin setup
	r := gin.Default()

	// CORS settings
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-KEY"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Setup routes
	routes.SetupRoutes(r, db, inventorySvc, orderSvc)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}

	// start server and listen for signals to shut down gracefully
	shutdownCtx, shutdownCancel := signal.NotifyContext(
		context.Background(),
		syscall.SIGTERM,
		syscall.SIGINT,
	)
	defer shutdownCancel()

	errGrp, shutdownCtx := errgroup.WithContext(shutdownCtx)

	errGrp.Go(func() error {
		log.Infof("🚀 Server running on port %s...", port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})

	errGrp.Go(func() error {
		<-shutdownCtx.Done()
		log.Info("server is gracefully shutting down...")

		ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
		defer cancel()

		if err := srv.Shutdown(ctx); err != nil {
			return fmt.Errorf("server failed to shut down gracefully: %w", err)
		}
		return nil
	})

	if err := errGrp.Wait(); err != nil {
		log.Fatalf("❌ %v", err)
	}
	log.Info("server stopped")
}

// initDatabase sets up the GORM DB connection
func initDatabase(log *zap.SugaredLogger) *gorm.DB {
	if databaseURL := os.Getenv("DATABASE_URL"); databaseURL != "" {
		db, err := gorm.Open(postgres.Open(databaseURL), &gorm.Config{})
		if err != nil {
			log.Fatalf("❌ DB connection failed: %v", err)
		}
		return db
	}

	host := os.Getenv("DB_HOST")
	port := os.Getenv("DB_PORT")
	user := os.Getenv("DB_USER")
	password := os.Getenv("DB_PASSWORD")
	dbname := os.Getenv("DB_NAME")

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		host, user, password, dbname, port,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("❌ Failed to connect DB: %v", err)
	}
	return db
}
