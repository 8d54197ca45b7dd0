package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/peerlend/loan-engine/internal/config"
	"github.com/peerlend/loan-engine/internal/handler"
	"github.com/peerlend/loan-engine/internal/repository"
	"github.com/peerlend/loan-engine/internal/risk"
	"github.com/peerlend/loan-engine/internal/service"
	"github.com/peerlend/loan-engine/pkg/response"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize database
	db, err := initDB(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Initialize Redis
	redisClient := initRedis(cfg)
	defer redisClient.Close()

	// Initialize repositories
	loanRepo := repository.NewLoanRepository(db)
	paymentRepo := repository.NewPaymentRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Initialize services
	notifier := service.NewNotifier(notificationRepo)
	idempotency := service.NewRedisIdempotencyStore(redisClient, cfg.Business.IdempotencyTTL)
	loanService := service.NewLoanService(loanRepo, paymentRepo, notifier)
	paymentService := service.NewPaymentService(loanRepo, paymentRepo, notifier, idempotency)
	reminderService := service.NewReminderService(loanRepo, notificationRepo, notifier)

	scorer := risk.NewHeuristicScorer(time.Now().UnixNano())

	loanHandler := handler.NewLoanHandler(loanService, scorer)
	paymentHandler := handler.NewPaymentHandler(paymentService)
	notificationHandler := handler.NewNotificationHandler(notificationRepo)
	reminderHandler := handler.NewReminderHandler(reminderService)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// Setup routes
	router := setupRoutes(loanHandler, paymentHandler, notificationHandler, reminderHandler, healthHandler)

	// Start server
	server := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server in a goroutine
	go func() {
		log.Printf("Server starting on %s", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("Shutting down server...")

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}

func initDB(cfg *config.Config) (*sqlx.DB, error) {
	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	return db, nil
}

func initRedis(cfg *config.Config) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
}

func setupRoutes(
	loanHandler *handler.LoanHandler,
	paymentHandler *handler.PaymentHandler,
	notificationHandler *handler.NotificationHandler,
	reminderHandler *handler.ReminderHandler,
	healthHandler *handler.HealthHandler,
) *mux.Router {
	router := mux.NewRouter()
	router.Use(response.LoggingMiddleware)
	router.Use(response.CORSMiddleware)

	// Health check
	router.HandleFunc("/health", healthHandler.Health).Methods("GET")
	router.HandleFunc("/health/ready", healthHandler.Ready).Methods("GET")

	// API routes
	api := router.PathPrefix("/api/v1").Subrouter()

	api.HandleFunc("/loans", loanHandler.CreateLoan).Methods("POST")
	api.HandleFunc("/loans", loanHandler.ListLoans).Methods("GET")
	api.HandleFunc("/loans/summary/borrower/{borrowerId}", loanHandler.BorrowerSummary).Methods("GET")
	api.HandleFunc("/loans/{loanId}", loanHandler.GetLoan).Methods("GET")
	api.HandleFunc("/loans/{loanId}/status", loanHandler.UpdateStatus).Methods("PATCH")

	api.HandleFunc("/payments", paymentHandler.ApplyPayment).Methods("POST")
	api.HandleFunc("/payments", paymentHandler.ListPayments).Methods("GET")

	api.HandleFunc("/notifications", notificationHandler.List).Methods("GET")
	api.HandleFunc("/notifications/{notificationId}/read", notificationHandler.MarkRead).Methods("PATCH")
	api.HandleFunc("/notifications/{notificationId}", notificationHandler.Delete).Methods("DELETE")

	api.HandleFunc("/risk/borrower/{borrowerId}", loanHandler.BorrowerRisk).Methods("GET")

	api.HandleFunc("/admin/reminders/run", reminderHandler.Run).Methods("POST")
	api.HandleFunc("/admin/loans/{loanId}/audit", paymentHandler.AuditLoan).Methods("GET")

	return router
}
