package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/robfig/cron/v3"

	"github.com/peerlend/loan-engine/internal/config"
	"github.com/peerlend/loan-engine/internal/repository"
	"github.com/peerlend/loan-engine/internal/service"
)

func main() {
	log.Println("Starting reminder scheduler...")

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	loanRepo := repository.NewLoanRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)
	notifier := service.NewNotifier(notificationRepo)
	reminderService := service.NewReminderService(loanRepo, notificationRepo, notifier)

	// Initialize cron scheduler
	c := cron.New(cron.WithSeconds())

	_, err = c.AddFunc(cfg.Scheduler.ReminderCron, func() {
		log.Println("Running payment reminder scan...")

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()

		sent, err := reminderService.ScanAndNotify(ctx, time.Now().UTC())
		if err != nil {
			log.Printf("Reminder scan failed: %v", err)
			return
		}
		log.Printf("Reminder scan complete, %d reminders sent", sent)
	})
	if err != nil {
		log.Fatalf("Error scheduling reminder scan: %v", err)
	}

	// Start the scheduler
	c.Start()
	log.Println("Scheduler started successfully")

	// Wait for interrupt signal to gracefully shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down scheduler...")
	<-c.Stop().Done()
	log.Println("Scheduler stopped")
}
