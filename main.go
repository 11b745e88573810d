package main

import (
	"context"

	"caseflow/config"
	"caseflow/models"
	"caseflow/notification"
	"caseflow/repository"
	"caseflow/routes"
	"caseflow/schema"
	"caseflow/service"
	"caseflow/worker"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Load configuration
	cfg := config.LoadConfig()

	if cfg.Sweep.SLAOverrideMinutes > 0 {
		log.Printf("[TEST] SLA override ENABLED: every priority window is %d minutes", cfg.Sweep.SLAOverrideMinutes)
	}

	// Initialize database connection (UTC for consistent timestamps)
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&charset=utf8mb4&loc=UTC",
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.DBName,
	)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		log.Fatalf("Failed to open database connection: %v", err)
	}
	defer db.Close()

	// Test database connection
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	log.Println("Database connection established")

	// Create missing tables, then verify the columns the sweeps depend on
	schema.InitializeDatabase(db)
	schema.ValidateRequiredColumns(db, nil)

	// Initialize repositories
	caseRepo := repository.NewCaseRepository(db)
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	// Notification delivery: webhook when configured, process log otherwise
	notifyConfig := models.DefaultNotificationConfig()
	var sender notification.Sender
	if webhookURL := os.Getenv("NOTIFY_WEBHOOK_URL"); webhookURL != "" {
		sender = notification.NewWebhookSender(webhookURL, notifyConfig.SendTimeout)
		log.Printf("Notification delivery via webhook: %s", webhookURL)
	} else {
		sender = notification.NewLogSender()
		log.Println("NOTIFY_WEBHOOK_URL not set; notifications go to the process log")
	}

	// Initialize services
	notificationService := service.NewNotificationService(notificationRepo, sender, notifyConfig)
	slaPolicy := service.NewSLAPolicy(cfg.Sweep.SLAOverrideMinutes)
	caseService := service.NewCaseService(caseRepo, userRepo, slaPolicy)
	slaService := service.NewSLAService(caseRepo, userRepo, cfg.Sweep.BatchSize)
	escalationService := service.NewEscalationService(
		caseRepo,
		userRepo,
		notificationService,
		cfg.Sweep.EscalationGrace,
		cfg.Sweep.BatchSize,
	)
	reconcileService := service.NewReconcileService(caseRepo, userRepo)
	digestService := service.NewDigestService(caseRepo, userRepo, notificationService)
	healthService := service.NewHealthService(caseRepo, userRepo)

	// Background sweep workers
	workers := []*worker.Worker{
		worker.New("sla-breach", cfg.Sweep.BreachInterval, cfg.Sweep.SweepTimeout, func(ctx context.Context) error {
			_, err := slaService.ProcessBreaches(ctx)
			return err
		}),
		worker.New("escalation", cfg.Sweep.EscalationInterval, cfg.Sweep.SweepTimeout, func(ctx context.Context) error {
			_, err := escalationService.ProcessEscalations(ctx)
			return err
		}),
		worker.New("reconciliation", cfg.Sweep.ReconcileInterval, cfg.Sweep.SweepTimeout, func(ctx context.Context) error {
			_, err := reconcileService.ProcessReconciliation(ctx)
			return err
		}),
		worker.New("liveness", cfg.Sweep.LivenessInterval, cfg.Sweep.SweepTimeout, healthService.Collect),
		worker.New("notification", notifyConfig.WorkerInterval, cfg.Sweep.SweepTimeout, func(ctx context.Context) error {
			_, err := notificationService.ProcessPending(ctx)
			return err
		}),
	}
	for _, w := range workers {
		w.Start()
	}

	digestWorker := worker.NewDaily("digest", cfg.Sweep.DigestHourUTC, cfg.Sweep.SweepTimeout, func(ctx context.Context) error {
		_, err := digestService.ProcessDigests(ctx)
		return err
	})
	digestWorker.Start()

	// Setup routes
	router := routes.SetupRoutes(
		caseService,
		slaService,
		escalationService,
		reconcileService,
		digestService,
		healthService,
		userRepo,
	)

	// Start server
	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	log.Printf("Server starting on %s", addr)
	log.Fatal(http.ListenAndServe(addr, router))
}
