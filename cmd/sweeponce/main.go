// Command sweeponce runs every sweep exactly once against the configured
// database and exits. Useful for cron-style deployments and for verifying a
// pilot database without starting the full server.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log"

	"caseflow/config"
	"caseflow/models"
	"caseflow/notification"
	"caseflow/repository"
	"caseflow/schema"
	"caseflow/service"

	_ "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}
	cfg := config.LoadConfig()

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
	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}

	schema.ValidateRequiredColumns(db, nil)

	caseRepo := repository.NewCaseRepository(db)
	userRepo := repository.NewUserRepository(db)
	notificationRepo := repository.NewNotificationRepository(db)

	notifyConfig := models.DefaultNotificationConfig()
	notificationService := service.NewNotificationService(notificationRepo, notification.NewLogSender(), notifyConfig)

	slaService := service.NewSLAService(caseRepo, userRepo, cfg.Sweep.BatchSize)
	escalationService := service.NewEscalationService(
		caseRepo, userRepo, notificationService,
		cfg.Sweep.EscalationGrace, cfg.Sweep.BatchSize,
	)
	reconcileService := service.NewReconcileService(caseRepo, userRepo)
	digestService := service.NewDigestService(caseRepo, userRepo, notificationService)
	healthService := service.NewHealthService(caseRepo, userRepo)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Sweep.SweepTimeout)
	defer cancel()

	flagged, err := slaService.ProcessBreaches(ctx)
	if err != nil {
		log.Fatalf("Breach sweep failed: %v", err)
	}
	fmt.Printf("breach sweep: flagged %d cases\n", flagged)

	results, err := escalationService.ProcessEscalations(ctx)
	if err != nil {
		log.Fatalf("Escalation sweep failed: %v", err)
	}
	escalated := 0
	for _, r := range results {
		if r.Escalated {
			escalated++
		}
	}
	fmt.Printf("escalation sweep: escalated %d of %d processed\n", escalated, len(results))

	corrected, err := reconcileService.ProcessReconciliation(ctx)
	if err != nil {
		log.Fatalf("Reconciliation sweep failed: %v", err)
	}
	fmt.Printf("reconciliation sweep: corrected %d users\n", corrected)

	queued, err := digestService.ProcessDigests(ctx)
	if err != nil {
		log.Fatalf("Digest pass failed: %v", err)
	}
	fmt.Printf("digest pass: queued %d digests\n", queued)

	if err := healthService.Collect(ctx); err != nil {
		log.Fatalf("Health collection failed: %v", err)
	}
	snap := healthService.Snapshot()
	fmt.Printf("health: %d cases (%d active, %d overdue), %d active users\n",
		snap.TotalCases, snap.ActiveCases, snap.OverdueCases, snap.ActiveUsers)
}
