package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/nats-io/nats.go"

	"github.com/hostara/billing-service/internal/client"
	"github.com/hostara/billing-service/internal/config"
	"github.com/hostara/billing-service/internal/db"
	"github.com/hostara/billing-service/internal/http"
	"github.com/hostara/billing-service/internal/notify"
	"github.com/hostara/billing-service/internal/repository"
	"github.com/hostara/billing-service/internal/service"
)

func main() {
	log.Println("Starting Billing Service...")

	// Load configuration
	cfg := config.Load()
	if cfg.Server.Mode == "release" {
		if err := cfg.Validate(); err != nil {
			log.Fatalf("Invalid configuration: %v", err)
		}
	}

	// Initialize database
	pool, err := db.NewPool(cfg.Database.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer pool.Close()

	// Initialize repositories
	accountRepo := repository.NewAccountRepository(pool)
	serverRepo := repository.NewServerRepository(pool)
	logRepo := repository.NewBillingLogRepository(pool)
	templateRepo := repository.NewTemplateRepository(pool)

	// Initialize panel client with the default retry policy
	panelClient := client.NewRetryingPanelAPI(
		client.NewPanelClient(cfg.Panel.BaseURL, cfg.Panel.APIKey),
	)

	// Initialize notification gateway
	natsConn, err := nats.Connect(cfg.Nats.URL, nats.Name("billing-service"))
	if err != nil {
		log.Fatalf("Failed to connect to NATS: %v", err)
	}
	defer natsConn.Drain()

	gateway := notify.NewNATSGateway(natsConn, templateRepo, cfg.Nats.Subject, cfg.Mail.Enabled)

	// Initialize services
	accountService := service.NewAccountService(accountRepo, gateway)
	billingService := service.NewBillingService(serverRepo, accountRepo, logRepo, panelClient, gateway)
	serverService := service.NewServerService(serverRepo, accountRepo, logRepo, panelClient, billingService)

	// Background billing sweeper
	sweepCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()

	if cfg.Billing.SweepEnabled {
		go billingService.StartSweeper(sweepCtx, cfg.Billing.SweepInterval)
	} else {
		log.Println("[Billing] Sweeper disabled, billing runs only via POST /api/internal/billing/sweep")
	}

	// Initialize HTTP server
	server := http.NewServer(cfg, accountService, serverService, billingService)

	// Start server in goroutine
	go func() {
		addr := fmt.Sprintf(":%s", cfg.Server.Port)
		log.Printf("Server starting on %s", addr)
		if err := server.Run(addr); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")
	stopSweeper()

	log.Println("Server exited")
}
