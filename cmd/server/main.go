// cmd/server/main.go
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

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/municipal/procurement-backend/internal/config"
	"github.com/municipal/procurement-backend/internal/database"
	"github.com/municipal/procurement-backend/internal/i18n"
	"github.com/municipal/procurement-backend/internal/metrics"
	"github.com/municipal/procurement-backend/internal/router"
	"github.com/municipal/procurement-backend/internal/seed"
	"github.com/municipal/procurement-backend/internal/services"
	"github.com/municipal/procurement-backend/internal/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
		logrus.SetFormatter(&logrus.JSONFormatter{})
	}

	// Initialize database
	db, err := database.Initialize(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize database")
	}
	defer database.Close(db)

	// Run database migrations
	if err := database.RunMigrations(db); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}
	if err := database.SeedInitialData(db); err != nil {
		logrus.WithError(err).Fatal("Failed to seed initial data")
	}

	// Initialize i18n
	if err := i18n.Initialize(); err != nil {
		logrus.WithError(err).Fatal("Failed to initialize i18n")
	}

	utils.SetJWTSecret(cfg.JWT.SecretKey)
	utils.SetJWTIssuer(cfg.JWT.Issuer)
	utils.SetCurrencyScale(cfg.Procurement.CurrencyScale)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	svc, err := router.NewServices(db, cfg, m)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to initialize services")
	}
	if err := seedCatalog(ctx, cfg, svc); err != nil {
		logrus.WithError(err).Fatal("Failed to seed contract catalog")
	}

	r := router.Setup(ctx, cfg, m, svc)

	// Create HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
		IdleTimeout:  time.Duration(cfg.Server.IdleTimeout) * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logrus.WithField("port", cfg.Server.Port).Info("Starting server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		scanNotifications(gctx, svc.Notifications, time.Duration(cfg.Procurement.NotificationScanMinutes)*time.Minute)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logrus.Info("Shutting down server...")

		// Create a deadline for shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server forced to shutdown: %w", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logrus.WithError(err).Error("Server stopped with error")
		database.Close(db)
		os.Exit(1)
	}
	logrus.Info("Server exited")
}

// seedCatalog loads the configured catalog file, or the built-in LOSNCP
// catalog, skipping entries that already exist.
func seedCatalog(ctx context.Context, cfg *config.Config, svc *router.Services) error {
	var (
		catalog *seed.Catalog
		err     error
	)
	if cfg.Procurement.SeedFile != "" {
		catalog, err = seed.LoadFile(cfg.Procurement.SeedFile)
	} else {
		catalog, err = seed.Default()
	}
	if err != nil {
		return err
	}

	report, err := services.NewCatalogSeeder(svc.Catalog, svc.ContractTypes, svc.AmountRanges, svc.Phases).Seed(ctx, catalog)
	if err != nil {
		return err
	}
	logrus.WithField("report", report).Info("Contract catalog seeded")
	return nil
}

// scanNotifications records due-date reminders every interval until ctx
// is done. A zero interval disables the scan.
func scanNotifications(ctx context.Context, notifications *services.NotificationService, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if _, err := notifications.ScanDueNotifications(ctx, now); err != nil {
				logrus.WithError(err).Error("Failed to scan phase due dates")
			}
		}
	}
}
