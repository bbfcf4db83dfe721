// internal/router/router.go
package router

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/municipal/procurement-backend/internal/config"
	"github.com/municipal/procurement-backend/internal/handlers"
	"github.com/municipal/procurement-backend/internal/metrics"
	"github.com/municipal/procurement-backend/internal/middleware"
	"github.com/municipal/procurement-backend/internal/repository"
	"github.com/municipal/procurement-backend/internal/services"
)

// Services are the collaborators the routes dispatch to.
type Services struct {
	Catalog       services.CatalogStore
	ContractTypes *services.ContractTypeService
	AmountRanges  *services.AmountRangeService
	Phases        *services.PhaseService
	Contracts     *services.ContractService
	Documents     *services.DocumentService
	Integrity     *services.IntegrityService
	Notifications *services.NotificationService
	Permissions   *services.PermissionService
	Audit         middleware.AuditWriter
}

// NewServices wires the database repositories into the services.
func NewServices(db *gorm.DB, cfg *config.Config, m *metrics.Metrics) (*Services, error) {
	catalog := repository.NewCatalogRepository(db)
	contracts := repository.NewContractRepository(db)
	documents := repository.NewDocumentRepository(db)
	departments := repository.NewDepartmentRepository(db)
	notifications := repository.NewNotificationRepository(db)

	blobs, err := services.NewBlobStore(cfg.AWS, filesBaseURL(cfg))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize document storage: %w", err)
	}

	permissions := services.NewPermissionService(departments)
	contractTypes := services.NewContractTypeService(catalog, m, cfg.Procurement.DefaultContractType)
	contractTypes.SetDefaultObjectCategories(cfg.Procurement.DefaultObjectCategories)
	return &Services{
		Catalog:       catalog,
		ContractTypes: contractTypes,
		AmountRanges:  services.NewAmountRangeService(catalog, m),
		Phases:        services.NewPhaseService(catalog, m),
		Contracts:     services.NewContractService(catalog, contracts, documents, permissions, cfg.Procurement, m),
		Documents:     services.NewDocumentService(contracts, documents, blobs, permissions, cfg.Procurement.MaxDocumentSize),
		Integrity:     services.NewIntegrityService(catalog),
		Notifications: services.NewNotificationService(notifications, m),
		Permissions:   permissions,
		Audit:         repository.NewAuditRepository(db),
	}, nil
}

func Initialize(ctx context.Context, db *gorm.DB, cfg *config.Config, m *metrics.Metrics) (*gin.Engine, error) {
	svc, err := NewServices(db, cfg, m)
	if err != nil {
		return nil, err
	}
	return Setup(ctx, cfg, m, svc), nil
}

// Setup registers middleware and routes. Rate limiter bookkeeping stops
// when ctx is done.
func Setup(ctx context.Context, cfg *config.Config, m *metrics.Metrics, svc *Services) *gin.Engine {
	catalogHandler := handlers.NewCatalogHandler(svc.ContractTypes, svc.AmountRanges, svc.Phases)
	contractHandler := handlers.NewContractHandler(svc.Contracts)
	documentHandler := handlers.NewDocumentHandler(svc.Documents, cfg.Procurement.MaxDocumentSize)
	adminHandler := handlers.NewAdminHandler(svc.Integrity, svc.Notifications, svc.Permissions)

	generalLimit := middleware.NewRateLimiterFromConfig(cfg.RateLimit)
	uploadLimit := middleware.NewRateLimiter(rate.Limit(1), 5)
	go generalLimit.Cleanup(ctx.Done())
	go uploadLimit.Cleanup(ctx.Done())

	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.CORS(cfg.Frontend.BaseURL, cfg.Environment))
	r.Use(middleware.I18nMiddleware(cfg.I18n.DefaultLocale))
	r.Use(generalLimit.Middleware())
	r.Use(middleware.RequestMetrics(m))
	if svc.Audit != nil {
		r.Use(middleware.AuditLogMiddleware(svc.Audit))
	}

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})
	r.GET("/metrics", gin.WrapH(m.Handler()))

	if cfg.Environment == "development" && !cfg.AWS.Enabled() {
		r.Static("/files", cfg.AWS.LocalStorageDir)
	}

	admin := []gin.HandlerFunc{middleware.AuthRequired(), middleware.AdminRequired()}

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Contract type catalog
		contractTypes := v1.Group("/contract-types")
		{
			contractTypes.GET("", middleware.OptionalAuth(), catalogHandler.ListContractTypes)
			contractTypes.GET("/resolve", middleware.OptionalAuth(), catalogHandler.ResolveContractType)
			contractTypes.GET("/:code", middleware.OptionalAuth(), catalogHandler.GetContractType)
			contractTypes.GET("/:code/phases", middleware.OptionalAuth(), catalogHandler.GetPhaseSequence)

			protected := contractTypes.Group("", admin...)
			{
				protected.POST("", catalogHandler.CreateContractType)
				protected.PUT("/:code", catalogHandler.UpdateContractType)
				protected.DELETE("/:code", catalogHandler.DeactivateContractType)
			}
		}

		// Amount ranges
		amountRanges := v1.Group("/amount-ranges", admin...)
		{
			amountRanges.GET("", catalogHandler.ListAmountRanges)
			amountRanges.POST("", catalogHandler.CreateAmountRange)
			amountRanges.PUT("/:id", catalogHandler.UpdateAmountRange)
			amountRanges.DELETE("/:id", catalogHandler.DeactivateAmountRange)
		}

		// Phase catalog
		phases := v1.Group("/phases")
		{
			phases.GET("", middleware.OptionalAuth(), catalogHandler.ListPhases)
			phases.GET("/:code", middleware.OptionalAuth(), catalogHandler.GetPhase)

			protected := phases.Group("", admin...)
			{
				protected.POST("", catalogHandler.CreatePhase)
				protected.PUT("/:code", catalogHandler.UpdatePhase)
				protected.DELETE("/:code", catalogHandler.DeactivatePhase)
				protected.PUT("/:code/overrides/:type", catalogHandler.UpsertOverride)
				protected.DELETE("/:code/overrides/:type", catalogHandler.DeleteOverride)
			}
		}

		// Contracts
		contracts := v1.Group("/contracts")
		contracts.Use(middleware.AuthRequired())
		{
			contracts.POST("", contractHandler.CreateContract)
			contracts.GET("", contractHandler.ListContracts)
			contracts.GET("/:id", contractHandler.GetContract)
			contracts.GET("/:id/progress", contractHandler.GetProgress)
			contracts.PUT("/:id/status", contractHandler.UpdateStatus)
			contracts.POST("/:id/advance", contractHandler.AdvancePhase)

			contracts.POST("/:id/phases/:phase/start", contractHandler.StartPhase)
			contracts.POST("/:id/phases/:phase/complete", contractHandler.CompletePhase)
			contracts.POST("/:id/phases/:phase/cancel", contractHandler.CancelPhase)
			contracts.PUT("/:id/phases/:phase/progress", contractHandler.UpdateProgress)

			contracts.GET("/:id/phases/:phase/documents", documentHandler.ListDocuments)
			contracts.POST("/:id/phases/:phase/documents", uploadLimit.Middleware(), documentHandler.UploadDocument)
			contracts.GET("/:id/documents/:docId/url", documentHandler.GetDownloadURL)
			contracts.DELETE("/:id/documents/:docId", documentHandler.DeleteDocument)
		}

		// Admin routes
		adminGroup := v1.Group("/admin", admin...)
		{
			adminGroup.GET("/catalog/integrity", adminHandler.CatalogIntegrity)
			adminGroup.GET("/notifications", adminHandler.ListPendingNotifications)
			adminGroup.POST("/notifications/scan", adminHandler.ScanNotifications)
			adminGroup.GET("/departments", adminHandler.ListDepartments)
			adminGroup.POST("/departments/:id/permissions", adminHandler.GrantPermission)
		}
	}

	return r
}

// filesBaseURL is where locally stored documents are served from.
func filesBaseURL(cfg *config.Config) string {
	return fmt.Sprintf("http://%s:%s/files", cfg.Server.Host, cfg.Server.Port)
}
