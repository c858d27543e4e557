package router

import (
	"time"

	"stocklink/internal/config"
	"stocklink/internal/erp"
	"stocklink/internal/handler"
	"stocklink/internal/middleware"
	"stocklink/internal/model"
	"stocklink/internal/repository"
	"stocklink/internal/service"
	"stocklink/internal/worker"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis/ERP registry
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, registry *erp.Registry, dispatcher *worker.Dispatcher) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Repositories ─────────────────────────────────────────────────────────
	userRepo := repository.NewUserRepository(db)
	transferRepo := repository.NewTransferRepository(db)
	historyRepo := repository.NewHistoryRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, cfg)
	transferSvc := service.NewTransferService(transferRepo, historyRepo, registry, dispatcher, cfg)
	historySvc := service.NewHistoryService(historyRepo, transferRepo, rdb)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	connectionsH := handler.NewConnectionsHandler(registry, cfg)
	transfersH := handler.NewTransfersHandler(transferSvc)
	historyH := handler.NewHistoryHandler(historySvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, registry))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		anyRole := middleware.RequireRole(model.RoleAdmin, model.RoleWarehouse, model.RoleCashier)

		conn := v1.Group("/connections", middleware.RequireRole(model.RoleAdmin))
		{
			conn.POST("/principal", connectionsH.ConnectPrincipal)
			conn.POST("/branch", connectionsH.ConnectBranch)
			conn.DELETE("/:role", connectionsH.Disconnect)
		}
		v1.GET("/connections/status", anyRole, connectionsH.Status)
		v1.GET("/locations", anyRole, connectionsH.Locations)

		transfers := v1.Group("/transfers")
		{
			transfers.POST("/prepare", anyRole, transfersH.Prepare)
			transfers.POST("/validate", anyRole, transfersH.Validate)
			transfers.GET("/pending", anyRole, transfersH.Pending)
			transfers.GET("/:id", anyRole, transfersH.Get)
			transfers.POST("/verify", middleware.RequireRole(model.RoleWarehouse), transfersH.Verify)
			transfers.POST("/confirm", middleware.RequireRole(model.RoleAdmin), transfersH.ConfirmDirect)
			transfers.POST("/:id/confirm", middleware.RequireRole(model.RoleAdmin), transfersH.Confirm)
			transfers.DELETE("/:id", middleware.RequireRole(model.RoleAdmin), transfersH.Cancel)
		}

		history := v1.Group("/history")
		{
			history.GET("", anyRole, historyH.Feed)
			history.GET("/me", anyRole, historyH.MyFeed)
			history.GET("/products", anyRole, historyH.SearchProducts)
			history.GET("/export", middleware.RequireRole(model.RoleAdmin, model.RoleWarehouse), historyH.Export)
			history.GET("/:id", anyRole, historyH.Detail)
			history.GET("/:id/pdf", anyRole, historyH.PDF)
		}
	}

	return r
}
