package router

import (
	"time"

	"recovr/internal/config"
	"recovr/internal/handler"
	"recovr/internal/infra"
	"recovr/internal/kvstore"
	"recovr/internal/middleware"
	"recovr/internal/model"
	"recovr/internal/repository"
	"recovr/internal/service"
	"recovr/internal/worker"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

// Deps are the infrastructure pieces built by the composition root.
// Redis, Dispatcher, AI and Breaker may be nil; the features behind them
// then degrade (no follow-up jobs, assistant answers 503).
type Deps struct {
	Store      kvstore.Store
	Redis      *redis.Client
	Dispatcher *worker.Dispatcher
	AI         service.AIClient
	Breaker    *infra.CircuitBreaker
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← Store
func New(cfg *config.Config, deps Deps) *gin.Engine {
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
	clientRepo := repository.NewClientRepository(deps.Store)
	paymentRepo := repository.NewPaymentRepository(deps.Store)
	userRepo := repository.NewUserRepository(deps.Store)
	chatRepo := repository.NewChatRepository(deps.Store)

	// ── Services ─────────────────────────────────────────────────────────────
	authSvc := service.NewAuthService(userRepo, cfg)
	clientSvc := service.NewClientService(clientRepo, userRepo)
	ledgerSvc := service.NewLedgerService(clientRepo, paymentRepo, deps.Dispatcher)
	statsSvc := service.NewStatsService(clientRepo, userRepo)
	assistantSvc := service.NewAssistantService(deps.AI, chatRepo, deps.Dispatcher, cfg.VideoStoragePath)

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(authSvc)
	clientsH := handler.NewClientsHandler(clientSvc, ledgerSvc)
	paymentsH := handler.NewPaymentsHandler(ledgerSvc)
	meH := handler.NewMeHandler(clientSvc, ledgerSvc)
	statsH := handler.NewStatsHandler(statsSvc)
	assistantH := handler.NewAssistantHandler(assistantSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(deps.Store, deps.Redis, deps.Breaker))

	// Auth (public)
	auth := r.Group("/v1/auth")
	{
		auth.POST("/register", authH.Register)
		auth.POST("/login", middleware.LoginRateLimiter(), authH.Login)
		auth.POST("/refresh", authH.Refresh)
		auth.GET("/admin-exists", authH.AdminExists)
		recovery := auth.Group("/recover", middleware.LoginRateLimiter())
		{
			recovery.POST("/verify", authH.VerifyRecovery)
			recovery.POST("/reset", authH.ResetPassword)
		}
	}

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		v1.GET("/auth/me", authH.Me)
		v1.POST("/auth/password", authH.ChangePassword)

		staff := middleware.RequireRole(model.RoleSalesman, model.RoleCompany)
		clients := v1.Group("/clients", staff)
		{
			clients.POST("", middleware.RequireRole(model.RoleSalesman), clientsH.Enroll)
			clients.GET("", clientsH.Lookup)
			clients.GET("/:id", clientsH.Get)
			clients.GET("/:id/history", clientsH.History)
			clients.GET("/:id/ledger", clientsH.Ledger)
			clients.GET("/:id/ledger/export", clientsH.ExportLedger)
		}

		v1.POST("/payments", middleware.RequireRole(model.RoleSalesman), paymentsH.Record)

		v1.GET("/me/ledger", middleware.RequireRole(model.RoleClient), meH.Ledger)

		v1.GET("/stats/company", middleware.RequireRole(model.RoleCompany), statsH.Company)
		v1.GET("/stats/salesman", middleware.RequireRole(model.RoleSalesman), statsH.Salesman)

		assistant := v1.Group("/assistant")
		{
			assistant.GET("/chat", assistantH.History)
			assistant.POST("/chat", assistantH.Chat)
			assistant.POST("/receipt", assistantH.Receipt)
			assistant.POST("/verify", assistantH.Verify)
			assistant.POST("/speak", assistantH.Speak)
			assistant.POST("/video", assistantH.RequestVideo)
			assistant.GET("/video/:id", assistantH.VideoStatus)
			assistant.GET("/video/:id/file", assistantH.VideoFile)
		}
	}

	// Swagger UI — only enabled outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
