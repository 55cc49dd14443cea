package router

import (
	"context"
	"time"

	"cajaflow/internal/config"
	"cajaflow/internal/handler"
	"cajaflow/internal/infra"
	"cajaflow/internal/middleware"
	"cajaflow/internal/repository"
	"cajaflow/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the collaborators built by the composition root. Every field is
// optional: a nil Jobs disables closing reports, a nil MailCB hides the SMTP
// state from /health.
type Deps struct {
	Jobs   service.CierreDispatcher
	MailCB *infra.CircuitBreaker
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
// ctx bounds background goroutines started here (rate limiter purge).
func New(ctx context.Context, cfg *config.Config, db *gorm.DB, rdb *redis.Client, deps Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.ErrorHandler())
	if cfg.RateLimit > 0 {
		r.Use(middleware.NewRateLimiter(ctx, cfg.RateLimit, time.Minute).Middleware())
	}

	// ── Repositories ─────────────────────────────────────────────────────────
	cajaRepo := repository.NewCajaRepository(db)
	pagoRepo := repository.NewPagoRepository(db)
	negocioRepo := repository.NewNegocioRepository(db)

	// ── Services ─────────────────────────────────────────────────────────────
	guard := service.NewMemberGuard(negocioRepo)
	opts := []service.CajaOption{service.WithTolerance(cfg.Tolerance())}
	if rdb != nil {
		bus := infra.NewEventBus(rdb)
		opts = append(opts, service.WithEvents(bus), service.WithEventStream(bus))
	}
	if deps.Jobs != nil {
		opts = append(opts, service.WithCierreJobs(deps.Jobs))
	}
	cajaSvc := service.NewCajaService(cajaRepo, pagoRepo, negocioRepo, guard, opts...)
	reporteSvc := service.NewReporteService(cajaRepo, pagoRepo, negocioRepo, guard, cfg.ReportTimezone)

	// ── Handlers ─────────────────────────────────────────────────────────────
	cajaH := handler.NewCajaHandler(cajaSvc)
	reportesH := handler.NewReportesHandler(reporteSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(db, rdb, deps.MailCB))

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		anyRole := middleware.RequireRole(middleware.RolOwner, middleware.RolManager, middleware.RolCashier)
		managers := middleware.RequireRole(middleware.RolOwner, middleware.RolManager)

		caja := v1.Group("/caja", anyRole)
		{
			caja.POST("/abrir", cajaH.Abrir)
			caja.GET("/actual", cajaH.Actual)
			caja.GET("/eventos", cajaH.Eventos)
			caja.GET("/historial", managers, cajaH.Historial)
			caja.GET("/:id", cajaH.Detalle)
			caja.POST("/:id/gastos", cajaH.RegistrarGasto)
			caja.GET("/:id/gastos", cajaH.ListarGastos)
			caja.PUT("/:id/denominaciones", cajaH.RegistrarDenominacion)
			caja.GET("/:id/denominaciones", cajaH.Denominaciones)
			caja.POST("/:id/cerrar", cajaH.Cerrar)
		}

		reportes := v1.Group("/reportes", managers)
		{
			reportes.GET("/diario", reportesH.Diario)
			reportes.GET("/periodo", reportesH.Periodo)
		}
	}

	// Swagger UI, only outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
