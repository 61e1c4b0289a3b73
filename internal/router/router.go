package router

import (
	"time"

	"zerostress/internal/config"
	"zerostress/internal/handler"
	"zerostress/internal/infra"
	"zerostress/internal/middleware"
	"zerostress/internal/repository"
	"zerostress/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Services is the service layer shared by the HTTP routes and the
// background workers.
type Services struct {
	Cajas   service.CajaService
	Llaves  service.LlaveService
	Cuentas service.CuentaService
}

// NewServices picks the key and payment adapters (Postgres or external API)
// and builds the services on top of them. zs is nil unless cfg.UsesRemote().
// Dependency graph: Service ← Repository ← DB/Redis/external API
func NewServices(cfg *config.Config, db *gorm.DB, rdb *redis.Client, zs *infra.ZSClient, notifier service.CierreNotifier) *Services {
	loc := cfg.Location()

	// ── Repositories ─────────────────────────────────────────────────────────
	cajaRepo := repository.NewCajaRepository(db)
	cuentaRepo := repository.NewCuentaRepository(db)

	var (
		llaveRepo repository.LlaveRepository
		pagoRepo  repository.PagoRepository
	)
	if zs != nil {
		llaveRepo = repository.NewRemoteLlaveRepository(zs, loc)
		pagoRepo = repository.NewRemotePagoRepository(zs, loc)
	} else {
		llaveRepo = repository.NewLlaveRepository(db)
		pagoRepo = repository.NewPagoRepository(db)
	}

	// ── Services ─────────────────────────────────────────────────────────────
	boardTTL := time.Duration(cfg.BoardRefreshSeconds) * time.Second
	llaveSvc := service.NewLlaveService(llaveRepo, cuentaRepo, rdb, boardTTL)

	return &Services{
		Cajas:   service.NewCajaService(cajaRepo, pagoRepo, notifier, loc),
		Llaves:  llaveSvc,
		Cuentas: service.NewCuentaService(cuentaRepo, llaveSvc, pagoRepo),
	}
}

// New returns the configured Gin engine.
func New(cfg *config.Config, db *gorm.DB, rdb *redis.Client, zs *infra.ZSClient, svcs *Services, hub *handler.TableroHub) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.AllowedOrigins()))
	r.Use(middleware.Metrics())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute)) // 1000 req/min per IP

	// ── Handlers ─────────────────────────────────────────────────────────────
	cajaH := handler.NewCajaHandler(svcs.Cajas)
	llavesH := handler.NewLlavesHandler(svcs.Llaves)
	cuentasH := handler.NewCuentasHandler(svcs.Cuentas)
	cierresH := handler.NewCierresHandler(rdb)

	// ── Routes ───────────────────────────────────────────────────────────────
	r.GET("/health", handler.Health(db, rdb, zs))
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/v1")
	{
		v1.GET("/cajas", cajaH.ListarFechas)

		caja := v1.Group("/caja/:fecha")
		{
			caja.GET("", cajaH.Obtener)
			caja.POST("/abrir", cajaH.Abrir)
			caja.POST("/cerrar", cajaH.Cerrar)
			caja.GET("/resumen", cajaH.Resumen)
			caja.GET("/movimientos", cajaH.ListarManuales)
			caja.POST("/movimientos", cajaH.AgregarManual)
			caja.DELETE("/movimientos/:id", cajaH.EliminarManual)
			caja.GET("/pagos", cajaH.ListarPagos)
			caja.GET("/exportar", cajaH.Exportar)
		}

		llaves := v1.Group("/llaves")
		{
			llaves.GET("", llavesH.Tablero)
			llaves.GET("/ws", hub.Stream(svcs.Llaves))
			llaves.GET("/:codigo", llavesH.Obtener)
			llaves.PATCH("/:codigo", llavesH.Actualizar)
			llaves.POST("/:codigo/asignar", llavesH.Asignar)
			llaves.POST("/:codigo/liberar", llavesH.Liberar)
		}

		cuentas := v1.Group("/cuentas")
		{
			cuentas.POST("", cuentasH.Abrir)
			cuentas.GET("", cuentasH.Listar)
			cuentas.GET("/:id", cuentasH.Obtener)
			cuentas.POST("/:id/cargos", cuentasH.AgregarCargo)
			cuentas.POST("/:id/llaves", cuentasH.AgregarLlave)
			cuentas.DELETE("/:id/llaves/:codigo", cuentasH.QuitarLlave)
			cuentas.POST("/:id/cerrar", cuentasH.Cerrar)
		}

		v1.GET("/cierres/fallidos", cierresH.Fallidos)
		v1.POST("/cierres/fallidos/reintentar", cierresH.Reintentar)
	}

	// Swagger UI, only outside production
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
