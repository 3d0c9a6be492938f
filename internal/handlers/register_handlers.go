package handlers

import (
	"net/http"
	"time"

	"github.com/SscSPs/procureflow/cmd/docs"
	"github.com/SscSPs/procureflow/internal/core/services"
	"github.com/SscSPs/procureflow/internal/middleware"
	"github.com/SscSPs/procureflow/internal/platform/config"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"github.com/ulule/limiter/v3"
)

// RegisterRoutes sets up all application routes on top of the service container.
// limiterInstance may be nil to disable rate limiting.
func RegisterRoutes(
	r *gin.Engine,
	cfg *config.Config,
	container *services.Container,
	limiterInstance *limiter.Limiter,
) {
	corsCfg := cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", HeaderIdempotencyKey, middleware.HeaderRequestID, middleware.HeaderCorrelationID},
		ExposeHeaders:    []string{middleware.HeaderRequestID, middleware.HeaderCorrelationID, "X-RateLimit-Limit", "X-RateLimit-Remaining"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(corsCfg.AllowOrigins) == 0 {
		// cors.New panics without any allowed origin.
		corsCfg.AllowOrigins = nil
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	}
	r.Use(cors.New(corsCfg))

	r.GET("/health", func(c *gin.Context) {
		c.String(http.StatusOK, "OK")
	})

	setupAPIV1Routes(r, cfg, container, limiterInstance)
	setupSwaggerRoutes(r, cfg)
}

// setupAPIV1Routes configures the /api/v1 group and delegates to the entity route registrations.
func setupAPIV1Routes(r *gin.Engine, cfg *config.Config, container *services.Container, limiterInstance *limiter.Limiter) {
	chain := []gin.HandlerFunc{middleware.AuthMiddleware(cfg.JWTSecret)}
	if limiterInstance != nil {
		chain = append(chain, middleware.RateLimit(limiterInstance))
	}
	v1 := r.Group("/api/v1", chain...)

	RegisterPurchaseRequestRoutes(v1, container.Executor, container.Boundaries)
	RegisterApplicationRoutes(v1, container.Executor, container.Boundaries)
	RegisterWorkflowDefinitionRoutes(v1, container.Executor)
	RegisterAuditRoutes(v1, container.Executor)
}

func setupSwaggerRoutes(r *gin.Engine, cfg *config.Config) {
	if cfg.IsProduction {
		//no swagger in prod
		return
	}
	docs.SwaggerInfo.BasePath = "/api/v1"
	swagger := r.Group("/swagger")
	swagger.GET("/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}
