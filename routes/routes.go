package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"catalog/controllers"
	"catalog/middleware"
)

const healthCheckTimeout = 2 * time.Second

// HealthChecker is satisfied by database.Store.
type HealthChecker interface {
	Health(ctx context.Context) error
}

// Deps carries everything route registration needs. Auth is nil when
// no secret key is configured; the API is then fully open, matching
// the service's default deployment.
type Deps struct {
	Products  *controllers.ResourceController
	Books     *controllers.ResourceController
	Auth      *controllers.AuthController
	SecretKey string
	Health    HealthChecker
}

func RegisterRoutes(r *gin.Engine, deps Deps) {
	r.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "catalog service"})
	})
	r.GET("/healthz", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
		defer cancel()
		if err := deps.Health.Health(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")

	var guard gin.HandlerFunc
	if deps.Auth != nil {
		api.POST("/auth/token", deps.Auth.IssueToken)
		guard = middleware.RequireToken(deps.SecretKey)
	}

	registerResource(api.Group("/products"), deps.Products, guard)
	registerResource(api.Group("/books"), deps.Books, guard)
}

// registerResource mounts the full operation set for one resource
// type. Reads stay open; mutations go through the guard when auth is
// enabled.
func registerResource(g *gin.RouterGroup, rc *controllers.ResourceController, guard gin.HandlerFunc) {
	g.GET("", rc.List)
	g.GET("/names", rc.Names)
	g.GET("/category/:category", rc.ListByCategory)
	g.GET("/stats/count", rc.CountStats)
	g.GET("/stats/categories", rc.CategoryStats)
	g.GET("/stats/price-range", rc.PriceStats)
	g.GET("/:id", rc.GetByID)

	mutating := g.Group("")
	if guard != nil {
		mutating.Use(guard)
	}
	mutating.POST("", rc.Create)
	mutating.PUT("/:id", rc.Update)
	mutating.PATCH("/:id", rc.Update)
	mutating.PATCH("/:id/stock", rc.UpdateStock)
	mutating.DELETE("/:id", rc.Delete)
	mutating.DELETE("", rc.DeleteMany)
}
