package restapi

import (
	"net/http"
	"net/http/pprof"

	"aptoscope/internal/infrastructure/configloader"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"golang.org/x/time/rate"
)

// SetupRouter configures the Gin engine: CORS, request ids, the caller-side
// rate limit on the wallet endpoints, metrics, pprof and Swagger.
func SetupRouter(historyHandler *HistoryHandler, cfg *configloader.Config) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true // Adjust for production
	corsConfig.AllowMethods = []string{"GET", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", RequestIDHeader}
	router.Use(cors.New(corsConfig))

	router.Use(RequestIDMiddleware())

	apiLimiter := rate.NewLimiter(rate.Limit(cfg.APIRateLimit.RequestsPerSecond), cfg.APIRateLimit.Burst)

	v1 := router.Group("/api/v1")
	{
		wallets := v1.Group("/wallets", RateLimitMiddleware(apiLimiter))
		wallets.GET("/:walletAddress/history", historyHandler.GetHistoryHandler)
		wallets.GET("/:walletAddress/balances", historyHandler.GetHoldingsHandler)
	}

	router.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	if cfg.Swagger.Enabled {
		router.StaticFile("/docs/swagger.yaml", "./docs/swagger.yaml")
		swaggerURL := ginSwagger.URL("/docs/swagger.yaml")
		router.GET(cfg.Swagger.Path+"/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, swaggerURL))
	}

	// Pprof endpoints (for debugging performance issues)
	// Make sure to protect these in a production environment
	pprofRouter := router.Group("/debug/pprof")
	{
		pprofRouter.GET("/", gin.WrapF(pprof.Index))
		pprofRouter.GET("/cmdline", gin.WrapF(pprof.Cmdline))
		pprofRouter.GET("/profile", gin.WrapF(pprof.Profile))
		pprofRouter.GET("/symbol", gin.WrapF(pprof.Symbol))
		pprofRouter.GET("/trace", gin.WrapF(pprof.Trace))
		pprofRouter.GET("/allocs", gin.WrapH(pprof.Handler("allocs")))
		pprofRouter.GET("/goroutine", gin.WrapH(pprof.Handler("goroutine")))
		pprofRouter.GET("/heap", gin.WrapH(pprof.Handler("heap")))
	}

	return router
}
