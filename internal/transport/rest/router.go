package rest

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/vladislavdragonenkov/orderapi/internal/metrics"
)

// RouterOptions задаёт необязательные части роутера.
type RouterOptions struct {
	Logger *log.Entry
	// Metrics может быть nil: тогда HTTP-метрики не собираются.
	Metrics *metrics.HTTPMetrics
	// При пустом CORSAllowOrigins CORS-заголовки не выставляются; "*" разрешает любой origin.
	CORSAllowOrigins []string
}

// NewRouter собирает gin.Engine с middleware и маршрутами API под /api/v1.
func NewRouter(svc OrderService, opts RouterOptions) *gin.Engine {
	logger := opts.Logger
	if logger == nil {
		logger = log.New().WithField("component", "rest")
	}

	engine := gin.New()
	engine.Use(recovery(logger), requestLogger(logger), requestMetrics(opts.Metrics))
	if len(opts.CORSAllowOrigins) > 0 {
		engine.Use(cors.New(corsConfig(opts.CORSAllowOrigins)))
	}

	engine.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, errorResponse{Error: "not found"})
	})

	NewHandler(svc, logger).Register(engine.Group(APIPrefix))
	return engine
}

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Origin", "Content-Type", HeaderOrderID},
		ExposeHeaders: []string{"Location"},
		MaxAge:        12 * time.Hour,
	}
	for _, origin := range origins {
		if origin == "*" {
			cfg.AllowAllOrigins = true
			return cfg
		}
	}
	cfg.AllowOrigins = origins
	return cfg
}
