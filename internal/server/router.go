package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	apperrors "orderflow/internal/common/errors"
	"orderflow/internal/common/logger"
	"orderflow/internal/common/observability"
	"orderflow/internal/notification"
	"orderflow/internal/order"
)

// Handler bundles the HTTP surface over the order and notification services.
type Handler struct {
	orders     *order.Service
	aggregator *notification.Aggregator
	records    *notification.Store
	errs       *apperrors.ErrorHandler
	log        logger.Logger
	obs        *observability.Observability
}

func NewHandler(orders *order.Service, aggregator *notification.Aggregator, records *notification.Store, log logger.Logger, obs *observability.Observability) *Handler {
	return &Handler{
		orders:     orders,
		aggregator: aggregator,
		records:    records,
		errs:       apperrors.NewErrorHandler(log.WithFields(map[string]interface{}{"component": "http"})),
		log:        log,
		obs:        obs,
	}
}

// Setup registers all HTTP routes.
func Setup(r *gin.Engine, h *Handler) {
	r.Use(h.requestMetrics())

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.POST("/orders", h.createOrder)
	r.GET("/orders/:id", h.getOrder)
	r.PUT("/orders/:id", h.transitionOrder)

	r.GET("/notifications", h.listNotifications)
	r.GET("/notifications/feed", h.loadFeed)
	r.GET("/notifications/unread-count", h.unreadCount)
	r.POST("/notifications/mark-read", h.markRead)
}

// NewMetricsServer builds a standalone /metrics listener for deployments
// that scrape on a separate port. When no metrics address is configured the
// main router's /metrics route serves the same registry.
func NewMetricsServer(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	return &http.Server{Addr: addr, Handler: mux}
}

func (h *Handler) requestMetrics() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		if h.obs != nil {
			h.obs.RecordRequest(c.Request.Context(), c.FullPath(), c.Writer.Status())
			h.obs.RecordRequestDuration(c.Request.Context(), time.Since(start), c.FullPath())
		}
	}
}
