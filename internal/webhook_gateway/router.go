package webhook_gateway

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vocalix-payment-gateway/internal/webhook_gateway/handler"
	"github.com/vocalix-payment-gateway/internal/webhook_gateway/middleware"
)

// setupRouter configures webhook, merchant API and operational routes
func setupRouter(
	logger *slog.Logger,
	r *gin.Engine,
	clickHandler *handler.ClickHandler,
	paymeHandler *handler.PaymeHandler,
	merchantHandler *handler.MerchantHandler,
) {
	// Correlation ids are assigned first so request logs and journal
	// entries all carry one
	r.Use(middleware.CorrelationID())
	r.Use(middleware.Logger(logger))
	r.Use(middleware.Recovery(logger))

	// Gateway callback endpoints
	webhooks := r.Group("/webhooks")
	{
		webhooks.POST("/click/prepare", clickHandler.Prepare)
		webhooks.POST("/click/complete", clickHandler.Complete)
		webhooks.POST("/payme", paymeHandler.Handle)
	}

	// Merchant API endpoints
	v1 := r.Group("/api/v1")
	{
		transactions := v1.Group("/transactions")
		{
			transactions.POST("", merchantHandler.Create)
			transactions.GET("/:reference_id", merchantHandler.GetByReference)
		}

		v1.GET("/wallets/:account_id/balance", merchantHandler.GetBalance)
	}

	// Health check endpoint for monitoring
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})

	// Prometheus scrape endpoint
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
}
