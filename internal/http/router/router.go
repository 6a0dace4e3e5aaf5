package router

import (
	"github.com/gin-gonic/gin"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/config"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/http/handlers"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/http/middleware"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/metrics"
)

// Handlers — всё, что нужно роутеру. WS и Metrics необязательны.
type Handlers struct {
	Orders      *handlers.OrderHandler
	Disputes    *handlers.DisputeHandler
	AuditStream *handlers.AuditStreamHandler
	Health      *handlers.HealthHandler
	WS          *handlers.WSHandler
	Tokens      middleware.AccessTokenParser
	Metrics     *metrics.Metrics
}

func SetupRouter(cfg *config.Config, h Handlers) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestMetrics(h.Metrics))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", h.Health.Health)
	if h.Metrics != nil {
		r.GET("/metrics", gin.WrapH(h.Metrics.Handler()))
	}

	api := r.Group("/api")
	if h.WS != nil {
		api.GET("/ws", h.WS.Handle)
	}

	protected := api.Group("/")
	protected.Use(middleware.AuthMiddleware(h.Tokens))

	// Изменяющие запросы ограничиваются по пользователю.
	mutating := protected.Group("/")
	mutating.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))

	id := middleware.UUIDValidator("id")

	protected.GET("/orders", h.Orders.ListOrders)
	protected.GET("/orders/:id", id, h.Orders.GetOrder)
	protected.GET("/orders/:id/payment", id, h.Orders.GetPayment)
	protected.GET("/orders/:id/audit", id, h.Orders.GetAuditTrail)
	protected.GET("/orders/:id/audit/replay", id, h.Orders.ReplayStatus)
	protected.GET("/orders/:id/audit/stream", id, h.AuditStream.Stream)
	protected.GET("/orders/:id/disputes", id, h.Disputes.ListOrderDisputes)

	mutating.POST("/orders", h.Orders.CreateOrder)
	mutating.POST("/orders/:id/accept", id, h.Orders.AcceptOrder)
	mutating.POST("/orders/:id/reject", id, h.Orders.RejectOrder)
	mutating.POST("/orders/:id/fund", id, h.Orders.FundEscrow)
	mutating.POST("/orders/:id/begin", id, h.Orders.BeginExecution)
	mutating.POST("/orders/:id/confirm-start", id, h.Orders.ConfirmStart)
	mutating.POST("/orders/:id/request-finish", id, h.Orders.RequestFinish)
	mutating.POST("/orders/:id/confirm-finish", id, h.Orders.ConfirmFinish)
	mutating.POST("/orders/:id/cancel", id, h.Orders.CancelOrder)
	mutating.POST("/orders/:id/disputes", id, h.Disputes.OpenDispute)

	protected.GET("/disputes/:id", id, h.Disputes.GetDispute)
	protected.GET("/disputes/:id/messages", id, h.Disputes.ListMessages)
	protected.GET("/disputes/:id/resolution", id, h.Disputes.GetResolution)
	mutating.POST("/disputes/:id/messages", id, h.Disputes.SendMessage)
	mutating.POST("/disputes/:id/resolve", id, h.Disputes.ResolveDispute)

	return r
}
