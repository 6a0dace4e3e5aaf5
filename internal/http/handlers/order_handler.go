package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	domainrepo "github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/repository"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/valueobject"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/dto"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/http/handlers/common"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/models"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/service"
)

// OrderHandler — HTTP-обёртка над OrderEngine.
type OrderHandler struct {
	orders *service.OrderEngine
}

func NewOrderHandler(orders *service.OrderEngine) *OrderHandler {
	return &OrderHandler{orders: orders}
}

// CreateOrder POST /api/orders
func (h *OrderHandler) CreateOrder(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	var req dto.CreateOrderRequest
	if err := common.BindJSON(c, &req, false); err != nil {
		common.Fail(c, err)
		return
	}

	order, err := h.orders.CreateOrder(c.Request.Context(), actor, service.CreateOrderInput{
		ProviderID: req.ProviderID,
		Service: models.ServiceSnapshot{
			ServiceID: req.ServiceID,
			Title:     req.ServiceTitle,
			Price:     req.ServicePrice,
		},
		ScheduledAt: req.ScheduledAt,
		Location:    req.Location,
		Amount:      req.Amount,
		Currency:    req.Currency,
		PricingMode: valueobject.PricingMode(req.PricingMode),
	})
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.RespondJSON(c, http.StatusCreated, order)
}

// ListOrders GET /api/orders?status=&limit=&offset=
func (h *OrderHandler) ListOrders(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	limit, offset := common.GetPagination(c)
	filter := domainrepo.OrderFilter{Limit: limit, Offset: offset}
	if raw := c.Query("status"); raw != "" {
		status, err := valueobject.NewOrderStatus(raw)
		if err != nil {
			common.Fail(c, err)
			return
		}
		filter.Status = &status
	}

	orders, err := h.orders.ListOrders(c.Request.Context(), actor, filter)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.RespondOK(c, dto.ListResponse[models.Order]{Items: orders, Limit: limit, Offset: offset})
}

// GetOrder GET /api/orders/:id
func (h *OrderHandler) GetOrder(c *gin.Context) {
	h.read(c, func(ctx context.Context, actor models.Actor, id uuid.UUID) (any, error) {
		return h.orders.GetOrder(ctx, actor, id)
	})
}

// GetPayment GET /api/orders/:id/payment
func (h *OrderHandler) GetPayment(c *gin.Context) {
	h.read(c, func(ctx context.Context, actor models.Actor, id uuid.UUID) (any, error) {
		return h.orders.GetPayment(ctx, actor, id)
	})
}

// GetAuditTrail GET /api/orders/:id/audit
func (h *OrderHandler) GetAuditTrail(c *gin.Context) {
	h.read(c, func(ctx context.Context, actor models.Actor, id uuid.UUID) (any, error) {
		return h.orders.GetAuditTrail(ctx, actor, id)
	})
}

// ReplayStatus GET /api/orders/:id/audit/replay
func (h *OrderHandler) ReplayStatus(c *gin.Context) {
	h.read(c, func(ctx context.Context, actor models.Actor, id uuid.UUID) (any, error) {
		return h.orders.ReplayStatus(ctx, actor, id)
	})
}

// AcceptOrder POST /api/orders/:id/accept
func (h *OrderHandler) AcceptOrder(c *gin.Context) { h.transition(c, h.orders.AcceptOrder) }

// FundEscrow POST /api/orders/:id/fund
func (h *OrderHandler) FundEscrow(c *gin.Context) { h.transition(c, h.orders.FundEscrow) }

// BeginExecution POST /api/orders/:id/begin
func (h *OrderHandler) BeginExecution(c *gin.Context) { h.transition(c, h.orders.BeginExecution) }

// ConfirmStart POST /api/orders/:id/confirm-start
func (h *OrderHandler) ConfirmStart(c *gin.Context) { h.transition(c, h.orders.ConfirmStart) }

// RequestFinish POST /api/orders/:id/request-finish
func (h *OrderHandler) RequestFinish(c *gin.Context) { h.transition(c, h.orders.RequestFinish) }

// ConfirmFinish POST /api/orders/:id/confirm-finish
func (h *OrderHandler) ConfirmFinish(c *gin.Context) {
	h.transition(c, h.orders.ConfirmExecutionFinish)
}

// RejectOrder POST /api/orders/:id/reject {"reason": "..."}
func (h *OrderHandler) RejectOrder(c *gin.Context) { h.transitionWithReason(c, h.orders.RejectOrder) }

// CancelOrder POST /api/orders/:id/cancel {"reason": "..."}
func (h *OrderHandler) CancelOrder(c *gin.Context) { h.transitionWithReason(c, h.orders.CancelOrder) }

type transitionFunc func(ctx context.Context, actor models.Actor, orderID uuid.UUID) (*models.Order, error)

type reasonTransitionFunc func(ctx context.Context, actor models.Actor, orderID uuid.UUID, reason string) (*models.Order, error)

func (h *OrderHandler) transition(c *gin.Context, fn transitionFunc) {
	h.transitionWithReason(c, func(ctx context.Context, actor models.Actor, id uuid.UUID, _ string) (*models.Order, error) {
		return fn(ctx, actor, id)
	})
}

func (h *OrderHandler) transitionWithReason(c *gin.Context, fn reasonTransitionFunc) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}
	var req dto.ReasonRequest
	if err := common.BindJSON(c, &req, true); err != nil {
		common.Fail(c, err)
		return
	}

	order, err := fn(c.Request.Context(), actor, orderID, req.Reason)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.RespondOK(c, order)
}

func (h *OrderHandler) read(c *gin.Context, fn func(ctx context.Context, actor models.Actor, id uuid.UUID) (any, error)) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	orderID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}
	out, err := fn(c.Request.Context(), actor, orderID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.RespondOK(c, out)
}
