package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/valueobject"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/dto"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/http/handlers/common"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/service"
)

type DisputeHandler struct {
	disputes *service.DisputeEngine
}

func NewDisputeHandler(disputes *service.DisputeEngine) *DisputeHandler {
	return &DisputeHandler{disputes: disputes}
}

// OpenDispute POST /api/orders/:id/disputes
func (h *DisputeHandler) OpenDispute(c *gin.Context) {
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
	var req dto.OpenDisputeRequest
	if err := common.BindJSON(c, &req, false); err != nil {
		common.Fail(c, err)
		return
	}

	dispute, err := h.disputes.OpenDispute(c.Request.Context(), actor, orderID, req.ReasonCode, req.Description)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.RespondJSON(c, http.StatusCreated, dispute)
}

// ListOrderDisputes GET /api/orders/:id/disputes
func (h *DisputeHandler) ListOrderDisputes(c *gin.Context) {
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
	list, err := h.disputes.ListOrderDisputes(c.Request.Context(), actor, orderID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.RespondOK(c, list)
}

// GetDispute GET /api/disputes/:id
func (h *DisputeHandler) GetDispute(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}
	dispute, err := h.disputes.GetDispute(c.Request.Context(), actor, disputeID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.RespondOK(c, dispute)
}

// SendMessage POST /api/disputes/:id/messages
func (h *DisputeHandler) SendMessage(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}
	var req dto.DisputeMessageRequest
	if err := common.BindJSON(c, &req, false); err != nil {
		common.Fail(c, err)
		return
	}

	msg, err := h.disputes.SendMessage(c.Request.Context(), actor, disputeID, req.Text)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.RespondJSON(c, http.StatusCreated, msg)
}

// ListMessages GET /api/disputes/:id/messages
func (h *DisputeHandler) ListMessages(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}
	msgs, err := h.disputes.ListMessages(c.Request.Context(), actor, disputeID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.RespondOK(c, msgs)
}

// ResolveDispute POST /api/disputes/:id/resolve — только оператор.
func (h *DisputeHandler) ResolveDispute(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}
	var req dto.ResolveDisputeRequest
	if err := common.BindJSON(c, &req, false); err != nil {
		common.Fail(c, err)
		return
	}

	res, err := h.disputes.ResolveDispute(c.Request.Context(), actor, disputeID, service.ResolveInput{
		Decision:    valueobject.DecisionCode(req.DecisionCode),
		Notes:       req.DecisionNotes,
		FinalStatus: valueobject.OrderStatus(req.FinalOrderStatus),
	})
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.RespondOK(c, res)
}

// GetResolution GET /api/disputes/:id/resolution
func (h *DisputeHandler) GetResolution(c *gin.Context) {
	actor, err := common.CurrentActor(c)
	if err != nil {
		common.Fail(c, err)
		return
	}
	disputeID, err := common.ParseUUIDParam(c, "id")
	if err != nil {
		common.Fail(c, err)
		return
	}
	res, err := h.disputes.GetResolution(c.Request.Context(), actor, disputeID)
	if err != nil {
		common.Fail(c, err)
		return
	}
	common.RespondOK(c, res)
}
