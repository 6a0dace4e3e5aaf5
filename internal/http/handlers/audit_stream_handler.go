package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/audit"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/http/handlers/common"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/service"
)

const sseHeartbeat = 15 * time.Second

// AuditStreamHandler отдаёт журнал заказа через SSE: сначала сохранённую историю, затем живые записи.
type AuditStreamHandler struct {
	orders *service.OrderEngine
	broker *audit.Broker
}

func NewAuditStreamHandler(orders *service.OrderEngine, broker *audit.Broker) *AuditStreamHandler {
	return &AuditStreamHandler{orders: orders, broker: broker}
}

// Stream GET /api/orders/:id/audit/stream
func (h *AuditStreamHandler) Stream(c *gin.Context) {
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

	ctx := c.Request.Context()
	// Подписка до чтения истории, чтобы не потерять записи между ними.
	live := h.broker.Subscribe(ctx, orderID)
	history, err := h.orders.GetAuditTrail(ctx, actor, orderID)
	if err != nil {
		common.Fail(c, err)
		return
	}

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	seen := make(map[string]struct{}, len(history))
	for _, entry := range history {
		seen[entry.ID] = struct{}{}
		if err := writeSSEJSON(c.Writer, "audit", entry); err != nil {
			return
		}
	}
	c.Writer.Flush()

	heartbeat := time.NewTicker(sseHeartbeat)
	defer heartbeat.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case entry, ok := <-live:
			if !ok {
				return
			}
			if _, dup := seen[entry.ID]; dup {
				continue
			}
			if err := writeSSEJSON(c.Writer, "audit", entry); err != nil {
				return
			}
			c.Writer.Flush()
		case <-heartbeat.C:
			if _, err := io.WriteString(c.Writer, ": ping\n\n"); err != nil {
				return
			}
			c.Writer.Flush()
		}
	}
}

func writeSSEJSON(w io.Writer, eventType string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = writeSSEEvent(w, eventType, string(raw))
	return err
}

// writeSSEEvent пишет событие с типом. data не должна содержать переводов строк: JSON их экранирует.
func writeSSEEvent(w io.Writer, eventType, data string) (int, error) {
	n, err := io.WriteString(w, "event: "+eventType+"\ndata: "+data+"\n\n")
	if err != nil {
		return n, err
	}
	return n, nil
}
