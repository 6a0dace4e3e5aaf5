package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/valueobject"
)

// AuditLogEntry — запись журнала переходов. ID — ULID, сортируется по времени.
// OldStatus пуст у записи о создании заказа.
type AuditLogEntry struct {
	ID        string                  `db:"id" json:"id"`
	OrderID   uuid.UUID               `db:"order_id" json:"order_id"`
	Action    valueobject.Operation   `db:"action" json:"action"`
	OldStatus valueobject.OrderStatus `db:"old_status" json:"old_status"`
	NewStatus valueobject.OrderStatus `db:"new_status" json:"new_status"`
	Detail    string                  `db:"detail" json:"detail"`
	ActorID   uuid.UUID               `db:"actor_id" json:"actor_id"`
	ActorRole valueobject.Role        `db:"actor_role" json:"actor_role"`
	CreatedAt time.Time               `db:"created_at" json:"created_at"`
}
