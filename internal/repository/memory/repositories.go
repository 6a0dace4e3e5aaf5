package memory

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	domainrepo "github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/repository"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/domain/valueobject"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/models"
	"github.com/devesclogapp/Talentconnect-01-sub001/internal/repository/common"
)

type orderRepo struct{ base }

func (r *orderRepo) Create(_ context.Context, o *models.Order) error {
	return r.write("orders.create", func(st *state) error {
		if _, ok := st.orders[o.ID]; ok {
			return common.ErrAlreadyExists
		}
		st.orders[o.ID] = *o
		return nil
	})
}

func (r *orderRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Order, error) {
	var out models.Order
	err := r.read(func(st *state) error {
		o, ok := st.orders[id]
		if !ok {
			return common.ErrNotFound
		}
		out = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *orderRepo) UpdateStatus(_ context.Context, id uuid.UUID, expectedVersion int64, status valueobject.OrderStatus, at time.Time) error {
	return r.write("orders.update_status", func(st *state) error {
		o, ok := st.orders[id]
		if !ok || o.Version != expectedVersion {
			return common.ErrVersionConflict
		}
		o.Status = status
		o.Version++
		o.UpdatedAt = at
		st.orders[id] = o
		return nil
	})
}

func (r *orderRepo) List(_ context.Context, filter domainrepo.OrderFilter) ([]models.Order, error) {
	out := []models.Order{}
	err := r.read(func(st *state) error {
		for _, o := range st.orders {
			if filter.ParticipantID != nil && !o.IsParty(*filter.ParticipantID) {
				continue
			}
			if filter.Status != nil && o.Status != *filter.Status {
				continue
			}
			out = append(out, o)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if filter.Offset >= len(out) {
		return []models.Order{}, nil
	}
	out = out[filter.Offset:]
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

type paymentRepo struct{ base }

func (r *paymentRepo) Create(_ context.Context, p *models.Payment) error {
	return r.write("payments.create", func(st *state) error {
		if _, ok := st.payments[p.OrderID]; ok {
			return common.ErrAlreadyExists
		}
		st.payments[p.OrderID] = *p
		return nil
	})
}

func (r *paymentRepo) GetByOrderID(_ context.Context, orderID uuid.UUID) (*models.Payment, error) {
	var out models.Payment
	err := r.read(func(st *state) error {
		p, ok := st.payments[orderID]
		if !ok {
			return common.ErrNotFound
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *paymentRepo) UpdateEscrowStatus(_ context.Context, orderID uuid.UUID, from, to valueobject.EscrowStatus, at time.Time) error {
	return r.write("payments.update_escrow", func(st *state) error {
		p, ok := st.payments[orderID]
		if !ok || p.EscrowStatus != from {
			return common.ErrInvalidLedgerState
		}
		p.EscrowStatus = to
		p.SettledAt = &at
		st.payments[orderID] = p
		return nil
	})
}

type disputeRepo struct{ base }

func (r *disputeRepo) Create(_ context.Context, d *models.Dispute) error {
	return r.write("disputes.create", func(st *state) error {
		for _, existing := range st.disputes {
			if existing.OrderID == d.OrderID && existing.IsOpen() {
				return common.ErrAlreadyExists
			}
		}
		st.disputes[d.ID] = *d
		return nil
	})
}

func (r *disputeRepo) GetByID(_ context.Context, id uuid.UUID) (*models.Dispute, error) {
	var out models.Dispute
	err := r.read(func(st *state) error {
		d, ok := st.disputes[id]
		if !ok {
			return common.ErrNotFound
		}
		out = d
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *disputeRepo) GetOpenByOrderID(_ context.Context, orderID uuid.UUID) (*models.Dispute, error) {
	var out *models.Dispute
	err := r.read(func(st *state) error {
		for _, d := range st.disputes {
			if d.OrderID == orderID && d.IsOpen() {
				d := d
				out = &d
				return nil
			}
		}
		return common.ErrNotFound
	})
	return out, err
}

func (r *disputeRepo) ListByOrderID(_ context.Context, orderID uuid.UUID) ([]models.Dispute, error) {
	out := []models.Dispute{}
	_ = r.read(func(st *state) error {
		for _, d := range st.disputes {
			if d.OrderID == orderID {
				out = append(out, d)
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (r *disputeRepo) MarkResolved(_ context.Context, id uuid.UUID, at time.Time) error {
	return r.write("disputes.mark_resolved", func(st *state) error {
		d, ok := st.disputes[id]
		if !ok || !d.IsOpen() {
			return common.ErrVersionConflict
		}
		d.Status = valueobject.DisputeStatusResolved
		d.ResolvedAt = &at
		st.disputes[id] = d
		return nil
	})
}

func (r *disputeRepo) AddMessage(_ context.Context, m *models.DisputeMessage) error {
	return r.write("disputes.add_message", func(st *state) error {
		st.messages[m.DisputeID] = append(st.messages[m.DisputeID], *m)
		return nil
	})
}

func (r *disputeRepo) ListMessages(_ context.Context, disputeID uuid.UUID) ([]models.DisputeMessage, error) {
	out := []models.DisputeMessage{}
	_ = r.read(func(st *state) error {
		out = append(out, st.messages[disputeID]...)
		return nil
	})
	return out, nil
}

func (r *disputeRepo) CreateResolution(_ context.Context, res *models.DisputeResolution) error {
	return r.write("disputes.create_resolution", func(st *state) error {
		if _, ok := st.resolutions[res.DisputeID]; ok {
			return common.ErrAlreadyExists
		}
		st.resolutions[res.DisputeID] = *res
		return nil
	})
}

func (r *disputeRepo) GetResolution(_ context.Context, disputeID uuid.UUID) (*models.DisputeResolution, error) {
	var out models.DisputeResolution
	err := r.read(func(st *state) error {
		res, ok := st.resolutions[disputeID]
		if !ok {
			return common.ErrNotFound
		}
		out = res
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &out, nil
}

type auditRepo struct{ base }

func (r *auditRepo) Append(_ context.Context, e *models.AuditLogEntry) error {
	return r.write("audit.append", func(st *state) error {
		st.audit[e.OrderID] = append(st.audit[e.OrderID], *e)
		return nil
	})
}

func (r *auditRepo) ListByOrder(_ context.Context, orderID uuid.UUID) ([]models.AuditLogEntry, error) {
	out := []models.AuditLogEntry{}
	_ = r.read(func(st *state) error {
		out = append(out, st.audit[orderID]...)
		return nil
	})
	return out, nil
}

type outboxRepo struct{ base }

func (r *outboxRepo) Enqueue(_ context.Context, e *models.OutboxEvent) error {
	return r.write("outbox.enqueue", func(st *state) error {
		ev := *e
		ev.Status = models.OutboxStatusPending
		st.outbox = append(st.outbox, ev)
		return nil
	})
}

func (r *outboxRepo) FetchPending(_ context.Context, now time.Time, limit int) ([]models.OutboxEvent, error) {
	out := []models.OutboxEvent{}
	_ = r.read(func(st *state) error {
		for _, ev := range st.outbox {
			if len(out) >= limit {
				break
			}
			if ev.Status == models.OutboxStatusPending && !ev.NextAttemptAt.After(now) {
				out = append(out, ev)
			}
		}
		return nil
	})
	return out, nil
}

func (r *outboxRepo) MarkPublished(_ context.Context, id string, at time.Time) error {
	return r.write("outbox.mark_published", func(st *state) error {
		i, err := findEvent(st, id)
		if err != nil {
			return err
		}
		st.outbox[i].Status = models.OutboxStatusPublished
		st.outbox[i].Attempts++
		st.outbox[i].PublishedAt = &at
		return nil
	})
}

func (r *outboxRepo) MarkFailed(_ context.Context, id string, lastErr string, nextAttemptAt time.Time, final bool) error {
	return r.write("outbox.mark_failed", func(st *state) error {
		i, err := findEvent(st, id)
		if err != nil {
			return err
		}
		ev := &st.outbox[i]
		ev.Attempts++
		ev.LastError = &lastErr
		ev.NextAttemptAt = nextAttemptAt
		if final {
			ev.Status = models.OutboxStatusFailed
		}
		return nil
	})
}

func findEvent(st *state, id string) (int, error) {
	for i := range st.outbox {
		if st.outbox[i].ID == id {
			return i, nil
		}
	}
	return -1, common.ErrNotFound
}
