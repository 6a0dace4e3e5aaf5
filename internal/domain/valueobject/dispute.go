package valueobject

import "github.com/devesclogapp/Talentconnect-01-sub001/internal/pkg/apperror"

type DisputeStatus string

const (
	DisputeStatusOpen     DisputeStatus = "open"
	DisputeStatusResolved DisputeStatus = "resolved"
)

type DisputeReason string

const (
	ReasonProviderNoShow      DisputeReason = "provider_no_show"
	ReasonServiceNotCompleted DisputeReason = "service_not_completed"
	ReasonServiceNotAsAgreed  DisputeReason = "service_not_as_agreed"
	ReasonTimingIssue         DisputeReason = "timing_issue"
	ReasonOther               DisputeReason = "other"
)

func NewDisputeReason(raw string) (DisputeReason, error) {
	r := DisputeReason(raw)
	switch r {
	case ReasonProviderNoShow, ReasonServiceNotCompleted, ReasonServiceNotAsAgreed, ReasonTimingIssue, ReasonOther:
		return r, nil
	}
	return "", apperror.New(apperror.ErrCodeValidation, "некорректная причина спора")
}

// DecisionCode — вердикт оператора.
type DecisionCode string

const (
	DecisionFavorClient   DecisionCode = "favor_client"
	DecisionFavorProvider DecisionCode = "favor_provider"
	DecisionSplit         DecisionCode = "split"
)

// ValidateDecision проверяет согласованность вердикта с итоговым статусом заказа.
// Эскроу разрешается целиком: favor_client — возврат, favor_provider — выплата.
func ValidateDecision(code DecisionCode, final OrderStatus, notes string) error {
	if final != OrderStatusCompleted && final != OrderStatusCancelled {
		return apperror.New(apperror.ErrCodeValidation, "итоговый статус спора должен быть completed или cancelled")
	}
	switch code {
	case DecisionFavorClient:
		if final != OrderStatusCancelled {
			return apperror.New(apperror.ErrCodeValidation, "решение в пользу клиента требует статуса cancelled")
		}
	case DecisionFavorProvider:
		if final != OrderStatusCompleted {
			return apperror.New(apperror.ErrCodeValidation, "решение в пользу исполнителя требует статуса completed")
		}
	case DecisionSplit:
		if notes == "" {
			return apperror.New(apperror.ErrCodeValidation, "для решения split нужен комментарий оператора")
		}
	default:
		return apperror.New(apperror.ErrCodeValidation, "некорректный код решения")
	}
	return nil
}

type EscrowStatus string

const (
	EscrowHeld     EscrowStatus = "held"
	EscrowReleased EscrowStatus = "released"
	EscrowRefunded EscrowStatus = "refunded"
)
