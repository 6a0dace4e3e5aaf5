package valueobject

import (
	"fmt"
	"math"

	"github.com/devesclogapp/Talentconnect-01-sub001/internal/pkg/apperror"
)

// Money хранит сумму в минорных единицах (копейки, центы).
type Money struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

func NewMoney(amount int64, currency string) (Money, error) {
	if amount < 0 {
		return Money{}, apperror.New(apperror.ErrCodeValidation, "сумма не может быть отрицательной")
	}
	if currency == "" {
		currency = "RUB"
	}
	return Money{Amount: amount, Currency: currency}, nil
}

func (m Money) IsPositive() bool { return m.Amount > 0 }

func (m Money) String() string {
	sign := ""
	amount := m.Amount
	if amount < 0 {
		sign = "-"
		amount = -amount
	}
	return fmt.Sprintf("%s %s%d.%02d", m.Currency, sign, amount/100, amount%100)
}

// FeeRate — комиссия платформы в базисных пунктах (1000 = 10%).
type FeeRate int64

const maxBasisPoints = 10_000

// NewFeeRate переводит долю (0.10) в базисные пункты.
func NewFeeRate(fraction float64) (FeeRate, error) {
	if math.IsNaN(fraction) || fraction < 0 || fraction >= 1 {
		return 0, apperror.New(apperror.ErrCodeValidation, "ставка комиссии должна быть в диапазоне [0, 1)")
	}
	return FeeRate(math.Round(fraction * maxBasisPoints)), nil
}

func (r FeeRate) Fraction() float64 { return float64(r) / maxBasisPoints }

// SplitFee делит валовую сумму: fee = round(gross × rate), net = gross − fee.
// Округление половины — от нуля, как у math.Round.
func SplitFee(gross int64, rate FeeRate) (fee, net int64, err error) {
	if gross <= 0 {
		return 0, 0, apperror.New(apperror.ErrCodeValidation, "сумма заказа должна быть положительной")
	}
	if rate < 0 || rate >= maxBasisPoints {
		return 0, 0, apperror.New(apperror.ErrCodeValidation, "некорректная ставка комиссии")
	}
	if gross > math.MaxInt64/maxBasisPoints {
		return 0, 0, apperror.New(apperror.ErrCodeValidation, "сумма заказа слишком велика")
	}
	fee = (gross*int64(rate) + maxBasisPoints/2) / maxBasisPoints
	return fee, gross - fee, nil
}
