package valueobject

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitFee_TenPercent(t *testing.T) {
	rate, err := NewFeeRate(0.10)
	require.NoError(t, err)

	fee, net, err := SplitFee(20000, rate)
	require.NoError(t, err)
	assert.Equal(t, int64(2000), fee)
	assert.Equal(t, int64(18000), net)
}

func TestSplitFee_RoundsHalfUp(t *testing.T) {
	rate, err := NewFeeRate(0.15)
	require.NoError(t, err)

	// 333 * 0.15 = 49.95
	fee, net, err := SplitFee(333, rate)
	require.NoError(t, err)
	assert.Equal(t, int64(50), fee)
	assert.Equal(t, int64(283), net)
}

func TestSplitFee_AlwaysReconciles(t *testing.T) {
	rate, _ := NewFeeRate(0.0725)
	for gross := int64(1); gross < 5000; gross += 37 {
		fee, net, err := SplitFee(gross, rate)
		require.NoError(t, err)
		assert.Equal(t, gross, fee+net)
		assert.GreaterOrEqual(t, net, int64(0))
	}
}

func TestSplitFee_Rejects(t *testing.T) {
	_, _, err := SplitFee(0, 1000)
	assert.Error(t, err)

	_, _, err = SplitFee(100, 10_000)
	assert.Error(t, err)

	_, err = NewFeeRate(1.2)
	assert.Error(t, err)
}

func TestMoney_String(t *testing.T) {
	m, err := NewMoney(20050, "RUB")
	require.NoError(t, err)
	assert.Equal(t, "RUB 200.50", m.String())

	_, err = NewMoney(-1, "RUB")
	assert.Error(t, err)
}

func TestValidateDecision(t *testing.T) {
	assert.NoError(t, ValidateDecision(DecisionFavorClient, OrderStatusCancelled, ""))
	assert.Error(t, ValidateDecision(DecisionFavorClient, OrderStatusCompleted, ""))
	assert.NoError(t, ValidateDecision(DecisionFavorProvider, OrderStatusCompleted, ""))
	assert.Error(t, ValidateDecision(DecisionSplit, OrderStatusCompleted, ""))
	assert.NoError(t, ValidateDecision(DecisionSplit, OrderStatusCompleted, "частично выполнено"))
	assert.Error(t, ValidateDecision("bogus", OrderStatusCompleted, ""))
}
