package service

import (
	"context"
	"errors"
	"testing"

	"rechargesystem/internal/metrics"
	"rechargesystem/internal/model"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recordingEffect struct {
	name  string
	err   error
	calls []Movement
}

func (e *recordingEffect) Name() string { return e.name }

func (e *recordingEffect) Handle(_ context.Context, m Movement) error {
	e.calls = append(e.calls, m)
	return e.err
}

func TestEffects_DispatchContinuesAfterFailure(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	boom := errors.New("kafka down")
	failing := &recordingEffect{name: "bonus_spin", err: boom}
	ok := &recordingEffect{name: "attendance"}

	err := NewEffects(zap.NewNop(), m, failing, ok).Dispatch(context.Background(), Movement{UserID: 1, Amount: 10})

	assert.ErrorIs(t, err, boom)
	assert.Len(t, failing.calls, 1)
	assert.Len(t, ok.calls, 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(m.SideEffectFailures.WithLabelValues("bonus_spin")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.SideEffectFailures.WithLabelValues("attendance")))
}

func TestApprove_SideEffectFailureKeepsCredit(t *testing.T) {
	failing := &recordingEffect{name: "money_log", err: errors.New("disk full")}
	spin := &recordingEffect{name: model.EventBonusSpin}
	h := newHarness(t, failing, spin)
	h.seedBonus(t, 1, "10", "5", false)
	user := h.seedUser(t, "nam", "Nam", 1)
	recharge := h.waiting(t, user.ID, 7000)

	require.NoError(t, h.svc.Approve(context.Background(), []int64{recharge.ID}, admin, nil).Err())

	assert.Equal(t, model.RechargeStatusApproval, h.status(t, recharge.ID))
	assert.Equal(t, int64(8000), h.wallet(t, user.ID).Balance)
	require.Len(t, spin.calls, 1)
	assert.Equal(t, int64(7000), spin.calls[0].Amount)
	assert.Equal(t, int64(8000), spin.calls[0].ResultingBalance)
	assert.Equal(t, int64(700), spin.calls[0].Point)
	assert.Equal(t, model.LogCategoryRecharge, spin.calls[0].Category)
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.SideEffectFailures.WithLabelValues("money_log")))
}
