package service

import (
	"testing"
	"time"

	"rechargesystem/internal/model"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestApplyApproval(t *testing.T) {
	now := time.Date(2026, 10, 18, 9, 30, 0, 0, time.UTC)
	before := model.Wallet{
		UserID:            1,
		Balance:           100,
		Point:             7,
		DepositTotal:      2000,
		WithdrawTotal:     300,
		TotalSettlement:   42, // 脏数据，入账后重新计算
		ChargedCount:      3,
		TodayChargedCount: 1,
	}

	after := ApplyApproval(before, 5000, 500, now)

	assert.Equal(t, int64(5100), after.Balance)
	assert.Equal(t, int64(507), after.Point)
	assert.Equal(t, int64(7000), after.DepositTotal)
	assert.Equal(t, int64(300), after.WithdrawTotal)
	assert.Equal(t, int64(6700), after.TotalSettlement)
	assert.Equal(t, int64(4), after.ChargedCount)
	assert.Equal(t, int64(2), after.TodayChargedCount)
	if assert.NotNil(t, after.LastRechargedAt) {
		assert.True(t, after.LastRechargedAt.Equal(now))
	}

	// 入参不被修改
	assert.Equal(t, int64(100), before.Balance)
	assert.Nil(t, before.LastRechargedAt)
}

func TestApplyApproval_TotalSettlementInvariant(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		w := model.Wallet{
			Balance:         rapid.Int64Range(0, 1e12).Draw(t, "balance"),
			Point:           rapid.Int64Range(0, 1e12).Draw(t, "point"),
			DepositTotal:    rapid.Int64Range(0, 1e12).Draw(t, "deposit"),
			WithdrawTotal:   rapid.Int64Range(0, 1e12).Draw(t, "withdraw"),
			TotalSettlement: rapid.Int64Range(-1e12, 1e12).Draw(t, "settlement"),
		}
		steps := rapid.IntRange(1, 10).Draw(t, "steps")
		for i := 0; i < steps; i++ {
			amount := rapid.Int64Range(1, 1e9).Draw(t, "amount")
			bonus := rapid.Int64Range(0, amount).Draw(t, "bonus")
			prev := w
			w = ApplyApproval(w, amount, bonus, time.Unix(int64(i), 0))

			if w.TotalSettlement != w.DepositTotal-w.WithdrawTotal {
				t.Fatalf("totalSettlement %d != %d - %d", w.TotalSettlement, w.DepositTotal, w.WithdrawTotal)
			}
			if w.Balance != prev.Balance+amount || w.Point != prev.Point+bonus {
				t.Fatalf("balance/point not credited exactly once")
			}
			if w.ChargedCount != prev.ChargedCount+1 {
				t.Fatalf("chargedCount %d, want %d", w.ChargedCount, prev.ChargedCount+1)
			}
		}
	})
}
