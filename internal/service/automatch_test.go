package service

import (
	"context"
	"testing"
	"time"

	"rechargesystem/internal/model"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchAndApprove_AmbiguousDoesNothing(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedBonus(t, 1, "10", "5", false)
	h.seedBankAccount(t, testBankAccount, true)
	kim1 := h.seedUser(t, "kim1", "Kim", 1)
	kim2 := h.seedUser(t, "kim2", "Kim", 1)

	a := h.waiting(t, kim1.ID, 50000)
	b := h.waiting(t, kim2.ID, 50000)

	h.clock.Advance(2 * time.Minute)
	matched, err := h.matcher.MatchAndApprove(ctx, Notification{
		AmountText: "50000",
		Depositor:  "Kim",
		Message:    "[NH] " + testBankAccount + " 입금 50000 Kim",
		NotifiedAt: h.clock.Now(),
	})
	require.NoError(t, err)
	assert.False(t, matched)

	assert.Equal(t, model.RechargeStatusWaiting, h.status(t, a.ID))
	assert.Equal(t, model.RechargeStatusWaiting, h.status(t, b.ID))
	assert.Equal(t, int64(1000), h.wallet(t, kim1.ID).Balance)
	assert.Equal(t, int64(1000), h.wallet(t, kim2.ID).Balance)
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.AutoMatchOutcomes.WithLabelValues(MatchOutcomeAmbiguous)))
}

func TestMatchAndApprove_UniqueMatch(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedBonus(t, 1, "10", "5", false)
	h.seedBankAccount(t, testBankAccount, true)
	lee := h.seedUser(t, "lee", "Lee", 1)
	other := h.seedUser(t, "kim", "Kim", 1)

	recharge := h.waiting(t, lee.ID, 30000)
	// 金额相同但入金人不同，不参与匹配
	h.waiting(t, other.ID, 30000)

	h.clock.Advance(3 * time.Minute)
	message := "[Web발신] NH " + testBankAccount + " 입금 30000원 Lee"
	matched, err := h.matcher.MatchAndApprove(ctx, Notification{
		AmountText: "30000",
		Depositor:  "Lee",
		Message:    message,
		NotifiedAt: h.clock.Now(),
	})
	require.NoError(t, err)
	assert.True(t, matched)

	got, err := h.svc.Get(ctx, recharge.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RechargeStatusAutoApproval, got.Status)
	assert.Equal(t, message, got.Message)
	assert.Equal(t, "Lee", got.Depositor)

	w := h.wallet(t, lee.ID)
	assert.Equal(t, int64(31000), w.Balance)
	assert.Equal(t, int64(3000), w.Point)

	var placeholder model.AutoRecharge
	require.NoError(t, h.db.Where("recharge_transaction_id = ?", recharge.ID).First(&placeholder).Error)
	assert.Equal(t, model.AutoRechargeStatusReceived, placeholder.Status)
	assert.Equal(t, message, placeholder.Message)
}

func TestMatchAndApprove_UnreadAlsoMatches(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedBonus(t, 1, "10", "5", false)
	h.seedBankAccount(t, testBankAccount, true)
	lee := h.seedUser(t, "lee", "Lee", 1)
	recharge := h.create(t, lee.ID, 12345)

	matched, err := h.matcher.MatchAndApprove(ctx, Notification{
		AmountText: "12345",
		Depositor:  "Lee",
		Message:    testBankAccount,
		NotifiedAt: h.clock.Now(),
	})
	require.NoError(t, err)
	assert.True(t, matched)
	assert.Equal(t, model.RechargeStatusAutoApproval, h.status(t, recharge.ID))
}

func TestMatchAndApprove_RejectsUnverifiedMessage(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedBonus(t, 1, "10", "5", false)
	h.seedBankAccount(t, testBankAccount, true)
	h.seedBankAccount(t, "333-444-555666", false)
	lee := h.seedUser(t, "lee", "Lee", 1)
	recharge := h.waiting(t, lee.ID, 30000)

	for _, message := range []string{
		"입금 30000원 Lee",
		"입금 30000원 Lee 333-444-555666",
		"입금 30000원 Lee 110-222-333445",
	} {
		matched, err := h.matcher.MatchAndApprove(ctx, Notification{
			AmountText: "30000",
			Depositor:  "Lee",
			Message:    message,
			NotifiedAt: h.clock.Now(),
		})
		require.NoError(t, err)
		assert.False(t, matched, message)
	}

	assert.Equal(t, model.RechargeStatusWaiting, h.status(t, recharge.ID))
	assert.Equal(t, int64(1000), h.wallet(t, lee.ID).Balance)
	assert.Equal(t, float64(3), testutil.ToFloat64(h.metrics.AutoMatchOutcomes.WithLabelValues(MatchOutcomeUnverified)))
}

func TestMatchAndApprove_NoCandidate(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedBonus(t, 1, "10", "5", false)
	h.seedBankAccount(t, testBankAccount, true)
	lee := h.seedUser(t, "lee", "Lee", 1)
	recharge := h.waiting(t, lee.ID, 30000)

	cases := []Notification{
		{AmountText: "30000", Depositor: "lee", Message: testBankAccount},   // 大小写敏感
		{AmountText: "30,000", Depositor: "Lee", Message: testBankAccount},  // 金额文本不做归一化
		{AmountText: "30000.0", Depositor: "Lee", Message: testBankAccount}, // 同上
		{AmountText: "29999", Depositor: "Lee", Message: testBankAccount},   // 金额不同
		{AmountText: "30000", Depositor: "Lee ", Message: testBankAccount},  // 多余空格
		{AmountText: "", Depositor: "", Message: testBankAccount},           // 空报文
		{AmountText: "30000", Depositor: "Kim", Message: testBankAccount},   // 入金人不同
		{AmountText: "-30000", Depositor: "Lee", Message: testBankAccount},  // 负数
	}
	for _, n := range cases {
		matched, err := h.matcher.MatchAndApprove(ctx, n)
		require.NoError(t, err)
		assert.False(t, matched, "%+v", n)
	}

	// 超出 30 分钟回溯窗口
	h.clock.Advance(31 * time.Minute)
	matched, err := h.matcher.MatchAndApprove(ctx, Notification{AmountText: "30000", Depositor: "Lee", Message: testBankAccount})
	require.NoError(t, err)
	assert.False(t, matched)

	assert.Equal(t, model.RechargeStatusWaiting, h.status(t, recharge.ID))
}

func TestMatchAndApprove_MissingPlaceholder(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedBonus(t, 1, "10", "5", false)
	h.seedBankAccount(t, testBankAccount, true)
	lee := h.seedUser(t, "lee", "Lee", 1)
	recharge := h.waiting(t, lee.ID, 30000)

	require.NoError(t, h.db.Where("recharge_transaction_id = ?", recharge.ID).Delete(&model.AutoRecharge{}).Error)

	matched, err := h.matcher.MatchAndApprove(ctx, Notification{
		AmountText: "30000",
		Depositor:  "Lee",
		Message:    testBankAccount,
		NotifiedAt: h.clock.Now(),
	})
	assert.False(t, matched)
	assert.ErrorIs(t, err, ErrDataNotFound)
	assert.Equal(t, model.RechargeStatusWaiting, h.status(t, recharge.ID))
}

func TestMatchAndApprove_PlaceholderOutsideWindow(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedBonus(t, 1, "10", "5", false)
	h.seedBankAccount(t, testBankAccount, true)
	lee := h.seedUser(t, "lee", "Lee", 1)
	recharge := h.waiting(t, lee.ID, 30000)

	// 占位记录的创建时间偏离超过 1 秒
	require.NoError(t, h.db.Model(&model.AutoRecharge{}).
		Where("recharge_transaction_id = ?", recharge.ID).
		Update("created_at", testNow.Add(-2*time.Second)).Error)

	matched, err := h.matcher.MatchAndApprove(ctx, Notification{
		AmountText: "30000",
		Depositor:  "Lee",
		Message:    testBankAccount,
		NotifiedAt: h.clock.Now(),
	})
	assert.False(t, matched)
	assert.ErrorIs(t, err, ErrDataNotFound)
}

func TestMatchAndApprove_PlaceholderMatchedByUserAndTime(t *testing.T) {
	h := newHarness(t)
	ctx := context.Background()
	h.seedBonus(t, 1, "10", "5", false)
	h.seedBankAccount(t, testBankAccount, true)
	lee := h.seedUser(t, "lee", "Lee", 1)
	recharge := h.waiting(t, lee.ID, 30000)

	// 没有直接关联时按用户与创建时间窗口定位
	require.NoError(t, h.db.Model(&model.AutoRecharge{}).
		Where("recharge_transaction_id = ?", recharge.ID).
		Updates(map[string]interface{}{
			"recharge_transaction_id": 0,
			"created_at":              testNow.Add(time.Second),
		}).Error)

	matched, err := h.matcher.MatchAndApprove(ctx, Notification{
		AmountText: "30000",
		Depositor:  "Lee",
		Message:    testBankAccount,
		NotifiedAt: h.clock.Now(),
	})
	require.NoError(t, err)
	assert.True(t, matched)

	var placeholder model.AutoRecharge
	require.NoError(t, h.db.Where("user_id = ?", lee.ID).First(&placeholder).Error)
	assert.Equal(t, model.AutoRechargeStatusReceived, placeholder.Status)
}
