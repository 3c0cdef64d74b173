package service

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"rechargesystem/internal/config"
	"rechargesystem/internal/infrastructure/database"
	"rechargesystem/internal/infrastructure/lock"
	"rechargesystem/internal/metrics"
	"rechargesystem/internal/model"
	"rechargesystem/pkg/clock"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const (
	testSecret      = "sms-gateway-secret"
	testBankAccount = "110-222-333444"
)

var testNow = time.Date(2026, 10, 18, 10, 0, 0, 0, time.UTC)

type harness struct {
	db      *gorm.DB
	clock   *clock.Fixed
	cfg     *config.BusinessConfig
	metrics *metrics.Metrics
	svc     *RechargeService
	matcher *AutoMatcher
}

func newHarness(t *testing.T, effects ...SideEffect) *harness {
	t.Helper()

	db, err := database.Open(&config.DatabaseConfig{
		Driver:     database.DriverSQLite,
		SQLitePath: filepath.Join(t.TempDir(), "recharge.db"),
	}, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() {
		sqlDB, err := db.DB()
		if err == nil {
			_ = sqlDB.Close()
		}
	})

	cfg := &config.BusinessConfig{
		TimeoutMinutes:     30,
		MatchWindowMinutes: 30,
		AutoRechargeWindow: time.Second,
		Timezone:           "UTC",
	}
	clk := &clock.Fixed{T: testNow}
	m := metrics.New(prometheus.NewRegistry())

	if effects == nil {
		effects = []SideEffect{
			NewMoneyLogEffect(db),
			NewPointLogEffect(db),
			NewOutboxTrigger(db, model.EventBonusSpin, "recharge.bonus_spin"),
			NewOutboxTrigger(db, model.EventAttendance, "recharge.attendance"),
		}
	}

	svc := NewRechargeService(db, cfg, clk, lock.NewLocalLocker(), NewSharedSecret(testSecret),
		NewEffects(zap.NewNop(), m, effects...), zap.NewNop(), m)

	return &harness{
		db:      db,
		clock:   clk,
		cfg:     cfg,
		metrics: m,
		svc:     svc,
		matcher: NewAutoMatcher(db, cfg, svc, Credential(testSecret), clk, zap.NewNop(), m),
	}
}

// seedUser 创建用户与钱包，钱包户名即入金人
func (h *harness) seedUser(t *testing.T, username, ownerName string, level int) *model.User {
	t.Helper()
	user := &model.User{Username: username, Nickname: username, Level: level, Role: model.RoleUser}
	require.NoError(t, h.db.Create(user).Error)
	wallet := &model.Wallet{
		UserID:        user.ID,
		OwnerName:     ownerName,
		BankName:      "KB",
		Number:        "999-000-" + username,
		Balance:       1000,
		WithdrawTotal: 500,
	}
	require.NoError(t, h.db.Create(wallet).Error)
	return user
}

func (h *harness) seedBonus(t *testing.T, level int, first, today string, active bool) {
	t.Helper()
	require.NoError(t, h.db.Create(&model.LevelBonusSetting{
		Level:         level,
		FirstRecharge: decimal.RequireFromString(first),
		TodayRecharge: decimal.RequireFromString(today),
		BonusActive:   active,
	}).Error)
}

func (h *harness) seedBankAccount(t *testing.T, number string, active bool) {
	t.Helper()
	account := &model.AutoRechargeBankAccount{BankName: "NH", Number: number, OwnerName: "Company", IsUse: active}
	require.NoError(t, h.db.Create(account).Error)
}

func (h *harness) wallet(t *testing.T, userID int64) *model.Wallet {
	t.Helper()
	var w model.Wallet
	require.NoError(t, h.db.Where("user_id = ?", userID).First(&w).Error)
	return &w
}

func (h *harness) create(t *testing.T, userID, amount int64) *model.RechargeTransaction {
	t.Helper()
	recharge, err := h.svc.Create(context.Background(), &CreateRequest{UserID: userID, Amount: amount, IP: "10.0.0.1"})
	require.NoError(t, err)
	return recharge
}

// waiting 创建并转为 WAITING
func (h *harness) waiting(t *testing.T, userID, amount int64) *model.RechargeTransaction {
	t.Helper()
	recharge := h.create(t, userID, amount)
	require.NoError(t, h.svc.MarkWaiting(context.Background(), recharge.ID, admin))
	return recharge
}

func (h *harness) status(t *testing.T, id int64) string {
	t.Helper()
	recharge, err := h.svc.Get(context.Background(), id)
	require.NoError(t, err)
	return recharge.Status
}

var admin = Actor{Username: "admin", IP: "192.168.0.10"}

func int64Ptr(v int64) *int64 { return &v }
