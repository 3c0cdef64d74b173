package job

import (
	"context"
	"fmt"
	"time"

	"rechargesystem/internal/metrics"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// CounterResetter 清零当日充值次数
type CounterResetter interface {
	ResetTodayChargedCount(ctx context.Context) (int64, error)
}

// DailyResetJob 每天在业务时区的固定时间清零钱包当日充值次数
type DailyResetJob struct {
	resetter CounterResetter
	cron     *cron.Cron
	spec     string
	timeout  time.Duration
	log      *zap.Logger
	metrics  *metrics.Metrics
}

func NewDailyResetJob(resetter CounterResetter, spec string, loc *time.Location, log *zap.Logger, m *metrics.Metrics) *DailyResetJob {
	if spec == "" {
		spec = "0 0 * * *"
	}
	return &DailyResetJob{
		resetter: resetter,
		cron:     cron.New(cron.WithLocation(loc)),
		spec:     spec,
		timeout:  time.Minute,
		log:      log.Named("DailyResetJob"),
		metrics:  m,
	}
}

// Start 注册任务并启动调度，ctx 结束时停止
func (j *DailyResetJob) Start(ctx context.Context) error {
	_, err := j.cron.AddFunc(j.spec, func() {
		runCtx, cancel := context.WithTimeout(context.Background(), j.timeout)
		defer cancel()
		j.RunOnce(runCtx)
	})
	if err != nil {
		return fmt.Errorf("注册每日清零任务失败: %w", err)
	}

	j.cron.Start()
	j.log.Info("每日清零任务启动", zap.String("spec", j.spec))

	go func() {
		<-ctx.Done()
		j.Stop()
	}()
	return nil
}

// Stop 等待正在执行的任务结束
func (j *DailyResetJob) Stop() {
	<-j.cron.Stop().Done()
}

func (j *DailyResetJob) RunOnce(ctx context.Context) {
	n, err := j.resetter.ResetTodayChargedCount(ctx)
	if err != nil {
		j.log.Error("清零当日充值次数失败", zap.Error(err))
		return
	}
	j.metrics.DailyResetWallets.Add(float64(n))
	j.log.Info("当日充值次数已清零", zap.Int64("wallets", n))
}
