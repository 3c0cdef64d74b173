package job

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Sweeper 超时扫描的执行方
type Sweeper interface {
	TimeoutSweep(ctx context.Context) (int, error)
}

// TimeoutSweepJob 定时把超时未处理的充值申请置为 TIMEOUT
type TimeoutSweepJob struct {
	sweeper  Sweeper
	log      *zap.Logger
	stopCh   chan struct{}
	interval time.Duration
}

func NewTimeoutSweepJob(sweeper Sweeper, interval time.Duration, log *zap.Logger) *TimeoutSweepJob {
	if interval <= 0 {
		interval = 30 * time.Minute
	}
	return &TimeoutSweepJob{
		sweeper:  sweeper,
		log:      log.Named("TimeoutSweepJob"),
		stopCh:   make(chan struct{}),
		interval: interval,
	}
}

func (j *TimeoutSweepJob) Start(ctx context.Context) {
	j.log.Info("超时扫描任务启动", zap.Duration("interval", j.interval))

	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			j.log.Info("收到停止信号，任务退出")
			return
		case <-j.stopCh:
			j.log.Info("任务停止")
			return
		case <-ticker.C:
			j.RunOnce(ctx)
		}
	}
}

func (j *TimeoutSweepJob) Stop() {
	close(j.stopCh)
}

// RunOnce 执行一次扫描，重复执行不会重复变更
func (j *TimeoutSweepJob) RunOnce(ctx context.Context) int {
	n, err := j.sweeper.TimeoutSweep(ctx)
	if err != nil {
		j.log.Error("超时扫描失败", zap.Int("timedOut", n), zap.Error(err))
		return n
	}
	if n > 0 {
		j.log.Info("本次超时关闭充值申请", zap.Int("timedOut", n))
	}
	return n
}
