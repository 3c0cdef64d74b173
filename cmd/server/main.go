package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rechargesystem/internal/config"
	"rechargesystem/internal/handler"
	"rechargesystem/internal/infrastructure/cache"
	"rechargesystem/internal/infrastructure/database"
	"rechargesystem/internal/infrastructure/lock"
	"rechargesystem/internal/infrastructure/logger"
	"rechargesystem/internal/infrastructure/mq"
	"rechargesystem/internal/job"
	"rechargesystem/internal/metrics"
	"rechargesystem/internal/model"
	"rechargesystem/internal/repository"
	"rechargesystem/internal/service"
	"rechargesystem/pkg/clock"
	"rechargesystem/pkg/idgen"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "配置文件路径")
	workerID := flag.Int64("worker-id", 1, "雪花算法机器ID")
	flag.Parse()

	// 加载配置
	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("加载配置失败: %v", err)
	}

	zl, err := logger.New(&cfg.Log)
	if err != nil {
		log.Fatalf("初始化日志失败: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	if err := run(cfg, *workerID, zl); err != nil {
		zl.Fatal("服务异常退出", zap.Error(err))
	}
}

func run(cfg *config.Config, workerID int64, zl *zap.Logger) error {
	// 初始化 ID 生成器
	if err := idgen.Init(workerID); err != nil {
		return err
	}

	db, err := database.Open(&cfg.Database, zl)
	if err != nil {
		return err
	}
	if sqlDB, err := db.DB(); err == nil {
		defer sqlDB.Close()
	}

	// 未启用 Redis 时使用进程内锁，只适用于单实例部署
	var locker lock.Locker = lock.NewLocalLocker()
	if cfg.Redis.Enabled {
		redisClient, err := cache.InitRedis(&cfg.Redis)
		if err != nil {
			return err
		}
		defer redisClient.Close()
		locker = lock.NewRedisLocker(redisClient, cfg.Business.LockTTL, cfg.Business.LockRetryInterval, cfg.Business.LockMaxRetries)
	}

	producer, err := mq.InitKafka(&cfg.Kafka)
	if err != nil {
		return err
	}
	defer producer.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	clk := clock.RealClock{}
	verifier := service.NewSharedSecret(cfg.Security.AutoRechargeAPIKey)
	effects := service.NewEffects(zl, m,
		service.NewMoneyLogEffect(db),
		service.NewPointLogEffect(db),
		service.NewOutboxTrigger(db, model.EventBonusSpin, cfg.Kafka.Topic.BonusSpin),
		service.NewOutboxTrigger(db, model.EventAttendance, cfg.Kafka.Topic.Attendance),
	)
	recharges := service.NewRechargeService(db, &cfg.Business, clk, locker, verifier, effects, zl, m)
	matcher := service.NewAutoMatcher(db, &cfg.Business, recharges,
		service.Credential(cfg.Security.AutoRechargeAPIKey), clk, zl, m)

	// 创建上下文（用于优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 启动后台任务
	outboxSender := job.NewOutboxSender(db, producer, cfg.Business.OutboxInterval, cfg.Business.MaxRetryCount, zl, m)
	go outboxSender.Start(ctx)

	sweepJob := job.NewTimeoutSweepJob(recharges, cfg.Business.SweepInterval, zl)
	go sweepJob.Start(ctx)

	resetJob := job.NewDailyResetJob(repository.NewWalletRepository(db), cfg.Business.DailyResetCron,
		cfg.Business.Location(), zl, m)
	if err := resetJob.Start(ctx); err != nil {
		return err
	}

	router := handler.SetupRouter(handler.NewHandler(recharges, matcher, zl), verifier, reg, zl)

	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		zl.Info("服务启动", zap.Int("port", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("HTTP 服务启动失败: %w", err)
	}

	zl.Info("正在关闭服务...")

	// 取消上下文，停止后台任务
	cancel()
	resetJob.Stop()

	// 关闭 HTTP 服务（等待最多5秒）
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		zl.Error("服务关闭异常", zap.Error(err))
	}

	zl.Info("服务已关闭")
	return nil
}
