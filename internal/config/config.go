package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
	Security SecurityConfig `mapstructure:"security"`
	Log      LogConfig      `mapstructure:"log"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

// DatabaseConfig Driver 取值 mysql / sqlite，sqlite 仅用于本地开发
type DatabaseConfig struct {
	Driver       string `mapstructure:"driver"`
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	SQLitePath   string `mapstructure:"sqlite_path"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
	LogSQL       bool   `mapstructure:"log_sql"`
}

// DSN 返回 MySQL 连接串
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
		d.User, d.Password, d.Host, d.Port, d.Database)
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	BonusSpin  string `mapstructure:"bonus_spin"`
	Attendance string `mapstructure:"attendance"`
}

type BusinessConfig struct {
	TimeoutMinutes     int           `mapstructure:"timeout_minutes"`      // 未处理申请超时时间
	SweepInterval      time.Duration `mapstructure:"sweep_interval"`       // 超时扫描间隔
	MatchWindowMinutes int           `mapstructure:"match_window_minutes"` // 短信匹配回溯窗口
	AutoRechargeWindow time.Duration `mapstructure:"auto_recharge_window"` // 申请与占位记录的创建时间容差
	DailyResetCron     string        `mapstructure:"daily_reset_cron"`     // 每日计数清零
	Timezone           string        `mapstructure:"timezone"`             // "当日" 的时区
	LockTTL            time.Duration `mapstructure:"lock_ttl"`             // 用户锁过期时间
	LockRetryInterval  time.Duration `mapstructure:"lock_retry_interval"`  // 获取锁重试间隔
	LockMaxRetries     int           `mapstructure:"lock_max_retries"`     // 获取锁最大重试次数
	MaxRetryCount      int           `mapstructure:"max_retry_count"`      // outbox 最大重试次数
	OutboxInterval     time.Duration `mapstructure:"outbox_interval"`      // outbox 轮询间隔
}

// Location 解析业务时区，非法值回退到 time.Local
func (b *BusinessConfig) Location() *time.Location {
	if b.Timezone == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return time.Local
	}
	return loc
}

type SecurityConfig struct {
	AutoRechargeAPIKey string `mapstructure:"auto_recharge_api_key"`
}

type LogConfig struct {
	Level       string `mapstructure:"level"`
	Development bool   `mapstructure:"development"`
}

// LoadConfig 加载配置文件
// 配置文件不存在时只使用默认值与环境变量，例如 DATABASE_HOST、SECURITY_AUTO_RECHARGE_API_KEY
func LoadConfig(configPath string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if _, err := os.Stat(configPath); err == nil {
		v.SetConfigFile(configPath)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件失败: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", 8080)

	v.SetDefault("database.driver", "mysql")
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 3306)
	v.SetDefault("database.user", "root")
	v.SetDefault("database.database", "recharge")
	v.SetDefault("database.sqlite_path", "recharge.db")
	v.SetDefault("database.max_open_conns", 50)
	v.SetDefault("database.max_idle_conns", 10)
	v.SetDefault("database.password", "")
	v.SetDefault("database.log_sql", false)

	v.SetDefault("redis.enabled", true)
	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("kafka.brokers", []string{"localhost:9092"})
	v.SetDefault("kafka.topic.bonus_spin", "recharge.bonus_spin")
	v.SetDefault("kafka.topic.attendance", "recharge.attendance")

	v.SetDefault("business.timeout_minutes", 30)
	v.SetDefault("business.sweep_interval", "30m")
	v.SetDefault("business.match_window_minutes", 30)
	v.SetDefault("business.auto_recharge_window", "1s")
	v.SetDefault("business.daily_reset_cron", "0 0 * * *")
	v.SetDefault("business.lock_ttl", "30s")
	v.SetDefault("business.lock_retry_interval", "100ms")
	v.SetDefault("business.lock_max_retries", 30)
	v.SetDefault("business.max_retry_count", 5)
	v.SetDefault("business.outbox_interval", "1s")
	v.SetDefault("business.timezone", "")

	v.SetDefault("security.auto_recharge_api_key", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.development", false)
}
