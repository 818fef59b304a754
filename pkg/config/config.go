// 文件: pkg/config/config.go
// 配置加载
//
// 【优先级】 环境变量 (LENS_*) > 配置文件 > 默认值
// - 配置文件可选, 默认在当前目录查找 lens.yaml
// - .env 文件存在时先加载进环境变量
// - 嵌套 key 用下划线: analysis.band_percent -> LENS_ANALYSIS_BAND_PERCENT

package config

import (
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

// EnvPrefix 环境变量前缀
const EnvPrefix = "LENS"

// Config 全部配置
type Config struct {
	Analysis AnalysisConfig `mapstructure:"analysis"`
	Price    PriceConfig    `mapstructure:"price"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	NATS     NATSConfig     `mapstructure:"nats"`
	Log      LogConfig      `mapstructure:"log"`
}

// AnalysisConfig 分析参数
type AnalysisConfig struct {
	BandPercent   float64 `mapstructure:"band_percent"`   // 热点价格带半宽 (%)
	MinTraders    int     `mapstructure:"min_traders"`    // 热点最少独立交易员
	RiskThreshold float64 `mapstructure:"risk_threshold"` // 强平距离阈值 (%)
	TopN          int     `mapstructure:"top_n"`
}

// PriceConfig 行情源
type PriceConfig struct {
	BaseURL   string        `mapstructure:"base_url"`
	Timeout   time.Duration `mapstructure:"timeout"`
	PaceDelay time.Duration `mapstructure:"pace_delay"`
	RedisAddr string        `mapstructure:"redis_addr"` // 为空时不使用 Redis 缓存
	RedisTTL  time.Duration `mapstructure:"redis_ttl"`
}

// KafkaConfig 为空 Brokers 表示不使用 Kafka
type KafkaConfig struct {
	Brokers     []string `mapstructure:"brokers"`
	GroupID     string   `mapstructure:"group_id"`
	Topic       string   `mapstructure:"topic"`        // 快照输入
	ReportTopic string   `mapstructure:"report_topic"` // 报告输出
}

// NATSConfig 为空 URL 表示不发布到 NATS
type NATSConfig struct {
	URL             string `mapstructure:"url"`
	SnapshotSubject string `mapstructure:"snapshot_subject"` // 快照输入
}

// LogConfig 日志
type LogConfig struct {
	Level string `mapstructure:"level"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("analysis.band_percent", 3.0)
	v.SetDefault("analysis.min_traders", 3)
	v.SetDefault("analysis.risk_threshold", 5.0)
	v.SetDefault("analysis.top_n", 10)

	v.SetDefault("price.base_url", "https://api.coingecko.com/api/v3")
	v.SetDefault("price.timeout", 10*time.Second)
	v.SetDefault("price.pace_delay", 3*time.Second)
	v.SetDefault("price.redis_addr", "")
	v.SetDefault("price.redis_ttl", 60*time.Second)

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.group_id", "lens")
	v.SetDefault("kafka.topic", "lens.snapshots")
	v.SetDefault("kafka.report_topic", "lens.reports")

	v.SetDefault("nats.url", "")
	v.SetDefault("nats.snapshot_subject", "lens.snapshots")

	v.SetDefault("log.level", "info")
}

// Load 加载配置
//
// path 为空时查找 ./lens.yaml, 找不到不算错误; 显式指定的文件必须存在。
func Load(path string) (*Config, error) {
	// .env 可选
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, errors.Wrapf(err, "read config %s", path)
		}
	} else {
		v.SetConfigName("lens")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			if !errors.As(err, &notFound) {
				return nil, errors.Wrap(err, "read config")
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.Wrap(err, "decode config")
	}
	cfg.Kafka.Brokers = splitList(cfg.Kafka.Brokers)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate 校验
func (c *Config) Validate() error {
	a := c.Analysis
	switch {
	case a.BandPercent <= 0:
		return errors.Errorf("analysis.band_percent must be positive, got %v", a.BandPercent)
	case a.MinTraders <= 0:
		return errors.Errorf("analysis.min_traders must be positive, got %d", a.MinTraders)
	case a.RiskThreshold <= 0:
		return errors.Errorf("analysis.risk_threshold must be positive, got %v", a.RiskThreshold)
	case a.TopN <= 0:
		return errors.Errorf("analysis.top_n must be positive, got %d", a.TopN)
	}
	if c.Price.Timeout < 0 || c.Price.PaceDelay < 0 {
		return errors.New("price.timeout and price.pace_delay must not be negative")
	}
	return nil
}

// splitList 环境变量里的 "a,b" 会被当作一个元素
func splitList(in []string) []string {
	var out []string
	for _, s := range in {
		for _, part := range strings.Split(s, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
