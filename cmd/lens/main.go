// 文件: cmd/lens/main.go
// 一次完整的分析运行
//
// 用法:
//
//	lens -snapshots run1.json,run2.json -out report.json
//	lens -kafka              # 从 Kafka 读取一轮快照, 直到收到运行结束标记
//	lens -nats               # 同上, 来源为 NATS 主题
//
// 报告写到 -out ("-" 为标准输出), 配置了 NATS / Kafka 时同时发布。

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"

	"lens.com/pkg/config"
	"lens.com/pkg/hotspot"
	"lens.com/pkg/ingest"
	"lens.com/pkg/kafka"
	"lens.com/pkg/logger"
	bus "lens.com/pkg/nats"
	"lens.com/pkg/price"
	"lens.com/pkg/report"
)

// Flags 命令行参数
type Flags struct {
	ConfigPath string
	Snapshots  []string
	FromKafka  bool
	FromNATS   bool
	Out        string
	NodeID     int64
}

func parseFlags() Flags {
	var f Flags
	var snapshots string
	flag.StringVar(&f.ConfigPath, "config", "", "path to config file (default ./lens.yaml if present)")
	flag.StringVar(&snapshots, "snapshots", "", "comma separated snapshot files")
	flag.BoolVar(&f.FromKafka, "kafka", false, "read snapshots from the configured kafka topic")
	flag.BoolVar(&f.FromNATS, "nats", false, "read snapshots from the configured nats subject")
	flag.StringVar(&f.Out, "out", "-", "report output file, - for stdout")
	flag.Int64Var(&f.NodeID, "node", 1, "snowflake node id for run ids (0-1023)")
	flag.Parse()

	for _, s := range strings.Split(snapshots, ",") {
		if s = strings.TrimSpace(s); s != "" {
			f.Snapshots = append(f.Snapshots, s)
		}
	}
	return f
}

func main() {
	flags := parseFlags()
	if countTrue(flags.FromKafka, flags.FromNATS, len(flags.Snapshots) > 0) != 1 {
		fmt.Fprintln(os.Stderr, "exactly one of -snapshots, -kafka or -nats is required")
		os.Exit(2)
	}

	app := fx.New(
		fx.Supply(flags),
		fx.Provide(
			newConfig,
			newLogger,
			newFeed,
			newOracle,
			newNATSConn,
			newGenerator,
			newSource,
			newPublisher,
			ingest.NewBuilder,
			newJob,
		),
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),
		fx.Invoke(schedule),
	)
	app.Run()
}

func countTrue(flags ...bool) int {
	n := 0
	for _, f := range flags {
		if f {
			n++
		}
	}
	return n
}

// =============================================================================
// Providers
// =============================================================================

func newConfig(f Flags) (*config.Config, error) {
	return config.Load(f.ConfigPath)
}

func newLogger(cfg *config.Config, lc fx.Lifecycle) (*zap.Logger, error) {
	log, err := logger.New(cfg.Log.Level, "lens")
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(func() { _ = log.Sync() }))
	return log, nil
}

// newFeed CoinGecko, 配置了 redis_addr 时外加 Redis 缓存
func newFeed(cfg *config.Config, log *zap.Logger, lc fx.Lifecycle) price.Feed {
	gecko := price.NewCoinGeckoFeed(price.CoinGeckoConfig{
		BaseURL:   cfg.Price.BaseURL,
		Timeout:   cfg.Price.Timeout,
		PaceDelay: cfg.Price.PaceDelay,
	}, log)

	if cfg.Price.RedisAddr == "" {
		return gecko
	}

	rds := redis.NewClient(&redis.Options{Addr: cfg.Price.RedisAddr})
	lc.Append(fx.StopHook(rds.Close))
	return price.NewCachedFeed(gecko, rds, cfg.Price.RedisTTL, log)
}

// newOracle 运行级价格缓存, 应用停止时释放
func newOracle(feed price.Feed, log *zap.Logger, lc fx.Lifecycle) *price.Oracle {
	o := price.NewOracle(feed, log)
	lc.Append(fx.StopHook(o.Close))
	return o
}

func newGenerator(f Flags, cfg *config.Config, oracle *price.Oracle, log *zap.Logger) (*report.Generator, error) {
	ids, err := report.NewIDGenerator(f.NodeID)
	if err != nil {
		return nil, err
	}
	opts := report.Options{
		TopN:          cfg.Analysis.TopN,
		RiskThreshold: cfg.Analysis.RiskThreshold,
		Hotspot: hotspot.Config{
			BandPercent: cfg.Analysis.BandPercent,
			MinTraders:  cfg.Analysis.MinTraders,
		},
	}
	return report.NewGenerator(opts, oracle, ids, log), nil
}

// newNATSConn 配置了 nats.url 时建立共享连接, 否则为 nil
func newNATSConn(cfg *config.Config, log *zap.Logger, lc fx.Lifecycle) (*nats.Conn, error) {
	if cfg.NATS.URL == "" {
		return nil, nil
	}
	conn, err := bus.Connect(cfg.NATS.URL, "lens", log)
	if err != nil {
		return nil, err
	}
	lc.Append(fx.StopHook(conn.Drain))
	return conn, nil
}

func newSource(f Flags, cfg *config.Config, conn *nats.Conn, log *zap.Logger) (ingest.Source, error) {
	switch {
	case f.FromKafka:
		if len(cfg.Kafka.Brokers) == 0 {
			return nil, errors.New("-kafka requires kafka.brokers")
		}
		kc := kafka.DefaultConsumerConfig(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.Topic)
		return ingest.NewKafkaSource(kc, log), nil
	case f.FromNATS:
		if conn == nil {
			return nil, errors.New("-nats requires nats.url")
		}
		return ingest.NewNATSSource(conn, cfg.NATS.SnapshotSubject, log), nil
	default:
		return ingest.FileSource{Paths: f.Snapshots}, nil
	}
}

// newPublisher 按配置组合 NATS / Kafka, 都未配置时为空
func newPublisher(cfg *config.Config, conn *nats.Conn, log *zap.Logger, lc fx.Lifecycle) (report.Publisher, error) {
	var pubs report.MultiPublisher

	if conn != nil {
		pubs = append(pubs, report.NewNATSPublisher(bus.NewPublisher(conn, log), log))
	}

	if len(cfg.Kafka.Brokers) > 0 {
		producer, err := kafka.NewProducer(kafka.DefaultProducerConfig(cfg.Kafka.Brokers), log)
		if err != nil {
			return nil, err
		}
		lc.Append(fx.StopHook(producer.Close))
		pubs = append(pubs, report.NewKafkaPublisher(producer, cfg.Kafka.ReportTopic))
	}

	return pubs, nil
}

func newJob(f Flags, src ingest.Source, b *ingest.Builder, g *report.Generator, pub report.Publisher, log *zap.Logger) *Job {
	return &Job{
		Source:    src,
		Builder:   b,
		Generator: g,
		Publisher: pub,
		Out:       f.Out,
		Log:       log,
	}
}

// schedule 启动后在后台执行一次运行, 结束后关闭应用
func schedule(lc fx.Lifecycle, sd fx.Shutdowner, job *Job, log *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(context.Context) error {
			go func() {
				code := 0
				start := time.Now()
				if err := job.Run(ctx); err != nil {
					log.Error("run failed", zap.Error(err))
					code = 1
				} else {
					log.Info("run finished", zap.Duration("elapsed", time.Since(start)))
				}
				_ = sd.Shutdown(fx.ExitCode(code))
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
