package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"TaskHub/internal/api"
	"TaskHub/internal/config"
	"TaskHub/internal/events"
	"TaskHub/internal/importer"
	"TaskHub/internal/observability/metrics"
	"TaskHub/internal/task"
	"TaskHub/pkg/logger"
)

var version = "dev"

// main 是 TaskHub 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		log.Fatalf("taskhubd 运行失败: %v", err)
	}
}

func run(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("taskhubd", pflag.ContinueOnError)
	configPath := flags.StringP("config", "c", "", "path to a YAML or JSON config file (default $TASKHUB_CONFIG)")
	address := flags.String("address", "", "listen address, overrides server.address")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *configPath == "" {
		*configPath = os.Getenv("TASKHUB_CONFIG")
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return err
	}
	if *address != "" {
		cfg.Server.Address = *address
	}

	if err := logger.Init(cfg.Log); err != nil {
		return fmt.Errorf("初始化日志失败: %w", err)
	}
	defer func() { _ = logger.Sync() }()

	publisher, err := newPublisher(ctx, cfg.Events)
	if err != nil {
		return err
	}

	service := task.NewService(task.NewMemoryStore(), publisher)
	defer func() {
		if err := service.Close(); err != nil {
			logger.L().Warn("关闭事件发布器失败", slog.Any("error", err))
		}
	}()

	var (
		collector  *metrics.Collector
		importOpts []importer.Option
	)
	if cfg.Metrics.Enabled {
		collector = metrics.New("taskhub")
		if err := collector.RegisterTaskCount(func() int { return service.Count(context.Background()) }); err != nil {
			return err
		}
		importOpts = append(importOpts, importer.WithRecorder(collector))
	}
	imp := importer.New(service, cfg.Import, importOpts...)

	server := api.NewServer(service, imp, api.Options{
		Address:           cfg.Server.Address,
		ReadHeaderTimeout: cfg.Server.ReadHeaderTimeout.Std(),
		ShutdownTimeout:   cfg.Server.ShutdownTimeout.Std(),
		Metrics:           collector,
		MetricsPath:       cfg.Metrics.Path,
		Version:           version,
	})

	logger.L().Info("taskhubd 启动",
		slog.String("address", cfg.Server.Address),
		slog.String("events_driver", cfg.Events.Driver),
		slog.Bool("metrics", cfg.Metrics.Enabled),
	)
	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

// newPublisher 按配置选择事件发布器，远程发布器外包一层熔断器。
func newPublisher(ctx context.Context, cfg config.EventsConfig) (events.Publisher, error) {
	switch cfg.Driver {
	case "", "none":
		return events.Nop{}, nil
	case "memory":
		return events.NewMemoryPublisher(cfg.Buffer), nil
	case "redis":
		pub, err := events.NewRedisPublisher(ctx, cfg.Redis)
		if err != nil {
			return nil, err
		}
		return events.NewBreakerPublisher(pub, cfg.EventBreaker()), nil
	case "rabbitmq":
		pub, err := events.NewRabbitMQPublisher(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return events.NewBreakerPublisher(pub, cfg.EventBreaker()), nil
	default:
		return nil, fmt.Errorf("未知的事件驱动: %s", cfg.Driver)
	}
}
