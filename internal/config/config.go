package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/tailscale/hujson"
	"gopkg.in/yaml.v3"

	"TaskHub/internal/events"
	"TaskHub/internal/importer"
	"TaskHub/pkg/logger"
)

// Config 描述了 TaskHub 在启动阶段需要加载的全部配置。
type Config struct {
	Server  ServerConfig    `yaml:"server" json:"server"`
	Log     logger.Config   `yaml:"log" json:"log"`
	Import  importer.Config `yaml:"import" json:"import"`
	Events  EventsConfig    `yaml:"events" json:"events"`
	Metrics MetricsConfig   `yaml:"metrics" json:"metrics"`
}

// ServerConfig 控制 API 服务的监听地址与超时。
type ServerConfig struct {
	Address           string   `yaml:"address" json:"address"`
	ReadHeaderTimeout Duration `yaml:"read_header_timeout" json:"read_header_timeout"`
	ShutdownTimeout   Duration `yaml:"shutdown_timeout" json:"shutdown_timeout"`
}

// EventsConfig 选择变更事件的发布方式。
type EventsConfig struct {
	// Driver 取值 none、memory、redis、rabbitmq。
	Driver   string                `yaml:"driver" json:"driver"`
	Buffer   int                   `yaml:"buffer" json:"buffer"`
	Redis    events.RedisConfig    `yaml:"redis" json:"redis"`
	RabbitMQ events.RabbitMQConfig `yaml:"rabbitmq" json:"rabbitmq"`
	Breaker  BreakerConfig         `yaml:"breaker" json:"breaker"`
}

// BreakerConfig 是远程发布器熔断器的可配置部分。
type BreakerConfig struct {
	Interval         Duration `yaml:"interval" json:"interval"`
	Timeout          Duration `yaml:"timeout" json:"timeout"`
	FailureThreshold float64  `yaml:"failure_threshold" json:"failure_threshold"`
	MinRequests      uint32   `yaml:"min_requests" json:"min_requests"`
}

// MetricsConfig 控制 Prometheus 指标的暴露。
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	Path    string `yaml:"path" json:"path"`
}

// Duration 以 "5s"、"250ms" 这样的字符串读写 time.Duration。
type Duration time.Duration

// Std 返回标准库类型。
func (d Duration) Std() time.Duration { return time.Duration(d) }

// MarshalText 实现 encoding.TextMarshaler。
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

// UnmarshalText 实现 encoding.TextUnmarshaler。
func (d *Duration) UnmarshalText(text []byte) error {
	parsed, err := time.ParseDuration(strings.TrimSpace(string(text)))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", text, err)
	}
	*d = Duration(parsed)
	return nil
}

// EventBreaker 把配置转换为 events.BreakerConfig。
func (c EventsConfig) EventBreaker() events.BreakerConfig {
	cfg := events.DefaultBreakerConfig("events-" + c.Driver)
	if c.Breaker.Interval > 0 {
		cfg.Interval = c.Breaker.Interval.Std()
	}
	if c.Breaker.Timeout > 0 {
		cfg.Timeout = c.Breaker.Timeout.Std()
	}
	if c.Breaker.FailureThreshold > 0 {
		cfg.FailureThreshold = c.Breaker.FailureThreshold
	}
	if c.Breaker.MinRequests > 0 {
		cfg.MinRequests = c.Breaker.MinRequests
	}
	return cfg
}

// Default 返回未提供配置文件时使用的配置。
func Default() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Address:           ":8080",
			ReadHeaderTimeout: Duration(5 * time.Second),
			ShutdownTimeout:   Duration(10 * time.Second),
		},
		Log: logger.Config{Level: "info", Format: "json"},
		Import: importer.Config{
			MaxUploadBytes: importer.DefaultMaxUploadBytes,
			FileField:      importer.DefaultFileField,
		},
		Events:  EventsConfig{Driver: "none", Buffer: 1024},
		Metrics: MetricsConfig{Enabled: true, Path: "/metrics"},
	}
	return cfg
}

// Load 解析配置文件并叠加环境变量。path 为空时只使用默认值与环境变量。
// .yaml/.yml 按 YAML 解析，其余按 JSON（允许注释与尾逗号）解析。
func Load(path string) (*Config, error) {
	cfg := Default()
	if path != "" {
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("读取配置文件失败: %w", err)
		}
		if err := decode(path, content, cfg); err != nil {
			return nil, fmt.Errorf("解析配置失败 %s: %w", path, err)
		}
		cfg.resolvePaths(filepath.Dir(path))
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(path string, content []byte, cfg *Config) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Unmarshal(content, cfg)
	default:
		standardized, err := hujson.Standardize(content)
		if err != nil {
			return fmt.Errorf("invalid JSONC: %w", err)
		}
		return json.Unmarshal(standardized, cfg)
	}
}

// resolvePaths 让相对的日志路径以配置文件所在目录为基准。
func (c *Config) resolvePaths(baseDir string) {
	for i, out := range c.Log.OutputPaths {
		switch strings.ToLower(out) {
		case "stdout", "stderr":
			continue
		}
		if !filepath.IsAbs(out) {
			c.Log.OutputPaths[i] = filepath.Join(baseDir, out)
		}
	}
	if c.Log.Audit.Path != "" && !filepath.IsAbs(c.Log.Audit.Path) {
		c.Log.Audit.Path = filepath.Join(baseDir, c.Log.Audit.Path)
	}
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults() {
	def := Default()
	if c.Server.Address == "" {
		c.Server.Address = def.Server.Address
	}
	if c.Server.ReadHeaderTimeout <= 0 {
		c.Server.ReadHeaderTimeout = def.Server.ReadHeaderTimeout
	}
	if c.Server.ShutdownTimeout <= 0 {
		c.Server.ShutdownTimeout = def.Server.ShutdownTimeout
	}
	if c.Import.MaxUploadBytes <= 0 {
		c.Import.MaxUploadBytes = def.Import.MaxUploadBytes
	}
	if c.Import.FileField == "" {
		c.Import.FileField = def.Import.FileField
	}
	c.Events.Driver = strings.ToLower(strings.TrimSpace(c.Events.Driver))
	if c.Events.Driver == "" {
		c.Events.Driver = def.Events.Driver
	}
	if c.Events.Buffer <= 0 {
		c.Events.Buffer = def.Events.Buffer
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = def.Metrics.Path
	}
}

// Validate 检查互相依赖的字段。
func (c *Config) Validate() error {
	switch c.Events.Driver {
	case "none", "memory":
	case "redis":
		if c.Events.Redis.Address == "" {
			return errors.New("events.redis.address is required for the redis driver")
		}
	case "rabbitmq":
		if c.Events.RabbitMQ.URL == "" {
			return errors.New("events.rabbitmq.url is required for the rabbitmq driver")
		}
	default:
		return fmt.Errorf("unknown events driver %q", c.Events.Driver)
	}
	if !strings.HasPrefix(c.Metrics.Path, "/") {
		return fmt.Errorf("metrics.path must start with '/', got %q", c.Metrics.Path)
	}
	return nil
}

// applyEnv 使用 TASKHUB_* 环境变量覆盖配置。
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	str("TASKHUB_SERVER_ADDRESS", &c.Server.Address)
	str("TASKHUB_LOG_LEVEL", &c.Log.Level)
	str("TASKHUB_LOG_FORMAT", &c.Log.Format)
	str("TASKHUB_IMPORT_FILE_FIELD", &c.Import.FileField)
	str("TASKHUB_EVENTS_DRIVER", &c.Events.Driver)
	str("TASKHUB_REDIS_ADDRESS", &c.Events.Redis.Address)
	str("TASKHUB_REDIS_PASSWORD", &c.Events.Redis.Password)
	str("TASKHUB_RABBITMQ_URL", &c.Events.RabbitMQ.URL)
	str("TASKHUB_METRICS_PATH", &c.Metrics.Path)

	if v, ok := lookup("TASKHUB_IMPORT_MAX_UPLOAD_BYTES"); ok && v != "" {
		n, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return fmt.Errorf("TASKHUB_IMPORT_MAX_UPLOAD_BYTES: %w", err)
		}
		c.Import.MaxUploadBytes = n
	}
	if v, ok := lookup("TASKHUB_METRICS_ENABLED"); ok && v != "" {
		enabled, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("TASKHUB_METRICS_ENABLED: %w", err)
		}
		c.Metrics.Enabled = enabled
	}
	if v, ok := lookup("TASKHUB_LOG_OUTPUTS"); ok && v != "" {
		c.Log.OutputPaths = strings.Split(v, ",")
	}
	return nil
}
