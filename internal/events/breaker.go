package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/sony/gobreaker"

	"TaskHub/pkg/logger"
)

// BreakerConfig 控制远程发布器外层熔断器的行为。
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig 返回默认熔断配置。
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      1,
		Interval:         30 * time.Second,
		Timeout:          15 * time.Second,
		FailureThreshold: 0.5,
		MinRequests:      5,
	}
}

// BreakerPublisher 在下游不可用时快速失败，避免每次变更都等待网络超时。
type BreakerPublisher struct {
	next Publisher
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerPublisher 用熔断器包装 next。
func NewBreakerPublisher(next Publisher, cfg BreakerConfig) *BreakerPublisher {
	defaults := DefaultBreakerConfig(cfg.Name)
	if cfg.MinRequests == 0 {
		cfg.MinRequests = defaults.MinRequests
	}
	if cfg.FailureThreshold <= 0 {
		cfg.FailureThreshold = defaults.FailureThreshold
	}
	if cfg.MaxRequests == 0 {
		cfg.MaxRequests = defaults.MaxRequests
	}
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Named("events").Warn("publisher breaker state changed",
				slog.String("breaker", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
		},
	})
	return &BreakerPublisher{next: next, cb: cb}
}

// Publish 经熔断器转发事件；熔断打开时返回 gobreaker.ErrOpenState。
func (p *BreakerPublisher) Publish(ctx context.Context, event Event) error {
	_, err := p.cb.Execute(func() (interface{}, error) {
		return nil, p.next.Publish(ctx, event)
	})
	return err
}

// State 返回熔断器当前状态。
func (p *BreakerPublisher) State() gobreaker.State {
	return p.cb.State()
}

// Close 关闭被包装的发布器。
func (p *BreakerPublisher) Close() error {
	return p.next.Close()
}
