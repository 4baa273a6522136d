package llm

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	HealthOK        = "ok"
	HealthSlow      = "slow"
	HealthError     = "error"
	HealthDemo      = "demo"
	HealthUnhealthy = "unhealthy"

	unhealthyAfter = 3
	slowThreshold  = 3 * time.Second
)

// HealthCheck probes the provider and keeps the result. Three consecutive
// failures report the provider as unhealthy until a probe succeeds.
func (p *Proxy) HealthCheck(ctx context.Context) *HealthCheckResult {
	if p.DemoMode() {
		return p.storeHealth(&HealthCheckResult{Status: HealthDemo, Timestamp: time.Now().UTC()}, false)
	}
	provider := p.provider()
	if provider == nil {
		return p.storeHealth(&HealthCheckResult{
			Status:       HealthError,
			ErrorMessage: errUnsupportedProvider.Error(),
			Timestamp:    time.Now().UTC(),
		}, true)
	}

	ctx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()
	result, err := provider.HealthCheck(ctx)
	if result == nil {
		result = &HealthCheckResult{Status: HealthError, Timestamp: time.Now().UTC()}
	}
	failed := err != nil
	if failed {
		result.Status = HealthError
		result.ErrorMessage = err.Error()
	} else if result.Latency > slowThreshold {
		result.Status = HealthSlow
	}
	return p.storeHealth(result, failed)
}

// LastHealth returns the most recent probe result, or nil before the first.
func (p *Proxy) LastHealth() *HealthCheckResult {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()
	if p.lastHealth == nil {
		return nil
	}
	copied := *p.lastHealth
	return &copied
}

func (p *Proxy) storeHealth(result *HealthCheckResult, failed bool) *HealthCheckResult {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()
	if failed {
		p.healthFailures++
		if p.healthFailures >= unhealthyAfter {
			result.Status = HealthUnhealthy
		}
	} else {
		p.healthFailures = 0
	}
	p.lastHealth = result
	copied := *result
	return &copied
}

type HealthMonitor struct {
	Proxy    *Proxy
	Interval time.Duration
	Log      *zap.Logger
}

func (h *HealthMonitor) Run(ctx context.Context) {
	interval := h.Interval
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	h.runOnce(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			h.runOnce(ctx)
		}
	}
}

func (h *HealthMonitor) runOnce(ctx context.Context) {
	result := h.Proxy.HealthCheck(ctx)
	if h.Log == nil {
		return
	}
	switch result.Status {
	case HealthError, HealthUnhealthy:
		h.Log.Warn("llm provider health check failed",
			zap.String("provider", h.Proxy.ProviderName()),
			zap.String("status", result.Status),
			zap.String("error", result.ErrorMessage))
	default:
		h.Log.Debug("llm provider health check",
			zap.String("provider", h.Proxy.ProviderName()),
			zap.String("status", result.Status),
			zap.Duration("latency", result.Latency))
	}
}
