package config

import (
	"time"

	"github.com/njbennett/changepoll/internal/budget"
)

// Default values for optional configuration fields.
const (
	DefaultAPITimeout        = 30 * time.Second
	DefaultMaxRetries        = 3
	DefaultDBPort            = 5432
	DefaultDBSSLMode         = "prefer"
	DefaultMaxConns          = 10
	DefaultMinConns          = 2
	DefaultPollTick          = time.Minute
	DefaultPollConcurrency   = 4
	DefaultReconcileInterval = 5 * time.Minute
	DefaultSink              = "log"
	DefaultWebhookTimeout    = 10 * time.Second
	DefaultRedisStream       = "changepoll:events"
	DefaultJournalBatchSize  = 500
	DefaultFlushInterval     = time.Second
	DefaultBufferSize        = 4096
	DefaultMetricsPort       = 9090
	DefaultMetricsPath       = "/metrics"
)

func (c *PollerConfig) applyDefaults() {
	if c.API.Timeout == 0 {
		c.API.Timeout = DefaultAPITimeout
	}
	if c.API.MaxRetries == 0 {
		c.API.MaxRetries = DefaultMaxRetries
	}

	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	if c.Budget.DailyCalls == 0 {
		c.Budget.DailyCalls = budget.DefaultDailyCallBudget
	}

	if c.Poll.Tick == 0 {
		c.Poll.Tick = DefaultPollTick
	}
	if c.Poll.Concurrency == 0 {
		c.Poll.Concurrency = DefaultPollConcurrency
	}
	if c.Poll.ReconcileInterval == 0 {
		c.Poll.ReconcileInterval = DefaultReconcileInterval
	}

	if c.Dispatch.Sink == "" {
		c.Dispatch.Sink = DefaultSink
	}
	if c.Dispatch.Webhook.Timeout == 0 {
		c.Dispatch.Webhook.Timeout = DefaultWebhookTimeout
	}
	if c.Dispatch.Redis.Stream == "" {
		c.Dispatch.Redis.Stream = DefaultRedisStream
	}

	if c.Journal.BatchSize == 0 {
		c.Journal.BatchSize = DefaultJournalBatchSize
	}
	if c.Journal.FlushInterval == 0 {
		c.Journal.FlushInterval = DefaultFlushInterval
	}
	if c.Journal.BufferSize == 0 {
		c.Journal.BufferSize = DefaultBufferSize
	}

	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}
}
