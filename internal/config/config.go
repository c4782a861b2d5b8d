package config

import "time"

// PollerConfig is the root configuration for a poller instance.
type PollerConfig struct {
	Instance InstanceConfig `yaml:"instance"`
	API      APIConfig      `yaml:"api"`
	Database DBConfig       `yaml:"database"`
	Budget   BudgetConfig   `yaml:"budget"`
	Poll     PollConfig     `yaml:"poll"`
	Dispatch DispatchConfig `yaml:"dispatch"`
	Journal  JournalConfig  `yaml:"journal"`
	Metrics  MetricsConfig  `yaml:"metrics"`
}

// InstanceConfig identifies this poller.
type InstanceConfig struct {
	ID string `yaml:"id"`
}

// APIConfig holds remote entity API settings.
type APIConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// DBConfig holds the Postgres connection for subscription state and the
// event journal.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// BudgetConfig holds the shared daily call budget.
type BudgetConfig struct {
	DailyCalls int `yaml:"daily_calls"`
}

// PollConfig holds scheduler and cycle settings.
type PollConfig struct {
	// Tick is how often the scheduler checks subscriptions for due cycles.
	Tick time.Duration `yaml:"tick"`

	// Concurrency bounds the number of endpoints fetched in parallel
	// within one cycle.
	Concurrency int `yaml:"concurrency"`

	// ReconcileInterval is how often the subscription registry reloads
	// from the database.
	ReconcileInterval time.Duration `yaml:"reconcile_interval"`
}

// DispatchConfig selects and configures the downstream event sink.
type DispatchConfig struct {
	// Sink is one of "log", "webhook", "redis", "websocket".
	Sink string `yaml:"sink"`

	Webhook   WebhookSinkConfig   `yaml:"webhook"`
	Redis     RedisSinkConfig     `yaml:"redis"`
	Websocket WebsocketSinkConfig `yaml:"websocket"`
}

// WebhookSinkConfig holds settings for the HTTP webhook sink.
type WebhookSinkConfig struct {
	URL     string        `yaml:"url"`
	Timeout time.Duration `yaml:"timeout"`
}

// RedisSinkConfig holds settings for the Redis Stream sink.
type RedisSinkConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	Stream   string `yaml:"stream"`
}

// WebsocketSinkConfig holds settings for the websocket push sink.
type WebsocketSinkConfig struct {
	URL string `yaml:"url"`
}

// JournalConfig holds event journal writer settings.
type JournalConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
}

// MetricsConfig holds the ops HTTP server settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}
