package config

import (
	"errors"
	"fmt"
)

// Validate checks that all required fields are set and values are valid.
func (c *PollerConfig) Validate() error {
	if c.Instance.ID == "" {
		return errors.New("instance.id is required")
	}

	if c.API.BaseURL == "" {
		return errors.New("api.base_url is required")
	}

	if err := c.Database.validate("database"); err != nil {
		return err
	}

	if c.Budget.DailyCalls < 1 {
		return errors.New("budget.daily_calls must be >= 1")
	}

	if c.Poll.Concurrency < 1 {
		return errors.New("poll.concurrency must be >= 1")
	}

	switch c.Dispatch.Sink {
	case "log":
	case "webhook":
		if c.Dispatch.Webhook.URL == "" {
			return errors.New("dispatch.webhook.url is required for the webhook sink")
		}
	case "redis":
		if c.Dispatch.Redis.Addr == "" {
			return errors.New("dispatch.redis.addr is required for the redis sink")
		}
	case "websocket":
		if c.Dispatch.Websocket.URL == "" {
			return errors.New("dispatch.websocket.url is required for the websocket sink")
		}
	default:
		return fmt.Errorf("dispatch.sink must be one of log, webhook, redis, websocket; got %q", c.Dispatch.Sink)
	}

	if c.Journal.Enabled {
		if c.Journal.BatchSize < 1 {
			return errors.New("journal.batch_size must be >= 1")
		}
		if c.Journal.BufferSize < 1 {
			return errors.New("journal.buffer_size must be >= 1")
		}
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Host == "" {
		return fmt.Errorf("%s.host is required", prefix)
	}
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
