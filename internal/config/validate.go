package config

import (
	"errors"
	"fmt"
)

// Validate 校验启动必需的配置项
func (c *Config) Validate() error {
	var errs []error

	switch c.Database.Driver {
	case DriverMemory:
	case DriverPostgres:
		pg := c.Database.Postgres
		if pg.DSN == "" && pg.Host == "" {
			errs = append(errs, errors.New("database.postgres: dsn or host is required"))
		}
	default:
		errs = append(errs, fmt.Errorf("database.driver: unsupported driver %q", c.Database.Driver))
	}

	if c.LLM.DefaultProvider == "" {
		errs = append(errs, errors.New("llm.default_provider is required"))
	} else if p, ok := c.DefaultProviderConfig(); !ok {
		errs = append(errs, fmt.Errorf("llm.providers.%s is not configured", c.LLM.DefaultProvider))
	} else {
		if p.APIKey == "" {
			errs = append(errs, fmt.Errorf("llm.providers.%s.api_key is required", c.LLM.DefaultProvider))
		}
		if p.Model == "" {
			errs = append(errs, fmt.Errorf("llm.providers.%s.model is required", c.LLM.DefaultProvider))
		}
	}

	if c.Server.HTTP.ShutdownTimeout <= 0 {
		errs = append(errs, errors.New("server.http.shutdown_timeout must be positive"))
	}
	if c.Conversation.HistoryWindow < 0 {
		errs = append(errs, errors.New("conversation.history_window must not be negative"))
	}
	if c.Messaging.RedisStream.Enabled && !c.Cache.Redis.Enabled {
		errs = append(errs, errors.New("messaging.redis_stream requires cache.redis.enabled"))
	}

	return errors.Join(errs...)
}
