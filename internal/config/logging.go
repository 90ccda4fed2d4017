package config

import (
	"context"
	"log/slog"
)

// Log logs the resolved settings in a granular way, skipping irrelevant ones
func Log(s *Settings) {
	LogWithLogger(s, slog.Default())
}

// LogWithLogger logs the resolved settings using the provided logger
func LogWithLogger(s *Settings, logger *slog.Logger) {
	ctx := context.Background()
	logger.InfoContext(ctx, "Config: transport", "value", s.Transport)
	if s.Transport == "sse" {
		logger.InfoContext(ctx, "Config: host", "value", s.Host)
		logger.InfoContext(ctx, "Config: port", "value", s.Port)
	}

	logger.InfoContext(ctx, "Config: auth.type", "value", s.Auth.Type)
	switch s.Auth.Type {
	case AuthTypeBasic:
		logger.InfoContext(ctx, "Config: auth.basic.username", "value", s.Auth.Basic.Username)
		logger.InfoContext(ctx, "Config: auth.basic.password", "value", "****")
	case AuthTypeAPIKey:
		logger.InfoContext(ctx, "Config: auth.api_keys", "count", len(s.Auth.APIKeys))
	}

	logger.InfoContext(ctx, "Config: docs.enabled", "value", s.Docs.Enabled)
	if s.Docs.Enabled {
		logger.InfoContext(ctx, "Config: docs.sources", "value", s.Docs.Sources)
		logger.InfoContext(ctx, "Config: docs.base_dir", "value", s.Docs.BaseDir)
		logger.InfoContext(ctx, "Config: docs.sync_interval", "value", s.Docs.SyncInterval)
		logger.InfoContext(ctx, "Config: docs.sync_timeout", "value", s.Docs.SyncTimeout)
		logger.InfoContext(ctx, "Config: docs.max_file_size", "value", s.Docs.MaxFileSize)
		logger.InfoContext(ctx, "Config: docs.max_results", "value", s.Docs.MaxResults)
	}

	logger.InfoContext(ctx, "Config: cache.enabled", "value", s.Cache.Enabled)
	if s.Cache.Enabled {
		if s.Cache.RedisAddr != "" {
			logger.InfoContext(ctx, "Config: cache.redis_addr", "value", s.Cache.RedisAddr)
			logger.InfoContext(ctx, "Config: cache.redis_db", "value", s.Cache.RedisDB)
			if s.Cache.RedisPassword != "" {
				logger.InfoContext(ctx, "Config: cache.redis_password", "value", "****")
			}
		} else {
			logger.InfoContext(ctx, "Config: cache.size", "value", s.Cache.Size)
		}
		logger.InfoContext(ctx, "Config: cache.ttl", "value", s.Cache.TTL)
	}

	if s.Transport == "sse" {
		logger.InfoContext(ctx, "Config: rate_limit.enabled", "value", s.RateLimit.Enabled)
		if s.RateLimit.Enabled {
			logger.InfoContext(ctx, "Config: rate_limit.rps", "value", s.RateLimit.RPS)
			logger.InfoContext(ctx, "Config: rate_limit.burst", "value", s.RateLimit.Burst)
		}
	}
}

// AuthSettingsLogValue returns a slog.Value for AuthSettings with masked data
func AuthSettingsLogValue(s AuthSettings) slog.Value {
	keys := make([]string, len(s.APIKeys))
	for i := range s.APIKeys {
		keys[i] = "****"
	}
	return slog.GroupValue(
		slog.String("type", s.Type),
		slog.Any("basic", BasicAuthSettingsLogValue(s.Basic)),
		slog.Any("api_keys", keys),
	)
}

// BasicAuthSettingsLogValue returns a slog.Value for BasicAuthSettings with masked data
func BasicAuthSettingsLogValue(s BasicAuthSettings) slog.Value {
	return slog.GroupValue(
		slog.String("username", s.Username),
		slog.String("password", "****"),
	)
}

// SettingsLogValue returns a slog.Value for Settings with masked data
func SettingsLogValue(s Settings) slog.Value {
	return slog.GroupValue(
		slog.String("transport", s.Transport),
		slog.String("host", s.Host),
		slog.Int("port", s.Port),
		slog.Any("auth", AuthSettingsLogValue(s.Auth)),
		slog.Any("docs", DocsSettingsLogValue(s.Docs)),
		slog.Any("cache", CacheSettingsLogValue(s.Cache)),
	)
}

// DocsSettingsLogValue returns a slog.Value for DocsSettings
func DocsSettingsLogValue(s DocsSettings) slog.Value {
	return slog.GroupValue(
		slog.Bool("enabled", s.Enabled),
		slog.Any("sources", s.Sources),
		slog.String("base_dir", s.BaseDir),
		slog.Duration("sync_interval", s.SyncInterval),
		slog.Int("max_results", s.MaxResults),
	)
}

// CacheSettingsLogValue returns a slog.Value for CacheSettings with masked data
func CacheSettingsLogValue(s CacheSettings) slog.Value {
	password := ""
	if s.RedisPassword != "" {
		password = "****"
	}
	return slog.GroupValue(
		slog.Bool("enabled", s.Enabled),
		slog.String("redis_addr", s.RedisAddr),
		slog.String("redis_password", password),
		slog.Duration("ttl", s.TTL),
		slog.Int("size", s.Size),
	)
}
