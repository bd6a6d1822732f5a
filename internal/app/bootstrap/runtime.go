package bootstrap

import (
	"context"
	"crypto/tls"
	"strings"

	"github.com/redis/go-redis/v9"

	appconfig "github.com/wolfman30/pathlab-ai-platform/internal/config"
	"github.com/wolfman30/pathlab-ai-platform/internal/session"
	"github.com/wolfman30/pathlab-ai-platform/pkg/logging"
)

// BuildRedisClient returns a configured Redis client or nil when disabled.
// When verify is true, a ping is issued and failures return nil.
func BuildRedisClient(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger, verify bool) *redis.Client {
	if cfg == nil || strings.TrimSpace(cfg.RedisAddr) == "" {
		return nil
	}
	if logger == nil {
		logger = logging.Default()
	}
	if ctx == nil {
		ctx = context.Background()
	}

	redisOptions := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOptions.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(redisOptions)
	if !verify {
		return client
	}
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis not available; transcript archive disabled", "error", err)
		_ = client.Close()
		return nil
	}
	return client
}

// BuildTranscriptArchive mirrors session history to Redis. It returns nil
// (no archive) when the client is nil.
func BuildTranscriptArchive(client *redis.Client, cfg *appconfig.Config) session.TranscriptArchive {
	if client == nil {
		return nil
	}
	return session.NewRedisTranscriptArchive(client, cfg.TranscriptTTL).
		WithPIIScrubbing(cfg.TranscriptScrubPII)
}
