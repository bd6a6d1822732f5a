package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const transcriptKeyPrefix = "chat_transcript:"

// RedisTranscriptArchive keeps a capped copy of each session's history in a
// Redis list so staff can read a conversation after it leaves memory.
type RedisTranscriptArchive struct {
	redis       *redis.Client
	tracer      trace.Tracer
	ttl         time.Duration
	maxMessages int64
	scrub       bool
}

// NewRedisTranscriptArchive returns nil when redisClient is nil.
func NewRedisTranscriptArchive(redisClient *redis.Client, ttl time.Duration) *RedisTranscriptArchive {
	if redisClient == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisTranscriptArchive{
		redis:       redisClient,
		tracer:      otel.Tracer("pathlab.internal.session.transcript"),
		ttl:         ttl,
		maxMessages: 500,
	}
}

// WithPIIScrubbing redacts emails and phone numbers from archived turns.
// The in-memory history is left untouched.
func (a *RedisTranscriptArchive) WithPIIScrubbing(enabled bool) *RedisTranscriptArchive {
	if a != nil {
		a.scrub = enabled
	}
	return a
}

func (a *RedisTranscriptArchive) Append(ctx context.Context, sessionID string, turn Turn) error {
	if a == nil || a.redis == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if sessionID == "" {
		return errors.New("session: transcript sessionID required")
	}
	if turn.Timestamp.IsZero() {
		turn.Timestamp = time.Now().UTC()
	}
	if a.scrub {
		turn.Content = ScrubPII(turn.Content)
	}

	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("session: marshal transcript turn: %w", err)
	}

	ctx, span := a.tracer.Start(ctx, "session.transcript.append")
	defer span.End()

	key := transcriptKey(sessionID)
	pipe := a.redis.TxPipeline()
	pipe.RPush(ctx, key, data)
	pipe.Expire(ctx, key, a.ttl)
	if a.maxMessages > 0 {
		pipe.LTrim(ctx, key, -a.maxMessages, -1)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		span.RecordError(err)
		return fmt.Errorf("session: append transcript turn: %w", err)
	}
	return nil
}

// List returns the most recent limit turns, or all of them when limit <= 0.
func (a *RedisTranscriptArchive) List(ctx context.Context, sessionID string, limit int64) ([]Turn, error) {
	if a == nil || a.redis == nil {
		return nil, nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if sessionID == "" {
		return nil, errors.New("session: transcript sessionID required")
	}

	ctx, span := a.tracer.Start(ctx, "session.transcript.list")
	defer span.End()

	start := int64(0)
	if limit > 0 {
		start = -limit
	}
	raw, err := a.redis.LRange(ctx, transcriptKey(sessionID), start, -1).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return []Turn{}, nil
		}
		span.RecordError(err)
		return nil, fmt.Errorf("session: list transcript: %w", err)
	}

	out := make([]Turn, 0, len(raw))
	for _, item := range raw {
		var turn Turn
		if err := json.Unmarshal([]byte(item), &turn); err != nil {
			span.RecordError(err)
			continue
		}
		out = append(out, turn)
	}
	return out, nil
}

func transcriptKey(sessionID string) string {
	return transcriptKeyPrefix + sessionID
}
