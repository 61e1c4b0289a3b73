package worker

// dlq.go: dead letter lists.
// A job that keeps failing is parked in dlq:<queue> together with its last
// error, so an operator can inspect it and push it back once the cause (SMTP
// down, full disk) is fixed.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// DLQEntry is one parked job.
type DLQEntry struct {
	Queue    string          `json:"queue"`
	JobType  string          `json:"job_type"`
	Payload  json.RawMessage `json:"payload"`
	Reason   string          `json:"reason"`
	FailedAt time.Time       `json:"failed_at"`
	Attempts int             `json:"attempts"`
}

// DLQStore is the slice of the redis client the dead letter lists need.
type DLQStore interface {
	listPusher
	LLen(ctx context.Context, key string) *redis.IntCmd
	LRange(ctx context.Context, key string, start, stop int64) *redis.StringSliceCmd
	RPop(ctx context.Context, key string) *redis.StringCmd
}

func dlqKey(queue string) string { return DLQPrefix + queue }

// deadLetter parks job in the DLQ of queue. Push errors are only logged; the
// pool keeps consuming either way.
func deadLetter(ctx context.Context, rdb listPusher, queue string, job Job, reason string) {
	entry := DLQEntry{
		Queue:    queue,
		JobType:  job.Type,
		Payload:  job.Payload,
		Reason:   reason,
		FailedAt: time.Now().UTC(),
		Attempts: job.Attempts,
	}
	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: failed to marshal entry")
		return
	}
	if err := rdb.LPush(ctx, dlqKey(queue), data).Err(); err != nil {
		log.Error().Err(err).Str("dlq_key", dlqKey(queue)).Msg("dlq: failed to push entry")
		return
	}
	log.Warn().
		Str("queue", queue).
		Str("job_type", job.Type).
		Str("reason", reason).
		Int("attempts", job.Attempts).
		Msg("dlq: job parked")
}

// DLQLength returns how many jobs are parked for queue.
func DLQLength(ctx context.Context, rdb DLQStore, queue string) (int64, error) {
	return rdb.LLen(ctx, dlqKey(queue)).Result()
}

// ListDLQ returns up to limit parked jobs, most recent first. Entries that no
// longer decode are skipped.
func ListDLQ(ctx context.Context, rdb DLQStore, queue string, limit int64) ([]DLQEntry, error) {
	if limit <= 0 {
		limit = 50
	}
	raw, err := rdb.LRange(ctx, dlqKey(queue), 0, limit-1).Result()
	if err != nil {
		return nil, fmt.Errorf("dlq: list %s: %w", queue, err)
	}
	out := make([]DLQEntry, 0, len(raw))
	for _, r := range raw {
		var e DLQEntry
		if err := json.Unmarshal([]byte(r), &e); err != nil {
			log.Warn().Err(err).Str("queue", queue).Msg("dlq: undecodable entry skipped")
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

// RequeueDLQ moves every parked job back onto queue with its attempt count
// reset, oldest first, and returns how many were moved. Entries that no
// longer decode are dropped.
func RequeueDLQ(ctx context.Context, rdb DLQStore, queue string) (int, error) {
	moved := 0
	for {
		raw, err := rdb.RPop(ctx, dlqKey(queue)).Result()
		if errors.Is(err, redis.Nil) {
			return moved, nil
		}
		if err != nil {
			return moved, fmt.Errorf("dlq: pop %s: %w", queue, err)
		}
		var e DLQEntry
		if err := json.Unmarshal([]byte(raw), &e); err != nil {
			log.Warn().Err(err).Str("queue", queue).Msg("dlq: undecodable entry dropped")
			continue
		}
		if err := push(ctx, rdb, queue, Job{Type: e.JobType, Payload: e.Payload}); err != nil {
			return moved, fmt.Errorf("dlq: requeue %s: %w", e.JobType, err)
		}
		moved++
	}
}
