package worker

// dlq.go — Dead Letter Queue
// Jobs that run out of attempts land in dlq:{original_queue} for inspection
// and can be pushed back with RequeueDLQ once the cause is fixed.

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const DLQPrefix = "dlq:"

// DLQEntry wraps a failed job with metadata for debugging.
type DLQEntry struct {
	OriginalQueue string          `json:"original_queue"`
	JobType       string          `json:"job_type"`
	Payload       json.RawMessage `json:"payload"`
	Reason        string          `json:"reason"`
	FailedAt      string          `json:"failed_at"` // ISO 8601
	Attempts      int             `json:"attempts"`
}

// SendToDLQ pushes a failed job to the dead letter queue for manual inspection.
func SendToDLQ(ctx context.Context, rdb redis.Cmdable, queue string, jobType string, payload json.RawMessage, reason string, attempts int) {
	entry := DLQEntry{
		OriginalQueue: queue,
		JobType:       jobType,
		Payload:       payload,
		Reason:        reason,
		FailedAt:      time.Now().UTC().Format(time.RFC3339),
		Attempts:      attempts,
	}

	data, err := json.Marshal(entry)
	if err != nil {
		log.Error().Err(err).Str("queue", queue).Msg("dlq: failed to marshal entry")
		return
	}

	dlqKey := DLQPrefix + queue
	if err := rdb.LPush(ctx, dlqKey, data).Err(); err != nil {
		log.Error().Err(err).Str("dlq_key", dlqKey).Msg("dlq: failed to push to DLQ")
		return
	}

	log.Warn().
		Str("queue", queue).
		Str("job_type", jobType).
		Str("reason", reason).
		Int("attempts", attempts).
		Msg("dlq: job moved to dead letter queue")
}

// DLQLength returns the number of entries in a DLQ for monitoring.
func DLQLength(ctx context.Context, rdb redis.Cmdable, queue string) (int64, error) {
	return rdb.LLen(ctx, DLQPrefix+queue).Result()
}

// DLQDepths reports every job queue's DLQ size, keyed by queue name.
func DLQDepths(ctx context.Context, rdb redis.Cmdable) (map[string]int64, error) {
	out := make(map[string]int64, len(allQueues))
	for _, q := range allQueues {
		n, err := DLQLength(ctx, rdb, q)
		if err != nil {
			return nil, err
		}
		out[q] = n
	}
	return out, nil
}

// requeueScript pops the oldest DLQ entry and pushes its rebuilt job in one
// atomic step, provided the entry is still the one the caller decoded.
// An empty ARGV[2] just drops the entry.
var requeueScript = redis.NewScript(`
if redis.call('LINDEX', KEYS[1], -1) ~= ARGV[1] then
	return 0
end
if ARGV[2] ~= '' then
	redis.call('LPUSH', KEYS[2], ARGV[2])
end
redis.call('RPOP', KEYS[1])
return 1
`)

// RequeueDLQ moves up to limit entries from dlq:{queue} back onto their
// original queue with a fresh attempt counter. It returns how many were moved.
func RequeueDLQ(ctx context.Context, rdb redis.Cmdable, queue string, limit int) (int, error) {
	key := DLQPrefix + queue
	moved := 0
	for moved < limit {
		raw, err := rdb.LIndex(ctx, key, -1).Result()
		if errors.Is(err, redis.Nil) {
			break
		}
		if err != nil {
			return moved, err
		}

		target, encoded := queue, ""
		var entry DLQEntry
		if err := json.Unmarshal([]byte(raw), &entry); err != nil {
			log.Error().Err(err).Str("queue", queue).Msg("dlq: dropping malformed entry")
		} else {
			if entry.OriginalQueue != "" {
				target = entry.OriginalQueue
			}
			job := Job{ID: uuid.NewString(), Type: entry.JobType, Queue: target, Payload: entry.Payload}
			data, err := json.Marshal(job)
			if err != nil {
				return moved, err
			}
			encoded = string(data)
		}

		n, err := requeueScript.Run(ctx, rdb, []string{key, target}, raw, encoded).Int()
		if err != nil {
			return moved, err
		}
		// n == 0: another caller took this entry first, look again
		if n == 1 && encoded != "" {
			moved++
		}
	}
	return moved, nil
}
