package worker

// retry_cron.go
// Failed jobs are parked in a sorted set scored by their next attempt time.
// A background goroutine moves due jobs back onto their original queue.

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	DelayedSet        = "jobs:delayed"
	retryTickInterval = 2 * time.Second
	retryBatchSize    = 50
	maxRetryBackoff   = 10 * time.Minute
)

// computeRetryBackoff returns the wait before attempt n+1: 5s, 10s, 20s ... capped.
func computeRetryBackoff(attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := 5 * time.Second << uint(attempts-1)
	if d <= 0 || d > maxRetryBackoff {
		return maxRetryBackoff
	}
	return d
}

func scheduleRetry(ctx context.Context, rdb *redis.Client, job Job, now time.Time) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	due := now.Add(computeRetryBackoff(job.Attempts))
	return rdb.ZAdd(ctx, DelayedSet, redis.Z{Score: float64(due.UnixMilli()), Member: encoded}).Err()
}

// StartRetryCron launches the goroutine that promotes due retries. It
// returns when ctx is cancelled; done is closed at that point.
func StartRetryCron(ctx context.Context, rdb *redis.Client) (done <-chan struct{}) {
	ch := make(chan struct{})
	go func() {
		defer close(ch)
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")
		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				if n, err := promoteDueJobs(ctx, rdb, time.Now()); err != nil {
					log.Error().Err(err).Msg("retry_cron: promote failed")
				} else if n > 0 {
					log.Info().Int("count", n).Msg("retry_cron: requeued jobs")
				}
			}
		}
	}()
	return ch
}

// promoteScript pushes a parked job back onto its queue and drops it from
// the delayed set in one atomic step. A failed LPUSH aborts the script
// before ZREM, so the job stays parked. A member another cron already took
// returns 0.
var promoteScript = redis.NewScript(`
if not redis.call('ZSCORE', KEYS[1], ARGV[1]) then
	return 0
end
redis.call('LPUSH', KEYS[2], ARGV[1])
redis.call('ZREM', KEYS[1], ARGV[1])
return 1
`)

// promoteDueJobs moves jobs whose score is <= now back to their queue.
func promoteDueJobs(ctx context.Context, rdb *redis.Client, now time.Time) (int, error) {
	members, err := rdb.ZRangeByScore(ctx, DelayedSet, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.UnixMilli(), 10),
		Count: retryBatchSize,
	}).Result()
	if err != nil {
		return 0, err
	}

	moved := 0
	for _, m := range members {
		var job Job
		if err := json.Unmarshal([]byte(m), &job); err != nil || job.Queue == "" {
			removed, zerr := rdb.ZRem(ctx, DelayedSet, m).Result()
			if zerr != nil {
				return moved, zerr
			}
			if removed > 0 {
				quoted, _ := json.Marshal(m)
				SendToDLQ(ctx, rdb, "delayed", "unknown", quoted, "malformed delayed job", 0)
			}
			continue
		}
		n, err := promoteScript.Run(ctx, rdb, []string{DelayedSet, job.Queue}, m).Int()
		if err != nil {
			return moved, err
		}
		moved += n
	}
	return moved, nil
}
