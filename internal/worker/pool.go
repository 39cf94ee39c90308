package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueReceipt = "jobs:receipt"
	QueueEmail   = "jobs:email"
	QueueVoice   = "jobs:voice"
	QueueVideo   = "jobs:video"

	JobReceipt = "receipt"
	JobEmail   = "email"
	JobVoice   = "voice"
	JobVideo   = "video"

	// MaxJobAttempts is how many times a job runs before it goes to the DLQ.
	MaxJobAttempts = 5
)

// brpopTimeout bounds how long an idle worker blocks before rechecking ctx.
var brpopTimeout = 5 * time.Second

var allQueues = []string{QueueReceipt, QueueEmail, QueueVoice, QueueVideo}

// Job is the generic envelope for all async tasks.
type Job struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Queue    string          `json:"queue"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Handler processes one job payload. A returned error schedules a retry.
type Handler interface {
	Process(ctx context.Context, raw json.RawMessage) error
}

// HandlerFunc adapts a plain function to Handler.
type HandlerFunc func(ctx context.Context, raw json.RawMessage) error

func (f HandlerFunc) Process(ctx context.Context, raw json.RawMessage) error { return f(ctx, raw) }

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueReceipt schedules PDF rendering (and optional upload/email) for a payment.
func (d *Dispatcher) EnqueueReceipt(ctx context.Context, payload ReceiptJobPayload) error {
	return d.enqueue(ctx, QueueReceipt, JobReceipt, payload)
}

// EnqueueEmail schedules delivery of an already rendered receipt.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, JobEmail, payload)
}

// EnqueueVoice schedules a spoken confirmation for a payment.
func (d *Dispatcher) EnqueueVoice(ctx context.Context, payload VoiceJobPayload) error {
	return d.enqueue(ctx, QueueVoice, JobVoice, payload)
}

// EnqueueVideo schedules a video recap.
func (d *Dispatcher) EnqueueVideo(ctx context.Context, payload VideoJobPayload) error {
	return d.enqueue(ctx, QueueVideo, JobVideo, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	job := Job{ID: uuid.NewString(), Type: jobType, Queue: queue, Payload: data}
	return pushJob(ctx, d.rdb, job)
}

func pushJob(ctx context.Context, rdb redis.Cmdable, job Job) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	return rdb.LPush(ctx, job.Queue, encoded).Err()
}

// Handlers maps job types to their processors. Nil entries are skipped
// with a warning so a partially configured deployment keeps draining queues.
type Handlers struct {
	Receipt Handler
	Email   Handler
	Voice   Handler
	Video   Handler
}

func (h *Handlers) forType(jobType string) Handler {
	if h == nil {
		return nil
	}
	switch jobType {
	case JobReceipt:
		return h.Receipt
	case JobEmail:
		return h.Email
	case JobVoice:
		return h.Voice
	case JobVideo:
		return h.Video
	}
	return nil
}

// Pool is a running set of queue consumers.
type Pool struct {
	wg sync.WaitGroup
}

// Wait blocks until every worker has returned after ctx is cancelled.
func (p *Pool) Wait() { p.wg.Wait() }

// StartWorkerPool launches numWorkers goroutines consuming all queues.
// Each goroutine blocks on BRPOP and uses no CPU when idle.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, handlers *Handlers, numWorkers int) *Pool {
	if numWorkers < 1 {
		numWorkers = 1
	}
	p := &Pool{}
	for i := 0; i < numWorkers; i++ {
		p.wg.Add(1)
		go func(id int) {
			defer p.wg.Done()
			runWorker(ctx, rdb, handlers, id)
		}(i)
	}
	log.Info().Msgf("worker pool started with %d workers", numWorkers)
	return p
}

func runWorker(ctx context.Context, rdb *redis.Client, handlers *Handlers, id int) {
	for {
		select {
		case <-ctx.Done():
			log.Info().Msgf("worker %d shutting down", id)
			return
		default:
			result, err := rdb.BRPop(ctx, brpopTimeout, allQueues...).Result()
			if err != nil {
				continue // timeout or context cancelled
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, handlers, result[0], result[1])
		}
	}
}

func processJob(ctx context.Context, rdb *redis.Client, handlers *Handlers, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		quoted, _ := json.Marshal(raw)
		SendToDLQ(ctx, rdb, queue, "unknown", quoted, "malformed envelope: "+err.Error(), 0)
		return
	}
	if job.Queue == "" {
		job.Queue = queue
	}

	h := handlers.forType(job.Type)
	if h == nil {
		log.Warn().Str("type", job.Type).Str("queue", queue).Msg("no handler configured, dropping job")
		return
	}

	job.Attempts++
	err := runHandler(ctx, h, job)
	if err == nil {
		log.Info().Str("type", job.Type).Str("job_id", job.ID).Int("attempt", job.Attempts).Msg("job done")
		return
	}

	if job.Attempts >= MaxJobAttempts {
		SendToDLQ(ctx, rdb, job.Queue, job.Type, job.Payload,
			fmt.Sprintf("max attempts (%d) exceeded: %v", MaxJobAttempts, err), job.Attempts)
		return
	}
	if schedErr := scheduleRetry(ctx, rdb, job, time.Now()); schedErr != nil {
		log.Error().Err(schedErr).Str("job_id", job.ID).Msg("failed to schedule retry")
		SendToDLQ(ctx, rdb, job.Queue, job.Type, job.Payload, "retry scheduling failed: "+err.Error(), job.Attempts)
		return
	}
	log.Warn().Err(err).Str("type", job.Type).Str("job_id", job.ID).Int("attempt", job.Attempts).Msg("job failed, retry scheduled")
}

// runHandler converts handler panics into errors so one bad job cannot kill a worker.
func runHandler(ctx context.Context, h Handler, job Job) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	return h.Process(ctx, job.Payload)
}
