package worker

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	QueueCierre = "jobs:cierre"
	QueueEmail  = "jobs:email"
	// RetrySet holds failed jobs scored by the unix time they become due.
	RetrySet = "jobs:retry"

	JobCierre = "cierre"
	JobEmail  = "email"

	maxAttempts = 3

	// popBackoff is how long a worker waits after Redis fails a BRPOP.
	popBackoff = 2 * time.Second
)

// Job is the generic envelope for all async tasks.
type Job struct {
	Type     string          `json:"type"`
	Queue    string          `json:"queue"`
	Payload  json.RawMessage `json:"payload"`
	Attempts int             `json:"attempts"`
}

// Handler processes one job payload. Returning an error schedules a retry
// unless the error is permanent or the job is out of attempts.
type Handler func(ctx context.Context, payload json.RawMessage) error

type permanentError struct{ err error }

func (e permanentError) Error() string { return e.err.Error() }
func (e permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying; the job goes straight to the DLQ.
func Permanent(err error) error { return permanentError{err: err} }

func isPermanent(err error) bool {
	var p permanentError
	return errors.As(err, &p)
}

// Dispatcher enqueues async jobs into Redis lists.
// The worker pool dequeues them via BRPOP.
type Dispatcher struct {
	rdb *redis.Client
}

func NewDispatcher(rdb *redis.Client) *Dispatcher {
	return &Dispatcher{rdb: rdb}
}

// EnqueueCierre schedules the closing report of a session.
func (d *Dispatcher) EnqueueCierre(ctx context.Context, sessionID uuid.UUID) error {
	return d.enqueue(ctx, QueueCierre, JobCierre, CierreJobPayload{SessionID: sessionID.String()})
}

// EnqueueEmail schedules delivery of a rendered closing report.
func (d *Dispatcher) EnqueueEmail(ctx context.Context, payload EmailJobPayload) error {
	return d.enqueue(ctx, QueueEmail, JobEmail, payload)
}

func (d *Dispatcher) enqueue(ctx context.Context, queue, jobType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(Job{Type: jobType, Queue: queue, Payload: data})
	if err != nil {
		return err
	}
	return d.rdb.LPush(ctx, queue, encoded).Err()
}

// StartWorkerPool launches numWorkers goroutines consuming every queue.
// Each goroutine blocks on BRPOP, so idle workers cost nothing.
func StartWorkerPool(ctx context.Context, rdb *redis.Client, numWorkers int, handlers map[string]Handler) {
	for i := 0; i < numWorkers; i++ {
		go runWorker(ctx, rdb, i, handlers)
	}
	log.Info().Int("workers", numWorkers).Msg("worker pool started")
}

func runWorker(ctx context.Context, rdb *redis.Client, id int, handlers map[string]Handler) {
	queues := []string{QueueCierre, QueueEmail}
	for {
		select {
		case <-ctx.Done():
			log.Info().Int("worker", id).Msg("worker shutting down")
			return
		default:
			// Blocking pop: waits up to 5s then loops to check ctx
			result, err := rdb.BRPop(ctx, 5*time.Second, queues...).Result()
			if err != nil {
				if delay := popDelay(ctx, err); delay > 0 {
					log.Error().Err(err).Int("worker", id).Dur("retry_in", delay).Msg("worker: redis pop failed")
					select {
					case <-ctx.Done():
					case <-time.After(delay):
					}
				}
				continue
			}
			if len(result) < 2 {
				continue
			}
			processJob(ctx, rdb, handlers, result[0], result[1])
		}
	}
}

// popDelay is zero for an empty-queue timeout or a cancelled context, and
// popBackoff for anything else so an unreachable Redis is not hammered.
func popDelay(ctx context.Context, err error) time.Duration {
	if errors.Is(err, redis.Nil) || ctx.Err() != nil {
		return 0
	}
	return popBackoff
}

func processJob(ctx context.Context, rdb *redis.Client, handlers map[string]Handler, queue, raw string) {
	var job Job
	if err := json.Unmarshal([]byte(raw), &job); err != nil {
		log.Error().Str("queue", queue).Err(err).Msg("failed to unmarshal job")
		SendToDLQ(ctx, rdb, queue, Job{Type: "unknown", Queue: queue, Payload: json.RawMessage(`null`)}, "malformed envelope")
		return
	}
	if job.Queue == "" {
		job.Queue = queue
	}
	h, ok := handlers[job.Type]
	if !ok {
		SendToDLQ(ctx, rdb, queue, job, "no handler for job type")
		return
	}

	err := h(ctx, job.Payload)
	job.Attempts++
	switch nextStep(job.Attempts, err) {
	case stepDone:
		log.Info().Str("type", job.Type).Int("attempt", job.Attempts).Msg("job processed")
	case stepRetry:
		delay := backoff(job.Attempts)
		log.Warn().Err(err).Str("type", job.Type).Int("attempt", job.Attempts).Dur("retry_in", delay).Msg("job failed, retry scheduled")
		if serr := scheduleRetry(ctx, rdb, job, delay); serr != nil {
			log.Error().Err(serr).Str("type", job.Type).Msg("failed to schedule retry")
			SendToDLQ(ctx, rdb, queue, job, err.Error())
		}
	case stepDLQ:
		SendToDLQ(ctx, rdb, queue, job, err.Error())
	}
}

type step int

const (
	stepDone step = iota
	stepRetry
	stepDLQ
)

// nextStep decides what happens to a job after its attempt-th run.
func nextStep(attempt int, err error) step {
	switch {
	case err == nil:
		return stepDone
	case isPermanent(err), attempt >= maxAttempts:
		return stepDLQ
	default:
		return stepRetry
	}
}

// backoff: 30s after the first failure, 60s after the second.
func backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	return time.Duration(1<<uint(attempt-1)) * 30 * time.Second
}

func scheduleRetry(ctx context.Context, rdb *redis.Client, job Job, delay time.Duration) error {
	encoded, err := json.Marshal(job)
	if err != nil {
		return err
	}
	due := float64(time.Now().Add(delay).Unix())
	return rdb.ZAdd(ctx, RetrySet, redis.Z{Score: due, Member: encoded}).Err()
}
