package worker

// retry_cron.go
// Background goroutine that moves failed jobs whose backoff has elapsed from
// the retry set back onto their queue. Email jobs stay parked while the SMTP
// circuit breaker is open.

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"cajaflow/internal/infra"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const (
	retryTickInterval = 15 * time.Second
	retryBatchSize    = 10
)

type RetryCronConfig struct {
	RDB *redis.Client
	// MailCB may be nil when email delivery is disabled.
	MailCB *infra.CircuitBreaker
}

// StartRetryCron launches the requeue loop; it stops when ctx is cancelled.
func StartRetryCron(ctx context.Context, cfg RetryCronConfig) {
	go func() {
		ticker := time.NewTicker(retryTickInterval)
		defer ticker.Stop()

		log.Info().Msg("retry_cron: started")

		for {
			select {
			case <-ctx.Done():
				log.Info().Msg("retry_cron: shutting down")
				return
			case <-ticker.C:
				requeueDue(ctx, cfg, time.Now())
			}
		}
	}()
}

func requeueDue(ctx context.Context, cfg RetryCronConfig, now time.Time) {
	due, err := cfg.RDB.ZRangeByScore(ctx, RetrySet, &redis.ZRangeBy{
		Min:   "-inf",
		Max:   strconv.FormatInt(now.Unix(), 10),
		Count: retryBatchSize,
	}).Result()
	if err != nil {
		log.Error().Err(err).Msg("retry_cron: failed to read retry set")
		return
	}

	mailDown := cfg.MailCB != nil && cfg.MailCB.State() == infra.CBOpen
	for _, raw := range due {
		var job Job
		if err := json.Unmarshal([]byte(raw), &job); err != nil {
			cfg.RDB.ZRem(ctx, RetrySet, raw)
			log.Error().Err(err).Msg("retry_cron: dropping malformed job")
			continue
		}
		if job.Queue == QueueEmail && mailDown {
			continue
		}
		// Only the replica that wins the ZREM requeues the job.
		removed, err := cfg.RDB.ZRem(ctx, RetrySet, raw).Result()
		if err != nil || removed == 0 {
			continue
		}
		if err := cfg.RDB.LPush(ctx, job.Queue, raw).Err(); err != nil {
			log.Error().Err(err).Str("queue", job.Queue).Msg("retry_cron: failed to requeue job")
			continue
		}
		log.Info().Str("type", job.Type).Int("attempts", job.Attempts).Msg("retry_cron: job requeued")
	}
}
