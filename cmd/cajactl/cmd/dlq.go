package cmd

import (
	"context"
	"fmt"

	"cajaflow/internal/config"
	"cajaflow/internal/infra"
	"cajaflow/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	dlqQueue string
	dlqLimit int64
)

var dlqCmd = &cobra.Command{
	Use:   "dlq",
	Short: "Inspect or replay dead-lettered jobs",
	Long: `Jobs that fail permanently or run out of attempts are parked in a
dead letter queue per source queue. Queues: cierre, email.`,
}

var dlqListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print dead-lettered jobs as JSON, newest first",
	RunE: func(cmd *cobra.Command, args []string) error {
		rdb, queue, err := dlqClient(cmd.Context())
		if err != nil {
			return err
		}
		defer rdb.Close()

		entries, err := worker.ListDLQ(cmd.Context(), rdb, queue, dlqLimit)
		if err != nil {
			return err
		}
		return printJSON(entries)
	},
}

var dlqRequeueCmd = &cobra.Command{
	Use:   "requeue",
	Short: "Move every dead-lettered job back to its queue",
	RunE: func(cmd *cobra.Command, args []string) error {
		rdb, queue, err := dlqClient(cmd.Context())
		if err != nil {
			return err
		}
		defer rdb.Close()

		n, err := worker.RequeueDLQ(cmd.Context(), rdb, queue)
		if err != nil {
			return err
		}
		log.Info().Str("queue", queue).Int("jobs", n).Msg("dead-lettered jobs requeued")
		return nil
	},
}

func init() {
	dlqCmd.PersistentFlags().StringVar(&dlqQueue, "queue", "cierre", "source queue: cierre | email")
	dlqListCmd.Flags().Int64Var(&dlqLimit, "limit", 50, "maximum entries to print")

	dlqCmd.AddCommand(dlqListCmd)
	dlqCmd.AddCommand(dlqRequeueCmd)
}

func dlqClient(ctx context.Context) (*redis.Client, string, error) {
	var queue string
	switch dlqQueue {
	case "cierre":
		queue = worker.QueueCierre
	case "email":
		queue = worker.QueueEmail
	default:
		return nil, "", fmt.Errorf("unknown queue %q (want cierre or email)", dlqQueue)
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, "", fmt.Errorf("load config: %w", err)
	}
	rdb, err := infra.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		return nil, "", fmt.Errorf("connect redis: %w", err)
	}
	return rdb, queue, nil
}
