// Package cmd provides the cajactl subcommands.
package cmd

import (
	"fmt"
	"os"
	"time"

	"cajaflow/internal/config"
	"cajaflow/internal/infra"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var (
	sqlitePath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "cajactl",
	Short: "Operator tooling for the cash register service",
	Long: `cajactl runs maintenance tasks against the cash register database.

Example:
  cajactl migrate
  cajactl seed
  cajactl report daily --business <id> --date 2024-05-10
  cajactl --sqlite ./dev.db report period --business <id> --from 2024-05-01 --to 2024-05-31
  cajactl dlq list --queue email`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		level := zerolog.InfoLevel
		if debug {
			level = zerolog.DebugLevel
		}
		zerolog.SetGlobalLevel(level)
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&sqlitePath, "sqlite", "", "use a local SQLite file instead of DATABASE_URL")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(reportCmd)
	rootCmd.AddCommand(tokenCmd)
	rootCmd.AddCommand(dlqCmd)
}

// openDB connects to postgres, or to a SQLite file when --sqlite is set.
func openDB(cfg *config.Config) (*gorm.DB, error) {
	if sqlitePath == "" {
		return infra.NewDatabase(cfg.DatabaseURL)
	}
	db, err := gorm.Open(sqlite.Open(sqlitePath), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", sqlitePath, err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

// loadDB loads config and opens the database in one step.
func loadDB() (*config.Config, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	db, err := openDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	return cfg, db, nil
}
