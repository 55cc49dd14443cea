package infra

import (
	"fmt"

	"cajaflow/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx. Schema changes are
// not applied here; call RunMigrations (server start-up or `cajactl migrate`).
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	return db, nil
}

// RunMigrations creates / updates every table through AutoMigrate, then applies
// the idempotent SQL patches GORM cannot express. The statements are plain
// enough to run on both postgres and sqlite.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Business{},
		&model.BusinessMember{},
		&model.Payment{},
		&model.CashSession{},
		&model.Expense{},
		&model.DenominationCount{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs DDL that GORM AutoMigrate cannot handle on its own.
// Each statement uses IF NOT EXISTS so re-running on a patched DB is safe.
func applySchemaPatches(db *gorm.DB) error {
	patches := []struct{ descr, sql string }{
		// At most one open session per business. Concurrent opens race on this
		// index and the loser gets a unique violation.
		{"partial unique index on open sessions", `
CREATE UNIQUE INDEX IF NOT EXISTS uq_cash_sessions_open_business
    ON cash_sessions (business_id)
    WHERE status = 'open'`},
		{"history index", `
CREATE INDEX IF NOT EXISTS idx_cash_sessions_business_opened
    ON cash_sessions (business_id, opened_at)`},
	}
	for _, p := range patches {
		if err := db.Exec(p.sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", p.descr, err)
		}
	}
	return nil
}
