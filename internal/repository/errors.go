package repository

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	ErrNotFound          = errors.New("registro no encontrado")
	ErrOpenSessionExists = errors.New("ya existe una sesión de caja abierta para el negocio")
	ErrSessionNotOpen    = errors.New("la sesión de caja no está abierta")
)

const pgUniqueViolation = "23505"

// isUniqueViolation recognises a unique-constraint failure from postgres (pgx),
// from GORM's translated error, and from sqlite.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgUniqueViolation
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func notFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}

// conn picks the running transaction when there is one.
func conn(db *gorm.DB, tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return db
}
