package service

import (
	"context"
	"errors"

	"cajaflow/internal/repository"

	"github.com/google/uuid"
)

// AccessGuard decides whether a user may operate the till of a business.
type AccessGuard interface {
	Authorize(ctx context.Context, businessID, userID uuid.UUID) error
}

type memberGuard struct {
	negocios repository.NegocioRepository
}

// NewMemberGuard allows members of the business listed in business_members.
func NewMemberGuard(negocios repository.NegocioRepository) AccessGuard {
	return &memberGuard{negocios: negocios}
}

func (g *memberGuard) Authorize(ctx context.Context, businessID, userID uuid.UUID) error {
	if _, err := g.negocios.FindByID(ctx, businessID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return validationf("el negocio %s no existe", businessID)
		}
		return err
	}
	ok, err := g.negocios.IsMember(ctx, businessID, userID)
	if err != nil {
		return err
	}
	if !ok {
		return forbiddenf("el usuario no pertenece al negocio")
	}
	return nil
}

// AllowAll is used by operator tooling that runs outside any user session.
type AllowAll struct{}

func (AllowAll) Authorize(context.Context, uuid.UUID, uuid.UUID) error { return nil }
