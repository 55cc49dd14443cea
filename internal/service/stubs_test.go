package service_test

import (
	"context"
	"sort"
	"sync"
	"time"

	"cajaflow/internal/dto"
	"cajaflow/internal/model"
	"cajaflow/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── In-memory CajaRepository ─────────────────────────────────────────────────

type memCajaRepo struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]*model.CashSession
	expenses []model.Expense
	ledger   map[uuid.UUID][]model.DenominationCount
}

var _ repository.CajaRepository = (*memCajaRepo)(nil)

func newMemCajaRepo() *memCajaRepo {
	return &memCajaRepo{
		sessions: make(map[uuid.UUID]*model.CashSession),
		ledger:   make(map[uuid.UUID][]model.DenominationCount),
	}
}

func (r *memCajaRepo) DB() *gorm.DB { return nil }

func (r *memCajaRepo) CreateSession(_ context.Context, _ *gorm.DB, s *model.CashSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sessions {
		if existing.BusinessID == s.BusinessID && existing.IsOpen() {
			return repository.ErrOpenSessionExists
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

// put stores a session as-is, for report fixtures.
func (r *memCajaRepo) put(s model.CashSession) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.sessions[s.ID] = &s
}

func (r *memCajaRepo) FindSessionByID(_ context.Context, _ *gorm.DB, id uuid.UUID) (*model.CashSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *s
	return &cp, nil
}

func (r *memCajaRepo) LockSession(ctx context.Context, tx *gorm.DB, id uuid.UUID, _ bool) (*model.CashSession, error) {
	return r.FindSessionByID(ctx, tx, id)
}

func (r *memCajaRepo) FindOpenSession(_ context.Context, businessID uuid.UUID) (*model.CashSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.BusinessID == businessID && s.IsOpen() {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memCajaRepo) CloseSession(_ context.Context, _ *gorm.DB, s *model.CashSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[s.ID]
	if !ok || !stored.IsOpen() {
		return repository.ErrSessionNotOpen
	}
	cp := *s
	cp.Status = model.SesionCerrada
	r.sessions[s.ID] = &cp
	s.Status = model.SesionCerrada
	return nil
}

func (r *memCajaRepo) ListSessionsOpenedBetween(_ context.Context, businessID uuid.UUID, from, to time.Time) ([]model.CashSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.CashSession
	for _, s := range r.sessions {
		if s.BusinessID == businessID && !s.OpenedAt.Before(from) && s.OpenedAt.Before(to) {
			out = append(out, *s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].OpenedAt.Before(out[j].OpenedAt) })
	return out, nil
}

func (r *memCajaRepo) ListSessions(_ context.Context, businessID uuid.UUID, page, limit int) ([]model.CashSession, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []model.CashSession
	for _, s := range r.sessions {
		if s.BusinessID == businessID {
			all = append(all, *s)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].OpenedAt.After(all[j].OpenedAt) })
	start := (page - 1) * limit
	if start > len(all) {
		start = len(all)
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], int64(len(all)), nil
}

func (r *memCajaRepo) CreateExpense(_ context.Context, _ *gorm.DB, e *model.Expense) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if e.ID == uuid.Nil {
		e.ID = uuid.New()
	}
	r.expenses = append(r.expenses, *e)
	return nil
}

func (r *memCajaRepo) ListExpenses(_ context.Context, _ *gorm.DB, sessionID uuid.UUID) ([]model.Expense, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Expense
	for _, e := range r.expenses {
		if e.SessionID == sessionID {
			out = append(out, e)
		}
	}
	return out, nil
}

func (r *memCajaRepo) UpsertDenomination(_ context.Context, _ *gorm.DB, d *model.DenominationCount) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rows := r.ledger[d.SessionID]
	for i := range rows {
		if rows[i].Type == d.Type && rows[i].Value.Equal(d.Value) {
			rows[i].Quantity = d.Quantity
			rows[i].UpdatedAt = d.UpdatedAt
			return nil
		}
	}
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	r.ledger[d.SessionID] = append(rows, *d)
	return nil
}

func (r *memCajaRepo) ListDenominations(_ context.Context, _ *gorm.DB, sessionID uuid.UUID) ([]model.DenominationCount, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.DenominationCount(nil), r.ledger[sessionID]...), nil
}

// ── In-memory PagoRepository ─────────────────────────────────────────────────

type memPagoRepo struct {
	mu    sync.Mutex
	pagos []model.Payment
}

var _ repository.PagoRepository = (*memPagoRepo)(nil)

func (r *memPagoRepo) add(businessID uuid.UUID, metodo, amount string, at time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pagos = append(r.pagos, model.Payment{
		ID:            uuid.New(),
		BusinessID:    businessID,
		Amount:        decimal.RequireFromString(amount),
		PaymentMethod: metodo,
		Status:        model.PagoCompletado,
		CreatedAt:     at,
	})
}

func (r *memPagoRepo) ListCompleted(_ context.Context, _ *gorm.DB, businessID uuid.UUID, from, to time.Time) ([]model.Payment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Payment
	for _, p := range r.pagos {
		if p.BusinessID != businessID || p.Status != model.PagoCompletado {
			continue
		}
		if p.CreatedAt.Before(from) || p.CreatedAt.After(to) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

// ── In-memory NegocioRepository ──────────────────────────────────────────────

type memNegocioRepo struct {
	businesses map[uuid.UUID]*model.Business
	members    map[[2]uuid.UUID]bool
}

var _ repository.NegocioRepository = (*memNegocioRepo)(nil)

func newMemNegocioRepo() *memNegocioRepo {
	return &memNegocioRepo{
		businesses: make(map[uuid.UUID]*model.Business),
		members:    make(map[[2]uuid.UUID]bool),
	}
}

func (r *memNegocioRepo) addBusiness(b model.Business, members ...uuid.UUID) {
	r.businesses[b.ID] = &b
	for _, m := range members {
		r.members[[2]uuid.UUID{b.ID, m}] = true
	}
}

func (r *memNegocioRepo) FindByID(_ context.Context, id uuid.UUID) (*model.Business, error) {
	b, ok := r.businesses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return b, nil
}

func (r *memNegocioRepo) IsMember(_ context.Context, businessID, userID uuid.UUID) (bool, error) {
	return r.members[[2]uuid.UUID{businessID, userID}], nil
}

// ── Collaborators ────────────────────────────────────────────────────────────

type fakeClock struct{ t time.Time }

func (c *fakeClock) Now() time.Time { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type recordingPublisher struct {
	mu     sync.Mutex
	events []dto.CajaEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt dto.CajaEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type recordingJobs struct {
	ids []uuid.UUID
	err error
}

func (j *recordingJobs) EnqueueCierre(_ context.Context, id uuid.UUID) error {
	j.ids = append(j.ids, id)
	return j.err
}

type chanSubscriber struct {
	ch chan dto.CajaEvent
}

func (s *chanSubscriber) Subscribe(_ context.Context, _ string) (<-chan dto.CajaEvent, error) {
	return s.ch, nil
}
