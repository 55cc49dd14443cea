package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"cajaflow/internal/dto"
	"cajaflow/internal/model"
	"cajaflow/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CajaService interface {
	OpenSession(ctx context.Context, userID uuid.UUID, req dto.OpenSessionRequest) (*dto.CashSessionResponse, error)
	AddExpense(ctx context.Context, userID, sessionID uuid.UUID, req dto.AddExpenseRequest) (*dto.ExpenseResponse, error)
	// GetCurrentSession returns nil, nil when the business has no open session.
	GetCurrentSession(ctx context.Context, userID, businessID uuid.UUID) (*dto.CashSessionResponse, error)
	GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*dto.SessionDetailResponse, error)
	ListExpenses(ctx context.Context, userID, sessionID uuid.UUID) ([]dto.ExpenseResponse, error)
	RecordDenomination(ctx context.Context, userID, sessionID uuid.UUID, req dto.DenominationRequest) error
	GetDenominations(ctx context.Context, userID, sessionID uuid.UUID) (*dto.DenominationLedgerResponse, error)
	CloseSession(ctx context.Context, userID, sessionID uuid.UUID, req dto.CloseSessionRequest) (*dto.CloseResult, error)
	History(ctx context.Context, userID, businessID uuid.UUID, page, limit int) (*dto.SessionHistoryResponse, error)
	// Watch streams change notifications for a business until ctx ends.
	Watch(ctx context.Context, userID, businessID uuid.UUID) (<-chan dto.CajaEvent, error)
}

// EventPublisher receives a notification after each committed change.
type EventPublisher interface {
	Publish(ctx context.Context, evt dto.CajaEvent) error
}

// EventSubscriber streams the notifications of one business.
type EventSubscriber interface {
	Subscribe(ctx context.Context, businessID string) (<-chan dto.CajaEvent, error)
}

// CierreDispatcher enqueues the post-close report job.
type CierreDispatcher interface {
	EnqueueCierre(ctx context.Context, sessionID uuid.UUID) error
}

type cajaService struct {
	repo       repository.CajaRepository
	negocios   repository.NegocioRepository
	aggregator *TransactionAggregator
	guard      AccessGuard
	events     EventPublisher
	stream     EventSubscriber
	jobs       CierreDispatcher
	tolerance  decimal.Decimal
	now        func() time.Time
}

// CajaOption customises optional collaborators of the caja service.
type CajaOption func(*cajaService)

func WithEvents(p EventPublisher) CajaOption { return func(s *cajaService) { s.events = p } }
func WithEventStream(sub EventSubscriber) CajaOption { return func(s *cajaService) { s.stream = sub } }
func WithCierreJobs(d CierreDispatcher) CajaOption { return func(s *cajaService) { s.jobs = d } }
func WithTolerance(t decimal.Decimal) CajaOption { return func(s *cajaService) { s.tolerance = t } }
func WithClock(now func() time.Time) CajaOption { return func(s *cajaService) { s.now = now } }

func NewCajaService(
	repo repository.CajaRepository,
	pagos repository.PagoRepository,
	negocios repository.NegocioRepository,
	guard AccessGuard,
	opts ...CajaOption,
) CajaService {
	s := &cajaService{
		repo:       repo,
		negocios:   negocios,
		aggregator: NewTransactionAggregator(repo, pagos),
		guard:      guard,
		tolerance:  decimal.New(1, -2),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// runTx executes fn inside a GORM transaction when db is available,
// or calls fn(nil) directly when db is nil (unit test mode).
func runTx(ctx context.Context, db *gorm.DB, fn func(tx *gorm.DB) error) error {
	if db == nil {
		return fn(nil)
	}
	return db.WithContext(ctx).Transaction(fn)
}

// clock returns the current instant in UTC at the precision postgres keeps.
func (s *cajaService) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// ── OpenSession ───────────────────────────────────────────────────────────────
// The single-open-session rule is enforced by the partial unique index on
// cash_sessions(business_id) WHERE status = 'open'; there is no read-then-write
// check here.

func (s *cajaService) OpenSession(ctx context.Context, userID uuid.UUID, req dto.OpenSessionRequest) (*dto.CashSessionResponse, error) {
	businessID, err := uuid.Parse(req.BusinessID)
	if err != nil {
		return nil, validationf("business_id inválido")
	}
	if err := checkMoney("el monto inicial", req.InitialCash, true); err != nil {
		return nil, err
	}
	if err := s.guard.Authorize(ctx, businessID, userID); err != nil {
		return nil, err
	}

	sesion := &model.CashSession{
		BusinessID:    businessID,
		OpenedBy:      userID,
		InitialCash:   req.InitialCash,
		Status:        model.SesionAbierta,
		CashSales:     decimal.Zero,
		TransferSales: decimal.Zero,
		ExpensesTotal: decimal.Zero,
		OpenedAt:      s.clock(),
	}
	if err := s.repo.CreateSession(ctx, nil, sesion); err != nil {
		if errors.Is(err, repository.ErrOpenSessionExists) {
			return nil, conflictf("Ya existe una caja abierta para este negocio; debe cerrarse antes de abrir otra")
		}
		return nil, err
	}

	log.Info().
		Str("session_id", sesion.ID.String()).
		Str("business_id", businessID.String()).
		Str("initial_cash", sesion.InitialCash.StringFixed(2)).
		Msg("caja: session opened")
	s.publish(ctx, dto.EventSessionOpened, sesion)

	totals := Totals{CashSales: decimal.Zero, TransferSales: decimal.Zero, ExpensesTotal: decimal.Zero, AsOf: sesion.OpenedAt}
	resp := sessionToResponse(sesion, totals)
	return &resp, nil
}

const (
	// maxDescriptionLen matches the max=255 tag on dto.AddExpenseRequest.
	maxDescriptionLen = 255
	maxHistoryLimit   = 100
)

// ── AddExpense ────────────────────────────────────────────────────────────────
// Expenses are immutable: there is no update or delete path. The insert runs under a shared lock
// on the session row so it serialises against CloseSession's exclusive lock.

func (s *cajaService) AddExpense(ctx context.Context, userID, sessionID uuid.UUID, req dto.AddExpenseRequest) (*dto.ExpenseResponse, error) {
	if err := checkMoney("el monto del gasto", req.Amount, false); err != nil {
		return nil, err
	}
	descripcion := strings.TrimSpace(req.Description)
	if descripcion == "" {
		return nil, validationf("la descripción del gasto es obligatoria")
	}
	if utf8.RuneCountInString(descripcion) > maxDescriptionLen {
		return nil, validationf("la descripción del gasto admite hasta %d caracteres", maxDescriptionLen)
	}

	sesion, err := s.authorizedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}

	gasto := &model.Expense{
		SessionID:   sessionID,
		Amount:      req.Amount,
		Description: descripcion,
		CreatedBy:   userID,
	}
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		locked, err := s.repo.LockSession(ctx, tx, sessionID, false)
		if err != nil {
			return err
		}
		if !locked.IsOpen() {
			return invalidStatef("la sesión de caja está cerrada; no admite gastos")
		}
		gasto.CreatedAt = s.clock()
		return s.repo.CreateExpense(ctx, tx, gasto)
	})
	if txErr != nil {
		return nil, txErr
	}

	s.publish(ctx, dto.EventExpenseAdded, sesion)
	resp := expenseToResponse(gasto)
	return &resp, nil
}

// ── GetCurrentSession ─────────────────────────────────────────────────────────

func (s *cajaService) GetCurrentSession(ctx context.Context, userID, businessID uuid.UUID) (*dto.CashSessionResponse, error) {
	if err := s.guard.Authorize(ctx, businessID, userID); err != nil {
		return nil, err
	}
	sesion, err := s.repo.FindOpenSession(ctx, businessID)
	if err != nil {
		return nil, err
	}
	if sesion == nil {
		return nil, nil
	}
	totals, err := s.aggregator.RunningTotals(ctx, nil, sesion, s.clock())
	if err != nil {
		return nil, err
	}
	resp := sessionToResponse(sesion, totals)
	return &resp, nil
}

// ── GetSession / ListExpenses / GetDenominations ──────────────────────────────

func (s *cajaService) GetSession(ctx context.Context, userID, sessionID uuid.UUID) (*dto.SessionDetailResponse, error) {
	sesion, err := s.readableSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	totals, err := s.aggregator.SessionTotals(ctx, sesion, s.clock())
	if err != nil {
		return nil, err
	}
	gastos, err := s.repo.ListExpenses(ctx, nil, sessionID)
	if err != nil {
		return nil, err
	}
	ledger, err := s.repo.ListDenominations(ctx, nil, sessionID)
	if err != nil {
		return nil, err
	}
	return &dto.SessionDetailResponse{
		Session:       sessionToResponse(sesion, totals),
		Expenses:      expensesToResponse(gastos),
		Denominations: ledgerToResponse(sessionID, ledger),
	}, nil
}

func (s *cajaService) ListExpenses(ctx context.Context, userID, sessionID uuid.UUID) ([]dto.ExpenseResponse, error) {
	if _, err := s.readableSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	gastos, err := s.repo.ListExpenses(ctx, nil, sessionID)
	if err != nil {
		return nil, err
	}
	return expensesToResponse(gastos), nil
}

func (s *cajaService) GetDenominations(ctx context.Context, userID, sessionID uuid.UUID) (*dto.DenominationLedgerResponse, error) {
	if _, err := s.readableSession(ctx, userID, sessionID); err != nil {
		return nil, err
	}
	ledger, err := s.repo.ListDenominations(ctx, nil, sessionID)
	if err != nil {
		return nil, err
	}
	resp := ledgerToResponse(sessionID, ledger)
	return &resp, nil
}

// ── RecordDenomination ────────────────────────────────────────────────────────
// Re-recording the same (type, value) replaces the quantity; it never adds.

func (s *cajaService) RecordDenomination(ctx context.Context, userID, sessionID uuid.UUID, req dto.DenominationRequest) error {
	den, err := NewDenomination(req.Type, req.Value, req.Quantity)
	if err != nil {
		return err
	}
	sesion, err := s.authorizedSession(ctx, userID, sessionID)
	if err != nil {
		return err
	}

	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		locked, err := s.repo.LockSession(ctx, tx, sessionID, false)
		if err != nil {
			return err
		}
		if !locked.IsOpen() {
			return invalidStatef("la sesión de caja está cerrada; no admite conteos")
		}
		row := den.toModel()
		row.SessionID = sessionID
		row.UpdatedAt = s.clock()
		return s.repo.UpsertDenomination(ctx, tx, &row)
	})
	if txErr != nil {
		return txErr
	}

	s.publish(ctx, dto.EventDenominationRecorded, sesion)
	return nil
}

// ── CloseSession ──────────────────────────────────────────────────────────────
// One transaction: exclusive lock on the session, freeze closed_at, store any
// denomination rows, resolve the counted figure from the ledger, aggregate
// totals as of closed_at, reconcile and persist. Expense and denomination
// writers take a shared lock on the same row, so none can slip in between the
// snapshot and the persisted close. Payments are cut by created_at <= closed_at.
//
// Closing twice is a lifecycle bug on the caller side and fails with
// ErrInvalidState.

func (s *cajaService) CloseSession(ctx context.Context, userID, sessionID uuid.UUID, req dto.CloseSessionRequest) (*dto.CloseResult, error) {
	counted, err := countedCashFromDTO(req.CountedCash)
	if err != nil {
		return nil, err
	}
	notas := trimmedOrNil(req.ClosingNotes)

	sesion, err := s.authorizedSession(ctx, userID, sessionID)
	if err != nil {
		return nil, err
	}
	tolerance, err := s.toleranceFor(ctx, sesion.BusinessID)
	if err != nil {
		return nil, err
	}

	var (
		closed *model.CashSession
		totals Totals
		rec    Reconciliation
	)
	txErr := runTx(ctx, s.repo.DB(), func(tx *gorm.DB) error {
		locked, err := s.repo.LockSession(ctx, tx, sessionID, true)
		if err != nil {
			return err
		}
		if !locked.IsOpen() {
			return invalidStatef("la sesión de caja ya está cerrada")
		}
		closedAt := s.clock()

		if d, ok := counted.(DenominatedCount); ok {
			for _, den := range d.Rows {
				row := den.toModel()
				row.SessionID = sessionID
				row.UpdatedAt = closedAt
				if err := s.repo.UpsertDenomination(ctx, tx, &row); err != nil {
					return err
				}
			}
		}
		ledger, err := s.repo.ListDenominations(ctx, tx, sessionID)
		if err != nil {
			return err
		}
		actual, err := resolveCountedCash(counted, ledger)
		if err != nil {
			return err
		}

		totals, err = s.aggregator.RunningTotals(ctx, tx, locked, closedAt)
		if err != nil {
			return err
		}
		rec = Reconcile(locked.InitialCash, totals, actual, tolerance)

		mode := counted.countingMode()
		closedBy := userID
		locked.ClosedBy = &closedBy
		locked.ClosedAt = &closedAt
		locked.CashSales = totals.CashSales
		locked.TransferSales = totals.TransferSales
		locked.ExpensesTotal = totals.ExpensesTotal
		locked.ExpectedCash = &rec.ExpectedCash
		locked.ActualCashCounted = &rec.Counted
		locked.Difference = &rec.Difference
		locked.DifferenceType = &rec.Type
		locked.CountingMode = &mode
		locked.ClosingNotes = notas

		if err := s.repo.CloseSession(ctx, tx, locked); err != nil {
			if errors.Is(err, repository.ErrSessionNotOpen) {
				return invalidStatef("la sesión de caja ya está cerrada")
			}
			return err
		}
		closed = locked
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Str("business_id", closed.BusinessID.String()).
		Str("expected_cash", rec.ExpectedCash.StringFixed(2)).
		Str("counted", rec.Counted.StringFixed(2)).
		Str("difference", rec.Difference.StringFixed(2)).
		Str("difference_type", rec.Type).
		Msg("caja: session closed")

	s.publish(ctx, dto.EventSessionClosed, closed)
	if s.jobs != nil {
		if err := s.jobs.EnqueueCierre(ctx, sessionID); err != nil {
			log.Warn().Err(err).Str("session_id", sessionID.String()).Msg("caja: failed to enqueue closing report")
		}
	}

	return &dto.CloseResult{
		Session:           sessionToResponse(closed, totals),
		ExpectedCash:      rec.ExpectedCash,
		ActualCashCounted: rec.Counted,
		Difference:        rec.Difference,
		DifferenceType:    rec.Type,
		Message:           closingMessage(rec),
	}, nil
}

// ── History ───────────────────────────────────────────────────────────────────

func (s *cajaService) History(ctx context.Context, userID, businessID uuid.UUID, page, limit int) (*dto.SessionHistoryResponse, error) {
	if err := s.guard.Authorize(ctx, businessID, userID); err != nil {
		return nil, err
	}
	if page < 1 {
		page = 1
	}
	switch {
	case limit < 1:
		limit = 20
	case limit > maxHistoryLimit:
		limit = maxHistoryLimit
	}
	sesiones, total, err := s.repo.ListSessions(ctx, businessID, page, limit)
	if err != nil {
		return nil, err
	}
	now := s.clock()
	data := make([]dto.CashSessionResponse, 0, len(sesiones))
	for i := range sesiones {
		totals, err := s.aggregator.SessionTotals(ctx, &sesiones[i], now)
		if err != nil {
			return nil, err
		}
		data = append(data, sessionToResponse(&sesiones[i], totals))
	}
	return &dto.SessionHistoryResponse{Data: data, Total: total, Page: page, Limit: limit}, nil
}

// ── Watch ─────────────────────────────────────────────────────────────────────

func (s *cajaService) Watch(ctx context.Context, userID, businessID uuid.UUID) (<-chan dto.CajaEvent, error) {
	if err := s.guard.Authorize(ctx, businessID, userID); err != nil {
		return nil, err
	}
	if s.stream == nil {
		return nil, invalidStatef("las notificaciones en vivo no están disponibles; consulte /v1/caja/actual")
	}
	return s.stream.Subscribe(ctx, businessID.String())
}

// ── Helpers ───────────────────────────────────────────────────────────────────

// authorizedSession loads a session for a write operation. A missing session
// is an invalid-state error, like a closed one.
func (s *cajaService) authorizedSession(ctx context.Context, userID, sessionID uuid.UUID) (*model.CashSession, error) {
	sesion, err := s.repo.FindSessionByID(ctx, nil, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, invalidStatef("la sesión de caja %s no existe", sessionID)
		}
		return nil, err
	}
	if err := s.guard.Authorize(ctx, sesion.BusinessID, userID); err != nil {
		return nil, err
	}
	return sesion, nil
}

// readableSession is authorizedSession for read endpoints, where a missing
// session is reported as not found.
func (s *cajaService) readableSession(ctx context.Context, userID, sessionID uuid.UUID) (*model.CashSession, error) {
	sesion, err := s.authorizedSession(ctx, userID, sessionID)
	if err != nil && errors.Is(err, ErrInvalidState) {
		return nil, notFoundf("sesión de caja no encontrada")
	}
	return sesion, err
}

// toleranceFor prefers the business override over the configured default.
func (s *cajaService) toleranceFor(ctx context.Context, businessID uuid.UUID) (decimal.Decimal, error) {
	if s.negocios == nil {
		return s.tolerance, nil
	}
	negocio, err := s.negocios.FindByID(ctx, businessID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return s.tolerance, nil
		}
		return decimal.Zero, err
	}
	if negocio.VarianceTolerance != nil && !negocio.VarianceTolerance.IsNegative() {
		return *negocio.VarianceTolerance, nil
	}
	return s.tolerance, nil
}

// publish is best effort: a lost notification only delays a polling client.
func (s *cajaService) publish(ctx context.Context, tipo string, sesion *model.CashSession) {
	if s.events == nil {
		return
	}
	evt := dto.CajaEvent{
		Type:       tipo,
		BusinessID: sesion.BusinessID.String(),
		SessionID:  sesion.ID.String(),
		At:         s.clock().Format(time.RFC3339Nano),
	}
	if err := s.events.Publish(ctx, evt); err != nil {
		log.Warn().Err(err).Str("type", tipo).Str("session_id", evt.SessionID).Msg("caja: failed to publish event")
	}
}

func closingMessage(rec Reconciliation) string {
	switch rec.Type {
	case model.DiferenciaExacto:
		return "Caja cerrada: el efectivo contado coincide con el esperado."
	case model.DiferenciaFaltante:
		return fmt.Sprintf("Caja cerrada con faltante de $%s.", rec.Difference.Abs().StringFixed(2))
	default:
		return fmt.Sprintf("Caja cerrada con sobrante de $%s.", rec.Difference.StringFixed(2))
	}
}

func trimmedOrNil(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
