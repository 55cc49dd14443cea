package service

import (
	"context"
	"errors"
	"time"

	"cajaflow/internal/dto"
	"cajaflow/internal/model"
	"cajaflow/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	fechaLayout    = "2006-01-02"
	maxPeriodoDias = 92
)

// ReporteService builds read-only summaries over the sessions of a business.
// Day boundaries are computed in the business's own timezone.
type ReporteService interface {
	DailyReport(ctx context.Context, userID, businessID uuid.UUID, fecha string) (*dto.DailyReport, error)
	PeriodReport(ctx context.Context, userID, businessID uuid.UUID, desde, hasta string) (*dto.PeriodReport, error)
}

type reporteService struct {
	repo        repository.CajaRepository
	negocios    repository.NegocioRepository
	aggregator  *TransactionAggregator
	guard       AccessGuard
	defaultZone string
	now         func() time.Time
}

func NewReporteService(
	repo repository.CajaRepository,
	pagos repository.PagoRepository,
	negocios repository.NegocioRepository,
	guard AccessGuard,
	defaultZone string,
) ReporteService {
	if defaultZone == "" {
		defaultZone = "UTC"
	}
	return &reporteService{
		repo:        repo,
		negocios:    negocios,
		aggregator:  NewTransactionAggregator(repo, pagos),
		guard:       guard,
		defaultZone: defaultZone,
		now:         time.Now,
	}
}

func (s *reporteService) DailyReport(ctx context.Context, userID, businessID uuid.UUID, fecha string) (*dto.DailyReport, error) {
	if err := s.guard.Authorize(ctx, businessID, userID); err != nil {
		return nil, err
	}
	loc, err := s.location(ctx, businessID)
	if err != nil {
		return nil, err
	}
	dia, err := time.ParseInLocation(fechaLayout, fecha, loc)
	if err != nil {
		return nil, validationf("fecha inválida %q, formato esperado AAAA-MM-DD", fecha)
	}

	sesiones, err := s.repo.ListSessionsOpenedBetween(ctx, businessID, dia.UTC(), dia.AddDate(0, 0, 1).UTC())
	if err != nil {
		return nil, err
	}
	report, err := s.buildDay(ctx, businessID, dia, loc, sesiones)
	if err != nil {
		return nil, err
	}
	return report, nil
}

func (s *reporteService) PeriodReport(ctx context.Context, userID, businessID uuid.UUID, desde, hasta string) (*dto.PeriodReport, error) {
	if err := s.guard.Authorize(ctx, businessID, userID); err != nil {
		return nil, err
	}
	loc, err := s.location(ctx, businessID)
	if err != nil {
		return nil, err
	}
	from, err := time.ParseInLocation(fechaLayout, desde, loc)
	if err != nil {
		return nil, validationf("fecha desde inválida %q, formato esperado AAAA-MM-DD", desde)
	}
	to, err := time.ParseInLocation(fechaLayout, hasta, loc)
	if err != nil {
		return nil, validationf("fecha hasta inválida %q, formato esperado AAAA-MM-DD", hasta)
	}
	if to.Before(from) {
		return nil, validationf("la fecha hasta no puede ser anterior a la fecha desde")
	}
	end := to.AddDate(0, 0, 1)
	if end.After(from.AddDate(0, 0, maxPeriodoDias)) {
		return nil, validationf("el período no puede superar %d días", maxPeriodoDias)
	}

	sesiones, err := s.repo.ListSessionsOpenedBetween(ctx, businessID, from.UTC(), end.UTC())
	if err != nil {
		return nil, err
	}
	porDia := make(map[string][]model.CashSession)
	for _, ses := range sesiones {
		key := ses.OpenedAt.In(loc).Format(fechaLayout)
		porDia[key] = append(porDia[key], ses)
	}

	report := &dto.PeriodReport{
		BusinessID:   businessID.String(),
		From:         desde,
		To:           hasta,
		Timezone:     loc.String(),
		ReportTotals: zeroTotals(),
		Days:         []dto.DailyReport{},
	}
	for dia := from; dia.Before(end); dia = dia.AddDate(0, 0, 1) {
		day, err := s.buildDay(ctx, businessID, dia, loc, porDia[dia.Format(fechaLayout)])
		if err != nil {
			return nil, err
		}
		addTotals(&report.ReportTotals, day.ReportTotals)
		report.Days = append(report.Days, *day)
	}
	return report, nil
}

// buildDay aggregates the sessions opened on one local day. Open sessions
// contribute live totals and no difference.
func (s *reporteService) buildDay(ctx context.Context, businessID uuid.UUID, dia time.Time, loc *time.Location, sesiones []model.CashSession) (*dto.DailyReport, error) {
	report := &dto.DailyReport{
		BusinessID:   businessID.String(),
		Date:         dia.Format(fechaLayout),
		Timezone:     loc.String(),
		ReportTotals: zeroTotals(),
		Sessions:     make([]dto.SessionReportRow, 0, len(sesiones)),
	}
	now := s.now().UTC()
	for i := range sesiones {
		ses := &sesiones[i]
		totals, err := s.aggregator.SessionTotals(ctx, ses, now)
		if err != nil {
			return nil, err
		}
		row := dto.SessionReportRow{
			SessionID:     ses.ID.String(),
			Status:        ses.Status,
			OpenedAt:      formatTime(ses.OpenedAt),
			InitialCash:   ses.InitialCash,
			CashSales:     totals.CashSales,
			TransferSales: totals.TransferSales,
			Expenses:      totals.ExpensesTotal,
			ExpectedCash:  ExpectedCash(ses.InitialCash, totals),
		}
		if ses.ClosedAt != nil {
			v := formatTime(*ses.ClosedAt)
			row.ClosedAt = &v
		}
		if !ses.IsOpen() {
			if ses.ExpectedCash != nil {
				row.ExpectedCash = *ses.ExpectedCash
			}
			row.Difference = ses.Difference
			row.DifferenceType = ses.DifferenceType
		}

		t := &report.ReportTotals
		t.SessionsCount++
		t.TotalCashSales = t.TotalCashSales.Add(totals.CashSales)
		t.TotalTransferSales = t.TotalTransferSales.Add(totals.TransferSales)
		t.TotalExpenses = t.TotalExpenses.Add(totals.ExpensesTotal)
		if !ses.IsOpen() && ses.Difference != nil {
			t.TotalDifferences = t.TotalDifferences.Add(*ses.Difference)
		}
		report.Sessions = append(report.Sessions, row)
	}
	finishTotals(&report.ReportTotals)
	return report, nil
}

// location resolves the business timezone, falling back to the configured
// default when the business has none or an unknown one.
func (s *reporteService) location(ctx context.Context, businessID uuid.UUID) (*time.Location, error) {
	zone := s.defaultZone
	if s.negocios != nil {
		negocio, err := s.negocios.FindByID(ctx, businessID)
		if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		if negocio != nil && negocio.Timezone != "" {
			zone = negocio.Timezone
		}
	}
	loc, err := time.LoadLocation(zone)
	if err != nil {
		return time.UTC, nil
	}
	return loc, nil
}

func zeroTotals() dto.ReportTotals {
	return dto.ReportTotals{
		TotalCashSales:     decimal.Zero,
		TotalTransferSales: decimal.Zero,
		TotalExpenses:      decimal.Zero,
		TotalSales:         decimal.Zero,
		NetCashFlow:        decimal.Zero,
		TotalDifferences:   decimal.Zero,
	}
}

func addTotals(dst *dto.ReportTotals, src dto.ReportTotals) {
	dst.SessionsCount += src.SessionsCount
	dst.TotalCashSales = dst.TotalCashSales.Add(src.TotalCashSales)
	dst.TotalTransferSales = dst.TotalTransferSales.Add(src.TotalTransferSales)
	dst.TotalExpenses = dst.TotalExpenses.Add(src.TotalExpenses)
	dst.TotalDifferences = dst.TotalDifferences.Add(src.TotalDifferences)
	finishTotals(dst)
}

// finishTotals derives total_sales and net_cash_flow from the summed columns.
func finishTotals(t *dto.ReportTotals) {
	t.TotalSales = t.TotalCashSales.Add(t.TotalTransferSales)
	t.NetCashFlow = t.TotalCashSales.Sub(t.TotalExpenses)
}
