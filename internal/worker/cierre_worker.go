package worker

// cierre_worker.go
// Renders the closing report of a session and, when the business has a
// notification address, hands it to the email queue.

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"cajaflow/internal/infra"
	"cajaflow/internal/model"
	"cajaflow/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// CierreJobPayload is the job envelope sent to QueueCierre.
type CierreJobPayload struct {
	SessionID string `json:"session_id"`
}

type emailEnqueuer interface {
	EnqueueEmail(ctx context.Context, payload EmailJobPayload) error
}

type CierreWorker struct {
	caja        repository.CajaRepository
	negocios    repository.NegocioRepository
	emails      emailEnqueuer // nil disables delivery
	storagePath string
	defaultZone string
}

func NewCierreWorker(
	caja repository.CajaRepository,
	negocios repository.NegocioRepository,
	emails emailEnqueuer,
	storagePath string,
	defaultZone string,
) *CierreWorker {
	return &CierreWorker{
		caja:        caja,
		negocios:    negocios,
		emails:      emails,
		storagePath: storagePath,
		defaultZone: defaultZone,
	}
}

// Process handles a single cierre job:
//  1. Load the closed session with its expenses and ledger
//  2. Render the PDF
//  3. Enqueue the email when the business has a notification address
func (w *CierreWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload CierreJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Permanent(err)
	}
	sessionID, err := uuid.Parse(payload.SessionID)
	if err != nil {
		return Permanent(fmt.Errorf("cierre_worker: invalid session_id %q", payload.SessionID))
	}

	sesion, err := w.caja.FindSessionByID(ctx, nil, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Permanent(fmt.Errorf("cierre_worker: session %s not found", sessionID))
		}
		return err
	}
	if sesion.IsOpen() {
		return Permanent(fmt.Errorf("cierre_worker: session %s is still open", sessionID))
	}

	gastos, err := w.caja.ListExpenses(ctx, nil, sessionID)
	if err != nil {
		return err
	}
	ledger, err := w.caja.ListDenominations(ctx, nil, sessionID)
	if err != nil {
		return err
	}

	report := infra.CierreReport{
		BusinessName:  "Arqueo de caja",
		Timezone:      w.defaultZone,
		Session:       sesion,
		Expenses:      gastos,
		Denominations: ledger,
	}
	negocio, err := w.negocios.FindByID(ctx, sesion.BusinessID)
	if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return err
	}
	if negocio != nil {
		report.BusinessName = negocio.Name
		if negocio.Timezone != "" {
			report.Timezone = negocio.Timezone
		}
	}

	pdfPath, err := infra.GenerateCierrePDF(report, w.storagePath)
	if err != nil {
		return err
	}
	log.Info().Str("pdf", pdfPath).Str("session_id", payload.SessionID).Msg("cierre_worker: PDF generated")

	if w.emails == nil || negocio == nil || negocio.NotificationEmail == nil || *negocio.NotificationEmail == "" {
		return nil
	}
	job := EmailJobPayload{
		ToEmail:   *negocio.NotificationEmail,
		Subject:   cierreSubject(negocio.Name, sesion, report.Timezone),
		Body:      cierreBody(sesion),
		PDFPath:   pdfPath,
		SessionID: payload.SessionID,
	}
	if err := w.emails.EnqueueEmail(ctx, job); err != nil {
		return fmt.Errorf("cierre_worker: enqueue email: %w", err)
	}
	return nil
}

func cierreSubject(name string, s *model.CashSession, zone string) string {
	loc, err := time.LoadLocation(zone)
	if err != nil {
		loc = time.UTC
	}
	return fmt.Sprintf("Arqueo de caja %s - %s", name, s.ClosedAt.In(loc).Format("02/01/2006 15:04"))
}

func cierreBody(s *model.CashSession) string {
	body := "Adjuntamos el arqueo de la caja cerrada.\n"
	if s.ExpectedCash != nil {
		body += fmt.Sprintf("Efectivo esperado: $%s\n", s.ExpectedCash.StringFixed(2))
	}
	if s.ActualCashCounted != nil {
		body += fmt.Sprintf("Efectivo contado: $%s\n", s.ActualCashCounted.StringFixed(2))
	}
	if s.Difference != nil && s.DifferenceType != nil {
		body += fmt.Sprintf("Diferencia: $%s (%s)\n", s.Difference.StringFixed(2), *s.DifferenceType)
	}
	return body
}
