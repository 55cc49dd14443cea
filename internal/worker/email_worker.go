package worker

// email_worker.go
// Delivers rendered closing reports to the business notification address
// through the SMTP circuit breaker.

import (
	"context"
	"encoding/json"
	"errors"

	"cajaflow/internal/infra"

	"github.com/rs/zerolog/log"
)

// EmailJobPayload is the job envelope sent to QueueEmail.
type EmailJobPayload struct {
	ToEmail   string `json:"to_email"`
	Subject   string `json:"subject"`
	Body      string `json:"body"`
	PDFPath   string `json:"pdf_path"`
	SessionID string `json:"session_id"`
}

type cierreSender interface {
	SendCierre(to, subject, body, pdfPath string) error
}

type EmailWorker struct {
	mailer cierreSender
	cb     *infra.CircuitBreaker
}

func NewEmailWorker(mailer cierreSender, cb *infra.CircuitBreaker) *EmailWorker {
	return &EmailWorker{mailer: mailer, cb: cb}
}

// Process sends one closing report. An open breaker fails the attempt without
// touching the relay; the retry cron holds the job until it recovers.
func (w *EmailWorker) Process(_ context.Context, raw json.RawMessage) error {
	var payload EmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return Permanent(err)
	}
	if payload.ToEmail == "" {
		log.Warn().Str("session_id", payload.SessionID).Msg("email_worker: empty to_email, skipping")
		return nil
	}

	err := w.cb.Execute(func() error {
		return w.mailer.SendCierre(payload.ToEmail, payload.Subject, payload.Body, payload.PDFPath)
	})
	if err != nil {
		if errors.Is(err, infra.ErrCircuitOpen) {
			log.Warn().Str("to", payload.ToEmail).Msg("email_worker: SMTP circuit open, deferring")
		}
		return err
	}
	log.Info().Str("to", payload.ToEmail).Str("session_id", payload.SessionID).Msg("email_worker: closing report sent")
	return nil
}
