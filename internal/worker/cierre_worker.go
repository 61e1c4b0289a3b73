package worker

// cierre_worker.go
// Processes close-of-day jobs from QueueCierre: renders the cashbox report
// PDF and, when a recipient is configured, mails it.

import (
	"context"
	"encoding/json"
	"fmt"

	"zerostress/internal/dto"
	"zerostress/internal/infra"

	"github.com/rs/zerolog/log"
)

// CierreJobPayload is the job envelope sent to QueueCierre.
type CierreJobPayload struct {
	DateKey string `json:"date_key"`
}

// ResumenSource loads the full day view of a cashbox.
type ResumenSource interface {
	Resumen(ctx context.Context, fecha string) (*dto.ResumenCajaResponse, error)
}

// CierreMailer sends the rendered report.
type CierreMailer interface {
	Enabled() bool
	SendCierre(to, dateKey, pdfPath string) error
}

type CierreWorker struct {
	cajas       ResumenSource
	mailer      CierreMailer
	to          string
	storagePath string
	render      func(*dto.ResumenCajaResponse, string) (string, error)
}

// NewCierreWorker wires the report worker. mailer may be nil and to may be
// empty; either disables the email step.
func NewCierreWorker(cajas ResumenSource, mailer CierreMailer, to, storagePath string) *CierreWorker {
	return &CierreWorker{
		cajas:       cajas,
		mailer:      mailer,
		to:          to,
		storagePath: storagePath,
		render:      infra.GenerateCierrePDF,
	}
}

func (w *CierreWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload CierreJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return fmt.Errorf("cierre_worker: invalid payload: %w", err)
	}
	if payload.DateKey == "" {
		return fmt.Errorf("cierre_worker: empty date_key")
	}

	resumen, err := w.cajas.Resumen(ctx, payload.DateKey)
	if err != nil {
		return fmt.Errorf("cierre_worker: resumen %s: %w", payload.DateKey, err)
	}
	path, err := w.render(resumen, w.storagePath)
	if err != nil {
		return err
	}
	log.Info().Str("date_key", payload.DateKey).Str("pdf", path).Msg("cierre_worker: reporte generado")

	if w.to == "" || w.mailer == nil || !w.mailer.Enabled() {
		return nil
	}
	if err := w.mailer.SendCierre(w.to, payload.DateKey, path); err != nil {
		return fmt.Errorf("cierre_worker: send to %s: %w", w.to, err)
	}
	log.Info().Str("date_key", payload.DateKey).Str("to", w.to).Msg("cierre_worker: reporte enviado")
	return nil
}
