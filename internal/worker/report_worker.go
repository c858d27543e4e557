package worker

// report_worker.go
// Processes confirmation report jobs from QueueReports: loads the history
// record, rebuilds the email, and sends the stored PDF to the configured
// recipient.

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"stocklink/internal/config"
	"stocklink/internal/infra"
	"stocklink/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// ReportWorker mails the audit report of a confirmed transfer.
type ReportWorker struct {
	history repository.HistoryRepository
	mailer  *infra.Mailer
	cfg     *config.Config
}

func NewReportWorker(history repository.HistoryRepository, mailer *infra.Mailer, cfg *config.Config) *ReportWorker {
	return &ReportWorker{history: history, mailer: mailer, cfg: cfg}
}

// Process sends the confirmation report email. A returned error triggers the
// pool's retry/DLQ path; malformed payloads are dropped instead of retried.
func (w *ReportWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload ReportJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("report_worker: invalid payload")
		return nil
	}
	id, err := uuid.Parse(payload.HistoryID)
	if err != nil {
		log.Error().Err(err).Str("history_id", payload.HistoryID).Msg("report_worker: invalid history id")
		return nil
	}
	if w.cfg.ReportEmailTo == "" {
		log.Warn().Msg("report_worker: no recipient configured, skipping")
		return nil
	}

	rec, err := w.history.FindByID(ctx, id)
	if err != nil {
		return fmt.Errorf("report_worker: load history %s: %w", id, err)
	}

	var pdf []byte
	if rec.PDFContent != "" {
		pdf, err = base64.StdEncoding.DecodeString(rec.PDFContent)
		if err != nil {
			log.Error().Err(err).Str("history_id", id.String()).Msg("report_worker: stored pdf is corrupt, sending without attachment")
			pdf = nil
		}
	}

	subject := fmt.Sprintf("Transfer report — %s (%s)", rec.DestinationName, rec.ExecutedAt.Format("2006-01-02 15:04"))
	body := fmt.Sprintf(
		"Transfer executed by %s on %s.\n\nDestination: %s\nItems: %d total, %d transferred, %d failed\nQuantity moved: %d\n",
		rec.ExecutedBy, rec.ExecutedAt.Format("2006-01-02 15:04:05"),
		rec.DestinationName, rec.TotalItems, rec.SuccessfulItems, rec.FailedItems,
		rec.TotalQuantityTransferred,
	)
	if rec.HasErrors {
		body += "\nErrors:\n" + rec.ErrorSummary + "\n"
	}

	if err := w.mailer.SendReport(w.cfg.ReportEmailTo, subject, body, rec.PDFFilename, pdf); err != nil {
		return fmt.Errorf("report_worker: send email: %w", err)
	}
	log.Info().Str("history_id", id.String()).Str("to", w.cfg.ReportEmailTo).Msg("report_worker: report sent")
	return nil
}
