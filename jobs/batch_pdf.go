package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/aburayhan/cargo-erp/internal/jobs"
	"github.com/aburayhan/cargo-erp/internal/ledger"
	"github.com/aburayhan/cargo-erp/internal/persist"
	"github.com/aburayhan/cargo-erp/internal/reporting"
	"github.com/aburayhan/cargo-erp/internal/settings"
)

// ShipmentLoader reads the persisted ledger.
type ShipmentLoader interface {
	Load(ctx context.Context) ([]ledger.Shipment, persist.Status)
}

// SettingsProvider returns the business profile used on reports.
type SettingsProvider interface {
	Get() settings.BusinessSettings
}

// BatchPDFJob renders batch reports into the storage directory.
type BatchPDFJob struct {
	Loader   ShipmentLoader
	Settings SettingsProvider
	Renderer reporting.HTMLRenderer
	Dir      string
	Logger   *slog.Logger
	Metrics  *jobmetrics.Metrics
}

// Handle executes TaskBatchPDF.
func (j *BatchPDFJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Loader == nil || j.Renderer == nil {
		return errors.New("batch pdf: handler not configured")
	}
	var payload BatchPDFPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}
	tracker := j.Metrics.Track(TaskBatchPDF)
	path, err := j.Run(ctx, payload)
	if err != nil {
		j.logger().Error("render failed", slog.String("batch_id", payload.BatchID), slog.Any("error", err))
		return tracker.End(err)
	}
	j.logger().Info("report rendered", slog.String("batch_id", payload.BatchID), slog.String("path", path))
	return tracker.End(nil)
}

// Run renders one batch and returns the written file path.
func (j *BatchPDFJob) Run(ctx context.Context, payload BatchPDFPayload) (string, error) {
	if payload.BatchID == "" || filepath.Base(payload.BatchID) != payload.BatchID {
		return "", fmt.Errorf("%w: invalid batch id %q", asynq.SkipRetry, payload.BatchID)
	}
	shipments, status := j.Loader.Load(ctx)
	if status == persist.StatusError {
		return "", errors.New("batch pdf: ledger unavailable")
	}
	// a missing batch is retried: the persisted ledger may not have caught up
	// with the API's last save yet
	shipment, batch, err := ledger.NewService(shipments, ledger.ServiceConfig{}).FindBatch(payload.BatchID)
	if err != nil {
		return "", fmt.Errorf("batch pdf: %w", err)
	}
	if payload.ShipmentID != "" && payload.ShipmentID != shipment.ID {
		return "", fmt.Errorf("%w: batch %s does not belong to shipment %s", asynq.SkipRetry, payload.BatchID, payload.ShipmentID)
	}

	var biz settings.BusinessSettings
	if j.Settings != nil {
		biz = j.Settings.Get()
	}
	pdf, err := reporting.RenderBatchPDF(ctx, j.Renderer, reporting.BuildBatchReport(biz, shipment, batch))
	if err != nil {
		return "", err
	}

	dir := j.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("batch pdf: create dir: %w", err)
	}
	path := filepath.Join(dir, payload.BatchID+".pdf")
	if err := os.WriteFile(path, pdf, 0o644); err != nil {
		return "", fmt.Errorf("batch pdf: write: %w", err)
	}
	return path, nil
}

func (j *BatchPDFJob) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger.With(slog.String("job", TaskBatchPDF))
	}
	return slog.Default().With(slog.String("job", TaskBatchPDF))
}
