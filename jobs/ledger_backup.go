package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/aburayhan/cargo-erp/internal/jobs"
	"github.com/aburayhan/cargo-erp/internal/persist"
)

// Backupper refreshes the local copy from the remote store.
type Backupper interface {
	Backup(ctx context.Context) (int, error)
}

// LedgerBackupJob runs the periodic backup.
type LedgerBackupJob struct {
	Backup  Backupper
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// Handle executes TaskLedgerBackup.
func (j *LedgerBackupJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Backup == nil {
		return errors.New("ledger backup: handler not configured")
	}
	logger := slog.Default()
	if j.Logger != nil {
		logger = j.Logger
	}
	logger = logger.With(slog.String("job", TaskLedgerBackup))

	tracker := j.Metrics.Track(TaskLedgerBackup)
	count, err := j.Backup.Backup(ctx)
	if errors.Is(err, persist.ErrNoRemote) {
		logger.Info("backup skipped, running offline")
		return tracker.End(nil)
	}
	if err != nil {
		logger.Error("backup failed", slog.Any("error", err))
		return tracker.End(err)
	}
	j.Metrics.SetBackupSize(count)
	logger.Info("backup completed", slog.Int("shipments", count))
	return tracker.End(nil)
}
