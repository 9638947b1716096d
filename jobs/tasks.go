package jobs

import (
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskBatchPDF renders a batch report to PDF on disk.
	TaskBatchPDF = "report:batch_pdf"
	// TaskLedgerBackup copies the remote ledger into the local store.
	TaskLedgerBackup = "ledger:backup"
)

// DefaultBackupCron is the backup schedule when none is configured.
const DefaultBackupCron = "@every 15m"

// BatchPDFPayload identifies the batch to render.
type BatchPDFPayload struct {
	ShipmentID string `json:"shipmentId"`
	BatchID    string `json:"batchId"`
}

// NewBatchPDFTask constructs the render task.
func NewBatchPDFTask(payload BatchPDFPayload) (*asynq.Task, error) {
	if payload.BatchID == "" {
		return nil, errors.New("jobs: batch id required")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskBatchPDF, data, asynq.Queue(QueueDefault), asynq.MaxRetry(3)), nil
}

// NewLedgerBackupTask constructs the backup task.
func NewLedgerBackupTask() *asynq.Task {
	return asynq.NewTask(TaskLedgerBackup, nil, asynq.Queue(QueueDefault), asynq.MaxRetry(1))
}
