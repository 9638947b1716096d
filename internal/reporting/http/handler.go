package reportinghttp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aburayhan/cargo-erp/internal/ledger"
	"github.com/aburayhan/cargo-erp/internal/persist"
	"github.com/aburayhan/cargo-erp/internal/platform/httpx"
	"github.com/aburayhan/cargo-erp/internal/reporting"
	"github.com/aburayhan/cargo-erp/report"
)

var errorMapping = httpx.ErrorMapping{
	ledger.ErrBatchNotFound:          httpx.ErrNotFound,
	reporting.ErrRendererUnavailable: httpx.ErrUnavailable,
	report.ErrNotConfigured:          httpx.ErrUnavailable,
}

// PDFQueue schedules background report renders.
type PDFQueue interface {
	EnqueueBatchPDF(ctx context.Context, shipmentID, batchID string) (string, error)
}

// Flusher forces pending ledger changes out to the stores the worker reads.
type Flusher interface {
	Flush(ctx context.Context) persist.Status
}

// Handler serves batch listings and reports.
type Handler struct {
	logger  *slog.Logger
	service *reporting.Service
	queue   PDFQueue
	flusher Flusher
}

// NewHandler constructs handler. queue and flusher may be nil.
func NewHandler(logger *slog.Logger, service *reporting.Service, queue PDFQueue, flusher Flusher) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, queue: queue, flusher: flusher}
}

// MountRoutes registers routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/api/batches", func(r chi.Router) {
		r.Get("/", h.list)
		r.Get("/{id}/report", h.report)
		r.Get("/{id}/report.csv", h.csv)
		r.Get("/{id}/report.pdf", h.pdf)
		r.Post("/{id}/report/pdf", h.enqueue)
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	batches := h.service.Batches()
	if batches == nil {
		batches = []ledger.BatchView{}
	}
	httpx.JSON(w, http.StatusOK, batches)
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	rep, err := h.service.Report(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "build report", err)
		return
	}
	httpx.JSON(w, http.StatusOK, rep)
}

func (h *Handler) csv(w http.ResponseWriter, r *http.Request) {
	rep, err := h.service.Report(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "build report", err)
		return
	}
	var buf bytes.Buffer
	if err := reporting.WriteBatchCSV(&buf, rep); err != nil {
		h.fail(w, "write csv", err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", "attachment; filename="+strconv.Quote(reporting.Filename(rep, "csv")))
	_, _ = w.Write(buf.Bytes())
}

func (h *Handler) pdf(w http.ResponseWriter, r *http.Request) {
	pdf, rep, err := h.service.PDF(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "render pdf", err)
		return
	}
	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "inline; filename="+strconv.Quote(reporting.Filename(rep, "pdf")))
	_, _ = w.Write(pdf)
}

type enqueueResponse struct {
	TaskID  string `json:"taskId"`
	BatchID string `json:"batchId"`
}

func (h *Handler) enqueue(w http.ResponseWriter, r *http.Request) {
	if h.queue == nil {
		httpx.RespondError(w, fmt.Errorf("%w: job queue not configured", httpx.ErrUnavailable), nil)
		return
	}
	rep, err := h.service.Report(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "find batch", err)
		return
	}
	// the worker renders from persisted state, so the batch must be saved first
	if h.flusher != nil {
		if status := h.flusher.Flush(r.Context()); status == persist.StatusError {
			h.logger.Warn("flush before enqueue", slog.String("batch_id", rep.BatchID), slog.String("status", string(status)))
		}
	}
	taskID, err := h.queue.EnqueueBatchPDF(r.Context(), rep.ShipmentID, rep.BatchID)
	if err != nil {
		h.logger.Error("enqueue pdf", slog.Any("error", err))
		httpx.RespondError(w, httpx.ErrUnavailable, nil)
		return
	}
	httpx.JSON(w, http.StatusAccepted, enqueueResponse{TaskID: taskID, BatchID: rep.BatchID})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	if errorMapping.Resolve(err) == err {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err, errorMapping)
}
