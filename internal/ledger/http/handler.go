package ledgerhttp

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/aburayhan/cargo-erp/internal/ledger"
	"github.com/aburayhan/cargo-erp/internal/platform/httpx"
)

var errorMapping = httpx.ErrorMapping{
	ledger.ErrInvalidInput:     httpx.ErrValidation,
	ledger.ErrDuplicateOwner:   httpx.ErrValidation,
	ledger.ErrShipmentNotFound: httpx.ErrNotFound,
	ledger.ErrBatchNotFound:    httpx.ErrNotFound,
	ledger.ErrWeightMismatch:   httpx.ErrUnprocessable,
	ledger.ErrUnknownOwner:     httpx.ErrUnprocessable,
	ledger.ErrManifestOverrun:  httpx.ErrUnprocessable,
}

// Handler exposes the shipment ledger as a JSON API.
type Handler struct {
	logger  *slog.Logger
	service *ledger.Service
}

// NewHandler constructs handler.
func NewHandler(logger *slog.Logger, service *ledger.Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/api/shipments", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.create)
		r.Get("/{id}", h.show)
		r.Delete("/{id}", h.deleteShipment)
		r.Post("/{id}/archive", h.archive)
		r.Post("/{id}/batches", h.recordBatch)
		r.Delete("/{id}/batches/{batchID}", h.deleteBatch)
		r.Put("/{id}/batches/{batchID}/costs", h.updateCosts)
	})
}

type shipmentResponse struct {
	ledger.Shipment
	ArrivedKg       float64 `json:"arrivedKg"`
	ProgressPercent float64 `json:"progressPercent"`
}

func newShipmentResponse(s ledger.Shipment) shipmentResponse {
	return shipmentResponse{
		Shipment:        s,
		ArrivedKg:       ledger.ArrivedTotal(s),
		ProgressPercent: ledger.ProgressPercent(s),
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	view := ledger.View(r.URL.Query().Get("view"))
	switch view {
	case "", ledger.ViewActive, ledger.ViewArchived, ledger.ViewAll:
	default:
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", fmt.Sprintf("unknown view %q", view))
		return
	}
	shipments := h.service.List(ledger.ListFilter{View: view})
	out := make([]shipmentResponse, 0, len(shipments))
	for _, s := range shipments {
		out = append(out, newShipmentResponse(s))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var input ledger.CreateShipmentInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		httpx.RespondError(w, err, nil)
		return
	}
	shipment, err := h.service.CreateShipment(r.Context(), input)
	if err != nil {
		h.fail(w, "create shipment", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, newShipmentResponse(shipment))
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	shipment, err := h.service.Get(chi.URLParam(r, "id"))
	if err != nil {
		h.fail(w, "get shipment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newShipmentResponse(shipment))
}

func (h *Handler) deleteShipment(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteShipment(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.fail(w, "delete shipment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// archive toggles the flag, or sets it when ?archived= is given.
func (h *Handler) archive(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var (
		shipment ledger.Shipment
		err      error
	)
	if raw := r.URL.Query().Get("archived"); raw != "" {
		archived, perr := strconv.ParseBool(raw)
		if perr != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "archived must be true or false")
			return
		}
		shipment, err = h.service.SetArchived(r.Context(), id, archived)
	} else {
		shipment, err = h.service.ToggleArchive(r.Context(), id)
	}
	if err != nil {
		h.fail(w, "archive shipment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, newShipmentResponse(shipment))
}

func (h *Handler) recordBatch(w http.ResponseWriter, r *http.Request) {
	var input ledger.RecordBatchInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		httpx.RespondError(w, err, nil)
		return
	}
	batch, err := h.service.RecordBatch(r.Context(), chi.URLParam(r, "id"), input)
	if err != nil {
		h.fail(w, "record batch", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, batch)
}

func (h *Handler) deleteBatch(w http.ResponseWriter, r *http.Request) {
	err := h.service.DeleteBatch(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "batchID"))
	if err != nil {
		h.fail(w, "delete batch", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) updateCosts(w http.ResponseWriter, r *http.Request) {
	var input ledger.UpdateBatchCostsInput
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		httpx.RespondError(w, err, nil)
		return
	}
	batch, err := h.service.UpdateBatchCosts(r.Context(), chi.URLParam(r, "id"), chi.URLParam(r, "batchID"), input)
	if err != nil {
		h.fail(w, "update batch costs", err)
		return
	}
	httpx.JSON(w, http.StatusOK, batch)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	kind := errorMapping.Resolve(err)
	if kind == err && h.logger != nil {
		h.logger.Error(op, slog.Any("error", err))
	}
	httpx.RespondError(w, err, errorMapping)
}
