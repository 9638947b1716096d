package dashboardhttp

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aburayhan/cargo-erp/internal/dashboard"
	"github.com/aburayhan/cargo-erp/internal/platform/httpx"
)

// Handler serves the overview and stockpile views.
type Handler struct {
	logger  *slog.Logger
	service *dashboard.Service
}

// NewHandler constructs handler.
func NewHandler(logger *slog.Logger, service *dashboard.Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/api/dashboard", h.summary)
	r.Get("/api/inventory", h.inventory)
}

func (h *Handler) summary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		h.logger.Error("dashboard summary", slog.Any("error", err))
		httpx.RespondError(w, err, nil)
		return
	}
	httpx.JSON(w, http.StatusOK, summary)
}

func (h *Handler) inventory(w http.ResponseWriter, r *http.Request) {
	view, err := h.service.Inventory(r.Context())
	if err != nil {
		h.logger.Error("dashboard inventory", slog.Any("error", err))
		httpx.RespondError(w, err, nil)
		return
	}
	httpx.JSON(w, http.StatusOK, view)
}
