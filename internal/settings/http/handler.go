package settingshttp

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/aburayhan/cargo-erp/internal/platform/httpx"
	"github.com/aburayhan/cargo-erp/internal/settings"
)

// Handler serves the business profile.
type Handler struct {
	logger  *slog.Logger
	service *settings.Service
}

// NewHandler constructs handler.
func NewHandler(logger *slog.Logger, service *settings.Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/api/settings", h.show)
	r.Put("/api/settings", h.update)
}

func (h *Handler) show(w http.ResponseWriter, r *http.Request) {
	httpx.JSON(w, http.StatusOK, h.service.Get())
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	var input settings.BusinessSettings
	if err := httpx.DecodeJSON(w, r, &input); err != nil {
		httpx.RespondError(w, err, nil)
		return
	}
	updated, err := h.service.Update(r.Context(), input)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("update settings", slog.Any("error", err))
		}
		httpx.RespondError(w, err, httpx.ErrorMapping{settings.ErrInvalid: httpx.ErrValidation})
		return
	}
	httpx.JSON(w, http.StatusOK, updated)
}
