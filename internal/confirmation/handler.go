package confirmation

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/clinicops/pkg/logging"
)

// Handler exposes reminder scheduling over HTTP.
type Handler struct {
	service *Service
	logger  *logging.Logger
}

// NewHandler creates a confirmation HTTP handler.
func NewHandler(service *Service, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes mounts confirmation endpoints on a chi router.
// Expected to be mounted under /api/v1/clinics/{clinicID}
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/appointments/{appointmentID}/confirmations", h.list)
	r.Post("/appointments/{appointmentID}/confirmations", h.schedule)
	r.Put("/appointments/{appointmentID}/confirmations", h.reschedule)
	r.Delete("/appointments/{appointmentID}/confirmations", h.cancel)
	r.Get("/confirmations/stats", h.getStats)
}

type scheduleRequest struct {
	StartsAt string `json:"starts_at"`
}

func (h *Handler) parseInput(w http.ResponseWriter, r *http.Request) (Input, bool) {
	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return Input{}, false
	}
	in, err := ParseInput(chi.URLParam(r, "clinicID"), chi.URLParam(r, "appointmentID"), req.StartsAt)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return Input{}, false
	}
	return in, true
}

func (h *Handler) schedule(w http.ResponseWriter, r *http.Request) {
	in, ok := h.parseInput(w, r)
	if !ok {
		return
	}
	entries, err := h.service.Schedule(r.Context(), in)
	if err != nil {
		h.logger.Error("confirmation handler: schedule", "appointment_id", in.AppointmentID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"entries": entries, "count": len(entries)})
}

func (h *Handler) reschedule(w http.ResponseWriter, r *http.Request) {
	in, ok := h.parseInput(w, r)
	if !ok {
		return
	}
	entries, err := h.service.Reschedule(r.Context(), in)
	if err != nil {
		h.logger.Error("confirmation handler: reschedule", "appointment_id", in.AppointmentID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "count": len(entries)})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	appointmentID := chi.URLParam(r, "appointmentID")
	deliveries, err := h.service.List(r.Context(), chi.URLParam(r, "clinicID"), appointmentID)
	if err != nil {
		h.logger.Error("confirmation handler: list", "appointment_id", appointmentID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"confirmations": deliveries, "count": len(deliveries)})
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	clinicID := chi.URLParam(r, "clinicID")
	appointmentID := chi.URLParam(r, "appointmentID")
	n, err := h.service.Cancel(r.Context(), clinicID, appointmentID)
	if err != nil {
		h.logger.Error("confirmation handler: cancel", "appointment_id", appointmentID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cancelled": n})
}

func (h *Handler) getStats(w http.ResponseWriter, r *http.Request) {
	clinicID := chi.URLParam(r, "clinicID")
	if clinicID == "" {
		writeError(w, http.StatusBadRequest, "missing clinic_id")
		return
	}
	stats, err := h.service.Stats(r.Context(), clinicID)
	if err != nil {
		h.logger.Error("confirmation handler: stats", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

