package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/clinicops/internal/availability"
	"github.com/wolfman30/clinicops/pkg/logging"
)

// ProfileWriter saves and removes profiles.
type ProfileWriter interface {
	Set(ctx context.Context, p *Profile) error
	Delete(ctx context.Context, clinicID, professionalID string) error
}

// BusyWriter manages the external busy blocks of a professional.
type BusyWriter interface {
	List(ctx context.Context, clinicID, professionalID string) ([]availability.Interval, error)
	Replace(ctx context.Context, clinicID, professionalID string, blocks []availability.Interval) error
	Clear(ctx context.Context, clinicID, professionalID string) error
}

// Handler exposes availability and schedule profiles over HTTP.
type Handler struct {
	service *Service
	writer  ProfileWriter
	busy    BusyWriter
	logger  *logging.Logger
}

// NewHandler creates a schedule HTTP handler. A nil busy writer leaves the
// busy block endpoints unmounted.
func NewHandler(service *Service, writer ProfileWriter, busy BusyWriter, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{service: service, writer: writer, busy: busy, logger: logger}
}

// RegisterRoutes mounts the read endpoints on a chi router.
// Expected to be mounted under /api/v1/clinics/{clinicID}/professionals/{professionalID}
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/availability", h.getAvailability)
	r.Get("/availability/digest", h.getDigest)
	r.Get("/schedule", h.getProfile)
}

// RegisterAdminRoutes mounts the schedule write endpoints under the same
// prefix as RegisterRoutes.
func (h *Handler) RegisterAdminRoutes(r chi.Router) {
	r.Put("/schedule", h.putProfile)
	r.Delete("/schedule", h.deleteProfile)
	if h.busy != nil {
		r.Get("/busy", h.getBusy)
		r.Put("/busy", h.putBusy)
		r.Delete("/busy", h.deleteBusy)
	}
}

func (h *Handler) parseQuery(w http.ResponseWriter, r *http.Request) (Query, bool) {
	q := Query{
		ClinicID:       chi.URLParam(r, "clinicID"),
		ProfessionalID: chi.URLParam(r, "professionalID"),
		Date:           r.URL.Query().Get("date"),
	}
	if q.Date == "" {
		writeError(w, http.StatusBadRequest, "date is required (YYYY-MM-DD)")
		return q, false
	}
	for name, dst := range map[string]*int{"days": &q.Days, "duration": &q.DurationMinutes} {
		raw := r.URL.Query().Get(name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, name+" must be a positive integer")
			return q, false
		}
		*dst = n
	}
	return q, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		writeError(w, http.StatusNotFound, "schedule not found")
	case IsClientError(err):
		writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error("schedule handler: "+op, "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type availabilityResponse struct {
	Timezone string                  `json:"timezone"`
	Days     []availability.DaySlots `json:"days"`
	Count    int                     `json:"count"`
}

func (h *Handler) getAvailability(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	days, profile, err := h.service.Availability(r.Context(), q)
	if err != nil {
		h.writeServiceError(w, "availability", err)
		return
	}
	writeJSON(w, http.StatusOK, availabilityResponse{
		Timezone: profile.Timezone,
		Days:     days,
		Count:    len(availability.Flatten(days)),
	})
}

func (h *Handler) getDigest(w http.ResponseWriter, r *http.Request) {
	q, ok := h.parseQuery(w, r)
	if !ok {
		return
	}
	digest, err := h.service.Digest(r.Context(), q, r.URL.Query().Get("locale"))
	if err != nil {
		h.writeServiceError(w, "digest", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"digest": digest})
}

func (h *Handler) getProfile(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Profile(r.Context(), chi.URLParam(r, "clinicID"), chi.URLParam(r, "professionalID"))
	if err != nil {
		h.writeServiceError(w, "get profile", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) putProfile(w http.ResponseWriter, r *http.Request) {
	var p Profile
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	p.ClinicID = chi.URLParam(r, "clinicID")
	p.ProfessionalID = chi.URLParam(r, "professionalID")

	if err := h.writer.Set(r.Context(), &p); err != nil {
		var verr *availability.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":    "invalid schedule",
				"problems": verr.Problems,
			})
			return
		}
		h.writeServiceError(w, "put profile", err)
		return
	}
	h.logger.Info("schedule profile saved", "clinic_id", p.ClinicID, "professional_id", p.ProfessionalID)
	writeJSON(w, http.StatusOK, p)
}

func (h *Handler) deleteProfile(w http.ResponseWriter, r *http.Request) {
	if err := h.writer.Delete(r.Context(), chi.URLParam(r, "clinicID"), chi.URLParam(r, "professionalID")); err != nil {
		h.writeServiceError(w, "delete profile", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type busyRequest struct {
	Blocks []availability.Interval `json:"blocks"`
}

func (h *Handler) getBusy(w http.ResponseWriter, r *http.Request) {
	blocks, err := h.busy.List(r.Context(), chi.URLParam(r, "clinicID"), chi.URLParam(r, "professionalID"))
	if err != nil {
		h.writeServiceError(w, "get busy", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"blocks": blocks, "count": len(blocks)})
}

// putBusy replaces the professional's busy blocks with the synced calendar
// view in the request body.
func (h *Handler) putBusy(w http.ResponseWriter, r *http.Request) {
	var req busyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	clinicID := chi.URLParam(r, "clinicID")
	professionalID := chi.URLParam(r, "professionalID")

	if err := h.busy.Replace(r.Context(), clinicID, professionalID, req.Blocks); err != nil {
		var verr *availability.ValidationError
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{
				"error":    "invalid busy blocks",
				"problems": verr.Problems,
			})
			return
		}
		h.writeServiceError(w, "put busy", err)
		return
	}
	h.logger.Info("busy blocks replaced", "clinic_id", clinicID, "professional_id", professionalID, "count", len(req.Blocks))
	writeJSON(w, http.StatusOK, map[string]any{"count": len(req.Blocks)})
}

func (h *Handler) deleteBusy(w http.ResponseWriter, r *http.Request) {
	if err := h.busy.Clear(r.Context(), chi.URLParam(r, "clinicID"), chi.URLParam(r, "professionalID")); err != nil {
		h.writeServiceError(w, "delete busy", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
