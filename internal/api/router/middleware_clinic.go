package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/wolfman30/clinicops/internal/tenancy"
)

// requireClinicScope validates the {clinicID} path parameter (and
// {professionalID} when present) and stores the clinic in the request
// context.
func requireClinicScope(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		clinicID := chi.URLParam(r, "clinicID")
		if !tenancy.ValidID(clinicID) {
			writeError(w, http.StatusBadRequest, "invalid clinic id")
			return
		}
		if prof := chi.URLParam(r, "professionalID"); prof != "" && !tenancy.ValidID(prof) {
			writeError(w, http.StatusBadRequest, "invalid professional id")
			return
		}
		next.ServeHTTP(w, r.WithContext(tenancy.WithClinicID(r.Context(), clinicID)))
	})
}
