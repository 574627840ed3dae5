package schedule

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const profileBase = "/api/v1/clinics/c1/professionals/p1"

func newTestRouter(t *testing.T) (http.Handler, memProfiles) {
	t.Helper()
	_, client := newTestRedis(t)
	busy := NewBusyStore(client)
	svc, profiles := newTestService(&stubBookings{}, busy)
	r := chi.NewRouter()
	h := NewHandler(svc, profiles, busy, nil)
	r.Route("/api/v1/clinics/{clinicID}/professionals/{professionalID}", func(r chi.Router) {
		h.RegisterRoutes(r)
		h.RegisterAdminRoutes(r)
	})
	return r, profiles
}

func serve(h http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestHandlerGetAvailability(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := serve(h, http.MethodGet, profileBase+"/availability?date=2026-02-16&days=2", "")

	require.Equal(t, http.StatusOK, rec.Code)
	var resp availabilityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "America/Sao_Paulo", resp.Timezone)
	assert.Equal(t, 8, resp.Count)
	require.Len(t, resp.Days, 2)
	assert.Equal(t, "2026-02-17", resp.Days[1].Date)
	assert.NotNil(t, resp.Days[1].Slots)
}

func TestHandlerAvailabilityValidation(t *testing.T) {
	h, _ := newTestRouter(t)

	tests := []struct {
		name   string
		target string
		want   int
	}{
		{"missing date", profileBase + "/availability", http.StatusBadRequest},
		{"bad date", profileBase + "/availability?date=tomorrow", http.StatusBadRequest},
		{"bad days", profileBase + "/availability?date=2026-02-16&days=x", http.StatusBadRequest},
		{"zero duration", profileBase + "/availability?date=2026-02-16&duration=0", http.StatusBadRequest},
		{"unknown professional", "/api/v1/clinics/c1/professionals/nobody/availability?date=2026-02-16", http.StatusNotFound},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(h, http.MethodGet, tc.target, "")
			assert.Equal(t, tc.want, rec.Code)
			assert.Contains(t, rec.Body.String(), `"error"`)
		})
	}
}

func TestHandlerGetDigest(t *testing.T) {
	h, _ := newTestRouter(t)
	rec := serve(h, http.MethodGet, profileBase+"/availability/digest?date=2026-02-17&locale=es", "")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"digest":"No hay horarios disponibles."}`, rec.Body.String())
}

func TestHandlerPutProfile(t *testing.T) {
	h, profiles := newTestRouter(t)
	body := `{"timezone":"Europe/Lisbon","slot_minutes":45,"grid":{"friday":[{"start":"09:00","end":"17:00"}]}}`

	rec := serve(h, http.MethodPut, "/api/v1/clinics/c1/professionals/p2/schedule", body)
	require.Equal(t, http.StatusOK, rec.Code)

	saved, ok := profiles["c1/p2"]
	require.True(t, ok)
	assert.Equal(t, "c1", saved.ClinicID)
	assert.Equal(t, "p2", saved.ProfessionalID)
	assert.Equal(t, 45, saved.SlotMinutes)
	assert.Len(t, saved.Grid.Friday, 1)

	rec = serve(h, http.MethodGet, "/api/v1/clinics/c1/professionals/p2/schedule", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Europe/Lisbon")
}

func TestHandlerPutProfileInvalid(t *testing.T) {
	h, profiles := newTestRouter(t)
	body := `{"timezone":"America/Sao_Paulo","grid":{"monday":[{"start":"12:00","end":"08:00"}]}}`

	rec := serve(h, http.MethodPut, "/api/v1/clinics/c1/professionals/p3/schedule", body)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	var resp struct {
		Problems []string `json:"problems"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, []string{"monday[0]: start 12:00 is not before end 08:00"}, resp.Problems)
	_, saved := profiles["c1/p3"]
	assert.False(t, saved)
}

func TestHandlerDeleteProfile(t *testing.T) {
	h, profiles := newTestRouter(t)
	rec := serve(h, http.MethodDelete, profileBase+"/schedule", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, profiles)
}

func TestHandlerBusyBlocksReduceAvailability(t *testing.T) {
	h, _ := newTestRouter(t)
	// 10:00-11:00 local on Monday 2026-02-16 (UTC-3).
	body := `{"blocks":[{"start":"2026-02-16T13:00:00Z","end":"2026-02-16T14:00:00Z"}]}`

	rec := serve(h, http.MethodPut, profileBase+"/busy", body)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"count":1}`, rec.Body.String())

	rec = serve(h, http.MethodGet, profileBase+"/availability?date=2026-02-16", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var resp availabilityResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 6, resp.Count)

	rec = serve(h, http.MethodGet, profileBase+"/busy", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"blocks":[{"start":"2026-02-16T13:00:00Z","end":"2026-02-16T14:00:00Z"}],"count":1}`, rec.Body.String())

	rec = serve(h, http.MethodDelete, profileBase+"/busy", "")
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = serve(h, http.MethodGet, profileBase+"/availability?date=2026-02-16", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 8, resp.Count)
}

func TestHandlerPutBusyInvalid(t *testing.T) {
	h, _ := newTestRouter(t)

	rec := serve(h, http.MethodPut, profileBase+"/busy", `{"blocks":[{"start":"2026-02-16T14:00:00Z","end":"2026-02-16T13:00:00Z"}]}`)
	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.JSONEq(t, `{"error":"invalid busy blocks","problems":["block 0: end must be after start"]}`, rec.Body.String())

	rec = serve(h, http.MethodPut, profileBase+"/busy", `{"blocks":`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestHandlerWithoutBusyWriterSkipsBusyRoutes(t *testing.T) {
	svc, profiles := newTestService(&stubBookings{}, nil)
	r := chi.NewRouter()
	h := NewHandler(svc, profiles, nil, nil)
	r.Route("/api/v1/clinics/{clinicID}/professionals/{professionalID}", h.RegisterAdminRoutes)

	rec := serve(r, http.MethodGet, profileBase+"/busy", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
