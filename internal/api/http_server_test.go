package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"smiledent/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublicPages(t *testing.T) {
	env := newTestEnv(t, testOptions{})

	pages := map[string]string{
		"/":            "Bienvenue chez SmileDent",
		"/about":       "À propos de SmileDent",
		"/services":    "Blanchiment dentaire",
		"/dentists":    "Dr. Claire Dubois",
		"/contact":     "01 23 45 67 89",
		"/appointment": `<option value="orthodontie">Orthodontie</option>`,
	}
	for path, want := range pages {
		t.Run(path, func(t *testing.T) {
			resp, body := env.get(t, path)
			assert.Equal(t, http.StatusOK, resp.StatusCode)
			assert.Contains(t, resp.Header.Get("Content-Type"), "text/html")
			assert.Contains(t, body, want)
			assert.NotEmpty(t, resp.Header.Get(requestIDHeader))
		})
	}
}

func TestNotFoundPage(t *testing.T) {
	env := newTestEnv(t, testOptions{})

	resp, body := env.get(t, "/does-not-exist")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Contains(t, body, "Page non trouvée")
}

func TestRequestIDIsEchoed(t *testing.T) {
	env := newTestEnv(t, testOptions{})

	req, err := http.NewRequest(http.MethodGet, env.ts.URL+"/about", nil)
	require.NoError(t, err)
	req.Header.Set(requestIDHeader, "req-42")
	resp, err := env.client.Do(req)
	require.NoError(t, err)
	readBody(t, resp)

	assert.Equal(t, "req-42", resp.Header.Get(requestIDHeader))
}

func TestCatalogEndpoints(t *testing.T) {
	env := newTestEnv(t, testOptions{})

	resp, body := env.get(t, "/api/services")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "application/json", resp.Header.Get("Content-Type"))

	var services []models.CatalogEntry
	require.NoError(t, json.Unmarshal([]byte(body), &services))
	require.Len(t, services, 7)
	assert.Equal(t, models.CatalogEntry{ID: "consultation", Name: "Consultation générale"}, services[0])
	assert.Equal(t, "implant", services[6].ID)

	resp, body = env.get(t, "/api/dentists")
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var dentists []models.CatalogEntry
	require.NoError(t, json.Unmarshal([]byte(body), &dentists))
	require.Len(t, dentists, 4)
	assert.Equal(t, "dr-martin", dentists[0].ID)
	assert.Equal(t, "Dr. Julien Moreau", dentists[3].Name)
}

type fakeChecker struct {
	err error
}

func (f fakeChecker) PingContext(context.Context) error { return f.err }

func TestHealthz(t *testing.T) {
	env := newTestEnv(t, testOptions{})

	resp, body := env.get(t, "/healthz")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"status":"ok"}`, body)

	env.server.health = fakeChecker{err: errors.New("disk I/O error")}
	resp, body = env.get(t, "/healthz")
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
	assert.JSONEq(t, `{"status":"unavailable"}`, body)
}

func TestBookingSubmitRedirectsToConfirmation(t *testing.T) {
	env := newTestEnv(t, testOptions{})

	resp, _ := env.post(t, "/appointment", bookingForm())
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)

	loc, err := url.Parse(resp.Header.Get("Location"))
	require.NoError(t, err)
	assert.Equal(t, "/confirmation", loc.Path)
	id := loc.Query().Get("appointment_id")
	require.NotEmpty(t, id)

	stored, err := env.db.GetAppointment(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, "Marie Curie", stored.FullName)
	assert.Equal(t, "detartrage", stored.Service)
	assert.Equal(t, "2024-07-01", stored.Date)

	resp, body := env.get(t, loc.RequestURI())
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, body, id)
	assert.Contains(t, body, "Rendez-vous enregistré avec succès!")

	// the flash is shown once
	_, body = env.get(t, loc.RequestURI())
	assert.NotContains(t, body, "Rendez-vous enregistré avec succès!")
}

func TestBookingValidationFlash(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(url.Values)
		want   string
	}{
		{
			name:   "missing phone",
			mutate: func(v url.Values) { v.Set("phone", "   ") },
			want:   "Veuillez remplir tous les champs obligatoires.",
		},
		{
			name:   "missing service",
			mutate: func(v url.Values) { v.Del("service") },
			want:   "Veuillez remplir tous les champs obligatoires.",
		},
		{
			name:   "email without dot",
			mutate: func(v url.Values) { v.Set("email", "marie@example") },
			want:   "Veuillez saisir une adresse email valide.",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, testOptions{})
			form := bookingForm()
			tt.mutate(form)

			resp, _ := env.post(t, "/appointment", form)
			require.Equal(t, http.StatusSeeOther, resp.StatusCode)
			assert.Equal(t, "/appointment", resp.Header.Get("Location"))

			_, body := env.get(t, "/appointment")
			assert.Contains(t, body, tt.want)

			count, err := env.db.CountAppointments(context.Background())
			require.NoError(t, err)
			assert.Zero(t, count)
		})
	}
}

func TestConfirmationWithoutID(t *testing.T) {
	env := newTestEnv(t, testOptions{})

	resp, body := env.get(t, "/confirmation")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.NotContains(t, body, "Référence du rendez-vous")
}

func TestConfirmationEscapesID(t *testing.T) {
	env := newTestEnv(t, testOptions{})

	_, body := env.get(t, "/confirmation?appointment_id="+url.QueryEscape("<script>x</script>"))
	assert.NotContains(t, body, "<script>x</script>")
	assert.Contains(t, body, "&lt;script&gt;")
}

func TestRecoverMiddlewareRendersErrorPage(t *testing.T) {
	env := newTestEnv(t, testOptions{})

	handler := env.server.loggingMiddleware(env.server.recoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/explode", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "Erreur interne du serveur"))
}

func TestStatusRecorderKeepsFirstStatus(t *testing.T) {
	rec := &statusRecorder{ResponseWriter: httptest.NewRecorder(), status: http.StatusOK}
	rec.WriteHeader(http.StatusNotFound)
	rec.WriteHeader(http.StatusInternalServerError)

	assert.Equal(t, http.StatusNotFound, rec.status)
	assert.True(t, rec.wroteHeader)
}
