package api

import (
	"context"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"smiledent/internal/config"
	"smiledent/internal/database"
	"smiledent/internal/events"
	"smiledent/internal/models"
	"smiledent/internal/repository"
	"smiledent/internal/service"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
)

const (
	testAdminUser     = "admin"
	testAdminPassword = "admin123"
)

type testEnv struct {
	db     *database.DB
	server *HTTPServer
	ts     *httptest.Server
	client *http.Client
}

type testOptions struct {
	legacyPath string
	rateLimit  config.RateLimitConfig
}

func testLogger() *zerolog.Logger {
	l := zerolog.New(io.Discard)
	return &l
}

func newTestEnv(t *testing.T, opts testOptions) *testEnv {
	t.Helper()
	logger := testLogger()

	db, err := database.NewDB(":memory:", logger)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Session: config.SessionConfig{
			SecretKey:  "test-secret",
			CookieName: "smiledent_session",
			TTL:        time.Hour,
		},
		RateLimit: opts.rateLimit,
	}
	if cfg.RateLimit.LoginRPS == 0 {
		cfg.RateLimit.LoginRPS = -1
	}

	bus := events.NewEventBus(logger)
	auth := service.NewAuthService(db, repository.NewMemorySessionRepository(), cfg.Session, logger)
	require.NoError(t, auth.SeedAdmin(context.Background(), testAdminUser, testAdminPassword))

	importer := service.NewImportService(db, bus, logger)
	svc := Services{
		Booking: service.NewBookingService(db, bus, logger),
		Auth:    auth,
		Admin:   service.NewAdminService(db, importer, bus, models.DefaultCatalog(), opts.legacyPath, logger),
	}

	srv, err := NewHTTPServer(cfg, db, svc, logger)
	require.NoError(t, err)

	ts := httptest.NewServer(srv.server.Handler)
	t.Cleanup(ts.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)
	client := &http.Client{
		Jar: jar,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}

	return &testEnv{db: db, server: srv, ts: ts, client: client}
}

func (e *testEnv) get(t *testing.T, path string) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.Get(e.ts.URL + path)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (e *testEnv) post(t *testing.T, path string, form url.Values) (*http.Response, string) {
	t.Helper()
	resp, err := e.client.PostForm(e.ts.URL+path, form)
	require.NoError(t, err)
	return resp, readBody(t, resp)
}

func (e *testEnv) login(t *testing.T) {
	t.Helper()
	resp, _ := e.post(t, "/admin/login", url.Values{
		"username": {testAdminUser},
		"password": {testAdminPassword},
	})
	require.Equal(t, http.StatusSeeOther, resp.StatusCode)
	require.Equal(t, "/admin", resp.Header.Get("Location"))
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(data)
}

func sampleAppointment(id, date string) *models.Appointment {
	return &models.Appointment{
		ID:          id,
		FullName:    "Jean Dupont",
		Phone:       "01 23 45 67 89",
		Email:       "jean@example.com",
		Service:     "consultation",
		Dentist:     "dr-martin",
		Date:        date,
		Time:        "14:30",
		SubmittedAt: "2024-06-01 10:00:00",
		Notes:       "première visite",
	}
}

func bookingForm() url.Values {
	return url.Values{
		"full_name": {"  Marie Curie "},
		"phone":     {"06 11 22 33 44"},
		"email":     {"marie@example.com"},
		"service":   {"detartrage"},
		"dentist":   {"dr-lambert"},
		"date":      {"2024-07-01"},
		"time":      {"09:30"},
		"notes":     {""},
	}
}
