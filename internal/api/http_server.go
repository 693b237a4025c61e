package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"smiledent/internal/config"
	"smiledent/internal/logging"
	"smiledent/internal/metrics"
	"smiledent/internal/models"
	"smiledent/internal/service"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const requestIDHeader = "X-Request-ID"

// HealthChecker is satisfied by *database.DB.
type HealthChecker interface {
	PingContext(ctx context.Context) error
}

// Services bundles the application services behind the HTTP routes.
type Services struct {
	Booking *service.BookingService
	Auth    *service.AuthService
	Admin   *service.AdminService
}

// HTTPServer serves the public site, the admin pages and the JSON endpoints.
type HTTPServer struct {
	session config.SessionConfig
	health  HealthChecker
	booking *service.BookingService
	auth    *service.AuthService
	admin   *service.AdminService
	catalog models.Catalog
	pages   *renderer
	limiter *loginLimiter
	server  *http.Server
	logger  *zerolog.Logger
}

func NewHTTPServer(cfg *config.Config, health HealthChecker, svc Services, logger *zerolog.Logger) (*HTTPServer, error) {
	pages, err := newRenderer()
	if err != nil {
		return nil, err
	}

	srv := &HTTPServer{
		session: cfg.Session,
		health:  health,
		booking: svc.Booking,
		auth:    svc.Auth,
		admin:   svc.Admin,
		catalog: svc.Admin.Catalog(),
		pages:   pages,
		limiter: newLoginLimiter(cfg.RateLimit),
		logger:  logging.Component(logger, "http"),
	}

	mux := http.NewServeMux()
	srv.routes(mux)
	handler := srv.loggingMiddleware(srv.recoverMiddleware(mux))

	srv.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTP.Port),
		Handler:           handler,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
	}

	return srv, nil
}

func (s *HTTPServer) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.staticPage("index", "Accueil"))
	mux.HandleFunc("GET /about", s.staticPage("about", "À propos"))
	mux.HandleFunc("GET /services", s.staticPage("services", "Nos services"))
	mux.HandleFunc("GET /dentists", s.staticPage("dentists", "Nos dentistes"))
	mux.HandleFunc("GET /contact", s.staticPage("contact", "Contact"))

	mux.HandleFunc("GET /appointment", s.handleAppointmentForm)
	mux.HandleFunc("POST /appointment", s.handleAppointmentSubmit)
	mux.HandleFunc("GET /confirmation", s.handleConfirmation)

	mux.HandleFunc("GET /admin/login", s.handleLoginForm)
	mux.HandleFunc("POST /admin/login", s.handleLogin)
	mux.HandleFunc("GET /admin/logout", s.handleLogout)
	mux.HandleFunc("GET /admin", s.requireSession(s.handleDashboard))
	mux.HandleFunc("POST /admin/delete/{id}", s.requireSession(s.handleDelete))
	mux.HandleFunc("GET /admin/export.xlsx", s.requireSession(s.handleExport))
	mux.HandleFunc("POST /admin/import", s.requireSession(s.handleImport))

	mux.HandleFunc("GET /api/appointments", s.requireSession(s.handleAPIAppointments))
	mux.HandleFunc("GET /api/services", s.handleServices)
	mux.HandleFunc("GET /api/dentists", s.handleDentists)
	mux.HandleFunc("GET /healthz", s.handleHealth)

	mux.HandleFunc("/", s.handleNotFound)
}

func (s *HTTPServer) Start() error {
	if s.server == nil {
		return fmt.Errorf("http server is not initialized")
	}
	s.logger.Info().Str("addr", s.server.Addr).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *HTTPServer) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}

func (s *HTTPServer) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		requestID := strings.TrimSpace(r.Header.Get(requestIDHeader))
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, requestID)

		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		dur := time.Since(start)

		// the mux fills in Pattern on the request it was handed
		route := r.Pattern
		if route == "" || route == "/" {
			route = "unmatched"
		}
		metrics.ObserveHTTP(route, recorder.status, dur)

		s.logger.Info().
			Str("request_id", requestID).
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", recorder.status).
			Dur("duration", dur).
			Msg("http request")
	})
}

func (s *HTTPServer) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rec := recover()
			if rec == nil {
				return
			}
			if rec == http.ErrAbortHandler {
				panic(rec)
			}
			s.logger.Error().
				Interface("panic", rec).
				Str("method", r.Method).
				Str("path", r.URL.Path).
				Msg("handler panicked")
			if sr, ok := w.(*statusRecorder); ok && sr.wroteHeader {
				return
			}
			s.renderServerError(w, r)
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, statusCode int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

type statusRecorder struct {
	http.ResponseWriter
	status      int
	wroteHeader bool
}

func (r *statusRecorder) WriteHeader(status int) {
	if !r.wroteHeader {
		r.status = status
		r.wroteHeader = true
	}
	r.ResponseWriter.WriteHeader(status)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	r.wroteHeader = true
	return r.ResponseWriter.Write(b)
}
