package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"smiledent/internal/export"
	"smiledent/internal/metrics"
	"smiledent/internal/models"
	"smiledent/internal/service"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func (s *HTTPServer) handleLoginForm(w http.ResponseWriter, r *http.Request) {
	if _, err := s.currentSession(r); err == nil {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}
	s.render(w, r, http.StatusOK, "admin_login", pageData{Title: "Administration"})
}

func (s *HTTPServer) handleLogin(w http.ResponseWriter, r *http.Request) {
	if _, err := s.currentSession(r); err == nil {
		http.Redirect(w, r, "/admin", http.StatusSeeOther)
		return
	}

	if !s.limiter.allow(clientKey(r)) {
		metrics.IncLogin("throttled")
		s.logger.Warn().Str("client", clientKey(r)).Msg("login throttled")
		s.render(w, r, http.StatusTooManyRequests, "admin_login", pageData{
			Title: "Administration",
			Flash: &flashMessage{Kind: models.FlashError, Message: msgLoginThrottled},
		})
		return
	}

	username := strings.TrimSpace(r.PostFormValue("username"))
	password := strings.TrimSpace(r.PostFormValue("password"))

	token, _, err := s.auth.Login(r.Context(), username, password)
	switch {
	case errors.Is(err, service.ErrAuthFailed):
		metrics.IncLogin("failed")
		s.render(w, r, http.StatusOK, "admin_login", pageData{
			Title: "Administration",
			Flash: &flashMessage{Kind: models.FlashError, Message: msgLoginFailed},
		})
		return
	case err != nil:
		metrics.IncLogin("error")
		s.logger.Error().Err(err).Msg("login failed")
		s.renderServerError(w, r)
		return
	}

	metrics.IncLogin("success")
	s.setSessionCookie(w, token)
	s.setFlash(w, models.FlashSuccess, msgLoginSucceeded)
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *HTTPServer) handleLogout(w http.ResponseWriter, r *http.Request) {
	if c, err := r.Cookie(s.session.CookieName); err == nil {
		if err := s.auth.Logout(r.Context(), c.Value); err != nil {
			s.logger.Error().Err(err).Msg("logout failed")
		}
	}
	s.clearSessionCookie(w)
	s.setFlash(w, models.FlashInfo, msgLoggedOut)
	http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
}

func (s *HTTPServer) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dashboard, err := s.admin.Dashboard(r.Context(), sessionFromContext(r.Context()))
	if err != nil {
		s.adminFailure(w, r, err, "dashboard")
		return
	}
	s.render(w, r, http.StatusOK, "admin_dashboard", pageData{
		Title:     "Tableau de bord",
		Dashboard: dashboard,
	})
}

func (s *HTTPServer) handleDelete(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	deleted, err := s.admin.Delete(r.Context(), sessionFromContext(r.Context()), id)
	switch {
	case errors.Is(err, service.ErrSessionRequired):
		s.adminFailure(w, r, err, "delete")
		return
	case err != nil:
		s.logger.Error().Err(err).Str("appointment_id", id).Msg("delete failed")
		s.setFlash(w, models.FlashError, msgDeleteFailed)
	case deleted:
		metrics.AddAppointments("deleted", 1)
		s.setFlash(w, models.FlashSuccess, fmt.Sprintf(msgDeleted, id))
	default:
		s.setFlash(w, models.FlashError, msgNotFound)
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *HTTPServer) handleExport(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := s.admin.Export(r.Context(), sessionFromContext(r.Context()), &buf); err != nil {
		s.adminFailure(w, r, err, "export")
		return
	}
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", export.FileName(time.Now())))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *HTTPServer) handleImport(w http.ResponseWriter, r *http.Request) {
	inserted, err := s.admin.Import(r.Context(), sessionFromContext(r.Context()))
	switch {
	case errors.Is(err, service.ErrSessionRequired):
		s.adminFailure(w, r, err, "import")
		return
	case errors.Is(err, os.ErrNotExist):
		s.setFlash(w, models.FlashError, msgImportNoFile)
	case err != nil:
		s.logger.Error().Err(err).Msg("legacy import failed")
		s.setFlash(w, models.FlashError, msgImportFailed)
	default:
		metrics.AddAppointments("imported", inserted)
		s.setFlash(w, models.FlashSuccess, fmt.Sprintf(msgImported, inserted))
	}
	http.Redirect(w, r, "/admin", http.StatusSeeOther)
}

func (s *HTTPServer) handleAPIAppointments(w http.ResponseWriter, r *http.Request) {
	list, err := s.admin.List(r.Context(), sessionFromContext(r.Context()))
	if errors.Is(err, service.ErrSessionRequired) {
		writeError(w, http.StatusUnauthorized, "admin session required")
		return
	}
	if err != nil {
		s.logger.Error().Err(err).Msg("list appointments failed")
		writeError(w, http.StatusInternalServerError, "failed to load appointments")
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// adminFailure maps service errors of a guarded page to a login redirect or the 500 page.
func (s *HTTPServer) adminFailure(w http.ResponseWriter, r *http.Request, err error, op string) {
	if errors.Is(err, service.ErrSessionRequired) {
		s.setFlash(w, models.FlashError, msgLoginRequired)
		http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
		return
	}
	s.logger.Error().Err(err).Str("op", op).Msg("admin operation failed")
	s.renderServerError(w, r)
}
