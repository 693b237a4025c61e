package api

import (
	"context"
	"errors"
	"net/http"

	"smiledent/internal/models"
	"smiledent/internal/service"
)

type sessionContextKey struct{}

func withSession(ctx context.Context, session *models.Session) context.Context {
	return context.WithValue(ctx, sessionContextKey{}, session)
}

func sessionFromContext(ctx context.Context) *models.Session {
	session, _ := ctx.Value(sessionContextKey{}).(*models.Session)
	return session
}

func (s *HTTPServer) currentSession(r *http.Request) (*models.Session, error) {
	c, err := r.Cookie(s.session.CookieName)
	if err != nil || c.Value == "" {
		return nil, service.ErrSessionRequired
	}
	return s.auth.RequireSession(r.Context(), c.Value)
}

// requireSession guards every admin route. Requests without an active session are
// sent to the login page.
func (s *HTTPServer) requireSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		session, err := s.currentSession(r)
		if err != nil {
			if !errors.Is(err, service.ErrSessionRequired) {
				s.logger.Error().Err(err).Str("path", r.URL.Path).Msg("session lookup failed")
			}
			s.setFlash(w, models.FlashError, msgLoginRequired)
			http.Redirect(w, r, "/admin/login", http.StatusSeeOther)
			return
		}
		next(w, r.WithContext(withSession(r.Context(), session)))
	}
}

func (s *HTTPServer) setSessionCookie(w http.ResponseWriter, token string) {
	c := &http.Cookie{
		Name:     s.session.CookieName,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.session.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	}
	if s.session.TTL > 0 {
		c.MaxAge = int(s.session.TTL.Seconds())
	}
	http.SetCookie(w, c)
}

func (s *HTTPServer) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     s.session.CookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.session.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}
