package api

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
)

const flashCookieName = "smiledent_flash"

// flashMessage survives exactly one redirect.
type flashMessage struct {
	Kind    string `json:"kind"`
	Message string `json:"message"`
}

func (s *HTTPServer) setFlash(w http.ResponseWriter, kind, message string) {
	raw, err := json.Marshal(flashMessage{Kind: kind, Message: message})
	if err != nil {
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    base64.RawURLEncoding.EncodeToString(raw),
		Path:     "/",
		MaxAge:   300,
		HttpOnly: true,
		Secure:   s.session.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})
}

func (s *HTTPServer) popFlash(w http.ResponseWriter, r *http.Request) *flashMessage {
	c, err := r.Cookie(flashCookieName)
	if err != nil || c.Value == "" {
		return nil
	}
	http.SetCookie(w, &http.Cookie{
		Name:     flashCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   s.session.SecureCookie,
		SameSite: http.SameSiteLaxMode,
	})

	raw, err := base64.RawURLEncoding.DecodeString(c.Value)
	if err != nil {
		return nil
	}
	var msg flashMessage
	if err := json.Unmarshal(raw, &msg); err != nil || msg.Message == "" {
		return nil
	}
	return &msg
}
