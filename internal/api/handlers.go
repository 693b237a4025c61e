package api

import (
	"context"
	"errors"
	"net/http"
	"net/url"
	"time"

	"smiledent/internal/metrics"
	"smiledent/internal/models"
	"smiledent/internal/service"
)

const (
	msgMissingFields   = "Veuillez remplir tous les champs obligatoires."
	msgInvalidEmail    = "Veuillez saisir une adresse email valide."
	msgBookingSaved    = "✅ Rendez-vous enregistré avec succès!"
	msgBookingFailed   = "❌ Erreur lors de l'enregistrement du rendez-vous."
	msgLoginRequired   = "Veuillez vous connecter pour accéder à cette page."
	msgLoginSucceeded  = "✅ Connexion réussie!"
	msgLoginFailed     = "❌ Identifiants incorrects. Veuillez réessayer."
	msgLoginThrottled  = "❌ Trop de tentatives de connexion. Veuillez patienter avant de réessayer."
	msgLoggedOut       = "Vous avez été déconnecté."
	msgDeleted         = "✅ Rendez-vous %s supprimé avec succès."
	msgNotFound        = "❌ Rendez-vous non trouvé."
	msgDeleteFailed    = "❌ Erreur lors de la suppression du rendez-vous."
	msgImported        = "✅ %d rendez-vous importé(s) depuis le fichier JSON."
	msgImportNoFile    = "❌ Fichier de rendez-vous introuvable."
	msgImportFailed    = "❌ Erreur lors de l'import des rendez-vous."
	healthCheckTimeout = 2 * time.Second
)

func (s *HTTPServer) staticPage(name, title string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s.render(w, r, http.StatusOK, name, pageData{Title: title})
	}
}

func (s *HTTPServer) handleAppointmentForm(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "appointment", pageData{Title: "Prendre rendez-vous"})
}

func (s *HTTPServer) handleAppointmentSubmit(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		s.setFlash(w, models.FlashError, msgMissingFields)
		http.Redirect(w, r, "/appointment", http.StatusSeeOther)
		return
	}

	form := service.BookingForm{
		FullName: r.PostFormValue("full_name"),
		Phone:    r.PostFormValue("phone"),
		Email:    r.PostFormValue("email"),
		Service:  r.PostFormValue("service"),
		Dentist:  r.PostFormValue("dentist"),
		Date:     r.PostFormValue("date"),
		Time:     r.PostFormValue("time"),
		Notes:    r.PostFormValue("notes"),
	}

	appointment, err := s.booking.Submit(r.Context(), form)
	if err != nil {
		var verr *service.ValidationError
		switch {
		case errors.As(err, &verr):
			metrics.AddAppointments("rejected", 1)
			msg := msgMissingFields
			if verr.Message == service.MsgInvalidEmail {
				msg = msgInvalidEmail
			}
			s.setFlash(w, models.FlashError, msg)
		default:
			s.logger.Error().Err(err).Msg("booking failed")
			s.setFlash(w, models.FlashError, msgBookingFailed)
		}
		http.Redirect(w, r, "/appointment", http.StatusSeeOther)
		return
	}

	metrics.AddAppointments("booked", 1)
	s.setFlash(w, models.FlashSuccess, msgBookingSaved)
	http.Redirect(w, r, "/confirmation?appointment_id="+url.QueryEscape(appointment.ID), http.StatusSeeOther)
}

func (s *HTTPServer) handleConfirmation(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusOK, "confirmation", pageData{
		Title:         "Confirmation",
		AppointmentID: r.URL.Query().Get("appointment_id"),
	})
}

func (s *HTTPServer) handleServices(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Services)
}

func (s *HTTPServer) handleDentists(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Dentists)
}

func (s *HTTPServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	if err := s.health.PingContext(ctx); err != nil {
		s.logger.Error().Err(err).Msg("health check failed")
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *HTTPServer) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, http.StatusNotFound, "404", pageData{Title: "Page non trouvée"})
}
