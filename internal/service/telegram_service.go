package service

import (
	"context"
	"fmt"
	"html"
	"strings"

	"smiledent/internal/domain"
	"smiledent/internal/logging"
	"smiledent/internal/models"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
)

// TelegramNotifier announces new bookings to the clinic staff chats.
type TelegramNotifier struct {
	bot     domain.TelegramSender
	chatIDs []int64
	catalog models.Catalog
	logger  *zerolog.Logger
}

func NewTelegramNotifier(bot domain.TelegramSender, chatIDs []int64, catalog models.Catalog, logger *zerolog.Logger) *TelegramNotifier {
	return &TelegramNotifier{
		bot:     bot,
		chatIDs: chatIDs,
		catalog: catalog,
		logger:  logging.Component(logger, "telegram"),
	}
}

// NotifyAppointment sends the booking summary to every configured chat. It fails only
// when no chat could be reached: a retry resends to every chat, so a partial delivery
// is logged per chat and not retried.
func (n *TelegramNotifier) NotifyAppointment(ctx context.Context, a *models.Appointment) error {
	text := n.formatAppointment(a)

	var failed []string
	for _, chatID := range n.chatIDs {
		if err := ctx.Err(); err != nil {
			return err
		}
		msg := tgbotapi.NewMessage(chatID, text)
		msg.ParseMode = tgbotapi.ModeHTML
		if _, err := n.bot.Send(msg); err != nil {
			n.logger.Error().Err(err).Int64("chat_id", chatID).Str("appointment_id", a.ID).Msg("failed to send notification")
			failed = append(failed, fmt.Sprint(chatID))
		}
	}
	if len(failed) > 0 && len(failed) == len(n.chatIDs) {
		return fmt.Errorf("telegram notification failed for chats %s", strings.Join(failed, ","))
	}
	return nil
}

func (n *TelegramNotifier) formatAppointment(a *models.Appointment) string {
	var b strings.Builder
	b.WriteString("🦷 <b>Nouveau rendez-vous</b>\n\n")
	fmt.Fprintf(&b, "<b>Patient:</b> %s\n", html.EscapeString(a.FullName))
	fmt.Fprintf(&b, "<b>Téléphone:</b> %s\n", html.EscapeString(a.Phone))
	fmt.Fprintf(&b, "<b>Email:</b> %s\n", html.EscapeString(a.Email))
	fmt.Fprintf(&b, "<b>Service:</b> %s\n", html.EscapeString(n.catalog.ServiceName(a.Service)))
	if a.Dentist != "" {
		fmt.Fprintf(&b, "<b>Dentiste:</b> %s\n", html.EscapeString(n.catalog.DentistName(a.Dentist)))
	}
	fmt.Fprintf(&b, "<b>Date:</b> %s à %s\n", html.EscapeString(a.Date), html.EscapeString(a.Time))
	if a.Notes != "" {
		fmt.Fprintf(&b, "<b>Notes:</b> %s\n", html.EscapeString(a.Notes))
	}
	fmt.Fprintf(&b, "\nRéf: <code>%s</code>", html.EscapeString(a.ID))
	return b.String()
}
