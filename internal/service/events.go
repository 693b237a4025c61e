package service

import (
	"smiledent/internal/domain"

	"github.com/rs/zerolog"
)

func publishEvent(bus domain.EventPublisher, logger *zerolog.Logger, eventType string, payload interface{}) {
	if bus == nil {
		return
	}
	if err := bus.PublishJSON(eventType, payload); err != nil {
		logger.Error().Err(err).Str("event", eventType).Msg("failed to publish event")
	}
}
