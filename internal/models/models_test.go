package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestAppointmentDay(t *testing.T) {
	a := &Appointment{Date: "2024-06-03"}
	day, ok := a.Day()
	assert.True(t, ok)
	assert.Equal(t, time.Monday, day.Weekday())

	for _, bad := range []string{"", "03/06/2024", "2024-13-01", "tomorrow"} {
		_, ok := (&Appointment{Date: bad}).Day()
		assert.False(t, ok, bad)
	}
}

func TestSessionActive(t *testing.T) {
	now := time.Date(2024, 6, 5, 10, 0, 0, 0, time.UTC)

	var nilSession *Session
	assert.False(t, nilSession.Active(now))
	assert.False(t, (&Session{LoggedIn: false}).Active(now))
	assert.True(t, (&Session{LoggedIn: true}).Active(now))
	assert.True(t, (&Session{LoggedIn: true, ExpiresAt: now.Add(time.Minute)}).Active(now))
	assert.False(t, (&Session{LoggedIn: true, ExpiresAt: now.Add(-time.Minute)}).Active(now))
}

func TestCatalogNames(t *testing.T) {
	c := DefaultCatalog()
	assert.Len(t, c.Services, 7)
	assert.Len(t, c.Dentists, 4)
	assert.Equal(t, "Détartrage", c.ServiceName("detartrage"))
	assert.Equal(t, "Dr. Claire Dubois", c.DentistName("dr-dubois"))
	assert.Equal(t, "unknown-code", c.ServiceName("unknown-code"))
}
