package models

import "time"

const (
	DateLayout      = "2006-01-02"
	TimeLayout      = "15:04"
	SubmittedLayout = "2006-01-02 15:04:05"
)

// Appointment is a booking request submitted through the public form.
// JSON names match the table columns and the legacy appointments.json file.
type Appointment struct {
	ID          string `json:"id"`
	FullName    string `json:"full_name"`
	Phone       string `json:"phone"`
	Email       string `json:"email"`
	Service     string `json:"service"`
	Dentist     string `json:"dentist"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	SubmittedAt string `json:"submitted_at"`
	Notes       string `json:"notes"`
}

// Day parses Date as a calendar day. ok is false for empty or malformed dates.
func (a *Appointment) Day() (day time.Time, ok bool) {
	if a.Date == "" {
		return time.Time{}, false
	}
	d, err := time.Parse(DateLayout, a.Date)
	if err != nil {
		return time.Time{}, false
	}
	return d, true
}
