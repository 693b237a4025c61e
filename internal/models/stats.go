package models

// Stats are the dashboard tallies over the stored appointments.
type Stats struct {
	Total     int            `json:"total"`
	Today     int            `json:"today"`
	ThisWeek  int            `json:"this_week"`
	ByService map[string]int `json:"by_service"`
}
