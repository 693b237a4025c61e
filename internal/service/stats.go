package service

import (
	"time"

	"smiledent/internal/models"
)

// ComputeStats tallies the dashboard counters relative to today. Dates that do not
// parse as YYYY-MM-DD count toward Total and ByService only.
func ComputeStats(list []models.Appointment, today time.Time) models.Stats {
	stats := models.Stats{
		Total:     len(list),
		ByService: make(map[string]int),
	}

	todayStr := today.Format(models.DateLayout)
	monday, sunday := isoWeekBounds(today)

	for i := range list {
		a := &list[i]

		service := a.Service
		if service == "" {
			service = models.UnspecifiedService
		}
		stats.ByService[service]++

		if a.Date == todayStr {
			stats.Today++
		}
		if day, ok := a.Day(); ok && !day.Before(monday) && !day.After(sunday) {
			stats.ThisWeek++
		}
	}
	return stats
}

// isoWeekBounds returns Monday and Sunday of the ISO week containing t, as UTC midnights.
func isoWeekBounds(t time.Time) (time.Time, time.Time) {
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := int(day.Weekday()) - 1
	if offset < 0 {
		offset = 6
	}
	monday := day.AddDate(0, 0, -offset)
	return monday, monday.AddDate(0, 0, 6)
}
