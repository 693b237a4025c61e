package export

import (
	"fmt"
	"io"
	"sort"
	"time"

	"smiledent/internal/models"

	"github.com/xuri/excelize/v2"
)

const (
	appointmentsSheet = "Rendez-vous"
	statsSheet        = "Statistiques"
)

var appointmentHeaders = []string{
	"ID", "Nom complet", "Téléphone", "Email", "Service", "Dentiste", "Date", "Heure", "Soumis le", "Notes",
}

// FileName is the download name for an export generated at now.
func FileName(now time.Time) string {
	return fmt.Sprintf("rendez-vous_%s.xlsx", now.Format("20060102_150405"))
}

// WriteAppointments renders the appointment list and the dashboard tallies as an
// xlsx workbook into w.
func WriteAppointments(w io.Writer, list []models.Appointment, stats models.Stats, catalog models.Catalog, generatedAt time.Time) error {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(appointmentsSheet)
	if err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	headerStyle, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font: &excelize.Font{Bold: true},
	})
	if err != nil {
		return fmt.Errorf("error creating style: %w", err)
	}

	if err := writeRow(f, appointmentsSheet, 1, toCells(appointmentHeaders)); err != nil {
		return err
	}
	lastCol, _ := excelize.ColumnNumberToName(len(appointmentHeaders))
	_ = f.SetCellStyle(appointmentsSheet, "A1", lastCol+"1", headerStyle)

	for i := range list {
		a := &list[i]
		row := []interface{}{
			a.ID, a.FullName, a.Phone, a.Email,
			catalog.ServiceName(a.Service), catalog.DentistName(a.Dentist),
			a.Date, a.Time, a.SubmittedAt, a.Notes,
		}
		if err := writeRow(f, appointmentsSheet, i+2, row); err != nil {
			return err
		}
	}
	_ = f.SetColWidth(appointmentsSheet, "A", "A", 24)
	_ = f.SetColWidth(appointmentsSheet, "B", lastCol, 18)

	if _, err := f.NewSheet(statsSheet); err != nil {
		return fmt.Errorf("error creating sheet: %w", err)
	}
	summary := [][]interface{}{
		{"Généré le", generatedAt.Format(models.SubmittedLayout)},
		{"Total", stats.Total},
		{"Aujourd'hui", stats.Today},
		{"Cette semaine", stats.ThisWeek},
		{},
		{"Service", "Rendez-vous"},
	}
	services := make([]string, 0, len(stats.ByService))
	for code := range stats.ByService {
		services = append(services, code)
	}
	sort.Strings(services)
	for _, code := range services {
		summary = append(summary, []interface{}{catalog.ServiceName(code), stats.ByService[code]})
	}
	for i, row := range summary {
		if len(row) == 0 {
			continue
		}
		if err := writeRow(f, statsSheet, i+1, row); err != nil {
			return err
		}
	}
	_ = f.SetCellStyle(statsSheet, "A6", "B6", headerStyle)
	_ = f.SetColWidth(statsSheet, "A", "A", 28)

	if err := f.Write(w); err != nil {
		return fmt.Errorf("error writing workbook: %w", err)
	}
	return nil
}

func writeRow(f *excelize.File, sheet string, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := f.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("error writing row %d: %w", row, err)
	}
	return nil
}

func toCells(values []string) []interface{} {
	cells := make([]interface{}, len(values))
	for i, v := range values {
		cells[i] = v
	}
	return cells
}
