package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"

	"smiledent/internal/config"
	"smiledent/internal/models"

	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

var errRowNotFound = errors.New("appointment row not found")

var headerRow = []interface{}{
	"ID", "Nom complet", "Téléphone", "Email", "Service", "Dentiste", "Date", "Heure", "Soumis le", "Notes",
}

// SheetsService mirrors appointments into one sheet of a spreadsheet, one row per
// appointment keyed by the id in column A.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	sheetName     string
	catalog       models.Catalog
	rowCache      map[string]int
	cacheMu       sync.RWMutex
}

// NewSheetsService authenticates with the service account credentials file.
func NewSheetsService(ctx context.Context, cfg config.GoogleConfig, catalog models.Catalog) (*SheetsService, error) {
	credentialsJSON, err := os.ReadFile(cfg.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	jwtConfig, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(jwtConfig.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}
	return newSheetsService(srv, cfg.SpreadsheetID, cfg.SheetName, catalog), nil
}

func newSheetsService(srv *sheets.Service, spreadsheetID, sheetName string, catalog models.Catalog) *SheetsService {
	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		sheetName:     sheetName,
		catalog:       catalog,
		rowCache:      make(map[string]int),
	}
}

func (s *SheetsService) rangeOf(cells string) string {
	return s.sheetName + "!" + cells
}

// TestConnection reads the header cell to check access to the spreadsheet.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	if _, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeOf("A1")).Context(ctx).Do(); err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// EnsureHeader writes the column titles into row 1.
func (s *SheetsService) EnsureHeader(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.rangeOf("A1:J1"), &sheets.ValueRange{
		Values: [][]interface{}{headerRow},
	}).ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("unable to write header: %w", err)
	}
	return nil
}

// WarmUpCache indexes the row of every id currently in column A.
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeOf("A:A")).Context(ctx).Do()
	if err != nil {
		return err
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[string]int)
	for i, row := range resp.Values {
		if i == 0 || len(row) == 0 {
			continue
		}
		if id := cellString(row[0]); id != "" {
			s.rowCache[id] = i + 1
		}
	}
	return nil
}

// FindAppointmentRow returns the 1-based sheet row holding id.
func (s *SheetsService) FindAppointmentRow(ctx context.Context, id string) (int, error) {
	if id == "" {
		return 0, fmt.Errorf("appointment id is required")
	}
	if row, ok := s.getCachedRow(id); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, s.rangeOf("A:A")).Context(ctx).Do()
	if err != nil {
		return 0, err
	}
	for i, row := range resp.Values {
		if len(row) > 0 && cellString(row[0]) == id {
			s.setCachedRow(id, i+1)
			return i + 1, nil
		}
	}
	return 0, errRowNotFound
}

func (s *SheetsService) AppendAppointment(ctx context.Context, a *models.Appointment) error {
	resp, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, s.rangeOf("A:A"), &sheets.ValueRange{
		Values: [][]interface{}{appointmentRowValues(a, s.catalog)},
	}).ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	if err != nil {
		return err
	}
	if resp.Updates != nil {
		if row, ok := rowFromRange(resp.Updates.UpdatedRange); ok {
			s.setCachedRow(a.ID, row)
		}
	}
	return nil
}

// UpsertAppointment rewrites the appointment's row, appending one if it has none.
func (s *SheetsService) UpsertAppointment(ctx context.Context, a *models.Appointment) error {
	if a == nil {
		return fmt.Errorf("appointment is nil")
	}

	row, err := s.FindAppointmentRow(ctx, a.ID)
	if errors.Is(err, errRowNotFound) {
		return s.AppendAppointment(ctx, a)
	}
	if err != nil {
		return err
	}

	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, s.rangeOf(fmt.Sprintf("A%d:J%d", row, row)), &sheets.ValueRange{
		Values: [][]interface{}{appointmentRowValues(a, s.catalog)},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// DeleteAppointment clears the appointment's row. A missing row is not an error.
func (s *SheetsService) DeleteAppointment(ctx context.Context, id string) error {
	row, err := s.FindAppointmentRow(ctx, id)
	if errors.Is(err, errRowNotFound) {
		return nil
	}
	if err != nil {
		return err
	}

	_, err = s.service.Spreadsheets.Values.Clear(s.spreadsheetID, s.rangeOf(fmt.Sprintf("A%d:J%d", row, row)), &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err == nil {
		s.deleteCachedRow(id)
	}
	return err
}

func (s *SheetsService) getCachedRow(id string) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id string, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

func (s *SheetsService) deleteCachedRow(id string) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	delete(s.rowCache, id)
}

func appointmentRowValues(a *models.Appointment, catalog models.Catalog) []interface{} {
	return []interface{}{
		a.ID,
		a.FullName,
		a.Phone,
		a.Email,
		catalog.ServiceName(a.Service),
		catalog.DentistName(a.Dentist),
		a.Date,
		a.Time,
		a.SubmittedAt,
		a.Notes,
	}
}

func cellString(v interface{}) string {
	switch c := v.(type) {
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	default:
		return fmt.Sprint(c)
	}
}

// rowFromRange extracts the first row number from an A1 range such as "Sheet!A10:J10".
func rowFromRange(r string) (int, bool) {
	if i := strings.LastIndex(r, "!"); i >= 0 {
		r = r[i+1:]
	}
	if i := strings.Index(r, ":"); i >= 0 {
		r = r[:i]
	}
	r = strings.TrimLeft(r, "ABCDEFGHIJKLMNOPQRSTUVWXYZ")
	row, err := strconv.Atoi(r)
	if err != nil || row <= 0 {
		return 0, false
	}
	return row, true
}
