package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"smiledent/internal/models"
)

const appointmentColumns = `id, full_name, phone, email, service, dentist, date, time, submitted_at, notes`

// InsertAppointment stores a fully populated appointment. A duplicate id yields ErrConflict.
func (db *DB) InsertAppointment(ctx context.Context, a *models.Appointment) error {
	query := `INSERT INTO appointments (` + appointmentColumns + `)
              VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query,
		a.ID,
		a.FullName,
		a.Phone,
		a.Email,
		a.Service,
		a.Dentist,
		a.Date,
		a.Time,
		a.SubmittedAt,
		a.Notes,
	)
	if err != nil {
		if isConstraintViolation(err) {
			return fmt.Errorf("insert appointment %s: %w", a.ID, ErrConflict)
		}
		return storageErr("insert appointment", err)
	}
	return nil
}

// ListAppointments returns every appointment, latest date and time first.
func (db *DB) ListAppointments(ctx context.Context) ([]models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments ORDER BY date DESC, time DESC`

	rows, err := db.QueryContext(ctx, query)
	if err != nil {
		return nil, storageErr("list appointments", err)
	}
	defer rows.Close()

	appointments := make([]models.Appointment, 0)
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, storageErr("scan appointment", err)
		}
		appointments = append(appointments, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, storageErr("list appointments", err)
	}

	return appointments, nil
}

// GetAppointment returns the appointment with id, or sql.ErrNoRows when absent.
func (db *DB) GetAppointment(ctx context.Context, id string) (*models.Appointment, error) {
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE id = ?`
	a, err := scanAppointment(db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, storageErr("get appointment", err)
	}
	return a, nil
}

func (db *DB) AppointmentExists(ctx context.Context, id string) (bool, error) {
	var exists bool
	err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM appointments WHERE id = ?)`, id).Scan(&exists)
	if err != nil {
		return false, storageErr("appointment exists", err)
	}
	return exists, nil
}

// DeleteAppointment removes the appointment with id and reports whether a row was removed.
func (db *DB) DeleteAppointment(ctx context.Context, id string) (bool, error) {
	result, err := db.ExecContext(ctx, `DELETE FROM appointments WHERE id = ?`, id)
	if err != nil {
		return false, storageErr("delete appointment", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, storageErr("delete appointment", err)
	}
	return affected > 0, nil
}

func (db *DB) CountAppointments(ctx context.Context) (int, error) {
	var count int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM appointments`).Scan(&count); err != nil {
		return 0, storageErr("count appointments", err)
	}
	return count, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAppointment(row rowScanner) (*models.Appointment, error) {
	var (
		a       models.Appointment
		dentist sql.NullString
		notes   sql.NullString
	)
	err := row.Scan(
		&a.ID,
		&a.FullName,
		&a.Phone,
		&a.Email,
		&a.Service,
		&dentist,
		&a.Date,
		&a.Time,
		&a.SubmittedAt,
		&notes,
	)
	if err != nil {
		return nil, err
	}
	a.Dentist = dentist.String
	a.Notes = notes.String
	return &a, nil
}
