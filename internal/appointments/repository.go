package appointments

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/aurelie-dev/salon-booking/internal/availability"
)

type apptDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides persistence for appointments.
type Repository struct {
	db apptDB
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("appointments: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting mocks for tests.
func NewRepositoryWithDB(db apptDB) *Repository {
	return &Repository{db: db}
}

// ListBooked returns the busy visits whose start falls inside [from, to),
// cancelled appointments excluded. It satisfies
// availability.AppointmentSource.
func (r *Repository) ListBooked(ctx context.Context, from, to time.Time) ([]availability.BookedVisit, error) {
	query := `
		SELECT start_time, duration_minutes
		FROM appointments
		WHERE start_time >= $1 AND start_time < $2 AND status <> $3
		ORDER BY start_time
	`
	rows, err := r.db.Query(ctx, query, from, to, StatusCancelled)
	if err != nil {
		return nil, fmt.Errorf("appointments: list booked: %w", err)
	}
	defer rows.Close()

	var out []availability.BookedVisit
	for rows.Next() {
		var (
			start   time.Time
			minutes int
		)
		if err := rows.Scan(&start, &minutes); err != nil {
			return nil, fmt.Errorf("appointments: scan booked visit: %w", err)
		}
		out = append(out, availability.BookedVisit{
			Start:    start,
			Duration: time.Duration(minutes) * time.Minute,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate booked visits: %w", err)
	}
	return out, nil
}

const appointmentColumns = `
	id, customer_name, customer_email, COALESCE(customer_phone, ''),
	hairstyle_id, hairstyle_name, duration_minutes, start_time, status,
	COALESCE(calendar_event_id, ''), cancel_token, created_at, updated_at
`

// Create inserts an appointment. A partial unique index on start_time for
// non-cancelled rows makes the database the final arbiter against double
// booking; unique violations surface as ErrSlotTaken.
func (r *Repository) Create(ctx context.Context, a Appointment) (Appointment, error) {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.CancelToken == "" {
		a.CancelToken = uuid.NewString()
	}
	query := `
		INSERT INTO appointments (
			id, customer_name, customer_email, customer_phone,
			hairstyle_id, hairstyle_name, duration_minutes, start_time, status, cancel_token
		)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		a.ID, a.CustomerName, a.CustomerEmail, a.CustomerPhone,
		a.HairstyleID, a.HairstyleName, a.DurationMinutes, a.StartTime, a.Status, a.CancelToken,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Appointment{}, ErrSlotTaken
		}
		return Appointment{}, fmt.Errorf("appointments: insert: %w", err)
	}
	return a, nil
}

// GetByID returns one appointment.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Appointment, error) {
	row := r.db.QueryRow(ctx, `SELECT `+appointmentColumns+` FROM appointments WHERE id = $1`, id)
	return scanAppointment(row)
}

// CancelByToken cancels the appointment matching a customer's cancel token
// and returns it. Already-cancelled appointments return ErrNotFound so a
// stale link cannot re-trigger notifications.
func (r *Repository) CancelByToken(ctx context.Context, token string) (Appointment, error) {
	query := `
		UPDATE appointments
		SET status = $2, updated_at = now()
		WHERE cancel_token = $1 AND status <> $2
		RETURNING ` + appointmentColumns
	return scanAppointment(r.db.QueryRow(ctx, query, token, StatusCancelled))
}

// Cancel cancels an appointment by id (admin path).
func (r *Repository) Cancel(ctx context.Context, id uuid.UUID) (Appointment, error) {
	query := `
		UPDATE appointments
		SET status = $2, updated_at = now()
		WHERE id = $1 AND status <> $2
		RETURNING ` + appointmentColumns
	return scanAppointment(r.db.QueryRow(ctx, query, id, StatusCancelled))
}

// SetCalendarEventID records the external calendar event backing an
// appointment once the write succeeds.
func (r *Repository) SetCalendarEventID(ctx context.Context, id uuid.UUID, eventID string) error {
	query := `UPDATE appointments SET calendar_event_id = $2, updated_at = now() WHERE id = $1`
	if _, err := r.db.Exec(ctx, query, id, eventID); err != nil {
		return fmt.Errorf("appointments: set calendar event id: %w", err)
	}
	return nil
}

// ListFilter narrows admin listings.
type ListFilter struct {
	From   *time.Time
	To     *time.Time
	Status Status
	Limit  int
	Offset int
}

// List returns appointments for the admin dashboard, newest first.
func (r *Repository) List(ctx context.Context, filter ListFilter) ([]Appointment, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}
	query := `SELECT ` + appointmentColumns + ` FROM appointments WHERE 1=1`
	args := []any{}
	idx := 1
	if filter.From != nil {
		query += fmt.Sprintf(" AND start_time >= $%d", idx)
		args = append(args, *filter.From)
		idx++
	}
	if filter.To != nil {
		query += fmt.Sprintf(" AND start_time < $%d", idx)
		args = append(args, *filter.To)
		idx++
	}
	if filter.Status != "" {
		query += fmt.Sprintf(" AND status = $%d", idx)
		args = append(args, filter.Status)
		idx++
	}
	query += fmt.Sprintf(" ORDER BY start_time DESC LIMIT $%d OFFSET $%d", idx, idx+1)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("appointments: list: %w", err)
	}
	defer rows.Close()

	var out []Appointment
	for rows.Next() {
		a, err := scanAppointment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("appointments: iterate: %w", err)
	}
	return out, nil
}

func scanAppointment(row pgx.Row) (Appointment, error) {
	var a Appointment
	err := row.Scan(
		&a.ID, &a.CustomerName, &a.CustomerEmail, &a.CustomerPhone,
		&a.HairstyleID, &a.HairstyleName, &a.DurationMinutes, &a.StartTime, &a.Status,
		&a.CalendarEventID, &a.CancelToken, &a.CreatedAt, &a.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return Appointment{}, ErrNotFound
	}
	if err != nil {
		return Appointment{}, fmt.Errorf("appointments: scan: %w", err)
	}
	return a, nil
}

var _ availability.AppointmentSource = (*Repository)(nil)
