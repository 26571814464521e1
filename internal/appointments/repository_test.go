package appointments

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	pgxmock "github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var apptCols = []string{
	"id", "customer_name", "customer_email", "customer_phone",
	"hairstyle_id", "hairstyle_name", "duration_minutes", "start_time", "status",
	"calendar_event_id", "cancel_token", "created_at", "updated_at",
}

func apptRow(a Appointment) *pgxmock.Rows {
	return pgxmock.NewRows(apptCols).AddRow(
		a.ID, a.CustomerName, a.CustomerEmail, a.CustomerPhone,
		a.HairstyleID, a.HairstyleName, a.DurationMinutes, a.StartTime, a.Status,
		a.CalendarEventID, a.CancelToken, a.CreatedAt, a.UpdatedAt,
	)
}

func TestRepositoryListBooked(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepositoryWithDB(mock)
	from := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 0, 1)

	mock.ExpectQuery("SELECT start_time, duration_minutes").
		WithArgs(from, to, StatusCancelled).
		WillReturnRows(pgxmock.NewRows([]string{"start_time", "duration_minutes"}).
			AddRow(from.Add(9*time.Hour), 60).
			AddRow(from.Add(14*time.Hour), 30))

	visits, err := repo.ListBooked(context.Background(), from, to)
	require.NoError(t, err)
	require.Len(t, visits, 2)
	assert.Equal(t, from.Add(9*time.Hour), visits[0].Start)
	assert.Equal(t, time.Hour, visits[0].Duration)
	assert.Equal(t, 30*time.Minute, visits[1].Duration)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCreate(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepositoryWithDB(mock)
	now := time.Now()
	start := time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), "Jane Doe", "jane@example.com", "",
			pgxmock.AnyArg(), "Balayage", 150, start, StatusConfirmed, pgxmock.AnyArg()).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(now, now))

	created, err := repo.Create(context.Background(), Appointment{
		CustomerName:    "Jane Doe",
		CustomerEmail:   "jane@example.com",
		HairstyleID:     uuid.New(),
		HairstyleName:   "Balayage",
		DurationMinutes: 150,
		StartTime:       start,
		Status:          StatusConfirmed,
	})
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, created.ID)
	assert.NotEmpty(t, created.CancelToken)
	assert.Equal(t, now, created.CreatedAt)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCreateMapsUniqueViolation(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepositoryWithDB(mock)

	mock.ExpectQuery("INSERT INTO appointments").
		WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
			pgxmock.AnyArg(), pgxmock.AnyArg()).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: "appointments_active_start_key"})

	_, err = repo.Create(context.Background(), Appointment{
		CustomerName:    "Jane Doe",
		CustomerEmail:   "jane@example.com",
		HairstyleID:     uuid.New(),
		HairstyleName:   "Balayage",
		DurationMinutes: 150,
		StartTime:       time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		Status:          StatusConfirmed,
	})
	assert.ErrorIs(t, err, ErrSlotTaken)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCancelByToken(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepositoryWithDB(mock)
	appt := Appointment{
		ID:              uuid.New(),
		CustomerName:    "Jane Doe",
		CustomerEmail:   "jane@example.com",
		HairstyleID:     uuid.New(),
		HairstyleName:   "Balayage",
		DurationMinutes: 150,
		StartTime:       time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC),
		Status:          StatusCancelled,
		CancelToken:     "tok-123",
		CreatedAt:       time.Now(),
		UpdatedAt:       time.Now(),
	}

	mock.ExpectQuery("UPDATE appointments").
		WithArgs("tok-123", StatusCancelled).
		WillReturnRows(apptRow(appt))

	got, err := repo.CancelByToken(context.Background(), "tok-123")
	require.NoError(t, err)
	assert.Equal(t, appt.ID, got.ID)
	assert.Equal(t, StatusCancelled, got.Status)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryCancelByTokenUnknown(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepositoryWithDB(mock)

	mock.ExpectQuery("UPDATE appointments").
		WithArgs("stale", StatusCancelled).
		WillReturnRows(pgxmock.NewRows(apptCols))

	_, err = repo.CancelByToken(context.Background(), "stale")
	assert.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryListAppliesFilters(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepositoryWithDB(mock)
	from := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM appointments WHERE").
		WithArgs(from, StatusConfirmed, 25, 0).
		WillReturnRows(pgxmock.NewRows(apptCols))

	_, err = repo.List(context.Background(), ListFilter{
		From:   &from,
		Status: StatusConfirmed,
		Limit:  25,
	})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestRepositoryListClampsLimit(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	repo := NewRepositoryWithDB(mock)

	mock.ExpectQuery("SELECT (.+) FROM appointments WHERE").
		WithArgs(50, 0).
		WillReturnRows(pgxmock.NewRows(apptCols))

	_, err = repo.List(context.Background(), ListFilter{Limit: 5000})
	require.NoError(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}
