// Package catalog manages the hairstyles customers can book: name, length
// of the appointment, price and a display image hosted elsewhere.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a hairstyle id does not exist.
var ErrNotFound = errors.New("catalog: hairstyle not found")

// ErrInvalidHairstyle is returned when a hairstyle fails validation.
var ErrInvalidHairstyle = errors.New("catalog: invalid hairstyle")

// Hairstyle is one bookable service.
type Hairstyle struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Description     string    `json:"description,omitempty"`
	DurationMinutes int       `json:"duration_minutes"`
	PriceCents      int       `json:"price_cents"`
	ImageURL        string    `json:"image_url,omitempty"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
}

// Duration returns the appointment length for this style.
func (h Hairstyle) Duration() time.Duration {
	return time.Duration(h.DurationMinutes) * time.Minute
}

type catalogDB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository provides persistence for the hairstyle catalog.
type Repository struct {
	db catalogDB
}

// NewRepository creates a repository backed by a pgx pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	if pool == nil {
		panic("catalog: pgx pool required")
	}
	return &Repository{db: pool}
}

// NewRepositoryWithDB allows injecting mocks for tests.
func NewRepositoryWithDB(db catalogDB) *Repository {
	return &Repository{db: db}
}

const hairstyleColumns = `id, name, COALESCE(description, ''), duration_minutes, price_cents, COALESCE(image_url, ''), active, created_at`

// List returns hairstyles ordered by name. When onlyActive is set, retired
// styles are omitted.
func (r *Repository) List(ctx context.Context, onlyActive bool) ([]Hairstyle, error) {
	query := `SELECT ` + hairstyleColumns + ` FROM hairstyles`
	if onlyActive {
		query += ` WHERE active`
	}
	query += ` ORDER BY name`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("catalog: list hairstyles: %w", err)
	}
	defer rows.Close()

	var out []Hairstyle
	for rows.Next() {
		h, err := scanHairstyle(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("catalog: iterate hairstyles: %w", err)
	}
	return out, nil
}

// GetByID returns one hairstyle.
func (r *Repository) GetByID(ctx context.Context, id uuid.UUID) (Hairstyle, error) {
	row := r.db.QueryRow(ctx, `SELECT `+hairstyleColumns+` FROM hairstyles WHERE id = $1`, id)
	h, err := scanHairstyle(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Hairstyle{}, ErrNotFound
	}
	return h, err
}

// Create inserts a new hairstyle and returns it with its generated id.
func (r *Repository) Create(ctx context.Context, h Hairstyle) (Hairstyle, error) {
	if h.ID == uuid.Nil {
		h.ID = uuid.New()
	}
	if strings.TrimSpace(h.Name) == "" {
		return Hairstyle{}, fmt.Errorf("%w: name required", ErrInvalidHairstyle)
	}
	if h.DurationMinutes <= 0 {
		return Hairstyle{}, fmt.Errorf("%w: duration must be positive", ErrInvalidHairstyle)
	}
	query := `
		INSERT INTO hairstyles (id, name, description, duration_minutes, price_cents, image_url, active)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, NULLIF($6, ''), $7)
		RETURNING created_at
	`
	h.Active = true
	err := r.db.QueryRow(ctx, query, h.ID, h.Name, h.Description, h.DurationMinutes, h.PriceCents, h.ImageURL, h.Active).Scan(&h.CreatedAt)
	if err != nil {
		return Hairstyle{}, fmt.Errorf("catalog: insert hairstyle: %w", err)
	}
	return h, nil
}

// Update replaces the editable fields of a hairstyle.
func (r *Repository) Update(ctx context.Context, h Hairstyle) error {
	if strings.TrimSpace(h.Name) == "" {
		return fmt.Errorf("%w: name required", ErrInvalidHairstyle)
	}
	if h.DurationMinutes <= 0 {
		return fmt.Errorf("%w: duration must be positive", ErrInvalidHairstyle)
	}
	query := `
		UPDATE hairstyles
		SET name = $2,
			description = NULLIF($3, ''),
			duration_minutes = $4,
			price_cents = $5,
			image_url = NULLIF($6, ''),
			active = $7
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, query, h.ID, h.Name, h.Description, h.DurationMinutes, h.PriceCents, h.ImageURL, h.Active)
	if err != nil {
		return fmt.Errorf("catalog: update hairstyle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// Deactivate retires a hairstyle without deleting its booking history.
func (r *Repository) Deactivate(ctx context.Context, id uuid.UUID) error {
	tag, err := r.db.Exec(ctx, `UPDATE hairstyles SET active = false WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("catalog: deactivate hairstyle: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanHairstyle(row pgx.Row) (Hairstyle, error) {
	var h Hairstyle
	err := row.Scan(&h.ID, &h.Name, &h.Description, &h.DurationMinutes, &h.PriceCents, &h.ImageURL, &h.Active, &h.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Hairstyle{}, err
		}
		return Hairstyle{}, fmt.Errorf("catalog: scan hairstyle: %w", err)
	}
	return h, nil
}
