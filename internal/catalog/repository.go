package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"photodrop/internal/model"
)

// ErrNotFound is returned when an asset id has no row.
var ErrNotFound = errors.New("asset not found in catalog")

// Record is one row of the assets table: the asset metadata plus the object
// storage keys needed to export its bytes.
type Record struct {
	Asset         model.Asset
	FileName      string
	ObjectKey     string
	ContentType   string
	LiveVideoKey  string
	LiveVideoName string
}

// Repository wraps all SQL used by the server and the ingest worker.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository constructs a repository.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

const assetColumns = `id, file_name, object_key, live_video_key, live_video_name,
	content_type, media_type, subtypes, width, height, duration_seconds,
	favorite, hidden, latitude, longitude, altitude, created_at, modified_at`

// Insert stores a newly ingested asset.
func (r *Repository) Insert(ctx context.Context, rec *Record) error {
	a := &rec.Asset
	var lat, lon, alt *float64
	if a.Location != nil {
		lat, lon, alt = &a.Location.Latitude, &a.Location.Longitude, &a.Location.Altitude
	}
	_, err := r.pool.Exec(ctx, `
		INSERT INTO assets (`+assetColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)
		ON CONFLICT (id) DO NOTHING
	`, a.ID, rec.FileName, rec.ObjectKey, nullable(rec.LiveVideoKey), nullable(rec.LiveVideoName),
		rec.ContentType, string(a.Kind), strings.Join(a.Subtypes, ","), a.Width, a.Height,
		a.DurationSeconds, a.IsFavorite, a.IsHidden, lat, lon, alt, a.CreatedAt, a.ModifiedAt)
	if err != nil {
		return fmt.Errorf("insert asset: %w", err)
	}
	return nil
}

// Get returns a single record by id.
func (r *Repository) Get(ctx context.Context, id string) (*Record, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+assetColumns+` FROM assets WHERE id=$1`, id)
	rec, err := scanRecord(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select asset: %w", err)
	}
	return rec, nil
}

// ListSince returns records created strictly after since, ascending by
// creation time. A zero since returns everything, undated rows first.
func (r *Repository) ListSince(ctx context.Context, since time.Time) ([]Record, error) {
	query := `SELECT ` + assetColumns + ` FROM assets ORDER BY created_at ASC NULLS FIRST, id ASC`
	args := []any{}
	if !since.IsZero() {
		query = `SELECT ` + assetColumns + ` FROM assets WHERE created_at > $1
			ORDER BY created_at ASC, id ASC`
		args = append(args, since)
	}
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assets: %w", err)
	}
	defer rows.Close()
	var out []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan asset: %w", err)
		}
		out = append(out, *rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate assets: %w", err)
	}
	return out, nil
}

func scanRecord(row pgx.Row) (*Record, error) {
	var (
		rec       Record
		liveKey   sql.NullString
		liveName  sql.NullString
		mediaType string
		subtypes  string
		lat, lon  sql.NullFloat64
		alt       sql.NullFloat64
		created   sql.NullTime
		modified  sql.NullTime
	)
	a := &rec.Asset
	if err := row.Scan(&a.ID, &rec.FileName, &rec.ObjectKey, &liveKey, &liveName,
		&rec.ContentType, &mediaType, &subtypes, &a.Width, &a.Height, &a.DurationSeconds,
		&a.IsFavorite, &a.IsHidden, &lat, &lon, &alt, &created, &modified); err != nil {
		return nil, err
	}
	if created.Valid {
		t := created.Time.UTC()
		a.CreatedAt = &t
	}
	if modified.Valid {
		t := modified.Time.UTC()
		a.ModifiedAt = &t
	}
	rec.LiveVideoKey = liveKey.String
	rec.LiveVideoName = liveName.String
	a.Kind = model.Kind(mediaType)
	if subtypes != "" {
		a.Subtypes = strings.Split(subtypes, ",")
	}
	if lat.Valid && lon.Valid {
		a.Location = &model.Location{
			Latitude:  lat.Float64,
			Longitude: lon.Float64,
			Altitude:  alt.Float64,
		}
	}
	return &rec, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
