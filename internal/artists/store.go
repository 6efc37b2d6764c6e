package artists

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"freakfest/pkg/models"
)

const snapshotSourceName = "snapshot"

// Store keeps the last successfully loaded lineup in the artists table so
// the site can still show artists while the sheet is unreachable.
type Store struct {
	DB *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{DB: db}
}

// SaveSnapshot replaces the stored lineup in a single transaction.
func (s *Store) SaveSnapshot(ctx context.Context, artists []models.Artist) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM artists`); err != nil {
		return fmt.Errorf("clear artists: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO artists (id, position, name, instagram_handle, instagram_url, profile_image_url, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`)
	if err != nil {
		return fmt.Errorf("prepare stmt: %w", err)
	}
	defer stmt.Close()

	now := time.Now().UTC()
	for i, a := range artists {
		if _, err := stmt.ExecContext(ctx, a.ID, i, a.Name, a.InstagramHandle, a.InstagramURL, a.ProfileImageURL, now); err != nil {
			return fmt.Errorf("insert artist %s: %w", a.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}

func (s *Store) LoadSnapshot(ctx context.Context) ([]models.Artist, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, instagram_handle, instagram_url, profile_image_url
		FROM artists ORDER BY position
	`)
	if err != nil {
		return nil, fmt.Errorf("query artists: %w", err)
	}
	defer rows.Close()

	var out []models.Artist
	for rows.Next() {
		var a models.Artist
		if err := rows.Scan(&a.ID, &a.Name, &a.InstagramHandle, &a.InstagramURL, &a.ProfileImageURL); err != nil {
			return nil, fmt.Errorf("scan artist: %w", err)
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// SnapshotSource serves the stored lineup as sheet rows, so it can sit last
// in a Loader behind the live sources. An empty snapshot is an error.
type SnapshotSource struct {
	Store *Store
}

func (s SnapshotSource) Name() string { return snapshotSourceName }

func (s SnapshotSource) Fetch(ctx context.Context) ([]Row, error) {
	artists, err := s.Store.LoadSnapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}
	if len(artists) == 0 {
		return nil, fmt.Errorf("snapshot: no stored artists")
	}
	rows := make([]Row, 0, len(artists))
	for _, a := range artists {
		rows = append(rows, Row{
			{Header: "artist", Value: a.Name},
			{Header: "instagram", Value: a.InstagramHandle},
			{Header: "photo", Value: a.ProfileImageURL},
		})
	}
	return rows, nil
}
