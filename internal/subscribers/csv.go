package subscribers

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/google/uuid"

	"freakfest/pkg/models"
)

var csvHeader = []string{"id", "email", "name", "created_at"}

// ExportCSV writes every subscriber to w, oldest first.
func (r *Repo) ExportCSV(ctx context.Context, w io.Writer) (int, error) {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return 0, err
	}

	n := 0
	err := r.Each(ctx, func(s models.Subscriber) error {
		n++
		return cw.Write([]string{s.ID, s.Email, s.Name, s.CreatedAt.UTC().Format(time.RFC3339)})
	})
	if err != nil {
		return n, err
	}

	cw.Flush()
	return n, cw.Error()
}

// ImportCSV upserts rows keyed by email. Rows without a valid email are
// skipped; a missing id or created_at is filled in.
func (r *Repo) ImportCSV(ctx context.Context, in io.Reader) (imported, skipped int, err error) {
	cr := csv.NewReader(in)
	cr.FieldsPerRecord = -1

	header, err := readHeader(cr)
	if err != nil {
		return 0, 0, err
	}
	if _, ok := header["email"]; !ok {
		return 0, 0, errors.New("csv has no email column")
	}

	tx, err := r.DB.BeginTx(ctx, nil)
	if err != nil {
		return 0, 0, fmt.Errorf("begin import: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO subscribers (id, email, name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
		  name = CASE WHEN excluded.name != '' THEN excluded.name ELSE subscribers.name END,
		  created_at = MIN(subscribers.created_at, excluded.created_at)
	`)
	if err != nil {
		return 0, 0, fmt.Errorf("prepare import: %w", err)
	}
	defer stmt.Close()

	for {
		row, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return imported, skipped, err
		}
		if len(row) == 0 {
			continue
		}

		email, err := NormalizeEmail(valueAt(header, row, "email"))
		if err != nil {
			skipped++
			continue
		}
		id := valueAt(header, row, "id")
		if id == "" {
			id = uuid.NewString()
		}
		created := r.now().UTC()
		if raw := valueAt(header, row, "created_at"); raw != "" {
			t, err := time.Parse(time.RFC3339, raw)
			if err != nil {
				return imported, skipped, fmt.Errorf("parse created_at for %s: %w", email, err)
			}
			created = t.UTC()
		}

		if _, err := stmt.ExecContext(ctx, id, email, valueAt(header, row, "name"), created); err != nil {
			return imported, skipped, fmt.Errorf("import %s: %w", email, err)
		}
		imported++
	}

	if err := tx.Commit(); err != nil {
		return 0, skipped, fmt.Errorf("commit import: %w", err)
	}
	return imported, skipped, nil
}

func readHeader(r *csv.Reader) (map[string]int, error) {
	row, err := r.Read()
	if err != nil {
		return nil, err
	}
	header := make(map[string]int, len(row))
	for idx, name := range row {
		header[strings.TrimSpace(strings.ToLower(strings.TrimPrefix(name, "\ufeff")))] = idx
	}
	return header, nil
}

func valueAt(header map[string]int, row []string, key string) string {
	idx, ok := header[key]
	if !ok || idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
