// Package subscribers stores newsletter sign-ups from the site footer.
package subscribers

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"freakfest/pkg/models"
)

var ErrInvalidEmail = errors.New("invalid email")

const (
	maxEmailLen = 255
	maxNameLen  = 100
)

// NormalizeEmail trims and lower-cases s and applies the minimal checks the
// signup form relies on.
func NormalizeEmail(s string) (string, error) {
	e := strings.ToLower(strings.TrimSpace(s))
	if e == "" || len(e) > maxEmailLen || strings.ContainsAny(e, " \t\r\n") {
		return "", ErrInvalidEmail
	}
	at := strings.IndexByte(e, '@')
	if at <= 0 || at == len(e)-1 {
		return "", ErrInvalidEmail
	}
	return e, nil
}

type Repo struct {
	DB  *sql.DB
	now func() time.Time
}

func NewRepo(db *sql.DB) *Repo {
	return &Repo{DB: db, now: time.Now}
}

// Subscribe stores email once. existing is true when it was already there;
// the stored name is left unchanged in that case.
func (r *Repo) Subscribe(ctx context.Context, email, name string) (sub models.Subscriber, existing bool, err error) {
	email, err = NormalizeEmail(email)
	if err != nil {
		return models.Subscriber{}, false, err
	}

	sub = models.Subscriber{
		ID:        uuid.NewString(),
		Email:     email,
		Name:      strings.TrimSpace(name),
		CreatedAt: r.now().UTC(),
	}
	res, err := r.DB.ExecContext(ctx, `
		INSERT INTO subscribers (id, email, name, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(email) DO NOTHING
	`, sub.ID, sub.Email, sub.Name, sub.CreatedAt)
	if err != nil {
		return models.Subscriber{}, false, fmt.Errorf("insert subscriber: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return models.Subscriber{}, false, fmt.Errorf("insert subscriber: %w", err)
	}
	if n == 1 {
		return sub, false, nil
	}

	prev, err := r.GetByEmail(ctx, email)
	if err != nil {
		return models.Subscriber{}, false, err
	}
	if prev == nil {
		return models.Subscriber{}, false, fmt.Errorf("subscriber %s vanished after conflict", email)
	}
	return *prev, true, nil
}

func (r *Repo) GetByEmail(ctx context.Context, email string) (*models.Subscriber, error) {
	row := r.DB.QueryRowContext(ctx, `
		SELECT id, email, name, created_at FROM subscribers WHERE email = ?
	`, strings.ToLower(strings.TrimSpace(email)))

	var s models.Subscriber
	if err := row.Scan(&s.ID, &s.Email, &s.Name, &s.CreatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan subscriber: %w", err)
	}
	return &s, nil
}

func (r *Repo) Count(ctx context.Context) (int, error) {
	var n int
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM subscribers`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count subscribers: %w", err)
	}
	return n, nil
}

// List returns subscribers newest first.
func (r *Repo) List(ctx context.Context, limit, offset int) ([]models.Subscriber, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, email, name, created_at
		FROM subscribers
		ORDER BY created_at DESC, email
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list subscribers: %w", err)
	}
	defer rows.Close()

	out := make([]models.Subscriber, 0)
	for rows.Next() {
		var s models.Subscriber
		if err := rows.Scan(&s.ID, &s.Email, &s.Name, &s.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan subscriber: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Each calls fn for every subscriber in sign-up order.
func (r *Repo) Each(ctx context.Context, fn func(models.Subscriber) error) error {
	rows, err := r.DB.QueryContext(ctx, `
		SELECT id, email, name, created_at FROM subscribers ORDER BY created_at, email
	`)
	if err != nil {
		return fmt.Errorf("query subscribers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var s models.Subscriber
		if err := rows.Scan(&s.ID, &s.Email, &s.Name, &s.CreatedAt); err != nil {
			return fmt.Errorf("scan subscriber: %w", err)
		}
		if err := fn(s); err != nil {
			return err
		}
	}
	return rows.Err()
}
