// Package artists loads the festival lineup from the published Google Sheet,
// normalizes it into models.Artist and serves it from a TTL cache.
package artists

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"freakfest/pkg/models"
)

const (
	// DefaultSheetBase is the Google Sheets document root.
	DefaultSheetBase = "https://docs.google.com/spreadsheets/d/"

	DefaultSheetID  = "1olXuQXZWpPCC87JLfS3P94gvZ5YRh2YoOJuSYa1RaYQ"
	DefaultSheetGID = "1711871810"
)

// ErrNoSources is returned by a Loader with nothing configured.
var ErrNoSources = errors.New("no artist sources configured")

// Cell is one value in a sheet row. Header is trimmed and lower-cased.
type Cell struct {
	Header string
	Value  string
}

// Row keeps cells in sheet column order.
type Row []Cell

// Source is implemented by each way of reading the lineup: the CSV export,
// the published HTML page, or the last snapshot saved in the database.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]Row, error)
}

// Loader tries each source in order; the first one that answers wins.
type Loader struct {
	Sources []Source
	Log     *zap.Logger

	// OnLoad, when set, receives every successful result from a live
	// source. The api-server uses it to refresh the database snapshot.
	OnLoad func(ctx context.Context, artists []models.Artist)
}

func NewLoader(log *zap.Logger, sources ...Source) *Loader {
	if log == nil {
		log = zap.NewNop()
	}
	return &Loader{Sources: sources, Log: log}
}

// Load returns normalized artists from the first source that succeeds.
// When every source fails the last error is returned.
func (l *Loader) Load(ctx context.Context) ([]models.Artist, error) {
	if len(l.Sources) == 0 {
		return nil, ErrNoSources
	}

	var lastErr error
	for _, src := range l.Sources {
		rows, err := src.Fetch(ctx)
		if err != nil {
			l.Log.Warn("artist source failed", zap.String("source", src.Name()), zap.Error(err))
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}

		artists := Normalize(rows)
		l.Log.Info("loaded artists", zap.String("source", src.Name()), zap.Int("count", len(artists)))
		if l.OnLoad != nil && src.Name() != snapshotSourceName {
			l.OnLoad(ctx, artists)
		}
		return artists, nil
	}
	return nil, fmt.Errorf("failed to fetch artists sheet: %w", lastErr)
}

func sheetURL(base, id, path string) string {
	if base == "" {
		base = DefaultSheetBase
	}
	return strings.TrimRight(base, "/") + "/" + id + "/" + path
}
