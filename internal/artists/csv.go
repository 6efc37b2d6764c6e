package artists

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"freakfest/internal/httpx"
)

// CSVSource reads the sheet's CSV export.
type CSVSource struct {
	BaseURL string
	SheetID string
	GID     string
	Client  *http.Client
}

func NewCSVSource(sheetID, gid string) *CSVSource {
	return &CSVSource{
		BaseURL: DefaultSheetBase,
		SheetID: sheetID,
		GID:     gid,
		Client:  httpx.NewSheetClient(),
	}
}

func (s *CSVSource) Name() string { return "sheet_csv" }

func (s *CSVSource) URL() string {
	return sheetURL(s.BaseURL, s.SheetID, "export?format=csv&gid="+url.QueryEscape(s.GID))
}

func (s *CSVSource) Fetch(ctx context.Context) ([]Row, error) {
	resp, err := httpx.Get(ctx, s.Client, s.URL(), http.Header{"Cache-Control": {"no-cache"}})
	if err != nil {
		return nil, fmt.Errorf("sheet_csv: %w", err)
	}
	defer resp.Body.Close()

	rows, err := ParseCSV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sheet_csv: %w", err)
	}
	return rows, nil
}

// ParseCSV reads a header row followed by data rows. Quoted fields may
// contain commas, newlines and doubled quotes; short rows are padded with
// empty cells and rows with no content are skipped.
func ParseCSV(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.LazyQuotes = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w", err)
	}
	header = normalizeHeader(header)

	var rows []Row
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("read csv: %w", err)
		}
		if row, ok := makeRow(header, rec); ok {
			rows = append(rows, row)
		}
	}
	return rows, nil
}

func normalizeHeader(h []string) []string {
	out := make([]string, len(h))
	for i, v := range h {
		out[i] = strings.ToLower(strings.TrimSpace(strings.TrimPrefix(v, "\ufeff")))
	}
	return out
}

func makeRow(header, values []string) (Row, bool) {
	row := make(Row, len(header))
	blank := true
	for i, h := range header {
		v := ""
		if i < len(values) {
			v = strings.TrimSpace(values[i])
		}
		if v != "" {
			blank = false
		}
		row[i] = Cell{Header: h, Value: v}
	}
	return row, !blank
}
