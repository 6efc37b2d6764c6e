package artists

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"freakfest/internal/httpx"
)

// HTMLSource reads the "publish to web" page of the sheet. It is slower
// than the CSV export but keeps working when exports are disabled.
type HTMLSource struct {
	BaseURL string
	SheetID string
	GID     string
	Client  *http.Client
}

func NewHTMLSource(sheetID, gid string) *HTMLSource {
	return &HTMLSource{
		BaseURL: DefaultSheetBase,
		SheetID: sheetID,
		GID:     gid,
		Client:  httpx.NewSheetClient(),
	}
}

func (s *HTMLSource) Name() string { return "sheet_html" }

func (s *HTMLSource) URL() string {
	return sheetURL(s.BaseURL, s.SheetID, "pubhtml?gid="+url.QueryEscape(s.GID)+"&single=true")
}

func (s *HTMLSource) Fetch(ctx context.Context) ([]Row, error) {
	resp, err := httpx.Get(ctx, s.Client, s.URL(), http.Header{"Cache-Control": {"no-cache"}})
	if err != nil {
		return nil, fmt.Errorf("sheet_html: %w", err)
	}
	defer resp.Body.Close()

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("sheet_html: parse html: %w", err)
	}
	return parseWaffle(doc)
}

// parseWaffle reads the grid Google renders for published sheets. Each tr
// starts with a th row number; the data sits in td cells.
func parseWaffle(doc *goquery.Document) ([]Row, error) {
	table := doc.Find("table.waffle").First()
	if table.Length() == 0 {
		return nil, fmt.Errorf("sheet_html: no table.waffle in page")
	}

	var (
		header []string
		rows   []Row
	)
	table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
		var values []string
		tr.Find("td").Each(func(_ int, td *goquery.Selection) {
			values = append(values, cellText(td))
		})
		if header == nil {
			if !allBlank(values) {
				header = normalizeHeader(values)
			}
			return
		}
		if row, ok := makeRow(header, values); ok {
			rows = append(rows, row)
		}
	})
	return rows, nil
}

// cellText prefers a link target over its label, since sheet cells holding
// URLs are rendered as anchors whose text may be shortened.
func cellText(td *goquery.Selection) string {
	if href, ok := td.Find("a").First().Attr("href"); ok {
		if u := unwrapGoogleRedirect(href); u != "" {
			return u
		}
	}
	return strings.TrimSpace(td.Text())
}

// Published sheets route links through https://www.google.com/url?q=<target>.
func unwrapGoogleRedirect(href string) string {
	u, err := url.Parse(href)
	if err != nil {
		return ""
	}
	if strings.HasSuffix(u.Host, "google.com") && u.Path == "/url" {
		return u.Query().Get("q")
	}
	if u.Scheme == "http" || u.Scheme == "https" {
		return href
	}
	return ""
}

func allBlank(vs []string) bool {
	for _, v := range vs {
		if strings.TrimSpace(v) != "" {
			return false
		}
	}
	return true
}
