// Package jma implements the Japan Meteorological Agency secondary adapter.
// JMA publishes typhoon positions as an HTML table rather than an API, so
// this adapter walks the document tree, collects table rows, and runs
// independent regex scans over the cell text. Column order is not assumed:
// coordinate, wind, and pressure are each found wherever they appear in the
// row.
package jma

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/bayanforecast/stormwatch/internal/core/domain"
	"github.com/bayanforecast/stormwatch/internal/core/scale"
	"github.com/bayanforecast/stormwatch/internal/core/stormtext"
)

const providerName = "JMA"

// minRowCells filters out header and spacer rows; a position row carries at
// least name, position, movement, pressure, and wind cells.
const minRowCells = 5

var (
	parenNameRe = regexp.MustCompile(`\(([A-Za-z][A-Za-z-]+)\)`)
	upperNameRe = regexp.MustCompile(`\b([A-Z]{3,})\b`)
)

// Client scrapes the JMA typhoon-position page.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewClient creates a JMA client. baseURL points at the typhoon-position
// page, typically https://www.jma.go.jp/bosai/map.html or a mirror page;
// tests point it at a fixture server.
func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		logger:     logger,
	}
}

func (c *Client) Name() string { return providerName }

// FetchStorms downloads the position page and extracts one candidate per
// qualifying table row. Rows without a parsable coordinate are dropped; a
// page without any table yields an empty list rather than an error.
func (c *Client) FetchStorms(ctx context.Context) ([]domain.Storm, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jma returned status %d", resp.StatusCode)
	}

	doc, err := html.Parse(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("parse position page: %w", err)
	}

	storms := []domain.Storm{}
	for _, row := range tableRows(doc) {
		if len(row) < minRowCells {
			continue
		}
		if storm, ok := c.extractRow(row); ok {
			storms = append(storms, storm)
		}
	}

	return storms, nil
}

// extractRow scans every cell of one row for the fields it carries. The scans
// are independent so the adapter survives column reordering.
func (c *Client) extractRow(cells []string) (domain.Storm, bool) {
	rowText := strings.Join(cells, " ")

	position, found := stormtext.ExtractCoordinates(rowText)
	if !found {
		return domain.Storm{}, false
	}

	movement, remainder := stormtext.ExtractMovement(rowText)
	windKmh := stormtext.ExtractWindSpeedKmh(remainder)
	name := extractName(cells)

	storm := domain.Storm{
		ID:                domain.StormID(name, position),
		Name:              name,
		Category:          scale.Categorize(scale.JMA, windKmh),
		WindSpeedKmh:      windKmh,
		Position:          position,
		MovementSpeedKmh:  movement.SpeedKmh,
		MovementDirection: movement.Direction,
		Status:            "Active",
		AffectedRegions:   []string{},
		Source:            providerName,
		LastUpdated:       time.Now().UTC(),
	}
	if pressure, ok := stormtext.ExtractPressureHPa(rowText); ok {
		storm.PressureHPa = &pressure
	}

	return storm, true
}

// extractName prefers the parenthesized international name JMA prints after
// the storm number ("TY 2422 (KONG-REY)"), then any standalone uppercase
// word, then the unnamed fallback.
func extractName(cells []string) string {
	for _, cell := range cells {
		if m := parenNameRe.FindStringSubmatch(cell); m != nil {
			return titleCase(m[1])
		}
	}
	for _, cell := range cells {
		if m := upperNameRe.FindStringSubmatch(cell); m != nil && !isUnitWord(m[1]) {
			return titleCase(m[1])
		}
	}
	return "Unnamed System"
}

// isUnitWord filters uppercase tokens that are table furniture, not names.
func isUnitWord(s string) bool {
	switch s {
	case "KT", "KPH", "KMH", "MPH", "HPA", "UTC", "JST":
		return true
	}
	return false
}

func titleCase(s string) string {
	s = strings.ToLower(s)
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// tableRows walks the document and returns the text of every table row's
// cells, header or data alike.
func tableRows(doc *html.Node) [][]string {
	rows := [][]string{}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" {
			row := []string{}
			for cell := n.FirstChild; cell != nil; cell = cell.NextSibling {
				if cell.Type == html.ElementNode && (cell.Data == "td" || cell.Data == "th") {
					row = append(row, strings.TrimSpace(nodeText(cell)))
				}
			}
			if len(row) > 0 {
				rows = append(rows, row)
			}
			return
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(doc)

	return rows
}

func nodeText(n *html.Node) string {
	var b strings.Builder

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)

	return b.String()
}
