// Package noaa implements the NOAA secondary adapter. Storm data comes from
// the National Hurricane Center's active-storm feeds for the Atlantic and
// East Pacific basins, with a products-listing fallback when the feeds are
// unreachable. Alerts come from the api.weather.gov GeoJSON surface, and the
// NHC RSS feed supplies advisory headlines for active storms.
package noaa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/mmcdole/gofeed"
	geojson "github.com/paulmach/go.geojson"
	"go.uber.org/zap"

	"github.com/bayanforecast/stormwatch/internal/core/convert"
	"github.com/bayanforecast/stormwatch/internal/core/domain"
	"github.com/bayanforecast/stormwatch/internal/core/scale"
	"github.com/bayanforecast/stormwatch/internal/core/stormtext"
)

const providerName = "NOAA"

// basinFeeds are the active-storm JSON documents, one per tracked basin.
var basinFeeds = []string{"active_atl.json", "active_epac.json"}

// maxFallbackProducts bounds how many advisory products the fallback path
// fetches when the basin feeds are down.
const maxFallbackProducts = 5

// Client talks to the NHC feeds and the api.weather.gov REST surface.
type Client struct {
	nhcURL     string
	nwsURL     string
	rssURL     string
	httpClient *http.Client
	feedParser *gofeed.Parser
	logger     *zap.Logger
}

// NewClient creates a NOAA client. nhcURL is typically
// https://www.nhc.noaa.gov, nwsURL https://api.weather.gov, and rssURL the
// NHC Atlantic RSS index; all are overridable for tests. An empty rssURL
// disables advisory enrichment.
func NewClient(nhcURL, nwsURL, rssURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	return &Client{
		nhcURL:     nhcURL,
		nwsURL:     nwsURL,
		rssURL:     rssURL,
		httpClient: httpClient,
		feedParser: gofeed.NewParser(),
		logger:     logger,
	}
}

func (c *Client) Name() string { return providerName }

type activeStormsFeed struct {
	ActiveStorms []activeStorm `json:"activeStorms"`
}

type activeStorm struct {
	ID               string  `json:"id"`
	Name             string  `json:"name"`
	Classification   string  `json:"classification"`
	Intensity        string  `json:"intensity"`
	Pressure         string  `json:"pressure"`
	LatitudeNumeric  float64 `json:"latitudeNumeric"`
	LongitudeNumeric float64 `json:"longitudeNumeric"`
	MovementDir      int     `json:"movementDir"`
	MovementSpeed    float64 `json:"movementSpeed"`
	LastUpdate       string  `json:"lastUpdate"`
}

// FetchStorms reads both basin feeds and normalizes every active storm. A
// failing basin is logged and skipped; when no basin yields anything the
// products listing is tried as a last resort. The basins are far from the
// Philippines, so an empty answer here is the common case.
func (c *Client) FetchStorms(ctx context.Context) ([]domain.Storm, error) {
	storms := []domain.Storm{}

	for _, feed := range basinFeeds {
		var parsed activeStormsFeed
		if err := c.getJSON(ctx, c.nhcURL+"/"+feed, &parsed); err != nil {
			c.logger.Warn("basin feed failed",
				zap.String("feed", feed),
				zap.Error(err))
			continue
		}

		for _, raw := range parsed.ActiveStorms {
			storms = append(storms, c.normalize(raw))
		}
	}

	if len(storms) == 0 {
		return c.stormsFromProducts(ctx)
	}

	c.attachAdvisories(ctx, storms)

	return storms, nil
}

// normalize maps one feed record to the unified schema. Intensity under 200
// is assumed to be knots, the feed's native unit; anything larger is taken as
// already km/h.
func (c *Client) normalize(raw activeStorm) domain.Storm {
	windKmh := 0
	if n := atoi(raw.Intensity); n > 0 {
		if n < 200 {
			windKmh = convert.KnotsToKmh(float64(n))
		} else {
			windKmh = n
		}
	}

	position := domain.Coordinates{
		Latitude:  raw.LatitudeNumeric,
		Longitude: convert.NormalizeLongitude(raw.LongitudeNumeric),
	}

	storm := domain.Storm{
		ID:                stormID(raw.ID, raw.Name, position),
		Name:              raw.Name,
		Category:          scale.Categorize(scale.NOAA, windKmh),
		WindSpeedKmh:      windKmh,
		Position:          position,
		MovementSpeedKmh:  convert.KnotsToKmh(raw.MovementSpeed),
		MovementDirection: fmt.Sprintf("%d", raw.MovementDir),
		Status:            "Active",
		AffectedRegions:   []string{},
		Source:            providerName,
		LastUpdated:       parseTime(raw.LastUpdate),
	}
	if pressure := atoi(raw.Pressure); pressure > 0 {
		storm.PressureHPa = &pressure
	}

	return storm
}

type productListing struct {
	Graph []struct {
		ID string `json:"id"`
	} `json:"@graph"`
}

type productDocument struct {
	ProductText string `json:"productText"`
}

// stormsFromProducts is the fallback path: scan recent tropical-cyclone
// public advisories and run the free-text extractor over each. Records
// without a parsable position are dropped.
func (c *Client) stormsFromProducts(ctx context.Context) ([]domain.Storm, error) {
	var listing productListing
	if err := c.getJSON(ctx, c.nwsURL+"/products/types/TCP", &listing); err != nil {
		c.logger.Warn("products listing failed", zap.Error(err))
		return []domain.Storm{}, nil
	}

	storms := []domain.Storm{}
	for i, entry := range listing.Graph {
		if i >= maxFallbackProducts {
			break
		}

		var product productDocument
		if err := c.getJSON(ctx, c.nwsURL+"/products/"+entry.ID, &product); err != nil {
			c.logger.Warn("product fetch failed",
				zap.String("product", entry.ID),
				zap.Error(err))
			continue
		}

		if storm, ok := c.extractFromText(product.ProductText); ok {
			storms = append(storms, storm)
		}
	}

	return storms, nil
}

func (c *Client) extractFromText(text string) (domain.Storm, bool) {
	if !stormtext.IsTropicalCyclone("", text) {
		return domain.Storm{}, false
	}

	position, found := stormtext.ExtractCoordinates(text)
	if !found {
		return domain.Storm{}, false
	}

	movement, remainder := stormtext.ExtractMovement(text)
	windKmh := stormtext.ExtractWindSpeedKmh(remainder)
	name := stormtext.ExtractName(text)

	storm := domain.Storm{
		ID:                domain.StormID(name, position),
		Name:              name,
		Category:          scale.Categorize(scale.NOAA, windKmh),
		WindSpeedKmh:      windKmh,
		Position:          position,
		MovementSpeedKmh:  movement.SpeedKmh,
		MovementDirection: movement.Direction,
		Status:            "Active",
		AffectedRegions:   []string{},
		Source:            providerName,
	}
	if pressure, ok := stormtext.ExtractPressureHPa(text); ok {
		storm.PressureHPa = &pressure
	}

	return storm, true
}

// attachAdvisories fills Warnings from the NHC RSS feed by matching storm
// names against item titles. Feed failures leave the storms untouched.
func (c *Client) attachAdvisories(ctx context.Context, storms []domain.Storm) {
	if c.rssURL == "" {
		return
	}

	feed, err := c.feedParser.ParseURLWithContext(c.rssURL, ctx)
	if err != nil {
		c.logger.Warn("advisory feed failed", zap.Error(err))
		return
	}

	for i := range storms {
		name := strings.ToLower(storms[i].Name)
		for _, item := range feed.Items {
			if strings.Contains(strings.ToLower(item.Title), name) {
				storms[i].Warnings = item.Title
				break
			}
		}
	}
}

// Alerts queries the active-alerts GeoJSON surface for one point. Severity
// strings map onto the three presentation buckets.
func (c *Client) Alerts(ctx context.Context, coords domain.Coordinates) ([]domain.Alert, error) {
	endpoint := fmt.Sprintf("%s/alerts/active?point=%.4f,%.4f",
		c.nwsURL, coords.Latitude, convert.SignedLongitude(coords.Longitude))

	raw, err := c.getBody(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	collection, err := geojson.UnmarshalFeatureCollection(raw)
	if err != nil {
		return nil, fmt.Errorf("decode alert collection: %w", err)
	}

	alerts := make([]domain.Alert, 0, len(collection.Features))
	for _, feature := range collection.Features {
		event, _ := feature.PropertyString("event")
		description, _ := feature.PropertyString("description")
		severity, _ := feature.PropertyString("severity")
		sent, _ := feature.PropertyString("sent")

		id := feature.ID
		if id == nil {
			id = domain.StormID(event, coords)
		}

		alerts = append(alerts, domain.Alert{
			ID:        fmt.Sprintf("%v", id),
			Type:      alertType(severity),
			Title:     event,
			Message:   description,
			Timestamp: parseTime(sent),
			Severity:  severity,
			Source:    providerName,
		})
	}

	return alerts, nil
}

func alertType(severity string) domain.AlertType {
	switch strings.ToLower(severity) {
	case "extreme", "severe":
		return domain.AlertCritical
	case "moderate":
		return domain.AlertWarning
	default:
		return domain.AlertInfo
	}
}

func stormID(providerID, name string, position domain.Coordinates) string {
	if providerID != "" {
		return providerID
	}
	return domain.StormID(name, position)
}

func atoi(s string) int {
	n := 0
	for _, r := range strings.TrimSpace(s) {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func parseTime(s string) time.Time {
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05.000Z"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	raw, err := c.getBody(ctx, endpoint)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (c *Client) getBody(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("User-Agent", "StormWatch/1.0")
	req.Header.Set("Accept", "application/geo+json, application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}

	defer func(body io.ReadCloser) {
		_ = body.Close()
	}(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("noaa returned status %d", resp.StatusCode)
	}

	return io.ReadAll(resp.Body)
}
