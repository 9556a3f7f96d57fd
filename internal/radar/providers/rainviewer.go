package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sony/gobreaker"

	"github.com/i474232898/meteoradar/internal/radar"
)

// maxCatalogBytes caps how much of a catalog body is read.
const maxCatalogBytes = 8 << 20

// RainViewerProvider implements radar.CatalogSource for the RainViewer data host.
type RainViewerProvider struct {
	name     string
	baseURL  string
	client   *http.Client
	circuit  *gobreaker.CircuitBreaker
	validate *validator.Validate
}

// NewRainViewerProvider creates a provider talking to baseURL
// (radar.DefaultBaseURL when empty). A nil client gets DefaultTimeout.
func NewRainViewerProvider(client *http.Client, baseURL string) *RainViewerProvider {
	if client == nil {
		client = &http.Client{Timeout: DefaultTimeout}
	}
	if baseURL == "" {
		baseURL = radar.DefaultBaseURL
	}

	return &RainViewerProvider{
		name:     "rainviewer",
		baseURL:  baseURL,
		client:   client,
		circuit:  newCircuitBreaker("rainviewer"),
		validate: validator.New(),
	}
}

func (p *RainViewerProvider) Name() string {
	return p.name
}

// FetchCatalog downloads and validates the products listing of radarCode.
func (p *RainViewerProvider) FetchCatalog(ctx context.Context, radarCode string) (radar.Catalog, error) {
	resp, err := doRequest(ctx, p.client, p.circuit, radar.CatalogURL(p.baseURL, radarCode))
	if err != nil {
		return radar.Catalog{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxCatalogBytes))
	if err != nil {
		return radar.Catalog{}, radar.NetworkError(fmt.Errorf("read catalog: %w", err))
	}

	var payload catalogPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return radar.Catalog{}, radar.SchemaError(fmt.Errorf("decode catalog: %w", err))
	}
	if err := p.validate.Struct(payload); err != nil {
		return radar.Catalog{}, radar.SchemaError(fmt.Errorf("validate catalog: %w", err))
	}

	return payload.toCatalog(), nil
}

// FetchImage streams the image at imageURL into w and returns the bytes written.
func (p *RainViewerProvider) FetchImage(ctx context.Context, imageURL string, w io.Writer) (int64, error) {
	resp, err := doRequest(ctx, p.client, p.circuit, imageURL)
	if err != nil {
		return 0, err
	}
	defer resp.Body.Close()

	n, err := io.Copy(w, resp.Body)
	if err != nil {
		return n, radar.NetworkError(fmt.Errorf("read image: %w", err))
	}
	return n, nil
}

// Wire types. Pointers let validation tell a missing field from a zero one.

type catalogPayload struct {
	ID       *string          `json:"id" validate:"required"`
	Host     *string          `json:"host" validate:"required"`
	Dir      *string          `json:"dir" validate:"required"`
	Products []productPayload `json:"products" validate:"required,dive"`
	Default  *string          `json:"default" validate:"required"`
}

type productPayload struct {
	ID          *string       `json:"id" validate:"required"`
	Name        *string       `json:"name" validate:"required"`
	Frequency   *int          `json:"frequency" validate:"required"`
	LastUpdate  *int64        `json:"lastUpdate" validate:"required"`
	BoundingBox []float64     `json:"boundingBox" validate:"required,len=4"`
	Scans       []scanPayload `json:"scans" validate:"required,dive"`
}

// scanPayload accepts the upstream "heigth" spelling as well as "height".
type scanPayload struct {
	Timestamp *scanTime `json:"timestamp" validate:"required"`
	Name      *string   `json:"name" validate:"required"`
	Size      *int64    `json:"size" validate:"required"`
	Width     *int      `json:"width" validate:"required"`
	Height    *int      `json:"height" validate:"required_without=Heigth"`
	Heigth    *int      `json:"heigth" validate:"required_without=Height"`
}

func (c catalogPayload) toCatalog() radar.Catalog {
	products := make([]radar.Product, 0, len(c.Products))
	for _, p := range c.Products {
		products = append(products, p.toProduct())
	}
	return radar.Catalog{
		ID:       *c.ID,
		Host:     *c.Host,
		Dir:      *c.Dir,
		Products: products,
		Default:  *c.Default,
	}
}

func (p productPayload) toProduct() radar.Product {
	scans := make([]radar.Scan, 0, len(p.Scans))
	for _, s := range p.Scans {
		scans = append(scans, s.toScan())
	}

	var bbox [4]float64
	copy(bbox[:], p.BoundingBox)

	return radar.Product{
		ID:          *p.ID,
		Name:        *p.Name,
		Frequency:   *p.Frequency,
		LastUpdate:  *p.LastUpdate,
		BoundingBox: bbox,
		Scans:       scans,
	}
}

func (s scanPayload) toScan() radar.Scan {
	height := s.Height
	if height == nil {
		height = s.Heigth
	}
	return radar.Scan{
		Timestamp: s.Timestamp.Time,
		Name:      *s.Name,
		Size:      *s.Size,
		Width:     *s.Width,
		Height:    *height,
	}
}

// scanTime decodes either Unix seconds (milliseconds past year ~2603) or an
// ISO-8601 string. Strings without a zone are read as UTC.
type scanTime struct {
	time.Time
}

var scanTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

func (t *scanTime) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		parsed, err := parseScanTime(s)
		if err != nil {
			return err
		}
		t.Time = parsed
		return nil
	}

	f, err := strconv.ParseFloat(string(b), 64)
	if err != nil {
		return fmt.Errorf("invalid scan timestamp %s", b)
	}
	t.Time = unixToTime(f)
	return nil
}

func parseScanTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return unixToTime(f), nil
	}
	for _, layout := range scanTimeLayouts {
		if ts, err := time.Parse(layout, s); err == nil {
			return ts.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("invalid scan timestamp %q", s)
}

func unixToTime(f float64) time.Time {
	if math.Abs(f) > 2e10 {
		f /= 1000
	}
	sec, frac := math.Modf(f)
	return time.Unix(int64(sec), int64(math.Round(frac*1e9))).UTC()
}
