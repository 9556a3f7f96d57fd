package radar

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata" // Europe/Kyiv must resolve on images without zoneinfo.
)

const (
	DefaultRadarCode = "UKBB2"
	DefaultTimezone  = "Europe/Kyiv"
	DefaultBaseURL   = "https://data.rainviewer.com"

	// LocalTimeLayout renders DD.MM.YYYY, HH:MM:SS.
	LocalTimeLayout = "02.01.2006, 15:04:05"

	imageSuffix    = "_0_source.jpg"
	nameTokenCount = 3
)

// Options tune how a Resolver picks and renders scans.
type Options struct {
	// Location is the zone UpdatedAtLocal is rendered in. Nil means UTC.
	Location *time.Location

	// SelectByTimestamp picks the newest product/scan by their timestamps
	// instead of trusting the upstream array order.
	SelectByTimestamp bool
}

// Resolver turns a radar catalog into the latest scan's display values.
type Resolver struct {
	source            CatalogSource
	loc               *time.Location
	selectByTimestamp bool
}

// NewResolver creates a new Resolver.
func NewResolver(source CatalogSource, opts Options) *Resolver {
	loc := opts.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Resolver{
		source:            source,
		loc:               loc,
		selectByTimestamp: opts.SelectByTimestamp,
	}
}

// Resolve fetches the catalog for radarCode and derives the latest scan.
// It never fails: errors are folded into a ResolvedScan with Success=false.
// When previous is given, its ImageURL is carried into a failed result so
// callers can keep showing the last known image.
func (r *Resolver) Resolve(ctx context.Context, radarCode string, previous *ResolvedScan) ResolvedScan {
	res, err := r.resolve(ctx, radarCode)
	if err != nil {
		out := ResolvedScan{
			RadarCode: radarCode,
			Failure:   KindOf(err),
			Err:       err,
		}
		if previous != nil {
			out.ImageURL = previous.ImageURL
		}
		return out
	}
	return res
}

func (r *Resolver) resolve(ctx context.Context, radarCode string) (ResolvedScan, error) {
	if r.source == nil {
		return ResolvedScan{}, NetworkError(errors.New("catalog source not configured"))
	}

	catalog, err := r.source.FetchCatalog(ctx, radarCode)
	if err != nil {
		return ResolvedScan{}, err
	}

	_, scan, err := SelectLatest(catalog, r.selectByTimestamp)
	if err != nil {
		return ResolvedScan{}, err
	}

	imageURL, err := ImageURL(catalog, scan)
	if err != nil {
		return ResolvedScan{}, err
	}

	return ResolvedScan{
		RadarCode:      radarCode,
		UpdatedAtLocal: FormatLocal(scan.Timestamp, r.loc),
		ImageURL:       imageURL,
		Success:        true,
		ScanTime:       scan.Timestamp.UTC(),
	}, nil
}

// CatalogURL builds the products listing URL of a radar site.
func CatalogURL(baseURL, radarCode string) string {
	return fmt.Sprintf("%s/images/%s/0_products.json", strings.TrimRight(baseURL, "/"), url.PathEscape(radarCode))
}

// SelectLatest picks the most recent product and scan. By default "most
// recent" is the last array element; byTimestamp compares lastUpdate and
// scan timestamps instead, ties going to the later element.
func SelectLatest(c Catalog, byTimestamp bool) (Product, Scan, error) {
	if len(c.Products) == 0 {
		return Product{}, Scan{}, ErrNoProducts
	}

	product := c.Products[len(c.Products)-1]
	if byTimestamp {
		product = c.Products[0]
		for _, p := range c.Products[1:] {
			if p.LastUpdate >= product.LastUpdate {
				product = p
			}
		}
	}

	if len(product.Scans) == 0 {
		return product, Scan{}, fmt.Errorf("product %q: %w", product.ID, ErrNoScans)
	}

	scan := product.Scans[len(product.Scans)-1]
	if byTimestamp {
		scan = product.Scans[0]
		for _, s := range product.Scans[1:] {
			if !s.Timestamp.Before(scan.Timestamp) {
				scan = s
			}
		}
	}

	return product, scan, nil
}

// ImageFilename derives the source JPEG name from the first three tokens of
// a scan name, e.g. "abc_20240101120000_2_rgba" -> "abc_20240101120000_2_0_source.jpg".
func ImageFilename(scanName string) (string, error) {
	tokens := strings.Split(scanName, "_")
	if len(tokens) < nameTokenCount {
		return "", fmt.Errorf("%q: %w", scanName, ErrShortScanName)
	}
	return strings.Join(tokens[:nameTokenCount], "_") + imageSuffix, nil
}

// ImageURL resolves the scan's JPEG filename against the catalog base URL.
func ImageURL(c Catalog, s Scan) (string, error) {
	base, err := url.Parse(c.BaseURL())
	if err != nil {
		return "", SchemaError(fmt.Errorf("parse base url: %w", err))
	}
	if !base.IsAbs() || base.Host == "" {
		return "", SchemaError(fmt.Errorf("base url %q is not absolute", c.BaseURL()))
	}

	name, err := ImageFilename(s.Name)
	if err != nil {
		return "", SchemaError(err)
	}

	// Path-only reference so tokens containing ':' are never read as a scheme.
	return base.ResolveReference(&url.URL{Path: name}).String(), nil
}

// FormatLocal renders t in loc using LocalTimeLayout.
func FormatLocal(t time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return t.In(loc).Format(LocalTimeLayout)
}
