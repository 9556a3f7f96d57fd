package radar

import (
	"time"
)

// ErrorKind classifies why a resolution failed.
type ErrorKind string

const (
	KindNone         ErrorKind = ""
	KindNetwork      ErrorKind = "network"
	KindSchema       ErrorKind = "schema"
	KindEmptyCatalog ErrorKind = "empty_catalog"
)

// Scan is one timestamped radar image snapshot within a product.
// Name carries underscore-delimited product/scan identifiers.
type Scan struct {
	Timestamp time.Time `json:"timestamp"` // always UTC
	Name      string    `json:"name"`
	Size      int64     `json:"size"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
}

// Product is a radar data layer holding a chronological scan history.
// The last element of Scans is the most recent one.
type Product struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Frequency   int        `json:"frequency"` // seconds
	LastUpdate  int64      `json:"lastUpdate"`
	BoundingBox [4]float64 `json:"boundingBox"`
	Scans       []Scan     `json:"scans"`
}

// Catalog is the product listing of one radar site.
// By upstream convention the last product is the default, most recent one.
type Catalog struct {
	ID       string    `json:"id"`
	Host     string    `json:"host"`
	Dir      string    `json:"dir"`
	Products []Product `json:"products"`
	Default  string    `json:"default"`
}

// BaseURL returns the directory URL scan images are resolved against.
func (c Catalog) BaseURL() string {
	return c.Host + c.Dir + "/"
}

// ResolvedScan is the display-ready outcome of one resolution.
// Failure and Err are only set when Success is false.
type ResolvedScan struct {
	RadarCode      string    `json:"radar"`
	UpdatedAtLocal string    `json:"updated_at"`
	ImageURL       string    `json:"jpeg_url"`
	Success        bool      `json:"success"`
	Failure        ErrorKind `json:"failure,omitempty"`
	ScanTime       time.Time `json:"scan_time"`

	Err error `json:"-"`
}

// Stale reports whether ImageURL was carried over from an earlier result.
func (r ResolvedScan) Stale() bool {
	return !r.Success && r.ImageURL != ""
}
