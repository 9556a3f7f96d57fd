package radar

import (
	"context"
	"errors"
	"fmt"
)

// CatalogSource abstracts where radar catalogs come from (e.g. RainViewer).
type CatalogSource interface {
	Name() string
	FetchCatalog(ctx context.Context, radarCode string) (Catalog, error)
}

var (
	// ErrNoProducts is returned when a catalog lists no products.
	ErrNoProducts = errors.New("catalog has no products")
	// ErrNoScans is returned when the selected product has no scans.
	ErrNoScans = errors.New("product has no scans")
	// ErrShortScanName is returned when a scan name has fewer than 3 tokens.
	ErrShortScanName = errors.New("scan name has fewer than 3 tokens")
)

// ResolveError tags an underlying error with the failure class it belongs to.
type ResolveError struct {
	Kind ErrorKind
	Err  error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *ResolveError) Unwrap() error {
	return e.Err
}

// NetworkError wraps err as a transport failure.
func NetworkError(err error) error {
	return &ResolveError{Kind: KindNetwork, Err: err}
}

// SchemaError wraps err as a payload shape failure.
func SchemaError(err error) error {
	return &ResolveError{Kind: KindSchema, Err: err}
}

// KindOf extracts the failure class of err. Errors that were never tagged are
// treated as network failures, since they come from the fetch side.
func KindOf(err error) ErrorKind {
	if err == nil {
		return KindNone
	}
	var re *ResolveError
	if errors.As(err, &re) {
		return re.Kind
	}
	if errors.Is(err, ErrNoProducts) || errors.Is(err, ErrNoScans) {
		return KindEmptyCatalog
	}
	if errors.Is(err, ErrShortScanName) {
		return KindSchema
	}
	return KindNetwork
}
