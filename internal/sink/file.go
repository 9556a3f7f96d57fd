package sink

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// DefaultImagePath is where the one-shot fetch writes the radar image.
const DefaultImagePath = "radar.jpg"

// WriteFile writes r to path atomically: the data lands in a temp file in the
// same directory, is fsynced, then renamed over path. A cancelled ctx or a
// failed copy leaves any existing file untouched.
func WriteFile(ctx context.Context, path string, r io.Reader) (int64, error) {
	if path == "" {
		path = DefaultImagePath
	}

	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmp.Name()
	defer func() {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
	}()

	n, err := io.Copy(tmp, ctxReader{ctx: ctx, r: r})
	if err != nil {
		return n, fmt.Errorf("write %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		return n, fmt.Errorf("sync %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("close %s: %w", path, err)
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		return n, fmt.Errorf("chmod %s: %w", path, err)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		return n, fmt.Errorf("rename to %s: %w", path, err)
	}
	return n, nil
}

// ctxReader stops reading once ctx is done.
type ctxReader struct {
	ctx context.Context
	r   io.Reader
}

func (c ctxReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
