// internal/storage/archive/bundles.go
package archive

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/newthinker/dipcast/internal/core"
	"github.com/newthinker/dipcast/internal/pipeline"
)

const bundlesRoot = "bundles"

// Exporter writes composed bundles as JSON documents laid out as
// bundles/{SYMBOL}/{YYYY-MM-DD}/{HHMMSS}-{runID}.json so lexical order is
// chronological within a symbol.
type Exporter struct {
	store Storage
}

// NewExporter wraps a storage backend
func NewExporter(store Storage) *Exporter {
	return &Exporter{store: store}
}

// BundlePath returns where a bundle from the given run is stored
func BundlePath(runID string, b pipeline.Bundle) string {
	ts := b.GeneratedAt.UTC()
	return fmt.Sprintf("%s/%s/%s/%s-%s.json",
		bundlesRoot, strings.ToUpper(b.Symbol), ts.Format(core.DateLayout), ts.Format("150405"), runID)
}

// Export stores the bundle and returns its path
func (e *Exporter) Export(ctx context.Context, runID string, b pipeline.Bundle) (string, error) {
	data, err := json.MarshalIndent(b, "", "  ")
	if err != nil {
		return "", core.WrapError(core.ErrArchiveFailed, fmt.Errorf("encoding %s: %w", b.Symbol, err))
	}

	path := BundlePath(runID, b)
	if err := e.store.Write(ctx, path, data); err != nil {
		return "", core.WrapError(core.ErrArchiveFailed, fmt.Errorf("writing %s: %w", path, err))
	}
	return path, nil
}

// History lists archived bundle paths for symbol, oldest first
func (e *Exporter) History(ctx context.Context, symbol string) ([]string, error) {
	paths, err := e.store.List(ctx, fmt.Sprintf("%s/%s/", bundlesRoot, strings.ToUpper(symbol)))
	if err != nil {
		return nil, core.WrapError(core.ErrArchiveFailed, err)
	}
	return paths, nil
}

// Latest loads the most recent archived bundle for symbol
func (e *Exporter) Latest(ctx context.Context, symbol string) (pipeline.Bundle, error) {
	paths, err := e.History(ctx, symbol)
	if err != nil {
		return pipeline.Bundle{}, err
	}
	if len(paths) == 0 {
		return pipeline.Bundle{}, core.WrapError(core.ErrNoData, fmt.Errorf("no archived bundle for %s", symbol))
	}

	data, err := e.store.Read(ctx, paths[len(paths)-1])
	if err != nil {
		return pipeline.Bundle{}, err
	}

	var b pipeline.Bundle
	if err := json.Unmarshal(data, &b); err != nil {
		return pipeline.Bundle{}, core.WrapError(core.ErrArchiveFailed, fmt.Errorf("decoding %s: %w", paths[len(paths)-1], err))
	}
	return b, nil
}
