// Package warehouse moves hospital data into the analytics warehouse: JSON
// file exports, optional HTTP upload, and pipeline triggering. All remote
// calls run through the retryable executor.
package warehouse

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
)

// DataSource provides exportable rows grouped by table for a data type.
type DataSource interface {
	ExportData(ctx context.Context, dataType string, start, end time.Time) (map[string][]map[string]any, error)
}

// ExporterOption configures an Exporter.
type ExporterOption func(*Exporter)

// WithHTTPClient overrides the default HTTP client used for uploads.
func WithHTTPClient(c *http.Client) ExporterOption {
	return func(e *Exporter) { e.httpClient = c }
}

// Exporter writes per-table JSON export files and optionally uploads them.
type Exporter struct {
	dir        string
	uploadURL  string
	httpClient *http.Client
	logger     zerolog.Logger
	now        func() time.Time
}

// NewExporter creates an Exporter writing under dir. If uploadURL is
// non-empty each written file is also uploaded there via HTTP PUT.
func NewExporter(dir, uploadURL string, logger zerolog.Logger, opts ...ExporterOption) *Exporter {
	e := &Exporter{
		dir:       dir,
		uploadURL: uploadURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: logger,
		now:    time.Now,
	}
	for _, o := range opts {
		o(e)
	}
	return e
}

// Export writes one JSON file per table and returns a map of table name to
// the file's final location (upload URL when uploading, local path
// otherwise).
func (e *Exporter) Export(ctx context.Context, dataType string, tables map[string][]map[string]any) (map[string]string, error) {
	if err := os.MkdirAll(e.dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}

	stamp := e.now().UTC().Format("20060102_150405")
	locations := make(map[string]string, len(tables))

	for table, rows := range tables {
		name := fmt.Sprintf("%s_%s_%s.json", dataType, table, stamp)
		path := filepath.Join(e.dir, name)

		data, err := json.MarshalIndent(rows, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("marshal export %s: %w", table, err)
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return nil, fmt.Errorf("write export file %s: %w", path, err)
		}

		location := path
		if e.uploadURL != "" {
			location, err = e.upload(ctx, name, data)
			if err != nil {
				return nil, fmt.Errorf("upload export %s: %w", name, err)
			}
		}

		e.logger.Info().
			Str("data_type", dataType).
			Str("table", table).
			Int("rows", len(rows)).
			Str("location", location).
			Msg("table exported")
		locations[table] = location
	}

	return locations, nil
}

// upload PUTs the file content to <uploadURL>/<name> and returns the remote
// location.
func (e *Exporter) upload(ctx context.Context, name string, data []byte) (string, error) {
	target := e.uploadURL + "/" + name

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, target, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("build upload request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("upload to %s: %w", target, err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("upload to %s: storage returned status %d", target, resp.StatusCode)
	}
	return target, nil
}
