// Package ingest acquires the raw OWID daily CSV and turns it into an
// in-memory dataset: download with archiving, parse, structural
// validation.
package ingest

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/epiwatch/epiwatch/pkg/config"
	"github.com/epiwatch/epiwatch/pkg/httputil"
	"github.com/epiwatch/epiwatch/pkg/logger"
)

// latestName is the stable marker pointing at the newest raw file.
const latestName = "latest_owid_covid_data.csv"

// Downloader fetches the raw CSV, archives it under a timestamped
// name and keeps a "latest" link for downstream consumers.
type Downloader struct {
	client *httputil.Client
	cfg    config.SourceConfig
	logger *logger.Logger
}

// NewDownloader creates a downloader from config.
func NewDownloader(cfg config.SourceConfig, client *httputil.Client, log *logger.Logger) *Downloader {
	return &Downloader{
		client: client,
		cfg:    cfg,
		logger: log.WithField("component", "ingest.downloader"),
	}
}

// RawDir returns the directory raw files are archived to.
func (d *Downloader) RawDir() string {
	return filepath.Join(d.cfg.DataDir, "raw")
}

// LatestPath returns the path of the latest raw file marker.
func (d *Downloader) LatestPath() string {
	return filepath.Join(d.RawDir(), latestName)
}

// CheckAvailability probes the source URL before a run.
func (d *Downloader) CheckAvailability(ctx context.Context) error {
	resp, err := d.client.Head(ctx, d.cfg.URL)
	if err != nil {
		return fmt.Errorf("source unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return fmt.Errorf("source returned status %d", resp.StatusCode)
	}
	return nil
}

// Download fetches the CSV, stores it as owid_covid_data_<ts>.csv and
// repoints the latest marker. Returns the archived file path.
func (d *Downloader) Download(ctx context.Context) (string, error) {
	if err := os.MkdirAll(d.RawDir(), 0o755); err != nil {
		return "", fmt.Errorf("create raw dir: %w", err)
	}

	start := time.Now()
	resp, err := d.client.Get(ctx, d.cfg.URL)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", d.cfg.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return "", fmt.Errorf("download %s: status %d", d.cfg.URL, resp.StatusCode)
	}

	filename := fmt.Sprintf("owid_covid_data_%s.csv", time.Now().Format("20060102_150405"))
	path := filepath.Join(d.RawDir(), filename)

	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", path, err)
	}

	written, err := io.Copy(f, resp.Body)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(path)
		return "", fmt.Errorf("write %s: %w", path, err)
	}

	d.updateLatest(filename)

	d.logger.WithFields(map[string]interface{}{
		"path":        path,
		"size_mb":     fmt.Sprintf("%.2f", float64(written)/(1024*1024)),
		"duration_ms": time.Since(start).Milliseconds(),
	}).Info("Raw data downloaded")

	return path, nil
}

// updateLatest repoints the latest marker at filename. A failed
// symlink is logged and skipped; the timestamped archive remains the
// source of truth.
func (d *Downloader) updateLatest(filename string) {
	link := d.LatestPath()
	_ = os.Remove(link)
	if err := os.Symlink(filename, link); err != nil {
		d.logger.WithError(err).Warn("Could not update latest marker")
	}
}
