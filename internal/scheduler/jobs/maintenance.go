package jobs

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/epiwatch/epiwatch/internal/ingest"
	"github.com/epiwatch/epiwatch/pkg/logger"
)

const archiveRetention = 30 * 24 * time.Hour

// MaintenanceJob prunes old raw archives from the data directory.
// Runs weekly on Sunday at 03:00.
type MaintenanceJob struct {
	downloader *ingest.Downloader
	logger     *logger.Logger
}

func NewMaintenanceJob(downloader *ingest.Downloader, log *logger.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		downloader: downloader,
		logger:     log.WithField("job", "archive_maintenance"),
	}
}

func (j *MaintenanceJob) Name() string {
	return "archive_maintenance"
}

func (j *MaintenanceJob) Schedule() string {
	return "0 0 3 * * 0"
}

func (j *MaintenanceJob) Run(ctx context.Context) error {
	rawDir := j.downloader.RawDir()
	entries, err := os.ReadDir(rawDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	cutoff := time.Now().Add(-archiveRetention)
	removed := 0

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".csv") {
			continue
		}
		// The latest symlink always stays.
		if entry.Type()&os.ModeSymlink != 0 {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(rawDir, entry.Name())); err != nil {
			j.logger.WithError(err).WithField("file", entry.Name()).Warn("Failed to remove archive")
			continue
		}
		removed++
	}

	if removed > 0 {
		j.logger.WithField("removed", removed).Info("Pruned old raw archives")
	}

	return nil
}
