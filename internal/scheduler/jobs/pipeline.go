// Package jobs contains the scheduled job implementations.
package jobs

import (
	"context"
	"time"

	"github.com/epiwatch/epiwatch/internal/etl"
	"github.com/epiwatch/epiwatch/internal/ingest"
	"github.com/epiwatch/epiwatch/pkg/logger"
)

// PipelineJob downloads the latest source file and runs the full
// transformation and load cycle. Scheduled daily at 06:00.
type PipelineJob struct {
	downloader *ingest.Downloader
	runner     *etl.Runner
	logger     *logger.Logger
}

func NewPipelineJob(downloader *ingest.Downloader, runner *etl.Runner, log *logger.Logger) *PipelineJob {
	return &PipelineJob{
		downloader: downloader,
		runner:     runner,
		logger:     log.WithField("job", "daily_pipeline"),
	}
}

func (j *PipelineJob) Name() string {
	return "daily_pipeline"
}

func (j *PipelineJob) Schedule() string {
	return "0 0 6 * * *"
}

func (j *PipelineJob) Run(ctx context.Context) error {
	if err := j.downloader.CheckAvailability(ctx); err != nil {
		return err
	}

	path, err := j.downloader.Download(ctx)
	if err != nil {
		return err
	}

	raw, err := ingest.ParseFile(path)
	if err != nil {
		return err
	}

	result, err := j.runner.Run(ctx, raw, time.Now().UTC())
	if err != nil {
		return err
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id": result.RunID,
		"rows":   result.Rows,
		"alerts": len(result.Alerts),
	}).Info("Daily pipeline completed")

	return nil
}
