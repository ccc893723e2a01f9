package etl

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epiwatch/epiwatch/internal/contracts"
	"github.com/epiwatch/epiwatch/internal/dataset"
	"github.com/epiwatch/epiwatch/internal/ingest"
	"github.com/epiwatch/epiwatch/internal/pipelineconfig"
	"github.com/epiwatch/epiwatch/internal/transform"
	"github.com/epiwatch/epiwatch/pkg/logger"
)

type memObsRepo struct {
	upserted []*contracts.Observation
	err      error
}

func (m *memObsRepo) UpsertBatch(ctx context.Context, obs []*contracts.Observation) (int, error) {
	if m.err != nil {
		return 0, m.err
	}
	m.upserted = obs
	return len(obs), nil
}

func (m *memObsRepo) GetByCountry(ctx context.Context, code string, from, to time.Time) ([]*contracts.Observation, error) {
	return nil, nil
}

func (m *memObsRepo) GetLatest(ctx context.Context) ([]*contracts.Observation, error) {
	return nil, nil
}

func (m *memObsRepo) Countries(ctx context.Context) (map[string]string, error) {
	return nil, nil
}

type memAlertRepo struct {
	created []*contracts.Alert
}

func (m *memAlertRepo) CreateBatch(ctx context.Context, alerts []*contracts.Alert) error {
	m.created = alerts
	return nil
}

func (m *memAlertRepo) GetActive(ctx context.Context) ([]*contracts.Alert, error) {
	return m.created, nil
}

type memReportRepo struct {
	report  *contracts.QualityReport
	summary *contracts.DailySummary
}

func (m *memReportRepo) SaveReport(ctx context.Context, report *contracts.QualityReport) error {
	m.report = report
	return nil
}

func (m *memReportRepo) UpsertSummary(ctx context.Context, summary *contracts.DailySummary) error {
	m.summary = summary
	return nil
}

func (m *memReportRepo) LatestSummary(ctx context.Context) (*contracts.DailySummary, error) {
	return m.summary, nil
}

type memNotifier struct {
	results []*RunResult
}

func (m *memNotifier) NotifyRun(result *RunResult) {
	m.results = append(m.results, result)
}

func fixture(now time.Time) *dataset.Dataset {
	columns := dataset.NewColumnSet(
		contracts.ColIsoCode, contracts.ColLocation, contracts.ColDate,
		contracts.ColPopulation,
		contracts.ColTotalCases, contracts.ColNewCases,
		contracts.ColTotalDeaths, contracts.ColNewDeaths,
	)

	var rows []*contracts.Observation
	for i := 0; i < 5; i++ {
		d := now.AddDate(0, 0, i-4)
		rows = append(rows,
			&contracts.Observation{
				IsoCode: "FRA", Location: "France", Date: d,
				Population:  contracts.Float(68000000),
				TotalCases:  contracts.Float(1000),
				NewCases:    contracts.Float(100),
				TotalDeaths: contracts.Float(10),
				NewDeaths:   contracts.Float(1),
			},
			&contracts.Observation{
				IsoCode: "OWID_WRL", Location: "World", Date: d,
				Population:  contracts.Float(8000000000),
				TotalCases:  contracts.Float(500000),
				NewCases:    contracts.Float(10000),
				TotalDeaths: contracts.Float(30000),
				NewDeaths:   contracts.Float(300),
			},
		)
	}
	return dataset.New(rows, columns)
}

func newTestRunner(obs *memObsRepo, alerts *memAlertRepo, reports *memReportRepo, notifier Notifier) *Runner {
	log := logger.NewNop()
	return NewRunner(
		transform.NewEngine(pipelineconfig.Default(), log),
		ingest.NewValidator(log),
		obs, alerts, reports,
		nil,
		notifier,
		log,
	)
}

func TestRunner_Run(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	obs := &memObsRepo{}
	alertRepo := &memAlertRepo{}
	reports := &memReportRepo{}
	notifier := &memNotifier{}

	runner := newTestRunner(obs, alertRepo, reports, notifier)

	result, err := runner.Run(context.Background(), fixture(now), now)
	require.NoError(t, err)

	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, 10, result.Rows)
	assert.Equal(t, 2, result.Countries)

	// Everything was persisted.
	assert.Len(t, obs.upserted, 10)
	require.NotNil(t, reports.report)
	assert.Equal(t, 10, reports.report.TotalRows)

	// The world aggregate row produced a daily summary.
	require.NotNil(t, reports.summary)
	assert.Equal(t, now, reports.summary.Date)

	// The world CFR of 6% breached the alert threshold.
	require.NotEmpty(t, alertRepo.created)
	found := false
	for _, a := range alertRepo.created {
		if a.CountryCode == "OWID_WRL" && a.Kind == contracts.AlertHighCFR {
			found = true
		}
	}
	assert.True(t, found, "expected high CFR alert for the world aggregate")

	// Subscribers saw the completed run.
	require.Len(t, notifier.results, 1)
	assert.Equal(t, result.RunID, notifier.results[0].RunID)
}

func TestRunner_Run_EmptyInputFails(t *testing.T) {
	runner := newTestRunner(&memObsRepo{}, &memAlertRepo{}, &memReportRepo{}, nil)

	_, err := runner.Run(context.Background(), dataset.New(nil, nil), time.Now())
	require.Error(t, err)

	var stageErr *transform.StageError
	assert.True(t, errors.As(err, &stageErr))
}

func TestRunner_Run_StoreFailureAborts(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	obs := &memObsRepo{err: errors.New("connection refused")}
	reports := &memReportRepo{}

	runner := newTestRunner(obs, &memAlertRepo{}, reports, nil)

	_, err := runner.Run(context.Background(), fixture(now), now)
	require.Error(t, err)

	// Nothing downstream of the failed write was persisted.
	assert.Nil(t, reports.report)
	assert.Nil(t, reports.summary)
}
