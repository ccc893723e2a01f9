package transform

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epiwatch/epiwatch/internal/contracts"
	"github.com/epiwatch/epiwatch/internal/dataset"
	"github.com/epiwatch/epiwatch/internal/pipelineconfig"
	"github.com/epiwatch/epiwatch/pkg/logger"
)

// rawFixture builds ten days of FRA plus OWID_WRL rows with two
// seeded anomalies: FRA is missing total_cases on day 5 and OWID_WRL
// reports negative new_cases on day 3.
func rawFixture(now time.Time) *dataset.Dataset {
	columns := dataset.NewColumnSet(
		contracts.ColIsoCode, contracts.ColLocation, contracts.ColDate,
		contracts.ColPopulation,
		contracts.ColTotalCases, contracts.ColNewCases,
		contracts.ColTotalDeaths, contracts.ColNewDeaths,
	)

	var rows []*contracts.Observation
	for i := 0; i < 10; i++ {
		d := now.AddDate(0, 0, i-9)

		fra := &contracts.Observation{
			IsoCode: "FRA", Location: "France", Date: d,
			Population:  contracts.Float(68000000),
			TotalCases:  contracts.Float(1000 + float64(i)*100),
			NewCases:    contracts.Float(100),
			TotalDeaths: contracts.Float(50),
			NewDeaths:   contracts.Float(2),
		}
		if i == 5 {
			fra.TotalCases = nil
		}

		wrl := &contracts.Observation{
			IsoCode: "OWID_WRL", Location: "World", Date: d,
			Population:  contracts.Float(8000000000),
			TotalCases:  contracts.Float(500000),
			NewCases:    contracts.Float(10000),
			TotalDeaths: contracts.Float(20000),
			NewDeaths:   contracts.Float(300),
		}
		if i == 3 {
			wrl.NewCases = contracts.Float(-500)
		}

		rows = append(rows, fra, wrl)
	}
	return dataset.New(rows, columns)
}

func TestEngine_Run(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	engine := NewEngine(pipelineconfig.Default(), logger.NewNop())

	result, err := engine.Run(rawFixture(now), now)
	require.NoError(t, err)

	assert.Equal(t, 20, result.Dataset.Len())
	assert.Equal(t, 2, result.Dataset.Countries())

	// Day 5's missing cumulative is forward-filled from day 4.
	var fra []*contracts.Observation
	for _, row := range result.Dataset.Rows {
		if row.IsoCode == "FRA" {
			fra = append(fra, row)
		}
	}
	require.Len(t, fra, 10)
	require.NotNil(t, fra[5].TotalCases)
	assert.Equal(t, *fra[4].TotalCases, *fra[5].TotalCases)

	// Every row has derived metrics attached.
	for _, row := range result.Dataset.Rows {
		assert.NotNil(t, row.IncidenceRate100k, "row %s/%s", row.IsoCode, row.Date.Format("2006-01-02"))
		assert.NotNil(t, row.CaseFatalityRate)
		assert.NotNil(t, row.NewCases7DayAvg)
	}

	// The negative daily count is retained but penalized.
	var worldDay3 *contracts.Observation
	for _, row := range result.Dataset.Rows {
		if row.IsoCode == "OWID_WRL" && *row.NewCases < 0 {
			worldDay3 = row
		}
	}
	require.NotNil(t, worldDay3, "negative new_cases row was dropped")
	assert.LessOrEqual(t, worldDay3.QualityScore, 90.0)

	// Report covers both countries across the ten days.
	assert.Equal(t, 20, result.Report.TotalRows)
	assert.Equal(t, 2, result.Report.Countries)
	assert.Equal(t, 9, result.Report.DateRange.Days)
	// The day-5 gap was forward-filled before the report ran.
	assert.InDelta(t, 100.0, result.Report.Completeness[contracts.ColTotalCases], 0.01)
}

func TestEngine_Run_EmptyInput(t *testing.T) {
	engine := NewEngine(pipelineconfig.Default(), logger.NewNop())

	_, err := engine.Run(dataset.New(nil, nil), time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyInput)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, "input", stageErr.Stage)
}

func TestEngine_Run_MissingRequiredColumn(t *testing.T) {
	engine := NewEngine(pipelineconfig.Default(), logger.NewNop())

	ds := dataset.New([]*contracts.Observation{
		{IsoCode: "FRA", Date: time.Now()},
	}, dataset.NewColumnSet(contracts.ColNewCases))

	_, err := engine.Run(ds, time.Now())
	require.Error(t, err)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, "input", stageErr.Stage)
}

func TestEngine_Run_NothingSurvivesFilter(t *testing.T) {
	now := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	engine := NewEngine(pipelineconfig.Default(), logger.NewNop())

	columns := dataset.NewColumnSet(
		contracts.ColPopulation,
		contracts.ColTotalCases, contracts.ColNewCases,
		contracts.ColTotalDeaths, contracts.ColNewDeaths,
	)
	ds := dataset.New([]*contracts.Observation{
		{IsoCode: "USA", Date: now}, // not in the target list
	}, columns)

	_, err := engine.Run(ds, now)
	require.Error(t, err)

	var stageErr *StageError
	require.True(t, errors.As(err, &stageErr))
	assert.Equal(t, "filter", stageErr.Stage)
}
