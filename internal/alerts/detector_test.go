package alerts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/epiwatch/epiwatch/internal/contracts"
	"github.com/epiwatch/epiwatch/internal/dataset"
	"github.com/epiwatch/epiwatch/pkg/logger"
)

func detectorRow(iso string, incidence, cfr *float64) *contracts.Observation {
	return &contracts.Observation{
		IsoCode:           iso,
		Date:              time.Date(2026, 5, 10, 0, 0, 0, 0, time.UTC),
		IncidenceRate100k: incidence,
		CaseFatalityRate:  cfr,
	}
}

func newDetector() *Detector {
	return NewDetector(contracts.DefaultAlertThresholds(), logger.NewNop())
}

func TestDetector_IncidenceTiers(t *testing.T) {
	tests := []struct {
		name      string
		incidence float64
		wantKind  contracts.AlertKind
		wantSev   contracts.Severity
		wantNone  bool
	}{
		{name: "below both tiers", incidence: 120, wantNone: true},
		{name: "at the lower bound", incidence: 150, wantNone: true},
		{name: "high tier", incidence: 200, wantKind: contracts.AlertHighIncidence, wantSev: contracts.SeverityMedium},
		{name: "very high suppresses high", incidence: 350, wantKind: contracts.AlertVeryHighIncidence, wantSev: contracts.SeverityHigh},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ds := dataset.New([]*contracts.Observation{
				detectorRow("FRA", contracts.Float(tt.incidence), nil),
			}, nil)

			got := newDetector().Detect(ds)

			if tt.wantNone {
				assert.Empty(t, got)
				return
			}
			require.Len(t, got, 1)
			assert.Equal(t, tt.wantKind, got[0].Kind)
			assert.Equal(t, tt.wantSev, got[0].Severity)
			assert.Equal(t, "FRA", got[0].CountryCode)
			assert.True(t, got[0].Active)
		})
	}
}

func TestDetector_CFRIndependentOfIncidence(t *testing.T) {
	ds := dataset.New([]*contracts.Observation{
		detectorRow("FRA", contracts.Float(350), contracts.Float(5)),
	}, nil)

	got := newDetector().Detect(ds)

	require.Len(t, got, 2)
	// Output is sorted by (country, kind).
	assert.Equal(t, contracts.AlertHighCFR, got[0].Kind)
	assert.Equal(t, contracts.AlertVeryHighIncidence, got[1].Kind)
}

func TestDetector_MissingMetricsNeverAlert(t *testing.T) {
	ds := dataset.New([]*contracts.Observation{
		detectorRow("FRA", nil, nil),
	}, nil)

	assert.Empty(t, newDetector().Detect(ds))
}

func TestDetector_OnlyLatestDateEvaluated(t *testing.T) {
	old := detectorRow("FRA", contracts.Float(500), nil)
	old.Date = time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	ds := dataset.New([]*contracts.Observation{
		old,
		detectorRow("FRA", contracts.Float(50), nil),
	}, nil)

	// The historical breach is not the current state.
	assert.Empty(t, newDetector().Detect(ds))
}

func TestDetector_Idempotent(t *testing.T) {
	ds := dataset.New([]*contracts.Observation{
		detectorRow("FRA", contracts.Float(200), nil),
		detectorRow("DEU", contracts.Float(400), contracts.Float(4)),
	}, nil)

	d := newDetector()
	first := d.Detect(ds)
	second := d.Detect(ds)

	require.Len(t, first, 3)
	require.Len(t, second, 3)
	for i := range first {
		assert.Equal(t, first[i].Key(), second[i].Key())
		assert.Equal(t, first[i].MetricValue, second[i].MetricValue)
	}
}

func TestDetector_SortedOutput(t *testing.T) {
	ds := dataset.New([]*contracts.Observation{
		detectorRow("NLD", contracts.Float(200), nil),
		detectorRow("BEL", contracts.Float(200), nil),
		detectorRow("DEU", contracts.Float(200), nil),
	}, nil)

	got := newDetector().Detect(ds)

	require.Len(t, got, 3)
	assert.Equal(t, "BEL", got[0].CountryCode)
	assert.Equal(t, "DEU", got[1].CountryCode)
	assert.Equal(t, "NLD", got[2].CountryCode)
}
