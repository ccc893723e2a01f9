package transform

import (
	"testing"
	"time"

	"github.com/epiwatch/epiwatch/internal/contracts"
	"github.com/epiwatch/epiwatch/internal/dataset"
	"github.com/epiwatch/epiwatch/internal/pipelineconfig"
	"github.com/epiwatch/epiwatch/pkg/logger"
)

var testNow = time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)

func date(s string) time.Time {
	d, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestFilterer_Apply(t *testing.T) {
	cfg := pipelineconfig.Filter{
		TargetCountries: []string{"FRA", "DEU"},
		CoreColumns: []string{
			contracts.ColIsoCode, contracts.ColLocation, contracts.ColDate,
			contracts.ColNewCases, contracts.ColStringencyIndex,
		},
		RetentionDays: 30,
	}

	columns := dataset.NewColumnSet(
		contracts.ColIsoCode, contracts.ColLocation, contracts.ColDate,
		contracts.ColNewCases, contracts.ColTotalDeaths,
	)
	ds := dataset.New([]*contracts.Observation{
		{IsoCode: "FRA", Date: date("2026-05-20"), NewCases: contracts.Float(10), TotalDeaths: contracts.Float(5)},
		{IsoCode: "FRA", Date: date("2026-01-01"), NewCases: contracts.Float(99)}, // outside retention
		{IsoCode: "USA", Date: date("2026-05-20"), NewCases: contracts.Float(50)}, // not allow-listed
		{IsoCode: "DEU", Date: date("2026-05-25"), NewCases: contracts.Float(20)},
	}, columns)

	out := NewFilterer(cfg, logger.NewNop()).Apply(ds, testNow)

	if out.Len() != 2 {
		t.Fatalf("got %d rows, want 2", out.Len())
	}
	if out.Rows[0].IsoCode != "DEU" || out.Rows[1].IsoCode != "FRA" {
		t.Errorf("rows not sorted by country: %s, %s", out.Rows[0].IsoCode, out.Rows[1].IsoCode)
	}

	// stringency_index is allow-listed but absent from the source; it
	// must not appear in the output column set.
	if out.Columns.Has(contracts.ColStringencyIndex) {
		t.Error("absent source column was synthesized")
	}
	if !out.Columns.Has(contracts.ColNewCases) {
		t.Error("present allow-listed column was dropped")
	}

	// total_deaths exists in the source but is not allow-listed; both
	// the column and the field values must be gone.
	if out.Columns.Has(contracts.ColTotalDeaths) {
		t.Error("unlisted column survived filtering")
	}
	for _, row := range out.Rows {
		if row.TotalDeaths != nil {
			t.Errorf("row %s keeps unlisted field value", row.IsoCode)
		}
	}
}

func TestFilterer_Apply_CountryWithNoRows(t *testing.T) {
	cfg := pipelineconfig.Filter{
		TargetCountries: []string{"FRA", "ITA"},
		CoreColumns:     []string{contracts.ColIsoCode, contracts.ColLocation, contracts.ColDate, contracts.ColNewCases},
		RetentionDays:   30,
	}

	ds := dataset.New([]*contracts.Observation{
		{IsoCode: "FRA", Date: date("2026-05-20"), NewCases: contracts.Float(1)},
	}, dataset.NewColumnSet(contracts.ColIsoCode, contracts.ColLocation, contracts.ColDate, contracts.ColNewCases))

	out := NewFilterer(cfg, logger.NewNop()).Apply(ds, testNow)

	// ITA has no rows; that is not an error, it is simply absent.
	if out.Len() != 1 {
		t.Fatalf("got %d rows, want 1", out.Len())
	}
	if out.Countries() != 1 {
		t.Errorf("got %d countries, want 1", out.Countries())
	}
}
