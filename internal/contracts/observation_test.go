package contracts

import (
	"testing"
	"time"
)

func TestObservation_Field(t *testing.T) {
	o := &Observation{
		IsoCode: "FRA",
		Date:    time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC),
	}

	// Unknown and identity columns have no addressable field.
	for _, col := range []string{ColIsoCode, ColLocation, ColDate, "nonsense"} {
		if o.Field(col) != nil {
			t.Errorf("Field(%q) != nil", col)
		}
	}

	// Assignment through the column name lands on the struct field.
	*o.Field(ColNewCases) = Float(42)
	if o.NewCases == nil || *o.NewCases != 42 {
		t.Errorf("NewCases = %v, want 42", o.NewCases)
	}

	// Reads see the same storage.
	field := o.Field(ColNewCases)
	if field == nil || *field == nil || **field != 42 {
		t.Error("Field read does not alias the struct field")
	}

	// Every declared column resolves.
	for _, col := range []string{
		ColPopulation, ColTotalCases, ColNewCases, ColTotalDeaths, ColNewDeaths,
		ColTotalVaccinations, ColPeopleVaccinated, ColPeopleFullyVaccinated,
		ColNewVaccinations, ColStringencyIndex,
		ColIncidenceRate100k, ColDeathRate100k, ColCaseFatalityRate,
		ColVaccinationRate, ColNewCases7DayAvg, ColNewDeaths7DayAvg,
		ColIncidenceRate100k7DayAvg,
	} {
		if o.Field(col) == nil {
			t.Errorf("Field(%q) = nil", col)
		}
	}
}

func TestAlert_Key(t *testing.T) {
	a := &Alert{CountryCode: "FRA", Kind: AlertHighIncidence}
	b := &Alert{CountryCode: "FRA", Kind: AlertHighIncidence, MetricValue: 999}

	if a.Key() != b.Key() {
		t.Error("alerts for the same (country, kind) have different keys")
	}

	c := &Alert{CountryCode: "FRA", Kind: AlertHighCFR}
	if a.Key() == c.Key() {
		t.Error("different kinds share a key")
	}
}
