package contracts

import "time"

// Column names as they appear in the OWID source CSV and in the
// covid_daily_data table. Derived columns are produced by the engine
// and never read from the source.
const (
	ColIsoCode               = "iso_code"
	ColLocation              = "location"
	ColDate                  = "date"
	ColPopulation            = "population"
	ColTotalCases            = "total_cases"
	ColNewCases              = "new_cases"
	ColTotalDeaths           = "total_deaths"
	ColNewDeaths             = "new_deaths"
	ColTotalVaccinations     = "total_vaccinations"
	ColPeopleVaccinated      = "people_vaccinated"
	ColPeopleFullyVaccinated = "people_fully_vaccinated"
	ColNewVaccinations       = "new_vaccinations"
	ColStringencyIndex       = "stringency_index"

	ColIncidenceRate100k        = "incidence_rate_100k"
	ColDeathRate100k            = "death_rate_100k"
	ColCaseFatalityRate         = "case_fatality_rate"
	ColVaccinationRate          = "vaccination_rate"
	ColNewCases7DayAvg          = "new_cases_7day_avg"
	ColNewDeaths7DayAvg         = "new_deaths_7day_avg"
	ColIncidenceRate100k7DayAvg = "incidence_rate_100k_7day_avg"
)

// Observation is one country-day row. Optional numeric fields are
// pointers; nil means the value is missing in the source (or was not
// produced by the engine). There is exactly one Observation per
// (IsoCode, Date) pair.
type Observation struct {
	IsoCode  string    `json:"iso_code"`
	Location string    `json:"location"`
	Date     time.Time `json:"date"`

	// Raw fields
	Population            *float64 `json:"population,omitempty"`
	TotalCases            *float64 `json:"total_cases,omitempty"`
	NewCases              *float64 `json:"new_cases,omitempty"`
	TotalDeaths           *float64 `json:"total_deaths,omitempty"`
	NewDeaths             *float64 `json:"new_deaths,omitempty"`
	TotalVaccinations     *float64 `json:"total_vaccinations,omitempty"`
	PeopleVaccinated      *float64 `json:"people_vaccinated,omitempty"`
	PeopleFullyVaccinated *float64 `json:"people_fully_vaccinated,omitempty"`
	NewVaccinations       *float64 `json:"new_vaccinations,omitempty"`
	StringencyIndex       *float64 `json:"stringency_index,omitempty"`

	// Derived fields, computed by the engine
	IncidenceRate100k        *float64 `json:"incidence_rate_100k,omitempty"`
	DeathRate100k            *float64 `json:"death_rate_100k,omitempty"`
	CaseFatalityRate         *float64 `json:"case_fatality_rate,omitempty"`
	VaccinationRate          *float64 `json:"vaccination_rate,omitempty"`
	NewCases7DayAvg          *float64 `json:"new_cases_7day_avg,omitempty"`
	NewDeaths7DayAvg         *float64 `json:"new_deaths_7day_avg,omitempty"`
	IncidenceRate100k7DayAvg *float64 `json:"incidence_rate_100k_7day_avg,omitempty"`

	// Row metadata, recomputed every run
	QualityScore float64 `json:"data_quality_score"`
}

// Field returns a pointer to the named optional field, or nil for
// unknown/identity columns. The double pointer lets callers both read
// and assign through a column name.
func (o *Observation) Field(column string) **float64 {
	switch column {
	case ColPopulation:
		return &o.Population
	case ColTotalCases:
		return &o.TotalCases
	case ColNewCases:
		return &o.NewCases
	case ColTotalDeaths:
		return &o.TotalDeaths
	case ColNewDeaths:
		return &o.NewDeaths
	case ColTotalVaccinations:
		return &o.TotalVaccinations
	case ColPeopleVaccinated:
		return &o.PeopleVaccinated
	case ColPeopleFullyVaccinated:
		return &o.PeopleFullyVaccinated
	case ColNewVaccinations:
		return &o.NewVaccinations
	case ColStringencyIndex:
		return &o.StringencyIndex
	case ColIncidenceRate100k:
		return &o.IncidenceRate100k
	case ColDeathRate100k:
		return &o.DeathRate100k
	case ColCaseFatalityRate:
		return &o.CaseFatalityRate
	case ColVaccinationRate:
		return &o.VaccinationRate
	case ColNewCases7DayAvg:
		return &o.NewCases7DayAvg
	case ColNewDeaths7DayAvg:
		return &o.NewDeaths7DayAvg
	case ColIncidenceRate100k7DayAvg:
		return &o.IncidenceRate100k7DayAvg
	}
	return nil
}

// Float returns a pointer to a copy of v. Convenience for building
// Observations literally, mostly in tests.
func Float(v float64) *float64 {
	return &v
}
