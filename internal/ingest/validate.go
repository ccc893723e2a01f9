package ingest

import (
	"fmt"
	"time"

	"github.com/epiwatch/epiwatch/internal/contracts"
	"github.com/epiwatch/epiwatch/internal/dataset"
	"github.com/epiwatch/epiwatch/pkg/logger"
)

// staleAfterDays is the age past which the snapshot is flagged stale.
const staleAfterDays = 7

// requiredColumns must exist in the raw download for a run to start.
var requiredColumns = []string{
	contracts.ColDate,
	contracts.ColLocation,
	contracts.ColTotalCases,
	contracts.ColNewCases,
}

// Validator performs the structural checks on a freshly parsed raw
// dataset. Structural problems are fatal; stale data only warns.
type Validator struct {
	logger *logger.Logger
}

// NewValidator creates a validator.
func NewValidator(log *logger.Logger) *Validator {
	return &Validator{
		logger: log.WithField("component", "ingest.validator"),
	}
}

// Validate checks that the dataset is non-empty and carries the
// required columns, and logs a staleness warning when the newest date
// is older than a week.
func (v *Validator) Validate(ds *dataset.Dataset, now time.Time) error {
	if ds.Len() == 0 {
		return fmt.Errorf("raw dataset is empty")
	}

	for _, col := range requiredColumns {
		if !ds.Columns.Has(col) {
			return fmt.Errorf("required column %s missing", col)
		}
	}

	_, max, _ := ds.DateRange()
	ageDays := int(now.Sub(max).Hours() / 24)
	if ageDays > staleAfterDays {
		v.logger.WithFields(map[string]interface{}{
			"latest_date": max.Format("2006-01-02"),
			"age_days":    ageDays,
		}).Warn("Raw data is stale")
	}

	v.logger.WithFields(map[string]interface{}{
		"rows":      ds.Len(),
		"countries": ds.Countries(),
		"columns":   len(ds.Columns),
	}).Info("Raw data validated")

	return nil
}
