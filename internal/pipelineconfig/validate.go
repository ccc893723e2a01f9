package pipelineconfig

import (
	"fmt"

	"github.com/epiwatch/epiwatch/internal/contracts"
)

// ValidationError reports an invalid policy field.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// numericColumn reports whether name resolves to an optional numeric
// field on Observation. Identity columns and typos do not.
func numericColumn(name string) bool {
	var o contracts.Observation
	return o.Field(name) != nil
}

func identityColumn(name string) bool {
	switch name {
	case contracts.ColIsoCode, contracts.ColLocation, contracts.ColDate:
		return true
	}
	return false
}

// Validate checks the policy invariants the engine relies on. Column
// names are checked against the declared column set: a misspelled name
// would otherwise no-op silently, since field lookup returns nil for
// columns it does not know.
func Validate(cfg *Config) error {
	if len(cfg.Filter.TargetCountries) == 0 {
		return ValidationError{"filter.target_countries", "at least one country required"}
	}
	if len(cfg.Filter.CoreColumns) == 0 {
		return ValidationError{"filter.core_columns", "at least one column required"}
	}
	for _, col := range cfg.Filter.CoreColumns {
		if !identityColumn(col) && !numericColumn(col) {
			return ValidationError{"filter.core_columns", fmt.Sprintf("unknown column %s", col)}
		}
	}
	if cfg.Filter.RetentionDays <= 0 {
		return ValidationError{"filter.retention_days", "must be > 0"}
	}

	// A column cannot be both forward-filled and zero-filled.
	ffill := make(map[string]struct{}, len(cfg.Impute.ForwardFill))
	for _, col := range cfg.Impute.ForwardFill {
		if !numericColumn(col) {
			return ValidationError{"impute.forward_fill", fmt.Sprintf("unknown column %s", col)}
		}
		ffill[col] = struct{}{}
	}
	for _, col := range cfg.Impute.ZeroFill {
		if !numericColumn(col) {
			return ValidationError{"impute.zero_fill", fmt.Sprintf("unknown column %s", col)}
		}
		if _, dup := ffill[col]; dup {
			return ValidationError{"impute", fmt.Sprintf("column %s has two fill strategies", col)}
		}
	}

	t := cfg.Alerts.Thresholds
	if t.HighIncidence <= 0 || t.VeryHighIncidence <= 0 || t.HighCFR <= 0 {
		return ValidationError{"alerts.thresholds", "thresholds must be > 0"}
	}
	if t.VeryHighIncidence <= t.HighIncidence {
		return ValidationError{"alerts.thresholds", "very_high_incidence must exceed high_incidence"}
	}

	for _, col := range cfg.Score.KeyFields {
		if !numericColumn(col) {
			return ValidationError{"score.key_fields", fmt.Sprintf("unknown column %s", col)}
		}
	}
	if cfg.Score.MissingPenalty < 0 || cfg.Score.NegativePenalty < 0 || cfg.Score.CFRPenalty < 0 {
		return ValidationError{"score", "penalties must be >= 0"}
	}

	return nil
}
