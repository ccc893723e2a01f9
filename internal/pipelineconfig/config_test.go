package pipelineconfig

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/epiwatch/epiwatch/internal/contracts"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if err := Validate(cfg); err != nil {
		t.Fatalf("default policy invalid: %v", err)
	}

	if len(cfg.Filter.TargetCountries) != 8 {
		t.Errorf("got %d target countries, want 8", len(cfg.Filter.TargetCountries))
	}
	if cfg.Filter.RetentionDays != 730 {
		t.Errorf("retention = %d, want 730", cfg.Filter.RetentionDays)
	}
	if cfg.Alerts.Thresholds.HighIncidence != 150 || cfg.Alerts.Thresholds.VeryHighIncidence != 300 {
		t.Errorf("incidence thresholds = %v/%v, want 150/300",
			cfg.Alerts.Thresholds.HighIncidence, cfg.Alerts.Thresholds.VeryHighIncidence)
	}
	if cfg.Alerts.Thresholds.HighCFR != 3.0 {
		t.Errorf("CFR threshold = %v, want 3.0", cfg.Alerts.Thresholds.HighCFR)
	}
}

func TestLoad_EmptyPathReturnsDefault(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Score.MissingPenalty != 15 {
		t.Errorf("missing penalty = %v, want 15", cfg.Score.MissingPenalty)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	path := writePolicy(t, `
filter:
  target_countries: ["FRA", "DEU"]
  retention_days: 90
alerts:
  thresholds:
    high_incidence: 100
    very_high_incidence: 200
    high_cfr: 2.5
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if len(cfg.Filter.TargetCountries) != 2 {
		t.Errorf("got %d target countries, want 2", len(cfg.Filter.TargetCountries))
	}
	if cfg.Filter.RetentionDays != 90 {
		t.Errorf("retention = %d, want 90", cfg.Filter.RetentionDays)
	}
	if cfg.Alerts.Thresholds.HighCFR != 2.5 {
		t.Errorf("CFR threshold = %v, want 2.5", cfg.Alerts.Thresholds.HighCFR)
	}
	// Untouched sections keep their defaults.
	if len(cfg.Filter.CoreColumns) == 0 {
		t.Error("core columns lost their default")
	}
}

func TestLoad_UnknownFieldFails(t *testing.T) {
	path := writePolicy(t, `
filter:
  target_contries: ["FRA"]
`)

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for unknown field, got nil")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{
			name:   "default is valid",
			mutate: func(*Config) {},
		},
		{
			name:    "no countries",
			mutate:  func(c *Config) { c.Filter.TargetCountries = nil },
			wantErr: true,
		},
		{
			name:    "no columns",
			mutate:  func(c *Config) { c.Filter.CoreColumns = nil },
			wantErr: true,
		},
		{
			name:    "zero retention",
			mutate:  func(c *Config) { c.Filter.RetentionDays = 0 },
			wantErr: true,
		},
		{
			name: "column with two fill strategies",
			mutate: func(c *Config) {
				c.Impute.ZeroFill = append(c.Impute.ZeroFill, contracts.ColTotalCases)
			},
			wantErr: true,
		},
		{
			name: "misspelled core column",
			mutate: func(c *Config) {
				c.Filter.CoreColumns = append(c.Filter.CoreColumns, "total_casez")
			},
			wantErr: true,
		},
		{
			name: "identity column allowed in core columns",
			mutate: func(c *Config) {
				c.Filter.CoreColumns = []string{contracts.ColIsoCode, contracts.ColDate, contracts.ColNewCases}
			},
		},
		{
			name: "misspelled forward fill column",
			mutate: func(c *Config) {
				c.Impute.ForwardFill = append(c.Impute.ForwardFill, "totl_cases")
			},
			wantErr: true,
		},
		{
			name: "identity column not fillable",
			mutate: func(c *Config) {
				c.Impute.ZeroFill = append(c.Impute.ZeroFill, contracts.ColLocation)
			},
			wantErr: true,
		},
		{
			name: "misspelled key field",
			mutate: func(c *Config) {
				c.Score.KeyFields = []string{contracts.ColNewCases, "populaton"}
			},
			wantErr: true,
		},
		{
			name:    "inverted incidence tiers",
			mutate:  func(c *Config) { c.Alerts.Thresholds.VeryHighIncidence = 100 },
			wantErr: true,
		},
		{
			name:    "negative penalty",
			mutate:  func(c *Config) { c.Score.CFRPenalty = -1 },
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := Validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func writePolicy(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pipeline.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}
