package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/epiwatch/epiwatch/internal/alerts"
	"github.com/epiwatch/epiwatch/internal/store"
	"github.com/epiwatch/epiwatch/pkg/config"
	"github.com/epiwatch/epiwatch/pkg/database"
)

// statusCmd represents the status command
var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show the latest pipeline state",
	Long: `Prints the latest daily summary and the currently active
alerts from the database.

Example:
  go run ./cmd/epiwatch status`,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()

	reportRepo := store.NewReportRepository(db.Pool)
	summary, err := reportRepo.LatestSummary(ctx)
	if err != nil {
		return fmt.Errorf("load summary: %w", err)
	}

	if summary == nil {
		fmt.Println("No pipeline runs recorded yet")
	} else {
		fmt.Printf("Latest summary (%s)\n", summary.Date.Format("2006-01-02"))
		fmt.Printf("  Countries tracked:    %d\n", summary.TotalCountries)
		fmt.Printf("  Global new cases:     %s\n", formatCount(summary.NewGlobalCases))
		fmt.Printf("  Global new deaths:    %s\n", formatCount(summary.NewGlobalDeaths))
		fmt.Printf("  High incidence:       %d\n", summary.CountriesHighIncidence)
		fmt.Printf("  Mean completeness:    %.1f%%\n", summary.DataCompletenessPct)
	}

	alertRepo := alerts.NewRepository(db.Pool)
	active, err := alertRepo.GetActive(ctx)
	if err != nil {
		return fmt.Errorf("load alerts: %w", err)
	}

	fmt.Printf("\nActive alerts: %d\n", len(active))
	for _, alert := range active {
		fmt.Printf("  [%s] %s %s  value=%.2f threshold=%.2f\n",
			alert.Severity, alert.CountryCode, alert.Kind, alert.MetricValue, alert.Threshold)
	}
	return nil
}

func formatCount(v *float64) string {
	if v == nil {
		return "n/a"
	}
	return fmt.Sprintf("%.0f", *v)
}
