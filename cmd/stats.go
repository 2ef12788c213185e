package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/naka-gawa/portfolio-stats/internal/config"
	"github.com/naka-gawa/portfolio-stats/internal/logger"
	"github.com/naka-gawa/portfolio-stats/internal/report"
	"github.com/naka-gawa/portfolio-stats/internal/usecase"
	"github.com/spf13/cobra"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Aggregates GitHub stats for a user and prints them",
	Long: `Aggregates repository count, language bytes and the daily commit activity of the
last year for a GitHub user, and prints the result as JSON or as a text report.
The user defaults to GITHUB_USERNAME. GITHUB_TOKEN is optional; when it belongs
to the user, private and collaborator repositories are included.`,
	Run: func(cmd *cobra.Command, args []string) {
		ctx := context.Background()

		verbose, _ := cmd.InheritedFlags().GetBool("verbose")
		log := logger.NewCLI(verbose)
		defer log.Sync()

		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
			os.Exit(1)
		}

		user, _ := cmd.Flags().GetString("user")
		if user == "" {
			user = cfg.DefaultUsername
		}
		if user == "" {
			fmt.Fprintln(os.Stderr, "Error: --user is required when GITHUB_USERNAME is not set.")
			os.Exit(1)
		}
		format, _ := cmd.Flags().GetString("format")
		if format != "json" && format != "text" {
			fmt.Fprintf(os.Stderr, "Invalid --format %q. Please use json or text.\n", format)
			os.Exit(1)
		}

		fetcher, err := newFetcher(cfg, log)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to create GitHub gateway: %v\n", err)
			os.Exit(1)
		}
		aggregator := usecase.NewAggregator(fetcher, log)

		results, err := aggregator.Aggregate(ctx, user)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to aggregate stats: %v\n", err)
			os.Exit(1)
		}

		if format == "text" {
			if err := report.WriteText(os.Stdout, user, results); err != nil {
				fmt.Fprintf(os.Stderr, "Failed to render report: %v\n", err)
				os.Exit(1)
			}
			return
		}

		jsonData, err := json.MarshalIndent(results, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to marshal results to JSON: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(jsonData))
	},
}

func init() {
	rootCmd.AddCommand(statsCmd)
	statsCmd.Flags().StringP("user", "u", "", "Target GitHub user name (defaults to GITHUB_USERNAME)")
	statsCmd.Flags().StringP("format", "f", "json", "Output format: json or text")
}
