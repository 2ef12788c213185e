// Package cmd contains all the CLI commands for the application,
// built using the Cobra library.
package cmd

import (
	"os"

	"github.com/naka-gawa/portfolio-stats/internal/config"
	"github.com/naka-gawa/portfolio-stats/internal/gateway"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var rootCmd = &cobra.Command{
	Use:   "portfolio-stats",
	Short: "GitHub statistics backend for a portfolio site.",
	Long: `portfolio-stats aggregates a GitHub user's repositories, language usage
and daily commit activity over the last year. It can print the result once
(stats) or serve it over HTTP for the portfolio front end (serve).`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}

func init() {
	// Add a persistent flag for verbose output, available to all commands.
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose/debug logging")
}

// newFetcher builds the GitHub gateway from the loaded configuration.
func newFetcher(cfg *config.Config, logger *zap.Logger) (gateway.Fetcher, error) {
	return gateway.NewGitHubGateway(gateway.Options{
		Token:             cfg.GitHubToken,
		BaseURL:           cfg.GitHubAPIURL,
		GraphQLURL:        cfg.GitHubGraphQLURL,
		Timeout:           cfg.HTTPTimeout,
		RateLimitMaxSleep: cfg.RateLimitMaxSleep,
	}, logger)
}
