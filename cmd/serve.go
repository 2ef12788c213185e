package cmd

import (
	"fmt"
	"os"

	"github.com/naka-gawa/portfolio-stats/internal/api"
	"github.com/naka-gawa/portfolio-stats/internal/config"
	"github.com/naka-gawa/portfolio-stats/internal/logger"
	"github.com/naka-gawa/portfolio-stats/internal/usecase"
	"github.com/spf13/cobra"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serves GitHub stats over HTTP",
	Long:  `Starts the HTTP API. GET /api/github-stats?username=<login> returns the aggregated stats as JSON.`,
	Run: func(cmd *cobra.Command, args []string) {
		verbose, _ := cmd.InheritedFlags().GetBool("verbose")

		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
			os.Exit(1)
		}

		fx.New(
			fx.Supply(cfg),
			fx.Provide(
				func(cfg *config.Config) *zap.Logger {
					return logger.New(cfg.IsDev() || verbose)
				},
				newFetcher,
				usecase.NewAggregator,
			),
			fx.Decorate(func(l *zap.Logger) *zap.Logger {
				return l.With(zap.String("service", "portfolio-stats"))
			}),
			fx.Invoke(api.Run),
			fx.WithLogger(func(l *zap.Logger) fxevent.Logger {
				return &fxevent.ZapLogger{Logger: l}
			}),
		).Run()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
