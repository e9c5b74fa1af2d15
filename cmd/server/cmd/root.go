package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/jengzang/site-fence-backend-go/internal/logger"
	"github.com/jengzang/site-fence-backend-go/internal/server"
	"github.com/jengzang/site-fence-backend-go/internal/version"
)

var (
	// configPath to the YAML settings file
	configPath string
	// port overrides the configured listen address
	port string

	rootCmd = &cobra.Command{
		Use:   "fence-server",
		Short: "Construction-site electronic fence API.",
		Long: `Serves the fence administration API and evaluates device location
reports against electronic fences, raising deduplicated alarms.

Settings come from a YAML file, then environment variables (PORT, DB_PATH,
LOG_LEVEL, TIMEZONE, RECOMPUTE_WORKERS). A .env.local file is loaded first if present.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default).",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context())
		},
	}

	migrateCmd = &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return server.Migrate(cmd.Context(), options())
		},
	}

	recomputeCmd = &cobra.Command{
		Use:   "recompute",
		Short: "Re-evaluate every active fence once and refresh violator counts.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			summary, err := server.Recompute(cmd.Context(), options())
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "fences=%d violators=%d alarms_raised=%d\n",
				summary.Fences, summary.Violators, summary.AlarmsRaised)
			return nil
		},
	}
)

func options() *server.Options {
	return &server.Options{ConfigPath: configPath, Port: port}
}

func runServe(ctx context.Context) error {
	return server.Run(ctx, options())
}

// Execute runs the fence-server CLI and exits with non-zero status on error
func Execute() {
	// Optional local overrides; a missing file is fine
	_ = godotenv.Load(".env.local")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()
	defer logger.Sync()

	version.AttachCommand(rootCmd)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		logger.Errorf(ctx, "fence-server: %v", err)
		logger.Sync()
		stop()
		os.Exit(1)
	}
}

//nolint:gochecknoinits // Required by Cobra CLI framework architecture.
func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to configuration file")
	rootCmd.PersistentFlags().StringVarP(&port, "port", "p", "", "listen address, overrides settings")

	// Errors are logged once by Execute
	rootCmd.SilenceUsage = true
	rootCmd.SilenceErrors = true

	rootCmd.AddCommand(serveCmd, migrateCmd, recomputeCmd)
}
