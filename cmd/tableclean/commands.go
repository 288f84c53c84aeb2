package main

import (
	"log/slog"

	"github.com/JonMunkholm/tableclean/internal/config"
	"github.com/JonMunkholm/tableclean/internal/logging"
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	cfg *config.Config

	extractTable string
	extractOut   string

	skewTable string
	skewFile  string
	skewJSON  bool

	cleanPlan string
	cleanJSON bool

	rootCmd = &cobra.Command{
		Use:   "tableclean",
		Short: "Clean PostgreSQL tables: outliers, normalization and skew reduction",
		Long: `tableclean extracts a table (or reads a CSV/parquet file), replaces
outliers, normalizes text columns and picks the transform that minimizes
each numeric column's skew, then exports or writes the result back.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := config.Load()
			if err != nil {
				return err
			}
			cfg = loaded
			logging.Setup(cfg.Logging.Level, cfg.Logging.Format)
			slog.Debug("configuration loaded", "config", cfg.String())
			return nil
		},
	}

	extractCmd = &cobra.Command{
		Use:   "extract",
		Short: "Copy a table into a CSV or parquet file",
		Args:  cobra.NoArgs,
		RunE:  runExtract, // Defined in cmd_extract.go
	}

	skewCmd = &cobra.Command{
		Use:   "skew",
		Short: "Print the skewness of every numeric column",
		Args:  cobra.NoArgs,
		RunE:  runSkew, // Defined in cmd_extract.go
	}

	cleanCmd = &cobra.Command{
		Use:   "clean",
		Short: "Run a cleaning plan and print the transform report",
		Args:  cobra.NoArgs,
		RunE:  runClean, // Defined in cmd_clean.go
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Serve the cleaning HTTP API",
		Args:  cobra.NoArgs,
		RunE:  runServe, // Defined in cmd_serve.go
	}
)

func init() {
	extractCmd.Flags().StringVar(&extractTable, "table", "", "table to extract (schema.table allowed)")
	extractCmd.Flags().StringVar(&extractOut, "out", "", "output file; .csv or .parquet")
	_ = extractCmd.MarkFlagRequired("table")
	_ = extractCmd.MarkFlagRequired("out")

	skewCmd.Flags().StringVar(&skewTable, "table", "", "table to measure")
	skewCmd.Flags().StringVar(&skewFile, "file", "", "CSV or parquet file to measure")
	skewCmd.Flags().BoolVar(&skewJSON, "json", false, "print JSON")
	skewCmd.MarkFlagsOneRequired("table", "file")
	skewCmd.MarkFlagsMutuallyExclusive("table", "file")

	cleanCmd.Flags().StringVar(&cleanPlan, "plan", "", "cleaning plan YAML file")
	cleanCmd.Flags().BoolVar(&cleanJSON, "json", false, "print the full run report as JSON")
	_ = cleanCmd.MarkFlagRequired("plan")

	rootCmd.AddCommand(extractCmd, skewCmd, cleanCmd, serveCmd)
}
