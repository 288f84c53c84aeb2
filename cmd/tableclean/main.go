package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/JonMunkholm/tableclean/internal/core"
	"github.com/joho/godotenv"
)

func main() {
	// Load .env file if it exists (Overload overwrites existing env vars)
	if err := godotenv.Overload(); err != nil {
		slog.Debug("no .env file found, using environment variables")
	} else {
		slog.Debug("loaded .env file (overwriting existing env vars)")
	}

	if err := rootCmd.Execute(); err != nil {
		slog.Debug("command failed", "error", err)
		fmt.Fprintln(os.Stderr, core.FormatUserError(err))
		os.Exit(1)
	}
}
