// Command canvasagent serves the canvas command API and offers offline
// planning against scene files.
//
//	canvasagent serve
//	canvasagent plan --scene poster.yaml "make the heading bold and blue"
//	canvasagent apply --scene poster.yaml "center everything"
//
// Configuration is read from the environment and an optional .env file.
package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var version = "dev"

func main() {
	slog.SetDefault(newLogger(os.Stderr, "info", "text"))

	if err := buildRootCmd().Execute(); err != nil {
		slog.Error("command failed", "error", err)
		os.Exit(1)
	}
}

func buildRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "canvasagent",
		Short:        "Natural-language command agent for design canvases",
		Version:      version,
		SilenceUsage: true,
	}
	root.AddCommand(
		buildServeCmd(),
		buildPlanCmd(),
		buildApplyCmd(),
	)
	return root
}

func newLogger(w io.Writer, level, format string) *slog.Logger {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if format == "json" {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}
