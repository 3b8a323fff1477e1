// Command modelcore serves the models of a model repository through backend
// plugins and exposes an admin HTTP API to load, unload and reload them.
package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "modelcore:", err)
		os.Exit(1)
	}
}

// rootOptions are the flags shared by every subcommand.
type rootOptions struct {
	logLevel  string
	logFormat string
}

func newRootCmd() *cobra.Command {
	ro := &rootOptions{logLevel: envOr("MODELCORE_LOG_LEVEL", "info"), logFormat: "console"}
	root := &cobra.Command{
		Use:           "modelcore",
		Short:         "Backend plugin and model instance orchestration",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&ro.logLevel, "log-level", ro.logLevel, "Log level: debug|info|warn|error (defaults MODELCORE_LOG_LEVEL or info)")
	root.PersistentFlags().StringVar(&ro.logFormat, "log-format", ro.logFormat, "Log format: console|json")

	root.AddCommand(newServeCmd(ro), newValidateCmd(ro), newBackendsCmd(ro))
	return root
}

// logger builds the process logger from the shared flags.
func (ro *rootOptions) logger() (zerolog.Logger, error) {
	lvl, err := zerolog.ParseLevel(strings.ToLower(ro.logLevel))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid --log-level %q: %w", ro.logLevel, err)
	}
	switch ro.logFormat {
	case "json":
		return zerolog.New(os.Stderr).Level(lvl).With().Timestamp().Logger(), nil
	case "console", "":
		w := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"}
		return zerolog.New(w).Level(lvl).With().Timestamp().Logger(), nil
	default:
		return zerolog.Nop(), fmt.Errorf("invalid --log-format %q: want console or json", ro.logFormat)
	}
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// splitCSV splits a comma-separated list, dropping blanks.
func splitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
