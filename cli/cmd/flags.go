// Package cmd provides CLI commands for the documind binary.
package cmd

import "github.com/urfave/cli/v2"

// Exit codes shared by every command.
const (
	exitSuccess    = 0
	exitRequest    = 1
	exitValidation = 2
	exitConfig     = 3
)

// Global flags. They are accepted before the command name.
var (
	// ConfigFlag points at a documind.yaml file.
	ConfigFlag = &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config file (default ./documind.yaml if present)",
	}

	// APIURLFlag overrides api_url.
	APIURLFlag = &cli.StringFlag{
		Name:  "api-url",
		Usage: "Server API base URL, e.g. http://localhost:8000/api",
	}

	// DebugFlag lowers the log level to debug.
	DebugFlag = &cli.BoolFlag{
		Name:  "debug",
		Usage: "Enable debug logging",
	}

	// FormatFlag selects output format: json, table, yaml.
	FormatFlag = &cli.StringFlag{
		Name:    "format",
		Aliases: []string{"f"},
		Usage:   "Output format: json, table, yaml",
	}

	// NoColorFlag disables colored output.
	NoColorFlag = &cli.BoolFlag{
		Name:  "no-color",
		Usage: "Disable colored output",
	}

	// StatsFlag prints session metrics to stderr when the command ends.
	StatsFlag = &cli.BoolFlag{
		Name:  "stats",
		Usage: "Print session metrics to stderr on exit",
	}
)

// TUIFlag enables Bubble Tea interactive mode (chat, upload).
var TUIFlag = &cli.BoolFlag{
	Name:  "tui",
	Usage: "Enable interactive TUI mode",
}

// GlobalFlags returns the flags shared by every command.
func GlobalFlags() []cli.Flag {
	return []cli.Flag{
		ConfigFlag,
		APIURLFlag,
		DebugFlag,
		FormatFlag,
		NoColorFlag,
		StatsFlag,
	}
}
