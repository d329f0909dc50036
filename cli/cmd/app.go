package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/ronit111/documind/types"
)

// NewApp builds the documind CLI application.
func NewApp(commit string) *cli.App {
	return &cli.App{
		Name:    "documind",
		Usage:   "Document knowledge-base client: upload, watch and ask",
		Version: fmt.Sprintf("%s (commit: %s)", types.Version, commit),
		Flags:   GlobalFlags(),
		Commands: []*cli.Command{
			HealthCommand(),
			DocsCommand(),
			UploadCommand(),
			ChatCommand(),
			HistoryCommand(),
			VersionCommand(commit),
		},
	}
}
