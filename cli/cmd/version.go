package cmd

import (
	"github.com/urfave/cli/v2"

	"github.com/ronit111/documind/cli/render"
	"github.com/ronit111/documind/types"
)

// VersionResponse is the response for the version command.
type VersionResponse struct {
	Version       string `json:"version"`
	Commit        string `json:"commit"`
	EventContract string `json:"event_contract"`
}

// VersionCommand returns the version command.
// It must not contact the server or read config.
func VersionCommand(commit string) *cli.Command {
	return &cli.Command{
		Name:   "version",
		Usage:  "Show version information",
		Action: versionAction(commit),
	}
}

func versionAction(commit string) cli.ActionFunc {
	return func(c *cli.Context) error {
		r, err := render.NewRenderer(c)
		if err != nil {
			return cli.Exit(err.Error(), exitValidation)
		}

		return r.Render(VersionResponse{
			Version:       types.Version,
			Commit:        commit,
			EventContract: types.EventContractVersion,
		})
	}
}
