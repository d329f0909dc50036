package cmd

import (
	"errors"

	"github.com/urfave/cli/v2"

	"github.com/ronit111/documind/cli/render"
	"github.com/ronit111/documind/lode"
)

// HistoryCommand returns the history command.
func HistoryCommand() *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Show archived chat turns",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "session",
				Usage: "Only show turns of this session id",
			},
			&cli.IntFlag{
				Name:  "limit",
				Usage: "Maximum number of most recent turns (0 = no limit)",
				Value: 20,
			},
		},
		Action: historyAction,
	}
}

func historyAction(c *cli.Context) error {
	if c.Int("limit") < 0 {
		return cli.Exit("--limit must be >= 0", exitValidation)
	}

	d, err := setup(c)
	if err != nil {
		return err
	}
	defer d.close(c)

	archive, err := d.openArchive(c.Context)
	if err != nil {
		return err
	}
	if archive == nil {
		return cli.Exit("history requires archive.backend in config", exitConfig)
	}

	turns, err := archive.History(c.Context, c.String("session"), c.Int("limit"))
	if errors.Is(err, lode.ErrNoTurns) {
		return d.renderer.Render(render.Turns{})
	}
	if err != nil {
		return cli.Exit("failed to read archive: "+err.Error(), exitRequest)
	}
	return d.renderer.Render(render.Turns(turns))
}
