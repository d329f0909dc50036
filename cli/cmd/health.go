package cmd

import (
	"github.com/urfave/cli/v2"
)

// HealthCommand returns the health command.
func HealthCommand() *cli.Command {
	return &cli.Command{
		Name:   "health",
		Usage:  "Check that the server is reachable and report index counts",
		Action: healthAction,
	}
}

func healthAction(c *cli.Context) error {
	d, err := setup(c)
	if err != nil {
		return err
	}
	defer d.close(c)

	resp, err := d.client.Health(c.Context)
	if err != nil {
		return requestFailed("health check", err)
	}
	return d.renderer.Render(resp)
}
