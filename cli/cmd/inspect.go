package cmd

import (
	"fmt"

	"github.com/urfave/cli/v2"

	"github.com/slipstream-io/framecap/cli/render"
	"github.com/slipstream-io/framecap/report"
)

// InspectCommand returns the inspect command. Inspect reads a
// recording report sidecar written by record --report.
func InspectCommand() *cli.Command {
	return &cli.Command{
		Name:      "inspect",
		Usage:     "Show a recording report",
		ArgsUsage: "<report>",
		Flags:     ReadOnlyFlags(),
		Action:    inspectAction,
	}
}

func inspectAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("inspect requires exactly one report path", exitEngineCrash)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	rep, err := report.ReadFile(c.Args().First())
	if err != nil {
		return cli.Exit(fmt.Sprintf("cannot read report: %v", err), exitEngineCrash)
	}

	return r.Render(rep)
}
