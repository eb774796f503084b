package cmd

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/slipstream-io/framecap/cli/render"
	"github.com/slipstream-io/framecap/replay"
)

// ProbeCommand returns the probe command. Probe decodes a replay's
// structure without spawning anything.
func ProbeCommand() *cli.Command {
	return &cli.Command{
		Name:      "probe",
		Usage:     "Decode a replay file and show its structure",
		ArgsUsage: "<replay>",
		Flags:     ReadOnlyFlags(),
		Action:    probeAction,
	}
}

func probeAction(c *cli.Context) error {
	if c.NArg() != 1 {
		return cli.Exit("probe requires exactly one replay path", exitEngineCrash)
	}

	r, err := render.NewRenderer(c)
	if err != nil {
		return err
	}

	path := c.Args().First()
	buf, err := os.ReadFile(path)
	if err != nil {
		return cli.Exit(fmt.Sprintf("cannot read replay: %v", err), exitMalformed)
	}

	summary, err := replay.Summarize(buf)
	if err != nil {
		return cli.Exit(fmt.Sprintf("replay decoding failed: %v", err), exitMalformed)
	}

	return r.Render(summary)
}
