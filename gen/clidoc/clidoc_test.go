package clidoc

import (
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

func TestToMarkdown(t *testing.T) {
	app := &cli.App{
		Name:  "vtool",
		Usage: "work on a storage space",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:    "verbose",
				Aliases: []string{"v"},
				Usage:   "print informational messages",
			},
			&cli.StringFlag{
				Name:    "endpoint",
				Usage:   "service address",
				EnvVars: []string{"VOSPACE_WEBSERVICE"},
			},
		},
		Commands: []*cli.Command{
			{
				Name:      "list",
				Usage:     "list a container",
				UsageText: "vtool list vos:proj",
				Flags: []cli.Flag{
					&cli.BoolFlag{Name: "long", Aliases: []string{"l"}},
				},
			},
			{
				Name:   "secret",
				Hidden: true,
			},
		},
	}

	out, err := ToMarkdown(app)
	require.NoError(t, err)

	require.Contains(t, out, "# NAME")
	require.Contains(t, out, "vtool - work on a storage space")
	require.Contains(t, out, "# GLOBAL OPTIONS")
	require.Contains(t, out, "--verbose, -v")
	require.Contains(t, out, "[VOSPACE_WEBSERVICE]")
	require.Contains(t, out, "## list")
	require.Contains(t, out, "vtool list vos:proj")
	require.Contains(t, out, "--long, -l")
	require.NotContains(t, out, "secret")
}
