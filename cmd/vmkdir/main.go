package main

import (
	"os"

	"vos-tools/build"
	cliutil "vos-tools/cmd"

	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"
)

func before(_ *cli.Context) error {
	cliutil.SetupLogging("vmkdir")
	return nil
}

func main() {
	app := &cli.App{
		Name:                 "vmkdir",
		Usage:                "create a new VOSpace container node",
		ArgsUsage:            "<container> [<container> ...]",
		EnableBashCompletion: true,
		Version:              build.UserVersion(),
		Before:               before,
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:    "parents",
				Aliases: []string{"p"},
				Usage:   "create intermediate containers as required",
			},
		}, cliutil.ClientFlags...),
		Action: run,
		Commands: []*cli.Command{
			cliutil.GenerateDocCmd,
		},
	}
	app.Setup()

	if err := app.Run(os.Args); err != nil {
		os.Stderr.WriteString("Error: " + err.Error() + "\n")
		os.Exit(1)
	}
}

func run(cctx *cli.Context) error {
	if cctx.NArg() == 0 {
		return xerrors.Errorf("requires at least one container argument")
	}

	c, err := cliutil.NewClient(cctx)
	if err != nil {
		return err
	}

	for _, arg := range cctx.Args().Slice() {
		if cctx.Bool("parents") {
			err = c.MkdirAll(cctx.Context, arg)
		} else {
			err = c.Mkdir(cctx.Context, arg)
		}
		if err != nil {
			return err
		}
	}
	return nil
}
