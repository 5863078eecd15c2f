package main

import (
	"os"

	"vos-tools/build"
	cliutil "vos-tools/cmd"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"
)

var log = logging.Logger("vmv")

func before(_ *cli.Context) error {
	cliutil.SetupLogging("vmv")
	return nil
}

func main() {
	app := &cli.App{
		Name:                 "vmv",
		Usage:                "move or rename a VOSpace node",
		ArgsUsage:            "<source> <destination>",
		EnableBashCompletion: true,
		Version:              build.UserVersion(),
		Before:               before,
		Flags:                cliutil.ClientFlags,
		Action:               run,
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
	if cctx.NArg() != 2 {
		return xerrors.Errorf("requires a source and a destination argument")
	}

	c, err := cliutil.NewClient(cctx)
	if err != nil {
		return err
	}

	src := cctx.Args().Get(0)
	dest := cctx.Args().Get(1)
	log.Infof("moving %s to %s", src, dest)
	return c.Move(cctx.Context, src, dest)
}
