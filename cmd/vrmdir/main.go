package main

import (
	"os"

	"vos-tools/build"
	cliutil "vos-tools/cmd"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"
)

var log = logging.Logger("vrmdir")

func before(_ *cli.Context) error {
	cliutil.SetupLogging("vrmdir")
	return nil
}

func main() {
	app := &cli.App{
		Name:                 "vrmdir",
		Usage:                "remove VOSpace container nodes, contents included",
		ArgsUsage:            "<container> [<container> ...]",
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
	if cctx.NArg() == 0 {
		return xerrors.Errorf("requires at least one container argument")
	}

	c, err := cliutil.NewClient(cctx)
	if err != nil {
		return err
	}

	for _, arg := range cctx.Args().Slice() {
		node, err := c.GetNode(cctx.Context, arg, 0)
		if err != nil {
			return err
		}
		if !node.IsDir() {
			return xerrors.Errorf("%s is not a container, use vrm", arg)
		}
		log.Infof("deleting %s", arg)
		if err := c.Delete(cctx.Context, arg); err != nil {
			return err
		}
	}
	return nil
}
