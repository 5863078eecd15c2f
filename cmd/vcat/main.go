package main

import (
	"fmt"
	"io"
	"os"

	"vos-tools/build"
	cliutil "vos-tools/cmd"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"
)

var log = logging.Logger("vcat")

func before(_ *cli.Context) error {
	cliutil.SetupLogging("vcat")
	return nil
}

func main() {
	app := &cli.App{
		Name:                 "vcat",
		Usage:                "write the content of VOSpace data nodes to stdout",
		ArgsUsage:            "<node> [<node> ...]",
		EnableBashCompletion: true,
		Version:              build.UserVersion(),
		Before:               before,
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:    "quiet",
				Aliases: []string{"q"},
				Usage:   "never print node name headers",
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
		return xerrors.Errorf("requires at least one node argument")
	}

	c, err := cliutil.NewClient(cctx)
	if err != nil {
		return err
	}

	for i, arg := range cctx.Args().Slice() {
		f, err := c.OpenRead(cctx.Context, arg)
		if err != nil {
			return err
		}
		if cctx.NArg() > 1 && !cctx.Bool("quiet") {
			if i > 0 {
				fmt.Println()
			}
			fmt.Printf("==> %s <==\n", arg)
		}
		log.Debugf("reading %s (%d bytes)", arg, f.Size)
		_, err = io.Copy(os.Stdout, f)
		f.Close() //nolint: errcheck
		if err != nil {
			return err
		}
	}
	return nil
}
