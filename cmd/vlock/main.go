package main

import (
	"fmt"
	"os"
	"strconv"

	"vos-tools/build"
	cliutil "vos-tools/cmd"

	"github.com/fatih/color"
	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"
)

var log = logging.Logger("vlock")

func before(_ *cli.Context) error {
	cliutil.SetupLogging("vlock")
	return nil
}

func main() {
	app := &cli.App{
		Name:                 "vlock",
		Usage:                "lock a node against modification, or release it again",
		ArgsUsage:            "<node>",
		EnableBashCompletion: true,
		Version:              build.UserVersion(),
		Before:               before,
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:  "lock",
				Usage: "place the lock",
			},
			&cli.BoolFlag{
				Name:  "unlock",
				Usage: "release the lock",
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
	if cctx.NArg() != 1 {
		return xerrors.Errorf("requires a node argument")
	}
	lock, unlock := cctx.Bool("lock"), cctx.Bool("unlock")
	if lock && unlock {
		return xerrors.Errorf("--lock and --unlock are mutually exclusive")
	}

	c, err := cliutil.NewClient(cctx)
	if err != nil {
		return err
	}

	uri := cctx.Args().First()
	switch {
	case lock:
		log.Infof("locking %s", uri)
		return c.Lock(cctx.Context, uri)
	case unlock:
		log.Infof("unlocking %s", uri)
		return c.Unlock(cctx.Context, uri)
	}

	// no flag, just report the current state
	node, err := c.GetNode(cctx.Context, uri, 0)
	if err != nil {
		return err
	}
	console := color.New(color.FgMagenta, color.Bold)
	fmt.Print("  Locked : ")
	console.Println(strconv.FormatBool(node.IsLocked()))
	return nil
}
