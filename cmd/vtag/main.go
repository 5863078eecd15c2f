package main

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"vos-tools/build"
	cliutil "vos-tools/cmd"
	"vos-tools/types"

	"github.com/fatih/color"
	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"
)

var log = logging.Logger("vtag")

func before(_ *cli.Context) error {
	cliutil.SetupLogging("vtag")
	return nil
}

func main() {
	app := &cli.App{
		Name:                 "vtag",
		Usage:                "read and write the extended properties of a node",
		ArgsUsage:            "<node> [<key>[=<value>] ...]",
		Description:          "Without keys all extended properties are listed. A bare key prints\nits value, key=value sets it and key= removes it again.",
		EnableBashCompletion: true,
		Version:              build.UserVersion(),
		Before:               before,
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:  "remove",
				Usage: "remove the named properties instead of printing them",
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
	if cctx.NArg() < 1 {
		return xerrors.Errorf("requires a node argument")
	}
	if cctx.Bool("remove") && cctx.NArg() < 2 {
		return xerrors.Errorf("--remove needs at least one property name")
	}

	c, err := cliutil.NewClient(cctx)
	if err != nil {
		return err
	}

	args := cctx.Args().Slice()
	node, err := c.GetNode(cctx.Context, args[0], 0)
	if err != nil {
		return err
	}

	console := color.New(color.FgMagenta, color.Bold)

	if len(args) == 1 {
		props := node.ExtProps()
		names := make([]string, 0, len(props))
		for k := range props {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			fmt.Printf("  %s : ", k)
			console.Println(props[k])
		}
		return nil
	}

	changed := false
	for _, arg := range args[1:] {
		key, value, assign := strings.Cut(arg, "=")
		if key == "" {
			return xerrors.Errorf("empty property name in %q", arg)
		}

		switch {
		case cctx.Bool("remove") || (assign && value == ""):
			if err := checkWritable(key); err != nil {
				return err
			}
			log.Infof("removing property %s from %s", key, args[0])
			changed = node.DelProp(key) || changed
		case assign:
			if err := checkWritable(key); err != nil {
				return err
			}
			log.Infof("setting property %s on %s", key, args[0])
			changed = node.SetProp(key, value) || changed
		default:
			fmt.Printf("  %s : ", key)
			console.Println(node.Prop(key))
		}
	}

	if changed {
		return c.Update(cctx.Context, node)
	}
	return nil
}

func checkWritable(key string) error {
	if types.IsReservedProp(key) {
		return xerrors.Errorf("%s is a standard property, use vchmod and friends", key)
	}
	return nil
}
