package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"vos-tools/build"
	"vos-tools/client"
	cliutil "vos-tools/cmd"
	"vos-tools/types"
	"vos-tools/utils"

	"github.com/fatih/color"
	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"
)

var log = logging.Logger("vcp")

func before(_ *cli.Context) error {
	cliutil.SetupLogging("vcp")
	return nil
}

func main() {
	app := &cli.App{
		Name:                 "vcp",
		Usage:                "copy files to and from VOSpace, trees included",
		ArgsUsage:            "<source> [<source> ...] <destination>",
		EnableBashCompletion: true,
		Version:              build.UserVersion(),
		Before:               before,
		Flags: append([]cli.Flag{
			&cli.IntFlag{
				Name:  "nthreads",
				Usage: "number of parallel transfers for tree copies",
				Value: 1,
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
	if cctx.NArg() < 2 {
		return xerrors.Errorf("requires source and destination arguments")
	}

	c, err := cliutil.NewClient(cctx)
	if err != nil {
		return err
	}

	args := cctx.Args().Slice()
	srcs, dest := args[:len(args)-1], args[len(args)-1]

	var total int64
	for _, src := range srcs {
		log.Infof("copying %s to %s", src, dest)
		n, err := copyPath(cctx.Context, c, src, dest, cctx.Int("nthreads"))
		total += n
		if err != nil {
			return err
		}
	}

	console := color.New(color.FgMagenta, color.Bold)
	fmt.Print("  Copied : ")
	console.Println(utils.HumanSize(total))
	return nil
}

func copyPath(ctx context.Context, c *client.Client, src, dest string, nthreads int) (int64, error) {
	if isTree(ctx, c, src) {
		return c.CopyTree(ctx, src, treeDest(ctx, c, src, dest), nthreads)
	}
	return c.Copy(ctx, src, dest)
}

func isTree(ctx context.Context, c *client.Client, src string) bool {
	if types.IsVOSURI(src) {
		return c.IsDir(ctx, src)
	}
	fi, err := os.Stat(src)
	return err == nil && fi.IsDir()
}

// treeDest keeps cp -r semantics: copying a tree into an existing
// container or directory nests it under its own name.
func treeDest(ctx context.Context, c *client.Client, src, dest string) string {
	var base string
	if types.IsVOSURI(src) {
		u, err := c.FixURI(src)
		if err != nil {
			return dest
		}
		base = u.Name()
	} else {
		base = filepath.Base(strings.TrimSuffix(src, "/"))
	}

	if types.IsVOSURI(dest) {
		if c.IsDir(ctx, dest) {
			return dest + "/" + base
		}
	} else if fi, err := os.Stat(dest); err == nil && fi.IsDir() {
		return filepath.Join(dest, base)
	}
	return dest
}
