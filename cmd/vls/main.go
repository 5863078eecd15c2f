package main

import (
	"fmt"
	"os"
	"sort"
	"strconv"

	"vos-tools/build"
	cliutil "vos-tools/cmd"
	"vos-tools/types"
	"vos-tools/utils"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"
)

var log = logging.Logger("vls")

func before(_ *cli.Context) error {
	cliutil.SetupLogging("vls")
	return nil
}

func main() {
	app := &cli.App{
		Name:                 "vls",
		Usage:                "list the contents of a VOSpace node",
		ArgsUsage:            "<node> [<node> ...]",
		EnableBashCompletion: true,
		Version:              build.UserVersion(),
		Before:               before,
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:    "long",
				Aliases: []string{"l"},
				Usage:   "verbose listing sorted by name",
			},
			&cli.BoolFlag{
				Name:    "size",
				Aliases: []string{"S"},
				Usage:   "sort files by size",
			},
			&cli.BoolFlag{
				Name:    "time",
				Aliases: []string{"t"},
				Usage:   "sort by time copied to VOSpace",
			},
			&cli.BoolFlag{
				Name:    "reverse",
				Aliases: []string{"r"},
				Usage:   "reverse the sort order",
			},
			&cli.BoolFlag{
				Name:  "human-readable",
				Usage: "print sizes like 1.2K 3.4M",
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
		infos, err := c.GetInfoList(cctx.Context, arg)
		if err != nil {
			return err
		}
		sortInfos(infos, cctx.Bool("size"), cctx.Bool("time"), cctx.Bool("reverse"))

		if cctx.NArg() > 1 {
			if i > 0 {
				fmt.Println()
			}
			fmt.Println(arg + ":")
		}
		log.Debugf("%s: %d entries", arg, len(infos))
		for _, info := range infos {
			if cctx.Bool("long") {
				fmt.Println(longLine(info, cctx.Bool("human-readable")))
			} else {
				fmt.Println(displayName(info))
			}
		}
	}
	return nil
}

func sortInfos(infos []types.NodeInfo, bySize, byTime, reverse bool) {
	sort.SliceStable(infos, func(i, j int) bool {
		switch {
		case bySize:
			return infos[i].Size > infos[j].Size
		case byTime:
			return infos[i].Date.After(infos[j].Date)
		default:
			return infos[i].Name < infos[j].Name
		}
	})
	if reverse {
		for i, j := 0, len(infos)-1; i < j; i, j = i+1, j-1 {
			infos[i], infos[j] = infos[j], infos[i]
		}
	}
}

func displayName(info types.NodeInfo) string {
	name := info.Name
	if info.IsDir {
		name += "/"
	}
	if info.IsLink && info.Target != "" {
		name += " -> " + info.Target
	}
	return name
}

func longLine(info types.NodeInfo, human bool) string {
	size := strconv.FormatInt(info.Size, 10)
	if human {
		size = utils.HumanSize(info.Size)
	}
	return fmt.Sprintf("%s %-12s %-18s %-18s %10s %s %s",
		info.Permissions, info.Creator, info.ReadGroup, info.WriteGroup,
		size, info.Date.Format("2006-01-02 15:04"), displayName(info))
}
