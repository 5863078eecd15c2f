package main

import (
	"context"
	"os"
	"regexp"
	"strings"

	"vos-tools/build"
	"vos-tools/client"
	cliutil "vos-tools/cmd"
	"vos-tools/types"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"
	"golang.org/x/xerrors"
)

var log = logging.Logger("vchmod")

// groupServiceURI resolves bare group names, vchmod mode n gr ops is
// accepted as shorthand for the full GMS URI.
const groupServiceURI = "ivo://cadc.nrc.ca/gms#"

var modeRE = regexp.MustCompile(`^([ugo]+)([+\-=])([rw]+)$`)

func before(_ *cli.Context) error {
	cliutil.SetupLogging("vchmod")
	return nil
}

func main() {
	app := &cli.App{
		Name:                 "vchmod",
		Usage:                "change the sharing permissions of a node",
		ArgsUsage:            "<mode> <node> [<group URI> ...]",
		Description:          "Modes follow the symbolic chmod grammar, g+r or o-r for example.\nGroup grants take the authorized group URIs as trailing arguments.",
		EnableBashCompletion: true,
		Version:              build.UserVersion(),
		Before:               before,
		Flags: append([]cli.Flag{
			&cli.BoolFlag{
				Name:    "recursive",
				Aliases: []string{"R"},
				Usage:   "apply the mode to the node and everything below it",
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
		return xerrors.Errorf("requires a mode and a node argument")
	}

	args := cctx.Args().Slice()
	mode, target := args[0], args[1]
	groups := make([]string, 0, len(args)-2)
	for _, g := range args[2:] {
		groups = append(groups, groupURI(g))
	}

	c, err := cliutil.NewClient(cctx)
	if err != nil {
		return err
	}

	return chmodNode(cctx.Context, c, target, mode, groups, cctx.Bool("recursive"))
}

func chmodNode(ctx context.Context, c *client.Client, target, mode string, groups []string, recurse bool) error {
	node, err := c.GetNode(ctx, target, 0)
	if err != nil {
		return err
	}

	changed, err := applyMode(node, mode, groups)
	if err != nil {
		return err
	}
	if changed {
		log.Infof("updating permissions on %s", target)
		if err := c.Update(ctx, node); err != nil {
			return err
		}
	}

	if recurse && node.IsDir() {
		names, err := c.ListDir(ctx, target)
		if err != nil {
			return err
		}
		for _, name := range names {
			child := strings.TrimSuffix(target, "/") + "/" + name
			if err := chmodNode(ctx, c, child, mode, groups, true); err != nil {
				return err
			}
		}
	}
	return nil
}

// applyMode mutates the sharing properties of node according to the
// symbolic mode and reports whether anything changed. Owner bits are
// fixed and the service has no notion of public write, both are
// rejected rather than ignored.
func applyMode(node *types.Node, mode string, groups []string) (bool, error) {
	m := modeRE.FindStringSubmatch(mode)
	if m == nil {
		return false, xerrors.Errorf("invalid mode %q, expected [ugo][+-=][rw]", mode)
	}
	who, op, what := m[1], m[2], m[3]

	if strings.Contains(who, "u") {
		return false, xerrors.Errorf("owner permissions cannot be changed")
	}
	if strings.Contains(who, "o") && strings.Contains(what, "w") {
		return false, xerrors.Errorf("public write is not supported")
	}

	grantsGroup := strings.Contains(who, "g") && op != "-"
	if grantsGroup && len(groups) == 0 {
		return false, xerrors.Errorf("mode %s needs at least one group URI", mode)
	}
	if !grantsGroup && len(groups) > 0 {
		return false, xerrors.Errorf("group URIs only apply when granting group permissions")
	}

	group := strings.Join(groups, " ")
	changed := false
	for _, c := range who {
		for _, p := range what {
			switch {
			case c == 'o' && p == 'r':
				v := "true"
				if op == "-" {
					v = "false"
				}
				changed = node.SetProp("ispublic", v) || changed
			case c == 'g':
				prop := "groupread"
				if p == 'w' {
					prop = "groupwrite"
				}
				if op == "-" {
					changed = node.SetProp(prop, "NONE") || changed
				} else {
					changed = node.SetProp(prop, group) || changed
				}
			}
		}
	}

	// an exact assignment clears the group bits it does not name
	if op == "=" && strings.Contains(who, "g") {
		if !strings.Contains(what, "r") {
			changed = node.SetProp("groupread", "NONE") || changed
		}
		if !strings.Contains(what, "w") {
			changed = node.SetProp("groupwrite", "NONE") || changed
		}
	}
	return changed, nil
}

func groupURI(g string) string {
	if strings.Contains(g, "://") {
		return g
	}
	return groupServiceURI + g
}
