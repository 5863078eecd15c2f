// Package clidoc renders a cli application's command tree as a
// markdown page, for the hidden clidoc command every tool carries.
package clidoc

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"text/template"

	"github.com/urfave/cli/v2"
)

var docTemplate = `# NAME

{{ .App.Name }}{{ if .App.Usage }} - {{ .App.Usage }}{{ end }}

# SYNOPSIS

{{ .App.Name }}
{{ if .SynopsisArgs }}
` + "```" + `
{{ range $v := .SynopsisArgs }}{{ $v }}{{ end }}` + "```" + `
{{ end }}{{ if .App.Description }}
# DESCRIPTION

{{ .App.Description }}
{{ end }}
**Usage**:

` + "```" + `{{ if .App.UsageText }}
{{ .App.UsageText }}
{{ else }}
{{ .App.Name }} [GLOBAL OPTIONS] command [COMMAND OPTIONS] [ARGUMENTS...]
{{ end }}` + "```" + `
{{ if .GlobalArgs }}
# GLOBAL OPTIONS

` + "```" + `
{{ range $v := .GlobalArgs }}{{ $v }}{{ end }}` + "```" + `
{{ end }}{{ if .Commands }}
# COMMANDS
{{ range $v := .Commands }}
{{ $v }}{{ end }}{{ end }}`

type page struct {
	App          *cli.App
	Commands     []string
	GlobalArgs   []string
	SynopsisArgs []string
}

// ToMarkdown renders app as a markdown page. Hidden commands and
// flags stay out of the page.
func ToMarkdown(app *cli.App) (string, error) {
	t, err := template.New("clidoc").Parse(docTemplate)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	err = t.Execute(&buf, &page{
		App:          app,
		Commands:     renderCommands(app.Commands, 0),
		GlobalArgs:   flagLines(app.VisibleFlags(), true),
		SynopsisArgs: flagLines(app.VisibleFlags(), false),
	})
	if err != nil {
		return "", err
	}
	return buf.String(), nil
}

func renderCommands(commands []*cli.Command, level int) []string {
	var out []string
	for _, cmd := range commands {
		if cmd.Hidden {
			continue
		}

		section := fmt.Sprintf("%s %s\n\n%s",
			strings.Repeat("#", level+2),
			strings.Join(cmd.Names(), ", "),
			usageBlock(cmd))
		if flags := flagLines(cmd.VisibleFlags(), true); len(flags) > 0 {
			section += "\n**Options**\n```\n" + strings.Join(flags, "") + "```"
		}
		out = append(out, section)

		if len(cmd.Subcommands) > 0 {
			out = append(out, renderCommands(cmd.Subcommands, level+1)...)
		}
	}
	return out
}

func usageBlock(cmd *cli.Command) string {
	var b strings.Builder
	if cmd.Usage != "" {
		b.WriteString(cmd.Usage + "\n\n")
	}
	if cmd.UsageText != "" {
		for _, ln := range strings.Split(strings.Trim(cmd.UsageText, "\n"), "\n") {
			fmt.Fprintf(&b, "    %s\n", ln)
		}
	}
	return b.String()
}

// flagLines renders one line per flag, either the [-x|--xx] synopsis
// form or the commented long form.
func flagLines(flags []cli.Flag, withDetails bool) []string {
	var lines []string
	for _, f := range flags {
		df, ok := f.(cli.DocGenerationFlag)
		if !ok {
			continue
		}

		var names []string
		for _, name := range f.Names() {
			name = strings.TrimSpace(name)
			if len(name) > 1 {
				names = append(names, "--"+name)
			} else {
				names = append(names, "-"+name)
			}
		}

		if !withDetails {
			lines = append(lines, "["+strings.Join(names, "|")+"]\n")
			continue
		}
		lines = append(lines, fmt.Sprintf("%-24s%s\n", strings.Join(names, ", "), flagDetails(df)))
	}
	sort.Strings(lines)
	return lines
}

func flagDetails(flag cli.DocGenerationFlag) string {
	details := flag.GetUsage()
	if v := flag.GetValue(); v != "" {
		details += " (default: " + v + ")"
	}
	if envs := flag.GetEnvVars(); len(envs) > 0 {
		details += " [" + strings.Join(envs, ", ") + "]"
	}
	return details
}
