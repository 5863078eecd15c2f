package cliutil

import (
	"fmt"
	"os"
	"strings"
	"syscall"

	"vos-tools/client"
	gen "vos-tools/gen/clidoc"

	logging "github.com/ipfs/go-log/v2"
	"github.com/urfave/cli/v2"
	"golang.org/x/term"
)

var Repo string
var FlagRepo = &cli.StringFlag{
	Name:        "repo",
	Usage:       "repo directory holding the client configuration",
	EnvVars:     []string{"VOS_REPO"},
	Value:       "~/.vos/",
	Destination: &Repo,
}

var Endpoint string
var FlagEndpoint = &cli.StringFlag{
	Name:        "endpoint",
	Usage:       "URL of the VOSpace web service",
	EnvVars:     []string{"VOSPACE_WEBSERVICE"},
	Destination: &Endpoint,
}

var CertFile string
var FlagCertFile = &cli.StringFlag{
	Name:        "certfile",
	Usage:       "filename of your X509 proxy certificate",
	EnvVars:     []string{"VOSPACE_CERTFILE"},
	Destination: &CertFile,
}

var Token string
var FlagToken = &cli.StringFlag{
	Name:        "token",
	Usage:       "authorization token, use - to type it in without echo",
	EnvVars:     []string{"VOSPACE_TOKEN"},
	Destination: &Token,
}

// IsVerbose raises the log level to INFO (default: WARN).
var IsVerbose bool
var FlagVerbose = &cli.BoolFlag{
	Name:        "verbose",
	Aliases:     []string{"v"},
	Usage:       "print informational messages",
	Destination: &IsVerbose,
}

// IsDebug raises the log level to DEBUG, useful when debugging the
// tools themselves.
var IsDebug bool
var FlagDebug = &cli.BoolFlag{
	Name:        "debug",
	Aliases:     []string{"d"},
	Usage:       "print debug messages",
	Destination: &IsDebug,
}

// ClientFlags are the flags shared by every tool.
var ClientFlags = []cli.Flag{
	FlagCertFile,
	FlagEndpoint,
	FlagToken,
	FlagRepo,
	FlagVerbose,
	FlagDebug,
}

// SetupLogging applies the -v/-d flags to the named loggers and the
// client logger.
func SetupLogging(names ...string) {
	level := "WARN"
	if IsVerbose {
		level = "INFO"
	}
	if IsDebug {
		level = "DEBUG"
	}
	for _, name := range append(names, "client") {
		_ = logging.SetLogLevel(name, level)
	}
}

func AskForToken() (string, error) {
	fmt.Print("Enter token:")
	token, err := term.ReadPassword(syscall.Stdin)
	if err != nil {
		return "", err
	}
	fmt.Println()
	return strings.TrimSpace(string(token)), nil
}

// NewClient builds a client from the shared flags, prompting for the
// token when - was passed.
func NewClient(cctx *cli.Context) (*client.Client, error) {
	token := Token
	if token == "-" {
		t, err := AskForToken()
		if err != nil {
			return nil, err
		}
		token = t
	}
	return client.NewClient(cctx.Context, Repo, Endpoint, CertFile, token)
}

var GenerateDocCmd = &cli.Command{
	Name:   "clidoc",
	Hidden: true,
	Flags: []cli.Flag{
		&cli.StringFlag{
			Name:     "output",
			Usage:    "file path to export to",
			Required: false,
		},
	},
	Action: func(cctx *cli.Context) error {
		output, err := gen.ToMarkdown(cctx.App)
		if err != nil {
			return err
		}
		outputFile := cctx.String("output")
		if outputFile == "" {
			outputFile = fmt.Sprintf("./docs/%s.md", cctx.App.Name)
		}
		err = os.WriteFile(outputFile, []byte(output), 0644)
		if err != nil {
			return err
		}
		fmt.Printf("markdown clidoc is exported to %s", outputFile)
		fmt.Println()
		return nil
	},
}
