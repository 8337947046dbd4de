package command

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/embedhttp/internal/cli/connection"
	"github.com/yndnr/embedhttp/internal/cli/output"
	"github.com/yndnr/embedhttp/internal/infra/buildinfo"
)

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "embedhttp-cli",
		Usage:   "Talk to a running embedhttp server",
		Version: buildinfo.String(),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			GetCommand(),
			PostCommand(),
			WatchCommand(),
			AdminCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "server address: host:port or unix:/path/to/socket",
			EnvVars: []string{"EMBEDHTTP_SERVER"},
			Value:   "localhost:8000",
		},
		&cli.StringFlag{
			Name:    "admin",
			Aliases: []string{"a"},
			Usage:   "admin socket path",
			EnvVars: []string{"EMBEDHTTP_ADMIN_SOCKET"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "output format: table, json, yaml",
			Value:   "table",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "request timeout",
			Value: 30 * time.Second,
		},
		&cli.BoolFlag{
			Name:    "verbose",
			Aliases: []string{"V"},
			Usage:   "print the status line and headers",
		},
	}
}

// GlobalFlags defines flags available to all commands.
type GlobalFlags struct {
	Server  string
	Admin   string
	Output  string
	Timeout time.Duration
	Verbose bool
}

// ParseGlobalFlags extracts global flags from context.
func ParseGlobalFlags(c *cli.Context) *GlobalFlags {
	return &GlobalFlags{
		Server:  c.String("server"),
		Admin:   c.String("admin"),
		Output:  c.String("output"),
		Timeout: c.Duration("timeout"),
		Verbose: c.Bool("verbose"),
	}
}

func requestContext(c *cli.Context) (context.Context, context.CancelFunc) {
	timeout := ParseGlobalFlags(c).Timeout
	if timeout <= 0 {
		return context.WithCancel(c.Context)
	}
	return context.WithTimeout(c.Context, timeout)
}

func httpClient(c *cli.Context) (*connection.HTTPClient, error) {
	return connection.NewHTTPClient(ParseGlobalFlags(c).Server)
}

func adminClient(c *cli.Context) (*connection.SocketClient, error) {
	path := ParseGlobalFlags(c).Admin
	if path == "" {
		return nil, fmt.Errorf("no admin socket: pass --admin or set EMBEDHTTP_ADMIN_SOCKET")
	}
	return connection.NewSocketClient(path), nil
}

func formatter(c *cli.Context) (output.Formatter, error) {
	f, err := output.ParseFormat(ParseGlobalFlags(c).Output)
	if err != nil {
		return nil, err
	}
	return output.NewFormatter(f), nil
}

// PrintError prints an error message to stderr.
func PrintError(format string, args ...any) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
}
