package command

import (
	"fmt"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/embedhttp/internal/cli/connection"
	"github.com/yndnr/embedhttp/internal/cli/output"
)

// AdminCommand returns the admin subcommand group.
func AdminCommand() *cli.Command {
	return &cli.Command{
		Name:  "admin",
		Usage: "Manage the server through its admin socket",
		Subcommands: []*cli.Command{
			{
				Name:   "status",
				Usage:  "Show server status",
				Action: adminFields("status"),
			},
			{
				Name:   "routes",
				Usage:  "List registered actions",
				Action: adminRoutes,
			},
			{
				Name:      "loglevel",
				Usage:     "Show or change the log level",
				ArgsUsage: "[debug|info|warn|error]",
				Action:    adminFields("loglevel"),
			},
			{
				Name:      "logmask",
				Usage:     "Show or change the logged message categories",
				ArgsUsage: "[CATEGORY...]",
				Action:    adminFields("logmask"),
			},
			{
				Name:   "reload",
				Usage:  "Re-read the configuration file",
				Action: adminPlain("reload"),
			},
			{
				Name:   "shutdown",
				Usage:  "Stop the server",
				Action: adminPlain("shutdown"),
			},
		},
	}
}

// execute runs one admin command with the context's arguments appended.
func execute(c *cli.Context, cmd string) ([]string, error) {
	client, err := adminClient(c)
	if err != nil {
		return nil, err
	}
	defer client.Close()

	ctx, cancel := requestContext(c)
	defer cancel()

	line := strings.Join(append([]string{cmd}, c.Args().Slice()...), " ")
	lines, err := client.Execute(ctx, line)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cmd, err)
	}
	return lines, nil
}

func adminFields(cmd string) cli.ActionFunc {
	return func(c *cli.Context) error {
		f, err := formatter(c)
		if err != nil {
			return err
		}
		lines, err := execute(c, cmd)
		if err != nil {
			return err
		}
		return f.Format(c.App.Writer, output.Fields(connection.ParseFields(lines)))
	}
}

func adminPlain(cmd string) cli.ActionFunc {
	return func(c *cli.Context) error {
		lines, err := execute(c, cmd)
		if err != nil {
			return err
		}
		for _, line := range lines {
			fmt.Fprintln(c.App.Writer, line)
		}
		return nil
	}
}

func adminRoutes(c *cli.Context) error {
	f, err := formatter(c)
	if err != nil {
		return err
	}
	lines, err := execute(c, "routes")
	if err != nil {
		return err
	}

	t := &output.Table{}
	t.SetHeaders("METHOD", "PATH", "TYPE")
	for _, line := range lines {
		cells := strings.SplitN(line, " ", 3)
		if len(cells) != 3 {
			continue
		}
		t.AddRow(cells...)
	}
	return f.Format(c.App.Writer, t)
}
