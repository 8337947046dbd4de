package command

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/urfave/cli/v2"

	"github.com/yndnr/embedhttp/internal/cli/connection"
)

var errEnough = errors.New("event limit reached")

// GetCommand returns the get command.
func GetCommand() *cli.Command {
	return &cli.Command{
		Name:      "get",
		Usage:     "GET a path and print the body",
		ArgsUsage: "PATH",
		Action:    runGet,
	}
}

// PostCommand returns the post command.
func PostCommand() *cli.Command {
	return &cli.Command{
		Name:      "post",
		Usage:     "POST url-encoded form fields and print the body",
		ArgsUsage: "PATH [KEY=VALUE...]",
		Action:    runPost,
	}
}

// WatchCommand returns the watch command.
func WatchCommand() *cli.Command {
	return &cli.Command{
		Name:      "watch",
		Usage:     "Print the events of a server-sent event stream",
		ArgsUsage: "[PATH]",
		Flags: []cli.Flag{
			&cli.IntFlag{
				Name:    "count",
				Aliases: []string{"n"},
				Usage:   "stop after this many events (0 = until interrupted)",
			},
		},
		Action: runWatch,
	}
}

func runGet(c *cli.Context) error {
	if c.NArg() != 1 {
		return fmt.Errorf("get takes exactly one PATH")
	}
	client, err := httpClient(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := client.Get(ctx, c.Args().First())
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return printResponse(c, resp)
}

func runPost(c *cli.Context) error {
	if c.NArg() < 1 {
		return fmt.Errorf("post needs a PATH")
	}
	form, err := parseForm(c.Args().Tail())
	if err != nil {
		return err
	}
	client, err := httpClient(c)
	if err != nil {
		return err
	}
	ctx, cancel := requestContext(c)
	defer cancel()

	resp, err := client.PostForm(ctx, c.Args().First(), form)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	return printResponse(c, resp)
}

func runWatch(c *cli.Context) error {
	path := "/updates"
	if c.NArg() > 0 {
		path = c.Args().First()
	}
	client, err := httpClient(c)
	if err != nil {
		return err
	}

	limit := c.Int("count")
	seen := 0
	err = client.Events(c.Context, path, func(data string) error {
		fmt.Fprintln(c.App.Writer, data)
		seen++
		if limit > 0 && seen >= limit {
			return errEnough
		}
		return nil
	})
	if errors.Is(err, errEnough) {
		return nil
	}
	return err
}

// parseForm turns KEY=VALUE arguments into form fields.
func parseForm(args []string) (map[string]string, error) {
	form := make(map[string]string, len(args))
	for _, arg := range args {
		k, v, ok := strings.Cut(arg, "=")
		if !ok || k == "" {
			return nil, fmt.Errorf("form field %q is not KEY=VALUE", arg)
		}
		form[k] = v
	}
	return form, nil
}

func printResponse(c *cli.Context, resp *connection.Response) error {
	w := c.App.Writer
	if ParseGlobalFlags(c).Verbose {
		fmt.Fprintf(w, "HTTP/1.1 %s\n", resp.Status)
		keys := make([]string, 0, len(resp.Header))
		for k := range resp.Header {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			fmt.Fprintf(w, "%s: %s\n", k, resp.Header[k])
		}
		fmt.Fprintln(w)
	}
	if _, err := w.Write(resp.Body); err != nil {
		return err
	}
	if len(resp.Body) > 0 && resp.Body[len(resp.Body)-1] != '\n' {
		fmt.Fprintln(w)
	}

	if resp.StatusCode != 200 {
		return fmt.Errorf("server answered %s", resp.Status)
	}
	return nil
}
