// Command rt-log views and analyzes realtime protocol capture files.
//
// Capture files are written by rt-client when started with --protocol-log.
//
// Usage:
//
//	rt-log <command> [flags] <file.rtlog>
//
// Examples:
//
//	rt-log view --layer wire client.rtlog
//	rt-log view --topic wallet:W1 client.rtlog
//	rt-log export --format csv -o events.csv client.rtlog
//	rt-log filter --conn-id 3f2a9c1e -o one.rtlog client.rtlog
//	rt-log stats client.rtlog
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/waqiti/realtime-go/cmd/rt-log/commands"
	"github.com/waqiti/realtime-go/pkg/log"
)

var filterFlags = []cli.Flag{
	&cli.StringFlag{Name: "conn-id", Usage: "filter by connection ID"},
	&cli.StringFlag{Name: "user-id", Usage: "filter by user ID"},
	&cli.StringFlag{Name: "topic", Usage: "filter by topic (class:id)"},
	&cli.StringFlag{Name: "event", Usage: "filter by server event name"},
	&cli.StringFlag{Name: "time-start", Usage: "filter by start time (RFC3339)"},
	&cli.StringFlag{Name: "time-end", Usage: "filter by end time (RFC3339)"},
	&cli.StringFlag{Name: "layer", Usage: "filter by layer (transport, wire, service)"},
	&cli.StringFlag{Name: "direction", Usage: "filter by direction (in, out)"},
	&cli.StringFlag{Name: "category", Usage: "filter by category (message, control, state, error)"},
}

func main() {
	app := &cli.App{
		Name:      "rt-log",
		Usage:     "realtime protocol log analyzer",
		ArgsUsage: "<file.rtlog>",
		Commands: []*cli.Command{
			{
				Name:      "view",
				Usage:     "view log file in human-readable format",
				ArgsUsage: "<file.rtlog>",
				Flags:     filterFlags,
				Action: func(c *cli.Context) error {
					path, filter, err := input(c)
					if err != nil {
						return err
					}
					return commands.RunView(path, filter, os.Stdout)
				},
			},
			{
				Name:      "export",
				Usage:     "export log file to jsonl or csv",
				ArgsUsage: "<file.rtlog>",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "format", Value: "jsonl", Usage: "output format (jsonl, csv)"},
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "output file (default: stdout)"},
				}, filterFlags...),
				Action: func(c *cli.Context) error {
					path, filter, err := input(c)
					if err != nil {
						return err
					}
					var w io.Writer = os.Stdout
					if out := c.String("output"); out != "" {
						f, err := os.Create(out)
						if err != nil {
							return fmt.Errorf("failed to create output file: %w", err)
						}
						defer f.Close()
						w = f
					}
					return commands.RunExport(path, c.String("format"), filter, w)
				},
			},
			{
				Name:      "filter",
				Usage:     "copy matching events into a new log file",
				ArgsUsage: "<file.rtlog>",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Required: true, Usage: "output file"},
				}, filterFlags...),
				Action: func(c *cli.Context) error {
					path, filter, err := input(c)
					if err != nil {
						return err
					}
					n, err := commands.RunFilter(path, filter, c.String("output"))
					if err != nil {
						return err
					}
					fmt.Printf("Filtered %d events to %s\n", n, c.String("output"))
					return nil
				},
			},
			{
				Name:      "stats",
				Usage:     "show statistics about the log file",
				ArgsUsage: "<file.rtlog>",
				Action: func(c *cli.Context) error {
					if c.NArg() < 1 {
						return cli.Exit("log file path required", 1)
					}
					return commands.RunStats(c.Args().First(), os.Stdout)
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func input(c *cli.Context) (string, log.Filter, error) {
	if c.NArg() < 1 {
		return "", log.Filter{}, cli.Exit("log file path required", 1)
	}
	filter, err := commands.BuildFilter(commands.FilterOptions{
		ConnID:    c.String("conn-id"),
		UserID:    c.String("user-id"),
		Topic:     c.String("topic"),
		Event:     c.String("event"),
		TimeStart: c.String("time-start"),
		TimeEnd:   c.String("time-end"),
		Layer:     c.String("layer"),
		Direction: c.String("direction"),
		Category:  c.String("category"),
	})
	return c.Args().First(), filter, err
}
