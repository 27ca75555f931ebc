package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli"

	"github.com/snehjoshi/deadline/pkg/client"
)

var (
	statusAddr   string
	statusHealth bool
)

var statusCmd = cli.Command{
	Name:      "status",
	Usage:     "show the wait of a running deadline started with --metrics-addr",
	UsageText: "deadline status [--addr URL] [--health]",
	Flags: []cli.Flag{
		cli.StringFlag{
			Name:        "addr, a",
			Usage:       "base URL of the status server",
			Value:       "http://localhost:9090",
			Destination: &statusAddr,
		},
		cli.BoolFlag{
			Name:        "health",
			Usage:       "only check that the status server is up",
			Destination: &statusHealth,
		},
	},
	Action: status,
}

func status(c *cli.Context) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	cl := client.New(statusAddr)
	if statusHealth {
		if err := cl.Health(ctx); err != nil {
			return err
		}
		fmt.Fprintln(c.App.Writer, "ok")
		return nil
	}

	st, err := cl.Status(ctx)
	if err != nil {
		return err
	}
	fmt.Fprintln(c.App.Writer, formatStatus(st))
	return nil
}

func formatStatus(st *client.Status) string {
	if st.Reached {
		return fmt.Sprintf("reached  %s", st.At.Format(time.RFC3339))
	}
	return fmt.Sprintf("waiting  %s  (%s left)", st.At.Format(time.RFC3339), st.Remaining.Round(time.Second))
}
