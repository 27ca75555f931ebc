package main

import (
	"time"

	"github.com/urfave/cli"
)

var (
	atFlag       string
	afterFlag    time.Duration
	maxInterval  time.Duration
	configPath   string
	showProgress bool
	metricsAddr  string
)

var flags = []cli.Flag{
	cli.StringFlag{
		Name:        "at, t",
		Usage:       "deadline as an RFC3339 timestamp or Unix milliseconds",
		Destination: &atFlag,
	},
	cli.DurationFlag{
		Name:        "after, d",
		Usage:       "deadline relative to now, e.g. 90m",
		Destination: &afterFlag,
	},
	cli.DurationFlag{
		Name:        "max-interval, i",
		Usage:       "longest single wait before the wall clock is checked again (overrides timer.max_interval)",
		Destination: &maxInterval,
	},
	cli.StringFlag{
		Name:        "config, c",
		Usage:       "path to config file",
		EnvVar:      "DEADLINE_CONFIG",
		Value:       "deadline.yaml",
		Destination: &configPath,
	},
	cli.BoolFlag{
		Name:        "progress, p",
		Usage:       "draw a countdown bar on stderr",
		Destination: &showProgress,
	},
	cli.StringFlag{
		Name:        "metrics-addr",
		Usage:       "serve status and Prometheus metrics on this address while waiting",
		Destination: &metricsAddr,
	},
}
