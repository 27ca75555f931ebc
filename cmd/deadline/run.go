package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"os/signal"
	"strconv"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/urfave/cli"

	"github.com/snehjoshi/deadline/internal/config"
	"github.com/snehjoshi/deadline/internal/metrics"
	transphttp "github.com/snehjoshi/deadline/internal/transport/http"
	"github.com/snehjoshi/deadline/pkg/deadline"
	"github.com/snehjoshi/deadline/pkg/wake"
)

// exitInterrupted is the conventional status for a wait ended by SIGINT.
const exitInterrupted = 130

func run(c *cli.Context) error {
	// ── 1. Load configuration ────────────────────────────────────────────────
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if c.IsSet("max-interval") {
		cfg.Timer.MaxInterval = maxInterval.String()
	}
	if metricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = metricsAddr
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	// ── 2. Set up structured logger ──────────────────────────────────────────
	logger := newLogger(os.Stderr, cfg.Log)
	slog.SetDefault(logger)

	// ── 3. Resolve the deadline ──────────────────────────────────────────────
	target, err := resolveTarget(atFlag, afterFlag, c.IsSet("after"), time.Now())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// ── 4. Status listener ───────────────────────────────────────────────────
	reg := &metrics.Registry{}
	var reached atomic.Bool
	if cfg.Metrics.Enabled {
		srv := transphttp.New(func() transphttp.Status {
			return transphttp.Status{At: target, Reached: reached.Load()}
		}, reg)
		go func() {
			slog.Info("status server listening", "addr", cfg.Metrics.Addr)
			if err := srv.ListenAndServe(cfg.Metrics.Addr); !errors.Is(err, http.ErrServerClosed) {
				slog.Warn("status server error", "err", err)
			}
		}()
		defer func() {
			shutCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutCtx); err != nil {
				slog.Warn("status server shutdown error", "err", err)
			}
		}()
	}

	// ── 5. Wake sources ──────────────────────────────────────────────────────
	// wake.Default runs its source only while the wait below is subscribed.
	if cfg.Wake.Enabled {
		wake.Default.SetSource(wake.WatcherSource(
			append(cfg.Wake.WatcherOptions(), wake.WithWatcherLogger(logger))...))
	} else {
		wake.Default.SetSource(nil)
	}

	// ── 6. Wait ──────────────────────────────────────────────────────────────
	sched := deadline.New(
		deadline.WithBus(wake.Default),
		deadline.WithSignals(cfg.Wake.SignalSet()...),
		deadline.WithLogger(logger),
		deadline.WithObserver(reg),
		deadline.WithMaxInterval(cfg.Timer.MaxIntervalDuration()),
		deadline.WithMaxDelay(cfg.Timer.MaxDelayDuration()),
	)

	slog.Info("waiting for deadline",
		"at", target.Format(time.RFC3339),
		"remaining", target.Sub(time.Now().Round(0)).Round(time.Second),
		"max_interval", cfg.Timer.MaxIntervalDuration(),
	)

	var bar *countdown
	if showProgress {
		bar = newCountdown(os.Stderr, time.Now(), target)
	}
	if err := sched.SleepUntil(ctx, target); err != nil {
		bar.abort()
		slog.Info("wait interrupted", "err", err)
		return cli.NewExitError("", exitInterrupted)
	}
	reached.Store(true)
	bar.complete()
	slog.Info("deadline reached", "at", target.Format(time.RFC3339))

	// ── 7. Run the command ───────────────────────────────────────────────────
	if c.NArg() == 0 {
		return nil
	}
	return runCommand(ctx, c.Args())
}

// resolveTarget turns --at / --after into an absolute wall-clock time.
// Neither flag means now, so the command runs right away.
func resolveTarget(at string, after time.Duration, afterSet bool, now time.Time) (time.Time, error) {
	switch {
	case at != "" && afterSet:
		return time.Time{}, errors.New("--at and --after are mutually exclusive")
	case at != "":
		return parseAt(at)
	case afterSet:
		return now.Round(0).Add(after), nil
	default:
		return now.Round(0), nil
	}
}

// parseAt accepts an RFC3339 timestamp or Unix milliseconds.
func parseAt(s string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, nil
	}
	ms, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}, fmt.Errorf("--at %q: want RFC3339 or Unix milliseconds", s)
	}
	return time.UnixMilli(ms), nil
}

func newLogger(w io.Writer, lc config.LogConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: lc.SlogLevel()}
	if lc.Format == config.LogJSON {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// runCommand runs args with stdio passed through and propagates its exit
// status.
func runCommand(ctx context.Context, args []string) error {
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdin = os.Stdin
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return cli.NewExitError("", exitStatus(exitErr))
		}
		return fmt.Errorf("run %s: %w", args[0], err)
	}
	return nil
}

// exitStatus is the status a shell would report for the child: its exit code,
// or 128+signal when a signal killed it.
func exitStatus(err *exec.ExitError) int {
	if ws, ok := err.Sys().(syscall.WaitStatus); ok && ws.Signaled() {
		return 128 + int(ws.Signal())
	}
	return err.ExitCode()
}
