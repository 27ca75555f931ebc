//go:build unix

package main

import (
	"context"
	"errors"
	"os/exec"
	"testing"

	"github.com/urfave/cli"
)

func exitCodeOf(t *testing.T, err error) int {
	t.Helper()
	var coder cli.ExitCoder
	if !errors.As(err, &coder) {
		t.Fatalf("expected cli.ExitCoder, got %v", err)
	}
	return coder.ExitCode()
}

func TestRunCommand_ExitStatus(t *testing.T) {
	if _, err := exec.LookPath("sh"); err != nil {
		t.Skip("sh not available")
	}
	ctx := context.Background()

	if err := runCommand(ctx, []string{"sh", "-c", "exit 0"}); err != nil {
		t.Fatalf("exit 0: %v", err)
	}
	if got := exitCodeOf(t, runCommand(ctx, []string{"sh", "-c", "exit 3"})); got != 3 {
		t.Errorf("exit 3: status %d, want 3", got)
	}
	// SIGKILL is 9 on every unix.
	if got := exitCodeOf(t, runCommand(ctx, []string{"sh", "-c", "kill -9 $$"})); got != 128+9 {
		t.Errorf("killed by SIGKILL: status %d, want 137", got)
	}
}

func TestRunCommand_MissingBinary(t *testing.T) {
	err := runCommand(context.Background(), []string{"/nonexistent/deadline-test-binary"})
	if err == nil {
		t.Fatal("expected error for missing binary")
	}
	var coder cli.ExitCoder
	if errors.As(err, &coder) {
		t.Fatalf("missing binary reported as exit status %d", coder.ExitCode())
	}
}
