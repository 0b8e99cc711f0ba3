package process

import (
	"context"
	"errors"
	"os/exec"
	"strings"
	"testing"
	"time"
)

func requireShell(t *testing.T) string {
	t.Helper()
	sh, err := exec.LookPath("sh")
	if err != nil {
		t.Skip("sh not available")
	}
	return sh
}

func TestExecRunnerCapturesOutput(t *testing.T) {
	sh := requireShell(t)

	out, err := NewExecRunner("").Run(context.Background(), sh, "-c", "echo hello; echo warn 1>&2")
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if strings.TrimSpace(out.Stdout) != "hello" {
		t.Errorf("stdout = %q", out.Stdout)
	}
	if strings.TrimSpace(out.Stderr) != "warn" {
		t.Errorf("stderr = %q", out.Stderr)
	}
}

func TestExecRunnerNonZeroExit(t *testing.T) {
	sh := requireShell(t)

	out, err := NewExecRunner("").Run(context.Background(), sh, "-c", "echo partial; echo bad thing 1>&2; exit 3")
	if err == nil {
		t.Fatal("expected error")
	}

	var pErr *ProcessError
	if !errors.As(err, &pErr) {
		t.Fatalf("error type = %T, want *ProcessError", err)
	}
	if pErr.ExitCode != 3 {
		t.Errorf("exit code = %d, want 3", pErr.ExitCode)
	}
	if !strings.Contains(pErr.Stderr, "bad thing") {
		t.Errorf("stderr = %q", pErr.Stderr)
	}
	if !strings.Contains(out.Stdout, "partial") {
		t.Errorf("stdout = %q, want partial output kept", out.Stdout)
	}
}

func TestExecRunnerSpawnError(t *testing.T) {
	_, err := NewExecRunner("").Run(context.Background(), "/definitely/not/a/program")
	var sErr *SpawnError
	if !errors.As(err, &sErr) {
		t.Fatalf("error type = %T, want *SpawnError", err)
	}
	if sErr.Command != "/definitely/not/a/program" {
		t.Errorf("command = %q", sErr.Command)
	}
}

func TestExecRunnerContextCancel(t *testing.T) {
	sh := requireShell(t)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	_, err := NewExecRunner("").Run(ctx, sh, "-c", "sleep 5")
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("error = %v, want deadline exceeded", err)
	}
}
