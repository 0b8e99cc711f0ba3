// Package process 執行外部輔助程式並收集其輸出
package process

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"video-recipe-generator/internal/pkg/common"

	"go.uber.org/zap"
)

// Output 外部程式的完整輸出
type Output struct {
	Stdout string
	Stderr string
}

// Runner 執行外部程式的能力介面
type Runner interface {
	Run(ctx context.Context, command string, args ...string) (Output, error)
}

// SpawnError 程式無法啟動
type SpawnError struct {
	Command string
	Err     error
}

func (e *SpawnError) Error() string {
	return fmt.Sprintf("failed to start %s: %v", e.Command, e.Err)
}

func (e *SpawnError) Unwrap() error {
	return e.Err
}

// ProcessError 程式以非零狀態結束
type ProcessError struct {
	Command  string
	ExitCode int
	Stderr   string
	Err      error
}

func (e *ProcessError) Error() string {
	stderr := strings.TrimSpace(e.Stderr)
	if stderr == "" {
		return fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
	}
	return fmt.Sprintf("%s exited with code %d: %s", e.Command, e.ExitCode, common.Truncate(stderr, 512))
}

func (e *ProcessError) Unwrap() error {
	return e.Err
}

// ExecRunner 以 os/exec 執行程式，stdout/stderr 全部緩衝於記憶體
type ExecRunner struct {
	// Dir 子程序的工作目錄，空字串沿用目前目錄
	Dir string
}

// NewExecRunner 創建 ExecRunner
func NewExecRunner(dir string) *ExecRunner {
	return &ExecRunner{Dir: dir}
}

// Run 執行一次程式。本身不設逾時，由呼叫端的 ctx 決定
func (r *ExecRunner) Run(ctx context.Context, command string, args ...string) (Output, error) {
	cmd := exec.CommandContext(ctx, command, args...)
	cmd.Dir = r.Dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Start(); err != nil {
		return Output{}, &SpawnError{Command: command, Err: err}
	}

	err := cmd.Wait()
	out := Output{Stdout: stdout.String(), Stderr: stderr.String()}

	common.LogDebug("helper process finished",
		zap.String("command", command),
		zap.Strings("args", args),
		zap.Duration("duration", time.Since(start)),
		zap.Int("stdout_bytes", stdout.Len()),
	)

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return out, ctxErr
		}
		exitCode := -1
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			exitCode = exitErr.ExitCode()
		}
		return out, &ProcessError{
			Command:  command,
			ExitCode: exitCode,
			Stderr:   out.Stderr,
			Err:      err,
		}
	}

	return out, nil
}

var _ Runner = (*ExecRunner)(nil)
