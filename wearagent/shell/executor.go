// Package shell runs device-management commands and applies the one-retry discipline.
package shell

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spance/wearprobe/constants"
	"github.com/spance/wearprobe/wearagent/definitions"
)

// Result is the captured outcome of one external command.
type Result struct {
	Args     []string
	Stdout   string
	Stderr   string
	ExitCode int
}

func (r Result) Success() bool {
	return r.ExitCode == 0
}

func (r Result) CommandLine() string {
	return strings.Join(r.Args, " ")
}

// Runner starts a process and waits for it. The error is reserved for processes that could not run at all.
type Runner interface {
	Run(ctx context.Context, argv []string) (Result, error)
}

type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, argv []string) (Result, error) {
	if len(argv) == 0 {
		return Result{}, errors.New("empty command")
	}
	var stdout, stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Args:   argv,
		Stdout: stdout.String(),
		Stderr: stderr.String(),
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		result.ExitCode = exitErr.ExitCode()
		return result, nil
	}
	if err != nil {
		result.ExitCode = -1
		return result, err
	}
	return result, nil
}

type Executor struct {
	adbPath string
	runner  Runner
}

func NewExecutor(adbPath string, runner Runner) *Executor {
	if adbPath == "" {
		adbPath = constants.ADB
	}
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Executor{adbPath: adbPath, runner: runner}
}

// Command builds the adb argv for deviceID. An empty deviceID addresses the default device.
func (e *Executor) Command(deviceID string, args ...string) []string {
	argv := []string{e.adbPath}
	if deviceID != "" {
		argv = append(argv, "-s", deviceID)
	}
	return append(argv, args...)
}

// Run executes adb against deviceID and returns whatever the process produced, whatever its status.
func (e *Executor) Run(ctx context.Context, deviceID string, args ...string) (Result, error) {
	return e.exec(ctx, e.Command(deviceID, args...))
}

// RunChecked is Run with a non-zero status turned into a CommandFailed error.
func (e *Executor) RunChecked(ctx context.Context, deviceID string, args ...string) (Result, error) {
	return e.checked(ctx, e.Command(deviceID, args...))
}

// RunWithRetry executes argv and, if it fails, exactly once more.
func (e *Executor) RunWithRetry(ctx context.Context, argv []string) (Result, error) {
	var result Result
	err := RetryOnce(strings.Join(argv, " "), func() error {
		var err error
		result, err = e.checked(ctx, argv)
		return err
	})
	return result, err
}

func (e *Executor) exec(ctx context.Context, argv []string) (Result, error) {
	log.Debug().Str("cmd", fmt.Sprintf("[Run] run cmd: %s", strings.Join(argv, " "))).Msg("")

	result, err := e.runner.Run(ctx, argv)
	if err != nil {
		log.Error().Err(err).Strs("argv", argv).Msg("[Run] run cmd failed")
		return result, definitions.CommandFailed(strings.Join(argv, " "), err)
	}
	log.Trace().Int("status", result.ExitCode).Str("stdout", result.Stdout).Str("stderr", result.Stderr).Msg("[Run] output")
	return result, nil
}

func (e *Executor) checked(ctx context.Context, argv []string) (Result, error) {
	result, err := e.exec(ctx, argv)
	if err != nil {
		return result, err
	}
	if !result.Success() {
		return result, definitions.CommandFailed(result.CommandLine(),
			fmt.Errorf("exit status %d: %s", result.ExitCode, strings.TrimSpace(result.Stderr)))
	}
	return result, nil
}

// RetryOnce calls fn and, if it fails, calls it one more time before surfacing the error.
// Errors that are not CommandFailed already are wrapped as CommandFailed.
func RetryOnce(op string, fn func() error) error {
	err := fn()
	if err == nil {
		return nil
	}
	log.Info().Err(err).Str("op", op).Msg("failed, second try..")
	if err = fn(); err == nil {
		return nil
	}
	if errors.Is(err, definitions.ErrCommandFailed) {
		return err
	}
	return definitions.CommandFailed(op, err)
}
