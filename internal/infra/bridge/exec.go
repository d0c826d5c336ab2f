package bridge

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"

	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
)

// ExecTransport spawns the adb binary for every call.
type ExecTransport struct {
	Path    string
	Timeout time.Duration
}

const waitDelay = 2 * time.Second

var (
	execCommand  = exec.CommandContext
	execLookPath = exec.LookPath
)

func NewExecTransport(path string, timeout time.Duration) *ExecTransport {
	if strings.TrimSpace(path) == "" {
		path = "adb"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &ExecTransport{Path: path, Timeout: timeout}
}

func (t *ExecTransport) Shell(ctx context.Context, serial, command string) (Result, error) {
	return t.run(ctx, command, "-s", serial, "shell", command)
}

func (t *ExecTransport) Devices(ctx context.Context) ([]Entry, error) {
	res, err := t.run(ctx, "devices", "devices")
	if err != nil {
		return nil, err
	}
	return ParseDevices(res.Stdout), nil
}

func (t *ExecTransport) Reboot(ctx context.Context, serial string) error {
	_, err := t.run(ctx, "reboot", "-s", serial, "reboot")
	return err
}

func (t *ExecTransport) run(ctx context.Context, label string, args ...string) (Result, error) {
	bin, err := execLookPath(t.Path)
	if err != nil {
		return Result{}, &model.Error{Kind: model.KindBridgeMissing, Detail: t.Path, Err: err}
	}

	runCtx, cancel := context.WithTimeout(ctx, t.Timeout)
	defer cancel()

	cmd := execCommand(runCtx, bin, args...)
	hideConsole(cmd)
	// adb may fork its server with our pipes still attached.
	cmd.WaitDelay = waitDelay
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	exitCode := 0
	if runErr != nil && !errors.Is(runErr, exec.ErrWaitDelay) {
		var exitErr *exec.ExitError
		if !errors.As(runErr, &exitErr) {
			if runCtx.Err() != nil {
				return Result{}, timeoutError(label, Result{}, runCtx.Err())
			}
			return Result{}, &model.Error{Kind: model.KindBridgeMissing, Detail: bin, Err: runErr}
		}
		exitCode = exitErr.ExitCode()
	}

	res := Classify(exitCode, stdout.String(), stderr.String())
	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		return res, timeoutError(label, res, runCtx.Err())
	}
	if !res.OK {
		return res, failureError(res)
	}
	return res, nil
}

func (t *ExecTransport) String() string {
	return fmt.Sprintf("exec(%s)", t.Path)
}
