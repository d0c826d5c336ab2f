// Package executor runs planned commands through the bridge and decides the
// resulting package state.
package executor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
	"github.com/0x192/universal-android-debloater-sub000/internal/domain/planner"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/bridge"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/logging"
)

type Job struct {
	PlanID   string
	Command  string
	Serial   string
	UserID   uint
	Package  model.Package
	Commands []string
}

type Executor struct {
	transport bridge.Transport
	oplog     logging.Logger
	log       *zap.Logger
}

var timeNow = time.Now

func New(t bridge.Transport, oplog logging.Logger, log *zap.Logger) *Executor {
	if oplog == nil {
		oplog = logging.NewNoopLogger()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Executor{transport: t, oplog: oplog, log: log}
}

// Apply runs job.Commands in order and returns the state the package is in
// afterwards. The first real failure stops the plan; commands already run
// are not undone and the caller must keep the previous state.
func (e *Executor) Apply(ctx context.Context, job Job) (model.PackageState, error) {
	if len(job.Commands) == 0 {
		return job.Package.State, nil
	}

	for _, command := range job.Commands {
		start := timeNow()
		res, err := e.transport.Shell(ctx, job.Serial, command)
		entry := model.OperationLogEntry{
			Timestamp:  start.UTC(),
			PlanID:     job.PlanID,
			Command:    job.Command,
			Action:     string(planner.Describe(command)),
			Device:     job.Serial,
			UserID:     job.UserID,
			Package:    job.Package.Name,
			Shell:      command,
			Removal:    string(job.Package.Catalog.Removal),
			DurationMS: timeNow().Sub(start).Milliseconds(),
		}

		switch {
		case err == nil:
			entry.Result = "success"
		case alreadyApplied(res, err):
			entry.Result = "not-installed"
			e.log.Debug("package not installed for user, treating as done", zap.String("package", job.Package.Name), zap.String("command", command))
		default:
			entry.Result = "error"
			entry.Error = err.Error()
			e.record(ctx, entry)
			e.log.Warn("command failed", zap.String("serial", job.Serial), zap.String("command", command), zap.Error(err))
			return "", commandFailed(command, res, err)
		}
		e.record(ctx, entry)
	}

	return planner.ResultState(job.Commands), nil
}

func (e *Executor) record(ctx context.Context, entry model.OperationLogEntry) {
	if err := e.oplog.Log(ctx, entry); err != nil {
		e.log.Warn("operation log write failed", zap.Error(err))
	}
}

func alreadyApplied(res bridge.Result, err error) bool {
	if bridge.IsNotInstalled(res.ErrorText()) {
		return true
	}
	var me *model.Error
	if errors.As(err, &me) && bridge.IsNotInstalled(me.Output()) {
		return true
	}
	return false
}

// commandFailed keeps timeouts and command failures as they are and folds
// anything else (no device, unauthorized, canceled) into a CommandFailed.
func commandFailed(command string, res bridge.Result, err error) error {
	if errors.Is(err, model.ErrCommandFailed) {
		return fmt.Errorf("%s: %w", command, err)
	}
	return &model.Error{Kind: model.KindCommandFailed, Detail: command, Stdout: res.Stdout, Stderr: res.Stderr, Err: err}
}
