package common

import (
	"context"
	"time"

	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
	"github.com/0x192/universal-android-debloater-sub000/internal/domain/planner"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/logging"
)

// LogApplySkip records a step that sent nothing to the device, either
// because the plan was empty or because the run was a dry run.
func LogApplySkip(ctx context.Context, logger logging.Logger, planID, command, serial string, step model.StepResult, dryRun bool) error {
	entry := model.OperationLogEntry{
		Timestamp: time.Now().UTC(),
		PlanID:    planID,
		Command:   command,
		Action:    "skip",
		Device:    serial,
		UserID:    step.UserID,
		Package:   step.Package,
		Result:    step.Result,
		DryRun:    dryRun,
	}
	if len(step.Commands) > 0 {
		entry.Action = string(planner.Describe(step.Commands[0]))
		entry.Shell = step.Commands[0]
	}
	if entry.Result == "" {
		entry.Result = "skipped"
	}
	return logger.Log(ctx, entry)
}
