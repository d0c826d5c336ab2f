package reboot

import (
	"context"
	"time"

	"github.com/0x192/universal-android-debloater-sub000/internal/app/common"
	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
)

type Service struct{}

func NewService() Service { return Service{} }

func (Service) Run(ctx context.Context, app *common.AppContext) (model.CommandResult, error) {
	if err := common.RequireConfirmationOrDryRun(app.Options, "reboot"); err != nil {
		return model.CommandResult{}, err
	}
	d, err := common.ResolveDevice(ctx, app)
	if err != nil {
		return model.CommandResult{}, err
	}

	result := model.CommandResult{
		SchemaVersion: "1.0",
		Command:       "reboot",
		Timestamp:     time.Now().UTC(),
		DryRun:        app.Options.DryRun,
		Device:        &d,
		Summary:       model.Summary{ItemsTotal: 1, ItemsSelected: 1},
	}
	if app.Options.DryRun {
		return result, nil
	}

	entry := model.OperationLogEntry{
		Timestamp: time.Now().UTC(),
		Command:   "reboot",
		Action:    "reboot",
		Device:    d.Serial,
		Result:    "success",
	}
	if err := app.Transport.Reboot(ctx, d.Serial); err != nil {
		entry.Result = "error"
		entry.Error = err.Error()
		_ = app.Logger.Log(ctx, entry)
		return model.CommandResult{}, err
	}
	if err := app.Logger.Log(ctx, entry); err != nil {
		result.Summary.Errors++
	}
	result.Summary.Succeeded = 1
	return result, nil
}
