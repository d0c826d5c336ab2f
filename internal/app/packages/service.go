package packages

import (
	"context"
	"time"

	"github.com/0x192/universal-android-debloater-sub000/internal/app/common"
	"github.com/0x192/universal-android-debloater-sub000/internal/app/inventory"
	"github.com/0x192/universal-android-debloater-sub000/internal/app/selection"
	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
)

type Service struct{}

type Options struct {
	Filter model.Filter
	// Export writes the listed names to this file in the format apply
	// --selection reads.
	Export string
}

func NewService() Service { return Service{} }

func (Service) Run(ctx context.Context, app *common.AppContext, opts Options) (model.CommandResult, error) {
	start := time.Now()
	d, err := common.ResolveDevice(ctx, app)
	if err != nil {
		return model.CommandResult{}, err
	}
	user, err := common.ResolveUser(app, d)
	if err != nil {
		return model.CommandResult{}, err
	}

	m, err := inventory.Build(ctx, app.Prober, app.Catalog, d)
	if err != nil {
		return model.CommandResult{}, err
	}
	view := m.View(user.Index, opts.Filter)

	result := model.CommandResult{
		SchemaVersion: "1.0",
		Command:       "packages",
		Timestamp:     time.Now().UTC(),
		DurationMS:    time.Since(start).Milliseconds(),
		Device:        &m.Device,
		Summary: model.Summary{
			ItemsTotal:    len(m.Packages[user.Index]),
			ItemsSelected: len(view),
		},
		Packages: view,
	}
	if opts.Export != "" {
		ctrl := selection.NewController(m, model.Settings{})
		ctrl.SelectAll(user.Index, opts.Filter)
		if _, err := ctrl.ExportSelection(opts.Export); err != nil {
			return model.CommandResult{}, err
		}
		result.Path = opts.Export
	}
	return result, nil
}
