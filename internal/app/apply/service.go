package apply

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/0x192/universal-android-debloater-sub000/internal/app/common"
	"github.com/0x192/universal-android-debloater-sub000/internal/app/executor"
	"github.com/0x192/universal-android-debloater-sub000/internal/app/inventory"
	"github.com/0x192/universal-android-debloater-sub000/internal/app/selection"
	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
)

type Service struct{}

type Options struct {
	Target        model.PackageState
	Packages      []string
	Filter        model.Filter
	All           bool
	SelectionFile string
	AllDevices    bool
}

var ErrNothingSelected = errors.New("nothing selected: name packages, use --all or --from")

func NewService() Service { return Service{} }

func (s Service) Run(ctx context.Context, app *common.AppContext, opts Options) (model.CommandResult, error) {
	start := time.Now()
	if !opts.Target.Concrete() {
		return model.CommandResult{}, fmt.Errorf("--target must be uninstalled, disabled or enabled, got %q", opts.Target)
	}
	if err := common.RequireConfirmationOrDryRun(app.Options, "apply"); err != nil {
		return model.CommandResult{}, err
	}

	var targets []model.Device
	if opts.AllDevices {
		devices, err := app.Prober.ListDevices(ctx)
		if err != nil {
			return model.CommandResult{}, err
		}
		for _, d := range devices {
			if d.Reachable() {
				targets = append(targets, d)
			}
		}
		if len(targets) == 0 {
			return model.CommandResult{}, model.ErrNoDevice
		}
	} else {
		d, err := common.ResolveDevice(ctx, app)
		if err != nil {
			return model.CommandResult{}, err
		}
		targets = []model.Device{d}
	}

	exec := executor.New(app.Transport, app.Logger, app.Diag)
	batches := make([]*selection.Batch, 0, len(targets))
	total := 0
	for _, d := range targets {
		b, rows, err := s.prepare(ctx, app, d, exec, opts)
		if err != nil {
			return model.CommandResult{}, fmt.Errorf("%s: %w", d.Serial, err)
		}
		batches = append(batches, b)
		total += rows
	}

	var steps []model.StepResult
	for i, results := range selection.RunDevices(ctx, batches) {
		for _, r := range results {
			if r.Result == selection.ResultSkipped || r.Result == selection.ResultPlanned {
				if err := common.LogApplySkip(ctx, app.Logger, batches[i].ID, "apply", r.Serial, r, app.Options.DryRun); err != nil {
					app.Diag.Warn("operation log write failed", zap.Error(err))
				}
			}
			steps = append(steps, r)
		}
	}

	summary := model.Summary{ItemsTotal: total, ItemsSelected: len(steps)}
	for _, r := range steps {
		switch r.Result {
		case selection.ResultSuccess:
			summary.Succeeded++
		case selection.ResultError:
			summary.Errors++
		}
	}

	result := model.CommandResult{
		SchemaVersion: "1.0",
		Command:       "apply",
		Timestamp:     time.Now().UTC(),
		DurationMS:    time.Since(start).Milliseconds(),
		DryRun:        app.Options.DryRun,
		Summary:       summary,
		Steps:         steps,
	}
	if len(targets) == 1 {
		result.Device = &targets[0]
	}
	return result, nil
}

func (Service) prepare(ctx context.Context, app *common.AppContext, d model.Device, exec *executor.Executor, opts Options) (*selection.Batch, int, error) {
	user, err := common.ResolveUser(app, d)
	if err != nil {
		return nil, 0, err
	}
	session := inventory.NewSession(app.Prober, app.Catalog, app.Transport.Reboot)
	m, err := session.Select(ctx, d.Serial)
	if err != nil {
		return nil, 0, err
	}

	ctrl := selection.NewController(m, app.Settings(d.Serial))
	for _, name := range opts.Packages {
		i, ok := m.Find(user.Index, name)
		if !ok {
			return nil, 0, model.NewPackageMissing(name, user.ID)
		}
		ctrl.Select(inventory.Ref{User: user.Index, Index: i}, true)
	}
	if opts.All {
		ctrl.SelectAll(user.Index, opts.Filter)
	}
	if opts.SelectionFile != "" {
		if _, err := ctrl.ImportSelection(opts.SelectionFile, user.Index); err != nil {
			return nil, 0, err
		}
	}
	if len(ctrl.Selected()) == 0 {
		return nil, 0, ErrNothingSelected
	}

	b := ctrl.NewBatch(opts.Target, selection.BatchOptions{
		Command:  "apply",
		Executor: exec,
		Refresh: func(ctx context.Context) error {
			_, err := session.Refresh(ctx)
			return err
		},
		DryRun: app.Options.DryRun,
		Log:    app.Diag,
	})
	return b, len(m.Packages[user.Index]), nil
}
