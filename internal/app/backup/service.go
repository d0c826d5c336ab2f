package backup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/0x192/universal-android-debloater-sub000/internal/app/common"
	"github.com/0x192/universal-android-debloater-sub000/internal/app/executor"
	"github.com/0x192/universal-android-debloater-sub000/internal/app/inventory"
	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
	"github.com/0x192/universal-android-debloater-sub000/internal/domain/planner"
)

const (
	ActionCreate  = "create"
	ActionList    = "list"
	ActionRestore = "restore"
)

type Service struct{}

type Options struct {
	Action string
	// Path is the snapshot to restore; empty picks the newest one.
	Path string
}

func NewService() Service { return Service{} }

func (Service) Run(ctx context.Context, app *common.AppContext, opts Options) (model.CommandResult, error) {
	start := time.Now()
	d, err := common.ResolveDevice(ctx, app)
	if err != nil {
		return model.CommandResult{}, err
	}
	store := NewStore(app.BackupDir, app.Config.Backup.Keep, app.Diag)

	result := model.CommandResult{
		SchemaVersion: "1.0",
		Command:       "backup " + opts.Action,
		Timestamp:     time.Now().UTC(),
		DryRun:        app.Options.DryRun,
		Device:        &d,
	}

	switch opts.Action {
	case ActionList:
		paths, err := store.List(d.Serial)
		if err != nil {
			return model.CommandResult{}, err
		}
		result.Backups = paths
		result.Summary = model.Summary{ItemsTotal: len(paths), ItemsSelected: len(paths)}

	case ActionCreate:
		m, err := inventory.Build(ctx, app.Prober, app.Catalog, d)
		if err != nil {
			return model.CommandResult{}, err
		}
		b := Build(m)
		records := 0
		for _, u := range b.Users {
			records += len(u.Packages)
		}
		result.Summary = model.Summary{ItemsTotal: records, ItemsSelected: records}
		if app.Options.DryRun {
			break
		}
		path, err := store.Snapshot(m)
		if err != nil {
			return model.CommandResult{}, err
		}
		result.Path = path
		result.Summary.Succeeded = records

	case ActionRestore:
		if err := common.RequireConfirmationOrDryRun(app.Options, "backup restore"); err != nil {
			return model.CommandResult{}, err
		}
		if err := restore(ctx, app, store, d, opts.Path, &result); err != nil {
			return model.CommandResult{}, err
		}

	default:
		return model.CommandResult{}, fmt.Errorf("unknown backup action %q", opts.Action)
	}

	result.DurationMS = time.Since(start).Milliseconds()
	return result, nil
}

func restore(ctx context.Context, app *common.AppContext, store *Store, d model.Device, path string, result *model.CommandResult) error {
	if path == "" {
		paths, err := store.List(d.Serial)
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return errors.New("no backup found for device " + d.Serial)
		}
		path = paths[0]
	}
	result.Path = path

	user, err := common.ResolveUser(app, d)
	if err != nil {
		return err
	}
	session := inventory.NewSession(app.Prober, app.Catalog, app.Transport.Reboot)
	m, err := session.Select(ctx, d.Serial)
	if err != nil {
		return err
	}
	steps, err := store.Restore(m, path, user, app.Settings(d.Serial))
	if err != nil {
		return err
	}

	exec := executor.New(app.Transport, app.Logger, app.Diag)
	planID := uuid.NewString()
	for _, st := range steps {
		if len(st.Commands) == 0 {
			// end of restore marker
			continue
		}
		p, _ := m.Get(st.PackageIndex)
		res := model.StepResult{
			Serial:   d.Serial,
			Package:  st.Package,
			UserID:   st.User.ID,
			From:     p.State,
			Target:   planner.ResultState(st.Commands),
			State:    p.State,
			Commands: st.Commands,
		}
		result.Summary.ItemsTotal++
		result.Summary.ItemsSelected++

		if app.Options.DryRun {
			res.Result = "planned"
			result.Steps = append(result.Steps, res)
			continue
		}
		state, err := exec.Apply(ctx, executor.Job{
			PlanID:   planID,
			Command:  "backup restore",
			Serial:   d.Serial,
			UserID:   st.User.ID,
			Package:  p,
			Commands: st.Commands,
		})
		if err != nil {
			res.Result = "error"
			res.Error = err.Error()
			result.Summary.Errors++
		} else {
			res.Result = "success"
			res.State = state
			if err := m.SetState(st.PackageIndex, state); err != nil {
				app.Diag.Warn("model state update failed", zap.String("package", st.Package), zap.Uint("user", st.User.ID), zap.Error(err))
			}
			result.Summary.Succeeded++
		}
		result.Steps = append(result.Steps, res)
	}

	if len(steps) > 0 && !app.Options.DryRun {
		if _, err := session.Refresh(ctx); err != nil {
			app.Diag.Warn("refresh after restore failed", zap.String("serial", d.Serial), zap.Error(err))
		}
	}
	return nil
}
