package selection

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/0x192/universal-android-debloater-sub000/internal/app/executor"
	"github.com/0x192/universal-android-debloater-sub000/internal/app/inventory"
	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
	"github.com/0x192/universal-android-debloater-sub000/internal/domain/planner"
)

const (
	ResultSuccess  = "success"
	ResultError    = "error"
	ResultSkipped  = "skipped"
	ResultPlanned  = "planned"
	ResultCanceled = "canceled"
)

type Applier interface {
	Apply(ctx context.Context, job executor.Job) (model.PackageState, error)
}

type BatchOptions struct {
	Command  string
	Executor Applier
	// Refresh rebuilds the model once the batch ends.
	Refresh func(ctx context.Context) error
	DryRun  bool
	Log     *zap.Logger
}

// Step is one package transition. Refs are the rows whose state follows the
// step's outcome.
type Step struct {
	Refs     []inventory.Ref
	User     model.User
	Package  model.Package
	Commands []string
}

type Progress struct {
	Done    int  `json:"done"`
	Total   int  `json:"total"`
	Running bool `json:"running"`
}

type Batch struct {
	ID     string
	Serial string
	Target model.PackageState
	Steps  []Step

	model    *inventory.Model
	settings model.Settings
	opts     BatchOptions

	mu       sync.Mutex
	progress Progress
	canceled atomic.Bool
}

// NewBatch plans target for every selected row. With multi-user mode each
// package gets one step whose commands cover every unprotected user plus
// any other user the package is selected for, each planned from that
// user's own row.
func (c *Controller) NewBatch(target model.PackageState, opts BatchOptions) *Batch {
	if opts.Log == nil {
		opts.Log = zap.NewNop()
	}
	if opts.Command == "" {
		opts.Command = "apply"
	}

	b := &Batch{
		ID:       uuid.NewString(),
		Serial:   c.model.Device.Serial,
		Target:   target,
		model:    c.model,
		settings: c.settings,
		opts:     opts,
	}

	selected := c.Selected()
	fanOut := c.settings.MultiUserMode && c.model.Device.SDK >= planner.MinPerUserSDK
	seen := make(map[string]bool)
	for _, it := range selected {
		if !fanOut {
			if c.settings.MultiUserMode && seen[it.Package.Name] {
				continue
			}
			seen[it.Package.Name] = true
			b.Steps = append(b.Steps, Step{
				Refs:     []inventory.Ref{it.Ref},
				User:     it.User,
				Package:  it.Package,
				Commands: c.plan(it.Package, it.User, target),
			})
			continue
		}

		if seen[it.Package.Name] {
			continue
		}
		seen[it.Package.Name] = true
		st := Step{User: it.User, Package: it.Package}
		for _, ref := range c.fanOutRefs(it.Package.Name, selected) {
			row, _ := c.model.Get(ref)
			commands := c.plan(row, c.model.Device.Users[ref.User], target)
			if len(commands) == 0 {
				continue
			}
			st.Refs = append(st.Refs, ref)
			st.Commands = append(st.Commands, commands...)
		}
		b.Steps = append(b.Steps, st)
	}
	b.progress.Total = len(b.Steps)
	return b
}

// plan is a single-user plan for row on user.
func (c *Controller) plan(row model.Package, user model.User, target model.PackageState) []string {
	settings := c.settings
	settings.MultiUserMode = false
	return planner.Plan(planner.Request{
		Package:  row,
		Current:  row.State,
		Target:   target,
		User:     user,
		Device:   c.model.Device,
		Settings: settings,
	})
}

// fanOutRefs returns the rows of name for every unprotected user and for
// every user the name is selected on, ordered by user index.
func (c *Controller) fanOutRefs(name string, selected []Item) []inventory.Ref {
	want := make(map[int]bool)
	for _, u := range c.model.Device.FanOutUsers() {
		want[u.Index] = true
	}
	for _, it := range selected {
		if it.Package.Name == name {
			want[it.Ref.User] = true
		}
	}
	var refs []inventory.Ref
	for u := range c.model.Packages {
		if !want[u] {
			continue
		}
		if i, ok := c.model.Find(u, name); ok {
			refs = append(refs, inventory.Ref{User: u, Index: i})
		}
	}
	return refs
}

// Cancel stops the batch before its next package. A package in flight runs
// to its end.
func (b *Batch) Cancel() { b.canceled.Store(true) }

func (b *Batch) Progress() Progress {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.progress
}

func (b *Batch) setProgress(done int, running bool) {
	b.mu.Lock()
	b.progress.Done = done
	b.progress.Running = running
	b.mu.Unlock()
}

// Run applies the steps in order. A failed step is reported and the batch
// moves on. The model is refreshed at the end whatever the outcome.
func (b *Batch) Run(ctx context.Context) []model.StepResult {
	results := make([]model.StepResult, 0, len(b.Steps))
	b.setProgress(0, true)

	for i, st := range b.Steps {
		res := model.StepResult{
			Serial:   b.Serial,
			Package:  st.Package.Name,
			UserID:   st.User.ID,
			From:     st.Package.State,
			Target:   planner.EffectiveTarget(b.Target, b.settings),
			State:    st.Package.State,
			Commands: st.Commands,
		}
		if b.canceled.Load() || ctx.Err() != nil {
			res.Result = ResultCanceled
			results = append(results, res)
			continue
		}

		switch {
		case len(st.Commands) == 0:
			res.Result = ResultSkipped
		case b.opts.DryRun:
			res.Result = ResultPlanned
			res.State = planner.ResultState(st.Commands)
		default:
			state, err := b.opts.Executor.Apply(ctx, executor.Job{
				PlanID:   b.ID,
				Command:  b.opts.Command,
				Serial:   b.Serial,
				UserID:   st.User.ID,
				Package:  st.Package,
				Commands: st.Commands,
			})
			if err != nil {
				res.Result = ResultError
				res.Error = err.Error()
				b.opts.Log.Warn("batch step failed", zap.String("package", st.Package.Name), zap.Uint("user", st.User.ID), zap.Error(err))
				break
			}
			res.Result = ResultSuccess
			res.State = state
			for _, ref := range st.Refs {
				if err := b.model.SetState(ref, state); err != nil {
					b.opts.Log.Warn("model state update failed", zap.String("package", st.Package.Name), zap.Int("user_index", ref.User), zap.Error(err))
				}
			}
		}
		results = append(results, res)
		b.setProgress(i+1, true)
	}

	if b.opts.Refresh != nil && !b.opts.DryRun {
		if err := b.opts.Refresh(context.WithoutCancel(ctx)); err != nil {
			b.opts.Log.Warn("refresh after batch failed", zap.String("serial", b.Serial), zap.Error(err))
		}
	}
	b.setProgress(b.Progress().Done, false)
	return results
}

// RunDevices runs batches for different devices in parallel. Batches for the
// same serial must not be passed together.
func RunDevices(ctx context.Context, batches []*Batch) [][]model.StepResult {
	out := make([][]model.StepResult, len(batches))
	g, gctx := errgroup.WithContext(ctx)
	for i, b := range batches {
		i, b := i, b
		g.Go(func() error {
			out[i] = b.Run(gctx)
			return nil
		})
	}
	_ = g.Wait()
	return out
}
