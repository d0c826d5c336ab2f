// Package settings shows and persists the toggles kept in config.toml.
package settings

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/0x192/universal-android-debloater-sub000/internal/app/common"
	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/config"
)

const (
	ActionShow = "show"
	ActionSet  = "set"
)

const (
	KeyTheme         = "theme"
	KeyExpertMode    = "expert_mode"
	KeyDisableMode   = "disable_mode"
	KeyMultiUserMode = "multi_user_mode"
)

var themes = []string{"Lupin", "Dark", "Light"}

type Service struct{}

type Options struct {
	Action string
	Key    string
	Value  string
	// Global writes disable_mode and multi_user_mode to [general] instead of
	// the override of the resolved device.
	Global bool
}

func NewService() Service { return Service{} }

func (Service) Run(ctx context.Context, app *common.AppContext, opts Options) (model.CommandResult, error) {
	start := time.Now()
	result := model.CommandResult{
		SchemaVersion: "1.0",
		Command:       "settings " + opts.Action,
		Timestamp:     time.Now().UTC(),
		DryRun:        app.Options.DryRun,
		Path:          app.ConfigPath,
	}

	serial := ""
	if opts.Action == ActionShow || (opts.Action == ActionSet && !opts.Global && deviceScoped(opts.Key)) {
		d, err := common.ResolveDevice(ctx, app)
		if err != nil {
			return model.CommandResult{}, err
		}
		result.Device = &d
		serial = d.Serial
	}

	switch opts.Action {
	case ActionShow:
	case ActionSet:
		next, err := apply(app.Config, serial, opts.Key, opts.Value)
		if err != nil {
			return model.CommandResult{}, err
		}
		result.Summary = model.Summary{ItemsTotal: 1, ItemsSelected: 1}
		if !app.Options.DryRun {
			if err := config.NewStoreAt(app.ConfigPath).Save(ctx, next); err != nil {
				return model.CommandResult{}, err
			}
			app.Config = next
			result.Summary.Succeeded = 1
		}
	default:
		return model.CommandResult{}, fmt.Errorf("unknown settings action %q", opts.Action)
	}

	s := app.Config.Settings(serial)
	result.Settings = &s
	result.DurationMS = time.Since(start).Milliseconds()
	return result, nil
}

func deviceScoped(key string) bool {
	return key == KeyDisableMode || key == KeyMultiUserMode
}

// apply returns a copy of cfg with key set. serial is empty for a global
// write.
func apply(cfg config.Config, serial, key, value string) (config.Config, error) {
	if key == KeyTheme {
		for _, t := range themes {
			if t == value {
				cfg.General.Theme = value
				return cfg, nil
			}
		}
		return cfg, fmt.Errorf("theme must be one of %v", themes)
	}

	on, err := strconv.ParseBool(value)
	if err != nil {
		return cfg, fmt.Errorf("%s needs true or false, got %q", key, value)
	}
	switch key {
	case KeyExpertMode:
		cfg.General.ExpertMode = on
		return cfg, nil
	case KeyDisableMode, KeyMultiUserMode:
	default:
		return cfg, fmt.Errorf("unknown setting %q", key)
	}

	if serial == "" {
		if key == KeyDisableMode {
			cfg.General.DisableMode = on
		} else {
			cfg.General.MultiUserMode = on
		}
		return cfg, nil
	}

	devices := make(map[string]config.DeviceOverride, len(cfg.Devices)+1)
	for k, v := range cfg.Devices {
		devices[k] = v
	}
	o := devices[serial]
	if key == KeyDisableMode {
		o.DisableMode = &on
	} else {
		o.MultiUserMode = &on
	}
	devices[serial] = o
	cfg.Devices = devices
	return cfg, nil
}
