// Package planner turns a requested package state into the shell commands
// that realize it on a given device.
package planner

import (
	"fmt"
	"strings"

	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
	"github.com/0x192/universal-android-debloater-sub000/internal/domain/safety"
)

// MinPerUserSDK is the first platform level with per-user package commands
// and install-existing.
const MinPerUserSDK = 21

type Request struct {
	Package  model.Package
	Current  model.PackageState
	Target   model.PackageState
	User     model.User
	Device   model.Device
	Settings model.Settings
}

type Action string

const (
	ActionUninstall       Action = "uninstall"
	ActionForceStop       Action = "force-stop"
	ActionDisable         Action = "disable-user"
	ActionClear           Action = "clear"
	ActionEnable          Action = "enable"
	ActionInstallExisting Action = "install-existing"
	ActionUnknown         Action = "unknown"
)

// Plan returns the ordered commands for the transition, or nil when the
// transition is already satisfied, unsupported on the device or blocked by
// the risk policy.
func Plan(req Request) []string {
	if !req.Device.Reachable() {
		return nil
	}
	name := req.Package.Name
	if safety.ValidatePackageName(name) != nil {
		return nil
	}
	if safety.CheckRemoval(req.Package.Catalog, req.Settings) != nil {
		return nil
	}

	target := EffectiveTarget(req.Target, req.Settings)
	if !req.Current.Concrete() || !target.Concrete() || req.Current == target {
		return nil
	}

	steps := transition(req.Current, target, req.Device.SDK)
	if len(steps) == 0 {
		return nil
	}

	if req.Device.SDK < MinPerUserSDK {
		out := make([]string, 0, len(steps))
		for _, a := range steps {
			out = append(out, legacyCommand(a, name))
		}
		return out
	}

	users := targetUsers(req)
	out := make([]string, 0, len(steps)*len(users))
	for _, u := range users {
		for _, a := range steps {
			out = append(out, userCommand(a, u.ID, name))
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}

// EffectiveTarget maps a removal request to a disable when disable mode is on.
func EffectiveTarget(target model.PackageState, settings model.Settings) model.PackageState {
	if target == model.StateUninstalled && settings.DisableMode {
		return model.StateDisabled
	}
	return target
}

func transition(from, to model.PackageState, sdk int) []Action {
	disable := []Action{ActionForceStop, ActionDisable, ActionClear}
	switch to {
	case model.StateUninstalled:
		return []Action{ActionUninstall}
	case model.StateDisabled:
		if from == model.StateUninstalled {
			if sdk < MinPerUserSDK {
				return nil
			}
			return append([]Action{ActionInstallExisting}, disable...)
		}
		return disable
	case model.StateEnabled:
		switch from {
		case model.StateDisabled:
			return []Action{ActionEnable}
		case model.StateUninstalled:
			if sdk < MinPerUserSDK {
				return nil
			}
			return []Action{ActionInstallExisting}
		}
	}
	return nil
}

func targetUsers(req Request) []model.User {
	if req.Settings.MultiUserMode {
		return req.Device.FanOutUsers()
	}
	return []model.User{req.User}
}

func legacyCommand(a Action, pkg string) string {
	switch a {
	case ActionUninstall:
		return "pm uninstall " + pkg
	case ActionForceStop:
		return "am force-stop " + pkg
	case ActionDisable:
		return "pm disable-user " + pkg
	case ActionClear:
		return "pm clear " + pkg
	case ActionEnable:
		return "pm enable " + pkg
	}
	return ""
}

func userCommand(a Action, user uint, pkg string) string {
	switch a {
	case ActionUninstall:
		return fmt.Sprintf("pm uninstall --user %d %s", user, pkg)
	case ActionForceStop:
		return fmt.Sprintf("am force-stop --user %d %s", user, pkg)
	case ActionDisable:
		return fmt.Sprintf("pm disable-user --user %d %s", user, pkg)
	case ActionClear:
		return fmt.Sprintf("pm clear --user %d %s", user, pkg)
	case ActionEnable:
		return fmt.Sprintf("pm enable --user %d %s", user, pkg)
	case ActionInstallExisting:
		return fmt.Sprintf("cmd package install-existing --user %d %s", user, pkg)
	}
	return ""
}

// Describe classifies a command produced by Plan.
func Describe(command string) Action {
	f := strings.Fields(command)
	switch {
	case len(f) >= 2 && f[0] == "pm" && f[1] == "uninstall":
		return ActionUninstall
	case len(f) >= 2 && f[0] == "am" && f[1] == "force-stop":
		return ActionForceStop
	case len(f) >= 2 && f[0] == "pm" && f[1] == "disable-user":
		return ActionDisable
	case len(f) >= 2 && f[0] == "pm" && f[1] == "clear":
		return ActionClear
	case len(f) >= 2 && f[0] == "pm" && f[1] == "enable":
		return ActionEnable
	case len(f) >= 3 && f[0] == "cmd" && f[1] == "package" && f[2] == "install-existing":
		return ActionInstallExisting
	}
	return ActionUnknown
}

// ResultState is the state a fully successful plan leaves the package in.
func ResultState(commands []string) model.PackageState {
	if len(commands) == 0 {
		return ""
	}
	allUninstall := true
	allDisable := true
	for _, c := range commands {
		switch Describe(c) {
		case ActionUninstall:
			allDisable = false
		case ActionForceStop, ActionDisable, ActionClear:
			allUninstall = false
		default:
			allUninstall = false
			allDisable = false
		}
	}
	switch {
	case allUninstall:
		return model.StateUninstalled
	case allDisable:
		return model.StateDisabled
	}
	// install-existing followed by the disable triple still ends disabled.
	if hasDisable(commands) && Describe(commands[len(commands)-1]) == ActionClear {
		return model.StateDisabled
	}
	return model.StateEnabled
}

func hasDisable(commands []string) bool {
	for _, c := range commands {
		if Describe(c) == ActionDisable {
			return true
		}
	}
	return false
}
