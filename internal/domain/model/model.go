package model

import (
	"fmt"
	"strings"
	"time"
)

type PackageState string

const (
	StateEnabled     PackageState = "Enabled"
	StateDisabled    PackageState = "Disabled"
	StateUninstalled PackageState = "Uninstalled"
	// StateAll is a filter sentinel and never stored on a package.
	StateAll PackageState = "All"
)

func ParseState(s string) (PackageState, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "enabled":
		return StateEnabled, nil
	case "disabled":
		return StateDisabled, nil
	case "uninstalled":
		return StateUninstalled, nil
	case "all":
		return StateAll, nil
	}
	return "", fmt.Errorf("unknown package state %q", s)
}

// Concrete reports whether the state can be stored on a package.
func (s PackageState) Concrete() bool {
	switch s {
	case StateEnabled, StateDisabled, StateUninstalled:
		return true
	}
	return false
}

type ListKind string

const (
	ListAOSP     ListKind = "aosp"
	ListCarrier  ListKind = "carrier"
	ListGoogle   ListKind = "google"
	ListMisc     ListKind = "misc"
	ListOEM      ListKind = "oem"
	ListUnlisted ListKind = "unlisted"
)

type Removal string

const (
	RemovalRecommended Removal = "Recommended"
	RemovalAdvanced    Removal = "Advanced"
	RemovalExpert      Removal = "Expert"
	RemovalUnsafe      Removal = "Unsafe"
	RemovalUnlisted    Removal = "Unlisted"
)

type CatalogEntry struct {
	ID           string   `json:"id"`
	List         ListKind `json:"list"`
	Description  string   `json:"description,omitempty"`
	Dependencies string   `json:"dependencies,omitempty"`
	NeededBy     string   `json:"needed_by,omitempty"`
	Labels       []string `json:"labels,omitempty"`
	Removal      Removal  `json:"removal"`
}

// UnlistedEntry is the synthetic entry used for packages the catalog does not know.
func UnlistedEntry(id string) CatalogEntry {
	return CatalogEntry{ID: id, List: ListUnlisted, Removal: RemovalUnlisted}
}

type User struct {
	ID        uint   `json:"id"`
	Index     int    `json:"index"`
	Name      string `json:"name,omitempty"`
	Protected bool   `json:"protected"`
}

type Device struct {
	Serial string `json:"serial"`
	Brand  string `json:"brand"`
	Model  string `json:"model"`
	SDK    int    `json:"sdk"`
	Users  []User `json:"users"`
}

func (d Device) Reachable() bool { return d.SDK > 0 }

func (d Device) Name() string {
	name := strings.TrimSpace(d.Brand + " " + d.Model)
	if name == "" {
		return d.Serial
	}
	return name
}

func (d Device) UserByID(id uint) (User, bool) {
	for _, u := range d.Users {
		if u.ID == id {
			return u, true
		}
	}
	return User{}, false
}

// FanOutUsers returns the users targeted by multi-user operations.
func (d Device) FanOutUsers() []User {
	out := make([]User, 0, len(d.Users))
	for _, u := range d.Users {
		if !u.Protected {
			out = append(out, u)
		}
	}
	return out
}

type Package struct {
	Name     string       `json:"name"`
	State    PackageState `json:"state"`
	Catalog  CatalogEntry `json:"catalog"`
	Selected bool         `json:"selected"`
}

type PackageBackup struct {
	Name  string       `json:"name"`
	State PackageState `json:"state"`
}

type UserBackup struct {
	ID       uint            `json:"id"`
	Packages []PackageBackup `json:"packages"`
}

type PhoneBackup struct {
	DeviceID string       `json:"device_id"`
	Users    []UserBackup `json:"users"`
}

type Filter struct {
	State   PackageState
	List    ListKind
	Removal Removal
	Query   string
}

func (f Filter) Match(p Package) bool {
	if f.State != "" && f.State != StateAll && p.State != f.State {
		return false
	}
	if f.List != "" && p.Catalog.List != f.List {
		return false
	}
	if f.Removal != "" && p.Catalog.Removal != f.Removal {
		return false
	}
	if q := strings.ToLower(strings.TrimSpace(f.Query)); q != "" {
		if !strings.Contains(strings.ToLower(p.Name), q) && !strings.Contains(strings.ToLower(p.Catalog.Description), q) {
			return false
		}
	}
	return true
}

// Settings are the operator switches consumed by the planner and the selection controller.
type Settings struct {
	Theme         string `json:"theme"`
	ExpertMode    bool   `json:"expert_mode"`
	DisableMode   bool   `json:"disable_mode"`
	MultiUserMode bool   `json:"multi_user_mode"`
}

type StepResult struct {
	Serial   string       `json:"serial,omitempty"`
	Package  string       `json:"package"`
	UserID   uint         `json:"user_id"`
	From     PackageState `json:"from"`
	Target   PackageState `json:"target"`
	State    PackageState `json:"state"`
	Commands []string     `json:"commands,omitempty"`
	Result   string       `json:"result"`
	Error    string       `json:"error,omitempty"`
}

type Summary struct {
	ItemsTotal    int `json:"items_total"`
	ItemsSelected int `json:"items_selected"`
	Succeeded     int `json:"succeeded"`
	Errors        int `json:"errors"`
}

type CommandResult struct {
	SchemaVersion string       `json:"schema_version"`
	Command       string       `json:"command"`
	Timestamp     time.Time    `json:"timestamp"`
	DurationMS    int64        `json:"duration_ms"`
	DryRun        bool         `json:"dry_run,omitempty"`
	Device        *Device      `json:"device,omitempty"`
	Summary       Summary      `json:"summary,omitempty"`
	Steps         []StepResult `json:"steps,omitempty"`
	Packages      []Package    `json:"packages,omitempty"`
	Devices       []Device     `json:"devices,omitempty"`
	Backups       []string     `json:"backups,omitempty"`
	Path          string       `json:"path,omitempty"`
	Settings      *Settings    `json:"settings,omitempty"`
}

type OperationLogEntry struct {
	Timestamp  time.Time `json:"timestamp"`
	PlanID     string    `json:"plan_id"`
	Command    string    `json:"command"`
	Action     string    `json:"action"`
	Device     string    `json:"device"`
	UserID     uint      `json:"user_id"`
	Package    string    `json:"package"`
	Shell      string    `json:"shell"`
	Removal    string    `json:"removal"`
	Result     string    `json:"result"`
	Error      string    `json:"error"`
	DurationMS int64     `json:"duration_ms"`
	DryRun     bool      `json:"dry_run"`
}
