// Package backup snapshots the disabled and uninstalled packages of a device
// and plans their restoration.
package backup

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/0x192/universal-android-debloater-sub000/internal/app/inventory"
	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
	"github.com/0x192/universal-android-debloater-sub000/internal/domain/planner"
	"github.com/0x192/universal-android-debloater-sub000/internal/domain/safety"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/filesystem"
)

const (
	fileLayout    = "2006-01-02_15-04-05"
	maxSameSecond = 99
)

var timeNow = time.Now

type Store struct {
	root string
	keep int
	log  *zap.Logger
}

// NewStore keeps at most keep snapshots per device; zero keeps all.
func NewStore(root string, keep int, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{root: root, keep: keep, log: log}
}

func (s *Store) Root() string { return s.root }

// DeviceDir is the directory holding the snapshots of serial.
func (s *Store) DeviceDir(serial string) string {
	return filepath.Join(s.root, DeviceID(serial))
}

// DeviceID makes a serial usable as a directory name. Network serials carry
// a colon.
func DeviceID(serial string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			return r
		}
		return '_'
	}, serial)
}

// Build collects the Disabled and Uninstalled rows of m. Users without such
// rows are left out.
func Build(m *inventory.Model) model.PhoneBackup {
	b := model.PhoneBackup{DeviceID: m.Device.Serial, Users: []model.UserBackup{}}
	for i, u := range m.Device.Users {
		if i >= len(m.Packages) {
			break
		}
		var records []model.PackageBackup
		for _, p := range m.Packages[i] {
			if p.State == model.StateDisabled || p.State == model.StateUninstalled {
				records = append(records, model.PackageBackup{Name: p.Name, State: p.State})
			}
		}
		if len(records) > 0 {
			b.Users = append(b.Users, model.UserBackup{ID: u.ID, Packages: records})
		}
	}
	return b
}

// Snapshot writes Build(m) to {root}/{device_id}/{timestamp}.json and
// rotates old snapshots.
func (s *Store) Snapshot(m *inventory.Model) (string, error) {
	if !m.Device.Reachable() {
		return "", &model.Error{Kind: model.KindNoDevice, Detail: m.Device.Serial}
	}
	data, err := json.MarshalIndent(Build(m), "", "  ")
	if err != nil {
		return "", err
	}

	dir := s.DeviceDir(m.Device.Serial)
	path, err := freeName(dir, timeNow().Format(fileLayout))
	if err != nil {
		return "", err
	}
	if err := filesystem.WriteFileAtomic(path, append(data, '\n'), 0o644); err != nil {
		return "", fmt.Errorf("write backup: %w", err)
	}
	s.log.Info("backup written", zap.String("path", path), zap.Int("users", len(m.Device.Users)))

	if err := s.rotate(dir); err != nil {
		s.log.Warn("backup rotation failed", zap.String("dir", dir), zap.Error(err))
	}
	return path, nil
}

// freeName returns dir/stamp.json, or dir/stamp_NN.json when snapshots were
// already taken within the same second.
func freeName(dir, stamp string) (string, error) {
	path := filepath.Join(dir, stamp+".json")
	for n := 1; ; n++ {
		_, err := os.Lstat(path)
		if errors.Is(err, fs.ErrNotExist) {
			return path, nil
		}
		if err != nil {
			return "", fmt.Errorf("write backup: %w", err)
		}
		if n > maxSameSecond {
			return "", fmt.Errorf("write backup: too many snapshots at %s", stamp)
		}
		path = filepath.Join(dir, fmt.Sprintf("%s_%02d.json", stamp, n))
	}
}

func (s *Store) rotate(dir string) error {
	if s.keep <= 0 {
		return nil
	}
	items, err := filesystem.Files(dir, ".json")
	if err != nil {
		return err
	}
	if len(items) <= s.keep {
		return nil
	}
	// names sort by time; drop the oldest
	for _, it := range items[:len(items)-s.keep] {
		if err := filesystem.Remove(it.Path); err != nil {
			return err
		}
		s.log.Debug("old backup removed", zap.String("path", it.Path))
	}
	return nil
}

// List returns the readable snapshots of serial, newest first.
func (s *Store) List(serial string) ([]string, error) {
	return s.ListDir(s.DeviceDir(serial))
}

// ListDir returns the readable snapshot files in dir, newest first.
// Unreadable files are skipped.
func (s *Store) ListDir(dir string) ([]string, error) {
	items, err := filesystem.Files(dir, ".json")
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if _, err := Read(it.Path); err != nil {
			s.log.Warn("skipping unreadable backup", zap.String("path", it.Path), zap.Error(err))
			continue
		}
		out = append(out, it.Path)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(out)))
	return out, nil
}

// Read parses a snapshot. Records must be Disabled or Uninstalled.
func Read(path string) (model.PhoneBackup, error) {
	var b model.PhoneBackup
	data, err := os.ReadFile(path)
	if err != nil {
		return b, &model.Error{Kind: model.KindBackupParse, Detail: path, Err: err}
	}
	if err := json.Unmarshal(data, &b); err != nil {
		return b, &model.Error{Kind: model.KindBackupParse, Detail: path, Err: err}
	}
	for _, u := range b.Users {
		for _, p := range u.Packages {
			if p.State != model.StateDisabled && p.State != model.StateUninstalled {
				return model.PhoneBackup{}, &model.Error{
					Kind:   model.KindBackupParse,
					Detail: path,
					Err:    fmt.Errorf("package %s of user %d has state %q", p.Name, u.ID, p.State),
				}
			}
		}
	}
	return b, nil
}

// Step drives one live package to its recorded state. The step with no
// package and no commands marks the end of a restore that changes something.
type Step struct {
	PackageIndex inventory.Ref `json:"package_index"`
	User         model.User    `json:"user"`
	Package      string        `json:"package,omitempty"`
	Commands     []string      `json:"commands"`
}

// Restore plans the commands that bring m back to the snapshot at path.
// path may be any .json file; one under the store root must not resolve
// outside it. legacyUser is the user a device below the per-user SDK is
// driven as.
func (s *Store) Restore(m *inventory.Model, path string, legacyUser model.User, settings model.Settings) ([]Step, error) {
	if err := safety.ValidateBackupFile(path); err != nil {
		return nil, err
	}
	if safety.Within(path, s.root) {
		if err := safety.ValidateBackupPath(path, s.root); err != nil {
			return nil, err
		}
	}
	b, err := Read(path)
	if err != nil {
		return nil, err
	}
	return Plan(m, b, legacyUser, settings)
}

// Plan is Restore on a parsed snapshot. Each user is restored on its own, so
// disable and multi-user modes do not apply.
func Plan(m *inventory.Model, b model.PhoneBackup, legacyUser model.User, settings model.Settings) ([]Step, error) {
	settings.DisableMode = false
	settings.MultiUserMode = false

	var steps []Step
	changed := false
	for _, ub := range b.Users {
		live, ok := m.Device.UserByID(ub.ID)
		if !ok {
			return nil, model.NewUserMissing(ub.ID)
		}
		target := live
		if m.Device.SDK < planner.MinPerUserSDK {
			target = legacyUser
		}

		for _, rec := range ub.Packages {
			i, ok := m.Find(live.Index, rec.Name)
			if !ok {
				return nil, model.NewPackageMissing(rec.Name, ub.ID)
			}
			ref := inventory.Ref{User: live.Index, Index: i}
			p, _ := m.Get(ref)

			commands := planner.Plan(planner.Request{
				Package:  p,
				Current:  p.State,
				Target:   rec.State,
				User:     target,
				Device:   m.Device,
				Settings: settings,
			})
			if len(commands) == 0 {
				continue
			}
			changed = true
			steps = append(steps, Step{PackageIndex: ref, User: live, Package: p.Name, Commands: commands})
		}
	}
	if changed {
		steps = append(steps, Step{})
	}
	return steps, nil
}
