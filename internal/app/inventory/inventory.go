// Package inventory holds the per-device package model: one record for every
// (user, package) pair the device reports.
package inventory

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/0x192/universal-android-debloater-sub000/internal/domain/catalog"
	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/device"
)

// Lister is the part of the device prober the model needs.
type Lister interface {
	Probe(ctx context.Context, serial string) model.Device
	ListPackages(ctx context.Context, d model.Device, u model.User) ([]device.Listed, error)
}

// Model is owned by the control goroutine. Packages[i] belongs to
// Device.Users[i] and is sorted by name.
type Model struct {
	Device   model.Device
	Packages [][]model.Package
}

// Ref addresses one package row.
type Ref struct {
	User  int
	Index int
}

func Build(ctx context.Context, l Lister, cat *catalog.Catalog, d model.Device) (*Model, error) {
	if !d.Reachable() {
		return nil, &model.Error{Kind: model.KindNoDevice, Detail: d.Serial}
	}
	m := &Model{Device: d, Packages: make([][]model.Package, len(d.Users))}
	for i, u := range d.Users {
		listed, err := l.ListPackages(ctx, d, u)
		if err != nil {
			return nil, fmt.Errorf("list packages for user %d: %w", u.ID, err)
		}
		rows := make([]model.Package, 0, len(listed))
		for _, p := range listed {
			rows = append(rows, model.Package{Name: p.Name, State: p.State, Catalog: cat.Lookup(p.Name)})
		}
		sort.Slice(rows, func(a, b int) bool { return rows[a].Name < rows[b].Name })
		m.Packages[i] = rows
	}
	return m, nil
}

func (m *Model) Find(user int, name string) (int, bool) {
	if user < 0 || user >= len(m.Packages) {
		return 0, false
	}
	rows := m.Packages[user]
	i := sort.Search(len(rows), func(i int) bool { return rows[i].Name >= name })
	if i < len(rows) && rows[i].Name == name {
		return i, true
	}
	return 0, false
}

func (m *Model) Get(ref Ref) (model.Package, bool) {
	if ref.User < 0 || ref.User >= len(m.Packages) || ref.Index < 0 || ref.Index >= len(m.Packages[ref.User]) {
		return model.Package{}, false
	}
	return m.Packages[ref.User][ref.Index], true
}

// SetState records an authoritative state. Only the executor path calls it.
func (m *Model) SetState(ref Ref, state model.PackageState) error {
	if !state.Concrete() {
		return fmt.Errorf("state %q cannot be stored on a package", state)
	}
	if _, ok := m.Get(ref); !ok {
		return errors.New("package row out of range")
	}
	m.Packages[ref.User][ref.Index].State = state
	return nil
}

func (m *Model) SetSelected(ref Ref, selected bool) bool {
	if _, ok := m.Get(ref); !ok {
		return false
	}
	m.Packages[ref.User][ref.Index].Selected = selected
	return true
}

// View returns a copy of one user's rows that match f.
func (m *Model) View(user int, f model.Filter) []model.Package {
	if user < 0 || user >= len(m.Packages) {
		return nil
	}
	var out []model.Package
	for _, p := range m.Packages[user] {
		if f.Match(p) {
			out = append(out, p)
		}
	}
	return out
}

func (m *Model) UserIndex(id uint) (int, bool) {
	u, ok := m.Device.UserByID(id)
	if !ok {
		return 0, false
	}
	return u.Index, true
}

// Session tracks the selected device and invalidates its model on refresh,
// reboot or device change.
type Session struct {
	lister  Lister
	catalog *catalog.Catalog
	rebootF func(ctx context.Context, serial string) error

	serial string
	model  *Model
}

func NewSession(l Lister, cat *catalog.Catalog, reboot func(ctx context.Context, serial string) error) *Session {
	return &Session{lister: l, catalog: cat, rebootF: reboot}
}

// Select switches device and rebuilds the model.
func (s *Session) Select(ctx context.Context, serial string) (*Model, error) {
	s.serial = serial
	s.model = nil
	return s.Refresh(ctx)
}

func (s *Session) Refresh(ctx context.Context) (*Model, error) {
	if s.serial == "" {
		return nil, errors.New("no device selected")
	}
	s.model = nil
	d := s.lister.Probe(ctx, s.serial)
	m, err := Build(ctx, s.lister, s.catalog, d)
	if err != nil {
		return nil, err
	}
	s.model = m
	return m, nil
}

// Reboot restarts the device and drops the model. Call Refresh once it is back.
func (s *Session) Reboot(ctx context.Context) error {
	if s.serial == "" {
		return errors.New("no device selected")
	}
	s.model = nil
	if s.rebootF == nil {
		return errors.New("reboot not supported")
	}
	return s.rebootF(ctx, s.serial)
}

// Model returns the current model or nil after invalidation.
func (s *Session) Model() *Model { return s.model }

func (s *Session) Serial() string { return s.serial }
