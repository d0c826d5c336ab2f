// Package selection keeps the selected bit on the package model and turns
// the selection into batches of executor jobs.
package selection

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/0x192/universal-android-debloater-sub000/internal/app/inventory"
	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/filesystem"
)

type Item struct {
	Ref     inventory.Ref
	User    model.User
	Package model.Package
}

type Controller struct {
	model    *inventory.Model
	settings model.Settings
}

func NewController(m *inventory.Model, settings model.Settings) *Controller {
	return &Controller{model: m, settings: settings}
}

func (c *Controller) Model() *inventory.Model { return c.model }

func (c *Controller) Settings() model.Settings { return c.settings }

// SetMultiUser switches multi-user mode. Turning it on mirrors the current
// selection to the other users.
func (c *Controller) SetMultiUser(on bool) {
	c.settings.MultiUserMode = on
	if !on {
		return
	}
	for _, it := range c.Selected() {
		c.mirror(it.Package.Name)
	}
}

// Toggle flips the row and returns its new value.
func (c *Controller) Toggle(ref inventory.Ref) bool {
	p, ok := c.model.Get(ref)
	if !ok {
		return false
	}
	c.Select(ref, !p.Selected)
	return !p.Selected
}

// Select sets the row. With multi-user mode a selection is copied to the same
// package of every unprotected user; deselecting only touches ref.
func (c *Controller) Select(ref inventory.Ref, selected bool) {
	p, ok := c.model.Get(ref)
	if !ok {
		return
	}
	c.model.SetSelected(ref, selected)
	if selected && c.settings.MultiUserMode {
		c.mirror(p.Name)
	}
}

func (c *Controller) mirror(name string) {
	for _, u := range c.model.Device.FanOutUsers() {
		if i, ok := c.model.Find(u.Index, name); ok {
			c.model.SetSelected(inventory.Ref{User: u.Index, Index: i}, true)
		}
	}
}

// SelectAll selects every row of user matching f and returns how many rows
// matched.
func (c *Controller) SelectAll(user int, f model.Filter) int {
	if user < 0 || user >= len(c.model.Packages) {
		return 0
	}
	n := 0
	for i, p := range c.model.Packages[user] {
		if f.Match(p) {
			c.Select(inventory.Ref{User: user, Index: i}, true)
			n++
		}
	}
	return n
}

func (c *Controller) Clear() {
	for u := range c.model.Packages {
		for i := range c.model.Packages[u] {
			c.model.Packages[u][i].Selected = false
		}
	}
}

// Selected lists the selected rows sorted by package name, then user id.
func (c *Controller) Selected() []Item {
	var out []Item
	for u, rows := range c.model.Packages {
		for i, p := range rows {
			if p.Selected {
				out = append(out, Item{Ref: inventory.Ref{User: u, Index: i}, User: c.model.Device.Users[u], Package: p})
			}
		}
	}
	sort.SliceStable(out, func(a, b int) bool {
		if out[a].Package.Name != out[b].Package.Name {
			return out[a].Package.Name < out[b].Package.Name
		}
		return out[a].User.ID < out[b].User.ID
	})
	return out
}

// ExportSelection writes the distinct selected package names, one per line.
func (c *Controller) ExportSelection(path string) (int, error) {
	var buf bytes.Buffer
	last := ""
	n := 0
	for _, it := range c.Selected() {
		if it.Package.Name == last {
			continue
		}
		last = it.Package.Name
		buf.WriteString(last)
		buf.WriteByte('\n')
		n++
	}
	if err := filesystem.WriteFileAtomic(path, buf.Bytes(), 0o644); err != nil {
		return 0, fmt.Errorf("export selection: %w", err)
	}
	return n, nil
}

// ImportSelection selects the listed names that exist for user. Blank lines
// and lines starting with # are ignored.
func (c *Controller) ImportSelection(path string, user int) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, fmt.Errorf("import selection: %w", err)
	}
	defer f.Close()

	n := 0
	s := bufio.NewScanner(f)
	for s.Scan() {
		name := strings.TrimSpace(s.Text())
		if name == "" || strings.HasPrefix(name, "#") {
			continue
		}
		if i, ok := c.model.Find(user, name); ok {
			c.Select(inventory.Ref{User: user, Index: i}, true)
			n++
		}
	}
	return n, s.Err()
}
