// Package device queries attached devices for their identity, users and
// system packages.
package device

import (
	"bufio"
	"context"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
	"github.com/0x192/universal-android-debloater-sub000/internal/domain/planner"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/bridge"
)

// flagManagedProfile is UserInfo.FLAG_MANAGED_PROFILE.
const flagManagedProfile = 0x20

var (
	userInfoPattern = regexp.MustCompile(`\{(\d+):([^:}]*):([0-9a-fA-F]+)\}`)
	userIDPattern   = regexp.MustCompile(`\{(\d+)`)
)

type Prober struct {
	transport bridge.Transport
	log       *zap.Logger
}

func NewProber(t bridge.Transport, log *zap.Logger) *Prober {
	if log == nil {
		log = zap.NewNop()
	}
	return &Prober{transport: t, log: log}
}

// ListDevices probes every device adb reports as ready.
func (p *Prober) ListDevices(ctx context.Context) ([]model.Device, error) {
	entries, err := p.transport.Devices(ctx)
	if err != nil {
		return nil, err
	}
	var out []model.Device
	for _, e := range entries {
		if e.Status != bridge.StatusDevice {
			p.log.Info("skipping device", zap.String("serial", e.Serial), zap.String("status", e.Status))
			continue
		}
		out = append(out, p.Probe(ctx, e.Serial))
	}
	return out, nil
}

// Probe never fails outright: a device that does not answer every query
// comes back with SDK 0 and no users, which blocks all mutations.
func (p *Prober) Probe(ctx context.Context, serial string) model.Device {
	unreachable := model.Device{Serial: serial}

	brand, err := p.getprop(ctx, serial, "ro.product.brand")
	if err != nil {
		p.log.Warn("probe failed", zap.String("serial", serial), zap.String("query", "brand"), zap.Error(err))
		return unreachable
	}
	name, err := p.getprop(ctx, serial, "ro.product.model")
	if err != nil {
		p.log.Warn("probe failed", zap.String("serial", serial), zap.String("query", "model"), zap.Error(err))
		return unreachable
	}
	rawSDK, err := p.getprop(ctx, serial, "ro.build.version.sdk")
	if err != nil {
		p.log.Warn("probe failed", zap.String("serial", serial), zap.String("query", "sdk"), zap.Error(err))
		return unreachable
	}
	sdk, err := strconv.Atoi(rawSDK)
	if err != nil || sdk < 1 {
		p.log.Warn("unexpected sdk level", zap.String("serial", serial), zap.String("sdk", rawSDK))
		return unreachable
	}
	res, err := p.transport.Shell(ctx, serial, "pm list users")
	if err != nil {
		p.log.Warn("probe failed", zap.String("serial", serial), zap.String("query", "users"), zap.Error(err))
		return unreachable
	}

	d := model.Device{
		Serial: serial,
		Brand:  brand,
		Model:  name,
		SDK:    sdk,
		Users:  ParseUsers(res.Stdout),
	}
	p.log.Debug("device probed", zap.String("serial", serial), zap.String("name", d.Name()), zap.Int("sdk", sdk), zap.Int("users", len(d.Users)))
	return d
}

func (p *Prober) getprop(ctx context.Context, serial, prop string) (string, error) {
	res, err := p.transport.Shell(ctx, serial, "getprop "+prop)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(res.Stdout), nil
}

// ParseUsers reads `pm list users`. Users are indexed in the order listed and
// user 0 is assumed when the listing names nobody.
func ParseUsers(out string) []model.User {
	var users []model.User
	seen := map[uint]bool{}
	s := bufio.NewScanner(strings.NewReader(out))
	for s.Scan() {
		line := s.Text()
		m := userIDPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		id, err := strconv.ParseUint(m[1], 10, 32)
		if err != nil || seen[uint(id)] {
			continue
		}
		u := model.User{ID: uint(id), Index: len(users)}
		if info := userInfoPattern.FindStringSubmatch(line); info != nil {
			u.Name = info[2]
			if flags, err := strconv.ParseUint(info[3], 16, 32); err == nil && flags&flagManagedProfile != 0 {
				u.Protected = true
			}
		}
		if strings.Contains(strings.ToLower(u.Name), "work profile") {
			u.Protected = true
		}
		seen[u.ID] = true
		users = append(users, u)
	}
	if len(users) == 0 {
		users = []model.User{{ID: 0, Index: 0}}
	}
	return users
}

// Listed is one system package as the device reports it for a user.
type Listed struct {
	Name  string
	State model.PackageState
}

// ListPackages returns the system packages of one user, sorted by name.
// Uninstalled means known to the package manager but installed for neither
// the enabled nor the disabled listing.
func (p *Prober) ListPackages(ctx context.Context, d model.Device, u model.User) ([]Listed, error) {
	if !d.Reachable() {
		return nil, &model.Error{Kind: model.KindNoDevice, Detail: d.Serial}
	}
	suffix := ""
	if d.SDK >= planner.MinPerUserSDK {
		suffix = fmt.Sprintf(" --user %d", u.ID)
	}

	all, err := p.listNames(ctx, d.Serial, "pm list packages -s -u"+suffix)
	if err != nil {
		return nil, err
	}
	enabled, err := p.listNames(ctx, d.Serial, "pm list packages -s -e"+suffix)
	if err != nil {
		return nil, err
	}
	disabled, err := p.listNames(ctx, d.Serial, "pm list packages -s -d"+suffix)
	if err != nil {
		return nil, err
	}

	out := make([]Listed, 0, len(all))
	for name := range all {
		state := model.StateUninstalled
		switch {
		case disabled[name]:
			state = model.StateDisabled
		case enabled[name]:
			state = model.StateEnabled
		}
		out = append(out, Listed{Name: name, State: state})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (p *Prober) listNames(ctx context.Context, serial, command string) (map[string]bool, error) {
	res, err := p.transport.Shell(ctx, serial, command)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", command, err)
	}
	return ParsePackageList(res.Stdout), nil
}

func ParsePackageList(out string) map[string]bool {
	names := map[string]bool{}
	s := bufio.NewScanner(strings.NewReader(out))
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if name, ok := strings.CutPrefix(line, "package:"); ok && name != "" {
			names[name] = true
		}
	}
	return names
}
