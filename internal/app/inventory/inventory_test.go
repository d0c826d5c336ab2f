package inventory

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x192/universal-android-debloater-sub000/internal/domain/catalog"
	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/bridge/bridgetest"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/device"
)

func fixture(t *testing.T) (*bridgetest.Fake, *catalog.Catalog) {
	t.Helper()
	fake := bridgetest.New().
		OK("S1", "getprop ro.product.brand", "samsung").
		OK("S1", "getprop ro.product.model", "SM-G991B").
		OK("S1", "getprop ro.build.version.sdk", "33").
		OK("S1", "pm list users", "UserInfo{0:Owner:c13} running\nUserInfo{10:Work profile:1030}\n").
		OK("S1", "pm list packages -s -u --user 0", "package:com.b\npackage:com.a\npackage:com.c\n").
		OK("S1", "pm list packages -s -e --user 0", "package:com.a\npackage:com.b\n").
		OK("S1", "pm list packages -s -d --user 0", "package:com.b\n").
		OK("S1", "pm list packages -s -u --user 10", "package:com.a\n").
		OK("S1", "pm list packages -s -e --user 10", "package:com.a\n")
	cat, err := catalog.Parse(strings.NewReader(`[{"id":"com.a","list":"google","removal":"Recommended","description":"Alpha"}]`), nil)
	require.NoError(t, err)
	return fake, cat
}

func TestSessionBuildsOneRowPerUserPackage(t *testing.T) {
	fake, cat := fixture(t)
	s := NewSession(device.NewProber(fake, nil), cat, fake.Reboot)

	m, err := s.Select(context.Background(), "S1")
	require.NoError(t, err)
	require.Len(t, m.Packages, 2)

	names := func(rows []model.Package) []string {
		var out []string
		for _, p := range rows {
			out = append(out, p.Name)
		}
		return out
	}
	assert.Equal(t, []string{"com.a", "com.b", "com.c"}, names(m.Packages[0]))
	assert.Equal(t, []string{"com.a"}, names(m.Packages[1]))

	i, ok := m.Find(0, "com.b")
	require.True(t, ok)
	p, _ := m.Get(Ref{User: 0, Index: i})
	assert.Equal(t, model.StateDisabled, p.State)
	assert.Equal(t, model.ListUnlisted, p.Catalog.List)

	a, _ := m.Get(Ref{User: 0, Index: 0})
	assert.Equal(t, model.ListGoogle, a.Catalog.List)
	c, _ := m.Get(Ref{User: 0, Index: 2})
	assert.Equal(t, model.StateUninstalled, c.State)
}

func TestModelRejectsSentinelState(t *testing.T) {
	fake, cat := fixture(t)
	m, err := NewSession(device.NewProber(fake, nil), cat, nil).Select(context.Background(), "S1")
	require.NoError(t, err)

	assert.Error(t, m.SetState(Ref{User: 0, Index: 0}, model.StateAll))
	assert.Error(t, m.SetState(Ref{User: 5, Index: 0}, model.StateDisabled))
	assert.NoError(t, m.SetState(Ref{User: 0, Index: 0}, model.StateDisabled))
	assert.Len(t, m.View(0, model.Filter{State: model.StateDisabled}), 2)
	assert.Len(t, m.View(0, model.Filter{State: model.StateAll}), 3)
	assert.Len(t, m.View(0, model.Filter{Query: "alpha"}), 1)
}

func TestSessionRebootInvalidatesModel(t *testing.T) {
	fake, cat := fixture(t)
	s := NewSession(device.NewProber(fake, nil), cat, fake.Reboot)
	_, err := s.Select(context.Background(), "S1")
	require.NoError(t, err)
	require.NotNil(t, s.Model())

	require.NoError(t, s.Reboot(context.Background()))
	assert.Nil(t, s.Model())
	assert.Equal(t, []string{"S1"}, fake.Reboots())

	_, err = s.Refresh(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, s.Model())
}

func TestBuildUnreachableDevice(t *testing.T) {
	fake, cat := fixture(t)
	_, err := NewSession(device.NewProber(fake, nil), cat, nil).Select(context.Background(), "GONE")
	assert.True(t, errors.Is(err, model.ErrNoDevice))
}
