package device

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/bridge"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/bridge/bridgetest"
)

const usersOutput = `Users:
	UserInfo{0:Owner:c13} running
	UserInfo{10:Work profile:1030} running
	UserInfo{11:Second:410}
`

func scriptedDevice(serial string) *bridgetest.Fake {
	return bridgetest.New().
		OK(serial, "getprop ro.product.brand", "google\n").
		OK(serial, "getprop ro.product.model", "Pixel 7\n").
		OK(serial, "getprop ro.build.version.sdk", "34\n").
		OK(serial, "pm list users", usersOutput)
}

func TestParseUsers(t *testing.T) {
	users := ParseUsers(usersOutput)
	assert.Equal(t, []model.User{
		{ID: 0, Index: 0, Name: "Owner"},
		{ID: 10, Index: 1, Name: "Work profile", Protected: true},
		{ID: 11, Index: 2, Name: "Second"},
	}, users)
}

func TestParseUsersOldFormatAndFallback(t *testing.T) {
	assert.Equal(t, []model.User{{ID: 0}, {ID: 7, Index: 1}}, ParseUsers("UserInfo{0}\nUserInfo{7}\n"))
	assert.Equal(t, []model.User{{ID: 0}}, ParseUsers(""))
}

func TestProbe(t *testing.T) {
	p := NewProber(scriptedDevice("S1"), nil)
	d := p.Probe(context.Background(), "S1")
	assert.Equal(t, "S1", d.Serial)
	assert.Equal(t, "google Pixel 7", d.Name())
	assert.Equal(t, 34, d.SDK)
	require.Len(t, d.Users, 3)
	assert.True(t, d.Users[1].Protected)
	assert.Len(t, d.FanOutUsers(), 2)
}

func TestProbeFailureIsUnreachable(t *testing.T) {
	fake := scriptedDevice("S1").Fail("S1", "pm list users", "", "error: closed")
	d := NewProber(fake, nil).Probe(context.Background(), "S1")
	assert.Equal(t, model.Device{Serial: "S1"}, d)
	assert.False(t, d.Reachable())

	fake = scriptedDevice("S2").OK("S2", "getprop ro.build.version.sdk", "\n")
	d = NewProber(fake, nil).Probe(context.Background(), "S2")
	assert.Equal(t, 0, d.SDK)
	assert.Empty(t, d.Users)
}

func TestListDevicesSkipsNotReady(t *testing.T) {
	fake := scriptedDevice("S1").WithDevices(
		bridge.Entry{Serial: "S1", Status: bridge.StatusDevice},
		bridge.Entry{Serial: "S2", Status: bridge.StatusUnauthorized},
		bridge.Entry{Serial: "S3", Status: bridge.StatusOffline},
	)
	devices, err := NewProber(fake, nil).ListDevices(context.Background())
	require.NoError(t, err)
	require.Len(t, devices, 1)
	assert.Equal(t, "S1", devices[0].Serial)
	for _, c := range fake.Calls() {
		assert.Equal(t, "S1", c.Serial)
	}
}

func TestListPackagesPerUser(t *testing.T) {
	fake := bridgetest.New().
		OK("S1", "pm list packages -s -u --user 10", "package:com.a\npackage:com.b\npackage:com.c\n").
		OK("S1", "pm list packages -s -e --user 10", "package:com.a\n").
		OK("S1", "pm list packages -s -d --user 10", "package:com.b\n")
	dev := model.Device{Serial: "S1", SDK: 30, Users: []model.User{{ID: 0}, {ID: 10, Index: 1}}}

	got, err := NewProber(fake, nil).ListPackages(context.Background(), dev, dev.Users[1])
	require.NoError(t, err)
	assert.Equal(t, []Listed{
		{Name: "com.a", State: model.StateEnabled},
		{Name: "com.b", State: model.StateDisabled},
		{Name: "com.c", State: model.StateUninstalled},
	}, got)
}

func TestListPackagesLegacyOmitsUser(t *testing.T) {
	fake := bridgetest.New().
		OK("S1", "pm list packages -s -u", "package:com.a\n").
		OK("S1", "pm list packages -s -e", "package:com.a\n")
	dev := model.Device{Serial: "S1", SDK: 19, Users: []model.User{{ID: 0}}}

	got, err := NewProber(fake, nil).ListPackages(context.Background(), dev, dev.Users[0])
	require.NoError(t, err)
	assert.Equal(t, []Listed{{Name: "com.a", State: model.StateEnabled}}, got)
}

func TestListPackagesErrors(t *testing.T) {
	_, err := NewProber(bridgetest.New(), nil).ListPackages(context.Background(), model.Device{Serial: "S1"}, model.User{})
	assert.True(t, errors.Is(err, model.ErrNoDevice))

	fake := bridgetest.New().Fail("S1", "pm list packages -s -u --user 0", "", "error: closed")
	_, err = NewProber(fake, nil).ListPackages(context.Background(), model.Device{Serial: "S1", SDK: 30}, model.User{})
	assert.True(t, errors.Is(err, model.ErrCommandFailed))
}
