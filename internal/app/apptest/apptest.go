// Package apptest builds application contexts over a scripted bridge.
package apptest

import (
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/0x192/universal-android-debloater-sub000/internal/app/common"
	"github.com/0x192/universal-android-debloater-sub000/internal/domain/catalog"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/bridge"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/bridge/bridgetest"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/config"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/device"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/logging"
)

const Catalog = `[
  {"id": "com.a", "list": "google", "removal": "Recommended", "description": "Alpha"},
  {"id": "com.b", "list": "oem", "removal": "Advanced"},
  {"id": "com.u", "list": "aosp", "removal": "Unsafe"}
]`

// Phone scripts serial as a Pixel on sdk 30 with an owner and a work
// profile. The owner has com.a enabled, com.b disabled, com.c uninstalled
// and com.u enabled; the work profile only has com.a.
func Phone(fake *bridgetest.Fake, serial string) *bridgetest.Fake {
	return fake.
		OK(serial, "getprop ro.product.brand", "google\n").
		OK(serial, "getprop ro.product.model", "Pixel 7\n").
		OK(serial, "getprop ro.build.version.sdk", "30\n").
		OK(serial, "pm list users", "Users:\n\tUserInfo{0:Owner:c13} running\n\tUserInfo{10:Work profile:1030}\n").
		OK(serial, "pm list packages -s -u --user 0", "package:com.a\npackage:com.b\npackage:com.c\npackage:com.u\n").
		OK(serial, "pm list packages -s -e --user 0", "package:com.a\npackage:com.u\n").
		OK(serial, "pm list packages -s -d --user 0", "package:com.b\n").
		OK(serial, "pm list packages -s -u --user 10", "package:com.a\n").
		OK(serial, "pm list packages -s -e --user 10", "package:com.a\n")
}

// New returns a fake with every serial scripted as Phone and listed as ready,
// and an application context over it.
func New(t *testing.T, opts common.GlobalOptions, serials ...string) (*common.AppContext, *bridgetest.Fake) {
	t.Helper()
	fake := bridgetest.New()
	entries := make([]bridge.Entry, 0, len(serials))
	for _, s := range serials {
		Phone(fake, s)
		entries = append(entries, bridge.Entry{Serial: s, Status: bridge.StatusDevice})
	}
	fake.WithDevices(entries...)

	cat, err := catalog.Parse(strings.NewReader(Catalog), nil)
	if err != nil {
		t.Fatal(err)
	}
	cfg := config.Default()
	return &common.AppContext{
		Options:   opts,
		Config:    cfg,
		Catalog:   cat,
		Transport: fake,
		Prober:    device.NewProber(fake, nil),
		Logger:    logging.NewNoopLogger(),
		Diag:      zap.NewNop(),
		BackupDir: t.TempDir(),

		ConfigPath: filepath.Join(t.TempDir(), config.FileName),
	}, fake
}
