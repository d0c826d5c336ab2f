package reboot

import (
	"context"
	"strings"
	"testing"

	"github.com/0x192/universal-android-debloater-sub000/internal/app/apptest"
	"github.com/0x192/universal-android-debloater-sub000/internal/app/common"
)

func TestRunRebootsResolvedDevice(t *testing.T) {
	app, fake := apptest.New(t, common.GlobalOptions{Yes: true}, "S1")

	result, err := NewService().Run(context.Background(), app)
	if err != nil {
		t.Fatal(err)
	}
	if result.Summary.Succeeded != 1 {
		t.Fatalf("unexpected summary: %+v", result.Summary)
	}
	if got := fake.Reboots(); len(got) != 1 || got[0] != "S1" {
		t.Fatalf("unexpected reboots: %v", got)
	}
}

func TestRunDryRunDoesNotReboot(t *testing.T) {
	app, fake := apptest.New(t, common.GlobalOptions{DryRun: true}, "S1")

	result, err := NewService().Run(context.Background(), app)
	if err != nil {
		t.Fatal(err)
	}
	if !result.DryRun || len(fake.Reboots()) != 0 {
		t.Fatalf("dry run rebooted the device: %+v %v", result, fake.Reboots())
	}
}

func TestRunRequiresConfirmation(t *testing.T) {
	app, _ := apptest.New(t, common.GlobalOptions{}, "S1")
	_, err := NewService().Run(context.Background(), app)
	if err == nil || !strings.Contains(err.Error(), "confirmation required") {
		t.Fatalf("expected confirmation error, got %v", err)
	}
}
