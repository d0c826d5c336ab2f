package cmd

import (
	"strings"
	"testing"

	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
)

func TestValidateApplyFlagsRejectsMissingTarget(t *testing.T) {
	_, err := validateApplyFlags("", []string{"com.a"}, false, "")
	if err == nil || !strings.Contains(err.Error(), "--target is required") {
		t.Fatalf("expected target error, got %v", err)
	}
}

func TestValidateApplyFlagsRejectsSentinelTarget(t *testing.T) {
	for _, target := range []string{"all", "gone"} {
		if _, err := validateApplyFlags(target, []string{"com.a"}, false, ""); err == nil {
			t.Fatalf("expected error for target %q", target)
		}
	}
}

func TestValidateApplyFlagsRequiresSelection(t *testing.T) {
	_, err := validateApplyFlags("disabled", nil, false, "")
	if err == nil || !strings.Contains(err.Error(), "--all or --from") {
		t.Fatalf("expected selection error, got %v", err)
	}
}

func TestValidateApplyFlagsAcceptsValidFlags(t *testing.T) {
	state, err := validateApplyFlags("Uninstalled", nil, true, "")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if state != model.StateUninstalled {
		t.Fatalf("unexpected state %q", state)
	}
}

func TestFilterFlagsBuild(t *testing.T) {
	f, err := filterFlags{state: "disabled", list: "oem", removal: "Advanced"}.build()
	if err != nil {
		t.Fatal(err)
	}
	if f.State != model.StateDisabled || f.List != model.ListOEM || f.Removal != model.RemovalAdvanced {
		t.Fatalf("unexpected filter %+v", f)
	}
	if _, err := (filterFlags{list: "vendor"}).build(); err == nil {
		t.Fatal("expected list validation error")
	}
	if _, err := (filterFlags{removal: "unsafe"}).build(); err == nil {
		t.Fatal("expected removal validation error")
	}
}
