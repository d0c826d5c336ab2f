package safety

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
)

func TestValidatePackageName(t *testing.T) {
	tests := []struct {
		name  string
		input string
		ok    bool
	}{
		{name: "plain", input: "com.android.chrome", ok: true},
		{name: "underscore and digits", input: "com.sec.android.app.sbrowser_2", ok: true},
		{name: "single segment", input: "android", ok: true},
		{name: "empty", input: "", ok: false},
		{name: "shell separator", input: "com.foo;reboot", ok: false},
		{name: "space", input: "com.foo bar", ok: false},
		{name: "empty segment", input: "com..foo", ok: false},
		{name: "leading digit segment", input: "com.1foo", ok: false},
		{name: "substitution", input: "com.$(id)", ok: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := ValidatePackageName(tc.input)
			if tc.ok && err != nil {
				t.Fatalf("expected %q to be valid, got %v", tc.input, err)
			}
			if !tc.ok && err == nil {
				t.Fatalf("expected %q to be rejected", tc.input)
			}
		})
	}
}

func TestCheckRemovalBlocksUnsafeWithoutExpertMode(t *testing.T) {
	entry := model.CatalogEntry{ID: "com.android.systemui", Removal: model.RemovalUnsafe}
	if err := CheckRemoval(entry, model.Settings{}); err == nil {
		t.Fatal("expected unsafe package to be blocked")
	}
	if err := CheckRemoval(entry, model.Settings{ExpertMode: true}); err != nil {
		t.Fatalf("expected expert mode to allow unsafe package, got %v", err)
	}
	if err := CheckRemoval(model.CatalogEntry{Removal: model.RemovalExpert}, model.Settings{}); err != nil {
		t.Fatalf("expected expert tier to pass the static check, got %v", err)
	}
}

func TestValidateBackupPathAllowsPathWithinRoot(t *testing.T) {
	root := t.TempDir()
	p := filepath.Join(root, "serial", "2024-01-01_00-00-00.json")
	if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := ValidateBackupPath(p, root); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
}

func TestValidateBackupPathRejectsOutsideRoot(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	if err := ValidateBackupPath(filepath.Join(other, "x.json"), root); err == nil {
		t.Fatal("expected outside root error")
	}
	if err := ValidateBackupPath(filepath.Join(root, "..", "x.json"), root); err == nil {
		t.Fatal("expected traversal to be rejected")
	}
}

func TestValidateBackupPathRejectsSymlinkEscape(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()

	link := filepath.Join(root, "link")
	if err := os.Symlink(outside, link); err != nil {
		t.Fatal(err)
	}

	if err := ValidateBackupPath(link, root); err == nil {
		t.Fatal("expected symlink escape error")
	}
}

func TestValidateBackupFile(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "b.json")
	if err := os.WriteFile(good, []byte("{}"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := ValidateBackupFile(good); err != nil {
		t.Fatalf("expected regular json file to pass: %v", err)
	}
	for _, bad := range []string{"", filepath.Join(dir, "absent.json"), filepath.Join(dir, "b.txt"), dir + ".json"} {
		if err := ValidateBackupFile(bad); err == nil {
			t.Fatalf("expected %q to be rejected", bad)
		}
	}
}

func TestWithin(t *testing.T) {
	root := t.TempDir()
	if !Within(filepath.Join(root, "x", "y.json"), root) {
		t.Fatalf("expected nested path to be within root")
	}
	if Within(filepath.Join(root, "..", "y.json"), root) {
		t.Fatalf("expected parent path to be outside root")
	}
}
