package safety

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
)

// ValidatePackageName rejects anything that is not a plain Android package
// name. Planned commands are interpolated into a device shell line, so this
// is the only gate between catalog or backup input and the shell.
func ValidatePackageName(name string) error {
	if strings.TrimSpace(name) == "" {
		return errors.New("PACKAGE_INVALID: empty name")
	}
	if len(name) > 255 {
		return errors.New("PACKAGE_INVALID: name too long")
	}
	segments := strings.Split(name, ".")
	for _, seg := range segments {
		if seg == "" {
			return fmt.Errorf("PACKAGE_INVALID: empty segment in %q", name)
		}
		for i, r := range seg {
			switch {
			case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			case r == '_':
			case r >= '0' && r <= '9':
				if i == 0 && len(segments) > 1 {
					return fmt.Errorf("PACKAGE_INVALID: segment starts with digit in %q", name)
				}
			default:
				return fmt.Errorf("PACKAGE_INVALID: character %q in %q", r, name)
			}
		}
	}
	return nil
}

// CheckRemoval applies the risk policy: Unsafe packages are only touched in expert mode.
func CheckRemoval(entry model.CatalogEntry, settings model.Settings) error {
	if entry.Removal == model.RemovalUnsafe && !settings.ExpertMode {
		return fmt.Errorf("REMOVAL_BLOCKED: %s is Unsafe and expert mode is off", entry.ID)
	}
	return nil
}

func checkPathText(path string) error {
	if strings.TrimSpace(path) == "" {
		return errors.New("PATH_INVALID: empty path")
	}
	if strings.ContainsRune(path, rune(0)) {
		return errors.New("PATH_INVALID: null byte")
	}
	for _, r := range path {
		if r < 32 {
			return errors.New("PATH_INVALID: control character")
		}
	}
	return nil
}

// ValidateBackupFile checks that path names an existing regular .json file.
func ValidateBackupFile(path string) error {
	if err := checkPathText(path); err != nil {
		return err
	}
	if !strings.EqualFold(filepath.Ext(path), ".json") {
		return fmt.Errorf("PATH_INVALID: %s is not a .json file", path)
	}
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("PATH_INVALID: %w", err)
	}
	if !info.Mode().IsRegular() {
		return fmt.Errorf("PATH_INVALID: %s is not a regular file", path)
	}
	return nil
}

// Within reports whether path lies under root once both are made absolute.
func Within(path, root string) bool {
	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return false
	}
	rootAbs, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return false
	}
	return within(abs, rootAbs)
}

// ValidateBackupPath makes sure a backup path resolves inside root.
func ValidateBackupPath(path, root string) error {
	if err := checkPathText(path); err != nil {
		return err
	}

	abs, err := filepath.Abs(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("PATH_INVALID: %w", err)
	}
	rootAbs, err := filepath.Abs(filepath.Clean(root))
	if err != nil {
		return fmt.Errorf("PATH_INVALID: %w", err)
	}
	if !within(abs, rootAbs) {
		return fmt.Errorf("PATH_BLOCKED: outside backup root %s", abs)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	if err == nil {
		resolvedRoot, rootErr := filepath.EvalSymlinks(rootAbs)
		if rootErr != nil {
			resolvedRoot = rootAbs
		}
		if !within(resolved, resolvedRoot) {
			return fmt.Errorf("SYMLINK_ESCAPE: %s", resolved)
		}
	}
	return nil
}

func within(path, root string) bool {
	return path == root || strings.HasPrefix(path, root+string(filepath.Separator))
}
