package filesystem

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
)

const (
	retryBase    = time.Millisecond
	retryRetries = 21
)

var (
	osRename = os.Rename
	osRemove = os.Remove
	sleep    = time.Sleep
)

// Rename retries on permission errors, which antivirus scanners and indexers
// cause on Windows while they hold the file open. Delays follow the Fibonacci
// sequence from 1ms, about 28s over all retries.
func Rename(from, to string) error {
	return retry(func() error { return osRename(from, to) })
}

// Remove retries like Rename. A missing file is not an error.
func Remove(path string) error {
	err := retry(func() error { return osRemove(path) })
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// WriteFileAtomic writes data to a temporary file next to path and renames it
// into place.
func WriteFileAtomic(path string, data []byte, perm os.FileMode) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	name := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(name)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(name)
		return err
	}
	if err := os.Chmod(name, perm); err != nil {
		os.Remove(name)
		return err
	}
	if err := Rename(name, path); err != nil {
		os.Remove(name)
		return err
	}
	return nil
}

func retry(op func() error) error {
	prev, delay := time.Duration(0), retryBase
	var err error
	for attempt := 0; attempt <= retryRetries; attempt++ {
		err = op()
		if err == nil || !errors.Is(err, fs.ErrPermission) {
			return err
		}
		if attempt == retryRetries {
			break
		}
		sleep(delay)
		prev, delay = delay, prev+delay
	}
	return &model.Error{Kind: model.KindPermissionDenied, Err: err}
}
