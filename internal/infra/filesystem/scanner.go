package filesystem

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

type File struct {
	Path    string
	Size    int64
	ModTime time.Time
}

// Files lists the regular files directly inside dir whose extension matches
// ext (case-insensitive, empty matches all). Hidden files and the temp files
// WriteFileAtomic leaves behind are skipped. A missing dir yields no files.
// The result is sorted by name.
func Files(dir, ext string) ([]File, error) {
	entries, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	out := make([]File, 0, len(entries))
	for _, e := range entries {
		name := e.Name()
		if !e.Type().IsRegular() || strings.HasPrefix(name, ".") {
			continue
		}
		if ext != "" && !strings.EqualFold(filepath.Ext(name), ext) {
			continue
		}
		info, err := e.Info()
		if err != nil {
			// removed between ReadDir and Info
			continue
		}
		out = append(out, File{Path: filepath.Join(dir, name), Size: info.Size(), ModTime: info.ModTime().UTC()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}
