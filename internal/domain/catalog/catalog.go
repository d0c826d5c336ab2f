package catalog

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
)

// Catalog is read-only after Load and safe to share between goroutines.
type Catalog struct {
	entries map[string]model.CatalogEntry
}

type record struct {
	ID           string          `json:"id" validate:"required"`
	List         string          `json:"list" validate:"required,oneof=aosp carrier google misc oem"`
	Removal      string          `json:"removal" validate:"required,oneof=Recommended Advanced Expert Unsafe Unlisted"`
	Description  json.RawMessage `json:"description"`
	Dependencies json.RawMessage `json:"dependencies"`
	NeededBy     json.RawMessage `json:"neededBy"`
	Labels       json.RawMessage `json:"labels"`
}

var validate = validator.New()

func Load(path string, log *zap.Logger) (*Catalog, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &model.Error{Kind: model.KindCatalogParse, Detail: path, Err: err}
	}
	defer f.Close()
	return Parse(f, log)
}

func Parse(r io.Reader, log *zap.Logger) (*Catalog, error) {
	if log == nil {
		log = zap.NewNop()
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, &model.Error{Kind: model.KindCatalogParse, Err: err}
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, &model.Error{Kind: model.KindCatalogParse, Detail: "expected a JSON array", Err: err}
	}

	c := &Catalog{entries: make(map[string]model.CatalogEntry, len(raw))}
	for i, item := range raw {
		var rec record
		dec := json.NewDecoder(bytes.NewReader(item))
		if err := dec.Decode(&rec); err != nil {
			return nil, &model.Error{Kind: model.KindCatalogParse, Detail: fmt.Sprintf("element %d", i), Err: err}
		}
		rec.ID = strings.TrimSpace(rec.ID)
		if err := validate.Struct(rec); err != nil {
			return nil, &model.Error{Kind: model.KindCatalogParse, Detail: fmt.Sprintf("element %d (%s)", i, rec.ID), Err: err}
		}

		entry := model.CatalogEntry{
			ID:           rec.ID,
			List:         model.ListKind(rec.List),
			Removal:      model.Removal(rec.Removal),
			Description:  looseText(rec.Description),
			Dependencies: looseText(rec.Dependencies),
			NeededBy:     looseText(rec.NeededBy),
			Labels:       looseList(rec.Labels),
		}
		if _, dup := c.entries[entry.ID]; dup {
			log.Warn("duplicate catalog entry, keeping the last one", zap.String("id", entry.ID), zap.Int("index", i))
		}
		c.entries[entry.ID] = entry
	}
	log.Debug("catalog loaded", zap.Int("entries", len(c.entries)))
	return c, nil
}

// Lookup never fails: unknown packages get a synthetic Unlisted entry.
func (c *Catalog) Lookup(id string) model.CatalogEntry {
	if c != nil {
		if e, ok := c.entries[id]; ok {
			return e
		}
	}
	return model.UnlistedEntry(id)
}

func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.entries)
}

func looseText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	if list := looseList(raw); len(list) > 0 {
		return strings.Join(list, ", ")
	}
	return ""
}

func looseList(raw json.RawMessage) []string {
	if len(raw) == 0 {
		return nil
	}
	var items []any
	if err := json.Unmarshal(raw, &items); err != nil {
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && strings.TrimSpace(s) != "" {
			return []string{strings.TrimSpace(s)}
		}
		return nil
	}
	out := make([]string, 0, len(items))
	for _, it := range items {
		if s, ok := it.(string); ok && strings.TrimSpace(s) != "" {
			out = append(out, strings.TrimSpace(s))
		}
	}
	if len(out) == 0 {
		return nil
	}
	return out
}
