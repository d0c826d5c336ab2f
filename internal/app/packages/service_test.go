package packages

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/0x192/universal-android-debloater-sub000/internal/app/apptest"
	"github.com/0x192/universal-android-debloater-sub000/internal/app/common"
	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
)

func TestRunFiltersSelectedUser(t *testing.T) {
	tests := []struct {
		name   string
		opts   common.GlobalOptions
		filter model.Filter
		total  int
		want   []string
	}{
		{name: "owner all", filter: model.Filter{State: model.StateAll}, total: 4, want: []string{"com.a", "com.b", "com.c", "com.u"}},
		{name: "owner disabled", filter: model.Filter{State: model.StateDisabled}, total: 4, want: []string{"com.b"}},
		{name: "owner unsafe", filter: model.Filter{Removal: model.RemovalUnsafe}, total: 4, want: []string{"com.u"}},
		{name: "work profile", opts: common.GlobalOptions{User: 10, UserSet: true}, total: 1, want: []string{"com.a"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			app, _ := apptest.New(t, tc.opts, "S1")
			result, err := NewService().Run(context.Background(), app, Options{Filter: tc.filter})
			if err != nil {
				t.Fatal(err)
			}
			if result.Summary.ItemsTotal != tc.total {
				t.Fatalf("expected %d rows, got %d", tc.total, result.Summary.ItemsTotal)
			}
			var got []string
			for _, p := range result.Packages {
				got = append(got, p.Name)
			}
			if len(got) != len(tc.want) {
				t.Fatalf("expected %v, got %v", tc.want, got)
			}
			for i := range got {
				if got[i] != tc.want[i] {
					t.Fatalf("expected %v, got %v", tc.want, got)
				}
			}
		})
	}
}

func TestRunUnknownUser(t *testing.T) {
	app, _ := apptest.New(t, common.GlobalOptions{User: 99, UserSet: true}, "S1")
	if _, err := NewService().Run(context.Background(), app, Options{}); err == nil {
		t.Fatalf("expected error for unknown user")
	}
}

func TestRunExportsListedNames(t *testing.T) {
	app, _ := apptest.New(t, common.GlobalOptions{}, "S1")
	path := filepath.Join(t.TempDir(), "picked.txt")
	result, err := NewService().Run(context.Background(), app, Options{
		Filter: model.Filter{State: model.StateEnabled},
		Export: path,
	})
	if err != nil {
		t.Fatal(err)
	}
	if result.Path != path {
		t.Fatalf("expected path %s, got %q", path, result.Path)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if got := string(b); got != "com.a\ncom.u\n" {
		t.Fatalf("unexpected export %q", got)
	}
}
