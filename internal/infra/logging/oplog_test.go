package logging

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
)

func TestOperationLoggerWritesJSONL(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uad")

	logger, err := NewOperationLogger(context.Background(), dir, false)
	if err != nil {
		t.Fatal(err)
	}

	for _, result := range []string{"success", "not-installed"} {
		err = logger.Log(context.Background(), model.OperationLogEntry{
			PlanID:  "p1",
			Command: "apply",
			Action:  "uninstall",
			Device:  "S1",
			Package: "com.foo",
			Shell:   "pm uninstall --user 0 com.foo",
			Result:  result,
		})
		if err != nil {
			t.Fatal(err)
		}
	}

	if err := Close(logger); err != nil {
		t.Fatal(err)
	}
	b, err := os.ReadFile(filepath.Join(dir, OperationLogName))
	if err != nil {
		t.Fatal(err)
	}
	lines := strings.Split(strings.TrimSpace(string(b)), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected 2 lines, got %d", len(lines))
	}
	var entry model.OperationLogEntry
	if err := json.Unmarshal([]byte(lines[1]), &entry); err != nil {
		t.Fatal(err)
	}
	if entry.Result != "not-installed" || entry.Timestamp.IsZero() {
		t.Fatalf("unexpected entry: %+v", entry)
	}
}

func TestJSONLLoggerKeepsShellText(t *testing.T) {
	var buf strings.Builder
	logger := NewJSONLLogger(&buf)
	if err := logger.Log(context.Background(), model.OperationLogEntry{Shell: "pm list packages && echo ok > /dev/null"}); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"pm list packages && echo ok > /dev/null"`) {
		t.Fatalf("shell text was escaped: %s", buf.String())
	}
	if err := Close(logger); err != nil {
		t.Fatalf("close on non-file writer: %v", err)
	}
}

func TestOperationLoggerDisabled(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "uad")
	logger, err := NewOperationLogger(context.Background(), dir, true)
	if err != nil {
		t.Fatal(err)
	}
	if err := logger.Log(context.Background(), model.OperationLogEntry{}); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Fatalf("expected no log directory, got %v", err)
	}
}

func TestDiagnosticLoggerWritesDailyFile(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)

	log, err := NewDiagnosticLogger(dir, true, now)
	if err != nil {
		t.Fatal(err)
	}
	log.Debug("probe")
	_ = log.Sync()

	b, err := os.ReadFile(filepath.Join(dir, "uad_20240309.log"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(b), `"msg":"probe"`) {
		t.Fatalf("expected debug record, got %s", b)
	}
}
