package logging

import (
	"context"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
)

const OperationLogName = "operations.log"

// Logger records one entry per shell command that touched a package.
type Logger interface {
	Log(ctx context.Context, entry model.OperationLogEntry) error
}

type noopLogger struct{}

func (noopLogger) Log(context.Context, model.OperationLogEntry) error { return nil }

func NewNoopLogger() Logger { return noopLogger{} }

// JSONLLogger writes entries as JSON lines. Safe for concurrent use.
type JSONLLogger struct {
	mu  sync.Mutex
	enc *json.Encoder
	w   io.Writer
}

func NewJSONLLogger(w io.Writer) *JSONLLogger {
	enc := json.NewEncoder(w)
	// shell commands carry '&' and '>' verbatim
	enc.SetEscapeHTML(false)
	return &JSONLLogger{enc: enc, w: w}
}

// NewOperationLogger appends to dir/operations.log, creating dir. When
// disabled nothing touches the disk.
func NewOperationLogger(_ context.Context, dir string, disabled bool) (Logger, error) {
	if disabled {
		return noopLogger{}, nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, OperationLogName), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}
	return NewJSONLLogger(f), nil
}

func (l *JSONLLogger) Log(_ context.Context, entry model.OperationLogEntry) error {
	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now().UTC()
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enc.Encode(entry)
}

// Close closes the underlying writer when it is closable.
func (l *JSONLLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if c, ok := l.w.(io.Closer); ok {
		return c.Close()
	}
	return nil
}

// Close releases l if it holds a file.
func Close(l Logger) error {
	if c, ok := l.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
