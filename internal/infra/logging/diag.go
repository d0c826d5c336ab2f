package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DiagnosticLogName is the daily diagnostic log file name for t.
func DiagnosticLogName(t time.Time) string {
	return fmt.Sprintf("uad_%s.log", t.Format("20060102"))
}

// NewDiagnosticLogger writes JSON records to dir/uad_YYYYMMDD.log. Warnings
// and errors are mirrored to stderr in console form.
func NewDiagnosticLogger(dir string, debug bool, now time.Time) (*zap.Logger, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(dir, DiagnosticLogName(now)), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, err
	}

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}

	fileEnc := zap.NewProductionEncoderConfig()
	fileEnc.EncodeTime = zapcore.ISO8601TimeEncoder
	consoleEnc := zap.NewDevelopmentEncoderConfig()

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewJSONEncoder(fileEnc), zapcore.AddSync(f), level),
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleEnc), zapcore.Lock(os.Stderr), zapcore.WarnLevel),
	)
	return zap.New(core), nil
}
