// Package bridge runs shell commands on devices through adb and classifies
// what comes back.
package bridge

import (
	"bufio"
	"context"
	"strings"
	"time"

	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
)

const DefaultTimeout = 30 * time.Second

// Transport issues one command against one device. Implementations keep no
// state between calls.
type Transport interface {
	Shell(ctx context.Context, serial, command string) (Result, error)
	Devices(ctx context.Context) ([]Entry, error)
	Reboot(ctx context.Context, serial string) error
}

type Result struct {
	Stdout string
	Stderr string
	OK     bool
}

// ErrorText is the text a failed call should be judged by. adb prints some
// errors on stdout, so a non-empty stdout wins.
func (r Result) ErrorText() string {
	if !r.OK && strings.TrimSpace(r.Stdout) != "" {
		return r.Stdout
	}
	return r.Stderr
}

// Entry is one line of `adb devices`.
type Entry struct {
	Serial string `json:"serial"`
	Status string `json:"status"`
}

const (
	StatusDevice       = "device"
	StatusUnauthorized = "unauthorized"
	StatusOffline      = "offline"
)

// Every string used to recognise bridge failures lives here.
var (
	failurePrefixes = []string{
		"error:",
		"Error:",
		"adb:",
		"* daemon",
		"Failure",
		"Exception occurred",
	}
	failureContains = []string{
		"not found",
		"unauthorized",
		"offline",
	}
	noDeviceMarkers = []string{
		"no devices/emulators found",
		"adb: no devices",
		"device not found",
		"' not found",
	}
	unauthorizedMarkers = []string{
		"device unauthorized",
		"unauthorized",
	}
	notInstalledMarkers = []string{
		"[not installed for",
	}
)

// IsNotInstalled reports a per-user "already gone" answer, which callers
// treat as the desired state for that user.
func IsNotInstalled(text string) bool {
	for _, m := range notInstalledMarkers {
		if strings.Contains(text, m) {
			return true
		}
	}
	return false
}

// Classify decides whether a finished call succeeded.
func Classify(exitCode int, stdout, stderr string) Result {
	r := Result{Stdout: stdout, Stderr: stderr}
	r.OK = exitCode == 0 && strings.TrimSpace(stderr) == "" && !hasFailureMarker(stdout)
	return r
}

func hasFailureMarker(stdout string) bool {
	first := firstLine(stdout)
	if first == "" {
		return false
	}
	for _, p := range failurePrefixes {
		if strings.HasPrefix(first, p) {
			return true
		}
	}
	lower := strings.ToLower(first)
	if strings.HasPrefix(lower, "adb") || strings.HasPrefix(lower, "error") {
		for _, c := range failureContains {
			if strings.Contains(lower, c) {
				return true
			}
		}
	}
	return false
}

// failureError converts a failed result into the error kind it represents.
func failureError(r Result) error {
	text := strings.ToLower(r.ErrorText())
	for _, m := range noDeviceMarkers {
		if strings.Contains(text, m) {
			return &model.Error{Kind: model.KindNoDevice, Stdout: r.Stdout, Stderr: r.Stderr}
		}
	}
	for _, m := range unauthorizedMarkers {
		if strings.Contains(text, m) {
			return &model.Error{Kind: model.KindUnauthorized, Stdout: r.Stdout, Stderr: r.Stderr}
		}
	}
	return &model.Error{Kind: model.KindCommandFailed, Stdout: r.Stdout, Stderr: r.Stderr}
}

func timeoutError(command string, r Result, err error) error {
	return &model.Error{Kind: model.KindTimeout, Detail: command, Stdout: r.Stdout, Stderr: r.Stderr, Err: err}
}

// ParseDevices reads `adb devices` output. Header, blank and daemon lines are dropped.
func ParseDevices(out string) []Entry {
	var entries []Entry
	s := bufio.NewScanner(strings.NewReader(out))
	for s.Scan() {
		line := strings.TrimSpace(s.Text())
		if line == "" || strings.HasPrefix(line, "List of devices") || strings.HasPrefix(line, "*") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		entries = append(entries, Entry{Serial: fields[0], Status: fields[1]})
	}
	return entries
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSpace(s)
}
