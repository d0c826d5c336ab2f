package cmd

import (
	"testing"
	"time"

	"github.com/0x192/universal-android-debloater-sub000/internal/infra/bridge"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/config"
)

func TestIsDumbTerm(t *testing.T) {
	if !isDumbTerm("dumb") {
		t.Fatalf("expected dumb terminal detection")
	}
	if !isDumbTerm("") {
		t.Fatalf("expected empty terminal to be non-interactive")
	}
	if !isDumbTerm(" DUMB ") {
		t.Fatalf("expected normalized dumb terminal detection")
	}
	if isDumbTerm("xterm-256color") {
		t.Fatalf("unexpected dumb terminal detection")
	}
}

func TestShouldUseInteractive(t *testing.T) {
	tests := []struct {
		name     string
		stdin    bool
		stdout   bool
		term     string
		expected bool
	}{
		{name: "interactive tty", stdin: true, stdout: true, term: "xterm-256color", expected: true},
		{name: "stdin piped", stdin: false, stdout: true, term: "xterm-256color", expected: false},
		{name: "stdout redirected", stdin: true, stdout: false, term: "xterm-256color", expected: false},
		{name: "dumb term", stdin: true, stdout: true, term: "dumb", expected: false},
		{name: "empty term", stdin: true, stdout: true, term: "", expected: false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := shouldUseInteractive(tc.stdin, tc.stdout, tc.term); got != tc.expected {
				t.Fatalf("unexpected result: got %v want %v", got, tc.expected)
			}
		})
	}
}

func TestNewTransportDefaultsToExec(t *testing.T) {
	tr, err := newTransport(config.Bridge{Mode: config.BridgeModeExec, Path: "adb", Timeout: config.Duration(time.Second)})
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := tr.(*bridge.ExecTransport); !ok {
		t.Fatalf("expected exec transport, got %T", tr)
	}
}
