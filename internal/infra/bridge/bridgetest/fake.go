// Package bridgetest provides a scripted bridge.Transport for tests.
package bridgetest

import (
	"context"
	"strings"
	"sync"

	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/bridge"
)

// Response is what the fake answers for one command.
type Response struct {
	Stdout string
	Stderr string
	Err    error
}

// Fake answers commands from a table keyed by serial and command line.
// Unscripted commands succeed with empty output. Every call is recorded.
type Fake struct {
	mu        sync.Mutex
	responses map[string]Response
	entries   []bridge.Entry
	calls     []Call
	reboots   []string
	hook      func(serial, command string)
}

type Call struct {
	Serial  string
	Command string
}

func New() *Fake {
	return &Fake{responses: make(map[string]Response)}
}

func key(serial, command string) string { return serial + "\x00" + command }

// On scripts a response. An empty serial matches every device.
func (f *Fake) On(serial, command string, r Response) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[key(serial, command)] = r
	return f
}

// OK scripts a successful stdout.
func (f *Fake) OK(serial, command, stdout string) *Fake {
	return f.On(serial, command, Response{Stdout: stdout})
}

// Fail scripts a failed command with the given stdout and stderr.
func (f *Fake) Fail(serial, command, stdout, stderr string) *Fake {
	return f.On(serial, command, Response{Stdout: stdout, Stderr: stderr, Err: &model.Error{Kind: model.KindCommandFailed, Stdout: stdout, Stderr: stderr}})
}

func (f *Fake) WithDevices(entries ...bridge.Entry) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.entries = append([]bridge.Entry(nil), entries...)
	return f
}

// OnCall runs before every Shell call, outside the lock.
func (f *Fake) OnCall(hook func(serial, command string)) *Fake {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.hook = hook
	return f
}

func (f *Fake) Shell(ctx context.Context, serial, command string) (bridge.Result, error) {
	f.mu.Lock()
	f.calls = append(f.calls, Call{Serial: serial, Command: command})
	r, ok := f.responses[key(serial, command)]
	if !ok {
		r, ok = f.responses[key("", command)]
	}
	hook := f.hook
	f.mu.Unlock()

	if hook != nil {
		hook(serial, command)
	}
	if err := ctx.Err(); err != nil {
		return bridge.Result{}, err
	}
	if !ok {
		return bridge.Result{OK: true}, nil
	}
	res := bridge.Result{Stdout: r.Stdout, Stderr: r.Stderr, OK: r.Err == nil}
	return res, r.Err
}

func (f *Fake) Devices(context.Context) ([]bridge.Entry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]bridge.Entry(nil), f.entries...), nil
}

func (f *Fake) Reboot(_ context.Context, serial string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reboots = append(f.reboots, serial)
	return nil
}

func (f *Fake) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]Call(nil), f.calls...)
}

// Commands returns the command lines sent to serial, in order.
func (f *Fake) Commands(serial string) []string {
	var out []string
	for _, c := range f.Calls() {
		if c.Serial == serial {
			out = append(out, c.Command)
		}
	}
	return out
}

// Mutations returns the commands that change package state.
func (f *Fake) Mutations(serial string) []string {
	var out []string
	for _, c := range f.Commands(serial) {
		if strings.HasPrefix(c, "pm list") || strings.HasPrefix(c, "getprop") {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (f *Fake) Reboots() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.reboots...)
}
