package bridge

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	adb "github.com/zach-klippenstein/goadb"

	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
)

// exitMarker is appended to every command so the exit status survives the
// v1 shell protocol, which only returns merged output.
const exitMarker = "uad-exit:"

// ServerTransport talks to a running adb server over its socket instead of
// spawning the binary.
type ServerTransport struct {
	client  *adb.Adb
	timeout time.Duration
}

func NewServerTransport(host string, port int, timeout time.Duration) (*ServerTransport, error) {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	client, err := adb.NewWithConfig(adb.ServerConfig{Host: host, Port: port})
	if err != nil {
		return nil, &model.Error{Kind: model.KindBridgeMissing, Detail: fmt.Sprintf("%s:%d", host, port), Err: err}
	}
	return &ServerTransport{client: client, timeout: timeout}, nil
}

func (t *ServerTransport) Shell(ctx context.Context, serial, command string) (Result, error) {
	device := t.client.Device(adb.DeviceWithSerial(serial))
	out, err := t.await(ctx, command, func() (string, error) {
		return device.RunCommand(command + "; echo " + exitMarker + "$?")
	})
	if err != nil {
		return Result{}, err
	}

	stdout, code := splitExit(out)
	res := Classify(code, stdout, "")
	if !res.OK {
		return res, failureError(res)
	}
	return res, nil
}

func (t *ServerTransport) Devices(ctx context.Context) ([]Entry, error) {
	var entries []Entry
	_, err := t.await(ctx, "devices", func() (string, error) {
		infos, err := t.client.ListDevices()
		if err != nil {
			return "", err
		}
		for _, info := range infos {
			state, stateErr := t.client.Device(adb.DeviceWithSerial(info.Serial)).State()
			if stateErr != nil {
				state = adb.StateInvalid
			}
			entries = append(entries, Entry{Serial: info.Serial, Status: convertState(state)})
		}
		return "", nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (t *ServerTransport) Reboot(ctx context.Context, serial string) error {
	device := t.client.Device(adb.DeviceWithSerial(serial))
	_, err := t.await(ctx, "reboot", func() (string, error) {
		return device.RunCommand("reboot")
	})
	return err
}

// await runs a blocking goadb call under the per-call ceiling. goadb has no
// context support, so an expired call is abandoned rather than interrupted.
func (t *ServerTransport) await(ctx context.Context, label string, call func() (string, error)) (string, error) {
	runCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	type reply struct {
		out string
		err error
	}
	done := make(chan reply, 1)
	go func() {
		out, err := call()
		done <- reply{out: out, err: err}
	}()

	select {
	case <-runCtx.Done():
		return "", timeoutError(label, Result{}, runCtx.Err())
	case r := <-done:
		if r.err != nil {
			return r.out, serverError(r.err)
		}
		return r.out, nil
	}
}

func serverError(err error) error {
	switch {
	case adb.HasErrCode(err, adb.ServerNotAvailable):
		return &model.Error{Kind: model.KindBridgeMissing, Err: err}
	case adb.HasErrCode(err, adb.DeviceNotFound):
		return &model.Error{Kind: model.KindNoDevice, Err: err}
	case strings.Contains(strings.ToLower(err.Error()), "unauthorized"):
		return &model.Error{Kind: model.KindUnauthorized, Err: err}
	}
	return &model.Error{Kind: model.KindCommandFailed, Stderr: err.Error(), Err: err}
}

// splitExit removes the exit trailer. A missing trailer counts as a failure.
func splitExit(out string) (string, int) {
	trimmed := strings.TrimRight(out, "\r\n")
	i := strings.LastIndex(trimmed, exitMarker)
	if i < 0 {
		return out, 1
	}
	code, err := strconv.Atoi(strings.TrimSpace(trimmed[i+len(exitMarker):]))
	if err != nil {
		code = 1
	}
	return strings.TrimRight(trimmed[:i], "\r\n"), code
}

func convertState(state adb.DeviceState) string {
	switch state {
	case adb.StateOnline:
		return StatusDevice
	case adb.StateOffline:
		return StatusOffline
	case adb.StateUnauthorized:
		return StatusUnauthorized
	default:
		return "unknown"
	}
}
