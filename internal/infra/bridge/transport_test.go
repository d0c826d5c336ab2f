package bridge

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name   string
		code   int
		stdout string
		stderr string
		ok     bool
	}{
		{name: "success", code: 0, stdout: "Success\n", ok: true},
		{name: "empty output", code: 0, ok: true},
		{name: "non-zero exit", code: 1, stdout: "", ok: false},
		{name: "stderr present", code: 0, stderr: "warning", ok: false},
		{name: "error prefix on stdout", code: 0, stdout: "error: closed", ok: false},
		{name: "pm failure on stdout", code: 0, stdout: "Failure [not installed for 0]", ok: false},
		{name: "daemon banner", code: 0, stdout: "* daemon not running; starting now", ok: false},
		{name: "adb device not found", code: 0, stdout: "adb: device 'x' not found", ok: false},
		{name: "listing containing offline word", code: 0, stdout: "package:com.offline.maps", ok: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.ok, Classify(tc.code, tc.stdout, tc.stderr).OK)
		})
	}
}

func TestResultErrorTextPrefersStdout(t *testing.T) {
	r := Classify(1, "Failure [DELETE_FAILED_INTERNAL_ERROR]", "ignored")
	assert.Equal(t, "Failure [DELETE_FAILED_INTERNAL_ERROR]", r.ErrorText())

	r = Classify(1, "", "Failure [not installed for 1]")
	assert.Equal(t, "Failure [not installed for 1]", r.ErrorText())
}

func TestFailureErrorKinds(t *testing.T) {
	tests := []struct {
		res  Result
		want error
	}{
		{res: Result{Stderr: "error: no devices/emulators found"}, want: model.ErrNoDevice},
		{res: Result{Stderr: "error: device 'abc' not found"}, want: model.ErrNoDevice},
		{res: Result{Stderr: "error: device unauthorized.\nThis adb server's $ADB_VENDOR_KEYS is not set"}, want: model.ErrUnauthorized},
		{res: Result{Stdout: "Failure [DELETE_FAILED_USER_RESTRICTED]"}, want: model.ErrCommandFailed},
	}
	for _, tc := range tests {
		err := failureError(tc.res)
		assert.True(t, errors.Is(err, tc.want), "%v should be %v", err, tc.want)
	}
}

func TestTimeoutIsCommandFailed(t *testing.T) {
	err := timeoutError("pm list users", Result{}, nil)
	assert.True(t, errors.Is(err, model.ErrTimeout))
	assert.True(t, errors.Is(err, model.ErrCommandFailed))
	assert.False(t, errors.Is(model.ErrCommandFailed, model.ErrTimeout))
}

func TestIsNotInstalled(t *testing.T) {
	assert.True(t, IsNotInstalled("Failure [not installed for 10]"))
	assert.False(t, IsNotInstalled("Failure [DELETE_FAILED_INTERNAL_ERROR]"))
}

func TestParseDevices(t *testing.T) {
	out := "* daemon not running; starting now at tcp:5037\n* daemon started successfully\nList of devices attached\nR58M12345\tdevice\nemulator-5554\toffline\n0123456789ABCDEF\tunauthorized\n\n"
	assert.Equal(t, []Entry{
		{Serial: "R58M12345", Status: StatusDevice},
		{Serial: "emulator-5554", Status: StatusOffline},
		{Serial: "0123456789ABCDEF", Status: StatusUnauthorized},
	}, ParseDevices(out))
	assert.Empty(t, ParseDevices("List of devices attached\n\n"))
}

func TestSplitExit(t *testing.T) {
	out, code := splitExit("Success\nuad-exit:0\n")
	assert.Equal(t, "Success", out)
	assert.Equal(t, 0, code)

	out, code = splitExit("Failure [not installed for 0]\nuad-exit:1\n")
	assert.Equal(t, "Failure [not installed for 0]", out)
	assert.Equal(t, 1, code)

	_, code = splitExit("truncated")
	assert.Equal(t, 1, code)
}
