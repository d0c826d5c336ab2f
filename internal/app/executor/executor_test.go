package executor

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/bridge/bridgetest"
)

type captureLogger struct {
	entries []model.OperationLogEntry
	err     error
}

func (c *captureLogger) Log(_ context.Context, entry model.OperationLogEntry) error {
	c.entries = append(c.entries, entry)
	return c.err
}

func job(commands ...string) Job {
	return Job{
		PlanID:   "plan-1",
		Command:  "apply",
		Serial:   "S1",
		Package:  model.Package{Name: "X", State: model.StateEnabled},
		Commands: commands,
	}
}

func TestApplyTreatsNotInstalledAsSuccess(t *testing.T) {
	fake := bridgetest.New().Fail("S1", "pm uninstall --user 1 X", "", "Failure [not installed for 1]")
	logs := &captureLogger{}

	state, err := New(fake, logs, nil).Apply(context.Background(), job("pm uninstall --user 0 X", "pm uninstall --user 1 X"))
	require.NoError(t, err)
	assert.Equal(t, model.StateUninstalled, state)
	require.Len(t, logs.entries, 2)
	assert.Equal(t, "success", logs.entries[0].Result)
	assert.Equal(t, "not-installed", logs.entries[1].Result)
	assert.Equal(t, "uninstall", logs.entries[1].Action)
}

func TestApplyStopsAtFirstFailure(t *testing.T) {
	fake := bridgetest.New().Fail("S1", "pm disable-user --user 0 X", "Error: java.lang.SecurityException", "")

	_, err := New(fake, nil, nil).Apply(context.Background(), job(
		"am force-stop --user 0 X",
		"pm disable-user --user 0 X",
		"pm clear --user 0 X",
	))
	require.Error(t, err)
	assert.True(t, errors.Is(err, model.ErrCommandFailed))
	assert.Equal(t, []string{"am force-stop --user 0 X", "pm disable-user --user 0 X"}, fake.Commands("S1"))
}

func TestApplyFoldsOtherErrorsIntoCommandFailed(t *testing.T) {
	fake := bridgetest.New().On("S1", "pm enable X", bridgetest.Response{Err: &model.Error{Kind: model.KindNoDevice}})
	_, err := New(fake, nil, nil).Apply(context.Background(), job("pm enable X"))
	assert.True(t, errors.Is(err, model.ErrCommandFailed))
	assert.True(t, errors.Is(err, model.ErrNoDevice))
}

func TestApplyResultStates(t *testing.T) {
	tests := []struct {
		name     string
		commands []string
		want     model.PackageState
	}{
		{name: "disable triple", commands: []string{"am force-stop X", "pm disable-user X", "pm clear X"}, want: model.StateDisabled},
		{name: "enable", commands: []string{"pm enable --user 0 X"}, want: model.StateEnabled},
		{name: "reinstall", commands: []string{"cmd package install-existing --user 0 X"}, want: model.StateEnabled},
		{name: "empty plan keeps state", commands: nil, want: model.StateEnabled},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			state, err := New(bridgetest.New(), nil, nil).Apply(context.Background(), job(tc.commands...))
			require.NoError(t, err)
			assert.Equal(t, tc.want, state)
		})
	}
}

func TestApplyIgnoresOperationLogFailure(t *testing.T) {
	logs := &captureLogger{err: errors.New("disk full")}
	state, err := New(bridgetest.New(), logs, nil).Apply(context.Background(), job("pm uninstall X"))
	require.NoError(t, err)
	assert.Equal(t, model.StateUninstalled, state)
	assert.Len(t, logs.entries, 1)
}
