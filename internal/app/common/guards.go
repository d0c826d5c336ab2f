package common

import (
	"context"
	"fmt"
	"strings"

	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
)

func RequireConfirmationOrDryRun(opts GlobalOptions, action string) error {
	if opts.DryRun || opts.Yes {
		return nil
	}
	return fmt.Errorf("confirmation required for %s: use --yes or --dry-run", action)
}

// ResolveDevice picks the serial to work on: --device when given, otherwise
// the only connected device.
func ResolveDevice(ctx context.Context, app *AppContext) (model.Device, error) {
	if app.Options.Device != "" {
		d := app.Prober.Probe(ctx, app.Options.Device)
		if !d.Reachable() {
			return d, &model.Error{Kind: model.KindNoDevice, Detail: app.Options.Device}
		}
		return d, nil
	}

	devices, err := app.Prober.ListDevices(ctx)
	if err != nil {
		return model.Device{}, err
	}
	var ready []model.Device
	for _, d := range devices {
		if d.Reachable() {
			ready = append(ready, d)
		}
	}
	switch len(ready) {
	case 0:
		return model.Device{}, model.ErrNoDevice
	case 1:
		return ready[0], nil
	}
	serials := make([]string, 0, len(ready))
	for _, d := range ready {
		serials = append(serials, d.Serial)
	}
	return model.Device{}, fmt.Errorf("several devices connected (%s): use --device", strings.Join(serials, ", "))
}

// ResolveUser returns --user when set, otherwise the first user.
func ResolveUser(app *AppContext, d model.Device) (model.User, error) {
	if !app.Options.UserSet {
		if len(d.Users) == 0 {
			return model.User{}, model.NewUserMissing(0)
		}
		return d.Users[0], nil
	}
	u, ok := d.UserByID(app.Options.User)
	if !ok {
		return model.User{}, model.NewUserMissing(app.Options.User)
	}
	return u, nil
}
