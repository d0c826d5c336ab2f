package devices

import (
	"context"
	"time"

	"github.com/0x192/universal-android-debloater-sub000/internal/app/common"
	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
)

type Service struct{}

func NewService() Service { return Service{} }

func (Service) Run(ctx context.Context, app *common.AppContext) (model.CommandResult, error) {
	start := time.Now()
	devices, err := app.Prober.ListDevices(ctx)
	if err != nil {
		return model.CommandResult{}, err
	}

	ready := 0
	for _, d := range devices {
		if d.Reachable() {
			ready++
		}
	}

	return model.CommandResult{
		SchemaVersion: "1.0",
		Command:       "devices",
		Timestamp:     time.Now().UTC(),
		DurationMS:    time.Since(start).Milliseconds(),
		Summary: model.Summary{
			ItemsTotal:    len(devices),
			ItemsSelected: ready,
		},
		Devices: devices,
	}, nil
}
