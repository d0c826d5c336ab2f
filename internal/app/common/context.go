package common

import (
	"go.uber.org/zap"

	"github.com/0x192/universal-android-debloater-sub000/internal/domain/catalog"
	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/bridge"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/config"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/device"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/logging"
)

type GlobalOptions struct {
	DryRun  bool
	Debug   bool
	Yes     bool
	JSON    bool
	NoOpLog bool

	Device  string
	User    uint
	UserSet bool
	Catalog string

	Expert      bool
	DisableMode bool
	MultiUser   bool
}

type AppContext struct {
	Options   GlobalOptions
	Config    config.Config
	Catalog   *catalog.Catalog
	Transport bridge.Transport
	Prober    *device.Prober
	Logger    logging.Logger
	Diag      *zap.Logger
	BackupDir string

	// ConfigPath is the config.toml that Config was loaded from.
	ConfigPath string
}

// Settings merges the stored settings for serial with the command line
// switches. A switch can only turn a mode on.
func (a *AppContext) Settings(serial string) model.Settings {
	s := a.Config.Settings(serial)
	s.ExpertMode = s.ExpertMode || a.Options.Expert
	s.DisableMode = s.DisableMode || a.Options.DisableMode
	s.MultiUserMode = s.MultiUserMode || a.Options.MultiUser
	return s
}
