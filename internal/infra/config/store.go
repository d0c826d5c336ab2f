package config

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/filesystem"
)

const (
	AppDir   = "uad"
	FileName = "config.toml"

	BridgeModeExec   = "exec"
	BridgeModeServer = "server"

	DefaultBackupKeep = 10
)

type General struct {
	Theme         string `toml:"theme"`
	ExpertMode    bool   `toml:"expert_mode"`
	DisableMode   bool   `toml:"disable_mode"`
	MultiUserMode bool   `toml:"multi_user_mode"`
}

// Bridge selects how adb is reached. Host and Port only apply to the server
// mode.
type Bridge struct {
	Path    string   `toml:"path"`
	Mode    string   `toml:"mode"`
	Timeout Duration `toml:"timeout"`
	Host    string   `toml:"host"`
	Port    int      `toml:"port"`
}

type Backup struct {
	Keep int `toml:"keep"`
}

// DeviceOverride replaces the general toggles for one serial when set.
type DeviceOverride struct {
	DisableMode   *bool `toml:"disable_mode,omitempty"`
	MultiUserMode *bool `toml:"multi_user_mode,omitempty"`
}

type Config struct {
	General General                   `toml:"general"`
	Bridge  Bridge                    `toml:"bridge"`
	Backup  Backup                    `toml:"backup"`
	Devices map[string]DeviceOverride `toml:"devices,omitempty"`
}

// Duration is a time.Duration stored as a Go duration string ("30s").
type Duration time.Duration

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(time.Duration(d).String()), nil
}

func (d *Duration) UnmarshalText(b []byte) error {
	v, err := time.ParseDuration(string(b))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", b, err)
	}
	*d = Duration(v)
	return nil
}

func Default() Config {
	return Config{
		General: General{Theme: "Lupin"},
		Bridge:  Bridge{Path: "adb", Mode: BridgeModeExec, Timeout: Duration(30 * time.Second), Host: "localhost", Port: 5037},
		Backup:  Backup{Keep: DefaultBackupKeep},
	}
}

// Settings merges the general toggles with the override for serial.
func (c Config) Settings(serial string) model.Settings {
	s := model.Settings{
		Theme:         c.General.Theme,
		ExpertMode:    c.General.ExpertMode,
		DisableMode:   c.General.DisableMode,
		MultiUserMode: c.General.MultiUserMode,
	}
	if o, ok := c.Devices[serial]; ok {
		if o.DisableMode != nil {
			s.DisableMode = *o.DisableMode
		}
		if o.MultiUserMode != nil {
			s.MultiUserMode = *o.MultiUserMode
		}
	}
	return s
}

func (c Config) validate() error {
	switch c.Bridge.Mode {
	case BridgeModeExec, BridgeModeServer:
	default:
		return fmt.Errorf("bridge.mode must be %q or %q, got %q", BridgeModeExec, BridgeModeServer, c.Bridge.Mode)
	}
	if c.Bridge.Port < 0 || c.Bridge.Port > 65535 {
		return fmt.Errorf("bridge.port out of range: %d", c.Bridge.Port)
	}
	if c.Bridge.Timeout <= 0 {
		return errors.New("bridge.timeout must be positive")
	}
	if c.Backup.Keep < 0 {
		return errors.New("backup.keep must not be negative")
	}
	return nil
}

type Store struct {
	path string
}

// NewStore uses {config_dir}/uad/config.toml.
func NewStore() (Store, error) {
	dir, err := ConfigDir()
	if err != nil {
		return Store{}, err
	}
	return Store{path: filepath.Join(dir, FileName)}, nil
}

func NewStoreAt(path string) Store { return Store{path: path} }

func (s Store) Path() string { return s.path }

// Load reads the file over the defaults. A missing file yields the defaults.
func (s Store) Load(ctx context.Context) (Config, error) {
	_ = ctx
	cfg := Default()

	b, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := toml.NewDecoder(bytes.NewReader(b)).DisallowUnknownFields().Decode(&cfg); err != nil {
		return Default(), fmt.Errorf("parse %s: %w", s.path, err)
	}
	if err := cfg.validate(); err != nil {
		return Default(), fmt.Errorf("%s: %w", s.path, err)
	}
	return cfg, nil
}

func (s Store) Save(ctx context.Context, cfg Config) error {
	_ = ctx
	if err := cfg.validate(); err != nil {
		return err
	}
	b, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}
	if err := filesystem.WriteFileAtomic(s.path, b, 0o644); err != nil {
		return fmt.Errorf("save %s: %w", s.path, err)
	}
	return nil
}
