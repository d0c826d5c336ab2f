package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/0x192/universal-android-debloater-sub000/internal/app/common"
	"github.com/0x192/universal-android-debloater-sub000/internal/domain/catalog"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/bridge"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/config"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/device"
	"github.com/0x192/universal-android-debloater-sub000/internal/infra/logging"
)

// DefaultCatalogName is looked up in the config directory when --catalog is
// not given.
const DefaultCatalogName = "uad_lists.json"

var opts common.GlobalOptions

var rootCmd = &cobra.Command{
	Use:          "uad",
	Short:        "Universal Android Debloater",
	Long:         "uad lists, disables, uninstalls and restores system packages on Android devices over adb.",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		if shouldUseInteractive(isTerminal(os.Stdin), isTerminal(os.Stdout), os.Getenv("TERM")) {
			return runInteractive(cmd)
		}
		return cmd.Help()
	},
}

func Execute() error {
	var app *common.AppContext

	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		opts.UserSet = cmd.Flags().Changed("user")
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}
		appCtx, err := buildAppContext(ctx)
		if err != nil {
			return err
		}
		app = appCtx
		cmd.SetContext(common.WithApp(ctx, appCtx))
		return nil
	}
	rootCmd.PersistentPostRun = func(cmd *cobra.Command, args []string) {
		if app == nil {
			return
		}
		if pool, ok := app.Transport.(*bridge.Pool); ok {
			pool.Close()
		}
		if err := logging.Close(app.Logger); err != nil {
			app.Diag.Warn("operation log close failed", zap.Error(err))
		}
		_ = app.Diag.Sync()
	}

	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.BoolVar(&opts.DryRun, "dry-run", false, "Preview actions without touching the device")
	pf.BoolVar(&opts.Debug, "debug", false, "Write debug records to the diagnostic log")
	pf.BoolVar(&opts.Yes, "yes", false, "Auto-confirm actions in non-interactive mode")
	pf.BoolVar(&opts.JSON, "json", false, "Output as JSON")
	pf.BoolVar(&opts.NoOpLog, "no-oplog", false, "Disable operation log")
	pf.StringVarP(&opts.Device, "device", "s", "", "Serial of the device to use (default: the only connected one)")
	pf.UintVarP(&opts.User, "user", "u", 0, "Android user id to work on (default: the first user)")
	pf.StringVar(&opts.Catalog, "catalog", "", "Path to the package catalog JSON")
	pf.BoolVar(&opts.Expert, "expert", false, "Allow touching packages marked Unsafe")
	pf.BoolVar(&opts.DisableMode, "disable-mode", false, "Disable packages instead of uninstalling them")
	pf.BoolVar(&opts.MultiUser, "multi-user", false, "Apply changes to every unprotected user")

	rootCmd.AddCommand(devicesCmd)
	rootCmd.AddCommand(packagesCmd)
	rootCmd.AddCommand(applyCmd)
	rootCmd.AddCommand(backupCmd)
	rootCmd.AddCommand(rebootCmd)
	rootCmd.AddCommand(settingsCmd)
	rootCmd.AddCommand(interactiveCmd)
}

func printResult(v any) error {
	if opts.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}

	if line, ok := v.(fmt.Stringer); ok {
		fmt.Println(line.String())
		return nil
	}

	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(b))
	return nil
}

func buildAppContext(ctx context.Context) (*common.AppContext, error) {
	store, err := config.NewStore()
	if err != nil {
		return nil, err
	}
	cfg, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}

	cacheDir, err := config.CacheDir()
	if err != nil {
		return nil, err
	}
	diag, err := logging.NewDiagnosticLogger(cacheDir, opts.Debug, time.Now())
	if err != nil {
		diag = zap.NewNop()
	}

	cat, err := loadCatalog(diag)
	if err != nil {
		return nil, err
	}

	transport, err := newTransport(cfg.Bridge)
	if err != nil {
		return nil, err
	}
	pool := bridge.NewPool(transport)

	oplogDisabled := opts.NoOpLog || os.Getenv("UAD_NO_OPLOG") == "1"
	oplog, err := logging.NewOperationLogger(ctx, cacheDir, oplogDisabled)
	if err != nil {
		diag.Warn("operation log unavailable", zap.Error(err))
		oplog = logging.NewNoopLogger()
	}

	backupDir, err := config.BackupDir()
	if err != nil {
		return nil, err
	}

	diag.Debug("application context ready",
		zap.String("config", store.Path()),
		zap.String("bridge_mode", cfg.Bridge.Mode),
		zap.Int("catalog_entries", cat.Len()))

	return &common.AppContext{
		Options:   opts,
		Config:    cfg,
		Catalog:   cat,
		Transport: pool,
		Prober:    device.NewProber(pool, diag),
		Logger:    oplog,
		Diag:      diag,
		BackupDir: backupDir,

		ConfigPath: store.Path(),
	}, nil
}

// loadCatalog reads --catalog, or the default catalog when present. Without
// either every package is unlisted.
func loadCatalog(log *zap.Logger) (*catalog.Catalog, error) {
	path := opts.Catalog
	if path == "" {
		dir, err := config.ConfigDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(dir, DefaultCatalogName)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			log.Warn("no package catalog found, every package is unlisted", zap.String("path", path))
			return catalog.Parse(strings.NewReader("[]"), log)
		}
	}
	return catalog.Load(path, log)
}

func newTransport(cfg config.Bridge) (bridge.Transport, error) {
	timeout := time.Duration(cfg.Timeout)
	switch cfg.Mode {
	case config.BridgeModeServer:
		return bridge.NewServerTransport(cfg.Host, cfg.Port, timeout)
	default:
		return bridge.NewExecTransport(cfg.Path, timeout), nil
	}
}

func isTerminal(f *os.File) bool {
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func isDumbTerm(term string) bool {
	t := strings.ToLower(strings.TrimSpace(term))
	return t == "" || t == "dumb"
}

func shouldUseInteractive(stdinTTY, stdoutTTY bool, term string) bool {
	return stdinTTY && stdoutTTY && !isDumbTerm(term)
}
