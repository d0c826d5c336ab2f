package cmd

import (
	"github.com/spf13/cobra"

	"github.com/0x192/universal-android-debloater-sub000/internal/app/backup"
	"github.com/0x192/universal-android-debloater-sub000/internal/app/common"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Snapshot and restore the disabled and uninstalled packages of a device",
}

func backupAction(action string) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		app, err := common.FromCommand(cmd)
		if err != nil {
			return err
		}
		o := backup.Options{Action: action}
		if len(args) > 0 {
			o.Path = args[0]
		}
		result, err := backup.NewService().Run(cmd.Context(), app, o)
		if err != nil {
			return err
		}
		return printResult(result)
	}
}

func init() {
	backupCmd.AddCommand(&cobra.Command{
		Use:   "create",
		Short: "Write a snapshot of the current package states",
		Args:  cobra.NoArgs,
		RunE:  backupAction(backup.ActionCreate),
	})
	backupCmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the snapshots of a device, newest first",
		Args:  cobra.NoArgs,
		RunE:  backupAction(backup.ActionList),
	})
	backupCmd.AddCommand(&cobra.Command{
		Use:   "restore [path]",
		Short: "Bring the device back to a snapshot (default: the newest)",
		Long:  "Restore the device to a snapshot. Without a path the newest snapshot of the device is used; any other backup .json file may be given explicitly.",
		Args:  cobra.MaximumNArgs(1),
		RunE:  backupAction(backup.ActionRestore),
	})
}
