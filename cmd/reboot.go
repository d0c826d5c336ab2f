package cmd

import (
	"github.com/spf13/cobra"

	"github.com/0x192/universal-android-debloater-sub000/internal/app/common"
	"github.com/0x192/universal-android-debloater-sub000/internal/app/reboot"
)

var rebootCmd = &cobra.Command{
	Use:   "reboot",
	Short: "Reboot the device (requires --yes or --dry-run)",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := common.FromCommand(cmd)
		if err != nil {
			return err
		}
		result, err := reboot.NewService().Run(cmd.Context(), app)
		if err != nil {
			return err
		}
		return printResult(result)
	},
}
