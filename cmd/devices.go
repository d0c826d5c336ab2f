package cmd

import (
	"github.com/spf13/cobra"

	"github.com/0x192/universal-android-debloater-sub000/internal/app/common"
	"github.com/0x192/universal-android-debloater-sub000/internal/app/devices"
)

var devicesCmd = &cobra.Command{
	Use:   "devices",
	Short: "List connected devices with their users",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := common.FromCommand(cmd)
		if err != nil {
			return err
		}
		result, err := devices.NewService().Run(cmd.Context(), app)
		if err != nil {
			return err
		}
		return printResult(result)
	},
}
