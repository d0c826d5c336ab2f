package cmd

import (
	"github.com/spf13/cobra"

	"github.com/0x192/universal-android-debloater-sub000/internal/app/common"
	"github.com/0x192/universal-android-debloater-sub000/internal/app/settings"
)

var settingsGlobal bool

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change the stored settings",
}

var settingsShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the settings in effect for the device",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSettings(cmd, settings.Options{Action: settings.ActionShow})
	},
}

var settingsSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist a setting (theme, expert_mode, disable_mode, multi_user_mode)",
	Long:  "Persist a setting to config.toml. disable_mode and multi_user_mode are stored for the device unless --global is given.",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runSettings(cmd, settings.Options{
			Action: settings.ActionSet,
			Key:    args[0],
			Value:  args[1],
			Global: settingsGlobal,
		})
	},
}

func runSettings(cmd *cobra.Command, o settings.Options) error {
	app, err := common.FromCommand(cmd)
	if err != nil {
		return err
	}
	result, err := settings.NewService().Run(cmd.Context(), app, o)
	if err != nil {
		return err
	}
	return printResult(result)
}

func init() {
	settingsSetCmd.Flags().BoolVar(&settingsGlobal, "global", false, "Write to [general] instead of the device override")
	settingsCmd.AddCommand(settingsShowCmd)
	settingsCmd.AddCommand(settingsSetCmd)
}
