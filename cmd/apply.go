package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0x192/universal-android-debloater-sub000/internal/app/apply"
	"github.com/0x192/universal-android-debloater-sub000/internal/app/common"
	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
)

var (
	applyTarget     string
	applyAll        bool
	applyFrom       string
	applyAllDevices bool
	applyFilter     filterFlags
)

var applyCmd = &cobra.Command{
	Use:   "apply [package...]",
	Short: "Uninstall, disable or restore packages",
	Long:  "Drive the named packages, or every package matching the filter with --all, to the target state. Requires --yes or --dry-run.",
	RunE: func(cmd *cobra.Command, args []string) error {
		target, err := validateApplyFlags(applyTarget, args, applyAll, applyFrom)
		if err != nil {
			return err
		}
		filter, err := applyFilter.build()
		if err != nil {
			return err
		}
		app, err := common.FromCommand(cmd)
		if err != nil {
			return err
		}
		result, err := apply.NewService().Run(cmd.Context(), app, apply.Options{
			Target:        target,
			Packages:      args,
			Filter:        filter,
			All:           applyAll,
			SelectionFile: applyFrom,
			AllDevices:    applyAllDevices,
		})
		if err != nil {
			return err
		}
		return printResult(result)
	},
}

func validateApplyFlags(target string, args []string, all bool, from string) (model.PackageState, error) {
	if target == "" {
		return "", errors.New("--target is required")
	}
	state, err := model.ParseState(target)
	if err != nil || !state.Concrete() {
		return "", fmt.Errorf("--target must be uninstalled, disabled or enabled, got %q", target)
	}
	if len(args) == 0 && !all && from == "" {
		return "", errors.New("name at least one package, or use --all or --from")
	}
	return state, nil
}

func init() {
	applyCmd.Flags().StringVar(&applyTarget, "target", "", "Target state: uninstalled|disabled|enabled")
	applyCmd.Flags().BoolVar(&applyAll, "all", false, "Select every package matching the filter flags")
	applyCmd.Flags().StringVar(&applyFrom, "from", "", "Select the packages listed in a file, one per line")
	applyCmd.Flags().BoolVar(&applyAllDevices, "all-devices", false, "Apply to every connected device in parallel")
	applyFilter.register(applyCmd)
}
