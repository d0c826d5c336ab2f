package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/0x192/universal-android-debloater-sub000/internal/app/common"
	"github.com/0x192/universal-android-debloater-sub000/internal/app/packages"
	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
)

type filterFlags struct {
	state   string
	list    string
	removal string
	query   string
}

var (
	packagesFilter filterFlags
	packagesExport string
)

var packagesCmd = &cobra.Command{
	Use:   "packages",
	Short: "List the system packages of a user",
	RunE: func(cmd *cobra.Command, args []string) error {
		filter, err := packagesFilter.build()
		if err != nil {
			return err
		}
		app, err := common.FromCommand(cmd)
		if err != nil {
			return err
		}
		result, err := packages.NewService().Run(cmd.Context(), app, packages.Options{Filter: filter, Export: packagesExport})
		if err != nil {
			return err
		}
		return printResult(result)
	},
}

func (f filterFlags) build() (model.Filter, error) {
	out := model.Filter{
		List:    model.ListKind(f.list),
		Removal: model.Removal(f.removal),
		Query:   f.query,
	}
	if f.state != "" {
		s, err := model.ParseState(f.state)
		if err != nil {
			return model.Filter{}, fmt.Errorf("--state: %w", err)
		}
		out.State = s
	}
	switch out.List {
	case "", model.ListAOSP, model.ListCarrier, model.ListGoogle, model.ListMisc, model.ListOEM, model.ListUnlisted:
	default:
		return model.Filter{}, fmt.Errorf("--list must be one of aosp, carrier, google, misc, oem, unlisted")
	}
	switch out.Removal {
	case "", model.RemovalRecommended, model.RemovalAdvanced, model.RemovalExpert, model.RemovalUnsafe, model.RemovalUnlisted:
	default:
		return model.Filter{}, fmt.Errorf("--removal must be one of Recommended, Advanced, Expert, Unsafe, Unlisted")
	}
	return out, nil
}

func (f *filterFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.state, "state", "", "Only packages in this state (enabled|disabled|uninstalled|all)")
	cmd.Flags().StringVar(&f.list, "list", "", "Only packages of this catalog list")
	cmd.Flags().StringVar(&f.removal, "removal", "", "Only packages with this removal recommendation")
	cmd.Flags().StringVar(&f.query, "query", "", "Only packages whose name or description contains this text")
}

func init() {
	packagesFilter.register(packagesCmd)
	packagesCmd.Flags().StringVar(&packagesExport, "export", "", "Write the listed package names to this file")
}
