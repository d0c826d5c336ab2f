package cmd

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/0x192/universal-android-debloater-sub000/internal/app/common"
	"github.com/0x192/universal-android-debloater-sub000/internal/app/executor"
	"github.com/0x192/universal-android-debloater-sub000/internal/app/inventory"
	"github.com/0x192/universal-android-debloater-sub000/internal/app/selection"
	"github.com/0x192/universal-android-debloater-sub000/internal/domain/model"
)

var runPicker = func(m pickerModel) (pickerModel, error) {
	result, err := tea.NewProgram(m).Run()
	if err != nil {
		return m, err
	}
	out, ok := result.(pickerModel)
	if !ok {
		return m, nil
	}
	return out, nil
}

var interactiveCmd = &cobra.Command{
	Use:   "interactive",
	Short: "Pick packages in a terminal UI",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runInteractive(cmd)
	},
}

func runInteractive(cmd *cobra.Command) error {
	app, err := common.FromCommand(cmd)
	if err != nil {
		return err
	}
	return interactiveLoop(cmd.Context(), app)
}

func interactiveLoop(ctx context.Context, app *common.AppContext) error {
	d, err := common.ResolveDevice(ctx, app)
	if err != nil {
		return err
	}
	session := inventory.NewSession(app.Prober, app.Catalog, app.Transport.Reboot)
	m, err := session.Select(ctx, d.Serial)
	if err != nil {
		return err
	}
	exec := executor.New(app.Transport, app.Logger, app.Diag)

	settings := app.Settings(d.Serial)
	status := ""
	var marked []inventory.Ref
	for {
		picked, err := runPicker(newPickerModel(m, status).withMarks(marked, settings.MultiUserMode))
		if err != nil {
			return err
		}
		marked = nil

		switch picked.action {
		case pickerApply:
			ctrl := selection.NewController(m, settings)
			for _, ref := range picked.Marked() {
				ctrl.Select(ref, true)
			}
			batch := ctrl.NewBatch(picked.target, selection.BatchOptions{
				Command:  "interactive",
				Executor: exec,
				Refresh: func(ctx context.Context) error {
					_, err := session.Refresh(ctx)
					return err
				},
				DryRun: app.Options.DryRun,
				Log:    app.Diag,
			})
			ctrl.Clear()
			status = summarize(batch.Run(ctx), app.Options.DryRun)
			if next := session.Model(); next != nil {
				m = next
			}
		case pickerMultiUser:
			ctrl := selection.NewController(m, settings)
			for _, ref := range picked.Marked() {
				ctrl.Select(ref, true)
			}
			ctrl.SetMultiUser(!settings.MultiUserMode)
			settings = ctrl.Settings()
			for _, it := range ctrl.Selected() {
				marked = append(marked, it.Ref)
			}
			ctrl.Clear()
			status = "multi-user mode off"
			if settings.MultiUserMode {
				status = "multi-user mode on"
			}
		case pickerRefresh:
			if m, err = session.Refresh(ctx); err != nil {
				return err
			}
			status = "refreshed"
		case pickerReboot:
			if app.Options.DryRun {
				status = "dry run: reboot skipped"
				continue
			}
			if err := session.Reboot(ctx); err != nil {
				return err
			}
			fmt.Println("Rebooting " + d.Serial + ", run again once the device is back.")
			return nil
		default:
			return nil
		}
	}
}

func summarize(results []model.StepResult, dryRun bool) string {
	counts := map[string]int{}
	for _, r := range results {
		counts[r.Result]++
	}
	s := fmt.Sprintf("%d succeeded, %d failed, %d skipped", counts[selection.ResultSuccess], counts[selection.ResultError], counts[selection.ResultSkipped])
	if dryRun {
		s = fmt.Sprintf("dry run: %d planned, %d skipped", counts[selection.ResultPlanned], counts[selection.ResultSkipped])
	}
	if n := counts[selection.ResultCanceled]; n > 0 {
		s += fmt.Sprintf(", %d canceled", n)
	}
	return s
}
