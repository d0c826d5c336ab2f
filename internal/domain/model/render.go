package model

import (
	"fmt"
	"strings"
	"text/tabwriter"
)

// String is the text rendition printed without --json.
func (r CommandResult) String() string {
	var b strings.Builder
	w := tabwriter.NewWriter(&b, 0, 4, 2, ' ', 0)

	if r.Device != nil {
		fmt.Fprintf(w, "device\t%s (%s, sdk %d)\n", r.Device.Serial, r.Device.Name(), r.Device.SDK)
	}
	for _, d := range r.Devices {
		users := make([]string, 0, len(d.Users))
		for _, u := range d.Users {
			id := fmt.Sprint(u.ID)
			if u.Protected {
				id += "*"
			}
			users = append(users, id)
		}
		fmt.Fprintf(w, "%s\t%s\tsdk %d\tusers %s\n", d.Serial, d.Name(), d.SDK, strings.Join(users, ","))
	}
	for _, p := range r.Packages {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", p.Name, p.State, p.Catalog.List, p.Catalog.Removal)
	}
	for _, s := range r.Steps {
		line := fmt.Sprintf("%s\tuser %d\t%s -> %s\t%s", s.Package, s.UserID, s.From, s.Target, s.Result)
		if s.Error != "" {
			line += "\t" + s.Error
		}
		fmt.Fprintln(w, line)
	}
	for _, path := range r.Backups {
		fmt.Fprintln(w, path)
	}
	if s := r.Settings; s != nil {
		fmt.Fprintf(w, "theme\t%s\n", s.Theme)
		fmt.Fprintf(w, "expert_mode\t%t\n", s.ExpertMode)
		fmt.Fprintf(w, "disable_mode\t%t\n", s.DisableMode)
		fmt.Fprintf(w, "multi_user_mode\t%t\n", s.MultiUserMode)
	}
	if r.Path != "" {
		fmt.Fprintf(w, "path\t%s\n", r.Path)
	}
	_ = w.Flush()

	suffix := ""
	if r.DryRun {
		suffix = " (dry run)"
	}
	fmt.Fprintf(&b, "%s: %d total, %d selected, %d succeeded, %d errors%s",
		r.Command, r.Summary.ItemsTotal, r.Summary.ItemsSelected, r.Summary.Succeeded, r.Summary.Errors, suffix)
	return b.String()
}
