package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/kirana-event/kirana/internal/access"
)

type templateOutput struct {
	ID     string                   `json:"id"`
	Label  string                   `json:"label"`
	Grants []access.PermissionGrant `json:"grants"`
}

func newTemplateCommand() *cobra.Command {
	var jsonOut bool
	cmd := &cobra.Command{
		Use:   "template [id]",
		Short: "Print the grants a permission template expands to, or list templates",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			if len(args) == 0 {
				if jsonOut {
					list := make([]templateOutput, 0, len(access.Templates()))
					for _, tpl := range access.Templates() {
						list = append(list, templateOutput{ID: tpl.ID, Label: tpl.Label, Grants: access.ResolveTemplatePermissions(tpl.ID)})
					}
					return writeJSON(w, list)
				}
				for _, tpl := range access.Templates() {
					_, _ = fmt.Fprintf(w, "%-18s %s\n", tpl.ID, tpl.Label)
				}
				return nil
			}
			tpl, ok := access.LookupTemplate(args[0])
			if !ok {
				return fmt.Errorf("template: unknown template %q", args[0])
			}
			out := templateOutput{ID: tpl.ID, Label: tpl.Label, Grants: access.ResolveTemplatePermissions(tpl.ID)}
			if jsonOut {
				return writeJSON(w, out)
			}
			renderTemplate(w, out)
			return nil
		},
	}
	cmd.Flags().BoolVar(&jsonOut, "json", false, "print the result as JSON")
	return cmd
}

func renderTemplate(w io.Writer, out templateOutput) {
	_, _ = fmt.Fprintf(w, "%s (%s)\n", out.ID, out.Label)
	for _, g := range out.Grants {
		verdict := "allow"
		if !g.AccessGranted {
			verdict = "deny"
		}
		_, _ = fmt.Fprintf(w, "  %-36s %s\n", access.GrantKey(g), verdict)
	}
}
