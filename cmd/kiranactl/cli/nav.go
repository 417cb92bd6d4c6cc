package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kirana-event/kirana/internal/access"
)

type navItem struct {
	Title string `json:"title"`
	Href  string `json:"href"`
}

type navSection struct {
	Title string    `json:"title"`
	Items []navItem `json:"items"`
}

type navOutput struct {
	Role         access.Role              `json:"role"`
	Grants       []access.PermissionGrant `json:"grants"`
	Sections     []navSection             `json:"sections"`
	AllowedPaths []string                 `json:"allowed_paths"`
}

// parseGrant reads "page:feature". Either side may be empty but not both.
func parseGrant(raw string, granted bool) (access.PermissionGrant, error) {
	page, feature, ok := strings.Cut(strings.TrimSpace(raw), ":")
	if !ok {
		return access.PermissionGrant{}, fmt.Errorf("grant %q: want page:feature", raw)
	}
	page, feature = strings.TrimSpace(page), strings.TrimSpace(feature)
	if page == "" && feature == "" {
		return access.PermissionGrant{}, fmt.Errorf("grant %q: page and feature are both empty", raw)
	}
	return access.NewGrant(page, feature, granted), nil
}

func newNavCommand() *cobra.Command {
	var (
		role     string
		template string
		allow    []string
		deny     []string
		jsonOut  bool
	)
	cmd := &cobra.Command{
		Use:   "nav",
		Short: "Show the dashboard navigation a role and grant set resolve to",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			r, ok := access.ParseRole(role)
			if !ok {
				return fmt.Errorf("nav: unknown role %q", role)
			}
			var base []access.PermissionGrant
			if template != "" {
				if _, ok := access.LookupTemplate(template); !ok {
					return fmt.Errorf("nav: unknown template %q", template)
				}
				base = access.ResolveTemplatePermissions(template)
			}
			custom := make([]access.PermissionGrant, 0, len(allow)+len(deny))
			for _, raw := range allow {
				g, err := parseGrant(raw, true)
				if err != nil {
					return fmt.Errorf("nav: %w", err)
				}
				custom = append(custom, g)
			}
			for _, raw := range deny {
				g, err := parseGrant(raw, false)
				if err != nil {
					return fmt.Errorf("nav: %w", err)
				}
				custom = append(custom, g)
			}
			grants := access.MergePermissions(base, custom)
			acc := access.DeriveAccessibleNavigation(r, grants)

			out := navOutput{Role: r, Grants: grants, Sections: make([]navSection, 0, len(acc.Sections)), AllowedPaths: acc.AllowedPaths}
			for _, s := range acc.Sections {
				section := navSection{Title: s.Title, Items: make([]navItem, 0, len(s.Items))}
				for _, item := range s.Items {
					section.Items = append(section.Items, navItem{Title: item.Title, Href: item.Href})
				}
				out.Sections = append(out.Sections, section)
			}
			if jsonOut {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			renderNav(cmd.OutOrStdout(), out)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&role, "role", string(access.RoleUser), "user, admin or superadmin")
	flags.StringVar(&template, "template", "", "permission template applied before the explicit grants")
	flags.StringArrayVar(&allow, "grant", nil, "allowing grant as page:feature (repeatable)")
	flags.StringArrayVar(&deny, "deny", nil, "denying grant as page:feature (repeatable)")
	flags.BoolVar(&jsonOut, "json", false, "print the result as JSON")
	return cmd
}

func renderNav(w io.Writer, out navOutput) {
	_, _ = fmt.Fprintf(w, "role: %s\n", out.Role)
	for _, s := range out.Sections {
		_, _ = fmt.Fprintf(w, "%s\n", s.Title)
		for _, item := range s.Items {
			_, _ = fmt.Fprintf(w, "  %-24s %s\n", item.Title, item.Href)
		}
	}
	_, _ = fmt.Fprintf(w, "allowed: %s\n", strings.Join(out.AllowedPaths, ", "))
}
