package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scoreflow/internal/api"
	"scoreflow/internal/settings"
)

func newSettingsCommand(ctx *commandContext) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and update collaborator settings",
	}
	settingsCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "List settings with secrets masked",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(rt *cliRuntime) error {
				views, err := rt.settings.Show(cmd.Context())
				if err != nil {
					return err
				}
				return ctx.emit(cmd, api.SettingsResponse{Settings: views}, func() string {
					rows := make([][]string, 0, len(views))
					for _, v := range views {
						rows = append(rows, []string{v.Key, orDash(v.Value), yesNo(v.Secret), v.Description})
					}
					return renderTable([]string{"Key", "Value", "Secret", "Description"}, rows, nil)
				})
			})
		},
	})
	settingsCmd.AddCommand(&cobra.Command{
		Use:   "set <key=value>...",
		Short: "Update settings",
		Long: "Update settings. " + settings.SentinelClear + " deletes a value; " +
			settings.SentinelSet + " or a masked value keeps the stored one.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			values := make(map[string]string, len(args))
			for _, arg := range args {
				key, value, ok := strings.Cut(arg, "=")
				if !ok || strings.TrimSpace(key) == "" {
					return fmt.Errorf("expected key=value, got %q", arg)
				}
				values[key] = value
			}
			return ctx.withRuntime(cmd, func(rt *cliRuntime) error {
				changes, err := rt.settings.Apply(cmd.Context(), values)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, api.SettingsUpdateResponse{Changes: changes}, func() string {
					lines := make([]string, 0, len(changes))
					for _, c := range changes {
						lines = append(lines, fmt.Sprintf("%s: %s", c.Key, c.Action))
					}
					return strings.Join(lines, "\n")
				})
			})
		},
	})
	return settingsCmd
}
