package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scoreflow/internal/api"
	"scoreflow/internal/status"
)

func newStatusCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show session counts and collaborator health",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(rt *cliRuntime) error {
				summary := api.FromStatusSummary(rt.manager.Status(cmd.Context()))
				return ctx.emit(cmd, summary, func() string {
					return renderStatus(summary, shouldColorize(cmd.OutOrStdout()))
				})
			})
		},
	}
}

func renderStatus(summary api.WorkflowStatus, colorize bool) string {
	var lines []string
	lines = append(lines, renderSectionHeader("Health", colorize)...)
	for _, h := range summary.Health {
		kind := statusOK
		if !h.Ready {
			kind = statusError
		}
		lines = append(lines, renderStatusLine(h.Name, kind, h.Detail, colorize))
	}

	lines = append(lines, "")
	lines = append(lines, renderSectionHeader("Sessions", colorize)...)
	for _, wf := range status.AllWorkflows() {
		count := summary.SessionCounts[string(wf)]
		lines = append(lines, renderStatusLine(string(wf), workflowKind(wf, count), fmt.Sprint(count), colorize))
	}
	return strings.Join(lines, "\n")
}
