package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scoreflow/internal/api"
	"scoreflow/internal/commit"
	"scoreflow/internal/failure"
)

func newSessionFailCommand(ctx *commandContext) *cobra.Command {
	var stageFlag string
	var message string
	cmd := &cobra.Command{
		Use:   "fail <id>",
		Short: "Record a collaborator failure against a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, ok := failure.ParseStage(stageFlag)
			if !ok {
				return fmt.Errorf("unknown stage %q", stageFlag)
			}
			if strings.TrimSpace(message) == "" {
				return errors.New("--message is required")
			}
			return ctx.withRuntime(cmd, func(rt *cliRuntime) error {
				sess, err := rt.manager.Fail(cmd.Context(), args[0], stage, errors.New(message))
				if err != nil {
					return err
				}
				dto := api.FromSession(sess)
				return ctx.emit(cmd, api.SessionResponse{Session: dto}, func() string {
					if dto.LastFailure == nil {
						return fmt.Sprintf("Session %s is %s", dto.ID, dto.Workflow)
					}
					return fmt.Sprintf("Session %s failed with %s (retriable: %s)",
						dto.ID, dto.LastFailure.Code, yesNo(dto.LastFailure.Retriable))
				})
			})
		},
	}
	cmd.Flags().StringVar(&stageFlag, "stage", "", "Stage that failed, e.g. OCR or METADATA_EXTRACTION")
	cmd.Flags().StringVarP(&message, "message", "m", "", "Failure message from the collaborator")
	return cmd
}

func newSessionRetryCommand(ctx *commandContext) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "retry <id>",
		Short: "Retry a failed session",
		Long: "Retry a failed session. Terminal failures need --force; sessions that\n" +
			"already carry an extraction resume from PROCESSED, others are re-queued.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(rt *cliRuntime) error {
				sess, err := rt.manager.RetryFailed(cmd.Context(), args[0], force)
				if err != nil {
					return err
				}
				dto := api.FromSession(sess)
				return ctx.emit(cmd, api.SessionResponse{Session: dto}, func() string {
					return fmt.Sprintf("Session %s is %s", dto.ID, dto.Workflow)
				})
			})
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Retry even when the failure is not retriable")
	return cmd
}

func newSessionApproveCommand(ctx *commandContext) *cobra.Command {
	var by string
	var overrides commit.Overrides
	cmd := &cobra.Command{
		Use:   "approve <id>",
		Short: "Approve a reviewed session and commit it to the catalogue",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(by) == "" {
				return errors.New("--by is required")
			}
			return ctx.withRuntime(cmd, func(rt *cliRuntime) error {
				result, err := rt.manager.Approve(cmd.Context(), args[0], overrides, by)
				if err != nil {
					return err
				}
				return ctx.emit(cmd, api.CommitResponse{Result: result}, func() string {
					return renderCommitResult(result)
				})
			})
		},
	}
	cmd.Flags().StringVar(&by, "by", "", "Reviewer recorded as the approver")
	cmd.Flags().StringVar(&overrides.Title, "title", "", "Override the title")
	cmd.Flags().StringVar(&overrides.Subtitle, "subtitle", "", "Override the subtitle")
	cmd.Flags().StringVar(&overrides.Composer, "composer", "", "Override the composer")
	cmd.Flags().StringVar(&overrides.Arranger, "arranger", "", "Override the arranger")
	cmd.Flags().StringVar(&overrides.Publisher, "publisher", "", "Override the publisher")
	cmd.Flags().StringVar(&overrides.EnsembleType, "ensemble", "", "Override the ensemble type")
	cmd.Flags().StringVar(&overrides.Instrument, "instrument", "", "Instrument for a single-part upload")
	return cmd
}

func renderCommitResult(result commit.Result) string {
	verb := "Committed"
	if result.WasIdempotent {
		verb = "Already committed"
	}
	return fmt.Sprintf("%s %q as %s (%d parts, file %s)",
		verb, result.Title, result.CatalogueRecordID, result.PartsCommitted, result.FileID)
}

func newSessionRejectCommand(ctx *commandContext) *cobra.Command {
	var by string
	var reason string
	cmd := &cobra.Command{
		Use:   "reject <id>",
		Short: "Reject a session under review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if strings.TrimSpace(by) == "" {
				return errors.New("--by is required")
			}
			return ctx.withRuntime(cmd, func(rt *cliRuntime) error {
				sess, err := rt.manager.Reject(cmd.Context(), args[0], by, reason)
				if err != nil {
					return err
				}
				dto := api.FromSession(sess)
				return ctx.emit(cmd, api.SessionResponse{Session: dto}, func() string {
					return fmt.Sprintf("Session %s rejected by %s", dto.ID, by)
				})
			})
		},
	}
	cmd.Flags().StringVar(&by, "by", "", "Reviewer rejecting the session")
	cmd.Flags().StringVar(&reason, "reason", "", "Why the session was rejected")
	return cmd
}
