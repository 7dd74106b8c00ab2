package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"scoreflow/internal/api"
	"scoreflow/internal/routing"
	"scoreflow/internal/status"
	"scoreflow/internal/store"
	"scoreflow/internal/workflow"
)

func newSessionCommand(ctx *commandContext) *cobra.Command {
	sessionCmd := &cobra.Command{
		Use:     "session",
		Aliases: []string{"sessions"},
		Short:   "Inspect and drive ingestion sessions",
	}
	sessionCmd.AddCommand(newSessionAddCommand(ctx))
	sessionCmd.AddCommand(newSessionListCommand(ctx))
	sessionCmd.AddCommand(newSessionShowCommand(ctx))
	sessionCmd.AddCommand(newSessionQueueCommand(ctx))
	sessionCmd.AddCommand(newSessionExtractCommand(ctx))
	sessionCmd.AddCommand(newSessionProcessCommand(ctx))
	sessionCmd.AddCommand(newSessionRouteCommand(ctx))
	sessionCmd.AddCommand(newSessionFailCommand(ctx))
	sessionCmd.AddCommand(newSessionRetryCommand(ctx))
	sessionCmd.AddCommand(newSessionApproveCommand(ctx))
	sessionCmd.AddCommand(newSessionRejectCommand(ctx))
	return sessionCmd
}

func newSessionAddCommand(ctx *commandContext) *cobra.Command {
	var queue bool
	cmd := &cobra.Command{
		Use:   "add <pdf>...",
		Short: "Upload PDFs and create sessions",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(rt *cliRuntime) error {
				var created []api.Session
				for _, path := range args {
					sess, err := rt.manager.Upload(cmd.Context(), path)
					if err != nil {
						return fmt.Errorf("%s: %w", path, err)
					}
					if queue {
						if sess, err = rt.manager.Queue(cmd.Context(), sess.ID); err != nil {
							return fmt.Errorf("%s: %w", path, err)
						}
					}
					created = append(created, api.FromSession(sess))
				}
				return ctx.emit(cmd, api.SessionListResponse{Sessions: created}, func() string {
					return renderSessionTable(created)
				})
			})
		},
	}
	cmd.Flags().BoolVar(&queue, "queue", false, "Queue each session for processing after upload")
	return cmd
}

func newSessionListCommand(ctx *commandContext) *cobra.Command {
	var workflows []string
	var review bool
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List sessions, newest first",
		RunE: func(cmd *cobra.Command, args []string) error {
			filter := store.ListFilter{NeedsReview: review, Limit: limit}
			for _, value := range workflows {
				wf, ok := status.ParseWorkflow(value)
				if !ok {
					return fmt.Errorf("unknown workflow status %q", value)
				}
				filter.Workflows = append(filter.Workflows, wf)
			}
			return ctx.withRuntime(cmd, func(rt *cliRuntime) error {
				sessions, err := rt.store.ListSessions(cmd.Context(), filter)
				if err != nil {
					return err
				}
				dtos := api.FromSessions(sessions)
				return ctx.emit(cmd, api.SessionListResponse{Sessions: dtos}, func() string {
					if len(dtos) == 0 {
						return "No sessions"
					}
					return renderSessionTable(dtos)
				})
			})
		},
	}
	cmd.Flags().StringSliceVarP(&workflows, "workflow", "w", nil, "Only sessions in these workflow states")
	cmd.Flags().BoolVar(&review, "review", false, "Only sessions flagged for human review")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "Maximum sessions to list")
	return cmd
}

func newSessionShowCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one session with its parts and failure history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(rt *cliRuntime) error {
				sess, err := rt.store.GetSession(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				history, err := rt.store.FailureHistory(cmd.Context(), sess.ID)
				if err != nil {
					return err
				}
				resp := api.SessionResponse{Session: api.FromSession(sess), FailureHistory: api.FromFailures(history)}
				return ctx.emit(cmd, resp, func() string {
					return renderSessionDetail(resp)
				})
			})
		},
	}
}

func newSessionQueueCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "queue <id>",
		Short: "Queue an uploaded session for processing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(rt *cliRuntime) error {
				sess, err := rt.manager.Queue(cmd.Context(), args[0])
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
}

func newSessionExtractCommand(ctx *commandContext) *cobra.Command {
	var passFlag string
	var file string
	cmd := &cobra.Command{
		Use:   "extract <id>",
		Short: "Record a recognition document for a session",
		Long: "Record a recognition document for a session and route it.\n" +
			"The document is read from --file, or stdin when --file is - or omitted.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, ok := workflow.ParsePass(passFlag)
			if !ok {
				return fmt.Errorf("unknown pass %q", passFlag)
			}
			data, err := readDocument(cmd, file)
			if err != nil {
				return err
			}
			return ctx.withRuntime(cmd, func(rt *cliRuntime) error {
				if pass == workflow.PassInitial {
					if err := claimForExtraction(cmd, rt, args[0]); err != nil {
						return err
					}
				}
				result, err := rt.manager.RecordExtraction(cmd.Context(), args[0], pass, data)
				if err != nil {
					return err
				}
				return emitRoute(cmd, ctx, result.Decision, result.DuplicateOf, api.FromSession(result.Session))
			})
		},
	}
	cmd.Flags().StringVar(&passFlag, "pass", "initial", "Recognition pass: initial, ocr, or second")
	cmd.Flags().StringVarP(&file, "file", "f", "-", "Recognition document path")
	return cmd
}

// claimForExtraction moves an uploaded or queued session into PROCESSING so an
// initial document recorded from the CLI has somewhere to land.
func claimForExtraction(cmd *cobra.Command, rt *cliRuntime, id string) error {
	sess, err := rt.store.GetSession(cmd.Context(), id)
	if err != nil {
		return err
	}
	if wf := sess.Workflow(); wf == status.WorkflowUploaded || wf == status.WorkflowQueued {
		_, err = rt.manager.Start(cmd.Context(), id)
	}
	return err
}

func readDocument(cmd *cobra.Command, path string) ([]byte, error) {
	if path == "" || path == "-" {
		return io.ReadAll(cmd.InOrStdin())
	}
	return os.ReadFile(path)
}

func newSessionProcessCommand(ctx *commandContext) *cobra.Command {
	var passFlag string
	var extractor string
	cmd := &cobra.Command{
		Use:   "process <id>",
		Short: "Run an external recognizer for a session",
		Long: "Run an external recognizer for a session and record its output.\n" +
			"The extractor command receives the stored PDF path as its final argument\n" +
			"and must print the recognition document on stdout.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pass, ok := workflow.ParsePass(passFlag)
			if !ok {
				return fmt.Errorf("unknown pass %q", passFlag)
			}
			fields := strings.Fields(extractor)
			if len(fields) == 0 {
				return fmt.Errorf("--extractor is required")
			}
			return ctx.withRuntime(cmd, func(rt *cliRuntime) error {
				result, err := rt.manager.Process(cmd.Context(), args[0], pass, workflow.CommandExtractor(fields[0], fields[1:]...))
				if err != nil {
					return err
				}
				return emitRoute(cmd, ctx, result.Decision, result.DuplicateOf, api.FromSession(result.Session))
			})
		},
	}
	cmd.Flags().StringVar(&passFlag, "pass", "initial", "Recognition pass: initial, ocr, or second")
	cmd.Flags().StringVarP(&extractor, "extractor", "x", "", "Recognizer command line")
	return cmd
}

func newSessionRouteCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "route <id>",
		Short: "Re-evaluate the routing decision for a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withRuntime(cmd, func(rt *cliRuntime) error {
				decision, sess, err := rt.manager.EvaluateRoute(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				return emitRoute(cmd, ctx, decision, "", api.FromSession(sess))
			})
		},
	}
}

func emitRoute(cmd *cobra.Command, ctx *commandContext, decision routing.Result, duplicateOf string, sess api.Session) error {
	resp := api.RouteResponse{Decision: decision, DuplicateOf: duplicateOf, Session: sess}
	return ctx.emit(cmd, resp, func() string {
		var b strings.Builder
		fmt.Fprintf(&b, "Route: %s\n", decision.Route)
		for _, reason := range decision.Reasons {
			fmt.Fprintf(&b, "  - %s\n", reason)
		}
		if duplicateOf != "" {
			fmt.Fprintf(&b, "Possible duplicate of %s\n", duplicateOf)
		}
		fmt.Fprintf(&b, "Session %s: workflow=%s ocr=%s second_pass=%s commit=%s",
			sess.ID, sess.Workflow, sess.OCR, sess.SecondPass, sess.Commit)
		return b.String()
	})
}

func renderSessionTable(sessions []api.Session) string {
	rows := make([][]string, 0, len(sessions))
	for _, s := range sessions {
		rows = append(rows, []string{
			s.ID,
			s.FileName,
			s.Workflow,
			s.OCR,
			s.SecondPass,
			s.Commit,
			strconv.Itoa(s.PageCount),
			fmt.Sprintf("%.0f%%", s.TextCoverage*100),
			yesNo(s.RequiresHumanReview),
		})
	}
	return renderTable(
		[]string{"ID", "File", "Workflow", "OCR", "Second Pass", "Commit", "Pages", "Text", "Review"},
		rows,
		[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
	)
}

func renderSessionDetail(resp api.SessionResponse) string {
	s := resp.Session
	var b strings.Builder
	fmt.Fprintf(&b, "Session:      %s\n", s.ID)
	fmt.Fprintf(&b, "File:         %s\n", s.FileName)
	fmt.Fprintf(&b, "Workflow:     %s\n", s.Workflow)
	fmt.Fprintf(&b, "OCR:          %s\n", s.OCR)
	fmt.Fprintf(&b, "Second pass:  %s\n", s.SecondPass)
	fmt.Fprintf(&b, "Commit:       %s\n", s.Commit)
	fmt.Fprintf(&b, "Pages:        %d (%.0f%% with text)\n", s.PageCount, s.TextCoverage*100)
	if s.SegmentationConfidence != nil {
		fmt.Fprintf(&b, "Segmentation: %.0f\n", *s.SegmentationConfidence)
	}
	if s.Extracted != nil {
		fmt.Fprintf(&b, "Title:        %s\n", orDash(s.Extracted.Title))
		fmt.Fprintf(&b, "Composer:     %s\n", orDash(s.Extracted.Composer))
		fmt.Fprintf(&b, "Confidence:   %.0f\n", s.Extracted.ConfidenceScore)
	}
	fmt.Fprintf(&b, "Duplicate:    %s\n", yesNo(s.DuplicateDetected))
	fmt.Fprintf(&b, "Review:       %s\n", yesNo(s.RequiresHumanReview))
	for _, reason := range s.ReviewReasons {
		fmt.Fprintf(&b, "  - %s\n", reason)
	}
	if s.ApprovedBy != "" {
		fmt.Fprintf(&b, "Approved by:  %s at %s\n", s.ApprovedBy, s.ApprovedAt)
	}

	if len(s.Parts) > 0 {
		rows := make([][]string, 0, len(s.Parts))
		for _, p := range s.Parts {
			rows = append(rows, []string{p.PartName, p.Instrument, orDash(p.Chair), fmt.Sprintf("%d-%d", p.PageStart, p.PageEnd)})
		}
		b.WriteString("\n")
		b.WriteString(renderTable([]string{"Part", "Instrument", "Chair", "Pages"}, rows, nil))
		b.WriteString("\n")
	} else if len(s.PlannedParts) > 0 {
		rows := make([][]string, 0, len(s.PlannedParts))
		for _, p := range s.PlannedParts {
			rows = append(rows, []string{orDash(p.RawPartName), p.Instrument, string(p.Section), orDash(p.Chair), p.Pages()})
		}
		b.WriteString("\nPlanned parts (not yet split):\n")
		b.WriteString(renderTable([]string{"Part", "Instrument", "Section", "Chair", "Pages"}, rows, nil))
		b.WriteString("\n")
	}
	if len(resp.FailureHistory) > 0 {
		rows := make([][]string, 0, len(resp.FailureHistory))
		for _, f := range resp.FailureHistory {
			rows = append(rows, []string{f.Timestamp, f.Stage, f.Code, yesNo(f.Retriable), f.Message})
		}
		b.WriteString("\n")
		b.WriteString(renderTable([]string{"When", "Stage", "Code", "Retriable", "Message"}, rows, nil))
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
