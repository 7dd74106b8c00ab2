package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"scoreflow/internal/failure"
	"scoreflow/internal/instruments"
	"scoreflow/internal/metadata"
)

// Offline helpers; none of these touch the session database.
var offline = map[string]string{"skipConfigLoad": "true"}

type instrumentView struct {
	Label         string   `json:"label,omitempty"`
	Matched       bool     `json:"matched"`
	Name          string   `json:"name"`
	Section       string   `json:"section"`
	Transposition string   `json:"transposition"`
	Aliases       []string `json:"aliases,omitempty"`
}

func newInstrumentsCommand(ctx *commandContext) *cobra.Command {
	instrumentsCmd := &cobra.Command{
		Use:         "instruments",
		Short:       "Query the canonical instrument registry",
		Annotations: offline,
	}

	var section string
	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List canonical instruments",
		RunE: func(cmd *cobra.Command, args []string) error {
			var views []instrumentView
			for _, inst := range instruments.NewRegistry().All() {
				if section != "" && !strings.EqualFold(string(inst.Section), section) {
					continue
				}
				views = append(views, instrumentView{
					Matched:       true,
					Name:          inst.Name,
					Section:       string(inst.Section),
					Transposition: string(inst.Transposition),
					Aliases:       inst.Aliases,
				})
			}
			return ctx.emit(cmd, views, func() string {
				rows := make([][]string, 0, len(views))
				for _, v := range views {
					rows = append(rows, []string{v.Name, v.Section, v.Transposition, strings.Join(v.Aliases, ", ")})
				}
				return renderTable([]string{"Instrument", "Section", "Key", "Aliases"}, rows, nil)
			})
		},
	}
	listCmd.Flags().StringVar(&section, "section", "", "Only instruments in this section")

	lookupCmd := &cobra.Command{
		Use:   "lookup <label>...",
		Short: "Resolve free-form part labels to canonical instruments",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			normalizer := metadata.NewNormalizer(instruments.NewRegistry())
			views := make([]instrumentView, 0, len(args))
			for _, label := range args {
				_, matched := normalizer.Registry().FindByFuzzyMatch(label)
				inst := normalizer.NormalizeInstrument(label)
				views = append(views, instrumentView{
					Label:         label,
					Matched:       matched,
					Name:          inst.Name,
					Section:       string(inst.Section),
					Transposition: string(inst.Transposition),
				})
			}
			return ctx.emit(cmd, views, func() string {
				rows := make([][]string, 0, len(views))
				for _, v := range views {
					rows = append(rows, []string{v.Label, v.Name, v.Section, v.Transposition, yesNo(v.Matched)})
				}
				return renderTable([]string{"Label", "Instrument", "Section", "Key", "Known"}, rows, nil)
			})
		},
	}

	instrumentsCmd.AddCommand(listCmd, lookupCmd)
	return instrumentsCmd
}

type normalizedValue struct {
	Input  string `json:"input"`
	Output string `json:"output"`
}

func newNormalizeCommand(ctx *commandContext) *cobra.Command {
	normalizeCmd := &cobra.Command{
		Use:         "normalize",
		Short:       "Apply the catalogue normalization rules to a value",
		Annotations: offline,
	}
	fields := []struct {
		use   string
		short string
		fn    func(string) string
	}{
		{"title", "Title-case a work title", metadata.NormalizeTitle},
		{"name", "Normalize a composer or arranger name", metadata.NormalizePersonName},
		{"publisher", "Collapse whitespace in a publisher name", metadata.NormalizePublisher},
		{"chair", "Canonicalize a chair designation", metadata.NormalizeChair},
		{"transposition", "Canonicalize a transposition", func(v string) string {
			return string(metadata.NormalizeTransposition(v))
		}},
	}
	for _, field := range fields {
		normalizeCmd.AddCommand(&cobra.Command{
			Use:   field.use + " <value>",
			Short: field.short,
			Args:  cobra.MinimumNArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				input := strings.Join(args, " ")
				result := normalizedValue{Input: input, Output: field.fn(input)}
				return ctx.emit(cmd, result, func() string { return result.Output })
			},
		})
	}
	return normalizeCmd
}

type classification struct {
	Message   string `json:"message"`
	Stage     string `json:"stage"`
	Code      string `json:"code"`
	Retriable bool   `json:"retriable"`
	Terminal  bool   `json:"terminal"`
}

func newClassifyCommand(ctx *commandContext) *cobra.Command {
	var stageFlag string
	cmd := &cobra.Command{
		Use:         "classify <message>",
		Short:       "Map a collaborator error message to a canonical failure code",
		Annotations: offline,
		Args:        cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			stage, ok := failure.ParseStage(stageFlag)
			if !ok {
				return fmt.Errorf("unknown stage %q", stageFlag)
			}
			message := strings.Join(args, " ")
			code := failure.ClassifyMessage(message, stage)
			result := classification{
				Message:   message,
				Stage:     string(stage),
				Code:      string(code),
				Retriable: failure.IsRetriable(code),
				Terminal:  failure.IsTerminal(code),
			}
			return ctx.emit(cmd, result, func() string {
				return fmt.Sprintf("%s (retriable: %s, terminal: %s)", result.Code, yesNo(result.Retriable), yesNo(result.Terminal))
			})
		},
	}
	cmd.Flags().StringVar(&stageFlag, "stage", string(failure.StageMetadataExtraction), "Stage the message came from")
	return cmd
}
