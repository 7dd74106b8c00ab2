package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"scoreflow/internal/pdfprobe"
)

type probeView struct {
	File string `json:"file"`
	pdfprobe.Result
	Pages []string `json:"pages,omitempty"`
}

func newProbeCommand(ctx *commandContext) *cobra.Command {
	var withText bool
	cmd := &cobra.Command{
		Use:   "probe <pdf>",
		Short: "Report page count and text-layer coverage of a PDF",
		Long: "Report the signals an upload would feed into routing: page count,\n" +
			"pages with a text layer and coverage. --text also prints each page's text.",
		Annotations: offline,
		Args:        cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			res, err := pdfprobe.Probe(path, 0)
			if err != nil {
				return err
			}
			view := probeView{File: path, Result: res}
			if withText {
				for num := 1; num <= res.PageCount; num++ {
					text, err := pdfprobe.PageText(path, num)
					if err != nil {
						return err
					}
					view.Pages = append(view.Pages, text)
				}
			}
			return ctx.emit(cmd, view, func() string { return renderProbe(view) })
		},
	}
	cmd.Flags().BoolVar(&withText, "text", false, "Include the text of every page")
	return cmd
}

func renderProbe(view probeView) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Pages: %d\n", view.PageCount)
	fmt.Fprintf(&b, "Text pages: %d\n", view.TextPages)
	fmt.Fprintf(&b, "Text coverage: %.0f%%", view.TextCoverage*100)
	if len(view.UnreadablePages) > 0 {
		fmt.Fprintf(&b, "\nUnreadable pages: %v", view.UnreadablePages)
	}
	if len(view.Pages) > 0 {
		rows := make([][]string, 0, len(view.Pages))
		for idx, text := range view.Pages {
			rows = append(rows, []string{strconv.Itoa(idx + 1), orDash(text)})
		}
		b.WriteString("\n")
		b.WriteString(renderTable([]string{"Page", "Text"}, rows, nil))
	}
	return b.String()
}
