package pdfprobe

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"rsc.io/pdf"

	"scoreflow/internal/failure"
	"scoreflow/internal/testsupport"
)

func TestProbeMeasuresTextCoverage(t *testing.T) {
	path := testsupport.WritePDF(t, filepath.Join(t.TempDir(), "march.pdf"),
		"Flute 1", "", "Trumpet in Bb", "")

	res, err := Probe(path, 0)
	if err != nil {
		t.Fatalf("Probe: %v", err)
	}
	if res.PageCount != 4 || res.TextPages != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	if res.TextCoverage != 0.5 {
		t.Fatalf("TextCoverage = %v, want 0.5", res.TextCoverage)
	}
	if len(res.UnreadablePages) != 0 {
		t.Fatalf("unexpected unreadable pages %v", res.UnreadablePages)
	}
}

func TestPageText(t *testing.T) {
	path := testsupport.WritePDF(t, filepath.Join(t.TempDir(), "score.pdf"), "Full Score", "2nd Bb Trumpet")
	text, err := PageText(path, 1)
	if err != nil {
		t.Fatalf("PageText: %v", err)
	}
	if text != "Full Score" {
		t.Fatalf("PageText = %q", text)
	}
	if text, err := PageText(path, 2); err != nil || text != "2nd Bb Trumpet" {
		t.Fatalf("PageText(2) = %q, %v", text, err)
	}
	if _, err := PageText(path, 3); err == nil {
		t.Fatal("expected out of range error")
	}
}

func TestJoinGlyphs(t *testing.T) {
	glyph := func(s string, x, y float64) pdf.Text {
		return pdf.Text{FontSize: 10, X: x, Y: y, W: 5, S: s}
	}
	tests := []struct {
		name   string
		glyphs []pdf.Text
		want   string
	}{
		{"adjacent glyphs form a word", []pdf.Text{glyph("O", 0, 700), glyph("b", 5, 700), glyph("o", 10, 700), glyph("e", 15, 700)}, "Oboe"},
		{"gap starts a word", []pdf.Text{glyph("1", 0, 700), glyph("s", 5, 700), glyph("t", 10, 700), glyph("H", 20, 700), glyph("n", 25, 700)}, "1st Hn"},
		{"new line starts a word", []pdf.Text{glyph("A", 0, 700), glyph("B", 5, 680)}, "A B"},
		{"blank runs are skipped", []pdf.Text{glyph("A", 0, 700), glyph("\t", 5, 700), glyph("B", 5, 700)}, "AB"},
		{"empty", nil, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := joinGlyphs(tt.glyphs); got != tt.want {
				t.Fatalf("joinGlyphs = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestProbeRejects(t *testing.T) {
	valid := testsupport.BuildPDF([]string{"Oboe"})
	tests := []struct {
		name     string
		data     []byte
		maxBytes int64
		want     failure.Code
	}{
		{"empty", nil, 0, failure.CodeUploadInvalidFile},
		{"not a pdf", []byte("PK\x03\x04 zip archive"), 0, failure.CodeUploadInvalidFile},
		{"too large", valid, 16, failure.CodeUploadFileTooLarge},
		{"truncated", valid[:len(valid)/2], 0, failure.CodeUploadCorruptFile},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ProbeReader(bytes.NewReader(tt.data), int64(len(tt.data)), tt.maxBytes)
			if err == nil {
				t.Fatal("expected error")
			}
			if got := failure.Classify(err, failure.StageUpload); got != tt.want {
				t.Fatalf("code = %s, want %s (err=%v)", got, tt.want, err)
			}
		})
	}
}

func TestProbeMissingFile(t *testing.T) {
	_, err := Probe(filepath.Join(t.TempDir(), "missing.pdf"), 0)
	if !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("expected wrapped not-exist error, got %v", err)
	}
}
