package pdfprobe

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"rsc.io/pdf"

	"scoreflow/internal/failure"
)

// DefaultMaxBytes caps uploads at 200 MiB.
const DefaultMaxBytes int64 = 200 << 20

var pdfMagic = []byte("%PDF-")

// Result summarizes one document.
type Result struct {
	PageCount       int     `json:"pageCount"`
	TextPages       int     `json:"textPages"`
	TextCoverage    float64 `json:"textCoverage"`
	SizeBytes       int64   `json:"sizeBytes"`
	UnreadablePages []int   `json:"unreadablePages,omitempty"`
}

// Probe opens path and measures its text layer. maxBytes <= 0 uses
// DefaultMaxBytes.
func Probe(path string, maxBytes int64) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, failure.Wrap(failure.CodeStorageReadFailed, failure.StageUpload, "open upload", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return Result{}, failure.Wrap(failure.CodeStorageReadFailed, failure.StageUpload, "stat upload", err)
	}
	return ProbeReader(f, info.Size(), maxBytes)
}

// ProbeReader is Probe over an already opened document.
func ProbeReader(r io.ReaderAt, size, maxBytes int64) (Result, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxBytes
	}
	if size <= 0 {
		return Result{}, failure.Wrap(failure.CodeUploadInvalidFile, failure.StageUpload, "upload is empty", nil)
	}
	if size > maxBytes {
		return Result{}, failure.Wrap(failure.CodeUploadFileTooLarge, failure.StageUpload,
			fmt.Sprintf("upload is %d bytes, limit is %d", size, maxBytes), nil)
	}

	header := make([]byte, len(pdfMagic))
	if _, err := r.ReadAt(header, 0); err != nil || !bytes.Equal(header, pdfMagic) {
		return Result{}, failure.Wrap(failure.CodeUploadInvalidFile, failure.StageUpload, "missing %PDF header", err)
	}

	doc, err := openReader(r, size)
	if err != nil {
		if errors.Is(err, pdf.ErrInvalidPassword) || strings.Contains(strings.ToLower(err.Error()), "encrypt") {
			return Result{}, failure.Wrap(failure.CodeUploadEncryptedPDF, failure.StageUpload, "pdf is encrypted", err)
		}
		return Result{}, failure.Wrap(failure.CodeUploadCorruptFile, failure.StageUpload, "parse pdf", err)
	}

	res := Result{SizeBytes: size, PageCount: doc.NumPage()}
	if res.PageCount == 0 {
		return Result{}, failure.Wrap(failure.CodeUploadCorruptFile, failure.StageUpload, "pdf has no pages", nil)
	}
	for num := 1; num <= res.PageCount; num++ {
		hasText, ok := pageHasText(doc, num)
		if !ok {
			res.UnreadablePages = append(res.UnreadablePages, num)
			continue
		}
		if hasText {
			res.TextPages++
		}
	}
	res.TextCoverage = float64(res.TextPages) / float64(res.PageCount)
	return res, nil
}

// openReader converts parser panics on malformed trailers into errors.
func openReader(r io.ReaderAt, size int64) (doc *pdf.Reader, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			doc, err = nil, fmt.Errorf("malformed pdf: %v", rec)
		}
	}()
	return pdf.NewReader(r, size)
}

// pageHasText reports whether page num has any non-blank text. ok is false
// when the content stream could not be decoded.
func pageHasText(doc *pdf.Reader, num int) (hasText, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			hasText, ok = false, false
		}
	}()
	page := doc.Page(num)
	if page.V.IsNull() {
		return false, false
	}
	for _, text := range page.Content().Text {
		if strings.TrimSpace(text.S) != "" {
			return true, true
		}
	}
	return false, true
}

// PageText returns the text of page num. The parser yields one run per glyph
// and drops spaces, so words are rebuilt from glyph positions.
func PageText(path string, num int) (text string, err error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return "", fmt.Errorf("stat pdf: %w", err)
	}
	doc, err := openReader(f, info.Size())
	if err != nil {
		return "", fmt.Errorf("open pdf: %w", err)
	}
	if num < 1 || num > doc.NumPage() {
		return "", fmt.Errorf("page %d out of range 1-%d", num, doc.NumPage())
	}
	defer func() {
		if rec := recover(); rec != nil {
			text, err = "", fmt.Errorf("decode page %d: %v", num, rec)
		}
	}()
	return joinGlyphs(doc.Page(num).Content().Text), nil
}

// wordGapRatio is the horizontal gap, relative to the font size, above which
// two glyphs belong to different words.
const wordGapRatio = 0.15

func joinGlyphs(glyphs []pdf.Text) string {
	var (
		b    strings.Builder
		prev *pdf.Text
	)
	for idx := range glyphs {
		g := &glyphs[idx]
		if strings.TrimSpace(g.S) == "" {
			continue
		}
		if prev != nil {
			lineBreak := math.Abs(g.Y-prev.Y) > prev.FontSize/2
			gap := g.X - (prev.X + prev.W)
			if lineBreak || gap > prev.FontSize*wordGapRatio {
				b.WriteByte(' ')
			}
		}
		b.WriteString(g.S)
		prev = g
	}
	return b.String()
}
