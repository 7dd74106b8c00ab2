package commit

import (
	"path/filepath"
	"strings"

	"scoreflow/internal/metadata"
)

// Overrides are reviewer-supplied values that beat anything extracted.
// Blank strings mean "no override".
type Overrides struct {
	Title        string                        `json:"title,omitempty"`
	Subtitle     string                        `json:"subtitle,omitempty"`
	Composer     string                        `json:"composer,omitempty"`
	Arranger     string                        `json:"arranger,omitempty"`
	Publisher    string                        `json:"publisher,omitempty"`
	EnsembleType string                        `json:"ensembleType,omitempty"`
	Instrument   string                        `json:"instrument,omitempty"`
	Parts        []metadata.CuttingInstruction `json:"parts,omitempty"`
}

func firstNonBlank(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// resolveField applies override > normalized > raw.
func resolveField(override string, field metadata.Field) string {
	return firstNonBlank(override, field.Normalized, field.Raw)
}

// resolveTitle applies override > normalized > raw > file name.
func resolveTitle(override string, field metadata.Field, fileName string) string {
	if title := resolveField(override, field); title != "" {
		return title
	}
	return titleFromFileName(fileName)
}

func titleFromFileName(fileName string) string {
	base := filepath.Base(strings.TrimSpace(fileName))
	base = strings.TrimSuffix(base, filepath.Ext(base))
	base = strings.NewReplacer("_", " ", "-", " ").Replace(base)
	if title := metadata.NormalizeTitle(base); title != "" && title != "." {
		return title
	}
	return "Untitled"
}

type resolvedFields struct {
	Title        string
	Subtitle     string
	Composer     string
	Arranger     string
	Publisher    string
	EnsembleType string
}

func resolveFields(o Overrides, n metadata.Normalized, fileName string) resolvedFields {
	return resolvedFields{
		Title:        resolveTitle(o.Title, n.Title, fileName),
		Subtitle:     resolveField(o.Subtitle, n.Subtitle),
		Composer:     resolveField(o.Composer, n.Composer),
		Arranger:     resolveField(o.Arranger, n.Arranger),
		Publisher:    resolveField(o.Publisher, n.Publisher),
		EnsembleType: resolveField(o.EnsembleType, n.EnsembleType),
	}
}

// inferredInstrumentLabel picks the label for a single-part upload.
func inferredInstrumentLabel(o Overrides, raw *metadata.Extracted) string {
	if label := firstNonBlank(o.Instrument); label != "" {
		return label
	}
	if raw == nil {
		return ""
	}
	switch raw.FileType {
	case metadata.FileTypeFullScore, metadata.FileTypeScoreSet:
		return "Full Score"
	}
	return ""
}
