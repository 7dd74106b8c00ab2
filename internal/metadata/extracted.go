package metadata

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"scoreflow/internal/failure"
)

// FlexString accepts either a JSON string or a JSON number. Recognition
// output is inconsistent about chair numbers ("2" vs 2).
type FlexString string

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("expected string or number: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

// CuttingInstruction describes one part inside a multi-part upload. Page
// numbers are 1-indexed and inclusive.
type CuttingInstruction struct {
	PartName      string     `json:"partName"`
	Instrument    string     `json:"instrument"`
	Transposition string     `json:"transposition,omitempty"`
	Chair         FlexString `json:"chair,omitempty"`
	PageStart     int        `json:"pageStart"`
	PageEnd       int        `json:"pageEnd"`
}

// ValidRange reports whether the page range is usable.
func (c CuttingInstruction) ValidRange() bool {
	return c.PageStart >= 1 && c.PageEnd >= c.PageStart
}

// Extracted is the raw metadata document produced by the recognition
// collaborator.
type Extracted struct {
	Title                  string               `json:"title"`
	Subtitle               string               `json:"subtitle,omitempty"`
	Composer               string               `json:"composer,omitempty"`
	Arranger               string               `json:"arranger,omitempty"`
	Publisher              string               `json:"publisher,omitempty"`
	EnsembleType           string               `json:"ensembleType,omitempty"`
	ConfidenceScore        float64              `json:"confidenceScore"`
	FileType               string               `json:"fileType,omitempty"`
	IsMultiPart            bool                 `json:"isMultiPart,omitempty"`
	CuttingInstructions    []CuttingInstruction `json:"cuttingInstructions,omitempty"`
	SegmentationConfidence *float64             `json:"segmentationConfidence,omitempty"`
	Conflicts              []string             `json:"conflicts,omitempty"`
}

// File classifications reported by the recognition collaborator.
const (
	FileTypeFullScore = "FULL_SCORE"
	FileTypePart      = "PART"
	FileTypeScoreSet  = "SCORE_AND_PARTS"
	FileTypeUnknown   = "UNKNOWN"
)

// ParseExtracted decodes a recognition document. Malformed JSON, confidence
// scores outside 0-100, and unusable page ranges are reported as
// MODEL_SCHEMA_INVALID.
func ParseExtracted(data []byte) (*Extracted, error) {
	var doc Extracted
	dec := json.NewDecoder(bytes.NewReader(data))
	if err := dec.Decode(&doc); err != nil {
		return nil, failure.Wrap(failure.CodeModelSchemaInvalid, failure.StageMetadataExtraction, "decode extraction json", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, failure.Wrap(failure.CodeModelSchemaInvalid, failure.StageMetadataExtraction, "validate extraction", err)
	}
	doc.FileType = normalizeFileType(doc.FileType)
	return &doc, nil
}

// Validate checks score bounds and page ranges.
func (e *Extracted) Validate() error {
	if e == nil {
		return fmt.Errorf("extraction is empty")
	}
	if e.ConfidenceScore < 0 || e.ConfidenceScore > 100 {
		return fmt.Errorf("confidenceScore %v outside 0-100", e.ConfidenceScore)
	}
	if e.SegmentationConfidence != nil && (*e.SegmentationConfidence < 0 || *e.SegmentationConfidence > 100) {
		return fmt.Errorf("segmentationConfidence %v outside 0-100", *e.SegmentationConfidence)
	}
	for idx, ci := range e.CuttingInstructions {
		if !ci.ValidRange() {
			return fmt.Errorf("cuttingInstructions[%d]: invalid page range %d-%d", idx, ci.PageStart, ci.PageEnd)
		}
	}
	return nil
}

func normalizeFileType(value string) string {
	value = strings.ToUpper(strings.TrimSpace(value))
	value = strings.NewReplacer(" ", "_", "-", "_").Replace(value)
	switch value {
	case FileTypeFullScore, FileTypePart, FileTypeScoreSet:
		return value
	case "SCORE":
		return FileTypeFullScore
	default:
		return FileTypeUnknown
	}
}

func formatPages(start, end int) string {
	if start == end {
		return strconv.Itoa(start)
	}
	return strconv.Itoa(start) + "-" + strconv.Itoa(end)
}
