package metadata

import (
	"strings"

	"scoreflow/internal/instruments"
)

// Field pairs a raw extracted value with its normalized form.
type Field struct {
	Raw        string `json:"raw"`
	Normalized string `json:"normalized"`
}

// Value returns the normalized value, falling back to the trimmed raw one.
func (f Field) Value() string {
	if f.Normalized != "" {
		return f.Normalized
	}
	return strings.TrimSpace(f.Raw)
}

// Part is one normalized part of a multi-part upload.
type Part struct {
	RawInstrument string                    `json:"rawInstrument"`
	RawPartName   string                    `json:"rawPartName"`
	Instrument    string                    `json:"instrument"`
	Section       instruments.Section       `json:"section"`
	Transposition instruments.Transposition `json:"transposition"`
	Chair         string                    `json:"chair,omitempty"`
	PageStart     int                       `json:"pageStart"`
	PageEnd       int                       `json:"pageEnd"`
	Fingerprint   string                    `json:"fingerprint"`
}

// Pages renders the page range as "3" or "3-5".
func (p Part) Pages() string {
	return formatPages(p.PageStart, p.PageEnd)
}

// Normalized is the canonical view of an Extracted document.
type Normalized struct {
	Title        Field  `json:"title"`
	Subtitle     Field  `json:"subtitle"`
	Composer     Field  `json:"composer"`
	Arranger     Field  `json:"arranger"`
	Publisher    Field  `json:"publisher"`
	EnsembleType Field  `json:"ensembleType"`
	Parts        []Part `json:"parts,omitempty"`
}

// Normalizer resolves instrument labels through a shared registry.
type Normalizer struct {
	registry *instruments.Registry
}

// NewNormalizer wraps registry. The registry is read-only so one Normalizer
// may serve every session concurrently.
func NewNormalizer(registry *instruments.Registry) *Normalizer {
	return &Normalizer{registry: registry}
}

// Registry exposes the underlying instrument registry.
func (n *Normalizer) Registry() *instruments.Registry {
	return n.registry
}

// NormalizeInstrument resolves label to a canonical instrument. Unknown labels
// keep their trimmed text (or "Unknown") in section Other, key of C.
func (n *Normalizer) NormalizeInstrument(label string) instruments.Instrument {
	if inst, ok := n.registry.FindByFuzzyMatch(label); ok {
		return inst
	}
	name := collapseSpace(label)
	if name == "" {
		name = "Unknown"
	}
	return instruments.Instrument{
		Name:          name,
		Section:       instruments.SectionOther,
		Transposition: instruments.TranspositionC,
	}
}

// NormalizePart normalizes a single cutting instruction. An explicit
// transposition on the instruction overrides the registry's; a missing chair
// is recovered from the part name when possible.
func (n *Normalizer) NormalizePart(sessionID string, ci CuttingInstruction) Part {
	label := ci.Instrument
	if strings.TrimSpace(label) == "" {
		label = ci.PartName
	}
	inst := n.NormalizeInstrument(label)

	transposition := inst.Transposition
	if strings.TrimSpace(ci.Transposition) != "" {
		transposition = NormalizeTransposition(ci.Transposition)
	}

	chair := NormalizeChair(string(ci.Chair))
	if chair == "" {
		chair = ChairFromLabel(ci.PartName)
	}

	return Part{
		RawInstrument: ci.Instrument,
		RawPartName:   ci.PartName,
		Instrument:    inst.Name,
		Section:       inst.Section,
		Transposition: transposition,
		Chair:         chair,
		PageStart:     ci.PageStart,
		PageEnd:       ci.PageEnd,
		Fingerprint:   GeneratePartFingerprint(sessionID, inst.Name, chair, ci.PageStart, ci.PageEnd),
	}
}

// NormalizeExtracted normalizes every field of raw and every cutting
// instruction. When cutting is empty the instructions embedded in raw are
// used instead.
func (n *Normalizer) NormalizeExtracted(sessionID string, raw *Extracted, cutting []CuttingInstruction) Normalized {
	if raw == nil {
		raw = &Extracted{}
	}
	out := Normalized{
		Title:        Field{Raw: raw.Title, Normalized: NormalizeTitle(raw.Title)},
		Subtitle:     Field{Raw: raw.Subtitle, Normalized: NormalizeTitle(raw.Subtitle)},
		Composer:     Field{Raw: raw.Composer, Normalized: NormalizePersonName(raw.Composer)},
		Arranger:     Field{Raw: raw.Arranger, Normalized: NormalizePersonName(raw.Arranger)},
		Publisher:    Field{Raw: raw.Publisher, Normalized: NormalizePublisher(raw.Publisher)},
		EnsembleType: Field{Raw: raw.EnsembleType, Normalized: NormalizeTitle(raw.EnsembleType)},
	}
	if len(cutting) == 0 {
		cutting = raw.CuttingInstructions
	}
	if len(cutting) > 0 {
		out.Parts = make([]Part, 0, len(cutting))
		for _, ci := range cutting {
			out.Parts = append(out.Parts, n.NormalizePart(sessionID, ci))
		}
	}
	return out
}
