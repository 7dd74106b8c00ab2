package instruments

import (
	"slices"
	"strings"
)

// Section groups instruments for catalogue display and part ordering.
type Section string

const (
	SectionWoodwinds  Section = "Woodwinds"
	SectionBrass      Section = "Brass"
	SectionPercussion Section = "Percussion"
	SectionStrings    Section = "Strings"
	SectionKeyboard   Section = "Keyboard"
	SectionVocals     Section = "Vocals"
	SectionScore      Section = "Score"
	SectionOther      Section = "Other"
)

// Transposition is the written key of an instrument.
type Transposition string

const (
	TranspositionC  Transposition = "C"
	TranspositionBb Transposition = "Bb"
	TranspositionEb Transposition = "Eb"
	TranspositionF  Transposition = "F"
	TranspositionG  Transposition = "G"
	TranspositionD  Transposition = "D"
	TranspositionA  Transposition = "A"
)

// Transpositions lists every supported transposition.
func Transpositions() []Transposition {
	return []Transposition{
		TranspositionC, TranspositionBb, TranspositionEb, TranspositionF,
		TranspositionG, TranspositionD, TranspositionA,
	}
}

// Instrument is one canonical registry entry.
type Instrument struct {
	Name          string
	Transposition Transposition
	Section       Section
	Aliases       []string
}

// Registry is an immutable alias index over the canonical instruments. Build
// it once with NewRegistry and share the pointer; it holds no per-session
// state and is safe for concurrent use.
type Registry struct {
	instruments []Instrument
	byAlias     map[string]int
}

// NewRegistry builds the alias index from the built-in instrument table.
func NewRegistry() *Registry {
	return newRegistry(builtinInstruments)
}

func newRegistry(entries []Instrument) *Registry {
	r := &Registry{
		instruments: make([]Instrument, len(entries)),
		byAlias:     make(map[string]int),
	}
	for idx, entry := range entries {
		entry.Aliases = slices.Clone(entry.Aliases)
		r.instruments[idx] = entry
		for _, alias := range entry.Aliases {
			key := normalizeLabel(alias)
			if key == "" {
				continue
			}
			// First registrant wins.
			if _, exists := r.byAlias[key]; !exists {
				r.byAlias[key] = idx
			}
		}
	}
	return r
}

// FindByAlias returns the instrument whose alias exactly matches label after
// trimming and lowercasing.
func (r *Registry) FindByAlias(label string) (Instrument, bool) {
	if r == nil {
		return Instrument{}, false
	}
	idx, ok := r.byAlias[normalizeLabel(label)]
	if !ok {
		return Instrument{}, false
	}
	return r.instruments[idx].clone(), true
}

// FindByFuzzyMatch tries an exact alias match first, then returns the
// instrument owning the longest alias contained in label. Ties go to the
// earlier registry entry.
func (r *Registry) FindByFuzzyMatch(label string) (Instrument, bool) {
	if r == nil {
		return Instrument{}, false
	}
	if inst, ok := r.FindByAlias(label); ok {
		return inst, true
	}
	lowered := normalizeLabel(label)
	if lowered == "" {
		return Instrument{}, false
	}
	best, bestLen := -1, 0
	for idx, inst := range r.instruments {
		for _, alias := range inst.Aliases {
			if len(alias) > bestLen && strings.Contains(lowered, alias) {
				best, bestLen = idx, len(alias)
			}
		}
	}
	if best < 0 {
		return Instrument{}, false
	}
	return r.instruments[best].clone(), true
}

// SectionForLabel resolves label's section, defaulting to Other.
func (r *Registry) SectionForLabel(label string) Section {
	if inst, ok := r.FindByFuzzyMatch(label); ok {
		return inst.Section
	}
	return SectionOther
}

// TranspositionForLabel resolves label's transposition, defaulting to C.
func (r *Registry) TranspositionForLabel(label string) Transposition {
	if inst, ok := r.FindByFuzzyMatch(label); ok {
		return inst.Transposition
	}
	return TranspositionC
}

// All returns a copy of the canonical instruments in registry order.
func (r *Registry) All() []Instrument {
	if r == nil {
		return nil
	}
	out := make([]Instrument, len(r.instruments))
	for i, inst := range r.instruments {
		out[i] = inst.clone()
	}
	return out
}

// Len reports the number of canonical instruments.
func (r *Registry) Len() int {
	if r == nil {
		return 0
	}
	return len(r.instruments)
}

func (i Instrument) clone() Instrument {
	i.Aliases = slices.Clone(i.Aliases)
	return i
}

func normalizeLabel(label string) string {
	return strings.Join(strings.Fields(strings.ToLower(label)), " ")
}
