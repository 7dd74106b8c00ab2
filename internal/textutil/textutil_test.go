package textutil

import (
	"math"
	"testing"
)

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Bb Clarinet", "bb-clarinet"},
		{"  Horn in F  ", "horn-in-f"},
		{"Flügelhorn", "flugelhorn"},
		{"Baritone T.C.", "baritone-t-c"},
		{"B♭ Trumpet", "bb-trumpet"},
		{"---", "unknown"},
		{"", "unknown"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSanitizeFileName(t *testing.T) {
	if got := SanitizeFileName(` march: "final"/v2?.pdf `); got != "march- final-v2.pdf" {
		t.Fatalf("SanitizeFileName = %q", got)
	}
	if got := SanitizeFileName("   "); got != "" {
		t.Fatalf("blank name = %q", got)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b *Fingerprint
		want float64
	}{
		{"nil", nil, NewFingerprint("stars stripes"), 0},
		{"identical", NewFingerprint("Stars and Stripes Forever", "Sousa"), NewFingerprint("stars and stripes forever", "SOUSA"), 1},
		{"disjoint", NewFingerprint("Washington Post"), NewFingerprint("Liberty Bell"), 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CosineSimilarity(tt.a, tt.b); math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("CosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}

	partial := CosineSimilarity(NewFingerprint("Stars and Stripes Forever"), NewFingerprint("Stars and Stripes"))
	if partial <= 0 || partial >= 1 {
		t.Fatalf("partial overlap = %v", partial)
	}
}

func TestTokenizeDropsShortTokens(t *testing.T) {
	got := Tokenize("A Mighty Fortress Is Our God")
	want := []string{"mighty", "fortress", "our", "god"}
	if len(got) != len(want) {
		t.Fatalf("Tokenize = %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("Tokenize = %v", got)
		}
	}
	if NewFingerprint("a b") != nil {
		t.Fatal("expected nil fingerprint for short tokens")
	}
}
