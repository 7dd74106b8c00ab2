package commit

import (
	"testing"

	"scoreflow/internal/metadata"
)

func TestResolveFieldPrecedence(t *testing.T) {
	field := metadata.Field{Raw: "sousa, john", Normalized: "John Sousa"}
	tests := []struct {
		name     string
		override string
		field    metadata.Field
		want     string
	}{
		{"override wins", "J. P. Sousa", field, "J. P. Sousa"},
		{"blank override ignored", "   ", field, "John Sousa"},
		{"normalized before raw", "", field, "John Sousa"},
		{"raw when not normalized", "", metadata.Field{Raw: " sousa "}, "sousa"},
		{"nothing", "", metadata.Field{}, ""},
	}
	for _, tt := range tests {
		if got := resolveField(tt.override, tt.field); got != tt.want {
			t.Errorf("%s: resolveField = %q, want %q", tt.name, got, tt.want)
		}
	}
}

func TestResolveTitleFallsBackToFileName(t *testing.T) {
	tests := []struct {
		fileName string
		want     string
	}{
		{"uploads/the_washington-post.pdf", "The Washington Post"},
		{"march.PDF", "March"},
		{"", "Untitled"},
	}
	for _, tt := range tests {
		if got := resolveTitle("", metadata.Field{}, tt.fileName); got != tt.want {
			t.Errorf("resolveTitle(%q) = %q, want %q", tt.fileName, got, tt.want)
		}
	}
	if got := resolveTitle("", metadata.Field{Raw: "raw title"}, "file.pdf"); got != "raw title" {
		t.Errorf("raw should beat file name, got %q", got)
	}
}
