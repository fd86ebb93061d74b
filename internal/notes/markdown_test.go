package notes

import (
	"strings"
	"testing"
)

func TestRenderMarkdown(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
		deny string
	}{
		{"empty", "   ", "", ""},
		{"paragraph", "hello", "<p>hello</p>", ""},
		{"emphasis", "**bold**", "<strong>bold</strong>", ""},
		{"hard wrap", "a\nb", "<br", ""},
		{"raw html dropped", "<script>alert(1)</script>", "", "<script>"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RenderMarkdown(tt.in)
			if tt.want == "" && tt.deny == "" && got != "" {
				t.Fatalf("expected empty output, got %q", got)
			}
			if tt.want != "" && !strings.Contains(got, tt.want) {
				t.Fatalf("RenderMarkdown(%q) = %q, want %q", tt.in, got, tt.want)
			}
			if tt.deny != "" && strings.Contains(got, tt.deny) {
				t.Fatalf("RenderMarkdown(%q) = %q, must not contain %q", tt.in, got, tt.deny)
			}
		})
	}
}
