package ui

import (
	"bytes"
	"strings"
	"testing"
)

func TestProgressBar(t *testing.T) {
	tests := []struct {
		theme              string
		done, total, width int
		want               string
	}{
		{"classic", 0, 0, 10, "[░░░░░░░░░░] 0/0"},
		{"classic", 5, 10, 10, "[█████░░░░░] 5/10"},
		{"classic", 10, 10, 10, "[██████████] 10/10"},
		{"classic", 1, 4, 0, "[" + strings.Repeat("█", 7) + strings.Repeat("░", 21) + "] 1/4"},
		{"mono", 1, 2, 4, "[##..] 1/2"},
		{"mono", 9, 3, 3, "[###] 9/3"},
	}
	defer SetTheme("classic")
	for _, tt := range tests {
		SetTheme(tt.theme)
		if got := ProgressBar(tt.done, tt.total, tt.width); got != tt.want {
			t.Errorf("%s ProgressBar(%d, %d, %d) = %q, want %q", tt.theme, tt.done, tt.total, tt.width, got, tt.want)
		}
	}
}

func TestMonoThemePanel(t *testing.T) {
	SetTheme("mono")
	defer SetTheme("classic")

	out := Panel([]string{"hello", "world"})
	if !strings.HasPrefix(out, "+") || !strings.Contains(out, "| hello") {
		t.Fatalf("unexpected mono panel:\n%s", out)
	}
	if Current().BoxChecked != "[x]" {
		t.Fatalf("mono theme not applied")
	}
}

func TestOutputHelpers(t *testing.T) {
	SetTheme("mono")
	defer SetTheme("classic")

	var buf bytes.Buffer
	OK(&buf, "added")
	Fail(&buf, "nope")
	Hint(&buf, "try again")
	want := "x added\n✖ nope\ntry again\n"
	if buf.String() != want {
		t.Fatalf("output = %q, want %q", buf.String(), want)
	}
}

func TestHeaderCounts(t *testing.T) {
	SetTheme("mono")
	defer SetTheme("classic")

	if got := Header(2, 3); got != "Todos  x 2  - 3  Total 5" {
		t.Fatalf("Header = %q", got)
	}
}
