package main

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/zulandar/sprintyard/internal/effort"
)

func TestTruncate(t *testing.T) {
	tests := []struct {
		in   string
		n    int
		want string
	}{
		{"short", 10, "short"},
		{"exactly10!", 10, "exactly10!"},
		{"a longer title here", 10, "a longe..."},
		{"äöüäöü", 4, "ä..."},
		{"abcdef", 3, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.n); got != tt.want {
			t.Errorf("truncate(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.want)
		}
	}
}

func TestFormatOptional(t *testing.T) {
	if got := formatOptional(nil); got != "-" {
		t.Errorf("nil = %q, want -", got)
	}
	n := 4
	if got := formatOptional(&n); got != "4" {
		t.Errorf("4 = %q", got)
	}
}

func TestFormatDate(t *testing.T) {
	if got := formatDate(nil); got != "-" {
		t.Errorf("nil = %q", got)
	}
	d := time.Date(2026, 10, 5, 12, 0, 0, 0, time.Local)
	if got := formatDate(&d); got != "2026-10-05" {
		t.Errorf("date = %q", got)
	}
}

func TestScaleBar(t *testing.T) {
	if got := scaleBar(10, 10); len(got) != chartWidth {
		t.Errorf("full bar = %d chars, want %d", len(got), chartWidth)
	}
	if got := scaleBar(1, 1000); got != "#" {
		t.Errorf("tiny bar = %q, want single mark", got)
	}
	if got := scaleBar(0, 10); got != "" {
		t.Errorf("zero bar = %q", got)
	}
}

func TestRenderChart(t *testing.T) {
	var buf bytes.Buffer
	err := renderChart(&buf, &effort.Chart{
		Categories:    []string{"Start", "Sprint 1", "Sprint 2"},
		Ideal:         []float64{10, 5, 0},
		Actual:        []int{10, 7},
		PossibleDelay: true,
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"Start", "Sprint 2", "5.00", "7", "possible delay"} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in:\n%s", want, out)
		}
	}
	lines := strings.Split(strings.TrimSpace(out), "\n")
	if !strings.Contains(lines[3], "-") {
		t.Errorf("row without actual should show '-': %q", lines[3])
	}
}
