package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/zulandar/sprintyard/internal/effort"
)

// chartWidth is the width of the longest burndown bar.
const chartWidth = 30

// truncate shortens s to n runes, marking the cut with "...".
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	if n <= 3 {
		return string(r[:n])
	}
	return string(r[:n-3]) + "..."
}

// formatOptional renders a value that may be unknown.
func formatOptional(n *int) string {
	if n == nil {
		return "-"
	}
	return fmt.Sprintf("%d", *n)
}

func formatDate(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateOnly)
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// renderChart prints a burndown as one row per category with the ideal
// value, the actual value and a bar scaled to the starting effort.
func renderChart(out io.Writer, c *effort.Chart) error {
	top := 0
	if len(c.Actual) > 0 {
		top = c.Actual[0]
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "POINT\tIDEAL\tACTUAL\t")
	for i, cat := range c.Categories {
		ideal, actual, bar := "-", "-", ""
		if i < len(c.Ideal) {
			ideal = fmt.Sprintf("%.2f", c.Ideal[i])
		}
		if i < len(c.Actual) {
			actual = fmt.Sprintf("%d", c.Actual[i])
			bar = scaleBar(c.Actual[i], top)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", cat, ideal, actual, bar)
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if c.PossibleDelay {
		fmt.Fprintln(out, "\nBehind the ideal line: possible delay.")
	}
	if c.EarlierFinish {
		fmt.Fprintln(out, "\nAll effort burned: earlier finish.")
	}
	return nil
}

func scaleBar(v, top int) string {
	if top <= 0 || v <= 0 {
		return ""
	}
	n := max(v*chartWidth/top, 1)
	return strings.Repeat("#", n)
}
