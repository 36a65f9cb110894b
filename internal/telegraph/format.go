package telegraph

import (
	"fmt"
	"strings"
	"time"

	"github.com/zulandar/sprintyard/internal/models"
	"github.com/zulandar/sprintyard/internal/sprint"
)

// Color constants for event severity.
const (
	ColorSuccess = "#36a64f"
	ColorInfo    = "#2196f3"
	ColorWarning = "#ff9800"
	ColorError   = "#e53935"
)

// severityColor maps a severity string to a sidebar color.
func severityColor(severity string) string {
	switch severity {
	case "success":
		return ColorSuccess
	case "warning":
		return ColorWarning
	case "error":
		return ColorError
	default:
		return ColorInfo
	}
}

// Progress is the effort burned out of a sprint's committed effort.
type Progress struct {
	Done  int
	Total int
}

// Percent returns Done as a whole percentage of Total, capped at 100.
func (p Progress) Percent() int {
	if p.Total <= 0 {
		return 0
	}
	return min(p.Done*100/p.Total, 100)
}

// Bar renders the progress as a fixed-width text bar.
func (p Progress) Bar(width int) string {
	filled := p.Percent() * width / 100
	return strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
}

// String renders e.g. "13/21 (61%)".
func (p Progress) String() string {
	return fmt.Sprintf("%d/%d (%d%%)", p.Done, p.Total, p.Percent())
}

func sprintName(s models.Sprint, p models.Project) string {
	return fmt.Sprintf("Sprint %d of %s", s.Number, p.Title)
}

func formatDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format(time.DateOnly)
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// FormatSprintStarted formats a sprint start.
func FormatSprintStarted(p models.Project, s models.Sprint) FormattedEvent {
	return FormattedEvent{
		Title:    sprintName(s, p) + " started",
		Body:     s.Goal,
		Severity: "info",
		Color:    ColorInfo,
		Fields: []Field{
			{Name: "Effort", Value: fmt.Sprintf("%d", s.TotalEffort), Short: true},
			{Name: "Weeks", Value: fmt.Sprintf("%d", s.Duration), Short: true},
			{Name: "Ends", Value: formatDate(s.EndDate), Short: true},
		},
		Project: p.Title,
		At:      timeOrZero(s.StartDate),
	}
}

// FormatSprintFinished formats a finished sprint with its velocity and the
// work carried over to the next sprint.
func FormatSprintFinished(p models.Project, res *sprint.FinishResult) FormattedEvent {
	severity := "success"
	if res.CarriedOver > 0 {
		severity = "warning"
	}

	var bodyParts []string
	if res.Sprint.Goal != "" {
		bodyParts = append(bodyParts, res.Sprint.Goal)
	}
	if res.CarriedOver > 0 && res.Next != nil {
		bodyParts = append(bodyParts, fmt.Sprintf("%d item(s) carried over to sprint %d", res.CarriedOver, res.Next.Number))
	}

	fields := []Field{
		{Name: "Velocity", Value: fmt.Sprintf("%d", res.Sprint.Velocity), Short: true},
		{Name: "Completed", Value: fmt.Sprintf("%d", res.Completed), Short: true},
		{Name: "Carried over", Value: fmt.Sprintf("%d", res.CarriedOver), Short: true},
	}
	if res.Next != nil {
		fields = append(fields, Field{Name: "Next sprint", Value: fmt.Sprintf("%d", res.Next.Number), Short: true})
	}

	return FormattedEvent{
		Title:    sprintName(*res.Sprint, p) + " finished",
		Body:     strings.Join(bodyParts, "\n"),
		Severity: severity,
		Color:    severityColor(severity),
		Fields:   fields,
		Project:  p.Title,
		Progress: &Progress{Done: res.Sprint.Velocity, Total: res.Sprint.TotalEffort},
		At:       timeOrZero(res.Sprint.EndDate),
	}
}

// FormatSprintOverdue formats an active sprint that ran past its end date.
func FormatSprintOverdue(p models.Project, s models.Sprint, remaining int, now time.Time) FormattedEvent {
	var late time.Duration
	if s.EndDate != nil {
		late = now.Sub(*s.EndDate).Truncate(time.Hour)
	}
	return FormattedEvent{
		Title:    sprintName(s, p) + " is overdue",
		Body:     fmt.Sprintf("Planned end was %s (%s ago)", formatDate(s.EndDate), late),
		Severity: "error",
		Color:    ColorError,
		Fields: []Field{
			{Name: "Remaining effort", Value: fmt.Sprintf("%d", remaining), Short: true},
			{Name: "Total effort", Value: fmt.Sprintf("%d", s.TotalEffort), Short: true},
		},
		Project:  p.Title,
		Progress: &Progress{Done: max(s.TotalEffort-remaining, 0), Total: s.TotalEffort},
		At:       now,
	}
}
