package effort

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"github.com/zulandar/sprintyard/internal/models"
	"gorm.io/gorm"
)

// ErrNotStarted is returned for a daily burndown of a sprint that has no
// start date yet.
var ErrNotStarted = errors.New("effort: sprint has not started")

const (
	labelStart   = "Start"
	labelCurrent = "Current Sprint"
)

// Chart is an ideal-versus-actual burndown. Series may be shorter than
// Categories: the actual line stops at today or at zero.
type Chart struct {
	Categories    []string  `json:"categories"`
	Ideal         []float64 `json:"ideal"`
	Actual        []int     `json:"actual"`
	PossibleDelay bool      `json:"possible_delay"`
	EarlierFinish bool      `json:"earlier_finish"`
}

// IdealSeries returns steps+1 evenly spaced points from total down to zero,
// rounded half-even to two decimals. A non-positive step count yields nil.
func IdealSeries(total, steps int) []float64 {
	if steps <= 0 {
		return nil
	}
	e := decimal.NewFromInt(int64(total))
	per := e.Div(decimal.NewFromInt(int64(steps)))
	out := make([]float64, steps+1)
	for i := range out {
		v := e.Sub(per.Mul(decimal.NewFromInt(int64(i)))).RoundBank(2)
		if v.IsNegative() {
			v = decimal.Zero
		}
		out[i], _ = v.Float64()
	}
	return out
}

// ProjectBurndown charts the project's remaining effort across its finished
// sprints. The ideal line spans the estimated sprints needed; the actual line
// subtracts each finished sprint's velocity and, while a sprint is active,
// the live velocity of that sprint as a final "Current Sprint" point.
func ProjectBurndown(db *gorm.DB, p models.Project) (*Chart, error) {
	total, err := TotalEffort(db, p.ID)
	if err != nil {
		return nil, err
	}
	estimated, err := EstimatedTotalEffort(db, p.ID)
	if err != nil {
		return nil, err
	}

	var finished []models.Sprint
	if err := db.Where("project_id = ? AND status = ?", p.ID, models.SprintFinished).
		Order("number ASC").Find(&finished).Error; err != nil {
		return nil, fmt.Errorf("effort: finished sprints of project %s: %w", p.ID, err)
	}
	var active []models.Sprint
	if err := db.Where("project_id = ? AND status = ?", p.ID, models.SprintActive).
		Limit(1).Find(&active).Error; err != nil {
		return nil, fmt.Errorf("effort: active sprint of project %s: %w", p.ID, err)
	}

	chart := &Chart{Actual: []int{total}}
	if n, ok := EstimatedSprintsNeeded(total, estimated, p.TeamVelocity); ok {
		chart.Ideal = IdealSeries(total, n)
	}

	remaining := total
	for _, s := range finished {
		if remaining <= 0 {
			break
		}
		remaining = max(remaining-s.Velocity, 0)
		chart.Actual = append(chart.Actual, remaining)
	}
	current := -1
	if len(active) == 1 && remaining > 0 {
		live, err := Velocity(db, active[0].ID)
		if err != nil {
			return nil, err
		}
		remaining = max(remaining-live, 0)
		chart.Actual = append(chart.Actual, remaining)
		current = len(chart.Actual) - 1
	}

	points := max(len(chart.Ideal), len(chart.Actual))
	chart.Categories = make([]string, points)
	chart.Categories[0] = labelStart
	for i := 1; i < points; i++ {
		chart.Categories[i] = fmt.Sprintf("Sprint %d", i)
	}
	if current > 0 {
		chart.Categories[current] = labelCurrent
	}

	last := len(chart.Actual) - 1
	if last < len(chart.Ideal) && chart.Ideal[last] > 0 && float64(chart.Actual[last]) > chart.Ideal[last] {
		chart.PossibleDelay = true
	}
	return chart, nil
}

// SprintBurndown charts a started sprint day by day. The first point is the
// sprint's effort; each following point is one calendar day, labelled with
// its weekday, with the last day marked as the finish. The actual line burns
// done items on the day they were last moved and stops at now.
func SprintBurndown(db *gorm.DB, s models.Sprint, now time.Time) (*Chart, error) {
	if s.StartDate == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotStarted, s.ID)
	}
	total, err := SprintEffort(db, s.ID)
	if err != nil {
		return nil, err
	}
	done, err := DoneItems(db, s.ID)
	if err != nil {
		return nil, err
	}

	days := max(s.Duration, 1) * 7
	loc := now.Location()
	start := dayOf(*s.StartDate, loc)
	today := dayOf(now, loc)

	chart := &Chart{
		Categories: make([]string, days+2),
		Actual:     []int{total},
	}
	chart.Categories[0] = labelStart
	for d := 0; d <= days; d++ {
		chart.Categories[d+1] = start.AddDate(0, 0, d).Weekday().String()[:3]
	}
	chart.Categories[days+1] += " (Finish)"

	burned := map[time.Time]int{}
	for _, it := range done {
		burned[dayOf(it.LastMoved, loc)] += it.Effort
	}
	remaining := total
	for d := 0; d <= days && remaining > 0; d++ {
		day := start.AddDate(0, 0, d)
		if day.After(today) {
			break
		}
		remaining = max(remaining-burned[day], 0)
		chart.Actual = append(chart.Actual, remaining)
	}

	// Ideal burn spreads the effort evenly over every day including the finish.
	chart.Ideal = IdealSeries(total, days+1)

	if s.Status == models.SprintActive {
		last := len(chart.Actual) - 1
		if float64(chart.Actual[last]) > chart.Ideal[last] {
			chart.PossibleDelay = true
		}
		if total > 0 && chart.Actual[last] == 0 && len(chart.Actual) < len(chart.Ideal) {
			chart.EarlierFinish = true
		}
	}
	return chart, nil
}

// DayCount is the number and effort of items completed on one day.
type DayCount struct {
	Date   string `json:"date"`
	Items  int    `json:"items"`
	Effort int    `json:"effort"`
}

// TasksDoneByDate groups the sprint's done items by the calendar day they
// were last moved, oldest first.
func TasksDoneByDate(db *gorm.DB, sprintID string) ([]DayCount, error) {
	done, err := DoneItems(db, sprintID)
	if err != nil {
		return nil, err
	}
	var out []DayCount
	for _, it := range done {
		date := it.LastMoved.Format(time.DateOnly)
		if n := len(out); n > 0 && out[n-1].Date == date {
			out[n-1].Items++
			out[n-1].Effort += it.Effort
			continue
		}
		out = append(out, DayCount{Date: date, Items: 1, Effort: it.Effort})
	}
	return out, nil
}

func dayOf(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
