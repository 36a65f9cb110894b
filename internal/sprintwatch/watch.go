// Package sprintwatch runs the background sweep for active sprints that
// ran past their planned end date.
package sprintwatch

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/zulandar/sprintyard/internal/config"
	"github.com/zulandar/sprintyard/internal/effort"
	"github.com/zulandar/sprintyard/internal/project"
	"github.com/zulandar/sprintyard/internal/sprint"
	"github.com/zulandar/sprintyard/internal/telegraph"
	"gorm.io/gorm"
)

// Opts configures a Watcher.
type Opts struct {
	DB         *gorm.DB
	Schedule   string // 5-field cron expression
	AutoFinish bool
	Notifier   *telegraph.Broadcaster
	Out        io.Writer
	Now        func() time.Time
}

// Result summarizes one sweep.
type Result struct {
	Overdue  int
	Notified int
	Finished []*sprint.FinishResult
}

// Watcher detects overdue sprints on a cron schedule.
type Watcher struct {
	db         *gorm.DB
	schedule   cron.Schedule
	autoFinish bool
	notify     *telegraph.Broadcaster
	out        io.Writer
	now        func() time.Time

	// notified remembers the day each sprint was last reported overdue so
	// the reminder goes out once a day.
	notified map[string]string
}

// New validates opts and creates a Watcher.
func New(opts Opts) (*Watcher, error) {
	if opts.DB == nil {
		return nil, fmt.Errorf("sprintwatch: db is required")
	}
	sched, err := config.ParseSchedule(opts.Schedule)
	if err != nil {
		return nil, fmt.Errorf("sprintwatch: schedule %q: %w", opts.Schedule, err)
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Watcher{
		db:         opts.DB,
		schedule:   sched,
		autoFinish: opts.AutoFinish,
		notify:     opts.Notifier,
		out:        opts.Out,
		now:        opts.Now,
		notified:   map[string]string{},
	}, nil
}

// Run sweeps immediately and then at every scheduled time until ctx is
// cancelled. Sweep errors are logged and do not stop the loop.
func (w *Watcher) Run(ctx context.Context) error {
	fmt.Fprintf(w.out, "Sprint watcher starting (auto-finish %t)...\n", w.autoFinish)
	defer fmt.Fprintf(w.out, "Sprint watcher stopped.\n")

	for {
		if _, err := w.Sweep(ctx); err != nil {
			log.Printf("sprintwatch: sweep: %v", err)
		}

		next := w.schedule.Next(w.now())
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(time.Until(next)):
		}
	}
}

// Sweep handles every currently overdue sprint once.
func (w *Watcher) Sweep(ctx context.Context) (*Result, error) {
	at := w.now()
	overdue, err := sprint.Overdue(w.db, at)
	if err != nil {
		return nil, err
	}

	res := &Result{Overdue: len(overdue)}
	day := at.Format(time.DateOnly)
	for _, s := range overdue {
		p, err := project.Get(w.db, s.ProjectID)
		if err != nil {
			log.Printf("sprintwatch: sprint %s: %v", s.ID, err)
			continue
		}

		if w.autoFinish {
			fin, err := project.FinishSprint(w.db, s.ID)
			if err != nil {
				log.Printf("sprintwatch: finish %s: %v", s.ID, err)
				continue
			}
			if fin == nil {
				continue
			}
			res.Finished = append(res.Finished, fin)
			delete(w.notified, s.ID)
			fmt.Fprintf(w.out, "Finished overdue sprint %d of %s (velocity %d, %d carried over)\n",
				fin.Sprint.Number, p.Title, fin.Sprint.Velocity, fin.CarriedOver)
			if w.announce(ctx, telegraph.FormatSprintFinished(*p, fin)) {
				res.Notified++
			}
			continue
		}

		if w.notified[s.ID] == day {
			continue
		}
		remaining, err := remainingEffort(w.db, s.ID)
		if err != nil {
			log.Printf("sprintwatch: sprint %s: %v", s.ID, err)
			continue
		}
		fmt.Fprintf(w.out, "Sprint %d of %s is overdue (%d effort remaining)\n", s.Number, p.Title, remaining)
		if w.announce(ctx, telegraph.FormatSprintOverdue(*p, s, remaining, at)) {
			res.Notified++
		}
		w.notified[s.ID] = day
	}
	return res, nil
}

// remainingEffort is the effort of the sprint not yet done.
func remainingEffort(db *gorm.DB, sprintID string) (int, error) {
	total, err := effort.SprintEffort(db, sprintID)
	if err != nil {
		return 0, err
	}
	done, err := effort.Velocity(db, sprintID)
	if err != nil {
		return 0, err
	}
	return total - done, nil
}

func (w *Watcher) announce(ctx context.Context, evt telegraph.FormattedEvent) bool {
	if w.notify.Len() == 0 {
		return false
	}
	if err := w.notify.Notify(ctx, evt); err != nil {
		log.Printf("sprintwatch: notify %q: %v", evt.Title, err)
		return false
	}
	return true
}
