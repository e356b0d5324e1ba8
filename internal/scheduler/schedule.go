package scheduler

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
)

// ErrInvalidSchedule is returned for expressions ParseSchedule cannot read.
var ErrInvalidSchedule = errors.New("invalid schedule")

// Kind distinguishes fixed-interval schedules from calendar schedules.
type Kind int

const (
	// KindInterval runs at a fixed delay from the previous activation.
	KindInterval Kind = iota
	// KindCron runs on calendar boundaries described by a cron expression.
	KindCron
)

func (k Kind) String() string {
	if k == KindInterval {
		return "interval"
	}
	return "cron"
}

// Schedule is a validated schedule expression.
type Schedule struct {
	Kind Kind
	// Every is set for interval schedules.
	Every time.Duration
	// Spec is the cron expression for calendar schedules.
	Spec string

	expr     string
	schedule cron.Schedule
}

var (
	everyPattern = regexp.MustCompile(`^every\s+(\d+)\s+(second|minute|hour)s?$`)
	dailyPattern = regexp.MustCompile(`^daily\s+at\s+(\d{1,2}):(\d{2})$`)
)

// ParseSchedule reads a schedule expression. Accepted forms are
// "every N seconds|minutes|hours", "daily at HH:MM", "@every <duration>",
// the cron descriptors (@hourly, @daily, ...) and standard five-field cron
// expressions.
func ParseSchedule(expr string) (Schedule, error) {
	raw := strings.TrimSpace(expr)
	if raw == "" {
		return Schedule{}, fmt.Errorf("%w: empty expression", ErrInvalidSchedule)
	}
	lower := strings.ToLower(strings.Join(strings.Fields(raw), " "))

	if m := everyPattern.FindStringSubmatch(lower); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil || n <= 0 {
			return Schedule{}, fmt.Errorf("%w: %q: interval must be positive", ErrInvalidSchedule, raw)
		}
		unit := map[string]time.Duration{
			"second": time.Second,
			"minute": time.Minute,
			"hour":   time.Hour,
		}[m[2]]
		return interval(raw, time.Duration(n)*unit)
	}

	if m := dailyPattern.FindStringSubmatch(lower); m != nil {
		hour, _ := strconv.Atoi(m[1])
		minute, _ := strconv.Atoi(m[2])
		if hour > 23 || minute > 59 {
			return Schedule{}, fmt.Errorf("%w: %q: time of day out of range", ErrInvalidSchedule, raw)
		}
		return calendar(raw, fmt.Sprintf("%d %d * * *", minute, hour))
	}

	if rest, ok := strings.CutPrefix(lower, "@every "); ok {
		d, err := time.ParseDuration(strings.TrimSpace(rest))
		if err != nil {
			return Schedule{}, fmt.Errorf("%w: %q: %w", ErrInvalidSchedule, raw, err)
		}
		return interval(raw, d)
	}

	return calendar(raw, raw)
}

func interval(expr string, d time.Duration) (Schedule, error) {
	if d < time.Second {
		return Schedule{}, fmt.Errorf("%w: %q: interval must be at least one second", ErrInvalidSchedule, expr)
	}
	return Schedule{
		Kind:     KindInterval,
		Every:    d,
		expr:     expr,
		schedule: cron.Every(d),
	}, nil
}

func calendar(expr, spec string) (Schedule, error) {
	parsed, err := cron.ParseStandard(spec)
	if err != nil {
		return Schedule{}, fmt.Errorf("%w: %q: %w", ErrInvalidSchedule, expr, err)
	}
	return Schedule{
		Kind:     KindCron,
		Spec:     spec,
		expr:     expr,
		schedule: parsed,
	}, nil
}

// Next returns the first activation after t.
func (s Schedule) Next(t time.Time) time.Time {
	if s.schedule == nil {
		return time.Time{}
	}
	return s.schedule.Next(t)
}

// String returns the expression the schedule was parsed from.
func (s Schedule) String() string {
	return s.expr
}
