package plugin

import (
	"errors"
	"fmt"
	"strings"

	"github.com/robfig/cron/v3"
)

// ErrInvalidSchedule is returned for schedules that are neither a known
// alias nor a valid five-field cron expression.
var ErrInvalidSchedule = errors.New("invalid schedule")

// scheduleAliases expand named schedules to five-field cron equivalents.
var scheduleAliases = map[string]string{
	"hourly": "0 * * * *",
	"daily":  "0 0 * * *",
	"weekly": "0 0 * * 0",
}

// cronParser matches the scheduler's parser: standard five fields.
var cronParser = cron.NewParser(
	cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow,
)

// ExpandSchedule resolves aliases ("hourly", "@daily") to cron expressions
// and passes real cron expressions through untouched.
func ExpandSchedule(schedule string) string {
	alias := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(
		strings.TrimSpace(schedule), "@")))
	if expr, ok := scheduleAliases[alias]; ok {
		return expr
	}
	return strings.TrimSpace(schedule)
}

// ValidateSchedule checks that a schedule parses after alias expansion.
func ValidateSchedule(schedule string) error {
	if _, err := cronParser.Parse(ExpandSchedule(schedule)); err != nil {
		return fmt.Errorf("%w: %q: %w", ErrInvalidSchedule, schedule, err)
	}
	return nil
}
