// Package urgency derives the staff-facing severity tier of an order from
// its age.
package urgency

import (
	"time"

	"github.com/orderin/api/internal/enum"
)

type Level string

const (
	Normal   Level = enum.UrgencyNormal
	Warning  Level = enum.UrgencyWarning
	Urgent   Level = enum.UrgencyUrgent
	Critical Level = enum.UrgencyCritical
)

// Tier thresholds in whole minutes; each bound is exclusive.
const (
	warningAfter  = 15
	urgentAfter   = 30
	criticalAfter = 45
)

// ElapsedMinutes is floor((now - createdAt) / 1m). Orders stamped in the
// future count as zero.
func ElapsedMinutes(createdAt, now time.Time) int {
	d := now.Sub(createdAt)
	if d < 0 {
		return 0
	}
	return int(d / time.Minute)
}

// Classify must be called on every observation; the result changes as now
// advances.
func Classify(createdAt, now time.Time) Level {
	m := ElapsedMinutes(createdAt, now)
	switch {
	case m > criticalAfter:
		return Critical
	case m > urgentAfter:
		return Urgent
	case m > warningAfter:
		return Warning
	}
	return Normal
}

// Rank orders levels for sorting, Normal lowest.
func (l Level) Rank() int {
	switch l {
	case Warning:
		return 1
	case Urgent:
		return 2
	case Critical:
		return 3
	}
	return 0
}
