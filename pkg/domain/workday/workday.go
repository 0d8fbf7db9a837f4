// Package workday models the per-user work session that gates progress
// mutations on the board.
package workday

import (
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/kanbanize/pkg/domain/card"
)

// Cooldown is the minimum interval between two workday starts.
const Cooldown = 24 * time.Hour

// Session is a user-scoped start/end interval. At most one session per
// user may be open (EndTime nil) at a time.
type Session struct {
	ID           int        `json:"id"`
	StartTime    time.Time  `json:"start_time"`
	EndTime      *time.Time `json:"end_time,omitempty"`
	WorkingHours string     `json:"working_hours,omitempty"`
}

// Open reports whether the session has not been ended yet.
func (s *Session) Open() bool {
	return s.EndTime == nil
}

// Latest returns the session with the most recent start time, or nil
// for an empty list. The API does not guarantee ordering.
func Latest(sessions []Session) *Session {
	var latest *Session
	for i := range sessions {
		if latest == nil || sessions[i].StartTime.After(latest.StartTime) {
			latest = &sessions[i]
		}
	}
	return latest
}

// CanStart reports whether a new session may start: either no previous
// start is known, or the cool-down has fully elapsed.
func CanStart(now, lastStart time.Time) bool {
	if lastStart.IsZero() {
		return true
	}
	return now.Sub(lastStart) >= Cooldown
}

// WaitMinutes returns the remaining cool-down, rounded up to whole
// minutes, for reporting rejected start attempts.
func WaitMinutes(now, lastStart time.Time) int {
	remaining := Cooldown - now.Sub(lastStart)
	if remaining <= 0 {
		return 0
	}
	return int((remaining + time.Minute - 1) / time.Minute)
}

// FormatElapsed renders a duration as HH:MM:SS. Hours are not wrapped
// at 24 so long sessions stay readable.
func FormatElapsed(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	total := int(d / time.Second)
	return fmt.Sprintf("%02d:%02d:%02d", total/3600, (total/60)%60, total%60)
}

// Summary enumerates each visible task's title and progress for the
// end-of-day notification.
func Summary(cards []card.Card) string {
	if len(cards) == 0 {
		return "No tasks assigned"
	}
	parts := make([]string, 0, len(cards))
	for i := range cards {
		parts = append(parts, fmt.Sprintf("%s: %d%%", cards[i].DisplayTitle(), cards[i].Progress))
	}
	return strings.Join(parts, ", ")
}
