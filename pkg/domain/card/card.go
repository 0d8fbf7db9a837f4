// Package card defines the board card aggregate and its value objects.
package card

import (
	"time"
)

// Card is a unit of work tracked on the board. It occupies exactly one
// column at a time and carries a completion percentage.
type Card struct {
	ID           int        `json:"id"`
	Team         int        `json:"team,omitempty"`
	Title        string     `json:"title"`
	Column       Column     `json:"column"`
	Priority     Priority   `json:"priority,omitempty"`
	Deadline     string     `json:"deadline,omitempty"`
	Progress     int        `json:"progress"`
	AssignedTo   *int       `json:"assigned_to,omitempty"`
	SprintStart  *time.Time `json:"sprint_start,omitempty"`
	SprintFinish *time.Time `json:"sprint_finish,omitempty"`
}

// Normalize repairs partial server records in place: progress is clamped
// to [0,100] and missing column/priority values get their defaults.
func (c *Card) Normalize() {
	if c.Progress < 0 {
		c.Progress = 0
	}
	if c.Progress > 100 {
		c.Progress = 100
	}
	if !c.Column.IsValid() {
		c.Column = ColumnBacklog
	}
	if c.Priority != "" && !c.Priority.IsValid() {
		c.Priority = PriorityMedium
	}
}

// IsAssignedTo returns true if the card is assigned to the given member.
func (c *Card) IsAssignedTo(memberID int) bool {
	return c.AssignedTo != nil && *c.AssignedTo == memberID
}

// SprintExpired returns true if the sprint finish date has passed while
// the card is still outside the backlog.
func (c *Card) SprintExpired(now time.Time) bool {
	if c.SprintFinish == nil {
		return false
	}
	return c.SprintFinish.Before(now) && c.Column != ColumnBacklog
}

// DisplayTitle returns the card title, or a placeholder when unset.
func (c *Card) DisplayTitle() string {
	if c.Title == "" {
		return "Untitled"
	}
	return c.Title
}

// Patch describes a partial card update. Nil fields are left untouched
// by the server.
type Patch struct {
	Title        *string    `json:"title,omitempty"`
	Column       *Column    `json:"column,omitempty"`
	Priority     *Priority  `json:"priority,omitempty"`
	Deadline     *string    `json:"deadline,omitempty"`
	Progress     *int       `json:"progress,omitempty"`
	AssignedTo   *int       `json:"assigned_to,omitempty"`
	SprintStart  *time.Time `json:"sprint_start,omitempty"`
	SprintFinish *time.Time `json:"sprint_finish,omitempty"`
}

// Apply copies the non-nil patch fields onto the card.
func (p Patch) Apply(c *Card) {
	if p.Title != nil {
		c.Title = *p.Title
	}
	if p.Column != nil {
		c.Column = *p.Column
	}
	if p.Priority != nil {
		c.Priority = *p.Priority
	}
	if p.Deadline != nil {
		c.Deadline = *p.Deadline
	}
	if p.Progress != nil {
		c.Progress = *p.Progress
	}
	if p.AssignedTo != nil {
		c.AssignedTo = p.AssignedTo
	}
	if p.SprintStart != nil {
		c.SprintStart = p.SprintStart
	}
	if p.SprintFinish != nil {
		c.SprintFinish = p.SprintFinish
	}
}
