package card

import (
	"encoding/json"
	"fmt"
)

// Column is one of the five fixed board lanes a card occupies.
type Column string

const (
	ColumnBacklog Column = "backlog"
	ColumnTodo    Column = "todo"
	ColumnDoing   Column = "doing"
	ColumnReview  Column = "review"
	ColumnDone    Column = "done"
)

// AllColumns returns the board lanes in display order.
func AllColumns() []Column {
	return []Column{
		ColumnBacklog,
		ColumnTodo,
		ColumnDoing,
		ColumnReview,
		ColumnDone,
	}
}

// IsValid returns true if the column is one of the five fixed lanes.
func (c Column) IsValid() bool {
	switch c {
	case ColumnBacklog, ColumnTodo, ColumnDoing, ColumnReview, ColumnDone:
		return true
	default:
		return false
	}
}

// String returns the wire representation of the column.
func (c Column) String() string {
	return string(c)
}

// DisplayName returns a human-readable lane title.
func (c Column) DisplayName() string {
	switch c {
	case ColumnBacklog:
		return "Backlog"
	case ColumnTodo:
		return "To Do"
	case ColumnDoing:
		return "In Progress"
	case ColumnReview:
		return "Review"
	case ColumnDone:
		return "Done"
	default:
		return string(c)
	}
}

// ParseColumn parses a string into a Column.
func ParseColumn(s string) (Column, error) {
	col := Column(s)
	if !col.IsValid() {
		return "", fmt.Errorf("invalid column: %s", s)
	}
	return col, nil
}

// MarshalJSON implements json.Marshaler interface.
func (c Column) MarshalJSON() ([]byte, error) {
	return json.Marshal(string(c))
}

// UnmarshalJSON implements json.Unmarshaler interface.
func (c *Column) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return err
	}

	// Accept empty string as backlog for partial server records
	if str == "" {
		*c = ColumnBacklog
		return nil
	}

	col := Column(str)
	if !col.IsValid() {
		return fmt.Errorf("invalid column: %s", str)
	}

	*c = col
	return nil
}
