// Package team holds team membership types and the role capability model.
package team

import (
	"crypto/rand"
	"fmt"
)

// Member represents a team member with a role.
type Member struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Role Role   `json:"role,omitempty"`
}

// Team is a named group of members identified by a join code.
type Team struct {
	ID      int      `json:"id"`
	Name    string   `json:"name"`
	Code    string   `json:"code"`
	Members []Member `json:"members,omitempty"`
}

// FindMember returns the member with the given id, or nil if not found.
func (t *Team) FindMember(id int) *Member {
	for i := range t.Members {
		if t.Members[i].ID == id {
			return &t.Members[i]
		}
	}
	return nil
}

// RemoveMember removes a member by id. Returns error if not found.
func (t *Team) RemoveMember(id int) error {
	for i := range t.Members {
		if t.Members[i].ID == id {
			t.Members = append(t.Members[:i], t.Members[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("member not found: %d", id)
}

const codeCharset = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
const codeLength = 6

// GenerateCode produces a random join code of six characters drawn from
// A-Z and 0-9.
func GenerateCode() (string, error) {
	buf := make([]byte, codeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate team code: %w", err)
	}
	for i, b := range buf {
		buf[i] = codeCharset[int(b)%len(codeCharset)]
	}
	return string(buf), nil
}
