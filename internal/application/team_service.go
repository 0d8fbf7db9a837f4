package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/api"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/events"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/team"
)

// TeamAPI is the slice of the REST client the team service needs.
type TeamAPI interface {
	ListTeams(ctx context.Context) ([]team.Team, error)
	GetTeam(ctx context.Context, id int) (*team.Team, error)
	CreateTeam(ctx context.Context, name, code string) (*team.Team, error)
	DeleteTeam(ctx context.Context, id int) error
	JoinTeam(ctx context.Context, code string) (*team.Team, error)
	RemoveMember(ctx context.Context, teamID, memberID int) (*team.Team, error)
}

// TeamService maintains the user's team list and the selected team,
// applying membership mutations optimistically the same way the board
// applies card mutations.
type TeamService struct {
	api TeamAPI
	bus events.Publisher

	mu       sync.Mutex
	teams    []team.Team
	selected int
	caps     team.Capabilities
	subs     []func([]team.Team, int)
}

// NewTeamService creates an empty service.
func NewTeamService(teamAPI TeamAPI, bus events.Publisher) *TeamService {
	return &TeamService{api: teamAPI, bus: bus}
}

// SetCapabilities updates the capability set the mutations check.
func (s *TeamService) SetCapabilities(caps team.Capabilities) {
	s.mu.Lock()
	s.caps = caps
	s.mu.Unlock()
}

// Teams returns a copy of the current list.
func (s *TeamService) Teams() []team.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

// Selected returns the selected team, nil when none is selected.
func (s *TeamService) Selected() *team.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.teams {
		if s.teams[i].ID == s.selected {
			t := s.teams[i]
			return &t
		}
	}
	return nil
}

// Subscribe registers a callback invoked with the list and the selected
// id on every change.
func (s *TeamService) Subscribe(fn func([]team.Team, int)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Select marks a team as active. Selecting an id not in the list is
// ignored so a stale UI cannot point the board at a foreign team.
func (s *TeamService) Select(id int) bool {
	s.mu.Lock()
	found := false
	for i := range s.teams {
		if s.teams[i].ID == id {
			found = true
			break
		}
	}
	if found {
		s.selected = id
	}
	s.mu.Unlock()

	if found {
		s.notify()
	}
	return found
}

// Refresh fetches the team list. The selection survives when its team
// is still present and falls back to the first team otherwise.
func (s *TeamService) Refresh(ctx context.Context) error {
	fetched, err := s.api.ListTeams(ctx)
	if err != nil {
		s.bus.Error(api.FailureMessage("Fetch teams", err))
		return err
	}

	s.mu.Lock()
	s.teams = fetched
	s.reconcileSelectionLocked()
	s.mu.Unlock()

	s.notify()
	return nil
}

// Create registers a new team with a generated join code and selects
// it. Manager-only.
func (s *TeamService) Create(ctx context.Context, name string) (*team.Team, error) {
	if !s.capabilities().CanCreateTeam {
		s.bus.Error("Only Project Managers can create teams")
		return nil, ErrNotAllowed
	}
	if name == "" {
		s.bus.Error("Team name is required")
		return nil, fmt.Errorf("team name is required")
	}

	code, err := team.GenerateCode()
	if err != nil {
		return nil, fmt.Errorf("failed to generate team code: %w", err)
	}

	created, err := s.api.CreateTeam(ctx, name, code)
	if err != nil {
		s.bus.Error(api.FailureMessage("Create team", err))
		return nil, err
	}

	s.mu.Lock()
	s.teams = append(s.teams, *created)
	s.selected = created.ID
	s.mu.Unlock()
	s.notify()

	s.bus.Success(fmt.Sprintf("Team %s created successfully", created.Name))
	return created, nil
}

// Join adds the current user to the team behind a join code.
func (s *TeamService) Join(ctx context.Context, code string) (*team.Team, error) {
	if code == "" {
		s.bus.Error("Team code is required")
		return nil, fmt.Errorf("team code is required")
	}

	joined, err := s.api.JoinTeam(ctx, code)
	if err != nil {
		s.bus.Error(api.FailureMessage("Join team", err))
		return nil, err
	}

	s.mu.Lock()
	replaced := false
	for i := range s.teams {
		if s.teams[i].ID == joined.ID {
			s.teams[i] = *joined
			replaced = true
			break
		}
	}
	if !replaced {
		s.teams = append(s.teams, *joined)
	}
	s.selected = joined.ID
	s.mu.Unlock()
	s.notify()

	s.bus.Success(fmt.Sprintf("Joined team %s", joined.Name))
	return joined, nil
}

// Delete removes a team optimistically, restoring the list on failure.
// Manager-only.
func (s *TeamService) Delete(ctx context.Context, id int) error {
	if !s.capabilities().CanDeleteTeam {
		s.bus.Error("Only Project Managers can delete teams")
		return ErrNotAllowed
	}

	s.mu.Lock()
	index := -1
	for i := range s.teams {
		if s.teams[i].ID == id {
			index = i
			break
		}
	}
	if index < 0 {
		s.mu.Unlock()
		s.bus.Error("Delete team failed: team not found")
		return ErrTeamNotFound
	}
	removed := s.teams[index]
	prevSelected := s.selected
	s.teams = append(s.teams[:index], s.teams[index+1:]...)
	s.reconcileSelectionLocked()
	s.mu.Unlock()
	s.notify()

	if err := s.api.DeleteTeam(ctx, id); err != nil {
		s.mu.Lock()
		at := index
		if at > len(s.teams) {
			at = len(s.teams)
		}
		rest := append([]team.Team{removed}, s.teams[at:]...)
		s.teams = append(s.teams[:at:at], rest...)
		// Reconciliation moved the selection when the deleted team was
		// selected; put the pre-delete selection back now that the team
		// is in the list again.
		s.selected = prevSelected
		s.reconcileSelectionLocked()
		s.mu.Unlock()
		s.notify()
		s.bus.Error(api.FailureMessage("Delete team", err))
		return err
	}

	s.bus.Success(fmt.Sprintf("Team %s deleted", removed.Name))
	return nil
}

// RemoveMember drops a member from a team optimistically. Manager-only.
func (s *TeamService) RemoveMember(ctx context.Context, teamID, memberID int) error {
	if !s.capabilities().CanRemoveMembers {
		s.bus.Error("Only Project Managers can remove members")
		return ErrNotAllowed
	}

	s.mu.Lock()
	var target *team.Team
	for i := range s.teams {
		if s.teams[i].ID == teamID {
			target = &s.teams[i]
			break
		}
	}
	if target == nil {
		s.mu.Unlock()
		s.bus.Error("Remove member failed: team not found")
		return ErrTeamNotFound
	}
	found := target.FindMember(memberID)
	if found == nil {
		s.mu.Unlock()
		s.bus.Error("Remove member failed: member not found")
		return fmt.Errorf("member %d not found in team %d", memberID, teamID)
	}
	member := *found
	before := *target
	before.Members = append([]team.Member(nil), target.Members...)
	_ = target.RemoveMember(memberID)
	s.mu.Unlock()
	s.notify()

	updated, err := s.api.RemoveMember(ctx, teamID, memberID)
	if err != nil {
		s.mu.Lock()
		for i := range s.teams {
			if s.teams[i].ID == teamID {
				s.teams[i] = before
				break
			}
		}
		s.mu.Unlock()
		s.notify()
		s.bus.Error(api.FailureMessage("Remove member", err))
		return err
	}

	// Take the server's view of the roster.
	s.mu.Lock()
	for i := range s.teams {
		if s.teams[i].ID == teamID {
			s.teams[i] = *updated
			break
		}
	}
	s.mu.Unlock()
	s.notify()

	s.bus.Success(fmt.Sprintf("Removed %s from team", member.Name))
	return nil
}

// reconcileSelectionLocked keeps the selected id pointing at a team the
// user is actually in. Caller holds s.mu.
func (s *TeamService) reconcileSelectionLocked() {
	for i := range s.teams {
		if s.teams[i].ID == s.selected {
			return
		}
	}
	if len(s.teams) > 0 {
		s.selected = s.teams[0].ID
		return
	}
	s.selected = 0
}

func (s *TeamService) capabilities() team.Capabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps
}

func (s *TeamService) copyLocked() []team.Team {
	out := make([]team.Team, len(s.teams))
	copy(out, s.teams)
	return out
}

func (s *TeamService) notify() {
	s.mu.Lock()
	teams := s.copyLocked()
	selected := s.selected
	subs := make([]func([]team.Team, int), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(teams, selected)
	}
}
