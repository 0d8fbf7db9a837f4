package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/api"
	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/watch"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/card"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/events"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/session"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/team"
)

// CardAPI is the slice of the REST client the task store needs.
type CardAPI interface {
	ListCards(ctx context.Context, teamID int, assignedTo string) ([]card.Card, error)
	CreateCard(ctx context.Context, draft card.Card) (*card.Card, error)
	UpdateCard(ctx context.Context, id int, patch card.Patch) (*card.Card, error)
	DeleteCard(ctx context.Context, id int) error
}

const (
	defaultPollInterval   = 30 * time.Second
	defaultSweepInterval  = time.Minute
	defaultDebounceWindow = 500 * time.Millisecond
)

// TaskStore owns the canonical task list for the selected team. The
// board and the workday timer are read-only borrowers; every mutation
// goes through an explicit store method so concurrent optimistic
// updates are visible as calls, not as racing slice writes.
type TaskStore struct {
	api CardAPI
	bus events.Publisher

	pollInterval   time.Duration
	sweepInterval  time.Duration
	debounceWindow time.Duration
	now            func() time.Time
	workdayOpen    func() bool

	mu           sync.Mutex
	cards        []card.Card
	identity     session.Snapshot
	caps         team.Capabilities
	profileID    int
	selectedTeam int
	pending      map[int]*pendingProgress
	subs         []func([]card.Card)

	kick chan struct{}
}

// pendingProgress tracks an in-window slider drag for one card: the
// debouncer that coalesces the PATCH and the value to revert to if the
// settled call fails.
type pendingProgress struct {
	debouncer *watch.Debouncer
	original  int
	active    bool
}

// StoreOption configures a TaskStore.
type StoreOption func(*TaskStore)

// WithPollInterval overrides the 30s refresh cadence.
func WithPollInterval(d time.Duration) StoreOption {
	return func(s *TaskStore) { s.pollInterval = d }
}

// WithSweepInterval overrides the expired-sprint sweep cadence.
func WithSweepInterval(d time.Duration) StoreOption {
	return func(s *TaskStore) { s.sweepInterval = d }
}

// WithDebounceWindow overrides the progress coalescing window.
func WithDebounceWindow(d time.Duration) StoreOption {
	return func(s *TaskStore) { s.debounceWindow = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *TaskStore) { s.now = now }
}

// WithWorkdayGate wires the open-workday predicate that gates progress
// mutations.
func WithWorkdayGate(open func() bool) StoreOption {
	return func(s *TaskStore) { s.workdayOpen = open }
}

// NewTaskStore creates an empty store.
func NewTaskStore(cardAPI CardAPI, bus events.Publisher, opts ...StoreOption) *TaskStore {
	s := &TaskStore{
		api:            cardAPI,
		bus:            bus,
		pollInterval:   defaultPollInterval,
		sweepInterval:  defaultSweepInterval,
		debounceWindow: defaultDebounceWindow,
		now:            time.Now,
		workdayOpen:    func() bool { return false },
		pending:        make(map[int]*pendingProgress),
		kick:           make(chan struct{}, 1),
	}
	for _, fn := range opts {
		fn(s)
	}
	return s
}

// Cards returns a copy of the current list.
func (s *TaskStore) Cards() []card.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.copyLocked()
}

// AssignedCards returns a copy of the cards assigned to the current
// profile, the slice the end-of-day summary is built from.
func (s *TaskStore) AssignedCards() []card.Card {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]card.Card, 0, len(s.cards))
	for i := range s.cards {
		if s.cards[i].IsAssignedTo(s.profileID) {
			out = append(out, s.cards[i])
		}
	}
	return out
}

// Subscribe registers a callback invoked with every published list.
func (s *TaskStore) Subscribe(fn func([]card.Card)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs = append(s.subs, fn)
}

// SetIdentity updates the gate snapshot the store fetches under. A
// not-verified identity clears the list immediately.
func (s *TaskStore) SetIdentity(snap session.Snapshot) {
	s.mu.Lock()
	s.identity = snap
	s.caps = snap.Profile.Capabilities()
	s.profileID = snap.Profile.ID
	cleared := false
	if !snap.Verified() {
		s.cards = nil
		cleared = true
	}
	s.mu.Unlock()

	if cleared {
		s.notify()
	}
	s.requestRefresh()
}

// SelectTeam switches the active team. The list is cleared so a stale
// team's cards are never shown while the new fetch is in flight.
func (s *TaskStore) SelectTeam(teamID int) {
	s.mu.Lock()
	s.selectedTeam = teamID
	s.cards = nil
	s.mu.Unlock()

	s.notify()
	s.requestRefresh()
}

// SelectedTeam returns the active team id, 0 for none.
func (s *TaskStore) SelectedTeam() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selectedTeam
}

// Run owns the poll and sweep timers for the lifetime of the shell.
// Cancelling the context stops both; in-flight requests are left to
// resolve and drop.
func (s *TaskStore) Run(ctx context.Context) {
	_ = s.Refresh(ctx)

	poll := time.NewTicker(s.pollInterval)
	defer poll.Stop()
	sweep := time.NewTicker(s.sweepInterval)
	defer sweep.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-poll.C:
			_ = s.Refresh(ctx)
		case <-sweep.C:
			s.SweepExpired(ctx)
		case <-s.kick:
			_ = s.Refresh(ctx)
		}
	}
}

// Refresh fetches the task list. It is a no-op (clearing state to
// empty) unless a verified user with a resolved name and a selected
// team all hold, guarding against fetches with a partial identity.
// Failures also clear the list: a stale view is never shown silently.
func (s *TaskStore) Refresh(ctx context.Context) error {
	s.mu.Lock()
	ready := s.identity.Verified() && s.identity.Profile.Name != "" && s.selectedTeam != 0
	teamID := s.selectedTeam
	s.mu.Unlock()

	if !ready {
		s.clear()
		return nil
	}

	fetched, err := s.api.ListCards(ctx, teamID, "")
	if err != nil {
		s.clear()
		s.bus.Error(api.FailureMessage("Fetch tasks", err))
		return err
	}

	for i := range fetched {
		fetched[i].Normalize()
	}

	s.mu.Lock()
	if s.selectedTeam != teamID {
		// Team changed while the fetch was in flight; drop the result.
		s.mu.Unlock()
		return nil
	}
	s.cards = fetched
	s.mu.Unlock()

	s.notify()
	return nil
}

// MoveCard reassigns a card's column with an optimistic update. An id
// missing from local state gets one re-fetch before giving up.
func (s *TaskStore) MoveCard(ctx context.Context, id int, target card.Column) error {
	if !target.IsValid() {
		return fmt.Errorf("invalid column: %s", target)
	}

	if !s.capabilities().CanMoveCard {
		s.bus.Error("Only Project Managers can move tasks")
		return ErrNotAllowed
	}

	orig, ok := s.find(id)
	if !ok {
		_ = s.Refresh(ctx)
		if orig, ok = s.find(id); !ok {
			s.bus.Error("Move card failed: card not found")
			return ErrCardNotFound
		}
	}

	if orig.SprintExpired(s.now()) && target != card.ColumnBacklog {
		s.bus.Error("Cannot move a task whose sprint has expired")
		return ErrSprintExpired
	}

	prev := orig.Column
	err := s.optimistic(ctx, "Move card",
		func() { s.patchLocked(id, func(c *card.Card) { c.Column = target }) },
		func() { s.patchLocked(id, func(c *card.Card) { c.Column = prev }) },
		func(ctx context.Context) error {
			_, err := s.api.UpdateCard(ctx, id, card.Patch{Column: &target})
			return err
		})
	if err != nil {
		return err
	}

	s.bus.Success("Task moved successfully")
	return nil
}

// DeleteCard removes a card optimistically and re-inserts it at its
// old position if the DELETE fails.
func (s *TaskStore) DeleteCard(ctx context.Context, id int) error {
	if !s.capabilities().CanDeleteCard {
		s.bus.Error("Only Project Managers can delete tasks")
		return ErrNotAllowed
	}

	s.mu.Lock()
	index := s.indexLocked(id)
	if index < 0 {
		s.mu.Unlock()
		s.bus.Error("Delete card failed: card not found")
		return ErrCardNotFound
	}
	removed := s.cards[index]
	s.mu.Unlock()

	err := s.optimistic(ctx, "Delete card",
		func() { s.cards = append(s.cards[:index], s.cards[index+1:]...) },
		func() {
			at := index
			if at > len(s.cards) {
				at = len(s.cards)
			}
			rest := append([]card.Card{removed}, s.cards[at:]...)
			s.cards = append(s.cards[:at:at], rest...)
		},
		func(ctx context.Context) error { return s.api.DeleteCard(ctx, id) })
	if err != nil {
		return err
	}

	s.bus.Success("Card deleted successfully")
	return nil
}

// AssignCard assigns a card to a team member.
func (s *TaskStore) AssignCard(ctx context.Context, id int, member team.Member) error {
	if !s.capabilities().CanAssign {
		s.bus.Error("Only Project Managers can assign tasks")
		return ErrNotAllowed
	}

	orig, ok := s.find(id)
	if !ok {
		s.bus.Error("Assign card failed: card not found")
		return ErrCardNotFound
	}

	prev := orig.AssignedTo
	assignee := member.ID
	err := s.optimistic(ctx, "Assign card",
		func() { s.patchLocked(id, func(c *card.Card) { c.AssignedTo = &assignee }) },
		func() { s.patchLocked(id, func(c *card.Card) { c.AssignedTo = prev }) },
		func(ctx context.Context) error {
			_, err := s.api.UpdateCard(ctx, id, card.Patch{AssignedTo: &assignee})
			return err
		})
	if err != nil {
		return err
	}

	s.bus.Success(fmt.Sprintf("Assigned to %s", member.Name))
	return nil
}

// SetProgress records a slider position. The local value updates
// immediately; the PATCH is debounced so a drag settles into a single
// network call carrying the final value. Requires an open workday and
// either the manager role or assignment to the card — when the gate is
// closed no network call is issued at all.
func (s *TaskStore) SetProgress(ctx context.Context, id, value int) error {
	if !s.workdayOpen() {
		s.bus.Error("You must start your workday in WorkDay Tracker to update progress")
		return ErrWorkdayClosed
	}

	orig, ok := s.find(id)
	if !ok {
		s.bus.Error("Update progress failed: card not found")
		return ErrCardNotFound
	}

	s.mu.Lock()
	allowed := s.caps.AllowsProgress(orig.IsAssignedTo(s.profileID))
	s.mu.Unlock()
	if !allowed {
		s.bus.Error("Only Project Managers or assigned users can update progress")
		return ErrNotAllowed
	}

	if value < 0 {
		value = 0
	}
	if value > 100 {
		value = 100
	}

	s.mu.Lock()
	p := s.pending[id]
	if p == nil {
		p = &pendingProgress{debouncer: watch.NewDebouncer(s.debounceWindow)}
		s.pending[id] = p
	}
	if !p.active {
		p.original = orig.Progress
		p.active = true
	}
	s.patchLocked(id, func(c *card.Card) { c.Progress = value })
	s.mu.Unlock()
	s.notify()

	final := value
	p.debouncer.Trigger(func() { s.settleProgress(ctx, id, final) })
	return nil
}

// settleProgress is the debounced confirmation of a slider drag.
func (s *TaskStore) settleProgress(ctx context.Context, id, value int) {
	_, err := s.api.UpdateCard(ctx, id, card.Patch{Progress: &value})

	s.mu.Lock()
	p := s.pending[id]
	var original int
	if p != nil {
		original = p.original
		p.active = false
	}
	if err != nil {
		s.patchLocked(id, func(c *card.Card) { c.Progress = original })
	}
	s.mu.Unlock()
	s.notify()

	if err != nil {
		s.bus.Error(api.FailureMessage("Update progress", err))
		return
	}
	s.bus.Success("Progress updated successfully")
}

// ToggleComplete flips a card between 100% and 0%. Manager-only even
// for assigned members; managers can force-complete any card.
func (s *TaskStore) ToggleComplete(ctx context.Context, id int) error {
	if !s.workdayOpen() {
		s.bus.Error("You must start your workday in WorkDay Tracker to mark tasks complete")
		return ErrWorkdayClosed
	}

	if !s.capabilities().CanForceComplete {
		s.bus.Error("Only Project Managers can mark tasks complete")
		return ErrNotAllowed
	}

	orig, ok := s.find(id)
	if !ok {
		s.bus.Error("Toggle completion failed: card not found")
		return ErrCardNotFound
	}

	prev := orig.Progress
	next := 100
	if prev == 100 {
		next = 0
	}

	err := s.optimistic(ctx, "Toggle completion",
		func() { s.patchLocked(id, func(c *card.Card) { c.Progress = next }) },
		func() { s.patchLocked(id, func(c *card.Card) { c.Progress = prev }) },
		func(ctx context.Context) error {
			_, err := s.api.UpdateCard(ctx, id, card.Patch{Progress: &next})
			return err
		})
	if err != nil {
		return err
	}

	if next == 100 {
		s.bus.Success("Marked complete")
	} else {
		s.bus.Success("Marked incomplete")
	}
	return nil
}

// CreateCard posts a new card and merges the created record into the
// shared list so every consumer sees it without a separate fetch.
func (s *TaskStore) CreateCard(ctx context.Context, draft card.Card) (*card.Card, error) {
	if !s.capabilities().CanEditCard {
		s.bus.Error("Only Project Managers can add tasks")
		return nil, ErrNotAllowed
	}
	if draft.Title == "" {
		s.bus.Error("Title is required")
		return nil, ErrTitleRequired
	}

	s.mu.Lock()
	if draft.Team == 0 {
		draft.Team = s.selectedTeam
	}
	s.mu.Unlock()

	created, err := s.api.CreateCard(ctx, draft)
	if err != nil {
		s.bus.Error(api.FailureMessage("Create card", err))
		return nil, err
	}
	created.Normalize()

	s.mu.Lock()
	s.cards = append(s.cards, *created)
	s.mu.Unlock()
	s.notify()

	s.bus.Success("Card created successfully")
	return created, nil
}

// EditCard applies a partial update optimistically.
func (s *TaskStore) EditCard(ctx context.Context, id int, patch card.Patch) error {
	if !s.capabilities().CanEditCard {
		s.bus.Error("Only Project Managers can edit tasks")
		return ErrNotAllowed
	}
	if patch.Title != nil && *patch.Title == "" {
		s.bus.Error("Title is required")
		return ErrTitleRequired
	}

	orig, ok := s.find(id)
	if !ok {
		s.bus.Error("Update card failed: card not found")
		return ErrCardNotFound
	}

	err := s.optimistic(ctx, "Update card",
		func() { s.patchLocked(id, func(c *card.Card) { patch.Apply(c) }) },
		func() { s.patchLocked(id, func(c *card.Card) { *c = orig }) },
		func(ctx context.Context) error {
			_, err := s.api.UpdateCard(ctx, id, patch)
			return err
		})
	if err != nil {
		return err
	}

	s.bus.Success("Card updated successfully")
	return nil
}

// SweepExpired pushes cards whose sprint finish has passed back to the
// backlog, mirroring the change locally.
func (s *TaskStore) SweepExpired(ctx context.Context) {
	now := s.now()
	s.mu.Lock()
	var expired []int
	for i := range s.cards {
		if s.cards[i].SprintExpired(now) {
			expired = append(expired, s.cards[i].ID)
		}
	}
	s.mu.Unlock()

	if len(expired) == 0 {
		return
	}

	backlog := card.ColumnBacklog
	changed := false
	for _, id := range expired {
		if _, err := s.api.UpdateCard(ctx, id, card.Patch{Column: &backlog}); err != nil {
			s.bus.Error(api.FailureMessage("Update expired tasks", err))
			continue
		}
		s.mu.Lock()
		s.patchLocked(id, func(c *card.Card) { c.Column = backlog })
		s.mu.Unlock()
		changed = true
	}
	if changed {
		s.notify()
	}
}

// optimistic is the shared mutation shape: snapshot is taken by the
// caller, apply runs locally first, confirm goes to the network, and a
// failed confirm runs revert and reports the failure.
func (s *TaskStore) optimistic(ctx context.Context, action string, apply, revert func(), confirm func(context.Context) error) error {
	s.mu.Lock()
	apply()
	s.mu.Unlock()
	s.notify()

	if err := confirm(ctx); err != nil {
		s.mu.Lock()
		revert()
		s.mu.Unlock()
		s.notify()
		s.bus.Error(api.FailureMessage(action, err))
		return err
	}
	return nil
}

func (s *TaskStore) capabilities() team.Capabilities {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.caps
}

func (s *TaskStore) find(id int) (card.Card, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.cards[i], true
	}
	return card.Card{}, false
}

func (s *TaskStore) indexLocked(id int) int {
	for i := range s.cards {
		if s.cards[i].ID == id {
			return i
		}
	}
	return -1
}

// patchLocked assumes the caller already holds s.mu.
func (s *TaskStore) patchLocked(id int, fn func(*card.Card)) {
	if i := s.indexLocked(id); i >= 0 {
		fn(&s.cards[i])
	}
}

func (s *TaskStore) copyLocked() []card.Card {
	out := make([]card.Card, len(s.cards))
	copy(out, s.cards)
	return out
}

func (s *TaskStore) clear() {
	s.mu.Lock()
	s.cards = nil
	s.mu.Unlock()
	s.notify()
}

func (s *TaskStore) notify() {
	s.mu.Lock()
	cards := s.copyLocked()
	subs := make([]func([]card.Card), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(cards)
	}
}

func (s *TaskStore) requestRefresh() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}
