package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/api"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/card"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/session"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/team"
)

// fakeCardAPI records every call and fails on demand.
type fakeCardAPI struct {
	mu      sync.Mutex
	cards   []card.Card
	listErr error
	failOps map[string]error
	patches []card.Patch
	deletes []int
	lists   int
	onList  func()
	nextID  int
}

func newFakeCardAPI(cards ...card.Card) *fakeCardAPI {
	return &fakeCardAPI{cards: cards, failOps: map[string]error{}, nextID: 100}
}

func (f *fakeCardAPI) ListCards(ctx context.Context, teamID int, assignedTo string) ([]card.Card, error) {
	f.mu.Lock()
	f.lists++
	hook := f.onList
	err := f.listErr
	out := make([]card.Card, len(f.cards))
	copy(out, f.cards)
	f.mu.Unlock()

	if hook != nil {
		hook()
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (f *fakeCardAPI) CreateCard(ctx context.Context, draft card.Card) (*card.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOps["create"]; err != nil {
		return nil, err
	}
	draft.ID = f.nextID
	f.nextID++
	f.cards = append(f.cards, draft)
	return &draft, nil
}

func (f *fakeCardAPI) UpdateCard(ctx context.Context, id int, patch card.Patch) (*card.Card, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOps["update"]; err != nil {
		return nil, err
	}
	f.patches = append(f.patches, patch)
	for i := range f.cards {
		if f.cards[i].ID == id {
			patch.Apply(&f.cards[i])
			c := f.cards[i]
			return &c, nil
		}
	}
	return nil, &api.APIError{Status: 404, Detail: "Not found."}
}

func (f *fakeCardAPI) DeleteCard(ctx context.Context, id int) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.failOps["delete"]; err != nil {
		return err
	}
	f.deletes = append(f.deletes, id)
	return nil
}

func (f *fakeCardAPI) patchCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.patches)
}

func managerSnapshot() session.Snapshot {
	return session.Snapshot{
		State:     session.GateVerified,
		Principal: &session.Principal{UID: "u1", Email: "pm@example.com", EmailVerified: true},
		Profile:   session.Profile{ID: 1, Name: "PM", Role: team.RoleProjectManager},
	}
}

func memberSnapshot(id int) session.Snapshot {
	return session.Snapshot{
		State:     session.GateVerified,
		Principal: &session.Principal{UID: "u2", Email: "dev@example.com", EmailVerified: true},
		Profile:   session.Profile{ID: id, Name: "Dev", Role: team.RoleTeamMember},
	}
}

func openWorkday() StoreOption {
	return WithWorkdayGate(func() bool { return true })
}

func newManagedStore(t *testing.T, f *fakeCardAPI, bus *recordingBus, opts ...StoreOption) *TaskStore {
	t.Helper()
	store := NewTaskStore(f, bus, opts...)
	store.SetIdentity(managerSnapshot())
	store.SelectTeam(1)
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("initial refresh failed: %v", err)
	}
	return store
}

func cardByID(t *testing.T, cards []card.Card, id int) card.Card {
	t.Helper()
	for _, c := range cards {
		if c.ID == id {
			return c
		}
	}
	t.Fatalf("card %d not in list %v", id, cards)
	return card.Card{}
}

func TestRefreshRequiresFullIdentity(t *testing.T) {
	f := newFakeCardAPI(card.Card{ID: 1, Title: "one", Column: card.ColumnTodo})
	store := NewTaskStore(f, &recordingBus{})

	// No identity, no team: a refresh must not hit the network.
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("guarded refresh errored: %v", err)
	}
	if f.lists != 0 {
		t.Errorf("list called %d times with no identity, want 0", f.lists)
	}

	// Identity without a team still does not fetch.
	store.SetIdentity(managerSnapshot())
	_ = store.Refresh(context.Background())
	if f.lists != 0 {
		t.Errorf("list called %d times with no team, want 0", f.lists)
	}

	// Unverified identity clears instead of fetching.
	store.SelectTeam(1)
	snap := managerSnapshot()
	snap.State = session.GateUnverified
	store.SetIdentity(snap)
	_ = store.Refresh(context.Background())
	if f.lists != 0 {
		t.Errorf("list called %d times while unverified, want 0", f.lists)
	}
	if len(store.Cards()) != 0 {
		t.Error("cards should stay empty behind the gate")
	}
}

func TestRefreshIsIdempotent(t *testing.T) {
	f := newFakeCardAPI(
		card.Card{ID: 1, Title: "one", Column: card.ColumnTodo},
		card.Card{ID: 2, Title: "two", Column: card.ColumnDoing},
	)
	store := newManagedStore(t, f, &recordingBus{})

	first := store.Cards()
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("second refresh failed: %v", err)
	}
	second := store.Cards()

	if len(first) != 2 || len(second) != 2 {
		t.Fatalf("lengths = %d, %d, want 2, 2", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("card %d changed across identical refreshes: %v vs %v", i, first[i], second[i])
		}
	}
}

func TestRefreshFailureClearsAndNotifies(t *testing.T) {
	f := newFakeCardAPI(card.Card{ID: 1, Title: "one", Column: card.ColumnTodo})
	bus := &recordingBus{}
	store := newManagedStore(t, f, bus)

	f.mu.Lock()
	f.listErr = &api.APIError{Status: 500, Detail: "Server error."}
	f.mu.Unlock()

	if err := store.Refresh(context.Background()); err == nil {
		t.Fatal("expected refresh error")
	}
	if len(store.Cards()) != 0 {
		t.Error("failed refresh should clear the list, not keep stale cards")
	}
	if len(bus.errors) != 1 || bus.errors[0] != "Fetch tasks failed: Server error." {
		t.Errorf("errors = %v, want the fetch-failed toast", bus.errors)
	}
}

func TestRefreshDiscardsStaleTeamResponse(t *testing.T) {
	f := newFakeCardAPI(card.Card{ID: 1, Title: "one", Column: card.ColumnTodo})
	store := NewTaskStore(f, &recordingBus{})
	store.SetIdentity(managerSnapshot())
	store.SelectTeam(1)

	// The team switches while the fetch is in flight.
	f.onList = func() { store.SelectTeam(2) }
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	if len(store.Cards()) != 0 {
		t.Errorf("stale team's cards were kept: %v", store.Cards())
	}
}

func TestMoveCardOptimisticSuccess(t *testing.T) {
	f := newFakeCardAPI(card.Card{ID: 1, Title: "one", Column: card.ColumnTodo})
	bus := &recordingBus{}
	store := newManagedStore(t, f, bus)

	if err := store.MoveCard(context.Background(), 1, card.ColumnDoing); err != nil {
		t.Fatalf("move failed: %v", err)
	}

	if got := cardByID(t, store.Cards(), 1).Column; got != card.ColumnDoing {
		t.Errorf("column = %s, want %s", got, card.ColumnDoing)
	}
	if len(bus.successes) != 1 || bus.successes[0] != "Task moved successfully" {
		t.Errorf("successes = %v", bus.successes)
	}
	if f.patchCount() != 1 {
		t.Errorf("patches = %d, want 1", f.patchCount())
	}
}

func TestMoveCardDeniedForMember(t *testing.T) {
	f := newFakeCardAPI(card.Card{ID: 1, Title: "one", Column: card.ColumnTodo})
	bus := &recordingBus{}
	store := NewTaskStore(f, bus)
	store.SetIdentity(memberSnapshot(2))
	store.SelectTeam(1)
	_ = store.Refresh(context.Background())

	err := store.MoveCard(context.Background(), 1, card.ColumnDone)

	if !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("err = %v, want ErrNotAllowed", err)
	}
	if got := cardByID(t, store.Cards(), 1).Column; got != card.ColumnTodo {
		t.Errorf("column changed to %s for a denied move", got)
	}
	if f.patchCount() != 0 {
		t.Errorf("denied move still issued %d patches", f.patchCount())
	}
	if len(bus.errors) != 1 || bus.errors[0] != "Only Project Managers can move tasks" {
		t.Errorf("errors = %v", bus.errors)
	}
}

func TestMoveCardRollsBackOnFailure(t *testing.T) {
	f := newFakeCardAPI(card.Card{ID: 1, Title: "one", Column: card.ColumnTodo})
	bus := &recordingBus{}
	store := newManagedStore(t, f, bus)

	f.mu.Lock()
	f.failOps["update"] = &api.APIError{Status: 500, Detail: "Server error."}
	f.mu.Unlock()

	if err := store.MoveCard(context.Background(), 1, card.ColumnDone); err == nil {
		t.Fatal("expected move to fail")
	}

	if got := cardByID(t, store.Cards(), 1).Column; got != card.ColumnTodo {
		t.Errorf("column = %s after rollback, want %s", got, card.ColumnTodo)
	}
	if len(bus.errors) != 1 || bus.errors[0] != "Move card failed: Server error." {
		t.Errorf("errors = %v, want the server detail in the toast", bus.errors)
	}
}

func TestMoveCardUnknownIDRefetchesOnce(t *testing.T) {
	f := newFakeCardAPI()
	bus := &recordingBus{}
	store := newManagedStore(t, f, bus)
	listsBefore := f.lists

	// The card shows up server-side between polls.
	f.mu.Lock()
	f.cards = append(f.cards, card.Card{ID: 9, Title: "late", Column: card.ColumnTodo})
	f.mu.Unlock()

	if err := store.MoveCard(context.Background(), 9, card.ColumnDoing); err != nil {
		t.Fatalf("move after refetch failed: %v", err)
	}
	if f.lists != listsBefore+1 {
		t.Errorf("lists = %d, want exactly one refetch", f.lists-listsBefore)
	}
}

func TestMoveExpiredSprintRejected(t *testing.T) {
	past := time.Now().Add(-time.Hour)
	f := newFakeCardAPI(card.Card{ID: 1, Title: "old", Column: card.ColumnDoing, SprintFinish: &past})
	bus := &recordingBus{}
	store := newManagedStore(t, f, bus)

	err := store.MoveCard(context.Background(), 1, card.ColumnDone)

	if !errors.Is(err, ErrSprintExpired) {
		t.Fatalf("err = %v, want ErrSprintExpired", err)
	}
	if f.patchCount() != 0 {
		t.Error("expired-sprint move reached the network")
	}

	// Back to backlog stays allowed.
	if err := store.MoveCard(context.Background(), 1, card.ColumnBacklog); err != nil {
		t.Fatalf("backlog move failed: %v", err)
	}
}

func TestDeleteCardRollsBackAtOldIndex(t *testing.T) {
	f := newFakeCardAPI(
		card.Card{ID: 1, Title: "one", Column: card.ColumnTodo},
		card.Card{ID: 2, Title: "two", Column: card.ColumnTodo},
		card.Card{ID: 3, Title: "three", Column: card.ColumnTodo},
	)
	bus := &recordingBus{}
	store := newManagedStore(t, f, bus)

	f.mu.Lock()
	f.failOps["delete"] = &api.APIError{Status: 500, Detail: "Server error."}
	f.mu.Unlock()

	if err := store.DeleteCard(context.Background(), 2); err == nil {
		t.Fatal("expected delete to fail")
	}

	cards := store.Cards()
	if len(cards) != 3 {
		t.Fatalf("len = %d after rollback, want 3", len(cards))
	}
	if cards[1].ID != 2 {
		t.Errorf("card 2 restored at index %d, want 1", func() int {
			for i, c := range cards {
				if c.ID == 2 {
					return i
				}
			}
			return -1
		}())
	}
	if len(bus.errors) != 1 || bus.errors[0] != "Delete card failed: Server error." {
		t.Errorf("errors = %v", bus.errors)
	}
}

func TestDeleteCardSuccess(t *testing.T) {
	f := newFakeCardAPI(card.Card{ID: 1, Title: "one", Column: card.ColumnTodo})
	bus := &recordingBus{}
	store := newManagedStore(t, f, bus)

	if err := store.DeleteCard(context.Background(), 1); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if len(store.Cards()) != 0 {
		t.Error("card still present after delete")
	}
	if len(f.deletes) != 1 || f.deletes[0] != 1 {
		t.Errorf("deletes = %v", f.deletes)
	}
}

func TestAssignCard(t *testing.T) {
	f := newFakeCardAPI(card.Card{ID: 1, Title: "one", Column: card.ColumnTodo})
	bus := &recordingBus{}
	store := newManagedStore(t, f, bus)

	member := team.Member{ID: 5, Name: "Dev", Role: team.RoleTeamMember}
	if err := store.AssignCard(context.Background(), 1, member); err != nil {
		t.Fatalf("assign failed: %v", err)
	}

	got := cardByID(t, store.Cards(), 1)
	if !got.IsAssignedTo(5) {
		t.Errorf("assigned_to = %v, want 5", got.AssignedTo)
	}
	if len(bus.successes) != 1 || bus.successes[0] != "Assigned to Dev" {
		t.Errorf("successes = %v", bus.successes)
	}
}

func TestSetProgressRequiresOpenWorkday(t *testing.T) {
	f := newFakeCardAPI(card.Card{ID: 1, Title: "one", Column: card.ColumnDoing})
	bus := &recordingBus{}
	store := newManagedStore(t, f, bus) // gate defaults to closed

	err := store.SetProgress(context.Background(), 1, 50)

	if !errors.Is(err, ErrWorkdayClosed) {
		t.Fatalf("err = %v, want ErrWorkdayClosed", err)
	}
	if len(bus.errors) != 1 || bus.errors[0] != "You must start your workday in WorkDay Tracker to update progress" {
		t.Errorf("errors = %v", bus.errors)
	}
	if f.patchCount() != 0 {
		t.Error("closed workday still produced a network call")
	}
	if got := cardByID(t, store.Cards(), 1).Progress; got != 0 {
		t.Errorf("progress = %d behind a closed workday, want 0", got)
	}
}

func TestSetProgressDeniedForUnassignedMember(t *testing.T) {
	other := 99
	f := newFakeCardAPI(card.Card{ID: 1, Title: "one", Column: card.ColumnDoing, AssignedTo: &other})
	bus := &recordingBus{}
	store := NewTaskStore(f, bus, openWorkday(), WithDebounceWindow(time.Millisecond))
	store.SetIdentity(memberSnapshot(5))
	store.SelectTeam(1)
	_ = store.Refresh(context.Background())

	err := store.SetProgress(context.Background(), 1, 40)

	if !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("err = %v, want ErrNotAllowed", err)
	}
	if len(bus.errors) != 1 || bus.errors[0] != "Only Project Managers or assigned users can update progress" {
		t.Errorf("errors = %v", bus.errors)
	}
}

func TestSetProgressAssignedMemberDebouncedToFinalValue(t *testing.T) {
	me := 5
	f := newFakeCardAPI(card.Card{ID: 1, Title: "one", Column: card.ColumnDoing, AssignedTo: &me})
	bus := &recordingBus{}
	store := NewTaskStore(f, bus, openWorkday(), WithDebounceWindow(20*time.Millisecond))
	store.SetIdentity(memberSnapshot(5))
	store.SelectTeam(1)
	_ = store.Refresh(context.Background())

	// A drag: three positions inside one window.
	for _, v := range []int{30, 50, 70} {
		if err := store.SetProgress(context.Background(), 1, v); err != nil {
			t.Fatalf("SetProgress(%d) failed: %v", v, err)
		}
	}

	// The local value tracks the drag immediately.
	if got := cardByID(t, store.Cards(), 1).Progress; got != 70 {
		t.Errorf("local progress = %d mid-drag, want 70", got)
	}

	time.Sleep(120 * time.Millisecond)

	if f.patchCount() != 1 {
		t.Fatalf("patches = %d, want the drag coalesced into 1", f.patchCount())
	}
	f.mu.Lock()
	sent := f.patches[0].Progress
	f.mu.Unlock()
	if sent == nil || *sent != 70 {
		t.Errorf("patched progress = %v, want 70", sent)
	}
}

func TestSetProgressRevertsToPreDragValueOnFailure(t *testing.T) {
	f := newFakeCardAPI(card.Card{ID: 1, Title: "one", Column: card.ColumnDoing, Progress: 20})
	bus := &recordingBus{}
	store := newManagedStore(t, f, bus, openWorkday(), WithDebounceWindow(10*time.Millisecond))

	f.mu.Lock()
	f.failOps["update"] = &api.APIError{Status: 500, Detail: "Server error."}
	f.mu.Unlock()

	_ = store.SetProgress(context.Background(), 1, 60)
	_ = store.SetProgress(context.Background(), 1, 90)
	time.Sleep(100 * time.Millisecond)

	if got := cardByID(t, store.Cards(), 1).Progress; got != 20 {
		t.Errorf("progress = %d after failed settle, want the pre-drag 20", got)
	}
}

func TestToggleCompleteManagerOnly(t *testing.T) {
	me := 5
	f := newFakeCardAPI(card.Card{ID: 1, Title: "one", Column: card.ColumnDoing, AssignedTo: &me})
	bus := &recordingBus{}
	store := NewTaskStore(f, bus, openWorkday())
	store.SetIdentity(memberSnapshot(5))
	store.SelectTeam(1)
	_ = store.Refresh(context.Background())

	// Assignment is not enough; completion stays manager-only.
	if err := store.ToggleComplete(context.Background(), 1); !errors.Is(err, ErrNotAllowed) {
		t.Fatalf("err = %v, want ErrNotAllowed", err)
	}
	if len(bus.errors) != 1 || bus.errors[0] != "Only Project Managers can mark tasks complete" {
		t.Errorf("errors = %v", bus.errors)
	}
}

func TestToggleCompleteFlips(t *testing.T) {
	f := newFakeCardAPI(card.Card{ID: 1, Title: "one", Column: card.ColumnDoing, Progress: 40})
	bus := &recordingBus{}
	store := newManagedStore(t, f, bus, openWorkday())

	if err := store.ToggleComplete(context.Background(), 1); err != nil {
		t.Fatalf("toggle failed: %v", err)
	}
	if got := cardByID(t, store.Cards(), 1).Progress; got != 100 {
		t.Errorf("progress = %d, want 100", got)
	}

	if err := store.ToggleComplete(context.Background(), 1); err != nil {
		t.Fatalf("second toggle failed: %v", err)
	}
	if got := cardByID(t, store.Cards(), 1).Progress; got != 0 {
		t.Errorf("progress = %d, want 0", got)
	}
	want := []string{"Marked complete", "Marked incomplete"}
	for i, w := range want {
		if i >= len(bus.successes) || bus.successes[i] != w {
			t.Errorf("successes = %v, want %v", bus.successes, want)
			break
		}
	}
}

func TestCreateCardRequiresTitle(t *testing.T) {
	f := newFakeCardAPI()
	bus := &recordingBus{}
	store := newManagedStore(t, f, bus)

	if _, err := store.CreateCard(context.Background(), card.Card{}); !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("err = %v, want ErrTitleRequired", err)
	}
	if len(bus.errors) != 1 || bus.errors[0] != "Title is required" {
		t.Errorf("errors = %v", bus.errors)
	}
}

func TestCreateCardAppendsAndDefaultsTeam(t *testing.T) {
	f := newFakeCardAPI()
	bus := &recordingBus{}
	store := newManagedStore(t, f, bus)

	created, err := store.CreateCard(context.Background(), card.Card{Title: "new task", Priority: card.PriorityHigh})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	if created.Team != 1 {
		t.Errorf("team = %d, want the selected team 1", created.Team)
	}
	if created.Column != card.ColumnBacklog {
		t.Errorf("column = %s, want new cards to land in backlog", created.Column)
	}
	if got := cardByID(t, store.Cards(), created.ID); got.Title != "new task" {
		t.Errorf("created card missing from the list: %v", store.Cards())
	}
	if len(bus.successes) != 1 || bus.successes[0] != "Card created successfully" {
		t.Errorf("successes = %v", bus.successes)
	}
}

func TestEditCardRollsBackWholeCard(t *testing.T) {
	f := newFakeCardAPI(card.Card{ID: 1, Title: "old title", Column: card.ColumnTodo, Progress: 10})
	bus := &recordingBus{}
	store := newManagedStore(t, f, bus)

	f.mu.Lock()
	f.failOps["update"] = &api.APIError{Status: 400, Detail: "Invalid payload."}
	f.mu.Unlock()

	title := "new title"
	if err := store.EditCard(context.Background(), 1, card.Patch{Title: &title}); err == nil {
		t.Fatal("expected edit to fail")
	}

	got := cardByID(t, store.Cards(), 1)
	if got.Title != "old title" || got.Progress != 10 {
		t.Errorf("card = %+v after rollback, want the original back", got)
	}
	if len(bus.errors) != 1 || bus.errors[0] != "Update card failed: Invalid payload." {
		t.Errorf("errors = %v", bus.errors)
	}
}

func TestSweepExpiredMovesToBacklog(t *testing.T) {
	past := time.Now().Add(-48 * time.Hour)
	future := time.Now().Add(48 * time.Hour)
	f := newFakeCardAPI(
		card.Card{ID: 1, Title: "stale", Column: card.ColumnDoing, SprintFinish: &past},
		card.Card{ID: 2, Title: "fresh", Column: card.ColumnDoing, SprintFinish: &future},
		card.Card{ID: 3, Title: "parked", Column: card.ColumnBacklog, SprintFinish: &past},
	)
	store := newManagedStore(t, f, &recordingBus{})

	store.SweepExpired(context.Background())

	if got := cardByID(t, store.Cards(), 1).Column; got != card.ColumnBacklog {
		t.Errorf("expired card column = %s, want backlog", got)
	}
	if got := cardByID(t, store.Cards(), 2).Column; got != card.ColumnDoing {
		t.Errorf("fresh card moved to %s", got)
	}
	if f.patchCount() != 1 {
		t.Errorf("patches = %d, want only the expired non-backlog card patched", f.patchCount())
	}
}

func TestSetIdentityUnverifiedClearsCards(t *testing.T) {
	f := newFakeCardAPI(card.Card{ID: 1, Title: "one", Column: card.ColumnTodo})
	store := newManagedStore(t, f, &recordingBus{})

	if len(store.Cards()) != 1 {
		t.Fatalf("setup: cards = %d, want 1", len(store.Cards()))
	}

	snap := managerSnapshot()
	snap.State = session.GateUnauthenticated
	snap.Principal = nil
	store.SetIdentity(snap)

	if len(store.Cards()) != 0 {
		t.Error("cards survived sign-out")
	}
}

func TestAssignedCardsFiltersByProfile(t *testing.T) {
	mine := 4
	other := 9
	f := newFakeCardAPI(
		card.Card{ID: 1, Title: "Mine", Column: card.ColumnDoing, AssignedTo: &mine, Progress: 40},
		card.Card{ID: 2, Title: "Theirs", Column: card.ColumnTodo, AssignedTo: &other},
		card.Card{ID: 3, Title: "Nobody", Column: card.ColumnBacklog},
	)
	store := NewTaskStore(f, &recordingBus{})
	store.SetIdentity(memberSnapshot(4))
	store.SelectTeam(1)
	if err := store.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}

	got := store.AssignedCards()
	if len(got) != 1 || got[0].ID != 1 {
		t.Errorf("assigned cards = %v, want only card 1", got)
	}
}
