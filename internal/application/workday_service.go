package application

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/felixgeelhaar/kanbanize/internal/infrastructure/api"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/card"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/events"
	"github.com/felixgeelhaar/kanbanize/pkg/domain/workday"
)

// WorkdayAPI is the slice of the REST client the timer needs.
type WorkdayAPI interface {
	ListWorkdays(ctx context.Context) ([]workday.Session, error)
	StartWorkday(ctx context.Context, start time.Time) (*workday.Session, error)
	EndWorkday(ctx context.Context, id int, end time.Time, workingHours string) (*workday.Session, error)
}

// WorkdayService drives the workday timer: one open session at a time,
// a cool-down between starts, and an end-of-day summary built from the
// board's current task list.
type WorkdayService struct {
	api   WorkdayAPI
	bus   events.Publisher
	now   func() time.Time
	tasks func() []card.Card

	mu        sync.Mutex
	machine   *workday.TimerMachine
	current   *workday.Session
	lastStart time.Time
	subs      []func(bool)
}

// WorkdayOption configures a WorkdayService.
type WorkdayOption func(*WorkdayService)

// WithWorkdayClock overrides the time source.
func WithWorkdayClock(now func() time.Time) WorkdayOption {
	return func(s *WorkdayService) { s.now = now }
}

// WithTaskSource wires the provider of the tasks summarized at end of
// day.
func WithTaskSource(tasks func() []card.Card) WorkdayOption {
	return func(s *WorkdayService) { s.tasks = tasks }
}

// NewWorkdayService creates an idle timer.
func NewWorkdayService(workdayAPI WorkdayAPI, bus events.Publisher, opts ...WorkdayOption) (*WorkdayService, error) {
	s := &WorkdayService{
		api:   workdayAPI,
		bus:   bus,
		now:   time.Now,
		tasks: func() []card.Card { return nil },
	}
	for _, fn := range opts {
		fn(s)
	}

	machine, err := workday.NewTimerMachine(func(string) bool {
		return workday.CanStart(s.now(), s.lastStartTime())
	})
	if err != nil {
		return nil, err
	}
	s.machine = machine
	return s, nil
}

// Started reports whether a workday is currently open. The board's
// progress mutations gate on this.
func (s *WorkdayService) Started() bool {
	return s.machine.Running()
}

// Subscribe registers a callback invoked with the running flag on every
// change.
func (s *WorkdayService) Subscribe(fn func(bool)) {
	s.mu.Lock()
	s.subs = append(s.subs, fn)
	s.mu.Unlock()
}

// Elapsed returns the running session's age, zero when idle.
func (s *WorkdayService) Elapsed() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.current == nil || !s.current.Open() {
		return 0
	}
	return s.now().Sub(s.current.StartTime)
}

// ElapsedDisplay returns the HH:MM:SS reading of the timer.
func (s *WorkdayService) ElapsedDisplay() string {
	return workday.FormatElapsed(s.Elapsed())
}

// Resync fetches the session history and adopts the server state: an
// open session resumes the timer, a closed one seeds the cool-down.
func (s *WorkdayService) Resync(ctx context.Context) error {
	sessions, err := s.api.ListWorkdays(ctx)
	if err != nil {
		s.bus.Error(api.FailureMessage("Fetch workdays", err))
		return err
	}

	latest := workday.Latest(sessions)
	if latest == nil {
		return nil
	}

	s.mu.Lock()
	s.lastStart = latest.StartTime
	resumed := false
	if latest.Open() && !s.machine.Running() {
		if err := s.machine.Transition(workday.EventResume); err == nil {
			open := *latest
			s.current = &open
			resumed = true
		}
	}
	s.mu.Unlock()

	if resumed {
		s.bus.Info("Resumed active workday")
		s.notify()
	}
	return nil
}

// Start opens a new workday. A start inside the cool-down reports the
// remaining wait instead of calling the API.
func (s *WorkdayService) Start(ctx context.Context) error {
	now := s.now()

	if !workday.CanStart(now, s.lastStartTime()) {
		s.bus.Error(fmt.Sprintf("You can start a new workday after %d minutes", workday.WaitMinutes(now, s.lastStartTime())))
		return ErrCooldown
	}

	// The guard re-reads lastStart under the lock, so the transition
	// runs unlocked.
	if err := s.machine.Transition(workday.EventStart); err != nil {
		return err
	}
	s.notify()

	created, err := s.api.StartWorkday(ctx, now)
	if err != nil {
		// The optimistic transition comes back out.
		s.mu.Lock()
		_ = s.machine.Transition(workday.EventEnd)
		s.mu.Unlock()
		s.notify()
		s.bus.Error(api.FailureMessage("Start workday", err))
		return err
	}

	s.mu.Lock()
	s.current = created
	s.lastStart = created.StartTime
	s.mu.Unlock()

	s.bus.Success("Work day started!")
	return nil
}

// End closes the open workday, recording the worked duration and
// raising the summary notification.
func (s *WorkdayService) End(ctx context.Context) error {
	s.mu.Lock()
	if s.current == nil || !s.machine.Running() {
		s.mu.Unlock()
		s.bus.Error("No active workday to end")
		return ErrNoActiveWorkday
	}
	open := *s.current
	s.mu.Unlock()

	now := s.now()
	hours := workday.FormatElapsed(now.Sub(open.StartTime))

	ended, err := s.api.EndWorkday(ctx, open.ID, now, hours)
	if err != nil {
		s.bus.Error(api.FailureMessage("End workday", err))
		return err
	}

	s.mu.Lock()
	_ = s.machine.Transition(workday.EventEnd)
	s.current = ended
	s.mu.Unlock()
	s.notify()

	summary := workday.Summary(s.tasks())
	s.bus.Success(fmt.Sprintf("Your day has ended! Working hours: %s. Task Progress: %s", hours, summary))
	return nil
}

func (s *WorkdayService) lastStartTime() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastStart
}

func (s *WorkdayService) notify() {
	running := s.machine.Running()
	s.mu.Lock()
	subs := make([]func(bool), len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, fn := range subs {
		fn(running)
	}
}
