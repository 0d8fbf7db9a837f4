// Package application reconciles the three asynchronous truths of the
// client (identity, profile role, task list) into consistent gate state
// and optimistic mutations.
package application

import "errors"

var (
	// ErrNotAllowed means the capability set rejected the operation.
	ErrNotAllowed = errors.New("operation not allowed for this role")
	// ErrCardNotFound means the card was absent even after a re-fetch.
	ErrCardNotFound = errors.New("card not found")
	// ErrTeamNotFound means the team is absent from the fetched list.
	ErrTeamNotFound = errors.New("team not found")
	// ErrWorkdayClosed means a progress mutation was attempted without
	// an open workday session.
	ErrWorkdayClosed = errors.New("workday not started")
	// ErrCooldown means a workday start came before the 24h cool-down
	// elapsed.
	ErrCooldown = errors.New("workday cool-down active")
	// ErrNoActiveWorkday means an end was requested with nothing open.
	ErrNoActiveWorkday = errors.New("no active workday")
	// ErrTitleRequired means a card was created or edited without a title.
	ErrTitleRequired = errors.New("title is required")
	// ErrSprintExpired means an expired-sprint card was dragged out of
	// the backlog.
	ErrSprintExpired = errors.New("sprint expired")
)
