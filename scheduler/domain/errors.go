package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// Precondition failures. Each one means a caller broke an invariant; callers
// should treat them as fatal.
var (
	ErrNotLaunchable   = errors.New("task must be assigned an id and an agent before rendering")
	ErrNoTimeout       = errors.New("test has no active timeout")
	ErrAlreadyLaunched = errors.New("task has already been launched")
	ErrAlreadyBound    = errors.New("test case already bound to a handle")
	ErrNoPort          = errors.New("netcat listener must be assigned a port before rendering")
)

// ErrNotEnoughHosts is returned by CanRunOn when the pool holds fewer offers
// than the test has distinct host constraints.
var ErrNotEnoughHosts = errors.New("fewer offers than distinct host constraints")

// NotEnoughResourcesError is returned by CanRunOn when an offer is too small
// for what was paired with it.
type NotEnoughResourcesError struct {
	Msg string
}

func (e *NotEnoughResourcesError) Error() string { return e.Msg }

func needLargerOffer() error {
	return &NotEnoughResourcesError{"Need a larger offer to meet slave-id specifications"}
}

func needPortOffer() error {
	return &NotEnoughResourcesError{"Need an offer with a free port for each netcat listener"}
}

func anywhereTasksLeft(n int) error {
	return &NotEnoughResourcesError{fmt.Sprintf(
		"Matched all slave-specific tasks, but not enough remaining resources to launch the remaining %d anywhere-tasks", n)}
}

// TaskUpdateError rejects a status update whose addresses disagree with what
// the task requested or already recorded. It fails the owning test only.
type TaskUpdateError struct {
	Task   string
	Reason string
}

func (e *TaskUpdateError) Error() string {
	return fmt.Sprintf("%s: %s", e.Task, e.Reason)
}
