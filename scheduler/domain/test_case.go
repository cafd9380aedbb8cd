package domain

import (
	"fmt"
	"time"

	mesos "github.com/mesos/mesos-go/api/v1/lib"
	"github.com/pkg/errors"
)

type TestState int

const (
	Unstarted TestState = iota
	Running
	Complete
)

func (s TestState) String() string {
	switch s {
	case Unstarted:
		return "Unstarted"
	case Running:
		return "Running"
	case Complete:
		return "Complete"
	}
	return fmt.Sprintf("TestState(%d)", int(s))
}

// TestCase is a group of tasks that is placed and launched as a unit.
type TestCase struct {
	Name  string
	Tasks []*Task
	Mode  ExecutorMode

	State TestState
	// Timeout is the last watchdog checkpoint, nil while unwatched. For an
	// Unstarted test it marks when the test started waiting for offers with no
	// other test running. For a Running test it marks the last status update.
	Timeout *time.Time
	Killed  bool
	// AdditionalInfo explains a test-level failure.
	AdditionalInfo string

	handle TestHandle
}

func NewTestCase(name string, tasks ...*Task) *TestCase {
	return &TestCase{Name: name, Tasks: tasks, handle: NoTest}
}

// Bind assigns the test's handle and stamps it on every task. A test can be
// bound once.
func (tc *TestCase) Bind(h TestHandle) error {
	if tc.handle != NoTest {
		return errors.Wrapf(ErrAlreadyBound, "%s is bound to %d", tc.Name, tc.handle)
	}
	for _, t := range tc.Tasks {
		if t.test != NoTest {
			return errors.Wrapf(ErrAlreadyBound, "task %s of %s belongs to test %d", t, tc.Name, t.test)
		}
	}
	tc.handle = h
	for _, t := range tc.Tasks {
		t.test = h
	}
	return nil
}

func (tc *TestCase) Handle() TestHandle { return tc.handle }

func (tc *TestCase) RestartTimeout(now time.Time) { tc.Timeout = &now }

func (tc *TestCase) RemoveTimeout() { tc.Timeout = nil }

// TimedOut reports whether more than limit has passed since the checkpoint.
func (tc *TestCase) TimedOut(now time.Time, limit time.Duration) (bool, error) {
	if tc.Timeout == nil {
		return false, errors.Wrapf(ErrNoTimeout, "checking %s", tc.Name)
	}
	return now.Sub(*tc.Timeout) > limit, nil
}

func (tc *TestCase) StartTimeoutIfNotCurrentlyStarted(now time.Time) {
	if tc.Timeout == nil {
		tc.RestartTimeout(now)
	}
}

// AllFinished is true once every task reported TASK_FINISHED.
func (tc *TestCase) AllFinished() bool {
	for _, t := range tc.Tasks {
		if !t.InState(mesos.TASK_FINISHED) {
			return false
		}
	}
	return true
}

func (tc *TestCase) HasBadTask() bool {
	for _, t := range tc.Tasks {
		if t.InBadState() {
			return true
		}
	}
	return false
}

func (tc *TestCase) HasFailedResults() bool {
	for _, t := range tc.Tasks {
		if len(t.FailedResults()) > 0 {
			return true
		}
	}
	return false
}

func (tc *TestCase) HasUnlaunchedTask() bool {
	for _, t := range tc.Tasks {
		if !t.Launched() {
			return true
		}
	}
	return false
}

// Targeters returns the tasks of this test that probe t.
func (tc *TestCase) Targeters(t *Task) []*Task {
	var out []*Task
	for _, other := range tc.Tasks {
		if other != t && other.Targeting(t) {
			out = append(out, other)
		}
	}
	return out
}

func (tc *TestCase) String() string {
	return fmt.Sprintf("TestCase(%q, %s, %d tasks)", tc.Name, tc.State, len(tc.Tasks))
}
