package domain

import (
	"testing"
	"time"

	mesos "github.com/mesos/mesos-go/api/v1/lib"
	"github.com/pkg/errors"
)

func TestBindStampsTasksOnce(t *testing.T) {
	tc := makeTest("A", "")
	if err := tc.Bind(3); err != nil {
		t.Fatal(err)
	}
	for _, task := range tc.Tasks {
		if task.Test() != 3 {
			t.Errorf("expected handle 3, got %d", task.Test())
		}
	}
	if err := tc.Bind(4); errors.Cause(err) != ErrAlreadyBound {
		t.Errorf("expected ErrAlreadyBound, got %v", err)
	}

	// A task shared with another test cannot be bound twice.
	other := NewTestCase("other", tc.Tasks[0])
	if err := other.Bind(5); errors.Cause(err) != ErrAlreadyBound {
		t.Errorf("expected ErrAlreadyBound, got %v", err)
	}
	if other.Handle() != NoTest || tc.Tasks[0].Test() != 3 {
		t.Error("a failed bind must change nothing")
	}
}

func TestTimeouts(t *testing.T) {
	tc := makeTest("")
	now := time.Unix(1000, 0)
	if _, err := tc.TimedOut(now, time.Second); errors.Cause(err) != ErrNoTimeout {
		t.Fatalf("expected ErrNoTimeout, got %v", err)
	}

	tc.StartTimeoutIfNotCurrentlyStarted(now)
	tc.StartTimeoutIfNotCurrentlyStarted(now.Add(10 * time.Second))
	if !tc.Timeout.Equal(now) {
		t.Errorf("a running timeout must not restart, got %v", tc.Timeout)
	}
	if out, _ := tc.TimedOut(now.Add(45*time.Second), 45*time.Second); out {
		t.Error("exactly the limit is not a timeout")
	}
	if out, _ := tc.TimedOut(now.Add(46*time.Second), 45*time.Second); !out {
		t.Error("expected a timeout")
	}

	tc.RestartTimeout(now.Add(40 * time.Second))
	if out, _ := tc.TimedOut(now.Add(46*time.Second), 45*time.Second); out {
		t.Error("a restarted timeout should not have expired")
	}
	tc.RemoveTimeout()
	if tc.Timeout != nil {
		t.Error("expected no timeout")
	}
}

func TestTestCaseSummaries(t *testing.T) {
	sleep := NewSleepTask(TaskOptions{})
	ping := NewPingTask(TaskOptions{}, []*Task{sleep}, nil)
	tc := NewTestCase("summaries", sleep, ping)
	if tc.AllFinished() || tc.HasBadTask() || !tc.HasUnlaunchedTask() {
		t.Fatal("unexpected summary for a fresh test")
	}
	if targeters := tc.Targeters(sleep); len(targeters) != 1 || targeters[0] != ping {
		t.Errorf("expected ping to target sleep, got %v", targeters)
	}
	setState(sleep, mesos.TASK_FINISHED)
	setState(ping, mesos.TASK_FINISHED)
	if !tc.AllFinished() || tc.HasUnlaunchedTask() {
		t.Error("expected every task finished")
	}
	ping.Results = map[string]bool{"10.0.0.1": false}
	if !tc.HasFailedResults() {
		t.Error("expected a failed result")
	}
	setState(sleep, mesos.TASK_LOST)
	if !tc.HasBadTask() {
		t.Error("expected a bad task")
	}
}
