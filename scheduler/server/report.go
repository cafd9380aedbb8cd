package server

import (
	"bufio"
	"fmt"
	"io"

	"github.com/projectcalico/netcheck/common/errors"
	"github.com/projectcalico/netcheck/scheduler/domain"
)

type Verdict string

const (
	Pass       Verdict = "PASS"
	Fail       Verdict = "FAIL"
	Killed     Verdict = "KILLED"
	Unlaunched Verdict = "UNLAUNCHED"
	// InProgress only shows up in snapshots taken before the run ends.
	InProgress Verdict = "RUNNING"
)

type TaskReport struct {
	Name        string          `json:"name"`
	ID          string          `json:"id,omitempty"`
	State       string          `json:"state"`
	Bad         bool            `json:"bad,omitempty"`
	IPAddresses []string        `json:"ipAddresses,omitempty"`
	Message     string          `json:"message,omitempty"`
	Probe       bool            `json:"probe,omitempty"`
	Results     map[string]bool `json:"results,omitempty"`
}

type TestReport struct {
	Name    string       `json:"name"`
	Verdict Verdict      `json:"verdict"`
	Reason  string       `json:"reason,omitempty"`
	Tasks   []TaskReport `json:"tasks"`
}

type Report struct {
	Tests []TestReport `json:"tests"`
}

func newReport(tests []*domain.TestCase) Report {
	r := Report{Tests: make([]TestReport, 0, len(tests))}
	for _, tc := range tests {
		r.Tests = append(r.Tests, newTestReport(tc))
	}
	return r
}

func newTestReport(tc *domain.TestCase) TestReport {
	tr := TestReport{Name: tc.Name, Verdict: verdictOf(tc)}
	if tr.Verdict != Pass && tr.Verdict != InProgress {
		tr.Reason = tc.AdditionalInfo
	}
	for _, t := range tc.Tasks {
		task := TaskReport{
			Name:        t.String(),
			ID:          t.ID,
			State:       t.StateName(),
			Bad:         t.InBadState(),
			IPAddresses: t.IPAddresses,
			Message:     t.Message,
			Probe:       t.Kind == domain.PingTask || t.Kind == domain.NetcatSendTask,
		}
		if len(t.Results) > 0 {
			task.Results = make(map[string]bool, len(t.Results))
			for k, v := range t.Results {
				task.Results[k] = v
			}
		}
		tr.Tasks = append(tr.Tasks, task)
	}
	return tr
}

// A bad task or a failed probe outranks a kill.
func verdictOf(tc *domain.TestCase) Verdict {
	switch {
	case tc.HasBadTask() || tc.HasFailedResults():
		return Fail
	case tc.Killed:
		return Killed
	case tc.HasUnlaunchedTask():
		return Unlaunched
	case tc.State != domain.Complete:
		return InProgress
	}
	return Pass
}

// Write prints one block per test.
func (r Report) Write(w io.Writer) error {
	b := bufio.NewWriter(w)
	for _, tr := range r.Tests {
		fmt.Fprintf(b, "|--- %s ---|\n", tr.Name)
		fmt.Fprintf(b, "Test Status: %s\n", tr.Verdict)
		if tr.Reason != "" {
			fmt.Fprintf(b, "Reason:  %s\n", tr.Reason)
		}
		fmt.Fprintln(b, "Task Statuses:")
		for _, task := range tr.Tasks {
			fmt.Fprintf(b, "\t%s: %s\n", task.Name, task.State)
			if task.Probe {
				fmt.Fprintf(b, "\t\tTest Results: %v\n", task.Results)
			}
		}
		fmt.Fprintln(b, "-----------------------------------")
		fmt.Fprintln(b)
	}
	return b.Flush()
}

// Passed is true when no task ended in a bad state and no probe failed.
func (r Report) Passed() bool {
	for _, tr := range r.Tests {
		for _, task := range tr.Tasks {
			if task.Bad {
				return false
			}
			for _, ok := range task.Results {
				if !ok {
					return false
				}
			}
		}
	}
	return true
}

func (r Report) ExitCode() errors.ExitCode {
	if r.Passed() {
		return errors.SuccessExitCode
	}
	return errors.TestFailureExitCode
}
