package domain

import (
	"encoding/json"
	"fmt"
	"sort"

	mesos "github.com/mesos/mesos-go/api/v1/lib"
)

// BadTaskStates are terminal states that fail the owning test.
var BadTaskStates = map[mesos.TaskState]bool{
	mesos.TASK_LOST:    true,
	mesos.TASK_KILLED:  true,
	mesos.TASK_FAILED:  true,
	mesos.TASK_ERROR:   true,
	mesos.TASK_DROPPED: true,
	mesos.TASK_GONE:    true,
}

func (t *Task) InBadState() bool {
	return t.State != nil && BadTaskStates[*t.State]
}

// ProcessUpdate validates a status update against the task's address
// requirements and records it. A rejected update leaves the task unchanged
// and returns a *TaskUpdateError.
//
// Address checks run only when the update reports at least one address:
// updates generated by the master (TASK_LOST and friends) carry none.
func (t *Task) ProcessUpdate(status mesos.TaskStatus) error {
	reported := ReportedIPs(status)
	if len(reported) > 0 {
		if err := t.validateAddresses(reported); err != nil {
			return err
		}
	}

	var results map[string]bool
	state := status.GetState()
	if state == mesos.TASK_FINISHED && len(status.Data) > 0 && (t.Kind == PingTask || t.Kind == NetcatSendTask) {
		if err := json.Unmarshal(status.Data, &results); err != nil {
			return &TaskUpdateError{t.String(), fmt.Sprintf("could not parse probe results %q: %v", status.Data, err)}
		}
	}

	t.State = &state
	t.Message = status.GetMessage()
	if t.IPAddresses == nil && len(reported) > 0 {
		t.IPAddresses = reported
	}
	if results != nil {
		t.Results = results
	}
	return nil
}

func (t *Task) validateAddresses(reported []string) error {
	have := make(map[string]bool, len(reported))
	for _, ip := range reported {
		have[ip] = true
	}
	for _, ip := range t.RequestedIPs {
		if !have[ip] {
			return &TaskUpdateError{t.String(), fmt.Sprintf("requested IP %s not in reported addresses %v", ip, reported)}
		}
	}
	if t.Calico && len(reported) != t.ExpectedIPCount() {
		return &TaskUpdateError{t.String(), fmt.Sprintf(
			"reported %d addresses %v, expected %d", len(reported), reported, t.ExpectedIPCount())}
	}
	if t.IPAddresses != nil && !sameAddresses(t.IPAddresses, reported) {
		return &TaskUpdateError{t.String(), fmt.Sprintf(
			"addresses changed from %v to %v", t.IPAddresses, reported)}
	}
	return nil
}

// ReportedIPs collects every address in the update's container status, sorted.
func ReportedIPs(status mesos.TaskStatus) []string {
	cs := status.GetContainerStatus()
	if cs == nil {
		return nil
	}
	var ips []string
	for i := range cs.NetworkInfos {
		addrs := cs.NetworkInfos[i].IPAddresses
		for j := range addrs {
			if ip := addrs[j].GetIPAddress(); ip != "" {
				ips = append(ips, ip)
			}
		}
	}
	sort.Strings(ips)
	return ips
}

func sameAddresses(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	as := append([]string{}, a...)
	bs := append([]string{}, b...)
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}
