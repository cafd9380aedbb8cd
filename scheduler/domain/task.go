package domain

import (
	"fmt"
	"sort"
	"strings"

	mesos "github.com/mesos/mesos-go/api/v1/lib"
	"github.com/mesos/mesos-go/api/v1/lib/resources"
	"github.com/pkg/errors"
)

type TaskKind int

const (
	// SleepTask stays alive as a probe target.
	SleepTask TaskKind = iota
	// PingTask probes peers it should and should not reach.
	PingTask
	// NetcatListenTask opts out of isolation and listens on the offer's port.
	NetcatListenTask
	// NetcatSendTask opts out of isolation and sends to listeners.
	NetcatSendTask
)

var taskKindNames = map[TaskKind]string{
	SleepTask:        "sleep_task",
	PingTask:         "ping_task",
	NetcatListenTask: "netcat_listen",
	NetcatSendTask:   "netcat_send",
}

// String is the executor argument naming the task type.
func (k TaskKind) String() string {
	if n, ok := taskKindNames[k]; ok {
		return n
	}
	return fmt.Sprintf("TaskKind(%d)", int(k))
}

// ParseTaskKind accepts both the executor names and the short forms
// sleep, ping, listen and send.
func ParseTaskKind(s string) (TaskKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "sleep", "sleep_task":
		return SleepTask, nil
	case "ping", "ping_task":
		return PingTask, nil
	case "listen", "netcat_listen":
		return NetcatListenTask, nil
	case "send", "netcat_send":
		return NetcatSendTask, nil
	}
	return 0, errors.Errorf("unknown task kind %q", s)
}

// TestHandle identifies the test case a task belongs to within a scheduler.
type TestHandle int

const NoTest TestHandle = -1

// TaskOptions are the fields shared by every task kind.
type TaskOptions struct {
	Name string
	// Host is a logical host label. Tasks with the same label must share an
	// agent, tasks with different labels must not. Empty means anywhere.
	Host         string
	Netgroups    []string
	RequestedIPs []string
	AutoIPv4     int
	AutoIPv6     int
}

// Task is one unit of work in a test. Its kind is fixed at construction and
// selects the variant that decides readiness and adds kind-specific fields
// to the rendered TaskInfo.
type Task struct {
	Name         string
	Kind         TaskKind
	Host         string
	Netgroups    []string
	RequestedIPs []string
	AutoIPv4     int
	AutoIPv6     int
	// Calico is false for tasks that opt out of network isolation.
	Calico bool

	// Set while matching and launching.
	ID       string
	AgentID  string
	Hostname string
	Port     uint64

	// Set from status updates. State is nil until launch.
	State       *mesos.TaskState
	IPAddresses []string
	Message     string
	// Results maps a probed target to whether the expectation held.
	Results map[string]bool

	test    TestHandle
	variant variant
}

type variant interface {
	ready(t *Task) (bool, error)
	peers() []*Task
	decorate(t *Task, info *mesos.TaskInfo, cfg RenderConfig)
}

func newTask(kind TaskKind, calico bool, opts TaskOptions, v variant) *Task {
	t := &Task{
		Name:         opts.Name,
		Kind:         kind,
		Host:         opts.Host,
		Netgroups:    opts.Netgroups,
		RequestedIPs: opts.RequestedIPs,
		AutoIPv4:     opts.AutoIPv4,
		AutoIPv6:     opts.AutoIPv6,
		Calico:       calico,
		test:         NoTest,
		variant:      v,
	}
	if !calico {
		t.Netgroups, t.RequestedIPs, t.AutoIPv4, t.AutoIPv6 = nil, nil, 0, 0
	} else if len(t.RequestedIPs) == 0 && t.AutoIPv4 == 0 && t.AutoIPv6 == 0 {
		// An isolated task with no address request gets one IPv4 address.
		t.AutoIPv4 = 1
	}
	return t
}

// Test returns the handle of the owning test, or NoTest before binding.
func (t *Task) Test() TestHandle { return t.test }

func (t *Task) Launched() bool { return t.State != nil }

// InState is false for unlaunched tasks.
func (t *Task) InState(s mesos.TaskState) bool {
	return t.State != nil && *t.State == s
}

// ExpectedIPCount is the number of addresses an isolated task must report.
func (t *Task) ExpectedIPCount() int {
	return len(t.RequestedIPs) + t.AutoIPv4 + t.AutoIPv6
}

// DependenciesAreMet reports whether the task may be launched now.
func (t *Task) DependenciesAreMet() (bool, error) {
	return t.variant.ready(t)
}

// Targets are the peer tasks this task probes, if any.
func (t *Task) Targets() []*Task {
	return t.variant.peers()
}

// Targeting reports whether other is one of t's probe targets.
func (t *Task) Targeting(other *Task) bool {
	for _, p := range t.variant.peers() {
		if p == other {
			return true
		}
	}
	return false
}

// StateName is the task state or UNLAUNCHED.
func (t *Task) StateName() string {
	if t.State == nil {
		return "UNLAUNCHED"
	}
	return t.State.String()
}

// FailedResults lists probed targets whose expectation did not hold, sorted.
func (t *Task) FailedResults() []string {
	var failed []string
	for target, ok := range t.Results {
		if !ok {
			failed = append(failed, target)
		}
	}
	sort.Strings(failed)
	return failed
}

func (t *Task) String() string {
	var b strings.Builder
	if t.Name != "" {
		b.WriteString(t.Name)
	} else {
		b.WriteString(t.Kind.String())
	}
	fmt.Fprintf(&b, "(id=%s", t.ID)
	if len(t.IPAddresses) > 0 {
		fmt.Fprintf(&b, ", ips=%s", strings.Join(t.IPAddresses, ","))
	}
	if len(t.Netgroups) > 0 {
		fmt.Fprintf(&b, ", netgroups=%s", strings.Join(t.Netgroups, ","))
	}
	if t.Host != "" {
		fmt.Fprintf(&b, ", host=%s", t.Host)
	}
	b.WriteString(")")
	return b.String()
}

type ExecutorMode int

const (
	// ExecutorCustom launches tasks under the netcheck executor, which reads
	// probe targets from task labels and reports results in status data.
	ExecutorCustom ExecutorMode = iota
	// ExecutorDefault launches tasks as plain commands under the agent's
	// built-in command executor, with probe targets inlined in the command.
	ExecutorDefault
)

func (m ExecutorMode) String() string {
	if m == ExecutorDefault {
		return "default"
	}
	return "custom"
}

// RenderConfig carries the run-wide settings needed to render TaskInfos.
type RenderConfig struct {
	Unit  Unit
	RunID string
	Mode  ExecutorMode
	// ExecutorCommand is run by the custom executor with the task kind appended.
	ExecutorCommand string
	// ProbeCommand is the probe binary invoked under the default executor.
	ProbeCommand string
	// URIs are fetched into the sandbox before the executor or command runs.
	URIs        []string
	NetworkName string
}

// Render builds the TaskInfo sent in a launch operation.
func (t *Task) Render(cfg RenderConfig) (mesos.TaskInfo, error) {
	if t.ID == "" || t.AgentID == "" {
		return mesos.TaskInfo{}, errors.Wrapf(ErrNotLaunchable, "rendering %s", t)
	}
	if t.Kind == NetcatListenTask && t.Port == 0 {
		return mesos.TaskInfo{}, errors.Wrapf(ErrNoPort, "rendering %s", t)
	}
	info := mesos.TaskInfo{
		Name:    t.String(),
		TaskID:  mesos.TaskID{Value: t.ID},
		AgentID: mesos.AgentID{Value: t.AgentID},
		Resources: []mesos.Resource{
			resources.NewCPUs(cfg.Unit.CPUs).Resource,
			resources.NewMemory(cfg.Unit.Mem).Resource,
		},
		Labels: &mesos.Labels{Labels: []mesos.Label{
			label("task_type", t.Kind.String()),
			label("run_id", cfg.RunID),
		}},
	}

	container := &mesos.ContainerInfo{Type: mesos.ContainerInfo_MESOS.Enum()}
	if t.Calico {
		container.NetworkInfos = []mesos.NetworkInfo{t.networkInfo(cfg.NetworkName)}
	}

	uris := make([]mesos.CommandInfo_URI, 0, len(cfg.URIs))
	for _, u := range cfg.URIs {
		uris = append(uris, mesos.CommandInfo_URI{Value: u})
	}

	if cfg.Mode == ExecutorDefault {
		info.Command = &mesos.CommandInfo{URIs: uris}
		info.Container = container
	} else {
		cmd := cfg.ExecutorCommand + " " + t.Kind.String()
		name := "Test Executor for Task " + t.ID
		info.Executor = &mesos.ExecutorInfo{
			ExecutorID: mesos.ExecutorID{Value: "execute Task " + t.ID},
			Name:       &name,
			Command:    &mesos.CommandInfo{Value: &cmd, URIs: uris},
			Container:  container,
		}
	}
	t.variant.decorate(t, &info, cfg)
	return info, nil
}

func (t *Task) networkInfo(name string) mesos.NetworkInfo {
	ni := mesos.NetworkInfo{Groups: t.Netgroups}
	if name != "" {
		ni.Name = &name
	}
	for i := range t.RequestedIPs {
		ip := t.RequestedIPs[i]
		ni.IPAddresses = append(ni.IPAddresses, mesos.NetworkInfo_IPAddress{IPAddress: &ip})
	}
	for i := 0; i < t.AutoIPv4; i++ {
		ni.IPAddresses = append(ni.IPAddresses, mesos.NetworkInfo_IPAddress{Protocol: mesos.IPv4.Enum()})
	}
	for i := 0; i < t.AutoIPv6; i++ {
		ni.IPAddresses = append(ni.IPAddresses, mesos.NetworkInfo_IPAddress{Protocol: mesos.IPv6.Enum()})
	}
	return ni
}

func label(key, value string) mesos.Label {
	return mesos.Label{Key: key, Value: &value}
}

// LabelValue returns the value of the named label on info, or "".
func LabelValue(info mesos.TaskInfo, key string) string {
	for _, l := range info.GetLabels().GetLabels() {
		if l.Key == key {
			return l.GetValue()
		}
	}
	return ""
}
