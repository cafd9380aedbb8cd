package domain

import (
	"strings"
	"testing"

	mesos "github.com/mesos/mesos-go/api/v1/lib"
	"github.com/pkg/errors"
)

var testRenderConfig = RenderConfig{
	Unit:            DefaultUnit,
	RunID:           "run-1",
	ExecutorCommand: "python calico_executor.py",
	ProbeCommand:    "./netcheck-probe",
	URIs:            []string{"http://files/netcheck-probe"},
	NetworkName:     "calico",
}

func setState(t *Task, s mesos.TaskState) { t.State = &s }

func TestParseTaskKind(t *testing.T) {
	for _, k := range []TaskKind{SleepTask, PingTask, NetcatListenTask, NetcatSendTask} {
		parsed, err := ParseTaskKind(k.String())
		if err != nil || parsed != k {
			t.Errorf("round trip of %s gave %v, %v", k, parsed, err)
		}
	}
	if k, err := ParseTaskKind(" Ping "); err != nil || k != PingTask {
		t.Errorf("expected short form to parse, got %v, %v", k, err)
	}
	if _, err := ParseTaskKind("dance"); err == nil {
		t.Error("expected an unknown kind to fail")
	}
}

func TestNetworkDefaults(t *testing.T) {
	sleep := NewSleepTask(TaskOptions{Netgroups: []string{"A"}})
	if !sleep.Calico || sleep.AutoIPv4 != 1 || sleep.ExpectedIPCount() != 1 {
		t.Errorf("isolated task without a request should get one ipv4, got %+v", sleep)
	}
	static := NewSleepTask(TaskOptions{RequestedIPs: []string{"192.168.28.23"}, AutoIPv4: 2})
	if static.ExpectedIPCount() != 3 {
		t.Errorf("expected 3 addresses, got %d", static.ExpectedIPCount())
	}
	listen := NewNetcatListenTask(TaskOptions{Netgroups: []string{"A"}, AutoIPv4: 2})
	if listen.Calico || listen.Netgroups != nil || listen.AutoIPv4 != 0 || listen.ExpectedIPCount() != 0 {
		t.Errorf("opt-out task should carry no network request, got %+v", listen)
	}
}

func TestRenderRequiresIDAndAgent(t *testing.T) {
	task := NewSleepTask(TaskOptions{})
	if _, err := task.Render(testRenderConfig); errors.Cause(err) != ErrNotLaunchable {
		t.Fatalf("expected ErrNotLaunchable, got %v", err)
	}
	task.ID = "0"
	if _, err := task.Render(testRenderConfig); errors.Cause(err) != ErrNotLaunchable {
		t.Fatalf("expected ErrNotLaunchable without an agent, got %v", err)
	}
	task.AgentID = "agent1"
	if _, err := task.Render(testRenderConfig); err != nil {
		t.Fatalf("unexpected error %v", err)
	}
}

func TestRenderCustomExecutor(t *testing.T) {
	task := NewSleepTask(TaskOptions{Netgroups: []string{"A", "B"}, RequestedIPs: []string{"192.168.28.23"}, AutoIPv4: 1, AutoIPv6: 1})
	task.ID, task.AgentID = "7", "agent1"
	info, err := task.Render(testRenderConfig)
	if err != nil {
		t.Fatal(err)
	}
	if info.TaskID.Value != "7" || info.AgentID.Value != "agent1" {
		t.Errorf("unexpected ids %v %v", info.TaskID, info.AgentID)
	}
	if LabelValue(info, "task_type") != "sleep_task" || LabelValue(info, "run_id") != "run-1" {
		t.Errorf("unexpected labels %v", info.Labels)
	}
	if info.Command != nil || info.Executor == nil {
		t.Fatalf("custom mode should render an executor, got %+v", info)
	}
	if v := info.Executor.Command.GetValue(); v != "python calico_executor.py sleep_task" {
		t.Errorf("unexpected executor command %q", v)
	}
	if info.Executor.ExecutorID.Value != "execute Task 7" {
		t.Errorf("unexpected executor id %q", info.Executor.ExecutorID.Value)
	}
	nets := info.Executor.Container.NetworkInfos
	if len(nets) != 1 {
		t.Fatalf("expected one network info, got %v", nets)
	}
	ni := nets[0]
	if ni.GetName() != "calico" || strings.Join(ni.Groups, ",") != "A,B" {
		t.Errorf("unexpected network info %+v", ni)
	}
	if len(ni.IPAddresses) != 3 {
		t.Fatalf("expected 3 address requests, got %v", ni.IPAddresses)
	}
	if ni.IPAddresses[0].GetIPAddress() != "192.168.28.23" ||
		ni.IPAddresses[1].GetProtocol() != mesos.IPv4 ||
		ni.IPAddresses[2].GetProtocol() != mesos.IPv6 {
		t.Errorf("unexpected address requests %v", ni.IPAddresses)
	}
	var cpus, mem float64
	for _, r := range info.Resources {
		switch r.Name {
		case "cpus":
			cpus = r.GetScalar().GetValue()
		case "mem":
			mem = r.GetScalar().GetValue()
		}
	}
	if cpus != DefaultTaskCPUs || mem != DefaultTaskMem {
		t.Errorf("unexpected resources cpus=%v mem=%v", cpus, mem)
	}
}

func TestRenderPingLabelsAndDefaultCommand(t *testing.T) {
	peer := NewSleepTask(TaskOptions{})
	peer.IPAddresses = []string{"192.168.0.1"}
	other := NewSleepTask(TaskOptions{})
	other.IPAddresses = []string{"192.168.0.2", "192.168.0.3"}
	ping := NewPingTask(TaskOptions{}, []*Task{peer}, []*Task{other})
	ping.ID, ping.AgentID = "2", "agent1"

	info, err := ping.Render(testRenderConfig)
	if err != nil {
		t.Fatal(err)
	}
	if LabelValue(info, "can_ping") != "192.168.0.1" || LabelValue(info, "cant_ping") != "192.168.0.2,192.168.0.3" {
		t.Errorf("unexpected ping labels %v", info.Labels)
	}

	cfg := testRenderConfig
	cfg.Mode = ExecutorDefault
	info, err = ping.Render(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if info.Executor != nil || info.Command == nil || info.Container == nil {
		t.Fatalf("default mode should render a command, got %+v", info)
	}
	expected := "./netcheck-probe ping --can 192.168.0.1 --cant 192.168.0.2,192.168.0.3"
	if v := info.Command.GetValue(); v != expected {
		t.Errorf("expected command %q, got %q", expected, v)
	}
	if len(info.Command.URIs) != 1 || info.Command.URIs[0].Value != "http://files/netcheck-probe" {
		t.Errorf("unexpected uris %v", info.Command.URIs)
	}
}

func TestRenderNetcatTasks(t *testing.T) {
	listen := NewNetcatListenTask(TaskOptions{})
	listen.ID, listen.AgentID, listen.Hostname, listen.Port = "0", "agent1", "host1", 31005
	info, err := listen.Render(testRenderConfig)
	if err != nil {
		t.Fatal(err)
	}
	if len(info.Executor.Container.NetworkInfos) != 0 {
		t.Errorf("opt-out task should not request a network, got %v", info.Executor.Container.NetworkInfos)
	}
	var ports []mesos.Value_Range
	for _, r := range info.Resources {
		if r.Name == "ports" {
			ports = r.GetRanges().GetRange()
		}
	}
	if len(ports) != 1 || ports[0].Begin != 31005 || ports[0].End != 31005 {
		t.Errorf("expected a single reserved port, got %v", ports)
	}

	portless := NewNetcatListenTask(TaskOptions{})
	portless.ID, portless.AgentID = "2", "agent1"
	if _, err := portless.Render(testRenderConfig); errors.Cause(err) != ErrNoPort {
		t.Errorf("expected ErrNoPort, got %v", err)
	}

	send := NewNetcatSendTask(TaskOptions{}, []*Task{listen})
	send.ID, send.AgentID = "1", "agent2"
	info, err = send.Render(testRenderConfig)
	if err != nil {
		t.Fatal(err)
	}
	if v := LabelValue(info, "can_cat"); v != "host1:31005" {
		t.Errorf("unexpected can_cat %q", v)
	}
}

func TestDependencies(t *testing.T) {
	sleep := NewSleepTask(TaskOptions{})
	ping := NewPingTask(TaskOptions{}, []*Task{sleep}, nil)

	if ok, err := sleep.DependenciesAreMet(); !ok || err != nil {
		t.Errorf("an unlaunched sleep task is ready, got %v %v", ok, err)
	}
	if ok, _ := ping.DependenciesAreMet(); ok {
		t.Error("ping should wait for its peer")
	}
	setState(sleep, mesos.TASK_STAGING)
	if ok, _ := ping.DependenciesAreMet(); ok {
		t.Error("a staging peer is not running")
	}
	if ok, _ := sleep.DependenciesAreMet(); ok {
		t.Error("a launched sleep task is not ready again")
	}
	setState(sleep, mesos.TASK_RUNNING)
	if ok, err := ping.DependenciesAreMet(); !ok || err != nil {
		t.Errorf("ping should be ready, got %v %v", ok, err)
	}
	setState(ping, mesos.TASK_STAGING)
	if _, err := ping.DependenciesAreMet(); errors.Cause(err) != ErrAlreadyLaunched {
		t.Errorf("expected ErrAlreadyLaunched, got %v", err)
	}

	listen := NewNetcatListenTask(TaskOptions{})
	send := NewNetcatSendTask(TaskOptions{}, []*Task{listen})
	if ok, _ := send.DependenciesAreMet(); ok {
		t.Error("send should wait for its listener")
	}
	setState(listen, mesos.TASK_RUNNING)
	if ok, _ := send.DependenciesAreMet(); !ok {
		t.Error("send should be ready")
	}
	setState(send, mesos.TASK_RUNNING)
	if ok, _ := send.DependenciesAreMet(); ok {
		t.Error("a launched sender is not ready again")
	}
	if !send.Targeting(listen) || listen.Targeting(send) {
		t.Error("unexpected targeting")
	}
}

func TestStateNameAndFailedResults(t *testing.T) {
	task := NewPingTask(TaskOptions{Name: "pinger"}, nil, nil)
	if task.StateName() != "UNLAUNCHED" {
		t.Errorf("unexpected state name %s", task.StateName())
	}
	setState(task, mesos.TASK_FINISHED)
	if task.StateName() != "TASK_FINISHED" {
		t.Errorf("unexpected state name %s", task.StateName())
	}
	task.Results = map[string]bool{"10.0.0.3": false, "10.0.0.1": true, "10.0.0.2": false}
	if f := strings.Join(task.FailedResults(), ","); f != "10.0.0.2,10.0.0.3" {
		t.Errorf("unexpected failed results %s", f)
	}
}
