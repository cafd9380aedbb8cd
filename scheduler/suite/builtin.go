// Package suite holds the test cases a run executes: the built-in suite and
// suites loaded from YAML files.
package suite

import (
	"github.com/projectcalico/netcheck/scheduler/domain"
)

const (
	netgroupA = "netgroup_a"
	netgroupB = "netgroup_b"
)

func groups(names ...string) []string { return names }

func tasks(ts ...*domain.Task) []*domain.Task { return ts }

// Builtin returns a fresh copy of the standard connectivity suite. Host
// labels "0" and "1" name two distinct agents.
func Builtin() []*domain.TestCase {
	var tests []*domain.TestCase

	sleep := domain.NewSleepTask(domain.TaskOptions{Name: "sleep", Host: "0", Netgroups: groups(netgroupA)})
	ping := domain.NewPingTask(domain.TaskOptions{Name: "ping", Host: "0", Netgroups: groups(netgroupA)}, tasks(sleep), nil)
	tests = append(tests, domain.NewTestCase("Same-Host Same-Netgroups Can Ping", sleep, ping))

	sleep = domain.NewSleepTask(domain.TaskOptions{Name: "sleep", Host: "0", Netgroups: groups(netgroupA)})
	ping = domain.NewPingTask(domain.TaskOptions{Name: "ping", Host: "0", Netgroups: groups(netgroupB)}, nil, tasks(sleep))
	tests = append(tests, domain.NewTestCase("Same-Host Different-Netgroups Can't Ping", sleep, ping))

	sleep = domain.NewSleepTask(domain.TaskOptions{Name: "sleep", Host: "0", Netgroups: groups(netgroupA)})
	ping = domain.NewPingTask(domain.TaskOptions{Name: "ping", Host: "1", Netgroups: groups(netgroupA)}, tasks(sleep), nil)
	tests = append(tests, domain.NewTestCase("Different-Host Same-Netgroups Can Ping", sleep, ping))

	sleep = domain.NewSleepTask(domain.TaskOptions{Name: "sleep", Host: "0", Netgroups: groups(netgroupA)})
	ping = domain.NewPingTask(domain.TaskOptions{Name: "ping", Host: "1", Netgroups: groups(netgroupA)}, tasks(sleep), nil)
	tc := domain.NewTestCase("Different-Host Same-Netgroups Can Ping (Default Executor)", sleep, ping)
	tc.Mode = domain.ExecutorDefault
	tests = append(tests, tc)

	sleep = domain.NewSleepTask(domain.TaskOptions{Name: "sleep", Host: "0", Netgroups: groups(netgroupA)})
	ping = domain.NewPingTask(domain.TaskOptions{Name: "ping", Host: "1", Netgroups: groups(netgroupB)}, nil, tasks(sleep))
	tests = append(tests, domain.NewTestCase("Different-Host Different-Netgroups Can't Ping", sleep, ping))

	listen := domain.NewNetcatListenTask(domain.TaskOptions{Name: "listen"})
	send := domain.NewNetcatSendTask(domain.TaskOptions{Name: "send"}, tasks(listen))
	tests = append(tests, domain.NewTestCase("Tasks that Opt-out of Calico can Communicate", listen, send))

	listen = domain.NewNetcatListenTask(domain.TaskOptions{Name: "listen"})
	send = domain.NewNetcatSendTask(domain.TaskOptions{Name: "send"}, tasks(listen))
	tc = domain.NewTestCase("Tasks that Opt-out of Calico can Communicate (Default Executor)", listen, send)
	tc.Mode = domain.ExecutorDefault
	tests = append(tests, tc)

	sleepA := domain.NewSleepTask(domain.TaskOptions{Name: "sleep_a", Netgroups: groups(netgroupA)})
	sleepB := domain.NewSleepTask(domain.TaskOptions{Name: "sleep_b", Netgroups: groups(netgroupB)})
	ping = domain.NewPingTask(domain.TaskOptions{Name: "ping_a_b", Netgroups: groups(netgroupA, netgroupB)}, tasks(sleepA, sleepB), nil)
	tests = append(tests, domain.NewTestCase("Multiple Netgroup Task Can Ping Each", sleepA, sleepB, ping))

	sleepA = domain.NewSleepTask(domain.TaskOptions{Name: "sleep_a", Netgroups: groups(netgroupA)})
	sleepB = domain.NewSleepTask(domain.TaskOptions{Name: "sleep_b", Netgroups: groups(netgroupB)})
	sleepAB := domain.NewSleepTask(domain.TaskOptions{Name: "sleep_a_b", Netgroups: groups(netgroupA, netgroupB)})
	pingA := domain.NewPingTask(domain.TaskOptions{Name: "ping_a", Netgroups: groups(netgroupA)},
		tasks(sleepA, sleepAB), tasks(sleepB))
	pingB := domain.NewPingTask(domain.TaskOptions{Name: "ping_b", Netgroups: groups(netgroupB)},
		tasks(sleepB, sleepAB), tasks(sleepA))
	pingAB := domain.NewPingTask(domain.TaskOptions{Name: "ping_a_b", Netgroups: groups(netgroupA, netgroupB)},
		tasks(sleepA, sleepB, sleepAB), nil)
	tests = append(tests, domain.NewTestCase("Netgroup Mesh", sleepA, sleepB, sleepAB, pingA, pingB, pingAB))

	sleep = domain.NewSleepTask(domain.TaskOptions{Name: "sleep", Netgroups: groups("A"), AutoIPv4: 2})
	ping = domain.NewPingTask(domain.TaskOptions{Name: "ping", Netgroups: groups("A", "D"), AutoIPv4: 3}, tasks(sleep), nil)
	tests = append(tests, domain.NewTestCase("Multiple IPs Can Ping", sleep, ping))

	sleep = domain.NewSleepTask(domain.TaskOptions{
		Name:         "sleep",
		Netgroups:    groups("A"),
		RequestedIPs: []string{"192.168.28.23"},
		AutoIPv4:     2,
	})
	ping = domain.NewPingTask(domain.TaskOptions{
		Name:         "ping",
		Netgroups:    groups("A", "D"),
		RequestedIPs: []string{"192.168.28.34"},
	}, tasks(sleep), nil)
	tests = append(tests, domain.NewTestCase("Static IPs", sleep, ping))

	sleep = domain.NewSleepTask(domain.TaskOptions{
		Name:         "sleep",
		Netgroups:    groups("A"),
		RequestedIPs: []string{"192.168.27.23", "192.168.27.34"},
		AutoIPv4:     2,
	})
	ping = domain.NewPingTask(domain.TaskOptions{Name: "ping", Netgroups: groups("A", "D")}, tasks(sleep), nil)
	tests = append(tests, domain.NewTestCase("Mix static and assigned IPs", sleep, ping))

	return tests
}
