package suite

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"

	mesos "github.com/mesos/mesos-go/api/v1/lib"
	"github.com/mesos/mesos-go/api/v1/lib/resources"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectcalico/netcheck/scheduler/domain"
)

func twoAgentPool(tasksPerAgent int) map[string]*domain.ResourceOffer {
	pool := map[string]*domain.ResourceOffer{}
	for _, agent := range []string{"agent1", "agent2"} {
		pool[agent] = domain.NewResourceOffer(mesos.Offer{
			ID:       mesos.OfferID{Value: "offer-" + agent},
			AgentID:  mesos.AgentID{Value: agent},
			Hostname: agent,
			Resources: []mesos.Resource{
				resources.NewCPUs(float64(tasksPerAgent) * domain.DefaultTaskCPUs).Resource,
				resources.NewMemory(float64(tasksPerAgent) * domain.DefaultTaskMem).Resource,
			},
		}, nil)
	}
	return pool
}

func TestBuiltinSuite(t *testing.T) {
	tests := Builtin()
	assert.Len(t, tests, 12)

	names := map[string]bool{}
	defaults := 0
	for _, tc := range tests {
		assert.False(t, names[tc.Name], "duplicate test %s", tc.Name)
		names[tc.Name] = true
		if tc.Mode == domain.ExecutorDefault {
			defaults++
		}
		for _, task := range tc.Tasks {
			for _, target := range task.Targets() {
				assert.Contains(t, tc.Tasks, target, "%s targets a task outside %s", task, tc.Name)
			}
		}
		_, err := tc.CanRunOn(twoAgentPool(6), domain.DefaultUnit)
		assert.NoError(t, err, "%s should fit on two agents", tc.Name)
	}
	assert.Equal(t, 2, defaults)

	// Every call builds new tasks.
	assert.NotSame(t, tests[0].Tasks[0], Builtin()[0].Tasks[0])
}

func TestBuiltinAddressRequests(t *testing.T) {
	byName := map[string]*domain.TestCase{}
	for _, tc := range Builtin() {
		byName[tc.Name] = tc
	}

	static := byName["Static IPs"]
	require.NotNil(t, static)
	assert.Equal(t, 3, static.Tasks[0].ExpectedIPCount())
	assert.Equal(t, 1, static.Tasks[1].ExpectedIPCount())

	multi := byName["Multiple IPs Can Ping"]
	require.NotNil(t, multi)
	assert.Equal(t, 2, multi.Tasks[0].ExpectedIPCount())
	assert.Equal(t, 3, multi.Tasks[1].ExpectedIPCount())

	optOut := byName["Tasks that Opt-out of Calico can Communicate"]
	require.NotNil(t, optOut)
	for _, task := range optOut.Tasks {
		assert.False(t, task.Calico)
		assert.Equal(t, 0, task.ExpectedIPCount())
	}
}

const meshSuite = `
tests:
  - name: mesh
    tasks:
      - {name: a, kind: sleep, netgroups: [A]}
      - {name: b, kind: sleep, netgroups: [B]}
      - {name: pa, kind: ping, netgroups: [A], can_ping: [a], cant_ping: [b]}
  - name: netcat
    executor: default
    tasks:
      - {name: send, kind: send, host: "1", targets: [listen]}
      - {name: listen, kind: netcat_listen, host: "0"}
  - name: static
    tasks:
      - name: s
        kind: sleep_task
        requested_ips: [192.168.28.23]
        auto_ipv4: 1
        auto_ipv6: 1
`

func TestParse(t *testing.T) {
	tests, err := Parse([]byte(meshSuite))
	require.NoError(t, err)
	require.Len(t, tests, 3)

	mesh := tests[0]
	assert.Equal(t, domain.ExecutorCustom, mesh.Mode)
	pa := mesh.Tasks[2]
	assert.Equal(t, domain.PingTask, pa.Kind)
	assert.Equal(t, []*domain.Task{mesh.Tasks[0]}, pa.CanPing())
	assert.Equal(t, []*domain.Task{mesh.Tasks[1]}, pa.CantPing())

	netcat := tests[1]
	assert.Equal(t, domain.ExecutorDefault, netcat.Mode)
	// Declared order is kept even when a probe comes first.
	assert.Equal(t, "send", netcat.Tasks[0].Name)
	assert.True(t, netcat.Tasks[0].Targeting(netcat.Tasks[1]))
	assert.Equal(t, "1", netcat.Tasks[0].Host)

	s := tests[2].Tasks[0]
	assert.Equal(t, []string{"192.168.28.23"}, s.RequestedIPs)
	assert.Equal(t, 3, s.ExpectedIPCount())
}

func TestParseRejectsBadSuites(t *testing.T) {
	cases := map[string]string{
		"empty":           `tests: []`,
		"not yaml":        `tests: [`,
		"no test name":    `tests: [{tasks: [{name: a, kind: sleep}]}]`,
		"duplicate test":  `tests: [{name: t, tasks: [{name: a, kind: sleep}]}, {name: t, tasks: [{name: a, kind: sleep}]}]`,
		"no tasks":        `tests: [{name: t}]`,
		"no task name":    `tests: [{name: t, tasks: [{kind: sleep}]}]`,
		"duplicate task":  `tests: [{name: t, tasks: [{name: a, kind: sleep}, {name: a, kind: sleep}]}]`,
		"unknown kind":    `tests: [{name: t, tasks: [{name: a, kind: curl}]}]`,
		"unknown target":  `tests: [{name: t, tasks: [{name: p, kind: ping, can_ping: [x]}]}]`,
		"ping a listener": `tests: [{name: t, tasks: [{name: l, kind: listen}, {name: p, kind: ping, can_ping: [l]}]}]`,
		"send to sleeper": `tests: [{name: t, tasks: [{name: s, kind: sleep}, {name: n, kind: send, targets: [s]}]}]`,
		"isolated listen": `tests: [{name: t, tasks: [{name: l, kind: listen, netgroups: [A]}]}]`,
		"sleep targets":   `tests: [{name: t, tasks: [{name: s, kind: sleep, can_ping: [s]}]}]`,
		"ping targets":    `tests: [{name: t, tasks: [{name: s, kind: ping, targets: [s]}]}]`,
		"negative count":  `tests: [{name: t, tasks: [{name: s, kind: sleep, auto_ipv4: -1}]}]`,
		"bad executor":    `tests: [{name: t, executor: docker, tasks: [{name: s, kind: sleep}]}]`,
	}
	for name, text := range cases {
		_, err := Parse([]byte(text))
		assert.Error(t, err, name)
	}
}

func TestLoad(t *testing.T) {
	tests, err := Load(BuiltinName)
	require.NoError(t, err)
	assert.Len(t, tests, len(Builtin()))

	dir, err := ioutil.TempDir("", "suite")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "suite.yaml")
	require.NoError(t, ioutil.WriteFile(path, []byte(meshSuite), 0644))

	tests, err = Load(path)
	require.NoError(t, err)
	assert.Len(t, tests, 3)

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)
}
