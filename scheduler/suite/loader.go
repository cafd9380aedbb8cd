package suite

import (
	"io/ioutil"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"

	"github.com/projectcalico/netcheck/scheduler/domain"
)

// BuiltinName selects Builtin() wherever a suite path is accepted.
const BuiltinName = "builtin"

// File is the YAML layout of a suite:
//
//	tests:
//	  - name: Same-Host Same-Netgroups Can Ping
//	    executor: default          # optional, custom by default
//	    tasks:
//	      - {name: sleep, kind: sleep, host: "0", netgroups: [netgroup_a]}
//	      - {name: ping, kind: ping, host: "0", netgroups: [netgroup_a], can_ping: [sleep]}
//
// References name tasks of the same test. Ping tasks may only target sleep
// tasks and send tasks may only target listen tasks.
type File struct {
	Tests []TestSpec `yaml:"tests"`
}

type TestSpec struct {
	Name     string     `yaml:"name"`
	Executor string     `yaml:"executor"`
	Tasks    []TaskSpec `yaml:"tasks"`
}

type TaskSpec struct {
	Name         string   `yaml:"name"`
	Kind         string   `yaml:"kind"`
	Host         string   `yaml:"host"`
	Netgroups    []string `yaml:"netgroups"`
	RequestedIPs []string `yaml:"requested_ips"`
	AutoIPv4     int      `yaml:"auto_ipv4"`
	AutoIPv6     int      `yaml:"auto_ipv6"`
	CanPing      []string `yaml:"can_ping"`
	CantPing     []string `yaml:"cant_ping"`
	Targets      []string `yaml:"targets"`
}

// Load reads a suite file, or returns Builtin() for BuiltinName.
func Load(path string) ([]*domain.TestCase, error) {
	if path == "" || path == BuiltinName {
		return Builtin(), nil
	}
	data, err := ioutil.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "reading suite")
	}
	tests, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "loading suite %s", path)
	}
	log.WithFields(log.Fields{"path": path, "tests": len(tests)}).Info("loaded suite")
	return tests, nil
}

// Parse builds test cases from YAML, validating every reference.
func Parse(data []byte) ([]*domain.TestCase, error) {
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, errors.Wrap(err, "parsing suite")
	}
	if len(f.Tests) == 0 {
		return nil, errors.New("suite has no tests")
	}
	seen := map[string]bool{}
	tests := make([]*domain.TestCase, 0, len(f.Tests))
	for i, spec := range f.Tests {
		if spec.Name == "" {
			return nil, errors.Errorf("test %d has no name", i)
		}
		if seen[spec.Name] {
			return nil, errors.Errorf("duplicate test %q", spec.Name)
		}
		seen[spec.Name] = true
		tc, err := spec.build()
		if err != nil {
			return nil, errors.Wrapf(err, "test %q", spec.Name)
		}
		tests = append(tests, tc)
	}
	return tests, nil
}

func (spec TestSpec) build() (*domain.TestCase, error) {
	if len(spec.Tasks) == 0 {
		return nil, errors.New("no tasks")
	}
	mode, err := parseExecutor(spec.Executor)
	if err != nil {
		return nil, err
	}

	kinds := make([]domain.TaskKind, len(spec.Tasks))
	index := map[string]int{}
	for i, ts := range spec.Tasks {
		if ts.Name == "" {
			return nil, errors.Errorf("task %d has no name", i)
		}
		if _, dup := index[ts.Name]; dup {
			return nil, errors.Errorf("duplicate task %q", ts.Name)
		}
		index[ts.Name] = i
		if kinds[i], err = domain.ParseTaskKind(ts.Kind); err != nil {
			return nil, errors.Wrapf(err, "task %q", ts.Name)
		}
		if err := ts.validate(kinds[i]); err != nil {
			return nil, errors.Wrapf(err, "task %q", ts.Name)
		}
	}

	// Targets are sleep and listen tasks, so they are built before any probe.
	built := make([]*domain.Task, len(spec.Tasks))
	for i, ts := range spec.Tasks {
		switch kinds[i] {
		case domain.SleepTask:
			built[i] = domain.NewSleepTask(ts.options())
		case domain.NetcatListenTask:
			built[i] = domain.NewNetcatListenTask(ts.options())
		}
	}
	resolve := func(owner string, names []string, want domain.TaskKind) ([]*domain.Task, error) {
		var out []*domain.Task
		for _, n := range names {
			j, ok := index[n]
			if !ok {
				return nil, errors.Errorf("task %q references unknown task %q", owner, n)
			}
			if kinds[j] != want {
				return nil, errors.Errorf("task %q may only target %s tasks, %q is %s", owner, want, n, kinds[j])
			}
			out = append(out, built[j])
		}
		return out, nil
	}
	for i, ts := range spec.Tasks {
		switch kinds[i] {
		case domain.PingTask:
			can, err := resolve(ts.Name, ts.CanPing, domain.SleepTask)
			if err != nil {
				return nil, err
			}
			cant, err := resolve(ts.Name, ts.CantPing, domain.SleepTask)
			if err != nil {
				return nil, err
			}
			built[i] = domain.NewPingTask(ts.options(), can, cant)
		case domain.NetcatSendTask:
			targets, err := resolve(ts.Name, ts.Targets, domain.NetcatListenTask)
			if err != nil {
				return nil, err
			}
			built[i] = domain.NewNetcatSendTask(ts.options(), targets)
		}
	}

	tc := domain.NewTestCase(spec.Name, built...)
	tc.Mode = mode
	return tc, nil
}

func (ts TaskSpec) validate(kind domain.TaskKind) error {
	if ts.AutoIPv4 < 0 || ts.AutoIPv6 < 0 {
		return errors.New("negative address count")
	}
	isolated := kind == domain.SleepTask || kind == domain.PingTask
	if !isolated && (len(ts.Netgroups) > 0 || len(ts.RequestedIPs) > 0 || ts.AutoIPv4 > 0 || ts.AutoIPv6 > 0) {
		return errors.Errorf("%s tasks opt out of isolation and take no netgroups or addresses", kind)
	}
	if kind != domain.PingTask && (len(ts.CanPing) > 0 || len(ts.CantPing) > 0) {
		return errors.New("only ping tasks take can_ping and cant_ping")
	}
	if kind != domain.NetcatSendTask && len(ts.Targets) > 0 {
		return errors.New("only send tasks take targets")
	}
	return nil
}

func (ts TaskSpec) options() domain.TaskOptions {
	return domain.TaskOptions{
		Name:         ts.Name,
		Host:         ts.Host,
		Netgroups:    ts.Netgroups,
		RequestedIPs: ts.RequestedIPs,
		AutoIPv4:     ts.AutoIPv4,
		AutoIPv6:     ts.AutoIPv6,
	}
}

func parseExecutor(s string) (domain.ExecutorMode, error) {
	switch s {
	case "", "custom":
		return domain.ExecutorCustom, nil
	case "default":
		return domain.ExecutorDefault, nil
	}
	return 0, errors.Errorf("unknown executor %q, expected custom or default", s)
}
