package domain

import (
	"sort"
)

type hostGroup struct {
	host  string
	tasks []*Task
}

// CanRunOn decides whether every unlaunched task of the test fits on the
// given offers, keyed by agent id. On success it assigns each task an agent
// and returns the offers the test should claim. On failure it returns an
// empty map and the reason, and leaves every task's agent as it was.
//
// Host groups are paired greedily, largest group with largest offer. Tasks
// without a host fill the remaining capacity, offers already in use first.
// An offer holds at most one netcat listener, and only if it carries a port.
func (tc *TestCase) CanRunOn(offers map[string]*ResourceOffer, unit Unit) (map[string]*ResourceOffer, error) {
	var anywhere []*Task
	byHost := map[string][]*Task{}
	for _, t := range tc.Tasks {
		if t.Launched() {
			continue
		}
		if t.Host == "" {
			anywhere = append(anywhere, t)
		} else {
			byHost[t.Host] = append(byHost[t.Host], t)
		}
	}
	if len(byHost) > len(offers) {
		return map[string]*ResourceOffer{}, ErrNotEnoughHosts
	}

	groups := make([]hostGroup, 0, len(byHost))
	for host, tasks := range byHost {
		groups = append(groups, hostGroup{host, tasks})
	}
	sort.Slice(groups, func(i, j int) bool {
		if len(groups[i].tasks) != len(groups[j].tasks) {
			return len(groups[i].tasks) > len(groups[j].tasks)
		}
		return groups[i].host < groups[j].host
	})

	sorted := make([]*ResourceOffer, 0, len(offers))
	remaining := make(map[string]int, len(offers))
	ports := make(map[string]int, len(offers))
	for agent, o := range offers {
		sorted = append(sorted, o)
		remaining[agent] = o.LaunchableTasks(unit)
		if o.Port != 0 {
			ports[agent] = 1
		}
	}
	sort.Slice(sorted, func(i, j int) bool {
		ci, cj := remaining[sorted[i].AgentID], remaining[sorted[j].AgentID]
		if ci != cj {
			return ci > cj
		}
		return sorted[i].AgentID < sorted[j].AgentID
	})

	previous := make(map[*Task]string, len(tc.Tasks))
	for _, t := range tc.Tasks {
		previous[t] = t.AgentID
	}
	rollback := func(err error) (map[string]*ResourceOffer, error) {
		for t, agent := range previous {
			t.AgentID = agent
		}
		return map[string]*ResourceOffer{}, err
	}

	claimed := map[string]*ResourceOffer{}
	for i, g := range groups {
		o := sorted[i]
		if remaining[o.AgentID] < len(g.tasks) {
			return rollback(needLargerOffer())
		}
		listeners := countListeners(g.tasks)
		if ports[o.AgentID] < listeners {
			return rollback(needPortOffer())
		}
		for _, t := range g.tasks {
			t.AgentID = o.AgentID
		}
		remaining[o.AgentID] -= len(g.tasks)
		ports[o.AgentID] -= listeners
		claimed[o.AgentID] = o
	}

	order := make([]*ResourceOffer, 0, len(sorted))
	for _, o := range sorted {
		if claimed[o.AgentID] != nil {
			order = append(order, o)
		}
	}
	for _, o := range sorted {
		if claimed[o.AgentID] == nil {
			order = append(order, o)
		}
	}
	for i, t := range anywhere {
		listener := t.Kind == NetcatListenTask
		var o *ResourceOffer
		for _, candidate := range order {
			if remaining[candidate.AgentID] > 0 && (!listener || ports[candidate.AgentID] > 0) {
				o = candidate
				break
			}
		}
		if o == nil {
			return rollback(anywhereTasksLeft(len(anywhere) - i))
		}
		t.AgentID = o.AgentID
		remaining[o.AgentID]--
		if listener {
			ports[o.AgentID]--
		}
		claimed[o.AgentID] = o
	}
	return claimed, nil
}

func countListeners(tasks []*Task) int {
	n := 0
	for _, t := range tasks {
		if t.Kind == NetcatListenTask {
			n++
		}
	}
	return n
}
