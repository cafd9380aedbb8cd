package domain

import (
	"sort"
	"strconv"

	mesos "github.com/mesos/mesos-go/api/v1/lib"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/projectcalico/netcheck/scheduler/driver"
)

// IDAllocator hands out task ids that are unique for the life of a framework.
type IDAllocator interface {
	NextTaskID() string
}

// SequentialIDs allocates "0", "1", "2" and so on.
type SequentialIDs struct {
	next int
}

func (s *SequentialIDs) NextTaskID() string {
	id := strconv.Itoa(s.next)
	s.next++
	return id
}

// Launch starts every task of the test that is unlaunched, assigned to one of
// the given offers and whose dependencies are met. Each offer is answered
// exactly once: accepted with the tasks placed on it, or declined when it
// got none. Returns the number of tasks launched.
//
// Tasks beyond an offer's capacity stay unlaunched and wait for a later offer,
// as do netcat listeners when the offer has no port left for them.
func (tc *TestCase) Launch(offers map[string]*ResourceOffer, d driver.OfferResponder, ids IDAllocator, cfg RenderConfig) (int, error) {
	cfg.Mode = tc.Mode
	infos := map[string][]mesos.TaskInfo{}
	room := map[string]int{}
	portFree := map[string]bool{}
	for agent, o := range offers {
		room[agent] = o.LaunchableTasks(cfg.Unit)
		portFree[agent] = o.Port != 0
	}

	launched := 0
	for _, t := range tc.Tasks {
		if t.Launched() {
			continue
		}
		o, ok := offers[t.AgentID]
		if !ok || room[t.AgentID] == 0 {
			continue
		}
		listener := t.Kind == NetcatListenTask
		if listener && !portFree[t.AgentID] {
			continue
		}
		ready, err := t.DependenciesAreMet()
		if err != nil {
			return launched, errors.Wrapf(err, "launching %s", tc.Name)
		}
		if !ready {
			continue
		}

		t.ID = ids.NextTaskID()
		t.Port = o.Port
		t.Hostname = o.Hostname
		info, err := t.Render(cfg)
		if err != nil {
			return launched, errors.Wrapf(err, "launching %s", tc.Name)
		}
		staging := mesos.TASK_STAGING
		t.State = &staging
		infos[t.AgentID] = append(infos[t.AgentID], info)
		room[t.AgentID]--
		if listener {
			portFree[t.AgentID] = false
		}
		launched++

		log.WithFields(log.Fields{
			"test":     tc.Name,
			"task":     t.String(),
			"taskID":   t.ID,
			"agentID":  t.AgentID,
			"hostname": t.Hostname,
		}).Info("launching task")
	}

	agents := make([]string, 0, len(offers))
	for agent := range offers {
		agents = append(agents, agent)
	}
	sort.Strings(agents)
	for _, agent := range agents {
		o := offers[agent]
		if batch := infos[agent]; len(batch) > 0 {
			d.AcceptOffers(o.IDs(), batch)
		} else {
			log.WithFields(log.Fields{"test": tc.Name, "offer": o.String()}).Debug("nothing to launch, declining")
			for _, id := range o.IDs() {
				d.DeclineOffer(id)
			}
		}
	}
	return launched, nil
}
