package domain

import (
	"math/rand"
	"testing"

	mesos "github.com/mesos/mesos-go/api/v1/lib"
	"github.com/mesos/mesos-go/api/v1/lib/resources"
)

func makeOffer(agent string, cpus, mem float64) mesos.Offer {
	return mesos.Offer{
		ID:       mesos.OfferID{Value: "offer-" + agent},
		AgentID:  mesos.AgentID{Value: agent},
		Hostname: agent + ".cluster",
		Resources: []mesos.Resource{
			resources.NewCPUs(cpus).Resource,
			resources.NewMemory(mem).Resource,
		},
	}
}

func withPorts(o mesos.Offer, begin, end uint64) mesos.Offer {
	ports := resources.Build().
		Name(resources.NamePorts).
		Ranges(resources.BuildRanges().Span(begin, end).Ranges)
	o.Resources = append(o.Resources, ports.Resource)
	return o
}

// makeOffers builds a pool keyed by agent id, one offer per capacity given in
// units of tasks.
func makeOffers(capacities ...int) map[string]*ResourceOffer {
	pool := map[string]*ResourceOffer{}
	for i, c := range capacities {
		agent := string(rune('a' + i))
		pool[agent] = NewResourceOffer(makeOffer(agent, float64(c)*DefaultTaskCPUs, float64(c)*DefaultTaskMem), nil)
	}
	return pool
}

func TestResourceOfferSumsScalars(t *testing.T) {
	o := makeOffer("a1", 0.2, 100)
	o.Resources = append(o.Resources, resources.NewCPUs(0.3).Resource, resources.NewMemory(412).Resource)
	ro := NewResourceOffer(o, nil)
	if ro.AgentID != "a1" || ro.Hostname != "a1.cluster" || ro.OfferID.Value != "offer-a1" {
		t.Errorf("unexpected identity %v", ro)
	}
	if ro.CPUs < 0.49 || ro.CPUs > 0.51 || ro.Mem != 512 {
		t.Errorf("expected cpus=0.5 mem=512, got %v", ro)
	}
	if n := ro.LaunchableTasks(DefaultUnit); n != 4 {
		t.Errorf("expected 4 launchable tasks, got %d", n)
	}
}

func TestLaunchableTasksIsLimitedByScarcerResource(t *testing.T) {
	cases := []struct {
		cpus, mem float64
		expected  int
	}{
		{0.3, 1024, 3},
		{1, 256, 2},
		{0.09, 1024, 0},
		{0, 0, 0},
		{0.1, 128, 1},
	}
	for _, c := range cases {
		ro := NewResourceOffer(makeOffer("a", c.cpus, c.mem), nil)
		if n := ro.LaunchableTasks(DefaultUnit); n != c.expected {
			t.Errorf("cpus=%v mem=%v: expected %d, got %d", c.cpus, c.mem, c.expected, n)
		}
	}
	ro := NewResourceOffer(makeOffer("a", 1, 1024), nil)
	if n := ro.LaunchableTasks(Unit{}); n != 0 {
		t.Errorf("a zero unit should fit nothing, got %d", n)
	}
}

func TestEmptyOfferHasNoCapacityOrPort(t *testing.T) {
	ro := NewResourceOffer(mesos.Offer{AgentID: mesos.AgentID{Value: "a"}}, rand.New(rand.NewSource(1)))
	if ro.LaunchableTasks(DefaultUnit) != 0 || ro.Port != 0 {
		t.Errorf("expected an empty offer, got %v", ro)
	}
}

func TestPortIsPickedFromFirstRange(t *testing.T) {
	o := withPorts(makeOffer("a", 1, 1024), 31000, 31009)
	if ro := NewResourceOffer(o, nil); ro.Port != 31000 {
		t.Errorf("expected the first port without an rng, got %d", ro.Port)
	}
	rng := rand.New(rand.NewSource(42))
	seen := map[uint64]bool{}
	for i := 0; i < 200; i++ {
		p := NewResourceOffer(o, rng).Port
		if p < 31000 || p > 31009 {
			t.Fatalf("port %d outside of offered range", p)
		}
		seen[p] = true
	}
	if len(seen) < 2 {
		t.Errorf("expected the rng to spread ports, saw %v", seen)
	}

	single := withPorts(makeOffer("a", 1, 1024), 5000, 5000)
	if ro := NewResourceOffer(single, rng); ro.Port != 5000 {
		t.Errorf("expected the only offered port, got %d", ro.Port)
	}
}

func TestCombinedOffers(t *testing.T) {
	first := NewResourceOffer(makeOffer("a", 0.1, 128), nil)
	o := withPorts(makeOffer("a", 0.2, 256), 31000, 31000)
	o.ID.Value = "offer-a-2"
	second := NewResourceOffer(o, nil)

	c := first.Combine(second)
	if c.LaunchableTasks(DefaultUnit) != 3 || c.Port != 31000 || c.OfferID.Value != "offer-a" {
		t.Errorf("expected the capacity of both offers, got %v", c)
	}
	if ids := c.IDs(); len(ids) != 2 || ids[1].Value != "offer-a-2" {
		t.Errorf("expected both offer ids, got %v", ids)
	}
	if first.CPUs != 0.1 || len(first.IDs()) != 1 {
		t.Errorf("combining must not modify the parts, got %v", first)
	}

	rest, found := c.Without(mesos.OfferID{Value: "offer-a"})
	if !found || rest != second {
		t.Errorf("expected the second offer left, got %v", rest)
	}
	if same, found := c.Without(mesos.OfferID{Value: "other"}); found || same != c {
		t.Error("an unknown id must leave the offer as it was")
	}
	if rest, found := second.Without(second.OfferID); !found || rest != nil {
		t.Errorf("expected nothing left, got %v", rest)
	}
}
