package domain

import (
	"fmt"
	"math"
	"math/rand"
	"strings"

	mesos "github.com/mesos/mesos-go/api/v1/lib"
)

const (
	DefaultTaskCPUs = 0.1
	DefaultTaskMem  = 128.0

	// Absorbs float error in quotients like 0.3/0.1.
	capacityEpsilon = 1e-9
)

// Unit is the fixed resource footprint of a single task.
type Unit struct {
	CPUs float64
	Mem  float64
}

var DefaultUnit = Unit{CPUs: DefaultTaskCPUs, Mem: DefaultTaskMem}

// ResourceOffer is one capacity grant from an agent, reduced to what the
// matcher needs. It is never modified after construction. Several offers
// from the same agent can be combined into one; OfferID is then the first.
type ResourceOffer struct {
	OfferID  mesos.OfferID
	AgentID  string
	Hostname string
	CPUs     float64
	Mem      float64
	// Port is a single port drawn from the first advertised ports range, or 0.
	Port uint64

	parts []*ResourceOffer
}

// NewResourceOffer sums the offer's cpus and mem scalars and picks a port with
// rng. A nil rng always takes the first port of the range.
func NewResourceOffer(offer mesos.Offer, rng *rand.Rand) *ResourceOffer {
	o := &ResourceOffer{
		OfferID:  offer.ID,
		AgentID:  offer.AgentID.Value,
		Hostname: offer.Hostname,
	}
	var ports []mesos.Value_Range
	for i := range offer.Resources {
		r := &offer.Resources[i]
		switch r.Name {
		case "cpus":
			o.CPUs += r.GetScalar().GetValue()
		case "mem":
			o.Mem += r.GetScalar().GetValue()
		case "ports":
			if ports == nil {
				ports = r.GetRanges().GetRange()
			}
		}
	}
	if len(ports) > 0 && ports[0].End >= ports[0].Begin {
		o.Port = ports[0].Begin
		if span := ports[0].End - ports[0].Begin + 1; rng != nil && span > 1 {
			o.Port += uint64(rng.Int63n(int64(span)))
		}
	}
	return o
}

// LaunchableTasks is the number of unit-sized tasks this offer can hold.
func (o *ResourceOffer) LaunchableTasks(unit Unit) int {
	if unit.CPUs <= 0 || unit.Mem <= 0 {
		return 0
	}
	n := math.Floor(math.Min(o.CPUs/unit.CPUs, o.Mem/unit.Mem) + capacityEpsilon)
	if n < 0 || math.IsNaN(n) {
		return 0
	}
	return int(n)
}

// IDs lists every offer that has to be accepted or declined together.
func (o *ResourceOffer) IDs() []mesos.OfferID {
	parts := o.pieces()
	ids := make([]mesos.OfferID, len(parts))
	for i, p := range parts {
		ids[i] = p.OfferID
	}
	return ids
}

func (o *ResourceOffer) pieces() []*ResourceOffer {
	if len(o.parts) == 0 {
		return []*ResourceOffer{o}
	}
	return o.parts
}

// Combine returns an offer holding the capacity of both. other must come
// from the same agent.
func (o *ResourceOffer) Combine(other *ResourceOffer) *ResourceOffer {
	parts := append(append([]*ResourceOffer{}, o.pieces()...), other.pieces()...)
	return combine(parts)
}

// Without returns the offer minus the part with the given id. It reports
// false when no part has that id, and a nil offer when nothing is left.
func (o *ResourceOffer) Without(id mesos.OfferID) (*ResourceOffer, bool) {
	var rest []*ResourceOffer
	found := false
	for _, p := range o.pieces() {
		if p.OfferID.Value == id.Value {
			found = true
			continue
		}
		rest = append(rest, p)
	}
	if !found {
		return o, false
	}
	if len(rest) == 0 {
		return nil, true
	}
	return combine(rest), true
}

func combine(parts []*ResourceOffer) *ResourceOffer {
	if len(parts) == 1 {
		return parts[0]
	}
	c := &ResourceOffer{
		OfferID:  parts[0].OfferID,
		AgentID:  parts[0].AgentID,
		Hostname: parts[0].Hostname,
		parts:    parts,
	}
	for _, p := range parts {
		c.CPUs += p.CPUs
		c.Mem += p.Mem
		if c.Port == 0 {
			c.Port = p.Port
		}
	}
	return c
}

func (o *ResourceOffer) String() string {
	ids := o.IDs()
	names := make([]string, len(ids))
	for i, id := range ids {
		names[i] = id.Value
	}
	return fmt.Sprintf("Offer(agent=%s, id=%s, cpus=%.2f, mem=%.0f, port=%d)",
		o.AgentID, strings.Join(names, "+"), o.CPUs, o.Mem, o.Port)
}
