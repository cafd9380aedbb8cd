// Package driver is the boundary between the netcheck scheduler and the
// Mesos master.
package driver

//go:generate mockgen -source=driver.go -package=driver -destination=driver_mock.go

import (
	mesos "github.com/mesos/mesos-go/api/v1/lib"
)

// OfferResponder answers offers. Launching a test only needs this much.
type OfferResponder interface {
	// AcceptOffers launches tasks on the given offers, which must all belong to
	// one agent.
	AcceptOffers(ids []mesos.OfferID, tasks []mesos.TaskInfo)

	DeclineOffer(id mesos.OfferID)
}

// Driver is what the scheduler calls into. Every call returns immediately;
// failures are retried, then logged and dropped by the implementation.
type Driver interface {
	OfferResponder

	// Acknowledge confirms receipt of a status update. Only used when implicit
	// acknowledgements are off.
	Acknowledge(status mesos.TaskStatus)

	// Stop tears the framework down once every test is complete.
	Stop()

	// Abort tears the framework down after a fatal error.
	Abort(err error)
}

// EventSink receives the framework events the scheduler acts on. Calls come
// from the driver's event goroutine and must not block for long.
type EventSink interface {
	ResourceOffers(offers []mesos.Offer)
	StatusUpdate(status mesos.TaskStatus)
	OfferRescinded(id mesos.OfferID)
}
