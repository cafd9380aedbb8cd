package server

import (
	"context"

	"github.com/projectcalico/netcheck/scheduler/driver"
)

type Scheduler interface {
	// Events from the driver. They are queued for the scheduler loop.
	driver.EventSink

	// Run processes events and watchdog ticks until every test is complete
	// or a fatal error occurs. The report is returned either way.
	Run(ctx context.Context) (Report, error)

	// Snapshot reports the current state of every test.
	Snapshot() Report
}
