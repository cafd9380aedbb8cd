package server

import (
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/projectcalico/netcheck/common/stats"
	"github.com/projectcalico/netcheck/scheduler/domain"
)

const (
	startTimeoutReason    = "Timed out waiting for enough offers to start test"
	progressTimeoutReason = "Timed out waiting for task status update"
)

// runHealthchecks is the watchdog. Unstarted tests only count time against
// StartTimeout while no test is running.
func (s *statefulScheduler) runHealthchecks() {
	defer s.stat.Latency(stats.SchedHealthcheckLatency_ms).Time().Stop()
	if s.fatal != nil || s.done {
		return
	}
	now := s.config.Time.Now()

	running := false
	for _, tc := range s.tests {
		if tc.State == domain.Running {
			running = true
			break
		}
	}

	for _, tc := range s.tests {
		var limit time.Duration
		var reason string
		switch {
		case tc.State == domain.Unstarted && !running:
			limit, reason = s.config.StartTimeout, startTimeoutReason
		case tc.State == domain.Unstarted:
			tc.RemoveTimeout()
			continue
		case tc.State == domain.Running:
			limit, reason = s.config.ProgressTimeout, progressTimeoutReason
		default:
			continue
		}

		tc.StartTimeoutIfNotCurrentlyStarted(now)
		timedOut, err := tc.TimedOut(now, limit)
		if err != nil {
			s.fail(errors.Wrap(err, "healthcheck"))
			return
		}
		if timedOut {
			s.stat.Counter(stats.SchedTestsTimedOutCounter).Inc(1)
			s.killTest(tc, reason)
		}
	}
	s.updateStats()

	for _, tc := range s.tests {
		if tc.State != domain.Complete {
			log.WithFields(log.Fields{"running": running}).Debug("healthcheck done")
			return
		}
	}
	s.finish()
}
