package server

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	mesos "github.com/mesos/mesos-go/api/v1/lib"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/projectcalico/netcheck/common/stats"
	"github.com/projectcalico/netcheck/scheduler/domain"
	"github.com/projectcalico/netcheck/scheduler/driver"
)

const (
	DefaultStartTimeout        = 45 * time.Second
	DefaultProgressTimeout     = 45 * time.Second
	DefaultHealthcheckInterval = 5 * time.Second

	eventBufferSize = 1024
)

// SchedulerConfiguration variables read at initialization
// DebugMode - if true, events are handled on the caller's goroutine as soon as
//
//	they arrive and Run must not be called. Tests drive the watchdog by
//	calling runHealthchecks().
//
// StartTimeout -
//
//	how long an Unstarted test may wait for offers while no test is running.
//
// ProgressTimeout -
//
//	how long a Running test may go without a status update.
//
// HealthcheckInterval -
//
//	how often the watchdog runs.
//
// ImplicitAcknowledgements -
//
//	when false every processed status update is acknowledged through the driver.
//
// Render -
//
//	run-wide task rendering settings, including the per-task resource unit.
//
// Rand, Time -
//
//	injected sources for port picks and the watchdog clock.
type SchedulerConfiguration struct {
	DebugMode                bool
	StartTimeout             time.Duration
	ProgressTimeout          time.Duration
	HealthcheckInterval      time.Duration
	ImplicitAcknowledgements bool
	Render                   domain.RenderConfig

	Rand *rand.Rand
	Time stats.StatsTime
}

func (sc *SchedulerConfiguration) String() string {
	return fmt.Sprintf("SchedulerConfiguration: DebugMode: %t, StartTimeout: %s, ProgressTimeout: %s, "+
		"HealthcheckInterval: %s, ImplicitAcknowledgements: %t, Unit: %+v, Mode: %s, RunID: %s",
		sc.DebugMode, sc.StartTimeout, sc.ProgressTimeout, sc.HealthcheckInterval,
		sc.ImplicitAcknowledgements, sc.Render.Unit, sc.Render.Mode, sc.Render.RunID)
}

func (sc *SchedulerConfiguration) setDefaults() {
	if sc.StartTimeout <= 0 {
		sc.StartTimeout = DefaultStartTimeout
	}
	if sc.ProgressTimeout <= 0 {
		sc.ProgressTimeout = DefaultProgressTimeout
	}
	if sc.HealthcheckInterval <= 0 {
		sc.HealthcheckInterval = DefaultHealthcheckInterval
	}
	if sc.Render.Unit.CPUs <= 0 || sc.Render.Unit.Mem <= 0 {
		sc.Render.Unit = domain.DefaultUnit
	}
	if sc.Rand == nil {
		sc.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if sc.Time == nil {
		sc.Time = stats.DefaultStatsTime()
	}
}

type eventKind int

const (
	offersEvent eventKind = iota
	updateEvent
	rescindEvent
	snapshotEvent
)

type schedulerEvent struct {
	kind     eventKind
	offers   []mesos.Offer
	status   mesos.TaskStatus
	offerID  mesos.OfferID
	snapshot chan Report
}

// Scheduler that places test cases on offers and tracks them to completion.
//
// Scheduler Concurrency: Run owns all scheduler state and runs on one
// goroutine. Driver callbacks and snapshot requests share one event queue,
// so a snapshot reflects every event queued before it. Driver calls made
// from the loop never block.
type statefulScheduler struct {
	config SchedulerConfiguration
	driver driver.Driver
	stat   stats.StatsReceiver

	eventCh chan schedulerEvent
	doneCh  chan struct{}
	final   Report

	// Scheduler State
	tests         []*domain.TestCase // indexed by TestHandle
	testByAgentID map[string]domain.TestHandle
	unreserved    map[string]*domain.ResourceOffer
	taskIDs       domain.SequentialIDs

	fatal error
	done  bool
}

// NewStatefulScheduler binds every test to this scheduler. Tests and their
// tasks can belong to one scheduler only.
func NewStatefulScheduler(
	config SchedulerConfiguration,
	tests []*domain.TestCase,
	d driver.Driver,
	stat stats.StatsReceiver,
) (*statefulScheduler, error) {
	config.setDefaults()
	for i, tc := range tests {
		if err := tc.Bind(domain.TestHandle(i)); err != nil {
			return nil, err
		}
	}
	s := &statefulScheduler{
		config:        config,
		driver:        d,
		stat:          stat,
		eventCh:       make(chan schedulerEvent, eventBufferSize),
		doneCh:        make(chan struct{}),
		tests:         tests,
		testByAgentID: map[string]domain.TestHandle{},
		unreserved:    map[string]*domain.ResourceOffer{},
	}
	log.WithFields(log.Fields{"tests": len(tests), "config": config.String()}).Info("created scheduler")
	return s, nil
}

func (s *statefulScheduler) String() string {
	return fmt.Sprintf("%s, tests: %d, unreserved offers: %d, claimed agents: %d",
		&s.config, len(s.tests), len(s.unreserved), len(s.testByAgentID))
}

func (s *statefulScheduler) ResourceOffers(offers []mesos.Offer) {
	s.enqueue(schedulerEvent{kind: offersEvent, offers: offers})
}

func (s *statefulScheduler) StatusUpdate(status mesos.TaskStatus) {
	s.enqueue(schedulerEvent{kind: updateEvent, status: status})
}

func (s *statefulScheduler) OfferRescinded(id mesos.OfferID) {
	s.enqueue(schedulerEvent{kind: rescindEvent, offerID: id})
}

func (s *statefulScheduler) enqueue(ev schedulerEvent) {
	if s.config.DebugMode {
		s.step(ev)
		return
	}
	select {
	case s.eventCh <- ev:
	case <-s.doneCh:
	}
}

// Snapshot asks the loop for a report. Once Run has returned it is the
// final report.
func (s *statefulScheduler) Snapshot() Report {
	if s.config.DebugMode {
		return newReport(s.tests)
	}
	resp := make(chan Report, 1)
	select {
	case s.eventCh <- schedulerEvent{kind: snapshotEvent, snapshot: resp}:
	case <-s.doneCh:
		return s.final
	}
	select {
	case r := <-resp:
		return r
	case <-s.doneCh:
		return s.final
	}
}

func (s *statefulScheduler) Run(ctx context.Context) (Report, error) {
	ticker := s.config.Time.NewTicker(s.config.HealthcheckInterval)
	defer ticker.Stop()

	err := s.loop(ctx, ticker)
	s.final = newReport(s.tests)
	close(s.doneCh)
	return s.final, err
}

func (s *statefulScheduler) loop(ctx context.Context, ticker stats.StatsTicker) error {
	for {
		select {
		case <-ctx.Done():
			log.Info("scheduler cancelled")
			return ctx.Err()
		case ev := <-s.eventCh:
			s.handle(ev)
		case <-ticker.C():
			// Healthchecks judge the state after everything already queued.
			s.drainEvents()
			if s.fatal == nil && !s.done {
				s.runHealthchecks()
			}
		}
		if s.fatal != nil {
			return s.fatal
		}
		if s.done {
			return nil
		}
	}
}

func (s *statefulScheduler) handle(ev schedulerEvent) {
	if ev.kind == snapshotEvent {
		ev.snapshot <- newReport(s.tests)
		return
	}
	s.step(ev)
}

func (s *statefulScheduler) drainEvents() {
	for s.fatal == nil && !s.done {
		select {
		case ev := <-s.eventCh:
			s.handle(ev)
		default:
			return
		}
	}
}

// handle one event
func (s *statefulScheduler) step(ev schedulerEvent) {
	defer s.stat.Latency(stats.SchedStepLatency_ms).Time().Stop()
	if s.fatal != nil || s.done {
		log.WithFields(log.Fields{"kind": ev.kind}).Debug("scheduler finished, dropping event")
		return
	}

	switch ev.kind {
	case offersEvent:
		s.resourceOffers(ev.offers)
	case updateEvent:
		s.statusUpdate(ev.status)
	case rescindEvent:
		s.offerRescinded(ev.offerID)
	}
	s.updateStats()
}

func (s *statefulScheduler) updateStats() {
	var unstarted, running, complete int
	for _, tc := range s.tests {
		switch tc.State {
		case domain.Unstarted:
			unstarted++
		case domain.Running:
			running++
		case domain.Complete:
			complete++
		}
	}
	s.stat.Gauge(stats.SchedUnstartedTestsGauge).Update(int64(unstarted))
	s.stat.Gauge(stats.SchedRunningTestsGauge).Update(int64(running))
	s.stat.Gauge(stats.SchedCompleteTestsGauge).Update(int64(complete))
	pooled := 0
	for _, o := range s.unreserved {
		pooled += len(o.IDs())
	}
	s.stat.Gauge(stats.SchedUnreservedOffersGauge).Update(int64(pooled))
	s.stat.Gauge(stats.SchedClaimedAgentsGauge).Update(int64(len(s.testByAgentID)))
}

func (s *statefulScheduler) resourceOffers(offers []mesos.Offer) {
	for _, offer := range offers {
		o := domain.NewResourceOffer(offer, s.config.Rand)
		s.stat.Counter(stats.SchedOffersReceivedCounter).Inc(1)

		if h, ok := s.testByAgentID[o.AgentID]; ok {
			tc := s.tests[h]
			log.WithFields(log.Fields{"offer": o.String(), "test": tc.Name}).Info("offer sent to claiming test")
			s.stat.Counter(stats.SchedOffersToClaimedCounter).Inc(1)
			s.launch(tc, map[string]*domain.ResourceOffer{o.AgentID: o})
			continue
		}

		if pooled, ok := s.unreserved[o.AgentID]; ok {
			log.WithFields(log.Fields{"pooled": pooled.String(), "new": o.String()}).Info("combining offers from the same agent")
			s.stat.Counter(stats.SchedOffersCombinedCounter).Inc(1)
			o = pooled.Combine(o)
		}
		s.unreserved[o.AgentID] = o
		log.WithFields(log.Fields{"offer": o.String()}).Info("offer moved to unreserved pool")
	}

	if len(s.unreserved) == 0 {
		return
	}
	log.WithFields(log.Fields{"offers": len(s.unreserved)}).Info("offering unreserved pool to unstarted tests")
	for _, tc := range s.tests {
		if tc.State != domain.Unstarted {
			continue
		}
		if len(s.unreserved) == 0 || s.fatal != nil {
			break
		}
		claimed, err := tc.CanRunOn(s.unreserved, s.config.Render.Unit)
		if err != nil {
			log.WithFields(log.Fields{"test": tc.Name, "reason": err}).Debug("test does not fit yet")
			tc.AdditionalInfo = err.Error()
			continue
		}
		log.WithFields(log.Fields{"test": tc.Name, "agents": len(claimed)}).Info("all tasks planned, starting test")
		tc.State = domain.Running
		tc.AdditionalInfo = ""
		tc.RestartTimeout(s.config.Time.Now())
		s.stat.Counter(stats.SchedTestsStartedCounter).Inc(1)
		s.moveToClaims(tc.Handle(), claimed)
		s.launch(tc, claimed)
	}
}

func (s *statefulScheduler) launch(tc *domain.TestCase, offers map[string]*domain.ResourceOffer) {
	n, err := tc.Launch(offers, s.driver, &s.taskIDs, s.config.Render)
	if n > 0 {
		s.stat.Counter(stats.SchedTasksLaunchedCounter).Inc(int64(n))
	}
	if err != nil {
		s.fail(err)
	}
}

// moveToClaims is the only way an agent leaves the unreserved pool for a test.
func (s *statefulScheduler) moveToClaims(h domain.TestHandle, offers map[string]*domain.ResourceOffer) {
	for agent := range offers {
		delete(s.unreserved, agent)
		s.testByAgentID[agent] = h
	}
}

// releaseClaims drops every claim of the test. The agents return to the pool
// with their next offer.
func (s *statefulScheduler) releaseClaims(h domain.TestHandle) {
	for agent, owner := range s.testByAgentID {
		if owner == h {
			delete(s.testByAgentID, agent)
		}
	}
}

func (s *statefulScheduler) offerRescinded(id mesos.OfferID) {
	log.WithFields(log.Fields{"offerID": id.Value}).Error("offer rescinded")
	for agent, o := range s.unreserved {
		rest, found := o.Without(id)
		if !found {
			continue
		}
		if rest == nil {
			delete(s.unreserved, agent)
		} else {
			s.unreserved[agent] = rest
		}
		s.stat.Counter(stats.SchedOffersRescindedCounter).Inc(1)
		return
	}
}

// killTest completes the test as killed and releases its claims. Tasks
// already launched are left to run out on their own.
func (s *statefulScheduler) killTest(tc *domain.TestCase, reason string) {
	tc.State = domain.Complete
	tc.Killed = true
	tc.AdditionalInfo = reason
	tc.RemoveTimeout()
	s.releaseClaims(tc.Handle())
	s.stat.Counter(stats.SchedTestsKilledCounter).Inc(1)
	log.WithFields(log.Fields{"test": tc.Name, "reason": reason}).Error("test killed")
}

func (s *statefulScheduler) completeTest(tc *domain.TestCase) {
	tc.State = domain.Complete
	tc.RemoveTimeout()
	s.releaseClaims(tc.Handle())
	s.stat.Counter(stats.SchedTestsCompletedCounter).Inc(1)
	log.WithFields(log.Fields{"test": tc.Name}).Info("test complete")
}

// fail records a fatal error and aborts the driver. The loop exits after the
// current step.
func (s *statefulScheduler) fail(err error) {
	if s.fatal != nil {
		return
	}
	s.fatal = errors.WithStack(err)
	log.WithFields(log.Fields{"err": err}).Error("KILLING FRAMEWORK")
	s.driver.Abort(s.fatal)
}

// finish stops the driver once every test is complete.
func (s *statefulScheduler) finish() {
	if s.done {
		return
	}
	s.done = true
	log.Info("all tests complete, stopping driver")
	s.driver.Stop()
}
