package driver

import (
	"context"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff"
	"github.com/luci/go-render/render"
	mesos "github.com/mesos/mesos-go/api/v1/lib"
	mesosbackoff "github.com/mesos/mesos-go/api/v1/lib/backoff"
	"github.com/mesos/mesos-go/api/v1/lib/extras/scheduler/callrules"
	"github.com/mesos/mesos-go/api/v1/lib/extras/scheduler/controller"
	"github.com/mesos/mesos-go/api/v1/lib/extras/scheduler/eventrules"
	"github.com/mesos/mesos-go/api/v1/lib/extras/store"
	"github.com/mesos/mesos-go/api/v1/lib/httpcli"
	"github.com/mesos/mesos-go/api/v1/lib/httpcli/httpsched"
	"github.com/mesos/mesos-go/api/v1/lib/scheduler"
	"github.com/mesos/mesos-go/api/v1/lib/scheduler/calls"
	"github.com/mesos/mesos-go/api/v1/lib/scheduler/events"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/projectcalico/netcheck/common/stats"
)

const (
	RegistrationMinBackoff = 1 * time.Second
	RegistrationMaxBackoff = 15 * time.Second

	callQueueSize = 1024
)

type MesosConfig struct {
	// Master is host:port or a full scheduler API URL.
	Master    string
	Framework *mesos.FrameworkInfo

	// When false every status update must be passed to Acknowledge.
	ImplicitAcknowledgements bool

	CallTimeout time.Duration
	// CallRetries bounds the retries of a failed call before it is dropped.
	CallRetries uint64
	// RefuseDuration is how long declined resources stay away.
	RefuseDuration time.Duration
}

// MasterURL turns a bare host:port into the scheduler API endpoint.
func MasterURL(master string) string {
	if strings.HasPrefix(master, "http://") || strings.HasPrefix(master, "https://") {
		return master
	}
	return "http://" + master + "/api/v1/scheduler"
}

type queuedCall struct {
	call *scheduler.Call
	// last ends the run once the call has been sent.
	last bool
}

// MesosDriver speaks the Mesos v1 scheduler HTTP API. Events are forwarded to
// an EventSink; calls are queued and sent in order by a single goroutine.
type MesosDriver struct {
	cfg      MesosConfig
	sink     EventSink
	cli      calls.Caller
	fidStore store.Singleton
	stat     stats.StatsReceiver

	queue  chan queuedCall
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	abortErr error
	closing  bool
}

func NewMesosDriver(cfg MesosConfig, sink EventSink, stat stats.StatsReceiver) *MesosDriver {
	fidStore := store.DecorateSingleton(
		store.NewInMemorySingleton(),
		store.DoSet().AndThen(func(_ store.Setter, v string, _ error) error {
			log.WithFields(log.Fields{"frameworkID": v}).Info("registered with master")
			return nil
		}))
	http := httpcli.New(
		httpcli.Endpoint(MasterURL(cfg.Master)),
		httpcli.Do(httpcli.With(httpcli.Timeout(cfg.CallTimeout))),
	)
	cli := callrules.New(
		callrules.WithFrameworkID(store.GetIgnoreErrors(fidStore)),
	).Caller(httpsched.NewCaller(http))
	return newMesosDriver(cfg, sink, cli, fidStore, stat)
}

func newMesosDriver(cfg MesosConfig, sink EventSink, cli calls.Caller, fidStore store.Singleton,
	stat stats.StatsReceiver) *MesosDriver {
	ctx, cancel := context.WithCancel(context.Background())
	return &MesosDriver{
		cfg:      cfg,
		sink:     sink,
		cli:      cli,
		fidStore: fidStore,
		stat:     stat.Scope("driver"),
		queue:    make(chan queuedCall, callQueueSize),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// Run subscribes to the master and serves events until Stop or Abort is
// called or ctx ends. It returns the error passed to Abort, if any.
func (d *MesosDriver) Run(ctx context.Context) error {
	go func() {
		select {
		case <-ctx.Done():
			d.cancel()
		case <-d.ctx.Done():
		}
	}()
	go d.sendLoop()

	err := controller.Run(
		d.ctx,
		d.cfg.Framework,
		d.cli,
		controller.WithEventHandler(d.buildEventHandler()),
		controller.WithFrameworkID(store.GetIgnoreErrors(d.fidStore)),
		controller.WithRegistrationTokens(
			mesosbackoff.Notifier(RegistrationMinBackoff, RegistrationMaxBackoff, d.ctx.Done()),
		),
		controller.WithSubscriptionTerminated(func(err error) {
			d.stat.Counter(stats.DriverSubscriptionsEndedCounter).Inc(1)
			if err != nil && err != io.EOF {
				log.WithFields(log.Fields{"err": err}).Error("subscription terminated")
				return
			}
			log.Info("disconnected from master")
		}),
	)

	d.mu.Lock()
	defer d.mu.Unlock()
	if d.abortErr != nil {
		return d.abortErr
	}
	if err == context.Canceled {
		return nil
	}
	return err
}

func (d *MesosDriver) buildEventHandler() events.Handler {
	logger := controller.LogEvents(func(e *scheduler.Event) {
		log.WithFields(log.Fields{"event": e.GetType()}).Debug("scheduler event")
	})
	update := eventrules.HandleF(d.statusUpdate)
	if d.cfg.ImplicitAcknowledgements {
		update = controller.AckStatusUpdates(d.cli).AndThen().HandleF(d.statusUpdate)
	}
	return eventrules.New(
		controller.LiftErrors().DropOnError(),
	).Handle(events.Handlers{
		scheduler.Event_SUBSCRIBED: eventrules.New(
			logger,
			controller.TrackSubscription(d.fidStore, d.failoverTimeout()),
		),
		scheduler.Event_OFFERS:  eventrules.HandleF(d.resourceOffers),
		scheduler.Event_UPDATE:  update,
		scheduler.Event_RESCIND: eventrules.HandleF(d.offerRescinded),
		scheduler.Event_ERROR:   eventrules.HandleF(d.frameworkError),
		scheduler.Event_FAILURE: logger,
	}.Otherwise(logger.HandleEvent))
}

func (d *MesosDriver) failoverTimeout() time.Duration {
	if d.cfg.Framework == nil || d.cfg.Framework.FailoverTimeout == nil {
		return 0
	}
	return time.Duration(*d.cfg.Framework.FailoverTimeout * float64(time.Second))
}

func (d *MesosDriver) resourceOffers(ctx context.Context, e *scheduler.Event) error {
	offers := e.GetOffers().GetOffers()
	log.WithFields(log.Fields{"count": len(offers)}).Debug("received offers")
	d.sink.ResourceOffers(offers)
	return nil
}

func (d *MesosDriver) statusUpdate(ctx context.Context, e *scheduler.Event) error {
	d.sink.StatusUpdate(e.GetUpdate().GetStatus())
	return nil
}

func (d *MesosDriver) offerRescinded(ctx context.Context, e *scheduler.Event) error {
	d.sink.OfferRescinded(e.GetRescind().OfferID)
	return nil
}

func (d *MesosDriver) frameworkError(ctx context.Context, e *scheduler.Event) error {
	msg := e.GetError().GetMessage()
	log.WithFields(log.Fields{"message": msg}).Error("framework error from master")
	d.Abort(errors.Errorf("master reported framework error: %s", msg))
	return nil
}

func (d *MesosDriver) AcceptOffers(ids []mesos.OfferID, tasks []mesos.TaskInfo) {
	if log.IsLevelEnabled(log.DebugLevel) {
		log.Debugf("launching %s", render.Render(tasks))
	}
	accept := calls.Accept(
		calls.OfferOperations{calls.OpLaunch(tasks...)}.WithOffers(ids...),
	).With(calls.RefuseSeconds(d.cfg.RefuseDuration))
	d.enqueue(queuedCall{call: accept})
}

func (d *MesosDriver) DeclineOffer(id mesos.OfferID) {
	d.enqueue(queuedCall{call: calls.Decline(id).With(calls.RefuseSeconds(d.cfg.RefuseDuration))})
}

func (d *MesosDriver) Acknowledge(status mesos.TaskStatus) {
	if len(status.UUID) == 0 {
		return
	}
	ack := calls.Acknowledge(status.GetAgentID().GetValue(), status.TaskID.Value, status.UUID)
	d.enqueue(queuedCall{call: ack})
}

// Stop tears down the framework after every call queued so far is sent.
func (d *MesosDriver) Stop() {
	d.enqueue(queuedCall{call: teardown(), last: true})
}

func (d *MesosDriver) Abort(err error) {
	d.mu.Lock()
	if d.abortErr == nil {
		d.abortErr = err
	}
	d.mu.Unlock()
	log.WithFields(log.Fields{"err": err}).Error("aborting framework")
	d.enqueue(queuedCall{call: teardown(), last: true})
}

// The calls package has no helper for TEARDOWN.
func teardown() *scheduler.Call {
	return &scheduler.Call{Type: scheduler.Call_TEARDOWN}
}

func (d *MesosDriver) enqueue(c queuedCall) {
	d.mu.Lock()
	if d.closing {
		d.mu.Unlock()
		return
	}
	d.closing = c.last
	d.mu.Unlock()

	select {
	case d.queue <- c:
	case <-d.ctx.Done():
	}
}

func (d *MesosDriver) sendLoop() {
	for {
		select {
		case <-d.ctx.Done():
			return
		case c := <-d.queue:
			d.send(c.call)
			if c.last {
				d.cancel()
				return
			}
		}
	}
}

// send makes one call, retrying with exponential backoff. Failures are
// counted and logged, never returned.
func (d *MesosDriver) send(call *scheduler.Call) {
	defer d.stat.Latency(stats.DriverCallLatency_ms).Time().Stop()
	d.stat.Counter(stats.DriverCallsCounter).Inc(1)

	try := 1
	b := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), d.cfg.CallRetries), d.ctx)
	err := backoff.Retry(func() error {
		err := calls.CallNoData(d.ctx, d.cli, call)
		if err != nil {
			log.WithFields(log.Fields{"call": call.GetType(), "try": try, "err": err}).Debug("call failed")
		}
		try++
		return err
	}, b)
	if err != nil {
		d.stat.Counter(stats.DriverCallFailuresCounter).Inc(1)
		log.WithFields(log.Fields{"call": call.GetType(), "err": err}).Error("dropping call after retries")
	}
}
