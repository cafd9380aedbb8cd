package server

import (
	"fmt"

	mesos "github.com/mesos/mesos-go/api/v1/lib"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/projectcalico/netcheck/common/stats"
	"github.com/projectcalico/netcheck/scheduler/domain"
)

// ErrUnknownTask means the master reported on a task this framework never
// launched. It ends the run.
var ErrUnknownTask = errors.New("status update from unidentified task id")

func (s *statefulScheduler) findTask(id string) (*domain.Task, *domain.TestCase) {
	for _, tc := range s.tests {
		for _, t := range tc.Tasks {
			if t.ID != "" && t.ID == id {
				return t, tc
			}
		}
	}
	return nil, nil
}

func (s *statefulScheduler) statusUpdate(status mesos.TaskStatus) {
	s.stat.Counter(stats.SchedStatusUpdatesCounter).Inc(1)
	id := status.TaskID.Value
	task, tc := s.findTask(id)
	if task == nil {
		s.fail(errors.Wrapf(ErrUnknownTask, "task id %q", id))
		return
	}
	s.processUpdate(task, tc, status)

	if !s.config.ImplicitAcknowledgements {
		s.driver.Acknowledge(status)
	}
}

func (s *statefulScheduler) processUpdate(task *domain.Task, tc *domain.TestCase, status mesos.TaskStatus) {
	fields := log.Fields{
		"test":  tc.Name,
		"task":  task.String(),
		"state": status.GetState().String(),
	}

	if tc.State == domain.Complete {
		state := status.GetState()
		task.State = &state
		log.WithFields(fields).Info("update for a completed test, state recorded")
		return
	}

	if err := task.ProcessUpdate(status); err != nil {
		s.stat.Counter(stats.SchedTaskUpdateErrorsCounter).Inc(1)
		s.killTest(tc, err.Error())
		return
	}
	log.WithFields(fields).Info("task update")

	if task.InBadState() {
		log.WithFields(fields).WithFields(log.Fields{
			"message": status.GetMessage(),
			"data":    string(status.Data),
			"source":  status.GetSource().String(),
			"reason":  status.GetReason().String(),
			"healthy": status.GetHealthy(),
		}).Error("task in unexpected state")
		reason := status.GetMessage()
		if reason == "" {
			reason = fmt.Sprintf("%s entered %s", task, task.StateName())
		}
		s.killTest(tc, reason)
		return
	}

	if task.InState(mesos.TASK_FINISHED) {
		for _, prober := range tc.Targeters(task) {
			if !prober.InState(mesos.TASK_FINISHED) {
				s.killTest(tc, finishedEarlyReason(task))
				return
			}
		}
	}

	if tc.AllFinished() {
		s.completeTest(tc)
	} else {
		tc.RestartTimeout(s.config.Time.Now())
	}
}

func finishedEarlyReason(target *domain.Task) string {
	if target.Kind == domain.NetcatListenTask {
		return "A Listen task finished before its Sender did."
	}
	return "A Sleep task finished before its Pinger did."
}
