package domain

import (
	"fmt"
	"net"
	"strconv"
	"strings"

	mesos "github.com/mesos/mesos-go/api/v1/lib"
	"github.com/mesos/mesos-go/api/v1/lib/resources"
)

// NewSleepTask returns a placeholder that only stays alive.
func NewSleepTask(opts TaskOptions) *Task {
	return newTask(SleepTask, true, opts, sleepVariant{})
}

// NewPingTask returns a probe that must reach every canPing peer and must not
// reach any cantPing peer.
func NewPingTask(opts TaskOptions, canPing, cantPing []*Task) *Task {
	return newTask(PingTask, true, opts, &pingVariant{canPing: canPing, cantPing: cantPing})
}

// NewNetcatListenTask returns a listener outside network isolation.
func NewNetcatListenTask(opts TaskOptions) *Task {
	return newTask(NetcatListenTask, false, opts, listenVariant{})
}

// NewNetcatSendTask returns a sender outside network isolation that must
// reach every target listener.
func NewNetcatSendTask(opts TaskOptions, targets []*Task) *Task {
	return newTask(NetcatSendTask, false, opts, &sendVariant{targets: targets})
}

type sleepVariant struct{}

func (sleepVariant) ready(t *Task) (bool, error) { return !t.Launched(), nil }
func (sleepVariant) peers() []*Task              { return nil }
func (sleepVariant) decorate(t *Task, info *mesos.TaskInfo, cfg RenderConfig) {
	setCommand(info, cfg, "sleep")
}

type pingVariant struct {
	canPing  []*Task
	cantPing []*Task
}

func (v *pingVariant) ready(t *Task) (bool, error) {
	if t.Launched() {
		return false, ErrAlreadyLaunched
	}
	return allRunning(v.canPing) && allRunning(v.cantPing), nil
}

func (v *pingVariant) peers() []*Task {
	return append(append([]*Task{}, v.canPing...), v.cantPing...)
}

func (v *pingVariant) decorate(t *Task, info *mesos.TaskInfo, cfg RenderConfig) {
	can := strings.Join(addressesOf(v.canPing), ",")
	cant := strings.Join(addressesOf(v.cantPing), ",")
	info.Labels.Labels = append(info.Labels.Labels, label("can_ping", can), label("cant_ping", cant))
	args := "ping"
	if can != "" {
		args += " --can " + can
	}
	if cant != "" {
		args += " --cant " + cant
	}
	setCommand(info, cfg, args)
}

// CanPing and CantPing expose the probe's peers for reporting.
func (t *Task) CanPing() []*Task {
	if v, ok := t.variant.(*pingVariant); ok {
		return v.canPing
	}
	return nil
}

func (t *Task) CantPing() []*Task {
	if v, ok := t.variant.(*pingVariant); ok {
		return v.cantPing
	}
	return nil
}

type listenVariant struct{}

func (listenVariant) ready(t *Task) (bool, error) { return !t.Launched(), nil }
func (listenVariant) peers() []*Task              { return nil }
func (listenVariant) decorate(t *Task, info *mesos.TaskInfo, cfg RenderConfig) {
	port := resources.Build().
		Name(resources.NamePorts).
		Ranges(resources.BuildRanges().Span(t.Port, t.Port).Ranges)
	info.Resources = append(info.Resources, port.Resource)
	setCommand(info, cfg, "listen --port "+strconv.FormatUint(t.Port, 10))
}

type sendVariant struct {
	targets []*Task
}

func (v *sendVariant) ready(t *Task) (bool, error) {
	return !t.Launched() && allRunning(v.targets), nil
}

func (v *sendVariant) peers() []*Task { return v.targets }

func (v *sendVariant) decorate(t *Task, info *mesos.TaskInfo, cfg RenderConfig) {
	endpoints := make([]string, 0, len(v.targets))
	for _, target := range v.targets {
		port := strconv.FormatUint(target.Port, 10)
		for _, addr := range addressesOf([]*Task{target}) {
			endpoints = append(endpoints, net.JoinHostPort(addr, port))
		}
	}
	joined := strings.Join(endpoints, ",")
	info.Labels.Labels = append(info.Labels.Labels, label("can_cat", joined))
	setCommand(info, cfg, "send --targets "+joined)
}

// setCommand fills in the command line under the default executor. Under the
// custom executor the command was set by Render and labels carry the details.
func setCommand(info *mesos.TaskInfo, cfg RenderConfig, args string) {
	if cfg.Mode != ExecutorDefault || info.Command == nil {
		return
	}
	cmd := fmt.Sprintf("%s %s", cfg.ProbeCommand, args)
	info.Command.Value = &cmd
}

func allRunning(tasks []*Task) bool {
	for _, t := range tasks {
		if !t.InState(mesos.TASK_RUNNING) {
			return false
		}
	}
	return true
}

// addressesOf lists every recorded address of the given tasks. A task without
// recorded addresses is reached through its agent's hostname.
func addressesOf(tasks []*Task) []string {
	var out []string
	for _, t := range tasks {
		if len(t.IPAddresses) > 0 {
			out = append(out, t.IPAddresses...)
		} else if t.Hostname != "" {
			out = append(out, t.Hostname)
		}
	}
	return out
}
