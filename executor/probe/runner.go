package probe

import (
	"bytes"
	"context"
	"io/ioutil"
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/projectcalico/netcheck/common/os/exec"
)

const (
	// Lifetime is how long sleep and listen tasks stay up.
	Lifetime = 25 * time.Second

	killTimeout = time.Second
)

// ErrNoConnection means a listener saw nothing within its lifetime.
var ErrNoConnection = errors.New("never received connection")

// CommandPinger shells out to ping and nc.
type CommandPinger struct {
	Exec exec.OsExec
}

func NewCommandPinger(e exec.OsExec) *CommandPinger {
	return &CommandPinger{Exec: e}
}

func (p *CommandPinger) Ping(ctx context.Context, target string, wait time.Duration) bool {
	args := []string{"-c", "1"}
	if wait > 0 {
		args = append(args, "-w", strconv.Itoa(int(wait/time.Second)))
	}
	cmd := p.Exec.Command("ping", append(args, target)...)
	rr := exec.RunKillableCommand(ctx, cmd, killTimeout, ioutil.Discard, 0)
	if rr.Error != nil {
		log.WithFields(log.Fields{"target": target, "err": rr.Error}).Debug("ping failed")
	}
	return rr.Error == nil
}

func (p *CommandPinger) Send(ctx context.Context, hostport string, payload []byte) bool {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		log.WithFields(log.Fields{"target": hostport, "err": err}).Error("bad send target")
		return false
	}
	cmd := p.Exec.Command("nc", host, port)
	cmd.SetStdin(bytes.NewReader(payload))
	rr := exec.RunKillableCommand(ctx, cmd, killTimeout, ioutil.Discard, 0)
	if rr.Error != nil {
		log.WithFields(log.Fields{"target": hostport, "err": rr.Error}).Debug("send failed")
	}
	return rr.Error == nil
}

// Listen runs a one-shot listener on port and waits up to lifetime for it
// to receive a connection and exit.
func Listen(ctx context.Context, e exec.OsExec, port uint64, lifetime time.Duration) error {
	cmd := e.Command("nc", "-l", "0.0.0.0", strconv.FormatUint(port, 10))
	rr := exec.RunKillableCommand(ctx, cmd, killTimeout, ioutil.Discard, lifetime)
	switch {
	case rr.Error == nil:
		log.WithFields(log.Fields{"port": port, "received": string(rr.Stdout)}).Info("listener received connection")
		return nil
	case rr.Error == exec.TimeoutError:
		return ErrNoConnection
	default:
		return errors.Wrapf(rr.Error, "listening on %d", port)
	}
}

// Sleep stays up for lifetime or until ctx ends.
func Sleep(ctx context.Context, lifetime time.Duration) error {
	t := time.NewTimer(lifetime)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
