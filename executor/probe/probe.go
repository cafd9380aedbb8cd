// Package probe implements the in-container side of a connectivity test:
// it pings or sends to the targets it is given and reports, per target,
// whether the expectation held.
package probe

import (
	"context"
	"encoding/json"
	"io"
	"sort"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	// CantPingWait bounds the wait for a reply from a target that must not answer.
	CantPingWait = time.Second

	// Payload is what a send probe writes to its target.
	Payload = "hi"
)

// Request lists targets by expectation. Ping targets are addresses, send
// targets are host:port.
type Request struct {
	CanPing  []string
	CantPing []string
	Send     []string
}

// SplitTargets parses a comma separated target list, dropping empty entries.
func SplitTargets(s string) []string {
	var out []string
	for _, t := range strings.Split(s, ",") {
		if t = strings.TrimSpace(t); t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Pinger reaches targets.
type Pinger interface {
	// Ping reports whether target answered one echo request. A zero wait
	// leaves the reply timeout to the implementation.
	Ping(ctx context.Context, target string, wait time.Duration) bool
	// Send reports whether payload was delivered to hostport.
	Send(ctx context.Context, hostport string, payload []byte) bool
}

// Results maps each target to whether its expectation held.
type Results map[string]bool

// Passed is true when every expectation held.
func (r Results) Passed() bool {
	for _, ok := range r {
		if !ok {
			return false
		}
	}
	return true
}

// Failed lists the targets whose expectation did not hold, sorted.
func (r Results) Failed() []string {
	var failed []string
	for t, ok := range r {
		if !ok {
			failed = append(failed, t)
		}
	}
	sort.Strings(failed)
	return failed
}

// Write prints the results as the JSON object carried in status data.
func (r Results) Write(w io.Writer) error {
	return json.NewEncoder(w).Encode(r)
}

// Run probes every target of req in order: can-ping targets must answer,
// cant-ping targets must not, send targets must accept the payload.
func Run(ctx context.Context, req Request, p Pinger) Results {
	results := Results{}
	for _, t := range req.CanPing {
		results[t] = p.Ping(ctx, t, 0)
		log.WithFields(log.Fields{"target": t, "reachable": results[t]}).Info("can ping")
	}
	for _, t := range req.CantPing {
		results[t] = !p.Ping(ctx, t, CantPingWait)
		log.WithFields(log.Fields{"target": t, "unreachable": results[t]}).Info("can't ping")
	}
	for _, t := range req.Send {
		results[t] = p.Send(ctx, t, []byte(Payload))
		log.WithFields(log.Fields{"target": t, "delivered": results[t]}).Info("send")
	}
	return results
}
