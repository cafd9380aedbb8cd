package exec

import (
	"fmt"
	"os"
	"regexp"
	"strings"
	"testing"

	log "github.com/sirupsen/logrus"
)

type (
	// ValidatingExecer is an OsExec implementation that instead of running Commands,
	// validates that commands would have been run against an expected set.
	// Commands must be run one at a time.
	ValidatingExecer struct {
		vCmd *ValidatingCmd
	}

	// ValidatingCmd implements Cmd. It does not actually run commands, but overrides
	// Run(), Start() and Wait() to check what would have run against the
	// expected commands.
	ValidatingCmd struct {
		Cmd
		t              *testing.T
		currentCmd     []string
		expectedCmdsRe [][]string
		commandIdx     int
		fakeActions    map[int]func(cmd Cmd) error
		doneCh         chan error
	}
)

// NewValidatingExecer returns a ValidatingExecer expecting the given commands
// in order. Each argument is matched as a regular expression.
func NewValidatingExecer(t *testing.T, expectedCmdsRe [][]string) *ValidatingExecer {
	return &ValidatingExecer{vCmd: &ValidatingCmd{t: t, expectedCmdsRe: expectedCmdsRe, commandIdx: -1}}
}

// SetFakeActions injects the result of each expected command, keyed by its
// index. Commands without an action succeed.
func (v *ValidatingExecer) SetFakeActions(fakeActions map[int]func(cmd Cmd) error) *ValidatingExecer {
	v.vCmd.fakeActions = fakeActions
	return v
}

// Command initializes a ValidatingExecer's Cmd object. When run, will be validated
// such that command was one of the predefined expected commands.
func (v *ValidatingExecer) Command(cmd string, args ...string) Cmd {
	// Create a real Command mainly for interface compatibility
	v.vCmd.Cmd = NewOsExec().Command(cmd, args...)

	v.vCmd.currentCmd = append([]string{cmd}, args...)
	v.vCmd.doneCh = make(chan error, 1)
	return v.vCmd
}

// run validates an exec command by comparing it with the next expected one, and executes any fake actions
func (v *ValidatingCmd) run() error {
	v.commandIdx++
	err := v.validateCmd()
	if err != nil {
		log.Error(err)
		v.doneCh <- err
		return err
	}
	if fn, ok := v.fakeActions[v.commandIdx]; ok {
		err = fn(v)
	}
	v.doneCh <- err
	return err
}

// Start overrides Start() with validating behavior.
func (v *ValidatingCmd) Start() error {
	go v.run()
	return nil
}

// Wait overrides Wait() to return the validation or fake action result.
func (v *ValidatingCmd) Wait() error {
	return <-v.doneCh
}

// Run overrides Run() with validating behavior.
func (v *ValidatingCmd) Run() error {
	v.Start()
	return v.Wait()
}

// Process is nil: nothing was started.
func (v *ValidatingCmd) Process() *os.Process { return nil }

// ProcessState is nil: nothing ran.
func (v *ValidatingCmd) ProcessState() *os.ProcessState { return nil }

func (v *ValidatingCmd) validateCmd() error {
	if v.commandIdx >= len(v.expectedCmdsRe) {
		return fmt.Errorf("command validation failed.\n\tonly expected %d commands.\n\treceived extra command: %s\n",
			len(v.expectedCmdsRe), v.currentCmd)
	}

	commandRes := v.expectedCmdsRe[v.commandIdx]
	if len(commandRes) != len(v.currentCmd) {
		return fmt.Errorf("command validation failed.\n\tcmd index: %d\n\texpected: %d args (%s)\n\treceived: %d args (%s)\n",
			v.commandIdx, len(commandRes), strings.Join(commandRes, ","), len(v.currentCmd), strings.Join(v.currentCmd, ","))
	}
	for i, re := range commandRes {
		rec := regexp.MustCompile(re)
		if !rec.MatchString(v.currentCmd[i]) {
			return fmt.Errorf("command validation failed.\n\tcmd index: %d, entry: %d\n\texpected: %s\n\treceived: %s\n",
				v.commandIdx, i, re, v.currentCmd[i])
		}
	}
	return nil
}

// CheckAllValidated verifies that all expected commands were validated. If any commands were expected but not validated,
// will invoke Fatalf on the *testing.T supplied to ValidatingExecer (tests can `defer v.CheckAllValidated()` to use this).
func (v *ValidatingExecer) CheckAllValidated() {
	if v.vCmd.commandIdx != len(v.vCmd.expectedCmdsRe)-1 {
		v.vCmd.t.Fatalf("Number of expected commands: %d did not match validated command count: %d",
			len(v.vCmd.expectedCmdsRe), v.vCmd.commandIdx+1)
	}
}
