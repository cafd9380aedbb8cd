package exec

import (
	"bytes"
	"context"
	"errors"
	"io/ioutil"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExitErrorCarriesStatus(t *testing.T) {
	err := NewOsExec().Command("sh", "-c", "exit 3").Run()
	exitErr, ok := err.(ExitError)
	if !assert.True(t, ok, "expected an ExitError, got %T", err) {
		return
	}
	assert.Equal(t, 3, exitErr.ExitStatus())
	assert.False(t, exitErr.Signaled())
	assert.Equal(t, []string{"sh", "-c", "exit 3"}, exitErr.Args())

	assert.NoError(t, NewOsExec().Command("true").Run())
}

func TestStdinIsPassedThrough(t *testing.T) {
	cmd := NewOsExec().Command("cat")
	var out bytes.Buffer
	cmd.SetStdin(strings.NewReader("hi"))
	cmd.SetStdout(&out)
	assert.NoError(t, cmd.Run())
	assert.Equal(t, "hi", out.String())
}

func TestUnrunnableCommand(t *testing.T) {
	cmd := NewOsExec().Command("sjkldoeiujeiuc")
	rr := RunKillableCommand(context.Background(), cmd, 0, ioutil.Discard, 0)
	if rr.Error == nil {
		t.Fatal("unexpected nil error from unrunnable command")
	}
}

func TestRunKillableCommandOutput(t *testing.T) {
	var stream bytes.Buffer
	cmd := NewOsExec().Command("sh", "-c", `echo "stdout line"; echo "stderr line" 1>&2`)
	rr := RunKillableCommand(context.Background(), cmd, 0, &stream, 0)
	if rr.Error != nil {
		t.Fatalf("error running command: %s", rr.Error)
	}
	if !rr.ProcessState.Exited() || rr.ProcessState.ExitCode() != 0 {
		t.Fatalf("process didn't complete successfully: %t %d", rr.ProcessState.Exited(), rr.ProcessState.ExitCode())
	}
	assert.Contains(t, string(rr.Stdout), "stdout line")
	assert.Contains(t, string(rr.Stderr), "stderr line")
	assert.Contains(t, stream.String(), "Running Command: sh -c")
}

func TestRunKillableCommandTimeout(t *testing.T) {
	cmd := NewOsExec().Command("sleep", "30")
	start := time.Now()
	rr := RunKillableCommand(context.Background(), cmd, 100*time.Millisecond, ioutil.Discard, 100*time.Millisecond)
	assert.Equal(t, TimeoutError, rr.Error)
	assert.True(t, time.Since(start) < 10*time.Second)
}

func TestRunKillableCommandCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	rr := RunKillableCommand(ctx, NewOsExec().Command("sleep", "30"), 100*time.Millisecond, ioutil.Discard, 0)
	assert.Equal(t, context.Canceled, rr.Error)
}

func TestValidatingExecer(t *testing.T) {
	boom := errors.New("boom")
	v := NewValidatingExecer(t, [][]string{
		{"ping", "-c", "1", `10\.0\.0\.\d+`},
		{"nc", ".*", "80"},
	}).SetFakeActions(map[int]func(Cmd) error{
		1: func(Cmd) error { return boom },
	})
	defer v.CheckAllValidated()

	assert.NoError(t, v.Command("ping", "-c", "1", "10.0.0.7").Run())
	assert.Equal(t, boom, v.Command("nc", "host", "80").Run())
}

func TestValidatingExecerRejectsUnexpectedCommands(t *testing.T) {
	v := NewValidatingExecer(t, [][]string{{"ping", "-c", "1", "a"}})
	assert.Error(t, v.Command("ping", "a").Run())

	v = NewValidatingExecer(t, nil)
	assert.Error(t, v.Command("true").Run())
}
