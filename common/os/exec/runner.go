package exec

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	log "github.com/sirupsen/logrus"
)

const (
	CmdSeparator = "--------------------------------------------------------------"
)

var TimeoutError = errors.New("command timeout")

// RunResult summarizes a command run by RunKillableCommand, with the full
// contents of stdout and stderr.
type RunResult struct {
	// ProcessState is nil for a command that failed to start.
	ProcessState *os.ProcessState

	Stdout []byte
	Stderr []byte

	// Error is the error from Start or Wait, TimeoutError, or ctx.Err().
	Error error
}

func (rr RunResult) String() string {
	return fmt.Sprintf("Error:%s, Stdout:%s, Stderr:%s", rr.Error, rr.Stdout, rr.Stderr)
}

func truncateCmd(cmd Cmd) string {
	args := cmd.Args()
	if len(args) > 0 {
		args[0] = filepath.Base(args[0])
	}
	return strings.Join(args, " ")
}

// RunKillableCommand execs cmd and waits for it. Output is collected and also
// streamed to streamLog. When ctx ends or timeout (if > 0) passes, the
// process gets SIGTERM, then Kill after killTimeout.
func RunKillableCommand(
	ctx context.Context,
	cmd Cmd,
	killTimeout time.Duration,
	streamLog io.Writer,
	timeout time.Duration,
) RunResult {
	rr := RunResult{}

	// send stdout/stderr to both streamLog and outBuf/errBuf
	var outBuf, errBuf bytes.Buffer
	syncLog := &syncWriter{w: streamLog}
	cmd.SetStdout(io.MultiWriter(&outBuf, syncLog))
	cmd.SetStderr(io.MultiWriter(&errBuf, syncLog))

	log.WithFields(log.Fields{"cmd": cmd.String()}).Debug("running command")
	syncLog.Write([]byte(fmt.Sprintf("%s\nRunning Command: %s\n", CmdSeparator, truncateCmd(cmd))))
	if err := cmd.Start(); err != nil {
		rr.Error = err
		return rr
	}

	var cmdErr error
	doneCh := make(chan struct{})
	go func() {
		cmdErr = cmd.Wait()
		close(doneCh)
	}()

	var timeoutCh <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		timeoutCh = timer.C
	}

	select {
	case <-doneCh:
		if ps := cmd.ProcessState(); ps != nil {
			syncLog.Write([]byte(fmt.Sprintf("Exited - ExitCode: %d\n", ps.ExitCode())))
		}
	case <-timeoutCh:
		log.WithFields(log.Fields{"timeout": timeout}).Info("command timed out, killing it")
		termThenKill(cmd.Process(), killTimeout, doneCh)
		// must still wait for cmd.Wait()
		<-doneCh
		syncLog.Write([]byte(fmt.Sprintf("Timeout after %v\n", timeout)))
		cmdErr = TimeoutError
	case <-ctx.Done():
		log.Info("context ended, killing command")
		termThenKill(cmd.Process(), killTimeout, doneCh)
		<-doneCh
		syncLog.Write([]byte("Terminated by external request\n"))
		cmdErr = ctx.Err()
	}

	rr.ProcessState = cmd.ProcessState()
	rr.Stdout = outBuf.Bytes()
	rr.Stderr = errBuf.Bytes()
	rr.Error = cmdErr
	return rr
}

// termThenKill will SIGTERM a process, then Kill it if it hasn't exited after duration d.
// waitDoneCh must be closed by the caller when the process exits (to avoid double Wait()ing)
func termThenKill(p *os.Process, d time.Duration, waitDoneCh <-chan struct{}) error {
	if p == nil {
		return nil
	}
	if err := p.Signal(syscall.SIGTERM); err != nil {
		log.Errorf("Failed to send SIGTERM to process: %s", err)
		return err
	}

	select {
	case <-waitDoneCh:
	case <-time.After(d):
		log.Info("Command hasn't exited, using Kill()")
		if err := p.Kill(); err != nil {
			log.Errorf("Failed to Kill() process: %s", err)
			return err
		}
	}
	return nil
}

// syncWriter serializes writes from the stdout and stderr copiers.
type syncWriter struct {
	w  io.Writer
	mu sync.Mutex
}

func (b *syncWriter) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.w.Write(p)
}
