// Package exec wraps os/exec behind interfaces so probe commands can be
// replaced by fakes in tests.
package exec

import (
	"io"
	"os"
	osexec "os/exec"
	"syscall"
)

type (
	// OsExec provides an interface around os/exec.Command to support injecting fake
	// exec functionality
	OsExec interface {
		// Command creates a Cmd for name with the given arguments. If name
		// contains no path separators it is resolved with os/exec.LookPath.
		Command(name string, args ...string) Cmd
	}

	defaultOsExec struct{}

	// Cmd wraps the os/exec.Cmd struct with our own interface
	Cmd interface {
		Path() string

		// Args returns a copy of the command line, name first.
		Args() []string

		// Run starts the command and waits for it to complete. A non-zero
		// exit is returned as an ExitError.
		Run() error

		// Start starts the command without waiting for it.
		Start() error

		// Wait waits for a started command to exit and releases its resources.
		Wait() error

		SetStdin(io.Reader)
		SetStdout(io.Writer)
		SetStderr(io.Writer)

		// String returns a human-readable description of c. It is intended only for debugging.
		String() string

		// Process is nil until the command has started.
		Process() *os.Process

		// ProcessState is nil until the command has exited.
		ProcessState() *os.ProcessState
	}

	// ExitError is returned when a command ran and exited unsuccessfully.
	//
	//   err := NewOsExec().Command("false").Run()
	//   if exitErr, ok := err.(ExitError); ok {
	//     status := exitErr.ExitStatus()
	//   }
	ExitError interface {
		// ExitStatus is -1 when the process did not exit normally.
		ExitStatus() int
		Signaled() bool
		Error() string
		Args() []string
	}

	cmdAdapter struct {
		cmd *osexec.Cmd
	}

	exitErrorAdapter struct {
		err  *osexec.ExitError
		ws   syscall.WaitStatus
		args []string
	}
)

var (
	_ ExitError = &exitErrorAdapter{}
	_ Cmd       = &cmdAdapter{}
)

// NewOsExec creates a default OsExec instance
func NewOsExec() OsExec {
	return &defaultOsExec{}
}

func (d *defaultOsExec) Command(name string, args ...string) Cmd {
	return &cmdAdapter{cmd: osexec.Command(name, args...)}
}

func wrapExitError(cmd Cmd, err error) error {
	if err == nil {
		return nil
	}
	if ex, ok := err.(*osexec.ExitError); ok {
		if ws, ok := ex.Sys().(syscall.WaitStatus); ok {
			return &exitErrorAdapter{err: ex, ws: ws, args: cmd.Args()}
		}
	}
	return err
}

func (e *exitErrorAdapter) ExitStatus() int { return e.ws.ExitStatus() }
func (e *exitErrorAdapter) Signaled() bool  { return e.ws.Signaled() }
func (e *exitErrorAdapter) Error() string   { return e.err.Error() }
func (e *exitErrorAdapter) Args() []string  { return e.args }

func (c *cmdAdapter) Run() error   { return wrapExitError(c, c.cmd.Run()) }
func (c *cmdAdapter) Start() error { return c.cmd.Start() }
func (c *cmdAdapter) Wait() error  { return wrapExitError(c, c.cmd.Wait()) }

func (c *cmdAdapter) Path() string                   { return c.cmd.Path }
func (c *cmdAdapter) SetStdin(r io.Reader)           { c.cmd.Stdin = r }
func (c *cmdAdapter) SetStdout(w io.Writer)          { c.cmd.Stdout = w }
func (c *cmdAdapter) SetStderr(w io.Writer)          { c.cmd.Stderr = w }
func (c *cmdAdapter) String() string                 { return c.cmd.String() }
func (c *cmdAdapter) Process() *os.Process           { return c.cmd.Process }
func (c *cmdAdapter) ProcessState() *os.ProcessState { return c.cmd.ProcessState }

func (c *cmdAdapter) Args() []string {
	// return a copy of the Args slice to prevent direct modification by the user
	return append([]string(nil), c.cmd.Args...)
}
