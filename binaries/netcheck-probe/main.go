// netcheck-probe is the command netcheck tasks run inside their containers
// under the default command executor.
package main

import (
	"context"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/projectcalico/netcheck/common/errors"
	"github.com/projectcalico/netcheck/common/os/exec"
	"github.com/projectcalico/netcheck/executor/probe"
)

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		log.Error(err)
	}
	os.Exit(int(errors.ExitCodeOf(err)))
}

func newRootCmd() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:           "netcheck-probe",
		Short:         "Connectivity probes run by netcheck tasks",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(*cobra.Command, []string) error {
			level, err := log.ParseLevel(logLevel)
			if err != nil {
				return err
			}
			log.SetLevel(level)
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log_level", "info", "Log everything at this level and above (error|info|debug)")

	execer := exec.NewOsExec()
	root.AddCommand(newPingCmd(execer), newSendCmd(execer), newSleepCmd(), newListenCmd(execer))
	return root
}

func newPingCmd(execer exec.OsExec) *cobra.Command {
	var can, cant string
	cmd := &cobra.Command{
		Use:   "ping",
		Short: "Ping targets that must and must not answer, print results as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := probe.Request{CanPing: probe.SplitTargets(can), CantPing: probe.SplitTargets(cant)}
			return report(probe.Run(context.Background(), req, probe.NewCommandPinger(execer)))
		},
	}
	cmd.Flags().StringVar(&can, "can", "", "Comma separated addresses that must answer")
	cmd.Flags().StringVar(&cant, "cant", "", "Comma separated addresses that must not answer")
	return cmd
}

func newSendCmd(execer exec.OsExec) *cobra.Command {
	var targets string
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send to listeners, print results as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			req := probe.Request{Send: probe.SplitTargets(targets)}
			return report(probe.Run(context.Background(), req, probe.NewCommandPinger(execer)))
		},
	}
	cmd.Flags().StringVar(&targets, "targets", "", "Comma separated host:port listeners")
	return cmd
}

func newSleepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sleep",
		Short: "Stay up as a ping target",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return probe.Sleep(context.Background(), probe.Lifetime)
		},
	}
}

func newListenCmd(execer exec.OsExec) *cobra.Command {
	var port uint64
	cmd := &cobra.Command{
		Use:   "listen",
		Short: "Wait for one connection on a port",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := probe.Listen(context.Background(), execer, port, probe.Lifetime); err != nil {
				return errors.NewError(err, errors.ProbeFailureExitCode)
			}
			return nil
		},
	}
	cmd.Flags().Uint64Var(&port, "port", 0, "Port to listen on")
	cmd.MarkFlagRequired("port")
	return cmd
}

func report(results probe.Results) error {
	if err := results.Write(os.Stdout); err != nil {
		return err
	}
	if !results.Passed() {
		return errors.NewErrorf(errors.ProbeFailureExitCode, "expectations not met for %v", results.Failed())
	}
	return nil
}
