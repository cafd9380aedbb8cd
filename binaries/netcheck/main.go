// netcheck runs a suite of network connectivity tests as a Mesos framework
// and exits non-zero when any task ends badly or any probe fails.
package main

import (
	"context"
	"fmt"
	"io"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	uuid "github.com/nu7hatch/gouuid"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/projectcalico/netcheck/common/endpoints"
	"github.com/projectcalico/netcheck/common/errors"
	"github.com/projectcalico/netcheck/common/log/hooks"
	"github.com/projectcalico/netcheck/common/stats"
	"github.com/projectcalico/netcheck/scheduler/config"
	"github.com/projectcalico/netcheck/scheduler/domain"
	"github.com/projectcalico/netcheck/scheduler/driver"
	"github.com/projectcalico/netcheck/scheduler/server"
	"github.com/projectcalico/netcheck/scheduler/suite"
)

const (
	defaultMasterPort = "5050"
	// how long to wait for the teardown once the scheduler is done
	driverStopTimeout = 30 * time.Second
)

type schedResult struct {
	report server.Report
	err    error
}

type options struct {
	configSelector string
	logLevel       string
	logFile        string
	httpAddr       string
	suitePath      string
}

func main() {
	err := newRootCmd().Execute()
	if err != nil {
		log.Error(err)
	}
	os.Exit(int(errors.ExitCodeOf(err)))
}

func newRootCmd() *cobra.Command {
	opts := &options{}
	cmd := &cobra.Command{
		Use:   "netcheck [master]",
		Short: "netcheck runs network connectivity tests on a Mesos cluster",
		Long: `netcheck registers a framework with the Mesos master, places each test's
tasks on offered agents and reports, per test, whether the expected
connectivity held. Without a master argument the local default-route
address is assumed with port ` + defaultMasterPort + `.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			master := ""
			if len(args) == 1 {
				master = args[0]
			}
			return run(opts, master)
		},
	}
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.configSelector, "config", "default",
		"Built-in config name, path to a JSON config, or JSON text")
	flags.StringVar(&opts.logLevel, "log_level", "info", "Log everything at this level and above (error|info|debug)")
	flags.StringVar(&opts.logFile, "log_file", "", "Also write logs to this file")
	flags.StringVar(&opts.httpAddr, "http_addr", "", "Serve /health, /admin/metrics.json and /report on this address")
	flags.StringVar(&opts.suitePath, "suite", "", "Suite YAML file, or 'builtin'. Overrides the config's suite")
	return cmd
}

func setupLogging(opts *options) (io.Closer, error) {
	level, err := log.ParseLevel(opts.logLevel)
	if err != nil {
		return nil, err
	}
	log.SetLevel(level)
	log.AddHook(hooks.NewContextHook())
	if opts.logFile == "" {
		return nil, nil
	}
	f, err := os.OpenFile(opts.logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	log.SetOutput(io.MultiWriter(os.Stderr, f))
	return f, nil
}

// defaultMaster is the address of the interface holding the default route.
func defaultMaster() (string, error) {
	// UDP dial sends nothing; it only selects the outgoing interface.
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	ip := conn.LocalAddr().(*net.UDPAddr).IP.String()
	return net.JoinHostPort(ip, defaultMasterPort), nil
}

// forwardingSink breaks the construction cycle between driver and scheduler.
type forwardingSink struct {
	driver.EventSink
}

func run(opts *options, master string) error {
	closer, err := setupLogging(opts)
	if err != nil {
		return errors.NewError(err, errors.PreProcessingFailureExitCode)
	}
	if closer != nil {
		defer closer.Close()
	}

	if master == "" {
		if master, err = defaultMaster(); err != nil {
			return errors.NewErrorf(errors.PreProcessingFailureExitCode, "no master given and no default route: %v", err)
		}
		log.Infof("Assuming local IP for master: %s", master)
	}

	configs, err := config.GetConfigs(opts.configSelector)
	if err != nil {
		return errors.NewError(err, errors.PreProcessingFailureExitCode)
	}
	if err := configs.ApplyEnv(os.Getenv); err != nil {
		return errors.NewError(err, errors.PreProcessingFailureExitCode)
	}
	log.Infof("netcheck configs: %s", configs)

	suitePath := configs.Suite.Path
	if opts.suitePath != "" {
		suitePath = opts.suitePath
	}
	tests, err := suite.Load(suitePath)
	if err != nil {
		return errors.NewError(err, errors.PreProcessingFailureExitCode)
	}
	if mode, err := configs.Tasks.ExecutorMode(); err == nil && mode == domain.ExecutorDefault {
		for _, tc := range tests {
			tc.Mode = domain.ExecutorDefault
		}
	}

	id, err := uuid.NewV4()
	if err != nil {
		return errors.NewError(err, errors.PreProcessingFailureExitCode)
	}
	runID := id.String()

	schedCfg, err := configs.CreateSchedulerConfig(runID)
	if err != nil {
		return errors.NewError(err, errors.PreProcessingFailureExitCode)
	}
	mesosCfg, err := configs.CreateMesosConfig(master, runID)
	if err != nil {
		return errors.NewError(err, errors.PreProcessingFailureExitCode)
	}

	stat := stats.NewCustomStatsReceiver(stats.NewFinagleStatsRegistry).Precision(time.Millisecond)
	sink := &forwardingSink{}
	d := driver.NewMesosDriver(mesosCfg, sink, stat)
	s, err := server.NewStatefulScheduler(*schedCfg, tests, d, stat)
	if err != nil {
		return errors.NewError(err, errors.PreProcessingFailureExitCode)
	}
	sink.EventSink = s

	if opts.httpAddr != "" {
		admin := endpoints.NewAdminServer(opts.httpAddr, stat, func() interface{} { return s.Snapshot() })
		go func() {
			if err := admin.Serve(); err != nil {
				log.WithFields(log.Fields{"err": err}).Error("admin server stopped")
			}
		}()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigCh:
			log.WithFields(log.Fields{"signal": sig}).Info("interrupted, stopping")
			cancel()
		case <-ctx.Done():
		}
	}()

	log.WithFields(log.Fields{"master": master, "runID": runID, "tests": len(tests)}).Info("Launching")
	schedCh := make(chan schedResult, 1)
	go func() {
		r, err := s.Run(ctx)
		schedCh <- schedResult{r, err}
	}()
	driverCh := make(chan error, 1)
	go func() {
		driverCh <- d.Run(ctx)
	}()

	var res schedResult
	var driverErr error
	select {
	case res = <-schedCh:
		select {
		case driverErr = <-driverCh:
		case <-time.After(driverStopTimeout):
			log.Error("driver did not stop in time")
			cancel()
			driverErr = <-driverCh
		}
	case driverErr = <-driverCh:
		// The scheduler cannot make progress without the driver.
		cancel()
		res = <-schedCh
	}

	if err := res.report.Write(os.Stdout); err != nil {
		log.WithFields(log.Fields{"err": err}).Error("writing report")
	}
	return runError(res, driverErr)
}

// runError decides how the run ends. Every failure exits 1; the log tells
// them apart.
func runError(res schedResult, driverErr error) error {
	switch {
	case res.err != nil && res.err != context.Canceled:
		return errors.NewError(res.err, errors.AbortedExitCode)
	case driverErr != nil:
		return errors.NewError(fmt.Errorf("driver: %v", driverErr), errors.GenericFailureExitCode)
	case res.err == context.Canceled:
		return errors.NewErrorf(errors.GenericFailureExitCode, "run interrupted before all tests completed")
	}
	if code := res.report.ExitCode(); code != errors.SuccessExitCode {
		return errors.NewErrorf(code, "tests failed")
	}
	return nil
}
