package config

import (
	"encoding/json"
	"fmt"
	"io/ioutil"
	"os"
	"sort"
	"strings"
	"time"

	mesos "github.com/mesos/mesos-go/api/v1/lib"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"

	"github.com/projectcalico/netcheck/common/stats"
	"github.com/projectcalico/netcheck/scheduler/domain"
	"github.com/projectcalico/netcheck/scheduler/driver"
	"github.com/projectcalico/netcheck/scheduler/server"
)

// Environment switches carried over from the native mesos bindings.
const (
	CheckpointEnv              = "MESOS_CHECKPOINT"
	ExplicitAcknowledgementEnv = "MESOS_EXPLICIT_ACKNOWLEDGEMENTS"
	AuthenticateEnv            = "MESOS_AUTHENTICATE"
)

// JSONConfigs config structure holding original json configs
type JSONConfigs struct {
	Framework FrameworkJSONConfig `json:"Framework"`
	Scheduler SchedulerJSONConfig `json:"Scheduler"`
	Tasks     TasksJSONConfig     `json:"Tasks"`
	Suite     SuiteJSONConfig     `json:"Suite"`
}

func (c JSONConfigs) String() string {
	return fmt.Sprintf("\n%s\n%s\n%s\n%s", c.Framework, c.Scheduler, c.Tasks, c.Suite)
}

type FrameworkJSONConfig struct {
	Type                     string `json:"Type"` // mesos
	Name                     string `json:"Name"`
	Principal                string `json:"Principal"`
	User                     string `json:"User"`
	Role                     string `json:"Role"`
	Checkpoint               bool   `json:"Checkpoint"`
	ExplicitAcknowledgements bool   `json:"ExplicitAcknowledgements"` // default to false
	FailoverTimeout          string `json:"FailoverTimeout"`
	CallTimeout              string `json:"CallTimeout"`
	CallRetries              uint64 `json:"CallRetries"`
	RefuseDuration           string `json:"RefuseDuration"`
}

func (fc FrameworkJSONConfig) String() string {
	return fmt.Sprintf("FrameworkJSONConfig: Type: %s, Name: %s, Principal: %s, User: %s, Role: %s, Checkpoint: %t, "+
		"ExplicitAcknowledgements: %t, FailoverTimeout: %s, CallTimeout: %s, CallRetries: %d, RefuseDuration: %s",
		fc.Type, fc.Name, fc.Principal, fc.User, fc.Role, fc.Checkpoint, fc.ExplicitAcknowledgements,
		fc.FailoverTimeout, fc.CallTimeout, fc.CallRetries, fc.RefuseDuration)
}

type SchedulerJSONConfig struct {
	Type                string `json:"Type"`      // stateful
	DebugMode           bool   `json:"DebugMode"` // default to false
	StartTimeout        string `json:"StartTimeout"`
	ProgressTimeout     string `json:"ProgressTimeout"`
	HealthcheckInterval string `json:"HealthcheckInterval"`
}

func (sc SchedulerJSONConfig) String() string {
	return fmt.Sprintf("SchedulerJSONConfig: Type: %s, DebugMode: %t, StartTimeout: %s, ProgressTimeout: %s, HealthcheckInterval: %s",
		sc.Type, sc.DebugMode, sc.StartTimeout, sc.ProgressTimeout, sc.HealthcheckInterval)
}

type TasksJSONConfig struct {
	Type            string   `json:"Type"` // calico
	CPUs            float64  `json:"CPUs"`
	Mem             float64  `json:"Mem"`
	Executor        string   `json:"Executor"` // custom or default
	ExecutorCommand string   `json:"ExecutorCommand"`
	ProbeCommand    string   `json:"ProbeCommand"`
	URIs            []string `json:"URIs"`
	NetworkName     string   `json:"NetworkName"`
}

func (tc TasksJSONConfig) String() string {
	return fmt.Sprintf("TasksJSONConfig: Type: %s, CPUs: %g, Mem: %g, Executor: %s, ExecutorCommand: %s, ProbeCommand: %s, "+
		"URIs: %v, NetworkName: %s",
		tc.Type, tc.CPUs, tc.Mem, tc.Executor, tc.ExecutorCommand, tc.ProbeCommand, tc.URIs, tc.NetworkName)
}

type SuiteJSONConfig struct {
	Type string `json:"Type"` // builtin or file
	Path string `json:"Path"`
}

func (sc SuiteJSONConfig) String() string {
	return fmt.Sprintf("SuiteJSONConfig: Type: %s, Path: %s", sc.Type, sc.Path)
}

// GetConfigText returns the named built-in config.
func GetConfigText(configSelector string) ([]byte, error) {
	configText, ok := SchedulerConfigs[configSelector]
	if !ok {
		keys := make([]string, 0, len(SchedulerConfigs))
		for k := range SchedulerConfigs {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		return nil, fmt.Errorf("invalid configuration %s, supported values are %v", configSelector, keys)
	}
	return []byte(configText), nil
}

// resolveConfigText accepts a built-in config name, a path to a JSON file,
// or JSON text.
func resolveConfigText(selector string) ([]byte, error) {
	if text, err := GetConfigText(selector); err == nil {
		return text, nil
	}
	if strings.HasPrefix(strings.TrimSpace(selector), "{") {
		return []byte(selector), nil
	}
	if _, err := os.Stat(selector); err == nil {
		return ioutil.ReadFile(selector)
	}
	return GetConfigText(selector)
}

// GetConfigs get the framework config
func GetConfigs(configSelector string) (*JSONConfigs, error) {
	// get the default values, these will override any of the config
	// sections whose Type is ""
	defaultConfigText, _ := GetConfigText("default")
	defaultConfig := &JSONConfigs{}
	if err := json.Unmarshal(defaultConfigText, defaultConfig); err != nil {
		return nil, fmt.Errorf("couldn't parse the default config: %v", err)
	}

	configText, err := resolveConfigText(configSelector)
	if err != nil {
		return nil, err
	}
	configs := &JSONConfigs{}
	if err := json.Unmarshal(configText, configs); err != nil {
		return nil, fmt.Errorf("couldn't parse top-level config: %v", err)
	}

	// use the default values for any sections whose type was not set in the selected config
	if configs.Framework.Type == "" {
		log.Infof("using default Framework config")
		configs.Framework = defaultConfig.Framework
	}
	if configs.Scheduler.Type == "" {
		log.Infof("using default Scheduler config")
		configs.Scheduler = defaultConfig.Scheduler
	}
	if configs.Tasks.Type == "" {
		log.Infof("using default Tasks config")
		configs.Tasks = defaultConfig.Tasks
	}
	if configs.Suite.Type == "" {
		log.Infof("using default Suite config")
		configs.Suite = defaultConfig.Suite
	}
	return configs, nil
}

// ApplyEnv applies the MESOS_* switches. Authentication is not supported.
func (c *JSONConfigs) ApplyEnv(getenv func(string) string) error {
	if getenv(AuthenticateEnv) != "" {
		return errors.Errorf("%s is set but framework authentication is not supported", AuthenticateEnv)
	}
	if getenv(CheckpointEnv) != "" {
		log.Info("Enabling checkpoint for the framework")
		c.Framework.Checkpoint = true
	}
	if getenv(ExplicitAcknowledgementEnv) != "" {
		log.Info("Enabling explicit status update acknowledgements")
		c.Framework.ExplicitAcknowledgements = true
	}
	return nil
}

func parseDuration(name, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, errors.Wrapf(err, "parsing %s", name)
	}
	return d, nil
}

// CreateFrameworkInfo builds the FrameworkInfo sent with SUBSCRIBE. The run id
// is attached as a label so tasks of one run can be found on the agents.
func (fc *FrameworkJSONConfig) CreateFrameworkInfo(runID string) (*mesos.FrameworkInfo, error) {
	failover, err := parseDuration("FailoverTimeout", fc.FailoverTimeout)
	if err != nil {
		return nil, err
	}
	info := &mesos.FrameworkInfo{
		User: fc.User,
		Name: fc.Name,
		Labels: &mesos.Labels{Labels: []mesos.Label{
			{Key: "run_id", Value: &runID},
		}},
	}
	if fc.Principal != "" {
		principal := fc.Principal
		info.Principal = &principal
	}
	if fc.Role != "" {
		role := fc.Role
		info.Role = &role
	}
	if fc.Checkpoint {
		checkpoint := true
		info.Checkpoint = &checkpoint
	}
	if failover > 0 {
		seconds := failover.Seconds()
		info.FailoverTimeout = &seconds
	}
	return info, nil
}

// CreateMesosConfig builds the driver config for the given master.
func (c *JSONConfigs) CreateMesosConfig(master, runID string) (driver.MesosConfig, error) {
	cfg := driver.MesosConfig{
		Master:                   master,
		ImplicitAcknowledgements: !c.Framework.ExplicitAcknowledgements,
		CallRetries:              c.Framework.CallRetries,
	}
	var err error
	if cfg.Framework, err = c.Framework.CreateFrameworkInfo(runID); err != nil {
		return cfg, err
	}
	if cfg.CallTimeout, err = parseDuration("CallTimeout", c.Framework.CallTimeout); err != nil {
		return cfg, err
	}
	if cfg.RefuseDuration, err = parseDuration("RefuseDuration", c.Framework.RefuseDuration); err != nil {
		return cfg, err
	}
	return cfg, nil
}

// CreateSchedulerConfig builds the scheduler config. Unset durations fall
// back to the scheduler's defaults.
func (c *JSONConfigs) CreateSchedulerConfig(runID string) (*server.SchedulerConfiguration, error) {
	var err error
	sc := &server.SchedulerConfiguration{
		DebugMode:                c.Scheduler.DebugMode,
		ImplicitAcknowledgements: !c.Framework.ExplicitAcknowledgements,
		Time:                     stats.DefaultStatsTime(),
	}
	if sc.StartTimeout, err = parseDuration("StartTimeout", c.Scheduler.StartTimeout); err != nil {
		return nil, err
	}
	if sc.ProgressTimeout, err = parseDuration("ProgressTimeout", c.Scheduler.ProgressTimeout); err != nil {
		return nil, err
	}
	if sc.HealthcheckInterval, err = parseDuration("HealthcheckInterval", c.Scheduler.HealthcheckInterval); err != nil {
		return nil, err
	}

	mode, err := c.Tasks.ExecutorMode()
	if err != nil {
		return nil, err
	}
	sc.Render = domain.RenderConfig{
		Unit:            domain.Unit{CPUs: c.Tasks.CPUs, Mem: c.Tasks.Mem},
		RunID:           runID,
		Mode:            mode,
		ExecutorCommand: c.Tasks.ExecutorCommand,
		ProbeCommand:    c.Tasks.ProbeCommand,
		URIs:            c.Tasks.URIs,
		NetworkName:     c.Tasks.NetworkName,
	}
	if mode == domain.ExecutorCustom && sc.Render.ExecutorCommand == "" {
		return nil, errors.New("the custom executor needs an ExecutorCommand")
	}
	if sc.Render.ProbeCommand == "" {
		return nil, errors.New("a ProbeCommand is required")
	}
	return sc, nil
}

// ExecutorMode parses the run-wide executor. With "default" every test runs
// under the agent's command executor.
func (tc TasksJSONConfig) ExecutorMode() (domain.ExecutorMode, error) {
	switch tc.Executor {
	case "", "custom":
		return domain.ExecutorCustom, nil
	case "default":
		return domain.ExecutorDefault, nil
	}
	return 0, errors.Errorf("unknown Executor %q, expected custom or default", tc.Executor)
}
