package config

import (
	"fmt"
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/projectcalico/netcheck/scheduler/domain"
)

var tests = []string{"default", "local.mesos", "local.default_executor"}

func env(vars map[string]string) func(string) string {
	return func(k string) string { return vars[k] }
}

// Tests to ensure config is properly specified
// and that they parse correctly
func TestGettingConfigurations(t *testing.T) {
	for _, configSelector := range tests {
		configs, err := GetConfigs(configSelector)
		assert.Nil(t, err, fmt.Sprintf("error getting config %s: %s", configSelector, err))
		if err != nil {
			continue
		}
		_, err = configs.CreateSchedulerConfig("run")
		assert.Nil(t, err, configSelector)
		_, err = configs.CreateMesosConfig("127.0.0.1:5050", "run")
		assert.Nil(t, err, configSelector)
	}

	selector := "invalid.selector"
	configs, err := GetConfigs(selector)
	assert.NotNil(t, err, fmt.Sprintf("configuration returned for %s: %s", selector, configs))
}

// TestCreatingConfigStruct test overriding default structure values with values from
// the selected config.
func TestCreatingConfigStruct(t *testing.T) {
	configs, err := GetConfigs("local.default_executor")
	require.NoError(t, err)
	assert.Equal(t, "default", configs.Tasks.Executor)
	assert.Equal(t, "netcheck", configs.Framework.Name)
	assert.Equal(t, "builtin", configs.Suite.Path)

	sc, err := configs.CreateSchedulerConfig("run-1")
	require.NoError(t, err)
	assert.Equal(t, domain.ExecutorDefault, sc.Render.Mode)
	assert.Equal(t, "run-1", sc.Render.RunID)
	assert.Equal(t, []string{"file:///framework/netcheck-probe"}, sc.Render.URIs)
	assert.Equal(t, 45*time.Second, sc.StartTimeout)
	assert.Equal(t, 5*time.Second, sc.HealthcheckInterval)
	assert.True(t, sc.ImplicitAcknowledgements)
}

func TestConfigFromJSONTextAndFile(t *testing.T) {
	text := `{"Scheduler": {"Type": "stateful", "StartTimeout": "10s"}}`
	configs, err := GetConfigs(text)
	require.NoError(t, err)
	assert.Equal(t, "10s", configs.Scheduler.StartTimeout)
	assert.Equal(t, "mesos", configs.Framework.Type)

	dir, err := ioutil.TempDir("", "config")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "netcheck.json")
	require.NoError(t, ioutil.WriteFile(path, []byte(text), 0644))
	configs, err = GetConfigs(path)
	require.NoError(t, err)

	sc, err := configs.CreateSchedulerConfig("run")
	require.NoError(t, err)
	assert.Equal(t, 10*time.Second, sc.StartTimeout)
	// Unset durations are left for the scheduler defaults.
	assert.Equal(t, time.Duration(0), sc.ProgressTimeout)

	_, err = GetConfigs(`{"Scheduler": `)
	assert.Error(t, err)
}

func TestBadValuesAreRejected(t *testing.T) {
	for _, text := range []string{
		`{"Scheduler": {"Type": "stateful", "StartTimeout": "soon"}}`,
		`{"Tasks": {"Type": "calico", "Executor": "docker", "ProbeCommand": "p"}}`,
		`{"Tasks": {"Type": "calico", "Executor": "custom", "ProbeCommand": "p"}}`,
		`{"Tasks": {"Type": "calico", "Executor": "default"}}`,
	} {
		configs, err := GetConfigs(text)
		require.NoError(t, err)
		_, err = configs.CreateSchedulerConfig("run")
		assert.Error(t, err, text)
	}

	configs, err := GetConfigs(`{"Framework": {"Type": "mesos", "CallTimeout": "fast"}}`)
	require.NoError(t, err)
	_, err = configs.CreateMesosConfig("m:5050", "run")
	assert.Error(t, err)
}

func TestApplyEnv(t *testing.T) {
	configs, err := GetConfigs("default")
	require.NoError(t, err)
	require.NoError(t, configs.ApplyEnv(env(nil)))
	assert.False(t, configs.Framework.Checkpoint)
	assert.False(t, configs.Framework.ExplicitAcknowledgements)

	require.NoError(t, configs.ApplyEnv(env(map[string]string{
		CheckpointEnv:              "1",
		ExplicitAcknowledgementEnv: "1",
	})))
	mc, err := configs.CreateMesosConfig("m:5050", "run")
	require.NoError(t, err)
	assert.False(t, mc.ImplicitAcknowledgements)
	assert.True(t, mc.Framework.GetCheckpoint())
	sc, err := configs.CreateSchedulerConfig("run")
	require.NoError(t, err)
	assert.False(t, sc.ImplicitAcknowledgements)

	assert.Error(t, configs.ApplyEnv(env(map[string]string{AuthenticateEnv: "1"})))
}

func TestFrameworkInfo(t *testing.T) {
	configs, err := GetConfigs("local.mesos")
	require.NoError(t, err)
	mc, err := configs.CreateMesosConfig("10.0.0.1:5050", "run-9")
	require.NoError(t, err)

	info := mc.Framework
	assert.Equal(t, "netcheck", info.Name)
	assert.Equal(t, "root", info.User)
	assert.Equal(t, "test-framework-python", info.GetPrincipal())
	assert.True(t, info.GetCheckpoint())
	assert.Equal(t, 60.0, info.GetFailoverTimeout())
	assert.Equal(t, "run-9", info.GetLabels().GetLabels()[0].GetValue())
	assert.Equal(t, 5*time.Second, mc.CallTimeout)
	assert.Equal(t, uint64(5), mc.CallRetries)
	assert.Equal(t, "10.0.0.1:5050", mc.Master)
}
