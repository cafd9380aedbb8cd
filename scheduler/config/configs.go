package config

// SchedulerConfigs the map of available configurations
var SchedulerConfigs = map[string]string{
	"default":                defaultConfig,
	"local.mesos":            localMesos,
	"local.default_executor": localDefaultExecutor,
}

// defaultConfig the configuration values that are used for the sections a
// specific configuration leaves without a Type.
// The custom executor binary at /framework/netcheck-executor is shipped with
// the cluster image and is not built from this module. Use
// local.default_executor when only netcheck-probe is available.
const defaultConfig = `{
	"Framework": {
		"Type": "mesos",
		"Name": "netcheck",
		"Principal": "test-framework-python",
		"User": "root",
		"Checkpoint": false,
		"FailoverTimeout": "0s",
		"CallTimeout": "10s",
		"CallRetries": 3,
		"RefuseDuration": "5s"
	},
	"Scheduler": {
		"Type": "stateful",
		"DebugMode": false,
		"StartTimeout": "45s",
		"ProgressTimeout": "45s",
		"HealthcheckInterval": "5s"
	},
	"Tasks": {
		"Type": "calico",
		"CPUs": 0.1,
		"Mem": 128,
		"Executor": "custom",
		"ExecutorCommand": "/framework/netcheck-executor",
		"ProbeCommand": "/framework/netcheck-probe",
		"NetworkName": ""
	},
	"Suite": {
		"Type": "builtin",
		"Path": "builtin"
	}
}`

// localMesos config for local.mesos - !!! make sure this constant is added to SchedulerConfigs map above !!!
const localMesos = `{
	"Framework": {
		"Type": "mesos",
		"Name": "netcheck",
		"Principal": "test-framework-python",
		"User": "root",
		"Checkpoint": true,
		"FailoverTimeout": "1m",
		"CallTimeout": "5s",
		"CallRetries": 5,
		"RefuseDuration": "1s"
	},
	"Scheduler": {
		"Type": "stateful",
		"StartTimeout": "2m",
		"ProgressTimeout": "45s",
		"HealthcheckInterval": "1s"
	}
}`

// localDefaultExecutor config for local.default_executor - runs every test as
// plain commands fetched from the framework directory
const localDefaultExecutor = `{
	"Tasks": {
		"Type": "calico",
		"CPUs": 0.1,
		"Mem": 128,
		"Executor": "default",
		"ProbeCommand": "./netcheck-probe",
		"URIs": ["file:///framework/netcheck-probe"]
	}
}`
