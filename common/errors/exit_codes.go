package errors

type ExitCode int

const (
	SuccessExitCode ExitCode = 0

	// A test run finished with at least one task in a bad state or one failed probe.
	TestFailureExitCode = 1

	// Probe expectations were not met inside a workload.
	ProbeFailureExitCode = 1

	GenericFailureExitCode = 1

	// Configuration or suite definitions could not be loaded.
	PreProcessingFailureExitCode = 1

	// The run was aborted by a protocol violation.
	AbortedExitCode = 1
)
