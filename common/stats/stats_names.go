package stats

/*
All metric names collected by netcheck. Add new names here.
*/

const (
	/************************* Scheduler metrics **************************/
	/*
		offers received from the master
	*/
	SchedOffersReceivedCounter = "offersReceivedCounter"

	/*
		offers forwarded to a test that already holds the offer's agent
	*/
	SchedOffersToClaimedCounter = "offersToClaimedCounter"

	/*
		offers added to a pooled offer from the same agent
	*/
	SchedOffersCombinedCounter = "offersCombinedCounter"

	/*
		offers rescinded by the master
	*/
	SchedOffersRescindedCounter = "offersRescindedCounter"

	/*
		number of offers currently sitting in the unreserved pool
	*/
	SchedUnreservedOffersGauge = "unreservedOffersGauge"

	/*
		number of agents currently claimed by a test
	*/
	SchedClaimedAgentsGauge = "claimedAgentsGauge"

	/*
		tests that matched a set of offers and moved to Running
	*/
	SchedTestsStartedCounter = "testsStartedCounter"

	/*
		tests whose tasks all finished
	*/
	SchedTestsCompletedCounter = "testsCompletedCounter"

	/*
		tests killed for any reason
	*/
	SchedTestsKilledCounter = "testsKilledCounter"

	/*
		tests killed by the watchdog
	*/
	SchedTestsTimedOutCounter = "testsTimedOutCounter"

	/*
		tests in each state, updated on every loop step
	*/
	SchedUnstartedTestsGauge = "unstartedTestsGauge"
	SchedRunningTestsGauge   = "runningTestsGauge"
	SchedCompleteTestsGauge  = "completeTestsGauge"

	/*
		tasks handed to the master in an accept call
	*/
	SchedTasksLaunchedCounter = "tasksLaunchedCounter"

	/*
		task status updates received
	*/
	SchedStatusUpdatesCounter = "statusUpdatesCounter"

	/*
		status updates rejected by address validation
	*/
	SchedTaskUpdateErrorsCounter = "taskUpdateErrorsCounter"

	/*
		time spent handling a single event or tick in the scheduler loop
	*/
	SchedStepLatency_ms = "stepLatency_ms"

	/*
		time spent in one healthcheck pass
	*/
	SchedHealthcheckLatency_ms = "healthcheckLatency_ms"

	/************************* Driver metrics **************************/
	/*
		calls sent to the master, by outcome
	*/
	DriverCallsCounter        = "callsCounter"
	DriverCallFailuresCounter = "callFailuresCounter"

	/*
		subscriptions to the master that ended
	*/
	DriverSubscriptionsEndedCounter = "subscriptionsEndedCounter"

	/*
		time spent sending one call, including retries
	*/
	DriverCallLatency_ms = "callLatency_ms"
)
