/*
package server provides the stateful scheduler that places netcheck test cases on Mesos offers.

* Concepts *
Test states:
  Unstarted  waiting for a set of offers that fits every task of the test.
  Running    hosts claimed, tasks launching as their dependencies come up.
  Complete   every task finished, or the test was killed. Terminal.

Unreserved pool:
  The latest offer from each agent that no test has claimed.

Claims:
  Agents held by a Running test. Further offers from a claimed agent go to that test only.
  An agent id is in the pool or in the claims, never both.

* Logic *
Offers:
  Route to the claiming test, else pool. Then give the pool to each Unstarted test in order.
  The first test that fits claims the agents it was placed on and launches.

Status updates:
  Validate and record, kill the test on a rejected update or a bad task state.
  A target that finishes before the tasks probing it kills the test.
  A test whose tasks all finished completes and releases its claims.

Watchdog (every HealthcheckInterval):
  No test running: Unstarted tests that waited more than StartTimeout for offers are killed.
  Some test running: Unstarted tests wait without a deadline, Running tests without
  a status update for more than ProgressTimeout are killed.
  Every test Complete: stop the driver and return the report.
*/
package server
