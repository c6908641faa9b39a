/*
Package resilience provides the retry primitives used when loading remote
content.

# Overview

Budget counts attempts against a fixed limit and Backoff maps an attempt
number to a delay. Linear is the shipped policy: attempt n waits n × Unit.

# Usage

	budget := resilience.NewBudget(3)
	backoff := resilience.Linear{Unit: time.Second}

	if attempt, ok := budget.Spend(); ok {
		time.AfterFunc(backoff.Delay(attempt), reload)
	}

Neither type is safe for concurrent use. The navigation controller owns both
and touches them only from its dispatch loop.
*/
package resilience
