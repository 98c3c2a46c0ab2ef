package store

import (
	"errors"
	"time"

	"devpath/backend/tracker"
)

const (
	retryAttempts = 3
	retryBaseWait = 50 * time.Millisecond
)

// withRetry re-runs a write a bounded number of times with exponential
// backoff. Validation and precondition failures are permanent and returned
// immediately; only storage-level failures (lost CAS races, transient
// driver errors) are worth another attempt.
func withRetry(fn func() error) error {
	var err error
	wait := retryBaseWait
	for attempt := 0; attempt < retryAttempts; attempt++ {
		if attempt > 0 {
			time.Sleep(wait)
			wait *= 2
		}
		err = fn()
		if err == nil || isPermanent(err) {
			return err
		}
	}
	return err
}

func isPermanent(err error) bool {
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrModuleLocked) {
		return true
	}
	var blocked *tracker.CompletionBlockedError
	var incomplete *tracker.IncompleteSubmissionError
	var empty *tracker.EmptySubmissionError
	return errors.As(err, &blocked) || errors.As(err, &incomplete) || errors.As(err, &empty)
}
