package worker

import "github.com/pkg/errors"

// ErrPermanent wraps a failure that retrying cannot fix: an event without a
// check request ID, or an API answer that is not a JSON object.
type ErrPermanent struct {
	CheckRequestID string
	Err            error
}

func (e *ErrPermanent) Error() string {
	if e.CheckRequestID == "" {
		return "permanent: " + e.Err.Error()
	}
	return "check request " + e.CheckRequestID + ": permanent: " + e.Err.Error()
}

func (e *ErrPermanent) Unwrap() error { return e.Err }

// ErrTransient wraps a failure talking to the approvedeny API that a later
// attempt may not hit.
type ErrTransient struct {
	CheckRequestID string
	Err            error
}

func (e *ErrTransient) Error() string {
	return "check request " + e.CheckRequestID + ": transient: " + e.Err.Error()
}

func (e *ErrTransient) Unwrap() error { return e.Err }

// outcome names the metrics label for a failed job.
func outcome(err error, shuttingDown bool) string {
	var permanent *ErrPermanent
	switch {
	case errors.As(err, &permanent):
		return "permanent_failure"
	case shuttingDown:
		return "abandoned"
	default:
		return "retries_exhausted"
	}
}
