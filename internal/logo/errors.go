package logo

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed lookup.
type ErrorKind string

const (
	KindNetwork ErrorKind = "network"
	KindServer  ErrorKind = "server"
	KindClient  ErrorKind = "client"
	KindEmpty   ErrorKind = "empty"

	// KindThrottled means the local rate limiter refused the call before
	// it reached the upstream. It never installs a failure marker.
	KindThrottled ErrorKind = "throttled"
)

// FetchError is returned by fetchers to describe why a lookup failed.
type FetchError struct {
	Kind       ErrorKind
	StatusCode int
	Err        error
}

func (e *FetchError) Error() string {
	switch {
	case e.StatusCode != 0 && e.Err != nil:
		return fmt.Sprintf("logo fetch %s failure: HTTP %d: %v", e.Kind, e.StatusCode, e.Err)
	case e.StatusCode != 0:
		return fmt.Sprintf("logo fetch %s failure: HTTP %d", e.Kind, e.StatusCode)
	case e.Err != nil:
		return fmt.Sprintf("logo fetch %s failure: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("logo fetch %s failure", e.Kind)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// Classify maps err to an ErrorKind. Errors that carry no classification
// (timeouts, cancellations, dial failures, unknown errors) are network-class.
func Classify(err error) ErrorKind {
	var fe *FetchError
	if errors.As(err, &fe) && fe.Kind != "" {
		return fe.Kind
	}
	return KindNetwork
}
