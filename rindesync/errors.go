package rindesync

import (
	"errors"
	"fmt"
)

// RemoteError wraps any transport-level failure against the Rindegastos API:
// timeouts, non-2xx statuses, undecodable bodies. It aborts the current
// journal's run; there is no built-in retry.
type RemoteError struct {
	Endpoint string
	Err      error
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("rindegastos api unavailable (%s): %v", e.Endpoint, e.Err)
}

func (e *RemoteError) Unwrap() error { return e.Err }

// ConfigError is a missing-configuration failure: no company token, no
// responsible subject on the journal, or the journal lacks its suspense or
// default account. Fatal and operator-visible.
type ConfigError struct {
	Reason string
}

func (e *ConfigError) Error() string { return e.Reason }

// InvalidRecordError marks a single remote record that cannot be imported
// (missing id, unparseable date, empty total). The record is skipped and
// logged; the run keeps going.
type InvalidRecordError struct {
	EntityType string
	ExternalId string
	Code       string
	Reason     string
}

func (e *InvalidRecordError) Error() string {
	return fmt.Sprintf("invalid %s %s: %s", e.EntityType, e.ExternalId, e.Reason)
}

func IsInvalidRecordError(err error) bool {
	var ie *InvalidRecordError
	return errors.As(err, &ie)
}

func IsRemoteError(err error) bool {
	var re *RemoteError
	return errors.As(err, &re)
}

func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
