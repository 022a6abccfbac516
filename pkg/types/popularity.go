// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package types defines shared data structures for dataset-popularity:
// the popularity record produced per dataset, the configuration error
// class, and the configuration structs.
package types

import (
	"errors"
	"fmt"
)

// PopularityRecord is the outcome of one dataset's code search query.
// A record with a non-nil Err is the failure marker for that dataset; its
// Count is meaningless and reports write a sentinel instead.
type PopularityRecord struct {
	// Dataset is the dataset name as listed in the catalog (e.g. "iris").
	Dataset string `json:"dataset" yaml:"dataset"`

	// Ecosystem names the catalog group the dataset belongs to (e.g. "sklearn").
	Ecosystem string `json:"ecosystem" yaml:"ecosystem"`

	// Query is the code search string that was sent.
	Query string `json:"query" yaml:"query"`

	// Count is the provider-reported total_count. It is not re-validated.
	Count int `json:"count" yaml:"count"`

	// Incomplete mirrors GitHub's incomplete_results flag: the provider
	// timed out and the count is approximate.
	Incomplete bool `json:"incomplete,omitempty" yaml:"incomplete,omitempty"`

	// Err is set when the count could not be obtained.
	Err error `json:"-" yaml:"-"`
}

// Failed reports whether the record is a failure marker.
func (r PopularityRecord) Failed() bool {
	return r.Err != nil
}

// ConfigError is a fatal configuration problem detected before any query
// is sent: missing credential, invalid catalog, bad settings.
type ConfigError struct {
	Msg string
	Err error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("configuration error: %s: %v", e.Msg, e.Err)
	}
	return "configuration error: " + e.Msg
}

func (e *ConfigError) Unwrap() error { return e.Err }

// Configf returns a ConfigError with a formatted message.
func Configf(format string, args ...any) error {
	return &ConfigError{Msg: fmt.Sprintf(format, args...)}
}

// WrapConfig returns a ConfigError wrapping err, or nil when err is nil.
func WrapConfig(msg string, err error) error {
	if err == nil {
		return nil
	}
	return &ConfigError{Msg: msg, Err: err}
}

// IsConfigError reports whether err is, or wraps, a ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}
