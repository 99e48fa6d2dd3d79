// Package simerr defines the error taxonomy of simulation and pricing.
package simerr

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// SimulationError reports that the ledger rejected an intent during preview.
type SimulationError struct {
	Message string
	Steps   []string
	Raw     json.RawMessage
}

func (e *SimulationError) Error() string {
	return "simulation failed: " + e.Message
}

var oracleAbortMarkers = []string{"oracle", "price_voucher", "price_ticket", "stale price", "no price"}

// OracleUnavailable reports whether the abort came from the price oracle.
func (e *SimulationError) OracleUnavailable() bool {
	msg := strings.ToLower(e.Message)
	for _, marker := range oracleAbortMarkers {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}

// DecodeInvariantError reports a successful simulation that lacks a bound
// value. It means the intent and its bindings disagree and is never retried.
type DecodeInvariantError struct {
	Binding string
	Reason  string
	Steps   []string
	Raw     json.RawMessage
}

func (e *DecodeInvariantError) Error() string {
	return fmt.Sprintf("decode %s: %s", e.Binding, e.Reason)
}

// AllProbesFailedError reports that every probe magnitude failed.
type AllProbesFailedError struct {
	Label  string
	Probes []ProbeFailure
}

type ProbeFailure struct {
	Magnitude string
	Err       error
}

func (e *AllProbesFailedError) Error() string {
	if e.Label == "" {
		return fmt.Sprintf("all %d probes failed", len(e.Probes))
	}
	return fmt.Sprintf("%s: all %d probes failed", e.Label, len(e.Probes))
}

// NetworkError reports a transport failure reaching the ledger node.
type NetworkError struct {
	Op  string
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// Retryable reports whether err is transient. Only network failures are.
func Retryable(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// Fatal reports errors that must stop any fallback or probing.
func Fatal(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var decodeErr *DecodeInvariantError
	if errors.As(err, &decodeErr) {
		return true
	}
	var netErr *NetworkError
	return errors.As(err, &netErr)
}

// Steps returns the call graph carried by err, if any.
func Steps(err error) []string {
	var simErr *SimulationError
	if errors.As(err, &simErr) {
		return simErr.Steps
	}
	var decodeErr *DecodeInvariantError
	if errors.As(err, &decodeErr) {
		return decodeErr.Steps
	}
	return nil
}
