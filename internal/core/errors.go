package core

import (
	"errors"
	"fmt"
)

// ErrAccountNotFound is returned when the upsert reported an existing
// account but the fallback query could not find it.
var ErrAccountNotFound = errors.New("account not found by external id")

// ErrMissingExternalID marks records that cannot be upserted without
// corrupting the external-id key space.
var ErrMissingExternalID = errors.New("missing external id")

// ConnectError is fatal: a session with the source store or the CRM
// could not be established. It aborts the run before any record is
// processed.
type ConnectError struct {
	System string
	Err    error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connect %s: %v", e.System, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// TransformError is recoverable per record: the document could not be
// turned into an upsertable record and must be skipped.
type TransformError struct {
	ShipmentID string
	Reason     string
	Err        error
}

func (e *TransformError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("transform order %q: %s: %v", e.ShipmentID, e.Reason, e.Err)
	}
	return fmt.Sprintf("transform order %q: %s", e.ShipmentID, e.Reason)
}

func (e *TransformError) Unwrap() error { return e.Err }

// ResolveError is recoverable per record: the account could not be
// created or located, so dependent Opportunity work must be skipped to
// avoid orphaned links.
type ResolveError struct {
	Customer string
	Err      error
}

func (e *ResolveError) Error() string {
	return fmt.Sprintf("resolve account %q: %v", e.Customer, e.Err)
}

func (e *ResolveError) Unwrap() error { return e.Err }

// UpsertError is recoverable per record: the Opportunity write failed
// and the pipeline continues with the next record.
type UpsertError struct {
	ExternalID string
	Err        error
}

func (e *UpsertError) Error() string {
	return fmt.Sprintf("upsert opportunity %q: %v", e.ExternalID, e.Err)
}

func (e *UpsertError) Unwrap() error { return e.Err }
