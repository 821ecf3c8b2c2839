// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrConflict indicates a state transition the entity's lifecycle forbids.
var ErrConflict = errors.New("conflict: invalid state transition")

// ErrInvalid indicates the request payload failed validation.
var ErrInvalid = errors.New("invalid request")

// ErrEvaluationActive indicates an evaluation pipeline is already running for
// the proposal. At most one active run per proposal is allowed.
var ErrEvaluationActive = errors.New("evaluation already in progress for proposal")
