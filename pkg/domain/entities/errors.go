package entities

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors matched with errors.Is against the typed errors below
var (
	ErrNotFound        = errors.New("not found")
	ErrValidation      = errors.New("validation failed")
	ErrCycleDetected   = errors.New("bom cycle detected")
	ErrTransientSource = errors.New("erp source unavailable")
	ErrConflict        = errors.New("conflict")
)

// NotFoundError reports an unmatched natural key
type NotFoundError struct {
	Entity string
	Key    string
}

func NewNotFoundError(entity, key string) *NotFoundError {
	return &NotFoundError{Entity: entity, Key: key}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.Key)
}

func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ValidationError reports a violated quantity or state invariant
type ValidationError struct {
	Entity string
	Key    string
	Reason string
}

func NewValidationError(entity, key, reason string) *ValidationError {
	return &ValidationError{Entity: entity, Key: key, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("invalid %s: %s", e.Entity, e.Reason)
	}
	return fmt.Sprintf("invalid %s %s: %s", e.Entity, e.Key, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// CycleDetectedError reports a part that is its own transitive ancestor in a BOM
type CycleDetectedError struct {
	Root   PartNumber
	Cycles [][]PartNumber
}

func (e *CycleDetectedError) Error() string {
	paths := make([]string, 0, len(e.Cycles))
	for _, cycle := range e.Cycles {
		parts := make([]string, len(cycle))
		for i, pn := range cycle {
			parts[i] = string(pn)
		}
		paths = append(paths, strings.Join(parts, " -> "))
	}
	return fmt.Sprintf("bom cycle detected under %s: %s", e.Root, strings.Join(paths, "; "))
}

func (e *CycleDetectedError) Is(target error) bool {
	return target == ErrCycleDetected
}

// TransientSourceError reports an unreachable or timed-out ERP source
type TransientSourceError struct {
	Operation string
	Key       string
	Err       error
}

func NewTransientSourceError(operation, key string, err error) *TransientSourceError {
	return &TransientSourceError{Operation: operation, Key: key, Err: err}
}

func (e *TransientSourceError) Error() string {
	if e.Key == "" {
		return fmt.Sprintf("erp %s failed: %v", e.Operation, e.Err)
	}
	return fmt.Sprintf("erp %s for %s failed: %v", e.Operation, e.Key, e.Err)
}

func (e *TransientSourceError) Unwrap() error {
	return e.Err
}

func (e *TransientSourceError) Is(target error) bool {
	return target == ErrTransientSource
}

// ConflictError reports a concurrent mutation that lost a race
type ConflictError struct {
	Entity string
	Key    string
	Reason string
}

func NewConflictError(entity, key, reason string) *ConflictError {
	return &ConflictError{Entity: entity, Key: key, Reason: reason}
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("conflict on %s %s: %s", e.Entity, e.Key, e.Reason)
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}
