/*
Copyright 2025.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package phases

import (
	"errors"
	"fmt"

	"github.com/cappyzawa/webui-operator/internal/artifacts"
	"github.com/cappyzawa/webui-operator/internal/relation"
	"github.com/cappyzawa/webui-operator/internal/schema"
)

// Event types for recorded events
const (
	// EventTypeWarning indicates a warning event
	EventTypeWarning = "Warning"
	// EventTypeNormal indicates a normal event
	EventTypeNormal = "Normal"
)

// ReconcileErrorCategory represents different categories of reconciliation errors
type ReconcileErrorCategory string

const (
	// ErrorCategoryValidation indicates a malformed payload or configuration
	ErrorCategoryValidation ReconcileErrorCategory = "Validation"
	// ErrorCategoryPrecondition indicates an artifact built without its inputs
	ErrorCategoryPrecondition ReconcileErrorCategory = "Precondition"
	// ErrorCategoryAuthorization indicates a write without write authority or
	// to a relation that does not exist
	ErrorCategoryAuthorization ReconcileErrorCategory = "Authorization"
	// ErrorCategoryTransport indicates the workload runtime could not be reached
	ErrorCategoryTransport ReconcileErrorCategory = "Transport"
)

// ReconcileError represents a structured error with category and event information
type ReconcileError struct {
	Category    ReconcileErrorCategory
	EventReason string
	EventType   string
	Message     string
	Cause       error
}

// Error implements the error interface
func (e *ReconcileError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Category, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Category, e.Message)
}

// Unwrap returns the underlying error
func (e *ReconcileError) Unwrap() error {
	return e.Cause
}

// Fatal reports whether the error must be returned to the caller. Every
// other category ends the pass and waits for the next trigger.
func (e *ReconcileError) Fatal() bool {
	return e.Category == ErrorCategoryAuthorization || e.Category == ErrorCategoryValidation
}

// NewReconcileError creates a new ReconcileError
func NewReconcileError(category ReconcileErrorCategory, eventReason, eventType, message string, cause error) *ReconcileError {
	return &ReconcileError{
		Category:    category,
		EventReason: eventReason,
		EventType:   eventType,
		Message:     message,
		Cause:       cause,
	}
}

// Classify wraps err into a ReconcileError, choosing the category from the
// error chain. Unrecognized errors are treated as transport failures.
func Classify(reason, message string, err error) *ReconcileError {
	var re *ReconcileError
	if errors.As(err, &re) {
		return re
	}

	category := ErrorCategoryTransport
	var precondition *artifacts.PreconditionError
	switch {
	case relation.IsAuthorizationError(err):
		category = ErrorCategoryAuthorization
	case schema.IsValidationError(err):
		category = ErrorCategoryValidation
	case errors.As(err, &precondition):
		category = ErrorCategoryPrecondition
	}
	return NewReconcileError(category, reason, EventTypeWarning, message, err)
}
