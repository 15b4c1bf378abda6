/*
Copyright 2025 The llm-d Authors

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

package core

import (
	"errors"
	"fmt"
)

// ErrInvalidInput is wrapped by every error caused by malformed solve input.
// It is distinct from an infeasible problem, which is never an error.
var ErrInvalidInput = errors.New("invalid input")

// ValidationError describes which part of the input is malformed.
type ValidationError struct {
	// Field is the input field being validated (agents, resources, capacities, preferences, rules).
	Field string
	// Value is the offending identifier, if any.
	Value string
	// Reason is a human readable description.
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Value == "" {
		return fmt.Sprintf("%s: %s", e.Field, e.Reason)
	}
	return fmt.Sprintf("%s %q: %s", e.Field, e.Value, e.Reason)
}

// Unwrap makes errors.Is(err, ErrInvalidInput) hold for all validation errors.
func (e *ValidationError) Unwrap() error {
	return ErrInvalidInput
}

// NewValidationError creates a validation error wrapping ErrInvalidInput.
func NewValidationError(field, value, reason string) error {
	return &ValidationError{Field: field, Value: value, Reason: reason}
}
