// Copyright 2025 WoVault Authors
// SPDX-License-Identifier: Apache-2.0

package extract

import "errors"

// Error codes for extraction operations
type ErrorCode int

const (
	ErrCodeNone ErrorCode = iota
	ErrCodeValidation
	ErrCodeCapacity
	ErrCodeExtraction
)

// Error represents an extraction error with an error code
type Error struct {
	Code    ErrorCode
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// CodeOf returns the extraction error code carried by err, or ErrCodeNone.
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeNone
}
