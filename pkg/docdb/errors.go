// Copyright 2014 The Cockroach Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package docdb

import (
	"github.com/cockroachdb/errors"
)

// ErrorKind classifies the errors the core can return. Callers that need to
// distinguish a corrupt read from a bad argument switch on this instead of
// string-matching error text.
type ErrorKind int

const (
	// KindStoreError marks an error that passed through unchanged from the
	// underlying store.
	KindStoreError ErrorKind = iota
	// KindCorruptKey marks an encoded key that could not be decoded.
	KindCorruptKey
	// KindCorruptValue marks an encoded value that could not be decoded.
	KindCorruptValue
	// KindInvariantViolation marks a batch that would write conflicting
	// values for the same (path, HybridTime).
	KindInvariantViolation
	// KindBadArgument marks a caller error: empty path, mismatched types.
	KindBadArgument
	// KindSnapshotNotAvailable marks a read at a HybridTime the store can no
	// longer serve.
	KindSnapshotNotAvailable
)

func (k ErrorKind) String() string {
	switch k {
	case KindCorruptKey:
		return "CorruptKey"
	case KindCorruptValue:
		return "CorruptValue"
	case KindInvariantViolation:
		return "InvariantViolation"
	case KindBadArgument:
		return "BadArgument"
	case KindSnapshotNotAvailable:
		return "SnapshotNotAvailable"
	default:
		return "StoreError"
	}
}

// docDBError is the concrete error type returned by this package. It wraps a
// cause (possibly nil) with an ErrorKind so that callers can use
// errors.As/KindOf without parsing messages.
type docDBError struct {
	kind  ErrorKind
	cause error
}

func (e *docDBError) Error() string {
	if e.cause == nil {
		return e.kind.String()
	}
	return e.kind.String() + ": " + e.cause.Error()
}

func (e *docDBError) Cause() error { return e.cause }
func (e *docDBError) Unwrap() error { return e.cause }

// KindOf returns the ErrorKind attached to err, or KindStoreError if err
// does not originate from this package (e.g. it passed through unchanged
// from the store).
func KindOf(err error) ErrorKind {
	var de *docDBError
	if errors.As(err, &de) {
		return de.kind
	}
	return KindStoreError
}

func newError(kind ErrorKind, format string, args ...interface{}) error {
	return &docDBError{kind: kind, cause: errors.Newf(format, args...)}
}

func wrapError(kind ErrorKind, cause error, format string, args ...interface{}) error {
	if cause == nil {
		return newError(kind, format, args...)
	}
	return &docDBError{kind: kind, cause: errors.Wrapf(cause, format, args...)}
}

// CorruptKeyError reports an unreadable encoded key.
func CorruptKeyError(format string, args ...interface{}) error {
	return newError(KindCorruptKey, format, args...)
}

// CorruptValueError reports an unreadable encoded value.
func CorruptValueError(format string, args ...interface{}) error {
	return newError(KindCorruptValue, format, args...)
}

// InvariantViolationError reports two writes at the same (path, HybridTime)
// with conflicting values observed while constructing a batch.
func InvariantViolationError(format string, args ...interface{}) error {
	return newError(KindInvariantViolation, format, args...)
}

// BadArgumentError reports a caller error such as an empty path.
func BadArgumentError(format string, args ...interface{}) error {
	return newError(KindBadArgument, format, args...)
}

// SnapshotNotAvailableError reports a read at a HybridTime the store can no
// longer serve.
func SnapshotNotAvailableError(format string, args ...interface{}) error {
	return newError(KindSnapshotNotAvailable, format, args...)
}

// StoreError wraps an error returned by the underlying store, passed
// through unchanged in substance but tagged so KindOf reports it.
func StoreError(cause error) error {
	return wrapError(KindStoreError, cause, "store error")
}
