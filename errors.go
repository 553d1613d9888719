// go-mfrc522
// Copyright (c) 2025 The go-mfrc522 Contributors.
// SPDX-License-Identifier: LGPL-3.0-or-later
//
// This file is part of go-mfrc522.
//
// go-mfrc522 is free software; you can redistribute it and/or
// modify it under the terms of the GNU Lesser General Public
// License as published by the Free Software Foundation; either
// version 3 of the License, or (at your option) any later version.
//
// go-mfrc522 is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the GNU
// Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with go-mfrc522; if not, write to the Free Software Foundation,
// Inc., 51 Franklin Street, Fifth Floor, Boston, MA  02110-1301, USA.

package mfrc522

import (
	"errors"
	"fmt"
)

// Protocol errors. Every chip-protocol failure is surfaced to the caller
// as one of these sentinels, possibly wrapped with operation context.
// ErrNoCard is the expected outcome of polling an empty field and is not
// exceptional; callers are expected to poll in a loop.
var (
	// ErrNoCard indicates no card answered the request frame.
	ErrNoCard = errors.New("no card in field")
	// ErrTimeout indicates the chip never signaled completion within
	// the configured poll budget.
	ErrTimeout = errors.New("operation timeout")
	// ErrCollision indicates a bit collision was detected during
	// reception. The anticollision resolver consumes this internally;
	// it escapes only when collisions occur outside UID resolution.
	ErrCollision = errors.New("bit collision detected")
	// ErrBufferOverflow indicates the chip FIFO overflowed.
	ErrBufferOverflow = errors.New("FIFO buffer overflow")
	// ErrProtocol indicates malformed framing or parity failure.
	ErrProtocol = errors.New("protocol error")
	// ErrCRCMismatch indicates a response failed its CRC_A check.
	ErrCRCMismatch = errors.New("CRC mismatch")
	// ErrUIDResolution indicates anticollision did not converge within
	// the iteration bound.
	ErrUIDResolution = errors.New("uid resolution failed")
	// ErrBCCMismatch indicates the UID check byte did not match the
	// XOR of the UID bytes.
	ErrBCCMismatch = errors.New("uid check byte mismatch")
	// ErrSelect indicates the SELECT handshake returned an unexpected
	// response.
	ErrSelect = errors.New("card select failed")
	// ErrAuthTimeout indicates the card did not answer the Crypto1
	// handshake, typically because the key is wrong.
	ErrAuthTimeout = errors.New("authentication timeout")
	// ErrAuthRejected indicates the handshake completed but the
	// Crypto1 unit did not come up.
	ErrAuthRejected = errors.New("authentication rejected")
	// ErrNotAuthenticated indicates a block access without a valid
	// authentication covering the target sector.
	ErrNotAuthenticated = errors.New("sector not authenticated")
	// ErrNotAcknowledged indicates the card answered a write with
	// something other than the 4-bit ACK pattern.
	ErrNotAcknowledged = errors.New("card did not acknowledge")
	// ErrDeviceClosed indicates an operation on a closed device.
	ErrDeviceClosed = errors.New("device closed")
	// ErrInvalidKey indicates key material of the wrong length.
	ErrInvalidKey = errors.New("invalid key length")
)

// Transport-level sentinel errors.
var (
	// ErrTransportRead indicates a failed read on the physical link.
	ErrTransportRead = errors.New("transport read failed")
	// ErrTransportWrite indicates a failed write on the physical link.
	ErrTransportWrite = errors.New("transport write failed")
	// ErrTransportEcho indicates the chip echoed an unexpected byte
	// during a UART register write.
	ErrTransportEcho = errors.New("unexpected register write echo")
	// ErrChipNotResponding indicates the version probe read a value
	// that cannot come from a powered MFRC522.
	ErrChipNotResponding = errors.New("chip not responding")
)

// ErrorType categorizes transport errors for retry decisions.
type ErrorType int

const (
	// ErrorTypeUnknown is an unclassified error.
	ErrorTypeUnknown ErrorType = iota
	// ErrorTypeTransient errors may succeed on retry.
	ErrorTypeTransient
	// ErrorTypePermanent errors will not succeed on retry.
	ErrorTypePermanent
	// ErrorTypeTimeout errors are timeouts, retryable by policy.
	ErrorTypeTimeout
)

// TransportError wraps a transport failure with operation context.
type TransportError struct {
	// Err is the underlying error.
	Err error
	// Op is the operation that failed.
	Op string
	// Port identifies the bus or device path.
	Port string
	// Type classifies the error for retry decisions.
	Type ErrorType
	// Retryable reports whether retrying the operation may succeed.
	Retryable bool
}

// Error implements the error interface.
func (e *TransportError) Error() string {
	if e.Port != "" {
		return fmt.Sprintf("mfrc522 %s %s: %v", e.Op, e.Port, e.Err)
	}
	return fmt.Sprintf("mfrc522 %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *TransportError) Unwrap() error {
	return e.Err
}

// NewTransportError creates a transport error with the given classification.
func NewTransportError(op, port string, err error, errType ErrorType) *TransportError {
	return &TransportError{
		Op:        op,
		Port:      port,
		Err:       err,
		Type:      errType,
		Retryable: errType == ErrorTypeTransient || errType == ErrorTypeTimeout,
	}
}

// NewTimeoutError creates a retryable timeout transport error.
func NewTimeoutError(op, port string) *TransportError {
	return NewTransportError(op, port, ErrTimeout, ErrorTypeTimeout)
}

// GetErrorType returns the classification of err, if it carries one.
func GetErrorType(err error) ErrorType {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Type
	}
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, ErrNoCard):
		return ErrorTypeTimeout
	case errors.Is(err, ErrCollision), errors.Is(err, ErrProtocol),
		errors.Is(err, ErrCRCMismatch), errors.Is(err, ErrBufferOverflow):
		return ErrorTypeTransient
	case errors.Is(err, ErrDeviceClosed), errors.Is(err, ErrInvalidKey):
		return ErrorTypePermanent
	default:
		return ErrorTypeUnknown
	}
}

// IsRetryable reports whether retrying the failed operation may succeed.
func IsRetryable(err error) bool {
	var te *TransportError
	if errors.As(err, &te) {
		return te.Retryable
	}
	switch GetErrorType(err) {
	case ErrorTypeTransient, ErrorTypeTimeout:
		return true
	default:
		return false
	}
}
