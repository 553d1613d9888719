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
	"sync"
)

// ScriptedTransport is a minimal register-level mock transport. Reads
// are served from per-register values or an optional read function;
// every access is recorded. It is used for unit tests that need exact
// control over individual register accesses; the internal/mfrctest
// package provides a full chip simulation instead.
type ScriptedTransport struct {
	// ReadFunc, when set, overrides Registers for reads.
	ReadFunc func(reg byte) (byte, error)
	// WriteErr, when set, is returned by every write.
	WriteErr error
	// Registers holds the value returned for each register read.
	Registers map[byte]byte
	// Writes records every single-register write in order.
	Writes []RegisterWrite
	mu     sync.Mutex
	closed bool
	// CloseCount counts Close calls, for lifecycle tests.
	CloseCount int
}

// RegisterWrite is one recorded register write.
type RegisterWrite struct {
	Reg   byte
	Value byte
}

// NewScriptedTransport creates an empty scripted transport.
func NewScriptedTransport() *ScriptedTransport {
	return &ScriptedTransport{Registers: make(map[byte]byte)}
}

// WriteRegister records the write.
func (t *ScriptedTransport) WriteRegister(reg, value byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.WriteErr != nil {
		return t.WriteErr
	}
	if t.closed {
		return ErrDeviceClosed
	}
	t.Writes = append(t.Writes, RegisterWrite{Reg: reg, Value: value})
	return nil
}

// ReadRegister returns the scripted value for reg.
func (t *ScriptedTransport) ReadRegister(reg byte) (byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return 0, ErrDeviceClosed
	}
	if t.ReadFunc != nil {
		return t.ReadFunc(reg)
	}
	return t.Registers[reg], nil
}

// WriteFIFO records each byte as a single-register write.
func (t *ScriptedTransport) WriteFIFO(reg byte, data []byte) error {
	for _, b := range data {
		if err := t.WriteRegister(reg, b); err != nil {
			return err
		}
	}
	return nil
}

// ReadFIFO reads n bytes one register access at a time.
func (t *ScriptedTransport) ReadFIFO(reg byte, n int) ([]byte, error) {
	data := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		b, err := t.ReadRegister(reg)
		if err != nil {
			return nil, err
		}
		data = append(data, b)
	}
	return data, nil
}

// Close marks the transport closed.
func (t *ScriptedTransport) Close() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.closed = true
	t.CloseCount++
	return nil
}

// Type returns the mock transport type.
func (*ScriptedTransport) Type() TransportType {
	return TransportMock
}

// Ensure ScriptedTransport implements Transport.
var _ Transport = (*ScriptedTransport)(nil)
