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

// Package uart provides UART transport implementation for the MFRC522
package uart

import (
	"fmt"
	"io"
	"time"

	mfrc522 "github.com/damiancyrana/go-mfrc522"
	"go.bug.st/serial"
)

const (
	// defaultBaudRate is the MFRC522 power-on UART speed.
	defaultBaudRate = 9600

	// UART address byte framing: register address in bits 5-0, bit 7
	// selects read (1) or write (0), bit 6 reserved zero.
	addrReadFlag = 0x80
	addrMask     = 0x3F

	defaultTimeout = 100 * time.Millisecond
)

// wire is the serial line as the transport uses it. serial.Port
// satisfies it; tests substitute an in-memory implementation.
type wire interface {
	io.ReadWriteCloser
	SetReadTimeout(time.Duration) error
}

// Transport implements the mfrc522.Transport interface for UART
// communication. The chip echoes the address byte of every register
// write, which doubles as a per-operation link check.
type Transport struct {
	port     wire
	portName string
	closed   bool
}

// New creates a new UART transport on the named serial port at the
// chip's power-on baud rate.
func New(portName string) (*Transport, error) {
	return NewWithBaudRate(portName, defaultBaudRate)
}

// NewWithBaudRate creates a new UART transport at an explicit baud
// rate, for chips already switched away from the power-on speed.
func NewWithBaudRate(portName string, baudRate int) (*Transport, error) {
	mode := &serial.Mode{
		BaudRate: baudRate,
		DataBits: 8,
		Parity:   serial.NoParity,
		StopBits: serial.OneStopBit,
	}
	port, err := serial.Open(portName, mode)
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", portName, err)
	}
	if err := port.SetReadTimeout(defaultTimeout); err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to set read timeout on %s: %w", portName, err)
	}

	return &Transport{
		port:     port,
		portName: portName,
	}, nil
}

// newWithWire builds a transport over an arbitrary wire. Used by
// tests.
func newWithWire(w wire, portName string) *Transport {
	return &Transport{port: w, portName: portName}
}

// WriteRegister writes a single register value: address byte, echo
// check, value byte.
func (t *Transport) WriteRegister(reg, value byte) error {
	if t.closed {
		return mfrc522.ErrDeviceClosed
	}

	addr := reg & addrMask
	if err := t.writeByte(addr, "WriteRegister"); err != nil {
		return err
	}

	echo, err := t.readByte("WriteRegister")
	if err != nil {
		return err
	}
	if echo != addr {
		return mfrc522.NewTransportError("WriteRegister", t.portName,
			fmt.Errorf("%w: sent %#02x, got %#02x", mfrc522.ErrTransportEcho, addr, echo),
			mfrc522.ErrorTypeTransient)
	}

	return t.writeByte(value, "WriteRegister")
}

// ReadRegister reads a single register value.
func (t *Transport) ReadRegister(reg byte) (byte, error) {
	if t.closed {
		return 0, mfrc522.ErrDeviceClosed
	}
	if err := t.writeByte(reg&addrMask|addrReadFlag, "ReadRegister"); err != nil {
		return 0, err
	}
	return t.readByte("ReadRegister")
}

// WriteFIFO writes data to the FIFO register one byte at a time; the
// UART protocol has no burst mode.
func (t *Transport) WriteFIFO(reg byte, data []byte) error {
	for _, b := range data {
		if err := t.WriteRegister(reg, b); err != nil {
			return err
		}
	}
	return nil
}

// ReadFIFO reads n bytes from the FIFO register one byte at a time.
func (t *Transport) ReadFIFO(reg byte, n int) ([]byte, error) {
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

// Close closes the serial port. Safe to call more than once.
func (t *Transport) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("failed to close serial port %s: %w", t.portName, err)
	}
	return nil
}

// IsConnected returns true if the transport is usable.
func (t *Transport) IsConnected() bool {
	return t.port != nil && !t.closed
}

// Type returns the transport type.
func (*Transport) Type() mfrc522.TransportType {
	return mfrc522.TransportUART
}

func (t *Transport) writeByte(b byte, op string) error {
	n, err := t.port.Write([]byte{b})
	if err != nil {
		return mfrc522.NewTransportError(op, t.portName,
			fmt.Errorf("%w: %w", mfrc522.ErrTransportWrite, err), mfrc522.ErrorTypeTransient)
	}
	if n != 1 {
		return mfrc522.NewTransportError(op, t.portName,
			fmt.Errorf("%w: short write", mfrc522.ErrTransportWrite), mfrc522.ErrorTypeTransient)
	}
	return nil
}

func (t *Transport) readByte(op string) (byte, error) {
	buf := make([]byte, 1)
	n, err := t.port.Read(buf)
	if err != nil {
		return 0, mfrc522.NewTransportError(op, t.portName,
			fmt.Errorf("%w: %w", mfrc522.ErrTransportRead, err), mfrc522.ErrorTypeTransient)
	}
	if n == 0 {
		// go.bug.st/serial signals a read timeout with n == 0 and no
		// error.
		return 0, mfrc522.NewTimeoutError(op, t.portName)
	}
	return buf[0], nil
}

// Ensure Transport implements mfrc522.Transport
var _ mfrc522.Transport = (*Transport)(nil)
