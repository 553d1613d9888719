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

// Package spi provides SPI transport implementation for the MFRC522
package spi

import (
	"fmt"
	"time"

	mfrc522 "github.com/damiancyrana/go-mfrc522"
	"periph.io/x/conn/v3/gpio"
	"periph.io/x/conn/v3/gpio/gpioreg"
	"periph.io/x/conn/v3/physic"
	"periph.io/x/conn/v3/spi"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

const (
	// Max clock frequency (10 MHz per datasheet).
	maxClockFreq = 10 * physic.MegaHertz

	// SPI address byte framing: the register address sits in bits 6-1,
	// bit 7 selects read (1) or write (0), bit 0 is always 0.
	addrReadFlag = 0x80
	addrMask     = 0x7E

	// Hard reset timing: the reset pin must stay low for at least
	// 100 ns; the oscillator needs up to 37.74 us after release. Both
	// get a generous margin.
	resetLowTime  = time.Millisecond
	resetWaitTime = 50 * time.Millisecond
)

// Transport implements the mfrc522.Transport interface for SPI
// communication.
type Transport struct {
	conn     spi.Conn
	port     spi.PortCloser
	resetPin gpio.PinOut
	portName string
	closed   bool
}

// Options configures optional SPI transport behavior.
type Options struct {
	// ResetPin is the GPIO name wired to the chip's NRSTPD pin. When
	// set, New performs a hard reset during setup and Close holds the
	// chip in reset.
	ResetPin string
	// Speed overrides the default 10 MHz clock.
	Speed physic.Frequency
}

// New creates a new SPI transport on the named port, for example
// "SPI0.0" or "/dev/spidev0.0".
func New(portName string) (*Transport, error) {
	return NewWithOptions(portName, Options{})
}

// NewWithOptions creates a new SPI transport with explicit options.
func NewWithOptions(portName string, opts Options) (*Transport, error) {
	// Initialize host
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	port, err := spireg.Open(portName)
	if err != nil {
		return nil, fmt.Errorf("failed to open SPI port %s: %w", portName, err)
	}

	speed := opts.Speed
	if speed == 0 {
		speed = maxClockFreq
	}
	conn, err := port.Connect(speed, spi.Mode0, 8)
	if err != nil {
		_ = port.Close()
		return nil, fmt.Errorf("failed to configure SPI port %s: %w", portName, err)
	}

	transport := &Transport{
		conn:     conn,
		port:     port,
		portName: portName,
	}

	if opts.ResetPin != "" {
		pin := gpioreg.ByName(opts.ResetPin)
		if pin == nil {
			_ = port.Close()
			return nil, fmt.Errorf("reset pin %q not found", opts.ResetPin)
		}
		transport.resetPin = pin
		if err := transport.HardReset(); err != nil {
			_ = port.Close()
			return nil, err
		}
	}

	return transport, nil
}

// NewFromConn creates a transport over an already configured SPI
// connection. Intended for tests and for callers that manage the port
// themselves; Close does not release the underlying port.
func NewFromConn(conn spi.Conn, portName string) *Transport {
	return &Transport{
		conn:     conn,
		portName: portName,
	}
}

// HardReset pulses the reset pin, if one is configured, and waits for
// the chip's oscillator to settle.
func (t *Transport) HardReset() error {
	if t.resetPin == nil {
		return nil
	}
	if err := t.resetPin.Out(gpio.Low); err != nil {
		return fmt.Errorf("failed to drive reset pin low: %w", err)
	}
	time.Sleep(resetLowTime)
	if err := t.resetPin.Out(gpio.High); err != nil {
		return fmt.Errorf("failed to release reset pin: %w", err)
	}
	time.Sleep(resetWaitTime)
	return nil
}

// WriteRegister writes a single register value.
func (t *Transport) WriteRegister(reg, value byte) error {
	if t.closed {
		return mfrc522.ErrDeviceClosed
	}
	w := []byte{reg << 1 & addrMask, value}
	if err := t.conn.Tx(w, nil); err != nil {
		return mfrc522.NewTransportError("WriteRegister", t.portName,
			fmt.Errorf("%w: %w", mfrc522.ErrTransportWrite, err), mfrc522.ErrorTypeTransient)
	}
	return nil
}

// ReadRegister reads a single register value.
func (t *Transport) ReadRegister(reg byte) (byte, error) {
	if t.closed {
		return 0, mfrc522.ErrDeviceClosed
	}
	// The value clocks out during the second byte; the trailing 0x00
	// keeps MOSI idle while it does.
	w := []byte{reg<<1&addrMask | addrReadFlag, 0x00}
	r := make([]byte, len(w))
	if err := t.conn.Tx(w, r); err != nil {
		return 0, mfrc522.NewTransportError("ReadRegister", t.portName,
			fmt.Errorf("%w: %w", mfrc522.ErrTransportRead, err), mfrc522.ErrorTypeTransient)
	}
	return r[1], nil
}

// WriteFIFO streams data into the FIFO register in one chip-select
// assertion: the address byte once, then every data byte.
func (t *Transport) WriteFIFO(reg byte, data []byte) error {
	if t.closed {
		return mfrc522.ErrDeviceClosed
	}
	if len(data) == 0 {
		return nil
	}
	w := make([]byte, 0, len(data)+1)
	w = append(w, reg<<1&addrMask)
	w = append(w, data...)
	if err := t.conn.Tx(w, nil); err != nil {
		return mfrc522.NewTransportError("WriteFIFO", t.portName,
			fmt.Errorf("%w: %w", mfrc522.ErrTransportWrite, err), mfrc522.ErrorTypeTransient)
	}
	return nil
}

// ReadFIFO streams n bytes out of the FIFO register in one chip-select
// assertion: the read address repeated for each byte, then a final
// 0x00 to clock out the last value.
func (t *Transport) ReadFIFO(reg byte, n int) ([]byte, error) {
	if t.closed {
		return nil, mfrc522.ErrDeviceClosed
	}
	if n <= 0 {
		return nil, nil
	}
	addr := reg<<1&addrMask | addrReadFlag
	w := make([]byte, n+1)
	for i := 0; i < n; i++ {
		w[i] = addr
	}
	r := make([]byte, len(w))
	if err := t.conn.Tx(w, r); err != nil {
		return nil, mfrc522.NewTransportError("ReadFIFO", t.portName,
			fmt.Errorf("%w: %w", mfrc522.ErrTransportRead, err), mfrc522.ErrorTypeTransient)
	}
	return r[1:], nil
}

// Close releases the SPI port and, when a reset pin is configured,
// leaves the chip held in reset. Safe to call more than once.
func (t *Transport) Close() error {
	if t.closed {
		return nil
	}
	t.closed = true

	if t.resetPin != nil {
		if err := t.resetPin.Out(gpio.Low); err != nil {
			_ = t.closePort()
			return fmt.Errorf("failed to hold reset pin low: %w", err)
		}
	}
	return t.closePort()
}

func (t *Transport) closePort() error {
	if t.port == nil {
		return nil
	}
	if err := t.port.Close(); err != nil {
		return fmt.Errorf("failed to close SPI port %s: %w", t.portName, err)
	}
	return nil
}

// IsConnected returns true if the transport is usable.
func (t *Transport) IsConnected() bool {
	return t.conn != nil && !t.closed
}

// Type returns the transport type.
func (*Transport) Type() mfrc522.TransportType {
	return mfrc522.TransportSPI
}

// Ensure Transport implements mfrc522.Transport
var _ mfrc522.Transport = (*Transport)(nil)
