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

// Transport moves register reads and writes across the physical link to
// the MFRC522. Implementations own the chip-select framing of every
// transaction and the reset line, and must leave both in their safe idle
// state (chip-select high, reset low) when closed.
//
// Register addresses are the raw 6-bit chip addresses (0x00-0x3F); the
// bus-level encoding (address shift, read/write bit) is transport
// specific. Passing an out-of-range address is a programming error, not
// a recoverable condition.
type Transport interface {
	// WriteRegister writes a single value to a chip register as one
	// atomic bus transaction.
	WriteRegister(reg, value byte) error

	// ReadRegister reads a single chip register as one atomic bus
	// transaction.
	ReadRegister(reg byte) (byte, error)

	// WriteFIFO streams data into reg as one scoped acquisition of the
	// bus. Used for bulk FIFO loads.
	WriteFIFO(reg byte, data []byte) error

	// ReadFIFO reads n bytes from reg as one scoped acquisition of the
	// bus. Used for bulk FIFO reads.
	ReadFIFO(reg byte, n int) ([]byte, error)

	// Close releases the bus and drives the control pins to their safe
	// idle state. Close must be safe to call more than once.
	Close() error

	// Type returns the transport type.
	Type() TransportType
}

// TransportType represents the type of transport.
type TransportType string

const (
	// TransportSPI represents SPI bus transport.
	TransportSPI TransportType = "spi"
	// TransportUART represents UART/serial transport.
	TransportUART TransportType = "uart"
	// TransportMock represents a mock transport for testing.
	TransportMock TransportType = "mock"
)
