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

/*
Package mfrc522 provides a pure Go driver for the NXP MFRC522
contactless reader IC, targeting MIFARE Classic compatible cards.

The MFRC522 is a 13.56 MHz reader/writer exposed to the host as a bank
of 64 registers over SPI or UART. This package drives the chip's
command and interrupt machinery on top of a pluggable register
transport: card detection, the full ISO 14443-3 Type A anticollision
cascade (4, 7 and 10 byte UIDs with bit-level collision resolution),
MIFARE Crypto1 sector authentication, 16-byte block reads and writes,
and HLTA.

Basic Usage:

	import (
	    mfrc522 "github.com/damiancyrana/go-mfrc522"
	    "github.com/damiancyrana/go-mfrc522/transport/spi"
	)

	transport, err := spi.NewWithOptions("SPI0.0", spi.Options{
	    ResetPin: "GPIO25",
	})
	if err != nil {
	    log.Fatal(err)
	}

	device, err := mfrc522.New(transport)
	if err != nil {
	    log.Fatal(err)
	}
	defer device.Close()

	if err := device.Init(); err != nil {
	    log.Fatal(err)
	}

	card, err := device.DetectCard()
	if err != nil {
	    log.Fatal(err)
	}
	if card == nil {
	    return // nothing in the field, poll again later
	}

	key := mfrc522.DefaultKeys[0]
	if err := device.Authenticate(mfrc522.KeyA, 4, key, card.UID); err != nil {
	    log.Fatal(err)
	}
	data, err := device.ReadBlock(4)
	if err != nil {
	    log.Fatal(err)
	}
	fmt.Printf("block 4: %x\n", data)

	_ = device.Halt()

Absence of a card is a normal polled state: DetectCard returns
(nil, nil) rather than an error, and callers are expected to poll in a
loop. The polling subpackage provides a ready-made scanner with
detect/remove callbacks.

All chip polling loops are bounded by an iteration budget rather than
wall-clock time, which keeps timeout behavior deterministic and
testable without real hardware timing. The Device is not thread-safe;
see the Device documentation.
*/
package mfrc522
