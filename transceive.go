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
	"fmt"
)

// rxResult is the outcome of a successful (or collided) transceive.
type rxResult struct {
	// data holds the received bytes.
	data []byte
	// bits is the total number of valid received bits.
	bits int
	// lastBits is the number of valid bits in the final byte, 0 when
	// the response is byte aligned. Bit-level granularity matters for
	// anticollision frames and MIFARE ACK nibbles.
	lastBits int
}

// transceive loads send into the FIFO, runs the Transceive command and
// polls the interrupt register until completion, timer expiry or the
// poll budget runs out. txLastBits is the number of valid bits in the
// last transmitted byte (0 = all 8); rxAlign is the bit position the
// first received bit is stored at, used when resuming an anticollision
// frame mid-byte.
//
// On a bit collision the bytes received before the collision are still
// returned alongside ErrCollision so the resolver can extend its known
// prefix.
func (d *Device) transceive(send []byte, txLastBits, rxAlign byte) (*rxResult, error) {
	if d.closed {
		return nil, ErrDeviceClosed
	}

	// Enable Tx, Rx, idle, error, timer and low-alert interrupts.
	if err := d.transport.WriteRegister(regComIEn, 0x77); err != nil {
		return nil, fmt.Errorf("transceive: %w", err)
	}
	if err := d.clearBits(regComIrq, 0x80); err != nil {
		return nil, fmt.Errorf("transceive: %w", err)
	}
	if err := d.setBits(regFIFOLevel, fifoLevelFlush); err != nil {
		return nil, fmt.Errorf("transceive: %w", err)
	}
	if err := d.transport.WriteRegister(regCommand, cmdIdle); err != nil {
		return nil, fmt.Errorf("transceive: %w", err)
	}
	// Keep only the bits received before a collision, so the resolver
	// sees a clean prefix.
	if err := d.clearBits(regColl, collValuesAfterColl); err != nil {
		return nil, fmt.Errorf("transceive: %w", err)
	}

	if err := d.transport.WriteFIFO(regFIFOData, send); err != nil {
		return nil, fmt.Errorf("transceive: load fifo: %w", err)
	}

	framing := rxAlign<<bitFramingRxAlign | txLastBits&bitFramingTxLastMask
	if err := d.transport.WriteRegister(regBitFraming, framing); err != nil {
		return nil, fmt.Errorf("transceive: %w", err)
	}
	if err := d.transport.WriteRegister(regCommand, cmdTransceive); err != nil {
		return nil, fmt.Errorf("transceive: %w", err)
	}
	if err := d.setBits(regBitFraming, bitFramingStartSend); err != nil {
		return nil, fmt.Errorf("transceive: %w", err)
	}

	var irq byte
	completed := false
	for i := d.config.PollBudget; i > 0; i-- {
		value, err := d.transport.ReadRegister(regComIrq)
		if err != nil {
			return nil, fmt.Errorf("transceive: %w", err)
		}
		irq = value
		if irq&(irqRx|irqIdle) != 0 || irq&irqTimer != 0 {
			completed = true
			break
		}
	}

	if err := d.clearBits(regBitFraming, bitFramingStartSend); err != nil {
		return nil, fmt.Errorf("transceive: %w", err)
	}

	if !completed {
		return nil, fmt.Errorf("transceive: poll budget exhausted: %w", ErrTimeout)
	}

	errBits, err := d.transport.ReadRegister(regError)
	if err != nil {
		return nil, fmt.Errorf("transceive: %w", err)
	}
	if errBits&errFatalMask != 0 {
		switch {
		case errBits&errCollision != 0:
			// Bits before the collision are valid; hand them back.
			result, rdErr := d.readReceived()
			if rdErr != nil {
				return nil, fmt.Errorf("transceive: %w", rdErr)
			}
			return result, fmt.Errorf("transceive: %w", ErrCollision)
		case errBits&errBufferOvfl != 0:
			return nil, fmt.Errorf("transceive: %w", ErrBufferOverflow)
		default:
			return nil, fmt.Errorf("transceive: error bits %#02x: %w", errBits, ErrProtocol)
		}
	}

	if irq&(irqRx|irqIdle) == 0 {
		// Timer fired with nothing received: the field is empty.
		return nil, ErrNoCard
	}

	result, err := d.readReceived()
	if err != nil {
		return nil, fmt.Errorf("transceive: %w", err)
	}
	return result, nil
}

// readReceived drains the FIFO and computes the bit-level length of the
// received frame.
func (d *Device) readReceived() (*rxResult, error) {
	level, err := d.transport.ReadRegister(regFIFOLevel)
	if err != nil {
		return nil, err
	}
	control, err := d.transport.ReadRegister(regControl)
	if err != nil {
		return nil, err
	}

	n := int(level)
	if n > fifoSize {
		n = fifoSize
	}
	data, err := d.transport.ReadFIFO(regFIFOData, n)
	if err != nil {
		return nil, err
	}

	lastBits := int(control & controlRxLastMask)
	bits := n * 8
	if lastBits != 0 && n > 0 {
		bits = (n-1)*8 + lastBits
	}

	return &rxResult{data: data, bits: bits, lastBits: lastBits}, nil
}

// calculateCRC runs the chip CRC coprocessor over data and returns the
// two CRC_A bytes, low byte first, ready for appending to a frame.
func (d *Device) calculateCRC(data []byte) ([]byte, error) {
	if d.closed {
		return nil, ErrDeviceClosed
	}

	if err := d.transport.WriteRegister(regCommand, cmdIdle); err != nil {
		return nil, fmt.Errorf("crc: %w", err)
	}
	if err := d.clearBits(regDivIrq, 0x04); err != nil {
		return nil, fmt.Errorf("crc: %w", err)
	}
	if err := d.setBits(regFIFOLevel, fifoLevelFlush); err != nil {
		return nil, fmt.Errorf("crc: %w", err)
	}
	if err := d.transport.WriteFIFO(regFIFOData, data); err != nil {
		return nil, fmt.Errorf("crc: load fifo: %w", err)
	}
	if err := d.transport.WriteRegister(regCommand, cmdCalcCRC); err != nil {
		return nil, fmt.Errorf("crc: %w", err)
	}

	for i := d.config.PollBudget; i > 0; i-- {
		irq, err := d.transport.ReadRegister(regDivIrq)
		if err != nil {
			return nil, fmt.Errorf("crc: %w", err)
		}
		if irq&0x04 != 0 {
			low, err := d.transport.ReadRegister(regCRCResultL)
			if err != nil {
				return nil, fmt.Errorf("crc: %w", err)
			}
			high, err := d.transport.ReadRegister(regCRCResultM)
			if err != nil {
				return nil, fmt.Errorf("crc: %w", err)
			}
			return []byte{low, high}, nil
		}
	}

	return nil, fmt.Errorf("crc: %w", ErrTimeout)
}

// appendCRC returns frame with its CRC_A appended.
func (d *Device) appendCRC(frame []byte) ([]byte, error) {
	crc, err := d.calculateCRC(frame)
	if err != nil {
		return nil, err
	}
	return append(frame, crc...), nil
}

// executeAuth loads the MFAuthent frame (auth command, block address,
// key and UID) and drives the Crypto1 handshake, confirming that the
// crypto unit actually came up. A silent card shows up as a timer
// expiry, which is the normal wrong-key outcome.
func (d *Device) executeAuth(frame []byte) error {
	if d.closed {
		return ErrDeviceClosed
	}

	// Idle and error interrupts only; the handshake ends in idle.
	if err := d.transport.WriteRegister(regComIEn, 0x12); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := d.clearBits(regComIrq, 0x80); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := d.setBits(regFIFOLevel, fifoLevelFlush); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := d.transport.WriteRegister(regCommand, cmdIdle); err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if err := d.transport.WriteFIFO(regFIFOData, frame); err != nil {
		return fmt.Errorf("auth: load fifo: %w", err)
	}
	if err := d.transport.WriteRegister(regCommand, cmdMFAuthent); err != nil {
		return fmt.Errorf("auth: %w", err)
	}

	completed := false
	for i := d.config.PollBudget; i > 0; i-- {
		irq, err := d.transport.ReadRegister(regComIrq)
		if err != nil {
			return fmt.Errorf("auth: %w", err)
		}
		if irq&irqTimer != 0 {
			return ErrAuthTimeout
		}
		if irq&irqIdle != 0 {
			completed = true
			break
		}
	}
	if !completed {
		return fmt.Errorf("auth: poll budget exhausted: %w", ErrTimeout)
	}

	errBits, err := d.transport.ReadRegister(regError)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if errBits&errProtocol != 0 {
		return ErrAuthRejected
	}

	status, err := d.transport.ReadRegister(regStatus2)
	if err != nil {
		return fmt.Errorf("auth: %w", err)
	}
	if status&status2MFCrypto1On == 0 {
		return ErrAuthRejected
	}

	return nil
}
