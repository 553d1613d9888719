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

// MIFARE Classic memory structure.
const (
	// BlockSize is the payload size of a data block in bytes.
	BlockSize = 16
	// KeySize is the length of MIFARE key material in bytes.
	KeySize = 6

	// Sectors 0-31 group 4 blocks each; the upper sectors of 4K cards
	// group 16. The geometry is not uniform and must not be assumed so.
	smallSectorBlocks = 4
	largeSectorBlocks = 16
	smallSectorCount  = 32
	firstLargeBlock   = smallSectorCount * smallSectorBlocks // 128
	mifareAckNibble   = 0x0A
	mifareAckBits     = 4
	blockResponseSize = BlockSize + 2 // payload plus CRC_A
)

// KeyType selects which of the two sector keys authenticates.
type KeyType byte

const (
	// KeyA authenticates with the sector's key A.
	KeyA KeyType = piccAuthKeyA
	// KeyB authenticates with the sector's key B.
	KeyB KeyType = piccAuthKeyB
)

// DefaultKeys lists widely deployed MIFARE Classic keys, factory
// transport key first, useful for trying sectors of unknown
// provisioning. Keys passed to Authenticate are never persisted by the
// driver.
var DefaultKeys = [][]byte{
	{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}, // Factory default
	{0xA0, 0xA1, 0xA2, 0xA3, 0xA4, 0xA5}, // MAD key
	{0xB0, 0xB1, 0xB2, 0xB3, 0xB4, 0xB5},
	{0xD3, 0xF7, 0xD3, 0xF7, 0xD3, 0xF7}, // NDEF key
	{0x4D, 0x3A, 0x99, 0xC3, 0x51, 0xDD},
	{0x1A, 0x98, 0x2C, 0x7E, 0x45, 0x9A},
	{0x00, 0x00, 0x00, 0x00, 0x00, 0x00},
}

// SectorOfBlock returns the sector containing an absolute block number.
func SectorOfBlock(block uint8) uint8 {
	if block < firstLargeBlock {
		return block / smallSectorBlocks
	}
	return uint8(smallSectorCount + (int(block)-firstLargeBlock)/largeSectorBlocks)
}

// clearKeyBytes zeroes key material after use.
func clearKeyBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// Authenticate runs the MIFARE Crypto1 handshake for the sector
// containing block, using the given key and the UID of the selected
// card. On success the session is marked authenticated for that sector;
// on failure the session is left deauthenticated so the caller can
// retry from UID resolution.
//
// The key is used for this one handshake and wiped from the command
// buffer afterwards.
func (d *Device) Authenticate(keyType KeyType, block uint8, key, uid []byte) error {
	if d.closed {
		return ErrDeviceClosed
	}
	if len(key) != KeySize {
		return fmt.Errorf("authenticate: got %d bytes: %w", len(key), ErrInvalidKey)
	}
	if len(uid) < 4 {
		return fmt.Errorf("authenticate: uid must be at least 4 bytes, got %d", len(uid))
	}
	if keyType != KeyA && keyType != KeyB {
		return fmt.Errorf("authenticate: unknown key type %#02x", byte(keyType))
	}

	frame := make([]byte, 0, 2+KeySize+4)
	frame = append(frame, byte(keyType), block)
	frame = append(frame, key...)
	frame = append(frame, uid[:4]...)
	defer clearKeyBytes(frame)

	if err := d.executeAuth(frame); err != nil {
		d.authSector = -1
		if errors.Is(err, ErrAuthTimeout) || errors.Is(err, ErrAuthRejected) {
			return fmt.Errorf("authenticate block %d: %w", block, err)
		}
		return err
	}

	d.authSector = int(SectorOfBlock(block))
	debugf("authenticated sector %d with key %c", d.authSector, keyTypeLetter(keyType))
	return nil
}

func keyTypeLetter(keyType KeyType) byte {
	if keyType == KeyB {
		return 'B'
	}
	return 'A'
}

// IsAuthenticated reports whether a Crypto1 session currently covers
// the sector containing block.
func (d *Device) IsAuthenticated(block uint8) bool {
	return d.authSector >= 0 && d.authSector == int(SectorOfBlock(block))
}

// ReadBlock reads a 16-byte block. The sector containing the block must
// have been authenticated since the last halt or reset.
func (d *Device) ReadBlock(block uint8) ([]byte, error) {
	if d.closed {
		return nil, ErrDeviceClosed
	}
	if !d.IsAuthenticated(block) {
		return nil, fmt.Errorf("read block %d: %w", block, ErrNotAuthenticated)
	}

	frame, err := d.appendCRC([]byte{piccRead, block})
	if err != nil {
		return nil, fmt.Errorf("read block %d: %w", block, err)
	}

	res, err := d.transceive(frame, 0, 0)
	if err != nil {
		if errors.Is(err, ErrNoCard) {
			return nil, fmt.Errorf("read block %d: %w", block, ErrTimeout)
		}
		return nil, fmt.Errorf("read block %d: %w", block, err)
	}
	if res.bits == mifareAckBits {
		// A 4-bit answer here is a NAK: access denied or bad address.
		return nil, fmt.Errorf("read block %d: NAK %#02x: %w", block, res.data[0]&0x0F, ErrNotAcknowledged)
	}
	if len(res.data) != blockResponseSize || res.lastBits != 0 {
		return nil, fmt.Errorf("read block %d: %d bytes, %d trailing bits: %w",
			block, len(res.data), res.lastBits, ErrProtocol)
	}

	crc, err := d.calculateCRC(res.data[:BlockSize])
	if err != nil {
		return nil, fmt.Errorf("read block %d: %w", block, err)
	}
	if crc[0] != res.data[BlockSize] || crc[1] != res.data[BlockSize+1] {
		return nil, fmt.Errorf("read block %d: %w", block, ErrCRCMismatch)
	}

	return res.data[:BlockSize], nil
}

// WriteBlock writes a 16-byte block. The sector containing the block
// must have been authenticated since the last halt or reset. Sector
// trailer blocks are written without special-casing; avoiding them is
// the caller's responsibility.
func (d *Device) WriteBlock(block uint8, data []byte) error {
	if d.closed {
		return ErrDeviceClosed
	}
	if len(data) != BlockSize {
		return fmt.Errorf("write block %d: data must be %d bytes, got %d", block, BlockSize, len(data))
	}
	if !d.IsAuthenticated(block) {
		return fmt.Errorf("write block %d: %w", block, ErrNotAuthenticated)
	}

	// Step one: announce the write and wait for the 4-bit ACK.
	frame, err := d.appendCRC([]byte{piccWrite, block})
	if err != nil {
		return fmt.Errorf("write block %d: %w", block, err)
	}
	if err := d.expectAck(frame); err != nil {
		return fmt.Errorf("write block %d: %w", block, err)
	}

	// Step two: the 16 data bytes plus CRC, acknowledged the same way.
	payload, err := d.appendCRC(append([]byte(nil), data...))
	if err != nil {
		return fmt.Errorf("write block %d: %w", block, err)
	}
	if err := d.expectAck(payload); err != nil {
		return fmt.Errorf("write block %d data: %w", block, err)
	}

	return nil
}

// expectAck transmits frame and requires the MIFARE 4-bit ACK answer.
func (d *Device) expectAck(frame []byte) error {
	res, err := d.transceive(frame, 0, 0)
	if err != nil {
		if errors.Is(err, ErrNoCard) {
			return ErrTimeout
		}
		return err
	}
	if res.bits != mifareAckBits {
		return fmt.Errorf("%d-bit response: %w", res.bits, ErrNotAcknowledged)
	}
	if res.data[0]&0x0F != mifareAckNibble {
		return fmt.Errorf("NAK %#02x: %w", res.data[0]&0x0F, ErrNotAcknowledged)
	}
	return nil
}

// Halt sends HLTA and drops the Crypto1 session. Per ISO 14443-3 the
// card acknowledges HLTA by staying silent, so the expected outcome is
// a response timeout; an answer within the timeout is an error. The
// authentication state is cleared on every path.
func (d *Device) Halt() error {
	if d.closed {
		return ErrDeviceClosed
	}
	defer func() {
		if err := d.StopCrypto1(); err != nil {
			debugf("halt: stop crypto1: %v", err)
		}
	}()

	frame, err := d.appendCRC([]byte{piccHalt, 0x00})
	if err != nil {
		return fmt.Errorf("halt: %w", err)
	}

	_, err = d.transceive(frame, 0, 0)
	switch {
	case errors.Is(err, ErrNoCard):
		// Silence is the HLTA success condition.
		return nil
	case err == nil:
		return fmt.Errorf("halt: card answered HLTA: %w", ErrProtocol)
	default:
		return fmt.Errorf("halt: %w", err)
	}
}

// StopCrypto1 switches the chip's Crypto1 unit off and clears the
// authenticated state. It must run before selecting a different card;
// DetectCard and Halt call it on every path.
func (d *Device) StopCrypto1() error {
	if d.closed {
		return ErrDeviceClosed
	}
	d.authSector = -1
	if err := d.clearBits(regStatus2, status2MFCrypto1On); err != nil {
		return fmt.Errorf("stop crypto1: %w", err)
	}
	return nil
}
