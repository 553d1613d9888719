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

package mfrctest

import (
	"fmt"
)

// Test UIDs used across the test suite.
var (
	TestUID4 = []byte{0xDE, 0xAD, 0xBE, 0xEF}
	TestUID7 = []byte{0x04, 0x23, 0x9A, 0xB2, 0xC1, 0xD0, 0x80}

	// DefaultKey is the factory key every sector key of a new virtual
	// card is set to.
	DefaultKey = []byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}
)

// VirtualCard is a simulated MIFARE Classic card attached to a
// VirtualChip's field.
type VirtualCard struct {
	// UID is the card UID, 4 or 7 bytes.
	UID []byte
	// ATQA is the answer to request.
	ATQA [2]byte
	// SAK is the final select acknowledge (without the cascade bit).
	SAK byte
	// KeyA and KeyB are the sector keys, shared by all sectors.
	KeyA [6]byte
	// KeyB is checked for key-B authentication.
	KeyB [6]byte
	// Memory is the block-addressed card memory.
	Memory [][]byte
	// Present controls whether the card answers request frames.
	Present bool
	// RejectAuth makes the Crypto1 handshake complete without the
	// crypto unit coming up, the "rejected" failure mode.
	RejectAuth bool

	halted bool
	// authSector is the sector the card granted access to, -1 if none.
	authSector int
}

// NewMIFARE1K creates a simulated MIFARE Classic 1K card (64 blocks)
// with factory-default keys. uid may be 4 or 7 bytes; nil selects
// TestUID4.
func NewMIFARE1K(uid []byte) *VirtualCard {
	if uid == nil {
		uid = TestUID4
	}
	card := &VirtualCard{
		UID:        append([]byte(nil), uid...),
		SAK:        0x08,
		KeyA:       [6]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		KeyB:       [6]byte{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF},
		Memory:     make([][]byte, 64),
		Present:    true,
		authSector: -1,
	}
	card.ATQA = [2]byte{0x04, 0x00}
	if len(uid) == 7 {
		// Double-size UID flag in ATQA.
		card.ATQA = [2]byte{0x44, 0x00}
	}
	card.initMemory()
	return card
}

// NewMIFARE4K creates a simulated MIFARE Classic 4K card (256 blocks),
// whose upper sectors group 16 blocks instead of 4.
func NewMIFARE4K(uid []byte) *VirtualCard {
	card := NewMIFARE1K(uid)
	card.SAK = 0x18
	card.ATQA = [2]byte{0x02, 0x00}
	if len(card.UID) == 7 {
		card.ATQA = [2]byte{0x42, 0x00}
	}
	card.Memory = make([][]byte, 256)
	card.initMemory()
	return card
}

// initMemory lays out manufacturer block, empty data blocks and sector
// trailers holding the keys and default access bits.
func (c *VirtualCard) initMemory() {
	for i := range c.Memory {
		block := make([]byte, 16)
		if c.isTrailer(uint8(i)) {
			copy(block[0:6], c.KeyA[:])
			// Transport configuration access bits.
			copy(block[6:10], []byte{0xFF, 0x07, 0x80, 0x69})
			copy(block[10:16], c.KeyB[:])
		}
		c.Memory[i] = block
	}

	manufacturer := c.Memory[0]
	n := copy(manufacturer, c.UID)
	if len(c.UID) == 4 {
		manufacturer[4] = c.UID[0] ^ c.UID[1] ^ c.UID[2] ^ c.UID[3]
		n = 5
	}
	for i := n; i < 16; i++ {
		manufacturer[i] = 0x62
	}
}

// sectorOf mirrors the MIFARE Classic geometry: 4-block sectors up to
// block 127, 16-block sectors above.
func sectorOf(block uint8) int {
	if block < 128 {
		return int(block) / 4
	}
	return 32 + (int(block)-128)/16
}

// isTrailer reports whether block is a sector trailer.
func (c *VirtualCard) isTrailer(block uint8) bool {
	if block < 128 {
		return block%4 == 3
	}
	return block%16 == 15
}

// cascadePart returns the 4 UID bytes plus check byte transmitted at
// cascade level (0-based), and whether the UID completes there.
func (c *VirtualCard) cascadePart(level int) (part [5]byte, last bool, err error) {
	var body [4]byte
	switch len(c.UID) {
	case 4:
		if level != 0 {
			return part, false, fmt.Errorf("mfrctest: cascade level %d on 4-byte uid", level)
		}
		copy(body[:], c.UID)
		last = true
	case 7:
		switch level {
		case 0:
			body = [4]byte{0x88, c.UID[0], c.UID[1], c.UID[2]}
		case 1:
			copy(body[:], c.UID[3:7])
			last = true
		default:
			return part, false, fmt.Errorf("mfrctest: cascade level %d on 7-byte uid", level)
		}
	case 10:
		switch level {
		case 0:
			body = [4]byte{0x88, c.UID[0], c.UID[1], c.UID[2]}
		case 1:
			body = [4]byte{0x88, c.UID[3], c.UID[4], c.UID[5]}
		case 2:
			copy(body[:], c.UID[6:10])
			last = true
		default:
			return part, false, fmt.Errorf("mfrctest: cascade level %d on 10-byte uid", level)
		}
	default:
		return part, false, fmt.Errorf("mfrctest: unsupported uid length %d", len(c.UID))
	}

	copy(part[:4], body[:])
	part[4] = body[0] ^ body[1] ^ body[2] ^ body[3]
	return part, last, nil
}

// hasKey checks the presented key against the card keys. keyType is the
// MIFARE auth command (0x60 key A, 0x61 key B).
func (c *VirtualCard) hasKey(keyType byte, key []byte) bool {
	var expected [6]byte
	switch keyType {
	case 0x60:
		expected = c.KeyA
	case 0x61:
		expected = c.KeyB
	default:
		return false
	}
	if len(key) != 6 {
		return false
	}
	for i := range expected {
		if key[i] != expected[i] {
			return false
		}
	}
	return true
}

// grantsAccess reports whether the card has authenticated the sector
// containing block.
func (c *VirtualCard) grantsAccess(block uint8) bool {
	return c.authSector >= 0 && c.authSector == sectorOf(block)
}

// Halted reports whether the card is in halt state.
func (c *VirtualCard) Halted() bool {
	return c.halted
}
