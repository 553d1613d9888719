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
	"encoding/hex"
	"errors"
	"fmt"
	"time"
)

const (
	// maxCascadeLevels bounds UID assembly: 4, 7 and 10 byte UIDs
	// complete at levels 1, 2 and 3 (ISO 14443-3 6.5.4).
	maxCascadeLevels = 3

	// maxAnticollRounds bounds the bit-resolution loop per cascade
	// level. A level has 32 UID bits, so a collision at every single
	// bit still converges within the bound.
	maxAnticollRounds = 32

	// sakCascade in a SAK response means the UID is not complete yet.
	sakCascade = 0x04

	// nvbAllKnown is the NVB value of a full SELECT frame: 7 bytes,
	// no extra bits.
	nvbAllKnown = 0x70
)

// CardType identifies a card family from its ATQA and SAK values.
type CardType string

// Known card types.
const (
	CardTypeMifareMini       CardType = "MIFARE Mini"
	CardTypeMifare1K         CardType = "MIFARE Classic 1K"
	CardTypeMifare4K         CardType = "MIFARE Classic 4K"
	CardTypeMifareUltralight CardType = "MIFARE Ultralight"
	CardTypeMifareUltraC     CardType = "MIFARE Ultralight C"
	CardTypeMifareUltraEV1   CardType = "MIFARE Ultralight EV1"
	CardTypeMifareDESFire    CardType = "MIFARE DESFire"
	CardTypeMifarePlus       CardType = "MIFARE Plus"
	CardTypeNFCForumType2    CardType = "NFC Forum Tag Type 2"
	CardTypeUnknown          CardType = "Unknown"
)

// cardTypes maps (ATQA, SAK) pairs to card families.
var cardTypes = map[[2]uint16]CardType{
	{0x4400, 0x04}: CardTypeMifareUltralight,
	{0x0400, 0x09}: CardTypeMifareMini,
	{0x0400, 0x08}: CardTypeMifare1K,
	{0x0200, 0x18}: CardTypeMifare4K,
	{0x4403, 0x28}: CardTypeMifareDESFire,
	{0x0800, 0x00}: CardTypeMifarePlus,
	{0x0400, 0x00}: CardTypeMifarePlus,
	{0x0400, 0x24}: CardTypeMifareUltraC,
	{0x0400, 0x34}: CardTypeMifareUltraEV1,
	{0x4400, 0x00}: CardTypeNFCForumType2,
}

// IdentifyCardType returns the card family for an ATQA/SAK pair.
func IdentifyCardType(atqa [2]byte, sak byte) CardType {
	value := uint16(atqa[1])<<8 | uint16(atqa[0])
	if t, ok := cardTypes[[2]uint16{value, uint16(sak)}]; ok {
		return t
	}
	return CardTypeUnknown
}

// DetectedCard describes a card found in the field. The UID is valid
// only for the current card-in-field session and becomes stale once the
// card is halted or removed.
type DetectedCard struct {
	DetectedAt time.Time
	Type       CardType
	UID        []byte
	ATQA       [2]byte
	SAK        byte
}

// UIDString returns the UID as a hex string.
func (c *DetectedCard) UIDString() string {
	return hex.EncodeToString(c.UID)
}

// Request sends the configured short request frame (REQA or WUPA) and
// returns the ATQA answer. ErrNoCard means the field is empty, which is
// a normal polled state rather than a failure.
func (d *Device) Request() ([2]byte, error) {
	var atqa [2]byte

	res, err := d.transceive([]byte{byte(d.config.RequestMode)}, 7, 0)
	if err != nil {
		if errors.Is(err, ErrNoCard) {
			return atqa, ErrNoCard
		}
		return atqa, fmt.Errorf("request: %w", err)
	}
	if res.bits != 16 {
		return atqa, fmt.Errorf("request: ATQA is %d bits: %w", res.bits, ErrProtocol)
	}

	atqa[0], atqa[1] = res.data[0], res.data[1]
	return atqa, nil
}

// DetectCard runs the full detection sequence: request, anticollision
// across cascade levels and select. It returns (nil, nil) when no card
// is present; any malformed-protocol condition is a distinct error.
//
// Any Crypto1 state left over from a previous card is dropped first, so
// a stale authentication can never apply to a newly selected card.
func (d *Device) DetectCard() (*DetectedCard, error) {
	if d.closed {
		return nil, ErrDeviceClosed
	}
	if err := d.StopCrypto1(); err != nil {
		return nil, err
	}

	atqa, err := d.Request()
	if err != nil {
		if errors.Is(err, ErrNoCard) {
			return nil, nil
		}
		return nil, err
	}

	uid := make([]byte, 0, 10)
	var sak byte
	complete := false

	for level := 0; level < maxCascadeLevels; level++ {
		part, err := d.resolveCascadeLevel(selectCommands[level])
		if err != nil {
			return nil, err
		}
		sak, err = d.selectCascadeLevel(selectCommands[level], part)
		if err != nil {
			return nil, err
		}

		if sak&sakCascade == 0 {
			uid = append(uid, part[0:4]...)
			complete = true
			break
		}
		if part[0] != piccCascadeTag {
			return nil, fmt.Errorf("cascade bit set without cascade tag: %w", ErrProtocol)
		}
		uid = append(uid, part[1:4]...)
	}
	if !complete {
		return nil, fmt.Errorf("cascade did not terminate: %w", ErrUIDResolution)
	}

	card := &DetectedCard{
		UID:        uid,
		ATQA:       atqa,
		SAK:        sak,
		Type:       IdentifyCardType(atqa, sak),
		DetectedAt: time.Now(),
	}
	debugf("detected %s uid=%s sak=%#02x", card.Type, card.UIDString(), sak)
	return card, nil
}

// resolveCascadeLevel runs the bit-oriented anticollision loop for one
// cascade level until a full 4-byte UID part plus check byte is received
// without a collision flag. On each reported collision the known-bit
// prefix grows to the collision position and the colliding bit is fixed
// to 1 before retrying with an increased NVB.
func (d *Device) resolveCascadeLevel(sel byte) ([5]byte, error) {
	var known [5]byte
	knownBits := 0

	for round := 0; round < maxAnticollRounds; round++ {
		fullBytes := knownBits / 8
		extraBits := knownBits % 8
		nvb := byte((2+fullBytes)<<4 | extraBits)

		frame := make([]byte, 0, 7)
		frame = append(frame, sel, nvb)
		frame = append(frame, known[:fullBytes]...)
		if extraBits != 0 {
			frame = append(frame, known[fullBytes])
		}

		res, err := d.transceive(frame, byte(extraBits), byte(extraBits))
		switch {
		case err == nil:
			mergeReceivedBits(&known, knownBits, res.data)
			if len(res.data) != len(known)-fullBytes || res.lastBits != 0 {
				return known, fmt.Errorf("anticollision: %d bytes, %d trailing bits: %w",
					len(res.data), res.lastBits, ErrUIDResolution)
			}
			if bcc := known[0] ^ known[1] ^ known[2] ^ known[3]; bcc != known[4] {
				return known, fmt.Errorf("anticollision: computed %#02x, got %#02x: %w",
					bcc, known[4], ErrBCCMismatch)
			}
			return known, nil

		case errors.Is(err, ErrCollision):
			if res != nil {
				mergeReceivedBits(&known, knownBits, res.data)
			}
			coll, rdErr := d.transport.ReadRegister(regColl)
			if rdErr != nil {
				return known, fmt.Errorf("anticollision: %w", rdErr)
			}
			if coll&collPosNotValid != 0 {
				return known, fmt.Errorf("anticollision: collision position not valid: %w", ErrUIDResolution)
			}
			pos := int(coll & collPosMask)
			if pos == 0 {
				pos = 32
			}
			if pos <= knownBits {
				return known, fmt.Errorf("anticollision: no progress at bit %d: %w", pos, ErrUIDResolution)
			}
			knownBits = pos
			// Tie-break: follow the cards transmitting 1 at the
			// collision position.
			known[(knownBits-1)/8] |= 1 << ((knownBits - 1) % 8)
			debugf("collision at bit %d, continuing with %d known bits", pos, knownBits)

		case errors.Is(err, ErrNoCard):
			// The card answered REQA but went silent mid-protocol.
			return known, fmt.Errorf("anticollision: card stopped responding: %w", ErrTimeout)

		default:
			return known, err
		}
	}

	return known, fmt.Errorf("anticollision: %d rounds: %w", maxAnticollRounds, ErrUIDResolution)
}

// mergeReceivedBits overlays a (possibly bit-aligned) anticollision
// response onto the known prefix. With RxAlign set to the partial bit
// count, the first received byte carries its new bits above the bits
// already known, so the two halves combine with a plain OR.
func mergeReceivedBits(known *[5]byte, knownBits int, data []byte) {
	idx := knownBits / 8
	for i, b := range data {
		if idx+i >= len(known) {
			break
		}
		if i == 0 && knownBits%8 != 0 {
			known[idx] |= b
		} else {
			known[idx+i] = b
		}
	}
}

// selectCascadeLevel issues SELECT for a fully resolved UID part and
// returns the SAK. The SAK arrives with its own CRC_A, which is checked
// against the coprocessor.
func (d *Device) selectCascadeLevel(sel byte, part [5]byte) (byte, error) {
	frame := make([]byte, 0, 9)
	frame = append(frame, sel, nvbAllKnown)
	frame = append(frame, part[:]...)
	frame, err := d.appendCRC(frame)
	if err != nil {
		return 0, fmt.Errorf("select: %w", err)
	}

	res, err := d.transceive(frame, 0, 0)
	if err != nil {
		if errors.Is(err, ErrNoCard) {
			return 0, fmt.Errorf("select: no response: %w", ErrSelect)
		}
		return 0, fmt.Errorf("select: %w", err)
	}
	if res.bits != 24 {
		return 0, fmt.Errorf("select: SAK is %d bits: %w", res.bits, ErrSelect)
	}

	crc, err := d.calculateCRC(res.data[:1])
	if err != nil {
		return 0, fmt.Errorf("select: %w", err)
	}
	if crc[0] != res.data[1] || crc[1] != res.data[2] {
		return 0, fmt.Errorf("select: SAK checksum: %w", ErrCRCMismatch)
	}

	return res.data[0], nil
}
