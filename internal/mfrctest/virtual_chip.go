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

// Package mfrctest provides a register-accurate MFRC522 simulation for
// tests. VirtualChip implements the driver's Transport interface and
// models the chip's FIFO, command, interrupt and error machinery; a
// VirtualCard attached to its field answers ISO 14443-3A and MIFARE
// frames. Together they let the full driver paths (detection,
// anticollision, authentication, block access) run deterministically
// without hardware.
package mfrctest

import (
	"errors"
	"fmt"

	mfrc522 "github.com/damiancyrana/go-mfrc522"
)

// Register and command constants the simulation interprets, mirroring
// the MFRC522 datasheet.
const (
	regCommand    = 0x01
	regComIEn     = 0x02
	regDivIEn     = 0x03
	regComIrq     = 0x04
	regDivIrq     = 0x05
	regError      = 0x06
	regStatus2    = 0x08
	regFIFOData   = 0x09
	regFIFOLevel  = 0x0A
	regControl    = 0x0C
	regBitFraming = 0x0D
	regColl       = 0x0E
	regCRCResultM = 0x21
	regCRCResultL = 0x22
	regVersion    = 0x37

	cmdIdle       = 0x00
	cmdCalcCRC    = 0x03
	cmdTransceive = 0x0C
	cmdMFAuthent  = 0x0E
	cmdSoftReset  = 0x0F

	irqTimer = 0x01
	irqIdle  = 0x10
	irqRx    = 0x20

	errProtocol  = 0x01
	errCollision = 0x08

	status2Crypto1 = 0x08
)

// ErrChipClosed is returned by transport calls after Close.
var ErrChipClosed = errors.New("mfrctest: chip closed")

// VirtualChip simulates an MFRC522 at the register level and implements
// mfrc522.Transport. The zero value is not usable; use NewChip.
type VirtualChip struct {
	// Card is the card in the field, nil for an empty field.
	Card *VirtualCard

	// Silent suppresses all interrupt activity, simulating a chip that
	// never signals completion. Commands still consume their input.
	Silent bool

	// CollideAtBit injects a single bit collision at this 1-based bit
	// position of the first cascade level's anticollision response;
	// 0 disables. The card must carry a 1 at that bit for the
	// resolver's tie-break to converge on it.
	CollideAtBit int

	// CorruptBCC flips the low bit of the check byte in anticollision
	// responses, simulating a corrupted UID frame.
	CorruptBCC bool

	// ChipVersion is the value of the version register, 0x92 unless
	// overridden before use.
	ChipVersion byte

	// Closed and CloseCount record transport lifecycle calls.
	Closed     bool
	CloseCount int

	regs    [0x40]byte
	fifo    []byte
	comIrq  byte
	divIrq  byte
	errReg  byte
	status2 byte
	coll    byte
	control byte
	crcLo   byte
	crcHi   byte
	command byte

	transceivePending bool
	collisionFired    bool
	// pendingWrite holds the block address between the two phases of a
	// MIFARE write.
	pendingWrite *uint8
}

// NewChip creates a powered-up virtual chip with card in its field
// (nil for an empty field).
func NewChip(card *VirtualCard) *VirtualChip {
	return &VirtualChip{
		Card:        card,
		ChipVersion: 0x92,
	}
}

// WriteRegister implements mfrc522.Transport.
func (c *VirtualChip) WriteRegister(reg, value byte) error {
	if c.Closed {
		return ErrChipClosed
	}
	if int(reg) >= len(c.regs) {
		panic(fmt.Sprintf("mfrctest: register %#02x out of range", reg))
	}

	switch reg {
	case regCommand:
		c.command = value
		c.runCommand(value)
	case regComIrq:
		// Bit 7 selects set (1) or clear (0) of the marked bits.
		if value&0x80 != 0 {
			c.comIrq |= value & 0x7F
		} else {
			c.comIrq &^= value & 0x7F
		}
	case regDivIrq:
		if value&0x80 != 0 {
			c.divIrq |= value & 0x7F
		} else {
			c.divIrq &^= value & 0x7F
		}
	case regFIFOLevel:
		if value&0x80 != 0 {
			c.fifo = nil
		}
	case regFIFOData:
		c.fifo = append(c.fifo, value)
	case regBitFraming:
		c.regs[reg] = value
		if value&0x80 != 0 && c.transceivePending {
			c.transceivePending = false
			c.executeTransceive(value&0x07, value>>4&0x07)
		}
	case regStatus2:
		c.status2 = value
	case regColl:
		c.coll = value
	default:
		c.regs[reg] = value
	}
	return nil
}

// ReadRegister implements mfrc522.Transport.
func (c *VirtualChip) ReadRegister(reg byte) (byte, error) {
	if c.Closed {
		return 0, ErrChipClosed
	}
	if int(reg) >= len(c.regs) {
		panic(fmt.Sprintf("mfrctest: register %#02x out of range", reg))
	}

	switch reg {
	case regCommand:
		// The power-down bit clears as soon as the oscillator is up;
		// the simulation is always up.
		return c.command & 0x0F, nil
	case regComIrq:
		return c.comIrq, nil
	case regDivIrq:
		return c.divIrq, nil
	case regError:
		return c.errReg, nil
	case regStatus2:
		return c.status2, nil
	case regFIFOData:
		if len(c.fifo) == 0 {
			return 0, nil
		}
		b := c.fifo[0]
		c.fifo = c.fifo[1:]
		return b, nil
	case regFIFOLevel:
		return byte(len(c.fifo)), nil
	case regControl:
		return c.control, nil
	case regColl:
		return c.coll, nil
	case regCRCResultL:
		return c.crcLo, nil
	case regCRCResultM:
		return c.crcHi, nil
	case regVersion:
		return c.ChipVersion, nil
	default:
		return c.regs[reg], nil
	}
}

// WriteFIFO implements mfrc522.Transport.
func (c *VirtualChip) WriteFIFO(reg byte, data []byte) error {
	for _, b := range data {
		if err := c.WriteRegister(reg, b); err != nil {
			return err
		}
	}
	return nil
}

// ReadFIFO implements mfrc522.Transport.
func (c *VirtualChip) ReadFIFO(reg byte, n int) ([]byte, error) {
	data := make([]byte, 0, n)
	for i := 0; i < n; i++ {
		b, err := c.ReadRegister(reg)
		if err != nil {
			return nil, err
		}
		data = append(data, b)
	}
	return data, nil
}

// Close implements mfrc522.Transport.
func (c *VirtualChip) Close() error {
	c.Closed = true
	c.CloseCount++
	return nil
}

// Type implements mfrc522.Transport.
func (*VirtualChip) Type() mfrc522.TransportType {
	return mfrc522.TransportMock
}

// runCommand reacts to a command register write.
func (c *VirtualChip) runCommand(cmd byte) {
	switch cmd {
	case cmdSoftReset:
		c.reset()
	case cmdCalcCRC:
		c.errReg = 0
		if c.Silent {
			return
		}
		crc := CRCA(c.fifo)
		c.fifo = nil
		c.crcLo, c.crcHi = crc[0], crc[1]
		c.divIrq |= 0x04
	case cmdTransceive:
		c.transceivePending = true
	case cmdMFAuthent:
		c.executeAuth()
	case cmdIdle:
		c.transceivePending = false
	}
}

// reset restores power-on register state. The card, its memory and the
// scripted behaviors survive, the session state does not.
func (c *VirtualChip) reset() {
	c.regs = [0x40]byte{}
	c.fifo = nil
	c.comIrq = 0
	c.divIrq = 0
	c.errReg = 0
	c.status2 = 0
	c.coll = 0
	c.control = 0
	c.transceivePending = false
	c.collisionFired = false
	c.pendingWrite = nil
	c.command = cmdIdle
	if c.Card != nil {
		c.Card.authSector = -1
	}
}

// respond places data in the FIFO as the received frame. lastBits is
// the valid bit count of the final byte, 0 when byte aligned.
func (c *VirtualChip) respond(data []byte, lastBits byte) {
	c.fifo = append([]byte(nil), data...)
	c.control = lastBits & 0x07
	c.comIrq |= irqRx | irqIdle
}

// respondSilence simulates an unanswered frame: the timeout timer
// fires.
func (c *VirtualChip) respondSilence() {
	c.comIrq |= irqTimer
}

// respondProtocolError flags a framing error on reception.
func (c *VirtualChip) respondProtocolError() {
	c.errReg |= errProtocol
	c.comIrq |= irqRx | irqIdle
}

// executeTransceive interprets the FIFO contents as a transmitted card
// frame and produces the card's answer.
func (c *VirtualChip) executeTransceive(txLastBits, _ byte) {
	frame := c.fifo
	c.fifo = nil
	c.errReg = 0
	c.control = 0

	if c.Silent {
		return
	}
	if len(frame) == 0 {
		c.respondSilence()
		return
	}

	card := c.Card
	if card == nil || !card.Present {
		c.respondSilence()
		return
	}

	if c.pendingWrite != nil {
		c.finishWrite(frame)
		return
	}

	switch {
	case txLastBits == 7 && len(frame) == 1:
		c.handleRequest(frame[0])
	case frame[0] == 0x93 || frame[0] == 0x95 || frame[0] == 0x97:
		if len(frame) >= 2 && frame[1] == 0x70 {
			c.handleSelect(frame)
		} else {
			c.handleAnticollision(frame)
		}
	case frame[0] == 0x30:
		c.handleRead(frame)
	case frame[0] == 0xA0:
		c.handleWrite(frame)
	case frame[0] == 0x50:
		c.handleHalt(frame)
	default:
		c.respondSilence()
	}
}

// handleRequest answers REQA/WUPA with the ATQA.
func (c *VirtualChip) handleRequest(cmd byte) {
	card := c.Card
	switch cmd {
	case 0x26: // REQA, ignored by halted cards
		if card.halted {
			c.respondSilence()
			return
		}
	case 0x52: // WUPA wakes halted cards
		card.halted = false
	default:
		c.respondSilence()
		return
	}
	c.respond(card.ATQA[:], 0)
}

// handleAnticollision answers a cascade anticollision frame, honoring
// the known-bit prefix and the scripted collision.
func (c *VirtualChip) handleAnticollision(frame []byte) {
	level := int(frame[0]-0x93) / 2
	part, _, err := c.Card.cascadePart(level)
	if err != nil {
		c.respondSilence()
		return
	}
	if c.CorruptBCC {
		part[4] ^= 0x01
	}

	nvb := frame[1]
	fullBytes := int(nvb>>4) - 2
	extraBits := int(nvb & 0x0F)
	if fullBytes < 0 || fullBytes > 4 || len(frame) != 2+fullBytes+boolInt(extraBits > 0) {
		c.respondProtocolError()
		return
	}
	knownBits := fullBytes*8 + extraBits

	// A card only answers when the transmitted prefix matches its own
	// UID bits.
	if !prefixMatches(part, frame[2:], knownBits) {
		c.respondSilence()
		return
	}

	if level == 0 && c.CollideAtBit > 0 && !c.collisionFired && knownBits < c.CollideAtBit {
		c.collisionFired = true
		c.coll = byte(c.CollideAtBit & 0x1F) // 32 encodes as 0
		c.errReg |= errCollision
		c.respond(partBytes(part, knownBits, c.CollideAtBit-1), 0)
		return
	}

	c.respond(partBytes(part, knownBits, 40), 0)
}

// partBytes renders the response bytes for a level part given the
// sender's known bit count: bytes from the first incomplete byte on,
// with bits below the partial-bit boundary and at or above validBits
// cleared (ValuesAfterColl behavior).
func partBytes(part [5]byte, knownBits, validBits int) []byte {
	buf := part
	for bit := validBits; bit < 40; bit++ {
		buf[bit/8] &^= 1 << (bit % 8)
	}
	resp := append([]byte(nil), buf[knownBits/8:]...)
	if extra := knownBits % 8; extra != 0 {
		resp[0] &^= byte(1<<extra) - 1
	}
	return resp
}

// prefixMatches compares the first knownBits bits of the transmitted
// prefix against the card's part.
func prefixMatches(part [5]byte, prefix []byte, knownBits int) bool {
	for bit := 0; bit < knownBits; bit++ {
		if bit/8 >= len(prefix) {
			return false
		}
		cardBit := part[bit/8] >> (bit % 8) & 1
		sentBit := prefix[bit/8] >> (bit % 8) & 1
		if cardBit != sentBit {
			return false
		}
	}
	return true
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// handleSelect answers a SELECT frame with the SAK for the level.
func (c *VirtualChip) handleSelect(frame []byte) {
	if len(frame) != 9 || !CheckCRCA(frame) {
		c.respondProtocolError()
		return
	}

	level := int(frame[0]-0x93) / 2
	part, last, err := c.Card.cascadePart(level)
	if err != nil {
		c.respondSilence()
		return
	}
	for i := 0; i < 5; i++ {
		if frame[2+i] != part[i] {
			c.respondSilence()
			return
		}
	}

	sak := byte(0x04) // cascade continues
	if last {
		sak = c.Card.SAK
		// Selecting ends any previous crypto session on the card.
		c.Card.authSector = -1
	}
	c.respond(AppendCRCA([]byte{sak}), 0)
}

// executeAuth models the MFAuthent command: key check against the
// card, Crypto1 activation on success, silence on a wrong key.
func (c *VirtualChip) executeAuth() {
	frame := c.fifo
	c.fifo = nil
	c.errReg = 0

	if c.Silent {
		return
	}

	card := c.Card
	if card == nil || !card.Present || card.halted || len(frame) != 12 {
		c.respondSilence()
		return
	}

	keyType, block := frame[0], frame[1]
	key := frame[2:8]
	uid := frame[8:12]

	for i := 0; i < 4 && i < len(card.UID); i++ {
		if uid[i] != card.UID[i] {
			c.respondSilence()
			return
		}
	}

	if !card.hasKey(keyType, key) {
		// A wrong key desynchronizes the handshake; the reader sees
		// nothing but its timeout timer.
		c.respondSilence()
		return
	}
	if card.RejectAuth {
		c.comIrq |= irqIdle
		return
	}

	card.authSector = sectorOf(block)
	c.status2 |= status2Crypto1
	c.comIrq |= irqIdle
}

// handleRead answers a MIFARE READ with block data plus CRC_A, or a
// 4-bit NAK when access is not granted.
func (c *VirtualChip) handleRead(frame []byte) {
	if len(frame) != 4 || !CheckCRCA(frame) {
		c.respondProtocolError()
		return
	}
	block := frame[1]
	card := c.Card
	if int(block) >= len(card.Memory) || !card.grantsAccess(block) || c.status2&status2Crypto1 == 0 {
		c.respond([]byte{0x04}, 4) // NAK
		return
	}
	c.respond(AppendCRCA(append([]byte(nil), card.Memory[block]...)), 0)
}

// handleWrite answers phase one of a MIFARE WRITE with an ACK and arms
// the data phase.
func (c *VirtualChip) handleWrite(frame []byte) {
	if len(frame) != 4 || !CheckCRCA(frame) {
		c.respondProtocolError()
		return
	}
	block := frame[1]
	card := c.Card
	if int(block) >= len(card.Memory) || !card.grantsAccess(block) || c.status2&status2Crypto1 == 0 {
		c.respond([]byte{0x04}, 4) // NAK
		return
	}
	c.pendingWrite = &block
	c.respond([]byte{0x0A}, 4) // ACK
}

// finishWrite consumes the 16 data bytes plus CRC of a write's second
// phase.
func (c *VirtualChip) finishWrite(frame []byte) {
	block := *c.pendingWrite
	c.pendingWrite = nil

	if len(frame) != 18 || !CheckCRCA(frame) {
		c.respond([]byte{0x01}, 4) // NAK: transmission error
		return
	}
	copy(c.Card.Memory[block], frame[:16])
	c.respond([]byte{0x0A}, 4) // ACK
}

// handleHalt puts the card into halt state. Per ISO 14443-3 the card
// acknowledges HLTA by staying silent.
func (c *VirtualChip) handleHalt(frame []byte) {
	if len(frame) != 4 || !CheckCRCA(frame) {
		c.respondProtocolError()
		return
	}
	c.Card.halted = true
	c.Card.authSector = -1
	c.respondSilence()
}

// Ensure VirtualChip implements the driver transport.
var _ mfrc522.Transport = (*VirtualChip)(nil)
