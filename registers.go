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

// MFRC522 register map.
//
// Datasheet: https://www.nxp.com/docs/en/data-sheet/MFRC522.pdf, section 9.
// The address space is fixed by hardware at 0x00-0x3F.
const (
	regCommand     = 0x01 // Starts and stops command execution
	regComIEn      = 0x02 // Enable and disable interrupt request control bits
	regDivIEn      = 0x03 // Enable and disable interrupt request control bits
	regComIrq      = 0x04 // Interrupt request bits
	regDivIrq      = 0x05 // Interrupt request bits
	regError       = 0x06 // Error bits showing the error status of the last command executed
	regStatus1     = 0x07 // Communication status bits
	regStatus2     = 0x08 // Receiver and transmitter status bits
	regFIFOData    = 0x09 // Input and output of 64 byte FIFO buffer
	regFIFOLevel   = 0x0A // Number of bytes stored in the FIFO buffer
	regWaterLevel  = 0x0B // Level for FIFO underflow and overflow warning
	regControl     = 0x0C // Miscellaneous control registers
	regBitFraming  = 0x0D // Adjustments for bit-oriented frames
	regColl        = 0x0E // Bit position of the first bit-collision detected
	regMode        = 0x11 // Defines general modes for transmitting and receiving
	regTxMode      = 0x12 // Defines transmission data rate and framing
	regRxMode      = 0x13 // Defines reception data rate and framing
	regTxControl   = 0x14 // Controls the logical behavior of the antenna driver pins
	regTxASK       = 0x15 // Controls the setting of the transmission modulation
	regTxSel       = 0x16 // Selects the internal sources for the antenna driver
	regRxSel       = 0x17 // Selects internal receiver settings
	regRxThreshold = 0x18 // Selects thresholds for the bit decoder
	regDemod       = 0x19 // Defines demodulator settings
	regCRCResultM  = 0x21 // MSB of the CRC calculation result
	regCRCResultL  = 0x22 // LSB of the CRC calculation result
	regModWidth    = 0x24 // Controls the ModWidth setting
	regRFCfg       = 0x26 // Configures the receiver gain
	regGsN         = 0x27 // Selects the conductance of the antenna driver pins
	regCWGsP       = 0x28 // Defines the conductance of the p-driver output
	regModGsP      = 0x29 // Defines the conductance of the p-driver output for modulation
	regTMode       = 0x2A // Defines settings for the internal timer
	regTPrescaler  = 0x2B // Low bits of the timer prescaler
	regTReloadH    = 0x2C // High byte of the 16-bit timer reload value
	regTReloadL    = 0x2D // Low byte of the 16-bit timer reload value
	regVersion     = 0x37 // Shows the software version

	// regMax is the highest valid register address.
	regMax = 0x3F
)

// MFRC522 command set, written to regCommand (datasheet section 10.3).
// Only one command is active at a time; this is a chip-internal invariant.
const (
	cmdIdle             = 0x00 // No action, cancels current command execution
	cmdMem              = 0x01 // Stores 25 bytes into the internal buffer
	cmdGenerateRandomID = 0x02 // Generates a 10-byte random ID number
	cmdCalcCRC          = 0x03 // Activates the CRC coprocessor
	cmdTransmit         = 0x04 // Transmits data from the FIFO buffer
	cmdReceive          = 0x08 // Activates the receiver circuits
	cmdTransceive       = 0x0C // Transmits from FIFO and activates the receiver after
	cmdMFAuthent        = 0x0E // Performs the MIFARE Crypto1 authentication
	cmdSoftReset        = 0x0F // Resets the chip
)

// ISO 14443-3A / MIFARE card commands, sent over the RF interface.
const (
	piccReqIdle  = 0x26 // REQA, 7-bit short frame, idle cards only
	piccReqAll   = 0x52 // WUPA, 7-bit short frame, wakes halted cards too
	piccAnticoll = 0x93 // ANTICOLLISION / SELECT cascade level 1
	piccAuthKeyA = 0x60 // MIFARE authenticate with key A
	piccAuthKeyB = 0x61 // MIFARE authenticate with key B
	piccRead     = 0x30 // MIFARE read 16-byte block
	piccWrite    = 0xA0 // MIFARE write 16-byte block
	piccHalt     = 0x50 // HLTA, put the card in halt state

	// piccCascadeTag marks an incomplete UID at the current
	// cascade level (ISO 14443-3 6.5.4).
	piccCascadeTag = 0x88
)

// selectCommands holds the SEL codes per cascade level.
var selectCommands = [3]byte{0x93, 0x95, 0x97}

// ComIrqReg bits.
const (
	irqTimer = 0x01 // Timer finished counting down
	irqErr   = 0x02 // Any bit set in the error register
	irqIdle  = 0x10 // Command terminated, chip returned to idle
	irqRx    = 0x20 // Receiver detected the end of a valid data stream
	irqTx    = 0x40 // Last bit of transmitted data was sent
)

// ErrorReg bits.
const (
	errProtocol   = 0x01 // SOF is incorrect or command framing violated
	errParity     = 0x02 // Parity check failed
	errCRC        = 0x04 // CRC_A check failed
	errCollision  = 0x08 // Bit collision detected
	errBufferOvfl = 0x10 // Host or internal state machine overflowed the FIFO

	// errFatalMask are the error bits that abort a transceive. CRC
	// errors are excluded here: receive CRC checking is off and block
	// CRCs are verified explicitly against the coprocessor.
	errFatalMask = errProtocol | errParity | errCollision | errBufferOvfl
)

// Bit fields of various registers.
const (
	// BitFramingReg.
	bitFramingStartSend  = 0x80 // Starts the transmission of data
	bitFramingTxLastMask = 0x07 // Number of valid bits in the last transmitted byte
	bitFramingRxAlign    = 4    // Shift for the received-bit alignment position

	// CollReg.
	collValuesAfterColl = 0x80 // When set, received bits after a collision are kept
	collPosNotValid     = 0x20 // No valid collision position available
	collPosMask         = 0x1F // Bit position of the first detected collision

	// ControlReg.
	controlRxLastMask = 0x07 // Number of valid bits in the last received byte

	// Status2Reg.
	status2MFCrypto1On = 0x08 // MIFARE Crypto1 unit is switched on

	// FIFOLevelReg.
	fifoLevelFlush = 0x80 // Immediately clears the FIFO buffer

	// CommandReg.
	commandPowerDown = 0x10 // Soft power-down mode entered/pending

	// TxControlReg.
	txControlAntennaOn = 0x03 // Tx1RFEn and Tx2RFEn antenna driver enables
)

// Register values applied during Init, taken from the usual MFRC522
// bring-up sequence: timer at ~40kHz with a 25ms reload, forced 100% ASK
// modulation and CRC preset 0x6363 for transmit framing.
const (
	initTMode      = 0x8D // TAuto, prescaler high bits
	initTPrescaler = 0x3E // Timer prescaler low bits
	initTReloadL   = 30   // Timer reload low byte
	initTReloadH   = 0    // Timer reload high byte
	initTxASK      = 0x40 // Force100ASK
	initMode       = 0x3D // TxWaitRF, PolMFin, CRC preset 0x6363
)

// fifoSize is the depth of the chip FIFO buffer in bytes.
const fifoSize = 64
