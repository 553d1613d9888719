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

// RequestMode selects the card request frame used during detection.
type RequestMode byte

const (
	// RequestIdle sends REQA, answered only by cards not in halt state.
	RequestIdle RequestMode = piccReqIdle
	// RequestAll sends WUPA, which also wakes halted cards.
	RequestAll RequestMode = piccReqAll
)

// DeviceConfig contains configuration options for the Device.
type DeviceConfig struct {
	// PollBudget bounds the number of status-register reads a single
	// chip command may take before it is declared timed out. Polling is
	// iteration-bounded rather than wall-clock-bounded so timeout
	// behavior stays deterministic under test.
	PollBudget int
	// RequestMode is the request frame used by DetectCard.
	RequestMode RequestMode
	// AntennaGain is written to RFCfgReg when non-zero. The receiver
	// gain occupies bits 4-6; 0x07 << 4 selects the 48dB maximum.
	AntennaGain byte
}

// DefaultDeviceConfig returns default device configuration.
func DefaultDeviceConfig() *DeviceConfig {
	return &DeviceConfig{
		PollBudget:  2000,
		RequestMode: RequestIdle,
	}
}

// Device represents an MFRC522 reader.
//
// Thread Safety: Device is NOT thread-safe. The bus and control pins are
// exclusively owned by one Device instance and every operation blocks
// the calling goroutine for the duration of its bus transactions and
// polling loops. For concurrent access, wrap the Device with a mutex or
// use the polling package.
type Device struct {
	transport Transport
	config    *DeviceConfig
	version   byte
	// authSector is the sector covered by the current Crypto1 session,
	// or -1 when no authentication is active.
	authSector int
	closed     bool
}

// New creates a new MFRC522 device on the given transport. The chip is
// not touched until Init is called.
func New(transport Transport, opts ...Option) (*Device, error) {
	device := &Device{
		transport:  transport,
		config:     DefaultDeviceConfig(),
		authSector: -1,
	}

	for _, opt := range opts {
		if err := opt(device); err != nil {
			return nil, err
		}
	}

	return device, nil
}

// Init soft-resets the chip and applies the register configuration
// required for ISO 14443-3A operation: the internal timeout timer, 100%
// ASK modulation, the transmit CRC preset and the antenna drivers.
func (d *Device) Init() error {
	if d.closed {
		return ErrDeviceClosed
	}

	if err := d.Reset(); err != nil {
		return err
	}

	initRegs := []struct{ reg, value byte }{
		{regTMode, initTMode},
		{regTPrescaler, initTPrescaler},
		{regTReloadL, initTReloadL},
		{regTReloadH, initTReloadH},
		{regTxASK, initTxASK},
		{regMode, initMode},
	}
	for _, rv := range initRegs {
		if err := d.transport.WriteRegister(rv.reg, rv.value); err != nil {
			return fmt.Errorf("init: %w", err)
		}
	}

	if d.config.AntennaGain != 0 {
		if err := d.transport.WriteRegister(regRFCfg, d.config.AntennaGain); err != nil {
			return fmt.Errorf("init: set antenna gain: %w", err)
		}
	}

	if err := d.AntennaOn(); err != nil {
		return err
	}

	version, err := d.transport.ReadRegister(regVersion)
	if err != nil {
		return fmt.Errorf("init: version probe: %w", err)
	}
	// A floating or dead bus reads as all zeros or all ones.
	if version == 0x00 || version == 0xFF {
		return fmt.Errorf("init: read version %#02x: %w", version, ErrChipNotResponding)
	}
	d.version = version
	debugf("chip version %#02x", version)

	return nil
}

// Reset issues a soft reset and waits for the chip to leave power-down,
// bounded by the configured poll budget.
func (d *Device) Reset() error {
	if d.closed {
		return ErrDeviceClosed
	}
	if err := d.transport.WriteRegister(regCommand, cmdSoftReset); err != nil {
		return fmt.Errorf("reset: %w", err)
	}
	for i := d.config.PollBudget; i > 0; i-- {
		cmd, err := d.transport.ReadRegister(regCommand)
		if err != nil {
			return fmt.Errorf("reset: %w", err)
		}
		if cmd&commandPowerDown == 0 {
			d.authSector = -1
			return nil
		}
	}
	return fmt.Errorf("reset: %w", ErrTimeout)
}

// Version returns the chip version byte read during Init (0x91 for
// version 1.0 silicon, 0x92 for version 2.0).
func (d *Device) Version() byte {
	return d.version
}

// AntennaOn enables the antenna drivers if they are not already on.
func (d *Device) AntennaOn() error {
	value, err := d.transport.ReadRegister(regTxControl)
	if err != nil {
		return fmt.Errorf("antenna on: %w", err)
	}
	if value&txControlAntennaOn == txControlAntennaOn {
		return nil
	}
	if err := d.setBits(regTxControl, txControlAntennaOn); err != nil {
		return fmt.Errorf("antenna on: %w", err)
	}
	return nil
}

// AntennaOff disables the antenna drivers.
func (d *Device) AntennaOff() error {
	if err := d.clearBits(regTxControl, txControlAntennaOn); err != nil {
		return fmt.Errorf("antenna off: %w", err)
	}
	return nil
}

// Close idles the chip, shuts the antenna down and releases the
// transport, which drives the reset pin low and chip-select to idle
// high. Close is idempotent and safe on every exit path, including
// after failed operations.
func (d *Device) Close() error {
	if d.closed {
		return nil
	}
	d.closed = true
	d.authSector = -1

	// Best effort: the transport must still be released if the chip
	// stopped answering.
	_ = d.transport.WriteRegister(regCommand, cmdIdle)
	_ = d.clearBits(regTxControl, txControlAntennaOn)

	if err := d.transport.Close(); err != nil {
		return fmt.Errorf("close transport: %w", err)
	}
	return nil
}

// setBits sets mask bits in a register.
func (d *Device) setBits(reg, mask byte) error {
	value, err := d.transport.ReadRegister(reg)
	if err != nil {
		return err
	}
	return d.transport.WriteRegister(reg, value|mask)
}

// clearBits clears mask bits in a register.
func (d *Device) clearBits(reg, mask byte) error {
	value, err := d.transport.ReadRegister(reg)
	if err != nil {
		return err
	}
	return d.transport.WriteRegister(reg, value&^mask)
}
