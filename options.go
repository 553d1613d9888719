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

import "fmt"

// Option is a functional option for configuring a Device.
type Option func(*Device) error

// WithConfig replaces the whole device configuration.
func WithConfig(config *DeviceConfig) Option {
	return func(d *Device) error {
		if config == nil {
			return fmt.Errorf("config cannot be nil")
		}
		d.config = config
		return nil
	}
}

// WithPollBudget sets the bounded iteration count for command polling.
func WithPollBudget(budget int) Option {
	return func(d *Device) error {
		if budget <= 0 {
			return fmt.Errorf("poll budget must be positive, got %d", budget)
		}
		d.config.PollBudget = budget
		return nil
	}
}

// WithRequestMode selects REQA or WUPA for card detection.
func WithRequestMode(mode RequestMode) Option {
	return func(d *Device) error {
		if mode != RequestIdle && mode != RequestAll {
			return fmt.Errorf("unknown request mode %#02x", byte(mode))
		}
		d.config.RequestMode = mode
		return nil
	}
}

// WithAntennaGain sets the receiver gain written during Init. The gain
// field occupies bits 4-6 of RFCfgReg.
func WithAntennaGain(gain byte) Option {
	return func(d *Device) error {
		d.config.AntennaGain = gain
		return nil
	}
}
