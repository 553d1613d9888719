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

package mfrc522_test

import (
	"testing"

	mfrc522 "github.com/damiancyrana/go-mfrc522"
	"github.com/damiancyrana/go-mfrc522/internal/mfrctest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestDevice builds an initialized device over a virtual chip.
func newTestDevice(t *testing.T, chip *mfrctest.VirtualChip, opts ...mfrc522.Option) *mfrc522.Device {
	t.Helper()
	device, err := mfrc522.New(chip, opts...)
	require.NoError(t, err)
	require.NoError(t, device.Init())
	return device
}

func TestDeviceInit(t *testing.T) {
	t.Parallel()

	chip := mfrctest.NewChip(nil)
	device, err := mfrc522.New(chip)
	require.NoError(t, err)

	require.NoError(t, device.Init())
	assert.Equal(t, byte(0x92), device.Version())
}

func TestDeviceInitChipNotResponding(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		version byte
	}{
		{name: "bus reads low", version: 0x00},
		{name: "bus reads high", version: 0xFF},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			chip := mfrctest.NewChip(nil)
			chip.ChipVersion = tt.version
			device, err := mfrc522.New(chip)
			require.NoError(t, err)

			err = device.Init()
			require.Error(t, err)
			assert.ErrorIs(t, err, mfrc522.ErrChipNotResponding)
		})
	}
}

func TestDeviceInitWritesConfiguration(t *testing.T) {
	t.Parallel()

	transport := mfrc522.NewScriptedTransport()
	transport.Registers[0x37] = 0x91 // version register

	device, err := mfrc522.New(transport, mfrc522.WithAntennaGain(0x70))
	require.NoError(t, err)
	require.NoError(t, device.Init())
	assert.Equal(t, byte(0x91), device.Version())

	wrote := make(map[byte]byte)
	for _, w := range transport.Writes {
		wrote[w.Reg] = w.Value
	}
	assert.Equal(t, byte(0x8D), wrote[0x2A], "timer mode")
	assert.Equal(t, byte(0x3E), wrote[0x2B], "timer prescaler")
	assert.Equal(t, byte(0x40), wrote[0x15], "100%% ASK")
	assert.Equal(t, byte(0x3D), wrote[0x11], "CRC preset")
	assert.Equal(t, byte(0x70), wrote[0x26], "antenna gain")
	assert.Equal(t, byte(0x03), wrote[0x14], "antenna drivers on")
}

func TestDeviceInitTransportError(t *testing.T) {
	t.Parallel()

	transport := mfrc522.NewScriptedTransport()
	transport.WriteErr = mfrc522.ErrTransportWrite

	device, err := mfrc522.New(transport)
	require.NoError(t, err)

	err = device.Init()
	require.Error(t, err)
	assert.ErrorIs(t, err, mfrc522.ErrTransportWrite)
}

func TestDeviceOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opt     mfrc522.Option
		wantErr bool
	}{
		{name: "valid poll budget", opt: mfrc522.WithPollBudget(100)},
		{name: "zero poll budget", opt: mfrc522.WithPollBudget(0), wantErr: true},
		{name: "negative poll budget", opt: mfrc522.WithPollBudget(-5), wantErr: true},
		{name: "request all", opt: mfrc522.WithRequestMode(mfrc522.RequestAll)},
		{name: "unknown request mode", opt: mfrc522.WithRequestMode(mfrc522.RequestMode(0x99)), wantErr: true},
		{name: "nil config", opt: mfrc522.WithConfig(nil), wantErr: true},
		{name: "full config", opt: mfrc522.WithConfig(mfrc522.DefaultDeviceConfig())},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			_, err := mfrc522.New(mfrctest.NewChip(nil), tt.opt)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestDeviceCloseIdempotent(t *testing.T) {
	t.Parallel()

	chip := mfrctest.NewChip(nil)
	device := newTestDevice(t, chip)

	require.NoError(t, device.Close())
	require.NoError(t, device.Close())
	assert.Equal(t, 1, chip.CloseCount, "transport released exactly once")
}

func TestDeviceOperationsAfterClose(t *testing.T) {
	t.Parallel()

	chip := mfrctest.NewChip(mfrctest.NewMIFARE1K(mfrctest.TestUID4))
	device := newTestDevice(t, chip)
	require.NoError(t, device.Close())

	_, err := device.DetectCard()
	assert.ErrorIs(t, err, mfrc522.ErrDeviceClosed)

	_, err = device.ReadBlock(4)
	assert.ErrorIs(t, err, mfrc522.ErrDeviceClosed)

	err = device.WriteBlock(4, make([]byte, mfrc522.BlockSize))
	assert.ErrorIs(t, err, mfrc522.ErrDeviceClosed)

	assert.ErrorIs(t, device.Halt(), mfrc522.ErrDeviceClosed)
	assert.ErrorIs(t, device.Init(), mfrc522.ErrDeviceClosed)
}

func TestDeviceCloseAfterFailedInit(t *testing.T) {
	t.Parallel()

	chip := mfrctest.NewChip(nil)
	chip.ChipVersion = 0x00
	device, err := mfrc522.New(chip)
	require.NoError(t, err)
	require.Error(t, device.Init())

	// Cleanup must still release the transport.
	require.NoError(t, device.Close())
	assert.Equal(t, 1, chip.CloseCount)
}

func TestDeviceResetDropsAuthentication(t *testing.T) {
	t.Parallel()

	card := mfrctest.NewMIFARE1K(mfrctest.TestUID4)
	device := newTestDevice(t, mfrctest.NewChip(card))

	detected, err := device.DetectCard()
	require.NoError(t, err)
	require.NotNil(t, detected)
	require.NoError(t, device.Authenticate(mfrc522.KeyA, 4, mfrctest.DefaultKey, detected.UID))
	require.True(t, device.IsAuthenticated(4))

	require.NoError(t, device.Reset())
	assert.False(t, device.IsAuthenticated(4))
}
