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

func TestDetectCardEmptyField(t *testing.T) {
	t.Parallel()

	device := newTestDevice(t, mfrctest.NewChip(nil))

	card, err := device.DetectCard()
	require.NoError(t, err, "empty field is a normal polled state")
	assert.Nil(t, card)
}

func TestDetectCardSingleUID(t *testing.T) {
	t.Parallel()

	device := newTestDevice(t, mfrctest.NewChip(mfrctest.NewMIFARE1K(mfrctest.TestUID4)))

	card, err := device.DetectCard()
	require.NoError(t, err)
	require.NotNil(t, card)

	assert.Equal(t, mfrctest.TestUID4, card.UID)
	assert.Equal(t, "deadbeef", card.UIDString())
	assert.Equal(t, [2]byte{0x04, 0x00}, card.ATQA)
	assert.Equal(t, byte(0x08), card.SAK)
	assert.Equal(t, mfrc522.CardTypeMifare1K, card.Type)
	assert.False(t, card.DetectedAt.IsZero())
}

func TestDetectCardDoubleUID(t *testing.T) {
	t.Parallel()

	device := newTestDevice(t, mfrctest.NewChip(mfrctest.NewMIFARE1K(mfrctest.TestUID7)))

	card, err := device.DetectCard()
	require.NoError(t, err)
	require.NotNil(t, card)

	assert.Equal(t, mfrctest.TestUID7, card.UID)
	assert.Len(t, card.UID, 7)
	assert.Equal(t, byte(0x08), card.SAK, "final SAK has no cascade bit")
}

func TestDetectCardCollision(t *testing.T) {
	t.Parallel()

	// The scripted collision fixes the colliding bit to 1, so every
	// position used here carries a 1 in deadbeef (bits count LSB first
	// through 0xDE, 0xAD, 0xBE, 0xEF).
	tests := []struct {
		name         string
		collideAtBit int
	}{
		{name: "mid first byte", collideAtBit: 2},
		{name: "second byte", collideAtBit: 11},
		{name: "byte aligned", collideAtBit: 16},
		{name: "last byte", collideAtBit: 32},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			chip := mfrctest.NewChip(mfrctest.NewMIFARE1K(mfrctest.TestUID4))
			chip.CollideAtBit = tt.collideAtBit
			device := newTestDevice(t, chip)

			card, err := device.DetectCard()
			require.NoError(t, err)
			require.NotNil(t, card)
			assert.Equal(t, mfrctest.TestUID4, card.UID,
				"collision resolution must converge on the full UID")
		})
	}
}

func TestDetectCardBCCMismatch(t *testing.T) {
	t.Parallel()

	chip := mfrctest.NewChip(mfrctest.NewMIFARE1K(mfrctest.TestUID4))
	chip.CorruptBCC = true
	device := newTestDevice(t, chip)

	card, err := device.DetectCard()
	require.ErrorIs(t, err, mfrc522.ErrBCCMismatch)
	assert.Nil(t, card)
}

func TestDetectCardHalted(t *testing.T) {
	t.Parallel()

	t.Run("REQA ignores halted card", func(t *testing.T) {
		t.Parallel()

		card := mfrctest.NewMIFARE1K(mfrctest.TestUID4)
		device := newTestDevice(t, mfrctest.NewChip(card))

		detected, err := device.DetectCard()
		require.NoError(t, err)
		require.NotNil(t, detected)
		require.NoError(t, device.Halt())
		require.True(t, card.Halted())

		detected, err = device.DetectCard()
		require.NoError(t, err)
		assert.Nil(t, detected, "halted card must not answer REQA")
	})

	t.Run("WUPA wakes halted card", func(t *testing.T) {
		t.Parallel()

		card := mfrctest.NewMIFARE1K(mfrctest.TestUID4)
		device := newTestDevice(t, mfrctest.NewChip(card),
			mfrc522.WithRequestMode(mfrc522.RequestAll))

		detected, err := device.DetectCard()
		require.NoError(t, err)
		require.NotNil(t, detected)
		require.NoError(t, device.Halt())

		detected, err = device.DetectCard()
		require.NoError(t, err)
		require.NotNil(t, detected, "WUPA must wake the halted card")
		assert.Equal(t, mfrctest.TestUID4, detected.UID)
	})
}

func TestDetectCardPollBudgetExhausted(t *testing.T) {
	t.Parallel()

	chip := mfrctest.NewChip(mfrctest.NewMIFARE1K(mfrctest.TestUID4))
	chip.Silent = true
	device := newTestDevice(t, chip, mfrc522.WithPollBudget(50))

	_, err := device.DetectCard()
	require.Error(t, err)
	assert.ErrorIs(t, err, mfrc522.ErrTimeout,
		"a chip that never signals completion must hit the poll budget, not hang")
}

func TestRequest(t *testing.T) {
	t.Parallel()

	t.Run("card answers ATQA", func(t *testing.T) {
		t.Parallel()

		device := newTestDevice(t, mfrctest.NewChip(mfrctest.NewMIFARE1K(mfrctest.TestUID4)))

		atqa, err := device.Request()
		require.NoError(t, err)
		assert.Equal(t, [2]byte{0x04, 0x00}, atqa)
	})

	t.Run("empty field", func(t *testing.T) {
		t.Parallel()

		device := newTestDevice(t, mfrctest.NewChip(nil))

		_, err := device.Request()
		assert.ErrorIs(t, err, mfrc522.ErrNoCard)
	})
}

func TestIdentifyCardType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		want mfrc522.CardType
		atqa [2]byte
		sak  byte
	}{
		{name: "classic 1k", atqa: [2]byte{0x04, 0x00}, sak: 0x08, want: mfrc522.CardTypeMifare1K},
		{name: "classic 4k", atqa: [2]byte{0x02, 0x00}, sak: 0x18, want: mfrc522.CardTypeMifare4K},
		{name: "mini", atqa: [2]byte{0x04, 0x00}, sak: 0x09, want: mfrc522.CardTypeMifareMini},
		{name: "ultralight", atqa: [2]byte{0x44, 0x00}, sak: 0x04, want: mfrc522.CardTypeMifareUltralight},
		{name: "type 2 tag", atqa: [2]byte{0x44, 0x00}, sak: 0x00, want: mfrc522.CardTypeNFCForumType2},
		{name: "unknown", atqa: [2]byte{0x12, 0x34}, sak: 0x77, want: mfrc522.CardTypeUnknown},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, mfrc522.IdentifyCardType(tt.atqa, tt.sak))
		})
	}
}

func TestDetectCardDropsStaleCrypto1(t *testing.T) {
	t.Parallel()

	card := mfrctest.NewMIFARE1K(mfrctest.TestUID4)
	device := newTestDevice(t, mfrctest.NewChip(card),
		mfrc522.WithRequestMode(mfrc522.RequestAll))

	detected, err := device.DetectCard()
	require.NoError(t, err)
	require.NotNil(t, detected)
	require.NoError(t, device.Authenticate(mfrc522.KeyA, 4, mfrctest.DefaultKey, detected.UID))
	require.True(t, device.IsAuthenticated(4))

	// Re-detection starts a fresh session; the old authentication must
	// not survive into it.
	detected, err = device.DetectCard()
	require.NoError(t, err)
	require.NotNil(t, detected)
	assert.False(t, device.IsAuthenticated(4))
}
