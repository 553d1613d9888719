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

package polling

import (
	"context"
	"sync"
	"testing"
	"time"

	mfrc522 "github.com/damiancyrana/go-mfrc522"
	"github.com/damiancyrana/go-mfrc522/internal/mfrctest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newScannerDevice builds an initialized device over chip, configured
// with wake-up requests so halted cards stay visible between polls.
func newScannerDevice(t *testing.T, chip *mfrctest.VirtualChip) *mfrc522.Device {
	t.Helper()
	device, err := mfrc522.New(chip, mfrc522.WithRequestMode(mfrc522.RequestAll))
	require.NoError(t, err)
	require.NoError(t, device.Init())
	return device
}

// fastConfig polls quickly enough for tests to converge in
// milliseconds.
func fastConfig() *ScanConfig {
	return &ScanConfig{
		PollInterval:     2 * time.Millisecond,
		RemovalThreshold: 2,
	}
}

func waitSignal(t *testing.T, ch <-chan struct{}, what string) {
	t.Helper()
	select {
	case <-ch:
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for %s", what)
	}
}

func TestNewScannerNilDevice(t *testing.T) {
	t.Parallel()

	_, err := NewScanner(nil, nil)
	require.Error(t, err)
}

func TestScannerStartTwice(t *testing.T) {
	t.Parallel()

	device := newScannerDevice(t, mfrctest.NewChip(nil))
	scanner, err := NewScanner(device, fastConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, scanner.Start(ctx))
	defer func() { _ = scanner.Stop() }()

	err = scanner.Start(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrScannerRunning)
}

func TestScannerStopIdempotent(t *testing.T) {
	t.Parallel()

	device := newScannerDevice(t, mfrctest.NewChip(nil))
	scanner, err := NewScanner(device, fastConfig())
	require.NoError(t, err)

	require.NoError(t, scanner.Stop(), "stopping a never-started scanner")

	require.NoError(t, scanner.Start(context.Background()))
	require.NoError(t, scanner.Stop())
	require.NoError(t, scanner.Stop())
	assert.False(t, scanner.IsRunning())
}

func TestScannerDetectAndRemove(t *testing.T) {
	t.Parallel()

	card := mfrctest.NewMIFARE1K(mfrctest.TestUID4)
	device := newScannerDevice(t, mfrctest.NewChip(card))
	scanner, err := NewScanner(device, fastConfig())
	require.NoError(t, err)

	detected := make(chan struct{})
	removed := make(chan struct{})

	scanner.OnCardDetected = func(c *mfrc522.DetectedCard) error {
		assert.Equal(t, mfrctest.TestUID4, c.UID)
		// Pull the card out of the field from the scan goroutine to
		// keep the card state single-threaded.
		card.Present = false
		close(detected)
		return nil
	}
	scanner.OnCardRemoved = func() {
		close(removed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, scanner.Start(ctx))
	defer func() { _ = scanner.Stop() }()

	waitSignal(t, detected, "card detection")
	waitSignal(t, removed, "card removal after debounce")
	assert.False(t, scanner.CardPresent())
}

func TestScannerCardPresentConcurrentRead(t *testing.T) {
	t.Parallel()

	card := mfrctest.NewMIFARE1K(mfrctest.TestUID4)
	device := newScannerDevice(t, mfrctest.NewChip(card))
	scanner, err := NewScanner(device, fastConfig())
	require.NoError(t, err)

	detected := make(chan struct{})
	observed := make(chan struct{})
	removed := make(chan struct{})

	var releaseOnce sync.Once
	release := func() { releaseOnce.Do(func() { close(observed) }) }

	scanner.OnCardDetected = func(*mfrc522.DetectedCard) error {
		close(detected)
		// Hold the scan goroutine here so the test goroutine reads the
		// presence flag while a poll is mid-flight.
		<-observed
		card.Present = false
		return nil
	}
	scanner.OnCardRemoved = func() {
		close(removed)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, scanner.Start(ctx))
	defer func() { _ = scanner.Stop() }()
	// Unblock the callback before Stop waits for the scan goroutine.
	defer release()

	waitSignal(t, detected, "card detection")
	assert.True(t, scanner.CardPresent(),
		"presence must be visible from other goroutines")
	release()

	waitSignal(t, removed, "card removal after debounce")
	assert.False(t, scanner.CardPresent())
}

func TestScannerCardChanged(t *testing.T) {
	t.Parallel()

	first := mfrctest.NewMIFARE1K(mfrctest.TestUID4)
	second := mfrctest.NewMIFARE1K([]byte{0x11, 0x22, 0x33, 0x44})
	chip := mfrctest.NewChip(first)
	device := newScannerDevice(t, chip)
	scanner, err := NewScanner(device, fastConfig())
	require.NoError(t, err)

	detected := make(chan struct{})
	changed := make(chan struct{})

	scanner.OnCardDetected = func(*mfrc522.DetectedCard) error {
		chip.Card = second
		close(detected)
		return nil
	}
	scanner.OnCardChanged = func(c *mfrc522.DetectedCard) error {
		assert.Equal(t, []byte{0x11, 0x22, 0x33, 0x44}, c.UID)
		close(changed)
		return nil
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, scanner.Start(ctx))
	defer func() { _ = scanner.Stop() }()

	waitSignal(t, detected, "first card")
	waitSignal(t, changed, "card swap")
}

func TestScannerContextCancelStops(t *testing.T) {
	t.Parallel()

	device := newScannerDevice(t, mfrctest.NewChip(nil))
	scanner, err := NewScanner(device, fastConfig())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, scanner.Start(ctx))
	cancel()

	require.Eventually(t, func() bool { return !scanner.IsRunning() },
		2*time.Second, 5*time.Millisecond, "scan goroutine exits on context cancel")
}
