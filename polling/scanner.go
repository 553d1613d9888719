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

// Package polling provides continuous card presence scanning on top of
// a Device. The scanner repeatedly runs the detection sequence, halts
// the card between polls to quiet the field, and reports presence
// transitions through callbacks.
//
// Halted cards only answer wake-up frames, so a device handed to a
// scanner should be configured with mfrc522.RequestAll; with the
// default request mode a card disappears from the field after its
// first detection.
package polling

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	mfrc522 "github.com/damiancyrana/go-mfrc522"
)

// Scanner provides continuous card scanning with presence tracking.
// Callbacks run on the scanner goroutine; they must not call back into
// the scanner's device from other goroutines.
type Scanner struct {
	device     *mfrc522.Device
	config     *ScanConfig
	cancelFunc context.CancelFunc

	// OnCardDetected fires when a card enters the field.
	OnCardDetected func(card *mfrc522.DetectedCard) error
	// OnCardRemoved fires after a card has been absent for
	// RemovalThreshold consecutive polls.
	OnCardRemoved func()
	// OnCardChanged fires when the card in the field is replaced by one
	// with a different UID between polls.
	OnCardChanged func(card *mfrc522.DetectedCard) error

	state     cardState
	stopMutex sync.Mutex
	running   atomic.Bool
	present   atomic.Bool
}

// ScanConfig holds configuration options for the Scanner.
type ScanConfig struct {
	// PollInterval is the delay between detection attempts.
	PollInterval time.Duration
	// RemovalThreshold is the number of consecutive empty polls before
	// a present card is reported removed. Debounces the single-poll
	// dropouts that are normal at the edge of the field.
	RemovalThreshold int
}

// cardState tracks the card currently considered present. Only the
// scan goroutine touches it; the presence flag itself lives in
// Scanner.present so CardPresent can read it from any goroutine.
type cardState struct {
	lastUID  string
	misses   int
	lastSeen time.Time
}

// Scanner-specific errors.
var (
	ErrScannerRunning = errors.New("scanner is already running")
)

// NewScanner creates a new scanner instance with the given device and
// configuration.
func NewScanner(device *mfrc522.Device, config *ScanConfig) (*Scanner, error) {
	if device == nil {
		return nil, errors.New("device cannot be nil")
	}
	if config == nil {
		config = DefaultScanConfig()
	}
	if config.RemovalThreshold < 1 {
		config.RemovalThreshold = 1
	}

	return &Scanner{
		device: device,
		config: config,
	}, nil
}

// DefaultScanConfig returns sensible default configuration values.
func DefaultScanConfig() *ScanConfig {
	return &ScanConfig{
		PollInterval:     250 * time.Millisecond,
		RemovalThreshold: 3,
	}
}

// Start begins continuous scanning (non-blocking). Returns an error if
// the scanner is already running.
func (s *Scanner) Start(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrScannerRunning
	}

	scanCtx, cancel := context.WithCancel(ctx)
	s.stopMutex.Lock()
	s.cancelFunc = cancel
	s.stopMutex.Unlock()

	go func() {
		defer func() {
			s.running.Store(false)
			s.stopMutex.Lock()
			s.cancelFunc = nil
			s.stopMutex.Unlock()
		}()
		s.scanLoop(scanCtx)
	}()

	return nil
}

// Stop gracefully stops the scanner and blocks until the scan
// goroutine has exited.
func (s *Scanner) Stop() error {
	if !s.running.Load() {
		return nil
	}

	s.stopMutex.Lock()
	cancelFunc := s.cancelFunc
	s.stopMutex.Unlock()

	if cancelFunc != nil {
		cancelFunc()
	}

	for s.running.Load() {
		time.Sleep(10 * time.Millisecond)
	}
	return nil
}

// IsRunning returns whether the scanner is currently active.
func (s *Scanner) IsRunning() bool {
	return s.running.Load()
}

// CardPresent returns whether a card is currently considered present.
// Safe to call from any goroutine.
func (s *Scanner) CardPresent() bool {
	return s.present.Load()
}

// scanLoop is the main polling loop.
func (s *Scanner) scanLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		card, err := s.device.DetectCard()
		switch {
		case err != nil:
			// Transport trouble counts as an absent card; persistent
			// failure surfaces as a removal.
			s.recordMiss()
		case card == nil:
			s.recordMiss()
		default:
			s.recordCard(card)
			// Quiet the card until the next wake-up poll. A halt that
			// fails just leaves the card answering plain requests too.
			_ = s.device.Halt()
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(s.config.PollInterval):
		}
	}
}

// recordCard handles a successful detection.
func (s *Scanner) recordCard(card *mfrc522.DetectedCard) {
	s.state.misses = 0
	s.state.lastSeen = time.Now()

	uid := card.UIDString()
	switch {
	case !s.present.Load():
		s.present.Store(true)
		s.state.lastUID = uid
		if s.OnCardDetected != nil {
			_ = s.OnCardDetected(card)
		}
	case s.state.lastUID != uid:
		s.state.lastUID = uid
		if s.OnCardChanged != nil {
			_ = s.OnCardChanged(card)
		}
	}
}

// recordMiss handles an empty poll.
func (s *Scanner) recordMiss() {
	if !s.present.Load() {
		return
	}
	s.state.misses++
	if s.state.misses < s.config.RemovalThreshold {
		return
	}
	s.state = cardState{}
	s.present.Store(false)
	if s.OnCardRemoved != nil {
		s.OnCardRemoved()
	}
}
