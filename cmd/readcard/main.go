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

package main

import (
	"context"
	"encoding/hex"
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	mfrc522 "github.com/damiancyrana/go-mfrc522"
	"github.com/damiancyrana/go-mfrc522/detection"
	"github.com/damiancyrana/go-mfrc522/internal/retry"
	"github.com/damiancyrana/go-mfrc522/polling"
	"github.com/damiancyrana/go-mfrc522/transport/spi"
	"github.com/damiancyrana/go-mfrc522/transport/uart"
)

type config struct {
	devicePath   *string
	timeout      *time.Duration
	pollInterval *time.Duration
	block        *uint
	key          *string
	keyB         *bool
	debug        *bool
}

func parseFlags() *config {
	cfg := &config{
		devicePath: flag.String("device", "",
			"Device path (e.g., SPI0.0 or /dev/ttyUSB0). Leave empty for auto-detection."),
		timeout:      flag.Duration("timeout", 30*time.Second, "Timeout for card detection (default: 30s)"),
		pollInterval: flag.Duration("poll-interval", 250*time.Millisecond, "Polling interval for card detection"),
		block:        flag.Uint("block", 4, "Block to read after authentication"),
		key:          flag.String("key", "FFFFFFFFFFFF", "MIFARE key as 12 hex digits"),
		keyB:         flag.Bool("key-b", false, "Authenticate with key B instead of key A"),
		debug:        flag.Bool("debug", false, "Enable debug output"),
	}
	flag.Parse()

	if *cfg.debug {
		mfrc522.SetDebugEnabled(true)
	}

	return cfg
}

// newTransport creates a new transport from a device path.
func newTransport(path string) (mfrc522.Transport, error) {
	if path == "" {
		return nil, errors.New("empty device path")
	}

	if strings.Contains(strings.ToLower(path), "spi") {
		transport, err := spi.New(path)
		if err != nil {
			return nil, fmt.Errorf("failed to create SPI transport: %w", err)
		}
		return transport, nil
	}

	// Default to UART for serial ports
	transport, err := uart.New(path)
	if err != nil {
		return nil, fmt.Errorf("failed to create UART transport: %w", err)
	}
	return transport, nil
}

// autoDetect tries every candidate bus until a reader answers the
// version probe.
func autoDetect() (*mfrc522.Device, error) {
	candidates, err := detection.Candidates(detection.Options{})
	if err != nil {
		return nil, fmt.Errorf("device detection failed: %w", err)
	}
	if len(candidates) == 0 {
		return nil, errors.New("no candidate buses found")
	}

	for _, candidate := range candidates {
		transport, err := newTransport(candidate.Path)
		if err != nil {
			continue
		}
		device, err := openDevice(transport)
		if err != nil {
			_ = transport.Close()
			continue
		}
		fmt.Printf("Found reader on %s\n", candidate.Path)
		return device, nil
	}

	return nil, errors.New("no MFRC522 found on any candidate bus")
}

// openDevice initializes a device over the transport, retrying the
// init sequence once in case the chip was mid-operation.
func openDevice(transport mfrc522.Transport) (*mfrc522.Device, error) {
	return retry.WithRetry(retry.Config{
		Description: "init",
		MaxRetries:  1,
		RetryDelay:  100 * time.Millisecond,
	}, func() (*mfrc522.Device, bool, error) {
		device, err := mfrc522.New(transport,
			mfrc522.WithRequestMode(mfrc522.RequestAll))
		if err != nil {
			return nil, false, err
		}
		if err := device.Init(); err != nil {
			if errors.Is(err, mfrc522.ErrChipNotResponding) {
				return nil, true, nil
			}
			return nil, false, err
		}
		return device, false, nil
	})
}

func connect(cfg *config) (*mfrc522.Device, error) {
	if *cfg.devicePath == "" {
		fmt.Println("Auto-detecting MFRC522 readers...")
		return autoDetect()
	}

	fmt.Printf("Opening device: %s\n", *cfg.devicePath)
	transport, err := newTransport(*cfg.devicePath)
	if err != nil {
		return nil, err
	}
	device, err := openDevice(transport)
	if err != nil {
		_ = transport.Close()
		return nil, err
	}
	return device, nil
}

func parseKey(s string) ([]byte, error) {
	key, err := hex.DecodeString(s)
	if err != nil {
		return nil, fmt.Errorf("invalid key %q: %w", s, err)
	}
	if len(key) != mfrc522.KeySize {
		return nil, fmt.Errorf("key must be %d bytes, got %d", mfrc522.KeySize, len(key))
	}
	return key, nil
}

// blockNumber validates a block flag value against the MIFARE address
// space before narrowing it.
func blockNumber(n int) (uint8, error) {
	if n < 0 || n > 255 {
		return 0, fmt.Errorf("block number %d out of range 0-255", n)
	}
	return uint8(n), nil
}

func readCard(device *mfrc522.Device, card *mfrc522.DetectedCard, cfg *config) error {
	fmt.Printf("Card detected: UID=%s ATQA=%02X%02X SAK=%02X Type=%s\n",
		card.UIDString(), card.ATQA[0], card.ATQA[1], card.SAK, card.Type)

	if len(card.UID) != 4 {
		// Crypto1 authentication takes the 4-byte (cascade level 1)
		// UID; longer UIDs need the full card unique part, which plain
		// MIFARE Classic never has.
		return nil
	}

	key, err := parseKey(*cfg.key)
	if err != nil {
		return err
	}
	keyType := mfrc522.KeyA
	if *cfg.keyB {
		keyType = mfrc522.KeyB
	}

	block, err := blockNumber(int(*cfg.block))
	if err != nil {
		return err
	}
	if err := device.Authenticate(keyType, block, key, card.UID); err != nil {
		return fmt.Errorf("authentication for block %d failed: %w", block, err)
	}

	data, err := device.ReadBlock(block)
	if err != nil {
		return fmt.Errorf("failed to read block %d: %w", block, err)
	}
	fmt.Printf("Block %3d: %s\n", block, hex.EncodeToString(data))
	return nil
}

func main() {
	cfg := parseFlags()

	device, err := connect(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = device.Close() }()

	fmt.Printf("MFRC522 version %#02x\n", device.Version())

	scanner, err := polling.NewScanner(device, &polling.ScanConfig{
		PollInterval: *cfg.pollInterval,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create scanner: %v\n", err)
		os.Exit(1)
	}

	scanner.OnCardDetected = func(card *mfrc522.DetectedCard) error {
		if err := readCard(device, card, cfg); err != nil {
			fmt.Printf("%v\n", err)
		}
		return nil
	}
	scanner.OnCardRemoved = func() {
		fmt.Println("Card removed - ready for next card...")
	}

	fmt.Printf("Waiting for card (timeout: %s, poll interval: %s)...\n", *cfg.timeout, *cfg.pollInterval)

	ctx, cancel := context.WithTimeout(context.Background(), *cfg.timeout)
	defer cancel()

	if err := scanner.Start(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to start scanner: %v\n", err)
		os.Exit(1)
	}

	<-ctx.Done()
	_ = scanner.Stop()
}
