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

// Package detection enumerates buses an MFRC522 could be attached to.
// It lists candidates only; confirming a reader means opening a
// transport and probing the version register, which is the caller's
// decision because probing drives real bus traffic.
package detection

import (
	"fmt"
	"path/filepath"
	"strings"

	mfrc522 "github.com/damiancyrana/go-mfrc522"
	"go.bug.st/serial"
	"periph.io/x/conn/v3/spi/spireg"
	"periph.io/x/host/v3"
)

// Candidate is a bus an MFRC522 might be attached to.
type Candidate struct {
	// Path is the name to hand to the matching transport constructor.
	Path string
	// Name is a short human-readable label.
	Name string
	// Transport is the transport type to open the candidate with.
	Transport mfrc522.TransportType
}

// Options controls candidate enumeration.
type Options struct {
	// IgnorePaths lists device paths to skip.
	IgnorePaths []string
	// SkipSPI disables SPI enumeration.
	SkipSPI bool
	// SkipUART disables serial port enumeration.
	SkipUART bool
}

// Candidates returns the buses worth probing for a reader, SPI ports
// first. An empty result with a nil error means no candidate buses
// exist on this host.
func Candidates(opts Options) ([]Candidate, error) {
	var found []Candidate

	if !opts.SkipSPI {
		spiPorts, err := spiCandidates(opts.IgnorePaths)
		if err != nil {
			return nil, err
		}
		found = append(found, spiPorts...)
	}

	if !opts.SkipUART {
		serialPorts, err := serialCandidates(opts.IgnorePaths)
		if err != nil {
			return nil, err
		}
		found = append(found, serialPorts...)
	}

	return found, nil
}

func spiCandidates(ignorePaths []string) ([]Candidate, error) {
	if _, err := host.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize periph host: %w", err)
	}

	var found []Candidate
	for _, ref := range spireg.All() {
		path := ref.Name
		if IsPathIgnored(path, ignorePaths) {
			continue
		}
		found = append(found, Candidate{
			Path:      path,
			Name:      ref.Name,
			Transport: mfrc522.TransportSPI,
		})
	}
	return found, nil
}

func serialCandidates(ignorePaths []string) ([]Candidate, error) {
	ports, err := serial.GetPortsList()
	if err != nil {
		return nil, fmt.Errorf("failed to list serial ports: %w", err)
	}

	var found []Candidate
	for _, path := range ports {
		if IsPathIgnored(path, ignorePaths) || !shouldIncludePort(path) {
			continue
		}
		found = append(found, Candidate{
			Path:      path,
			Name:      filepath.Base(path),
			Transport: mfrc522.TransportUART,
		})
	}
	return found, nil
}

// shouldIncludePort filters out serial devices that cannot be a wired
// reader.
func shouldIncludePort(path string) bool {
	name := strings.ToLower(filepath.Base(path))
	// Bluetooth pseudo-ports hang when probed.
	if strings.Contains(name, "bluetooth") {
		return false
	}
	// Virtual console devices on some platforms.
	if strings.HasPrefix(name, "cu.debug") || strings.HasPrefix(name, "cu.wlan") {
		return false
	}
	return true
}

// IsPathIgnored checks if a device path is on the ignore list.
// Supports exact path matching and normalized path comparison.
func IsPathIgnored(devicePath string, ignorePaths []string) bool {
	if devicePath == "" || len(ignorePaths) == 0 {
		return false
	}

	normalizedDevice := normalizedPath(devicePath)

	for _, ignorePath := range ignorePaths {
		if ignorePath == "" {
			continue
		}
		if devicePath == ignorePath || normalizedDevice == normalizedPath(ignorePath) {
			return true
		}
	}
	return false
}

// normalizedPath normalizes a device path for comparison
func normalizedPath(path string) string {
	// Lowercased for case-insensitive filesystems.
	return strings.ToLower(filepath.Clean(path))
}
