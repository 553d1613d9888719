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

package detection

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsPathIgnored(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		devicePath  string
		ignorePaths []string
		want        bool
	}{
		{
			name:       "empty ignore list",
			devicePath: "/dev/ttyUSB0",
			want:       false,
		},
		{
			name:        "empty device path",
			devicePath:  "",
			ignorePaths: []string{"/dev/ttyUSB0"},
			want:        false,
		},
		{
			name:        "exact match",
			devicePath:  "/dev/ttyUSB0",
			ignorePaths: []string{"/dev/ttyUSB0"},
			want:        true,
		},
		{
			name:        "no match",
			devicePath:  "/dev/ttyUSB1",
			ignorePaths: []string{"/dev/ttyUSB0"},
			want:        false,
		},
		{
			name:        "case insensitive match",
			devicePath:  "COM3",
			ignorePaths: []string{"com3"},
			want:        true,
		},
		{
			name:        "unnormalized path match",
			devicePath:  "/dev/ttyUSB0",
			ignorePaths: []string{"/dev/../dev/ttyUSB0"},
			want:        true,
		},
		{
			name:        "empty entry skipped",
			devicePath:  "/dev/ttyUSB0",
			ignorePaths: []string{"", "/dev/ttyACM0"},
			want:        false,
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, IsPathIgnored(tt.devicePath, tt.ignorePaths))
		})
	}
}

func TestShouldIncludePort(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		path string
		want bool
	}{
		{name: "usb serial", path: "/dev/ttyUSB0", want: true},
		{name: "acm serial", path: "/dev/ttyACM0", want: true},
		{name: "macos usb serial", path: "/dev/cu.usbserial-1410", want: true},
		{name: "bluetooth port", path: "/dev/cu.Bluetooth-Incoming-Port", want: false},
		{name: "debug console", path: "/dev/cu.debug-console", want: false},
		{name: "windows com port", path: "COM3", want: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, shouldIncludePort(tt.path))
		})
	}
}

func TestCandidatesSkipAll(t *testing.T) {
	t.Parallel()

	// With both buses disabled no enumeration happens at all, which
	// keeps this test hardware independent.
	found, err := Candidates(Options{SkipSPI: true, SkipUART: true})
	assert.NoError(t, err)
	assert.Empty(t, found)
}
