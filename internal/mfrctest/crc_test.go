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

package mfrctest

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCRCA(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		data []byte
		want [2]byte
	}{
		// HLTA frame from ISO 14443-3 7.8: 50 00 CRC_A = 50 00 57 CD.
		{name: "HLTA", data: []byte{0x50, 0x00}, want: [2]byte{0x57, 0xCD}},
		// ISO/IEC 14443-3 annex B check value for "123456789" is 0xBF05.
		{name: "check string", data: []byte("123456789"), want: [2]byte{0x05, 0xBF}},
		{name: "single byte", data: []byte{0x26}, want: [2]byte{0xCA, 0x15}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, CRCA(tt.data))
		})
	}
}

func TestAppendCheckCRCA(t *testing.T) {
	t.Parallel()

	frame := AppendCRCA([]byte{0x30, 0x04})
	assert.Len(t, frame, 4)
	assert.True(t, CheckCRCA(frame))

	frame[1]++
	assert.False(t, CheckCRCA(frame), "corruption must fail the check")

	assert.False(t, CheckCRCA([]byte{0x01, 0x02}), "too short to carry a CRC")
}
