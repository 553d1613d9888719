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

// CRCA computes the ISO/IEC 14443-3 CRC_A of data (polynomial 0x8408,
// initial value 0x6363, LSB first, not inverted) and returns it low
// byte first, matching the order the chip coprocessor reports. The
// driver itself always uses the coprocessor; this software reference
// exists so the simulated chip and simulated cards can generate and
// verify frames.
func CRCA(data []byte) [2]byte {
	crc := uint16(0x6363)
	for _, d := range data {
		d ^= byte(crc)
		d ^= d << 4
		crc = crc>>8 ^ uint16(d)<<8 ^ uint16(d)<<3 ^ uint16(d)>>4
	}
	return [2]byte{byte(crc), byte(crc >> 8)}
}

// AppendCRCA returns data with its CRC_A appended.
func AppendCRCA(data []byte) []byte {
	crc := CRCA(data)
	return append(data, crc[0], crc[1])
}

// CheckCRCA reports whether frame ends in a valid CRC_A over the
// preceding bytes.
func CheckCRCA(frame []byte) bool {
	if len(frame) < 3 {
		return false
	}
	crc := CRCA(frame[:len(frame)-2])
	return frame[len(frame)-2] == crc[0] && frame[len(frame)-1] == crc[1]
}
