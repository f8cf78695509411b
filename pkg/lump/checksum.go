// SPDX-License-Identifier: Apache-2.0
// Copyright (c) 2025 Kaz Walker, Thermoquad

package lump

// Checksum computes the LUMP checksum: 0xFF XOR every byte of data
func Checksum(data []byte) byte {
	ck := byte(0xFF)
	for _, b := range data {
		ck ^= b
	}
	return ck
}

// AppendChecksum appends the checksum of data to data
func AppendChecksum(data []byte) []byte {
	return append(data, Checksum(data))
}

// Valid reports whether a complete frame (checksum included) folds to zero
// under XOR with the implicit 0xFF seed.
func Valid(frame []byte) bool {
	if len(frame) < 2 {
		return false
	}
	return Checksum(frame[:len(frame)-1]) == frame[len(frame)-1]
}
