// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

// Package bitfield decodes the per-piece bitmaps reported by torrent daemons.
// Piece i lives in byte i/8 at bit 7-(i%8), most significant bit first.
package bitfield

import (
	"encoding/base64"
	"fmt"
	"math/bits"
)

// ByteLen returns the number of bytes needed to hold pieceCount bits.
func ByteLen(pieceCount int) int {
	if pieceCount <= 0 {
		return 0
	}
	return (pieceCount + 7) / 8
}

// Decode returns the first ByteLen(pieceCount) bytes of the base64 encoded
// bitmap. Short input is zero padded and malformed input decodes as all zero.
func Decode(encoded string, pieceCount int) []byte {
	out := make([]byte, ByteLen(pieceCount))
	raw, err := decodeRaw(encoded)
	if err != nil {
		return out
	}
	copy(out, raw)
	return out
}

// Popcount counts the set bits across every decoded byte of encoded. It is
// not limited to a piece count.
func Popcount(encoded string) int {
	raw, err := decodeRaw(encoded)
	if err != nil {
		return 0
	}
	return Count(raw)
}

// Count returns the number of set bits in b.
func Count(b []byte) int {
	var total int
	for _, v := range b {
		total += bits.OnesCount8(v)
	}
	return total
}

// Has reports whether piece i is set. Out of range indexes are unset.
func Has(b []byte, i int) bool {
	if i < 0 || i/8 >= len(b) {
		return false
	}
	return b[i/8]&(1<<(7-uint(i%8))) != 0
}

// Encode packs pieces into the base64 bitmap representation.
func Encode(pieces []bool) string {
	b := make([]byte, ByteLen(len(pieces)))
	for i, set := range pieces {
		if set {
			b[i/8] |= 1 << (7 - uint(i%8))
		}
	}
	return base64.StdEncoding.EncodeToString(b)
}

// Summary is the "have N of M pieces" view of a bitmap.
type Summary struct {
	Have  int `json:"have"`
	Total int `json:"total"`
}

func (s Summary) String() string {
	return fmt.Sprintf("%d/%d pieces", s.Have, s.Total)
}

// Complete reports whether every piece is present.
func (s Summary) Complete() bool {
	return s.Total > 0 && s.Have >= s.Total
}

// Summarize decodes encoded for pieceCount pieces and counts what is present.
func Summarize(encoded string, pieceCount int) Summary {
	if pieceCount < 0 {
		pieceCount = 0
	}
	b := Decode(encoded, pieceCount)
	if mod := pieceCount % 8; mod != 0 {
		// unused trailing bits are not pieces
		b[len(b)-1] &= ^byte(0xff >> mod)
	}
	return Summary{Have: Count(b), Total: pieceCount}
}

// Grid expands the bitmap into one bool per piece, for rendering.
func Grid(encoded string, pieceCount int) []bool {
	b := Decode(encoded, pieceCount)
	out := make([]bool, max(pieceCount, 0))
	for i := range out {
		out[i] = Has(b, i)
	}
	return out
}

func decodeRaw(encoded string) ([]byte, error) {
	if encoded == "" {
		return nil, nil
	}
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		// some daemons drop padding
		raw, err = base64.RawStdEncoding.DecodeString(encoded)
	}
	return raw, err
}
