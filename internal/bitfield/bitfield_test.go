// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package bitfield

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name       string
		encoded    string
		pieceCount int
		want       []byte
	}{
		{name: "truncates to piece count", encoded: "/w8=", pieceCount: 8, want: []byte{0xff}},
		{name: "partial last byte", encoded: "/w8=", pieceCount: 12, want: []byte{0xff, 0x0f}},
		{name: "pads short input", encoded: "/w8=", pieceCount: 24, want: []byte{0xff, 0x0f, 0x00}},
		{name: "missing padding", encoded: "/w8", pieceCount: 16, want: []byte{0xff, 0x0f}},
		{name: "malformed", encoded: "!!not base64", pieceCount: 9, want: []byte{0x00, 0x00}},
		{name: "empty", encoded: "", pieceCount: 3, want: []byte{0x00}},
		{name: "no pieces", encoded: "/w8=", pieceCount: 0, want: []byte{}},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Decode(tt.encoded, tt.pieceCount))
		})
	}
}

func TestPopcount(t *testing.T) {
	assert.Equal(t, 12, Popcount("/w8="))
	assert.Equal(t, 0, Popcount(""))
	assert.Equal(t, 0, Popcount("%%%"))
	assert.Equal(t, 2, Popcount("gEA="))
}

func TestPopcountOfDecodeMatchesPrefix(t *testing.T) {
	raw := []byte{0xaa, 0x01, 0xff, 0x70, 0x03}
	encoded := base64.StdEncoding.EncodeToString(raw)

	for n := 0; n <= len(raw)*8+9; n++ {
		prefix := raw[:min(ByteLen(n), len(raw))]
		want := 0
		for _, b := range prefix {
			for bit := 0; bit < 8; bit++ {
				if b&(1<<bit) != 0 {
					want++
				}
			}
		}
		assert.Equal(t, want, Count(Decode(encoded, n)), "pieceCount=%d", n)
	}
}

func TestHas(t *testing.T) {
	b := []byte{0x80, 0x40}

	assert.True(t, Has(b, 0))
	assert.False(t, Has(b, 1))
	assert.False(t, Has(b, 8))
	assert.True(t, Has(b, 9))
	assert.False(t, Has(b, 16))
	assert.False(t, Has(b, -1))
}

func TestEncode(t *testing.T) {
	pieces := make([]bool, 10)
	pieces[0] = true
	pieces[9] = true

	encoded := Encode(pieces)
	assert.Equal(t, "gEA=", encoded)
	assert.Equal(t, pieces, Grid(encoded, 10))
}

func TestSummarize(t *testing.T) {
	s := Summarize("/w8=", 12)
	assert.Equal(t, Summary{Have: 8, Total: 12}, s)
	assert.Equal(t, "8/12 pieces", s.String())
	assert.False(t, s.Complete())

	full := Summarize(Encode([]bool{true, true, true}), 3)
	assert.True(t, full.Complete())
	assert.Equal(t, "3/3 pieces", full.String())

	assert.Equal(t, Summary{}, Summarize("/w8=", -4))
}
