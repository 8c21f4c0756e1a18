// Copyright 2014 The Cockroach Authors.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or
// implied. See the License for the specific language governing
// permissions and limitations under the License.

package docdb

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/inf.v0"
)

func TestDecimalKeyRoundTrip(t *testing.T) {
	cases := []*inf.Dec{
		inf.NewDec(0, 0),
		inf.NewDec(1, 0),
		inf.NewDec(-1, 0),
		inf.NewDec(12345, 2),
		inf.NewDec(-12345, 2),
		inf.NewDec(1, 10),
		inf.NewDec(-1, 10),
		inf.NewDec(100, 0),
		inf.NewDec(1, -5),
	}
	for _, d := range cases {
		enc := encodeDecimalKey(nil, d)
		rest, p, err := decodeDecimalKey(enc)
		require.NoError(t, err)
		require.Empty(t, rest)
		require.Equal(t, 0, d.Cmp(p.AsDecimal()), "round trip mismatch for %s, got %s", d, p.AsDecimal())
	}
}

func TestDecimalKeyOrderPreserving(t *testing.T) {
	ordered := []*inf.Dec{
		inf.NewDec(-1000, 0),
		inf.NewDec(-100, 0),
		inf.NewDec(-1, 1), // -0.1
		inf.NewDec(0, 0),
		inf.NewDec(1, 1), // 0.1
		inf.NewDec(1, 0),
		inf.NewDec(100, 0),
		inf.NewDec(1000, 0),
	}
	var encs [][]byte
	for _, d := range ordered {
		encs = append(encs, encodeDecimalKey(nil, d))
	}
	for i := 1; i < len(encs); i++ {
		require.True(t, bytes.Compare(encs[i-1], encs[i]) < 0,
			"expected enc(%s) < enc(%s)", ordered[i-1], ordered[i])
	}
}

func TestDecimalKeyDigitStringNeverContainsTerminatorByte(t *testing.T) {
	// The digit string is ASCII '0'-'9' (never complemented past that range
	// for a positive value), so it can never be mistaken for the 0x00
	// terminator mid-payload.
	d := inf.NewDec(102030, 0)
	enc := encodeDecimalKey(nil, d)
	digits := enc[1 : len(enc)-1] // strip leading group byte, trailing terminator
	for _, b := range digits {
		require.NotEqual(t, decimalTerminator, b)
	}
}
