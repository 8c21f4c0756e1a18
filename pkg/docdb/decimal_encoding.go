// Copyright 2016 The Cockroach Authors.
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
	"math/big"
	"strings"

	"gopkg.in/inf.v0"
)

// Decimal key encoding. A decimal is written as ±0.xyz... * 10^e, where xyz
// is the digit string with no leading or trailing zero. The payload (after
// the outer ValueTypeDecimal type byte already written by the caller) is:
//
//	<group byte> [<uvarint |exponent|>, ones-complemented when exactly one of value and exponent is negative] <ascii digit string, ones-complemented for a negative value> <terminator: 0x00, or 0xFF for a negative value>
//
// The group byte splits decimals into seven ordered bands capturing the
// sign of the value and the sign of the exponent in one bytewise-comparable
// byte. The digit string is kept as ASCII ('0'-'9') rather than a packed
// binary magnitude specifically so neither it nor its complement can
// contain a terminator byte; two decimals with the same group and exponent
// share the same order of magnitude, so their (unpadded,
// trailing-zero-stripped) digit strings compare as plain byte strings. A
// string that is a prefix of another is the smaller magnitude: the 0x00
// terminator sorts it first for a positive value, and the 0xFF terminator
// sorts it last for a negative one, matching numeric order in both cases.
const (
	decimalGroupNegValPosExp  byte = 0x01
	decimalGroupNegValZeroExp byte = 0x02
	decimalGroupNegValNegExp  byte = 0x03
	decimalGroupZero          byte = 0x04
	decimalGroupPosValNegExp  byte = 0x05
	decimalGroupPosValZeroExp byte = 0x06
	decimalGroupPosValPosExp  byte = 0x07

	decimalTerminator    byte = 0x00
	decimalNegTerminator byte = 0xFF
)

func encodeDecimalKey(b []byte, d *inf.Dec) []byte {
	bi := d.UnscaledBig()
	sign := bi.Sign()
	if sign == 0 {
		return append(b, decimalGroupZero)
	}

	neg := sign < 0
	abs := bi
	if neg {
		abs = new(big.Int).Neg(bi)
	}

	digitStr := abs.String()
	nDigits := len(digitStr)
	// d == ±0.digitStr * 10^e, with Scale() such that unscaled * 10^-Scale() == d.
	e := int(-d.Scale()) + nDigits

	digitStr = strings.TrimRight(digitStr, "0")

	var group byte
	switch {
	case neg && e > 0:
		group = decimalGroupNegValPosExp
	case neg && e == 0:
		group = decimalGroupNegValZeroExp
	case neg:
		group = decimalGroupNegValNegExp
	case e < 0:
		group = decimalGroupPosValNegExp
	case e == 0:
		group = decimalGroupPosValZeroExp
	default:
		group = decimalGroupPosValPosExp
	}
	b = append(b, group)

	if e != 0 {
		exp := e
		negExp := e < 0
		if negExp {
			exp = -exp
		}
		start := len(b)
		b = encodeUvarintAscending(b, uint64(exp))
		if neg != negExp {
			onesComplement(b[start:])
		}
	}

	start := len(b)
	b = append(b, digitStr...)
	if neg {
		onesComplement(b[start:])
		return append(b, decimalNegTerminator)
	}

	return append(b, decimalTerminator)
}

func decodeDecimalKey(b []byte) ([]byte, Primitive, error) {
	if len(b) == 0 {
		return nil, Primitive{}, CorruptKeyError("empty decimal payload")
	}
	group := b[0]
	if group == decimalGroupZero {
		return b[1:], NewDecimalPrimitive(inf.NewDec(0, 0)), nil
	}
	b = b[1:]

	neg := group == decimalGroupNegValPosExp || group == decimalGroupNegValZeroExp || group == decimalGroupNegValNegExp
	negExp := group == decimalGroupNegValNegExp || group == decimalGroupPosValNegExp
	zeroExp := group == decimalGroupNegValZeroExp || group == decimalGroupPosValZeroExp

	var exp int
	if !zeroExp {
		if neg != negExp {
			if len(b) < 1 {
				return nil, Primitive{}, CorruptKeyError("truncated decimal exponent")
			}
			realLen := ^b[0]
			if realLen < 1 || realLen > 8 {
				return nil, Primitive{}, CorruptKeyError("invalid decimal exponent length")
			}
			total := 1 + int(realLen)
			if len(b) < total {
				return nil, Primitive{}, CorruptKeyError("truncated decimal exponent body")
			}
			flipped := make([]byte, total)
			copy(flipped, b[:total])
			onesComplement(flipped)
			_, e, err := decodeUvarintAscending(flipped)
			if err != nil {
				return nil, Primitive{}, err
			}
			exp = int(e)
			b = b[total:]
		} else {
			rest, e, err := decodeUvarintAscending(b)
			if err != nil {
				return nil, Primitive{}, err
			}
			exp = int(e)
			b = rest
		}
		if negExp {
			exp = -exp
		}
	}

	term := decimalTerminator
	if neg {
		term = decimalNegTerminator
	}
	idx := indexByte(b, term)
	if idx < 0 {
		return nil, Primitive{}, CorruptKeyError("decimal missing terminator")
	}
	digits := make([]byte, idx)
	copy(digits, b[:idx])
	if neg {
		onesComplement(digits)
	}
	rest := b[idx+1:]

	bi, ok := new(big.Int).SetString(string(digits), 10)
	if !ok {
		return nil, Primitive{}, CorruptKeyError("decimal digit string is not decimal: %q", digits)
	}
	if neg {
		bi.Neg(bi)
	}
	scale := inf.Scale(len(digits) - exp)
	dec := new(inf.Dec)
	dec.SetUnscaledBig(bi)
	dec.SetScale(scale)
	return rest, NewDecimalPrimitive(dec), nil
}

func indexByte(b []byte, c byte) int {
	for i, v := range b {
		if v == c {
			return i
		}
	}
	return -1
}
