// Package attr implements the typed, resource-qualified attribute model
// the scheduler interprets: attribute definitions and their flags, size
// values, entity limits, ACLs, and the select-spec/nodes-spec grammars.
package attr

import (
	"fmt"
	"math/bits"
	"strconv"
	"strings"
)

// SizeUnit is the base unit a Size value's magnitude is counted in.
type SizeUnit uint8

const (
	UnitBytes SizeUnit = iota
	UnitWords
)

// WordSize is the number of bytes in one "word" for size values expressed
// in words (spec §3 Size value), matching the original's SIZEOF_WORD on a
// 64-bit target.
const WordSize = 8

// kiloShift is the minimum shift normalize ever settles on: shifting below
// it risks losing all magnitude to a plain right-shift and is the
// "kilo-floor" the spec invariant names.
const kiloShift = 10

// Size is the triple (magnitude, shift, unit) of spec §3: the value is
// magnitude * 2^shift * (unit==Words ? WordSize : 1) bytes.
type Size struct {
	Magnitude uint64
	Shift     uint8 // 0, 10, 20, 30, 40, or 50 (b/k/m/g/t/p)
	Unit      SizeUnit
}

var shiftSuffix = map[uint8]byte{10: 'k', 20: 'm', 30: 'g', 40: 't', 50: 'p'}
var suffixShift = map[byte]uint8{'k': 10, 'm': 20, 'g': 30, 't': 40, 'p': 50}

// ParseSize parses the external size form of spec §6:
// "<digits>[kKmMgGtTpP][bBwW]", with a missing unit suffix defaulting to
// bytes. Parsing is strict: any trailing garbage is rejected.
func ParseSize(s string) (Size, error) {
	if s == "" {
		return Size{}, fmt.Errorf("attr: empty size value: %w", errBadAtVal)
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return Size{}, fmt.Errorf("attr: no numeric part in %q: %w", s, errBadAtVal)
	}
	mag, err := strconv.ParseUint(s[:i], 10, 64)
	if err != nil {
		return Size{}, fmt.Errorf("attr: magnitude overflow in %q: %w", s, errBadAtVal)
	}
	rest := s[i:]

	out := Size{Magnitude: mag, Unit: UnitBytes}
	haveBW := false
	if rest != "" {
		c := rest[0]
		switch {
		case c == 'b' || c == 'B':
			haveBW = true
			rest = rest[1:]
		case c == 'w' || c == 'W':
			haveBW = true
			out.Unit = UnitWords
			rest = rest[1:]
		default:
			lower := c | 0x20
			shift, ok := suffixShift[lower]
			if !ok {
				return Size{}, fmt.Errorf("attr: invalid size suffix in %q: %w", s, errBadAtVal)
			}
			out.Shift = shift
			rest = rest[1:]
		}
	}
	if rest != "" {
		if haveBW {
			return Size{}, fmt.Errorf("attr: invalid size string %q: %w", s, errBadAtVal)
		}
		c := rest[0]
		switch {
		case c == 'b' || c == 'B':
		case c == 'w' || c == 'W':
			out.Unit = UnitWords
		default:
			return Size{}, fmt.Errorf("attr: invalid size string %q: %w", s, errBadAtVal)
		}
		rest = rest[1:]
	}
	if rest != "" {
		return Size{}, fmt.Errorf("attr: trailing garbage in size string %q: %w", s, errBadAtVal)
	}
	return out, nil
}

// String renders a Size in the external form: magnitude, shift suffix, unit
// suffix, matching from_size in the original.
func (s Size) String() string {
	var b strings.Builder
	b.WriteString(strconv.FormatUint(s.Magnitude, 10))
	if suf, ok := shiftSuffix[s.Shift]; ok {
		b.WriteByte(suf)
	}
	if s.Unit == UnitWords {
		b.WriteByte('w')
	} else {
		b.WriteByte('b')
	}
	return b.String()
}

// normalizeOne rounds a shift-0 ("plain units") size up to the kilo floor,
// as normalize_size does for each operand independently before comparing
// shifts.
func normalizeOne(s Size) Size {
	if s.Shift != 0 {
		return s
	}
	return Size{Magnitude: (s.Magnitude + 1023) >> 10, Shift: kiloShift, Unit: s.Unit}
}

// Normalize converts a and b to a common unit (words promote to bytes) and
// a common shift no smaller than the kilo floor, per spec §3/§4.2: the
// operand with the larger shift is shifted left down to the smaller one.
// It returns ok=false, with a and b handed back unmodified, when that
// alignment would overflow a left shift.
func Normalize(a, b Size) (na, nb Size, ok bool) {
	na, nb = a, b
	if na.Unit == UnitWords && nb.Unit != UnitWords {
		na.Magnitude *= WordSize
		na.Unit = UnitBytes
	} else if na.Unit != UnitWords && nb.Unit == UnitWords {
		nb.Magnitude *= WordSize
		nb.Unit = UnitBytes
	}
	na = normalizeOne(na)
	nb = normalizeOne(nb)

	switch {
	case na.Shift > nb.Shift:
		adj := na.Shift - nb.Shift
		shifted, carried := shiftLeftChecked(na.Magnitude, adj)
		if carried {
			return a, b, false
		}
		na.Magnitude = shifted
		na.Shift = nb.Shift
	case nb.Shift > na.Shift:
		adj := nb.Shift - na.Shift
		shifted, carried := shiftLeftChecked(nb.Magnitude, adj)
		if carried {
			return a, b, false
		}
		nb.Magnitude = shifted
		nb.Shift = na.Shift
	}
	return na, nb, true
}

func shiftLeftChecked(v uint64, shift uint8) (uint64, bool) {
	if shift >= 64 {
		return 0, true
	}
	shifted := v << shift
	if bits.LeadingZeros64(v) < int(shift) {
		return 0, true
	}
	return shifted, false
}

// Compare returns -1, 0 or 1 for a<b, a==b, a>b. If normalization would
// overflow, comparison falls back to comparing shifts only: the invariant
// is that this never itself overflows (spec §4.2, testable property 5).
func Compare(a, b Size) int {
	na, nb, ok := Normalize(a, b)
	if !ok {
		switch {
		case a.Shift > b.Shift:
			return 1
		case a.Shift < b.Shift:
			return -1
		default:
			return 0
		}
	}
	switch {
	case na.Magnitude > nb.Magnitude:
		return 1
	case na.Magnitude < nb.Magnitude:
		return -1
	default:
		return 0
	}
}

// Add returns a+b normalized, or ok=false on overflow (either from
// normalization or from the sum itself wrapping).
func Add(a, b Size) (Size, bool) {
	na, nb, ok := Normalize(a, b)
	if !ok {
		return Size{}, false
	}
	sum := na.Magnitude + nb.Magnitude
	if sum < na.Magnitude {
		return Size{}, false
	}
	return Size{Magnitude: sum, Shift: na.Shift, Unit: na.Unit}, true
}

// Sub returns a-b normalized, or ok=false on overflow/underflow.
func Sub(a, b Size) (Size, bool) {
	na, nb, ok := Normalize(a, b)
	if !ok {
		return Size{}, false
	}
	if nb.Magnitude > na.Magnitude {
		return Size{}, false
	}
	return Size{Magnitude: na.Magnitude - nb.Magnitude, Shift: na.Shift, Unit: na.Unit}, true
}

// bytesOf is the unnormalized exact byte count of s, used by InKB/InBytes.
func bytesOf(s Size) uint64 {
	v := s.Magnitude
	if s.Unit == UnitWords {
		v *= WordSize
	}
	if s.Shift == 0 {
		return v
	}
	return v << s.Shift
}

// InKB returns s rounded up to the nearest kilobyte, matching
// get_kilobytes_from_attr: an unset shift rounds the raw magnitude up,
// otherwise the already-shifted magnitude is shifted down to kilo scale.
func InKB(s Size) uint64 {
	v := s.Magnitude
	if s.Unit == UnitWords {
		v *= WordSize
	}
	if s.Shift == 0 {
		return (v + 1023) >> 10
	}
	return v << (s.Shift - kiloShift)
}

// InBytes returns the exact byte count of s, matching get_bytes_from_attr.
func InBytes(s Size) uint64 {
	return bytesOf(s)
}
