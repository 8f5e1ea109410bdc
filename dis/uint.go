package dis

import "math"

const maxUint64Digits = 20 // len("18446744073709551615")

var uint64Max = []byte("18446744073709551615")

// decodeDigits implements one layer of the recursive counted-digit decode
// (spec §4.1 steps 1-3): the lead byte c has already been read at digit
// window "count". A sign byte terminates the recursion with the magnitude
// formed from the next `count` digits; a decimal digit instead folds into a
// new digit-count and the whole thing recurses with that new window.
func (r *Reader) decodeDigits(c byte, count int, depth int) (uint64, bool, Status) {
	if depth > DISRecursiveLimit {
		return 0, false, StatusProtocol
	}
	switch {
	case c == '+' || c == '-':
		if count > maxUint64Digits {
			return 0, false, StatusOverflow
		}
		digits, st := r.readN(count)
		if st != StatusSuccess {
			return 0, false, st
		}
		if count == maxUint64Digits && string(digits) > string(uint64Max) {
			return 0, false, StatusOverflow
		}
		var v uint64
		for _, d := range digits {
			if d < '0' || d > '9' {
				return 0, false, StatusNonDigit
			}
			v = v*10 + uint64(d-'0')
		}
		return v, c == '-', StatusSuccess
	case c == '0':
		// A leading zero can never legitimately start a digit-count or a
		// sign-terminated magnitude (both are always written without
		// leading zeros); only a corrupted/foreign stream presents one
		// here.
		return 0, false, StatusLeadingZero
	case c >= '1' && c <= '9':
		ndigs := uint64(c - '0')
		if count > 1 {
			if count > maxUint64Digits {
				return 0, false, StatusOverflow
			}
			rest, st := r.readN(count - 1)
			if st != StatusSuccess {
				return 0, false, st
			}
			full := append([]byte{c}, rest...)
			if count == maxUint64Digits && string(full) > string(uint64Max) {
				return 0, false, StatusOverflow
			}
			ndigs = 0
			for _, d := range full {
				if d < '0' || d > '9' {
					return 0, false, StatusNonDigit
				}
				ndigs = ndigs*10 + uint64(d-'0')
			}
		}
		if ndigs == 0 || ndigs > math.MaxInt32 {
			return 0, false, StatusOverflow
		}
		return r.decodeDigitsRecurse(int(ndigs), depth+1)
	default:
		return 0, false, StatusNonDigit
	}
}

func (r *Reader) decodeDigitsRecurse(count int, depth int) (uint64, bool, Status) {
	c, st := r.readByte()
	if st != StatusSuccess {
		return 0, false, st
	}
	return r.decodeDigits(c, count, depth)
}

// DecodeUnsigned decodes a DIS unsigned integer and commits the read on
// success. On any non-success status the stream is rolled back to its
// position before the call, per the reader contract.
func (r *Reader) DecodeUnsigned() (uint64, Status) {
	v, neg, st := r.decodeDigitsRecurse(1, 0)
	if st == StatusSuccess && neg {
		st = StatusNonDigit
	}
	r.Commit(st == StatusSuccess)
	if st != StatusSuccess {
		return 0, st
	}
	return v, StatusSuccess
}

// DecodeSigned decodes a DIS signed integer: a sign byte followed by an
// unsigned magnitude of the recursively-decoded digit count.
func (r *Reader) DecodeSigned() (int64, Status) {
	v, neg, st := r.decodeDigitsRecurse(1, 0)
	r.Commit(st == StatusSuccess)
	if st != StatusSuccess {
		return 0, st
	}
	if neg {
		if v > uint64(math.MaxInt64)+1 {
			return 0, StatusOverflow
		}
		return -int64(v), StatusSuccess
	}
	if v > math.MaxInt64 {
		return 0, StatusOverflow
	}
	return int64(v), StatusSuccess
}

// DecodeUnsignedChar decodes a DIS unsigned integer and checks it fits in a
// byte, returning StatusOverflow otherwise (disruc in the original).
func (r *Reader) DecodeUnsignedChar() (byte, Status) {
	v, st := r.DecodeUnsigned()
	if st != StatusSuccess {
		return 0, st
	}
	if v > 255 {
		return 0, StatusOverflow
	}
	return byte(v), StatusSuccess
}

func digitLen(v uint64) int {
	if v == 0 {
		return 1
	}
	n := 0
	for v > 0 {
		n++
		v /= 10
	}
	return n
}

func formatDigits(v uint64, width int) []byte {
	buf := make([]byte, width)
	for i := width - 1; i >= 0; i-- {
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return buf
}

// emitCount ensures the decode context transitions from `from` digits to
// exactly `to` digits by writing raw (unsigned, unsigned-terminated) digit
// bytes, recursing on the digit-count of `to` first when `to` doesn't
// already fit the current window. This is the exact inverse of the digit
// branch of decodeDigits.
func emitCount(w *Writer, from int, to uint64) {
	if uint64(from) == to {
		return
	}
	toLen := digitLen(to)
	emitCount(w, from, uint64(toLen))
	w.writeBytes(formatDigits(to, toLen))
}

// EncodeUnsigned writes v as a DIS unsigned integer.
func (w *Writer) EncodeUnsigned(v uint64) {
	n := digitLen(v)
	emitCount(w, 1, uint64(n))
	w.writeByte('+')
	w.writeBytes(formatDigits(v, n))
}

// EncodeSigned writes v as a DIS signed integer: the recursive digit-count
// prefix, then a sign byte, then the magnitude's digits.
func (w *Writer) EncodeSigned(v int64) {
	var mag uint64
	var sign byte = '+'
	if v < 0 {
		sign = '-'
		mag = uint64(-(v + 1)) + 1 // avoids overflow on math.MinInt64
	} else {
		mag = uint64(v)
	}
	n := digitLen(mag)
	emitCount(w, 1, uint64(n))
	w.writeByte(sign)
	w.writeBytes(formatDigits(mag, n))
}

// EncodeUnsignedChar writes v (0..255) as a DIS unsigned integer.
func (w *Writer) EncodeUnsignedChar(v byte) {
	w.EncodeUnsigned(uint64(v))
}
