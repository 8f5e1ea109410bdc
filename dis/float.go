package dis

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// CoefficientDigits bounds how many significant decimal digits this codec
// keeps from a decoded coefficient before collapsing the rest into a single
// rounding decision (spec §4.1: "when the coefficient's digit count exceeds
// FLT_DIG"). float64 carries at most 17 significant decimal digits without
// loss, so that's the local budget.
const CoefficientDigits = 17

// DecodeFloat decodes two signed integers — a coefficient and a base-10
// exponent — into a float64, rounding any coefficient digits beyond
// CoefficientDigits per the single-digit rounding rule: 0-4 rounds down,
// 6-9 rounds up, and a lone trailing 5 truncates (treated as an exact
// half); any further digit after that 5 is treated as pushing the value
// past the half-way point and rounds up, mirroring the original decoder's
// one-digit lookahead.
func (r *Reader) DecodeFloat() (float64, Status) {
	coeff, digits, sign, st := r.decodeCoefficient()
	if st != StatusSuccess {
		return 0, st
	}
	expon, st := r.DecodeSigned()
	if st != StatusSuccess {
		return 0, st
	}

	skip := 0
	if digits > CoefficientDigits {
		skip = digits - CoefficientDigits
	}
	rounded, dropped := roundCoefficient(coeff, skip)
	effExp := expon + dropped
	_ = digits

	str := fmt.Sprintf("%s%de%d", sign, rounded, effExp)
	v, err := strconv.ParseFloat(str, 64)
	if err != nil {
		return 0, StatusNonDigit
	}
	if math.IsInf(v, 0) {
		return v, StatusOverflow
	}
	return v, StatusSuccess
}

// decodeCoefficient reads the coefficient as a plain digit string (not via
// DecodeSigned, so that the true digit count before any int64 truncation is
// visible to the rounding step) and returns its numeric value, digit count
// and sign.
func (r *Reader) decodeCoefficient() (value uint64, digits int, sign string, st Status) {
	v, neg, st2 := r.decodeDigitsRecurse(1, 0)
	r.Commit(st2 == StatusSuccess)
	if st2 != StatusSuccess {
		return 0, 0, "", st2
	}
	sign = "+"
	if neg {
		sign = "-"
	}
	return v, digitLen(v), sign, StatusSuccess
}

// roundCoefficient drops the low `skip` digits of coeff, applying the
// single-digit rounding rule, and returns the rounded coefficient plus how
// many digits were dropped (to add back onto the exponent).
func roundCoefficient(coeff uint64, skip int) (uint64, int) {
	if skip <= 0 {
		return coeff, 0
	}
	div := uint64(1)
	for i := 0; i < skip; i++ {
		div *= 10
	}
	kept := coeff / div
	firstDropped := (coeff / (div / 10)) % 10
	restNonzero := coeff%(div/10) != 0
	switch {
	case firstDropped >= 6:
		kept++
	case firstDropped == 5 && restNonzero:
		kept++
	case firstDropped == 5:
		// exact half: truncate
	}
	return kept, skip
}

// EncodeFloat writes v as a DIS float: a signed coefficient and a signed
// base-10 exponent, using the shortest decimal coefficient that reproduces
// v exactly (so this codec never needs its own rounding on encode — only
// decode of a peer's higher-precision stream does).
func (w *Writer) EncodeFloat(v float64) {
	if v == 0 {
		w.EncodeSigned(0)
		w.EncodeSigned(0)
		return
	}
	s := strconv.FormatFloat(v, 'e', -1, 64)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	mantissa, expPart, _ := strings.Cut(s, "e")
	exp, _ := strconv.Atoi(expPart)
	intPart, fracPart, _ := strings.Cut(mantissa, ".")
	digits := intPart + fracPart
	// value = 0.digits * 10^(exp+1) with digits as an integer coefficient
	// of len(digits) digits means exponent = exp - len(fracPart).
	coeffExp := exp - len(fracPart)
	coeff, _ := strconv.ParseUint(digits, 10, 64)

	if neg {
		w.EncodeSigned(-int64(coeff))
	} else {
		w.EncodeSigned(int64(coeff))
	}
	w.EncodeSigned(int64(coeffExp))
}
