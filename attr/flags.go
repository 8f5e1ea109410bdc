package attr

import "fmt"

// Flag is a bitmask of per-instance state (SET/MODIFY/MODCACHE) and
// per-definition access control and resource-scope bits, mirroring the
// original's ATR_VFLAG_* and ATR_DFLAG_* families collapsed into a single
// space since Go has no overlapping-macro-namespace concern.
type Flag uint32

const (
	// Instance flags: set on a live attribute value, not its definition.
	FlagSet Flag = 1 << iota
	FlagModify
	FlagModCache

	// Access control flags: who may read/write this attribute, grounded on
	// the original's ATR_DFLAG_{OPRD,OPWR,MGRD,MGWR,USRD,USWR}.
	FlagOperatorRead
	FlagOperatorWrite
	FlagManagerRead
	FlagManagerWrite
	FlagUserRead
	FlagUserWrite
	FlagNoUserSet

	// Resource-scope flags, grounded on parse_resc_flags in
	// attr_resc_func.c: 'h' ties 'n'/'f' to select-spec conversion, 'q'
	// marks a resource counted against queue/server limits, 'n' marks node
	// level assigned-resource accounting, 'f' marks host-level, 'm' marks a
	// MoM-reported (not scheduler-settable) resource, and 'i'/'r' are the
	// invisible/read-only shorthands parsed specially below.
	FlagConvertSelect // h
	FlagRescAssnQueue // q
	FlagRescAssnHost  // f
	FlagRescAssnNode  // n
	FlagMom           // m
)

// ReadWrite is the default access mask: both operator and manager may read
// and write, matching READ_WRITE in the original.
const ReadWrite = FlagOperatorRead | FlagOperatorWrite | FlagManagerRead | FlagManagerWrite | FlagUserRead | FlagUserWrite

// Invisible is the access mask 'i' sets: readable/writable only by operator
// and manager, never by an unprivileged user.
const Invisible = FlagOperatorRead | FlagOperatorWrite | FlagManagerRead | FlagManagerWrite

// ParseResourceFlags parses a resource definition's flag letters
// (q, f, n, h, m, r, i) per spec §4.2/§6, grounded on parse_resc_flags.
// Every 'r' and every 'i' is counted in irCount, repeats included; a count
// of 2 is reported as the 'i'/'r' conflict by VerifyResourceTypeAndFlags,
// not here, matching the original's two-pass structure.
func ParseResourceFlags(s string) (resc Flag, irCount int, err error) {
	resc = ReadWrite
	for _, c := range s {
		switch c {
		case 'q':
			resc |= FlagRescAssnQueue
		case 'f':
			resc |= FlagRescAssnHost
		case 'n':
			resc |= FlagRescAssnNode
		case 'h':
			resc |= FlagConvertSelect
		case 'm':
			resc |= FlagMom
		case 'r':
			if irCount == 0 {
				resc &^= ReadWrite
				resc |= FlagNoUserSet | FlagUserRead | FlagOperatorRead | FlagOperatorWrite | FlagManagerRead | FlagManagerWrite
			}
			irCount++
		case 'i':
			resc &^= ReadWrite
			resc |= Invisible
			irCount++
		default:
			return 0, 0, fmt.Errorf("attr: unrecognized resource flag %q: %w", c, errBadAtVal)
		}
	}
	return resc, irCount, nil
}

// ValueKind identifies a Size/Long/String/Boolean/StringArray value type,
// used by VerifyResourceTypeAndFlags to reject flag/type combinations that
// make no sense together (e.g. 'q' on a string resource).
type ValueKind uint8

const (
	KindLong ValueKind = iota
	KindSize
	KindFloat
	KindString
	KindStringArray
	KindBoolean
	// KindEntityLimit holds an ordered list of (entity spec, cap) pairs,
	// e.g. "u:joe" or "g:staff" mapped to a numeric cap, per spec
	// §3/§4.2. SET and INCR compose rather than simply overwrite — see
	// Value.EntityCaps.
	KindEntityLimit
	// KindACL holds an ordered set of permit/deny tokens, per spec §3.
	// Only SET and MERGE (append) are defined for it.
	KindACL
)

// VerifyResourceTypeAndFlags checks a resource definition's type against
// its flags, optionally autocorrecting inconsistencies the way a server
// started with its autocorrect option does, grounded on
// verify_resc_type_and_flags. It returns the corrected flags, a human
// readable note when a correction was made, and an error only when
// autocorrect is false and an inconsistency was found.
func VerifyResourceTypeAndFlags(kind ValueKind, irCount int, resc Flag, name string, autocorrect bool) (Flag, string, error) {
	if irCount == 2 {
		msg := fmt.Sprintf("resource %q: flags 'i' and 'r' both set", name)
		if !autocorrect {
			return resc, "", fmt.Errorf("attr: %s: %w", msg, errBadAtVal)
		}
	}

	corrected := false
	var note string

	if resc&(FlagRescAssnHost|FlagRescAssnNode) != 0 && resc&FlagConvertSelect == 0 {
		c := 'f'
		if resc&FlagRescAssnNode != 0 {
			c = 'n'
		}
		msg := fmt.Sprintf("resource %q: flag '%c' set without 'h'", name, c)
		if !autocorrect {
			return resc, "", fmt.Errorf("attr: %s: %w", msg, errBadAtVal)
		}
		resc |= FlagConvertSelect
		note = msg + "; adding 'h' flag"
		corrected = true
	}

	if resc&(FlagRescAssnHost|FlagRescAssnNode) == (FlagRescAssnHost | FlagRescAssnNode) {
		msg := fmt.Sprintf("resource %q: flags 'n' and 'f' both set", name)
		if !autocorrect {
			return resc, "", fmt.Errorf("attr: %s: %w", msg, errBadAtVal)
		}
		resc &^= FlagRescAssnHost
		note = msg + "; ignoring 'f' flag"
		corrected = true
	}

	if kind == KindBoolean || kind == KindString || kind == KindStringArray {
		if resc&(FlagRescAssnQueue|FlagRescAssnHost|FlagRescAssnNode) != 0 {
			msg := fmt.Sprintf("resource %q: flag 'n', 'f', or 'q' set on a string/string_array/boolean resource", name)
			if !autocorrect {
				return resc, "", fmt.Errorf("attr: %s: %w", msg, errBadAtVal)
			}
			resc &^= FlagRescAssnQueue | FlagRescAssnHost | FlagRescAssnNode
			note = msg + "; ignoring those flags"
			corrected = true
		}
	}

	if autocorrect && corrected {
		return resc, note, nil
	}
	return resc, "", nil
}
