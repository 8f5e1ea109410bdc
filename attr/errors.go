package attr

import "errors"

// errBadAtVal is the sentinel wrapped into the descriptive errors returned
// by this package's parsers, mirroring the original's PBSE_BADATVAL: callers
// that only care whether a value was malformed can test with errors.Is
// instead of parsing message text.
var errBadAtVal = errors.New("attr: bad attribute value")

// errNoPermission mirrors PBSE_PERM: an operator attempted SET/INCR/DECR/
// MERGE on an attribute flagged read-only for its privilege level.
var errNoPermission = errors.New("attr: operation not permitted on attribute")

// errUnknownAttribute mirrors PBSE_UNKATTR: no definition is registered for
// the requested attribute/resource name.
var errUnknownAttribute = errors.New("attr: unknown attribute")

// errIncompatibleOp mirrors PBSE_INTERNAL's use in the operator dispatch
// table: an operator was applied to a value type that does not implement it
// (e.g. MERGE on a Size).
var errIncompatibleOp = errors.New("attr: operator not supported for value type")
