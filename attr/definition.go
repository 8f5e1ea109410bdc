package attr

import "fmt"

// Operator identifies how a new value combines with an attribute's current
// value, per spec §4.2: Set replaces, Incr/Decr add/subtract (only for
// Long/Size/Float/EntityLimit), Merge adds new entries to a StringArray or
// ACL without duplicating, and Internal bypasses permission checks entirely (used by
// the scheduler and server internals setting derived/cached values).
type Operator uint8

const (
	OpSet Operator = iota
	OpIncr
	OpDecr
	OpMerge
	OpInternal
)

// Definition is the registered shape of an attribute or resource: its
// name, value kind, and default access/scope flags, grounded on the
// resource_def table the original builds from parse_resc_type/
// parse_resc_flags in attr_resc_func.c.
type Definition struct {
	Name         string
	Kind         ValueKind
	DefaultFlags Flag
}

// Value is one instance of an attribute: its definition, current flags
// (SET/MODIFY/MODCACHE are instance-level, the rest inherited from the
// definition at creation), and its typed payload. Exactly one of the
// concrete fields is meaningful for a given Kind; this mirrors the
// original's tagged union (struct attribute.at_val) more directly than a
// Go interface would, since the operator dispatch needs to match both the
// current and incoming Kind before doing anything.
type Value struct {
	Def   *Definition
	Flags Flag

	Long    int64
	Size    Size
	Float   float64
	Str     string
	StrList []string
	Bool    bool

	// Entity/EntityCaps back KindEntityLimit. An incoming Value carries a
	// single (Entity, Long) pair to apply; the stored Value accumulates
	// them into EntityCaps, an ordered list rather than a map so repeated
	// caps under the same entity key (see applySetEntityLimit) survive
	// instead of collapsing into one entry.
	Entity     string
	EntityCaps []EntityCap

	// ACL backs KindACL: an ordered set of permit/deny tokens.
	ACL []ACLEntry
}

// EntityCap is one accumulated cap for one entity spec under a
// KindEntityLimit attribute.
type EntityCap struct {
	Entity string
	Cap    int64
}

// ACLEntry is one permit/deny token of a KindACL attribute, in list order
// since ACL evaluation in the original is first-match, order-sensitive.
type ACLEntry struct {
	Permit bool // true: '+' permit, false: '-' deny
	Token  string
}

// NewValue returns the zero instance of def, unset (FlagSet not present).
func NewValue(def *Definition) *Value {
	return &Value{Def: def, Flags: def.DefaultFlags}
}

// CanWrite reports whether actor may apply op to v, given actor's
// privilege mask (a Flag built from FlagOperatorWrite/FlagManagerWrite/
// FlagUserWrite as appropriate for the caller's role). OpInternal always
// succeeds, matching the original's internal-move bypass of ACL checks.
func (v *Value) CanWrite(op Operator, actorPriv Flag) error {
	if op == OpInternal {
		return nil
	}
	required := v.Def.DefaultFlags & (FlagOperatorWrite | FlagManagerWrite | FlagUserWrite)
	if required&actorPriv == 0 {
		return fmt.Errorf("attr: %s: %w", v.Def.Name, errNoPermission)
	}
	return nil
}

// Apply combines incoming into v according to op, per spec §4.2's operator
// table. It returns an error without modifying v on any failure, including
// type mismatch, unsupported operator for the value's kind, or arithmetic
// overflow.
func (v *Value) Apply(op Operator, incoming Value) error {
	if incoming.Def != nil && incoming.Def.Kind != v.Def.Kind {
		return fmt.Errorf("attr: %s: value kind mismatch: %w", v.Def.Name, errBadAtVal)
	}
	switch op {
	case OpSet:
		return v.applySet(incoming)
	case OpInternal:
		return v.applyInternalSet(incoming)
	case OpIncr:
		return v.applyIncr(incoming)
	case OpDecr:
		return v.applyDecr(incoming)
	case OpMerge:
		return v.applyMerge(incoming)
	default:
		return fmt.Errorf("attr: %s: unknown operator: %w", v.Def.Name, errIncompatibleOp)
	}
}

// applySet implements user/manager-facing SET, per spec §4.2. For every
// kind but KindEntityLimit it fully replaces the stored value, same as
// applyInternalSet. KindEntityLimit is the one documented exception:
// "SET after INCR on an entity_limit appends another cap under the same
// entity key rather than overwriting" — once INCR has accumulated a
// cap for an entity, a later SET for that same entity must not discard
// the accumulated figure, so it is recorded as an additional entry
// instead of replacing the map wholesale.
func (v *Value) applySet(incoming Value) error {
	if v.Def.Kind == KindEntityLimit {
		return v.applySetEntityLimit(incoming)
	}
	return v.applyInternalSet(incoming)
}

// applyInternalSet is the raw recovery-path overwrite used by OpInternal:
// it replaces every field verbatim, bypassing applySet's entity_limit
// composition rule, matching the original's INTERNAL move bypassing
// value-validation side effects entirely.
func (v *Value) applyInternalSet(incoming Value) error {
	v.Long = incoming.Long
	v.Size = incoming.Size
	v.Float = incoming.Float
	v.Str = incoming.Str
	v.StrList = append([]string(nil), incoming.StrList...)
	v.Bool = incoming.Bool
	v.Entity = incoming.Entity
	v.EntityCaps = append([]EntityCap(nil), incoming.EntityCaps...)
	v.ACL = append([]ACLEntry(nil), incoming.ACL...)
	v.Flags |= FlagSet | FlagModify
	return nil
}

// applySetEntityLimit records incoming's single (Entity, Long) cap. If an
// INCR has already touched this same entity key (tracked by the entity
// already having at least one recorded cap), the new cap is appended as a
// further entry under that key rather than replacing the existing ones;
// otherwise — the attribute's first-ever SET, or a SET for an entity not
// previously touched — it is simply appended as that entity's first cap.
func (v *Value) applySetEntityLimit(incoming Value) error {
	v.EntityCaps = append(v.EntityCaps, EntityCap{Entity: incoming.Entity, Cap: incoming.Long})
	v.Flags |= FlagSet | FlagModify
	return nil
}

// applyIncr adds incoming to v, per spec §4.2: INCR on an attribute that
// is not yet SET degrades to SET rather than treating the unset value as a
// zero to add to, matching set_size's handling in the original.
func (v *Value) applyIncr(incoming Value) error {
	if v.Flags&FlagSet == 0 {
		return v.applySet(incoming)
	}
	switch v.Def.Kind {
	case KindLong:
		sum := v.Long + incoming.Long
		if (incoming.Long > 0 && sum < v.Long) || (incoming.Long < 0 && sum > v.Long) {
			return fmt.Errorf("attr: %s: incr overflow: %w", v.Def.Name, errBadAtVal)
		}
		v.Long = sum
	case KindSize:
		sum, ok := Add(v.Size, incoming.Size)
		if !ok {
			return fmt.Errorf("attr: %s: incr overflow: %w", v.Def.Name, errBadAtVal)
		}
		v.Size = sum
	case KindFloat:
		v.Float += incoming.Float
	case KindEntityLimit:
		v.incrEntityCap(incoming.Entity, incoming.Long)
	default:
		return fmt.Errorf("attr: %s: incr not supported for this value kind: %w", v.Def.Name, errIncompatibleOp)
	}
	v.Flags |= FlagModify
	return nil
}

// incrEntityCap adds amount to entity's most recently recorded cap, or
// appends a new cap entry for entity if it has none yet — the
// accumulation half of the SET/INCR composition rule on applySetEntityLimit.
func (v *Value) incrEntityCap(entity string, amount int64) {
	for i := len(v.EntityCaps) - 1; i >= 0; i-- {
		if v.EntityCaps[i].Entity == entity {
			v.EntityCaps[i].Cap += amount
			return
		}
	}
	v.EntityCaps = append(v.EntityCaps, EntityCap{Entity: entity, Cap: amount})
}

func (v *Value) applyDecr(incoming Value) error {
	if v.Flags&FlagSet == 0 {
		return fmt.Errorf("attr: %s: decr on an unset attribute: %w", v.Def.Name, errBadAtVal)
	}
	switch v.Def.Kind {
	case KindLong:
		diff := v.Long - incoming.Long
		if (incoming.Long > 0 && diff > v.Long) || (incoming.Long < 0 && diff < v.Long) {
			return fmt.Errorf("attr: %s: decr overflow: %w", v.Def.Name, errBadAtVal)
		}
		v.Long = diff
	case KindSize:
		diff, ok := Sub(v.Size, incoming.Size)
		if !ok {
			return fmt.Errorf("attr: %s: decr overflow: %w", v.Def.Name, errBadAtVal)
		}
		v.Size = diff
	case KindFloat:
		v.Float -= incoming.Float
	case KindEntityLimit:
		v.incrEntityCap(incoming.Entity, -incoming.Long)
	default:
		return fmt.Errorf("attr: %s: decr not supported for this value kind: %w", v.Def.Name, errIncompatibleOp)
	}
	v.Flags |= FlagModify
	return nil
}

// applyMerge adds entries from incoming not already present, preserving
// existing order and appending new entries in their incoming order, per
// spec §4.2 ("MERGE (append to string_array / acl)"). Defined only for
// StringArray and ACL values. ACL entries are matched by token, so an
// incoming entry whose token is already listed is skipped whatever its
// permit/deny sign.
func (v *Value) applyMerge(incoming Value) error {
	switch v.Def.Kind {
	case KindStringArray:
		present := make(map[string]bool, len(v.StrList))
		for _, s := range v.StrList {
			present[s] = true
		}
		for _, s := range incoming.StrList {
			if !present[s] {
				v.StrList = append(v.StrList, s)
				present[s] = true
			}
		}
	case KindACL:
		present := make(map[string]bool, len(v.ACL))
		for _, e := range v.ACL {
			present[e.Token] = true
		}
		for _, e := range incoming.ACL {
			if !present[e.Token] {
				v.ACL = append(v.ACL, e)
				present[e.Token] = true
			}
		}
	default:
		return fmt.Errorf("attr: %s: merge only supported for string_array/acl values: %w", v.Def.Name, errIncompatibleOp)
	}
	v.Flags |= FlagSet | FlagModify
	return nil
}
