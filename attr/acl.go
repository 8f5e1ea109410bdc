package attr

import (
	"fmt"
	"strings"
)

// ParseACL decodes a comma-separated ACL attribute string into its ordered
// permit/deny tokens, grounded on the original's acl_check/decode_arst
// convention of a leading '+' or '-' per entry (bare entries, with no
// sign, default to permit). Order is preserved since ACL evaluation is
// first-match.
func ParseACL(s string) ([]ACLEntry, error) {
	if s == "" {
		return nil, nil
	}
	parts := strings.Split(s, ",")
	out := make([]ACLEntry, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, fmt.Errorf("attr: empty acl entry: %w", errBadAtVal)
		}
		switch p[0] {
		case '+':
			out = append(out, ACLEntry{Permit: true, Token: p[1:]})
		case '-':
			out = append(out, ACLEntry{Permit: false, Token: p[1:]})
		default:
			out = append(out, ACLEntry{Permit: true, Token: p})
		}
		if out[len(out)-1].Token == "" {
			return nil, fmt.Errorf("attr: acl entry with no token: %w", errBadAtVal)
		}
	}
	return out, nil
}

// Permits walks entries in order and returns the first matching verdict;
// the default when nothing matches is deny, matching the original's
// fail-closed ACL semantics.
func Permits(entries []ACLEntry, token string) bool {
	for _, e := range entries {
		if e.Token == token || e.Token == "*" {
			return e.Permit
		}
	}
	return false
}
