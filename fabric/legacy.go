package fabric

import (
	"fmt"
	"os"
	"path/filepath"
)

// LegacyDialer implements the older, pre-multi-server failover: exactly
// one primary and one secondary server, tried in an order that remembers
// which one last answered, via a marker file on disk. Grounded on
// pbs_connect.c's CHECK_FILE branch: a stat() on ".pbsrc.<user>" decides
// whether the secondary is tried first, and a successful connect to the
// non-preferred server updates the marker so the next call prefers it.
type LegacyDialer struct {
	Primary   *Server
	Secondary *Server

	// MarkerPath is the file whose mere existence means "prefer the
	// secondary". Empty disables the stickiness (every call tries the
	// primary first).
	MarkerPath string

	Dial func(*Server) error
}

// NewLegacyDialer builds a dialer for a single failover pair, with the
// marker file conventionally named the way the original names it:
// <tmpdir>/.pbsrc.<user>.
func NewLegacyDialer(primary, secondary *Server, tmpdir, user string, dial func(*Server) error) *LegacyDialer {
	return &LegacyDialer{
		Primary:    primary,
		Secondary:  secondary,
		MarkerPath: filepath.Join(tmpdir, fmt.Sprintf(".pbsrc.%s", user)),
		Dial:       dial,
	}
}

// preferSecondary reports whether the marker file is present.
func (d *LegacyDialer) preferSecondary() bool {
	if d.MarkerPath == "" {
		return false
	}
	_, err := os.Stat(d.MarkerPath)
	return err == nil
}

// Connect tries the preferred server first and falls back to the other,
// updating the marker file to reflect which one answered so the next
// Connect call in a new process prefers it immediately. It returns the
// server that succeeded, or an error naming both failures.
func (d *LegacyDialer) Connect() (*Server, error) {
	order := []*Server{d.Primary, d.Secondary}
	usingSecondary := d.preferSecondary()
	if usingSecondary {
		order = []*Server{d.Secondary, d.Primary}
	}

	var firstErr error
	for i, s := range order {
		if err := d.Dial(s); err != nil {
			if i == 0 {
				firstErr = err
				continue
			}
			return nil, fmt.Errorf("fabric: both primary and secondary unreachable: %v, %w", firstErr, err)
		}
		d.updateMarker(i, usingSecondary)
		return s, nil
	}
	return nil, fmt.Errorf("fabric: no servers configured")
}

// updateMarker writes or removes the marker file when the try order's
// second entry had to be used (fellIdx == 1), matching the original: a
// preferred-primary connection that had to fall back to the secondary
// creates the marker; a preferred-secondary connection that had to fall
// back to the primary removes it. Succeeding on the first try never
// touches the marker.
func (d *LegacyDialer) updateMarker(fellIdx int, wasPreferringSecondary bool) {
	if d.MarkerPath == "" || fellIdx == 0 {
		return
	}
	if wasPreferringSecondary {
		os.Remove(d.MarkerPath)
		return
	}
	f, err := os.OpenFile(d.MarkerPath, os.O_WRONLY|os.O_CREATE, 0200)
	if err == nil {
		f.Close()
	}
}
