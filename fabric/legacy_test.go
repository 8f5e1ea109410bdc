package fabric

import (
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/shoenig/test/must"
)

func TestLegacyDialer_PrefersPrimaryByDefault(t *testing.T) {
	dir := t.TempDir()
	primary, _ := ParseServer("10.0.0.1:15001")
	secondary, _ := ParseServer("10.0.0.2:15001")

	var dialed []string
	d := NewLegacyDialer(primary, secondary, dir, "tester", func(s *Server) error {
		dialed = append(dialed, s.Name)
		return nil
	})

	got, err := d.Connect()
	must.NoError(t, err)
	must.Eq(t, primary.Name, got.Name)
	must.Eq(t, []string{primary.Name}, dialed)

	_, statErr := os.Stat(d.MarkerPath)
	must.Error(t, statErr) // no marker: primary answered on first try
}

func TestLegacyDialer_FallsBackAndCreatesMarker(t *testing.T) {
	dir := t.TempDir()
	primary, _ := ParseServer("10.0.0.1:15001")
	secondary, _ := ParseServer("10.0.0.2:15001")

	d := NewLegacyDialer(primary, secondary, dir, "tester", func(s *Server) error {
		if s.Name == primary.Name {
			return fmt.Errorf("primary down")
		}
		return nil
	})

	got, err := d.Connect()
	must.NoError(t, err)
	must.Eq(t, secondary.Name, got.Name)

	_, statErr := os.Stat(d.MarkerPath)
	must.NoError(t, statErr) // marker created: secondary now preferred
}

func TestLegacyDialer_StickyMarkerPrefersSecondaryNextTime(t *testing.T) {
	dir := t.TempDir()
	primary, _ := ParseServer("10.0.0.1:15001")
	secondary, _ := ParseServer("10.0.0.2:15001")
	marker := filepath.Join(dir, ".pbsrc.tester")
	f, err := os.Create(marker)
	must.NoError(t, err)
	f.Close()

	var order []string
	d := NewLegacyDialer(primary, secondary, dir, "tester", func(s *Server) error {
		order = append(order, s.Name)
		return nil
	})

	got, err := d.Connect()
	must.NoError(t, err)
	must.Eq(t, secondary.Name, got.Name)
	must.Eq(t, []string{secondary.Name}, order)
}

func TestLegacyDialer_BothDown(t *testing.T) {
	dir := t.TempDir()
	primary, _ := ParseServer("10.0.0.1:15001")
	secondary, _ := ParseServer("10.0.0.2:15001")

	d := NewLegacyDialer(primary, secondary, dir, "tester", func(s *Server) error {
		return fmt.Errorf("down")
	})

	_, err := d.Connect()
	must.Error(t, err)
}
