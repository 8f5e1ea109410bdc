package fabric

import (
	"net"
	"testing"

	"github.com/hashicorp/go-hclog"
	"github.com/shoenig/test/must"
)

type fauxPinger struct{}

func (f *fauxPinger) Ping(addr net.Addr) error {
	return nil
}

func testManager(t *testing.T) *Manager {
	return NewManager(hclog.NewNullLogger(), make(chan struct{}), &fauxPinger{})
}

func TestManager_SetServers(t *testing.T) {
	m := testManager(t)
	must.Eq(t, 0, m.NumServers())

	s1, _ := ParseServer("10.0.0.1:15001")
	s2, _ := ParseServer("10.0.0.2:15001")

	must.True(t, m.SetServers([]*Server{s1, s2}))
	must.False(t, m.SetServers([]*Server{s1, s2}))
	must.False(t, m.SetServers([]*Server{s2, s1}))
	must.Eq(t, 2, m.NumServers())

	must.True(t, m.SetServers([]*Server{s1}))
	must.Eq(t, 1, m.NumServers())
}

func TestManager_FindServerAndNotifyFailed(t *testing.T) {
	m := testManager(t)
	must.Nil(t, m.FindServer())

	s1, _ := ParseServer("10.0.0.1:15001")
	s2, _ := ParseServer("10.0.0.2:15001")
	m.SetServers([]*Server{s1, s2})

	first := m.FindServer()
	must.NotNil(t, first)

	m.NotifyFailedServer(first)
	second := m.FindServer()
	must.NotEq(t, first.Key(), second.Key())
}

func TestManager_RebalanceServers(t *testing.T) {
	m := testManager(t)
	s1, _ := ParseServer("10.0.0.1:15001")
	s2, _ := ParseServer("10.0.0.2:15001")
	m.SetServers([]*Server{s1, s2})

	m.RebalanceServers()
	must.Eq(t, 1, m.RebalanceCount())
	must.Eq(t, 2, m.NumServers())
}
