package fabric

import (
	"math/rand"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/hashicorp/go-hclog"
)

// clientRPCMinReuseDuration is the minimum amount of time a connection to a
// server should be reused before rebalancing, mirroring the new-style
// manager's ClientRPCMinReuseDuration.
const clientRPCMinReuseDuration = 5 * time.Minute

// Manager tracks the full set of known cluster servers and hands out the
// next one to try, rotating away from servers that report failures. It is
// the new-style multi-server fabric: unlike the legacy dialer, it never
// assumes there are only two candidates.
type Manager struct {
	logger   hclog.Logger
	pool     Pinger
	shutdown <-chan struct{}

	mu      sync.Mutex
	servers []*Server

	rebalanceCount uint32
}

// NewManager builds a Manager with no servers configured; call SetServers
// to populate it.
func NewManager(logger hclog.Logger, shutdownCh <-chan struct{}, pool Pinger) *Manager {
	return &Manager{
		logger:   logger.Named("fabric.manager"),
		pool:     pool,
		shutdown: shutdownCh,
	}
}

// NumServers returns the number of servers currently known.
func (m *Manager) NumServers() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.servers)
}

// GetServers returns a copy of the current server list in rotation order.
func (m *Manager) GetServers() []*Server {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]*Server, len(m.servers))
	copy(out, m.servers)
	return out
}

// SetServers replaces the known server set. It reports whether the set
// actually changed (by membership, not by order) so callers can skip a
// rebalance when a refresh brought back the same servers. When the
// incoming set has different membership than the current one, the new
// list is shuffled so repeated SetServers calls from many clients do not
// all converge on hammering the same first server.
func (m *Manager) SetServers(servers []*Server) bool {
	if len(servers) == 0 {
		return false
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if sameMembership(m.servers, servers) {
		return false
	}

	shuffled := make([]*Server, len(servers))
	copy(shuffled, servers)
	rand.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
	m.servers = shuffled
	return true
}

func sameMembership(a, b []*Server) bool {
	if len(a) != len(b) {
		return false
	}
	keys := make(map[string]bool, len(a))
	for _, s := range a {
		keys[s.Key()] = true
	}
	for _, s := range b {
		if !keys[s.Key()] {
			return false
		}
	}
	return true
}

// FindServer returns the next server to try, or nil if none are known. It
// does not mutate the rotation; a failed attempt must call
// NotifyFailedServer to push that server to the back.
func (m *Manager) FindServer() *Server {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.servers) == 0 {
		return nil
	}
	return m.servers[0]
}

// NotifyFailedServer moves server to the back of the rotation so the next
// FindServer call prefers a different one.
func (m *Manager) NotifyFailedServer(server *Server) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.servers) < 2 || m.servers[0].Key() != server.Key() {
		return
	}
	m.servers = append(m.servers[1:], m.servers[0])
}

// RebalanceServers re-shuffles the known servers and pings each, dropping
// (actually, demoting) any that fail to respond; it is invoked
// periodically so that a server returning to health is retried instead of
// abandoned forever.
func (m *Manager) RebalanceServers() {
	atomic.AddUint32(&m.rebalanceCount, 1)
	m.mu.Lock()
	servers := make([]*Server, len(m.servers))
	copy(servers, m.servers)
	m.mu.Unlock()

	rand.Shuffle(len(servers), func(i, j int) { servers[i], servers[j] = servers[j], servers[i] })

	healthy := make([]*Server, 0, len(servers))
	var unhealthy []*Server
	for _, s := range servers {
		if err := m.pool.Ping(s.Addr); err != nil {
			m.logger.Debug("server failed ping during rebalance", "server", s, "error", err)
			unhealthy = append(unhealthy, s)
			continue
		}
		healthy = append(healthy, s)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.servers = append(healthy, unhealthy...)
	m.logger.Debug("rebalance complete", "servers", sortedServerNames(m.servers))
}

// RebalanceCount reports how many rebalance passes have run, for tests and
// metrics.
func (m *Manager) RebalanceCount() int {
	return int(atomic.LoadUint32(&m.rebalanceCount))
}

// NeedsRebalance reports whether enough time has passed since last to
// justify another RebalanceServers pass, so callers driving a periodic
// loop don't thrash the connection pool.
func NeedsRebalance(last time.Time) bool {
	return time.Since(last) >= clientRPCMinReuseDuration
}

// sortedServerNames is a small helper used by logging call sites that want
// a deterministic server list rendering rather than the live rotation
// order.
func sortedServerNames(servers []*Server) []string {
	names := make([]string, len(servers))
	for i, s := range servers {
		names[i] = s.Name
	}
	sort.Strings(names)
	return names
}
