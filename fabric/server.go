// Package fabric implements the client-side connection layer to one or
// more cluster servers: a legacy primary/secondary failover dialer with
// sticky marker-file preference, and a full multi-server Manager/ping-
// based rotation, composed together behind a single Handle.
package fabric

import (
	"fmt"
	"net"
)

// Server is one addressable cluster server endpoint, shared by both the
// legacy and multi-server paths.
type Server struct {
	Name string // host:port as configured
	Addr net.Addr
}

func (s *Server) String() string {
	if s == nil {
		return "<nil>"
	}
	return s.Name
}

// Key returns the equality key used by the Manager's membership check and
// by Handle's server-list deduplication, grounded on
// the original's EndpointKey: two Servers naming the same host are
// interchangeable regardless of resolution order.
func (s *Server) Key() string {
	return s.Name
}

// Pinger checks liveness of a Server, implemented by the transport layer
// (a DIS connect handshake in production, a fake in tests).
type Pinger interface {
	Ping(addr net.Addr) error
}

// ParseServer builds a Server from a host:port string, validating it is at
// least syntactically well-formed.
func ParseServer(hostport string) (*Server, error) {
	host, port, err := net.SplitHostPort(hostport)
	if err != nil {
		return nil, fmt.Errorf("fabric: invalid server address %q: %w", hostport, err)
	}
	return &Server{Name: hostport, Addr: &textAddr{host: host, port: port}}, nil
}

type textAddr struct {
	host, port string
}

func (a *textAddr) Network() string { return "tcp" }
func (a *textAddr) String() string  { return net.JoinHostPort(a.host, a.port) }
