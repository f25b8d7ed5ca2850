package onvif

import (
	"context"
	"net"
	"syscall"

	"github.com/juju/errors"
	"github.com/rs/zerolog"
	"golang.org/x/net/ipv4"
)

// listenUDP opens the discovery socket. SO_REUSEADDR lets discovery run
// next to other WS-Discovery clients on the host.
func listenUDP(ctx context.Context) (net.PacketConn, error) {
	lc := net.ListenConfig{
		Control: func(network, address string, c syscall.RawConn) error {
			return c.Control(func(fd uintptr) {
				_ = setsockoptInt(fd, syscall.SOL_SOCKET, syscall.SO_REUSEADDR, 1)
			})
		},
	}

	conn, err := lc.ListenPacket(ctx, "udp4", "0.0.0.0:0")
	if err != nil {
		return nil, errors.Annotate(err, "onvif: discovery socket")
	}
	return conn, nil
}

// multicastGroup is the group membership of a discovery socket on every
// usable interface
type multicastGroup struct {
	pc     *ipv4.PacketConn
	conn   net.PacketConn
	group  *net.UDPAddr
	ifaces []net.Interface
	log    *zerolog.Logger
}

// joinMulticast joins group on every up, multicast capable interface.
// Failures only reduce the reach of the probe. Nothing is joined when
// group is not a multicast address.
func joinMulticast(conn net.PacketConn, group *net.UDPAddr, log *zerolog.Logger) *multicastGroup {
	m := &multicastGroup{conn: conn, group: group, log: log}
	if !group.IP.IsMulticast() {
		return m
	}

	m.pc = ipv4.NewPacketConn(conn)
	_ = m.pc.SetMulticastTTL(1)

	ifaces, err := net.Interfaces()
	if err != nil {
		log.Debug().Err(err).Msg("[onvif] list interfaces")
		return m
	}

	for _, ifi := range ifaces {
		if ifi.Flags&net.FlagUp == 0 || ifi.Flags&net.FlagMulticast == 0 {
			continue
		}
		if err := m.pc.JoinGroup(&ifi, group); err != nil {
			log.Trace().Err(err).Str("iface", ifi.Name).Msg("[onvif] join multicast group")
			continue
		}
		m.ifaces = append(m.ifaces, ifi)
	}

	return m
}

// send writes b to the group once per joined interface, or once through
// the default route when none was joined
func (m *multicastGroup) send(b []byte) error {
	if len(m.ifaces) == 0 {
		_, err := m.conn.WriteTo(b, m.group)
		return errors.Annotate(err, "onvif: send probe")
	}

	var sent int
	var lastErr error
	for i := range m.ifaces {
		if err := m.pc.SetMulticastInterface(&m.ifaces[i]); err != nil {
			lastErr = err
			continue
		}
		if _, err := m.conn.WriteTo(b, m.group); err != nil {
			m.log.Trace().Err(err).Str("iface", m.ifaces[i].Name).Msg("[onvif] send probe")
			lastErr = err
			continue
		}
		sent++
	}

	if sent == 0 {
		return errors.Annotate(lastErr, "onvif: send probe")
	}
	return nil
}

// leave drops every membership taken by joinMulticast
func (m *multicastGroup) leave() {
	for i := range m.ifaces {
		_ = m.pc.LeaveGroup(&m.ifaces[i], m.group)
	}
	m.ifaces = nil
}
