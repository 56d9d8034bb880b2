package types

import (
	"fmt"
	"net"
)

// NetworkAddress is a peer endpoint as carried in Version and Addr messages:
// a service bitmask, an IPv6-mapped address as 8 big-endian u16 segments, and
// a port. It is immutable once constructed.
type NetworkAddress struct {
	Services uint64
	IP       [8]uint16
	Port     uint16
}

// IPv4NetworkAddress builds the IPv6-mapped NetworkAddress for an IPv4 dotted-quad.
func IPv4NetworkAddress(services uint64, a, b, c, d byte, port uint16) NetworkAddress {
	return NetworkAddress{
		Services: services,
		IP: [8]uint16{
			0, 0, 0, 0, 0, 0xFFFF,
			uint16(a)<<8 | uint16(b),
			uint16(c)<<8 | uint16(d),
		},
		Port: port,
	}
}

// IsIPv4Mapped reports whether the address is an IPv4-mapped IPv6 address
// (segments 0-4 zero, segment 5 == 0xFFFF).
func (n NetworkAddress) IsIPv4Mapped() bool {
	for i := 0; i < 5; i++ {
		if n.IP[i] != 0 {
			return false
		}
	}
	return n.IP[5] == 0xFFFF
}

// Endpoint renders the endpoint string used to key the connection manager's
// active map: dotted-quad:port for IPv4-mapped addresses, otherwise the eight
// segments in hex as [a:b:c:d:e:f:g:h]:port.
func (n NetworkAddress) Endpoint() string {
	if !n.IsIPv4Mapped() {
		return fmt.Sprintf("[%s]:%d", formatIPv6(n.IP), n.Port)
	}
	a := byte(n.IP[6] >> 8)
	b := byte(n.IP[6])
	c := byte(n.IP[7] >> 8)
	d := byte(n.IP[7])
	return fmt.Sprintf("%d.%d.%d.%d:%d", a, b, c, d, n.Port)
}

// IPv4NetworkAddressFromDotted builds an IPv6-mapped NetworkAddress from a
// dotted-quad string (the bootstrap peer config value). An unparseable
// address yields the zero NetworkAddress.
func IPv4NetworkAddressFromDotted(dotted string, port uint16) NetworkAddress {
	ip := net.ParseIP(dotted)
	if ip == nil {
		return NetworkAddress{}
	}
	ip4 := ip.To4()
	if ip4 == nil {
		return NetworkAddress{}
	}
	return IPv4NetworkAddress(1, ip4[0], ip4[1], ip4[2], ip4[3], port)
}

func formatIPv6(segs [8]uint16) string {
	s := ""
	for i, seg := range segs {
		if i > 0 {
			s += ":"
		}
		s += fmt.Sprintf("%x", seg)
	}
	return s
}
