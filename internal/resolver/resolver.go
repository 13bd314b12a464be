package resolver

import (
	"context"
	"errors"
	"net"
	"time"
)

var ErrNoAddresses = errors.New("host resolved to no addresses")

// LookupUDPAddrs resolves host through the default resolver and returns one
// UDP address per resolved IP, IPv4 and IPv6 alike, all carrying the given
// port. Zero results count as a resolution failure.
func LookupUDPAddrs(ctx context.Context, timeout time.Duration, host string, port int) ([]*net.UDPAddr, error) {
	if timeout > 0 {
		var cancel func()
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ips, err := net.DefaultResolver.LookupIPAddr(ctx, host)
	if err != nil {
		return nil, err
	}
	if len(ips) == 0 {
		return nil, ErrNoAddresses
	}

	addrs := make([]*net.UDPAddr, 0, len(ips))
	for _, ia := range ips {
		addrs = append(addrs, &net.UDPAddr{
			IP:   ia.IP,
			Port: port,
			Zone: ia.Zone,
		})
	}
	return addrs, nil
}
