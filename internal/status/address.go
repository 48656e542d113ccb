package status

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
)

// DefaultPort is the Java Edition default server port.
const DefaultPort uint16 = 25565

// Target is a resolved host and port to connect to.
type Target struct {
	Host string
	Port uint16
}

// String formats t as host:port.
func (t Target) String() string {
	return net.JoinHostPort(t.Host, strconv.Itoa(int(t.Port)))
}

// ParseAddress splits "host", "host:port" or "[v6]:port". hasPort reports
// whether an explicit port was present.
func ParseAddress(address string) (host string, port uint16, hasPort bool, err error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return "", 0, false, errors.New("empty address")
	}
	h, p, splitErr := net.SplitHostPort(address)
	if splitErr != nil {
		var ae *net.AddrError
		if errors.As(splitErr, &ae) && strings.Contains(ae.Err, "missing port") {
			return strings.Trim(address, "[]"), 0, false, nil
		}
		return "", 0, false, fmt.Errorf("parse address %q: %w", address, splitErr)
	}
	if h == "" {
		return "", 0, false, fmt.Errorf("parse address %q: empty host", address)
	}
	n, convErr := strconv.ParseUint(p, 10, 16)
	if convErr != nil || n == 0 {
		return "", 0, false, fmt.Errorf("parse address %q: invalid port %q", address, p)
	}
	return h, uint16(n), true, nil
}

// StripPort removes an explicit ":port" suffix from a display address.
// Unparseable input is returned unchanged.
func StripPort(address string) string {
	host, _, hasPort, err := ParseAddress(address)
	if err != nil || !hasPort {
		return address
	}
	return host
}

// WithPort joins host and port unless address already carries a port.
// A zero port leaves address untouched.
func WithPort(address string, port int) string {
	if port <= 0 {
		return address
	}
	host, _, hasPort, err := ParseAddress(address)
	if err != nil || hasPort {
		return address
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// SRVResolver is the subset of [net.Resolver] used for service discovery.
type SRVResolver interface {
	LookupSRV(ctx context.Context, service, proto, name string) (string, []*net.SRV, error)
}

// ResolveTarget turns an address into a dialable target. Without an explicit
// port the _minecraft._tcp SRV record is consulted, falling back to
// [DefaultPort] when no record exists.
func ResolveTarget(ctx context.Context, r SRVResolver, address string) (Target, error) {
	host, port, hasPort, err := ParseAddress(address)
	if err != nil {
		return Target{}, err
	}
	if hasPort {
		return Target{Host: host, Port: port}, nil
	}
	if r != nil && net.ParseIP(host) == nil {
		if _, records, lookupErr := r.LookupSRV(ctx, "minecraft", "tcp", host); lookupErr == nil && len(records) > 0 {
			rec := records[0]
			return Target{Host: strings.TrimSuffix(rec.Target, "."), Port: rec.Port}, nil
		}
	}
	return Target{Host: host, Port: DefaultPort}, nil
}
