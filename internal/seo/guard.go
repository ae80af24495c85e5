package seo

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
	"strings"
	"syscall"
)

// ErrBlockedHost is returned for targets on loopback, private or otherwise
// non-public networks.
var ErrBlockedHost = errors.New("blocked host (localhost/private IP/DNS invalid)")

// Resolver is the subset of *net.Resolver used by CheckHost.
type Resolver interface {
	LookupNetIP(ctx context.Context, network, host string) ([]netip.Addr, error)
}

// CheckHost rejects localhost, non-public IP literals, and names resolving to
// any non-public address. A failed lookup is rejected too.
func CheckHost(ctx context.Context, r Resolver, host string) error {
	h := strings.ToLower(strings.TrimSpace(host))
	if h == "" || h == "localhost" || strings.HasSuffix(h, ".localhost") {
		return ErrBlockedHost
	}
	if ip, err := netip.ParseAddr(strings.Trim(h, "[]")); err == nil {
		if blockedAddr(ip) {
			return ErrBlockedHost
		}
		return nil
	}
	addrs, err := r.LookupNetIP(ctx, "ip", h)
	if err != nil || len(addrs) == 0 {
		return fmt.Errorf("%w: lookup %s failed", ErrBlockedHost, h)
	}
	for _, ip := range addrs {
		if blockedAddr(ip) {
			return ErrBlockedHost
		}
	}
	return nil
}

func blockedAddr(ip netip.Addr) bool {
	ip = ip.Unmap()
	return ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsInterfaceLocalMulticast() ||
		ip.IsMulticast() ||
		ip.IsUnspecified()
}

// guardDial refuses connections to non-public addresses, covering redirects
// and sub-pages that CheckHost never saw.
func guardDial(_, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		host, _, splitErr := net.SplitHostPort(address)
		if splitErr != nil {
			return fmt.Errorf("%w: %s", ErrBlockedHost, address)
		}
		ip, parseErr := netip.ParseAddr(host)
		if parseErr != nil {
			return fmt.Errorf("%w: %s", ErrBlockedHost, address)
		}
		ap = netip.AddrPortFrom(ip, 0)
	}
	if blockedAddr(ap.Addr()) {
		return fmt.Errorf("%w: %s", ErrBlockedHost, address)
	}
	return nil
}
