package googleddns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/netip"
)

// Resolver supplies the IPv4 address to send as the explicit myip value.
// A client with no resolver sends no address and lets the provider use the
// address the request arrived from, which is usually what you want.
type Resolver interface {
	Resolve(context.Context) (netip.Addr, error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(context.Context) (netip.Addr, error)

func (f ResolverFunc) Resolve(ctx context.Context) (netip.Addr, error) { return f(ctx) }

// FromString constructs a resolver that parses addr as a dotted-quad IPv4
// address. Use it when the address arrives as free text, such as a CLI flag.
func FromString(addr string) Resolver {
	return stringResolver(addr)
}

type stringResolver string

func (s stringResolver) Resolve(context.Context) (netip.Addr, error) {
	return ParseIPv4(string(s))
}

// InterfaceResolver constructs a resolver that returns the first usable IPv4
// address reported by the given interfaces. If no interfaces are named then
// all interfaces are considered. Loopback and IPv6 addresses are skipped.
//
// Note that behind NAT the interface address is not the public address;
// prefer no resolver at all, or a WebResolver, in that case.
func InterfaceResolver(iface ...string) Resolver {
	if len(iface) == 0 {
		return localResolver{}
	}
	return interfaceResolver{ifaces: iface}
}

type interfaceResolver struct {
	ifaces []string
}

func (r interfaceResolver) Resolve(ctx context.Context) (netip.Addr, error) {
	var errs []error
	for _, name := range r.ifaces {
		iface, err := net.InterfaceByName(name)
		if err != nil {
			errs = append(errs, fmt.Errorf("error getting interface %s by name: %w", name, err))
			continue
		}
		a, err := iface.Addrs()
		if err != nil {
			errs = append(errs, fmt.Errorf("error looking up addresses for interface %s: %w", name, err))
			continue
		}
		if addr, ok := firstIPv4(a, &errs); ok {
			return addr, nil
		}
	}
	return netip.Addr{}, errors.Join(append(errs, errors.New("no usable IPv4 address on the given interfaces"))...)
}

type localResolver struct{}

func (localResolver) Resolve(ctx context.Context) (netip.Addr, error) {
	adds, err := net.InterfaceAddrs()
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error getting interface addresses: %w", err)
	}
	var errs []error
	if addr, ok := firstIPv4(adds, &errs); ok {
		return addr, nil
	}
	return netip.Addr{}, errors.Join(append(errs, errors.New("no usable IPv4 address on any interface"))...)
}

// firstIPv4 returns the first non-loopback IPv4 address in addrs.
// Parse failures are appended to errs.
func firstIPv4(addrs []net.Addr, errs *[]error) (netip.Addr, bool) {
	// addr: ip+net:192.168.86.253/24
	// addr: ip+net:fe80::2cc9:801b:3551:9a43/64
	for _, addr := range addrs {
		prefix, err := netip.ParsePrefix(addr.String())
		if err != nil {
			*errs = append(*errs, fmt.Errorf("error parsing local ip %s: %w", addr.String(), err))
			continue
		}
		ip := prefix.Addr()
		if ip.IsLoopback() || !ip.Is4() {
			continue
		}
		return ip, true
	}
	return netip.Addr{}, false
}
