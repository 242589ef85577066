package googleddns

import (
	"fmt"
	"net/netip"
	"net/url"
	"strings"
)

// State is the desired availability of the hostname.
// StateOffline parks the hostname; StateOnline clears a previous offline state.
type State int

const (
	StateUnspecified State = iota
	StateOnline
	StateOffline
)

// Request describes a single update of one hostname.
//
// The zero IP means no explicit address: the provider will use the address
// the request arrived from. Setting both IP and a State is rejected rather
// than given a precedence, because the provider documents no behavior for
// that combination.
type Request struct {
	Domain    string
	Subdomain string
	IP        netip.Addr
	State     State
}

// Hostname validates the domain and subdomain and returns the
// fully-qualified hostname "subdomain.domain".
//
// The domain must contain at least two dot-separated non-empty labels and
// the assembled hostname at least three. Minimums rather than exact counts,
// so that registrations like example.co.uk and nested subdomains pass.
func (r Request) Hostname() (string, error) {
	if countLabels(r.Domain) < 2 {
		return "", fmt.Errorf("%w: %q must have at least two dot-separated labels", ErrInvalidDomain, r.Domain)
	}
	hostname := r.Subdomain + "." + r.Domain
	if countLabels(hostname) < 3 {
		return "", fmt.Errorf("%w: %q must have at least three dot-separated labels", ErrInvalidHost, hostname)
	}
	return hostname, nil
}

// countLabels returns the number of dot-separated labels in s,
// or 0 if any label is empty.
func countLabels(s string) int {
	labels := strings.Split(s, ".")
	for _, l := range labels {
		if l == "" {
			return 0
		}
	}
	return len(labels)
}

// directive is the single IP-related instruction computed from the
// IP and State fields. Exactly one applies per request.
type directive int

const (
	directiveNone directive = iota
	directiveIP
	directiveOffline
	directiveOnline
)

func (r Request) directive() (directive, error) {
	if r.IP.IsValid() && !r.IP.Is4() {
		return directiveNone, fmt.Errorf("%w: %s is not a dotted-quad address; the provider rejects IPv6 updates", ErrInvalidIP, r.IP)
	}
	switch {
	case r.IP.IsValid() && r.State != StateUnspecified:
		return directiveNone, fmt.Errorf("%w: an explicit IP cannot be combined with an online/offline state", ErrConflictingRequest)
	case r.IP.IsValid():
		return directiveIP, nil
	case r.State == StateOffline:
		return directiveOffline, nil
	case r.State == StateOnline:
		return directiveOnline, nil
	default:
		return directiveNone, nil
	}
}

// Values validates the request and builds the form parameters for the
// update endpoint: hostname always, plus myip for an explicit address or
// offline=yes/no for a state change. With neither, only hostname is sent
// and the provider infers the caller's public address.
func (r Request) Values() (url.Values, error) {
	hostname, err := r.Hostname()
	if err != nil {
		return nil, err
	}
	d, err := r.directive()
	if err != nil {
		return nil, err
	}

	v := url.Values{}
	v.Set("hostname", hostname)
	switch d {
	case directiveIP:
		v.Set("myip", r.IP.String())
	case directiveOffline:
		v.Set("offline", "yes")
	case directiveOnline:
		v.Set("offline", "no")
	}
	return v, nil
}

// ParseIPv4 parses free-text input as a dotted-quad IPv4 address:
// exactly four dot-separated octets in [0,255]. Everything else,
// including IPv6 and IPv4-in-IPv6 forms, fails with ErrInvalidIP.
func ParseIPv4(s string) (netip.Addr, error) {
	addr, err := netip.ParseAddr(s)
	if err != nil || !addr.Is4() {
		return netip.Addr{}, fmt.Errorf("%w: %q", ErrInvalidIP, s)
	}
	return addr, nil
}
