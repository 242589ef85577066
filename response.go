package googleddns

import (
	"net/netip"
	"strings"
)

// Response is the provider's answer to an update request:
// the raw plain-text body plus the HTTP status code.
// The body alone decides the outcome; the status code is kept for diagnostics.
type Response struct {
	StatusCode int
	Body       string
}

// Result is a successful update outcome.
type Result struct {
	// IP is the address the hostname now resolves to,
	// taken from the provider response.
	IP netip.Addr

	// Changed reports whether the update modified the record ("good")
	// or matched what was already stored ("nochg").
	Changed bool
}

// Interpret maps a provider response to a Result or to a provider-reported
// error. The first whitespace-delimited token selects the outcome; for
// "good" and "nochg" the second token carries the IP. Anything outside the
// documented vocabulary fails with ErrUnrecognizedResponse so that new or
// garbled responses are never mistaken for success.
func Interpret(resp Response) (*Result, error) {
	fields := strings.Fields(resp.Body)
	var token string
	if len(fields) > 0 {
		token = fields[0]
	}

	switch token {
	case "good", "nochg":
		result := &Result{Changed: token == "good"}
		if len(fields) > 1 {
			if addr, err := netip.ParseAddr(fields[1]); err == nil {
				result.IP = addr
			}
		}
		return result, nil
	case "badauth":
		return nil, &UpdateError{Response: resp, Err: ErrInvalidCredentials}
	case "nohost":
		return nil, &UpdateError{Response: resp, Err: ErrUnknownHost}
	case "notfqdn":
		return nil, &UpdateError{Response: resp, Err: ErrNotFQDN}
	case "badagent":
		return nil, &UpdateError{Response: resp, Err: ErrBadAgent}
	case "abuse":
		return nil, &UpdateError{Response: resp, Err: ErrBlocked}
	case "911":
		return nil, &UpdateError{Response: resp, Err: ErrProviderUnavailable}
	default:
		return nil, &UpdateError{Response: resp, Err: ErrUnrecognizedResponse}
	}
}
