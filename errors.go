package googleddns

import (
	"errors"
	"fmt"
)

// Validation and transport errors reported before a provider response exists.
var (
	// ErrInvalidDomain means the domain had fewer than two dot-separated labels.
	ErrInvalidDomain = errors.New("invalid domain")

	// ErrInvalidHost means the assembled hostname had fewer than three dot-separated labels.
	ErrInvalidHost = errors.New("invalid hostname")

	// ErrInvalidIP means the supplied address was not a dotted-quad IPv4 address.
	// The provider rejects IPv6 updates.
	ErrInvalidIP = errors.New("invalid IPv4 address")

	// ErrConflictingRequest means an explicit IP was combined with an
	// online/offline state. The two are mutually exclusive; send one or the other.
	ErrConflictingRequest = errors.New("conflicting update request")

	// ErrNetwork means the update request never produced a provider response:
	// connection refused, timeout, TLS failure, and similar transport errors.
	ErrNetwork = errors.New("network failure")
)

// Provider-reported failures, one per response token.
var (
	ErrInvalidCredentials   = errors.New("provider rejected the credentials")                    // badauth
	ErrUnknownHost          = errors.New("hostname is not registered with this account")         // nohost
	ErrNotFQDN              = errors.New("hostname is not a fully-qualified domain name")        // notfqdn
	ErrBadAgent             = errors.New("user agent was rejected or an IPv6 address was sent")  // badagent
	ErrBlocked              = errors.New("hostname is blocked for update abuse")                 // abuse
	ErrProviderUnavailable  = errors.New("provider reported an internal problem")                // 911; wait ~5 minutes before retrying
	ErrUnrecognizedResponse = errors.New("unrecognized provider response")
)

// UpdateError is returned when the provider answered but reported a failure.
// It wraps one of the provider-reported error values above and keeps the raw
// response so failures can be diagnosed without re-running verbosely.
type UpdateError struct {
	Hostname string   // hostname the update was attempted for, when known
	Response Response // raw provider response
	Err      error    // one of the provider-reported error values
}

func (e *UpdateError) Error() string {
	if e.Hostname == "" {
		return fmt.Sprintf("update failed: %s (provider said %q with HTTP status %d)",
			e.Err, e.Response.Body, e.Response.StatusCode)
	}
	return fmt.Sprintf("update of %s failed: %s (provider said %q with HTTP status %d)",
		e.Hostname, e.Err, e.Response.Body, e.Response.StatusCode)
}

func (e *UpdateError) Unwrap() error { return e.Err }
