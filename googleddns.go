package googleddns

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"time"
)

// UpdateURL is the provider's fixed update endpoint.
const UpdateURL = "https://domains.google.com/nic/update"

// userAgent identifies us to the provider. Requests without an identifiable
// agent are answered with "badagent".
const userAgent = "googleddns/1.1 (+https://github.com/drewfurgiuele/googleddns)"

var discard = log.New(io.Discard, "", log.LstdFlags)

// New returns a Client that updates the record for subdomain.domain.
// Credentials are required; use the Dynamic DNS username and password
// generated by the provider for that hostname, not account credentials.
func New(domain string, subdomain string, options ...Option) (*Client, error) {
	c := &Client{
		domain:    domain,
		subdomain: subdomain,
		logger:    discard,
	}
	for i, opt := range options {
		if err := opt(c); err != nil {
			return nil, fmt.Errorf("googleddns.New: option %d returned an error: %w", i, err)
		}
	}

	if _, err := (Request{Domain: domain, Subdomain: subdomain}).Hostname(); err != nil {
		return nil, fmt.Errorf("googleddns.New: %w", err)
	}
	if c.username == "" || c.secret == "" {
		return nil, errors.New("googleddns.New: no credentials were provided - use googleddns.WithCredentials")
	}
	hasIP := c.ip.IsValid() || c.resolver != nil
	if c.ip.IsValid() && c.resolver != nil {
		return nil, fmt.Errorf("googleddns.New: %w: both an explicit IP and a resolver were provided", ErrConflictingRequest)
	}
	if hasIP && c.state != StateUnspecified {
		return nil, fmt.Errorf("googleddns.New: %w: an explicit IP cannot be combined with an online/offline state", ErrConflictingRequest)
	}
	return c, nil
}

// Option configures a Client during New.
type Option func(*Client) error

// WithCredentials sets the Dynamic DNS credentials used for basic auth.
func WithCredentials(username, secret string) Option {
	return func(c *Client) error {
		c.username = username
		c.secret = secret
		return nil
	}
}

// UsingIP sets the explicit address to send as myip,
// parsed from free text as a dotted-quad IPv4 address.
func UsingIP(addr string) Option {
	return func(c *Client) (err error) {
		c.ip, err = ParseIPv4(addr)
		return err
	}
}

// UsingAddr sets the explicit address to send as myip.
func UsingAddr(addr netip.Addr) Option {
	return func(c *Client) error {
		if !addr.Is4() {
			return fmt.Errorf("%w: %s is not a dotted-quad address; the provider rejects IPv6 updates", ErrInvalidIP, addr)
		}
		c.ip = addr
		return nil
	}
}

// UsingResolver sets the source of the myip address. A nil resolver restores
// the default: send no address and let the provider use the requesting one.
func UsingResolver(resolver Resolver) Option {
	return func(c *Client) error {
		c.resolver = resolver
		return nil
	}
}

// Offline requests that the provider park the hostname (offline=yes).
func Offline() Option {
	return func(c *Client) error {
		c.state = StateOffline
		return nil
	}
}

// Online clears a previous offline state (offline=no).
func Online() Option {
	return func(c *Client) error {
		c.state = StateOnline
		return nil
	}
}

// UsingHTTPClient sets the *http.Client used for the update request.
// Supplying a client with a custom Transport is the intended seam for
// testing against a stub server.
func UsingHTTPClient(httpclient *http.Client) Option {
	return func(c *Client) error {
		if httpclient == nil {
			httpclient = http.DefaultClient
		}
		c.httpClient = httpclient
		if wr, ok := c.resolver.(*webResolver); ok {
			wr.httpClient = httpclient
		}
		return nil
	}
}

// WithLogger sets the logger. The default discards all messages.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) error {
		if logger == nil {
			logger = discard
		}
		c.logger = logger
		return nil
	}
}

// WithConfirm sets a confirmation gate that runs after the parameter set is
// built and before the network call. When confirm returns false the request
// is suppressed and Run returns a nil Result with a nil error. A printing
// callback that always declines gives dry-run behavior.
func WithConfirm(confirm func(hostname string, params url.Values) bool) Option {
	return func(c *Client) error {
		c.confirm = confirm
		return nil
	}
}

// Client performs Dynamic DNS updates for a single hostname.
// Construct it with New. The zero value is not usable.
type Client struct {
	domain    string
	subdomain string
	username  string
	secret    string
	ip        netip.Addr
	state     State
	resolver  Resolver

	httpClient *http.Client
	logger     *log.Logger
	confirm    func(hostname string, params url.Values) bool
}

// Run performs one update: build and validate the parameters, pass the
// confirmation gate, POST to the update endpoint, and interpret the response.
// The caller's context is the cancellation point for the network call.
func (c *Client) Run(ctx context.Context) (*Result, error) {
	req := Request{
		Domain:    c.domain,
		Subdomain: c.subdomain,
		IP:        c.ip,
		State:     c.state,
	}
	if c.resolver != nil {
		addr, err := c.resolver.Resolve(ctx)
		if err != nil {
			return nil, fmt.Errorf("error resolving address for myip: %w", err)
		}
		req.IP = addr
	}

	hostname, err := req.Hostname()
	if err != nil {
		return nil, err
	}
	params, err := req.Values()
	if err != nil {
		return nil, err
	}
	c.logger.Printf("built update parameters for %s: %s\n", hostname, params.Encode())

	if c.confirm != nil && !c.confirm(hostname, params) {
		c.logger.Printf("update of %s was not confirmed; skipping the request\n", hostname)
		return nil, nil
	}

	resp, err := c.post(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("error updating %s: %w", hostname, err)
	}
	c.logger.Printf("provider answered %q with HTTP status %d\n", resp.Body, resp.StatusCode)

	result, err := Interpret(resp)
	if err != nil {
		var ue *UpdateError
		if errors.As(err, &ue) {
			ue.Hostname = hostname
		}
		return nil, err
	}
	return result, nil
}

func (c *Client) post(ctx context.Context, params url.Values) (Response, error) {
	// 30 seconds is an eternity for a request this small,
	// but it ensures Run always terminates even if the caller supplied
	// context.Background and http.DefaultClient (with no timeout).
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, UpdateURL, strings.NewReader(params.Encode()))
	if err != nil {
		return Response{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)
	req.SetBasicAuth(c.username, c.secret)

	httpclient := c.httpClient
	if httpclient == nil {
		httpclient = http.DefaultClient
	}

	resp, err := httpclient.Do(req)
	if err != nil {
		return Response{}, fmt.Errorf("%w: %w", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<12))
	if err != nil {
		return Response{}, fmt.Errorf("%w: error reading response body: %w", ErrNetwork, err)
	}
	return Response{
		StatusCode: resp.StatusCode,
		Body:       strings.TrimSpace(string(body)),
	}, nil
}
