package googleddns_test

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/netip"
	"net/url"
	"testing"

	"github.com/drewfurgiuele/googleddns"
)

// rewriteTransport redirects every request to a test server while leaving
// the rest of the request, including the basic auth header, untouched.
type rewriteTransport struct {
	target *url.URL
}

func (rt rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = rt.target.Scheme
	req.URL.Host = rt.target.Host
	return http.DefaultTransport.RoundTrip(req)
}

// stubClient returns an *http.Client whose requests all land on srv.
func stubClient(t *testing.T, srv *httptest.Server) *http.Client {
	t.Helper()
	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("parsing test server URL: %s", err)
	}
	return &http.Client{Transport: rewriteTransport{target: u}}
}

func TestRunSendsUpdate(t *testing.T) {
	var (
		gotMethod   string
		gotPath     string
		gotUser     string
		gotPass     string
		gotForm     url.Values
		gotAgentSet bool
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotMethod = r.Method
		gotPath = r.URL.Path
		gotUser, gotPass, _ = r.BasicAuth()
		gotAgentSet = r.UserAgent() != ""
		r.ParseForm()
		gotForm = r.PostForm
		io.WriteString(w, "good 203.0.113.5")
	}))
	defer srv.Close()

	c, err := googleddns.New("example.com", "home",
		googleddns.WithCredentials("generated-user", "hunter2"),
		googleddns.UsingIP("203.0.113.5"),
		googleddns.UsingHTTPClient(stubClient(t, srv)),
	)
	if err != nil {
		t.Fatalf("New failed: %s", err)
	}

	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %s", err)
	}

	if gotMethod != http.MethodPost {
		t.Errorf("method = %q; want POST", gotMethod)
	}
	if gotPath != "/nic/update" {
		t.Errorf("path = %q; want /nic/update", gotPath)
	}
	if gotUser != "generated-user" || gotPass != "hunter2" {
		t.Errorf("basic auth = %q/%q; want generated-user/hunter2", gotUser, gotPass)
	}
	if !gotAgentSet {
		t.Error("expected a User-Agent header; the provider answers badagent without one")
	}
	if got := gotForm.Get("hostname"); got != "home.example.com" {
		t.Errorf("hostname = %q; want home.example.com", got)
	}
	if got := gotForm.Get("myip"); got != "203.0.113.5" {
		t.Errorf("myip = %q; want 203.0.113.5", got)
	}
	if _, present := gotForm["offline"]; present {
		t.Error("offline key was sent alongside an explicit IP")
	}

	if !result.Changed {
		t.Error("Result.Changed = false; want true for a good response")
	}
	if expected, got := netip.MustParseAddr("203.0.113.5"), result.IP; expected != got {
		t.Errorf("Result.IP = %s; want %s", got, expected)
	}
}

func TestRunNoChange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "nochg 203.0.113.5")
	}))
	defer srv.Close()

	c, err := googleddns.New("example.com", "home",
		googleddns.WithCredentials("u", "p"),
		googleddns.UsingHTTPClient(stubClient(t, srv)),
	)
	if err != nil {
		t.Fatalf("New failed: %s", err)
	}
	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %s", err)
	}
	if result.Changed {
		t.Error("Result.Changed = true; want false for a nochg response")
	}
	if expected, got := netip.MustParseAddr("203.0.113.5"), result.IP; expected != got {
		t.Errorf("Result.IP = %s; want %s", got, expected)
	}
}

func TestRunProviderFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "badauth")
	}))
	defer srv.Close()

	c, err := googleddns.New("example.com", "home",
		googleddns.WithCredentials("u", "wrong"),
		googleddns.UsingHTTPClient(stubClient(t, srv)),
	)
	if err != nil {
		t.Fatalf("New failed: %s", err)
	}
	result, err := c.Run(context.Background())
	if !errors.Is(err, googleddns.ErrInvalidCredentials) {
		t.Fatalf("Run error = %v; want ErrInvalidCredentials", err)
	}
	if result != nil {
		t.Fatalf("Run returned a result alongside the error: %+v", result)
	}

	var ue *googleddns.UpdateError
	if !errors.As(err, &ue) {
		t.Fatalf("expected an *UpdateError; got %T", err)
	}
	if ue.Hostname != "home.example.com" {
		t.Errorf("UpdateError.Hostname = %q; want home.example.com", ue.Hostname)
	}
	if ue.Response.Body != "badauth" {
		t.Errorf("UpdateError.Response.Body = %q; want badauth", ue.Response.Body)
	}
}

func TestRunNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	hc := stubClient(t, srv)
	srv.Close() // refuse all connections

	c, err := googleddns.New("example.com", "home",
		googleddns.WithCredentials("u", "p"),
		googleddns.UsingHTTPClient(hc),
	)
	if err != nil {
		t.Fatalf("New failed: %s", err)
	}
	if _, err := c.Run(context.Background()); !errors.Is(err, googleddns.ErrNetwork) {
		t.Fatalf("Run error = %v; want ErrNetwork", err)
	}
}

func TestConfirmDeclinedSkipsRequest(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		io.WriteString(w, "good 203.0.113.5")
	}))
	defer srv.Close()

	var confirmedHostname string
	var confirmedParams url.Values
	c, err := googleddns.New("example.com", "home",
		googleddns.WithCredentials("u", "p"),
		googleddns.UsingIP("203.0.113.5"),
		googleddns.UsingHTTPClient(stubClient(t, srv)),
		googleddns.WithConfirm(func(hostname string, params url.Values) bool {
			confirmedHostname = hostname
			confirmedParams = params
			return false
		}),
	)
	if err != nil {
		t.Fatalf("New failed: %s", err)
	}

	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %s", err)
	}
	if result != nil {
		t.Fatalf("expected no result when the confirmation declines; got %+v", result)
	}
	if hits != 0 {
		t.Fatalf("expected no network calls; the server saw %d", hits)
	}
	if confirmedHostname != "home.example.com" {
		t.Errorf("confirm hostname = %q; want home.example.com", confirmedHostname)
	}
	if got := confirmedParams.Get("myip"); got != "203.0.113.5" {
		t.Errorf("confirm myip = %q; want 203.0.113.5", got)
	}
}

func TestConfirmAcceptedSendsRequest(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		io.WriteString(w, "good 203.0.113.5")
	}))
	defer srv.Close()

	c, err := googleddns.New("example.com", "home",
		googleddns.WithCredentials("u", "p"),
		googleddns.UsingHTTPClient(stubClient(t, srv)),
		googleddns.WithConfirm(func(string, url.Values) bool { return true }),
	)
	if err != nil {
		t.Fatalf("New failed: %s", err)
	}
	result, err := c.Run(context.Background())
	if err != nil {
		t.Fatalf("Run failed: %s", err)
	}
	if result == nil {
		t.Fatal("expected a result when the confirmation accepts")
	}
	if hits != 1 {
		t.Fatalf("expected exactly one network call; the server saw %d", hits)
	}
}

func TestResolverSuppliesMyIP(t *testing.T) {
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotForm = r.PostForm
		io.WriteString(w, "good 10.0.0.10")
	}))
	defer srv.Close()

	resolver := googleddns.ResolverFunc(func(context.Context) (netip.Addr, error) {
		return netip.MustParseAddr("10.0.0.10"), nil
	})
	c, err := googleddns.New("example.com", "home",
		googleddns.WithCredentials("u", "p"),
		googleddns.UsingResolver(resolver),
		googleddns.UsingHTTPClient(stubClient(t, srv)),
	)
	if err != nil {
		t.Fatalf("New failed: %s", err)
	}
	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %s", err)
	}
	if got := gotForm.Get("myip"); got != "10.0.0.10" {
		t.Errorf("myip = %q; want the resolver's answer 10.0.0.10", got)
	}
}

func TestNewValidation(t *testing.T) {
	creds := googleddns.WithCredentials("u", "p")

	if _, err := googleddns.New("example.com", "home"); err == nil {
		t.Error("expected an error when no credentials are provided")
	}
	if _, err := googleddns.New("com", "home", creds); !errors.Is(err, googleddns.ErrInvalidDomain) {
		t.Errorf("single-label domain error = %v; want ErrInvalidDomain", err)
	}
	if _, err := googleddns.New("example.com", "", creds); !errors.Is(err, googleddns.ErrInvalidHost) {
		t.Errorf("empty subdomain error = %v; want ErrInvalidHost", err)
	}
	if _, err := googleddns.New("example.com", "home", creds, googleddns.UsingIP("not an ip")); !errors.Is(err, googleddns.ErrInvalidIP) {
		t.Errorf("free-text IP error = %v; want ErrInvalidIP", err)
	}
	if _, err := googleddns.New("example.com", "home", creds,
		googleddns.UsingAddr(netip.MustParseAddr("2001:db8::1"))); !errors.Is(err, googleddns.ErrInvalidIP) {
		t.Errorf("IPv6 address error = %v; want ErrInvalidIP", err)
	}
	if _, err := googleddns.New("example.com", "home", creds,
		googleddns.UsingIP("203.0.113.5"), googleddns.Offline()); !errors.Is(err, googleddns.ErrConflictingRequest) {
		t.Errorf("ip+offline error = %v; want ErrConflictingRequest", err)
	}
	if _, err := googleddns.New("example.com", "home", creds,
		googleddns.UsingResolver(googleddns.FromString("203.0.113.5")), googleddns.Online()); !errors.Is(err, googleddns.ErrConflictingRequest) {
		t.Errorf("resolver+online error = %v; want ErrConflictingRequest", err)
	}
	if _, err := googleddns.New("example.com", "home", creds,
		googleddns.UsingIP("203.0.113.5"), googleddns.UsingResolver(googleddns.FromString("203.0.113.5"))); !errors.Is(err, googleddns.ErrConflictingRequest) {
		t.Errorf("ip+resolver error = %v; want ErrConflictingRequest", err)
	}
}

func TestOfflineRequest(t *testing.T) {
	var gotForm url.Values
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		gotForm = r.PostForm
		io.WriteString(w, "good ")
	}))
	defer srv.Close()

	c, err := googleddns.New("example.com", "home",
		googleddns.WithCredentials("u", "p"),
		googleddns.Offline(),
		googleddns.UsingHTTPClient(stubClient(t, srv)),
	)
	if err != nil {
		t.Fatalf("New failed: %s", err)
	}
	if _, err := c.Run(context.Background()); err != nil {
		t.Fatalf("Run failed: %s", err)
	}
	if got := gotForm.Get("offline"); got != "yes" {
		t.Errorf("offline = %q; want yes", got)
	}
	if _, present := gotForm["myip"]; present {
		t.Error("myip key was sent for an offline request")
	}
}
