package googleddns

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/netip"
	"net/url"
	"strings"
	"sync"
	"time"
)

// WebResolver constructs a resolver which uses external web services to look
// up the caller's public IPv4 address.
//
// Each serviceURL must speak http and return status "200 OK",
// with a dotted-quad IPv4 address as the first line of the response body.
// All other responses are considered an error.
//
// If only one serviceURL is given,
// then the resolver simply returns its answer.
// If multiple are given,
// then the resolver requests from up to three of them and only returns
// successfully if the first two non-error responses agreed on the IP.
// This approach is taken due to the sensitive nature of having control over
// DNS records.
//
// The recommended approach is to run your own service over https.
func WebResolver(serviceURL ...string) Resolver {
	return &webResolver{serviceURLs: serviceURL}
}

type webResolver struct {
	httpClient  *http.Client
	serviceURLs []string
}

// Resolve implements Resolver.
func (wr *webResolver) Resolve(ctx context.Context) (netip.Addr, error) {
	// Requesting from up to three services and requiring two matching answers
	// keeps a single compromised, cached, or broken service from steering the
	// DNS record (assuming all supplied resolvers are https).
	if len(wr.serviceURLs) == 0 {
		return netip.Addr{}, errors.New("no external IP lookup services were provided")
	}
	if len(wr.serviceURLs) == 1 {
		return wr.lookup(ctx, wr.serviceURLs[0])
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	type result struct {
		addr netip.Addr
		err  error
	}

	const useCount = 3
	results := make(chan result, useCount)

	var wg sync.WaitGroup
	wg.Add(useCount)
	for i := 0; i < useCount; i++ {
		u := wr.serviceURLs[i%len(wr.serviceURLs)]
		go func() {
			defer wg.Done()
			r := result{}
			r.addr, r.err = wr.lookup(ctx, u)
			results <- r
		}()
	}
	go func() { wg.Wait(); close(results) }()

	resultCount := 0
	var errs []error
	var ip netip.Addr
	for r := range results {
		if r.err != nil {
			errs = append(errs, r.err)
			continue
		}
		resultCount++ // don't increase the result count for errors
		if !ip.IsValid() {
			ip = r.addr
			continue
		}
		if ip == r.addr {
			return ip, nil
		}
	}
	if resultCount < 2 {
		return netip.Addr{}, fmt.Errorf("not enough resolvers responded without errors: %w", errors.Join(errs...))
	}

	return netip.Addr{}, errors.New("IP resolvers did not agree on our IP")
}

func (wr *webResolver) lookup(ctx context.Context, serviceURL string) (netip.Addr, error) {
	u, err := url.Parse(serviceURL)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error parsing URL: %w", err)
	}

	// 15 seconds is an eternity for the size of the request we're making,
	// but this ensures that all calls to Resolve will eventually complete
	// even if the caller supplied context.TODO or context.Background
	// using http.DefaultClient (with no timeout).
	ctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Cache-Control", "no-cache")

	httpclient := wr.httpClient
	if httpclient == nil {
		httpclient = http.DefaultClient
	}

	resp, err := httpclient.Do(req)
	if err != nil {
		return netip.Addr{}, fmt.Errorf("http request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != 200 {
		return netip.Addr{}, fmt.Errorf("http request returned %s", resp.Status)
	}

	scanner := bufio.NewReader(resp.Body)
	ipstring, _ := scanner.ReadString('\n')
	ip, err := ParseIPv4(strings.TrimSpace(ipstring))
	if err != nil {
		return netip.Addr{}, fmt.Errorf("error parsing IP address from response body: %w", err)
	}
	return ip, nil
}
