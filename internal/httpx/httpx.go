// Package httpx holds the outbound HTTP policy shared by the sheet loader,
// the image proxy and the release downloader: a browser User-Agent pool,
// bounded retry for replayable requests, and typed status errors.
package httpx

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/netip"
	"syscall"
	"time"
)

const (
	defaultRetryMax = 2
	retryBackoff    = 250 * time.Millisecond
)

// StatusError is a non-2xx response from an upstream.
type StatusError struct {
	URL        string
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: HTTP %d", e.URL, e.StatusCode)
}

// ErrBlockedAddress is returned when a PublicOnly client is asked to dial a
// non-public address.
var ErrBlockedAddress = errors.New("destination address not allowed")

// IsPublicAddr reports whether ip is a routable unicast address.
func IsPublicAddr(ip netip.Addr) bool {
	ip = ip.Unmap()
	return ip.IsValid() && ip.IsGlobalUnicast() && !ip.IsPrivate() && !ip.IsLoopback() && !ip.IsLinkLocalUnicast()
}

func publicOnly(_, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, address)
	}
	if !IsPublicAddr(ap.Addr()) {
		return fmt.Errorf("%w: %s", ErrBlockedAddress, ap.Addr())
	}
	return nil
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}

// Transport sets a browser User-Agent when the caller has none and retries
// GET/HEAD requests without a body on transport errors and 502/503/504.
type Transport struct {
	Base     http.RoundTripper
	RetryMax int
}

func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	if req == nil {
		return nil, errors.New("nil request")
	}
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}

	max := t.RetryMax
	if max < 0 {
		max = 0
	}
	if (req.Method != http.MethodGet && req.Method != http.MethodHead) || req.Body != nil {
		max = 0
	}

	var (
		resp *http.Response
		err  error
	)
	for attempt := 0; attempt <= max; attempt++ {
		if attempt > 0 {
			select {
			case <-req.Context().Done():
				return nil, req.Context().Err()
			case <-time.After(retryBackoff * time.Duration(attempt)):
			}
		}

		r := req.Clone(req.Context())
		if r.Header.Get("User-Agent") == "" {
			r.Header.Set("User-Agent", RandomUserAgent())
		}

		resp, err = base.RoundTrip(r)
		if err != nil {
			if req.Context().Err() != nil || errors.Is(err, ErrBlockedAddress) {
				return nil, err
			}
			continue
		}
		if !retryable(resp.StatusCode) || attempt == max {
			return resp, nil
		}
		drain(resp)
	}
	return resp, err
}

func retryable(code int) bool {
	return code == http.StatusBadGateway || code == http.StatusServiceUnavailable || code == http.StatusGatewayTimeout
}

func drain(resp *http.Response) {
	_, _ = io.CopyN(io.Discard, resp.Body, 64<<10)
	_ = resp.Body.Close()
}

// Options for NewClient. A zero Timeout means no overall deadline, which is
// what long archive downloads want; they rely on the context instead.
type Options struct {
	Timeout               time.Duration
	ResponseHeaderTimeout time.Duration
	RetryMax              int
	// PublicOnly refuses connections to non-public addresses after DNS
	// resolution.
	PublicOnly bool
}

func NewClient(o Options) *http.Client {
	hdr := o.ResponseHeaderTimeout
	if hdr <= 0 {
		hdr = 15 * time.Second
	}
	base := http.DefaultTransport.(*http.Transport).Clone()
	base.TLSHandshakeTimeout = 10 * time.Second
	base.ResponseHeaderTimeout = hdr
	if o.PublicOnly {
		d := &net.Dialer{Timeout: 30 * time.Second, KeepAlive: 30 * time.Second, Control: publicOnly}
		base.DialContext = d.DialContext
		base.Proxy = nil
	}

	return &http.Client{
		Transport: &Transport{Base: base, RetryMax: o.RetryMax},
		Timeout:   o.Timeout,
	}
}

// NewSheetClient is used for the published artist spreadsheet.
func NewSheetClient() *http.Client {
	return NewClient(Options{Timeout: 15 * time.Second, RetryMax: defaultRetryMax})
}

// NewImageClient is used by the Instagram image proxy.
func NewImageClient() *http.Client {
	return NewClient(Options{Timeout: 20 * time.Second, RetryMax: 1, PublicOnly: true})
}

// NewDownloadClient is used for release archives and single media files.
func NewDownloadClient() *http.Client {
	return NewClient(Options{ResponseHeaderTimeout: 30 * time.Second, RetryMax: defaultRetryMax})
}

// Get issues a GET with the given headers and returns the response only for
// 2xx statuses. Any other status is closed and returned as *StatusError.
func Get(ctx context.Context, c *http.Client, url string, header http.Header) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	resp, err := c.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		drain(resp)
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode}
	}
	return resp, nil
}

var userAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 13_6) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.3 Safari/605.1.15",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
}

func RandomUserAgent() string {
	return userAgents[rand.IntN(len(userAgents))]
}
