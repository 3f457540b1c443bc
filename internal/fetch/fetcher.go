package fetch

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/miekg/dns"
	"github.com/sirupsen/logrus"
	"golang.org/x/net/html/charset"
	"golang.org/x/time/rate"

	"github.com/bl4ck0w1/stacklynx/pkg/models"
)

// Result carries the raw observable response the analysis core consumes:
// reconstructed status line + header text, and the decoded body.
type Result struct {
	URL         string
	RawHeaders  string
	Body        string
	StatusCode  int
	HTTPVersion string
	TLS         bool
}

type Fetcher struct {
	client      *http.Client
	limiter     *rate.Limiter
	logger      *logrus.Logger
	userAgent   string
	maxBodySize int64
	dnsPrecheck bool
	dnsServer   string
}

func NewFetcher(cfg models.FetchConfig, logger *logrus.Logger) *Fetcher {
	if logger == nil {
		logger = logrus.New()
	}

	transport := &http.Transport{
		// Setting DialContext disables the default h2 upgrade unless forced.
		ForceAttemptHTTP2:   true,
		MaxIdleConns:        100,
		MaxIdleConnsPerHost: 20,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
	}

	maxRedirects := cfg.MaxRedirects
	client := &http.Client{
		Transport: transport,
		Timeout:   cfg.Timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= maxRedirects {
				return fmt.Errorf("stopped after %d redirects", maxRedirects)
			}
			return nil
		},
	}

	ratePerSec := cfg.RatePerSec
	if ratePerSec <= 0 {
		ratePerSec = 5
	}

	return &Fetcher{
		client:      client,
		limiter:     rate.NewLimiter(rate.Limit(ratePerSec), 1),
		logger:      logger,
		userAgent:   cfg.UserAgent,
		maxBodySize: cfg.MaxBodySize,
		dnsPrecheck: cfg.DNSPrecheck,
		dnsServer:   cfg.DNSServer,
	}
}

// Fetch retrieves one page. Any error is a fetch failure; the caller decides
// whether to degrade or drop the site (the core treats empty inputs as legal).
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*Result, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return nil, fmt.Errorf("invalid url %q: %w", rawURL, err)
	}

	if f.dnsPrecheck {
		if err := f.resolve(ctx, u.Hostname()); err != nil {
			return nil, fmt.Errorf("dns precheck for %s: %w", u.Hostname(), err)
		}
	}

	if err := f.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", rawURL, err)
	}
	defer resp.Body.Close()

	body, err := decodeBody(resp, f.maxBodySize)
	if err != nil {
		return nil, fmt.Errorf("read body of %s: %w", rawURL, err)
	}

	return &Result{
		URL:         rawURL,
		RawHeaders:  rawHeaderText(resp),
		Body:        body,
		StatusCode:  resp.StatusCode,
		HTTPVersion: resp.Proto,
		TLS:         resp.TLS != nil,
	}, nil
}

// ProbeExists reports whether a URL answers with a success status. HEAD is
// tried first; servers that reject HEAD get one GET.
func (f *Fetcher) ProbeExists(ctx context.Context, rawURL string) bool {
	if err := f.limiter.Wait(ctx); err != nil {
		return false
	}
	for _, method := range []string{http.MethodHead, http.MethodGet} {
		req, err := http.NewRequestWithContext(ctx, method, rawURL, nil)
		if err != nil {
			return false
		}
		req.Header.Set("User-Agent", f.userAgent)

		resp, err := f.client.Do(req)
		if err != nil {
			f.logger.WithFields(logrus.Fields{"url": rawURL, "method": method}).Debugf("Probe failed: %v", err)
			continue
		}
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return true
		}
		if resp.StatusCode != http.StatusMethodNotAllowed {
			return false
		}
	}
	return false
}

// WellKnownProbes checks the auxiliary-file probe set against the page's
// origin and returns name -> exists for the absence checker to interpret.
func (f *Fetcher) WellKnownProbes(ctx context.Context, pageURL string, names []string) map[string]bool {
	probes := make(map[string]bool, len(names))
	u, err := url.Parse(pageURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		for _, name := range names {
			probes[name] = false
		}
		return probes
	}

	origin := u.Scheme + "://" + u.Host
	for _, name := range names {
		probes[name] = f.ProbeExists(ctx, origin+"/"+name)
	}
	return probes
}

// resolve short-circuits unresolvable hosts before the HTTP timeout is spent.
func (f *Fetcher) resolve(ctx context.Context, host string) error {
	msg := new(dns.Msg)
	msg.SetQuestion(dns.Fqdn(host), dns.TypeA)
	msg.RecursionDesired = true

	client := &dns.Client{Timeout: 5 * time.Second}
	reply, _, err := client.ExchangeContext(ctx, msg, f.dnsServer)
	if err != nil {
		return err
	}
	if reply.Rcode == dns.RcodeNameError {
		return fmt.Errorf("NXDOMAIN")
	}
	return nil
}

func decodeBody(resp *http.Response, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = 2 << 20
	}
	reader, err := charset.NewReader(io.LimitReader(resp.Body, maxBytes), resp.Header.Get("Content-Type"))
	if err != nil {
		// Undetectable charset: fall back to the raw bytes.
		raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBytes))
		if readErr != nil {
			return "", readErr
		}
		return string(raw), nil
	}
	decoded, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	return string(decoded), nil
}

// rawHeaderText reconstructs "status line + headers" text, the shape the
// detection engine matches against. Header names are sorted so the output is
// deterministic.
func rawHeaderText(resp *http.Response) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s\r\n", resp.Proto, resp.Status)

	names := make([]string, 0, len(resp.Header))
	for name := range resp.Header {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		for _, value := range resp.Header[name] {
			fmt.Fprintf(&b, "%s: %s\r\n", name, value)
		}
	}
	return b.String()
}
