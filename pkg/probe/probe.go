// Package probe performs the target preflight that runs before any
// tool launches: DNS resolution with public-address validation, then
// one HTTP request to see whether the target answers at all. The
// outcome is advisory. An unreachable target becomes a warning event,
// never a failed scan, because several tools can still produce useful
// results against a host that rejects plain GETs.
package probe

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/scanhive/scanhive/pkg/defaults"
	"github.com/scanhive/scanhive/pkg/duration"
)

// Result is one preflight outcome.
type Result struct {
	Target     string        `json:"target"`
	Hostname   string        `json:"hostname"`
	Resolvable bool          `json:"resolvable"`
	Addresses  []string      `json:"addresses,omitempty"`
	Public     bool          `json:"public"`
	Reachable  bool          `json:"reachable"`
	HTTPStatus int           `json:"http_status,omitempty"`
	Latency    time.Duration `json:"latency"`
	Message    string        `json:"message,omitempty"`
	CheckedAt  time.Time     `json:"checked_at"`
}

// Healthy reports whether the target resolved to public addresses and
// answered the HTTP request. Any response counts, including 5xx; the
// probe asks "is something there", not "is it well".
func (r *Result) Healthy() bool {
	return r.Resolvable && r.Public && r.Reachable
}

type hostResolver interface {
	LookupIPAddr(ctx context.Context, host string) ([]net.IPAddr, error)
}

// Prober runs preflights. Use New; the zero value has no resolver.
type Prober struct {
	resolver hostResolver
	client   *http.Client
}

// New returns a prober using the system resolver and a plain HTTP
// client bound to the probe timeout.
func New() *Prober {
	return &Prober{
		resolver: net.DefaultResolver,
		client:   &http.Client{Timeout: duration.ProbeHTTP},
	}
}

// Run resolves the target's hostname, checks every resolved address
// is public, then issues one GET against the target. It never returns
// an error; every failure mode lands in the Result.
func (p *Prober) Run(ctx context.Context, target string) *Result {
	res := &Result{
		Target:    target,
		Hostname:  Hostname(target),
		CheckedAt: time.Now().UTC(),
	}
	start := time.Now()
	defer func() { res.Latency = time.Since(start) }()

	if res.Hostname == "" {
		res.Message = "no hostname in target"
		return res
	}

	dnsCtx, cancel := context.WithTimeout(ctx, duration.ProbeDNS)
	addrs, err := p.resolver.LookupIPAddr(dnsCtx, res.Hostname)
	cancel()
	if err != nil {
		res.Message = fmt.Sprintf("unresolvable domain %s: %v", res.Hostname, err)
		return res
	}

	res.Resolvable = true
	res.Public = true
	for _, a := range addrs {
		res.Addresses = append(res.Addresses, a.IP.String())
		if !IsPublic(a.IP) {
			res.Public = false
		}
	}
	if !res.Public {
		res.Message = fmt.Sprintf("target %s resolves to a non-public address", res.Hostname)
		return res
	}

	httpCtx, cancel := context.WithTimeout(ctx, duration.ProbeHTTP)
	defer cancel()
	req, err := http.NewRequestWithContext(httpCtx, http.MethodGet, target, nil)
	if err != nil {
		res.Message = fmt.Sprintf("building probe request: %v", err)
		return res
	}
	req.Header.Set("User-Agent", defaults.UserAgent("probe"))

	resp, err := p.client.Do(req)
	if err != nil {
		res.Message = fmt.Sprintf("target not reachable: %v", err)
		return res
	}
	io.Copy(io.Discard, io.LimitReader(resp.Body, defaults.BufferSmall))
	resp.Body.Close()

	res.Reachable = true
	res.HTTPStatus = resp.StatusCode
	res.Message = "OK"
	return res
}

// Hostname extracts the DNS name to resolve from a URL or bare host.
func Hostname(target string) string {
	if u, err := url.Parse(target); err == nil && u.Scheme != "" && u.Hostname() != "" {
		return u.Hostname()
	}
	host, _, _ := strings.Cut(target, "/")
	if h, p, err := net.SplitHostPort(host); err == nil && p != "" {
		return h
	}
	return host
}

// IsPublic reports whether ip is routable on the public internet.
// Private, loopback, link-local, multicast and unspecified addresses
// all fail.
func IsPublic(ip net.IP) bool {
	return !(ip.IsUnspecified() ||
		ip.IsLoopback() ||
		ip.IsPrivate() ||
		ip.IsLinkLocalUnicast() ||
		ip.IsLinkLocalMulticast() ||
		ip.IsMulticast())
}
