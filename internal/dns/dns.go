// Package dns resolves relay hostnames, falling back to public resolvers
// when the system resolver fails. Captive or broken local DNS is common on
// the networks the terminal client runs on.
package dns

import (
	"context"
	"errors"
	"fmt"
	"net"
	"time"
)

// DefaultServers are queried when a system lookup fails.
var DefaultServers = []string{
	"1.1.1.1",              // Cloudflare
	"1.0.0.1",              // Cloudflare
	"2606:4700:4700::1111", // Cloudflare
	"8.8.8.8",              // Google
	"8.8.4.4",              // Google
	"2001:4860:4860::8888", // Google
	"9.9.9.9",              // Quad9
	"149.112.112.112",      // Quad9
	"208.67.222.222",       // Cisco OpenDNS
}

// Resolver looks a host up locally first and then races Servers.
type Resolver struct {
	Servers       []string
	LocalTimeout  time.Duration
	RemoteTimeout time.Duration

	// local is the system resolver. Tests replace it.
	local func(ctx context.Context, host string) ([]string, error)
}

// Default is the resolver used by Lookup and DialContext.
var Default = &Resolver{
	Servers:       DefaultServers,
	LocalTimeout:  time.Second,
	RemoteTimeout: 2 * time.Second,
}

// Lookup resolves host with the default resolver.
func Lookup(ctx context.Context, host string) (string, error) {
	return Default.Lookup(ctx, host)
}

// DialContext dials addr after resolving its host with the default resolver.
// It fits websocket.Dialer.NetDialContext.
func DialContext(ctx context.Context, network, addr string) (net.Conn, error) {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}

	ip, err := Lookup(ctx, host)
	if err != nil {
		return nil, fmt.Errorf("dns lookup failed: %w", err)
	}

	var d net.Dialer
	return d.DialContext(ctx, network, net.JoinHostPort(ip, port))
}

// Lookup resolves host to a single address, preferring IPv4. IP literals are
// returned unchanged.
func (r *Resolver) Lookup(ctx context.Context, host string) (string, error) {
	if ip := net.ParseIP(host); ip != nil {
		return host, nil
	}

	local := r.local
	if local == nil {
		local = net.DefaultResolver.LookupHost
	}

	lctx, cancel := context.WithTimeout(ctx, r.LocalTimeout)
	ips, err := local(lctx, host)
	cancel()
	if err == nil {
		if ip, ok := preferIPv4(ips); ok {
			return ip, nil
		}
	}

	if len(r.Servers) == 0 {
		if err == nil {
			err = errors.New("no IP addresses found")
		}
		return "", err
	}
	return r.race(ctx, host)
}

// race queries every server at once and returns the first answer.
func (r *Resolver) race(ctx context.Context, host string) (string, error) {
	type result struct {
		ip  string
		err error
	}

	ctx, cancel := context.WithTimeout(ctx, r.RemoteTimeout)
	defer cancel()

	results := make(chan result, len(r.Servers))
	for _, server := range r.Servers {
		go func(server string) {
			ip, err := lookupVia(ctx, host, server)
			results <- result{ip: ip, err: err}
		}(server)
	}

	failures := 0
	for range r.Servers {
		select {
		case res := <-results:
			if res.err == nil {
				return res.ip, nil
			}
			failures++
		case <-ctx.Done():
			return "", fmt.Errorf("lookup of %s timed out racing public DNS", host)
		}
	}
	return "", fmt.Errorf("failed to resolve %s: all %d public DNS servers failed", host, failures)
}

func lookupVia(ctx context.Context, host, server string) (string, error) {
	r := &net.Resolver{
		PreferGo: true,
		Dial: func(ctx context.Context, network, _ string) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, network, net.JoinHostPort(server, "53"))
		},
	}

	ips, err := r.LookupHost(ctx, host)
	if err != nil {
		return "", err
	}
	ip, ok := preferIPv4(ips)
	if !ok {
		return "", errors.New("no IPs returned")
	}
	return ip, nil
}

func preferIPv4(ips []string) (string, bool) {
	if len(ips) == 0 {
		return "", false
	}
	for _, ip := range ips {
		if net.ParseIP(ip).To4() != nil {
			return ip, true
		}
	}
	return ips[0], true
}
