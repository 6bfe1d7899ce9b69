package utils

import (
	"fmt"
	"net"
	"net/http"
	"strings"
)

// BearerToken returns the token from "Authorization: Bearer <token>", or "".
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// IPResolver derives the client address used as the rate-limit key.
// X-Forwarded-For is only consulted when the direct peer is a trusted proxy;
// the key is then the right-most hop that is not itself a trusted proxy.
type IPResolver struct {
	trusted []*net.IPNet
}

// NewIPResolver parses trusted proxy addresses or CIDR ranges. With none,
// the resolver keys on RemoteAddr alone.
func NewIPResolver(trustedProxies []string) (*IPResolver, error) {
	r := &IPResolver{}
	for _, p := range trustedProxies {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		if !strings.Contains(p, "/") {
			ip := net.ParseIP(p)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", p)
			}
			bits := 8 * net.IPv4len
			if ip.To4() == nil {
				bits = 8 * net.IPv6len
			}
			r.trusted = append(r.trusted, &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)})
			continue
		}
		_, network, err := net.ParseCIDR(p)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", p, err)
		}
		r.trusted = append(r.trusted, network)
	}
	return r, nil
}

func (r *IPResolver) isTrusted(addr string) bool {
	if r == nil {
		return false
	}
	ip := net.ParseIP(addr)
	if ip == nil {
		return false
	}
	for _, n := range r.trusted {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP returns the host part of RemoteAddr unless the peer is a trusted
// proxy. A nil resolver trusts nobody.
func (r *IPResolver) ClientIP(req *http.Request) string {
	remote := RemoteHost(req)
	if !r.isTrusted(remote) {
		return remote
	}

	hops := strings.Split(req.Header.Get("X-Forwarded-For"), ",")
	client := remote
	for i := len(hops) - 1; i >= 0; i-- {
		hop := strings.TrimSpace(hops[i])
		if hop == "" {
			continue
		}
		client = hop
		if !r.isTrusted(hop) {
			break
		}
	}
	return client
}

// RemoteHost returns the host part of RemoteAddr.
func RemoteHost(req *http.Request) string {
	host, _, err := net.SplitHostPort(req.RemoteAddr)
	if err != nil {
		return req.RemoteAddr
	}
	return host
}
