package common

import (
	"net"
	"net/http"
	"strings"
)

// TrustedProxies is a parsed CIDR allowlist used by ClientIP to decide
// whether to honor X-Forwarded-For from the immediate peer.
type TrustedProxies struct {
	nets []*net.IPNet
}

// NewTrustedProxies parses CIDR strings from config, skipping malformed
// entries rather than failing startup over a typo in an operator's list.
func NewTrustedProxies(cidrs []string) *TrustedProxies {
	tp := &TrustedProxies{}
	for _, c := range cidrs {
		_, n, err := net.ParseCIDR(c)
		if err != nil {
			continue
		}
		tp.nets = append(tp.nets, n)
	}
	return tp
}

func (tp *TrustedProxies) contains(ip net.IP) bool {
	for _, n := range tp.nets {
		if n.Contains(ip) {
			return true
		}
	}
	return false
}

// ClientIP resolves the submitter's IP from an HTTP request. When the
// immediate peer is a trusted proxy, the left-most address in
// X-Forwarded-For is used instead; otherwise the peer address itself is
// authoritative. An untrusted peer cannot spoof its way around the
// per-IP admission cap by forging the header.
func (tp *TrustedProxies) ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	peer := net.ParseIP(host)

	if peer != nil && tp.contains(peer) {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			parts := strings.Split(fwd, ",")
			first := strings.TrimSpace(parts[0])
			if first != "" {
				return first
			}
		}
	}
	return host
}
