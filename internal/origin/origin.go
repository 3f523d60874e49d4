// Package origin vets the browser Origin header of WebSocket upgrades.
package origin

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// Wildcard in an allow-list accepts any origin.
const Wildcard = "*"

// Normalize validates an origin and returns it as scheme://host[:port] with
// the scheme and host lowercased and default ports dropped.
func Normalize(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	if trimmed == "null" {
		return "null", true
	}

	u, err := url.Parse(trimmed)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", false
	}
	if u.User != nil || u.RawQuery != "" || u.Fragment != "" {
		return "", false
	}
	if u.Path != "" && u.Path != "/" {
		return "", false
	}

	scheme := strings.ToLower(u.Scheme)
	if scheme != "http" && scheme != "https" {
		return "", false
	}

	hostname := strings.ToLower(u.Hostname())
	if hostname == "" {
		return "", false
	}
	host := hostname
	if strings.Contains(hostname, ":") {
		host = "[" + hostname + "]"
	}

	if rawPort := u.Port(); rawPort != "" {
		port, err := strconv.ParseUint(rawPort, 10, 16)
		if err != nil || port == 0 {
			return "", false
		}
		if !(scheme == "http" && port == 80) && !(scheme == "https" && port == 443) {
			host += ":" + strconv.FormatUint(port, 10)
		}
	} else if strings.HasSuffix(u.Host, ":") {
		return "", false
	}

	return scheme + "://" + host, true
}

// Policy is an allow-list of normalized origins.
type Policy struct {
	allowed map[string]struct{}
	any     bool
}

// NewPolicy builds a policy from config entries. An empty list accepts every
// origin; entries that do not normalize are skipped.
func NewPolicy(allowed []string) *Policy {
	p := &Policy{allowed: make(map[string]struct{}, len(allowed))}
	if len(allowed) == 0 {
		p.any = true
	}
	for _, a := range allowed {
		if strings.TrimSpace(a) == Wildcard {
			p.any = true
			continue
		}
		if n, ok := Normalize(a); ok {
			p.allowed[n] = struct{}{}
		}
	}
	return p
}

// Allowed reports whether a request with this Origin header may connect.
// Requests without an Origin (non-browser clients) are always allowed.
func (p *Policy) Allowed(originHeader string) bool {
	if p.any || strings.TrimSpace(originHeader) == "" {
		return true
	}
	n, ok := Normalize(originHeader)
	if !ok {
		return false
	}
	_, ok = p.allowed[n]
	return ok
}

// CheckOrigin adapts the policy to websocket.Upgrader.CheckOrigin.
func (p *Policy) CheckOrigin(r *http.Request) bool {
	return p.Allowed(r.Header.Get("Origin"))
}
