package collector

import (
	"net/url"
	"strings"
)

// Route is one network path to an upstream. Routes of the same source all
// reach the same logical data.
type Route struct {
	Name   string
	prefix string
}

// Direct requests the upstream URL as is.
var Direct = Route{Name: "direct"}

// ProxyRoute requests prefix + the escaped upstream URL, as used by
// passthrough proxies such as allorigins.
func ProxyRoute(prefix string) Route {
	name := prefix
	if u, err := url.Parse(prefix); err == nil && u.Host != "" {
		name = u.Host
	}
	return Route{Name: name, prefix: prefix}
}

// ParseRoute turns a config value into a Route; "direct" or "" is Direct.
func ParseRoute(s string) Route {
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, "direct") {
		return Direct
	}
	return ProxyRoute(s)
}

// URL returns the address to request for upstream.
func (r Route) URL(upstream string) string {
	if r.prefix == "" {
		return upstream
	}
	return r.prefix + url.QueryEscape(upstream)
}
