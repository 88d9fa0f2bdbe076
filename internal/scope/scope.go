// Package scope decides whether a discovered URL is allowed to be enqueued:
// same scheme as a seed, an allowed host (or one of its subdomains when
// configured), inside an allowed path prefix, and clear of every excluded
// pattern.
package scope

import (
	"net/url"
	"strings"

	"github.com/cdoc/crawldoc/internal/config"
)

// ShouldVisit reports whether rawURL may be enqueued under cfg. Malformed
// URLs are always rejected. Query strings and fragments never affect the
// decision. Exclusion patterns are matched against rawURL as given — the
// caller is expected to pass the final, post-redirect form, since that is
// the only URL in hand at the point a scope decision is made.
func ShouldVisit(rawURL string, cfg config.Config) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}

	if !schemeAllowed(u.Scheme, cfg) {
		return false
	}
	if !hostAllowed(u.Host, cfg) {
		return false
	}
	if !pathAllowed(u.Path, cfg) {
		return false
	}
	for _, pattern := range cfg.ExcludedPatterns() {
		if pattern.MatchString(rawURL) {
			return false
		}
	}
	return true
}

func schemeAllowed(scheme string, cfg config.Config) bool {
	scheme = strings.ToLower(scheme)
	for _, seed := range cfg.SeedURLs() {
		if strings.ToLower(seed.Scheme) == scheme {
			return true
		}
	}
	return false
}

func hostAllowed(host string, cfg config.Config) bool {
	host = strings.ToLower(host)
	allowed := cfg.AllowedHosts()
	if _, ok := allowed[host]; ok {
		return true
	}
	if !cfg.AllowSubdomains() {
		return false
	}
	for allowedHost := range allowed {
		if isSubdomainOf(host, strings.ToLower(allowedHost)) {
			return true
		}
	}
	return false
}

func isSubdomainOf(host, parent string) bool {
	return strings.HasSuffix(host, "."+parent)
}

func pathAllowed(candidatePath string, cfg config.Config) bool {
	candidatePath = normalisePath(candidatePath)
	for _, prefix := range cfg.AllowedPathPrefix() {
		prefix = normalisePath(prefix)
		if prefix == "" || prefix == "/" {
			return true
		}
		if candidatePath == prefix || strings.HasPrefix(candidatePath, prefix+"/") {
			return true
		}
	}
	return false
}

func normalisePath(path string) string {
	if len(path) > 1 && strings.HasSuffix(path, "/") {
		path = strings.TrimSuffix(path, "/")
	}
	return path
}

