package urlutil

import (
	"net/url"
	"sort"
	"strings"
)

// Canonicalize applies a deterministic normalization to a URL, producing a canonical form.
// It maps equivalent URL spellings to a single canonical representation.
//
// The normalization follows these rules:
//   - Scheme and host are lowercased
//   - Path is cleaned (trailing slashes removed, except for root "/")
//   - Fragments are removed
//   - Query parameters are removed
//   - Default ports are omitted (e.g., :80 for http, :443 for https)
//
// Properties:
//   - Pure: no state, no memory
//   - Deterministic: same input always produces same output
//   - Idempotent: Canonicalize(Canonicalize(url)) == Canonicalize(url)
//   - Context-free: does not depend on crawl history
func Canonicalize(sourceUrl url.URL) url.URL {
	// Create a copy to avoid mutating the original
	canonical := sourceUrl

	// Lowercase scheme and host
	canonical.Scheme = lowerASCII(canonical.Scheme)
	canonical.Host = lowerASCII(canonical.Host)

	// Remove default port if present
	if host, port := canonical.Hostname(), canonical.Port(); port != "" {
		if (canonical.Scheme == "http" && port == "80") ||
			(canonical.Scheme == "https" && port == "443") {
			canonical.Host = host
		}
	}

	// Clean the path: remove trailing slashes (except root)
	if len(canonical.Path) > 1 {
		canonical.Path = stripTrailingSlash(canonical.Path)
	}

	// Remove fragment (anchor)
	canonical.Fragment = ""
	canonical.RawFragment = ""

	// Remove query parameters
	canonical.RawQuery = ""
	canonical.ForceQuery = false

	return canonical
}

// lowerASCII converts ASCII characters to lowercase without allocating.
// This is faster than strings.ToLower for ASCII-only strings.
func lowerASCII(s string) string {
	var needsLower bool
	for i := 0; i < len(s); i++ {
		if s[i] >= 'A' && s[i] <= 'Z' {
			needsLower = true
			break
		}
	}
	if !needsLower {
		return s
	}
	b := make([]byte, len(s))
	copy(b, s)
	for i := 0; i < len(b); i++ {
		if b[i] >= 'A' && b[i] <= 'Z' {
			b[i] += 'a' - 'A'
		}
	}
	return string(b)
}

// stripTrailingSlash removes trailing slashes from a path.
func stripTrailingSlash(path string) string {
	for len(path) > 1 && path[len(path)-1] == '/' {
		path = path[:len(path)-1]
	}
	return path
}

// RegisteredDomain returns the host used to key per-domain state: a leading
// "www." is stripped and the result is lowercased. Used by the rate limiter,
// circuit breaker, and retry queue to shard state consistently.
func RegisteredDomain(host string) string {
	host = lowerASCII(host)
	host = strings.TrimPrefix(host, "www.")
	return host
}

// Resolve fills in a scheme and host on discoveredURL when it was parsed
// from a page-relative or protocol-relative href and is missing one or
// both. An already-absolute URL is returned unchanged.
func Resolve(discoveredURL url.URL, fallbackScheme, fallbackHost string) url.URL {
	resolved := discoveredURL
	if resolved.Host == "" {
		resolved.Host = fallbackHost
	}
	if resolved.Scheme == "" {
		resolved.Scheme = fallbackScheme
	}
	return resolved
}

// FilterByHost keeps only the URLs whose host matches targetHost, comparing
// case-insensitively. Scope enforcement beyond a bare host match (subdomain
// policy, path prefixes, exclusion patterns) lives in internal/scope.
func FilterByHost(targetHost string, urls []url.URL) []url.URL {
	targetHost = lowerASCII(targetHost)
	filtered := make([]url.URL, 0, len(urls))
	for _, u := range urls {
		if lowerASCII(u.Host) == targetHost {
			filtered = append(filtered, u)
		}
	}
	return filtered
}

// DedupKey builds the frontier's deduplication key for a URL: lowercased
// host, trailing-slash-free path, sorted query parameters, fragment
// stripped. Two URLs that only differ in query-parameter order or a
// trailing slash collapse to the same key.
func DedupKey(raw string) (string, bool) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "", false
	}

	host := lowerASCII(u.Host)
	path := u.Path
	if len(path) > 1 {
		path = stripTrailingSlash(path)
	}

	var query string
	if u.RawQuery != "" {
		values := u.Query()
		keys := make([]string, 0, len(values))
		for k := range values {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		var b strings.Builder
		for i, k := range keys {
			vs := values[k]
			sort.Strings(vs)
			for j, v := range vs {
				if i > 0 || j > 0 {
					b.WriteByte('&')
				}
				b.WriteString(k)
				b.WriteByte('=')
				b.WriteString(v)
			}
		}
		query = b.String()
	}

	key := lowerASCII(u.Scheme) + "://" + host + path
	if query != "" {
		key += "?" + query
	}
	return key, true
}
