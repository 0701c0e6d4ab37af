package article

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net"
	"net/url"
	"path"
	"strings"
)

var trackingParams = map[string]struct{}{
	"fbclid":  {},
	"gclid":   {},
	"dclid":   {},
	"mc_cid":  {},
	"mc_eid":  {},
	"igshid":  {},
	"ref":     {},
	"ref_src": {},
	"cmpid":   {},
	"ocid":    {},
	"_ga":     {},
}

// CanonicalURL normalizes raw so that trivially different links to the same
// article compare equal: https scheme, lowercase host without www. or default
// port, cleaned path, no fragment and no tracking parameters.
func CanonicalURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("empty url")
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parse url %q: %w", raw, err)
	}
	if u.Host == "" {
		return "", fmt.Errorf("url %q has no host", raw)
	}

	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case "http", "https":
		scheme = "https"
	default:
		return "", fmt.Errorf("unsupported scheme %q", u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if port := u.Port(); port != "" && port != "80" && port != "443" {
		host = net.JoinHostPort(host, port)
	}

	p := u.EscapedPath()
	if p == "" {
		p = "/"
	}
	p = path.Clean(p)
	if p != "/" {
		p = strings.TrimSuffix(p, "/")
	}

	q := u.Query()
	for k := range q {
		lk := strings.ToLower(k)
		if strings.HasPrefix(lk, "utm_") {
			q.Del(k)
			continue
		}
		if _, ok := trackingParams[lk]; ok {
			q.Del(k)
		}
	}

	out := scheme + "://" + host + p
	if enc := q.Encode(); enc != "" {
		out += "?" + enc
	}
	return out, nil
}

// IDFor derives the document id from a canonical URL.
func IDFor(canonical string) string {
	sum := sha256.Sum256([]byte(canonical))
	return hex.EncodeToString(sum[:])
}

// ContentHash fingerprints the analyzable content of an article.
func ContentHash(title, text string) string {
	h := sha256.New()
	h.Write([]byte(collapse(title)))
	h.Write([]byte{'\n'})
	h.Write([]byte(collapse(text)))
	return hex.EncodeToString(h.Sum(nil))
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
