package utils

import (
	"errors"
	"net"
	"net/url"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/raysh454/intent/internal/model"
	"golang.org/x/net/idna"
	"golang.org/x/net/publicsuffix"
)

// CanonicalizeOptions selects the optional normalizations Canonicalize applies.
type CanonicalizeOptions struct {
	// DropTrackingParams removes utm_*, gclid, fbclid and mailchimp ids.
	DropTrackingParams bool
	// StripTrailingSlash maps /a/ to /a. The root path is kept.
	StripTrailingSlash bool
	// DefaultScheme is prepended to schemeless input. Empty requires a scheme.
	DefaultScheme string
	// TrackingParamAllowlist, when set, is the only set of query keys kept.
	TrackingParamAllowlist []string
}

// PageOptions is the policy used for pages-visited bookkeeping: one page per
// path regardless of campaign parameters.
var PageOptions = CanonicalizeOptions{
	DropTrackingParams: true,
	StripTrailingSlash: true,
	DefaultScheme:      "https",
}

var trackingParams = map[string]bool{
	"utm_source": true, "utm_medium": true, "utm_campaign": true, "utm_term": true, "utm_content": true,
	"gclid": true, "fbclid": true, "mc_cid": true, "mc_eid": true,
}

var (
	ErrEmptyURL    = errors.New("empty url")
	ErrMissingHost = errors.New("missing host")
)

// Canonicalize returns a stable form of raw: lowercase scheme and punycode
// host, default port and credentials and fragment removed, cleaned path, and
// sorted query.
func Canonicalize(raw string, opts CanonicalizeOptions) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", &url.Error{Op: "canonicalize", URL: raw, Err: ErrEmptyURL}
	}
	if opts.DefaultScheme != "" && !strings.Contains(raw, "://") {
		raw = opts.DefaultScheme + "://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host == "" {
		return "", &url.Error{Op: "canonicalize", URL: raw, Err: ErrMissingHost}
	}

	u.Scheme = strings.ToLower(u.Scheme)
	u.Host = canonicalHostPort(u.Scheme, u.Hostname(), u.Port())
	u.User = nil
	u.Fragment = ""
	u.RawFragment = ""
	u.Path = canonicalPath(u.Path, opts.StripTrailingSlash)
	u.RawPath = ""
	u.RawQuery = canonicalQuery(u.Query(), opts)
	return u.String(), nil
}

func canonicalHostPort(scheme, host, port string) string {
	host = canonicalHost(host)
	switch {
	case port == "":
		return host
	case scheme == "http" && port == "80", scheme == "https" && port == "443":
		return host
	default:
		return net.JoinHostPort(host, port)
	}
}

func canonicalPath(p string, stripSlash bool) string {
	p = path.Clean(p)
	if p == "." || p == "" {
		return "/"
	}
	if stripSlash && p != "/" {
		p = strings.TrimRight(p, "/")
	}
	return p
}

// canonicalQuery drops filtered keys and encodes the rest sorted by key then
// value.
func canonicalQuery(q url.Values, opts CanonicalizeOptions) string {
	keep := func(k string) bool {
		if len(opts.TrackingParamAllowlist) > 0 {
			return slices.Contains(opts.TrackingParamAllowlist, k)
		}
		return !opts.DropTrackingParams || !trackingParams[strings.ToLower(k)]
	}
	out := url.Values{}
	for k, vs := range q {
		if !keep(k) {
			continue
		}
		vs = slices.Clone(vs)
		sort.Strings(vs)
		out[k] = vs
	}
	// Encode sorts by key.
	return out.Encode()
}

func canonicalHost(host string) string {
	host = strings.ToLower(host)
	if puny, err := idna.Lookup.ToASCII(host); err == nil {
		return puny
	}
	return host
}

// Hostname returns the canonical (lowercase, punycode) hostname of raw, or ""
// when raw is not an absolute URL.
func Hostname(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return ""
	}
	return canonicalHost(u.Hostname())
}

// CrossSite reports whether referrer names a different host than current.
// An empty or unparseable referrer is never cross-site.
func CrossSite(referrer, current string) bool {
	rh := Hostname(referrer)
	if rh == "" {
		return false
	}
	return rh != Hostname(current)
}

// RegistrableDomain returns eTLD+1 for host ("news.google.co.uk" ->
// "google.co.uk"), or host itself when it has no public suffix (localhost, IPs).
func RegistrableDomain(host string) string {
	host = canonicalHost(host)
	if host == "" || net.ParseIP(host) != nil {
		return host
	}
	d, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return host
	}
	return d
}

// ExtractUTM reads utm_* parameters from raw. Missing parameters are empty.
func ExtractUTM(raw string) model.UTM {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return model.UTM{}
	}
	q := u.Query()
	return model.UTM{
		Source:   q.Get("utm_source"),
		Medium:   q.Get("utm_medium"),
		Campaign: q.Get("utm_campaign"),
		Term:     q.Get("utm_term"),
		Content:  q.Get("utm_content"),
	}
}
