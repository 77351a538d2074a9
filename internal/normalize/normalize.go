// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package normalize converts provider-specific search payloads into
// NormalizedResult records. All functions are pure.
package normalize

import (
	"fmt"
	"net"
	"net/url"
	"sort"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"

	"github.com/pdiddy/research-agent/pkg/types"
)

// maxSnippetChars caps the stored snippet length.
const maxSnippetChars = 800

// MalformedResultError reports a raw result without a usable URL. The
// result is dropped; the error never fails a request.
type MalformedResultError struct {
	Provider types.Provider
	URL      string
	Reason   string
}

func (e *MalformedResultError) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("malformed %s result: %s", e.Provider, e.Reason)
	}
	return fmt.Sprintf("malformed %s result %q: %s", e.Provider, e.URL, e.Reason)
}

// fieldMap names the raw keys holding each field, in order of preference.
type fieldMap struct {
	snippet []string
	date    []string
}

var providerFields = map[types.Provider]fieldMap{
	types.ProviderPerplexity: {
		snippet: []string{"snippet", "content"},
		date:    []string{"date", "last_updated"},
	},
	types.ProviderTavily: {
		snippet: []string{"content", "raw_content"},
		date:    []string{"published_date"},
	},
	types.ProviderExa: {
		snippet: []string{"text", "highlights", "summary"},
		date:    []string{"publishedDate", "published_date"},
	},
}

// Normalize converts one raw provider result. It fails with
// *MalformedResultError when the url field is missing or invalid. Missing
// optional fields leave the corresponding output empty.
func Normalize(raw types.RawResult, provider types.Provider) (types.NormalizedResult, error) {
	rawURL := strings.TrimSpace(stringField(raw, "url"))
	if rawURL == "" {
		return types.NormalizedResult{}, &MalformedResultError{Provider: provider, Reason: "missing url"}
	}

	u, err := parseURL(rawURL)
	if err != nil {
		return types.NormalizedResult{}, &MalformedResultError{Provider: provider, URL: rawURL, Reason: err.Error()}
	}

	fields, ok := providerFields[provider]
	if !ok {
		fields = fieldMap{snippet: []string{"snippet", "content", "text"}, date: []string{"date"}}
	}

	return types.NormalizedResult{
		URL:           u.String(),
		CanonicalURL:  CanonicalURL(u),
		Title:         collapseSpace(stripHTML(stringField(raw, "title"))),
		Snippet:       cleanSnippet(firstString(raw, fields.snippet)),
		PublishedDate: ParseDate(firstString(raw, fields.date)),
		SourceDomain:  Domain(u),
		Provider:      provider,
	}, nil
}

// NormalizeAll normalizes every raw result of one provider, preserving
// order. Malformed results are dropped and counted.
func NormalizeAll(raws []types.RawResult, provider types.Provider) ([]types.NormalizedResult, int) {
	out := make([]types.NormalizedResult, 0, len(raws))
	malformed := 0
	for _, raw := range raws {
		n, err := Normalize(raw, provider)
		if err != nil {
			malformed++
			continue
		}
		out = append(out, n)
	}
	return out, malformed
}

// parseURL accepts absolute http(s) URLs and scheme-less host paths
// ("example.com/page"), which get https:// prepended.
func parseURL(raw string) (*url.URL, error) {
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return nil, fmt.Errorf("unsupported scheme %q", u.Scheme)
	}
	host := u.Hostname()
	if host == "" {
		return nil, fmt.Errorf("url has no host")
	}
	if strings.ContainsAny(host, " \t") {
		return nil, fmt.Errorf("invalid host %q", host)
	}
	return u, nil
}

// Domain returns the lower-cased registrable domain (eTLD+1) of u's host.
// IP addresses and hosts without a public suffix fall back to the host.
func Domain(u *url.URL) string {
	host := strings.TrimSuffix(strings.ToLower(u.Hostname()), ".")
	if net.ParseIP(host) != nil || !strings.Contains(host, ".") {
		return host
	}
	domain, err := publicsuffix.EffectiveTLDPlusOne(host)
	if err != nil {
		return strings.TrimPrefix(host, "www.")
	}
	return domain
}

// DomainOf parses rawURL and returns its registrable domain, or "" if the
// URL is unusable.
func DomainOf(rawURL string) string {
	u, err := parseURL(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return Domain(u)
}

// trackingParams are query keys dropped from canonical URLs.
var trackingParams = map[string]bool{
	"fbclid": true,
	"gclid":  true,
}

// CanonicalURL returns the dedup form of u: lower-cased scheme and host
// without "www.", no fragment, no tracking parameters, sorted query, and
// no trailing slash.
func CanonicalURL(u *url.URL) string {
	host := strings.TrimPrefix(strings.ToLower(u.Host), "www.")

	q := u.Query()
	keys := make([]string, 0, len(q))
	for k := range q {
		if strings.HasPrefix(strings.ToLower(k), "utm_") || trackingParams[strings.ToLower(k)] {
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(strings.ToLower(u.Scheme))
	b.WriteString("://")
	b.WriteString(host)
	b.WriteString(strings.TrimRight(u.EscapedPath(), "/"))
	for i, k := range keys {
		if i == 0 {
			b.WriteByte('?')
		} else {
			b.WriteByte('&')
		}
		vals := q[k]
		sort.Strings(vals)
		for j, v := range vals {
			if j > 0 {
				b.WriteByte('&')
			}
			b.WriteString(url.QueryEscape(k))
			b.WriteByte('=')
			b.WriteString(url.QueryEscape(v))
		}
	}
	return b.String()
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04:05.000Z",
	"2006-01-02 15:04:05",
	"2006/01/02",
	"January 2, 2006",
	"Jan 2, 2006",
	time.RFC1123,
	time.RFC1123Z,
}

// ParseDate parses the date formats the providers emit. Unparsable or
// empty input returns the zero time.
func ParseDate(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

func cleanSnippet(s string) string {
	s = collapseSpace(stripHTML(s))
	if len(s) <= maxSnippetChars {
		return s
	}
	cut := s[:maxSnippetChars]
	// Avoid splitting a multi-byte rune.
	for len(cut) > 0 && !utf8Boundary(s, len(cut)) {
		cut = cut[:len(cut)-1]
	}
	return strings.TrimSpace(cut)
}

func utf8Boundary(s string, i int) bool {
	return i >= len(s) || s[i]&0xC0 != 0x80
}

func collapseSpace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// stringField returns raw[key] as a string. Lists yield their first string.
func stringField(raw types.RawResult, key string) string {
	v, ok := raw[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case []any:
		for _, item := range t {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				return s
			}
		}
	case []string:
		for _, s := range t {
			if strings.TrimSpace(s) != "" {
				return s
			}
		}
	case fmt.Stringer:
		return t.String()
	}
	return ""
}

func firstString(raw types.RawResult, keys []string) string {
	for _, k := range keys {
		if s := strings.TrimSpace(stringField(raw, k)); s != "" {
			return s
		}
	}
	return ""
}
