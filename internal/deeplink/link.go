// Package deeplink parses and builds the custom-scheme URLs that launch a demo,
// e.g. scheme://mug?url=...&token=...&assetID=...
package deeplink

import (
	"fmt"
	"net/url"
	"strings"
)

// Demo identifies a demo experience by the host part of its deep link
type Demo string

const (
	DemoUnknown  Demo = "unknown"
	DemoMug      Demo = "mug"
	DemoPanorama Demo = "panorama"
)

// Demos lists the supported demos
var Demos = []Demo{DemoMug, DemoPanorama}

// ParseDemo maps a host to a demo, case-insensitively
func ParseDemo(host string) Demo {
	switch strings.ToLower(host) {
	case string(DemoMug):
		return DemoMug
	case string(DemoPanorama):
		return DemoPanorama
	default:
		return DemoUnknown
	}
}

// Link is a received deep link
type Link struct {
	Demo Demo
	URL  *url.URL
}

// Parse reads a deep link. Only the URL syntax and demo type are checked
// here; parameters are validated by Mug and Panorama.
func Parse(raw string) (*Link, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil || u.Scheme == "" {
		return nil, fmt.Errorf("%w: %s", ErrInvalidDeepLink, raw)
	}

	return &Link{
		Demo: ParseDemo(u.Host),
		URL:  u,
	}, nil
}

// query returns the query items, failing when there are none. Items are
// split on '&' only; a raw ';' stays part of its value, and a name or value
// that does not unescape is kept as written.
func (l *Link) query() (url.Values, error) {
	values := make(url.Values)
	for _, pair := range strings.Split(l.URL.RawQuery, "&") {
		if pair == "" {
			continue
		}
		name, value, _ := strings.Cut(pair, "=")
		values.Add(unescapeQuery(name), unescapeQuery(value))
	}
	if len(values) == 0 {
		return nil, ErrQueryItemsMissing
	}
	return values, nil
}

func unescapeQuery(s string) string {
	if unescaped, err := url.QueryUnescape(s); err == nil {
		return unescaped
	}
	return s
}

// serverURL decodes and validates the "url" parameter
func serverURL(values url.Values) (*url.URL, error) {
	raw := values.Get("url")
	decoded, err := url.PathUnescape(raw)
	if err != nil || decoded == "" {
		return nil, ErrURLParameterMissing
	}
	return resolveServerURL(decoded)
}

func resolveServerURL(raw string) (*url.URL, error) {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, ErrInvalidURL
	}
	return u, nil
}

func required(values url.Values, name string, missing error) (string, error) {
	value := values.Get(name)
	if value == "" {
		return "", missing
	}
	return value, nil
}

// builder writes query items in a fixed order
type builder struct {
	parts []string
}

func (b *builder) add(name, value string) {
	if value == "" {
		return
	}
	b.parts = append(b.parts, url.QueryEscape(name)+"="+url.QueryEscape(value))
}

func (b *builder) url(scheme string, demo Demo) *url.URL {
	return &url.URL{
		Scheme:   scheme,
		Host:     string(demo),
		RawQuery: strings.Join(b.parts, "&"),
	}
}
