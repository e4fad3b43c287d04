package channel

import (
	"fmt"
	"net/url"
	"strings"
)

// HTTPOrigin maps an agent websocket URL to the HTTP origin serving its static
// media: ws→http, wss→https, path and query dropped.
func HTTPOrigin(wsURL string) (*url.URL, error) {
	u, err := url.Parse(strings.TrimSpace(wsURL))
	if err != nil {
		return nil, fmt.Errorf("parse agent url: %w", err)
	}
	switch strings.ToLower(u.Scheme) {
	case "ws", "http":
		u.Scheme = "http"
	case "wss", "https":
		u.Scheme = "https"
	default:
		return nil, fmt.Errorf("agent url %q: unsupported scheme %q", wsURL, u.Scheme)
	}
	if u.Host == "" {
		return nil, fmt.Errorf("agent url %q: missing host", wsURL)
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host}, nil
}

// MediaResolver returns a function turning agent-provided media references
// (often root-relative, like /static/welcome.mp4) into absolute URLs. Absolute
// references and empty strings pass through unchanged.
func MediaResolver(origin *url.URL) func(string) string {
	return func(ref string) string {
		ref = strings.TrimSpace(ref)
		if ref == "" || origin == nil {
			return ref
		}
		parsed, err := url.Parse(ref)
		if err != nil || parsed.IsAbs() {
			return ref
		}
		return origin.ResolveReference(parsed).String()
	}
}
