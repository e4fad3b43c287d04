package channel

import (
	"fmt"
	"net/url"
)

// TransportError represents websocket transport failures (DNS, refused
// connection, failed upgrade, TLS handshake) while talking to the agent.
//
// Use errors.As with a *TransportError target to tell transport failures apart
// from configuration mistakes.
type TransportError struct {
	Op  string
	URL string
	// Status is the HTTP status of a rejected upgrade, zero otherwise.
	Status int
	Err    error
}

func (e *TransportError) Error() string {
	switch {
	case e == nil:
		return ""
	case e.Status != 0:
		return fmt.Sprintf("transport error during %s %s (status %d): %v", e.Op, redactURLUserInfo(e.URL), e.Status, e.Err)
	case e.Op != "" && e.URL != "":
		return fmt.Sprintf("transport error during %s %s: %v", e.Op, redactURLUserInfo(e.URL), e.Err)
	case e.Op != "":
		return fmt.Sprintf("transport error during %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("transport error: %v", e.Err)
	}
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func redactURLUserInfo(raw string) string {
	if raw == "" {
		return raw
	}
	parsed, err := url.Parse(raw)
	if err != nil || parsed == nil {
		return raw
	}
	parsed.User = nil
	return parsed.String()
}
