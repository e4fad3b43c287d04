// Package protocol defines the avatar channel wire format: the JSON frames an
// avatar agent pushes to the client and the message frame the client sends back.
//
// Inbound frames decode into the sealed Event sum type. Consumers handle events
// by implementing Handler; Dispatch routes each event to exactly one Handler
// method, so adding a frame type is a compile error for every Handler until the
// new method exists.
package protocol

import (
	"encoding/json"
	"fmt"
	"strings"
)

const (
	TypeWelcome      = "welcome"
	TypeStatus       = "status"
	TypeTextResponse = "text_response"
	TypeVideoReady   = "video_ready"
	TypeError        = "error"
)

const (
	CodeBadRequest  = "bad_request"
	CodeUnknownType = "unknown_type"
)

type DecodeError struct {
	Code    string
	Message string
	Type    string
}

func (e *DecodeError) Error() string {
	if e == nil {
		return ""
	}
	if e.Type == "" {
		return e.Message
	}
	return fmt.Sprintf("%s (%q)", e.Message, e.Type)
}

func badRequest(message, typ string) *DecodeError {
	return &DecodeError{Code: CodeBadRequest, Message: message, Type: typ}
}

// IsUnknownType reports whether err rejected a frame only because its type tag
// is not part of the protocol.
func IsUnknownType(err error) bool {
	de, ok := err.(*DecodeError)
	return ok && de != nil && de.Code == CodeUnknownType
}

// Event is one inbound frame. The set of implementations is closed.
type Event interface {
	EventType() string
	dispatch(h Handler)
}

type WelcomeEvent struct {
	VideoURL string `json:"video_url"`
}

func (e WelcomeEvent) EventType() string  { return TypeWelcome }
func (e WelcomeEvent) dispatch(h Handler) { h.HandleWelcome(e) }

type StatusEvent struct {
	Message  string `json:"message"`
	ImageURL string `json:"image"`
}

func (e StatusEvent) EventType() string  { return TypeStatus }
func (e StatusEvent) dispatch(h Handler) { h.HandleStatus(e) }

type TextResponseEvent struct {
	Message string `json:"message"`
}

func (e TextResponseEvent) EventType() string  { return TypeTextResponse }
func (e TextResponseEvent) dispatch(h Handler) { h.HandleTextResponse(e) }

type VideoReadyEvent struct {
	VideoURL string `json:"video_url"`
	Message  string `json:"message"`
}

func (e VideoReadyEvent) EventType() string  { return TypeVideoReady }
func (e VideoReadyEvent) dispatch(h Handler) { h.HandleVideoReady(e) }

// ErrorEvent reports a failure on the agent side. Reason is whatever the agent
// put in its optional message field; it is meant for logs only.
type ErrorEvent struct {
	Reason string `json:"message,omitempty"`
}

func (e ErrorEvent) EventType() string  { return TypeError }
func (e ErrorEvent) dispatch(h Handler) { h.HandleError(e) }

// Handler receives decoded events, one method per frame type.
type Handler interface {
	HandleWelcome(WelcomeEvent)
	HandleStatus(StatusEvent)
	HandleTextResponse(TextResponseEvent)
	HandleVideoReady(VideoReadyEvent)
	HandleError(ErrorEvent)
}

// Dispatch routes ev to the matching Handler method. Nil events are ignored.
func Dispatch(ev Event, h Handler) {
	if ev == nil || h == nil {
		return
	}
	ev.dispatch(h)
}

// OutboundMessage is the only frame the client sends.
type OutboundMessage struct {
	Message string `json:"message"`
}

// DecodeEvent decodes one inbound text frame.
func DecodeEvent(data []byte) (Event, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, badRequest("invalid json frame", "")
	}
	// Tags match exactly; padding or a different case makes an unknown tag.
	typ := envelope.Type
	if typ == "" {
		return nil, badRequest("frame missing type", "")
	}

	switch typ {
	case TypeWelcome:
		var ev WelcomeEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, badRequest("invalid welcome frame", typ)
		}
		return ev, nil
	case TypeStatus:
		var ev StatusEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, badRequest("invalid status frame", typ)
		}
		return ev, nil
	case TypeTextResponse:
		var ev TextResponseEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, badRequest("invalid text_response frame", typ)
		}
		return ev, nil
	case TypeVideoReady:
		var ev VideoReadyEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			return nil, badRequest("invalid video_ready frame", typ)
		}
		return ev, nil
	case TypeError:
		var ev ErrorEvent
		if err := json.Unmarshal(data, &ev); err != nil {
			// The error frame carries no required fields; a bad message field
			// still means the agent failed.
			return ErrorEvent{}, nil
		}
		return ev, nil
	default:
		return nil, &DecodeError{Code: CodeUnknownType, Message: "unsupported frame type", Type: typ}
	}
}

// EncodeEvent renders ev as a wire frame. Agents (and tests) use it to produce
// frames the client decodes.
func EncodeEvent(ev Event) ([]byte, error) {
	if ev == nil {
		return nil, fmt.Errorf("event must not be nil")
	}
	var frame any
	switch e := ev.(type) {
	case WelcomeEvent:
		frame = struct {
			Type string `json:"type"`
			WelcomeEvent
		}{TypeWelcome, e}
	case StatusEvent:
		frame = struct {
			Type string `json:"type"`
			StatusEvent
		}{TypeStatus, e}
	case TextResponseEvent:
		frame = struct {
			Type string `json:"type"`
			TextResponseEvent
		}{TypeTextResponse, e}
	case VideoReadyEvent:
		frame = struct {
			Type string `json:"type"`
			VideoReadyEvent
		}{TypeVideoReady, e}
	case ErrorEvent:
		frame = struct {
			Type string `json:"type"`
			ErrorEvent
		}{TypeError, e}
	default:
		return nil, fmt.Errorf("unsupported event %T", ev)
	}
	return json.Marshal(frame)
}

// NewOutboundMessage trims raw and builds the outbound frame. It reports false
// for empty or whitespace-only input.
func NewOutboundMessage(raw string) (OutboundMessage, bool) {
	text := strings.TrimSpace(raw)
	if text == "" {
		return OutboundMessage{}, false
	}
	return OutboundMessage{Message: text}, true
}

// DecodeOutboundMessage decodes a client frame on the agent side.
func DecodeOutboundMessage(data []byte) (OutboundMessage, error) {
	var msg OutboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return OutboundMessage{}, badRequest("invalid json frame", "")
	}
	return msg, nil
}
