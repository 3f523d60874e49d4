package core

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/dkeye/Reflector/internal/domain"
)

// Request is the decoded form of an inbound frame: either *RegisterRequest or
// *RoutedMessage.
type Request interface {
	RequestMethod() string
}

// RegisterRequest asks to bind the sending connection to From.
type RegisterRequest struct {
	// From is only meaningful when HasFrom is true.
	From string
	// HasFrom is false when the field is absent or not a string.
	HasFrom bool
}

func (*RegisterRequest) RequestMethod() string { return domain.MethodRegister }

// RoutedMessage is any non-REGISTER message. Raw is the frame exactly as it
// arrived and is what gets forwarded; the other fields are only read for
// validation and routing.
type RoutedMessage struct {
	Method string

	// A present but non-string from/to decodes as "", which never matches a
	// registered identity.
	From    string
	HasFrom bool
	To      string
	HasTo   bool

	Raw Frame
}

func (m *RoutedMessage) RequestMethod() string { return m.Method }

var ErrInvalidUTF8 = errors.New("frame is not valid UTF-8")

// DecodeError is returned by DecodeRequest when no Request could be produced.
// Code is the reply to send back.
type DecodeError struct {
	Code domain.ReplyCode
	Err  error
}

func (e *DecodeError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("decode %s: %v", e.Code, e.Err)
	}
	return "decode " + string(e.Code)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// DecodeRequest parses a frame into a Request. Only method, from and to are
// inspected; all other fields stay opaque inside Raw.
func DecodeRequest(data Frame) (Request, error) {
	// encoding/json would replace bad bytes with U+FFFD, but Raw is forwarded
	// as a text frame and receivers drop the connection on invalid UTF-8.
	if !utf8.Valid(data) {
		return nil, &DecodeError{Code: domain.CodeJSON, Err: ErrInvalidUTF8}
	}
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, &DecodeError{Code: domain.CodeJSON, Err: err}
	}
	// "null" unmarshals into a nil map without error
	if fields == nil {
		return nil, &DecodeError{Code: domain.CodeJSON}
	}

	method, present, isString := stringField(fields, "method")
	if !present || !isString {
		return nil, &DecodeError{Code: domain.CodeNoMethod}
	}

	if method == domain.MethodRegister {
		from, _, isString := stringField(fields, "from")
		return &RegisterRequest{From: from, HasFrom: isString}, nil
	}

	msg := &RoutedMessage{Method: method, Raw: data}
	msg.From, msg.HasFrom, _ = stringField(fields, "from")
	msg.To, msg.HasTo, _ = stringField(fields, "to")
	return msg, nil
}

func stringField(fields map[string]json.RawMessage, key string) (value string, present, isString bool) {
	raw, ok := fields[key]
	if !ok {
		return "", false, false
	}
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '"' {
		return "", true, false
	}
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", true, false
	}
	return value, true, true
}
