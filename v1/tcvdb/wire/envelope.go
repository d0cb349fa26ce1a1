package wire

import (
	"encoding/json"
	"fmt"
	"reflect"
)

// Status is the code/msg/redirect triple present on every response.
type Status struct {
	// Code is zero on success.
	Code int32 `json:"code"`

	// Msg is a human-readable description of Code.
	Msg string `json:"msg,omitempty"`

	// Redirect names the node the request must be re-sent to.
	// Its presence wins over Code.
	Redirect string `json:"redirect,omitempty"`

	// RequestID identifies the request in server logs. HTTP gateways set it.
	RequestID string `json:"requestId,omitempty"`
}

// OK reports a successful response that needs no redirect.
func (s Status) OK() bool {
	return s.Code == 0 && s.Redirect == ""
}

// Redirected reports whether the response names another node.
func (s Status) Redirected() bool {
	return s.Redirect != ""
}

var statusMembers = []string{"code", "msg", "redirect", "requestId"}

// DecodeStatus reads only the status triple of a response, leaving the
// payload undecoded.
func DecodeStatus(data []byte) (Status, error) {
	var s Status
	if err := json.Unmarshal(data, &s); err != nil {
		return Status{}, fmt.Errorf("wire: decode status: %w", err)
	}
	return s, nil
}

// WithWarning sets the "warning" member of an encoded response object unless
// it already holds a non-empty one. Data that is not an object is returned
// unchanged.
func WithWarning(data []byte, warning string) []byte {
	if warning == "" {
		return data
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil || members == nil {
		return data
	}
	if raw, ok := members["warning"]; ok {
		var existing string
		if json.Unmarshal(raw, &existing) == nil && existing != "" {
			return data
		}
	}
	encoded, err := Marshal(warning)
	if err != nil {
		return data
	}
	members["warning"] = encoded
	out, err := Marshal(members)
	if err != nil {
		return data
	}
	return out
}

// Envelope is a decoded response: the shared status triple plus an
// operation-specific payload. Members declared by neither are kept in Extra.
type Envelope[T any] struct {
	Status  Status
	Payload T
	Extra   Unknown
}

// Decode reads a full response into an Envelope.
func Decode[T any](data []byte) (*Envelope[T], error) {
	env := &Envelope[T]{}
	if err := json.Unmarshal(data, &env.Status); err != nil {
		return nil, fmt.Errorf("wire: decode status: %w", err)
	}
	if err := json.Unmarshal(data, &env.Payload); err != nil {
		return nil, fmt.Errorf("wire: decode %T: %w", env.Payload, err)
	}
	extra, err := collectUnknown(data, reflect.TypeOf(env.Payload), statusMembers...)
	if err != nil {
		return nil, fmt.Errorf("wire: decode %T: %w", env.Payload, err)
	}
	env.Extra = extra
	return env, nil
}

// MarshalJSON writes the envelope back as one flat object.
func (e Envelope[T]) MarshalJSON() ([]byte, error) {
	payload, err := Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(payload, &members); err != nil {
		return nil, fmt.Errorf("wire: payload %T is not an object: %w", e.Payload, err)
	}
	if members == nil {
		members = make(map[string]json.RawMessage)
	}
	status, err := Marshal(e.Status)
	if err != nil {
		return nil, err
	}
	var statusMap map[string]json.RawMessage
	if err := json.Unmarshal(status, &statusMap); err != nil {
		return nil, err
	}
	for k, v := range statusMap {
		members[k] = v
	}
	for k, v := range e.Extra {
		if _, ok := members[k]; !ok {
			members[k] = v
		}
	}
	return Marshal(members)
}
