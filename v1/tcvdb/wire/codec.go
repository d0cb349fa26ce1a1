package wire

import (
	"bytes"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"
	"sync"
)

// Marshal encodes a wire message. Output is deterministic: struct members keep
// their declared order, and unknown members are merged with sorted keys.
// HTML characters are not escaped, so filter text such as `a < 3` is sent as is.
func Marshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("wire: marshal %T: %w", v, err)
	}
	return bytes.TrimRight(buf.Bytes(), "\n"), nil
}

// Unmarshal decodes a wire message into v.
func Unmarshal(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("wire: unmarshal %T: %w", v, err)
	}
	return nil
}

// Unknown holds object members a message does not declare. They are kept
// verbatim on decode and written back on encode, so fields added by a newer
// server survive a decode/encode cycle.
type Unknown map[string]json.RawMessage

// mergeUnknown adds unknown members to an encoded object. Declared members win.
func mergeUnknown(encoded []byte, unknown Unknown) ([]byte, error) {
	if len(unknown) == 0 {
		return encoded, nil
	}
	var members map[string]json.RawMessage
	if err := json.Unmarshal(encoded, &members); err != nil {
		return nil, err
	}
	for k, v := range unknown {
		if _, ok := members[k]; !ok {
			members[k] = v
		}
	}
	return Marshal(members)
}

// collectUnknown returns the members of the object in data that are neither
// declared by t nor listed in extra.
func collectUnknown(data []byte, t reflect.Type, extra ...string) (Unknown, error) {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return nil, err
	}
	for name := range jsonNames(t) {
		delete(members, name)
	}
	for _, name := range extra {
		delete(members, name)
	}
	if len(members) == 0 {
		return nil, nil
	}
	return members, nil
}

var jsonNameCache sync.Map // reflect.Type -> map[string]struct{}

// jsonNames lists the JSON member names a struct type declares.
// Embedded structs contribute their own names. Non-struct types declare none.
func jsonNames(t reflect.Type) map[string]struct{} {
	if t == nil {
		return nil
	}
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if cached, ok := jsonNameCache.Load(t); ok {
		return cached.(map[string]struct{})
	}
	names := make(map[string]struct{})
	if t.Kind() == reflect.Struct {
		for i := 0; i < t.NumField(); i++ {
			f := t.Field(i)
			tag := f.Tag.Get("json")
			if tag == "-" {
				continue
			}
			name, _, _ := strings.Cut(tag, ",")
			if f.Anonymous && name == "" {
				for n := range jsonNames(f.Type) {
					names[n] = struct{}{}
				}
				continue
			}
			if !f.IsExported() {
				continue
			}
			if name == "" {
				name = f.Name
			}
			names[name] = struct{}{}
		}
	}
	jsonNameCache.Store(t, names)
	return names
}
