package wire

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// FieldValue is the oneof carried for each document field.
// Exactly one of the variant members is set.
//
//	{"val_str": "Jane"}
//	{"val_u64": 42}
//	{"val_double": 0.5}
//	{"val_str_arr": {"str_arr": ["a", "b"]}}
//	{"val_json": {"any": ["json"]}}
type FieldValue struct {
	Str    *string         `json:"val_str,omitempty"`
	U64    *uint64         `json:"val_u64,omitempty"`
	Double *float64        `json:"val_double,omitempty"`
	StrArr *StringArray    `json:"val_str_arr,omitempty"`
	JSON   json.RawMessage `json:"val_json,omitempty"`

	Unknown Unknown `json:"-"`
}

// StringArray wraps the array variant.
type StringArray struct {
	StrArr []string `json:"str_arr"`
}

var errVariantCount = errors.New("field value must set exactly one variant")

func (v FieldValue) variants() int {
	n := 0
	if v.Str != nil {
		n++
	}
	if v.U64 != nil {
		n++
	}
	if v.Double != nil {
		n++
	}
	if v.StrArr != nil {
		n++
	}
	if len(v.JSON) > 0 {
		n++
	}
	return n
}

func (v FieldValue) MarshalJSON() ([]byte, error) {
	if n := v.variants(); n != 1 {
		return nil, fmt.Errorf("wire: %w, got %d", errVariantCount, n)
	}
	type plain FieldValue
	encoded, err := Marshal(plain(v))
	if err != nil {
		return nil, err
	}
	return mergeUnknown(encoded, v.Unknown)
}

func (v *FieldValue) UnmarshalJSON(data []byte) error {
	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return fmt.Errorf("wire: field value: %w", err)
	}

	var out FieldValue
	for key, raw := range members {
		var err error
		switch key {
		case "val_str":
			var s string
			err = json.Unmarshal(raw, &s)
			out.Str = &s
		case "val_u64":
			var u uint64
			u, err = decodeUint64(raw)
			out.U64 = &u
		case "val_double":
			var f float64
			err = json.Unmarshal(raw, &f)
			out.Double = &f
		case "val_str_arr":
			var arr StringArray
			err = json.Unmarshal(raw, &arr)
			out.StrArr = &arr
		case "val_json":
			out.JSON = append(json.RawMessage(nil), raw...)
		default:
			if out.Unknown == nil {
				out.Unknown = make(Unknown)
			}
			out.Unknown[key] = raw
		}
		if err != nil {
			return fmt.Errorf("wire: field value %s: %w", key, err)
		}
	}
	if n := out.variants(); n != 1 {
		return fmt.Errorf("wire: %w, got %d", errVariantCount, n)
	}
	*v = out
	return nil
}

// decodeUint64 accepts a JSON number or a decimal string, the form
// protobuf JSON uses for 64-bit integers.
func decodeUint64(raw json.RawMessage) (uint64, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, err
		}
		return strconv.ParseUint(s, 10, 64)
	}
	var u uint64
	err := json.Unmarshal(raw, &u)
	return u, err
}

// NamedField is one member of a FieldMap.
type NamedField struct {
	Name  string
	Value FieldValue
}

// FieldMap is the document field object. Unlike a Go map it keeps the member
// order of the object it was decoded from and writes members in slice order.
type FieldMap []NamedField

func (m FieldMap) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, f := range m {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := Marshal(f.Name)
		if err != nil {
			return nil, err
		}
		val, err := f.Value.MarshalJSON()
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", f.Name, err)
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

func (m *FieldMap) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("wire: fields: %w", err)
	}
	if tok == nil {
		*m = nil
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("wire: fields: expected object, got %v", tok)
	}

	out := FieldMap{}
	index := make(map[string]int)
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("wire: fields: %w", err)
		}
		name, _ := keyTok.(string)

		var v FieldValue
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("wire: field %q: %w", name, err)
		}
		if i, dup := index[name]; dup {
			out[i].Value = v
			continue
		}
		index[name] = len(out)
		out = append(out, NamedField{Name: name, Value: v})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("wire: fields: %w", err)
	}
	*m = out
	return nil
}
