// Package codec reads and writes protobuf messages as wire bytes or YAML.
package codec

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"gopkg.in/yaml.v3"
)

// Encoding is a serialized form of a message.
type Encoding string

const (
	Binary Encoding = "pb"
	YAML   Encoding = "yaml"
)

var (
	// ErrUnknownFields means a message carries bytes its schema does not name.
	ErrUnknownFields = errors.New("message has fields outside the schema")

	errEmptyDocument = errors.New("empty document")
)

// Unmarshal decodes data into m.
func Unmarshal(data []byte, enc Encoding, m proto.Message) error {
	switch enc {
	case Binary:
		return proto.Unmarshal(data, m)
	case YAML:
		js, err := yamlToJSON(data)
		if err != nil {
			return err
		}
		return protojson.UnmarshalOptions{}.Unmarshal(js, m)
	}
	return fmt.Errorf("codec: unknown encoding %q", enc)
}

// Marshal encodes m. Binary output is deterministic and in field-number order.
func Marshal(m proto.Message, enc Encoding) ([]byte, error) {
	switch enc {
	case Binary:
		return proto.MarshalOptions{Deterministic: true}.Marshal(m)
	case YAML:
		// protojson silently drops unknown fields.
		if path, n := FindUnknown(m.ProtoReflect()); n > 0 {
			if path == "" {
				path = string(m.ProtoReflect().Descriptor().FullName())
			}
			return nil, fmt.Errorf("%w: %d bytes at %s cannot be written as yaml", ErrUnknownFields, n, path)
		}
		js, err := protojson.MarshalOptions{UseProtoNames: true}.Marshal(m)
		if err != nil {
			return nil, err
		}
		return jsonToYAML(js)
	}
	return nil, fmt.Errorf("codec: unknown encoding %q", enc)
}

// FindUnknown returns the field path of the first message under m that holds
// unknown fields, and how many unknown bytes it holds. The path is empty when
// m itself carries them.
func FindUnknown(m protoreflect.Message) (string, int) {
	if n := len(m.GetUnknown()); n > 0 {
		return "", n
	}
	var (
		path string
		size int
	)
	m.Range(func(fd protoreflect.FieldDescriptor, v protoreflect.Value) bool {
		if fd.Message() == nil {
			return true
		}
		check := func(sub protoreflect.Message, at string) bool {
			p, n := FindUnknown(sub)
			if n == 0 {
				return true
			}
			path, size = at, n
			if p != "" {
				path += "." + p
			}
			return false
		}
		switch {
		case fd.IsList():
			l := v.List()
			for i := 0; i < l.Len(); i++ {
				if !check(l.Get(i).Message(), fmt.Sprintf("%s[%d]", fd.Name(), i)) {
					return false
				}
			}
		case fd.IsMap():
			if fd.MapValue().Message() == nil {
				return true
			}
			ok := true
			v.Map().Range(func(k protoreflect.MapKey, mv protoreflect.Value) bool {
				ok = check(mv.Message(), fmt.Sprintf("%s[%v]", fd.Name(), k.Interface()))
				return ok
			})
			return ok
		default:
			return check(v.Message(), string(fd.Name()))
		}
		return true
	})
	return path, size
}

// Load reads path and decodes it into m.
func Load(path string, enc Encoding, m proto.Message) error {
	b, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	return Unmarshal(b, enc, m)
}

// Dump encodes m and writes it to path.
func Dump(m proto.Message, path string, enc Encoding) error {
	b, err := Marshal(m, enc)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, b, 0644)
}

func yamlToJSON(data []byte) ([]byte, error) {
	var v any
	if err := yaml.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	if v == nil {
		return nil, errEmptyDocument
	}
	return json.Marshal(normalize(v))
}

// normalize turns yaml maps with non-string keys into JSON-compatible maps.
func normalize(v any) any {
	switch t := v.(type) {
	case map[string]any:
		for k, x := range t {
			t[k] = normalize(x)
		}
		return t
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, x := range t {
			out[fmt.Sprint(k)] = normalize(x)
		}
		return out
	case []any:
		for i, x := range t {
			t[i] = normalize(x)
		}
		return t
	}
	return v
}

// jsonToYAML re-emits a JSON document as block-style YAML, keeping key order.
func jsonToYAML(js []byte) ([]byte, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(js, &doc); err != nil {
		return nil, err
	}
	clearStyle(&doc)

	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(&doc); err != nil {
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func clearStyle(n *yaml.Node) {
	n.Style = 0
	for _, c := range n.Content {
		clearStyle(c)
	}
}
