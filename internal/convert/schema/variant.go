// Package schema defines the model schema families the converter understands
// and how each one is decoded, validated and drawn.
package schema

import (
	"errors"
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/dynamicpb"

	"github.com/zcyan2013/jupyterlab-extension/internal/convert/codec"
	"github.com/zcyan2013/jupyterlab-extension/internal/convert/graph"
)

var (
	ErrUnknownFields = codec.ErrUnknownFields
	ErrInvalid       = errors.New("message does not satisfy schema")
)

// Variant is one schema family: its root message plus the hooks that
// recognise and draw it.
type Variant struct {
	Name string

	root     protoreflect.MessageDescriptor
	validate func(protoreflect.Message) error
	toGraph  func(protoreflect.Message) *graph.Graph
}

func (v *Variant) Descriptor() protoreflect.MessageDescriptor { return v.root }

// New returns an empty message of the variant's root type.
func (v *Variant) New() proto.Message { return dynamicpb.NewMessage(v.root) }

// Decode parses data as this variant. In strict mode, unknown top-level
// fields and failed validation are errors, which is what lets a decoder
// chain tell families apart.
func (v *Variant) Decode(data []byte, enc codec.Encoding, strict bool) (proto.Message, error) {
	m := v.New()
	if err := codec.Unmarshal(data, enc, m); err != nil {
		return nil, fmt.Errorf("%s: %w", v.Name, err)
	}
	if !strict {
		return m, nil
	}
	if n := len(m.ProtoReflect().GetUnknown()); n > 0 {
		return nil, fmt.Errorf("%s: %w (%d bytes)", v.Name, ErrUnknownFields, n)
	}
	if err := v.validate(m.ProtoReflect()); err != nil {
		return nil, fmt.Errorf("%s: %w: %v", v.Name, ErrInvalid, err)
	}
	return m, nil
}

// Owns reports whether m was decoded as this variant.
func (v *Variant) Owns(m proto.Message) bool {
	return m != nil && m.ProtoReflect().Descriptor().FullName() == v.root.FullName()
}

// ToGraph builds the drawable graph of a message of this variant.
func (v *Variant) ToGraph(m proto.Message) (*graph.Graph, error) {
	if !v.Owns(m) {
		return nil, fmt.Errorf("%s: cannot draw %T", v.Name, m)
	}
	return v.toGraph(m.ProtoReflect()), nil
}

func fieldByName(m protoreflect.Message, name string) protoreflect.FieldDescriptor {
	return m.Descriptor().Fields().ByName(protoreflect.Name(name))
}

func getString(m protoreflect.Message, name string) string {
	fd := fieldByName(m, name)
	if fd == nil {
		return ""
	}
	return m.Get(fd).String()
}

func getInt(m protoreflect.Message, name string) int64 {
	fd := fieldByName(m, name)
	if fd == nil {
		return 0
	}
	return m.Get(fd).Int()
}

func getList(m protoreflect.Message, name string) protoreflect.List {
	fd := fieldByName(m, name)
	if fd == nil || !fd.IsList() {
		return emptyList{}
	}
	return m.Get(fd).List()
}

func getStrings(m protoreflect.Message, name string) []string {
	l := getList(m, name)
	out := make([]string, 0, l.Len())
	for i := 0; i < l.Len(); i++ {
		out = append(out, l.Get(i).String())
	}
	return out
}

func getMessage(m protoreflect.Message, name string) (protoreflect.Message, bool) {
	fd := fieldByName(m, name)
	if fd == nil || !m.Has(fd) {
		return nil, false
	}
	return m.Get(fd).Message(), true
}

func has(m protoreflect.Message, name string) bool {
	fd := fieldByName(m, name)
	return fd != nil && m.Has(fd)
}

type emptyList struct{}

func (emptyList) Len() int                          { return 0 }
func (emptyList) Get(int) protoreflect.Value        { panic("schema: empty list") }
func (emptyList) Set(int, protoreflect.Value)       { panic("schema: empty list") }
func (emptyList) Append(protoreflect.Value)         { panic("schema: empty list") }
func (emptyList) AppendMutable() protoreflect.Value { panic("schema: empty list") }
func (emptyList) Truncate(int)                      { panic("schema: empty list") }
func (emptyList) NewElement() protoreflect.Value    { panic("schema: empty list") }
func (emptyList) IsValid() bool                     { return false }
