package schema

import (
	"fmt"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"
)

type fieldType = descriptorpb.FieldDescriptorProto_Type

const (
	tString  = descriptorpb.FieldDescriptorProto_TYPE_STRING
	tBytes   = descriptorpb.FieldDescriptorProto_TYPE_BYTES
	tInt32   = descriptorpb.FieldDescriptorProto_TYPE_INT32
	tInt64   = descriptorpb.FieldDescriptorProto_TYPE_INT64
	tUint64  = descriptorpb.FieldDescriptorProto_TYPE_UINT64
	tFloat   = descriptorpb.FieldDescriptorProto_TYPE_FLOAT
	tDouble  = descriptorpb.FieldDescriptorProto_TYPE_DOUBLE
	tMessage = descriptorpb.FieldDescriptorProto_TYPE_MESSAGE
)

func field(name string, num int32, typ fieldType, label descriptorpb.FieldDescriptorProto_Label, typeName string) *descriptorpb.FieldDescriptorProto {
	f := &descriptorpb.FieldDescriptorProto{
		Name:   proto.String(name),
		Number: proto.Int32(num),
		Type:   typ.Enum(),
		Label:  label.Enum(),
	}
	if typeName != "" {
		f.TypeName = proto.String(typeName)
	}
	return f
}

func scalar(name string, num int32, typ fieldType) *descriptorpb.FieldDescriptorProto {
	return field(name, num, typ, descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL, "")
}

func repeated(name string, num int32, typ fieldType) *descriptorpb.FieldDescriptorProto {
	return field(name, num, typ, descriptorpb.FieldDescriptorProto_LABEL_REPEATED, "")
}

func message(name string, num int32, typeName string) *descriptorpb.FieldDescriptorProto {
	return field(name, num, tMessage, descriptorpb.FieldDescriptorProto_LABEL_OPTIONAL, typeName)
}

func repeatedMessage(name string, num int32, typeName string) *descriptorpb.FieldDescriptorProto {
	return field(name, num, tMessage, descriptorpb.FieldDescriptorProto_LABEL_REPEATED, typeName)
}

// packed marks a repeated scalar as [packed = true].
func packed(f *descriptorpb.FieldDescriptorProto) *descriptorpb.FieldDescriptorProto {
	f.Options = &descriptorpb.FieldOptions{Packed: proto.Bool(true)}
	return f
}

func nested(d *descriptorpb.DescriptorProto, types ...*descriptorpb.DescriptorProto) *descriptorpb.DescriptorProto {
	d.NestedType = append(d.NestedType, types...)
	return d
}

func msgType(name string, fields ...*descriptorpb.FieldDescriptorProto) *descriptorpb.DescriptorProto {
	return &descriptorpb.DescriptorProto{Name: proto.String(name), Field: fields}
}

// buildRoot compiles a single-file schema and returns its root message.
func buildRoot(fd *descriptorpb.FileDescriptorProto, root string) (protoreflect.MessageDescriptor, error) {
	file, err := protodesc.NewFile(fd, nil)
	if err != nil {
		return nil, fmt.Errorf("schema %s: %w", fd.GetName(), err)
	}
	md := file.Messages().ByName(protoreflect.Name(root))
	if md == nil {
		return nil, fmt.Errorf("schema %s: message %s not found", fd.GetName(), root)
	}
	return md, nil
}
