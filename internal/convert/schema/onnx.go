package schema

import (
	"errors"
	"fmt"
	"sync"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protoreflect"
	"google.golang.org/protobuf/types/descriptorpb"

	"github.com/zcyan2013/jupyterlab-extension/internal/convert/graph"
)

// onnxFile mirrors onnx.proto up to IR version 11. Field numbers and packing
// follow onnx.proto. Enum-typed fields are read as int32 so values newer than
// this table still round-trip, and oneof members are plain optional fields so
// deterministic output stays in field-number order.
func onnxFile() *descriptorpb.FileDescriptorProto {
	typeProto := nested(msgType("TypeProto",
		message("tensor_type", 1, ".onnx.TypeProto.Tensor"),
		message("sequence_type", 4, ".onnx.TypeProto.Sequence"),
		message("map_type", 5, ".onnx.TypeProto.Map"),
		message("optional_type", 9, ".onnx.TypeProto.Optional"),
		message("sparse_tensor_type", 8, ".onnx.TypeProto.SparseTensor"),
		scalar("denotation", 6, tString),
	),
		msgType("Tensor",
			scalar("elem_type", 1, tInt32),
			message("shape", 2, ".onnx.TensorShapeProto"),
		),
		msgType("Sequence",
			message("elem_type", 1, ".onnx.TypeProto"),
		),
		msgType("Map",
			scalar("key_type", 1, tInt32),
			message("value_type", 2, ".onnx.TypeProto"),
		),
		msgType("Optional",
			message("elem_type", 1, ".onnx.TypeProto"),
		),
		msgType("SparseTensor",
			scalar("elem_type", 1, tInt32),
			message("shape", 2, ".onnx.TensorShapeProto"),
		),
	)

	shapeProto := nested(msgType("TensorShapeProto",
		repeatedMessage("dim", 1, ".onnx.TensorShapeProto.Dimension"),
	),
		msgType("Dimension",
			scalar("dim_value", 1, tInt64),
			scalar("dim_param", 2, tString),
			scalar("denotation", 3, tString),
		),
	)

	tensorProto := nested(msgType("TensorProto",
		repeated("dims", 1, tInt64),
		scalar("data_type", 2, tInt32),
		message("segment", 3, ".onnx.TensorProto.Segment"),
		packed(repeated("float_data", 4, tFloat)),
		packed(repeated("int32_data", 5, tInt32)),
		repeated("string_data", 6, tBytes),
		packed(repeated("int64_data", 7, tInt64)),
		scalar("name", 8, tString),
		scalar("raw_data", 9, tBytes),
		packed(repeated("double_data", 10, tDouble)),
		packed(repeated("uint64_data", 11, tUint64)),
		scalar("doc_string", 12, tString),
		repeatedMessage("external_data", 13, ".onnx.StringStringEntryProto"),
		scalar("data_location", 14, tInt32),
		repeatedMessage("metadata_props", 16, ".onnx.StringStringEntryProto"),
	),
		msgType("Segment",
			scalar("begin", 1, tInt64),
			scalar("end", 2, tInt64),
		),
	)

	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("onnx/onnx.proto"),
		Package: proto.String("onnx"),
		Syntax:  proto.String("proto2"),
		MessageType: []*descriptorpb.DescriptorProto{
			msgType("AttributeProto",
				scalar("name", 1, tString),
				scalar("f", 2, tFloat),
				scalar("i", 3, tInt64),
				scalar("s", 4, tBytes),
				message("t", 5, ".onnx.TensorProto"),
				message("g", 6, ".onnx.GraphProto"),
				repeated("floats", 7, tFloat),
				repeated("ints", 8, tInt64),
				repeated("strings", 9, tBytes),
				repeatedMessage("tensors", 10, ".onnx.TensorProto"),
				repeatedMessage("graphs", 11, ".onnx.GraphProto"),
				scalar("doc_string", 13, tString),
				message("tp", 14, ".onnx.TypeProto"),
				repeatedMessage("type_protos", 15, ".onnx.TypeProto"),
				scalar("type", 20, tInt32),
				scalar("ref_attr_name", 21, tString),
				message("sparse_tensor", 22, ".onnx.SparseTensorProto"),
				repeatedMessage("sparse_tensors", 23, ".onnx.SparseTensorProto"),
			),
			msgType("ValueInfoProto",
				scalar("name", 1, tString),
				message("type", 2, ".onnx.TypeProto"),
				scalar("doc_string", 3, tString),
				repeatedMessage("metadata_props", 4, ".onnx.StringStringEntryProto"),
			),
			msgType("NodeProto",
				repeated("input", 1, tString),
				repeated("output", 2, tString),
				scalar("name", 3, tString),
				scalar("op_type", 4, tString),
				repeatedMessage("attribute", 5, ".onnx.AttributeProto"),
				scalar("doc_string", 6, tString),
				scalar("domain", 7, tString),
				scalar("overload", 8, tString),
				repeatedMessage("metadata_props", 9, ".onnx.StringStringEntryProto"),
				repeatedMessage("device_configurations", 10, ".onnx.NodeDeviceConfigurationProto"),
			),
			msgType("IntIntListEntryProto",
				scalar("key", 1, tInt64),
				repeated("value", 2, tInt64),
			),
			msgType("NodeDeviceConfigurationProto",
				scalar("configuration_id", 1, tString),
				repeatedMessage("sharding_spec", 2, ".onnx.ShardingSpecProto"),
				scalar("pipeline_stage", 3, tInt32),
			),
			msgType("ShardingSpecProto",
				scalar("tensor_name", 1, tString),
				repeated("device", 2, tInt64),
				repeatedMessage("index_to_device_group_map", 3, ".onnx.IntIntListEntryProto"),
				repeatedMessage("sharded_dim", 4, ".onnx.ShardedDimProto"),
			),
			msgType("ShardedDimProto",
				scalar("axis", 1, tInt64),
				repeatedMessage("simple_sharding", 2, ".onnx.SimpleShardedDimProto"),
			),
			msgType("SimpleShardedDimProto",
				scalar("dim_value", 1, tInt64),
				scalar("dim_param", 2, tString),
				scalar("num_shards", 3, tInt64),
			),
			msgType("TrainingInfoProto",
				message("initialization", 1, ".onnx.GraphProto"),
				message("algorithm", 2, ".onnx.GraphProto"),
				repeatedMessage("initialization_binding", 3, ".onnx.StringStringEntryProto"),
				repeatedMessage("update_binding", 4, ".onnx.StringStringEntryProto"),
			),
			msgType("ModelProto",
				scalar("ir_version", 1, tInt64),
				scalar("producer_name", 2, tString),
				scalar("producer_version", 3, tString),
				scalar("domain", 4, tString),
				scalar("model_version", 5, tInt64),
				scalar("doc_string", 6, tString),
				message("graph", 7, ".onnx.GraphProto"),
				repeatedMessage("opset_import", 8, ".onnx.OperatorSetIdProto"),
				repeatedMessage("metadata_props", 14, ".onnx.StringStringEntryProto"),
				repeatedMessage("training_info", 20, ".onnx.TrainingInfoProto"),
				repeatedMessage("functions", 25, ".onnx.FunctionProto"),
				repeatedMessage("configuration", 26, ".onnx.DeviceConfigurationProto"),
			),
			msgType("DeviceConfigurationProto",
				scalar("name", 1, tString),
				scalar("num_devices", 2, tInt32),
				repeated("device", 3, tString),
			),
			msgType("StringStringEntryProto",
				scalar("key", 1, tString),
				scalar("value", 2, tString),
			),
			msgType("TensorAnnotation",
				scalar("tensor_name", 1, tString),
				repeatedMessage("quant_parameter_tensor_names", 2, ".onnx.StringStringEntryProto"),
			),
			msgType("GraphProto",
				repeatedMessage("node", 1, ".onnx.NodeProto"),
				scalar("name", 2, tString),
				repeatedMessage("initializer", 5, ".onnx.TensorProto"),
				scalar("doc_string", 10, tString),
				repeatedMessage("input", 11, ".onnx.ValueInfoProto"),
				repeatedMessage("output", 12, ".onnx.ValueInfoProto"),
				repeatedMessage("value_info", 13, ".onnx.ValueInfoProto"),
				repeatedMessage("quantization_annotation", 14, ".onnx.TensorAnnotation"),
				repeatedMessage("sparse_initializer", 15, ".onnx.SparseTensorProto"),
				repeatedMessage("metadata_props", 16, ".onnx.StringStringEntryProto"),
			),
			tensorProto,
			msgType("SparseTensorProto",
				message("values", 1, ".onnx.TensorProto"),
				message("indices", 2, ".onnx.TensorProto"),
				repeated("dims", 3, tInt64),
			),
			shapeProto,
			typeProto,
			msgType("OperatorSetIdProto",
				scalar("domain", 1, tString),
				scalar("version", 2, tInt64),
			),
			msgType("FunctionProto",
				scalar("name", 1, tString),
				repeated("input", 4, tString),
				repeated("output", 5, tString),
				repeated("attribute", 6, tString),
				repeatedMessage("node", 7, ".onnx.NodeProto"),
				scalar("doc_string", 8, tString),
				repeatedMessage("opset_import", 9, ".onnx.OperatorSetIdProto"),
				scalar("domain", 10, tString),
				repeatedMessage("attribute_proto", 11, ".onnx.AttributeProto"),
				repeatedMessage("value_info", 12, ".onnx.ValueInfoProto"),
				scalar("overload", 13, tString),
				repeatedMessage("metadata_props", 14, ".onnx.StringStringEntryProto"),
			),
		},
	}
}

var onnxVariant = sync.OnceValue(func() *Variant {
	md, err := buildRoot(onnxFile(), "ModelProto")
	if err != nil {
		panic(err)
	}
	return &Variant{Name: "onnx", root: md, validate: validateONNX, toGraph: onnxToGraph}
})

// ONNX is the ONNX model family.
func ONNX() *Variant { return onnxVariant() }

func validateONNX(m protoreflect.Message) error {
	if getInt(m, "ir_version") <= 0 {
		return errors.New("ir_version is required")
	}
	if !has(m, "graph") {
		return errors.New("graph is required")
	}
	return nil
}

func onnxToGraph(m protoreflect.Message) *graph.Graph {
	gm, ok := getMessage(m, "graph")
	if !ok {
		return graph.New(getString(m, "producer_name"))
	}
	g := graph.New(getString(gm, "name"))

	initializers := map[string]bool{}
	inits := getList(gm, "initializer")
	for i := 0; i < inits.Len(); i++ {
		initializers[getString(inits.Get(i).Message(), "name")] = true
	}

	// producer maps a tensor name to the node that yields it.
	producer := map[string]string{}

	inputs := getList(gm, "input")
	for i := 0; i < inputs.Len(); i++ {
		vi := inputs.Get(i).Message()
		name := getString(vi, "name")
		if name == "" || initializers[name] {
			continue
		}
		id := "in:" + name
		g.AddNode(id, name+shapeSuffix(vi), graph.NodeTensor)
		producer[name] = id
	}

	nodes := getList(gm, "node")
	for i := 0; i < nodes.Len(); i++ {
		n := nodes.Get(i).Message()
		id := fmt.Sprintf("n%d", i)
		label := getString(n, "op_type")
		if name := getString(n, "name"); name != "" {
			label += "\n" + name
		}
		g.AddNode(id, label, graph.NodeOp)
		for _, t := range getStrings(n, "input") {
			if src, ok := producer[t]; ok {
				g.AddEdge(src, id, t)
			}
		}
		for _, t := range getStrings(n, "output") {
			if t != "" {
				producer[t] = id
			}
		}
	}

	outputs := getList(gm, "output")
	for i := 0; i < outputs.Len(); i++ {
		vi := outputs.Get(i).Message()
		name := getString(vi, "name")
		if name == "" {
			continue
		}
		id := "out:" + name
		g.AddNode(id, name+shapeSuffix(vi), graph.NodeTensor)
		if src, ok := producer[name]; ok {
			g.AddEdge(src, id, name)
		}
	}
	return g
}

// shapeSuffix renders a value's tensor shape as "\n[N, 3, 224, 224]".
func shapeSuffix(vi protoreflect.Message) string {
	tp, ok := getMessage(vi, "type")
	if !ok {
		return ""
	}
	tt, ok := getMessage(tp, "tensor_type")
	if !ok {
		return ""
	}
	shape, ok := getMessage(tt, "shape")
	if !ok {
		return ""
	}
	dims := getList(shape, "dim")
	s := "\n["
	for i := 0; i < dims.Len(); i++ {
		if i > 0 {
			s += ", "
		}
		d := dims.Get(i).Message()
		if p := getString(d, "dim_param"); p != "" {
			s += p
		} else {
			s += fmt.Sprint(getInt(d, "dim_value"))
		}
	}
	return s + "]"
}
