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

// cimprog is a program compiled for a cimdev device: buffers and an instruction stream.
func cimprogFile() *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("cimprog/cimprog.proto"),
		Package: proto.String("cimprog"),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			msgType("CimProgProto",
				scalar("name", 1, tString),
				scalar("device", 2, tString),
				scalar("doc_string", 3, tString),
				repeatedMessage("buffers", 10, ".cimprog.Buffer"),
				repeatedMessage("instructions", 11, ".cimprog.Instruction"),
			),
			msgType("Buffer",
				scalar("name", 1, tString),
				scalar("size", 2, tInt64),
				scalar("tile", 3, tString),
			),
			msgType("Instruction",
				scalar("op", 1, tString),
				scalar("tile", 2, tString),
				repeated("inputs", 3, tString),
				repeated("outputs", 4, tString),
				scalar("cycles", 5, tInt64),
			),
		},
	}
}

var cimprogVariant = sync.OnceValue(func() *Variant {
	md, err := buildRoot(cimprogFile(), "CimProgProto")
	if err != nil {
		panic(err)
	}
	return &Variant{Name: "cimprog", root: md, validate: validateCimProg, toGraph: cimprogToGraph}
})

// CimProg is the compiled program family.
func CimProg() *Variant { return cimprogVariant() }

func validateCimProg(m protoreflect.Message) error {
	instrs := getList(m, "instructions")
	if instrs.Len() == 0 {
		return errors.New("at least one instruction is required")
	}
	for i := 0; i < instrs.Len(); i++ {
		if getString(instrs.Get(i).Message(), "op") == "" {
			return fmt.Errorf("instruction %d has no op", i)
		}
	}
	return nil
}

func cimprogToGraph(m protoreflect.Message) *graph.Graph {
	g := graph.New(getString(m, "name"))

	buffers := getList(m, "buffers")
	for i := 0; i < buffers.Len(); i++ {
		b := buffers.Get(i).Message()
		name := getString(b, "name")
		if name == "" {
			continue
		}
		label := name
		if size := getInt(b, "size"); size > 0 {
			label += fmt.Sprintf("\n%d B", size)
		}
		g.AddNode(bufferID(name), label, graph.NodeBuffer)
	}

	instrs := getList(m, "instructions")
	for i := 0; i < instrs.Len(); i++ {
		in := instrs.Get(i).Message()
		id := fmt.Sprintf("i%d", i)
		label := fmt.Sprintf("%d: %s", i, getString(in, "op"))
		if tile := getString(in, "tile"); tile != "" {
			label += "@" + tile
		}
		if c := getInt(in, "cycles"); c > 0 {
			label += fmt.Sprintf("\n%d cyc", c)
		}
		g.AddNode(id, label, graph.NodeOp)

		for _, name := range getStrings(in, "inputs") {
			g.AddNode(bufferID(name), name, graph.NodeBuffer)
			g.AddEdge(bufferID(name), id, "")
		}
		for _, name := range getStrings(in, "outputs") {
			g.AddNode(bufferID(name), name, graph.NodeBuffer)
			g.AddEdge(id, bufferID(name), "")
		}
	}
	return g
}

func bufferID(name string) string { return "buf:" + name }
