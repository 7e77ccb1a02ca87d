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

// cimdev describes a compute-in-memory device: its tiles and the links between them.
func cimdevFile() *descriptorpb.FileDescriptorProto {
	return &descriptorpb.FileDescriptorProto{
		Name:    proto.String("cimdev/cimdev.proto"),
		Package: proto.String("cimdev"),
		Syntax:  proto.String("proto3"),
		MessageType: []*descriptorpb.DescriptorProto{
			msgType("CimDevProto",
				scalar("name", 1, tString),
				scalar("version", 2, tString),
				repeatedMessage("tiles", 3, ".cimdev.Tile"),
				repeatedMessage("links", 4, ".cimdev.Link"),
				scalar("doc_string", 5, tString),
			),
			msgType("Tile",
				scalar("id", 1, tString),
				scalar("kind", 2, tString),
				scalar("rows", 3, tInt32),
				scalar("cols", 4, tInt32),
				scalar("cell_bits", 5, tInt32),
				scalar("adc_bits", 6, tInt32),
			),
			msgType("Link",
				scalar("src", 1, tString),
				scalar("dst", 2, tString),
				scalar("bandwidth", 3, tInt64),
				scalar("latency", 4, tInt32),
			),
		},
	}
}

var cimdevVariant = sync.OnceValue(func() *Variant {
	md, err := buildRoot(cimdevFile(), "CimDevProto")
	if err != nil {
		panic(err)
	}
	return &Variant{Name: "cimdev", root: md, validate: validateCimDev, toGraph: cimdevToGraph}
})

// CimDev is the device description family.
func CimDev() *Variant { return cimdevVariant() }

func validateCimDev(m protoreflect.Message) error {
	if getString(m, "name") == "" {
		return errors.New("name is required")
	}
	if getList(m, "tiles").Len() == 0 {
		return errors.New("at least one tile is required")
	}
	return nil
}

func cimdevToGraph(m protoreflect.Message) *graph.Graph {
	g := graph.New(getString(m, "name"))

	tiles := getList(m, "tiles")
	for i := 0; i < tiles.Len(); i++ {
		t := tiles.Get(i).Message()
		id := getString(t, "id")
		if id == "" {
			id = fmt.Sprintf("tile%d", i)
		}
		label := id
		if kind := getString(t, "kind"); kind != "" {
			label += "\n" + kind
		}
		if rows, cols := getInt(t, "rows"), getInt(t, "cols"); rows > 0 && cols > 0 {
			label += fmt.Sprintf("\n%dx%d", rows, cols)
		}
		g.AddNode(id, label, graph.NodeTile)
	}

	links := getList(m, "links")
	for i := 0; i < links.Len(); i++ {
		l := links.Get(i).Message()
		src, dst := getString(l, "src"), getString(l, "dst")
		if src == "" || dst == "" {
			continue
		}
		g.AddNode(src, "", graph.NodeTile)
		g.AddNode(dst, "", graph.NodeTile)

		var lbl string
		if bw := getInt(l, "bandwidth"); bw > 0 {
			lbl = fmt.Sprintf("%d B/cycle", bw)
		}
		if lat := getInt(l, "latency"); lat > 0 {
			if lbl != "" {
				lbl += ", "
			}
			lbl += fmt.Sprintf("%d cyc", lat)
		}
		g.AddEdge(src, dst, lbl)
	}
	return g
}
