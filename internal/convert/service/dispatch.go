package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/zcyan2013/jupyterlab-extension/internal/convert/codec"
	"github.com/zcyan2013/jupyterlab-extension/internal/convert/domain"
	"github.com/zcyan2013/jupyterlab-extension/internal/convert/graph"
	"github.com/zcyan2013/jupyterlab-extension/internal/convert/utils"
)

// route is how one (sformat, tformat) pair is served.
type route struct {
	// onnxOnly sources skip the chain and are read leniently as ONNX.
	onnxOnly bool
	source   codec.Encoding
}

var routes = map[domain.Pair]route{
	{Source: domain.FormatONNX, Target: domain.FormatYAML}: {onnxOnly: true, source: codec.Binary},
	{Source: domain.FormatONNX, Target: domain.FormatDot}:  {onnxOnly: true, source: codec.Binary},
	{Source: domain.FormatPB, Target: domain.FormatYAML}:   {source: codec.Binary},
	{Source: domain.FormatPB, Target: domain.FormatDot}:    {source: codec.Binary},
	{Source: domain.FormatYAML, Target: domain.FormatPB}:   {source: codec.YAML},
	{Source: domain.FormatYAML, Target: domain.FormatDot}:  {source: codec.YAML},
}

// SupportedPairs lists the conversions the service performs, sorted.
func SupportedPairs() []domain.Pair {
	out := make([]domain.Pair, 0, len(routes))
	for p := range routes {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Source != out[j].Source {
			return out[i].Source < out[j].Source
		}
		return out[i].Target < out[j].Target
	})
	return out
}

func lookupRoute(p domain.Pair) (route, error) {
	r, ok := routes[p]
	if !ok {
		return route{}, fmt.Errorf("%w: %s to %s", domain.ErrUnsupportedConversion, p.Source, p.Target)
	}
	return r, nil
}

// encoder writes a decoded message to target and returns the files it produced.
type encoder func(ctx context.Context, s *Service, d Decoded, target string) ([]string, error)

var encoders = map[domain.Format]encoder{
	domain.FormatYAML: dumpAs(codec.YAML),
	domain.FormatPB:   dumpAs(codec.Binary),
	domain.FormatDot:  renderDot,
}

func dumpAs(enc codec.Encoding) encoder {
	return func(_ context.Context, s *Service, d Decoded, target string) ([]string, error) {
		b, err := codec.Marshal(d.Message, enc)
		if err != nil {
			if errors.Is(err, codec.ErrUnknownFields) {
				return nil, fmt.Errorf("%w: %v", domain.ErrLossyConversion, err)
			}
			return nil, fmt.Errorf("encode %s: %w", enc, err)
		}
		if err := s.writeFile(target, b); err != nil {
			return nil, fmt.Errorf("write %s: %w", enc, err)
		}
		return []string{target}, nil
	}
}

// renderDot writes the DOT source at target and the PNG next to it at
// target+".png", the layout graphviz's render(target) produces. Graphviz
// runs in a scratch directory so it never writes through the server root.
func renderDot(ctx context.Context, s *Service, d Decoded, target string) ([]string, error) {
	if d.Variant == nil {
		return nil, fmt.Errorf("%w: %s messages cannot be drawn", domain.ErrUnsupportedConversion, d.Name)
	}
	g, err := d.Variant.ToGraph(d.Message)
	if err != nil {
		return nil, err
	}
	src := graph.ToDOT(g, "")

	scratch, err := os.MkdirTemp("", "convert-dot-*")
	if err != nil {
		return nil, err
	}
	defer os.RemoveAll(scratch)

	dotPath := filepath.Join(scratch, "graph.gv")
	pngPath := dotPath + ".png"
	if err := utils.WriteFile(dotPath, src); err != nil {
		return nil, fmt.Errorf("write dot: %w", err)
	}
	if err := s.renderer.Render(ctx, dotPath, pngPath, "png"); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRender, err)
	}
	img, err := os.ReadFile(pngPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRender, err)
	}

	png := target + ".png"
	if err := s.writeFile(target, []byte(src)); err != nil {
		return nil, fmt.Errorf("write dot: %w", err)
	}
	if err := s.writeFile(png, img); err != nil {
		return nil, fmt.Errorf("write png: %w", err)
	}
	return []string{target, png}, nil
}
