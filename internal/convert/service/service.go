package service

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/zcyan2013/jupyterlab-extension/internal/convert/codec"
	"github.com/zcyan2013/jupyterlab-extension/internal/convert/domain"
	"github.com/zcyan2013/jupyterlab-extension/internal/convert/schema"
	"github.com/zcyan2013/jupyterlab-extension/internal/convert/utils"
	"github.com/zcyan2013/jupyterlab-extension/internal/logging"
)

// Handler is the single-call contract a transport mounts.
type Handler interface {
	Handle(ctx context.Context, req domain.ConversionRequest) (*domain.ConversionResult, error)
}

type Options struct {
	// ServerRoot confines source and target paths when set.
	ServerRoot string
	Renderer   utils.Renderer
	Cache      SniffCache
}

type Service struct {
	chain    *Chain
	onnx     *schema.Variant
	renderer utils.Renderer

	// root is empty when paths are used as given.
	root     string
	realRoot string
}

var _ Handler = (*Service)(nil)

func NewService(opts Options) *Service {
	r := opts.Renderer
	if r == nil {
		r = utils.NewGraphviz("")
	}
	s := &Service{
		chain:    DefaultChain(opts.Cache),
		onnx:     schema.ONNX(),
		renderer: r,
	}
	if opts.ServerRoot != "" {
		s.root = filepath.Clean(opts.ServerRoot)
		s.realRoot = s.root
		if resolved, err := filepath.EvalSymlinks(s.root); err == nil {
			s.realRoot = resolved
		}
	}
	return s
}

// WithChain replaces the decoder chain used for pb and yaml sources.
func (s *Service) WithChain(c *Chain) *Service {
	s.chain = c
	return s
}

func (s *Service) Chain() *Chain { return s.chain }

func (s *Service) Handle(ctx context.Context, req domain.ConversionRequest) (*domain.ConversionResult, error) {
	log := logging.NewLogger(ctx)

	if err := req.Validate(); err != nil {
		return nil, err
	}
	sf, err := domain.ParseFormat(req.SFormat)
	if err != nil {
		return nil, err
	}
	tf, err := domain.ParseFormat(req.TFormat)
	if err != nil {
		return nil, err
	}
	pair := domain.Pair{Source: sf, Target: tf}
	rt, err := lookupRoute(pair)
	if err != nil {
		return nil, err
	}

	source, err := s.resolve(req.Source)
	if err != nil {
		return nil, err
	}
	target, err := s.resolve(req.Target)
	if err != nil {
		return nil, err
	}

	data, err := s.readFile(source)
	if err != nil {
		if errors.Is(err, domain.ErrSourceNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("read source: %w", err)
	}

	d, err := s.decode(ctx, rt, data)
	if err != nil {
		log.LogWarnf("convert", "pair=%s source=%s decode failed: %v", pair, source, err)
		return nil, err
	}

	outputs, err := encoders[tf](ctx, s, d, target)
	if err != nil {
		log.LogError("convert", err)
		return nil, err
	}

	log.LogInfof("convert", "pair=%s schema=%s source=%s outputs=%v", pair, d.Name, source, outputs)
	return &domain.ConversionResult{
		Result:  domain.SuccessMessage(tf),
		Schema:  d.Name,
		Outputs: outputs,
	}, nil
}

func (s *Service) decode(ctx context.Context, rt route, data []byte) (Decoded, error) {
	if !rt.onnxOnly {
		return s.chain.Decode(ctx, data, rt.source)
	}
	m, err := s.onnx.Decode(data, rt.source, false)
	if err != nil {
		return Decoded{}, &UnrecognizedFormatError{
			Encoding: rt.source,
			Attempts: []Attempt{{Name: s.onnx.Name, Err: err}},
		}
	}
	return Decoded{Name: s.onnx.Name, Variant: s.onnx, Message: m}, nil
}

// Sniff reports which family the chain picks for the file at path.
func (s *Service) Sniff(ctx context.Context, path string, enc codec.Encoding) (Decoded, error) {
	p, err := s.resolve(path)
	if err != nil {
		return Decoded{}, err
	}
	data, err := s.readFile(p)
	if err != nil {
		return Decoded{}, err
	}
	return s.chain.Decode(ctx, data, enc)
}
