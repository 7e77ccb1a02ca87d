package service

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"google.golang.org/protobuf/proto"

	"github.com/zcyan2013/jupyterlab-extension/internal/convert/codec"
	"github.com/zcyan2013/jupyterlab-extension/internal/convert/domain"
	"github.com/zcyan2013/jupyterlab-extension/internal/convert/schema"
	"github.com/zcyan2013/jupyterlab-extension/internal/logging"
)

// Candidate is one attempt in a decoder chain.
type Candidate struct {
	Name    string
	Variant *schema.Variant
	Decode  func(data []byte, enc codec.Encoding) (proto.Message, error)
}

// StrictCandidate decodes with v and only accepts messages that fully belong to it.
func StrictCandidate(v *schema.Variant) Candidate {
	return Candidate{
		Name:    v.Name,
		Variant: v,
		Decode: func(data []byte, enc codec.Encoding) (proto.Message, error) {
			return v.Decode(data, enc, true)
		},
	}
}

// Decoded is the message a chain settled on, tagged with its family.
type Decoded struct {
	Name    string
	Variant *schema.Variant
	Message proto.Message
}

type Attempt struct {
	Name string
	Err  error
}

// UnrecognizedFormatError reports that no candidate could decode the input.
type UnrecognizedFormatError struct {
	Encoding codec.Encoding
	Attempts []Attempt
}

func (e *UnrecognizedFormatError) Error() string {
	parts := make([]string, 0, len(e.Attempts))
	for _, a := range e.Attempts {
		parts = append(parts, fmt.Sprintf("%s: %v", a.Name, a.Err))
	}
	return fmt.Sprintf("%s: no known schema matches this %s file (%s)",
		domain.ErrUnrecognizedFormat, e.Encoding, strings.Join(parts, "; "))
}

func (e *UnrecognizedFormatError) Unwrap() error { return domain.ErrUnrecognizedFormat }

// SniffCache remembers which candidate decoded a given input.
type SniffCache interface {
	Lookup(ctx context.Context, key string) (string, bool)
	Remember(ctx context.Context, key, name string)
}

// Chain tries its candidates in order and returns the first success.
type Chain struct {
	candidates []Candidate
	cache      SniffCache
}

func NewChain(cache SniffCache, candidates ...Candidate) *Chain {
	return &Chain{candidates: candidates, cache: cache}
}

// DefaultChain is cimdev, then cimprog, then onnx.
func DefaultChain(cache SniffCache) *Chain {
	var cs []Candidate
	for _, v := range schema.Chain() {
		cs = append(cs, StrictCandidate(v))
	}
	return NewChain(cache, cs...)
}

func (c *Chain) Names() []string {
	out := make([]string, 0, len(c.candidates))
	for _, cand := range c.candidates {
		out = append(out, cand.Name)
	}
	return out
}

func (c *Chain) Decode(ctx context.Context, data []byte, enc codec.Encoding) (Decoded, error) {
	log := logging.NewLogger(ctx)
	key := sniffKey(data, enc)

	if c.cache != nil {
		if name, ok := c.cache.Lookup(ctx, key); ok {
			if cand, found := c.find(name); found {
				if m, err := cand.Decode(data, enc); err == nil {
					log.LogDebugf("decode", "sniff cache hit variant=%s", name)
					return Decoded{Name: cand.Name, Variant: cand.Variant, Message: m}, nil
				}
			}
		}
	}

	var attempts []Attempt
	for _, cand := range c.candidates {
		if err := ctx.Err(); err != nil {
			return Decoded{}, err
		}
		m, err := cand.Decode(data, enc)
		if err != nil {
			log.LogDebugf("decode", "candidate=%s rejected: %v", cand.Name, err)
			attempts = append(attempts, Attempt{Name: cand.Name, Err: err})
			continue
		}
		if c.cache != nil {
			c.cache.Remember(ctx, key, cand.Name)
		}
		return Decoded{Name: cand.Name, Variant: cand.Variant, Message: m}, nil
	}
	return Decoded{}, &UnrecognizedFormatError{Encoding: enc, Attempts: attempts}
}

func (c *Chain) find(name string) (Candidate, bool) {
	for _, cand := range c.candidates {
		if cand.Name == name {
			return cand, true
		}
	}
	return Candidate{}, false
}

func sniffKey(data []byte, enc codec.Encoding) string {
	sum := sha256.Sum256(data)
	return string(enc) + ":" + hex.EncodeToString(sum[:])
}
