package service

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"
	"google.golang.org/protobuf/proto"

	"github.com/zcyan2013/jupyterlab-extension/internal/convert/codec"
	"github.com/zcyan2013/jupyterlab-extension/internal/convert/domain"
	"github.com/zcyan2013/jupyterlab-extension/internal/convert/repository"
	"github.com/zcyan2013/jupyterlab-extension/internal/convert/schema"
)

// fakeRenderer writes a placeholder image instead of running graphviz.
type fakeRenderer struct {
	calls int
	err   error
}

func (f *fakeRenderer) Render(_ context.Context, pathDOT, outPath, format string) error {
	f.calls++
	if f.err != nil {
		return f.err
	}
	if _, err := os.Stat(pathDOT); err != nil {
		return err
	}
	return os.WriteFile(outPath, []byte("PNG:"+format), 0644)
}

func fixture(t *testing.T, name string) []byte {
	t.Helper()
	b, err := os.ReadFile(filepath.Join("..", "testdata", name))
	require.NoError(t, err)
	return b
}

// writeBinary stores the YAML fixture re-encoded as protobuf wire bytes.
func writeBinary(t *testing.T, dir string, v *schema.Variant, yamlName, out string) string {
	t.Helper()
	m, err := v.Decode(fixture(t, yamlName), codec.YAML, true)
	require.NoError(t, err)
	path := filepath.Join(dir, out)
	require.NoError(t, codec.Dump(m, path, codec.Binary))
	return path
}

func writeFixture(t *testing.T, dir, name string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, fixture(t, name), 0644))
	return path
}

// recording wraps candidates and logs the order they are invoked in.
func recording(calls *[]string, cs ...Candidate) []Candidate {
	out := make([]Candidate, 0, len(cs))
	for _, c := range cs {
		c := c
		inner := c.Decode
		c.Decode = func(data []byte, enc codec.Encoding) (proto.Message, error) {
			*calls = append(*calls, c.Name)
			return inner(data, enc)
		}
		out = append(out, c)
	}
	return out
}

func realCandidates() []Candidate {
	var cs []Candidate
	for _, v := range schema.Chain() {
		cs = append(cs, StrictCandidate(v))
	}
	return cs
}

func TestChain_StopsAtFirstSuccess(t *testing.T) {
	var calls []string
	fail := func(data []byte, enc codec.Encoding) (proto.Message, error) { return nil, errors.New("nope") }
	ok := func(data []byte, enc codec.Encoding) (proto.Message, error) { return schema.CimDev().New(), nil }

	chain := NewChain(nil, recording(&calls,
		Candidate{Name: "a", Decode: fail},
		Candidate{Name: "b", Decode: ok},
		Candidate{Name: "c", Decode: ok},
	)...)

	d, err := chain.Decode(context.Background(), []byte("x"), codec.Binary)
	require.NoError(t, err)
	assert.Equal(t, "b", d.Name)
	assert.Equal(t, []string{"a", "b"}, calls)
}

func TestChain_ThirdCandidateAfterTwoFailures(t *testing.T) {
	dir := t.TempDir()
	onnxPath := writeBinary(t, dir, schema.ONNX(), "onnx.yaml", "model.pb")
	data, err := os.ReadFile(onnxPath)
	require.NoError(t, err)

	var calls []string
	chain := NewChain(nil, recording(&calls, realCandidates()...)...)

	d, err := chain.Decode(context.Background(), data, codec.Binary)
	require.NoError(t, err)
	assert.Equal(t, "onnx", d.Name)
	assert.Same(t, schema.ONNX(), d.Variant)
	assert.Equal(t, []string{"cimdev", "cimprog", "onnx"}, calls)
}

func TestChain_NoMatch(t *testing.T) {
	chain := DefaultChain(nil)

	_, err := chain.Decode(context.Background(), fixture(t, "unknown.yaml"), codec.YAML)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrUnrecognizedFormat))

	var ufe *UnrecognizedFormatError
	require.True(t, errors.As(err, &ufe))
	require.Len(t, ufe.Attempts, 3)
	assert.Equal(t, "cimdev", ufe.Attempts[0].Name)
	assert.Equal(t, "onnx", ufe.Attempts[2].Name)
	assert.Contains(t, err.Error(), "no known schema matches this yaml file")
}

func TestChain_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := DefaultChain(nil).Decode(ctx, fixture(t, "cimdev.yaml"), codec.YAML)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestChain_SniffCacheTriesRememberedFirst(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	cache := repository.NewSniffCache(client, time.Hour)
	data := fixture(t, "onnx.yaml")

	var calls []string
	chain := NewChain(cache, recording(&calls, realCandidates()...)...)

	d, err := chain.Decode(context.Background(), data, codec.YAML)
	require.NoError(t, err)
	assert.Equal(t, "onnx", d.Name)
	assert.Equal(t, []string{"cimdev", "cimprog", "onnx"}, calls)

	calls = nil
	d, err = chain.Decode(context.Background(), data, codec.YAML)
	require.NoError(t, err)
	assert.Equal(t, "onnx", d.Name)
	assert.Equal(t, []string{"onnx"}, calls)
}

func TestHandle_SupportedPairs(t *testing.T) {
	dir := t.TempDir()
	onnxFile := writeBinary(t, dir, schema.ONNX(), "onnx.yaml", "model.onnx")
	pbFile := writeBinary(t, dir, schema.CimDev(), "cimdev.yaml", "device.pb")
	yamlFile := writeFixture(t, dir, "cimprog.yaml")

	cases := []struct {
		source, sformat, tformat, target string
		schema                           string
		message                          string
		outputs                          int
	}{
		{onnxFile, "onnx", "yaml", "model.yaml", "onnx", "Convert to yaml successfully!", 1},
		{onnxFile, "onnx", "dot", "model.gv", "onnx", "Convert to image successfully!", 2},
		{pbFile, "pb", "yaml", "device.yaml", "cimdev", "Convert to yaml successfully!", 1},
		{pbFile, "pb", "dot", "device.gv", "cimdev", "Convert to image successfully!", 2},
		{yamlFile, "yaml", "pb", "prog.pb", "cimprog", "Convert to pb successfully!", 1},
		{yamlFile, "yaml", "dot", "prog.gv", "cimprog", "Convert to image successfully!", 2},
	}

	renderer := &fakeRenderer{}
	svc := NewService(Options{Renderer: renderer})

	for _, tc := range cases {
		t.Run(tc.sformat+"->"+tc.tformat, func(t *testing.T) {
			target := filepath.Join(dir, "out", tc.target)
			res, err := svc.Handle(context.Background(), domain.ConversionRequest{
				Source: tc.source, Target: target, SFormat: tc.sformat, TFormat: tc.tformat,
			})
			require.NoError(t, err)
			assert.Equal(t, tc.message, res.Result)
			assert.Equal(t, tc.schema, res.Schema)
			require.Len(t, res.Outputs, tc.outputs)
			for _, out := range res.Outputs {
				st, err := os.Stat(out)
				require.NoError(t, err)
				assert.Greater(t, st.Size(), int64(0))
			}
			if tc.tformat == "dot" {
				assert.Equal(t, target+".png", res.Outputs[1])
				dot, err := os.ReadFile(target)
				require.NoError(t, err)
				assert.Contains(t, string(dot), "digraph G {")
			}
		})
	}
	assert.Equal(t, 3, renderer.calls)
}

func TestHandle_UnsupportedPairIsAnError(t *testing.T) {
	dir := t.TempDir()
	pbFile := writeBinary(t, dir, schema.CimDev(), "cimdev.yaml", "device.pb")
	svc := NewService(Options{Renderer: &fakeRenderer{}})

	for _, pair := range [][2]string{{"pb", "pb"}, {"yaml", "yaml"}, {"onnx", "pb"}, {"dot", "yaml"}} {
		target := filepath.Join(dir, "never."+pair[1])
		_, err := svc.Handle(context.Background(), domain.ConversionRequest{
			Source: pbFile, Target: target, SFormat: pair[0], TFormat: pair[1],
		})
		require.Error(t, err, pair)
		assert.True(t, errors.Is(err, domain.ErrUnsupportedConversion), pair)
		assert.NoFileExists(t, target)
	}
}

func TestHandle_InvalidRequest(t *testing.T) {
	svc := NewService(Options{Renderer: &fakeRenderer{}})

	_, err := svc.Handle(context.Background(), domain.ConversionRequest{Source: "a.pb"})
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))

	_, err = svc.Handle(context.Background(), domain.ConversionRequest{
		Source: "a.pb", Target: "a.yaml", SFormat: "pb", TFormat: "json",
	})
	assert.True(t, errors.Is(err, domain.ErrInvalidRequest))
}

func TestHandle_SourceNotFound(t *testing.T) {
	svc := NewService(Options{Renderer: &fakeRenderer{}})
	_, err := svc.Handle(context.Background(), domain.ConversionRequest{
		Source: filepath.Join(t.TempDir(), "missing.pb"), Target: "x.yaml", SFormat: "pb", TFormat: "yaml",
	})
	assert.True(t, errors.Is(err, domain.ErrSourceNotFound))
}

func TestHandle_UnrecognizedSource(t *testing.T) {
	dir := t.TempDir()
	garbage := filepath.Join(dir, "garbage.pb")
	require.NoError(t, os.WriteFile(garbage, []byte{0xff, 0xff, 0xff, 0x01}, 0644))
	yamlFile := writeFixture(t, dir, "unknown.yaml")

	svc := NewService(Options{Renderer: &fakeRenderer{}})

	for _, req := range []domain.ConversionRequest{
		{Source: garbage, Target: filepath.Join(dir, "g.yaml"), SFormat: "pb", TFormat: "yaml"},
		{Source: garbage, Target: filepath.Join(dir, "g2.yaml"), SFormat: "onnx", TFormat: "yaml"},
		{Source: yamlFile, Target: filepath.Join(dir, "u.pb"), SFormat: "yaml", TFormat: "pb"},
	} {
		_, err := svc.Handle(context.Background(), req)
		require.Error(t, err)
		assert.True(t, errors.Is(err, domain.ErrUnrecognizedFormat), req.Source)
		assert.NoFileExists(t, req.Target)
	}
}

func TestHandle_PBThroughYAMLReproducesBytes(t *testing.T) {
	dir := t.TempDir()
	svc := NewService(Options{Renderer: &fakeRenderer{}})

	for _, tc := range []struct {
		v       *schema.Variant
		fixture string
	}{
		{schema.CimDev(), "cimdev.yaml"},
		{schema.CimProg(), "cimprog.yaml"},
	} {
		src := writeBinary(t, dir, tc.v, tc.fixture, tc.v.Name+".pb")
		mid := filepath.Join(dir, tc.v.Name+".yaml")
		back := filepath.Join(dir, tc.v.Name+".back.pb")

		_, err := svc.Handle(context.Background(), domain.ConversionRequest{Source: src, Target: mid, SFormat: "pb", TFormat: "yaml"})
		require.NoError(t, err)
		_, err = svc.Handle(context.Background(), domain.ConversionRequest{Source: mid, Target: back, SFormat: "yaml", TFormat: "pb"})
		require.NoError(t, err)

		want, err := os.ReadFile(src)
		require.NoError(t, err)
		got, err := os.ReadFile(back)
		require.NoError(t, err)
		assert.Equal(t, want, got, tc.v.Name)
	}
}

func TestHandle_RenderFailure(t *testing.T) {
	dir := t.TempDir()
	yamlFile := writeFixture(t, dir, "cimdev.yaml")
	svc := NewService(Options{Renderer: &fakeRenderer{err: errors.New("dot crashed")}})

	_, err := svc.Handle(context.Background(), domain.ConversionRequest{
		Source: yamlFile, Target: filepath.Join(dir, "dev.gv"), SFormat: "yaml", TFormat: "dot",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRender))
	assert.Contains(t, err.Error(), "dot crashed")
}

func TestHandle_ServerRoot(t *testing.T) {
	root := t.TempDir()
	writeFixture(t, root, "cimdev.yaml")
	svc := NewService(Options{ServerRoot: root, Renderer: &fakeRenderer{}})

	res, err := svc.Handle(context.Background(), domain.ConversionRequest{
		Source: "cimdev.yaml", Target: "sub/dev.pb", SFormat: "yaml", TFormat: "pb",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(root, "sub", "dev.pb")}, res.Outputs)

	_, err = svc.Handle(context.Background(), domain.ConversionRequest{
		Source: "cimdev.yaml", Target: "../escape.pb", SFormat: "yaml", TFormat: "pb",
	})
	assert.True(t, errors.Is(err, domain.ErrPathOutsideRoot))

	_, err = svc.Handle(context.Background(), domain.ConversionRequest{
		Source: "/etc/passwd", Target: "x.pb", SFormat: "yaml", TFormat: "pb",
	})
	assert.True(t, errors.Is(err, domain.ErrPathOutsideRoot))
}

func TestHandle_ServerRootSymlinks(t *testing.T) {
	root := t.TempDir()
	outside := t.TempDir()
	writeFixture(t, root, "cimdev.yaml")
	writeFixture(t, outside, "cimprog.yaml")

	require.NoError(t, os.Symlink(outside, filepath.Join(root, "link")))
	require.NoError(t, os.Symlink(filepath.Join(outside, "cimprog.yaml"), filepath.Join(root, "prog.yaml")))
	require.NoError(t, os.Mkdir(filepath.Join(root, "models"), 0755))
	require.NoError(t, os.Symlink(filepath.Join(root, "models"), filepath.Join(root, "inner")))

	svc := NewService(Options{ServerRoot: root, Renderer: &fakeRenderer{}})

	t.Run("target through link", func(t *testing.T) {
		_, err := svc.Handle(context.Background(), domain.ConversionRequest{
			Source: "cimdev.yaml", Target: "link/escaped.pb", SFormat: "yaml", TFormat: "pb",
		})
		assert.True(t, errors.Is(err, domain.ErrPathOutsideRoot), err)
		assert.NoFileExists(t, filepath.Join(outside, "escaped.pb"))
	})

	t.Run("dot target through link", func(t *testing.T) {
		_, err := svc.Handle(context.Background(), domain.ConversionRequest{
			Source: "cimdev.yaml", Target: "link/sub/dev.gv", SFormat: "yaml", TFormat: "dot",
		})
		assert.True(t, errors.Is(err, domain.ErrPathOutsideRoot), err)
		assert.NoDirExists(t, filepath.Join(outside, "sub"))
	})

	t.Run("source is a link out", func(t *testing.T) {
		_, err := svc.Handle(context.Background(), domain.ConversionRequest{
			Source: "prog.yaml", Target: "prog.pb", SFormat: "yaml", TFormat: "pb",
		})
		assert.True(t, errors.Is(err, domain.ErrPathOutsideRoot), err)
		assert.NoFileExists(t, filepath.Join(root, "prog.pb"))
	})

	t.Run("link inside root", func(t *testing.T) {
		res, err := svc.Handle(context.Background(), domain.ConversionRequest{
			Source: "cimdev.yaml", Target: "inner/dev.gv", SFormat: "yaml", TFormat: "dot",
		})
		require.NoError(t, err)
		assert.Equal(t, []string{filepath.Join(root, "inner", "dev.gv"), filepath.Join(root, "inner", "dev.gv.png")}, res.Outputs)
		assert.FileExists(t, filepath.Join(root, "models", "dev.gv"))
		assert.FileExists(t, filepath.Join(root, "models", "dev.gv.png"))
	})
}

// appendField adds a length-delimited field holding a message whose field 1 is name.
func appendField(t *testing.T, path string, num protowire.Number, name string) {
	t.Helper()
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	inner := protowire.AppendString(protowire.AppendTag(nil, 1, protowire.BytesType), name)
	data = protowire.AppendBytes(protowire.AppendTag(data, num, protowire.BytesType), inner)
	require.NoError(t, os.WriteFile(path, data, 0644))
}

func TestHandle_ONNXLocalFunctionsSurvive(t *testing.T) {
	dir := t.TempDir()
	model := writeBinary(t, dir, schema.ONNX(), "onnx.yaml", "model.onnx")
	appendField(t, model, 25, "MyLocalFunction")

	svc := NewService(Options{Renderer: &fakeRenderer{}})

	for _, sformat := range []string{"onnx", "pb"} {
		target := filepath.Join(dir, sformat+".yaml")
		res, err := svc.Handle(context.Background(), domain.ConversionRequest{
			Source: model, Target: target, SFormat: sformat, TFormat: "yaml",
		})
		require.NoError(t, err, sformat)
		assert.Equal(t, "onnx", res.Schema)

		out, err := os.ReadFile(target)
		require.NoError(t, err)
		assert.Contains(t, string(out), "MyLocalFunction", sformat)
	}
}

func TestHandle_ONNXUnknownFieldsAreNotDropped(t *testing.T) {
	dir := t.TempDir()
	model := writeBinary(t, dir, schema.ONNX(), "onnx.yaml", "model.onnx")
	appendField(t, model, 99, "future")

	svc := NewService(Options{Renderer: &fakeRenderer{}})
	target := filepath.Join(dir, "model.yaml")

	_, err := svc.Handle(context.Background(), domain.ConversionRequest{
		Source: model, Target: target, SFormat: "onnx", TFormat: "yaml",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrLossyConversion), err)
	assert.NoFileExists(t, target)
}

func TestSniff(t *testing.T) {
	dir := t.TempDir()
	path := writeBinary(t, dir, schema.CimProg(), "cimprog.yaml", "prog.pb")
	svc := NewService(Options{Renderer: &fakeRenderer{}})

	d, err := svc.Sniff(context.Background(), path, codec.Binary)
	require.NoError(t, err)
	assert.Equal(t, "cimprog", d.Name)

	_, err = svc.Sniff(context.Background(), filepath.Join(dir, "nope.pb"), codec.Binary)
	assert.True(t, errors.Is(err, domain.ErrSourceNotFound))
}

func TestSupportedPairs(t *testing.T) {
	pairs := SupportedPairs()
	require.Len(t, pairs, 6)
	assert.Equal(t, domain.Pair{Source: domain.FormatONNX, Target: domain.FormatDot}, pairs[0])
	assert.Equal(t, domain.Pair{Source: domain.FormatYAML, Target: domain.FormatPB}, pairs[5])
}
