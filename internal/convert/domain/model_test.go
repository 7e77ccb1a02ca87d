package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFormat(t *testing.T) {
	cases := map[string]Format{
		"onnx": FormatONNX,
		".pb":  FormatPB,
		"YAML": FormatYAML,
		"yml":  FormatYAML,
		"dot":  FormatDot,
		" gv ": FormatDot,
	}
	for in, want := range cases {
		got, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseFormat("png")
	assert.True(t, errors.Is(err, ErrInvalidRequest))
}

func TestConversionRequestValidate(t *testing.T) {
	err := ConversionRequest{Source: "a.pb", SFormat: "pb"}.Validate()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidRequest))
	assert.Contains(t, err.Error(), "target, tformat")

	assert.NoError(t, ConversionRequest{Source: "a", Target: "b", SFormat: "pb", TFormat: "yaml"}.Validate())
}

func TestSuccessMessage(t *testing.T) {
	assert.Equal(t, "Convert to image successfully!", SuccessMessage(FormatDot))
	assert.Equal(t, "Convert to yaml successfully!", SuccessMessage(FormatYAML))
	assert.Equal(t, "Convert to pb successfully!", SuccessMessage(FormatPB))
}
