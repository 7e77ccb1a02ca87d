package domain

import (
	"fmt"
	"strings"
)

// Format names an on-disk encoding understood by the converter.
type Format string

const (
	FormatONNX Format = "onnx"
	FormatPB   Format = "pb"
	FormatYAML Format = "yaml"
	FormatDot  Format = "dot"
)

// ParseFormat normalises a format hint. File extensions are accepted with or
// without the leading dot, and "yml" is read as yaml.
func ParseFormat(s string) (Format, error) {
	f := strings.ToLower(strings.TrimPrefix(strings.TrimSpace(s), "."))
	switch f {
	case "onnx":
		return FormatONNX, nil
	case "pb":
		return FormatPB, nil
	case "yaml", "yml":
		return FormatYAML, nil
	case "dot", "gv":
		return FormatDot, nil
	}
	return "", fmt.Errorf("%w: unknown format %q", ErrInvalidRequest, s)
}

// Label is the word used in the success message for this format.
func (f Format) Label() string {
	if f == FormatDot {
		return "image"
	}
	return string(f)
}

// Pair is a (source format, target format) combination.
type Pair struct {
	Source Format
	Target Format
}

func (p Pair) String() string {
	return fmt.Sprintf("%s->%s", p.Source, p.Target)
}

// ConversionRequest is the body of POST /convert.
type ConversionRequest struct {
	Source  string `json:"source" binding:"required"`
	Target  string `json:"target" binding:"required"`
	SFormat string `json:"sformat" binding:"required"`
	TFormat string `json:"tformat" binding:"required"`
}

// Validate checks that all four fields are present.
func (r ConversionRequest) Validate() error {
	var missing []string
	if strings.TrimSpace(r.Source) == "" {
		missing = append(missing, "source")
	}
	if strings.TrimSpace(r.Target) == "" {
		missing = append(missing, "target")
	}
	if strings.TrimSpace(r.SFormat) == "" {
		missing = append(missing, "sformat")
	}
	if strings.TrimSpace(r.TFormat) == "" {
		missing = append(missing, "tformat")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: missing %s", ErrInvalidRequest, strings.Join(missing, ", "))
	}
	return nil
}

// ConversionResult is what a successful conversion reports back.
type ConversionResult struct {
	Result  string   `json:"result"`
	Schema  string   `json:"schema,omitempty"`
	Outputs []string `json:"outputs,omitempty"`
}

// SuccessMessage is the text shown in the notebook dialog.
func SuccessMessage(target Format) string {
	return fmt.Sprintf("Convert to %s successfully!", target.Label())
}
