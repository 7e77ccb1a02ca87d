package utils

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Renderer turns a DOT file into an image.
type Renderer interface {
	Render(ctx context.Context, pathDOT, outPath, format string) error
}

// Graphviz renders with the graphviz dot binary.
type Graphviz struct {
	Bin string
}

func NewGraphviz(dotBin string) *Graphviz {
	if dotBin == "" {
		dotBin = "dot"
	}
	return &Graphviz{Bin: dotBin}
}

// Available reports whether the dot binary can be found.
func (g *Graphviz) Available() bool {
	_, err := exec.LookPath(g.Bin)
	return err == nil
}

func (g *Graphviz) Render(ctx context.Context, pathDOT, outPath, format string) error {
	return DotTo(ctx, pathDOT, outPath, format, g.Bin)
}

func WriteFile(path, data string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, []byte(data), 0644)
}

func DotTo(ctx context.Context, pathDOT, outPath, format, dotBin string) error {
	if format == "" {
		format = "png"
	}
	if dotBin == "" {
		dotBin = "dot"
	}

	if _, err := exec.LookPath(dotBin); err != nil {
		return fmt.Errorf("graphviz: dot binary not found (%q): %w", dotBin, err)
	}

	var stderr bytes.Buffer
	cmd := exec.CommandContext(ctx, dotBin, "-T"+format, pathDOT, "-o", outPath)
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return fmt.Errorf("graphviz: %w: %s", err, msg)
		}
		return fmt.Errorf("graphviz: %w", err)
	}
	return nil
}
