package service

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/zcyan2013/jupyterlab-extension/internal/convert/domain"
)

// within reports whether p is root or lies below it. Both must be clean.
func within(root, p string) bool {
	rel, err := filepath.Rel(root, p)
	return err == nil && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// realPath resolves symlinks in the deepest existing ancestor of p and
// re-appends the components that do not exist yet.
func realPath(p string) (string, error) {
	var rest []string
	cur := p
	for {
		r, err := filepath.EvalSymlinks(cur)
		if err == nil {
			return filepath.Join(append([]string{r}, rest...)...), nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return "", err
		}
		parent := filepath.Dir(cur)
		if parent == cur {
			return p, nil
		}
		rest = append([]string{filepath.Base(cur)}, rest...)
		cur = parent
	}
}

func (s *Service) resolve(p string) (string, error) {
	p = strings.TrimSpace(p)
	if s.root == "" {
		return filepath.Clean(p), nil
	}
	if !filepath.IsAbs(p) {
		p = filepath.Join(s.root, p)
	}
	p = filepath.Clean(p)
	if !within(s.root, p) {
		return "", fmt.Errorf("%w: %s", domain.ErrPathOutsideRoot, p)
	}

	resolved, err := realPath(p)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	if !within(s.realRoot, resolved) {
		return "", fmt.Errorf("%w: %s links to %s", domain.ErrPathOutsideRoot, p, resolved)
	}
	return p, nil
}

// openRoot returns the server root handle and the name of p inside it.
// All reads and writes under a server root go through os.Root, which
// refuses to follow links out of the tree.
func (s *Service) openRoot(p string) (*os.Root, string, error) {
	rel, err := filepath.Rel(s.root, p)
	if err != nil {
		return nil, "", err
	}
	r, err := os.OpenRoot(s.root)
	if err != nil {
		return nil, "", err
	}
	return r, rel, nil
}

func (s *Service) readFile(p string) ([]byte, error) {
	var (
		data []byte
		err  error
	)
	if s.root == "" {
		data, err = os.ReadFile(p)
	} else {
		r, rel, oerr := s.openRoot(p)
		if oerr != nil {
			return nil, oerr
		}
		defer r.Close()
		data, err = r.ReadFile(rel)
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrSourceNotFound, p)
	}
	return data, err
}

// writeFile writes data at p, creating parent directories.
func (s *Service) writeFile(p string, data []byte) error {
	if s.root == "" {
		if err := os.MkdirAll(filepath.Dir(p), 0755); err != nil {
			return err
		}
		return os.WriteFile(p, data, 0644)
	}

	r, rel, err := s.openRoot(p)
	if err != nil {
		return err
	}
	defer r.Close()
	if dir := filepath.Dir(rel); dir != "." {
		if err := r.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	return r.WriteFile(rel, data, 0644)
}
