package surface

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"

	"github.com/sliink/liveplot/internal/render"
)

// ErrPathOutsideDir is returned for file targets escaping the output directory
var ErrPathOutsideDir = errors.New("path escapes output directory")

// FileSurface writes each presented frame to a PNG file. The file is
// replaced atomically so readers never see a partial image.
type FileSurface struct {
	path string
	BaseSurface
}

// NewFileSurface creates a hidden surface writing to name inside dir.
// A ".png" extension is added when name has none.
func NewFileSurface(dir, name string) (*FileSurface, error) {
	if filepath.Ext(name) == "" {
		name += ".png"
	}
	path := filepath.Join(dir, name)
	rel, err := filepath.Rel(dir, path)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return nil, fmt.Errorf("%w: %s", ErrPathOutsideDir, name)
	}

	s := &FileSurface{path: path}
	s.BaseSurface = NewBaseSurface("file:"+path, s.write)
	return s, nil
}

// Path returns the file written by the surface
func (s *FileSurface) Path() string {
	return s.path
}

func (s *FileSurface) write(frame *image.RGBA) error {
	data, err := render.EncodePNG(frame)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".frame-*.png")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
