package surface

import (
	"context"
	"errors"
	"fmt"
	"image"
	"time"

	"github.com/sliink/liveplot/internal/render"
	"github.com/sliink/liveplot/internal/store"
)

const writeTimeout = 2 * time.Second

// ErrKeyIsSource is returned for key targets that would overwrite one of
// their own source lists
var ErrKeyIsSource = errors.New("key target is one of its sources")

// KeySurface writes each presented frame as a PNG into the store under a key
type KeySurface struct {
	key    string
	writer store.Writer
	BaseSurface
}

// NewKeySurface creates a hidden surface writing to key
func NewKeySurface(key string, writer store.Writer) *KeySurface {
	s := &KeySurface{
		key:    key,
		writer: writer,
	}
	s.BaseSurface = NewBaseSurface("key:"+key, s.write)
	return s
}

func (s *KeySurface) write(frame *image.RGBA) error {
	data, err := render.EncodePNG(frame)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	if err := s.writer.Set(ctx, s.key, data); err != nil {
		return fmt.Errorf("write frame to %s: %w", s.key, err)
	}
	return nil
}
