package extract

import (
	"context"
	"testing"

	"github.com/sliink/liveplot/internal/model"
	"github.com/sliink/liveplot/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockReader serves fixed lists and counts reads
type mockReader struct {
	lists map[string][]model.Value
	blobs map[string]bool
	reads int
}

func (m *mockReader) Range(ctx context.Context, key string) ([]model.Value, error) {
	m.reads++
	if m.blobs[key] {
		return nil, store.ErrWrongType
	}
	values, ok := m.lists[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return values, nil
}

func newReader() *mockReader {
	return &mockReader{
		lists: map[string][]model.Value{
			"la":     {model.Int(1), model.Int(2), model.Int(4), model.Int(9), model.Int(15), model.Int(16), model.Int(42)},
			"mixed":  model.Strings("1", "x", "3"),
			"xs":     model.Strings("0", "1", "bad", "3", "4"),
			"ys":     model.Strings("10", "oops", "12", "13"),
			"words":  model.Strings("a", "b"),
			"floats": {model.Float(0.5), model.String("1.5")},
		},
		blobs: map[string]bool{"blob": true},
	}
}

func TestNatural(t *testing.T) {
	t.Run("Keeps original indices across drops", func(t *testing.T) {
		points := Natural(model.Strings("1", "x", "3"))
		assert.Equal(t, []model.Point{{X: 0, Y: 1}, {X: 2, Y: 3}}, points)
	})

	t.Run("Mixed value kinds", func(t *testing.T) {
		points := Natural([]model.Value{model.Int(7), model.Float(0.25), model.String("-2")})
		assert.Equal(t, []model.Point{{X: 0, Y: 7}, {X: 1, Y: 0.25}, {X: 2, Y: -2}}, points)
	})

	t.Run("No numeric data yields an empty series", func(t *testing.T) {
		points := Natural(model.Strings("a", "b"))
		assert.Empty(t, points)
		assert.NotNil(t, points)
	})
}

func TestZip(t *testing.T) {
	xs := model.Strings("0", "1", "bad", "3", "4")
	ys := model.Strings("10", "oops", "12", "13")

	points := Zip(xs, ys)
	assert.Equal(t, []model.Point{{X: 0, Y: 10}, {X: 3, Y: 13}}, points)

	assert.Empty(t, Zip(nil, ys))
}

func TestExtract(t *testing.T) {
	ctx := context.Background()

	t.Run("Natural yields one series per source", func(t *testing.T) {
		e := New(newReader())
		spec, err := e.Extract(ctx, model.BindingSpec{Sources: []string{"la", "mixed", "words", "floats"}})
		require.NoError(t, err)

		require.Len(t, spec.Series, 4)
		require.Len(t, spec.Colors, 4)
		assert.Len(t, spec.Series[0], 7)
		assert.Equal(t, model.Point{X: 6, Y: 42}, spec.Series[0][6])
		assert.Equal(t, []model.Point{{X: 0, Y: 1}, {X: 2, Y: 3}}, spec.Series[1])
		assert.Empty(t, spec.Series[2])
		assert.Equal(t, []model.Point{{X: 0, Y: 0.5}, {X: 1, Y: 1.5}}, spec.Series[3])
		assert.Equal(t, DefaultBackground, spec.Background)
	})

	t.Run("Zip yields a single series", func(t *testing.T) {
		e := New(newReader())
		spec, err := e.Extract(ctx, model.BindingSpec{Sources: []string{"xs", "ys"}, Index: model.IndexZip})
		require.NoError(t, err)

		require.Len(t, spec.Series, 1)
		assert.Equal(t, []model.Point{{X: 0, Y: 10}, {X: 3, Y: 13}}, spec.Series[0])
		assert.Equal(t, []model.RGB{DefaultPalette[0]}, spec.Colors)
	})

	t.Run("XY is explicitly unimplemented", func(t *testing.T) {
		reader := newReader()
		e := New(reader)
		_, err := e.Extract(ctx, model.BindingSpec{Sources: []string{"la"}, Index: model.IndexXY})
		assert.ErrorIs(t, err, ErrNotImplemented)
		assert.Contains(t, err.Error(), "xy")
		assert.Equal(t, 0, reader.reads)
	})

	t.Run("Missing source is named", func(t *testing.T) {
		e := New(newReader())
		_, err := e.Extract(ctx, model.BindingSpec{Sources: []string{"la", "ghost"}})
		require.Error(t, err)
		assert.ErrorIs(t, err, store.ErrNotFound)

		var serr *SourceError
		require.ErrorAs(t, err, &serr)
		assert.Equal(t, "ghost", serr.Source)
		assert.Contains(t, err.Error(), "ghost")
	})

	t.Run("Wrong type is a source error", func(t *testing.T) {
		e := New(newReader())
		_, err := e.Extract(ctx, model.BindingSpec{Sources: []string{"blob", "la"}, Index: model.IndexZip})
		assert.ErrorIs(t, err, store.ErrWrongType)
	})
}

func TestColors(t *testing.T) {
	palette := []model.RGB{{R: 1}, {G: 2}, {B: 3}}
	for i := 0; i < 7; i++ {
		assert.Equal(t, palette[i%3], Color(palette, i))
	}

	reader := &mockReader{lists: map[string][]model.Value{}}
	sources := []string{"a", "b", "c", "d", "e"}
	for _, s := range sources {
		reader.lists[s] = model.Strings("1")
	}

	e := New(reader, WithPalette(palette), WithBackground(model.RGB{R: 9, G: 9, B: 9}))
	spec, err := e.Extract(context.Background(), model.BindingSpec{Sources: sources})
	require.NoError(t, err)
	assert.Equal(t, []model.RGB{palette[0], palette[1], palette[2], palette[0], palette[1]}, spec.Colors)
	assert.Equal(t, model.RGB{R: 9, G: 9, B: 9}, spec.Background)

	assert.GreaterOrEqual(t, len(DefaultPalette), 3)
}
