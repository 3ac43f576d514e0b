package param

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/uimfdata/uimf/errs"
)

type fakeLoader struct {
	frames map[int]*FrameParams
	loads  int
	bulk   int
}

func (l *fakeLoader) LoadFrameParams(_ context.Context, frameNum int) (*FrameParams, error) {
	l.loads++
	p, ok := l.frames[frameNum]
	if !ok {
		return nil, errs.ErrFrameNotFound
	}

	return p, nil
}

func (l *fakeLoader) LoadAllFrameParams(_ context.Context) (map[int]*FrameParams, error) {
	l.bulk++
	return l.frames, nil
}

func newFakeLoader(frames ...int) *fakeLoader {
	l := &fakeLoader{frames: make(map[int]*FrameParams)}
	for _, f := range frames {
		p := &FrameParams{Scans: 360}
		p.SetCalibration(0.35, -0.06)
		l.frames[f] = p
	}

	return l
}

func TestCache_GetLoadsOnce(t *testing.T) {
	loader := newFakeLoader(1, 2)
	cache := NewCache(loader)
	ctx := context.Background()

	p, err := cache.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 360, p.Scans)

	_, err = cache.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 1, loader.loads)
}

func TestCache_NotFound(t *testing.T) {
	cache := NewCache(newFakeLoader(1))

	_, err := cache.Get(context.Background(), 99)
	require.ErrorIs(t, err, errs.ErrFrameNotFound)
}

func TestCache_InvalidateForcesReload(t *testing.T) {
	loader := newFakeLoader(1)
	cache := NewCache(loader)
	ctx := context.Background()

	_, err := cache.Get(ctx, 1)
	require.NoError(t, err)

	cache.Invalidate(1)

	_, err = cache.Get(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, 2, loader.loads)
}

func TestCache_PreloadAvoidsPerFrameQueries(t *testing.T) {
	loader := newFakeLoader(1, 2, 3, 4, 5)
	cache := NewCache(loader)
	ctx := context.Background()

	require.NoError(t, cache.Preload(ctx))
	require.Equal(t, 5, cache.Len())

	for f := 1; f <= 5; f++ {
		_, err := cache.Get(ctx, f)
		require.NoError(t, err)
	}
	require.Equal(t, 0, loader.loads)
	require.Equal(t, 1, loader.bulk)
}

func TestCache_InvalidateAll(t *testing.T) {
	cache := NewCache(newFakeLoader(1, 2))
	ctx := context.Background()

	_, err := cache.Get(ctx, 1)
	require.NoError(t, err)

	cache.InvalidateAll()
	require.Equal(t, 0, cache.Len())
}
