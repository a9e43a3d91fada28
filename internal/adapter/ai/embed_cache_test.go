package ai

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingEmbedder struct {
	calls int
	err   error
}

func (c *countingEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	c.calls++
	if c.err != nil {
		return nil, c.err
	}
	return []float32{float32(len(text))}, nil
}

func TestEmbedCache_HitsAndEvicts(t *testing.T) {
	base := &countingEmbedder{}
	c := NewEmbedCache(base, 2)
	ctx := context.Background()

	v, err := c.Embed(ctx, "alpha")
	require.NoError(t, err)
	assert.Equal(t, []float32{5}, v)
	_, _ = c.Embed(ctx, " alpha ")
	assert.Equal(t, 1, base.calls, "trimmed text must hit the cache")

	_, _ = c.Embed(ctx, "beta")
	_, _ = c.Embed(ctx, "gamma")
	_, _ = c.Embed(ctx, "alpha")
	assert.Equal(t, 4, base.calls, "alpha was evicted first")
}

func TestEmbedCache_ErrorsAreNotCached(t *testing.T) {
	base := &countingEmbedder{err: errors.New("boom")}
	c := NewEmbedCache(base, 4)
	_, err := c.Embed(context.Background(), "x")
	require.Error(t, err)
	_, _ = c.Embed(context.Background(), "x")
	assert.Equal(t, 2, base.calls)
}

func TestNewEmbedCache_Disabled(t *testing.T) {
	base := &countingEmbedder{}
	assert.Same(t, base, NewEmbedCache(base, 0))
}

func TestGatedEmbedder_RefusalSkipsUpstream(t *testing.T) {
	base := &countingEmbedder{}
	e := NewGatedEmbedder(base, gateFunc(func(context.Context) error { return errors.New("quota") }))
	_, err := e.Embed(context.Background(), "x")
	require.Error(t, err)
	assert.Zero(t, base.calls)

	cached := NewEmbedCache(NewGatedEmbedder(base, gateFunc(func(context.Context) error { return nil })), 4)
	_, _ = cached.Embed(context.Background(), "x")
	_, _ = cached.Embed(context.Background(), "x")
	assert.Equal(t, 1, base.calls)
}
