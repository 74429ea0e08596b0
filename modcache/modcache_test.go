package modcache

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"
)

func TestLoadOnce(t *testing.T) {
	c := New()
	load := func() (starlark.Value, error) { return starlark.String("mod"), nil }
	for i := 0; i < 10; i++ {
		v, err := c.LoadOrFetch("support", load)
		require.NoError(t, err)
		assert.Equal(t, starlark.String("mod"), v)
	}
	assert.Equal(t, 1, c.Loads("support"))
	assert.Equal(t, 0, c.Loads("other"))
	assert.Equal(t, []string{"support"}, c.Names())
}

func TestConcurrentImportsShareOneLoad(t *testing.T) {
	c := New()
	release := make(chan struct{})
	load := func() (starlark.Value, error) {
		<-release
		return starlark.MakeInt(7), nil
	}

	var wg sync.WaitGroup
	results := make([]starlark.Value, 20)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			v, err := c.LoadOrFetch("slow", load)
			assert.NoError(t, err)
			results[i] = v
		}(i)
	}
	close(release)
	wg.Wait()

	assert.Equal(t, 1, c.Loads("slow"))
	for _, v := range results {
		require.NotNil(t, v)
		assert.Equal(t, "7", v.String())
	}
}

func TestFailedLoadIsRetried(t *testing.T) {
	c := New()
	boom := errors.New("boom")
	_, err := c.LoadOrFetch("flaky", func() (starlark.Value, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, c.Names())

	v, err := c.LoadOrFetch("flaky", func() (starlark.Value, error) { return starlark.True, nil })
	require.NoError(t, err)
	assert.Equal(t, starlark.True, v)
	assert.Equal(t, 2, c.Loads("flaky"))
}
