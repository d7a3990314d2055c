package lazy

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValue_BuildsOnce(t *testing.T) {
	var v Value[int]
	builds := 0
	build := func() (int, error) {
		builds++
		return 42, nil
	}

	_, ok := v.Peek()
	assert.False(t, ok)

	for i := 0; i < 3; i++ {
		got, err := v.Get(build)
		require.NoError(t, err)
		assert.Equal(t, 42, got)
	}
	assert.Equal(t, 1, builds)
	assert.True(t, v.IsBuilt())
}

func TestValue_Reset(t *testing.T) {
	var v Value[string]
	n := 0
	build := func() (string, error) {
		n++
		return string(rune('a' + n - 1)), nil
	}

	first, _ := v.Get(build)
	v.Reset()
	assert.False(t, v.IsBuilt())
	second, _ := v.Get(build)

	assert.Equal(t, "a", first)
	assert.Equal(t, "b", second)
}

func TestValue_FailedBuildIsNotKept(t *testing.T) {
	var v Value[int]
	boom := errors.New("boom")

	_, err := v.Get(func() (int, error) { return 0, boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, v.IsBuilt())

	got, err := v.Get(func() (int, error) { return 1, nil })
	require.NoError(t, err)
	assert.Equal(t, 1, got)
}

func TestValue_Concurrent(t *testing.T) {
	var v Value[*int]
	var wg sync.WaitGroup
	results := make([]*int, 16)

	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], _ = v.Get(func() (*int, error) {
				x := i
				return &x, nil
			})
		}(i)
	}
	wg.Wait()

	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}
