//nolint:funlen // ok for tests
package history

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pitwall/strategy-engine-go/pkg/model"
)

func sample(ts int64, lap int) model.TelemetrySample {
	return model.TelemetrySample{Timestamp: ts, Lap: lap}
}

func TestBuffer_AppendMonotonic(t *testing.T) {
	b := NewBuffer()
	require.NoError(t, b.Append(sample(1000, 1)))
	require.NoError(t, b.Append(sample(2000, 1)))
	// equal timestamps are allowed
	require.NoError(t, b.Append(sample(2000, 1)))

	err := b.Append(sample(1500, 1))
	assert.True(t, errors.Is(err, ErrOutOfOrderSample))
	err = b.Append(sample(3000, 0))
	assert.True(t, errors.Is(err, ErrOutOfOrderSample))
	// rejected samples must not be stored
	assert.Equal(t, 3, b.Len())
	last, ok := b.Last()
	require.True(t, ok)
	assert.Equal(t, int64(2000), last.Timestamp)
}

func TestBuffer_Eviction(t *testing.T) {
	b := NewBuffer(WithCapacity(3))
	for i := 0; i < 5; i++ {
		require.NoError(t, b.Append(sample(int64(i*1000), 1)))
	}
	assert.Equal(t, 3, b.Len())
	// oldest two evicted
	assert.Equal(t, int64(2000), b.At(0).Timestamp)
	assert.Equal(t, int64(4000), b.At(2).Timestamp)
}

func TestBuffer_MaxSpan(t *testing.T) {
	b := NewBuffer(WithMaxSpan(2 * time.Second))
	for i := 0; i < 5; i++ {
		require.NoError(t, b.Append(sample(int64(i*1000), 1)))
	}
	// samples older than 2s relative to ts=4000 are gone
	assert.Equal(t, 3, b.Len())
	assert.Equal(t, int64(2000), b.At(0).Timestamp)
}

func TestBuffer_Window(t *testing.T) {
	b := NewBuffer()
	for i := 0; i < 4; i++ {
		require.NoError(t, b.Append(sample(int64(i*1000), 1)))
	}
	win := b.Window(2)
	require.Len(t, win, 2)
	assert.Equal(t, int64(2000), win[0].Timestamp)
	assert.Equal(t, int64(3000), win[1].Timestamp)
	// larger than content returns everything
	assert.Len(t, b.Window(10), 4)
}

func TestBuffer_WindowDuration(t *testing.T) {
	b := NewBuffer()
	for i := 0; i < 5; i++ {
		require.NoError(t, b.Append(sample(int64(i*1000), 1)))
	}
	win := b.WindowDuration(1500 * time.Millisecond)
	require.Len(t, win, 2)
	assert.Equal(t, int64(3000), win[0].Timestamp)
	assert.Equal(t, int64(4000), win[1].Timestamp)
}

func TestBuffer_LapBoundaries(t *testing.T) {
	b := NewBuffer()
	laps := []int{1, 1, 1, 2, 2, 3}
	for i, lap := range laps {
		require.NoError(t, b.Append(sample(int64(i*1000), lap)))
	}
	got := map[int]int{}
	for lap, idx := range b.LapBoundaries() {
		got[lap] = idx
	}
	assert.Equal(t, map[int]int{1: 0, 2: 3, 3: 5}, got)
}

func TestBuffer_LapBoundariesRestartable(t *testing.T) {
	b := NewBuffer()
	for i, lap := range []int{1, 2, 3} {
		require.NoError(t, b.Append(sample(int64(i*1000), lap)))
	}
	seq := b.LapBoundaries()
	count := 0
	for range seq {
		count++
		break
	}
	for range seq {
		count++
	}
	assert.Equal(t, 4, count)
}

func TestBuffer_LastFuelJump(t *testing.T) {
	b := NewBuffer()
	levels := []float64{20, 18, 16, 55, 53, 51}
	for i, level := range levels {
		s := sample(int64(i*1000), 1+i/2)
		s.FuelLevel = level
		require.NoError(t, b.Append(s))
	}
	idx, ok := b.LastFuelJump(5.0)
	require.True(t, ok)
	assert.Equal(t, 3, idx)

	_, ok = b.LastFuelJump(100.0)
	assert.False(t, ok)
}

func TestBuffer_EmptyAccessors(t *testing.T) {
	b := NewBuffer()
	_, ok := b.Last()
	assert.False(t, ok)
	assert.Empty(t, b.Window(5))
	assert.Empty(t, b.WindowDuration(time.Second))
	assert.Equal(t, 0, b.Len())
}
