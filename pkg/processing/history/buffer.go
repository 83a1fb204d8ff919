package history

import (
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/pitwall/strategy-engine-go/pkg/model"
)

var ErrOutOfOrderSample = errors.New("sample violates monotonic order")

const DefaultCapacity = 3600 // ~1 min at 60 Hz per session

type (
	// Buffer is a bounded, time ordered store of telemetry samples for
	// one session. Oldest samples are evicted FIFO once the bound is
	// reached. The buffer itself is not synchronized; the owning
	// processor serializes access.
	Buffer struct {
		data     []model.TelemetrySample // ring
		start    int
		size     int
		capacity int
		maxSpan  time.Duration // 0: no time bound
	}
	Option func(*Buffer)
)

func WithCapacity(capacity int) Option {
	return func(b *Buffer) {
		if capacity > 0 {
			b.capacity = capacity
		}
	}
}

// WithMaxSpan additionally evicts samples older than span relative to
// the newest sample.
func WithMaxSpan(span time.Duration) Option {
	return func(b *Buffer) {
		b.maxSpan = span
	}
}

func NewBuffer(opts ...Option) *Buffer {
	ret := &Buffer{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(ret)
	}
	ret.data = make([]model.TelemetrySample, ret.capacity)
	return ret
}

// Append validates the monotonic timestamp/lap invariant and stores the
// sample, evicting the oldest entries as needed. O(1) amortized.
func (b *Buffer) Append(s model.TelemetrySample) error {
	if b.size > 0 {
		last := b.At(b.size - 1)
		if s.Timestamp < last.Timestamp {
			return fmt.Errorf("%w: timestamp %d < %d",
				ErrOutOfOrderSample, s.Timestamp, last.Timestamp)
		}
		if s.Lap < last.Lap {
			return fmt.Errorf("%w: lap %d < %d",
				ErrOutOfOrderSample, s.Lap, last.Lap)
		}
	}
	if b.size == b.capacity {
		b.data[b.start] = s
		b.start = (b.start + 1) % b.capacity
	} else {
		b.data[(b.start+b.size)%b.capacity] = s
		b.size++
	}
	if b.maxSpan > 0 {
		cutoff := s.Timestamp - b.maxSpan.Milliseconds()
		for b.size > 1 && b.At(0).Timestamp < cutoff {
			b.start = (b.start + 1) % b.capacity
			b.size--
		}
	}
	return nil
}

func (b *Buffer) Len() int {
	return b.size
}

// At returns the sample at index i, oldest first. Panics on range
// violations like a slice would.
func (b *Buffer) At(i int) model.TelemetrySample {
	if i < 0 || i >= b.size {
		panic(fmt.Sprintf("history: index %d out of range [0,%d)", i, b.size))
	}
	return b.data[(b.start+i)%b.capacity]
}

func (b *Buffer) Last() (model.TelemetrySample, bool) {
	if b.size == 0 {
		return model.TelemetrySample{}, false
	}
	return b.At(b.size - 1), true
}

// Window returns a copy of the most recent n samples (fewer if the
// buffer holds less).
func (b *Buffer) Window(n int) []model.TelemetrySample {
	if n > b.size {
		n = b.size
	}
	ret := make([]model.TelemetrySample, 0, n)
	for i := b.size - n; i < b.size; i++ {
		ret = append(ret, b.At(i))
	}
	return ret
}

// WindowDuration returns a copy of the samples within d of the newest
// sample.
func (b *Buffer) WindowDuration(d time.Duration) []model.TelemetrySample {
	if b.size == 0 {
		return nil
	}
	cutoff := b.At(b.size-1).Timestamp - d.Milliseconds()
	ret := make([]model.TelemetrySample, 0)
	for i := b.size - 1; i >= 0; i-- {
		if b.At(i).Timestamp < cutoff {
			break
		}
		ret = append(ret, b.At(i))
	}
	// restore chronological order
	for i, j := 0, len(ret)-1; i < j; i, j = i+1, j-1 {
		ret[i], ret[j] = ret[j], ret[i]
	}
	return ret
}

// LapBoundaries yields (lapNumber, firstSampleIndex) pairs for each lap
// present in the buffer, oldest first. The sequence is restartable;
// indexes are valid until the next Append.
func (b *Buffer) LapBoundaries() iter.Seq2[int, int] {
	return func(yield func(int, int) bool) {
		prevLap := -1
		for i := 0; i < b.size; i++ {
			if lap := b.At(i).Lap; lap != prevLap {
				if !yield(lap, i) {
					return
				}
				prevLap = lap
			}
		}
	}
}

// LastFuelJump returns the index of the most recent sample whose fuel
// level increased by at least threshold over its predecessor. Such a
// jump marks a refuel event (and is used as the pit service marker for
// stint segmentation).
func (b *Buffer) LastFuelJump(threshold float64) (int, bool) {
	for i := b.size - 1; i > 0; i-- {
		if b.At(i).FuelLevel-b.At(i-1).FuelLevel >= threshold {
			return i, true
		}
	}
	return 0, false
}
