package telemetry

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func sampleAt(i int) Sample {
	return Sample{
		Time:         time.Unix(int64(i), 0),
		TemperatureC: float64(i),
	}
}

func TestAppendBelowCapacity(t *testing.T) {
	r := NewRing(5)
	for i := 0; i < 3; i++ {
		r.Append(sampleAt(i))
	}

	got := r.Snapshot()
	assert.Len(t, got, 3)
	for i, s := range got {
		assert.Equal(t, float64(i), s.TemperatureC)
	}
}

func TestOverflowEvictsOldestInOrder(t *testing.T) {
	r := NewRing(5)
	for i := 0; i < 12; i++ {
		r.Append(sampleAt(i))
	}

	got := r.Snapshot()
	assert.Len(t, got, 5)
	for i, s := range got {
		assert.Equal(t, float64(7+i), s.TemperatureC, "only the last capacity samples remain, oldest first")
	}

	latest, ok := r.Latest()
	assert.True(t, ok)
	assert.Equal(t, 11.0, latest.TemperatureC)
}

func TestLatestOnEmptyRing(t *testing.T) {
	r := NewRing(5)
	_, ok := r.Latest()
	assert.False(t, ok)
	assert.Empty(t, r.Snapshot())
}

func TestConcurrentAppendAndSnapshot(t *testing.T) {
	r := NewRing(64)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 5000; i++ {
			r.Append(sampleAt(i))
		}
	}()

	for i := 0; i < 200; i++ {
		got := r.Snapshot()
		for j := 1; j < len(got); j++ {
			assert.Equal(t, got[j-1].TemperatureC+1, got[j].TemperatureC, "snapshot is never torn mid append")
		}
	}
	wg.Wait()
}
