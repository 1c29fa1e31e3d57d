package parallel

import (
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParallelizeCoversEveryItemOnce(t *testing.T) {
	for _, n := range []int{0, 1, 7, 1000, DefaultThreshold + 13} {
		counts := make([]int32, n)
		Parallelize(n, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&counts[i], 1)
			}
		})
		for i, c := range counts {
			if c != 1 {
				t.Fatalf("n=%d: item %d visited %d times", n, i, c)
			}
		}
	}
}

func TestParallelizeWithThresholdSequential(t *testing.T) {
	var calls int
	ParallelizeWithThreshold(10, 100, func(start, end int) {
		calls++
		assert.Equal(t, 0, start)
		assert.Equal(t, 10, end)
	})
	assert.Equal(t, 1, calls)
}

func TestRowsDeterministic(t *testing.T) {
	n := 3 * DefaultThreshold
	a := make([]float64, n)
	b := make([]float64, n)
	Rows(n, func(i int) { a[i] = float64(i) * 0.1 })
	for i := range b {
		b[i] = float64(i) * 0.1
	}
	assert.Equal(t, b, a)
}
