package metric_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"pipelined.dev/block/metric"
)

func TestMeter(t *testing.T) {
	pint := 1
	// test cases
	var tests = []struct {
		worker          interface{}
		routines        int
		works           int
		items           int64
		expectedItems   string
		expectedWorkers string
	}{
		{
			worker:          int(1),
			routines:        2,
			works:           10,
			items:           100,
			expectedItems:   "2000",
			expectedWorkers: "2",
		},
		{
			worker:          &pint,
			routines:        2,
			works:           10,
			items:           100,
			expectedItems:   "4000",
			expectedWorkers: "4",
		},
	}
	// function to test meter.
	testFn := func(fn metric.ResetFunc, wg *sync.WaitGroup, works int, items int64) {
		measure := fn()
		for i := 0; i < works; i++ {
			measure(items)
		}
		wg.Done()
	}

	for _, c := range tests {
		wg := &sync.WaitGroup{}
		wg.Add(c.routines)
		for i := 0; i < c.routines; i++ {
			go testFn(metric.Meter(c.worker), wg, c.works, c.items)
		}
		// check if no data race.
		wg.Wait()
		values := metric.Get(c.worker)
		assert.Equal(t, c.expectedItems, values[metric.ItemCounter])
		assert.Equal(t, c.expectedWorkers, values[metric.WorkerCounter])
	}
}
