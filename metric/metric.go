// Package metric measures block workers through expvar counters.
package metric

import (
	"expvar"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"time"
)

const workersLabel = "block.workers"

const (
	// WorkCounter measures number of work calls.
	WorkCounter = "Works"
	// ItemCounter measures number of produced items.
	ItemCounter = "Items"
	// LatencyCounter measures latency between work calls.
	LatencyCounter = "Latency"
	// WorkerCounter counts number of measured workers.
	WorkerCounter = "Workers"
)

var (
	workers = metrics{
		m: make(map[string]metric),
	}

	counters = []string{
		WorkCounter,
		ItemCounter,
		LatencyCounter,
		WorkerCounter,
	}
)

// Get metrics values for provided worker type.
func Get(worker interface{}) map[string]string {
	return getCounters(getType(worker))
}

// GetAll returns counters for all measured workers.
func GetAll() map[string]map[string]string {
	m := make(map[string]map[string]string)
	workers.Lock()
	defer workers.Unlock()
	for worker := range workers.m {
		m[worker] = getCounters(worker)
	}
	return m
}

func getCounters(workerType string) map[string]string {
	m := make(map[string]string)
	for _, counter := range counters {
		v := expvar.Get(key(workerType, counter))
		if v != nil {
			m[counter] = v.String()
		}
	}
	return m
}

// ResetFunc returns new Measure closure. This closure is needed to
// postpone metrics capture until the block is actually started.
type ResetFunc func() MeasureFunc

// MeasureFunc captures metrics when a work call is done.
type MeasureFunc func(items int64)

// Meter creates new meter closure to capture worker counters.
func Meter(worker interface{}) ResetFunc {
	t := getType(worker)
	metric := workers.get(t)
	metric.workers.Add(1)
	return func() MeasureFunc {
		calledAt := time.Now()
		return func(items int64) {
			metric.latency.set(time.Since(calledAt))
			metric.works.Add(1)
			metric.items.Add(items)
			calledAt = time.Now()
		}
	}
}

type metrics struct {
	sync.Mutex
	m map[string]metric
}

func (m *metrics) get(workerType string) metric {
	m.Lock()
	defer m.Unlock()
	if metric, ok := m.m[workerType]; ok {
		// return existing metric if available
		return metric
	}
	// create new metric
	metric := newMetric(workerType)
	m.m[workerType] = metric
	return metric
}

type metric struct {
	key     string
	workers *expvar.Int
	works   *expvar.Int
	items   *expvar.Int
	latency *duration
}

func newMetric(workerType string) metric {
	m := metric{
		key:     workerType,
		workers: expvar.NewInt(key(workerType, WorkerCounter)),
		works:   expvar.NewInt(key(workerType, WorkCounter)),
		items:   expvar.NewInt(key(workerType, ItemCounter)),
		latency: &duration{},
	}
	expvar.Publish(key(workerType, LatencyCounter), m.latency)
	return m
}

func key(workerType, counter string) string {
	return fmt.Sprintf("%s.%s.%s", workersLabel, workerType, counter)
}

func getType(worker interface{}) string {
	rv := reflect.ValueOf(worker)
	for rv.Kind() == reflect.Ptr || rv.Kind() == reflect.Interface {
		rv = rv.Elem()
	}
	return rv.Type().String()
}

// duration allows to format time.Duration metric values.
type duration struct {
	d int64
}

func (v *duration) String() string {
	return fmt.Sprintf("%v", time.Duration(atomic.LoadInt64(&v.d)))
}

func (v *duration) set(value time.Duration) {
	atomic.StoreInt64(&v.d, int64(value))
}
