package metric

import (
	"fmt"
	"sort"

	"github.com/thoas/go-funk"
)

// Metrics is a snapshot of per-query counters, keyed by metric name.
type Metrics map[string]uint64

// Add merges two metrics. When a key collides, it sums the two values.
func (m Metrics) Add(o Metrics) {
	for k, v := range o {
		m[k] += v
	}
}

// AddPrefix returns a new metric where all keys are prefixed with the given
// prefix.
func (m Metrics) AddPrefix(p string) (prefixed Metrics) {
	prefixed = make(Metrics)
	for k, v := range m {
		prefixed[p+k] = v
	}
	return
}

func (m Metrics) String() string {
	keys := funk.Keys(m).([]string)
	sort.Strings(keys)

	metricLogs := ""
	for _, key := range keys {
		metricLogs += fmt.Sprintf(" - %s: %d\n", key, m[key])
	}
	return metricLogs
}
