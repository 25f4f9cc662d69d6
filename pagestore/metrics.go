package pagestore

import "github.com/prometheus/client_golang/prometheus"

type metricEvent uint8

const (
	metricPageHit metricEvent = iota
	metricPageMiss
	metricPageEvict
	metricKeyHit
	metricKeyMiss
	metricKeyEvict
)

// cacheMetrics wraps the counters Cache reports. It is nil-safe throughout:
// a *cacheMetrics built with a nil prometheus.Registerer still works, it
// just never registers anything, so embedding this extension never forces
// a global-registry side effect on the host application.
type cacheMetrics struct {
	pageHits    prometheus.Counter
	pageMisses  prometheus.Counter
	pageEvicts  prometheus.Counter
	keyHits     prometheus.Counter
	keyMisses   prometheus.Counter
	keyEvicts   prometheus.Counter
}

func newCacheMetrics(reg prometheus.Registerer) *cacheMetrics {
	m := &cacheMetrics{
		pageHits:   prometheus.NewCounter(prometheus.CounterOpts{Name: "orderedview_page_cache_hits_total"}),
		pageMisses: prometheus.NewCounter(prometheus.CounterOpts{Name: "orderedview_page_cache_misses_total"}),
		pageEvicts: prometheus.NewCounter(prometheus.CounterOpts{Name: "orderedview_page_cache_evictions_total"}),
		keyHits:    prometheus.NewCounter(prometheus.CounterOpts{Name: "orderedview_keymap_cache_hits_total"}),
		keyMisses:  prometheus.NewCounter(prometheus.CounterOpts{Name: "orderedview_keymap_cache_misses_total"}),
		keyEvicts:  prometheus.NewCounter(prometheus.CounterOpts{Name: "orderedview_keymap_cache_evictions_total"}),
	}
	if reg != nil {
		for _, c := range []prometheus.Collector{
			m.pageHits, m.pageMisses, m.pageEvicts, m.keyHits, m.keyMisses, m.keyEvicts,
		} {
			// Registration failures (duplicate registration against a
			// shared registry) are not fatal: the extension keeps using
			// its own counter values even if they aren't exported.
			_ = reg.Register(c)
		}
	}
	return m
}

func (m *cacheMetrics) observe(ev metricEvent) {
	if m == nil {
		return
	}
	switch ev {
	case metricPageHit:
		m.pageHits.Inc()
	case metricPageMiss:
		m.pageMisses.Inc()
	case metricPageEvict:
		m.pageEvicts.Inc()
	case metricKeyHit:
		m.keyHits.Inc()
	case metricKeyMiss:
		m.keyMisses.Inc()
	case metricKeyEvict:
		m.keyEvicts.Inc()
	}
}
