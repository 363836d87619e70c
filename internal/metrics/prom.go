package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Prom exports output cache counters to Prometheus.
type Prom struct {
	hit         prometheus.Counter
	miss        prometheus.Counter
	stored      prometheus.Counter
	bypass      *prometheus.CounterVec
	invalidated *prometheus.CounterVec
}

// NewProm creates the collectors and registers them on reg. A nil reg uses
// prometheus.DefaultRegisterer; registration panics on duplicates, so call it
// once per registry.
func NewProm(namespace string, reg prometheus.Registerer) *Prom {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	makeC := func(name, help string) prometheus.Counter {
		return prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "output_cache",
			Name:      name,
			Help:      help,
		})
	}
	makeV := func(name, help, label string) *prometheus.CounterVec {
		return prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "output_cache",
			Name:      name,
			Help:      help,
		}, []string{label})
	}

	p := &Prom{
		hit:         makeC("hit_total", "Number of requests served from the output cache"),
		miss:        makeC("miss_total", "Number of output cache misses"),
		stored:      makeC("stored_total", "Number of rendered responses stored"),
		bypass:      makeV("bypass_total", "Number of requests served without the output cache", "reason"),
		invalidated: makeV("invalidated_total", "Number of purged output cache items", "kind"),
	}
	reg.MustRegister(p.hit, p.miss, p.stored, p.bypass, p.invalidated)
	return p
}

func (p *Prom) IncHit()    { p.hit.Inc() }
func (p *Prom) IncMiss()   { p.miss.Inc() }
func (p *Prom) IncStored() { p.stored.Inc() }

func (p *Prom) IncBypass(reason string) { p.bypass.WithLabelValues(reason).Inc() }

func (p *Prom) AddInvalidated(kind string, n int) {
	if n > 0 {
		p.invalidated.WithLabelValues(kind).Add(float64(n))
	}
}
