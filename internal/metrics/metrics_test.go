package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSimple(t *testing.T) {
	m := NewSimple()
	m.IncHit()
	m.IncHit()
	m.IncMiss()
	m.IncBypass("lock_timeout")
	m.AddInvalidated("tag", 3)
	m.AddInvalidated("tag", 0)

	if got := m.Hit.Load(); got != 2 {
		t.Errorf("hit = %d, want 2", got)
	}
	if got := m.Bypass("lock_timeout"); got != 1 {
		t.Errorf("bypass = %d, want 1", got)
	}
	if got := m.Invalidated("tag"); got != 3 {
		t.Errorf("invalidated = %d, want 3", got)
	}
}

func TestProm(t *testing.T) {
	reg := prometheus.NewRegistry()
	p := NewProm("shop", reg)

	p.IncHit()
	p.IncStored()
	p.AddInvalidated("route", 2)
	p.AddInvalidated("route", -1)
	p.IncBypass("uncacheable")

	if got := testutil.ToFloat64(p.hit); got != 1 {
		t.Errorf("hit = %v, want 1", got)
	}
	if got := testutil.ToFloat64(p.invalidated.WithLabelValues("route")); got != 2 {
		t.Errorf("invalidated{route} = %v, want 2", got)
	}
	if got := testutil.ToFloat64(p.bypass.WithLabelValues("uncacheable")); got != 1 {
		t.Errorf("bypass{uncacheable} = %v, want 1", got)
	}
}

func TestOrNoop(t *testing.T) {
	if _, ok := OrNoop(nil).(Noop); !ok {
		t.Error("expected Noop for nil")
	}
}
