package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

func newTestCollector(t *testing.T) (*Collector, *prometheus.Registry) {
	t.Helper()
	c := New()
	return c, c.Registry
}

func getGaugeValue(g prometheus.Gauge) float64 {
	m := &dto.Metric{}
	g.Write(m)
	return m.GetGauge().GetValue()
}

func getCounterValue(c prometheus.Counter) float64 {
	m := &dto.Metric{}
	c.Write(m)
	return m.GetCounter().GetValue()
}

func TestUpdatePoolStatsIsAuthoritative(t *testing.T) {
	c, _ := newTestCollector(t)

	c.UpdatePoolStats("default", 3, 5, 8, 1)
	if v := getGaugeValue(c.connectionsActive.WithLabelValues("default")); v != 3 {
		t.Errorf("expected active=3, got %v", v)
	}

	c.UpdatePoolStats("default", 2, 4, 6, 0)
	if v := getGaugeValue(c.connectionsActive.WithLabelValues("default")); v != 2 {
		t.Errorf("expected active=2 after update, got %v", v)
	}
}

func TestUpdatePoolStatsSetsAllGauges(t *testing.T) {
	c, _ := newTestCollector(t)

	c.UpdatePoolStats("default", 5, 10, 15, 2)
	if v := getGaugeValue(c.connectionsActive.WithLabelValues("default")); v != 5 {
		t.Errorf("expected active=5, got %v", v)
	}
	if v := getGaugeValue(c.connectionsIdle.WithLabelValues("default")); v != 10 {
		t.Errorf("expected idle=10, got %v", v)
	}
	if v := getGaugeValue(c.connectionsTotal.WithLabelValues("default")); v != 15 {
		t.Errorf("expected total=15, got %v", v)
	}
	if v := getGaugeValue(c.connectionsWaiting.WithLabelValues("default")); v != 2 {
		t.Errorf("expected waiting=2, got %v", v)
	}
}

func TestAcquireCompletedObservesHistogram(t *testing.T) {
	c, reg := newTestCollector(t)

	c.AcquireCompleted("default", 5*time.Millisecond)
	c.AcquireCompleted("default", 10*time.Millisecond)

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	var found bool
	for _, f := range families {
		if f.GetName() == "mysqlpool_acquire_duration_seconds" {
			found = true
			m := f.GetMetric()
			if len(m) == 0 || m[0].GetHistogram().GetSampleCount() != 2 {
				t.Errorf("expected 2 acquire samples, got metrics=%v", m)
			}
		}
	}
	if !found {
		t.Error("acquire duration metric not found")
	}
}

func TestAcquireTimedOut(t *testing.T) {
	c, _ := newTestCollector(t)

	c.AcquireTimedOut("default")
	c.AcquireTimedOut("default")
	c.AcquireTimedOut("default")

	if v := getCounterValue(c.acquireTimeouts.WithLabelValues("default")); v != 3 {
		t.Errorf("expected 3 acquire timeouts, got %v", v)
	}
}

func TestScavengeDroppedByReason(t *testing.T) {
	c, _ := newTestCollector(t)

	c.ScavengeDropped("default", "idle_trim")
	c.ScavengeDropped("default", "idle_trim")
	c.ScavengeDropped("default", "unrecoverable")

	if v := getCounterValue(c.scavengeDrops.WithLabelValues("default", "idle_trim")); v != 2 {
		t.Errorf("expected idle_trim=2, got %v", v)
	}
	if v := getCounterValue(c.scavengeDrops.WithLabelValues("default", "unrecoverable")); v != 1 {
		t.Errorf("expected unrecoverable=1, got %v", v)
	}
}

func TestSessionOpenFailedBySource(t *testing.T) {
	c, _ := newTestCollector(t)

	c.SessionOpenFailed("default", "producer")
	c.SessionOpenFailed("default", "warmup")
	c.SessionOpenFailed("default", "producer")

	if v := getCounterValue(c.sessionOpenErrors.WithLabelValues("default", "producer")); v != 2 {
		t.Errorf("expected producer=2, got %v", v)
	}
	if v := getCounterValue(c.sessionOpenErrors.WithLabelValues("default", "warmup")); v != 1 {
		t.Errorf("expected warmup=1, got %v", v)
	}
}

func TestRemoveDeletesAllSeriesForPool(t *testing.T) {
	c, reg := newTestCollector(t)

	c.UpdatePoolStats("doomed", 1, 2, 3, 0)
	c.AcquireTimedOut("doomed")
	c.ScavengeDropped("doomed", "idle_trim")

	c.Remove("doomed")

	families, err := reg.Gather()
	if err != nil {
		t.Fatal(err)
	}
	for _, f := range families {
		for _, m := range f.GetMetric() {
			for _, l := range m.GetLabel() {
				if l.GetName() == "pool" && l.GetValue() == "doomed" {
					t.Errorf("metric %s still has pool=doomed label after Remove", f.GetName())
				}
			}
		}
	}
}

func TestMultiplePoolsAreIndependent(t *testing.T) {
	c, _ := newTestCollector(t)

	c.UpdatePoolStats("p1", 1, 0, 1, 0)
	c.UpdatePoolStats("p2", 2, 1, 3, 0)

	v1 := getGaugeValue(c.connectionsActive.WithLabelValues("p1"))
	v2 := getGaugeValue(c.connectionsActive.WithLabelValues("p2"))
	if v1 != 1 {
		t.Errorf("expected p1 active=1, got %v", v1)
	}
	if v2 != 2 {
		t.Errorf("expected p2 active=2, got %v", v2)
	}
}

func TestNewDoesNotPanicOnMultipleCalls(t *testing.T) {
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("New() panicked on repeated calls: %v", r)
		}
	}()

	c1 := New()
	c2 := New()

	c1.UpdatePoolStats("p", 1, 0, 1, 0)
	c2.UpdatePoolStats("p", 2, 0, 2, 0)

	v1 := getGaugeValue(c1.connectionsActive.WithLabelValues("p"))
	v2 := getGaugeValue(c2.connectionsActive.WithLabelValues("p"))
	if v1 != 1 {
		t.Errorf("c1 expected active=1, got %v", v1)
	}
	if v2 != 2 {
		t.Errorf("c2 expected active=2, got %v", v2)
	}
}
