package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestPrometheusCollector_Counters(t *testing.T) {
	pc := NewPrometheusCollector("bankops_test")
	reg := prometheus.NewRegistry()
	if err := pc.Register(reg); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	pc.RecordLeaseAcquire("DEVICE", OutcomeAcquired)
	pc.RecordLeaseAcquire("DEVICE", OutcomeAcquired)
	pc.RecordLeaseAcquire("ACCOUNT", OutcomeContended)
	pc.RecordLeasesReclaimed(3)
	pc.RecordLeasesReclaimed(0)
	pc.RecordTransaction("withdrawal", "success")
	pc.RecordSettlement("success", 5*time.Millisecond)

	if got := testutil.ToFloat64(pc.leaseAcquires.WithLabelValues("DEVICE", OutcomeAcquired)); got != 2 {
		t.Errorf("device acquired = %v, want 2", got)
	}
	if got := testutil.ToFloat64(pc.leaseAcquires.WithLabelValues("ACCOUNT", OutcomeContended)); got != 1 {
		t.Errorf("account contended = %v, want 1", got)
	}
	if got := testutil.ToFloat64(pc.leasesReclaims); got != 3 {
		t.Errorf("reclaimed = %v, want 3", got)
	}
	if got := testutil.ToFloat64(pc.transactions.WithLabelValues("withdrawal", "success")); got != 1 {
		t.Errorf("transactions = %v, want 1", got)
	}
}

func TestPrometheusCollector_DoubleRegisterFails(t *testing.T) {
	pc := NewPrometheusCollector("bankops_test")
	reg := prometheus.NewRegistry()
	if err := pc.Register(reg); err != nil {
		t.Fatalf("first Register() error = %v", err)
	}
	if err := pc.Register(reg); err == nil {
		t.Error("second Register() should fail with duplicate collectors")
	}
}
