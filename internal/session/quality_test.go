package session

import (
	"testing"

	"github.com/vovakirdan/wirecall/internal/media"
)

const lost = media.QualityDisconnected

func TestQualityMonitorEdgeTriggered(t *testing.T) {
	q := newQualityMonitor(5)

	for i := 0; i < 4; i++ {
		if q.observe(lost, media.QualityGood) {
			t.Fatalf("sample %d must not trigger", i+1)
		}
	}
	if !q.observe(lost, media.QualityGood) {
		t.Fatalf("fifth disconnected sample must trigger")
	}
	if up, down := q.counters(); up != 0 || down != 0 {
		t.Fatalf("counters must reset together, got up=%d down=%d", up, down)
	}
	if q.observe(lost, media.QualityGood) {
		t.Fatalf("a fresh run must start from zero")
	}
}

func TestQualityMonitorGoodSampleResetsRun(t *testing.T) {
	q := newQualityMonitor(5)

	for i := 0; i < 4; i++ {
		q.observe(lost, media.QualityGood)
	}
	q.observe(media.QualityGood, media.QualityGood)
	if up, _ := q.counters(); up != 0 {
		t.Fatalf("good sample must reset uplink counter, got %d", up)
	}

	triggers := 0
	for i := 0; i < 5; i++ {
		if q.observe(lost, media.QualityGood) {
			triggers++
		}
	}
	if triggers != 1 {
		t.Fatalf("expected exactly one trigger after five fresh samples, got %d", triggers)
	}
}

func TestQualityMonitorBothDirections(t *testing.T) {
	q := newQualityMonitor(3)

	triggers := 0
	for i := 0; i < 6; i++ {
		if q.observe(lost, lost) {
			triggers++
		}
	}
	if triggers != 2 {
		t.Fatalf("expected one trigger per run of three, got %d", triggers)
	}
}

func TestQualityMonitorDefaultThreshold(t *testing.T) {
	if q := newQualityMonitor(0); q.limit != DefaultBadNetworkMaxCount {
		t.Fatalf("expected default threshold %d, got %d", DefaultBadNetworkMaxCount, q.limit)
	}
}
