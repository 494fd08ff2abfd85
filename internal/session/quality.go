package session

import (
	"sync"

	"github.com/vovakirdan/wirecall/internal/media"
)

// DefaultBadNetworkMaxCount is how many consecutive disconnected samples
// on one direction raise bad-network-quality.
const DefaultBadNetworkMaxCount = 5

// qualityMonitor derives the edge-triggered bad-network signal from
// periodic quality samples.
type qualityMonitor struct {
	mu       sync.Mutex
	limit    int
	uplink   int
	downlink int
}

func newQualityMonitor(limit int) *qualityMonitor {
	if limit <= 0 {
		limit = DefaultBadNetworkMaxCount
	}
	return &qualityMonitor{limit: limit}
}

// observe records one sample and reports whether it completed a bad run.
// Both counters reset together when it does.
func (q *qualityMonitor) observe(uplink, downlink int) bool {
	q.mu.Lock()
	defer q.mu.Unlock()

	if uplink == media.QualityDisconnected {
		q.uplink++
	} else {
		q.uplink = 0
	}
	if downlink == media.QualityDisconnected {
		q.downlink++
	} else {
		q.downlink = 0
	}

	if q.uplink >= q.limit || q.downlink >= q.limit {
		q.uplink = 0
		q.downlink = 0
		return true
	}
	return false
}

func (q *qualityMonitor) counters() (uplink, downlink int) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.uplink, q.downlink
}

func (q *qualityMonitor) reset() {
	q.mu.Lock()
	q.uplink = 0
	q.downlink = 0
	q.mu.Unlock()
}
