package observability

import (
	"sync"
	"sync/atomic"
)

// Metrics keeps lightweight in-process counters exposed on the health
// endpoint. Not a replacement for a real metrics backend.
type Metrics struct {
	requestsTotal  atomic.Int64
	responses5xx   atomic.Int64
	ticketsCreated atomic.Int64

	mu             sync.Mutex
	requestsByPath map[string]int64
}

func NewMetrics() *Metrics {
	return &Metrics{requestsByPath: make(map[string]int64)}
}

func (m *Metrics) IncRequest(path string, status int) {
	m.requestsTotal.Add(1)
	if status >= 500 {
		m.responses5xx.Add(1)
	}
	m.mu.Lock()
	m.requestsByPath[path]++
	m.mu.Unlock()
}

func (m *Metrics) IncTicketCreated() {
	m.ticketsCreated.Add(1)
}

// Snapshot returns a copy of the current counters.
func (m *Metrics) Snapshot() map[string]any {
	m.mu.Lock()
	byPath := make(map[string]int64, len(m.requestsByPath))
	for k, v := range m.requestsByPath {
		byPath[k] = v
	}
	m.mu.Unlock()

	return map[string]any{
		"requests_total":   m.requestsTotal.Load(),
		"responses_5xx":    m.responses5xx.Load(),
		"tickets_created":  m.ticketsCreated.Load(),
		"requests_by_path": byPath,
	}
}
