package metrics

import (
	"sort"
	"sync"
	"time"
)

type Metrics struct {
	mutex           sync.RWMutex
	proxied         map[string]int64
	selections      map[string]int64
	probes          map[string]int64
	probeFailures   map[string]int64
	responseTimes   map[string][]time.Duration
	statusCodes     map[string]map[int]int64
	healthStatus    map[string]bool
	topologyChanges int64
	mode            string
	startTime       time.Time
}

type Snapshot struct {
	TotalProxied    int64                  `json:"total_proxied"`
	TotalProbes     int64                  `json:"total_probes"`
	TopologyChanges int64                  `json:"topology_changes"`
	Mode            string                 `json:"mode"`
	Strategy        string                 `json:"strategy"`
	Uptime          time.Duration          `json:"uptime"`
	Nodes           map[string]NodeMetrics `json:"nodes"`
}

type NodeMetrics struct {
	Proxied       int64         `json:"proxied"`
	Selections    int64         `json:"selections"`
	Probes        int64         `json:"probes"`
	ProbeFailures int64         `json:"probe_failures"`
	Healthy       bool          `json:"healthy"`
	AvgResponse   time.Duration `json:"avg_response"`
	P50Response   time.Duration `json:"p50_response"`
	P95Response   time.Duration `json:"p95_response"`
	P99Response   time.Duration `json:"p99_response"`
	StatusCodes   map[int]int64 `json:"status_codes"`
}

func (m *Metrics) RecordProbe(node string, healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.probes[node]++
	if !healthy {
		m.probeFailures[node]++
	}
}

func (m *Metrics) RecordNodeSelection(node string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.selections[node]++
}

func (m *Metrics) RecordResponse(node string, duration time.Duration, statusCode int) {
	m.mutex.Lock()
	defer m.mutex.Unlock()

	m.proxied[node]++
	m.responseTimes[node] = append(m.responseTimes[node], duration)

	if len(m.responseTimes[node]) > 1000 {
		m.responseTimes[node] = m.responseTimes[node][1:]
	}

	if m.statusCodes[node] == nil {
		m.statusCodes[node] = make(map[int]int64)
	}
	m.statusCodes[node][statusCode]++
}

func (m *Metrics) UpdateHealthStatus(node string, healthy bool) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.healthStatus[node] = healthy
}

func (m *Metrics) RecordTopologyChange(mode string) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.topologyChanges++
	m.mode = mode
}

func (m *Metrics) Snapshot(strategy string) Snapshot {
	m.mutex.RLock()
	defer m.mutex.RUnlock()

	snap := Snapshot{
		TopologyChanges: m.topologyChanges,
		Mode:            m.mode,
		Strategy:        strategy,
		Uptime:          time.Since(m.startTime),
		Nodes:           make(map[string]NodeMetrics),
	}

	// Collect all node names seen by any event stream
	allNodes := make(map[string]bool)
	for node := range m.proxied {
		allNodes[node] = true
	}
	for node := range m.selections {
		allNodes[node] = true
	}
	for node := range m.probes {
		allNodes[node] = true
	}
	for node := range m.healthStatus {
		allNodes[node] = true
	}

	for node := range allNodes {
		snap.TotalProxied += m.proxied[node]
		snap.TotalProbes += m.probes[node]

		nm := NodeMetrics{
			Proxied:       m.proxied[node],
			Selections:    m.selections[node],
			Probes:        m.probes[node],
			ProbeFailures: m.probeFailures[node],
			Healthy:       m.healthStatus[node],
		}

		// The snapshot outlives the lock, so it must not share the live map.
		if codes := m.statusCodes[node]; codes != nil {
			nm.StatusCodes = make(map[int]int64, len(codes))
			for code, count := range codes {
				nm.StatusCodes[code] = count
			}
		}

		durations := m.responseTimes[node]
		if len(durations) > 0 {
			sorted := make([]time.Duration, len(durations))
			copy(sorted, durations)
			sort.Slice(sorted, func(i, j int) bool {
				return sorted[i] < sorted[j]
			})

			nm.AvgResponse = average(sorted)
			nm.P50Response = percentile(sorted, 0.50)
			nm.P95Response = percentile(sorted, 0.95)
			nm.P99Response = percentile(sorted, 0.99)
		}

		snap.Nodes[node] = nm
	}

	return snap
}

func NewMetrics() *Metrics {
	return &Metrics{
		proxied:       make(map[string]int64),
		selections:    make(map[string]int64),
		probes:        make(map[string]int64),
		probeFailures: make(map[string]int64),
		responseTimes: make(map[string][]time.Duration),
		statusCodes:   make(map[string]map[int]int64),
		healthStatus:  make(map[string]bool),
		startTime:     time.Now(),
	}
}

func average(durations []time.Duration) time.Duration {
	if len(durations) == 0 {
		return 0
	}

	var sum time.Duration
	for _, d := range durations {
		sum += d
	}

	return sum / time.Duration(len(durations))
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}

	index := int(float64(len(sorted)) * p)
	if index >= len(sorted) {
		index = len(sorted) - 1
	}

	return sorted[index]
}
