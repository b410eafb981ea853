package prober

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/cluster"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/metrics"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/topology"
)

// DefaultProbeTimeout bounds a single health check round trip.
const DefaultProbeTimeout = 2 * time.Second

// ResultCache remembers the healthy node ids between probe rounds. A fresh
// entry stands in for a live round. healthcache.Cache implements it.
type ResultCache interface {
	Store(ctx context.Context, ids []int) error
	Lookup(ctx context.Context) ([]int, bool, error)
}

// Prober filters a topology snapshot down to the nodes that answer their
// health check.
type Prober struct {
	client    *http.Client
	timeout   time.Duration
	cache     ResultCache
	collector *metrics.Collector
	logger    *slog.Logger
}

// New creates a Prober. A nil client falls back to a plain http.Client, a
// non-positive timeout to DefaultProbeTimeout. cache and collector are
// optional and may be nil.
func New(client *http.Client, timeout time.Duration, cache ResultCache, collector *metrics.Collector, logger *slog.Logger) *Prober {
	if client == nil {
		client = &http.Client{}
	}
	if timeout <= 0 {
		timeout = DefaultProbeTimeout
	}

	return &Prober{
		client:    client,
		timeout:   timeout,
		cache:     cache,
		collector: collector,
		logger:    logger,
	}
}

// Probe returns the nodes of the snapshot that answered their health check,
// preserving the snapshot order.
//
// Path-routed snapshots are returned unchanged: the routing layer guarantees
// the nodes exist, so probing adds nothing. A fresh cache entry is served in
// place of a live round. All other snapshots are probed concurrently, one
// bounded GET per node, and Probe returns only after every probe has
// settled. When not a single node answers, the full candidate list is
// returned so callers never end up with zero usable nodes.
func (p *Prober) Probe(ctx context.Context, snap *topology.Snapshot) []cluster.Node {
	if snap.UsesPathRouting() || len(snap.Nodes) == 0 {
		return snap.Nodes
	}

	if nodes, ok := p.CachedHealthy(ctx, snap); ok {
		p.logger.Debug("Serving healthy node set from cache", slog.Int("nodes", len(nodes)))
		return nodes
	}

	results := make([]bool, len(snap.Nodes))

	var wg sync.WaitGroup
	for i, node := range snap.Nodes {
		wg.Add(1)
		go func(i int, node cluster.Node) {
			defer wg.Done()
			results[i] = p.probeOne(ctx, node)
		}(i, node)
	}
	wg.Wait()

	healthy := make([]cluster.Node, 0, len(snap.Nodes))
	for i, ok := range results {
		if ok {
			healthy = append(healthy, snap.Nodes[i])
		}
	}

	if len(healthy) == 0 {
		p.logger.Warn("No node answered its health check, keeping the full candidate list",
			slog.Int("candidates", len(snap.Nodes)))
		return snap.Nodes
	}

	p.storeHealthy(ctx, healthy)

	return healthy
}

// probeOne reports whether the node answered its health check with a 2xx
// status inside the probe timeout.
func (p *Prober) probeOne(ctx context.Context, node cluster.Node) bool {
	probeCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(
		probeCtx, http.MethodGet, node.HealthCheckURL.String(), nil)
	if err != nil {
		p.logger.Warn("Cannot build health check request",
			slog.String("node", node.Name),
			slog.Any("err", err))
		return false
	}

	start := time.Now()
	res, err := p.client.Do(req)
	duration := time.Since(start)

	if err != nil {
		p.logger.Warn("Health check failed",
			slog.String("node", node.Name),
			slog.String("url", node.HealthCheckURL.String()),
			slog.Any("err", err))
		p.collector.TryEmit(metrics.MetricEvent{
			Type:     metrics.EventProbeCompleted,
			Node:     node.Name,
			Duration: duration,
			Healthy:  false,
		})
		return false
	}
	defer res.Body.Close()

	healthy := res.StatusCode >= 200 && res.StatusCode < 300
	if !healthy {
		p.logger.Warn("Health check returned a non-2xx status",
			slog.String("node", node.Name),
			slog.Int("status", res.StatusCode))
	}

	p.collector.TryEmit(metrics.MetricEvent{
		Type:       metrics.EventProbeCompleted,
		Node:       node.Name,
		Duration:   duration,
		StatusCode: res.StatusCode,
		Healthy:    healthy,
	})

	return healthy
}

// storeHealthy persists the healthy set best-effort.
func (p *Prober) storeHealthy(ctx context.Context, nodes []cluster.Node) {
	if p.cache == nil {
		return
	}

	if err := p.cache.Store(ctx, cluster.IDs(nodes)); err != nil {
		p.logger.Warn("Cannot persist healthy node set", slog.Any("err", err))
	}
}

// CachedHealthy maps the cached healthy ids onto the snapshot, preserving
// the snapshot order. The second return value is false when no cache is
// configured, the entry is missing, or no cached id matches a node.
func (p *Prober) CachedHealthy(ctx context.Context, snap *topology.Snapshot) ([]cluster.Node, bool) {
	if p.cache == nil {
		return nil, false
	}

	ids, found, err := p.cache.Lookup(ctx)
	if err != nil {
		p.logger.Warn("Cannot read cached healthy node set", slog.Any("err", err))
		return nil, false
	}
	if !found {
		return nil, false
	}

	cached := make(map[int]bool, len(ids))
	for _, id := range ids {
		cached[id] = true
	}

	nodes := make([]cluster.Node, 0, len(ids))
	for _, node := range snap.Nodes {
		if cached[node.ID] {
			nodes = append(nodes, node)
		}
	}

	if len(nodes) == 0 {
		return nil, false
	}

	return nodes, true
}
