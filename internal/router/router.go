package router

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/cluster"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/metrics"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/prober"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/strategy"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/topology"
)

// defaultNodeID is substituted whenever direct addressing names a node that
// does not exist in the current snapshot.
const defaultNodeID = 1

// Router owns the current topology snapshot and healthy node set and builds
// concrete URLs from them. The snapshot and the healthy set are replaced
// wholesale, so readers always observe a consistent view without locking.
type Router struct {
	resolver  *topology.Resolver
	prober    *prober.Prober
	aux       AuxServices
	collector *metrics.Collector
	logger    *slog.Logger

	snapshot atomic.Pointer[topology.Snapshot]
	healthy  atomic.Pointer[[]cluster.Node]

	mutex sync.Mutex // guards opts across merge-and-redetect
	opts  topology.Options

	strategies map[string]strategy.Strategy
}

// OptionsPatch is a partial update to the detection options. Nil fields
// keep their current value.
type OptionsPatch struct {
	Override *topology.Override
}

// New creates a Router and runs the initial topology detection. The healthy
// set starts as the full node list until the first probe round replaces it.
func New(resolver *topology.Resolver, p *prober.Prober, aux AuxServices, collector *metrics.Collector, logger *slog.Logger) *Router {
	r := &Router{
		resolver:  resolver,
		prober:    p,
		aux:       aux,
		collector: collector,
		logger:    logger,
		opts:      topology.Options{Override: topology.OverrideAuto},
		strategies: map[string]strategy.Strategy{
			strategy.RoundRobin: strategy.NewRoundRobinStrategy(),
			strategy.Random:     strategy.NewRandomStrategy(),
			strategy.First:      strategy.NewFirstStrategy(),
		},
	}

	r.redetect(r.opts)

	return r
}

// Snapshot returns the current topology snapshot.
func (r *Router) Snapshot() *topology.Snapshot {
	return r.snapshot.Load()
}

// Options returns the detection options currently in effect.
func (r *Router) Options() topology.Options {
	r.mutex.Lock()
	defer r.mutex.Unlock()
	return r.opts
}

// Reconfigure merges the patch into the current options, re-runs topology
// detection and swaps in the fresh snapshot.
func (r *Router) Reconfigure(patch OptionsPatch) *topology.Snapshot {
	r.mutex.Lock()
	if patch.Override != nil {
		r.opts.Override = *patch.Override
	}
	opts := r.opts
	r.mutex.Unlock()

	return r.redetect(opts)
}

// Refresh re-runs topology detection with the current options.
func (r *Router) Refresh() *topology.Snapshot {
	return r.redetect(r.Options())
}

func (r *Router) redetect(opts topology.Options) *topology.Snapshot {
	snap := r.resolver.Detect(opts)
	r.snapshot.Store(snap)
	r.storeHealthy(snap.Nodes)

	r.collector.TryEmit(metrics.MetricEvent{
		Type: metrics.EventTopologyChanged,
		Mode: string(snap.Mode),
	})
	r.logger.Info("Topology snapshot replaced",
		slog.String("mode", string(snap.Mode)),
		slog.String("frontend", snap.FrontendBaseURL),
		slog.Int("nodes", len(snap.Nodes)))

	return snap
}

// RefreshHealth runs one probe round against the current snapshot and
// replaces the stored healthy set with the outcome.
func (r *Router) RefreshHealth(ctx context.Context) []cluster.Node {
	healthy := r.prober.Probe(ctx, r.Snapshot())
	r.storeHealthy(healthy)
	return healthy
}

// HealthyNodes returns the most recently stored healthy set.
func (r *Router) HealthyNodes() []cluster.Node {
	return *r.healthy.Load()
}

func (r *Router) storeHealthy(nodes []cluster.Node) {
	r.healthy.Store(&nodes)
}

// WarmStart seeds the healthy set from the probe cache when one is
// configured, so routing is reasonable before the first probe round.
func (r *Router) WarmStart(ctx context.Context) bool {
	nodes, ok := r.prober.CachedHealthy(ctx, r.Snapshot())
	if !ok {
		return false
	}

	r.storeHealthy(nodes)
	r.logger.Info("Seeded healthy node set from cache", slog.Int("nodes", len(nodes)))
	return true
}

// BuildURL produces a concrete URL for the given service and path.
//
// For the primary service the node with the given id is addressed directly;
// an unknown id logs a warning and substitutes node 1. Search and metadata
// live outside the cluster: under path routing they are reached through the
// frontend origin with a fixed API prefix, otherwise at their fixed
// addresses.
func (r *Router) BuildURL(service Service, path string, nodeID int) string {
	snap := r.Snapshot()

	switch service {
	case ServiceSearch:
		return r.auxURL(snap, r.aux.SearchPrefix, r.aux.SearchBaseURL, path)
	case ServiceMetadata:
		return r.auxURL(snap, r.aux.MetadataPrefix, r.aux.MetadataBaseURL, path)
	}

	if len(snap.Nodes) == 0 {
		return snap.FrontendBaseURL + path
	}

	node, ok := snap.Node(nodeID)
	if !ok {
		r.logger.Warn("Unknown node id, substituting the default node",
			slog.Int("node_id", nodeID),
			slog.Int("default", defaultNodeID))

		if node, ok = snap.Node(defaultNodeID); !ok {
			node = snap.Nodes[0]
		}
	}

	return node.BaseURL.String() + path
}

func (r *Router) auxURL(snap *topology.Snapshot, prefix, direct, path string) string {
	if snap.UsesPathRouting() {
		return snap.FrontendBaseURL + prefix + path
	}
	return direct + path
}

// BuildDynamicURL probes the cluster, picks a healthy node with the named
// strategy and appends the path. It never fails outright: an empty node set
// degrades to direct addressing of the default node, an unknown strategy
// name to round-robin.
func (r *Router) BuildDynamicURL(ctx context.Context, path, strategyName string) string {
	node, ok := r.SelectNode(ctx, strategyName)
	if !ok {
		return r.BuildURL(ServicePrimary, path, defaultNodeID)
	}

	return node.BaseURL.String() + path
}

// SelectNode runs a probe round and picks from the resulting healthy set
// with the named strategy.
func (r *Router) SelectNode(ctx context.Context, strategyName string) (cluster.Node, bool) {
	return r.selectFrom(r.RefreshHealth(ctx), strategyName)
}

// SelectFromCurrent picks from the stored healthy set without running a new
// probe round. The request gateway sits on this to keep probing off the
// request path.
func (r *Router) SelectFromCurrent(strategyName string) (cluster.Node, bool) {
	return r.selectFrom(r.HealthyNodes(), strategyName)
}

func (r *Router) selectFrom(nodes []cluster.Node, strategyName string) (cluster.Node, bool) {
	node, ok := r.strategyFor(strategyName).Select(nodes)
	if !ok {
		return cluster.Node{}, false
	}

	r.collector.TryEmit(metrics.MetricEvent{
		Type: metrics.EventNodeSelected,
		Node: node.Name,
	})

	return node, true
}

// strategyFor never fails: unknown names get round-robin. The strategies
// map is never mutated after construction, so reads need no locking.
func (r *Router) strategyFor(name string) strategy.Strategy {
	if strat, ok := r.strategies[name]; ok {
		return strat
	}

	r.logger.Warn("Unknown strategy, defaulting to round-robin",
		slog.String("requested", name))
	return r.strategies[strategy.RoundRobin]
}
