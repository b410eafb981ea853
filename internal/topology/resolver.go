package topology

import (
	"fmt"
	"log/slog"
	"net/url"

	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/cluster"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/environ"
)

// Resolver classifies the deployment topology from the frontend location and
// synthesizes the node list for it. Deployment constants come from Params,
// the location from the injected provider, so the resolver itself carries no
// ambient state.
type Resolver struct {
	params   Params
	provider environ.Provider
	logger   *slog.Logger
}

// NewResolver creates a Resolver with the given deployment parameters and
// location provider.
func NewResolver(params Params, provider environ.Provider, logger *slog.Logger) *Resolver {
	return &Resolver{
		params:   params,
		provider: provider,
		logger:   logger,
	}
}

// Detect classifies the current location into a topology mode and returns a
// fresh snapshot for it. Detect never fails: any error or panic along the
// way degrades to the direct-port fallback, so callers always receive a
// snapshot with a non-empty node list.
func (r *Resolver) Detect(opts Options) (snap *Snapshot) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("Topology detection panicked, using direct-port fallback",
				slog.Any("panic", rec))
			snap = r.directPort()
		}
	}()

	loc, err := r.provider.Location()
	if err != nil {
		r.logger.Warn("Cannot determine frontend location, using direct-port fallback",
			slog.Any("err", err))
		return r.directPort()
	}

	snap = r.classify(loc, opts)

	r.logger.Debug("Topology detected",
		slog.String("mode", string(snap.Mode)),
		slog.String("frontend", snap.FrontendBaseURL),
		slog.Int("nodes", len(snap.Nodes)))

	return snap
}

// classify applies the decision procedure in order: a loopback frontend on
// the development port means direct-port mode, any other hostname means a
// cluster deployment split by the override, and anything left over falls
// back to direct-port.
func (r *Resolver) classify(loc environ.Location, opts Options) *Snapshot {
	switch {
	case loc.IsLoopback() && loc.Port == r.params.DevPort:
		return r.directPort()
	case !loc.IsLoopback():
		if opts.Override == OverridePortRouted {
			return r.portRouted(loc)
		}
		return r.pathRouted(loc)
	default:
		return r.directPort()
	}
}

func (r *Resolver) directPort() *Snapshot {
	nodes := make([]cluster.Node, 0, r.params.DirectCount)
	for i := 1; i <= r.params.DirectCount; i++ {
		base := &url.URL{
			Scheme: "http",
			Host:   fmt.Sprintf("localhost:%d", r.params.DirectPortBase+i),
		}
		nodes = append(nodes, cluster.New(i, r.nodeName(i), base, r.params.HealthSuffix))
	}

	return &Snapshot{
		Mode:            ModeDirectPort,
		FrontendBaseURL: fmt.Sprintf("http://localhost:%s", r.params.DevPort),
		Nodes:           nodes,
	}
}

func (r *Resolver) portRouted(loc environ.Location) *Snapshot {
	nodes := make([]cluster.Node, 0, r.params.PortRoutedCount)
	for i := 1; i <= r.params.PortRoutedCount; i++ {
		base := &url.URL{
			Scheme: loc.Scheme,
			Host:   fmt.Sprintf("%s:%d", loc.Hostname, r.params.PortRoutedPortBase+i),
		}
		nodes = append(nodes, cluster.New(i, r.nodeName(i), base, r.params.HealthSuffix))
	}

	return &Snapshot{
		Mode:            ModePortRouted,
		FrontendBaseURL: loc.Origin(),
		Nodes:           nodes,
	}
}

// pathRouted keeps node 1 at the bare frontend origin so deployments that
// predate multi-node routing keep working.
func (r *Resolver) pathRouted(loc environ.Location) *Snapshot {
	nodes := make([]cluster.Node, 0, r.params.PathRoutedCount)
	for i := 1; i <= r.params.PathRoutedCount; i++ {
		base := &url.URL{
			Scheme: loc.Scheme,
			Host:   loc.Host(),
		}
		if i > 1 {
			base.Path = fmt.Sprintf("/%s%d", r.params.ServiceName, i)
		}
		nodes = append(nodes, cluster.New(i, r.nodeName(i), base, r.params.HealthSuffix))
	}

	return &Snapshot{
		Mode:            ModePathRouted,
		FrontendBaseURL: loc.Origin(),
		Nodes:           nodes,
	}
}

func (r *Resolver) nodeName(i int) string {
	return fmt.Sprintf("%s%d", r.params.ServiceName, i)
}
