package gateway

import (
	"log/slog"
	"net"
	"net/http"
	"net/http/httputil"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/circuitbreaker"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/cluster"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/metrics"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/router"
)

// Handler proxies catalog requests to a healthy cluster node picked by the
// configured strategy. Nodes with an open circuit breaker are skipped as
// long as an alternative exists.
type Handler struct {
	logger    *slog.Logger
	router    *router.Router
	breakers  *circuitbreaker.Registry
	collector *metrics.Collector
	strategy  string

	mutex   sync.Mutex
	proxies map[string]*httputil.ReverseProxy
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func New(logger *slog.Logger, rt *router.Router, breakers *circuitbreaker.Registry, collector *metrics.Collector, strategyName string) *Handler {
	return &Handler{
		logger:    logger,
		router:    rt,
		breakers:  breakers,
		collector: collector,
		strategy:  strategyName,
		proxies:   make(map[string]*httputil.ReverseProxy),
	}
}

func (g *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	clientIP := extractClientIP(r)

	requestID := r.Header.Get("X-Request-Id")
	if requestID == "" {
		requestID = uuid.NewString()
	}

	g.logger.Info("Received request",
		slog.String("request_id", requestID),
		slog.String("from", clientIP),
		slog.String("method", r.Method),
		slog.String("path", r.URL.Path),
		slog.String("host", r.Host))

	node, ok := g.selectNode()
	if !ok {
		g.logger.Warn("No usable node available", slog.String("client", clientIP))
		http.Error(w, "No usable node available", http.StatusServiceUnavailable)
		return
	}

	g.logger.Info("Forwarding to node",
		slog.String("request_id", requestID),
		slog.String("node", node.Name),
		slog.String("url", node.BaseURL.String()))

	w.Header().Set("X-Served-By", node.Name)
	w.Header().Set("X-Request-Id", requestID)

	start := time.Now()
	wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
	g.proxyFor(node).ServeHTTP(wrapped, r)
	duration := time.Since(start)

	breaker := g.breakers.ForNode(node.Name)
	if wrapped.statusCode >= http.StatusInternalServerError {
		breaker.RecordFailure()
	} else {
		breaker.RecordSuccess()
	}

	g.collector.TryEmit(metrics.MetricEvent{
		Type:       metrics.EventRequestProxied,
		Node:       node.Name,
		Duration:   duration,
		StatusCode: wrapped.statusCode,
	})

	g.logger.Info("Request completed",
		slog.String("request_id", requestID),
		slog.String("node", node.Name),
		slog.Int("status", wrapped.statusCode),
		slog.Duration("duration", duration))
}

// selectNode asks the router for a node, skipping nodes whose breaker is
// open. One attempt per healthy node; when every candidate's breaker is
// open the request is refused rather than hammering nodes that are known
// to be failing.
func (g *Handler) selectNode() (cluster.Node, bool) {
	attempts := len(g.router.HealthyNodes())
	if attempts == 0 {
		return cluster.Node{}, false
	}

	for i := 0; i < attempts; i++ {
		node, ok := g.router.SelectFromCurrent(g.strategy)
		if !ok {
			return cluster.Node{}, false
		}

		if g.breakers.ForNode(node.Name).Allow() {
			return node, true
		}
	}

	g.logger.Warn("Every breaker is open, refusing the request",
		slog.Int("candidates", attempts))
	return cluster.Node{}, false
}

// proxyFor returns the reverse proxy for the node's base URL, creating and
// caching it on first use. Path-routed nodes keep their base path, which the
// proxy prepends to every forwarded request.
func (g *Handler) proxyFor(node cluster.Node) *httputil.ReverseProxy {
	key := node.BaseURL.String()

	g.mutex.Lock()
	defer g.mutex.Unlock()

	if proxy, ok := g.proxies[key]; ok {
		return proxy
	}

	proxy := httputil.NewSingleHostReverseProxy(node.BaseURL)
	proxy.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
		g.logger.Warn("Proxy error",
			slog.String("node", node.Name),
			slog.Any("err", err))
		w.WriteHeader(http.StatusBadGateway)
	}

	g.proxies[key] = proxy
	return proxy
}

func extractClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		return strings.TrimSpace(strings.Split(xff, ",")[0])
	}

	host, _, _ := net.SplitHostPort(r.RemoteAddr)
	return host
}
