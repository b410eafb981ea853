package admin

import (
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/cluster"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/router"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/topology"
)

// Server exposes the operational API: inspect the detected topology, probe
// the cluster on demand, rewrite the detection options, and resolve URLs the
// same way the gateway does.
type Server struct {
	router *router.Router
	logger *slog.Logger
}

func NewServer(rt *router.Router, logger *slog.Logger) *Server {
	return &Server{
		router: rt,
		logger: logger,
	}
}

// NewEcho builds an echo instance with the admin routes and error handler
// installed. The instance is a plain http.Handler; the caller owns its
// listener lifecycle.
func NewEcho(s *Server, logger *slog.Logger) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	RegisterErrorHandler(e, logger)
	s.Register(e)

	return e
}

// Register mounts the admin routes.
func (s *Server) Register(e *echo.Echo) {
	e.GET("/v1/topology", s.GetTopology)
	e.GET("/v1/nodes", s.GetNodes)
	e.GET("/v1/nodes/healthy", s.GetHealthyNodes)
	e.POST("/v1/config", s.UpdateConfig)
	e.GET("/v1/resolve", s.Resolve)
	e.GET("/v1/resolve/dynamic", s.ResolveDynamic)
}

type NodeResponse struct {
	ID             int    `json:"id"`
	Name           string `json:"name"`
	BaseURL        string `json:"base_url"`
	HealthCheckURL string `json:"health_check_url"`
}

type TopologyResponse struct {
	Mode            string         `json:"mode"`
	Override        string         `json:"override"`
	FrontendBaseURL string         `json:"frontend_base_url"`
	Nodes           []NodeResponse `json:"nodes"`
}

type NodesResponse struct {
	Nodes []NodeResponse `json:"nodes"`
}

type ConfigUpdateRequest struct {
	TopologyOverride string `json:"topology_override"`
}

type ResolveResponse struct {
	URL string `json:"url"`
}

type DynamicResolveResponse struct {
	URL    string `json:"url"`
	NodeID int    `json:"node_id"`
	Node   string `json:"node"`
}

// GetTopology (GET /v1/topology) returns the current snapshot.
func (s *Server) GetTopology(ectx echo.Context) error {
	return ectx.JSON(http.StatusOK, s.topologyResponse(s.router.Snapshot()))
}

// GetNodes (GET /v1/nodes) returns every configured node descriptor.
func (s *Server) GetNodes(ectx echo.Context) error {
	snap := s.router.Snapshot()
	return ectx.JSON(http.StatusOK, NodesResponse{Nodes: toNodeResponses(snap.Nodes)})
}

// GetHealthyNodes (GET /v1/nodes/healthy) runs a probe round right now and
// returns the nodes that passed.
func (s *Server) GetHealthyNodes(ectx echo.Context) error {
	healthy := s.router.RefreshHealth(ectx.Request().Context())
	return ectx.JSON(http.StatusOK, NodesResponse{Nodes: toNodeResponses(healthy)})
}

// UpdateConfig (POST /v1/config) merges the submitted detection options,
// re-runs detection, and returns the resulting snapshot.
func (s *Server) UpdateConfig(ectx echo.Context) error {
	var req ConfigUpdateRequest
	if err := ectx.Bind(&req); err != nil {
		return NewBadParameterError("invalid request body", err)
	}

	override, err := topology.ParseOverride(req.TopologyOverride)
	if err != nil {
		return NewBadParameterError("invalid topology_override", err)
	}

	snap := s.router.Reconfigure(router.OptionsPatch{Override: &override})

	s.logger.Info("Detection options rewritten through the admin API",
		slog.String("override", string(override)),
		slog.String("mode", string(snap.Mode)))

	return ectx.JSON(http.StatusOK, s.topologyResponse(snap))
}

// Resolve (GET /v1/resolve?service=primary&path=/x&node=2) maps a logical
// service and path onto a concrete URL, exactly as the gateway would.
func (s *Server) Resolve(ectx echo.Context) error {
	service, err := router.ParseService(ectx.QueryParam("service"))
	if err != nil {
		return NewBadParameterError("invalid service", err)
	}

	nodeID := 1
	if raw := ectx.QueryParam("node"); raw != "" {
		if nodeID, err = strconv.Atoi(raw); err != nil {
			return NewBadParameterError("node must be an integer", err)
		}
	}

	url := s.router.BuildURL(service, normalizePath(ectx.QueryParam("path")), nodeID)
	return ectx.JSON(http.StatusOK, ResolveResponse{URL: url})
}

// ResolveDynamic (GET /v1/resolve/dynamic?path=/x&strategy=round-robin)
// probes the cluster and picks a node with the named strategy. It always
// resolves to some URL, falling back to node 1 when nothing is selectable.
func (s *Server) ResolveDynamic(ectx echo.Context) error {
	path := normalizePath(ectx.QueryParam("path"))
	strategyName := ectx.QueryParam("strategy")

	node, ok := s.router.SelectNode(ectx.Request().Context(), strategyName)
	if !ok {
		return ectx.JSON(http.StatusOK, DynamicResolveResponse{
			URL:    s.router.BuildURL(router.ServicePrimary, path, 1),
			NodeID: 1,
		})
	}

	return ectx.JSON(http.StatusOK, DynamicResolveResponse{
		URL:    node.BaseURL.String() + path,
		NodeID: node.ID,
		Node:   node.Name,
	})
}

func (s *Server) topologyResponse(snap *topology.Snapshot) TopologyResponse {
	return TopologyResponse{
		Mode:            string(snap.Mode),
		Override:        string(s.router.Options().Override),
		FrontendBaseURL: snap.FrontendBaseURL,
		Nodes:           toNodeResponses(snap.Nodes),
	}
}

func toNodeResponses(nodes []cluster.Node) []NodeResponse {
	out := make([]NodeResponse, len(nodes))
	for i, n := range nodes {
		out[i] = NodeResponse{
			ID:             n.ID,
			Name:           n.Name,
			BaseURL:        n.BaseURL.String(),
			HealthCheckURL: n.HealthCheckURL.String(),
		}
	}
	return out
}

func normalizePath(path string) string {
	if path == "" || strings.HasPrefix(path, "/") {
		return path
	}
	return "/" + path
}
