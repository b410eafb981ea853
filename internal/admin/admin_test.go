package admin

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/environ"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/prober"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/router"
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/topology"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// newTestEcho wires the admin API over a router pinned to a non-loopback
// frontend, so detection lands in path-routed mode and no probe performs
// real I/O.
func newTestEcho(t *testing.T) *echo.Echo {
	t.Helper()

	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	loc := environ.Location{Scheme: "http", Hostname: "192.168.0.26"}
	resolver := topology.NewResolver(topology.DefaultParams(), environ.NewStatic(loc), log)
	p := prober.New(nil, 50*time.Millisecond, nil, nil, log)
	rt := router.New(resolver, p, router.DefaultAuxServices(), nil, log)

	return NewEcho(NewServer(rt, log), log)
}

func doJSON(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}

	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestServer_GetTopology(t *testing.T) {
	e := newTestEcho(t)

	rec := doJSON(e, http.MethodGet, "/v1/topology", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TopologyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Equal(t, "path_routed", resp.Mode)
	assert.Equal(t, "auto", resp.Override)
	assert.Equal(t, "http://192.168.0.26", resp.FrontendBaseURL)
	require.Len(t, resp.Nodes, 3)
	assert.Equal(t, "http://192.168.0.26", resp.Nodes[0].BaseURL)
	assert.Equal(t, "http://192.168.0.26/optimusdb2", resp.Nodes[1].BaseURL)
	assert.Equal(t, "http://192.168.0.26/optimusdb3", resp.Nodes[2].BaseURL)
}

func TestServer_GetNodes(t *testing.T) {
	e := newTestEcho(t)

	rec := doJSON(e, http.MethodGet, "/v1/nodes", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp NodesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	require.Len(t, resp.Nodes, 3)
	for i, node := range resp.Nodes {
		assert.Equal(t, i+1, node.ID)
		assert.Equal(t, node.BaseURL+"/health", node.HealthCheckURL)
	}
}

func TestServer_GetHealthyNodes(t *testing.T) {
	e := newTestEcho(t)

	// Path routing skips probing, so the full node list is authoritative.
	rec := doJSON(e, http.MethodGet, "/v1/nodes/healthy", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp NodesResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Len(t, resp.Nodes, 3)
}

func TestServer_UpdateConfig(t *testing.T) {
	tests := []struct {
		name           string
		body           string
		expectedStatus int
		expectedMode   string
		expectedCode   string
	}{
		{
			name:           "switch to port routing",
			body:           `{"topology_override":"port_routed"}`,
			expectedStatus: http.StatusOK,
			expectedMode:   "port_routed",
		},
		{
			name:           "explicit auto keeps path routing",
			body:           `{"topology_override":"auto"}`,
			expectedStatus: http.StatusOK,
			expectedMode:   "path_routed",
		},
		{
			name:           "unknown override",
			body:           `{"topology_override":"dns_routed"}`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrBadParameter,
		},
		{
			name:           "malformed body",
			body:           `{"topology_override":`,
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrBadParameter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho(t)

			rec := doJSON(e, http.MethodPost, "/v1/config", tt.body)
			require.Equal(t, tt.expectedStatus, rec.Code)

			if tt.expectedCode != "" {
				var apiErr APIError
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
				assert.Equal(t, tt.expectedCode, apiErr.Code)
				return
			}

			var resp TopologyResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.expectedMode, resp.Mode)
		})
	}
}

func TestServer_UpdateConfig_PortRoutedNodes(t *testing.T) {
	e := newTestEcho(t)

	rec := doJSON(e, http.MethodPost, "/v1/config", `{"topology_override":"port_routed"}`)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp TopologyResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Nodes, 3)
	assert.Equal(t, "http://192.168.0.26:30001", resp.Nodes[0].BaseURL)
	assert.Equal(t, "http://192.168.0.26:30003", resp.Nodes[2].BaseURL)
}

func TestServer_Resolve(t *testing.T) {
	tests := []struct {
		name           string
		target         string
		expectedStatus int
		expectedURL    string
		expectedCode   string
	}{
		{
			name:           "primary node by id",
			target:         "/v1/resolve?service=primary&path=/swarmkb/command&node=2",
			expectedStatus: http.StatusOK,
			expectedURL:    "http://192.168.0.26/optimusdb2/swarmkb/command",
		},
		{
			name:           "primary defaults to node 1",
			target:         "/v1/resolve?service=primary&path=/x",
			expectedStatus: http.StatusOK,
			expectedURL:    "http://192.168.0.26/x",
		},
		{
			name:           "metadata under path routing",
			target:         "/v1/resolve?service=metadata&path=/x",
			expectedStatus: http.StatusOK,
			expectedURL:    "http://192.168.0.26/api/v1/metadata/x",
		},
		{
			name:           "search under path routing",
			target:         "/v1/resolve?service=search&path=tables",
			expectedStatus: http.StatusOK,
			expectedURL:    "http://192.168.0.26/api/v1/search/tables",
		},
		{
			name:           "unknown service",
			target:         "/v1/resolve?service=billing&path=/x",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrBadParameter,
		},
		{
			name:           "non-integer node",
			target:         "/v1/resolve?service=primary&path=/x&node=two",
			expectedStatus: http.StatusBadRequest,
			expectedCode:   ErrBadParameter,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho(t)

			rec := doJSON(e, http.MethodGet, tt.target, "")
			require.Equal(t, tt.expectedStatus, rec.Code)

			if tt.expectedCode != "" {
				var apiErr APIError
				require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &apiErr))
				assert.Equal(t, tt.expectedCode, apiErr.Code)
				return
			}

			var resp ResolveResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.expectedURL, resp.URL)
		})
	}
}

func TestServer_ResolveDynamic(t *testing.T) {
	e := newTestEcho(t)

	rec := doJSON(e, http.MethodGet, "/v1/resolve/dynamic?path=/q&strategy=first", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var resp DynamicResolveResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 1, resp.NodeID)
	assert.Equal(t, "optimusdb1", resp.Node)
	assert.Equal(t, "http://192.168.0.26/q", resp.URL)
}

func TestServer_ResolveDynamic_RoundRobinCycles(t *testing.T) {
	e := newTestEcho(t)

	var seen []int
	for i := 0; i < 3; i++ {
		rec := doJSON(e, http.MethodGet, "/v1/resolve/dynamic?path=/q&strategy=round-robin", "")
		require.Equal(t, http.StatusOK, rec.Code)

		var resp DynamicResolveResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
		seen = append(seen, resp.NodeID)
	}

	assert.Equal(t, []int{1, 2, 3}, seen)
}
