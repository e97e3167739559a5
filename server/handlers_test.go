package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/gofiber/fiber/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meikuraledutech/dagedit"
)

type testServer struct {
	app     *fiber.App
	api     *api
	metrics *metrics
}

func newTestServer(t *testing.T, cfg Config) *testServer {
	t.Helper()
	return newTestServerWithStore(t, cfg, nil)
}

func newTestServerWithStore(t *testing.T, cfg Config, store dagedit.Store) *testServer {
	t.Helper()
	reg := prometheus.NewRegistry()
	a := &api{
		cfg:      cfg,
		store:    store,
		sessions: newSessions(store, dagedit.WithHistoryLimit(cfg.HistoryLimit)),
		logger:   newLogger(io.Discard, log.DebugLevel),
		metrics:  newMetrics(reg),
	}
	return &testServer{
		app:     newApp(a, promhttp.HandlerFor(reg, promhttp.HandlerOpts{})),
		api:     a,
		metrics: a.metrics,
	}
}

// do sends a request and decodes a JSON response into out when out is non-nil.
func (s *testServer) do(t *testing.T, method, path, body string, out any) int {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" && strings.HasPrefix(strings.TrimSpace(body), "{") {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	if out != nil {
		require.NoError(t, json.Unmarshal(raw, out), "body: %s", raw)
	}
	return resp.StatusCode
}

type errorBody struct {
	Error  string                    `json:"error"`
	Errors []dagedit.ValidationError `json:"errors"`
}

func (s *testServer) seed(t *testing.T) dagedit.Graph {
	t.Helper()
	var g dagedit.Graph
	status := s.do(t, http.MethodPost, "/graphs", `{
		"id": "form",
		"nodes": [
			{"ref": "a", "label": "A"},
			{"ref": "b", "label": "B"},
			{"ref": "c", "label": "C"}
		],
		"edges": [
			{"source_ref": "a", "target_ref": "b"},
			{"source_ref": "b", "target_ref": "c"}
		]
	}`, &g)
	require.Equal(t, http.StatusCreated, status)
	return g
}

func TestAPI_CreateAndGet(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	created := s.seed(t)

	assert.Equal(t, "form", created.ID)
	require.Len(t, created.Nodes, 3)
	require.Len(t, created.Edges, 2)
	assert.Equal(t, created.Nodes[0].ID, created.Edges[0].SourceID)

	var got dagedit.Graph
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/graphs/form", "", &got))
	assert.Equal(t, created, got)

	var eb errorBody
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/graphs", `{"id":"form"}`, &eb))
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/graphs/nope", "", &eb))
}

func TestAPI_CreateRejectsInvalidSeed(t *testing.T) {
	s := newTestServer(t, DefaultConfig())

	var eb errorBody
	status := s.do(t, http.MethodPost, "/graphs", `{
		"nodes": [{"id": "x"}],
		"edges": [{"id": "e", "source_id": "x", "target_id": "x"}]
	}`, &eb)

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	require.Len(t, eb.Errors, 1)
	assert.Equal(t, dagedit.KindSelfLoop, eb.Errors[0].Kind)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.mutations.WithLabelValues("create", "rejected")))
}

func TestAPI_AddEdgeClosingCycle(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	g := s.seed(t)
	a, c := g.Nodes[0].ID, g.Nodes[2].ID

	var eb errorBody
	status := s.do(t, http.MethodPost, "/graphs/form/edges",
		`{"source_id":"`+c+`","target_id":"`+a+`"}`, &eb)

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	require.Len(t, eb.Errors, 1)
	assert.Equal(t, dagedit.KindCycleDetected, eb.Errors[0].Kind)
	assert.Equal(t, []string{a, g.Nodes[1].ID, c, a}, eb.Errors[0].Path)

	var got dagedit.Graph
	s.do(t, http.MethodGet, "/graphs/form", "", &got)
	assert.Len(t, got.Edges, 2)

	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.mutations.WithLabelValues("add_edge", "rejected")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.validationErrors.WithLabelValues("cycle_detected")))
}

func TestAPI_NodeLifecycle(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	g := s.seed(t)

	var n dagedit.Node
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/graphs/form/nodes", `{"label":"D","x":1,"y":2}`, &n))
	assert.Equal(t, "D", n.Label)

	var e dagedit.Edge
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/graphs/form/edges",
		`{"source_id":"`+g.Nodes[2].ID+`","target_id":"`+n.ID+`"}`, &e))

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodPatch, "/graphs/form/nodes/"+n.ID, `{"label":"D2","x":0,"y":0}`, nil))

	// removing B cascades to both of its edges
	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/graphs/form/nodes/"+g.Nodes[1].ID, "", nil))

	var got dagedit.Graph
	s.do(t, http.MethodGet, "/graphs/form", "", &got)
	assert.Len(t, got.Nodes, 3)
	assert.Equal(t, []dagedit.Edge{e}, got.Edges)
	d, ok := got.Node(n.ID)
	require.True(t, ok)
	assert.Equal(t, "D2", d.Label)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/graphs/form/edges/"+e.ID, "", nil))

	var eb errorBody
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodDelete, "/graphs/form/edges/"+e.ID, "", &eb))
	require.Len(t, eb.Errors, 1)
	assert.Equal(t, dagedit.KindNotFound, eb.Errors[0].Kind)
}

func TestAPI_ReplaceAllReportsEveryError(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	s.seed(t)

	var eb errorBody
	status := s.do(t, http.MethodPut, "/graphs/form", `{
		"nodes": [{"id": "a"}, {"id": "b"}],
		"edges": [
			{"id": "e1", "source_id": "a", "target_id": "a"},
			{"id": "e2", "source_id": "a", "target_id": "ghost"},
			{"id": "e3", "source_id": "a", "target_id": "b"},
			{"id": "e4", "source_id": "b", "target_id": "a"}
		]
	}`, &eb)

	assert.Equal(t, http.StatusUnprocessableEntity, status)
	var kinds []dagedit.Kind
	for _, ve := range eb.Errors {
		kinds = append(kinds, ve.Kind)
	}
	assert.Equal(t, []dagedit.Kind{
		dagedit.KindInvalidNodeReference,
		dagedit.KindSelfLoop,
		dagedit.KindCycleDetected,
	}, kinds)
}

func TestAPI_UndoRedo(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	s.seed(t)

	for _, label := range []string{"X", "Y"} {
		require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/graphs/form/nodes", `{"label":"`+label+`"}`, nil))
	}

	var g dagedit.Graph
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/graphs/form/undo", "", &g))
	assert.Len(t, g.Nodes, 4)

	var h historyResponse
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/graphs/form/history", "", &h))
	assert.Equal(t, historyResponse{CanUndo: true, CanRedo: true, UndoDepth: 1, RedoDepth: 1}, h)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/graphs/form/redo", "", &g))
	assert.Len(t, g.Nodes, 5)

	var eb errorBody
	assert.Equal(t, http.StatusConflict, s.do(t, http.MethodPost, "/graphs/form/redo", "", &eb))
	assert.Contains(t, eb.Error, "nothing to redo")
}

func TestAPI_Adjacency(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	s.seed(t)

	req := httptest.NewRequest(http.MethodGet, "/graphs/form/adjacency", nil)
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "A: B\nB: C\nC: \n", string(body))

	var g dagedit.Graph
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPut, "/graphs/form/adjacency", "P: Q, R\nQ: R\n", &g))
	assert.Equal(t, "form", g.ID)
	assert.Len(t, g.Nodes, 3)
	assert.Len(t, g.Edges, 3)

	var eb errorBody
	assert.Equal(t, http.StatusUnprocessableEntity, s.do(t, http.MethodPut, "/graphs/form/adjacency", "P: Q\nQ: P\n", &eb))
	require.Len(t, eb.Errors, 1)
	assert.Equal(t, []string{"P", "Q", "P"}, eb.Errors[0].Path)
}

func TestAPI_Check(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	s.seed(t)

	var res dagedit.ValidationResult
	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/graphs/form/check", `{
		"nodes": [{"ref": "a"}, {"ref": "b"}],
		"edges": [{"source_ref": "a", "target_ref": "b"}, {"source_ref": "a", "target_ref": "b"}]
	}`, &res))
	assert.False(t, res.IsValid)
	assert.True(t, res.Has(dagedit.KindDuplicateEdge))

	var h historyResponse
	s.do(t, http.MethodGet, "/graphs/form/history", "", &h)
	assert.False(t, h.CanUndo)

	require.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/check/adjacency", "A: B\nnope\n", &res))
	require.Len(t, res.Errors, 1)
	assert.Equal(t, dagedit.KindMalformedLine, res.Errors[0].Kind)
	assert.Equal(t, 2, res.Errors[0].Line)
}

func TestAPI_SizeLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxNodes = 3
	cfg.MaxEdges = 2
	s := newTestServer(t, cfg)
	s.seed(t)

	var eb errorBody
	assert.Equal(t, http.StatusRequestEntityTooLarge, s.do(t, http.MethodPost, "/graphs/form/nodes", `{"label":"D"}`, &eb))
	assert.Equal(t, http.StatusRequestEntityTooLarge,
		s.do(t, http.MethodPut, "/graphs/form/adjacency", "A: B, C, D\n", &eb))

	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.mutations.WithLabelValues("add_node", "over_limit")))
	assert.Equal(t, 0.0, testutil.ToFloat64(s.metrics.mutations.WithLabelValues("add_node", "error")))
}

func TestAPI_CheckRoutesRespectSizeLimits(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxNodes = 2
	cfg.MaxEdges = 2
	s := newTestServer(t, cfg)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/graphs", `{"id":"small"}`, nil))

	var big strings.Builder
	for i := 0; i < 50; i++ {
		fmt.Fprintf(&big, "n%d: n%d\n", i, i+1)
	}

	var eb errorBody
	assert.Equal(t, http.StatusRequestEntityTooLarge, s.do(t, http.MethodPost, "/check/adjacency", big.String(), &eb))
	assert.Equal(t, http.StatusRequestEntityTooLarge, s.do(t, http.MethodPost, "/graphs/small/check", `{
		"nodes": [{"ref": "a"}, {"ref": "b"}, {"ref": "c"}],
		"edges": []
	}`, &eb))

	var res dagedit.ValidationResult
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/check/adjacency", "A: B\n", &res))
	assert.True(t, res.IsValid)
	assert.Equal(t, http.StatusOK, s.do(t, http.MethodPost, "/graphs/small/check", `{
		"nodes": [{"ref": "a"}, {"ref": "b"}],
		"edges": [{"source_ref": "a", "target_ref": "b"}]
	}`, &res))
	assert.True(t, res.IsValid)
}

// memStore is an in-memory dagedit.Store whose saves can be made to fail.
type memStore struct {
	mu       sync.Mutex
	graphs   map[string]dagedit.Graph
	failSave bool
}

var errSaveFailed = errors.New("save failed")

func newMemStore() *memStore {
	return &memStore{graphs: make(map[string]dagedit.Graph)}
}

func (m *memStore) CreateSchema(ctx context.Context) error { return nil }
func (m *memStore) DropSchema(ctx context.Context) error   { return nil }

func (m *memStore) SaveGraph(ctx context.Context, g *dagedit.Graph) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failSave {
		return errSaveFailed
	}
	m.graphs[g.ID] = g.Clone()
	return nil
}

func (m *memStore) GetGraph(ctx context.Context, id string) (*dagedit.Graph, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	g, ok := m.graphs[id]
	if !ok {
		return nil, nil
	}
	c := g.Clone()
	return &c, nil
}

func (m *memStore) DeleteGraph(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.graphs, id)
	return nil
}

func (m *memStore) setFailSave(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failSave = fail
}

func TestAPI_FailedSaveRollsBack(t *testing.T) {
	store := newMemStore()
	s := newTestServerWithStore(t, DefaultConfig(), store)
	s.seed(t)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/graphs/form/nodes", `{"label":"D"}`, nil))
	persisted, err := store.GetGraph(context.Background(), "form")
	require.NoError(t, err)

	store.setFailSave(true)
	var eb errorBody
	assert.Equal(t, http.StatusInternalServerError, s.do(t, http.MethodPost, "/graphs/form/nodes", `{"label":"E"}`, &eb))
	assert.Equal(t, http.StatusInternalServerError, s.do(t, http.MethodPost, "/graphs/form/undo", "", &eb))

	var got dagedit.Graph
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/graphs/form", "", &got))
	assert.Equal(t, *persisted, got)

	var h historyResponse
	s.do(t, http.MethodGet, "/graphs/form/history", "", &h)
	assert.Equal(t, historyResponse{CanUndo: true, UndoDepth: 1}, h)
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.mutations.WithLabelValues("add_node", "error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(s.metrics.mutations.WithLabelValues("add_node", "committed")))

	// a retry after the store recovers adds exactly one node
	store.setFailSave(false)
	require.Equal(t, http.StatusCreated, s.do(t, http.MethodPost, "/graphs/form/nodes", `{"label":"E"}`, nil))
	persisted, err = store.GetGraph(context.Background(), "form")
	require.NoError(t, err)
	assert.Len(t, persisted.Nodes, 5)
	s.do(t, http.MethodGet, "/graphs/form", "", &got)
	assert.Equal(t, *persisted, got)
}

func TestAPI_DeleteGraph(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	s.seed(t)

	assert.Equal(t, http.StatusNoContent, s.do(t, http.MethodDelete, "/graphs/form", "", nil))
	var eb errorBody
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/graphs/form", "", &eb))
}

func TestAPI_SchemaWithoutStore(t *testing.T) {
	s := newTestServer(t, DefaultConfig())

	var eb errorBody
	assert.Equal(t, http.StatusServiceUnavailable, s.do(t, http.MethodPost, "/schema", "", &eb))
	assert.Equal(t, errNoStore.Error(), eb.Error)
}

func TestAPI_Metrics(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	s.seed(t)

	resp, err := s.app.Test(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(body), `dagedit_mutations_total{op="create",outcome="committed"} 1`)
}

func TestAPI_ListAndGet(t *testing.T) {
	s := newTestServer(t, DefaultConfig())
	g := s.seed(t)

	var ns []dagedit.Node
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/graphs/form/nodes", "", &ns))
	assert.Equal(t, g.Nodes, ns)

	var es []dagedit.Edge
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/graphs/form/edges", "", &es))
	assert.Equal(t, g.Edges, es)

	var n dagedit.Node
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/graphs/form/nodes/"+g.Nodes[1].ID, "", &n))
	assert.Equal(t, "B", n.Label)

	var e dagedit.Edge
	require.Equal(t, http.StatusOK, s.do(t, http.MethodGet, "/graphs/form/edges/"+g.Edges[0].ID, "", &e))
	assert.Equal(t, g.Edges[0], e)

	var eb errorBody
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/graphs/form/nodes/missing", "", &eb))
	assert.Equal(t, http.StatusNotFound, s.do(t, http.MethodGet, "/graphs/form/edges/missing", "", &eb))
}
