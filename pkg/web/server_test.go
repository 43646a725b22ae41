package web

import (
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/atlas-tuning/arduino/pkg/profiler"
	"github.com/atlas-tuning/arduino/pkg/program"
	"github.com/atlas-tuning/arduino/pkg/reader"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const diagnostics = `
name: bench
values:
  - {name: measured, kind: variable, value: 1}
  - {name: target, value: 2}
inputs: [{name: crank, window: 4}]
tables:
  - name: trim
    type: feedback
    unit: ms
    dimensions: [{source: target, anchors: [2]}]
    data: [10]
    feedback: {real: measured, target: target, window: 1, seed: [1]}
  - name: counter
    type: state
    dimensions: [{source: trim, anchors: [0]}]
    data: [-2]
`

func newTestServer(t *testing.T) (*Server, *program.Program) {
	t.Helper()

	cfg, err := reader.ParseProgramConfig([]byte(diagnostics))
	require.NoError(t, err)

	p, err := program.Build(cfg)
	require.NoError(t, err)

	return NewServer(p, 0, nil), p
}

func get(t *testing.T, s *Server, path string, out interface{}) *httptest.ResponseRecorder {
	t.Helper()

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))

	if out != nil && rec.Code == http.StatusOK {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), out))
	}

	return rec
}

func TestServer_TableList(t *testing.T) {
	s, p := newTestServer(t)
	p.Cycle()

	var list []TableSummary
	rec := get(t, s, "/api/tables", &list)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	require.Len(t, list, 2)
	assert.Equal(t, "trim", list[0].Name)
	assert.Equal(t, "feedback", list[0].Type)
	assert.Equal(t, []int{1}, list[0].Shape)
	assert.Equal(t, []string{"target"}, list[0].Sources)
	assert.Equal(t, "reestimate", list[0].Search)
	assert.Equal(t, "ms", list[0].Unit)
	assert.Equal(t, Float(1), list[1].Output)
}

func TestServer_TableData(t *testing.T) {
	s, p := newTestServer(t)
	p.Cycle()

	var trim TableResponse
	require.Equal(t, http.StatusOK, get(t, s, "/api/table/trim", &trim).Code)
	assert.Equal(t, [][]Float{{2}}, trim.Anchors)
	assert.Equal(t, []Float{10}, trim.Data)
	// Window 1 folds on the first cycle: (1 + 0.5) / 1.
	assert.Equal(t, []Float{1.5}, trim.Correction)
	assert.Nil(t, trim.State)

	var counter TableResponse
	require.Equal(t, http.StatusOK, get(t, s, "/api/table/counter", &counter).Code)
	require.NotNil(t, counter.State)
	assert.Equal(t, Float(1), *counter.State)
	assert.Nil(t, counter.Correction)

	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/table/boost", nil).Code)
}

func TestServer_PreviewDoesNotCommit(t *testing.T) {
	s, p := newTestServer(t)
	p.Cycle()

	var preview PreviewResponse
	require.Equal(t, http.StatusOK, get(t, s, "/api/preview/counter", &preview).Code)
	assert.Equal(t, PreviewResponse{Table: "counter", Value: 2}, preview)

	n, err := p.Node("counter")
	require.NoError(t, err)
	assert.Equal(t, 1.0, n.State().Value())

	assert.Equal(t, http.StatusNotFound, get(t, s, "/api/preview/boost", nil).Code)
}

func TestServer_Compare(t *testing.T) {
	s, p := newTestServer(t)
	p.Cycle()

	var cmp CompareResponse
	require.Equal(t, http.StatusOK, get(t, s, "/api/compare/trim", &cmp).Code)
	assert.Equal(t, []Float{1}, cmp.Seed)
	assert.Equal(t, []Float{0.5}, cmp.Diff)
	assert.Equal(t, 1, cmp.Changed)
	assert.Equal(t, Float(0.5), cmp.MaxIncrease)

	assert.Equal(t, http.StatusBadRequest, get(t, s, "/api/compare/counter", nil).Code)
}

func TestServer_ValuesAndProfile(t *testing.T) {
	s, p := newTestServer(t)
	p.Cycle()

	_, err := p.Set("measured", 1.5)
	require.NoError(t, err)

	var values struct {
		Cycles int64              `json:"cycles"`
		Values map[string]float64 `json:"values"`
	}
	require.Equal(t, http.StatusOK, get(t, s, "/api/values", &values).Code)
	assert.Equal(t, int64(1), values.Cycles)
	assert.Equal(t, map[string]float64{"measured": 1.5, "crank_freq": 0}, values.Values)

	var snap profiler.Snapshot
	require.Equal(t, http.StatusOK, get(t, s, "/api/profile", &snap).Code)
	assert.Equal(t, "main", snap.Name)
	require.Len(t, snap.Children, 1)
	assert.Equal(t, "cycle", snap.Children[0].Name)
	assert.Equal(t, int64(1), snap.Children[0].Executions)
	assert.Len(t, snap.Children[0].Children, 2)
}

func TestServer_Index(t *testing.T) {
	s, _ := newTestServer(t)

	var index map[string]interface{}
	require.Equal(t, http.StatusOK, get(t, s, "/", &index).Code)
	assert.Equal(t, "bench", index["program"])

	assert.Equal(t, http.StatusNotFound, get(t, s, "/missing", nil).Code)
}

func TestServer_Lock(t *testing.T) {
	s, p := newTestServer(t)

	s.Lock()
	p.Cycle()
	s.Unlock()

	assert.Equal(t, int64(1), p.Cycles())
}

func TestServer_RequestID(t *testing.T) {
	s, _ := newTestServer(t)

	rec := get(t, s, "/api/tables", nil)
	_, err := uuid.Parse(rec.Header().Get(RequestIDHeader))
	assert.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/api/tables", nil)
	req.Header.Set(RequestIDHeader, "bench-1")

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)
	assert.Equal(t, "bench-1", rec.Header().Get(RequestIDHeader))
}

const degenerate = `
name: stalled
values:
  - {name: measured, kind: variable, value: 1}
  - {name: target, kind: variable, value: 0}
tables:
  - name: trim
    type: feedback
    dimensions: [{source: target, anchors: [0]}]
    data: [10]
    feedback: {real: measured, target: target, window: 1, seed: [1]}
`

func TestServer_NonFiniteValues(t *testing.T) {
	cfg, err := reader.ParseProgramConfig([]byte(degenerate))
	require.NoError(t, err)

	p, err := program.Build(cfg)
	require.NoError(t, err)

	s := NewServer(p, 0, nil)

	// (0 - 1) / 0 folds -Inf into the correction on the first cycle.
	p.Cycle()

	var list []TableSummary
	rec := get(t, s, "/api/tables", &list)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, list, 1)
	assert.True(t, math.IsInf(float64(list[0].Output), -1))
	assert.Contains(t, rec.Body.String(), `"output":"-Inf"`)

	var trim TableResponse
	require.Equal(t, http.StatusOK, get(t, s, "/api/table/trim", &trim).Code)
	require.Len(t, trim.Correction, 1)
	assert.True(t, math.IsInf(float64(trim.Correction[0]), -1))
	assert.Equal(t, []Float{10}, trim.Data)

	var preview PreviewResponse
	rec = get(t, s, "/api/preview/trim", &preview)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, rec.Body.String())

	var cmp CompareResponse
	rec = get(t, s, "/api/compare/trim", &cmp)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, cmp.Diff, 1)
	assert.True(t, math.IsInf(float64(cmp.Diff[0]), -1))
}

func TestFloat_JSON(t *testing.T) {
	data, err := json.Marshal([]Float{1.5, Float(math.NaN()), Float(math.Inf(1)), Float(math.Inf(-1))})
	require.NoError(t, err)
	assert.Equal(t, `[1.5,"NaN","+Inf","-Inf"]`, string(data))

	var back []Float
	require.NoError(t, json.Unmarshal(data, &back))
	require.Len(t, back, 4)
	assert.Equal(t, Float(1.5), back[0])
	assert.True(t, math.IsNaN(float64(back[1])))
	assert.True(t, math.IsInf(float64(back[2]), 1))
	assert.True(t, math.IsInf(float64(back[3]), -1))

	var bad Float
	assert.Error(t, json.Unmarshal([]byte(`"many"`), &bad))
}
