package web

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/atlas-tuning/arduino/pkg/compare"
	"github.com/atlas-tuning/arduino/pkg/models"
	"github.com/atlas-tuning/arduino/pkg/program"
	"github.com/google/uuid"
	"github.com/pterm/pterm"
	"go.uber.org/zap"
)

// TableSummary describes one table in the table list.
type TableSummary struct {
	Name    string   `json:"name"`
	Type    string   `json:"type"`
	Shape   []int    `json:"shape"`
	Sources []string `json:"sources"`
	Search  string   `json:"search"`
	Unit    string   `json:"unit,omitempty"`
	Output  Float    `json:"output"`
}

// TableResponse is the full data of one table, with the learned correction
// of a feedback table and the scalar of a state table.
type TableResponse struct {
	TableSummary
	Anchors     [][]Float `json:"anchors"`
	Data        []Float   `json:"data"`
	Correction  []Float   `json:"correction,omitempty"`
	State       *Float    `json:"state,omitempty"`
	Description string    `json:"description,omitempty"`
}

// PreviewResponse is a stateless evaluation of one table.
type PreviewResponse struct {
	Table string `json:"table"`
	Value Float  `json:"value"`
}

// CompareResponse diffs a feedback table's correction against its seed.
type CompareResponse struct {
	Name        string  `json:"name"`
	Seed        []Float `json:"seed"`
	Correction  []Float `json:"correction"`
	Diff        []Float `json:"diff"`
	Changed     int     `json:"changed"`
	Mean        Float   `json:"mean"`
	MaxIncrease Float   `json:"max_increase"`
	MaxDecrease Float   `json:"max_decrease"`
}

// Server exposes read-only diagnostics of a running program. Every handler
// holds mu, and the control loop must hold the same lock (see Lock) while it
// runs a cycle.
type Server struct {
	mu      sync.Mutex
	program *program.Program
	port    int
	logger  *zap.Logger
}

// NewServer creates a diagnostics server for p. A nil logger is replaced
// by zap.NewNop.
func NewServer(p *program.Program, port int, logger *zap.Logger) *Server {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Server{
		program: p,
		port:    port,
		logger:  logger,
	}
}

// Lock serializes external access to the program with the handlers.
func (s *Server) Lock() {
	s.mu.Lock()
}

// Unlock releases Lock.
func (s *Server) Unlock() {
	s.mu.Unlock()
}

// Handler returns the API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/tables", s.handleTableList)
	mux.HandleFunc("/api/table/", s.handleTableData)
	mux.HandleFunc("/api/preview/", s.handlePreview)
	mux.HandleFunc("/api/compare/", s.handleCompareData)
	mux.HandleFunc("/api/values", s.handleValues)
	mux.HandleFunc("/api/profile", s.handleProfile)

	return s.withRequestID(mux)
}

// RequestIDHeader carries the id assigned to every request.
const RequestIDHeader = "X-Request-ID"

func (s *Server) withRequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(RequestIDHeader)
		if id == "" {
			id = uuid.New().String()
		}

		w.Header().Set(RequestIDHeader, id)
		s.logger.Debug("request", zap.String("id", id), zap.String("method", r.Method), zap.String("path", r.URL.Path))

		next.ServeHTTP(w, r)
	})
}

// Start serves on the configured port until the listener fails. With open
// set the table list is opened in a browser first.
func (s *Server) Start(open bool) error {
	addr := fmt.Sprintf(":%d", s.port)
	url := fmt.Sprintf("http://localhost%s/api/tables", addr)

	pterm.DefaultHeader.WithFullWidth().
		WithBackgroundStyle(pterm.NewStyle(pterm.BgCyan)).
		WithTextStyle(pterm.NewStyle(pterm.FgBlack)).
		Println("🌐 Atlas Diagnostics Started")

	pterm.Info.Printf("Serving %s at %s\n", s.program.Name(), url)
	pterm.Info.Println("Press Ctrl+C to stop the server")
	pterm.Println()

	if open {
		if err := openBrowser(url); err != nil {
			s.logger.Debug("could not open browser", zap.Error(err))
		}
	}

	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	return server.ListenAndServe()
}

func (s *Server) writeJSON(w http.ResponseWriter, r *http.Request, v interface{}) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", zap.String("path", r.URL.Path), zap.Error(err))
		http.Error(w, err.Error(), http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.Write(buf.Bytes())
}

func (s *Server) node(w http.ResponseWriter, r *http.Request, prefix string) (*program.Node, bool) {
	name := strings.TrimPrefix(r.URL.Path, prefix)

	n, err := s.program.Node(name)
	if err != nil {
		http.Error(w, err.Error(), http.StatusNotFound)
		return nil, false
	}

	return n, true
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}

	s.writeJSON(w, r, map[string]interface{}{
		"program": s.program.Name(),
		"endpoints": []string{
			"/api/tables", "/api/table/{name}", "/api/preview/{name}",
			"/api/compare/{name}", "/api/values", "/api/profile",
		},
	})
}

func summarize(n *program.Node) TableSummary {
	cfg := n.Config()
	sources := make([]string, len(cfg.Dimensions))
	for i, d := range cfg.Dimensions {
		sources[i] = d.Source
	}

	return TableSummary{
		Name:    n.Name(),
		Type:    n.Kind(),
		Shape:   n.Table().Shape(),
		Sources: sources,
		Search:  n.Table().Search().String(),
		Unit:    cfg.Unit,
		Output:  Float(n.Output()),
	}
}

func (s *Server) handleTableList(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	nodes := s.program.Nodes()
	list := make([]TableSummary, len(nodes))
	for i, n := range nodes {
		list[i] = summarize(n)
	}

	s.writeJSON(w, r, list)
}

func (s *Server) handleTableData(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.node(w, r, "/api/table/")
	if !ok {
		return
	}

	t := n.Table()
	anchors := make([][]Float, t.NumDimensions())
	for i, d := range t.Dimensions() {
		anchors[i] = Floats(d.Anchors())
	}

	response := TableResponse{
		TableSummary: summarize(n),
		Anchors:      anchors,
		Data:         Floats(t.Cells()),
		Description:  n.Config().Description,
	}

	if fb := n.Feedback(); fb != nil {
		response.Correction = Floats(fb.Correction().Cells())
	}

	if st := n.State(); st != nil {
		v := Float(st.Value())
		response.State = &v
	}

	s.writeJSON(w, r, response)
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.node(w, r, "/api/preview/")
	if !ok {
		return
	}

	v, err := s.program.Preview(n.Name())
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	s.writeJSON(w, r, PreviewResponse{Table: n.Name(), Value: Float(v)})
}

func (s *Server) handleCompareData(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n, ok := s.node(w, r, "/api/compare/")
	if !ok {
		return
	}

	fb := n.Feedback()
	if fb == nil {
		http.Error(w, fmt.Sprintf("%s is not a feedback table", n.Name()), http.StatusBadRequest)
		return
	}

	seed := Seed(n)
	correction := fb.Correction().Cells()

	diff, err := compare.Diff(seed, correction)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	stats := compare.Summarize(diff)

	s.writeJSON(w, r, CompareResponse{
		Name:        n.Name(),
		Seed:        Floats(seed),
		Correction:  Floats(correction),
		Diff:        Floats(diff),
		Changed:     stats.Changed,
		Mean:        Float(stats.Mean),
		MaxIncrease: Float(stats.MaxIncrease),
		MaxDecrease: Float(stats.MaxDecrease),
	})
}

// Seed returns the configured initial correction of a feedback table.
func Seed(n *program.Node) []float64 {
	cfg := n.Config()
	if cfg.Feedback != nil && len(cfg.Feedback.Seed) > 0 {
		return models.Floats(cfg.Feedback.Seed)
	}

	seed := make([]float64, n.Table().Len())
	for i := range seed {
		seed[i] = 1
	}

	return seed
}

func (s *Server) handleValues(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	values := make(map[string]Float)

	for _, name := range s.program.Variables() {
		v, _ := s.program.Value(name)
		values[name] = Float(v)
	}

	for _, name := range s.program.Inputs() {
		v, _ := s.program.Value(name + "_freq")
		values[name+"_freq"] = Float(v)
	}

	s.writeJSON(w, r, map[string]interface{}{
		"cycles": s.program.Cycles(),
		"values": values,
	})
}

func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.writeJSON(w, r, s.program.Profiler().Snapshot())
}
