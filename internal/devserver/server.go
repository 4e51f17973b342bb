package devserver

import (
	"encoding/json"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"xray-cbt/internal/item"
)

// Server serves a Catalog over the backend's HTTP API.
type Server struct {
	catalog *Catalog
	token   string

	mu      sync.Mutex
	rng     *rand.Rand
	results []json.RawMessage
}

// Option configures a Server.
type Option func(*Server)

// WithToken requires submissions to carry this bearer token.
func WithToken(token string) Option {
	return func(s *Server) { s.token = token }
}

// WithSeed makes batch selection deterministic.
func WithSeed(seed uint64) Option {
	return func(s *Server) { s.rng = rand.New(rand.NewPCG(seed, seed)) }
}

// New creates a server for cat.
func New(cat *Catalog, opts ...Option) *Server {
	now := uint64(time.Now().UnixNano())
	s := &Server{
		catalog: cat,
		rng:     rand.New(rand.NewPCG(now, now>>1)),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Router builds the HTTP handler.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/itemCategory", s.handleCategories)
	r.Get("/cbt/random/{area}/{category}", s.handleRandom)
	r.Post("/training/save", s.handleSave)
	r.Get("/training/results", s.handleResults)

	if s.catalog.ImagesDir != "" {
		fileServer := http.FileServer(http.Dir(s.catalog.ImagesDir))
		r.Handle("/images/*", http.StripPrefix("/images/", fileServer))
	}
	return r
}

// Results returns the sessions submitted so far.
func (s *Server) Results() []json.RawMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]json.RawMessage, len(s.results))
	copy(out, s.results)
	return out
}

type itemResponse struct {
	ID             int    `json:"id"`
	Code           string `json:"code"`
	Top            string `json:"top"`
	Side           string `json:"side"`
	ItemCategoryID int    `json:"itemCategoryID"`
	ItemPos        string `json:"itemPos,omitempty"`
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.catalog.Categories)
}

// handleRandom returns a shuffled batch for an area. A category filter keeps
// that category plus clean items, so a session still sees clear bags.
func (s *Server) handleRandom(w http.ResponseWriter, r *http.Request) {
	area, err := strconv.Atoi(chi.URLParam(r, "area"))
	if err != nil {
		http.Error(w, "area must be a number", http.StatusBadRequest)
		return
	}
	category := -1
	if c := chi.URLParam(r, "category"); c != "all" {
		if category, err = strconv.Atoi(c); err != nil {
			http.Error(w, "category must be a number or all", http.StatusBadRequest)
			return
		}
	}

	var pool []itemResponse
	for i := range s.catalog.Items {
		e := &s.catalog.Items[i]
		if !e.inArea(area) {
			continue
		}
		if category >= 0 && e.Category != category && e.Category != item.DefaultCleanCategory {
			continue
		}
		pos, _ := e.regionJSON()
		pool = append(pool, itemResponse{
			ID:             e.ID,
			Code:           e.Code,
			Top:            imageURL(e.Top),
			Side:           imageURL(e.Side),
			ItemCategoryID: e.Category,
			ItemPos:        pos,
		})
	}

	s.mu.Lock()
	s.rng.Shuffle(len(pool), func(i, j int) { pool[i], pool[j] = pool[j], pool[i] })
	s.mu.Unlock()
	if len(pool) > s.catalog.BatchSize {
		pool = pool[:s.catalog.BatchSize]
	}
	if pool == nil {
		pool = []itemResponse{}
	}
	writeJSON(w, http.StatusOK, pool)
}

func (s *Server) handleSave(w http.ResponseWriter, r *http.Request) {
	if s.token != "" && r.Header.Get("Authorization") != "Bearer "+s.token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)

	var body json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "invalid JSON body", http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	s.results = append(s.results, body)
	n := len(s.results)
	s.mu.Unlock()

	slog.Info("Stored training result", "count", n)
	writeJSON(w, http.StatusCreated, map[string]any{"status": "ok", "count": n})
}

func (s *Server) handleResults(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.Results())
}

// imageURL maps a catalog file to its /images/ path. Absolute URLs pass
// through untouched.
func imageURL(file string) string {
	if u, err := url.Parse(file); err == nil && u.Scheme != "" {
		return file
	}
	return path.Join("/images", (&url.URL{Path: file}).EscapedPath())
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Warn("Failed to write response", "err", err)
	}
}
