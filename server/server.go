package server

import (
	"context"
	_ "embed"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/ptarmiganlabs/ctrlq/errors"
	"github.com/ptarmiganlabs/ctrlq/taskgraph"
)

//go:embed index.html
var indexPage []byte

// refreshInterval is how often the graph is rebuilt from the Repository
// when no client asks for a refresh explicitly.
const refreshInterval = 5 * time.Minute

// Builder rebuilds the task graph from the Repository.
type Builder func(ctx context.Context) (*taskgraph.Model, error)

// Server pushes the task graph to browser clients over WebSocket.
type Server struct {
	addr    string
	builder Builder

	ctx        context.Context
	clients    map[*client]bool
	register   chan *client
	unregister chan *client
	refresh    chan struct{}
	mu         sync.RWMutex

	// last holds the most recent payload so new clients get a graph
	// immediately instead of waiting for the next rebuild
	last *Graph

	upgrader websocket.Upgrader
	log      *zap.SugaredLogger
}

// New creates a visualization server listening on addr.
func New(addr string, builder Builder, log *zap.SugaredLogger) *Server {
	return &Server{
		addr:       addr,
		builder:    builder,
		clients:    make(map[*client]bool),
		register:   make(chan *client),
		unregister: make(chan *client),
		refresh:    make(chan struct{}, 1),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		log: log.Named("server"),
	}
}

// Run serves until the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	s.ctx = ctx

	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/ws", s.handleWS)
	mux.HandleFunc("/healthz", s.handleHealth)

	srv := &http.Server{Addr: s.addr, Handler: mux}

	go s.hub(ctx)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.Infow("Task graph server listening", "addr", s.addr)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "task graph server failed")
	}
	return nil
}

// hub owns the client set and the rebuild loop.
func (s *Server) hub(ctx context.Context) {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()

	s.rebuild(ctx)

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			for c := range s.clients {
				c.close()
			}
			s.clients = make(map[*client]bool)
			s.mu.Unlock()
			return

		case c := <-s.register:
			s.mu.Lock()
			s.clients[c] = true
			last := s.last
			s.mu.Unlock()
			s.log.Infow("Client connected", "clientId", c.id, "clients", s.clientCount())
			if last != nil {
				select {
				case c.send <- last:
				default:
				}
			}

		case c := <-s.unregister:
			s.mu.Lock()
			if _, ok := s.clients[c]; ok {
				delete(s.clients, c)
				c.close()
			}
			s.mu.Unlock()
			s.log.Infow("Client disconnected", "clientId", c.id, "clients", s.clientCount())

		case <-s.refresh:
			s.rebuild(ctx)

		case <-ticker.C:
			if s.clientCount() > 0 {
				s.rebuild(ctx)
			}
		}
	}
}

// rebuild fetches a fresh model and broadcasts it.
func (s *Server) rebuild(ctx context.Context) {
	start := time.Now()
	model, err := s.builder(ctx)

	var g *Graph
	if err != nil {
		s.log.Errorw("Graph rebuild failed", "error", err)
		g = errorGraph(err)
	} else {
		g = buildGraph(model)
		s.log.Infow("Graph rebuilt",
			"tasks", g.Stats.TotalNodes,
			"edges", g.Stats.TotalEdges,
			"duration", time.Since(start))
	}

	s.mu.Lock()
	s.last = g
	clients := make([]*client, 0, len(s.clients))
	for c := range s.clients {
		clients = append(clients, c)
	}
	s.mu.Unlock()

	for _, c := range clients {
		select {
		case c.send <- g:
		default:
			s.log.Warnw("Client send channel full, dropping update", "clientId", c.id)
		}
	}
}

// requestRefresh schedules a rebuild; coalesces bursts into one.
func (s *Server) requestRefresh() {
	select {
	case s.refresh <- struct{}{}:
	default:
	}
}

func (s *Server) clientCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.clients)
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(indexPage)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status":"ok","clients":%d}`, s.clientCount())
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.log.Warnw("WebSocket upgrade failed", "error", err, "remote", r.RemoteAddr)
		return
	}

	c := &client{
		server: s,
		conn:   conn,
		send:   make(chan *Graph, 4),
		id:     uuid.NewString()[:8],
	}
	s.register <- c

	go c.writePump()
	go c.readPump()
}
