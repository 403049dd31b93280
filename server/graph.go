// Package server hosts the task-graph visualization: a small HTTP server
// that pushes the current task network to browser clients over WebSocket
// and rebuilds it from the Repository on demand.
package server

import (
	"time"

	"github.com/ptarmiganlabs/ctrlq/taskgraph"
)

// Node is one task in the wire representation of the graph.
type Node struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Kind      string `json:"kind"`
	Enabled   bool   `json:"enabled"`
	AppName   string `json:"appName,omitempty"`
	Scheduled bool   `json:"scheduled"`
	Tombstone bool   `json:"tombstone,omitempty"`
}

// Link is one composite dependency edge.
type Link struct {
	Source    string `json:"source"`
	Target    string `json:"target"`
	EventName string `json:"eventName,omitempty"`
	State     string `json:"state"`
}

// Stats summarizes a graph payload.
type Stats struct {
	TotalNodes int `json:"totalNodes"`
	TotalEdges int `json:"totalEdges"`
	Tombstones int `json:"tombstones"`
	Circular   int `json:"circularChains"`
}

// Graph is the JSON payload pushed to clients.
type Graph struct {
	Type        string    `json:"type"`
	Nodes       []Node    `json:"nodes"`
	Links       []Link    `json:"links"`
	Stats       Stats     `json:"stats"`
	GeneratedAt time.Time `json:"generatedAt"`
	Error       string    `json:"error,omitempty"`
}

// buildGraph flattens the model into the wire shape.
func buildGraph(m *taskgraph.Model) *Graph {
	g := &Graph{Type: "graph", GeneratedAt: time.Now()}

	for _, t := range m.Tasks() {
		g.Nodes = append(g.Nodes, Node{
			ID:        t.ID,
			Name:      t.Name,
			Kind:      t.Kind.String(),
			Enabled:   t.Enabled,
			AppName:   t.AppName,
			Scheduled: len(t.ScheduleTriggers) > 0,
			Tombstone: t.Tombstone,
		})
		if t.Tombstone {
			g.Stats.Tombstones++
		}
	}
	for _, e := range m.Edges() {
		g.Links = append(g.Links, Link{
			Source:    e.UpstreamID,
			Target:    e.DownstreamID,
			EventName: e.EventName,
			State:     taskgraph.RuleStateName(e.State),
		})
	}

	g.Stats.TotalNodes = len(g.Nodes)
	g.Stats.TotalEdges = len(g.Links)
	g.Stats.Circular = len(m.CircularChains())
	return g
}

// errorGraph is an empty payload carrying the rebuild failure for display.
func errorGraph(err error) *Graph {
	return &Graph{
		Type:        "graph",
		Nodes:       []Node{},
		Links:       []Link{},
		GeneratedAt: time.Now(),
		Error:       err.Error(),
	}
}
