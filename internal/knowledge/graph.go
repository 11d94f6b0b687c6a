// Package knowledge implements the persistent knowledge graph. The graph grows
// by merging fragments extracted from text; repeated observations of the same
// edge strengthen it (long-term potentiation) instead of duplicating it.
package knowledge

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

// Node is one concept in the graph.
type Node struct {
	ID    string `json:"id"`
	Label string `json:"label"`
	// Kind distinguishes concepts, capabilities, wisdom entries and so on.
	Kind string `json:"kind,omitempty"`
}

// Edge is a directed, labeled relation between two nodes. Weight counts how
// often the relation has been observed.
type Edge struct {
	Source string  `json:"source"`
	Label  string  `json:"label"`
	Target string  `json:"target"`
	Weight float64 `json:"weight"`
}

// Fragment is a partial graph produced by extraction, ready to merge.
type Fragment struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

type edgeKey struct {
	source, label, target string
}

// Graph is the thread-safe knowledge graph, persisted as a single JSON file.
type Graph struct {
	mu    sync.RWMutex
	path  string
	nodes map[string]Node
	edges map[edgeKey]*Edge
	// edgeOrder preserves insertion order for deterministic serialization.
	edgeOrder []edgeKey
	dirty     bool
	updatedAt time.Time
}

type graphFile struct {
	Nodes     []Node    `json:"nodes"`
	Edges     []Edge    `json:"edges"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Load reads the graph from path. A missing file yields an empty graph.
func Load(path string) (*Graph, error) {
	g := &Graph{
		path:  path,
		nodes: make(map[string]Node),
		edges: make(map[edgeKey]*Edge),
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return g, nil
		}
		return nil, fmt.Errorf("read knowledge graph: %w", err)
	}

	var file graphFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse knowledge graph: %w", err)
	}
	for _, n := range file.Nodes {
		g.nodes[n.ID] = n
	}
	for _, e := range file.Edges {
		key := edgeKey{e.Source, e.Label, e.Target}
		if _, ok := g.edges[key]; ok {
			continue
		}
		edge := e
		if edge.Weight <= 0 {
			edge.Weight = 1
		}
		g.edges[key] = &edge
		g.edgeOrder = append(g.edgeOrder, key)
	}
	g.updatedAt = file.UpdatedAt
	return g, nil
}

// Merge folds a fragment into the graph. New nodes are added; an existing
// node keeps its label. An edge already present by (source, label, target)
// has the fragment's weight added to it, defaulting to 1.
func (g *Graph) Merge(frag Fragment) {
	g.mu.Lock()
	defer g.mu.Unlock()

	for _, n := range frag.Nodes {
		if n.ID == "" {
			continue
		}
		if _, ok := g.nodes[n.ID]; !ok {
			g.nodes[n.ID] = n
		}
	}
	for _, e := range frag.Edges {
		if e.Source == "" || e.Target == "" {
			continue
		}
		w := e.Weight
		if w <= 0 {
			w = 1
		}
		key := edgeKey{e.Source, e.Label, e.Target}
		if existing, ok := g.edges[key]; ok {
			existing.Weight += w
		} else {
			g.edges[key] = &Edge{Source: e.Source, Label: e.Label, Target: e.Target, Weight: w}
			g.edgeOrder = append(g.edgeOrder, key)
		}
		// Endpoints referenced by an edge always exist as nodes.
		if _, ok := g.nodes[e.Source]; !ok {
			g.nodes[e.Source] = Node{ID: e.Source, Label: e.Source}
		}
		if _, ok := g.nodes[e.Target]; !ok {
			g.nodes[e.Target] = Node{ID: e.Target, Label: e.Target}
		}
	}
	g.dirty = true
	g.updatedAt = time.Now().UTC()
}

// Node returns the node with the given ID.
func (g *Graph) Node(id string) (Node, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	n, ok := g.nodes[id]
	return n, ok
}

// NodeCount returns the number of nodes.
func (g *Graph) NodeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.nodes)
}

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.edges)
}

// EdgeWeight returns the observed weight of an edge, zero when absent.
func (g *Graph) EdgeWeight(source, label, target string) float64 {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if e, ok := g.edges[edgeKey{source, label, target}]; ok {
		return e.Weight
	}
	return 0
}

// Neighbors returns the edges leaving the given node, strongest first.
func (g *Graph) Neighbors(id string) []Edge {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []Edge
	for _, key := range g.edgeOrder {
		if key.source == id {
			out = append(out, *g.edges[key])
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Weight > out[j].Weight })
	return out
}

// Search returns nodes whose ID or label contains the query, case-insensitive.
func (g *Graph) Search(query string) []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	q := strings.ToLower(query)
	var out []Node
	for _, n := range g.nodes {
		if strings.Contains(strings.ToLower(n.ID), q) || strings.Contains(strings.ToLower(n.Label), q) {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// NodesByKind returns all nodes of the given kind.
func (g *Graph) NodesByKind(kind string) []Node {
	g.mu.RLock()
	defer g.mu.RUnlock()
	var out []Node
	for _, n := range g.nodes {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Summary renders a compact textual view of the strongest relations, for
// inclusion in prompts. Limit bounds the number of edges.
func (g *Graph) Summary(limit int) string {
	g.mu.RLock()
	defer g.mu.RUnlock()

	edges := make([]Edge, 0, len(g.edges))
	for _, key := range g.edgeOrder {
		edges = append(edges, *g.edges[key])
	}
	sort.SliceStable(edges, func(i, j int) bool { return edges[i].Weight > edges[j].Weight })
	if limit > 0 && len(edges) > limit {
		edges = edges[:limit]
	}

	var b strings.Builder
	for _, e := range edges {
		fmt.Fprintf(&b, "%s -[%s]-> %s (%.0f)\n", e.Source, e.Label, e.Target, e.Weight)
	}
	return b.String()
}

// Save persists the graph via temp file and rename. A no-op when nothing
// changed since the last save.
func (g *Graph) Save() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.dirty {
		return nil
	}

	file := graphFile{
		Nodes:     make([]Node, 0, len(g.nodes)),
		Edges:     make([]Edge, 0, len(g.edges)),
		UpdatedAt: g.updatedAt,
	}
	for _, n := range g.nodes {
		file.Nodes = append(file.Nodes, n)
	}
	sort.Slice(file.Nodes, func(i, j int) bool { return file.Nodes[i].ID < file.Nodes[j].ID })
	for _, key := range g.edgeOrder {
		file.Edges = append(file.Edges, *g.edges[key])
	}

	data, err := json.MarshalIndent(file, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal knowledge graph: %w", err)
	}

	dir := filepath.Dir(g.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create knowledge graph dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".kg-*.json")
	if err != nil {
		return fmt.Errorf("create temp knowledge graph: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp knowledge graph: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("sync temp knowledge graph: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp knowledge graph: %w", err)
	}
	if err := os.Rename(tmpName, g.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace knowledge graph: %w", err)
	}
	g.dirty = false
	return nil
}

// ParseFragment decodes an extraction result. The decoder tolerates text
// around the JSON object, which small models frequently emit.
func ParseFragment(text string) (Fragment, error) {
	var frag Fragment
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return frag, fmt.Errorf("no JSON object in extraction output")
	}
	if err := json.Unmarshal([]byte(text[start:end+1]), &frag); err != nil {
		return frag, fmt.Errorf("parse graph fragment: %w", err)
	}
	return frag, nil
}
