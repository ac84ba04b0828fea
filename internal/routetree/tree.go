// Package routetree holds the airport route tree: an arena of nodes keyed by id,
// the rules a node must pass before it is committed, and the traversal and
// duration queries answered over it.
package routetree

import (
	"time"

	"github.com/starford/routetree/internal/models"
)

// View is the read-only surface of a tree. Validation and queries only need this.
type View interface {
	Get(id int64) (models.Route, error)
	Root() (models.Route, bool)
	ChildAt(parentID int64, pos models.Position) (models.Route, bool)
	Child(id int64, dir models.Direction) (int64, bool, error)
	Children(id int64) ([]models.Route, error)
	LastReachable(startID int64, dir models.Direction) (models.Route, error)
	Longest() (models.Route, bool)
	Shortest() (models.Route, bool)
	Depth(id int64) (int, error)
	All() []models.Route
	Len() int
	Stats() Stats
}

var _ View = (*Tree)(nil)

type slot struct {
	parent int64
	pos    models.Position
}

// Tree is an arena of route nodes in creation order. It is not safe for
// concurrent use; Store serializes access to it.
type Tree struct {
	nodes    []models.Route
	index    map[int64]int
	children map[slot]int64
	rootID   int64
	hasRoot  bool
	longest  int
	shortest int
	total    int64
	nextID   int64
	now      func() time.Time
}

// NewTree returns an empty tree.
func NewTree() *Tree {
	return &Tree{
		index:    make(map[int64]int),
		children: make(map[slot]int64),
		longest:  -1,
		shortest: -1,
		nextID:   1,
		now:      time.Now,
	}
}

// Insert assigns an id to a validated node and commits it. The node is not
// checked again here; Validate is the only way to obtain a ValidatedNode.
func (t *Tree) Insert(v ValidatedNode) int64 {
	r := t.Stage(v)
	t.commit(r)
	return r.ID
}

// Stage builds the node Insert would commit, with its id and timestamp,
// without changing the tree. Callers that persist before committing stage
// first and pass the result to Commit.
func (t *Tree) Stage(v ValidatedNode) models.Route {
	r := models.Route{
		ID:        t.nextID,
		Code:      v.draft.Code,
		ParentID:  v.draft.ParentID,
		Position:  v.draft.Position,
		Duration:  v.draft.Duration,
		CreatedAt: t.now().UTC(),
	}
	return r.Clone()
}

// Commit adds a fully formed node, either staged or reloaded from storage,
// keeping its id. Nodes must be committed in creation order. The tree keeps
// its own copy, and every record it returns is a copy too.
func (t *Tree) Commit(r models.Route) {
	t.commit(r)
}

func (t *Tree) commit(r models.Route) {
	r = r.Clone()
	i := len(t.nodes)
	t.nodes = append(t.nodes, r)
	t.index[r.ID] = i
	if r.ID >= t.nextID {
		t.nextID = r.ID + 1
	}

	if r.ParentID == nil {
		if !t.hasRoot {
			t.rootID = r.ID
			t.hasRoot = true
		}
	} else {
		key := slot{parent: *r.ParentID, pos: r.Position}
		if _, taken := t.children[key]; !taken {
			t.children[key] = r.ID
		}
	}

	// Strict comparisons keep the earliest node on ties.
	if t.longest < 0 || r.Duration > t.nodes[t.longest].Duration {
		t.longest = i
	}
	if t.shortest < 0 || r.Duration < t.nodes[t.shortest].Duration {
		t.shortest = i
	}
	t.total += int64(r.Duration)
}

// Get returns the node with the given id.
func (t *Tree) Get(id int64) (models.Route, error) {
	i, ok := t.index[id]
	if !ok {
		return models.Route{}, notFound(id)
	}
	return t.nodes[i].Clone(), nil
}

// Root returns the rootless node, if one has been committed.
func (t *Tree) Root() (models.Route, bool) {
	if !t.hasRoot {
		return models.Route{}, false
	}
	return t.nodes[t.index[t.rootID]].Clone(), true
}

// ChildAt returns the node holding pos under parentID. Unknown parents have no children.
func (t *Tree) ChildAt(parentID int64, pos models.Position) (models.Route, bool) {
	id, ok := t.children[slot{parent: parentID, pos: pos}]
	if !ok {
		return models.Route{}, false
	}
	return t.nodes[t.index[id]].Clone(), true
}

// Child returns the id of the unique child of id in direction dir.
func (t *Tree) Child(id int64, dir models.Direction) (int64, bool, error) {
	if _, ok := t.index[id]; !ok {
		return 0, false, notFound(id)
	}
	child, ok := t.children[slot{parent: id, pos: dir.Position()}]
	return child, ok, nil
}

// Children returns the left then right child of id, skipping empty slots.
func (t *Tree) Children(id int64) ([]models.Route, error) {
	if _, ok := t.index[id]; !ok {
		return nil, notFound(id)
	}
	out := make([]models.Route, 0, 2)
	for _, pos := range []models.Position{models.PositionLeft, models.PositionRight} {
		if c, ok := t.ChildAt(id, pos); ok {
			out = append(out, c)
		}
	}
	return out, nil
}

// LastReachable follows dir from startID until a node has no child that way
// and returns that node, which is the start node itself when it has none.
func (t *Tree) LastReachable(startID int64, dir models.Direction) (models.Route, error) {
	cur, err := t.Get(startID)
	if err != nil {
		return models.Route{}, err
	}
	pos := dir.Position()
	for {
		next, ok := t.children[slot{parent: cur.ID, pos: pos}]
		if !ok {
			return cur, nil
		}
		cur = t.nodes[t.index[next]].Clone()
	}
}

// Longest returns the node with the largest duration.
func (t *Tree) Longest() (models.Route, bool) {
	if t.longest < 0 {
		return models.Route{}, false
	}
	return t.nodes[t.longest].Clone(), true
}

// Shortest returns the node with the smallest duration.
func (t *Tree) Shortest() (models.Route, bool) {
	if t.shortest < 0 {
		return models.Route{}, false
	}
	return t.nodes[t.shortest].Clone(), true
}

// Depth counts parent hops from id to the root.
func (t *Tree) Depth(id int64) (int, error) {
	cur, err := t.Get(id)
	if err != nil {
		return 0, err
	}
	depth := 0
	for cur.ParentID != nil {
		parent, err := t.Get(*cur.ParentID)
		if err != nil {
			return 0, err
		}
		cur = parent
		depth++
	}
	return depth, nil
}

// All returns a copy of every node in creation order.
func (t *Tree) All() []models.Route {
	out := make([]models.Route, len(t.nodes))
	for i, r := range t.nodes {
		out[i] = r.Clone()
	}
	return out
}

// Len returns the number of nodes.
func (t *Tree) Len() int {
	return len(t.nodes)
}

// Stats summarizes the tree for the dashboard.
type Stats struct {
	TotalNodes    int           `json:"total_nodes"`
	TotalDuration int64         `json:"total_duration"`
	Root          *models.Route `json:"root"`
	Longest       *models.Route `json:"longest"`
	Shortest      *models.Route `json:"shortest"`
}

// Stats returns the dashboard summary.
func (t *Tree) Stats() Stats {
	s := Stats{TotalNodes: len(t.nodes), TotalDuration: t.total}
	if r, ok := t.Root(); ok {
		s.Root = &r
	}
	if r, ok := t.Longest(); ok {
		s.Longest = &r
	}
	if r, ok := t.Shortest(); ok {
		s.Shortest = &r
	}
	return s
}
