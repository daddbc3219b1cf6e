// Package tree owns the shared progress state: an arena of nodes addressed
// by stable integer IDs, organized into weighted trees with an ordered list
// of top-level roots. All reads used for rendering are pull-based snapshots;
// mutators only touch counters under a single short-held mutex, so they are
// cheap, allocation-free and safe from any goroutine.
package tree

import (
	"errors"
	"math"
	"sync"
	"time"
)

// Usage errors returned by Split. They indicate a programming mistake at
// the call site, not a transient condition.
var (
	ErrAlreadySplit = errors.New("progress bar already has children")
	ErrFinished     = errors.New("progress bar is finished")
	ErrNoParts      = errors.New("split requires at least one part")
	ErrZeroWeight   = errors.New("split part must have a non-zero weight")
)

// NodeID addresses a node in the arena. The zero value is never a valid ID,
// and IDs are never reused within a registry's lifetime.
type NodeID uint64

// Part describes one child requested from Split: its share of the parent's
// work and its label.
type Part struct {
	Weight uint64
	Label  string
}

// Row is a snapshot of one visible node, produced depth-first for the
// renderer. It carries everything needed to draw a line and nothing that
// would require touching the registry again.
type Row struct {
	Label       string
	Depth       int
	Fraction    float64
	Determinate bool
	Finished    bool
	Abandoned   bool
	Current     uint64
	Total       uint64
	HasTotal    bool
	StartedAt   time.Time
}

type childRef struct {
	weight uint64
	id     NodeID
}

type node struct {
	id       NodeID
	parent   NodeID
	children []childRef

	current  uint64
	total    uint64
	hasTotal bool
	label    string

	startedAt   time.Time
	finished    bool
	abandoned   bool
	completedAt time.Time // set on roots when the whole subtree completes
}

// Registry is the process-wide collection of progress trees. A single
// mutex guards all structure and counters; it is never held during I/O.
type Registry struct {
	mu      sync.Mutex
	nodes   map[NodeID]*node
	roots   []NodeID
	nextID  NodeID
	onDirty func()
}

// NewRegistry creates an empty registry. onDirty is invoked, outside the
// registry lock, after every mutation that changes what should be rendered.
func NewRegistry(onDirty func()) *Registry {
	if onDirty == nil {
		onDirty = func() {}
	}
	return &Registry{
		nodes:   make(map[NodeID]*node),
		onDirty: onDirty,
	}
}

// NewRoot creates a new top-level bar and returns its ID. hasTotal=false
// creates an indeterminate bar.
func (r *Registry) NewRoot(total uint64, hasTotal bool, label string, now time.Time) NodeID {
	r.mu.Lock()
	r.nextID++
	n := &node{
		id:        r.nextID,
		total:     total,
		hasTotal:  hasTotal,
		label:     label,
		startedAt: now,
	}
	r.nodes[n.id] = n
	r.roots = append(r.roots, n.id)
	r.mu.Unlock()
	r.onDirty()
	return n.id
}

// Add increments a node's counter, clamping at its total. It is a no-op on
// finished or unknown nodes.
func (r *Registry) Add(id NodeID, delta uint64) {
	r.mu.Lock()
	n, ok := r.nodes[id]
	if !ok || n.finished {
		r.mu.Unlock()
		return
	}
	next := n.current + delta
	if next < n.current {
		next = math.MaxUint64 // saturate on overflow
	}
	if n.hasTotal && next > n.total {
		next = n.total
	}
	n.current = next
	r.mu.Unlock()
	r.onDirty()
}

// Set raises a node's counter to pos, clamped at its total. Progress is
// monotonic while a bar is unfinished, so a pos below the current value is
// ignored rather than rewinding the bar.
func (r *Registry) Set(id NodeID, pos uint64) {
	r.mu.Lock()
	n, ok := r.nodes[id]
	if !ok || n.finished {
		r.mu.Unlock()
		return
	}
	if n.hasTotal && pos > n.total {
		pos = n.total
	}
	if pos > n.current {
		n.current = pos
	}
	r.mu.Unlock()
	r.onDirty()
}

// SetLabel replaces a node's label. No-op once the node is finished.
func (r *Registry) SetLabel(id NodeID, label string) {
	r.mu.Lock()
	if n, ok := r.nodes[id]; ok && !n.finished {
		n.label = label
	}
	r.mu.Unlock()
	r.onDirty()
}

// Finish marks a node and its whole subtree terminal. Leaf counters with a
// known total jump to it, so a finished bar always renders full. Further
// mutations are no-ops.
func (r *Registry) Finish(id NodeID, now time.Time) {
	r.mu.Lock()
	n, ok := r.nodes[id]
	if !ok || n.finished {
		r.mu.Unlock()
		return
	}
	r.finishLocked(n)
	r.sealRootLocked(n, now)
	r.mu.Unlock()
	r.onDirty()
}

// Abandon marks a node and its subtree terminal without completing it. The
// renderer draws the unfinished remainder as abandoned. Dropping a bar
// that can no longer make progress keeps the display honest instead of
// freezing it mid-flight.
func (r *Registry) Abandon(id NodeID, now time.Time) {
	r.mu.Lock()
	n, ok := r.nodes[id]
	if !ok || n.finished {
		r.mu.Unlock()
		return
	}
	r.abandonLocked(n)
	r.sealRootLocked(n, now)
	r.mu.Unlock()
	r.onDirty()
}

func (r *Registry) finishLocked(n *node) {
	n.finished = true
	if n.hasTotal {
		n.current = n.total
	}
	for _, c := range n.children {
		if child, ok := r.nodes[c.id]; ok && !child.finished {
			r.finishLocked(child)
		}
	}
}

func (r *Registry) abandonLocked(n *node) {
	n.finished = true
	n.abandoned = true
	for _, c := range n.children {
		if child, ok := r.nodes[c.id]; ok && !child.finished {
			r.abandonLocked(child)
		}
	}
}

// sealRootLocked stamps the completion time on the node's root once every
// leaf below it is terminal. The grace-period countdown starts here.
func (r *Registry) sealRootLocked(n *node, now time.Time) {
	root := n
	for root.parent != 0 {
		parent, ok := r.nodes[root.parent]
		if !ok {
			break
		}
		root = parent
	}
	if root.completedAt.IsZero() && r.completeLocked(root) {
		root.completedAt = now
	}
}

func (r *Registry) completeLocked(n *node) bool {
	if n.finished {
		return true
	}
	if len(n.children) == 0 {
		return false
	}
	for _, c := range n.children {
		child, ok := r.nodes[c.id]
		if !ok || !r.completeLocked(child) {
			return false
		}
	}
	return true
}

// Split replaces a node's own counter with weighted children and returns
// their IDs in the requested order. Each child's total is its weight. The
// operation is atomic with respect to concurrent mutators; misuse is
// reported synchronously.
func (r *Registry) Split(id NodeID, parts []Part, now time.Time) ([]NodeID, error) {
	if len(parts) == 0 {
		return nil, ErrNoParts
	}
	for _, p := range parts {
		if p.Weight == 0 {
			return nil, ErrZeroWeight
		}
	}
	r.mu.Lock()
	n, ok := r.nodes[id]
	if !ok || n.finished {
		r.mu.Unlock()
		return nil, ErrFinished
	}
	if len(n.children) > 0 {
		r.mu.Unlock()
		return nil, ErrAlreadySplit
	}
	ids := make([]NodeID, 0, len(parts))
	for _, p := range parts {
		r.nextID++
		child := &node{
			id:        r.nextID,
			parent:    n.id,
			total:     p.Weight,
			hasTotal:  true,
			label:     p.Label,
			startedAt: now,
		}
		r.nodes[child.id] = child
		n.children = append(n.children, childRef{weight: p.Weight, id: child.id})
		ids = append(ids, child.id)
	}
	r.mu.Unlock()
	r.onDirty()
	return ids, nil
}

// Fraction reports the node's displayed progress in [0,1]. The second
// return value is false for an indeterminate bar (unknown total, still
// running).
func (r *Registry) Fraction(id NodeID) (float64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.nodes[id]
	if !ok {
		return 0, false
	}
	return r.fractionLocked(n)
}

// fractionLocked computes a node's fraction. Children, once present,
// shadow the node's own counter: an internal node is the weighted mean of
// its children. An unfinished indeterminate child contributes zero to its
// parent; once finished it counts as complete.
func (r *Registry) fractionLocked(n *node) (float64, bool) {
	if len(n.children) > 0 {
		var sum, weighted float64
		for _, c := range n.children {
			child, ok := r.nodes[c.id]
			if !ok {
				continue
			}
			f, determinate := r.fractionLocked(child)
			if !determinate {
				f = 0
			}
			weighted += f * float64(c.weight)
			sum += float64(c.weight)
		}
		if sum == 0 {
			return 0, true
		}
		return weighted / sum, true
	}
	if !n.hasTotal {
		if n.finished && !n.abandoned {
			return 1, true
		}
		return 0, false
	}
	if n.total == 0 {
		if n.finished && !n.abandoned {
			return 1, true
		}
		return 0, true
	}
	cur := n.current
	if cur > n.total {
		cur = n.total
	}
	return float64(cur) / float64(n.total), true
}

// Snapshot returns the rows to render, depth-first across all roots, plus
// the rows of roots retired on this call (completed longer than grace ago)
// and whether any roots remain. Retired roots leave the registry here; the
// caller prints them one final time as permanent output.
func (r *Registry) Snapshot(now time.Time, grace time.Duration) (rows, retired []Row, active bool) {
	r.mu.Lock()
	keep := r.roots[:0]
	for _, id := range r.roots {
		root, ok := r.nodes[id]
		if !ok {
			continue
		}
		if !root.completedAt.IsZero() && now.Sub(root.completedAt) >= grace {
			retired = r.appendRowsLocked(retired, root, 0)
			r.removeLocked(root)
			continue
		}
		keep = append(keep, id)
		rows = r.appendRowsLocked(rows, root, 0)
	}
	r.roots = keep
	active = len(r.roots) > 0
	r.mu.Unlock()
	return rows, retired, active
}

func (r *Registry) appendRowsLocked(rows []Row, n *node, depth int) []Row {
	f, determinate := r.fractionLocked(n)
	rows = append(rows, Row{
		Label:       n.label,
		Depth:       depth,
		Fraction:    f,
		Determinate: determinate,
		Finished:    n.finished || (len(n.children) > 0 && r.completeLocked(n)),
		Abandoned:   n.abandoned,
		Current:     n.current,
		Total:       n.total,
		HasTotal:    n.hasTotal,
		StartedAt:   n.startedAt,
	})
	for _, c := range n.children {
		if child, ok := r.nodes[c.id]; ok {
			rows = r.appendRowsLocked(rows, child, depth+1)
		}
	}
	return rows
}

func (r *Registry) removeLocked(n *node) {
	for _, c := range n.children {
		if child, ok := r.nodes[c.id]; ok {
			r.removeLocked(child)
		}
	}
	delete(r.nodes, n.id)
}

// Prune drops completed roots regardless of grace. Used on non-interactive
// sinks, where nothing ever renders and finished trees would otherwise
// accumulate for the life of the process.
func (r *Registry) Prune(now time.Time) {
	r.mu.Lock()
	keep := r.roots[:0]
	for _, id := range r.roots {
		root, ok := r.nodes[id]
		if !ok {
			continue
		}
		if !root.completedAt.IsZero() {
			r.removeLocked(root)
			continue
		}
		keep = append(keep, id)
	}
	r.roots = keep
	r.mu.Unlock()
}

// Drain removes every node. The terminal frame is the caller's problem.
func (r *Registry) Drain() {
	r.mu.Lock()
	r.nodes = make(map[NodeID]*node)
	r.roots = nil
	r.mu.Unlock()
}

// Len reports the number of live top-level bars.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.roots)
}
