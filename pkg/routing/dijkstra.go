package routing

import (
	"context"
	"math"

	"roadnet/pkg/graph"
)

// noNode marks "no predecessor" in the search state.
const noNode = ^uint32(0)

// checkInterval is how many heap pops pass between context checks.
const checkInterval = 100

// MinHeap is a concrete-typed min-heap for the Dijkstra priority queue.
// Avoids interface boxing overhead of container/heap. Entries carry an
// insertion sequence number: equal distances pop in push order, so the
// choice between equal-cost alternatives is deterministic.
type MinHeap struct {
	items   []PQItem
	nextSeq uint32
}

// PQItem is a priority queue entry.
type PQItem struct {
	Node uint32
	Seq  uint32
	Dist float64
}

func (h *MinHeap) Len() int { return len(h.items) }

func (h *MinHeap) Push(node uint32, dist float64) {
	h.items = append(h.items, PQItem{Node: node, Seq: h.nextSeq, Dist: dist})
	h.nextSeq++
	h.siftUp(len(h.items) - 1)
}

func (h *MinHeap) Pop() PQItem {
	n := len(h.items)
	item := h.items[0]
	h.items[0] = h.items[n-1]
	h.items = h.items[:n-1]
	if len(h.items) > 0 {
		h.siftDown(0)
	}
	return item
}

func (h *MinHeap) Reset() {
	h.items = h.items[:0]
	h.nextSeq = 0
}

func (h *MinHeap) less(i, j int) bool {
	if h.items[i].Dist != h.items[j].Dist {
		return h.items[i].Dist < h.items[j].Dist
	}
	return h.items[i].Seq < h.items[j].Seq
}

func (h *MinHeap) siftUp(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !h.less(i, parent) {
			break
		}
		h.items[i], h.items[parent] = h.items[parent], h.items[i]
		i = parent
	}
}

func (h *MinHeap) siftDown(i int) {
	n := len(h.items)
	for {
		smallest := i
		left := 2*i + 1
		right := 2*i + 2
		if left < n && h.less(left, smallest) {
			smallest = left
		}
		if right < n && h.less(right, smallest) {
			smallest = right
		}
		if smallest == i {
			break
		}
		h.items[i], h.items[smallest] = h.items[smallest], h.items[i]
		i = smallest
	}
}

// QueryState holds per-query Dijkstra state. Unreached nodes have an
// infinite distance and no predecessor.
type QueryState struct {
	Dist    []float64
	Prev    []uint32
	Touched []uint32 // nodes touched during this query (for fast reset)
	PQ      MinHeap
}

// NewQueryState creates a QueryState for a graph with n nodes.
func NewQueryState(n uint32) *QueryState {
	dist := make([]float64, n)
	prev := make([]uint32, n)
	for i := range dist {
		dist[i] = math.Inf(1)
		prev[i] = noNode
	}
	return &QueryState{
		Dist:    dist,
		Prev:    prev,
		Touched: make([]uint32, 0, 1024),
		PQ:      MinHeap{items: make([]PQItem, 0, 256)},
	}
}

// Reset clears only the touched entries for fast reuse.
func (qs *QueryState) Reset() {
	for _, node := range qs.Touched {
		qs.Dist[node] = math.Inf(1)
		qs.Prev[node] = noNode
	}
	qs.Touched = qs.Touched[:0]
	qs.PQ.Reset()
}

func (qs *QueryState) touch(node uint32, dist float64, prev uint32) {
	if math.IsInf(qs.Dist[node], 1) {
		qs.Touched = append(qs.Touched, node)
	}
	qs.Dist[node] = dist
	qs.Prev[node] = prev
}

// ShortestPath runs Dijkstra over g from source to target. It returns
// the node path including both endpoints and the total cost in meters,
// or ErrNoRoute when target is unreachable. Relaxation is strictly
// improving, so the first settlement of a node is final.
func ShortestPath(ctx context.Context, g *graph.Graph, source, target uint32) ([]uint32, float64, error) {
	return NewQueryState(g.NumNodes).ShortestPath(ctx, g, source, target)
}

// ShortestPath runs one query on reusable state. Callers must Reset
// between queries.
func (qs *QueryState) ShortestPath(ctx context.Context, g *graph.Graph, source, target uint32) ([]uint32, float64, error) {
	qs.touch(source, 0, noNode)
	qs.PQ.Push(source, 0)

	iterations := 0
	for qs.PQ.Len() > 0 {
		iterations++
		if iterations%checkInterval == 0 {
			if err := ctx.Err(); err != nil {
				return nil, 0, err
			}
		}

		item := qs.PQ.Pop()
		u := item.Node
		if item.Dist > qs.Dist[u] {
			continue // stale entry
		}
		if u == target {
			break
		}

		start, end := g.EdgesFrom(u)
		for e := start; e < end; e++ {
			v := g.Head[e]
			candidate := item.Dist + g.Weight[e]
			if candidate < qs.Dist[v] {
				qs.touch(v, candidate, u)
				qs.PQ.Push(v, candidate)
			}
		}
	}

	if math.IsInf(qs.Dist[target], 1) {
		return nil, 0, ErrNoRoute
	}

	path := []uint32{target}
	for n := target; n != source; {
		n = qs.Prev[n]
		path = append(path, n)
	}
	for i, j := 0, len(path)-1; i < j; i, j = i+1, j-1 {
		path[i], path[j] = path[j], path[i]
	}
	return path, qs.Dist[target], nil
}
