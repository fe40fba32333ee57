package separation

import (
	"container/heap"
	"math"
)

// pathTree holds single-source shortest path results over an object
type pathTree struct {
	dist []float64
	prev []int
}

// path walks back from target to the source, source last
func (t pathTree) path(target int) []int {
	if math.IsInf(t.dist[target], 1) {
		return nil
	}
	var out []int
	for i := target; i >= 0; i = t.prev[i] {
		out = append(out, i)
	}
	return out
}

type queueItem struct {
	index int
	dist  float64
}

// priorityQueue is a min-heap on distance, ties broken by pixel index
type priorityQueue []queueItem

func (pq priorityQueue) Len() int { return len(pq) }

func (pq priorityQueue) Less(i, j int) bool {
	if pq[i].dist != pq[j].dist {
		return pq[i].dist < pq[j].dist
	}
	return pq[i].index < pq[j].index
}

func (pq priorityQueue) Swap(i, j int) { pq[i], pq[j] = pq[j], pq[i] }

func (pq *priorityQueue) Push(x any) {
	*pq = append(*pq, x.(queueItem))
}

func (pq *priorityQueue) Pop() any {
	old := *pq
	n := len(old)
	item := old[n-1]
	*pq = old[:n-1]
	return item
}

// shortestPaths runs Dijkstra from src over the 4-neighbourhood of the
// object. The cost of a path is the sum of the costs of its pixels,
// both endpoints included.
func (o *object) shortestPaths(src int) pathTree {
	n := len(o.inside)
	t := pathTree{dist: make([]float64, n), prev: make([]int, n)}
	for i := range t.dist {
		t.dist[i] = math.Inf(1)
		t.prev[i] = -1
	}
	t.dist[src] = o.cost[src]

	pq := &priorityQueue{{index: src, dist: t.dist[src]}}
	done := make([]bool, n)
	for pq.Len() > 0 {
		cur := heap.Pop(pq).(queueItem)
		if done[cur.index] {
			continue
		}
		done[cur.index] = true

		p := o.point(cur.index)
		for _, d := range neighbours4 {
			q := p.Add(d)
			if !o.contains(q) {
				continue
			}
			j := o.index(q)
			if done[j] {
				continue
			}
			if nd := cur.dist + o.cost[j]; nd < t.dist[j] {
				t.dist[j] = nd
				t.prev[j] = cur.index
				heap.Push(pq, queueItem{index: j, dist: nd})
			}
		}
	}
	return t
}
