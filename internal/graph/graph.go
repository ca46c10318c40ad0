package graph

import "sort"

// #region types
// Graph is an undirected graph over nodes 0..n-1 stored as adjacency sets.
type Graph struct {
	adj []map[int]bool
}

// New creates a graph with n isolated nodes.
func New(n int) *Graph {
	adj := make([]map[int]bool, n)
	for i := range adj {
		adj[i] = map[int]bool{}
	}
	return &Graph{adj: adj}
}

// #endregion types

// #region edges
// Len is the number of nodes.
func (g *Graph) Len() int {
	return len(g.adj)
}

// AddEdge links a and b. Self-loops are ignored.
func (g *Graph) AddEdge(a, b int) {
	if a == b {
		return
	}
	g.adj[a][b] = true
	g.adj[b][a] = true
}

// HasEdge reports whether a and b are linked.
func (g *Graph) HasEdge(a, b int) bool {
	return g.adj[a][b]
}

// Neighbors returns the neighbours of n in ascending order.
func (g *Graph) Neighbors(n int) []int {
	out := make([]int, 0, len(g.adj[n]))
	for m := range g.adj[n] {
		out = append(out, m)
	}
	sort.Ints(out)
	return out
}

// Degree is the number of neighbours of n.
func (g *Graph) Degree(n int) int {
	return len(g.adj[n])
}

// #endregion edges

// #region cliques
// MaximalCliques enumerates every maximal clique with at least minSize nodes
// using Bron–Kerbosch with pivoting. Each clique is sorted ascending and the
// cliques are ordered lexicographically so results are deterministic.
func (g *Graph) MaximalCliques(minSize int) [][]int {
	var out [][]int
	all := make([]int, 0, len(g.adj))
	for i := range g.adj {
		if g.Degree(i) > 0 || minSize <= 1 {
			all = append(all, i)
		}
	}
	g.bronKerbosch(nil, all, nil, func(clique []int) {
		if len(clique) >= minSize {
			c := make([]int, len(clique))
			copy(c, clique)
			sort.Ints(c)
			out = append(out, c)
		}
	})
	sort.Slice(out, func(i, j int) bool { return lexLess(out[i], out[j]) })
	return out
}

func (g *Graph) bronKerbosch(r, p, x []int, emit func([]int)) {
	if len(p) == 0 && len(x) == 0 {
		emit(r)
		return
	}
	pivot := g.pivot(p, x)
	for _, v := range append([]int(nil), p...) {
		if g.adj[pivot][v] {
			continue
		}
		g.bronKerbosch(
			append(append([]int(nil), r...), v),
			g.intersect(p, v),
			g.intersect(x, v),
			emit,
		)
		p = remove(p, v)
		x = append(x, v)
	}
}

// pivot picks the node of p ∪ x with the most neighbours in p.
func (g *Graph) pivot(p, x []int) int {
	best, bestCount := -1, -1
	for _, set := range [][]int{p, x} {
		for _, u := range set {
			count := 0
			for _, v := range p {
				if g.adj[u][v] {
					count++
				}
			}
			if count > bestCount {
				best, bestCount = u, count
			}
		}
	}
	return best
}

func (g *Graph) intersect(set []int, v int) []int {
	var out []int
	for _, u := range set {
		if g.adj[v][u] {
			out = append(out, u)
		}
	}
	return out
}

// #endregion cliques

// #region helpers
func remove(set []int, v int) []int {
	out := make([]int, 0, len(set))
	for _, u := range set {
		if u != v {
			out = append(out, u)
		}
	}
	return out
}

func lexLess(a, b []int) bool {
	for i := 0; i < len(a) && i < len(b); i++ {
		if a[i] != b[i] {
			return a[i] < b[i]
		}
	}
	return len(a) < len(b)
}

// #endregion helpers
