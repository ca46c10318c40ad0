package graph

import (
	"reflect"
	"testing"
)

// #region test-edges
func TestAddEdge(t *testing.T) {
	g := New(3)
	g.AddEdge(0, 2)
	g.AddEdge(0, 2)
	g.AddEdge(1, 1)

	if !g.HasEdge(2, 0) {
		t.Fatal("expected undirected edge 2-0")
	}
	if g.Degree(1) != 0 {
		t.Fatalf("self-loop should be ignored, degree=%d", g.Degree(1))
	}
	if got := g.Neighbors(0); !reflect.DeepEqual(got, []int{2}) {
		t.Fatalf("expected [2], got %v", got)
	}
}

// #endregion test-edges

// #region test-cliques
func TestMaximalCliquesTriangleAndTail(t *testing.T) {
	// 0-1-2 triangle, 2-3 tail, 4 isolated
	g := New(5)
	g.AddEdge(0, 1)
	g.AddEdge(1, 2)
	g.AddEdge(0, 2)
	g.AddEdge(2, 3)

	got := g.MaximalCliques(2)
	want := [][]int{{0, 1, 2}, {2, 3}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestMaximalCliquesIncludesSingletonsWhenAsked(t *testing.T) {
	g := New(3)
	g.AddEdge(0, 1)

	got := g.MaximalCliques(1)
	want := [][]int{{0, 1}, {2}}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestMaximalCliquesEveryCliqueIsMaximal(t *testing.T) {
	// two overlapping 4-cliques sharing nodes 2 and 3
	g := New(6)
	for _, c := range [][]int{{0, 1, 2, 3}, {2, 3, 4, 5}} {
		for i := range c {
			for j := i + 1; j < len(c); j++ {
				g.AddEdge(c[i], c[j])
			}
		}
	}
	cliques := g.MaximalCliques(2)
	if len(cliques) != 2 {
		t.Fatalf("expected 2 cliques, got %v", cliques)
	}
	for _, c := range cliques {
		for n := 0; n < g.Len(); n++ {
			inClique := false
			linked := true
			for _, m := range c {
				if m == n {
					inClique = true
				}
				if m != n && !g.HasEdge(n, m) {
					linked = false
				}
			}
			if !inClique && linked {
				t.Fatalf("clique %v could be extended with %d", c, n)
			}
		}
	}
}

func TestMaximalCliquesEmptyGraph(t *testing.T) {
	if got := New(0).MaximalCliques(2); len(got) != 0 {
		t.Fatalf("expected no cliques, got %v", got)
	}
	if got := New(4).MaximalCliques(2); len(got) != 0 {
		t.Fatalf("expected no cliques without edges, got %v", got)
	}
}

// #endregion test-cliques
