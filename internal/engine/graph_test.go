package engine

import (
	"errors"
	"testing"
)

func buildGraph(t *testing.T, nodes []string, edges [][2]string) *Graph {
	t.Helper()

	g := NewGraph()
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			t.Fatalf("add node %s: %v", n, err)
		}
	}
	for _, e := range edges {
		if err := g.AddEdge(e[0], e[1]); err != nil {
			t.Fatalf("add edge %s -> %s: %v", e[0], e[1], err)
		}
	}
	return g
}

func TestGraph_AddNode(t *testing.T) {
	g := NewGraph()

	if err := g.AddNode("A"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Повторное добавление — no-op
	if err := g.AddNode("A"); err != nil {
		t.Fatalf("duplicate add should be idempotent: %v", err)
	}
	if g.Size() != 1 {
		t.Errorf("expected 1 node, got %d", g.Size())
	}
}

func TestGraph_AddNode_Invalid(t *testing.T) {
	g := NewGraph()

	for _, id := range []string{"", "   ", "\t"} {
		err := g.AddNode(id)
		if !errors.Is(err, ErrInvalidNode) {
			t.Errorf("AddNode(%q): expected ErrInvalidNode, got %v", id, err)
		}
	}
}

func TestGraph_AddEdge_UnknownNode(t *testing.T) {
	g := NewGraph()
	g.AddNode("A")

	if err := g.AddEdge("A", "B"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("expected ErrUnknownNode, got %v", err)
	}
	if err := g.AddEdge("X", "A"); !errors.Is(err, ErrUnknownNode) {
		t.Errorf("expected ErrUnknownNode, got %v", err)
	}
}

func TestGraph_AddEdge_SelfCycle(t *testing.T) {
	g := NewGraph()
	g.AddNode("A")

	if err := g.AddEdge("A", "A"); !errors.Is(err, ErrSelfCycle) {
		t.Errorf("expected ErrSelfCycle, got %v", err)
	}
}

func TestGraph_AddEdge_CycleRollback(t *testing.T) {
	g := buildGraph(t,
		[]string{"A", "B", "C"},
		[][2]string{{"A", "B"}, {"B", "C"}},
	)

	edgesBefore := g.EdgeCount()

	// C -> A замыкает цикл
	err := g.AddEdge("C", "A")
	if !errors.Is(err, ErrCycleDetected) {
		t.Fatalf("expected ErrCycleDetected, got %v", err)
	}

	// Ребро должно быть откачено: множество рёбер не изменилось
	if g.EdgeCount() != edgesBefore {
		t.Errorf("edge set changed after rejected edge: %d != %d", g.EdgeCount(), edgesBefore)
	}
	if err := g.Validate(); err != nil {
		t.Errorf("graph should remain valid after rollback: %v", err)
	}

	// Граф продолжает принимать валидные рёбра
	g.AddNode("D")
	if err := g.AddEdge("C", "D"); err != nil {
		t.Errorf("valid edge after rollback: %v", err)
	}
}

func TestGraph_Dependencies(t *testing.T) {
	g := buildGraph(t,
		[]string{"A", "B", "C", "D"},
		[][2]string{{"A", "B"}, {"A", "C"}, {"B", "D"}, {"C", "D"}},
	)

	deps := g.Dependencies("D")
	if len(deps) != 2 {
		t.Errorf("D should have 2 dependencies, got %d", len(deps))
	}

	dependents := g.Dependents("A")
	if len(dependents) != 2 {
		t.Errorf("A should have 2 dependents, got %d", len(dependents))
	}

	// Узел без рёбер — пустые списки, не nil и не ошибка
	if deps := g.Dependencies("A"); len(deps) != 0 {
		t.Errorf("A should have no dependencies, got %v", deps)
	}
	if deps := g.Dependents("D"); len(deps) != 0 {
		t.Errorf("D should have no dependents, got %v", deps)
	}
}

func TestGraph_Validate_Empty(t *testing.T) {
	g := NewGraph()

	if err := g.Validate(); !errors.Is(err, ErrEmptyGraph) {
		t.Errorf("expected ErrEmptyGraph, got %v", err)
	}
}

func TestGraph_Validate_OK(t *testing.T) {
	g := buildGraph(t, []string{"A", "B"}, [][2]string{{"A", "B"}})

	if err := g.Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}
