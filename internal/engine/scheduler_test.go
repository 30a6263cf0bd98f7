package engine

import (
	"errors"
	"testing"
)

// checkTopological проверяет, что для каждого ребра (u → v) узел u
// стоит в порядке раньше v.
func checkTopological(t *testing.T, g *Graph, order []string) {
	t.Helper()

	pos := make(map[string]int, len(order))
	for i, node := range order {
		pos[node] = i
	}

	for _, from := range g.NodeIDs() {
		for _, to := range g.Dependents(from) {
			if pos[from] >= pos[to] {
				t.Errorf("edge %s -> %s violated: pos %d >= %d", from, to, pos[from], pos[to])
			}
		}
	}
}

func TestLinearOrder_Chain(t *testing.T) {
	g := buildGraph(t,
		[]string{"A", "B", "C"},
		[][2]string{{"A", "B"}, {"B", "C"}},
	)

	order, err := LinearOrder(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(order) != 3 {
		t.Fatalf("expected 3 nodes in order, got %d", len(order))
	}
	checkTopological(t, g, order)
}

func TestLinearOrder_Diamond(t *testing.T) {
	// A → B → D
	// A → C → D
	g := buildGraph(t,
		[]string{"A", "B", "C", "D"},
		[][2]string{{"A", "B"}, {"A", "C"}, {"B", "D"}, {"C", "D"}},
	)

	order, err := LinearOrder(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(order) != g.Size() {
		t.Fatalf("order length %d != node count %d", len(order), g.Size())
	}
	checkTopological(t, g, order)

	if order[0] != "A" {
		t.Errorf("expected A first, got %s", order[0])
	}
	if order[len(order)-1] != "D" {
		t.Errorf("expected D last, got %s", order[len(order)-1])
	}
}

func TestLinearOrder_EmptyGraph(t *testing.T) {
	g := NewGraph()

	if _, err := LinearOrder(g); !errors.Is(err, ErrEmptyGraph) {
		t.Errorf("expected ErrEmptyGraph, got %v", err)
	}
}

func TestLevels_Chain(t *testing.T) {
	g := buildGraph(t,
		[]string{"A", "B", "C"},
		[][2]string{{"A", "B"}, {"B", "C"}},
	)

	levels, err := Levels(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(levels) != 3 {
		t.Fatalf("expected 3 levels, got %d", len(levels))
	}
	for i, want := range []string{"A", "B", "C"} {
		if len(levels[i]) != 1 || levels[i][0] != want {
			t.Errorf("level %d: expected [%s], got %v", i, want, levels[i])
		}
	}
}

func TestLevels_Diamond(t *testing.T) {
	// Уровни: [A], [B, C], [D]
	g := buildGraph(t,
		[]string{"A", "B", "C", "D"},
		[][2]string{{"A", "B"}, {"A", "C"}, {"B", "D"}, {"C", "D"}},
	)

	levels, err := Levels(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(levels) != 3 {
		t.Fatalf("expected 3 levels, got %d: %v", len(levels), levels)
	}
	if len(levels[0]) != 1 || levels[0][0] != "A" {
		t.Errorf("level 0: expected [A], got %v", levels[0])
	}
	if len(levels[1]) != 2 {
		t.Errorf("level 1: expected 2 nodes, got %v", levels[1])
	}
	if len(levels[2]) != 1 || levels[2][0] != "D" {
		t.Errorf("level 2: expected [D], got %v", levels[2])
	}
}

func TestLevels_ConcatIsTopological(t *testing.T) {
	g := buildGraph(t,
		[]string{"A", "B", "C", "D", "E", "F"},
		[][2]string{{"A", "C"}, {"B", "C"}, {"C", "D"}, {"C", "E"}, {"D", "F"}, {"E", "F"}},
	)

	levels, err := Levels(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Конкатенация слоёв — валидный топологический порядок
	order := make([]string, 0, g.Size())
	for _, level := range levels {
		order = append(order, level...)
	}
	if len(order) != g.Size() {
		t.Fatalf("levels cover %d of %d nodes", len(order), g.Size())
	}
	checkTopological(t, g, order)

	// Для каждого ребра индекс слоя источника строго меньше индекса слоя приёмника
	levelOf := make(map[string]int)
	for i, level := range levels {
		for _, node := range level {
			levelOf[node] = i
		}
	}
	for _, from := range g.NodeIDs() {
		for _, to := range g.Dependents(from) {
			if levelOf[from] >= levelOf[to] {
				t.Errorf("edge %s -> %s: level %d >= %d", from, to, levelOf[from], levelOf[to])
			}
		}
	}
}

func TestLevels_IndependentNodes(t *testing.T) {
	g := buildGraph(t, []string{"A", "B", "C"}, nil)

	levels, err := Levels(g)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(levels) != 1 {
		t.Fatalf("independent nodes should form a single level, got %d", len(levels))
	}
	if len(levels[0]) != 3 {
		t.Errorf("expected 3 nodes in level 0, got %d", len(levels[0]))
	}
}
