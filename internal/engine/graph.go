package engine

import (
	"fmt"
	"strings"
)

// Graph — направленный ациклический граф зависимостей узлов workflow.
//
// Узлы идентифицируются строковыми ID. Рёбра хранятся в двух списках
// смежности: прямом (edges, источник → приёмники) и обратном
// (reverse, приёмник → источники).
//
// Инвариант: граф ацикличен в любой момент времени. Ацикличность
// проверяется при вставке каждого ребра, а не лениво: ребро, создающее
// цикл, откатывается, и граф остаётся в прежнем состоянии.
//
// Graph строится заново на каждый run из соединений workflow
// и выбрасывается после планирования. Не потокобезопасен.
type Graph struct {
	nodes   map[string]bool
	edges   map[string][]string
	reverse map[string][]string
}

// NewGraph создаёт пустой граф.
func NewGraph() *Graph {
	return &Graph{
		nodes:   make(map[string]bool),
		edges:   make(map[string][]string),
		reverse: make(map[string][]string),
	}
}

// AddNode добавляет узел в граф. Повторное добавление — no-op.
// Возвращает ErrInvalidNode, если ID пустой или состоит из пробелов.
func (g *Graph) AddNode(nodeID string) error {
	if strings.TrimSpace(nodeID) == "" {
		return fmt.Errorf("%w: %q", ErrInvalidNode, nodeID)
	}
	g.nodes[nodeID] = true
	return nil
}

// AddEdge добавляет направленное ребро from → to.
//
// Возвращает:
//   - ErrUnknownNode, если один из концов не добавлен в граф
//   - ErrSelfCycle, если from == to
//   - ErrCycleDetected, если вставка создала бы цикл; в этом случае
//     ребро откатывается и множество рёбер остаётся прежним
func (g *Graph) AddEdge(from, to string) error {
	if !g.nodes[from] {
		return fmt.Errorf("%w: %s", ErrUnknownNode, from)
	}
	if !g.nodes[to] {
		return fmt.Errorf("%w: %s", ErrUnknownNode, to)
	}
	if from == to {
		return fmt.Errorf("%w: %s", ErrSelfCycle, from)
	}

	// Вставляем ребро, затем перепроверяем ацикличность всего графа.
	g.edges[from] = append(g.edges[from], to)
	g.reverse[to] = append(g.reverse[to], from)

	if g.hasCycle() {
		// Откат: удаляем только что вставленное ребро.
		g.edges[from] = removeLast(g.edges[from], to)
		g.reverse[to] = removeLast(g.reverse[to], from)
		return fmt.Errorf("%w: edge %s -> %s", ErrCycleDetected, from, to)
	}

	return nil
}

// removeLast удаляет последнее вхождение value из slice.
func removeLast(s []string, value string) []string {
	for i := len(s) - 1; i >= 0; i-- {
		if s[i] == value {
			return append(s[:i], s[i+1:]...)
		}
	}
	return s
}

// hasCycle проверяет наличие цикла редукцией Кана:
// считаем in-degree по обратным рёбрам и последовательно снимаем узлы
// с нулевой степенью. Если посещено меньше узлов, чем есть в графе,
// оставшиеся образуют цикл.
func (g *Graph) hasCycle() bool {
	inDegree := make(map[string]int, len(g.nodes))
	for node := range g.nodes {
		inDegree[node] = len(g.reverse[node])
	}

	queue := make([]string, 0, len(g.nodes))
	for node, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, node)
		}
	}

	visited := 0
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		visited++

		for _, dep := range g.edges[node] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	return visited != len(g.nodes)
}

// Has проверяет, есть ли узел в графе.
func (g *Graph) Has(nodeID string) bool {
	return g.nodes[nodeID]
}

// Size возвращает количество узлов.
func (g *Graph) Size() int {
	return len(g.nodes)
}

// NodeIDs возвращает все узлы графа. Порядок не определён.
func (g *Graph) NodeIDs() []string {
	ids := make([]string, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	return ids
}

// Dependencies возвращает узлы с рёбрами, входящими в nodeID
// (его зависимости). Пустой список, если зависимостей нет.
func (g *Graph) Dependencies(nodeID string) []string {
	deps := g.reverse[nodeID]
	if deps == nil {
		return []string{}
	}
	return deps
}

// Dependents возвращает узлы с рёбрами, исходящими из nodeID
// (зависящие от него). Пустой список, если таких нет.
func (g *Graph) Dependents(nodeID string) []string {
	deps := g.edges[nodeID]
	if deps == nil {
		return []string{}
	}
	return deps
}

// EdgeCount возвращает количество рёбер в графе.
func (g *Graph) EdgeCount() int {
	count := 0
	for _, targets := range g.edges {
		count += len(targets)
	}
	return count
}

// Validate проверяет граф перед планированием.
//
// Возвращает ErrCycleDetected при наличии цикла (защитная проверка:
// AddEdge не допускает циклов, но вызывающие обязаны валидировать
// граф перед передачей планировщику) и ErrEmptyGraph для графа
// без узлов.
func (g *Graph) Validate() error {
	if g.hasCycle() {
		return ErrCycleDetected
	}
	if len(g.nodes) == 0 {
		return ErrEmptyGraph
	}
	return nil
}

// Describe возвращает представление графа (узел → приёмники)
// для отладки и инспекции.
func (g *Graph) Describe() map[string][]string {
	desc := make(map[string][]string, len(g.nodes))
	for node := range g.nodes {
		desc[node] = append([]string{}, g.edges[node]...)
	}
	return desc
}
