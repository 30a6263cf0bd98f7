package engine

import "fmt"

// LinearOrder возвращает узлы валидированного графа в топологическом
// порядке (алгоритм Кана).
//
// Узлы с нулевой in-degree извлекаются из FIFO-очереди; порядок
// поступления в очередь определяется порядком итерации по узлам графа,
// на стабильность которого вызывающие полагаться не должны.
//
// Возвращает ErrCycleDetected, если обработано меньше узлов, чем есть
// в графе — защитная перепроверка, хотя Graph не допускает циклов
// при вставке рёбер.
func LinearOrder(g *Graph) ([]string, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	inDegree := make(map[string]int, g.Size())
	for _, node := range g.NodeIDs() {
		inDegree[node] = len(g.Dependencies(node))
	}

	queue := make([]string, 0, g.Size())
	for node, deg := range inDegree {
		if deg == 0 {
			queue = append(queue, node)
		}
	}

	order := make([]string, 0, g.Size())
	for len(queue) > 0 {
		node := queue[0]
		queue = queue[1:]
		order = append(order, node)

		for _, dep := range g.Dependents(node) {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				queue = append(queue, dep)
			}
		}
	}

	if len(order) != g.Size() {
		return nil, fmt.Errorf("%w: topological sort visited %d of %d nodes",
			ErrCycleDetected, len(order), g.Size())
	}

	return order, nil
}

// Levels группирует узлы валидированного графа в последовательные слои.
//
// Каждый слой содержит все узлы, чья текущая in-degree (с учётом только
// ещё не обработанных предшественников) равна нулю. Слой вычисляется
// целиком и все его узлы помечаются обработанными одновременно — именно
// это делает узлы внутри слоя взаимно независимыми и безопасными для
// параллельного выполнения.
//
// Конкатенация слоёв по порядку — валидный топологический порядок;
// для каждого ребра (u → v) индекс слоя u строго меньше индекса слоя v.
//
// Возвращает ErrCycleDetected, если после исчерпания слоёв остались
// необработанные узлы (защитная проверка).
func Levels(g *Graph) ([][]string, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}

	inDegree := make(map[string]int, g.Size())
	for _, node := range g.NodeIDs() {
		inDegree[node] = len(g.Dependencies(node))
	}

	const processed = -1

	levels := make([][]string, 0)
	remaining := g.Size()

	for remaining > 0 {
		level := make([]string, 0)
		for node, deg := range inDegree {
			if deg == 0 {
				level = append(level, node)
			}
		}

		if len(level) == 0 {
			break
		}

		// Сначала помечаем весь слой обработанным, затем снижаем
		// in-degree зависимых — узлы одного слоя не влияют друг на друга.
		for _, node := range level {
			inDegree[node] = processed
		}
		for _, node := range level {
			for _, dep := range g.Dependents(node) {
				inDegree[dep]--
			}
		}

		levels = append(levels, level)
		remaining -= len(level)
	}

	if remaining > 0 {
		leftover := make([]string, 0, remaining)
		for node, deg := range inDegree {
			if deg >= 0 {
				leftover = append(leftover, node)
			}
		}
		return nil, fmt.Errorf("%w: unreachable or cyclic nodes: %v", ErrCycleDetected, leftover)
	}

	return levels, nil
}
