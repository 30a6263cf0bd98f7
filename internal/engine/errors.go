package engine

import "errors"

// Ошибки графа.
var (
	// ErrInvalidNode — недопустимый ID узла (пустой или из пробелов).
	ErrInvalidNode = errors.New("invalid node id")

	// ErrUnknownNode — ребро ссылается на несуществующий узел.
	ErrUnknownNode = errors.New("node not found in graph")

	// ErrSelfCycle — ребро из узла в самого себя.
	ErrSelfCycle = errors.New("self-cycle detected")

	// ErrCycleDetected — обнаружен цикл в графе.
	ErrCycleDetected = errors.New("cycle detected")

	// ErrEmptyGraph — граф не содержит узлов.
	ErrEmptyGraph = errors.New("graph contains no nodes")
)
