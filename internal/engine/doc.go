// Package engine содержит графовую модель и планировщик выполнения workflow.
//
// Включает:
//   - graph.go     — DAG: узлы, рёбра, проверка ацикличности при вставке
//   - scheduler.go — топологическая сортировка и группировка в слои
//
// Engine отвечает за понимание структуры workflow и определение
// порядка выполнения узлов на основе их зависимостей. Узлы одного
// слоя взаимно независимы и могут выполняться параллельно.
package engine
