// Package runner выполняет запуски workflow: строит граф из соединений,
// планирует уровни, разрешает входы узлов из выходов источников и
// выполняет узлы с учётом кэша, лимита конкурентности и политики ошибок.
package runner
