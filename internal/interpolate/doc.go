// Package interpolate разрешает шаблонные ссылки вида {{path.to.value}}
// в конфигурации узлов workflow: значения берутся из входных данных run
// и выходов узлов-источников.
package interpolate
