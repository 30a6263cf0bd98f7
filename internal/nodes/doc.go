// Package nodes содержит реестр типов узлов workflow и встроенные узлы:
// пользовательский ввод, вывод результата, условная логика, HTTP запросы,
// генерация текста, изображений и видео, задержка.
package nodes
