package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Ключи по умолчанию для соединений между узлами.
const (
	// DefaultOutputKey — ключ выхода узла-источника по умолчанию.
	DefaultOutputKey = "output"

	// DefaultInputKey — ключ входа узла-приёмника по умолчанию.
	DefaultInputKey = "input"
)

// Workflow — определение рабочего процесса.
//
// Workflow — это "чертёж" автоматизации: набор типизированных узлов
// и направленных соединений между ними (data-flow рёбра).
// Runner никогда не мутирует Workflow во время выполнения.
type Workflow struct {
	// ID — уникальный идентификатор workflow.
	ID uuid.UUID `json:"id"`

	// Name — имя workflow.
	Name string `json:"name"`

	// Description — описание назначения workflow.
	Description string `json:"description,omitempty"`

	// Nodes — упорядоченный список узлов.
	// ID узлов уникальны в рамках workflow.
	Nodes []WorkflowNode `json:"nodes"`

	// Connections — направленные соединения между узлами.
	// Каждое соединение должно ссылаться на существующие узлы.
	Connections []WorkflowConnection `json:"connections"`

	// Metadata — произвольные метаданные (для UI/API).
	Metadata map[string]any `json:"metadata,omitempty"`

	// Version — счётчик версий. Инкрементируется при каждом обновлении.
	Version int `json:"version"`

	// CreatedAt — время создания workflow.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt — время последнего обновления.
	UpdatedAt time.Time `json:"updated_at"`
}

// WorkflowNode — один узел workflow.
type WorkflowNode struct {
	// ID — уникальный идентификатор узла (непрозрачная строка).
	ID string `json:"id"`

	// Type — тип узла (ключ в реестре типов).
	Type string `json:"type"`

	// Config — конфигурация узла.
	// Интерпретируется только реализацией узла, ядро её не трактует.
	Config map[string]any `json:"config,omitempty"`

	// Name — человекочитаемое имя узла.
	Name string `json:"name,omitempty"`
}

// WorkflowConnection — направленное data-flow ребро между двумя узлами.
//
// Выход from_output узла from_node отображается во вход to_input
// узла to_node.
type WorkflowConnection struct {
	// FromNode — ID узла-источника.
	FromNode string `json:"from_node"`

	// ToNode — ID узла-приёмника.
	ToNode string `json:"to_node"`

	// FromOutput — ключ выхода источника. По умолчанию "output".
	FromOutput string `json:"from_output,omitempty"`

	// ToInput — ключ входа приёмника. По умолчанию "input".
	ToInput string `json:"to_input,omitempty"`
}

// OutputKey возвращает ключ выхода, подставляя значение по умолчанию.
func (c *WorkflowConnection) OutputKey() string {
	if c.FromOutput == "" {
		return DefaultOutputKey
	}
	return c.FromOutput
}

// InputKey возвращает ключ входа, подставляя значение по умолчанию.
func (c *WorkflowConnection) InputKey() string {
	if c.ToInput == "" {
		return DefaultInputKey
	}
	return c.ToInput
}

// NewWorkflow создаёт пустой workflow с новым ID.
func NewWorkflow(name string) *Workflow {
	now := time.Now().UTC()
	return &Workflow{
		ID:        uuid.New(),
		Name:      name,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// GetNode возвращает узел по ID или nil, если узла нет.
func (w *Workflow) GetNode(nodeID string) *WorkflowNode {
	for i := range w.Nodes {
		if w.Nodes[i].ID == nodeID {
			return &w.Nodes[i]
		}
	}
	return nil
}

// AddNode добавляет узел в workflow.
func (w *Workflow) AddNode(node WorkflowNode) {
	w.Nodes = append(w.Nodes, node)
	w.UpdatedAt = time.Now().UTC()
}

// AddConnection добавляет соединение в workflow.
func (w *Workflow) AddConnection(conn WorkflowConnection) {
	w.Connections = append(w.Connections, conn)
	w.UpdatedAt = time.Now().UTC()
}

// RemoveNode удаляет узел и все его соединения.
// Возвращает false, если узла не было.
func (w *Workflow) RemoveNode(nodeID string) bool {
	if w.GetNode(nodeID) == nil {
		return false
	}

	nodes := w.Nodes[:0]
	for _, n := range w.Nodes {
		if n.ID != nodeID {
			nodes = append(nodes, n)
		}
	}
	w.Nodes = nodes

	conns := w.Connections[:0]
	for _, c := range w.Connections {
		if c.FromNode != nodeID && c.ToNode != nodeID {
			conns = append(conns, c)
		}
	}
	w.Connections = conns

	w.UpdatedAt = time.Now().UTC()
	return true
}

// NodeInputs возвращает входящие соединения узла.
func (w *Workflow) NodeInputs(nodeID string) []WorkflowConnection {
	conns := make([]WorkflowConnection, 0)
	for _, c := range w.Connections {
		if c.ToNode == nodeID {
			conns = append(conns, c)
		}
	}
	return conns
}

// NodeOutputs возвращает исходящие соединения узла.
func (w *Workflow) NodeOutputs(nodeID string) []WorkflowConnection {
	conns := make([]WorkflowConnection, 0)
	for _, c := range w.Connections {
		if c.FromNode == nodeID {
			conns = append(conns, c)
		}
	}
	return conns
}

// ValidateStructure проверяет структурную целостность workflow.
//
// Проверяет:
// - Уникальность ID узлов
// - Что каждое соединение ссылается на существующие узлы
//
// Возвращает список всех найденных нарушений (пустой список — структура валидна).
func (w *Workflow) ValidateStructure() []string {
	errs := make([]string, 0)

	nodeIDs := make(map[string]bool, len(w.Nodes))
	for _, n := range w.Nodes {
		if nodeIDs[n.ID] {
			errs = append(errs, fmt.Sprintf("duplicate node id: %s", n.ID))
		}
		nodeIDs[n.ID] = true
	}

	for _, c := range w.Connections {
		if !nodeIDs[c.FromNode] {
			errs = append(errs, fmt.Sprintf("connection references non-existent node: %s", c.FromNode))
		}
		if !nodeIDs[c.ToNode] {
			errs = append(errs, fmt.Sprintf("connection references non-existent node: %s", c.ToNode))
		}
	}

	return errs
}
