package domain

// NodeResult — результат выполнения одного узла.
//
// Создаётся ровно один раз на узел за run и после создания не изменяется.
// Неудача узла представляется значением (Success=false + Error),
// а не ошибкой/паникой — Runner никогда не получает исключение от узла.
type NodeResult struct {
	// Success — завершился ли узел успешно.
	Success bool `json:"success"`

	// Output — выходные данные узла.
	// Форма определяется реализацией узла; обычно map[string]any.
	Output any `json:"output"`

	// Error — текст ошибки. Заполнен тогда и только тогда, когда !Success.
	Error string `json:"error,omitempty"`

	// ExecutionTime — длительность выполнения в секундах.
	ExecutionTime float64 `json:"execution_time"`

	// Metadata — метаданные выполнения.
	// Всегда содержит как минимум node_id и node_type.
	Metadata map[string]any `json:"metadata,omitempty"`
}

// NewNodeResult создаёт успешный NodeResult.
func NewNodeResult(output any, executionTime float64) *NodeResult {
	return &NodeResult{
		Success:       true,
		Output:        output,
		ExecutionTime: executionTime,
		Metadata:      make(map[string]any),
	}
}

// FailedNodeResult создаёт NodeResult с ошибкой.
func FailedNodeResult(errMsg string, executionTime float64) *NodeResult {
	return &NodeResult{
		Success:       false,
		Error:         errMsg,
		ExecutionTime: executionTime,
		Metadata:      make(map[string]any),
	}
}

// SetMeta добавляет значение в метаданные, инициализируя map при необходимости.
func (r *NodeResult) SetMeta(key string, value any) {
	if r.Metadata == nil {
		r.Metadata = make(map[string]any)
	}
	r.Metadata[key] = value
}
