package nodes

import (
	"fmt"
	"sort"
	"sync"
)

// TypeInfo — метаданные зарегистрированного типа узла.
//
// Схемы описываются в стиле JSON Schema и отдаются клиентам API
// для построения UI-редактора workflow.
type TypeInfo struct {
	// Type — машинное имя типа (user_input, http_request, ...).
	Type string `json:"type"`

	// DisplayName — человекочитаемое имя для UI.
	DisplayName string `json:"display_name"`

	// Description — краткое описание узла.
	Description string `json:"description"`

	// Category — категория для группировки в UI.
	Category string `json:"category"`

	// Icon — имя иконки для UI.
	Icon string `json:"icon,omitempty"`

	// ConfigSchema — схема конфигурации узла.
	ConfigSchema map[string]any `json:"config_schema"`

	// InputSchema — схема входных данных.
	InputSchema map[string]any `json:"input_schema"`

	// OutputSchema — схема выходных данных.
	OutputSchema map[string]any `json:"output_schema"`

	// New — конструктор экземпляров узла.
	New Constructor `json:"-"`
}

// Registry — реестр типов узлов.
//
// Явная зависимость: реестр создаётся в точке сборки приложения
// и передаётся компонентам, которым он нужен. Потокобезопасен.
type Registry struct {
	mu    sync.RWMutex
	types map[string]TypeInfo
}

// NewRegistry создаёт пустой реестр.
func NewRegistry() *Registry {
	return &Registry{
		types: make(map[string]TypeInfo),
	}
}

// Register регистрирует тип узла.
// Возвращает ErrDuplicateType, если тип уже зарегистрирован, и
// ErrInvalidConfig при пустом имени типа или nil-конструкторе.
func (r *Registry) Register(info TypeInfo) error {
	if info.Type == "" {
		return fmt.Errorf("%w: empty type name", ErrInvalidConfig)
	}
	if info.New == nil {
		return fmt.Errorf("%w: %s: nil constructor", ErrInvalidConfig, info.Type)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.types[info.Type]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateType, info.Type)
	}
	r.types[info.Type] = info
	return nil
}

// Get возвращает метаданные типа узла.
// Возвращает ErrNodeTypeNotFound, если тип не зарегистрирован.
func (r *Registry) Get(nodeType string) (TypeInfo, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	info, exists := r.types[nodeType]
	if !exists {
		return TypeInfo{}, fmt.Errorf("%w: %s", ErrNodeTypeNotFound, nodeType)
	}
	return info, nil
}

// Has проверяет, зарегистрирован ли тип узла.
func (r *Registry) Has(nodeType string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, exists := r.types[nodeType]
	return exists
}

// CreateInstance создаёт экземпляр узла по типу.
func (r *Registry) CreateInstance(nodeType, nodeID string, config map[string]any) (Node, error) {
	info, err := r.Get(nodeType)
	if err != nil {
		return nil, err
	}
	return info.New(nodeID, config), nil
}

// ListAll возвращает метаданные всех типов, отсортированные по имени.
func (r *Registry) ListAll() []TypeInfo {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]TypeInfo, 0, len(r.types))
	for _, info := range r.types {
		list = append(list, info)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Type < list[j].Type })
	return list
}

// ListByCategory возвращает типы указанной категории.
func (r *Registry) ListByCategory(category string) []TypeInfo {
	all := r.ListAll()
	list := make([]TypeInfo, 0, len(all))
	for _, info := range all {
		if info.Category == category {
			list = append(list, info)
		}
	}
	return list
}

// Categories возвращает отсортированный список категорий.
func (r *Registry) Categories() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	for _, info := range r.types {
		seen[info.Category] = true
	}

	categories := make([]string, 0, len(seen))
	for c := range seen {
		categories = append(categories, c)
	}
	sort.Strings(categories)
	return categories
}

// Types возвращает отсортированный список имён типов.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.types))
	for t := range r.types {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}

// Count возвращает количество зарегистрированных типов.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.types)
}
