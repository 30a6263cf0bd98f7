package nodes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shaiso/Nodeflow/internal/domain"
)

// Ошибки узлов.
var (
	// ErrNodeTypeNotFound — тип узла не найден в реестре.
	ErrNodeTypeNotFound = errors.New("node type not found")

	// ErrDuplicateType — тип узла уже зарегистрирован.
	ErrDuplicateType = errors.New("node type already registered")

	// ErrInvalidConfig — невалидная конфигурация узла.
	ErrInvalidConfig = errors.New("invalid node config")
)

// Node — интерфейс для экземпляров узлов workflow.
//
// Каждый тип узла (user_input, http_request, conditional_logic, ...)
// реализует этот интерфейс. Экземпляр привязан к конкретному узлу
// workflow и его конфигурации.
type Node interface {
	// ID возвращает идентификатор узла в workflow.
	ID() string

	// Type возвращает тип узла.
	Type() string

	// ValidateConfig проверяет конфигурацию узла.
	// Возвращает список ошибок; пустой список — конфигурация валидна.
	ValidateConfig() []string

	// Run выполняет бизнес-логику узла.
	//
	// inputs — входы узла, отображённые по соединениям
	// (плюс сырые выходы источников под interpolate.SourcesKey).
	// vars — переменные запуска (входные данные execution).
	//
	// Узел должен проверять ctx.Done() в длительных операциях.
	Run(ctx context.Context, inputs, vars map[string]any) (any, error)
}

// Constructor создаёт экземпляр узла для конкретного узла workflow.
type Constructor func(nodeID string, config map[string]any) Node

// Execute — управляемая обёртка над Node.Run.
//
// Замеряет время, перехватывает паники и никогда не возвращает ошибку:
// любой сбой узла превращается в NodeResult с success=false. Метаданные
// node_id и node_type проставляются в каждый результат.
func Execute(ctx context.Context, n Node, inputs, vars map[string]any) (result *domain.NodeResult) {
	start := time.Now()

	defer func() {
		if r := recover(); r != nil {
			result = domain.FailedNodeResult(
				fmt.Sprintf("node panic: %v", r),
				time.Since(start).Seconds(),
			)
			stampMeta(result, n)
		}
	}()

	output, err := n.Run(ctx, inputs, vars)
	elapsed := time.Since(start).Seconds()

	if err != nil {
		result = domain.FailedNodeResult(err.Error(), elapsed)
		// Узел может вернуть частичный вывод вместе с ошибкой
		// (например, тело HTTP ответа при статусе >= 400).
		result.Output = output
	} else {
		result = domain.NewNodeResult(output, elapsed)
	}
	stampMeta(result, n)
	return result
}

func stampMeta(result *domain.NodeResult, n Node) {
	result.SetMeta("node_id", n.ID())
	result.SetMeta("node_type", n.Type())
}

// base — общая часть всех встроенных узлов.
type base struct {
	id     string
	config map[string]any
}

func newBase(nodeID string, config map[string]any) base {
	if config == nil {
		config = make(map[string]any)
	}
	return base{id: nodeID, config: config}
}

// ID возвращает идентификатор узла.
func (b *base) ID() string {
	return b.id
}

// missingRequired проверяет наличие обязательных полей из config schema.
// Список required может быть []string или []any (после прохода через JSON).
func missingRequired(config, schema map[string]any) []string {
	errs := []string{}

	var required []string
	switch list := schema["required"].(type) {
	case []string:
		required = list
	case []any:
		for _, v := range list {
			if s, ok := v.(string); ok {
				required = append(required, s)
			}
		}
	}
	for _, field := range required {
		if _, ok := config[field]; !ok {
			errs = append(errs, fmt.Sprintf("missing required config: %s", field))
		}
	}
	return errs
}

// Хелперы извлечения значений из конфигурации.

// configString извлекает строковое значение из конфига.
func configString(config map[string]any, key, defaultVal string) string {
	if v, ok := config[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return defaultVal
}

// configInt извлекает числовое значение из конфига.
func configInt(config map[string]any, key string, defaultVal int) int {
	if v, ok := config[key]; ok {
		switch n := v.(type) {
		case int:
			return n
		case int64:
			return int(n)
		case float64:
			return int(n)
		}
	}
	return defaultVal
}

// configFloat извлекает float из конфига.
func configFloat(config map[string]any, key string, defaultVal float64) float64 {
	if v, ok := config[key]; ok {
		switch n := v.(type) {
		case float64:
			return n
		case int:
			return float64(n)
		case int64:
			return float64(n)
		}
	}
	return defaultVal
}

// configBool извлекает булево значение из конфига.
func configBool(config map[string]any, key string, defaultVal bool) bool {
	if v, ok := config[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return defaultVal
}

// configMap извлекает map из конфига.
func configMap(config map[string]any, key string) map[string]any {
	if v, ok := config[key]; ok {
		if m, ok := v.(map[string]any); ok {
			return m
		}
	}
	return nil
}

// configSlice извлекает slice из конфига.
func configSlice(config map[string]any, key string) []any {
	if v, ok := config[key]; ok {
		if s, ok := v.([]any); ok {
			return s
		}
	}
	return nil
}
