package nodes

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/shaiso/Nodeflow/internal/interpolate"
)

// TypeUserInput — тип узла пользовательского ввода.
const TypeUserInput = "user_input"

// Ключи конфигурации user_input.
const (
	configInputKey = "input_key"
	configValue    = "value"
	configDefault  = "default"
	configRequired = "required"
	configType     = "type"
)

// UserInputNode — узел пользовательского ввода.
//
// Разрешает значение в порядке: заранее заданное значение в конфиге,
// входные данные запуска по input_key, значение по умолчанию.
// Приводит значение к ожидаемому типу (text, number, boolean, json).
type UserInputNode struct {
	base
}

// NewUserInputNode создаёт новый UserInputNode.
func NewUserInputNode(nodeID string, config map[string]any) Node {
	return &UserInputNode{base: newBase(nodeID, config)}
}

// Type возвращает тип узла.
func (n *UserInputNode) Type() string {
	return TypeUserInput
}

// ValidateConfig проверяет конфигурацию узла.
func (n *UserInputNode) ValidateConfig() []string {
	errs := missingRequired(n.config, UserInputConfigSchema())

	if t := configString(n.config, configType, "text"); t != "" {
		switch t {
		case "text", "number", "boolean", "json":
		default:
			errs = append(errs, fmt.Sprintf("unknown input type: %s", t))
		}
	}
	return errs
}

// Run выполняет узел.
func (n *UserInputNode) Run(ctx context.Context, inputs, vars map[string]any) (any, error) {
	inputKey := configString(n.config, configInputKey, "value")
	required := configBool(n.config, configRequired, true)
	expectedType := configString(n.config, configType, "text")

	value, source := n.resolveValue(vars, inputKey)

	if value == nil {
		if required {
			return nil, fmt.Errorf("no value found for input key %q", inputKey)
		}
		return map[string]any{"output": nil, "value": nil, "source": source}, nil
	}

	cast, err := castValue(value, expectedType)
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"output": cast,
		"value":  cast,
		"source": source,
	}, nil
}

// resolveValue определяет, откуда берётся значение.
func (n *UserInputNode) resolveValue(vars map[string]any, key string) (any, string) {
	if v, ok := n.config[configValue]; ok {
		return v, "config"
	}
	if v, ok := vars[key]; ok {
		return v, "context"
	}
	if v, ok := n.config[configDefault]; ok {
		return v, "default"
	}
	return nil, "missing"
}

// castValue валидирует и приводит значение к ожидаемому типу.
func castValue(value any, expectedType string) (any, error) {
	switch expectedType {
	case "text":
		return strings.TrimSpace(interpolate.Stringify(value)), nil

	case "number":
		switch v := value.(type) {
		case float64:
			return v, nil
		case int:
			return float64(v), nil
		case int64:
			return float64(v), nil
		case string:
			f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
			if err != nil {
				return nil, fmt.Errorf("expected number but got %q", v)
			}
			return f, nil
		default:
			return nil, fmt.Errorf("expected number but got %v", value)
		}

	case "boolean":
		if b, ok := value.(bool); ok {
			return b, nil
		}
		switch strings.ToLower(interpolate.Stringify(value)) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}
		return nil, fmt.Errorf("invalid boolean value: %v", value)

	case "json":
		switch value.(type) {
		case map[string]any, []any:
			return value, nil
		}
		return nil, fmt.Errorf("expected JSON object or array, got %T", value)

	default:
		return value, nil
	}
}

// UserInputConfigSchema возвращает схему конфигурации user_input.
func UserInputConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt":    map[string]any{"type": "string", "description": "Подсказка для UI"},
			"input_key": map[string]any{"type": "string", "default": "value"},
			"value":     map[string]any{"description": "Заранее заданное значение"},
			"default":   map[string]any{"description": "Значение по умолчанию"},
			"required":  map[string]any{"type": "boolean", "default": true},
			"type": map[string]any{
				"type":    "string",
				"enum":    []string{"text", "number", "boolean", "json"},
				"default": "text",
			},
		},
	}
}

// UserInputInputSchema возвращает схему входов user_input.
func UserInputInputSchema() map[string]any {
	return map[string]any{
		"type":        "object",
		"properties":  map[string]any{},
		"description": "Узел не принимает входы от других узлов",
	}
}

// UserInputOutputSchema возвращает схему выходов user_input.
func UserInputOutputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"output": map[string]any{},
			"value":  map[string]any{},
			"source": map[string]any{"type": "string"},
		},
		"required": []string{"output"},
	}
}
