package nodes

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/shaiso/Nodeflow/internal/interpolate"
)

// TypeConditionalLogic — тип узла условной логики.
const TypeConditionalLogic = "conditional_logic"

// Ключи конфигурации conditional_logic.
const (
	configConditions = "conditions"
	configLogicMode  = "logic_mode"
)

// Поддерживаемые типы условий.
var conditionTypes = map[string]bool{
	"equals": true, "not_equals": true,
	"greater_than": true, "less_than": true,
	"greater_or_equal": true, "less_or_equal": true,
	"contains": true, "not_contains": true,
	"starts_with": true, "ends_with": true,
	"is_empty": true, "is_not_empty": true,
}

// ConditionalLogicNode — узел ветвления IF/ELSE.
//
// Вычисляет список условий над интерполированными значениями и
// комбинирует их через AND или OR. Значения автоматически приводятся
// к типам (bool, число, JSON, строка) перед сравнением.
type ConditionalLogicNode struct {
	base
}

// NewConditionalLogicNode создаёт новый ConditionalLogicNode.
func NewConditionalLogicNode(nodeID string, config map[string]any) Node {
	return &ConditionalLogicNode{base: newBase(nodeID, config)}
}

// Type возвращает тип узла.
func (n *ConditionalLogicNode) Type() string {
	return TypeConditionalLogic
}

// ValidateConfig проверяет конфигурацию узла.
func (n *ConditionalLogicNode) ValidateConfig() []string {
	errs := missingRequired(n.config, ConditionalConfigSchema())

	for i, c := range configSlice(n.config, configConditions) {
		cond, ok := c.(map[string]any)
		if !ok {
			errs = append(errs, fmt.Sprintf("conditions[%d]: must be an object", i))
			continue
		}
		if ct := configString(cond, "condition_type", "equals"); !conditionTypes[ct] {
			errs = append(errs, fmt.Sprintf("conditions[%d]: unknown condition type: %s", i, ct))
		}
	}

	if mode := strings.ToUpper(configString(n.config, configLogicMode, "AND")); mode != "AND" && mode != "OR" {
		errs = append(errs, fmt.Sprintf("unknown logic mode: %s", mode))
	}
	return errs
}

// Run выполняет узел.
func (n *ConditionalLogicNode) Run(ctx context.Context, inputs, vars map[string]any) (any, error) {
	conditions := configSlice(n.config, configConditions)
	logicMode := strings.ToUpper(configString(n.config, configLogicMode, "AND"))

	evaluated := make([]any, 0, len(conditions))
	results := make([]bool, 0, len(conditions))

	for _, c := range conditions {
		cond, ok := c.(map[string]any)
		if !ok {
			continue
		}

		raw1 := interpolate.InterpolateString(configString(cond, "value1", ""), vars, inputs)
		raw2 := interpolate.InterpolateString(configString(cond, "value2", ""), vars, inputs)

		value1 := parseTypedValue(raw1)
		value2 := parseTypedValue(raw2)
		condType := configString(cond, "condition_type", "equals")

		passed := evaluateCondition(condType, value1, value2)

		evaluated = append(evaluated, map[string]any{
			"value1":         value1,
			"value2":         value2,
			"condition_type": condType,
			"result":         passed,
		})
		results = append(results, passed)
	}

	final := combineResults(results, logicMode)
	branch := "false"
	if final {
		branch = "true"
	}

	return map[string]any{
		"result":     final,
		"output":     final,
		"branch":     branch,
		"evaluated":  evaluated,
		"logic_mode": logicMode,
	}, nil
}

// combineResults применяет режим AND/OR к результатам условий.
func combineResults(results []bool, logicMode string) bool {
	switch logicMode {
	case "AND":
		for _, r := range results {
			if !r {
				return false
			}
		}
		return true
	case "OR":
		for _, r := range results {
			if r {
				return true
			}
		}
		return false
	default:
		return false
	}
}

// parseTypedValue приводит строку к наиболее подходящему типу:
// bool, nil, число, JSON объект/массив, иначе строка.
func parseTypedValue(raw string) any {
	switch strings.ToLower(raw) {
	case "true":
		return true
	case "false":
		return false
	case "null", "none":
		return nil
	}

	if n, err := strconv.ParseFloat(raw, 64); err == nil {
		return n
	}

	trimmed := strings.TrimSpace(raw)
	if strings.HasPrefix(trimmed, "{") || strings.HasPrefix(trimmed, "[") {
		var parsed any
		if err := json.Unmarshal([]byte(trimmed), &parsed); err == nil {
			return parsed
		}
	}

	return raw
}

// evaluateCondition вычисляет одно условие.
// Неизвестный тип условия и ошибки сравнения дают false.
func evaluateCondition(condType string, value1, value2 any) bool {
	switch condType {
	case "equals":
		return reflect.DeepEqual(value1, value2)
	case "not_equals":
		return !reflect.DeepEqual(value1, value2)
	case "greater_than":
		return numericCompare(value1, value2, func(a, b float64) bool { return a > b })
	case "less_than":
		return numericCompare(value1, value2, func(a, b float64) bool { return a < b })
	case "greater_or_equal":
		return numericCompare(value1, value2, func(a, b float64) bool { return a >= b })
	case "less_or_equal":
		return numericCompare(value1, value2, func(a, b float64) bool { return a <= b })
	case "contains":
		return strings.Contains(interpolate.Stringify(value1), interpolate.Stringify(value2))
	case "not_contains":
		return !strings.Contains(interpolate.Stringify(value1), interpolate.Stringify(value2))
	case "starts_with":
		return strings.HasPrefix(interpolate.Stringify(value1), interpolate.Stringify(value2))
	case "ends_with":
		return strings.HasSuffix(interpolate.Stringify(value1), interpolate.Stringify(value2))
	case "is_empty":
		return isEmptyValue(value1)
	case "is_not_empty":
		return !isEmptyValue(value1)
	default:
		return false
	}
}

// numericCompare сравнивает значения как числа.
// Нечисловые значения оператор не пропускает.
func numericCompare(a, b any, op func(a, b float64) bool) bool {
	fa, okA := toFloat(a)
	fb, okB := toFloat(b)
	if !okA || !okB {
		return false
	}
	return op(fa, fb)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func isEmptyValue(v any) bool {
	switch val := v.(type) {
	case nil:
		return true
	case string:
		return strings.TrimSpace(val) == ""
	case []any:
		return len(val) == 0
	case map[string]any:
		return len(val) == 0
	default:
		return false
	}
}

// ConditionalConfigSchema возвращает схему конфигурации conditional_logic.
func ConditionalConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"logic_mode": map[string]any{
				"type":    "string",
				"enum":    []string{"AND", "OR"},
				"default": "AND",
			},
			"conditions": map[string]any{
				"type": "array",
				"items": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"condition_type": map[string]any{
							"type": "string",
							"enum": []string{
								"equals", "not_equals",
								"greater_than", "less_than",
								"greater_or_equal", "less_or_equal",
								"contains", "not_contains",
								"starts_with", "ends_with",
								"is_empty", "is_not_empty",
							},
							"default": "equals",
						},
						"value1": map[string]any{"type": "string"},
						"value2": map[string]any{"type": "string"},
					},
					"required": []string{"condition_type", "value1"},
				},
			},
		},
		"required": []string{"conditions"},
	}
}

// ConditionalInputSchema возвращает схему входов conditional_logic.
func ConditionalInputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"value1": map[string]any{},
			"value2": map[string]any{},
		},
	}
}

// ConditionalOutputSchema возвращает схему выходов conditional_logic.
func ConditionalOutputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"result":     map[string]any{"type": "boolean"},
			"output":     map[string]any{"type": "boolean"},
			"branch":     map[string]any{"type": "string", "enum": []string{"true", "false"}},
			"evaluated":  map[string]any{"type": "array"},
			"logic_mode": map[string]any{"type": "string"},
		},
		"required": []string{"result", "branch"},
	}
}
