package nodes

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/shaiso/Nodeflow/internal/interpolate"
)

// TypeOutput — тип узла вывода результатов.
const TypeOutput = "output"

// Ключи конфигурации output.
const (
	configFormat   = "format"
	configTemplate = "template"
	configFields   = "fields"
)

// OutputNode — узел формирования итогового результата workflow.
//
// Собирает данные предыдущих узлов и форматирует их: по шаблону,
// по списку полей или как есть. Runner использует выход этого узла
// как output_data запуска.
type OutputNode struct {
	base
}

// NewOutputNode создаёт новый OutputNode.
func NewOutputNode(nodeID string, config map[string]any) Node {
	return &OutputNode{base: newBase(nodeID, config)}
}

// Type возвращает тип узла.
func (n *OutputNode) Type() string {
	return TypeOutput
}

// ValidateConfig проверяет конфигурацию узла.
func (n *OutputNode) ValidateConfig() []string {
	errs := missingRequired(n.config, OutputConfigSchema())

	if f := configString(n.config, configFormat, "auto"); f != "" {
		switch f {
		case "auto", "json", "text", "list":
		default:
			errs = append(errs, fmt.Sprintf("unknown output format: %s", f))
		}
	}
	return errs
}

// Run выполняет узел.
func (n *OutputNode) Run(ctx context.Context, inputs, vars map[string]any) (any, error) {
	format := configString(n.config, configFormat, "auto")
	template := configString(n.config, configTemplate, "")
	fields := configSlice(n.config, configFields)

	var output any
	switch {
	case template != "":
		output = interpolate.Interpolate(template, vars, inputs)

	case len(fields) > 0:
		output = n.selectFields(fields, inputs)

	default:
		output = visibleInputs(inputs)
	}

	return map[string]any{
		"output": n.applyFormat(output, format),
		"result": n.applyFormat(output, format),
		"format": format,
	}, nil
}

// selectFields выбирает указанные поля из входов.
// Поле вида "node1.output.text" разрешается через выходы источников.
func (n *OutputNode) selectFields(fields []any, inputs map[string]any) map[string]any {
	output := make(map[string]any)

	for _, f := range fields {
		field, ok := f.(string)
		if !ok {
			continue
		}

		if strings.Contains(field, ".") {
			if v := interpolate.GetNested(visibleWithSources(inputs), field); v != nil {
				output[field] = v
			}
			continue
		}
		if v, ok := inputs[field]; ok {
			output[field] = v
		}
	}
	return output
}

// applyFormat применяет форматирование к результату.
func (n *OutputNode) applyFormat(output any, format string) any {
	switch format {
	case "text":
		if m, ok := output.(map[string]any); ok {
			keys := make([]string, 0, len(m))
			for k := range m {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			lines := make([]string, 0, len(keys))
			for _, k := range keys {
				lines = append(lines, fmt.Sprintf("%s: %s", k, interpolate.Stringify(m[k])))
			}
			return strings.Join(lines, "\n")
		}
		return interpolate.Stringify(output)

	case "list":
		switch v := output.(type) {
		case []any:
			return v
		case map[string]any:
			keys := make([]string, 0, len(v))
			for k := range v {
				keys = append(keys, k)
			}
			sort.Strings(keys)

			list := make([]any, 0, len(keys))
			for _, k := range keys {
				list = append(list, v[k])
			}
			return list
		default:
			return []any{output}
		}

	default: // auto, json
		return output
	}
}

// visibleInputs возвращает входы без служебного ключа _sources.
func visibleInputs(inputs map[string]any) map[string]any {
	visible := make(map[string]any, len(inputs))
	for k, v := range inputs {
		if k == interpolate.SourcesKey {
			continue
		}
		visible[k] = v
	}
	return visible
}

// visibleWithSources объединяет входы и выходы источников по id узла.
func visibleWithSources(inputs map[string]any) map[string]any {
	merged := visibleInputs(inputs)
	if sources, ok := inputs[interpolate.SourcesKey].(map[string]any); ok {
		for nodeID, out := range sources {
			if _, exists := merged[nodeID]; !exists {
				merged[nodeID] = out
			}
		}
	}
	return merged
}

// OutputConfigSchema возвращает схему конфигурации output.
func OutputConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"format": map[string]any{
				"type":    "string",
				"enum":    []string{"auto", "json", "text", "list"},
				"default": "auto",
			},
			"template": map[string]any{
				"type":        "string",
				"description": "Шаблон с {{переменными}} для форматирования",
			},
			"fields": map[string]any{
				"type":        "array",
				"items":       map[string]any{"type": "string"},
				"description": "Список полей для выборки (например node1.output)",
			},
		},
	}
}

// OutputInputSchema возвращает схему входов output.
func OutputInputSchema() map[string]any {
	return map[string]any{
		"type":        "object",
		"properties":  map[string]any{},
		"description": "Принимает любые входы от предыдущих узлов",
	}
}

// OutputOutputSchema возвращает схему выходов output.
func OutputOutputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"output": map[string]any{},
			"result": map[string]any{},
			"format": map[string]any{"type": "string"},
		},
		"required": []string{"output"},
	}
}
