package nodes

import (
	"context"
	"fmt"

	"github.com/shaiso/Nodeflow/internal/interpolate"
)

// TypeVideoGeneration — тип узла генерации видео.
const TypeVideoGeneration = "video_generation"

// Ключи конфигурации video_generation.
const (
	configDuration = "duration"
	configFPS      = "fps"
)

// VideoGenerationNode — узел генерации видео.
//
// Внешние видео-провайдеры требуют асинхронного поллинга результата,
// поэтому узел работает в симулированном режиме: возвращает
// детерминированный URL и метаданные запроса.
type VideoGenerationNode struct {
	base
}

// NewVideoGenerationNode создаёт новый VideoGenerationNode.
func NewVideoGenerationNode(nodeID string, config map[string]any) Node {
	return &VideoGenerationNode{base: newBase(nodeID, config)}
}

// Type возвращает тип узла.
func (n *VideoGenerationNode) Type() string {
	return TypeVideoGeneration
}

// ValidateConfig проверяет конфигурацию узла.
func (n *VideoGenerationNode) ValidateConfig() []string {
	return missingRequired(n.config, VideoConfigSchema())
}

// Run выполняет узел.
func (n *VideoGenerationNode) Run(ctx context.Context, inputs, vars map[string]any) (any, error) {
	promptTemplate := configString(n.config, configPrompt, "")
	model := configString(n.config, configModel, "")
	duration := configInt(n.config, configDuration, 4)
	fps := configInt(n.config, configFPS, 24)

	prompt := interpolate.InterpolateString(promptTemplate, vars, inputs)
	if prompt == "" {
		return nil, fmt.Errorf("%w: %s: prompt is required", ErrInvalidConfig, TypeVideoGeneration)
	}

	url := simulatedMediaURL("video", prompt, "mp4")

	return map[string]any{
		"url":         url,
		"output":      url,
		"prompt_used": prompt,
		"model":       model,
		"provider":    "simulated",
		"duration":    duration,
		"fps":         fps,
	}, nil
}

// VideoConfigSchema возвращает схему конфигурации video_generation.
func VideoConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt":   map[string]any{"type": "string"},
			"model":    map[string]any{"type": "string"},
			"duration": map[string]any{"type": "integer", "default": 4},
			"fps":      map[string]any{"type": "integer", "default": 24},
		},
		"required": []string{"prompt"},
	}
}

// VideoInputSchema возвращает схему входов video_generation.
func VideoInputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"input": map[string]any{"description": "Данные для подстановки в промпт"},
		},
	}
}

// VideoOutputSchema возвращает схему выходов video_generation.
func VideoOutputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url":         map[string]any{"type": "string"},
			"output":      map[string]any{"type": "string"},
			"prompt_used": map[string]any{"type": "string"},
			"duration":    map[string]any{"type": "integer"},
			"fps":         map[string]any{"type": "integer"},
		},
		"required": []string{"url"},
	}
}
