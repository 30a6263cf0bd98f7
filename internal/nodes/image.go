package nodes

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/shaiso/Nodeflow/internal/interpolate"
)

// TypeImageGeneration — тип узла генерации изображений.
const TypeImageGeneration = "image_generation"

// Ключи конфигурации image_generation.
const (
	configSize    = "size"
	configQuality = "quality"
)

// ImageGenerationNode — узел генерации изображений.
//
// Работает через OpenAI Images API; без API-ключа возвращает
// симулированный URL, детерминированный по промпту.
type ImageGenerationNode struct {
	base
	client *http.Client
}

// NewImageGenerationNode создаёт новый ImageGenerationNode.
func NewImageGenerationNode(nodeID string, config map[string]any) Node {
	return &ImageGenerationNode{
		base:   newBase(nodeID, config),
		client: &http.Client{Timeout: 120 * time.Second},
	}
}

// Type возвращает тип узла.
func (n *ImageGenerationNode) Type() string {
	return TypeImageGeneration
}

// ValidateConfig проверяет конфигурацию узла.
func (n *ImageGenerationNode) ValidateConfig() []string {
	return missingRequired(n.config, ImageConfigSchema())
}

// Run выполняет узел.
func (n *ImageGenerationNode) Run(ctx context.Context, inputs, vars map[string]any) (any, error) {
	promptTemplate := configString(n.config, configPrompt, "")
	provider := configString(n.config, configProvider, "")
	model := configString(n.config, configModel, "")
	size := configString(n.config, configSize, "1024x1024")
	quality := configString(n.config, configQuality, "standard")

	prompt := interpolate.InterpolateString(promptTemplate, vars, inputs)
	if prompt == "" {
		return nil, fmt.Errorf("%w: %s: prompt is required", ErrInvalidConfig, TypeImageGeneration)
	}

	if provider == "" {
		if os.Getenv(envOpenAIKey) != "" {
			provider = "openai"
		} else {
			provider = "simulated"
		}
	}

	var (
		url           string
		revisedPrompt string
		err           error
	)
	switch provider {
	case "openai":
		url, revisedPrompt, err = n.generateOpenAI(ctx, prompt, model, size, quality)
	case "simulated":
		url = simulatedMediaURL("image", prompt, "png")
	default:
		return nil, fmt.Errorf("unsupported provider %q", provider)
	}
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"url":            url,
		"output":         url,
		"prompt":         prompt,
		"model":          model,
		"provider":       provider,
		"revised_prompt": revisedPrompt,
		"resolution":     size,
	}, nil
}

// generateOpenAI вызывает OpenAI Images API.
func (n *ImageGenerationNode) generateOpenAI(ctx context.Context, prompt, model, size, quality string) (string, string, error) {
	apiKey := os.Getenv(envOpenAIKey)
	if apiKey == "" {
		return simulatedMediaURL("image", prompt, "png"), "", nil
	}
	if model == "" {
		model = "dall-e-3"
	}

	payload := map[string]any{
		"model":   model,
		"prompt":  prompt,
		"size":    size,
		"quality": quality,
		"n":       1,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://api.openai.com/v1/images/generations", bytes.NewReader(body))
	if err != nil {
		return "", "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)

	resp, err := n.client.Do(req)
	if err != nil {
		return "", "", fmt.Errorf("openai: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBody))
	if err != nil {
		return "", "", err
	}
	if resp.StatusCode >= 400 {
		return "", "", fmt.Errorf("openai: http status %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}

	var parsed struct {
		Data []struct {
			URL           string `json:"url"`
			RevisedPrompt string `json:"revised_prompt"`
		} `json:"data"`
	}
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", "", fmt.Errorf("openai: %w", err)
	}
	if len(parsed.Data) == 0 {
		return "", "", fmt.Errorf("openai: empty data in response")
	}
	return parsed.Data[0].URL, parsed.Data[0].RevisedPrompt, nil
}

// simulatedMediaURL строит детерминированный URL для симулированной генерации.
func simulatedMediaURL(kind, prompt, ext string) string {
	sum := sha256.Sum256([]byte(prompt))
	return fmt.Sprintf("https://media.simulated.local/%s/%s.%s", kind, hex.EncodeToString(sum[:8]), ext)
}

// ImageConfigSchema возвращает схему конфигурации image_generation.
func ImageConfigSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"prompt": map[string]any{"type": "string"},
			"provider": map[string]any{
				"type": "string",
				"enum": []string{"openai", "simulated"},
			},
			"model": map[string]any{"type": "string"},
			"size": map[string]any{
				"type":    "string",
				"default": "1024x1024",
			},
			"quality": map[string]any{
				"type":    "string",
				"enum":    []string{"standard", "hd"},
				"default": "standard",
			},
		},
		"required": []string{"prompt"},
	}
}

// ImageInputSchema возвращает схему входов image_generation.
func ImageInputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"input": map[string]any{"description": "Данные для подстановки в промпт"},
		},
	}
}

// ImageOutputSchema возвращает схему выходов image_generation.
func ImageOutputSchema() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url":            map[string]any{"type": "string"},
			"output":         map[string]any{"type": "string"},
			"prompt":         map[string]any{"type": "string"},
			"provider":       map[string]any{"type": "string"},
			"revised_prompt": map[string]any{"type": "string"},
			"resolution":     map[string]any{"type": "string"},
		},
		"required": []string{"url"},
	}
}
